package models

import "time"

// GuestStatus guest lifecycle state
type GuestStatus string

const (
	GuestExpected GuestStatus = "expected"
	GuestOnboard  GuestStatus = "onboard"
	GuestAshore   GuestStatus = "ashore"
	GuestDeparted GuestStatus = "departed"
)

// Guest only LocationID is authoritative for placement
type Guest struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Status       GuestStatus `json:"status"`
	LocationID   *string     `json:"locationId,omitempty"`
	CheckInDate  time.Time   `json:"checkInDate"`
	CheckOutDate time.Time   `json:"checkOutDate"`
}

// Label display name used in error messages
func (g *Guest) Label() string {
	if g.Name != "" {
		return g.Name
	}
	return g.ID
}

// Location cabin or public area a guest or device belongs to
type Location struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
