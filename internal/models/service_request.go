package models

import "time"

// Priority service request urgency
type Priority string

const (
	PriorityNormal    Priority = "normal"
	PriorityUrgent    Priority = "urgent"
	PriorityEmergency Priority = "emergency"
)

// RequestStatus service request lifecycle state
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusAccepted  RequestStatus = "accepted"
	StatusDelegated RequestStatus = "delegated"
	StatusCompleted RequestStatus = "completed"
	StatusCancelled RequestStatus = "cancelled"
)

// RequestType what the guest asked for, derived from the button used
type RequestType string

const (
	RequestCall        RequestType = "call"
	RequestVoice       RequestType = "voice"
	RequestDND         RequestType = "dnd"
	RequestLights      RequestType = "lights"
	RequestPrepareFood RequestType = "prepare_food"
	RequestBringDrinks RequestType = "bring_drinks"
	RequestEmergency   RequestType = "emergency"
)

// ServiceRequest guest-initiated call for service
type ServiceRequest struct {
	ID              string        `json:"id"`
	GuestID         *string       `json:"guestId,omitempty"`
	GuestName       string        `json:"guestName"`
	LocationID      *string       `json:"locationId,omitempty"`
	GuestCabin      string        `json:"guestCabin"`
	Priority        Priority      `json:"priority"`
	Status          RequestStatus `json:"status"`
	RequestType     RequestType   `json:"requestType,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	AcceptedAt      *time.Time    `json:"acceptedAt,omitempty"`
	CompletedAt     *time.Time    `json:"completedAt,omitempty"`
	AssignedTo      string        `json:"assignedTo,omitempty"`
	VoiceTranscript string        `json:"voiceTranscript,omitempty"`
	VoiceAudioURL   string        `json:"voiceAudioUrl,omitempty"`
	Category        string        `json:"category,omitempty"`
	Notes           string        `json:"notes,omitempty"`
	DeviceID        string        `json:"deviceId,omitempty"`
}

// Clone deep-copies pointer fields so callers cannot mutate lifecycle state
func (r *ServiceRequest) Clone() *ServiceRequest {
	if r == nil {
		return nil
	}
	c := *r
	if r.GuestID != nil {
		v := *r.GuestID
		c.GuestID = &v
	}
	if r.LocationID != nil {
		v := *r.LocationID
		c.LocationID = &v
	}
	if r.AcceptedAt != nil {
		v := *r.AcceptedAt
		c.AcceptedAt = &v
	}
	if r.CompletedAt != nil {
		v := *r.CompletedAt
		c.CompletedAt = &v
	}
	return &c
}

// HistoryEntry append-only record of a completed request
type HistoryEntry struct {
	ID              string         `json:"id"`
	Request         ServiceRequest `json:"originalRequest"`
	CompletedBy     string         `json:"completedBy"`
	CompletedAt     time.Time      `json:"completedAt"`
	DurationSeconds int64          `json:"duration"`
}
