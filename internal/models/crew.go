package models

// CrewStatus manual status override, independent of computed duty
type CrewStatus string

const (
	CrewOnDuty  CrewStatus = "on-duty"
	CrewOffDuty CrewStatus = "off-duty"
	CrewOnLeave CrewStatus = "on-leave"
)

// NormalizeCrewStatus maps legacy spellings ("on_leave", "") onto the canonical set.
// Unknown values are treated as off-duty.
func NormalizeCrewStatus(s string) CrewStatus {
	switch s {
	case "on-duty", "on_duty":
		return CrewOnDuty
	case "on-leave", "on_leave":
		return CrewOnLeave
	default:
		return CrewOffDuty
	}
}

// CrewMember roster entry
type CrewMember struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Department string     `json:"department"`
	Role       string     `json:"role,omitempty"`
	Status     CrewStatus `json:"status"`
	Shift      string     `json:"shift,omitempty"` // optional free-text label
}

// DutyMember crew member as shown in a duty snapshot
type DutyMember struct {
	CrewMember
	ShiftLabel string `json:"shiftLabel"`
}

// EmergencyShiftLabel tag for crew pulled in by manual on-duty override
const EmergencyShiftLabel = "Emergency"
