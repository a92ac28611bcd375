package models

// Shift named recurring time window, times are local HH:MM
type Shift struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	StartTime    string `json:"startTime"`
	EndTime      string `json:"endTime"`
	PrimaryCount int    `json:"primaryCount"`
	BackupCount  int    `json:"backupCount"`
	Order        int    `json:"order"`
	Color        string `json:"color,omitempty"`
}

// AssignmentType primary or backup role on a shift
type AssignmentType string

const (
	AssignmentPrimary AssignmentType = "primary"
	AssignmentBackup  AssignmentType = "backup"
)

// Valid reports whether t is a known role
func (t AssignmentType) Valid() bool {
	return t == AssignmentPrimary || t == AssignmentBackup
}

// Assignment binds one crew member to one shift on one date (YYYY-MM-DD)
type Assignment struct {
	Date    string         `json:"date"`
	ShiftID string         `json:"shiftId"`
	CrewID  string         `json:"crewId"`
	Type    AssignmentType `json:"type"`
}

// Key composite (date, shift, crew) identity
func (a Assignment) Key() string {
	return a.Date + "|" + a.ShiftID + "|" + a.CrewID
}

// DateLayout calendar date format used for assignments
const DateLayout = "2006-01-02"
