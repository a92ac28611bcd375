package models

import "time"

// DutyStatus resolver snapshot at one instant
type DutyStatus struct {
	At             time.Time    `json:"at"`
	OnDuty         []DutyMember `json:"onDuty"`
	Backup         []DutyMember `json:"backup"`
	NextShift      []DutyMember `json:"nextShift"`
	NextBackup     []DutyMember `json:"nextBackup"`
	CurrentShiftID string       `json:"currentShiftId,omitempty"`
	NextShiftID    string       `json:"nextShiftId,omitempty"`
	NextShiftDate  string       `json:"nextShiftDate,omitempty"`
}

// SameCoverage compares everything except At
func (d *DutyStatus) SameCoverage(o *DutyStatus) bool {
	if d == nil || o == nil {
		return d == o
	}
	return d.CurrentShiftID == o.CurrentShiftID &&
		d.NextShiftID == o.NextShiftID &&
		d.NextShiftDate == o.NextShiftDate &&
		sameMembers(d.OnDuty, o.OnDuty) &&
		sameMembers(d.Backup, o.Backup) &&
		sameMembers(d.NextShift, o.NextShift) &&
		sameMembers(d.NextBackup, o.NextBackup)
}

func sameMembers(a, b []DutyMember) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].ShiftLabel != b[i].ShiftLabel || a[i].Status != b[i].Status {
			return false
		}
	}
	return true
}
