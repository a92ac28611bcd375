package duty

import (
	"time"

	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"
)

// Snapshot inputs for one resolution. Assignments must cover today and tomorrow.
type Snapshot struct {
	Shifts      []models.Shift
	Assignments []models.Assignment
	Crew        []models.CrewMember
}

// Resolver derives duty status from a snapshot. It is pure and never fails;
// missing data yields empty lists.
type Resolver struct {
	// Department only crew of this department participate; empty admits any
	// crew with a department set
	Department string
}

func NewResolver(department string) *Resolver {
	return &Resolver{Department: department}
}

// Resolve computes {onDuty, backup, nextShift, nextBackup} at now.
// now must already be in vessel local time.
func (r *Resolver) Resolve(now time.Time, snap Snapshot) *models.DutyStatus {
	status := &models.DutyStatus{
		At:         now,
		OnDuty:     []models.DutyMember{},
		Backup:     []models.DutyMember{},
		NextShift:  []models.DutyMember{},
		NextBackup: []models.DutyMember{},
	}

	crew := r.eligible(snap.Crew)
	index := indexAssignments(snap.Assignments)
	today := now.Format(models.DateLayout)
	minute := MinuteOfDay(now)

	catalog := NewCatalog(snap.Shifts)
	current, hasCurrent := catalog.Current(minute)

	placed := map[string]bool{}
	if hasCurrent {
		status.CurrentShiftID = current.ID
		for _, c := range crew {
			if index[assignmentKey(today, current.ID, c.ID)] == models.AssignmentPrimary {
				status.OnDuty = append(status.OnDuty, models.DutyMember{CrewMember: c, ShiftLabel: current.Name})
				placed[c.ID] = true
			}
		}
	}

	// manual on-duty overrides, never twice
	for _, c := range crew {
		if c.Status == models.CrewOnDuty && !placed[c.ID] {
			status.OnDuty = append(status.OnDuty, models.DutyMember{CrewMember: c, ShiftLabel: models.EmergencyShiftLabel})
			placed[c.ID] = true
		}
	}

	if hasCurrent {
		for _, c := range crew {
			if placed[c.ID] {
				continue
			}
			if index[assignmentKey(today, current.ID, c.ID)] == models.AssignmentBackup {
				status.Backup = append(status.Backup, models.DutyMember{CrewMember: c, ShiftLabel: current.Name})
			}
		}
	}

	next, tomorrow, hasNext := catalog.Next(minute, current.ID)
	if !hasNext {
		return status
	}
	nextDate := today
	if tomorrow {
		nextDate = now.AddDate(0, 0, 1).Format(models.DateLayout)
	}
	status.NextShiftID = next.ID
	status.NextShiftDate = nextDate
	for _, c := range crew {
		switch index[assignmentKey(nextDate, next.ID, c.ID)] {
		case models.AssignmentPrimary:
			status.NextShift = append(status.NextShift, models.DutyMember{CrewMember: c, ShiftLabel: next.Name})
		case models.AssignmentBackup:
			status.NextBackup = append(status.NextBackup, models.DutyMember{CrewMember: c, ShiftLabel: next.Name})
		}
	}
	return status
}

// eligible crew in roster order: department matches and not on leave
func (r *Resolver) eligible(all []models.CrewMember) []models.CrewMember {
	out := make([]models.CrewMember, 0, len(all))
	seen := make(map[string]bool, len(all))
	for _, c := range all {
		if c.Department == "" || seen[c.ID] {
			continue
		}
		if r.Department != "" && c.Department != r.Department {
			continue
		}
		c.Status = models.NormalizeCrewStatus(string(c.Status))
		if c.Status == models.CrewOnLeave {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}

func assignmentKey(date, shiftID, crewID string) string {
	return date + "|" + shiftID + "|" + crewID
}

// indexAssignments keyed by (date, shift, crew); a primary role wins over backup
func indexAssignments(list []models.Assignment) map[string]models.AssignmentType {
	idx := make(map[string]models.AssignmentType, len(list))
	for _, a := range list {
		k := a.Key()
		if idx[k] == models.AssignmentPrimary {
			continue
		}
		idx[k] = a.Type
	}
	return idx
}
