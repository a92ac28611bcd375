// Package roster validates crew assignments and owns bulk per-date writes.
package roster

import (
	"context"
	"errors"
	"fmt"

	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/apperr"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"
)

// CrewLookup crew roster read access
type CrewLookup interface {
	GetCrew(ctx context.Context, id string) (*models.CrewMember, error)
}

// ShiftLookup shift catalog read access
type ShiftLookup interface {
	GetShift(ctx context.Context, id string) (*models.Shift, error)
}

// AssignmentLookup persisted assignment read access
type AssignmentLookup interface {
	ListByDate(ctx context.Context, date string) ([]models.Assignment, error)
	ListByCrew(ctx context.Context, crewID, from, to string) ([]models.Assignment, error)
}

// Availability result of a single check. Validation failures are data, not errors.
type Availability struct {
	IsAvailable bool                `json:"isAvailable"`
	Reason      string              `json:"reason,omitempty"`
	Conflicts   []models.Assignment `json:"conflicts,omitempty"`
}

// Candidate prospective assignment for a batch check
type Candidate struct {
	CrewID  string `json:"crewId"`
	Date    string `json:"date"`
	ShiftID string `json:"shiftId"`
}

// Key batch result key
func (c Candidate) Key() string {
	return c.CrewID + "|" + c.Date + "|" + c.ShiftID
}

// AvailabilityValidator checks a crew member against the persisted roster
type AvailabilityValidator struct {
	crew        CrewLookup
	shifts      ShiftLookup
	assignments AssignmentLookup
}

func NewAvailabilityValidator(crew CrewLookup, shifts ShiftLookup, assignments AssignmentLookup) *AvailabilityValidator {
	return &AvailabilityValidator{crew: crew, shifts: shifts, assignments: assignments}
}

// CheckAvailability runs, in order: crew exists and is not on leave; no
// assignment for the same (date, shift); no assignment on another shift that
// day. The first failure wins.
func (v *AvailabilityValidator) CheckAvailability(ctx context.Context, crewID, date, shiftID string) (*Availability, error) {
	member, err := v.crew.GetCrew(ctx, crewID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return &Availability{Reason: "Crew member not found"}, nil
		}
		return nil, fmt.Errorf("load crew member: %w", err)
	}
	if models.NormalizeCrewStatus(string(member.Status)) == models.CrewOnLeave {
		return &Availability{Reason: fmt.Sprintf("%s is currently on leave", member.Name)}, nil
	}

	existing, err := v.assignments.ListByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("load assignments for %s: %w", date, err)
	}

	var same, other []models.Assignment
	for _, a := range existing {
		if a.CrewID != crewID {
			continue
		}
		if a.ShiftID == shiftID {
			same = append(same, a)
		} else {
			other = append(other, a)
		}
	}

	if len(same) > 0 {
		return &Availability{
			Reason:    fmt.Sprintf("%s is already assigned to %s shift on this date", member.Name, v.shiftName(ctx, shiftID)),
			Conflicts: same,
		}, nil
	}
	if len(other) > 0 {
		return &Availability{
			Reason:    fmt.Sprintf("%s has conflicting assignment on %s shift", member.Name, v.shiftName(ctx, other[0].ShiftID)),
			Conflicts: other,
		}, nil
	}
	return &Availability{IsAvailable: true}, nil
}

// ValidateAssignment fails with *apperr.AvailabilityConflictError when unavailable
func (v *AvailabilityValidator) ValidateAssignment(ctx context.Context, crewID, date, shiftID string) error {
	res, err := v.CheckAvailability(ctx, crewID, date, shiftID)
	if err != nil {
		return err
	}
	if res.IsAvailable {
		return nil
	}
	conflict := &apperr.AvailabilityConflictError{Reason: res.Reason}
	for _, a := range res.Conflicts {
		conflict.Conflicts = append(conflict.Conflicts, apperr.ConflictRef{
			Date: a.Date, ShiftID: a.ShiftID, CrewID: a.CrewID, Type: string(a.Type),
		})
	}
	return conflict
}

// ValidateSet checks a full replacement set for one date on its own terms:
// nobody on leave, nobody on two different shifts. Rows already stored for
// the date are ignored since the set replaces them. Unknown crew pass.
func (v *AvailabilityValidator) ValidateSet(ctx context.Context, date string, set []models.Assignment) error {
	first := map[string]models.Assignment{}
	checked := map[string]bool{}
	for _, a := range set {
		if !checked[a.CrewID] {
			checked[a.CrewID] = true
			member, err := v.crew.GetCrew(ctx, a.CrewID)
			switch {
			case errors.Is(err, apperr.ErrNotFound):
			case err != nil:
				return fmt.Errorf("load crew member: %w", err)
			case models.NormalizeCrewStatus(string(member.Status)) == models.CrewOnLeave:
				return &apperr.AvailabilityConflictError{
					Reason:    fmt.Sprintf("%s is currently on leave", member.Name),
					Conflicts: []apperr.ConflictRef{{Date: date, ShiftID: a.ShiftID, CrewID: a.CrewID, Type: string(a.Type)}},
				}
			}
		}

		prev, ok := first[a.CrewID]
		if !ok {
			first[a.CrewID] = a
			continue
		}
		if prev.ShiftID == a.ShiftID {
			continue
		}
		return &apperr.AvailabilityConflictError{
			Reason:    fmt.Sprintf("%s has conflicting assignment on %s shift", v.crewName(ctx, a.CrewID), v.shiftName(ctx, prev.ShiftID)),
			Conflicts: []apperr.ConflictRef{{Date: date, ShiftID: prev.ShiftID, CrewID: prev.CrewID, Type: string(prev.Type)}},
		}
	}
	return nil
}

// CheckMany evaluates each candidate independently against persisted state.
// Candidates do not see each other.
func (v *AvailabilityValidator) CheckMany(ctx context.Context, candidates []Candidate) (map[string]*Availability, error) {
	out := make(map[string]*Availability, len(candidates))
	for _, c := range candidates {
		res, err := v.CheckAvailability(ctx, c.CrewID, c.Date, c.ShiftID)
		if err != nil {
			return nil, err
		}
		out[c.Key()] = res
	}
	return out, nil
}

// Workload assignment counts for one crew member over [from, to]
type Workload struct {
	CrewID           string   `json:"crewId"`
	TotalAssignments int      `json:"totalAssignments"`
	PrimaryShifts    int      `json:"primaryShifts"`
	BackupShifts     int      `json:"backupShifts"`
	Dates            []string `json:"dates"`
}

// Workload summarises a crew member's assignments in a date range
func (v *AvailabilityValidator) Workload(ctx context.Context, crewID, from, to string) (*Workload, error) {
	list, err := v.assignments.ListByCrew(ctx, crewID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load workload for %s: %w", crewID, err)
	}
	w := &Workload{CrewID: crewID, Dates: []string{}}
	seen := map[string]bool{}
	for _, a := range list {
		w.TotalAssignments++
		switch a.Type {
		case models.AssignmentPrimary:
			w.PrimaryShifts++
		case models.AssignmentBackup:
			w.BackupShifts++
		}
		if !seen[a.Date] {
			seen[a.Date] = true
			w.Dates = append(w.Dates, a.Date)
		}
	}
	return w, nil
}

func (v *AvailabilityValidator) crewName(ctx context.Context, id string) string {
	m, err := v.crew.GetCrew(ctx, id)
	if err != nil || m.Name == "" {
		return id
	}
	return m.Name
}

// shiftName falls back to the id when the shift is unknown
func (v *AvailabilityValidator) shiftName(ctx context.Context, id string) string {
	if v.shifts == nil {
		return id
	}
	s, err := v.shifts.GetShift(ctx, id)
	if err != nil || s.Name == "" {
		return id
	}
	return s.Name
}
