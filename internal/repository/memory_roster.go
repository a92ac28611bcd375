package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/apperr"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"
)

// MemoryRosterRepo shifts, assignments and crew held in process.
// Used when DB is disabled or unreachable, and in tests.
type MemoryRosterRepo struct {
	mu sync.RWMutex

	shifts      []models.Shift
	assignments map[string][]models.Assignment // date -> assignments
	crew        []models.CrewMember
}

func NewMemoryRosterRepo() *MemoryRosterRepo {
	return &MemoryRosterRepo{
		assignments: map[string][]models.Assignment{},
	}
}

var (
	_ ShiftRepository      = (*MemoryRosterRepo)(nil)
	_ AssignmentRepository = (*MemoryRosterRepo)(nil)
	_ CrewRepository       = (*MemoryRosterRepo)(nil)
)

// ---- shifts ----

func (r *MemoryRosterRepo) ListShifts(_ context.Context) ([]models.Shift, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.Shift(nil), r.shifts...), nil
}

func (r *MemoryRosterRepo) GetShift(_ context.Context, id string) (*models.Shift, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.shifts {
		if s.ID == id {
			s := s
			return &s, nil
		}
	}
	return nil, apperr.NotFound("shift", id)
}

func (r *MemoryRosterRepo) ReplaceShifts(_ context.Context, shifts []models.Shift) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shifts = append([]models.Shift(nil), shifts...)
	return nil
}

// ---- assignments ----

func (r *MemoryRosterRepo) ListByDate(_ context.Context, date string) ([]models.Assignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.Assignment(nil), r.assignments[date]...), nil
}

func (r *MemoryRosterRepo) ListByDates(_ context.Context, dates []string) ([]models.Assignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Assignment
	for _, d := range dates {
		out = append(out, r.assignments[d]...)
	}
	return out, nil
}

func (r *MemoryRosterRepo) ListRange(_ context.Context, from, to string) ([]models.Assignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filterRange(from, to, ""), nil
}

func (r *MemoryRosterRepo) ListByCrew(_ context.Context, crewID, from, to string) ([]models.Assignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filterRange(from, to, crewID), nil
}

// filterRange dates compare lexically (YYYY-MM-DD); caller holds the lock
func (r *MemoryRosterRepo) filterRange(from, to, crewID string) []models.Assignment {
	dates := make([]string, 0, len(r.assignments))
	for d := range r.assignments {
		if (from == "" || d >= from) && (to == "" || d <= to) {
			dates = append(dates, d)
		}
	}
	sort.Strings(dates)
	var out []models.Assignment
	for _, d := range dates {
		for _, a := range r.assignments[d] {
			if crewID == "" || a.CrewID == crewID {
				out = append(out, a)
			}
		}
	}
	return out
}

func (r *MemoryRosterRepo) ReplaceByDate(_ context.Context, date string, list []models.Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(list) == 0 {
		delete(r.assignments, date)
		return nil
	}
	r.assignments[date] = append([]models.Assignment(nil), list...)
	return nil
}

// ---- crew ----

func (r *MemoryRosterRepo) ListCrew(_ context.Context) ([]models.CrewMember, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.CrewMember(nil), r.crew...), nil
}

func (r *MemoryRosterRepo) GetCrew(_ context.Context, id string) (*models.CrewMember, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.crew {
		if c.ID == id {
			c := c
			return &c, nil
		}
	}
	return nil, apperr.NotFound("crew member", id)
}

func (r *MemoryRosterRepo) UpdateCrewStatus(_ context.Context, id string, status models.CrewStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.crew {
		if r.crew[i].ID == id {
			r.crew[i].Status = status
			return nil
		}
	}
	return apperr.NotFound("crew member", id)
}

// PutCrew inserts or replaces a crew member (seeding, tests)
func (r *MemoryRosterRepo) PutCrew(members ...models.CrewMember) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range members {
		replaced := false
		for i := range r.crew {
			if r.crew[i].ID == m.ID {
				r.crew[i] = m
				replaced = true
				break
			}
		}
		if !replaced {
			r.crew = append(r.crew, m)
		}
	}
}
