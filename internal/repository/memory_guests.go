package repository

import (
	"context"
	"sync"

	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/apperr"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"
)

// MemoryGuestsRepo guests and locations held in process
type MemoryGuestsRepo struct {
	mu        sync.RWMutex
	guests    map[string]models.Guest
	order     []string
	locations map[string]models.Location
}

func NewMemoryGuestsRepo() *MemoryGuestsRepo {
	return &MemoryGuestsRepo{
		guests:    map[string]models.Guest{},
		locations: map[string]models.Location{},
	}
}

var (
	_ GuestRepository    = (*MemoryGuestsRepo)(nil)
	_ LocationRepository = (*MemoryGuestsRepo)(nil)
)

func (r *MemoryGuestsRepo) GetGuest(_ context.Context, id string) (*models.Guest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.guests[id]
	if !ok {
		return nil, apperr.NotFound("guest", id)
	}
	return &g, nil
}

func (r *MemoryGuestsRepo) FindByLocation(_ context.Context, locationID string) (*models.Guest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var expected *models.Guest
	for _, id := range r.order {
		g := r.guests[id]
		if g.LocationID == nil || *g.LocationID != locationID {
			continue
		}
		switch g.Status {
		case models.GuestOnboard:
			return &g, nil
		case models.GuestExpected:
			if expected == nil {
				expected = &g
			}
		}
	}
	if expected != nil {
		return expected, nil
	}
	return nil, apperr.NotFound("guest at location", locationID)
}

func (r *MemoryGuestsRepo) UpdateGuestStatus(_ context.Context, id string, status models.GuestStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.guests[id]
	if !ok {
		return apperr.NotFound("guest", id)
	}
	g.Status = status
	r.guests[id] = g
	return nil
}

func (r *MemoryGuestsRepo) GetLocation(_ context.Context, id string) (*models.Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.locations[id]
	if !ok {
		return nil, apperr.NotFound("location", id)
	}
	return &l, nil
}

// PutGuest inserts or replaces a guest (seeding, tests)
func (r *MemoryGuestsRepo) PutGuest(g models.Guest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.guests[g.ID]; !ok {
		r.order = append(r.order, g.ID)
	}
	r.guests[g.ID] = g
}

// PutLocation inserts or replaces a location
func (r *MemoryGuestsRepo) PutLocation(l models.Location) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locations[l.ID] = l
}
