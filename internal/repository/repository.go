package repository

import (
	"context"
	"time"

	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"
)

// ShiftRepository shift catalog storage
type ShiftRepository interface {
	ListShifts(ctx context.Context) ([]models.Shift, error)
	GetShift(ctx context.Context, id string) (*models.Shift, error)
	ReplaceShifts(ctx context.Context, shifts []models.Shift) error
}

// AssignmentRepository per-date assignment storage
type AssignmentRepository interface {
	ListByDate(ctx context.Context, date string) ([]models.Assignment, error)
	ListByDates(ctx context.Context, dates []string) ([]models.Assignment, error)
	// ListRange inclusive [from, to]
	ListRange(ctx context.Context, from, to string) ([]models.Assignment, error)
	ListByCrew(ctx context.Context, crewID, from, to string) ([]models.Assignment, error)
	// ReplaceByDate deletes every assignment of date then inserts list, atomically
	ReplaceByDate(ctx context.Context, date string, list []models.Assignment) error
}

// CrewRepository crew roster storage
type CrewRepository interface {
	ListCrew(ctx context.Context) ([]models.CrewMember, error)
	GetCrew(ctx context.Context, id string) (*models.CrewMember, error)
	UpdateCrewStatus(ctx context.Context, id string, status models.CrewStatus) error
}

// GuestRepository guest storage
type GuestRepository interface {
	GetGuest(ctx context.Context, id string) (*models.Guest, error)
	// FindByLocation guest currently placed at locationID (onboard first, then expected)
	FindByLocation(ctx context.Context, locationID string) (*models.Guest, error)
	UpdateGuestStatus(ctx context.Context, id string, status models.GuestStatus) error
}

// LocationRepository cabin/area lookup
type LocationRepository interface {
	GetLocation(ctx context.Context, id string) (*models.Location, error)
}

// ServiceRequestRepository active service requests
type ServiceRequestRepository interface {
	InsertRequest(ctx context.Context, r *models.ServiceRequest) error
	// UpdateRequest writes r only while the stored status is one of from.
	// A mismatch returns apperr.ErrConflict.
	UpdateRequest(ctx context.Context, r *models.ServiceRequest, from ...models.RequestStatus) error
	DeleteRequest(ctx context.Context, id string) error
	DeleteAllRequests(ctx context.Context) error
	ListActive(ctx context.Context) ([]models.ServiceRequest, error)
}

// HistoryFilter narrows ListHistory; zero values match everything
type HistoryFilter struct {
	From        time.Time
	To          time.Time
	CompletedBy string
}

// Match reports whether e passes the filter
func (f HistoryFilter) Match(e models.HistoryEntry) bool {
	if !f.From.IsZero() && e.CompletedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.CompletedAt.After(f.To) {
		return false
	}
	if f.CompletedBy != "" && e.CompletedBy != f.CompletedBy {
		return false
	}
	return true
}

// HistoryRepository append-only completion log
type HistoryRepository interface {
	AppendHistory(ctx context.Context, e models.HistoryEntry) error
	ListHistory(ctx context.Context, filter HistoryFilter) ([]models.HistoryEntry, error)
	ClearHistory(ctx context.Context) error
}
