package roster

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/apperr"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"

	"go.uber.org/zap"
)

// AssignmentRepo persistence used by the store
type AssignmentRepo interface {
	ListByDate(ctx context.Context, date string) ([]models.Assignment, error)
	ListRange(ctx context.Context, from, to string) ([]models.Assignment, error)
	ReplaceByDate(ctx context.Context, date string, list []models.Assignment) error
}

// Invalidator receives the invalidate-on-write signal (the duty service)
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// Publisher realtime fan-out
type Publisher interface {
	Publish(ctx context.Context, ev models.Event) error
}

// AssignmentStore bulk full-replace writes, serialized per date
type AssignmentStore struct {
	repo        AssignmentRepo
	validator   *AvailabilityValidator
	invalidator Invalidator
	publisher   Publisher
	logger      *zap.Logger
	locks       dateLocks
}

// NewAssignmentStore validator may be nil, leaving only structural checks
func NewAssignmentStore(repo AssignmentRepo, validator *AvailabilityValidator, invalidator Invalidator, publisher Publisher, logger *zap.Logger) *AssignmentStore {
	return &AssignmentStore{
		repo:        repo,
		validator:   validator,
		invalidator: invalidator,
		publisher:   publisher,
		logger:      logger,
		locks:       dateLocks{locks: map[string]*dateLock{}},
	}
}

func (s *AssignmentStore) ListByDate(ctx context.Context, date string) ([]models.Assignment, error) {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return nil, apperr.Invalid("invalid date %q", date)
	}
	return s.repo.ListByDate(ctx, date)
}

func (s *AssignmentStore) ListRange(ctx context.Context, from, to string) ([]models.Assignment, error) {
	for _, d := range []string{from, to} {
		if _, err := time.Parse(models.DateLayout, d); err != nil {
			return nil, apperr.Invalid("invalid date %q", d)
		}
	}
	if from > to {
		return nil, apperr.Invalid("range start %s after end %s", from, to)
	}
	return s.repo.ListRange(ctx, from, to)
}

// ReplaceDate deletes every assignment of date and inserts set. Identical
// entries are collapsed. A crew member holding two roles on one shift, sitting
// on two shifts, or on leave is rejected. Replacing with the same set twice
// leaves the same state.
func (s *AssignmentStore) ReplaceDate(ctx context.Context, date string, set []models.Assignment) ([]models.Assignment, error) {
	clean, err := normalize(date, set)
	if err != nil {
		return nil, err
	}
	if s.validator != nil {
		if err := s.validator.ValidateSet(ctx, date, clean); err != nil {
			return nil, err
		}
	}

	unlock := s.locks.lock(date)
	err = s.repo.ReplaceByDate(ctx, date, clean)
	unlock()
	if err != nil {
		return nil, fmt.Errorf("replace assignments for %s: %w", date, err)
	}

	s.logger.Info("Assignments replaced", zap.String("date", date), zap.Int("count", len(clean)))
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}
	if s.publisher != nil {
		ev := models.Event{Type: models.EventAssignments, Date: date, At: time.Now()}
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.logger.Warn("Failed to publish assignment change", zap.String("date", date), zap.Error(err))
		}
	}
	return clean, nil
}

func normalize(date string, set []models.Assignment) ([]models.Assignment, error) {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return nil, apperr.Invalid("invalid date %q", date)
	}
	out := make([]models.Assignment, 0, len(set))
	roles := map[string]models.AssignmentType{} // shift|crew -> role
	for _, a := range set {
		if a.Date == "" {
			a.Date = date
		}
		if a.Date != date {
			return nil, apperr.Invalid("assignment dated %s in replace for %s", a.Date, date)
		}
		if a.ShiftID == "" || a.CrewID == "" {
			return nil, apperr.Invalid("assignment requires shiftId and crewId")
		}
		if !a.Type.Valid() {
			return nil, apperr.Invalid("unknown assignment type %q", a.Type)
		}
		k := a.ShiftID + "|" + a.CrewID
		if prev, ok := roles[k]; ok {
			if prev == a.Type {
				continue
			}
			return nil, &apperr.AvailabilityConflictError{
				Reason: fmt.Sprintf("crew member %s cannot be both primary and backup on shift %s", a.CrewID, a.ShiftID),
				Conflicts: []apperr.ConflictRef{
					{Date: date, ShiftID: a.ShiftID, CrewID: a.CrewID, Type: string(prev)},
				},
			}
		}
		roles[k] = a.Type
		out = append(out, a)
	}
	return out, nil
}

type dateLock struct {
	sync.Mutex
	refs int
}

// dateLocks one mutex per date, dropped when unused
type dateLocks struct {
	mu    sync.Mutex
	locks map[string]*dateLock
}

func (d *dateLocks) lock(date string) func() {
	d.mu.Lock()
	l, ok := d.locks[date]
	if !ok {
		l = &dateLock{}
		d.locks[date] = l
	}
	l.refs++
	d.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		d.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(d.locks, date)
		}
		d.mu.Unlock()
	}
}
