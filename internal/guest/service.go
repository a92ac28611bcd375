package guest

import (
	"context"
	"fmt"
	"time"

	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/apperr"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"

	"go.uber.org/zap"
)

// Repository guest persistence
type Repository interface {
	GetGuest(ctx context.Context, id string) (*models.Guest, error)
	UpdateGuestStatus(ctx context.Context, id string, status models.GuestStatus) error
}

// Service applies validated guest status changes
type Service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// UpdateStatus validates the edge plus the temporal check-in/check-out rules, then persists
func (s *Service) UpdateStatus(ctx context.Context, guestID string, to models.GuestStatus, now time.Time) (*models.Guest, error) {
	if !Valid(to) {
		return nil, apperr.Invalid("unknown guest status %q", to)
	}
	g, err := s.repo.GetGuest(ctx, guestID)
	if err != nil {
		return nil, err
	}
	if g.Status == to {
		return g, nil
	}
	if err := ValidateTransition(g.Status, to, g.Label()); err != nil {
		return nil, err
	}

	switch TransitionAction(g.Status, to) {
	case "check-in":
		if err := ValidateCheckIn(g.CheckInDate, g.CheckOutDate, now); err != nil {
			return nil, err
		}
	case "check-out":
		if err := ValidateCheckOut(g.CheckInDate, now); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateGuestStatus(ctx, guestID, to); err != nil {
		return nil, fmt.Errorf("update guest %s: %w", guestID, err)
	}
	s.logger.Info("Guest status changed",
		zap.String("guest_id", guestID),
		zap.String("from", string(g.Status)),
		zap.String("to", string(to)),
	)
	g.Status = to
	return g, nil
}
