package request

import (
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/apperr"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"
)

var transitions = map[models.RequestStatus][]models.RequestStatus{
	models.StatusPending:   {models.StatusAccepted, models.StatusDelegated, models.StatusCancelled},
	models.StatusAccepted:  {models.StatusCompleted},
	models.StatusDelegated: {models.StatusCompleted},
	models.StatusCompleted: nil,
	models.StatusCancelled: nil,
}

// CanTransition reports whether from -> to is in the table. There are no
// same-state no-ops: accepting twice is rejected.
func CanTransition(from, to models.RequestStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Allowed next statuses from from
func Allowed(from models.RequestStatus) []models.RequestStatus {
	return append([]models.RequestStatus(nil), transitions[from]...)
}

func invalidTransition(req *models.ServiceRequest, to models.RequestStatus, cause error) error {
	allowed := make([]string, 0, len(transitions[req.Status]))
	for _, s := range transitions[req.Status] {
		allowed = append(allowed, string(s))
	}
	return &apperr.InvalidTransitionError{
		Entity:  "service request",
		Label:   req.ID,
		From:    string(req.Status),
		To:      string(to),
		Allowed: allowed,
		Err:     cause,
	}
}

// rank orders statuses so late duplicate events never move a request backwards
func rank(s models.RequestStatus) int {
	switch s {
	case models.StatusPending:
		return 0
	case models.StatusAccepted, models.StatusDelegated:
		return 1
	default:
		return 2
	}
}
