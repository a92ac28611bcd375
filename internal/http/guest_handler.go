package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/guest"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"

	"go.uber.org/zap"
)

// GuestStatusUpdater validated guest status changes
type GuestStatusUpdater interface {
	UpdateStatus(ctx context.Context, guestID string, to models.GuestStatus, now time.Time) (*models.Guest, error)
}

type GuestHandler struct {
	guests GuestStatusUpdater
	logger *zap.Logger
	now    func() time.Time
}

func NewGuestHandler(guests GuestStatusUpdater, logger *zap.Logger) *GuestHandler {
	return &GuestHandler{guests: guests, logger: logger, now: time.Now}
}

// UpdateStatus PUT /guests/{id}/status {"status": "onboard"}
func (h *GuestHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status models.GuestStatus `json:"status"`
	}
	if err := readBodyJSON(r, maxBody, &body); err != nil || body.Status == "" {
		badRequest(w, "status is required")
		return
	}
	g, err := h.guests.UpdateStatus(r.Context(), r.PathValue("id"), body.Status, h.now())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(g))
}

type transitionOption struct {
	To          models.GuestStatus `json:"to"`
	Action      string             `json:"action"`
	Description string             `json:"description"`
}

// Transitions GET /guests/transitions?from=expected lists the moves available from a status
func (h *GuestHandler) Transitions(w http.ResponseWriter, r *http.Request) {
	from := models.GuestStatus(r.URL.Query().Get("from"))
	if !guest.Valid(from) {
		badRequest(w, "from must be a guest status")
		return
	}
	opts := []transitionOption{}
	for _, to := range guest.AllowedTransitions(from) {
		opts = append(opts, transitionOption{
			To:          to,
			Action:      guest.TransitionAction(from, to),
			Description: guest.Description(to),
		})
	}
	writeJSON(w, http.StatusOK, Ok(opts))
}
