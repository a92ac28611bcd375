package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/apperr"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/duty"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/repository"

	"go.uber.org/zap"
)

// DutyReader duty status computation plus the invalidate-on-write hook
type DutyReader interface {
	Current(ctx context.Context) (*models.DutyStatus, error)
	At(ctx context.Context, at time.Time) (*models.DutyStatus, error)
	Invalidate(ctx context.Context)
}

type DutyHandler struct {
	duty   DutyReader
	shifts repository.ShiftRepository
	crew   repository.CrewRepository
	logger *zap.Logger
}

func NewDutyHandler(d DutyReader, shifts repository.ShiftRepository, crew repository.CrewRepository, logger *zap.Logger) *DutyHandler {
	return &DutyHandler{duty: d, shifts: shifts, crew: crew, logger: logger}
}

// GetStatus GET /duty/status[?at=RFC3339]
func (h *DutyHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	var (
		status *models.DutyStatus
		err    error
	)
	if at := r.URL.Query().Get("at"); at != "" {
		t, perr := time.Parse(time.RFC3339, at)
		if perr != nil {
			badRequest(w, "at must be RFC3339")
			return
		}
		status, err = h.duty.At(r.Context(), t)
	} else {
		status, err = h.duty.Current(r.Context())
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(status))
}

func (h *DutyHandler) ListShifts(w http.ResponseWriter, r *http.Request) {
	shifts, err := h.shifts.ListShifts(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(shifts))
}

// ReplaceShifts PUT /shifts replaces the whole catalog
func (h *DutyHandler) ReplaceShifts(w http.ResponseWriter, r *http.Request) {
	var shifts []models.Shift
	if err := readBodyJSON(r, maxBody, &shifts); err != nil {
		badRequest(w, "invalid body")
		return
	}
	seen := make(map[string]bool, len(shifts))
	for _, s := range shifts {
		if s.ID == "" {
			writeError(w, h.logger, apperr.Invalid("shift id is required"))
			return
		}
		if seen[s.ID] {
			writeError(w, h.logger, apperr.Invalid("duplicate shift id %q", s.ID))
			return
		}
		seen[s.ID] = true
		if _, err := duty.NewShiftWindow(s.StartTime, s.EndTime); err != nil {
			writeError(w, h.logger, apperr.Invalid("shift %s: %v", s.ID, err))
			return
		}
	}
	if err := h.shifts.ReplaceShifts(r.Context(), shifts); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.duty.Invalidate(r.Context())
	writeJSON(w, http.StatusOK, Ok(shifts))
}

func (h *DutyHandler) ListCrew(w http.ResponseWriter, r *http.Request) {
	crew, err := h.crew.ListCrew(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(crew))
}

// UpdateCrewStatus PUT /crew/{id}/status {"status": "on-duty"}. on-duty is
// the manual emergency override; on-leave removes the member everywhere.
func (h *DutyHandler) UpdateCrewStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var body struct {
		Status string `json:"status"`
	}
	if err := readBodyJSON(r, maxBody, &body); err != nil || body.Status == "" {
		badRequest(w, "status is required")
		return
	}
	switch body.Status {
	case "on-duty", "on_duty", "off-duty", "off_duty", "on-leave", "on_leave":
	default:
		writeError(w, h.logger, apperr.Invalid("unknown crew status %q", body.Status))
		return
	}
	status := models.NormalizeCrewStatus(body.Status)
	if err := h.crew.UpdateCrewStatus(r.Context(), id, status); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.duty.Invalidate(r.Context())

	member, err := h.crew.GetCrew(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(member))
}
