package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/apperr"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/export"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/repository"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/roster"

	"go.uber.org/zap"
)

// Assignments per-date roster reads and bulk writes
type Assignments interface {
	ListByDate(ctx context.Context, date string) ([]models.Assignment, error)
	ListRange(ctx context.Context, from, to string) ([]models.Assignment, error)
	ReplaceDate(ctx context.Context, date string, set []models.Assignment) ([]models.Assignment, error)
}

// Availability crew availability checks
type Availability interface {
	CheckAvailability(ctx context.Context, crewID, date, shiftID string) (*roster.Availability, error)
	CheckMany(ctx context.Context, candidates []roster.Candidate) (map[string]*roster.Availability, error)
	Workload(ctx context.Context, crewID, from, to string) (*roster.Workload, error)
}

type RosterHandler struct {
	assignments  Assignments
	availability Availability
	shifts       repository.ShiftRepository
	crew         repository.CrewRepository
	logger       *zap.Logger
	// now picks the default date when none is given
	now func() time.Time
}

func NewRosterHandler(a Assignments, v Availability, shifts repository.ShiftRepository, crew repository.CrewRepository, loc *time.Location, logger *zap.Logger) *RosterHandler {
	if loc == nil {
		loc = time.Local
	}
	return &RosterHandler{
		assignments:  a,
		availability: v,
		shifts:       shifts,
		crew:         crew,
		logger:       logger,
		now:          func() time.Time { return time.Now().In(loc) },
	}
}

// List GET /assignments?date= or ?from=&to=
func (h *RosterHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.query(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}

// Export GET /assignments/export?from=&to= as xlsx
func (h *RosterHandler) Export(w http.ResponseWriter, r *http.Request) {
	list, err := h.query(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	shifts, err := h.shifts.ListShifts(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	crew, err := h.crew.ListCrew(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	data, err := export.RosterWorkbook(list, shifts, crew)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeXLSX(w, "duty-roster.xlsx", data)
}

func (h *RosterHandler) query(r *http.Request) ([]models.Assignment, error) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if from != "" || to != "" {
		if from == "" || to == "" {
			return nil, apperr.Invalid("from and to must be given together")
		}
		return h.assignments.ListRange(r.Context(), from, to)
	}
	date := q.Get("date")
	if date == "" {
		date = h.now().Format(models.DateLayout)
	}
	return h.assignments.ListByDate(r.Context(), date)
}

// ReplaceByDate PUT /assignments/by-date/{date} with the full set for that date
func (h *RosterHandler) ReplaceByDate(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	var set []models.Assignment
	if err := readBodyJSON(r, maxBody, &set); err != nil {
		badRequest(w, "invalid body")
		return
	}
	saved, err := h.assignments.ReplaceDate(r.Context(), date, set)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(saved))
}

// CheckAvailability POST /assignments/availability {crewId, date, shiftId}
func (h *RosterHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	var c roster.Candidate
	if err := readBodyJSON(r, maxBody, &c); err != nil {
		badRequest(w, "invalid body")
		return
	}
	if c.CrewID == "" || c.ShiftID == "" {
		badRequest(w, "crewId and shiftId are required")
		return
	}
	if err := parseDate("date", c.Date); err != nil || c.Date == "" {
		badRequest(w, "date must be YYYY-MM-DD")
		return
	}
	res, err := h.availability.CheckAvailability(r.Context(), c.CrewID, c.Date, c.ShiftID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

// CheckAvailabilityBatch POST /assignments/availability/batch [{crewId, date, shiftId}, ...]
func (h *RosterHandler) CheckAvailabilityBatch(w http.ResponseWriter, r *http.Request) {
	var candidates []roster.Candidate
	if err := readBodyJSON(r, maxBody, &candidates); err != nil {
		badRequest(w, "invalid body")
		return
	}
	res, err := h.availability.CheckMany(r.Context(), candidates)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

// Workload GET /crew/{id}/workload?from=&to=
func (h *RosterHandler) Workload(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if from == "" || to == "" {
		badRequest(w, "from and to are required")
		return
	}
	if err := parseDate("from", from); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := parseDate("to", to); err != nil {
		writeError(w, h.logger, err)
		return
	}
	res, err := h.availability.Workload(r.Context(), r.PathValue("id"), from, to)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}
