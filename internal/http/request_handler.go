package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/export"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/repository"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/request"

	"go.uber.org/zap"
)

// Requests the service request lifecycle
type Requests interface {
	Create(ctx context.Context, in request.CreateInput) (*models.ServiceRequest, error)
	Accept(ctx context.Context, id, crewID string) (*models.ServiceRequest, error)
	Delegate(ctx context.Context, id, toCrewID string) (*models.ServiceRequest, error)
	Complete(ctx context.Context, id, completedBy string) (*models.ServiceRequest, error)
	Cancel(ctx context.Context, id string) (*models.ServiceRequest, error)
	Active() []models.ServiceRequest
	History(ctx context.Context, filter repository.HistoryFilter) ([]models.HistoryEntry, error)
	ClearHistory(ctx context.Context) error
	ClearAll(ctx context.Context) (int, error)
}

type RequestHandler struct {
	requests Requests
	loc      *time.Location
	logger   *zap.Logger
}

func NewRequestHandler(requests Requests, loc *time.Location, logger *zap.Logger) *RequestHandler {
	if loc == nil {
		loc = time.Local
	}
	return &RequestHandler{requests: requests, loc: loc, logger: logger}
}

// List GET /service-requests[?status=pending]
func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	active := h.requests.Active()
	if status := r.URL.Query().Get("status"); status != "" {
		filtered := make([]models.ServiceRequest, 0, len(active))
		for _, req := range active {
			if string(req.Status) == status {
				filtered = append(filtered, req)
			}
		}
		active = filtered
	}
	writeJSON(w, http.StatusOK, Ok(active))
}

// Create POST /service-requests (manual trigger)
func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in request.CreateInput
	if err := readBodyJSON(r, maxBody, &in); err != nil {
		badRequest(w, "invalid body")
		return
	}
	req, err := h.requests.Create(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(req))
}

type crewBody struct {
	CrewID      string `json:"crewId"`
	ToCrewID    string `json:"toCrewId"`
	CompletedBy string `json:"completedBy"`
}

// Accept PUT /service-requests/{id}/accept {"crewId": "..."}
func (h *RequestHandler) Accept(w http.ResponseWriter, r *http.Request) {
	var body crewBody
	if err := readBodyJSON(r, maxBody, &body); err != nil {
		badRequest(w, "invalid body")
		return
	}
	h.respond(w, func() (*models.ServiceRequest, error) {
		return h.requests.Accept(r.Context(), r.PathValue("id"), body.CrewID)
	})
}

// Delegate PUT /service-requests/{id}/delegate {"toCrewId": "..."}
func (h *RequestHandler) Delegate(w http.ResponseWriter, r *http.Request) {
	var body crewBody
	if err := readBodyJSON(r, maxBody, &body); err != nil {
		badRequest(w, "invalid body")
		return
	}
	to := body.ToCrewID
	if to == "" {
		to = body.CrewID
	}
	h.respond(w, func() (*models.ServiceRequest, error) {
		return h.requests.Delegate(r.Context(), r.PathValue("id"), to)
	})
}

// Complete PUT /service-requests/{id}/complete [{"completedBy": "..."}]
func (h *RequestHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var body crewBody
	if err := readBodyJSON(r, maxBody, &body); err != nil {
		badRequest(w, "invalid body")
		return
	}
	h.respond(w, func() (*models.ServiceRequest, error) {
		return h.requests.Complete(r.Context(), r.PathValue("id"), body.CompletedBy)
	})
}

func (h *RequestHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.respond(w, func() (*models.ServiceRequest, error) {
		return h.requests.Cancel(r.Context(), r.PathValue("id"))
	})
}

func (h *RequestHandler) respond(w http.ResponseWriter, fn func() (*models.ServiceRequest, error)) {
	req, err := fn()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(req))
}

// ClearAll DELETE /service-requests/clear-all
func (h *RequestHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.requests.ClearAll(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]int{"deleted": n}))
}

// History GET /service-requests/history?from=&to=&completedBy=
func (h *RequestHandler) History(w http.ResponseWriter, r *http.Request) {
	filter, err := h.historyFilter(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	entries, err := h.requests.History(r.Context(), filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(entries))
}

func (h *RequestHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.requests.ClearHistory(r.Context()); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]string{"message": "history cleared"}))
}

// ExportHistory GET /service-requests/history/export, same filters as History
func (h *RequestHandler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	filter, err := h.historyFilter(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	entries, err := h.requests.History(r.Context(), filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	data, err := export.HistoryWorkbook(entries, h.loc)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeXLSX(w, "service-history.xlsx", data)
}

// historyFilter dates are whole days in vessel time; to is inclusive
func (h *RequestHandler) historyFilter(r *http.Request) (repository.HistoryFilter, error) {
	q := r.URL.Query()
	f := repository.HistoryFilter{CompletedBy: q.Get("completedBy")}
	if v := q.Get("from"); v != "" {
		if err := parseDate("from", v); err != nil {
			return f, err
		}
		f.From, _ = time.ParseInLocation(models.DateLayout, v, h.loc)
	}
	if v := q.Get("to"); v != "" {
		if err := parseDate("to", v); err != nil {
			return f, err
		}
		day, _ := time.ParseInLocation(models.DateLayout, v, h.loc)
		f.To = day.Add(24*time.Hour - time.Nanosecond)
	}
	return f, nil
}
