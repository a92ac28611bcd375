// Package httpapi exposes duty, roster, guest and service request
// operations over JSON HTTP.
package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router method-aware routes on the standard ServeMux
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler mounts an http.Handler (metrics, websocket)
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

const prefix = "/api/v1"

// RegisterDutyRoutes duty status, shift catalog and crew overrides
func (r *Router) RegisterDutyRoutes(h *DutyHandler) {
	r.Handle("GET "+prefix+"/duty/status", h.GetStatus)
	r.Handle("GET "+prefix+"/shifts", h.ListShifts)
	r.Handle("PUT "+prefix+"/shifts", h.ReplaceShifts)
	r.Handle("GET "+prefix+"/crew", h.ListCrew)
	r.Handle("PUT "+prefix+"/crew/{id}/status", h.UpdateCrewStatus)
}

// RegisterRosterRoutes assignments, availability and workload
func (r *Router) RegisterRosterRoutes(h *RosterHandler) {
	r.Handle("GET "+prefix+"/assignments", h.List)
	r.Handle("GET "+prefix+"/assignments/export", h.Export)
	r.Handle("PUT "+prefix+"/assignments/by-date/{date}", h.ReplaceByDate)
	r.Handle("POST "+prefix+"/assignments/availability", h.CheckAvailability)
	r.Handle("POST "+prefix+"/assignments/availability/batch", h.CheckAvailabilityBatch)
	r.Handle("GET "+prefix+"/crew/{id}/workload", h.Workload)
}

// RegisterGuestRoutes guest status transitions
func (r *Router) RegisterGuestRoutes(h *GuestHandler) {
	r.Handle("PUT "+prefix+"/guests/{id}/status", h.UpdateStatus)
	r.Handle("GET "+prefix+"/guests/transitions", h.Transitions)
}

// RegisterRequestRoutes service request lifecycle and history
func (r *Router) RegisterRequestRoutes(h *RequestHandler) {
	r.Handle("GET "+prefix+"/service-requests", h.List)
	r.Handle("POST "+prefix+"/service-requests", h.Create)
	r.Handle("PUT "+prefix+"/service-requests/{id}/accept", h.Accept)
	r.Handle("PUT "+prefix+"/service-requests/{id}/delegate", h.Delegate)
	r.Handle("PUT "+prefix+"/service-requests/{id}/complete", h.Complete)
	r.Handle("PUT "+prefix+"/service-requests/{id}/cancel", h.Cancel)
	r.Handle("DELETE "+prefix+"/service-requests/clear-all", h.ClearAll)
	r.Handle("GET "+prefix+"/service-requests/history", h.History)
	r.Handle("DELETE "+prefix+"/service-requests/history", h.ClearHistory)
	r.Handle("GET "+prefix+"/service-requests/history/export", h.ExportHistory)
}

// RegisterHealth liveness probe
func (r *Router) RegisterHealth() {
	r.Handle("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	})
}
