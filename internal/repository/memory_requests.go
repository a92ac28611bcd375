package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/apperr"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"

	"github.com/google/uuid"
)

// MemoryRequestsRepo active requests and completion history held in process
type MemoryRequestsRepo struct {
	mu       sync.RWMutex
	requests map[string]models.ServiceRequest
	history  []models.HistoryEntry
}

func NewMemoryRequestsRepo() *MemoryRequestsRepo {
	return &MemoryRequestsRepo{requests: map[string]models.ServiceRequest{}}
}

var (
	_ ServiceRequestRepository = (*MemoryRequestsRepo)(nil)
	_ HistoryRepository        = (*MemoryRequestsRepo)(nil)
)

func (r *MemoryRequestsRepo) InsertRequest(_ context.Context, req *models.ServiceRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if _, ok := r.requests[req.ID]; ok {
		return apperr.ErrConflict
	}
	r.requests[req.ID] = *req.Clone()
	return nil
}

func (r *MemoryRequestsRepo) UpdateRequest(_ context.Context, req *models.ServiceRequest, from ...models.RequestStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.requests[req.ID]
	if !ok {
		return apperr.NotFound("service request", req.ID)
	}
	if len(from) > 0 && !containsStatus(from, cur.Status) {
		return apperr.ErrConflict
	}
	r.requests[req.ID] = *req.Clone()
	return nil
}

func (r *MemoryRequestsRepo) DeleteRequest(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.requests, id)
	return nil
}

func (r *MemoryRequestsRepo) DeleteAllRequests(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = map[string]models.ServiceRequest{}
	return nil
}

func (r *MemoryRequestsRepo) ListActive(_ context.Context) ([]models.ServiceRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.ServiceRequest, 0, len(r.requests))
	for _, req := range r.requests {
		out = append(out, *req.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRequestsRepo) AppendHistory(_ context.Context, e models.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	r.history = append(r.history, e)
	return nil
}

func (r *MemoryRequestsRepo) ListHistory(_ context.Context, filter HistoryFilter) ([]models.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []models.HistoryEntry{}
	for _, e := range r.history {
		if filter.Match(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *MemoryRequestsRepo) ClearHistory(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = nil
	return nil
}

func containsStatus(list []models.RequestStatus, s models.RequestStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
