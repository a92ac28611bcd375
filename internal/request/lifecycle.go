// Package request implements the service request lifecycle: the status
// state machine, the completion countdown, the staleness reaper and the
// completion history.
package request

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/apperr"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/metrics"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store active request persistence
type Store interface {
	InsertRequest(ctx context.Context, r *models.ServiceRequest) error
	UpdateRequest(ctx context.Context, r *models.ServiceRequest, from ...models.RequestStatus) error
	DeleteRequest(ctx context.Context, id string) error
	DeleteAllRequests(ctx context.Context) error
	ListActive(ctx context.Context) ([]models.ServiceRequest, error)
}

// HistoryStore completion log persistence
type HistoryStore interface {
	AppendHistory(ctx context.Context, e models.HistoryEntry) error
	ListHistory(ctx context.Context, filter repository.HistoryFilter) ([]models.HistoryEntry, error)
	ClearHistory(ctx context.Context) error
}

// Publisher realtime fan-out
type Publisher interface {
	Publish(ctx context.Context, ev models.Event) error
}

// Config lifecycle timers
type Config struct {
	ServingNowTimeout      time.Duration
	StaleAssignedThreshold time.Duration
	ReaperTick             time.Duration
}

// CreateInput request shape produced by device ingest or a manual trigger
type CreateInput struct {
	GuestID         *string            `json:"guestId,omitempty"`
	GuestName       string             `json:"guestName"`
	LocationID      *string            `json:"locationId,omitempty"`
	GuestCabin      string             `json:"guestCabin"`
	Priority        models.Priority    `json:"priority,omitempty"`
	Emergency       bool               `json:"emergency,omitempty"`
	RequestType     models.RequestType `json:"requestType,omitempty"`
	VoiceTranscript string             `json:"voiceTranscript,omitempty"`
	VoiceAudioURL   string             `json:"voiceAudioUrl,omitempty"`
	Category        string             `json:"category,omitempty"`
	Notes           string             `json:"notes,omitempty"`
	DeviceID        string             `json:"deviceId,omitempty"`
}

const (
	removedServed    = "served"
	removedStale     = "stale"
	removedCancelled = "cancelled"
	removedCleared   = "cleared"
)

// Lifecycle owns the active request set, its timers and the history log.
// Transitions are serialized so events go out in apply order.
type Lifecycle struct {
	store     Store
	history   HistoryStore
	publisher Publisher
	metrics   *metrics.Metrics
	cfg       Config
	logger    *zap.Logger

	// Clock is overridable in tests
	Clock func() time.Time

	writeMu sync.Mutex // one transition at a time

	mu       sync.RWMutex // guards the maps below
	active   map[string]*models.ServiceRequest
	timers   map[string]*time.Timer
	removeAt map[string]time.Time
}

func NewLifecycle(store Store, history HistoryStore, publisher Publisher, m *metrics.Metrics, cfg Config, logger *zap.Logger) *Lifecycle {
	if cfg.ServingNowTimeout <= 0 {
		cfg.ServingNowTimeout = 5 * time.Second
	}
	if cfg.StaleAssignedThreshold <= 0 {
		cfg.StaleAssignedThreshold = time.Hour
	}
	if cfg.ReaperTick <= 0 {
		cfg.ReaperTick = time.Second
	}
	return &Lifecycle{
		store:     store,
		history:   history,
		publisher: publisher,
		metrics:   m,
		cfg:       cfg,
		logger:    logger,
		Clock:     time.Now,
		active:    map[string]*models.ServiceRequest{},
		timers:    map[string]*time.Timer{},
		removeAt:  map[string]time.Time{},
	}
}

// Load restores the active set from the store, rescheduling countdowns of
// completed requests relative to their completion time
func (l *Lifecycle) Load(ctx context.Context) error {
	list, err := l.store.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("load active requests: %w", err)
	}
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	now := l.Clock()
	l.mu.Lock()
	for i := range list {
		req := list[i]
		if req.Status == models.StatusCancelled {
			continue
		}
		l.active[req.ID] = &req
		if req.Status == models.StatusCompleted && req.CompletedAt != nil {
			l.scheduleLocked(req.ID, req.CompletedAt.Add(l.cfg.ServingNowTimeout), now)
		}
	}
	n := len(l.active)
	l.mu.Unlock()

	l.metrics.ActiveRequests(n)
	l.logger.Info("Active service requests restored", zap.Int("count", n))
	return nil
}

// Create stamps createdAt and stores a pending request. Emergency input
// forces emergency priority; unknown priorities fall back to normal.
func (l *Lifecycle) Create(ctx context.Context, in CreateInput) (*models.ServiceRequest, error) {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	req := &models.ServiceRequest{
		ID:              uuid.NewString(),
		GuestID:         in.GuestID,
		GuestName:       in.GuestName,
		LocationID:      in.LocationID,
		GuestCabin:      in.GuestCabin,
		Priority:        normalizePriority(in.Priority, in.Emergency),
		Status:          models.StatusPending,
		RequestType:     in.RequestType,
		CreatedAt:       l.Clock(),
		VoiceTranscript: in.VoiceTranscript,
		VoiceAudioURL:   in.VoiceAudioURL,
		Category:        in.Category,
		Notes:           in.Notes,
		DeviceID:        in.DeviceID,
	}
	if req.GuestName == "" {
		req.GuestName = "Guest"
	}
	if req.GuestCabin == "" {
		req.GuestCabin = "Unknown"
	}
	if req.RequestType == "" {
		req.RequestType = models.RequestCall
	}

	if err := l.store.InsertRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("create service request: %w", err)
	}
	l.put(req)
	l.logger.Info("Service request created",
		zap.String("request_id", req.ID),
		zap.String("priority", string(req.Priority)),
		zap.String("cabin", req.GuestCabin),
	)
	l.publish(ctx, models.EventRequestCreated, req)
	return req.Clone(), nil
}

// Accept pending -> accepted by crewID
func (l *Lifecycle) Accept(ctx context.Context, id, crewID string) (*models.ServiceRequest, error) {
	return l.assign(ctx, id, crewID, models.StatusAccepted, models.EventRequestAccepted)
}

// Delegate pending -> delegated to toCrewID
func (l *Lifecycle) Delegate(ctx context.Context, id, toCrewID string) (*models.ServiceRequest, error) {
	return l.assign(ctx, id, toCrewID, models.StatusDelegated, models.EventRequestDelegated)
}

func (l *Lifecycle) assign(ctx context.Context, id, crewID string, to models.RequestStatus, evType models.EventType) (*models.ServiceRequest, error) {
	if crewID == "" {
		return nil, apperr.Invalid("crew id is required to %s a request", verb(to))
	}
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	cur, err := l.get(id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(cur.Status, to) {
		var cause error
		if cur.Status == models.StatusAccepted || cur.Status == models.StatusDelegated {
			cause = apperr.ErrConflict
		}
		return nil, invalidTransition(cur, to, cause)
	}

	next := cur.Clone()
	now := l.Clock()
	next.Status = to
	next.AssignedTo = crewID
	next.AcceptedAt = &now

	if err := l.store.UpdateRequest(ctx, next, models.StatusPending); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, invalidTransition(cur, to, err)
		}
		return nil, fmt.Errorf("%s service request %s: %w", verb(to), id, err)
	}
	l.put(next)
	l.logger.Info("Service request assigned",
		zap.String("request_id", id),
		zap.String("status", string(to)),
		zap.String("crew_id", crewID),
	)
	l.publish(ctx, evType, next)
	return next.Clone(), nil
}

// Complete accepted/delegated -> completed, records history and starts the
// visibility countdown. completedBy falls back to the assignee.
func (l *Lifecycle) Complete(ctx context.Context, id, completedBy string) (*models.ServiceRequest, error) {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	cur, err := l.get(id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(cur.Status, models.StatusCompleted) {
		return nil, invalidTransition(cur, models.StatusCompleted, nil)
	}

	next := cur.Clone()
	now := l.Clock()
	next.Status = models.StatusCompleted
	next.CompletedAt = &now

	if err := l.store.UpdateRequest(ctx, next, models.StatusAccepted, models.StatusDelegated); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, invalidTransition(cur, models.StatusCompleted, err)
		}
		return nil, fmt.Errorf("complete service request %s: %w", id, err)
	}

	entry := newHistoryEntry(next, completedBy)
	err = apperr.Retry(ctx, 3, 50*time.Millisecond, func(ctx context.Context) error {
		return l.history.AppendHistory(ctx, entry)
	})
	if err != nil {
		l.logger.Error("Failed to record service request history",
			zap.String("request_id", id),
			zap.Error(err),
		)
	}

	l.put(next)
	l.mu.Lock()
	l.scheduleLocked(id, now.Add(l.cfg.ServingNowTimeout), now)
	l.mu.Unlock()

	l.logger.Info("Service request completed",
		zap.String("request_id", id),
		zap.String("completed_by", entry.CompletedBy),
		zap.Int64("duration_seconds", entry.DurationSeconds),
	)
	l.publish(ctx, models.EventRequestCompleted, next)
	return next.Clone(), nil
}

// Cancel pending -> cancelled; the request leaves the active set at once
func (l *Lifecycle) Cancel(ctx context.Context, id string) (*models.ServiceRequest, error) {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	cur, err := l.get(id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(cur.Status, models.StatusCancelled) {
		return nil, invalidTransition(cur, models.StatusCancelled, nil)
	}

	next := cur.Clone()
	next.Status = models.StatusCancelled
	if err := l.store.UpdateRequest(ctx, next, models.StatusPending); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, invalidTransition(cur, models.StatusCancelled, err)
		}
		return nil, fmt.Errorf("cancel service request %s: %w", id, err)
	}
	if err := l.store.DeleteRequest(ctx, id); err != nil {
		l.logger.Warn("Failed to drop cancelled request", zap.String("request_id", id), zap.Error(err))
	}

	l.drop(id, removedCancelled)
	l.publish(ctx, models.EventRequestCancelled, next)
	return next.Clone(), nil
}

// Get an active request
func (l *Lifecycle) Get(id string) (*models.ServiceRequest, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	req, ok := l.active[id]
	if !ok {
		return nil, apperr.NotFound("service request", id)
	}
	return req.Clone(), nil
}

// Active snapshot of the working set, oldest first
func (l *Lifecycle) Active() []models.ServiceRequest {
	l.mu.RLock()
	out := make([]models.ServiceRequest, 0, len(l.active))
	for _, req := range l.active {
		out = append(out, *req.Clone())
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// History completion log, optionally filtered
func (l *Lifecycle) History(ctx context.Context, filter repository.HistoryFilter) ([]models.HistoryEntry, error) {
	return l.history.ListHistory(ctx, filter)
}

// ClearHistory empties the completion log
func (l *Lifecycle) ClearHistory(ctx context.Context) error {
	if err := l.history.ClearHistory(ctx); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	l.logger.Info("Service request history cleared")
	l.emit(ctx, models.Event{Type: models.EventHistoryCleared, At: l.Clock()})
	return nil
}

// ClearAll drops every active request and its timer
func (l *Lifecycle) ClearAll(ctx context.Context) (int, error) {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if err := l.store.DeleteAllRequests(ctx); err != nil {
		return 0, fmt.Errorf("clear service requests: %w", err)
	}
	ids := l.activeIDs()
	for _, id := range ids {
		l.drop(id, removedCleared)
		l.emit(ctx, models.Event{Type: models.EventRequestRemoved, RequestID: id, At: l.Clock()})
	}
	l.logger.Info("Active service requests cleared", zap.Int("count", len(ids)))
	return len(ids), nil
}

// Sweep removes completed requests whose countdown elapsed and
// accepted/delegated requests older than the stale threshold. It backs up
// the per-request timers and drives tests with a manual clock.
func (l *Lifecycle) Sweep(ctx context.Context, now time.Time) int {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	type victim struct {
		id     string
		reason string
	}
	var victims []victim
	l.mu.RLock()
	for id, req := range l.active {
		switch req.Status {
		case models.StatusAccepted, models.StatusDelegated:
			if req.AcceptedAt != nil && now.Sub(*req.AcceptedAt) > l.cfg.StaleAssignedThreshold {
				victims = append(victims, victim{id, removedStale})
			}
		case models.StatusCompleted:
			due, ok := l.removeAt[id]
			if !ok && req.CompletedAt != nil {
				due = req.CompletedAt.Add(l.cfg.ServingNowTimeout)
			}
			if !now.Before(due) {
				victims = append(victims, victim{id, removedServed})
			}
		}
	}
	l.mu.RUnlock()

	sort.Slice(victims, func(i, j int) bool { return victims[i].id < victims[j].id })
	for _, v := range victims {
		l.remove(ctx, v.id, v.reason)
	}
	return len(victims)
}

// Run sweeps on every reaper tick until ctx is cancelled, then stops all timers
func (l *Lifecycle) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.cfg.ReaperTick)
	defer ticker.Stop()
	defer l.stopTimers()

	l.logger.Info("Service request reaper started", zap.Duration("tick", l.cfg.ReaperTick))
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Service request reaper stopped")
			return nil
		case <-ticker.C:
			l.Sweep(ctx, l.Clock())
		}
	}
}

// expire fires from a countdown timer
func (l *Lifecycle) expire(id string, due time.Time) {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	l.mu.RLock()
	current, ok := l.removeAt[id]
	l.mu.RUnlock()
	if !ok || !current.Equal(due) {
		return // superseded by a newer countdown
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	l.remove(ctx, id, removedServed)
}

// remove deletes from store and active set and announces it; caller holds writeMu
func (l *Lifecycle) remove(ctx context.Context, id, reason string) {
	if err := l.store.DeleteRequest(ctx, id); err != nil {
		l.logger.Warn("Failed to delete service request", zap.String("request_id", id), zap.Error(err))
	}
	l.drop(id, reason)
	l.logger.Info("Service request removed from active set",
		zap.String("request_id", id),
		zap.String("reason", reason),
	)
	l.emit(ctx, models.Event{Type: models.EventRequestRemoved, RequestID: id, At: l.Clock()})
}

// scheduleLocked starts a fresh countdown, replacing any previous one; caller holds mu
func (l *Lifecycle) scheduleLocked(id string, due, now time.Time) {
	if t, ok := l.timers[id]; ok {
		t.Stop()
	}
	l.removeAt[id] = due
	delay := due.Sub(now)
	if delay < 0 {
		delay = 0
	}
	l.timers[id] = time.AfterFunc(delay, func() { l.expire(id, due) })
}

func (l *Lifecycle) stopTimers() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, t := range l.timers {
		t.Stop()
		delete(l.timers, id)
	}
}

func (l *Lifecycle) get(id string) (*models.ServiceRequest, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	req, ok := l.active[id]
	if !ok {
		return nil, apperr.NotFound("service request", id)
	}
	return req.Clone(), nil
}

func (l *Lifecycle) put(req *models.ServiceRequest) {
	l.mu.Lock()
	l.active[req.ID] = req.Clone()
	n := len(l.active)
	l.mu.Unlock()

	l.metrics.RequestTransition(string(req.Status))
	l.metrics.ActiveRequests(n)
}

func (l *Lifecycle) drop(id, reason string) {
	l.mu.Lock()
	delete(l.active, id)
	delete(l.removeAt, id)
	if t, ok := l.timers[id]; ok {
		t.Stop()
		delete(l.timers, id)
	}
	n := len(l.active)
	l.mu.Unlock()

	l.metrics.RequestRemoved(reason, 1)
	l.metrics.ActiveRequests(n)
}

func (l *Lifecycle) activeIDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.active))
	for id := range l.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (l *Lifecycle) publish(ctx context.Context, t models.EventType, req *models.ServiceRequest) {
	l.emit(ctx, models.Event{Type: t, RequestID: req.ID, Request: req.Clone(), At: l.Clock()})
}

// emit retries transient notifier failures briefly; the transition stands either way
func (l *Lifecycle) emit(ctx context.Context, ev models.Event) {
	err := apperr.Retry(ctx, 3, 50*time.Millisecond, func(ctx context.Context) error {
		return l.publisher.Publish(ctx, ev)
	})
	if err != nil {
		l.logger.Warn("Failed to publish service request event",
			zap.String("type", string(ev.Type)),
			zap.String("request_id", ev.RequestID),
			zap.Error(err),
		)
	}
}

func newHistoryEntry(req *models.ServiceRequest, completedBy string) models.HistoryEntry {
	if completedBy == "" {
		completedBy = req.AssignedTo
	}
	if completedBy == "" {
		completedBy = "Unknown"
	}
	var duration int64
	if req.AcceptedAt != nil && req.CompletedAt != nil {
		duration = int64(req.CompletedAt.Sub(*req.AcceptedAt) / time.Second)
	}
	return models.HistoryEntry{
		ID:              uuid.NewString(),
		Request:         *req.Clone(),
		CompletedBy:     completedBy,
		CompletedAt:     *req.CompletedAt,
		DurationSeconds: duration,
	}
}

func normalizePriority(p models.Priority, emergency bool) models.Priority {
	if emergency {
		return models.PriorityEmergency
	}
	switch p {
	case models.PriorityUrgent, models.PriorityEmergency:
		return p
	default:
		return models.PriorityNormal
	}
}

func verb(s models.RequestStatus) string {
	if s == models.StatusDelegated {
		return "delegate"
	}
	return "accept"
}
