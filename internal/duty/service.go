package duty

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/metrics"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/store"

	"go.uber.org/zap"
)

// CacheKey Redis key holding the latest duty snapshot
const CacheKey = "yachtcrew:duty:status"

// SnapshotSource loads resolver input for the given dates
type SnapshotSource interface {
	LoadSnapshot(ctx context.Context, dates []string) (Snapshot, error)
}

// Publisher realtime fan-out
type Publisher interface {
	Publish(ctx context.Context, ev models.Event) error
}

// ServiceConfig duty service settings
type ServiceConfig struct {
	Location *time.Location
	CacheTTL time.Duration
	Tick     time.Duration
}

// Service recomputes duty status on demand and on a fixed tick, caches the
// latest snapshot and publishes duty-status:changed when coverage changes.
type Service struct {
	resolver  *Resolver
	source    SnapshotSource
	cache     store.KV
	publisher Publisher
	metrics   *metrics.Metrics
	cfg       ServiceConfig
	logger    *zap.Logger

	// Clock is overridable in tests
	Clock func() time.Time

	// recompute serializes load, resolve and swap so a slow stale pass
	// cannot land after a fresher one
	recompute sync.Mutex

	mu       sync.Mutex
	last     *models.DutyStatus
	lastCrew []models.CrewMember
}

func NewService(resolver *Resolver, source SnapshotSource, cache store.KV, publisher Publisher, m *metrics.Metrics, cfg ServiceConfig, logger *zap.Logger) *Service {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Second
	}
	return &Service{
		resolver:  resolver,
		source:    source,
		cache:     cache,
		publisher: publisher,
		metrics:   m,
		cfg:       cfg,
		logger:    logger,
		Clock:     time.Now,
	}
}

// Current recomputes at the current instant. When the source is unavailable
// the last cached snapshot is served instead.
func (s *Service) Current(ctx context.Context) (*models.DutyStatus, error) {
	status, err := s.Recompute(ctx)
	if err == nil {
		return status, nil
	}
	var cached models.DutyStatus
	if cerr := store.GetJSON(ctx, s.cache, CacheKey, &cached); cerr == nil {
		s.logger.Warn("Serving cached duty status", zap.Error(err))
		return &cached, nil
	}
	return nil, err
}

// At resolves at an arbitrary instant without touching cache or subscribers
func (s *Service) At(ctx context.Context, at time.Time) (*models.DutyStatus, error) {
	local := at.In(s.cfg.Location)
	snap, err := s.source.LoadSnapshot(ctx, datesFor(local))
	if err != nil {
		return nil, fmt.Errorf("failed to load duty snapshot: %w", err)
	}
	return s.resolver.Resolve(local, snap), nil
}

// Recompute resolves now, refreshes the cache and publishes on change
func (s *Service) Recompute(ctx context.Context) (*models.DutyStatus, error) {
	s.recompute.Lock()
	defer s.recompute.Unlock()

	now := s.Clock().In(s.cfg.Location)
	snap, err := s.source.LoadSnapshot(ctx, datesFor(now))
	if err != nil {
		return nil, fmt.Errorf("failed to load duty snapshot: %w", err)
	}
	status := s.resolver.Resolve(now, snap)
	s.metrics.DutyRecomputed()

	if err := store.SetJSON(ctx, s.cache, CacheKey, status, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("Failed to cache duty status", zap.Error(err))
	}

	s.mu.Lock()
	changed := !status.SameCoverage(s.last)
	s.last = status
	crewChanges := CrewChanges(s.lastCrew, snap.Crew)
	s.lastCrew = snap.Crew
	s.mu.Unlock()

	if !crewChanges.Empty() {
		s.logger.Info("Crew roster changed",
			zap.Int("added", len(crewChanges.Added)),
			zap.Int("modified", len(crewChanges.Modified)),
			zap.Int("removed", len(crewChanges.Removed)),
		)
	}

	if changed {
		ev := models.Event{Type: models.EventDutyChanged, Duty: status, At: now}
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.logger.Warn("Failed to publish duty status", zap.Error(err))
		}
	}
	return status, nil
}

// Invalidate drops the cached snapshot and recomputes; called after any
// assignment, shift or crew status write
func (s *Service) Invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, CacheKey); err != nil && !errors.Is(err, store.ErrCacheMiss) {
		s.logger.Warn("Failed to drop cached duty status", zap.Error(err))
	}
	if _, err := s.Recompute(ctx); err != nil {
		s.logger.Error("Duty recompute after invalidate failed", zap.Error(err))
	}
}

// Run recomputes on every tick until ctx is cancelled
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	s.logger.Info("Duty ticker started", zap.Duration("tick", s.cfg.Tick))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Duty ticker stopped")
			return nil
		case <-ticker.C:
			if _, err := s.Recompute(ctx); err != nil {
				s.logger.Error("Duty recompute failed", zap.Error(err))
			}
		}
	}
}

// datesFor today and tomorrow; next-shift lookahead may wrap
func datesFor(now time.Time) []string {
	return []string{
		now.Format(models.DateLayout),
		now.AddDate(0, 0, 1).Format(models.DateLayout),
	}
}
