// Package notifier fans realtime change events out to dashboards, the
// event stream and crew watches.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/metrics"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"

	"go.uber.org/zap"
)

// Publisher delivers one event to a sink
type Publisher interface {
	Publish(ctx context.Context, ev models.Event) error
}

// Sink a named publisher, the name labels logs and metrics
type Sink struct {
	Name      string
	Publisher Publisher
}

// Multi publishes to every sink; one failing sink does not stop the others
type Multi struct {
	sinks   []Sink
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewMulti(m *metrics.Metrics, logger *zap.Logger, sinks ...Sink) *Multi {
	return &Multi{sinks: sinks, metrics: m, logger: logger}
}

// Add registers another sink
func (m *Multi) Add(name string, p Publisher) {
	m.sinks = append(m.sinks, Sink{Name: name, Publisher: p})
}

func (m *Multi) Publish(ctx context.Context, ev models.Event) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Publisher.Publish(ctx, ev); err != nil {
			m.metrics.PublishError(s.Name)
			m.logger.Warn("Failed to publish event",
				zap.String("sink", s.Name),
				zap.String("type", string(ev.Type)),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps every published event in memory
type Recorder struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *Recorder) Publish(_ context.Context, ev models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events copy of everything recorded so far
func (r *Recorder) Events() []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Event(nil), r.events...)
}

// Discard drops events
type Discard struct{}

func (Discard) Publish(context.Context, models.Event) error { return nil }

var (
	_ Publisher = (*Multi)(nil)
	_ Publisher = (*Recorder)(nil)
	_ Publisher = Discard{}
)
