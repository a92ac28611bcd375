package notifier

import (
	"context"

	"github.com/debranko/obedio-yacht-crew-management-sub003/common/redis"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/apperr"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"
)

// StreamPublisher appends events to a Redis stream, trimmed to about maxLen entries
type StreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewStreamPublisher(client *redis.Client, stream string, maxLen int64) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream, maxLen: maxLen}
}

func (p *StreamPublisher) Publish(ctx context.Context, ev models.Event) error {
	if _, err := redis.AppendJSON(ctx, p.client, p.stream, p.maxLen, string(ev.Type), ev); err != nil {
		return apperr.Transient("publish to stream "+p.stream, err)
	}
	return nil
}
