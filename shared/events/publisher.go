package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

// streamMaxLen bounds every stream; trimming is approximate.
const streamMaxLen = 100_000

var eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "stream_events_published_total",
	Help: "Events appended to redis streams, by outcome",
}, []string{"stream", "type", "outcome"})

type Publisher struct {
	client redis.Cmdable
	now    func() time.Time
}

func NewPublisher(client redis.Cmdable) *Publisher {
	return &Publisher{client: client, now: func() time.Time { return time.Now().UTC() }}
}

// Publish appends an event envelope carrying data to stream.
func (p *Publisher) Publish(ctx context.Context, stream, eventType string, data any) error {
	payload, err := json.Marshal(Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: p.now(),
		Data:      data,
	})
	if err != nil {
		eventsPublished.WithLabelValues(stream, eventType, "error").Inc()
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{"event": payload},
	}).Err()
	if err != nil {
		eventsPublished.WithLabelValues(stream, eventType, "error").Inc()
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}
	eventsPublished.WithLabelValues(stream, eventType, "ok").Inc()
	return nil
}

// Decode re-marshals the loosely typed payload of a received event into out.
func Decode(event Event, out any) error {
	raw, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", event.Type, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %w", event.Type, err)
	}
	return nil
}
