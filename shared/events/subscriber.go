package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var eventsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "stream_events_handled_total",
	Help: "Stream events consumed, by outcome",
}, []string{"stream", "type", "outcome"})

type Handler func(ctx context.Context, event Event) error

// errMalformed marks entries that can never be decoded.
var errMalformed = errors.New("malformed stream entry")

// DeadLetterStream names the stream receiving entries of stream whose
// handler kept failing.
func DeadLetterStream(stream string) string {
	return stream + ".dead-letter"
}

// Subscriber consumes one stream through a consumer group and dispatches each
// event to the handler registered for its type. Events of other types are
// acknowledged and dropped, as are entries that cannot be decoded. Failed
// events stay pending and are reclaimed once idle for ClaimMinIdle; after
// MaxDeliveries attempts they are copied to the dead letter stream and
// acknowledged.
type Subscriber struct {
	client        redis.Cmdable
	group         string
	consumer      string
	stream        string
	handlers      map[string]Handler
	batchSize     int64
	blockDuration time.Duration
	claimMinIdle  time.Duration
	maxDeliveries int64
	retryDelay    time.Duration
	logger        *logrus.Logger
}

type SubscriberConfig struct {
	Group         string
	Consumer      string
	Stream        string
	Handlers      map[string]Handler
	BatchSize     int64
	BlockDuration time.Duration
	ClaimMinIdle  time.Duration
	MaxDeliveries int64
	Logger        *logrus.Logger
}

func NewSubscriber(client redis.Cmdable, config SubscriberConfig) *Subscriber {
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}
	if config.BlockDuration == 0 {
		config.BlockDuration = 5 * time.Second
	}
	if config.ClaimMinIdle == 0 {
		config.ClaimMinIdle = time.Minute
	}
	if config.MaxDeliveries == 0 {
		config.MaxDeliveries = 5
	}
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}

	return &Subscriber{
		client:        client,
		group:         config.Group,
		consumer:      config.Consumer,
		stream:        config.Stream,
		handlers:      config.Handlers,
		batchSize:     config.BatchSize,
		blockDuration: config.BlockDuration,
		claimMinIdle:  config.ClaimMinIdle,
		maxDeliveries: config.MaxDeliveries,
		retryDelay:    time.Second,
		logger:        config.Logger,
	}
}

// Start blocks until ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.stream, s.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	log := s.logger.WithFields(logrus.Fields{"stream": s.stream, "group": s.group, "consumer": s.consumer})
	log.Info("Subscriber started")

	for {
		if err := s.reclaimStale(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Warn("Failed to reclaim pending messages")
		}
		if err := s.readMessages(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("Error reading messages")
			select {
			case <-ctx.Done():
			case <-time.After(s.retryDelay):
			}
		}
		if ctx.Err() != nil {
			log.Info("Subscriber stopping")
			return ctx.Err()
		}
	}
}

func (s *Subscriber) readMessages(ctx context.Context) error {
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumer,
		Streams:  []string{s.stream, ">"},
		Count:    s.batchSize,
		Block:    s.blockDuration,
	}).Result()

	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, stream := range streams {
		s.handleBatch(ctx, stream.Messages)
	}
	return nil
}

// reclaimStale retires entries that used up their deliveries, then takes
// over the rest of what earlier deliveries left unacknowledged.
func (s *Subscriber) reclaimStale(ctx context.Context) error {
	if err := s.deadLetterExhausted(ctx); err != nil {
		return err
	}

	messages, _, err := s.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   s.stream,
		Group:    s.group,
		Consumer: s.consumer,
		MinIdle:  s.claimMinIdle,
		Start:    "0-0",
		Count:    s.batchSize,
	}).Result()
	if err != nil {
		return err
	}
	if len(messages) > 0 {
		s.logger.WithFields(logrus.Fields{"stream": s.stream, "count": len(messages)}).Info("Reclaimed pending messages")
	}
	s.handleBatch(ctx, messages)
	return nil
}

func (s *Subscriber) deadLetterExhausted(ctx context.Context) error {
	pending, err := s.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: s.stream,
		Group:  s.group,
		Idle:   s.claimMinIdle,
		Start:  "-",
		End:    "+",
		Count:  s.batchSize,
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to inspect pending entries: %w", err)
	}

	for _, entry := range pending {
		if entry.RetryCount < s.maxDeliveries {
			continue
		}
		values := map[string]any{
			"source_stream": s.stream,
			"message_id":    entry.ID,
			"deliveries":    entry.RetryCount,
		}
		original, err := s.client.XRangeN(ctx, s.stream, entry.ID, entry.ID, 1).Result()
		if err != nil {
			return fmt.Errorf("failed to read pending entry %s: %w", entry.ID, err)
		}
		if len(original) == 1 {
			for k, v := range original[0].Values {
				values[k] = v
			}
		}
		err = s.client.XAdd(ctx, &redis.XAddArgs{
			Stream: DeadLetterStream(s.stream),
			MaxLen: streamMaxLen,
			Approx: true,
			Values: values,
		}).Err()
		if err != nil {
			return fmt.Errorf("failed to dead letter entry %s: %w", entry.ID, err)
		}
		s.ack(ctx, entry.ID)

		eventsHandled.WithLabelValues(s.stream, "unknown", "dead_lettered").Inc()
		s.logger.WithFields(logrus.Fields{
			"stream":     s.stream,
			"message_id": entry.ID,
			"deliveries": entry.RetryCount,
		}).Error("Stream entry exhausted its deliveries, moved to dead letter stream")
	}
	return nil
}

func (s *Subscriber) handleBatch(ctx context.Context, messages []redis.XMessage) {
	for _, message := range messages {
		err := s.processMessage(ctx, message)
		if errors.Is(err, errMalformed) {
			s.logger.WithError(err).WithField("message_id", message.ID).Warn("Dropping malformed stream entry")
			s.ack(ctx, message.ID)
			continue
		}
		if err != nil {
			s.logger.WithError(err).WithField("message_id", message.ID).Error("Failed to process message")
			continue
		}
		s.ack(ctx, message.ID)
	}
}

func (s *Subscriber) ack(ctx context.Context, id string) {
	if err := s.client.XAck(ctx, s.stream, s.group, id).Err(); err != nil {
		s.logger.WithError(err).WithField("message_id", id).Warn("Failed to ACK message")
	}
}

func (s *Subscriber) processMessage(ctx context.Context, message redis.XMessage) error {
	eventData, ok := message.Values["event"].(string)
	if !ok {
		eventsHandled.WithLabelValues(s.stream, "unknown", "malformed").Inc()
		return fmt.Errorf("%w: no event field", errMalformed)
	}

	var event Event
	if err := json.Unmarshal([]byte(eventData), &event); err != nil {
		eventsHandled.WithLabelValues(s.stream, "unknown", "malformed").Inc()
		return fmt.Errorf("%w: %v", errMalformed, err)
	}

	handler, ok := s.handlers[event.Type]
	if !ok {
		eventsHandled.WithLabelValues(s.stream, event.Type, "skipped").Inc()
		s.logger.WithFields(logrus.Fields{"event_type": event.Type, "event_id": event.ID}).Debug("No handler for event type")
		return nil
	}
	if err := handler(ctx, event); err != nil {
		eventsHandled.WithLabelValues(s.stream, event.Type, "failed").Inc()
		return err
	}
	eventsHandled.WithLabelValues(s.stream, event.Type, "handled").Inc()
	return nil
}
