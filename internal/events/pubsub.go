package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// PubSubConfig holds configuration for the Pub/Sub publisher.
type PubSubConfig struct {
	ProjectID string
	Topic     string
	Logger    zerolog.Logger
}

// PubSubPublisher publishes events to a Google Cloud Pub/Sub topic as JSON.
// Publish returns once the message is queued; delivery results are logged.
type PubSubPublisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topic     string
	logger    zerolog.Logger
	pending   sync.WaitGroup
}

// NewPubSubPublisher connects to Pub/Sub.
func NewPubSubPublisher(ctx context.Context, cfg PubSubConfig) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	publisher := client.Publisher(cfg.Topic)
	publisher.PublishSettings.DelayThreshold = 50 * time.Millisecond
	publisher.PublishSettings.CountThreshold = 100

	return &PubSubPublisher{
		client:    client,
		publisher: publisher,
		topic:     cfg.Topic,
		logger:    cfg.Logger.With().Str("topic", cfg.Topic).Logger(),
	}, nil
}

// Publish queues e on the topic. The event type is copied into the message
// attributes so subscriptions can filter on it.
func (p *PubSubPublisher) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	result := p.publisher.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"type":       string(e.Type),
			"session_id": e.SessionID,
		},
	})

	p.pending.Add(1)
	go func() {
		defer p.pending.Done()

		waitCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if _, err := result.Get(waitCtx); err != nil {
			p.logger.Error().
				Err(err).
				Str("event_id", e.ID).
				Str("event_type", string(e.Type)).
				Msg("failed to publish event")
		}
	}()
	return nil
}

// Close flushes queued messages and closes the client.
func (p *PubSubPublisher) Close() error {
	p.publisher.Stop()
	p.pending.Wait()
	return p.client.Close()
}

var _ Publisher = (*PubSubPublisher)(nil)
