package worker

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Subscriber receives events from a Pub/Sub subscription.
type Subscriber struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	handler          *Handler
	logger           zerolog.Logger
}

// SubscriberConfig holds configuration for the subscriber.
type SubscriberConfig struct {
	ProjectID        string
	SubscriptionName string
	Handler          *Handler
	Logger           zerolog.Logger
}

// NewSubscriber connects to Pub/Sub.
func NewSubscriber(ctx context.Context, cfg SubscriberConfig) (*Subscriber, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)
	subscriber.ReceiveSettings.MaxOutstandingMessages = 100
	subscriber.ReceiveSettings.MaxExtension = time.Minute

	return &Subscriber{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		handler:          cfg.Handler,
		logger:           cfg.Logger,
	}, nil
}

// Run receives messages until ctx is cancelled.
func (s *Subscriber) Run(ctx context.Context) error {
	s.logger.Info().
		Str("subscription", s.subscriptionName).
		Msg("starting event subscriber")

	err := s.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		outcome := s.handler.Handle(ctx, msg.Data)
		if outcome.Ack() {
			msg.Ack()
		} else {
			msg.Nack()
		}

		s.logger.Debug().
			Str("message_id", msg.ID).
			Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
			Stringer("outcome", outcome).
			Msg("message handled")
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("receiving events: %w", err)
	}
	return nil
}

// Close closes the Pub/Sub client.
func (s *Subscriber) Close() error {
	return s.client.Close()
}
