package worker

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/atlastransit/atlas/internal/events"
)

// Outcome is what happened to a delivered message.
type Outcome int

const (
	// Processed messages were counted and should be acked.
	Processed Outcome = iota
	// Dropped messages had an unknown type and should be acked.
	Dropped
	// Rejected messages could not be decoded. Redelivery cannot fix them,
	// so they are acked as well.
	Rejected
	// Retry messages arrived while the worker was shutting down and should
	// be nacked for redelivery.
	Retry
)

func (o Outcome) String() string {
	switch o {
	case Processed:
		return "processed"
	case Dropped:
		return "dropped"
	case Rejected:
		return "rejected"
	default:
		return "retry"
	}
}

// Ack reports whether the message should be acknowledged.
func (o Outcome) Ack() bool {
	return o != Retry
}

// Handler decodes event payloads and feeds them to Stats.
type Handler struct {
	stats  *Stats
	logger zerolog.Logger
}

// NewHandler creates a handler recording into stats.
func NewHandler(stats *Stats, logger zerolog.Logger) *Handler {
	return &Handler{stats: stats, logger: logger}
}

// Handle processes one payload. Nothing is recorded once ctx is done.
func (h *Handler) Handle(ctx context.Context, data []byte) Outcome {
	if ctx.Err() != nil {
		return Retry
	}

	var e events.Event
	if err := json.Unmarshal(data, &e); err != nil {
		h.logger.Error().Err(err).Int("bytes", len(data)).Msg("failed to decode event")
		h.stats.Rejected()
		return Rejected
	}

	if !e.Type.Known() {
		h.logger.Warn().Str("event_type", string(e.Type)).Msg("unknown event type")
		h.stats.Dropped()
		return Dropped
	}

	h.stats.Record(e)
	h.logger.Debug().
		Str("event_id", e.ID).
		Str("event_type", string(e.Type)).
		Str("session_id", e.SessionID).
		Msg("event processed")
	return Processed
}
