package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/atlastransit/atlas/internal/telemetry"
)

// Operation names used in logs, spans and metrics.
const (
	OpRoutes = "routes"
	OpNearby = "nearby"
	OpChat   = "chat"
)

// Fixed texts substituted for missing or failed answers.
const (
	NearbyEmptyText       = "No detailed transit info found."
	NearbyUnavailableText = "Location services currently unavailable."
	ChatEmptyText         = "I'm sorry, I couldn't find that information."
	ChatUnavailableText   = "Connectivity issues."
)

// Defaults for citation chunks missing a title or URI.
const (
	DefaultMapsTitle = "Location"
	DefaultWebTitle  = "Source"
	DefaultURI       = "#"
)

// FallbackLocation is stamped on every returned route; the provider does not
// report vehicle positions.
var FallbackLocation = Coordinates{Lat: 15.9129, Lng: 79.7400}

// ServiceConfig holds configuration for the gateway service.
type ServiceConfig struct {
	// Provider performs the grounded generation (required).
	Provider Provider

	// Logger receives provider failures.
	Logger zerolog.Logger

	// Metrics records provider calls. Optional.
	Metrics *telemetry.ProviderMetrics

	// Tracer creates spans around provider calls. Default: global tracer.
	Tracer trace.Tracer

	// Now stamps chat replies. Default: time.Now.
	Now func() time.Time
}

// Service applies the gateway contract on top of a Provider.
type Service struct {
	provider Provider
	logger   zerolog.Logger
	metrics  *telemetry.ProviderMetrics
	tracer   trace.Tracer
	now      func() time.Time
}

// NewService creates a gateway service.
func NewService(cfg ServiceConfig) *Service {
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = telemetry.Tracer(telemetry.InstrumentationName + "/gateway")
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		provider: cfg.Provider,
		logger:   cfg.Logger.With().Str("provider", cfg.Provider.Name()).Logger(),
		metrics:  cfg.Metrics,
		tracer:   tracer,
		now:      now,
	}
}

// FindRoutes returns the routes between pickup and drop in the order the
// provider listed them, each stamped with FallbackLocation and the web
// citations of the answer. Any failure yields an empty slice.
func (s *Service) FindRoutes(ctx context.Context, pickup, drop string) []BusRoute {
	ctx, span := s.tracer.Start(ctx, "gateway.FindRoutes", trace.WithAttributes(
		attribute.String("route.pickup", pickup),
		attribute.String("route.drop", drop),
	))
	defer span.End()

	g, err := s.call(ctx, span, OpRoutes, func(ctx context.Context) (*Grounded, error) {
		return s.provider.Routes(ctx, pickup, drop)
	})
	if err != nil {
		return []BusRoute{}
	}

	routes, err := decodeRoutes(g.Text)
	if err != nil {
		s.fail(span, OpRoutes, "decode", err)
		return []BusRoute{}
	}

	for i := range routes {
		loc := FallbackLocation
		routes[i].CurrentLocation = &loc
		routes[i].VerifiedSources = append([]Source{}, g.Web...)
	}

	span.SetAttributes(attribute.Int("route.count", len(routes)))
	return routes
}

// FindNearby returns free-text transit information about topic near at,
// with the map citations of the answer.
func (s *Service) FindNearby(ctx context.Context, topic string, at *Coordinates) NearbyInfo {
	ctx, span := s.tracer.Start(ctx, "gateway.FindNearby", trace.WithAttributes(
		attribute.String("nearby.topic", topic),
		attribute.Bool("nearby.biased", at != nil),
	))
	defer span.End()

	g, err := s.call(ctx, span, OpNearby, func(ctx context.Context) (*Grounded, error) {
		return s.provider.Nearby(ctx, topic, at)
	})
	if err != nil {
		return NearbyInfo{Text: NearbyUnavailableText, Sources: []Source{}}
	}

	text := g.Text
	if text == "" {
		s.metrics.RecordFallback(OpNearby, "empty")
		text = NearbyEmptyText
	}

	return NearbyInfo{
		Text:    text,
		Sources: withDefaults(g.Maps, DefaultMapsTitle),
	}
}

// ChatReply answers prompt as the model side of the conversation.
func (s *Service) ChatReply(ctx context.Context, prompt string) Message {
	ctx, span := s.tracer.Start(ctx, "gateway.ChatReply", trace.WithAttributes(
		attribute.Int("chat.prompt_length", len(prompt)),
	))
	defer span.End()

	g, err := s.call(ctx, span, OpChat, func(ctx context.Context) (*Grounded, error) {
		return s.provider.Chat(ctx, prompt)
	})
	if err != nil {
		return Message{Role: RoleModel, Text: ChatUnavailableText, Timestamp: s.now()}
	}

	text := g.Text
	if text == "" {
		s.metrics.RecordFallback(OpChat, "empty")
		text = ChatEmptyText
	}

	return Message{
		Role:      RoleModel,
		Text:      text,
		Timestamp: s.now(),
		Sources:   withDefaults(g.Web, DefaultWebTitle),
	}
}

func (s *Service) call(ctx context.Context, span trace.Span, op string, fn func(context.Context) (*Grounded, error)) (*Grounded, error) {
	start := time.Now()
	g, err := fn(ctx)
	if err == nil && g == nil {
		err = fmt.Errorf("%s: provider returned no answer", op)
	}
	s.metrics.RecordRequest(s.provider.Name(), op, time.Since(start), err)

	if err != nil {
		s.fail(span, op, "error", err)
		return nil, err
	}
	return g, nil
}

func (s *Service) fail(span trace.Span, op, reason string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.metrics.RecordFallback(op, reason)

	s.logger.Error().
		Err(err).
		Str("operation", op).
		Str("reason", reason).
		Msg("AI provider call failed, serving fallback")
}

func decodeRoutes(text string) ([]BusRoute, error) {
	if text == "" {
		return []BusRoute{}, nil
	}

	var routes []BusRoute
	if err := json.Unmarshal([]byte(text), &routes); err != nil {
		return nil, fmt.Errorf("decoding routes: %w", err)
	}
	if routes == nil {
		routes = []BusRoute{}
	}
	return routes, nil
}

func withDefaults(chunks []Source, title string) []Source {
	out := make([]Source, 0, len(chunks))
	for _, c := range chunks {
		if c.Title == "" {
			c.Title = title
		}
		if c.URI == "" {
			c.URI = DefaultURI
		}
		out = append(out, c)
	}
	return out
}
