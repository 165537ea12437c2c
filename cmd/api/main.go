// Package main provides the entrypoint for the Atlas API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/atlastransit/atlas/internal/api"
	"github.com/atlastransit/atlas/internal/api/handler"
	"github.com/atlastransit/atlas/internal/api/middleware"
	"github.com/atlastransit/atlas/internal/auth"
	"github.com/atlastransit/atlas/internal/config"
	"github.com/atlastransit/atlas/internal/database"
	"github.com/atlastransit/atlas/internal/events"
	"github.com/atlastransit/atlas/internal/gateway"
	"github.com/atlastransit/atlas/internal/gateway/gemini"
	"github.com/atlastransit/atlas/internal/profile"
	"github.com/atlastransit/atlas/internal/provider/resilience"
	"github.com/atlastransit/atlas/internal/session"
	"github.com/atlastransit/atlas/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "atlas-api"

func main() {
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	log = log.Level(cfg.Level())

	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.Env).
		Msg("starting Atlas API")

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.Telemetry.Endpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()
	if cfg.Telemetry.Enabled {
		log.Info().Str("otlp_endpoint", cfg.Telemetry.Endpoint).Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics()
	if err != nil {
		return err
	}
	providerMetrics, err := telemetry.NewProviderMetrics()
	if err != nil {
		return err
	}

	// AI gateway
	registry := resilience.NewRegistry()
	clientCfg := resilience.DefaultClientConfig(gemini.ProviderName)
	clientCfg.Timeout = cfg.Gemini.Timeout
	clientCfg.MaxRetries = uint64(max(cfg.Gemini.MaxRetries, 0))
	clientCfg.Registry = registry

	if cfg.Gemini.APIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY not set - route, nearby and chat answers will use fallbacks")
	}
	gw := gateway.NewService(gateway.ServiceConfig{
		Provider: gemini.NewClient(gemini.ClientConfig{
			APIKey:  cfg.Gemini.APIKey,
			BaseURL: cfg.Gemini.BaseURL,
			Models: gemini.Models{
				Routes: cfg.Gemini.RoutesModel,
				Nearby: cfg.Gemini.NearbyModel,
				Chat:   cfg.Gemini.ChatModel,
			},
			HTTPClient: resilience.NewClient(clientCfg),
			Logger:     log,
		}),
		Logger:  log,
		Metrics: providerMetrics,
	})

	// Session events
	var publisher events.Publisher = events.NewLogPublisher(log)
	if cfg.PubSub.Enabled {
		ps, err := events.NewPubSubPublisher(ctx, events.PubSubConfig{
			ProjectID: cfg.PubSub.ProjectID,
			Topic:     cfg.PubSub.Topic,
			Logger:    log,
		})
		if err != nil {
			return err
		}
		publisher = ps
		log.Info().Str("topic", cfg.PubSub.Topic).Msg("publishing session events to Pub/Sub")
	}
	defer func() {
		if closeErr := publisher.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close event publisher")
		}
	}()

	// Profile storage
	var (
		profiles profile.Repository = profile.NewInMemoryRepository()
		checks   []handler.Check
	)
	if cfg.Database.Enabled {
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()
		log.Info().
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.Database).
			Msg("database connected")

		profiles = profile.NewPostgresRepository(pool)
		checks = append(checks, handler.Check{Name: "postgres", Probe: pool.Ping})
	}

	if !cfg.Production() && cfg.Session.SigningKey == config.DevSigningKey {
		log.Warn().Msg("using default session signing key - not secure for production")
	}

	store := session.NewStore(session.StoreConfig{
		Session: session.Config{
			SplashDelay: cfg.Onboarding.SplashDelay,
			Auth: auth.FlowConfig{
				Verifier:    auth.NewDemoVerifier(cfg.Onboarding.DemoCode),
				SendDelay:   cfg.Onboarding.CodeSendDelay,
				VerifyDelay: cfg.Onboarding.CodeVerifyDelay,
			},
			Gateway:   gw,
			Profiles:  profiles,
			Publisher: publisher,
			Logger:    log,
		},
		IdleTTL:       cfg.Session.IdleTTL,
		SweepInterval: cfg.Session.SweepInterval,
		Logger:        log,
	})

	tokens := session.NewTokenService(session.TokenConfig{
		SigningKey: cfg.Session.SigningKey,
		Issuer:     cfg.Session.Issuer,
		Audience:   cfg.Session.Audience,
		Expiry:     cfg.Session.TokenExpiry,
	})

	router := api.NewRouter(api.RouterConfig{
		Version:        Version,
		BuildTime:      BuildTime,
		Logger:         log,
		Metrics:        metrics,
		Sessions:       store,
		Tokens:         tokens,
		Registry:       registry,
		Checks:         checks,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RequireTLS:     cfg.RequireTLS,
	})

	// Route searches and chat replies wait on the AI provider, so the write
	// timeout leaves room for a full retry cycle.
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return store.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
