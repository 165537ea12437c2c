// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"

	"github.com/atlastransit/atlas/internal/database"
)

// DevSigningKey is used for session tokens outside production when no key
// is configured.
const DevSigningKey = "local-dev-signing-key-change-in-production"

// ErrMissingSigningKey is returned when production runs without a session
// signing key.
var ErrMissingSigningKey = errors.New("SESSION_SIGNING_KEY is required in production")

// Config is the full process configuration.
type Config struct {
	Port               string   `env:"APP_PORT" envDefault:"8080"`
	Env                string   `env:"APP_ENV" envDefault:"development"`
	LogLevel           string   `env:"LOG_LEVEL" envDefault:"info"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	RequireTLS         bool     `env:"REQUIRE_TLS" envDefault:"false"`

	Session    SessionConfig    `envPrefix:"SESSION_"`
	Onboarding OnboardingConfig `envPrefix:"ONBOARDING_"`
	Gemini     GeminiConfig     `envPrefix:"GEMINI_"`
	Database   database.Config  `envPrefix:"DB_"`
	PubSub     PubSubConfig     `envPrefix:"PUBSUB_"`
	Telemetry  TelemetryConfig  `envPrefix:"OTEL_"`
}

// SessionConfig configures session handles and eviction.
type SessionConfig struct {
	SigningKey    string        `env:"SIGNING_KEY"`
	Issuer        string        `env:"ISSUER" envDefault:"atlas-api"`
	Audience      string        `env:"AUDIENCE" envDefault:"atlas-client"`
	TokenExpiry   time.Duration `env:"TOKEN_EXPIRY" envDefault:"24h"`
	IdleTTL       time.Duration `env:"IDLE_TTL" envDefault:"30m"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
}

// OnboardingConfig configures the simulated delays of the first screens.
type OnboardingConfig struct {
	SplashDelay     time.Duration `env:"SPLASH_DELAY" envDefault:"2500ms"`
	CodeSendDelay   time.Duration `env:"CODE_SEND_DELAY" envDefault:"1200ms"`
	CodeVerifyDelay time.Duration `env:"CODE_VERIFY_DELAY" envDefault:"1s"`
	DemoCode        string        `env:"DEMO_CODE" envDefault:"123456"`
}

// GeminiConfig configures the AI gateway provider.
type GeminiConfig struct {
	APIKey      string        `env:"API_KEY"`
	BaseURL     string        `env:"BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	RoutesModel string        `env:"ROUTES_MODEL" envDefault:"gemini-3-pro-preview"`
	NearbyModel string        `env:"NEARBY_MODEL" envDefault:"gemini-2.5-flash"`
	ChatModel   string        `env:"CHAT_MODEL" envDefault:"gemini-3-pro-preview"`
	Timeout     time.Duration `env:"TIMEOUT" envDefault:"30s"`
	MaxRetries  int           `env:"MAX_RETRIES" envDefault:"2"`
}

// PubSubConfig configures event publishing and the worker subscription.
type PubSubConfig struct {
	Enabled      bool   `env:"ENABLED" envDefault:"false"`
	ProjectID    string `env:"PROJECT_ID"`
	Topic        string `env:"TOPIC" envDefault:"atlas-events"`
	Subscription string `env:"SUBSCRIPTION" envDefault:"atlas-events-worker"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled     bool    `env:"ENABLED" envDefault:"false"`
	Endpoint    string  `env:"EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	SampleRatio float64 `env:"SAMPLE_RATIO" envDefault:"1"`
}

// Load parses the process environment.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return finish(&cfg)
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Environment: vars})
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return finish(&cfg)
}

func finish(cfg *Config) (*Config, error) {
	if cfg.Session.SigningKey == "" {
		if cfg.Production() {
			return nil, ErrMissingSigningKey
		}
		cfg.Session.SigningKey = DevSigningKey
	}
	if cfg.PubSub.Enabled && cfg.PubSub.ProjectID == "" {
		return nil, errors.New("PUBSUB_PROJECT_ID is required when PUBSUB_ENABLED=true")
	}
	return cfg, nil
}

// Production reports whether APP_ENV names a production deployment.
func (c *Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

// Level returns the configured log level, falling back to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
