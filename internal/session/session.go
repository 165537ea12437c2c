// Package session hosts one running Atlas client: its step controller, the
// sign-in view, the profile form and, once onboarding is complete, the
// dashboard.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/atlastransit/atlas/internal/auth"
	"github.com/atlastransit/atlas/internal/dashboard"
	"github.com/atlastransit/atlas/internal/events"
	"github.com/atlastransit/atlas/internal/onboarding"
	"github.com/atlastransit/atlas/internal/profile"
)

// Predefined session errors.
var (
	ErrWrongStep       = errors.New("operation not available on the current screen")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session closed")
)

// Config holds what every session is built from.
type Config struct {
	// SplashDelay is passed to the step controller.
	SplashDelay time.Duration

	// Auth configures the sign-in view. Its Logger is replaced.
	Auth auth.FlowConfig

	// Gateway backs the dashboard (required).
	Gateway dashboard.Gateway

	// Profiles records completed onboarding profiles. Optional.
	Profiles profile.Repository

	// Publisher receives the session's domain events. Optional.
	Publisher events.Publisher

	Logger zerolog.Logger
}

// Session is one client's application state.
type Session struct {
	id        string
	createdAt time.Time
	cfg       Config
	logger    zerolog.Logger

	controller *onboarding.Controller
	login      *auth.Flow

	mu     sync.Mutex
	dash   *dashboard.Dashboard
	closed bool
}

// New starts a session at SPLASH.
func New(id string, cfg Config) *Session {
	logger := cfg.Logger.With().Str("session_id", id).Logger()

	s := &Session{
		id:        id,
		createdAt: time.Now(),
		cfg:       cfg,
		logger:    logger,
	}

	authCfg := cfg.Auth
	authCfg.Logger = logger.With().Str("component", "auth").Logger()
	s.login = auth.NewFlow(authCfg)

	s.publish(context.Background(), events.TypeSessionStarted, nil)
	s.controller = onboarding.NewController(onboarding.ControllerConfig{
		SplashDelay:  cfg.SplashDelay,
		OnStepChange: s.stepChanged,
		Logger:       logger.With().Str("component", "onboarding").Logger(),
	})
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// CreatedAt returns when the session started.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Step returns the current onboarding step.
func (s *Session) Step() onboarding.Step {
	return s.controller.Step()
}

// Screen returns the view for the current step.
func (s *Session) Screen() Screen {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.controller.Step() {
	case onboarding.StepLogin:
		return LoginScreen{Auth: s.login.State()}
	case onboarding.StepProfile:
		return ProfileScreen{
			Genders:       append([]string{}, onboarding.Genders...),
			DefaultGender: onboarding.DefaultGender,
		}
	case onboarding.StepMain:
		if s.dash != nil {
			return MainScreen{Dashboard: s.dash.State()}
		}
	}
	return SplashScreen{}
}

// Profile returns the profile accumulated so far.
func (s *Session) Profile() profile.UserProfile {
	return s.controller.Profile()
}

// DarkMode reports the theme flag.
func (s *Session) DarkMode() bool {
	return s.controller.DarkMode()
}

// ToggleTheme flips the theme flag on any screen.
func (s *Session) ToggleTheme() bool {
	return s.controller.ToggleTheme()
}

// Login returns the sign-in view while the session is on the login screen.
func (s *Session) Login() (*auth.Flow, error) {
	if err := s.expect(onboarding.StepLogin); err != nil {
		return nil, err
	}
	return s.login, nil
}

// VerifyCode checks the entered one-time code and, on success, completes the
// login step with the captured credentials.
func (s *Session) VerifyCode(ctx context.Context) error {
	flow, err := s.Login()
	if err != nil {
		return err
	}

	creds, err := flow.VerifyCode(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.controller.CompleteLogin(creds.ProfileUpdate()); err != nil {
		return s.translate(err)
	}
	return nil
}

// SubmitProfile validates the profile form, completes onboarding and opens
// the dashboard. The finished profile is recorded in the repository.
func (s *Session) SubmitProfile(ctx context.Context, form onboarding.ProfileForm) error {
	if err := s.expect(onboarding.StepProfile); err != nil {
		return err
	}

	update, err := form.Submit()
	if err != nil {
		return err
	}

	s.mu.Lock()
	if err := s.controller.CompleteProfile(update); err != nil {
		s.mu.Unlock()
		return s.translate(err)
	}
	p := s.controller.Profile()
	s.dash = dashboard.New(dashboard.Config{
		Profile:     p,
		Gateway:     s.cfg.Gateway,
		ToggleTheme: s.controller.ToggleTheme,
		DarkMode:    s.controller.DarkMode,
		OnActivity:  s.activity,
		Logger:      s.logger.With().Str("component", "dashboard").Logger(),
	})
	s.mu.Unlock()

	if s.cfg.Profiles != nil {
		if err := s.cfg.Profiles.Save(ctx, s.id, p); err != nil {
			s.logger.Error().Err(err).Msg("failed to record profile")
		}
	}
	return nil
}

// CompletedAt returns when the session's finished profile was recorded.
// ok is false when no repository is configured or nothing is stored yet.
func (s *Session) CompletedAt(ctx context.Context) (at time.Time, ok bool) {
	if s.cfg.Profiles == nil {
		return time.Time{}, false
	}

	rec, err := s.cfg.Profiles.Get(ctx, s.id)
	if err != nil {
		if !errors.Is(err, profile.ErrProfileNotFound) {
			s.logger.Warn().Err(err).Msg("failed to read recorded profile")
		}
		return time.Time{}, false
	}
	return rec.CompletedAt, true
}

// Dashboard returns the dashboard once onboarding is complete.
func (s *Session) Dashboard() (*dashboard.Dashboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.dash == nil {
		return nil, ErrWrongStep
	}
	return s.dash, nil
}

// Close stops the splash timer and tears the dashboard down.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	dash := s.dash
	s.mu.Unlock()

	s.controller.Close()
	if dash != nil {
		dash.Close()
	}

	s.publish(ctx, events.TypeSessionClosed, map[string]string{
		"step":     string(s.controller.Step()),
		"lifetime": time.Since(s.createdAt).Round(time.Second).String(),
	})
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) expect(step onboarding.Step) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return ErrSessionClosed
	}
	if s.controller.Step() != step {
		return ErrWrongStep
	}
	return nil
}

func (s *Session) translate(err error) error {
	switch {
	case errors.Is(err, onboarding.ErrStepMismatch):
		return ErrWrongStep
	case errors.Is(err, onboarding.ErrClosed):
		return ErrSessionClosed
	default:
		return fmt.Errorf("advancing onboarding: %w", err)
	}
}

func (s *Session) stepChanged(change onboarding.StepChange) {
	attrs := map[string]string{
		"from": string(change.From),
		"to":   string(change.To),
	}
	for _, f := range change.Fields {
		attrs["field."+f] = "set"
	}
	s.publish(context.Background(), events.TypeStepChanged, attrs)

	if change.To.Terminal() {
		s.logger.Info().Dur("elapsed", time.Since(s.createdAt)).Msg("onboarding completed")
	}
}

func (s *Session) activity(a dashboard.Activity) {
	s.publish(context.Background(), events.Type(a.Kind), a.Attributes)
}

func (s *Session) publish(ctx context.Context, t events.Type, attrs map[string]string) {
	if s.cfg.Publisher == nil {
		return
	}
	if err := s.cfg.Publisher.Publish(ctx, events.New(t, s.id, attrs)); err != nil {
		s.logger.Warn().Err(err).Str("event_type", string(t)).Msg("failed to publish event")
	}
}
