package onboarding

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/atlastransit/atlas/internal/profile"
)

// DefaultSplashDelay is how long the splash screen stays up.
const DefaultSplashDelay = 2500 * time.Millisecond

// StepChange describes one transition of the controller.
type StepChange struct {
	From   Step
	To     Step
	Fields []string
}

// ControllerConfig holds configuration for a step controller.
type ControllerConfig struct {
	// SplashDelay is the time before SPLASH advances to LOGIN (default: 2.5s).
	SplashDelay time.Duration

	// OnStepChange, when set, is called after every transition outside the
	// controller's lock.
	OnStepChange func(StepChange)

	Logger zerolog.Logger
}

// Controller is the forward-only state machine SPLASH → LOGIN → PROFILE → MAIN.
// It owns the accumulated profile and the theme flag.
type Controller struct {
	onStepChange func(StepChange)
	logger       zerolog.Logger

	mu       sync.Mutex
	step     Step
	profile  profile.UserProfile
	darkMode bool
	closed   bool
	splash   *time.Timer
}

// NewController creates a controller at SPLASH and arms the splash timer.
func NewController(cfg ControllerConfig) *Controller {
	delay := cfg.SplashDelay
	if delay == 0 {
		delay = DefaultSplashDelay
	}

	c := &Controller{
		onStepChange: cfg.OnStepChange,
		logger:       cfg.Logger,
		step:         StepSplash,
		profile:      profile.New(),
	}

	c.mu.Lock()
	c.splash = time.AfterFunc(delay, c.leaveSplash)
	c.mu.Unlock()

	return c
}

func (c *Controller) leaveSplash() {
	c.mu.Lock()
	if c.closed || c.step != StepSplash {
		c.mu.Unlock()
		return
	}
	c.step = StepLogin
	c.mu.Unlock()

	c.notify(StepChange{From: StepSplash, To: StepLogin})
}

// Step returns the current step.
func (c *Controller) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// Profile returns a copy of the accumulated profile.
func (c *Controller) Profile() profile.UserProfile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile.Clone()
}

// CompleteLogin merges the login screen's fields and advances to PROFILE.
func (c *Controller) CompleteLogin(u profile.Update) error {
	return c.complete(StepLogin, StepProfile, u)
}

// CompleteProfile merges the profile screen's fields and advances to MAIN.
func (c *Controller) CompleteProfile(u profile.Update) error {
	return c.complete(StepProfile, StepMain, u)
}

func (c *Controller) complete(from, to Step, u profile.Update) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.step != from || !from.Before(to) {
		c.mu.Unlock()
		return ErrStepMismatch
	}
	c.profile = c.profile.Merge(u)
	c.step = to
	c.mu.Unlock()

	c.notify(StepChange{From: from, To: to, Fields: u.Fields()})
	return nil
}

// ToggleTheme flips the theme flag and returns the new value.
func (c *Controller) ToggleTheme() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.darkMode = !c.darkMode
	return c.darkMode
}

// DarkMode reports the theme flag.
func (c *Controller) DarkMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.darkMode
}

// Close cancels a pending splash transition. Further transitions fail with
// ErrClosed.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	if c.splash != nil {
		c.splash.Stop()
	}
}

func (c *Controller) notify(change StepChange) {
	c.logger.Debug().
		Str("from", change.From.String()).
		Str("to", change.To.String()).
		Strs("fields", change.Fields).
		Msg("step changed")

	if c.onStepChange != nil {
		c.onStepChange(change)
	}
}
