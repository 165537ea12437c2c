package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/atlastransit/atlas/internal/profile"
	"github.com/atlastransit/atlas/internal/validation"
)

// FlowConfig holds configuration for the sign-in view.
type FlowConfig struct {
	// Verifier issues and checks codes. Default: DemoVerifier with DemoCode.
	Verifier Verifier

	// SendDelay is the simulated dispatch delay (default: 1.2s).
	SendDelay time.Duration

	// VerifyDelay is the simulated verification delay (default: 1.0s).
	VerifyDelay time.Duration

	Logger zerolog.Logger
}

// Flow is the sign-in view: a credentials form in LOGIN or SIGNUP copy,
// followed by one-time code entry in VERIFY.
type Flow struct {
	verifier    Verifier
	sendDelay   time.Duration
	verifyDelay time.Duration
	logger      zerolog.Logger

	mu        sync.Mutex
	mode      Mode
	loading   bool
	errMsg    string
	creds     Credentials
	entry     CodeEntry
	completed bool
}

// NewFlow creates a sign-in view in LOGIN mode.
func NewFlow(cfg FlowConfig) *Flow {
	verifier := cfg.Verifier
	if verifier == nil {
		verifier = NewDemoVerifier("")
	}

	sendDelay := cfg.SendDelay
	if sendDelay == 0 {
		sendDelay = DefaultSendDelay
	}

	verifyDelay := cfg.VerifyDelay
	if verifyDelay == 0 {
		verifyDelay = DefaultVerifyDelay
	}

	return &Flow{
		verifier:    verifier,
		sendDelay:   sendDelay,
		verifyDelay: verifyDelay,
		logger:      cfg.Logger,
		mode:        ModeLogin,
		creds:       Credentials{Language: profile.DefaultLanguage},
	}
}

// SetMode switches between the LOGIN and SIGNUP copy of the form.
func (f *Flow) SetMode(m Mode) error {
	if m != ModeLogin && m != ModeSignup {
		return ErrInvalidMode
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.mode == ModeVerify {
		return ErrAlreadyVerifying
	}
	f.mode = m
	return nil
}

// Back leaves code entry and returns to the SIGNUP form.
func (f *Flow) Back() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.mode != ModeVerify {
		return ErrNotVerifying
	}
	if f.loading {
		return ErrBusy
	}
	f.mode = ModeSignup
	f.errMsg = ""
	return nil
}

// SubmitCredentials captures the form, dispatches a code and moves to VERIFY
// after the send delay.
func (f *Flow) SubmitCredentials(ctx context.Context, c Credentials) error {
	if c.Language == "" {
		c.Language = profile.DefaultLanguage
	}
	if err := validation.Struct(c); err != nil {
		return err
	}

	f.mu.Lock()
	switch {
	case f.completed:
		f.mu.Unlock()
		return ErrCompleted
	case f.mode == ModeVerify:
		f.mu.Unlock()
		return ErrAlreadyVerifying
	case f.loading:
		f.mu.Unlock()
		return ErrBusy
	}
	f.loading = true
	f.errMsg = ""
	f.creds = c
	f.mu.Unlock()

	err := f.verifier.Send(ctx, c)
	if err == nil {
		err = wait(ctx, f.sendDelay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading = false
	if err != nil {
		f.logger.Warn().Err(err).Msg("one-time code dispatch failed")
		return fmt.Errorf("sending code: %w", err)
	}

	f.mode = ModeVerify
	f.entry = CodeEntry{}
	f.logger.Debug().Str("language", c.Language).Msg("one-time code requested")
	return nil
}

// SetCodeSlot writes one character of the code and returns the next focus.
func (f *Flow) SetCodeSlot(i int, value string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.mode != ModeVerify {
		return 0, ErrNotVerifying
	}
	return f.entry.Set(i, value)
}

// EnterCode replaces the slots with a whole code, one character per slot.
func (f *Flow) EnterCode(code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.mode != ModeVerify {
		return ErrNotVerifying
	}
	return f.entry.Fill(code)
}

// VerifyCode checks the entered code after the verify delay. On success it
// returns the captured credentials, which is the view's completion event.
// On a wrong code it sets a user-visible error, keeps the entered slots and
// stays in VERIFY so the traveller can retry indefinitely.
func (f *Flow) VerifyCode(ctx context.Context) (*Credentials, error) {
	f.mu.Lock()
	switch {
	case f.completed:
		f.mu.Unlock()
		return nil, ErrCompleted
	case f.mode != ModeVerify:
		f.mu.Unlock()
		return nil, ErrNotVerifying
	case f.loading:
		f.mu.Unlock()
		return nil, ErrBusy
	case !f.entry.Complete():
		f.mu.Unlock()
		return nil, ErrIncompleteCode
	}
	f.loading = true
	f.errMsg = ""
	code := f.entry.Code()
	creds := f.creds
	f.mu.Unlock()

	waitErr := wait(ctx, f.verifyDelay)

	var verifyErr error
	if waitErr == nil {
		verifyErr = f.verifier.Verify(ctx, creds, code)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading = false

	if waitErr != nil {
		return nil, waitErr
	}
	if verifyErr != nil {
		f.errMsg = f.rejectionMessage()
		if !errors.Is(verifyErr, ErrInvalidCode) {
			f.logger.Error().Err(verifyErr).Msg("one-time code verification failed")
			return nil, fmt.Errorf("verifying code: %w", verifyErr)
		}
		return nil, ErrInvalidCode
	}

	f.completed = true
	return &creds, nil
}

// State returns a snapshot of the view.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()

	return State{
		Mode:        f.mode,
		Loading:     f.loading,
		Error:       f.errMsg,
		Code:        f.entry.Slots(),
		Focus:       f.entry.Focus(),
		Credentials: f.creds,
		Languages:   append([]string{}, Languages...),
	}
}

// ErrorMessage returns the user-visible error, if any.
func (f *Flow) ErrorMessage() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errMsg
}

func (f *Flow) rejectionMessage() string {
	if m, ok := f.verifier.(interface{ RejectionMessage() string }); ok {
		return m.RejectionMessage()
	}
	return "Invalid OTP."
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
