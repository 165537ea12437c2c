// Package auth implements the phone/email sign-in view with its one-time
// code step. Code verification goes through a Verifier so the demo check can
// be replaced by a real issuer without touching the view's control flow.
package auth

import (
	"errors"
	"time"

	"github.com/atlastransit/atlas/internal/profile"
)

// Mode is the sub-state of the sign-in view.
type Mode string

const (
	ModeLogin  Mode = "LOGIN"
	ModeSignup Mode = "SIGNUP"
	ModeVerify Mode = "VERIFY"
)

// CodeLength is the number of slots in the one-time code entry.
const CodeLength = 6

// Default delays simulating the code dispatch and verification round trips.
const (
	DefaultSendDelay   = 1200 * time.Millisecond
	DefaultVerifyDelay = 1000 * time.Millisecond
)

// Languages lists the languages offered on the sign-in form.
var Languages = []string{"English", "Hindi", "Tamil", "Telugu", "Bengali", "Marathi", "Gujarati"}

// Predefined view errors.
var (
	ErrInvalidMode      = errors.New("mode must be LOGIN or SIGNUP")
	ErrNotVerifying     = errors.New("one-time code entry is not active")
	ErrAlreadyVerifying = errors.New("credentials already submitted")
	ErrBusy             = errors.New("a request is already in progress")
	ErrSlotOutOfRange   = errors.New("code slot out of range")
	ErrIncompleteCode   = errors.New("one-time code is incomplete")
	ErrCodeLength       = errors.New("one-time code must be exactly 6 characters")
	ErrInvalidCode      = errors.New("invalid one-time code")
	ErrCompleted        = errors.New("sign-in already completed")
)

// Credentials are the fields captured by the sign-in form.
type Credentials struct {
	Phone    string `json:"phone" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Language string `json:"language" validate:"required,oneof=English Hindi Tamil Telugu Bengali Marathi Gujarati"`
}

// ProfileUpdate returns the fields the sign-in view contributes to the
// traveller profile.
func (c Credentials) ProfileUpdate() profile.Update {
	return profile.Update{
		Phone:    &c.Phone,
		Email:    &c.Email,
		Language: &c.Language,
	}
}

// State is a snapshot of the sign-in view for rendering.
type State struct {
	Mode        Mode        `json:"mode"`
	Loading     bool        `json:"loading"`
	Error       string      `json:"error,omitempty"`
	Code        []string    `json:"code"`
	Focus       int         `json:"focus"`
	Credentials Credentials `json:"credentials"`
	Languages   []string    `json:"languages"`
}
