package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
)

// DemoCode is the only code the demo verifier accepts.
const DemoCode = "123456"

// Verifier issues and checks one-time codes.
type Verifier interface {
	// Send dispatches a code to the traveller identified by c.
	Send(ctx context.Context, c Credentials) error

	// Verify checks code for c. Returns ErrInvalidCode on mismatch.
	Verify(ctx context.Context, c Credentials, code string) error
}

// DemoVerifier accepts a single fixed code and sends nothing.
// It performs no real authentication.
type DemoVerifier struct {
	code string
}

// NewDemoVerifier creates a verifier accepting code, or DemoCode when empty.
func NewDemoVerifier(code string) *DemoVerifier {
	if code == "" {
		code = DemoCode
	}
	return &DemoVerifier{code: code}
}

// Send is a no-op.
func (v *DemoVerifier) Send(_ context.Context, _ Credentials) error {
	return nil
}

// Verify compares code against the fixed demo code.
func (v *DemoVerifier) Verify(_ context.Context, _ Credentials, code string) error {
	if subtle.ConstantTimeCompare([]byte(code), []byte(v.code)) != 1 {
		return ErrInvalidCode
	}
	return nil
}

// RejectionMessage is the user-visible text shown after a wrong code.
func (v *DemoVerifier) RejectionMessage() string {
	return fmt.Sprintf("Invalid OTP. For demo purposes, use %s.", v.code)
}

var _ Verifier = (*DemoVerifier)(nil)
