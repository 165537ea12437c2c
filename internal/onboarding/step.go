// Package onboarding sequences a new traveller through the splash, login and
// profile screens into the main dashboard and accumulates the profile fields
// each screen collects.
package onboarding

import "errors"

// Step is the screen the application is currently presenting.
type Step string

const (
	StepSplash  Step = "SPLASH"
	StepLogin   Step = "LOGIN"
	StepProfile Step = "PROFILE"
	StepMain    Step = "MAIN"
)

// Predefined controller errors.
var (
	ErrStepMismatch = errors.New("operation not allowed in the current step")
	ErrClosed       = errors.New("controller closed")
)

// order ranks steps so transitions can be checked to move forward only.
var order = map[Step]int{
	StepSplash:  0,
	StepLogin:   1,
	StepProfile: 2,
	StepMain:    3,
}

// Before reports whether s comes strictly before other.
func (s Step) Before(other Step) bool {
	return order[s] < order[other]
}

// Terminal reports whether no further transitions leave s.
func (s Step) Terminal() bool {
	return s == StepMain
}

func (s Step) String() string {
	return string(s)
}
