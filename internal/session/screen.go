package session

import (
	"github.com/atlastransit/atlas/internal/auth"
	"github.com/atlastransit/atlas/internal/dashboard"
	"github.com/atlastransit/atlas/internal/onboarding"
)

// Screen is the view a session currently presents. It is one of
// SplashScreen, LoginScreen, ProfileScreen or MainScreen.
type Screen interface {
	Step() onboarding.Step
	screen()
}

// SplashScreen is shown while the application starts.
type SplashScreen struct{}

// LoginScreen is the phone/email sign-in with its one-time code entry.
type LoginScreen struct {
	Auth auth.State
}

// ProfileScreen collects name, age and gender.
type ProfileScreen struct {
	Genders       []string
	DefaultGender string
}

// MainScreen is the dashboard.
type MainScreen struct {
	Dashboard dashboard.State
}

func (SplashScreen) Step() onboarding.Step  { return onboarding.StepSplash }
func (LoginScreen) Step() onboarding.Step   { return onboarding.StepLogin }
func (ProfileScreen) Step() onboarding.Step { return onboarding.StepProfile }
func (MainScreen) Step() onboarding.Step    { return onboarding.StepMain }

func (SplashScreen) screen()  {}
func (LoginScreen) screen()   {}
func (ProfileScreen) screen() {}
func (MainScreen) screen()    {}
