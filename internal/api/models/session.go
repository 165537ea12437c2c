package models

import (
	"time"

	"github.com/atlastransit/atlas/internal/auth"
	"github.com/atlastransit/atlas/internal/dashboard"
	"github.com/atlastransit/atlas/internal/gateway"
	"github.com/atlastransit/atlas/internal/onboarding"
	"github.com/atlastransit/atlas/internal/profile"
)

// ScreenView is what the client renders. Exactly one of Login, Profile and
// Dashboard is set, matching Step; none is set on SPLASH.
type ScreenView struct {
	Step      onboarding.Step  `json:"step"`
	DarkMode  bool             `json:"darkMode"`
	Login     *auth.State      `json:"login,omitempty"`
	Profile   *ProfileFormView `json:"profile,omitempty"`
	Dashboard *dashboard.State `json:"dashboard,omitempty"`
}

// ProfileFormView describes the profile form.
type ProfileFormView struct {
	Genders       []string `json:"genders"`
	DefaultGender string   `json:"defaultGender"`
}

// CreateSessionResponse is returned by POST /v1/sessions.
type CreateSessionResponse struct {
	Token     string     `json:"token"`
	SessionID string     `json:"sessionId"`
	ExpiresAt Timestamp  `json:"expiresAt"`
	Screen    ScreenView `json:"screen"`
}

// ThemeResponse reports the theme flag after a toggle.
type ThemeResponse struct {
	DarkMode bool `json:"darkMode"`
}

// SetModeRequest switches the sign-in form copy.
type SetModeRequest struct {
	Mode auth.Mode `json:"mode"`
}

// CredentialsRequest submits the sign-in form.
type CredentialsRequest struct {
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Language string `json:"language,omitempty"`
}

// Credentials converts the request into sign-in credentials.
func (r CredentialsRequest) Credentials() auth.Credentials {
	return auth.Credentials{Phone: r.Phone, Email: r.Email, Language: r.Language}
}

// CodeSlotRequest writes one slot of the one-time code.
type CodeSlotRequest struct {
	Value string `json:"value"`
}

// CodeSlotResponse reports where focus moved after a slot write.
type CodeSlotResponse struct {
	Focus int        `json:"focus"`
	Login auth.State `json:"login"`
}

// VerifyCodeRequest optionally carries the whole code, replacing the slots.
type VerifyCodeRequest struct {
	Code string `json:"code,omitempty"`
}

// ProfileRequest submits the profile form.
type ProfileRequest struct {
	Name   string `json:"name"`
	Age    string `json:"age"`
	Gender string `json:"gender,omitempty"`
}

// Form converts the request into the onboarding profile form.
func (r ProfileRequest) Form() onboarding.ProfileForm {
	return onboarding.ProfileForm{Name: r.Name, Age: r.Age, Gender: r.Gender}
}

// TabRequest selects a bottom navigation tab.
type TabRequest struct {
	Tab dashboard.Tab `json:"tab"`
}

// ChatPanelRequest opens or closes the chat panel.
type ChatPanelRequest struct {
	Open bool `json:"open"`
}

// SearchFieldsRequest edits the route search fields. Absent fields are kept.
type SearchFieldsRequest struct {
	Pickup *string `json:"pickup,omitempty"`
	Drop   *string `json:"drop,omitempty"`
}

// LocateRequest reports the outcome of the device location lookup.
// Position is set on success; Error describes a failed lookup; both empty
// means the device has no location capability.
type LocateRequest struct {
	Position *gateway.Coordinates `json:"position,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// LocateResponse is returned after a location lookup was applied.
type LocateResponse struct {
	Located bool                  `json:"located"`
	Alert   string                `json:"alert,omitempty"`
	Search  dashboard.SearchState `json:"search"`
}

// SearchResponse is returned after a route search.
type SearchResponse struct {
	Started bool                  `json:"started"`
	Search  dashboard.SearchState `json:"search"`
}

// NearbyRequest optionally biases the nearby lookup to a position.
type NearbyRequest struct {
	Position *gateway.Coordinates `json:"position,omitempty"`
}

// ChatMessageRequest sends a chat message.
type ChatMessageRequest struct {
	Text string `json:"text"`
}

// ChatResponse is returned by the chat endpoints.
type ChatResponse struct {
	Sent bool                `json:"sent"`
	Chat dashboard.ChatState `json:"chat"`
}

// ProfileResponse is the dashboard's read-only profile.
type ProfileResponse struct {
	Profile     profile.UserProfile `json:"profile"`
	Greeting    string              `json:"greeting"`
	CompletedAt *time.Time          `json:"completedAt,omitempty"`
}

// SessionInfo summarises a session for GET /v1/session.
type SessionInfo struct {
	SessionID string     `json:"sessionId"`
	CreatedAt time.Time  `json:"createdAt"`
	Screen    ScreenView `json:"screen"`
}
