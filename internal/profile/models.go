// Package profile holds the traveller profile collected during onboarding.
package profile

import "errors"

// DefaultLanguage is the language preselected on the login form.
const DefaultLanguage = "English"

// ErrProfileNotFound is returned when no profile is stored for a session.
var ErrProfileNotFound = errors.New("profile not found")

// Trip is one entry of a traveller's ride history.
type Trip struct {
	Date      string `json:"date"`
	Route     string `json:"route"`
	BusNumber string `json:"busNumber"`
}

// UserProfile is the identity and travel record of a traveller.
// Identity fields stay empty until the onboarding step that collects them
// completes.
type UserProfile struct {
	Name      string   `json:"name"`
	Age       string   `json:"age"`
	Gender    string   `json:"gender"`
	Email     string   `json:"email"`
	Phone     string   `json:"phone"`
	Language  string   `json:"language"`
	Favorites []string `json:"favorites"`
	History   []Trip   `json:"history"`
}

// SeededHistory returns the two history entries every new profile starts with.
func SeededHistory() []Trip {
	return []Trip{
		{Date: "2023-10-24", Route: "Delhi to Gurgaon", BusNumber: "HR-22C"},
		{Date: "2023-10-22", Route: "Jaipur to Delhi", BusNumber: "RJ-14X"},
	}
}

// New returns the profile an application starts with.
func New() UserProfile {
	return UserProfile{
		Language:  DefaultLanguage,
		Favorites: []string{},
		History:   SeededHistory(),
	}
}

// Clone returns a deep copy so callers can hand the profile out by value
// without sharing the backing slices.
func (p UserProfile) Clone() UserProfile {
	out := p
	out.Favorites = append([]string{}, p.Favorites...)
	out.History = append([]Trip{}, p.History...)
	return out
}

// DisplayName returns the name to greet the traveller with.
func (p UserProfile) DisplayName() string {
	if p.Name == "" {
		return "Traveler"
	}
	return p.Name
}

// Update is a partial profile emitted by an onboarding step.
// Nil fields are absent from the update.
type Update struct {
	Name     *string
	Age      *string
	Gender   *string
	Email    *string
	Phone    *string
	Language *string
}

// Merge applies u as a shallow override: present fields replace prior
// values, absent fields are left untouched.
func (p UserProfile) Merge(u Update) UserProfile {
	out := p.Clone()
	if u.Name != nil {
		out.Name = *u.Name
	}
	if u.Age != nil {
		out.Age = *u.Age
	}
	if u.Gender != nil {
		out.Gender = *u.Gender
	}
	if u.Email != nil {
		out.Email = *u.Email
	}
	if u.Phone != nil {
		out.Phone = *u.Phone
	}
	if u.Language != nil {
		out.Language = *u.Language
	}
	return out
}

// Fields reports which keys the update carries.
func (u Update) Fields() []string {
	var fields []string
	if u.Name != nil {
		fields = append(fields, "name")
	}
	if u.Age != nil {
		fields = append(fields, "age")
	}
	if u.Gender != nil {
		fields = append(fields, "gender")
	}
	if u.Email != nil {
		fields = append(fields, "email")
	}
	if u.Phone != nil {
		fields = append(fields, "phone")
	}
	if u.Language != nil {
		fields = append(fields, "language")
	}
	return fields
}
