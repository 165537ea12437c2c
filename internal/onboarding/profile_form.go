package onboarding

import (
	"github.com/atlastransit/atlas/internal/profile"
	"github.com/atlastransit/atlas/internal/validation"
)

// DefaultGender is preselected on the profile form.
const DefaultGender = "Male"

// Genders are the choices presented on the profile form. The set is open:
// other values are accepted.
var Genders = []string{"Male", "Female", "Other"}

// ProfileForm is the input of the profile collection screen.
type ProfileForm struct {
	Name   string `json:"name" validate:"required"`
	Age    string `json:"age" validate:"required,numeric"`
	Gender string `json:"gender"`
}

// Submit validates the form and returns its completion fields.
func (f ProfileForm) Submit() (profile.Update, error) {
	if f.Gender == "" {
		f.Gender = DefaultGender
	}
	if err := validation.Struct(f); err != nil {
		return profile.Update{}, err
	}

	return profile.Update{
		Name:   &f.Name,
		Age:    &f.Age,
		Gender: &f.Gender,
	}, nil
}
