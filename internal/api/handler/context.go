package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/atlastransit/atlas/internal/api/middleware"
	"github.com/atlastransit/atlas/internal/api/models"
	"github.com/atlastransit/atlas/internal/api/response"
	"github.com/atlastransit/atlas/internal/auth"
	"github.com/atlastransit/atlas/internal/dashboard"
	"github.com/atlastransit/atlas/internal/session"
	"github.com/atlastransit/atlas/internal/validation"
)

// maxBodyBytes bounds request bodies. Every Atlas request is a small form.
const maxBodyBytes = 64 << 10

// ScreenView renders the session's current screen for the client.
func ScreenView(s *session.Session) models.ScreenView {
	current := s.Screen()
	view := models.ScreenView{Step: current.Step(), DarkMode: s.DarkMode()}

	switch screen := current.(type) {
	case session.LoginScreen:
		state := screen.Auth
		view.Login = &state
	case session.ProfileScreen:
		view.Profile = &models.ProfileFormView{
			Genders:       screen.Genders,
			DefaultGender: screen.DefaultGender,
		}
	case session.MainScreen:
		state := screen.Dashboard
		view.Dashboard = &state
		view.DarkMode = state.DarkMode
	}
	return view
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// currentSession returns the session resolved by the session middleware.
func currentSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s := middleware.GetSession(r.Context())
	if s == nil {
		response.Unauthorized(w, r, "missing session")
		return nil, false
	}
	return s, true
}

// writeError maps domain errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, s *session.Session, err error) {
	switch {
	case errors.Is(err, session.ErrWrongStep):
		response.WrongStep(w, r, "operation not available on the "+string(s.Step())+" screen", ScreenView(s))
	case errors.Is(err, session.ErrSessionClosed), errors.Is(err, dashboard.ErrClosed):
		response.NotFound(w, r, "session closed")
	case validation.Fields(err) != nil:
		response.ValidationFailed(w, r, err)
	case errors.Is(err, auth.ErrInvalidCode):
		detail := "Invalid OTP."
		if flow, ferr := s.Login(); ferr == nil && flow.ErrorMessage() != "" {
			detail = flow.ErrorMessage()
		}
		response.InvalidCode(w, r, detail, ScreenView(s))
	case errors.Is(err, auth.ErrIncompleteCode),
		errors.Is(err, auth.ErrCodeLength),
		errors.Is(err, auth.ErrInvalidMode),
		errors.Is(err, auth.ErrSlotOutOfRange),
		errors.Is(err, dashboard.ErrUnknownTab):
		response.BadRequest(w, r, err.Error(), nil)
	case errors.Is(err, auth.ErrNotVerifying),
		errors.Is(err, auth.ErrAlreadyVerifying),
		errors.Is(err, auth.ErrCompleted),
		errors.Is(err, auth.ErrBusy):
		response.Conflict(w, r, err.Error())
	default:
		logger.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Str("session_id", s.ID()).
			Msg("request failed")
		response.InternalError(w, r, "an unexpected error occurred")
	}
}
