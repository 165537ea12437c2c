package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/atlastransit/atlas/internal/api/models"
	"github.com/atlastransit/atlas/internal/api/response"
)

// LoginHandler drives the sign-in screen.
type LoginHandler struct {
	logger zerolog.Logger
}

// NewLoginHandler creates a new LoginHandler.
func NewLoginHandler(logger zerolog.Logger) *LoginHandler {
	return &LoginHandler{logger: logger}
}

// SetMode handles PUT /v1/session/login/mode.
func (h *LoginHandler) SetMode(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}

	var req models.SetModeRequest
	if err := decode(r, &req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}

	flow, err := s.Login()
	if err == nil {
		err = flow.SetMode(req.Mode)
	}
	if err != nil {
		writeError(w, r, h.logger, s, err)
		return
	}
	response.JSON(w, r, http.StatusOK, ScreenView(s))
}

// SubmitCredentials handles POST /v1/session/login/credentials. It returns
// once the code has been dispatched.
func (h *LoginHandler) SubmitCredentials(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}

	var req models.CredentialsRequest
	if err := decode(r, &req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}

	flow, err := s.Login()
	if err == nil {
		err = flow.SubmitCredentials(r.Context(), req.Credentials())
	}
	if err != nil {
		writeError(w, r, h.logger, s, err)
		return
	}
	response.JSON(w, r, http.StatusOK, ScreenView(s))
}

// SetCodeSlot handles PUT /v1/session/login/code/{slot}.
func (h *LoginHandler) SetCodeSlot(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}

	slot, err := strconv.Atoi(chi.URLParam(r, "slot"))
	if err != nil {
		response.BadRequest(w, r, "slot must be an integer", []models.FieldError{
			{Field: "slot", Message: "must be an integer", Code: "INVALID"},
		})
		return
	}

	var req models.CodeSlotRequest
	if err := decode(r, &req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}

	flow, err := s.Login()
	if err != nil {
		writeError(w, r, h.logger, s, err)
		return
	}
	focus, err := flow.SetCodeSlot(slot, req.Value)
	if err != nil {
		writeError(w, r, h.logger, s, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.CodeSlotResponse{Focus: focus, Login: flow.State()})
}

// VerifyCode handles POST /v1/session/login/code:verify. A code in the body
// replaces the slots first. Success moves the session to the profile screen.
func (h *LoginHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}

	var req models.VerifyCodeRequest
	if err := decode(r, &req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}

	if req.Code != "" {
		flow, err := s.Login()
		if err == nil {
			err = flow.EnterCode(req.Code)
		}
		if err != nil {
			writeError(w, r, h.logger, s, err)
			return
		}
	}

	if err := s.VerifyCode(r.Context()); err != nil {
		writeError(w, r, h.logger, s, err)
		return
	}
	response.JSON(w, r, http.StatusOK, ScreenView(s))
}

// Back handles POST /v1/session/login/back.
func (h *LoginHandler) Back(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}

	flow, err := s.Login()
	if err == nil {
		err = flow.Back()
	}
	if err != nil {
		writeError(w, r, h.logger, s, err)
		return
	}
	response.JSON(w, r, http.StatusOK, ScreenView(s))
}
