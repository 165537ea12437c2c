package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/atlastransit/atlas/internal/api/models"
	"github.com/atlastransit/atlas/internal/api/response"
)

// ProfileHandler handles the profile collection screen.
type ProfileHandler struct {
	logger zerolog.Logger
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(logger zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{logger: logger}
}

// Submit handles POST /v1/session/profile. Success opens the dashboard.
func (h *ProfileHandler) Submit(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}

	var req models.ProfileRequest
	if err := decode(r, &req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}

	if err := s.SubmitProfile(r.Context(), req.Form()); err != nil {
		writeError(w, r, h.logger, s, err)
		return
	}
	response.JSON(w, r, http.StatusOK, ScreenView(s))
}
