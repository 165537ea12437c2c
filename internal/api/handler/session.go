package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/atlastransit/atlas/internal/api/models"
	"github.com/atlastransit/atlas/internal/api/response"
	"github.com/atlastransit/atlas/internal/session"
)

// SessionHandler creates, inspects and ends sessions.
type SessionHandler struct {
	store  *session.Store
	tokens *session.TokenService
	logger zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(store *session.Store, tokens *session.TokenService, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{store: store, tokens: tokens, logger: logger}
}

// Create handles POST /v1/sessions.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	s := h.store.Create()

	token, expiresAt, err := h.tokens.Issue(s.ID())
	if err != nil {
		_ = h.store.Delete(r.Context(), s.ID())
		h.logger.Error().Err(err).Msg("failed to issue session token")
		response.InternalError(w, r, "could not start a session")
		return
	}

	response.Created(w, r, "/v1/session", models.CreateSessionResponse{
		Token:     token,
		SessionID: s.ID(),
		ExpiresAt: models.Timestamp(expiresAt),
		Screen:    ScreenView(s),
	})
}

// Get handles GET /v1/session.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	response.JSON(w, r, http.StatusOK, models.SessionInfo{
		SessionID: s.ID(),
		CreatedAt: s.CreatedAt(),
		Screen:    ScreenView(s),
	})
}

// Delete handles DELETE /v1/session.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	if err := h.store.Delete(r.Context(), s.ID()); err != nil {
		response.NotFound(w, r, "session not found or expired")
		return
	}
	response.NoContent(w, r)
}

// ToggleTheme handles POST /v1/session/theme:toggle. It is offered on every
// screen.
func (h *SessionHandler) ToggleTheme(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	response.JSON(w, r, http.StatusOK, models.ThemeResponse{DarkMode: s.ToggleTheme()})
}
