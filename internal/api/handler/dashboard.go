package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/atlastransit/atlas/internal/api/models"
	"github.com/atlastransit/atlas/internal/api/response"
	"github.com/atlastransit/atlas/internal/dashboard"
	"github.com/atlastransit/atlas/internal/gateway"
	"github.com/atlastransit/atlas/internal/session"
)

// LocationUnsupportedAlert is shown when the device has no location
// capability.
const LocationUnsupportedAlert = "Geolocation is not supported"

// DashboardHandler serves the main screen.
type DashboardHandler struct {
	logger zerolog.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{logger: logger}
}

// with resolves the session's dashboard and runs fn, mapping errors.
func (h *DashboardHandler) with(w http.ResponseWriter, r *http.Request, fn func(*session.Session, *dashboard.Dashboard)) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	d, err := s.Dashboard()
	if err != nil {
		writeError(w, r, h.logger, s, err)
		return
	}
	fn(s, d)
}

// Get handles GET /v1/session/dashboard.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.with(w, r, func(_ *session.Session, d *dashboard.Dashboard) {
		response.JSON(w, r, http.StatusOK, d.State())
	})
}

// SetTab handles PUT /v1/session/dashboard/tab. Entering Explore loads
// nearby info before responding.
func (h *DashboardHandler) SetTab(w http.ResponseWriter, r *http.Request) {
	var req models.TabRequest
	if err := decode(r, &req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}

	h.with(w, r, func(s *session.Session, d *dashboard.Dashboard) {
		if err := d.SetTab(r.Context(), req.Tab); err != nil {
			writeError(w, r, h.logger, s, err)
			return
		}
		response.JSON(w, r, http.StatusOK, d.State())
	})
}

// SetChatPanel handles PUT /v1/session/dashboard/chat-panel.
func (h *DashboardHandler) SetChatPanel(w http.ResponseWriter, r *http.Request) {
	var req models.ChatPanelRequest
	if err := decode(r, &req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}

	h.with(w, r, func(_ *session.Session, d *dashboard.Dashboard) {
		d.SetChatOpen(req.Open)
		response.JSON(w, r, http.StatusOK, d.State())
	})
}

// Profile handles GET /v1/session/dashboard/profile.
func (h *DashboardHandler) Profile(w http.ResponseWriter, r *http.Request) {
	h.with(w, r, func(s *session.Session, d *dashboard.Dashboard) {
		p := d.Profile()
		resp := models.ProfileResponse{
			Profile:  p,
			Greeting: dashboard.Greeting(p),
		}
		if at, ok := s.CompletedAt(r.Context()); ok {
			resp.CompletedAt = &at
		}
		response.JSON(w, r, http.StatusOK, resp)
	})
}

// SetSearch handles PUT /v1/session/dashboard/search.
func (h *DashboardHandler) SetSearch(w http.ResponseWriter, r *http.Request) {
	var req models.SearchFieldsRequest
	if err := decode(r, &req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}

	h.with(w, r, func(_ *session.Session, d *dashboard.Dashboard) {
		if req.Pickup != nil {
			d.Search().SetPickup(*req.Pickup)
		}
		if req.Drop != nil {
			d.Search().SetDrop(*req.Drop)
		}
		response.JSON(w, r, http.StatusOK, d.Search().State())
	})
}

// Swap handles POST /v1/session/dashboard/search:swap.
func (h *DashboardHandler) Swap(w http.ResponseWriter, r *http.Request) {
	h.with(w, r, func(_ *session.Session, d *dashboard.Dashboard) {
		d.Search().Swap()
		response.JSON(w, r, http.StatusOK, d.Search().State())
	})
}

// Locate handles POST /v1/session/dashboard/search:locate. The client
// performs the device lookup and reports its outcome.
func (h *DashboardHandler) Locate(w http.ResponseWriter, r *http.Request) {
	var req models.LocateRequest
	if err := decode(r, &req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}

	var loc dashboard.Locator
	switch {
	case req.Position != nil:
		loc = dashboard.StaticLocator{Position: *req.Position}
	case req.Error != "":
		lookupErr := errors.New(req.Error)
		loc = dashboard.LocatorFunc(func(context.Context) (gateway.Coordinates, error) {
			return gateway.Coordinates{}, lookupErr
		})
	}

	h.with(w, r, func(s *session.Session, d *dashboard.Dashboard) {
		located, err := d.Search().DetectLocation(r.Context(), loc)
		out := models.LocateResponse{Located: located}
		if errors.Is(err, dashboard.ErrLocationUnsupported) {
			out.Alert = LocationUnsupportedAlert
		} else if err != nil {
			writeError(w, r, h.logger, s, err)
			return
		}
		out.Search = d.Search().State()
		response.JSON(w, r, http.StatusOK, out)
	})
}

// RunSearch handles POST /v1/session/dashboard/search:run. It responds once
// the gateway answered; a blank field makes it a no-op.
func (h *DashboardHandler) RunSearch(w http.ResponseWriter, r *http.Request) {
	h.with(w, r, func(_ *session.Session, d *dashboard.Dashboard) {
		started := d.Search().Search(r.Context())
		response.JSON(w, r, http.StatusOK, models.SearchResponse{
			Started: started,
			Search:  d.Search().State(),
		})
	})
}

// LoadNearby handles POST /v1/session/dashboard/nearby:load.
func (h *DashboardHandler) LoadNearby(w http.ResponseWriter, r *http.Request) {
	var req models.NearbyRequest
	if err := decode(r, &req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}

	h.with(w, r, func(_ *session.Session, d *dashboard.Dashboard) {
		d.Nearby().Load(r.Context(), req.Position)
		response.JSON(w, r, http.StatusOK, d.Nearby().State())
	})
}

// GetChat handles GET /v1/session/dashboard/chat.
func (h *DashboardHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	h.with(w, r, func(_ *session.Session, d *dashboard.Dashboard) {
		response.JSON(w, r, http.StatusOK, d.Chat().State())
	})
}

// SendChat handles POST /v1/session/dashboard/chat/messages.
func (h *DashboardHandler) SendChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatMessageRequest
	if err := decode(r, &req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}

	h.with(w, r, func(_ *session.Session, d *dashboard.Dashboard) {
		sent := d.Chat().Send(r.Context(), req.Text)
		response.JSON(w, r, http.StatusOK, models.ChatResponse{
			Sent: sent,
			Chat: d.Chat().State(),
		})
	})
}
