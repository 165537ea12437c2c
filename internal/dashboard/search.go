package dashboard

import (
	"context"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/atlastransit/atlas/internal/gateway"
)

// DefaultPickup is the pickup placeholder meaning the current location.
const DefaultPickup = "My Location"

// SearchState is a snapshot of the route search panel.
type SearchState struct {
	Pickup    string             `json:"pickup"`
	Drop      string             `json:"drop"`
	Results   []gateway.BusRoute `json:"results"`
	Searching bool               `json:"searching"`
	Locating  bool               `json:"locating"`
}

// RouteSearch holds the pickup and drop fields and the latest result set.
//
// Overlapping searches are resolved latest-issued-wins: every search takes a
// sequence number and only the most recently issued one may apply its
// results and clear the in-flight flag.
type RouteSearch struct {
	gateway  Gateway
	life     *lifecycle
	logger   zerolog.Logger
	activity func(Activity)

	mu        sync.Mutex
	pickup    string
	drop      string
	results   []gateway.BusRoute
	searching bool
	locating  bool
	seq       uint64
}

func newRouteSearch(gw Gateway, life *lifecycle, logger zerolog.Logger, activity func(Activity)) *RouteSearch {
	return &RouteSearch{
		gateway:  gw,
		life:     life,
		logger:   logger,
		activity: activity,
		pickup:   DefaultPickup,
		results:  []gateway.BusRoute{},
	}
}

// State returns a snapshot of the panel.
func (s *RouteSearch) State() SearchState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return SearchState{
		Pickup:    s.pickup,
		Drop:      s.drop,
		Results:   append([]gateway.BusRoute{}, s.results...),
		Searching: s.searching,
		Locating:  s.locating,
	}
}

// SetPickup replaces the pickup text.
func (s *RouteSearch) SetPickup(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pickup = v
}

// SetDrop replaces the drop text.
func (s *RouteSearch) SetDrop(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drop = v
}

// Swap exchanges pickup and drop in one update.
func (s *RouteSearch) Swap() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pickup, s.drop = s.drop, s.pickup
}

// DetectLocation overwrites pickup with the formatted current position.
// A nil locator returns ErrLocationUnsupported. Locator failures are logged
// and leave pickup unchanged; located reports whether pickup was replaced.
func (s *RouteSearch) DetectLocation(ctx context.Context, loc Locator) (located bool, err error) {
	if loc == nil {
		return false, ErrLocationUnsupported
	}

	s.mu.Lock()
	s.locating = true
	s.mu.Unlock()

	pos, err := loc.CurrentPosition(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.locating = false

	if err != nil {
		s.logger.Warn().Err(err).Msg("location lookup failed")
		return false, nil
	}
	if s.life.closed() {
		return false, nil
	}

	s.pickup = FormatCoordinates(pos)
	return true, nil
}

// Search asks the gateway for routes between pickup and drop and replaces
// the result set. It does nothing unless both fields are non-empty and
// reports whether a request was issued.
func (s *RouteSearch) Search(ctx context.Context) bool {
	s.mu.Lock()
	if s.pickup == "" || s.drop == "" {
		s.mu.Unlock()
		return false
	}
	s.seq++
	id := s.seq
	pickup, drop := s.pickup, s.drop
	s.searching = true
	s.mu.Unlock()

	// A client abort is not a gateway failure; the results still apply.
	routes := s.gateway.FindRoutes(context.WithoutCancel(ctx), pickup, drop)

	s.mu.Lock()
	if s.life.closed() {
		s.mu.Unlock()
		s.logger.Debug().Uint64("search", id).Msg("dashboard closed, dropping route results")
		return true
	}
	if id != s.seq {
		latest := s.seq
		s.mu.Unlock()
		s.logger.Debug().Uint64("search", id).Uint64("latest", latest).Msg("superseded route results dropped")
		return true
	}
	s.results = routes
	s.searching = false
	s.mu.Unlock()

	s.activity(Activity{
		Kind: ActivityRoutesSearched,
		Attributes: map[string]string{
			"pickup":  pickup,
			"drop":    drop,
			"results": strconv.Itoa(len(routes)),
		},
	})
	return true
}
