// Package dashboard implements the main screen: route search, the nearby
// explorer, the profile tab and the chat assistant. All AI content comes
// through a Gateway, whose calls never fail outward.
package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/atlastransit/atlas/internal/gateway"
	"github.com/atlastransit/atlas/internal/profile"
)

// Predefined dashboard errors.
var (
	ErrUnknownTab = errors.New("unknown tab")
	ErrClosed     = errors.New("dashboard closed")
)

// Gateway supplies the AI content of the dashboard.
type Gateway interface {
	FindRoutes(ctx context.Context, pickup, drop string) []gateway.BusRoute
	FindNearby(ctx context.Context, topic string, at *gateway.Coordinates) gateway.NearbyInfo
	ChatReply(ctx context.Context, prompt string) gateway.Message
}

// Tab is a bottom navigation entry.
type Tab string

const (
	TabHome    Tab = "Home"
	TabExplore Tab = "Explore"
	TabProfile Tab = "Profile"
)

// Valid reports whether t is a known tab.
func (t Tab) Valid() bool {
	return t == TabHome || t == TabExplore || t == TabProfile
}

// ActivityKind names something the traveller did on the dashboard.
type ActivityKind string

const (
	ActivityRoutesSearched ActivityKind = "routes.searched"
	ActivityNearbyLoaded   ActivityKind = "nearby.loaded"
	ActivityChatReplied    ActivityKind = "chat.replied"
)

// Activity is reported after a gateway answer was applied.
type Activity struct {
	Kind       ActivityKind
	Attributes map[string]string
}

// Config holds configuration for a dashboard.
type Config struct {
	// Profile is copied; the dashboard never writes it back.
	Profile profile.UserProfile

	// Gateway supplies routes, nearby info and chat replies (required).
	Gateway Gateway

	// ToggleTheme flips the theme flag owned by the caller and returns the
	// new value. DarkMode reads it.
	ToggleTheme func() bool
	DarkMode    func() bool

	// OnActivity, when set, observes applied gateway answers.
	OnActivity func(Activity)

	Logger zerolog.Logger

	// Now stamps chat messages. Default: time.Now.
	Now func() time.Time
}

// State is a snapshot of the whole dashboard.
type State struct {
	Tab      Tab                 `json:"tab"`
	ChatOpen bool                `json:"chatOpen"`
	DarkMode bool                `json:"darkMode"`
	Profile  profile.UserProfile `json:"profile"`
	Search   SearchState         `json:"search"`
	Nearby   NearbyState         `json:"nearby"`
	Chat     ChatState           `json:"chat"`
}

// lifecycle is shared by the sub-views so answers arriving after Close are
// dropped.
type lifecycle struct {
	done atomic.Bool
}

func (l *lifecycle) closed() bool {
	return l.done.Load()
}

// Dashboard is the terminal screen of the application.
type Dashboard struct {
	profile     profile.UserProfile
	toggleTheme func() bool
	darkMode    func() bool
	life        *lifecycle

	search *RouteSearch
	nearby *NearbyExplorer
	chat   *Chat

	mu       sync.Mutex
	tab      Tab
	chatOpen bool
}

// New creates a dashboard on the Home tab with the chat panel closed.
func New(cfg Config) *Dashboard {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	activity := cfg.OnActivity
	if activity == nil {
		activity = func(Activity) {}
	}

	var (
		themeMu sync.Mutex
		theme   bool
	)
	toggle := cfg.ToggleTheme
	if toggle == nil {
		toggle = func() bool {
			themeMu.Lock()
			defer themeMu.Unlock()
			theme = !theme
			return theme
		}
	}
	dark := cfg.DarkMode
	if dark == nil {
		dark = func() bool {
			themeMu.Lock()
			defer themeMu.Unlock()
			return theme
		}
	}

	life := &lifecycle{}
	p := cfg.Profile.Clone()

	return &Dashboard{
		profile:     p,
		toggleTheme: toggle,
		darkMode:    dark,
		life:        life,
		search:      newRouteSearch(cfg.Gateway, life, cfg.Logger.With().Str("panel", "search").Logger(), activity),
		nearby:      newNearbyExplorer(cfg.Gateway, life, cfg.Logger.With().Str("panel", "nearby").Logger(), activity),
		chat:        newChat(cfg.Gateway, life, cfg.Logger.With().Str("panel", "chat").Logger(), activity, now, p),
		tab:         TabHome,
	}
}

// Search returns the route search panel.
func (d *Dashboard) Search() *RouteSearch { return d.search }

// Nearby returns the Explore tab.
func (d *Dashboard) Nearby() *NearbyExplorer { return d.nearby }

// Chat returns the chat assistant.
func (d *Dashboard) Chat() *Chat { return d.chat }

// Profile returns a copy of the traveller profile shown on the Profile tab.
func (d *Dashboard) Profile() profile.UserProfile {
	return d.profile.Clone()
}

// Tab returns the active tab.
func (d *Dashboard) Tab() Tab {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tab
}

// SetTab activates t. Switching to Explore from another tab loads nearby
// information before returning.
func (d *Dashboard) SetTab(ctx context.Context, t Tab) error {
	if !t.Valid() {
		return ErrUnknownTab
	}
	if d.life.closed() {
		return ErrClosed
	}

	d.mu.Lock()
	activated := t == TabExplore && d.tab != TabExplore
	d.tab = t
	d.mu.Unlock()

	if activated {
		d.nearby.Load(ctx, nil)
	}
	return nil
}

// SetChatOpen opens or closes the chat panel. The transcript survives.
func (d *Dashboard) SetChatOpen(open bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.chatOpen = open
}

// ToggleTheme flips the shared theme flag and returns the new value.
func (d *Dashboard) ToggleTheme() bool {
	return d.toggleTheme()
}

// State returns a snapshot of the dashboard.
func (d *Dashboard) State() State {
	d.mu.Lock()
	tab, chatOpen := d.tab, d.chatOpen
	d.mu.Unlock()

	return State{
		Tab:      tab,
		ChatOpen: chatOpen,
		DarkMode: d.darkMode(),
		Profile:  d.Profile(),
		Search:   d.search.State(),
		Nearby:   d.nearby.State(),
		Chat:     d.chat.State(),
	}
}

// Close tears the dashboard down. Gateway answers that resolve afterwards
// are discarded.
func (d *Dashboard) Close() {
	d.life.done.Store(true)
}

// Closed reports whether Close was called.
func (d *Dashboard) Closed() bool {
	return d.life.closed()
}
