// Package worker consumes Atlas domain events and keeps usage counters.
package worker

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/atlastransit/atlas/internal/events"
)

// DefaultTopCorridors is how many corridors a snapshot lists.
const DefaultTopCorridors = 10

// Corridor is a pickup/drop pair travellers searched for.
type Corridor struct {
	Pickup   string `json:"pickup"`
	Drop     string `json:"drop"`
	Searches int    `json:"searches"`
}

// StatsSnapshot is a point-in-time copy of the counters.
type StatsSnapshot struct {
	Processed      int                 `json:"processed"`
	Dropped        int                 `json:"dropped"`
	Rejected       int                 `json:"rejected"`
	ByType         map[events.Type]int `json:"byType"`
	Sessions       int                 `json:"sessions"`
	TopCorridors   []Corridor          `json:"topCorridors"`
	LastEventAt    *time.Time          `json:"lastEventAt,omitempty"`
	EmptyRouteRuns int                 `json:"emptyRouteRuns"`
}

// Stats aggregates processed events.
type Stats struct {
	top int

	mu          sync.Mutex
	processed   int
	dropped     int
	rejected    int
	byType      map[events.Type]int
	sessions    map[string]struct{}
	corridors   map[corridorKey]int
	emptyRoutes int
	lastEventAt time.Time
}

type corridorKey struct {
	pickup, drop string
}

// NewStats creates empty counters listing at most top corridors.
func NewStats(top int) *Stats {
	if top <= 0 {
		top = DefaultTopCorridors
	}
	return &Stats{
		top:       top,
		byType:    make(map[events.Type]int),
		sessions:  make(map[string]struct{}),
		corridors: make(map[corridorKey]int),
	}
}

// Record counts a known event.
func (s *Stats) Record(e events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.processed++
	s.byType[e.Type]++
	if e.SessionID != "" {
		s.sessions[e.SessionID] = struct{}{}
	}
	if e.OccurredAt.After(s.lastEventAt) {
		s.lastEventAt = e.OccurredAt
	}

	if e.Type == events.TypeRoutesSearched {
		key := corridorKey{
			pickup: normalizePlace(e.Attributes["pickup"]),
			drop:   normalizePlace(e.Attributes["drop"]),
		}
		if key.pickup != "" && key.drop != "" {
			s.corridors[key]++
		}
		if e.Attributes["results"] == "0" {
			s.emptyRoutes++
		}
	}
}

// Dropped counts a decodable message of an unknown type.
func (s *Stats) Dropped() {
	s.mu.Lock()
	s.dropped++
	s.mu.Unlock()
}

// Rejected counts an undecodable message.
func (s *Stats) Rejected() {
	s.mu.Lock()
	s.rejected++
	s.mu.Unlock()
}

// Snapshot copies the counters. Corridors are ordered by search count, then
// alphabetically.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	byType := make(map[events.Type]int, len(s.byType))
	for t, n := range s.byType {
		byType[t] = n
	}

	corridors := make([]Corridor, 0, len(s.corridors))
	for k, n := range s.corridors {
		corridors = append(corridors, Corridor{Pickup: k.pickup, Drop: k.drop, Searches: n})
	}
	sort.Slice(corridors, func(i, j int) bool {
		a, b := corridors[i], corridors[j]
		if a.Searches != b.Searches {
			return a.Searches > b.Searches
		}
		if a.Pickup != b.Pickup {
			return a.Pickup < b.Pickup
		}
		return a.Drop < b.Drop
	})
	if len(corridors) > s.top {
		corridors = corridors[:s.top]
	}

	snap := StatsSnapshot{
		Processed:      s.processed,
		Dropped:        s.dropped,
		Rejected:       s.rejected,
		ByType:         byType,
		Sessions:       len(s.sessions),
		TopCorridors:   corridors,
		EmptyRouteRuns: s.emptyRoutes,
	}
	if !s.lastEventAt.IsZero() {
		t := s.lastEventAt
		snap.LastEventAt = &t
	}
	return snap
}

func normalizePlace(p string) string {
	return strings.Join(strings.Fields(p), " ")
}
