package gateway_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlastransit/atlas/internal/gateway"
)

// mockProvider returns canned answers and records its calls.
type mockProvider struct {
	mu      sync.Mutex
	answer  *gateway.Grounded
	err     error
	calls   []string
	lastAt  *gateway.Coordinates
	lastArg []string
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) record(op string, args ...string) (*gateway.Grounded, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, op)
	m.lastArg = args
	return m.answer, m.err
}

func (m *mockProvider) Routes(_ context.Context, pickup, drop string) (*gateway.Grounded, error) {
	return m.record("routes", pickup, drop)
}

func (m *mockProvider) Nearby(_ context.Context, query string, at *gateway.Coordinates) (*gateway.Grounded, error) {
	m.mu.Lock()
	m.lastAt = at
	m.mu.Unlock()
	return m.record("nearby", query)
}

func (m *mockProvider) Chat(_ context.Context, prompt string) (*gateway.Grounded, error) {
	return m.record("chat", prompt)
}

var fixedNow = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func newService(p gateway.Provider) *gateway.Service {
	return gateway.NewService(gateway.ServiceConfig{
		Provider: p,
		Logger:   zerolog.Nop(),
		Now:      func() time.Time { return fixedNow },
	})
}

const fiveRoutes = `[
 {"id":"1","busNumber":"65H","arrivalTime":"10:05","passingAreas":["Benz Circle"],"endDestination":"Guntur","duration":"1h","type":"Express","isLate":false,"baseFare":"₹90","provider":"APSRTC"},
 {"id":"2","busNumber":"Indra 12","arrivalTime":"10:20","passingAreas":[],"endDestination":"Guntur","duration":"55m","type":"Indra","isLate":true,"baseFare":"₹140","provider":"APSRTC",
  "schedule":[{"name":"Mangalagiri","time":"10:40","fareFromStart":"₹30"}]},
 {"id":"3","busNumber":"Palle Velugu 7","arrivalTime":"10:30","passingAreas":[],"endDestination":"Guntur","duration":"1h20m","type":"Palle Velugu","isLate":false,"baseFare":"₹60","provider":"APSRTC"},
 {"id":"4","busNumber":"Garuda 3","arrivalTime":"11:00","passingAreas":[],"endDestination":"Guntur","duration":"50m","type":"Garuda","isLate":false,"baseFare":"₹210","provider":"APSRTC"},
 {"id":"5","busNumber":"TS 9","arrivalTime":"11:15","passingAreas":[],"endDestination":"Guntur","duration":"1h","type":"Express","isLate":false,"baseFare":"₹95","provider":"TSRTC"}
]`

func TestFindRoutes_PreservesOrderAndStamps(t *testing.T) {
	p := &mockProvider{answer: &gateway.Grounded{
		Text: fiveRoutes,
		Web:  []gateway.Source{{Title: "APSRTC", URI: "https://apsrtc.ap.gov.in"}, {}},
		Maps: []gateway.Source{{Title: "ignored"}},
	}}
	svc := newService(p)

	routes := svc.FindRoutes(context.Background(), "Vijayawada", "Guntur")

	require.Len(t, routes, 5)
	for i, r := range routes {
		assert.Equal(t, string(rune('1'+i)), r.ID)
		require.NotNil(t, r.CurrentLocation)
		assert.Equal(t, gateway.FallbackLocation, *r.CurrentLocation)
		assert.Equal(t, []gateway.Source{{Title: "APSRTC", URI: "https://apsrtc.ap.gov.in"}, {}}, r.VerifiedSources,
			"route citations pass through untouched")
	}
	assert.True(t, routes[1].IsLate)
	assert.Equal(t, "Mangalagiri", routes[1].Schedule[0].Name)
	assert.Equal(t, []string{"Vijayawada", "Guntur"}, p.lastArg)
}

func TestFindRoutes_LocationsAreNotShared(t *testing.T) {
	svc := newService(&mockProvider{answer: &gateway.Grounded{Text: fiveRoutes}})

	routes := svc.FindRoutes(context.Background(), "A", "B")
	routes[0].CurrentLocation.Lat = 0

	assert.Equal(t, gateway.FallbackLocation.Lat, routes[1].CurrentLocation.Lat)
	assert.Equal(t, 15.9129, gateway.FallbackLocation.Lat)
}

func TestFindRoutes_Failures(t *testing.T) {
	tests := []struct {
		name     string
		provider *mockProvider
	}{
		{"provider error", &mockProvider{err: errors.New("quota exceeded")}},
		{"malformed json", &mockProvider{answer: &gateway.Grounded{Text: "Here are five buses:"}}},
		{"empty text", &mockProvider{answer: &gateway.Grounded{}}},
		{"nil answer", &mockProvider{}},
		{"null array", &mockProvider{answer: &gateway.Grounded{Text: "null"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			routes := newService(tt.provider).FindRoutes(context.Background(), "A", "B")
			assert.NotNil(t, routes)
			assert.Empty(t, routes)
		})
	}
}

func TestFindNearby(t *testing.T) {
	p := &mockProvider{answer: &gateway.Grounded{
		Text: "Pandit Nehru Bus Station is 2 km away.",
		Maps: []gateway.Source{{Title: "PNBS", URI: "https://maps.google.com/?cid=1"}, {}},
		Web:  []gateway.Source{{Title: "ignored"}},
	}}
	at := &gateway.Coordinates{Lat: 16.5, Lng: 80.6}

	info := newService(p).FindNearby(context.Background(), "APSRTC Bus Stands", at)

	assert.Equal(t, "Pandit Nehru Bus Station is 2 km away.", info.Text)
	assert.Equal(t, []gateway.Source{
		{Title: "PNBS", URI: "https://maps.google.com/?cid=1"},
		{Title: "Location", URI: "#"},
	}, info.Sources)
	assert.Equal(t, at, p.lastAt)
	assert.Equal(t, []string{"APSRTC Bus Stands"}, p.lastArg)
}

func TestFindNearby_Fallbacks(t *testing.T) {
	empty := newService(&mockProvider{answer: &gateway.Grounded{}}).FindNearby(context.Background(), "x", nil)
	assert.Equal(t, gateway.NearbyEmptyText, empty.Text)
	assert.Empty(t, empty.Sources)

	failed := newService(&mockProvider{err: errors.New("dns")}).FindNearby(context.Background(), "x", nil)
	assert.Equal(t, "Location services currently unavailable.", failed.Text)
	assert.NotNil(t, failed.Sources)
	assert.Empty(t, failed.Sources)
}

func TestChatReply(t *testing.T) {
	p := &mockProvider{answer: &gateway.Grounded{
		Text: "Bus 65H leaves every 15 minutes.",
		Web:  []gateway.Source{{URI: "https://apsrtc.ap.gov.in"}, {Title: "News"}},
	}}

	msg := newService(p).ChatReply(context.Background(), "  how often is 65H?")

	assert.Equal(t, gateway.RoleModel, msg.Role)
	assert.Equal(t, "Bus 65H leaves every 15 minutes.", msg.Text)
	assert.Equal(t, fixedNow, msg.Timestamp)
	assert.Equal(t, []gateway.Source{
		{Title: "Source", URI: "https://apsrtc.ap.gov.in"},
		{Title: "News", URI: "#"},
	}, msg.Sources)
	assert.Equal(t, []string{"  how often is 65H?"}, p.lastArg, "prompt is forwarded raw")
}

func TestChatReply_Fallbacks(t *testing.T) {
	empty := newService(&mockProvider{answer: &gateway.Grounded{}}).ChatReply(context.Background(), "hi")
	assert.Equal(t, gateway.RoleModel, empty.Role)
	assert.Equal(t, "I'm sorry, I couldn't find that information.", empty.Text)

	failed := newService(&mockProvider{err: context.DeadlineExceeded}).ChatReply(context.Background(), "hi")
	assert.Equal(t, gateway.RoleModel, failed.Role)
	assert.Equal(t, "Connectivity issues.", failed.Text)
	assert.Nil(t, failed.Sources)
	assert.Equal(t, fixedNow, failed.Timestamp)
}
