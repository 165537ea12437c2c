package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlastransit/atlas/internal/auth"
	"github.com/atlastransit/atlas/internal/dashboard"
	"github.com/atlastransit/atlas/internal/events"
	"github.com/atlastransit/atlas/internal/gateway"
	"github.com/atlastransit/atlas/internal/onboarding"
	"github.com/atlastransit/atlas/internal/profile"
	"github.com/atlastransit/atlas/internal/session"
)

type stubGateway struct{}

func (stubGateway) FindRoutes(_ context.Context, pickup, drop string) []gateway.BusRoute {
	return []gateway.BusRoute{{ID: "r1", BusNumber: "AP-28Z-1234", PassingAreas: []string{pickup}, EndDestination: drop, Type: "Express"}}
}

func (stubGateway) FindNearby(context.Context, string, *gateway.Coordinates) gateway.NearbyInfo {
	return gateway.NearbyInfo{Text: "Pandit Nehru Bus Station"}
}

func (stubGateway) ChatReply(context.Context, string) gateway.Message {
	return gateway.Message{Role: gateway.RoleModel, Text: "Hello"}
}

func testConfig(rec *events.Recorder, repo profile.Repository) session.Config {
	return session.Config{
		SplashDelay: 5 * time.Millisecond,
		Auth: auth.FlowConfig{
			SendDelay:   time.Millisecond,
			VerifyDelay: time.Millisecond,
		},
		Gateway:   stubGateway{},
		Profiles:  repo,
		Publisher: rec,
		Logger:    zerolog.Nop(),
	}
}

func waitForStep(t *testing.T, s *session.Session, step onboarding.Step) {
	t.Helper()
	require.Eventually(t, func() bool { return s.Step() == step }, time.Second, time.Millisecond)
}

func signIn(t *testing.T, s *session.Session) {
	t.Helper()
	ctx := context.Background()

	waitForStep(t, s, onboarding.StepLogin)
	flow, err := s.Login()
	require.NoError(t, err)
	require.NoError(t, flow.SubmitCredentials(ctx, auth.Credentials{
		Phone: "9876543210",
		Email: "ravi@example.com",
	}))
	require.NoError(t, flow.EnterCode(auth.DemoCode))
	require.NoError(t, s.VerifyCode(ctx))
}

func TestSession_StartsOnSplash(t *testing.T) {
	s := session.New("ses_1", session.Config{
		SplashDelay: time.Hour,
		Gateway:     stubGateway{},
		Logger:      zerolog.Nop(),
	})
	defer s.Close(context.Background())

	assert.Equal(t, "ses_1", s.ID())
	assert.Equal(t, onboarding.StepSplash, s.Step())
	assert.IsType(t, session.SplashScreen{}, s.Screen())
	assert.Equal(t, onboarding.StepSplash, s.Screen().Step())
}

func TestSession_WrongStepOperations(t *testing.T) {
	s := session.New("ses_1", session.Config{
		SplashDelay: time.Hour,
		Gateway:     stubGateway{},
		Logger:      zerolog.Nop(),
	})
	defer s.Close(context.Background())

	_, err := s.Login()
	assert.ErrorIs(t, err, session.ErrWrongStep)

	err = s.SubmitProfile(context.Background(), onboarding.ProfileForm{Name: "Ravi", Age: "30"})
	assert.ErrorIs(t, err, session.ErrWrongStep)

	_, err = s.Dashboard()
	assert.ErrorIs(t, err, session.ErrWrongStep)
}

func TestSession_FullOnboarding(t *testing.T) {
	rec := &events.Recorder{}
	repo := profile.NewInMemoryRepository()
	s := session.New("ses_1", testConfig(rec, repo))
	defer s.Close(context.Background())

	signIn(t, s)
	assert.Equal(t, onboarding.StepProfile, s.Step())

	screen, ok := s.Screen().(session.ProfileScreen)
	require.True(t, ok)
	assert.Equal(t, onboarding.DefaultGender, screen.DefaultGender)
	assert.Equal(t, []string{"Male", "Female", "Other"}, screen.Genders)

	err := s.SubmitProfile(context.Background(), onboarding.ProfileForm{Name: "Ravi", Age: "30", Gender: "Male"})
	require.NoError(t, err)
	assert.Equal(t, onboarding.StepMain, s.Step())

	main, ok := s.Screen().(session.MainScreen)
	require.True(t, ok)
	assert.Equal(t, dashboard.TabHome, main.Dashboard.Tab)
	assert.Equal(t, "Ravi", main.Dashboard.Profile.Name)
	assert.Equal(t, "9876543210", main.Dashboard.Profile.Phone)
	assert.Equal(t, "ravi@example.com", main.Dashboard.Profile.Email)
	assert.Equal(t, profile.DefaultLanguage, main.Dashboard.Profile.Language)

	rec1, err := repo.Get(context.Background(), "ses_1")
	require.NoError(t, err)
	assert.Equal(t, "Ravi", rec1.Profile.Name)

	assert.Equal(t, []events.Type{
		events.TypeSessionStarted,
		events.TypeStepChanged,
		events.TypeStepChanged,
		events.TypeStepChanged,
	}, rec.Types())

	last := rec.Events()[3]
	assert.Equal(t, "PROFILE", last.Attributes["from"])
	assert.Equal(t, "MAIN", last.Attributes["to"])
	assert.Equal(t, "set", last.Attributes["field.name"])
}

func TestSession_CompletedAt(t *testing.T) {
	repo := profile.NewInMemoryRepository()
	s := session.New("ses_1", testConfig(&events.Recorder{}, repo))
	defer s.Close(context.Background())

	_, ok := s.CompletedAt(context.Background())
	assert.False(t, ok, "nothing recorded before onboarding finishes")

	signIn(t, s)
	require.NoError(t, s.SubmitProfile(context.Background(), onboarding.ProfileForm{Name: "Ravi", Age: "30", Gender: "Male"}))

	at, ok := s.CompletedAt(context.Background())
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), at, time.Minute)

	noRepo := session.New("ses_2", testConfig(&events.Recorder{}, nil))
	defer noRepo.Close(context.Background())
	_, ok = noRepo.CompletedAt(context.Background())
	assert.False(t, ok)
}

func TestSession_InvalidProfileStaysOnProfile(t *testing.T) {
	s := session.New("ses_1", testConfig(&events.Recorder{}, nil))
	defer s.Close(context.Background())

	signIn(t, s)

	err := s.SubmitProfile(context.Background(), onboarding.ProfileForm{Name: "Ravi", Age: "thirty"})
	require.Error(t, err)
	assert.Equal(t, onboarding.StepProfile, s.Step())

	_, err = s.Dashboard()
	assert.ErrorIs(t, err, session.ErrWrongStep)
}

func TestSession_WrongCodeStaysOnLogin(t *testing.T) {
	s := session.New("ses_1", testConfig(&events.Recorder{}, nil))
	defer s.Close(context.Background())
	ctx := context.Background()

	waitForStep(t, s, onboarding.StepLogin)
	flow, err := s.Login()
	require.NoError(t, err)
	require.NoError(t, flow.SubmitCredentials(ctx, auth.Credentials{Phone: "1", Email: "a@b.in"}))
	require.NoError(t, flow.EnterCode("000000"))

	err = s.VerifyCode(ctx)
	assert.ErrorIs(t, err, auth.ErrInvalidCode)
	assert.Equal(t, onboarding.StepLogin, s.Step())

	screen, ok := s.Screen().(session.LoginScreen)
	require.True(t, ok)
	assert.Equal(t, "Invalid OTP. For demo purposes, use 123456.", screen.Auth.Error)
}

func TestSession_DashboardActivityPublished(t *testing.T) {
	rec := &events.Recorder{}
	s := session.New("ses_1", testConfig(rec, nil))
	defer s.Close(context.Background())

	signIn(t, s)
	require.NoError(t, s.SubmitProfile(context.Background(), onboarding.ProfileForm{Name: "Ravi", Age: "30"}))

	dash, err := s.Dashboard()
	require.NoError(t, err)
	dash.Search().SetDrop("Vijayawada")
	assert.True(t, dash.Search().Search(context.Background()))

	types := rec.Types()
	assert.Equal(t, events.TypeRoutesSearched, types[len(types)-1])
}

func TestSession_ThemeSharedWithDashboard(t *testing.T) {
	s := session.New("ses_1", testConfig(&events.Recorder{}, nil))
	defer s.Close(context.Background())

	assert.True(t, s.ToggleTheme())

	signIn(t, s)
	require.NoError(t, s.SubmitProfile(context.Background(), onboarding.ProfileForm{Name: "Ravi", Age: "30"}))

	dash, err := s.Dashboard()
	require.NoError(t, err)
	assert.True(t, dash.State().DarkMode)

	assert.False(t, dash.ToggleTheme())
	assert.False(t, s.DarkMode())
}

func TestSession_Close(t *testing.T) {
	rec := &events.Recorder{}
	s := session.New("ses_1", testConfig(rec, nil))

	signIn(t, s)
	require.NoError(t, s.SubmitProfile(context.Background(), onboarding.ProfileForm{Name: "Ravi", Age: "30"}))
	dash, err := s.Dashboard()
	require.NoError(t, err)

	s.Close(context.Background())
	s.Close(context.Background())

	assert.True(t, s.Closed())
	assert.True(t, dash.Closed())

	_, err = s.Dashboard()
	assert.ErrorIs(t, err, session.ErrSessionClosed)

	types := rec.Types()
	assert.Equal(t, events.TypeSessionClosed, types[len(types)-1])
	assert.Equal(t, 1, countType(types, events.TypeSessionClosed))
}

func TestSession_CloseDuringSplash(t *testing.T) {
	s := session.New("ses_1", testConfig(&events.Recorder{}, nil))
	s.Close(context.Background())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, onboarding.StepSplash, s.Step())

	_, err := s.Login()
	assert.ErrorIs(t, err, session.ErrSessionClosed)
}

func countType(types []events.Type, t events.Type) int {
	n := 0
	for _, v := range types {
		if v == t {
			n++
		}
	}
	return n
}
