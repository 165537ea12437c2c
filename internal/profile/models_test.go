package profile_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlastransit/atlas/internal/profile"
)

func strPtr(s string) *string { return &s }

func TestNew(t *testing.T) {
	p := profile.New()

	assert.Empty(t, p.Name)
	assert.Empty(t, p.Age)
	assert.Empty(t, p.Gender)
	assert.Empty(t, p.Email)
	assert.Empty(t, p.Phone)
	assert.Equal(t, "English", p.Language)
	assert.NotNil(t, p.Favorites)
	assert.Empty(t, p.Favorites)
	require.Len(t, p.History, 2)
	assert.Equal(t, profile.Trip{Date: "2023-10-24", Route: "Delhi to Gurgaon", BusNumber: "HR-22C"}, p.History[0])
	assert.Equal(t, profile.Trip{Date: "2023-10-22", Route: "Jaipur to Delhi", BusNumber: "RJ-14X"}, p.History[1])
}

func TestMerge_OverridesOnlyPresentFields(t *testing.T) {
	p := profile.New()

	p = p.Merge(profile.Update{
		Phone:    strPtr("9999999999"),
		Email:    strPtr("a@b.com"),
		Language: strPtr("Hindi"),
	})
	p = p.Merge(profile.Update{
		Name:   strPtr("Asha"),
		Age:    strPtr("30"),
		Gender: strPtr("Female"),
	})

	assert.Equal(t, "Asha", p.Name)
	assert.Equal(t, "30", p.Age)
	assert.Equal(t, "Female", p.Gender)
	assert.Equal(t, "9999999999", p.Phone)
	assert.Equal(t, "a@b.com", p.Email)
	assert.Equal(t, "Hindi", p.Language)
	assert.Len(t, p.History, 2)
}

func TestMerge_EmptyValueIsStillPresent(t *testing.T) {
	p := profile.New().Merge(profile.Update{Phone: strPtr("123")})
	p = p.Merge(profile.Update{Phone: strPtr("")})

	assert.Empty(t, p.Phone)
}

func TestMerge_DoesNotAliasInput(t *testing.T) {
	original := profile.New()
	merged := original.Merge(profile.Update{Name: strPtr("Ravi")})

	merged.History[0].Route = "changed"
	merged.Favorites = append(merged.Favorites, "65H")

	assert.Equal(t, "Delhi to Gurgaon", original.History[0].Route)
	assert.Empty(t, original.Favorites)
	assert.Empty(t, original.Name)
}

func TestUpdate_Fields(t *testing.T) {
	u := profile.Update{Email: strPtr("x@y.z"), Language: strPtr("Tamil")}
	assert.Equal(t, []string{"email", "language"}, u.Fields())
	assert.Empty(t, profile.Update{}.Fields())
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Traveler", profile.New().DisplayName())
	assert.Equal(t, "Asha", profile.UserProfile{Name: "Asha"}.DisplayName())
}

func TestInMemoryRepository(t *testing.T) {
	repo := profile.NewInMemoryRepository()
	ctx := context.Background()

	_, err := repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, profile.ErrProfileNotFound)

	p := profile.New().Merge(profile.Update{Name: strPtr("Asha")})
	require.NoError(t, repo.Save(ctx, "ses_1", p))

	rec, err := repo.Get(ctx, "ses_1")
	require.NoError(t, err)
	assert.Equal(t, "ses_1", rec.SessionID)
	assert.Equal(t, "Asha", rec.Profile.Name)
	assert.False(t, rec.CompletedAt.IsZero())
	assert.Equal(t, 1, repo.Count())

	rec.Profile.History[0].BusNumber = "mutated"
	again, err := repo.Get(ctx, "ses_1")
	require.NoError(t, err)
	assert.Equal(t, "HR-22C", again.Profile.History[0].BusNumber)
}
