package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeLists(t *testing.T) {
	p := New()
	p.Favorites = []string{"Vijayawada to Guntur", "PNBS to Tenali"}

	favorites, history, err := encodeLists(p)
	require.NoError(t, err)
	assert.JSONEq(t, `["Vijayawada to Guntur","PNBS to Tenali"]`, string(favorites))
	assert.JSONEq(t, `[
		{"date":"2023-10-24","route":"Delhi to Gurgaon","busNumber":"HR-22C"},
		{"date":"2023-10-22","route":"Jaipur to Delhi","busNumber":"RJ-14X"}
	]`, string(history))

	var got UserProfile
	require.NoError(t, decodeLists(&got, favorites, history))
	assert.Equal(t, p.Favorites, got.Favorites)
	assert.Equal(t, SeededHistory(), got.History)
}

func TestEncodeLists_NilListsStoredEmpty(t *testing.T) {
	favorites, history, err := encodeLists(UserProfile{Name: "Ravi"})
	require.NoError(t, err)

	assert.Equal(t, "[]", string(favorites))
	assert.Equal(t, "[]", string(history))
}

func TestDecodeLists_NullColumns(t *testing.T) {
	for name, raw := range map[string][]byte{
		"sql null":  nil,
		"json null": []byte("null"),
	} {
		t.Run(name, func(t *testing.T) {
			var p UserProfile
			require.NoError(t, decodeLists(&p, raw, raw))

			assert.NotNil(t, p.Favorites)
			assert.Empty(t, p.Favorites)
			assert.NotNil(t, p.History)
			assert.Empty(t, p.History)
		})
	}
}

func TestDecodeLists_Malformed(t *testing.T) {
	var p UserProfile

	err := decodeLists(&p, []byte(`{"not":"a list"}`), []byte(`[]`))
	assert.ErrorContains(t, err, "decoding favorites")

	err = decodeLists(&p, []byte(`[]`), []byte(`"oops"`))
	assert.ErrorContains(t, err, "decoding history")
}
