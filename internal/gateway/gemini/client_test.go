package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlastransit/atlas/internal/gateway"
	"github.com/atlastransit/atlas/internal/gateway/gemini"
	"github.com/atlastransit/atlas/internal/provider/resilience"
)

// capture decodes the request body into a generic map for assertions.
type capture struct {
	path string
	key  string
	body map[string]any
}

func newTestClient(t *testing.T, status int, reply any, got *capture) *gemini.Client {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		if got != nil {
			got.path = r.URL.Path
			got.key = r.Header.Get("x-goog-api-key")
			_ = json.NewDecoder(r.Body).Decode(&got.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(reply)
	}))
	t.Cleanup(server.Close)

	cfg := resilience.DefaultClientConfig("gemini-test")
	cfg.MaxRetries = 0

	return gemini.NewClient(gemini.ClientConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		HTTPClient: resilience.NewClient(cfg),
		Logger:     zerolog.Nop(),
	})
}

func textReply(text string, chunks ...map[string]any) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"role":  "model",
				"parts": []map[string]any{{"text": text}},
			},
			"groundingMetadata": map[string]any{"groundingChunks": chunks},
		}},
	}
}

func TestClient_Name(t *testing.T) {
	client := gemini.NewClient(gemini.ClientConfig{APIKey: "k", Logger: zerolog.Nop()})
	assert.Equal(t, "gemini", client.Name())
}

func TestClient_Routes(t *testing.T) {
	var got capture
	reply := textReply(`[{"id":"1"}]`,
		map[string]any{"web": map[string]any{"uri": "https://apsrtc.ap.gov.in", "title": "APSRTC"}},
		map[string]any{"web": map[string]any{"uri": "https://news.example"}},
	)
	client := newTestClient(t, http.StatusOK, reply, &got)

	g, err := client.Routes(context.Background(), "Vijayawada", "Guntur")
	require.NoError(t, err)

	assert.Equal(t, `[{"id":"1"}]`, g.Text)
	assert.Equal(t, []gateway.Source{
		{Title: "APSRTC", URI: "https://apsrtc.ap.gov.in"},
		{URI: "https://news.example"},
	}, g.Web)
	assert.Empty(t, g.Maps)

	assert.Equal(t, "/models/gemini-3-pro-preview:generateContent", got.path)
	assert.Equal(t, "test-key", got.key)

	tools := got.body["tools"].([]any)
	assert.Contains(t, tools[0].(map[string]any), "googleSearch")

	genCfg := got.body["generationConfig"].(map[string]any)
	assert.Equal(t, "application/json", genCfg["responseMimeType"])
	schema := genCfg["responseSchema"].(map[string]any)
	assert.Equal(t, "ARRAY", schema["type"])
	items := schema["items"].(map[string]any)
	assert.Contains(t, items["required"], "busNumber")

	contents := got.body["contents"].([]any)
	prompt := contents[0].(map[string]any)["parts"].([]any)[0].(map[string]any)["text"].(string)
	assert.Contains(t, prompt, `"Vijayawada"`)
	assert.Contains(t, prompt, `"Guntur"`)
	assert.Contains(t, prompt, "exactly 5")
}

func TestClient_Nearby(t *testing.T) {
	var got capture
	reply := textReply("PNBS is close by.",
		map[string]any{"maps": map[string]any{"uri": "https://maps.google.com/?cid=9", "title": "PNBS"}},
		map[string]any{"web": map[string]any{"uri": "https://ignored.example"}},
	)
	client := newTestClient(t, http.StatusOK, reply, &got)

	g, err := client.Nearby(context.Background(), "APSRTC Bus Stands", &gateway.Coordinates{Lat: 16.5062, Lng: 80.648})
	require.NoError(t, err)

	assert.Equal(t, "PNBS is close by.", g.Text)
	assert.Equal(t, []gateway.Source{{Title: "PNBS", URI: "https://maps.google.com/?cid=9"}}, g.Maps)
	assert.Equal(t, "/models/gemini-2.5-flash:generateContent", got.path)

	tools := got.body["tools"].([]any)
	assert.Contains(t, tools[0].(map[string]any), "googleMaps")

	latLng := got.body["toolConfig"].(map[string]any)["retrievalConfig"].(map[string]any)["latLng"].(map[string]any)
	assert.InDelta(t, 16.5062, latLng["latitude"], 1e-9)
	assert.InDelta(t, 80.648, latLng["longitude"], 1e-9)

	contents := got.body["contents"].([]any)
	prompt := contents[0].(map[string]any)["parts"].([]any)[0].(map[string]any)["text"].(string)
	assert.Equal(t, "Find APSRTC Bus Stands near this location. Focus on APSRTC bus stands and major railway stations.", prompt)
}

func TestClient_Nearby_NoBiasWithoutBothCoordinates(t *testing.T) {
	for _, at := range []*gateway.Coordinates{nil, {Lat: 16.5}, {Lng: 80.6}} {
		var got capture
		client := newTestClient(t, http.StatusOK, textReply("ok"), &got)

		_, err := client.Nearby(context.Background(), "APSRTC Bus Stands", at)
		require.NoError(t, err)
		assert.NotContains(t, got.body, "toolConfig")
	}
}

func TestClient_Chat(t *testing.T) {
	var got capture
	reply := map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"parts": []map[string]any{
					{"text": "planning...", "thought": true},
					{"text": "Bus 65H "},
					{"text": "runs every 15 minutes."},
				},
			},
		}},
	}
	client := newTestClient(t, http.StatusOK, reply, &got)

	g, err := client.Chat(context.Background(), "when is the next 65H?")
	require.NoError(t, err)

	assert.Equal(t, "Bus 65H runs every 15 minutes.", g.Text)
	assert.Empty(t, g.Web)
	assert.Equal(t, "/models/gemini-3-pro-preview:generateContent", got.path)

	system := got.body["systemInstruction"].(map[string]any)["parts"].([]any)[0].(map[string]any)["text"]
	assert.Contains(t, system, "You are ATLAS AI.")
	assert.NotContains(t, got.body, "generationConfig")
}

func TestClient_NoCandidates(t *testing.T) {
	reply := map[string]any{"promptFeedback": map[string]any{"blockReason": "SAFETY"}}
	client := newTestClient(t, http.StatusOK, reply, nil)

	g, err := client.Chat(context.Background(), "hello")
	require.NoError(t, err)
	assert.Empty(t, g.Text)
}

func TestClient_APIError(t *testing.T) {
	reply := map[string]any{"error": map[string]any{
		"code":    429,
		"message": "Resource has been exhausted",
		"status":  "RESOURCE_EXHAUSTED",
	}}
	client := newTestClient(t, http.StatusTooManyRequests, reply, nil)

	_, err := client.Routes(context.Background(), "A", "B")
	require.Error(t, err)

	var apiErr *gemini.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "RESOURCE_EXHAUSTED", apiErr.Status)
	assert.Contains(t, err.Error(), "Resource has been exhausted")
}

func TestClient_ServerErrorAfterRetries(t *testing.T) {
	client := newTestClient(t, http.StatusServiceUnavailable, map[string]any{}, nil)

	_, err := client.Nearby(context.Background(), "x", nil)

	var apiErr *gemini.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}

func TestClient_MissingAPIKey(t *testing.T) {
	client := gemini.NewClient(gemini.ClientConfig{BaseURL: "http://127.0.0.1:1", Logger: zerolog.Nop()})

	_, err := client.Chat(context.Background(), "hello")
	assert.ErrorIs(t, err, gemini.ErrMissingAPIKey)
}

func TestClient_WithGatewayService(t *testing.T) {
	reply := textReply("Buses leave from PNBS.",
		map[string]any{"web": map[string]any{"uri": "https://apsrtc.ap.gov.in"}},
	)
	client := newTestClient(t, http.StatusOK, reply, nil)
	svc := gateway.NewService(gateway.ServiceConfig{Provider: client, Logger: zerolog.Nop()})

	msg := svc.ChatReply(context.Background(), "where do buses leave from?")

	assert.Equal(t, "Buses leave from PNBS.", msg.Text)
	assert.Equal(t, []gateway.Source{{Title: "Source", URI: "https://apsrtc.ap.gov.in"}}, msg.Sources)
}
