// Package gemini implements gateway.Provider over the Gemini generateContent
// REST API with Google Search and Google Maps grounding.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/atlastransit/atlas/internal/gateway"
	"github.com/atlastransit/atlas/internal/provider/resilience"
)

const (
	// ProviderName identifies this provider.
	ProviderName = "gemini"

	// DefaultBaseURL is the Generative Language API base URL.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	DefaultRoutesModel = "gemini-3-pro-preview"
	DefaultNearbyModel = "gemini-2.5-flash"
	DefaultChatModel   = "gemini-3-pro-preview"
)

// ErrMissingAPIKey is returned by every call when no API key is configured.
var ErrMissingAPIKey = errors.New("gemini API key not configured")

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status code: %d (%s): %s", e.StatusCode, e.Status, e.Message)
}

// Models selects the model used per operation.
type Models struct {
	Routes string
	Nearby string
	Chat   string
}

// ClientConfig holds configuration for the Gemini client.
type ClientConfig struct {
	// APIKey authenticates requests (x-goog-api-key).
	APIKey string

	// BaseURL overrides DefaultBaseURL.
	BaseURL string

	// Models overrides the per-operation defaults.
	Models Models

	// HTTPClient is the resilient client to use.
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	Logger zerolog.Logger
}

// Client is a Gemini API client.
type Client struct {
	apiKey     string
	baseURL    string
	models     Models
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new Gemini client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	models := cfg.Models
	if models.Routes == "" {
		models.Routes = DefaultRoutesModel
	}
	if models.Nearby == "" {
		models.Nearby = DefaultNearbyModel
	}
	if models.Chat == "" {
		models.Chat = DefaultChatModel
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		models:     models,
		httpClient: httpClient,
		logger:     cfg.Logger.With().Str("provider", ProviderName).Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Routes asks for exactly five APSRTC options between pickup and drop,
// grounded on Google Search and constrained to the route JSON schema.
func (c *Client) Routes(ctx context.Context, pickup, drop string) (*gateway.Grounded, error) {
	req := &generateRequest{
		Contents: userContent(routesPrompt(pickup, drop)),
		Tools:    []tool{{GoogleSearch: &struct{}{}}},
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   routesSchema(),
		},
	}
	return c.generate(ctx, c.models.Routes, req)
}

// Nearby asks for transit points matching query, grounded on Google Maps.
// The location bias is sent only when both coordinates are non-zero.
func (c *Client) Nearby(ctx context.Context, query string, at *gateway.Coordinates) (*gateway.Grounded, error) {
	req := &generateRequest{
		Contents: userContent(nearbyPrompt(query)),
		Tools:    []tool{{GoogleMaps: &struct{}{}}},
	}
	if at != nil && at.Lat != 0 && at.Lng != 0 {
		req.ToolConfig = &toolConfig{
			RetrievalConfig: &retrievalConfig{
				LatLng: &latLng{Latitude: at.Lat, Longitude: at.Lng},
			},
		}
	}
	return c.generate(ctx, c.models.Nearby, req)
}

// Chat answers prompt as ATLAS AI, grounded on Google Search.
func (c *Client) Chat(ctx context.Context, prompt string) (*gateway.Grounded, error) {
	req := &generateRequest{
		Contents:          userContent(prompt),
		SystemInstruction: &content{Parts: []part{{Text: chatSystemInstruction}}},
		Tools:             []tool{{GoogleSearch: &struct{}{}}},
	}
	return c.generate(ctx, c.models.Chat, req)
}

func (c *Client) generate(ctx context.Context, model string, body *generateRequest) (*gateway.Grounded, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
		c.logger.Warn().
			Str("model", model).
			Str("block_reason", out.PromptFeedback.BlockReason).
			Msg("prompt blocked")
	}

	return toGrounded(&out), nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return apiErr
	}

	var er errorResponse
	if json.Unmarshal(raw, &er) == nil {
		apiErr.Status = er.Error.Status
		apiErr.Message = er.Error.Message
	}
	return apiErr
}

// toGrounded flattens the first candidate: text parts are concatenated
// (thought parts skipped) and grounding chunks are split by kind.
func toGrounded(resp *generateResponse) *gateway.Grounded {
	g := &gateway.Grounded{}
	if len(resp.Candidates) == 0 {
		return g
	}
	cand := resp.Candidates[0]

	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		if p.Thought {
			continue
		}
		sb.WriteString(p.Text)
	}
	g.Text = sb.String()

	if cand.GroundingMetadata == nil {
		return g
	}
	for _, chunk := range cand.GroundingMetadata.GroundingChunks {
		if chunk.Web != nil {
			g.Web = append(g.Web, gateway.Source{Title: chunk.Web.Title, URI: chunk.Web.URI})
		}
		if chunk.Maps != nil {
			g.Maps = append(g.Maps, gateway.Source{Title: chunk.Maps.Title, URI: chunk.Maps.URI})
		}
	}
	return g
}

func userContent(text string) []content {
	return []content{{Role: "user", Parts: []part{{Text: text}}}}
}

var _ gateway.Provider = (*Client)(nil)
