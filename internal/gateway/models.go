// Package gateway is the contract between Atlas and the generative search
// service that supplies bus routes, nearby transit information and chat
// replies. Its operations never fail outward: provider errors become empty
// results or fixed fallback text.
package gateway

import (
	"context"
	"time"
)

// Coordinates is a WGS84 position.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Source is a citation attached to a grounded answer.
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// StopInfo is one stop on a route's schedule.
type StopInfo struct {
	Name          string `json:"name"`
	Time          string `json:"time"`
	FareFromStart string `json:"fareFromStart"`
}

// BusRoute is a single transit option returned by a route search.
type BusRoute struct {
	ID              string       `json:"id"`
	BusNumber       string       `json:"busNumber"`
	ArrivalTime     string       `json:"arrivalTime"`
	PassingAreas    []string     `json:"passingAreas"`
	EndDestination  string       `json:"endDestination"`
	Duration        string       `json:"duration"`
	Type            string       `json:"type"`
	IsLate          bool         `json:"isLate"`
	BaseFare        string       `json:"baseFare"`
	Provider        string       `json:"provider"`
	Schedule        []StopInfo   `json:"schedule,omitempty"`
	CurrentLocation *Coordinates `json:"currentLocation,omitempty"`
	VerifiedSources []Source     `json:"verifiedSources,omitempty"`
}

// NearbyInfo is the free-text answer of a nearby search with its map citations.
type NearbyInfo struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one chat turn.
type Message struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Sources   []Source  `json:"sources,omitempty"`
}

// Grounded is a raw provider answer: the generated text and the citation
// chunks the provider consulted, split by kind. Titles and URIs are passed
// through as received and may be empty.
type Grounded struct {
	Text string
	Web  []Source
	Maps []Source
}

// Provider performs grounded generation against an AI backend.
type Provider interface {
	// Routes asks for bus routes between pickup and drop. Text holds a JSON
	// array of BusRoute values.
	Routes(ctx context.Context, pickup, drop string) (*Grounded, error)

	// Nearby asks for transit points matching query, biased towards at
	// when given.
	Nearby(ctx context.Context, query string, at *Coordinates) (*Grounded, error)

	// Chat answers a free-text prompt.
	Chat(ctx context.Context, prompt string) (*Grounded, error)

	// Name returns the provider name for logging and metrics.
	Name() string
}
