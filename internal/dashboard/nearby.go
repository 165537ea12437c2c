package dashboard

import (
	"context"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/atlastransit/atlas/internal/gateway"
)

// NearbyTopic is the fixed query of the Explore tab.
const NearbyTopic = "APSRTC Bus Stands"

// NearbyState is a snapshot of the Explore tab.
type NearbyState struct {
	Info    gateway.NearbyInfo `json:"info"`
	Loading bool               `json:"loading"`
}

// NearbyExplorer loads transit points around the traveller. Each load
// replaces the previous answer; the latest issued load wins.
type NearbyExplorer struct {
	gateway  Gateway
	life     *lifecycle
	logger   zerolog.Logger
	activity func(Activity)

	mu      sync.Mutex
	info    gateway.NearbyInfo
	loading bool
	seq     uint64
}

func newNearbyExplorer(gw Gateway, life *lifecycle, logger zerolog.Logger, activity func(Activity)) *NearbyExplorer {
	return &NearbyExplorer{
		gateway:  gw,
		life:     life,
		logger:   logger,
		activity: activity,
		info:     gateway.NearbyInfo{Sources: []gateway.Source{}},
	}
}

// State returns a snapshot of the Explore tab.
func (n *NearbyExplorer) State() NearbyState {
	n.mu.Lock()
	defer n.mu.Unlock()

	info := n.info
	info.Sources = append([]gateway.Source{}, n.info.Sources...)
	return NearbyState{Info: info, Loading: n.loading}
}

// Load asks the gateway about NearbyTopic, biased towards at when given.
// Cancelling ctx does not cancel the gateway call.
func (n *NearbyExplorer) Load(ctx context.Context, at *gateway.Coordinates) {
	n.mu.Lock()
	n.seq++
	id := n.seq
	n.loading = true
	n.mu.Unlock()

	info := n.gateway.FindNearby(context.WithoutCancel(ctx), NearbyTopic, at)

	n.mu.Lock()
	if n.life.closed() || id != n.seq {
		n.mu.Unlock()
		n.logger.Debug().Uint64("load", id).Msg("nearby answer dropped")
		return
	}
	n.info = info
	n.loading = false
	n.mu.Unlock()

	n.activity(Activity{
		Kind: ActivityNearbyLoaded,
		Attributes: map[string]string{
			"sources": strconv.Itoa(len(info.Sources)),
			"biased":  strconv.FormatBool(at != nil),
		},
	})
}
