package dashboard

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/atlastransit/atlas/internal/gateway"
	"github.com/atlastransit/atlas/internal/profile"
)

// ChatState is a snapshot of the chat panel.
type ChatState struct {
	Messages []gateway.Message `json:"messages"`
	Loading  bool              `json:"loading"`
}

// Chat is the assistant transcript. Messages are only ever appended.
type Chat struct {
	gateway  Gateway
	life     *lifecycle
	logger   zerolog.Logger
	activity func(Activity)
	now      func() time.Time

	mu       sync.Mutex
	messages []gateway.Message
	loading  bool
}

// Greeting is the first message of every transcript.
func Greeting(p profile.UserProfile) string {
	return fmt.Sprintf("Namaste %s! I'm Atlas. I'm connected to APSRTC data via AI search to give you the most accurate routes.", p.DisplayName())
}

func newChat(gw Gateway, life *lifecycle, logger zerolog.Logger, activity func(Activity), now func() time.Time, p profile.UserProfile) *Chat {
	return &Chat{
		gateway:  gw,
		life:     life,
		logger:   logger,
		activity: activity,
		now:      now,
		messages: []gateway.Message{{
			Role:      gateway.RoleModel,
			Text:      Greeting(p),
			Timestamp: now(),
		}},
	}
}

// State returns a snapshot of the transcript.
func (c *Chat) State() ChatState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ChatState{
		Messages: append([]gateway.Message{}, c.messages...),
		Loading:  c.loading,
	}
}

// Len returns the number of messages.
func (c *Chat) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// Send appends text as a user message, asks the gateway and appends its
// reply. Blank text, or a reply still pending, makes it a no-op; sent
// reports whether the message was accepted. The reply is awaited even if
// ctx is cancelled, so the transcript never gains a spurious fallback.
func (c *Chat) Send(ctx context.Context, text string) (sent bool) {
	c.mu.Lock()
	if strings.TrimSpace(text) == "" || c.loading || c.life.closed() {
		c.mu.Unlock()
		return false
	}
	c.messages = append(c.messages, gateway.Message{
		Role:      gateway.RoleUser,
		Text:      text,
		Timestamp: c.now(),
	})
	c.loading = true
	c.mu.Unlock()

	reply := c.gateway.ChatReply(context.WithoutCancel(ctx), text)

	c.mu.Lock()
	if c.life.closed() {
		c.mu.Unlock()
		c.logger.Debug().Msg("dashboard closed, dropping chat reply")
		return true
	}
	c.messages = append(c.messages, reply)
	c.loading = false
	c.mu.Unlock()

	c.activity(Activity{
		Kind: ActivityChatReplied,
		Attributes: map[string]string{
			"sources": strconv.Itoa(len(reply.Sources)),
		},
	})
	return true
}
