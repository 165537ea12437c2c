package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Store defaults.
const (
	DefaultIdleTTL       = 30 * time.Minute
	DefaultSweepInterval = time.Minute
)

// StoreConfig configures a Store.
type StoreConfig struct {
	// Session is the template every new session is built from.
	Session Config

	// IdleTTL is how long a session may go untouched before it is evicted.
	IdleTTL time.Duration

	// SweepInterval is how often Run looks for idle sessions.
	SweepInterval time.Duration

	Logger zerolog.Logger
}

type entry struct {
	session  *Session
	lastSeen time.Time
}

// Store keeps the live sessions of this process.
type Store struct {
	cfg    StoreConfig
	logger zerolog.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

// NewStore creates an empty store.
func NewStore(cfg StoreConfig) *Store {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	return &Store{
		cfg:      cfg,
		logger:   cfg.Logger.With().Str("component", "session_store").Logger(),
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// Create starts a new session and keeps it.
func (st *Store) Create() *Session {
	id := "ses_" + uuid.New().String()
	s := New(id, st.cfg.Session)

	st.mu.Lock()
	st.sessions[id] = &entry{session: s, lastSeen: st.now()}
	n := len(st.sessions)
	st.mu.Unlock()

	st.logger.Debug().Str("session_id", id).Int("live", n).Msg("session created")
	return s
}

// Get returns a live session and marks it as used.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	e, ok := st.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.lastSeen = st.now()
	return e.session, nil
}

// Delete closes and forgets a session.
func (st *Store) Delete(ctx context.Context, id string) error {
	st.mu.Lock()
	e, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	e.session.Close(ctx)
	return nil
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep closes every session idle for longer than the TTL and returns how
// many were evicted.
func (st *Store) Sweep(ctx context.Context) int {
	cutoff := st.now().Add(-st.cfg.IdleTTL)

	var idle []*Session
	st.mu.Lock()
	for id, e := range st.sessions {
		if e.lastSeen.Before(cutoff) {
			idle = append(idle, e.session)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()

	for _, s := range idle {
		s.Close(ctx)
	}
	if len(idle) > 0 {
		st.logger.Info().Int("evicted", len(idle)).Msg("swept idle sessions")
	}
	return len(idle)
}

// Run sweeps periodically until ctx is cancelled, then closes every
// remaining session.
func (st *Store) Run(ctx context.Context) error {
	ticker := time.NewTicker(st.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			st.closeAll()
			return nil
		case <-ticker.C:
			st.Sweep(ctx)
		}
	}
}

func (st *Store) closeAll() {
	st.mu.Lock()
	all := st.sessions
	st.sessions = make(map[string]*entry)
	st.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, e := range all {
		e.session.Close(ctx)
	}
	st.logger.Info().Int("closed", len(all)).Msg("session store stopped")
}
