package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/lessonplanner/internal/config"
)

// ErrNotFound is returned by Get for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Store keeps sessions between requests. Get returns a copy; changes are
// visible to others only after Save.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

type memEntry struct {
	data    []byte
	expires time.Time
}

// MemoryStore is an in-process Store with a TTL.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memEntry
	now     func() time.Time
}

// NewMemoryStore creates a MemoryStore; ttl <= 0 keeps sessions forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, entries: map[string]memEntry{}, now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	e, ok := m.entries[id]
	if ok && m.ttl > 0 && m.now().After(e.expires) {
		delete(m.entries, id)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	var s Session
	if err := json.Unmarshal(e.data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[s.ID] = memEntry{data: b, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now, n := m.now(), 0
	for id, e := range m.entries {
		if now.After(e.expires) {
			delete(m.entries, id)
			n++
		}
	}
	return n
}

// NewStore picks Redis when a URL is configured and memory otherwise. A
// Redis that cannot be reached is logged and memory is used instead.
func NewStore(cfg config.SessionConfig) Store {
	if cfg.RedisURL != "" {
		rs, err := NewRedisStore(cfg.RedisURL, cfg.TTL)
		if err == nil {
			log.Info().Dur("ttl", cfg.TTL).Msg("session store: redis")
			return rs
		}
		log.Warn().Err(err).Msg("redis session store unavailable; using memory")
	}
	log.Info().Dur("ttl", cfg.TTL).Msg("session store: memory")
	return NewMemoryStore(cfg.TTL)
}
