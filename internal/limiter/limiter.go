// Package limiter caps how many completion requests run at once per
// provider and model. A request over the cap is refused immediately; it is
// never queued or retried. With Redis configured the cap is shared by every
// replica, otherwise it is per process.
package limiter

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/local/lessonplanner/internal/config"
)

// slotTTL bounds how long a crashed holder can keep a shared slot.
const slotTTL = 5 * time.Minute

// Adaptive is a per provider:model admission gate.
type Adaptive struct {
	rdb         redis.UniversalClient
	maxInflight int

	mu  sync.Mutex
	sem map[string]chan struct{}
}

type Options struct {
	RedisURL    string
	MaxInflight int // <= 0 means no cap
}

// New builds a gate. With an empty RedisURL slots are counted in memory.
func New(opts Options) (*Adaptive, error) {
	a := &Adaptive{maxInflight: opts.MaxInflight, sem: map[string]chan struct{}{}}
	if opts.RedisURL == "" || opts.MaxInflight <= 0 {
		return a, nil
	}
	ro, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	c := redis.NewClient(ro)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	a.rdb = c
	return a, nil
}

// NewFromClient builds a Redis-backed gate on an existing client.
func NewFromClient(c redis.UniversalClient, maxInflight int) *Adaptive {
	return &Adaptive{rdb: c, maxInflight: maxInflight, sem: map[string]chan struct{}{}}
}

// NewFromConfig builds the generation gate, counting slots in memory when
// Redis is unreachable.
func NewFromConfig(gen config.GenerationConfig, redisURL string) *Adaptive {
	a, err := New(Options{RedisURL: redisURL, MaxInflight: gen.MaxInflight})
	if err == nil {
		return a
	}
	log.Warn().Err(err).Msg("in-flight cap counted per process")
	a, _ = New(Options{MaxInflight: gen.MaxInflight})
	return a
}

func key(provider, model string) string {
	return strings.ToLower(provider) + ":" + strings.ToLower(model)
}

// Allow tries to reserve a slot for provider:model.
// Returns a release function and true if allowed; otherwise a no-op and false.
func (a *Adaptive) Allow(ctx context.Context, provider, model string) (func(), bool) {
	if a.maxInflight <= 0 {
		return func() {}, true
	}
	if a.rdb != nil {
		return a.allowShared(ctx, "planner:inflight:"+key(provider, model))
	}

	k := key(provider, model)
	a.mu.Lock()
	ch, ok := a.sem[k]
	if !ok {
		ch = make(chan struct{}, a.maxInflight)
		a.sem[k] = ch
	}
	a.mu.Unlock()
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, true
	default:
		return func() {}, false
	}
}

func (a *Adaptive) allowShared(ctx context.Context, k string) (func(), bool) {
	n, err := a.rdb.Incr(ctx, k).Result()
	if err != nil {
		// the cap is advisory; a Redis outage must not block generation
		log.Warn().Err(err).Str("key", k).Msg("in-flight counter unavailable")
		return func() {}, true
	}
	_ = a.rdb.Expire(ctx, k, slotTTL).Err()
	release := func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = a.rdb.Decr(rctx, k).Err()
	}
	if n > int64(a.maxInflight) {
		release()
		return func() {}, false
	}
	return release, true
}

func (a *Adaptive) CloseClient() error {
	if a.rdb == nil {
		return nil
	}
	return a.rdb.Close()
}
