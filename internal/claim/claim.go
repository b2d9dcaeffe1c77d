// Package claim implements the advisory lock serializing claimable-queue
// inspection across spawners.
package claim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a crashed holder can keep the lock.
const DefaultTTL = 30 * time.Second

// Mode selects how TryAcquire takes the lock.
type Mode int

const (
	// ModeReadThenWrite reads the lock and writes the owner when it looks
	// free. Two spawners may both win; callers tolerate that.
	ModeReadThenWrite Mode = iota
	// ModeSetIfAbsent checks and writes the lock in one script, so exactly
	// one spawner wins. "" and "null" count as free here too.
	ModeSetIfAbsent
)

func (m Mode) String() string {
	switch m {
	case ModeReadThenWrite:
		return "read-then-write"
	case ModeSetIfAbsent:
		return "set-if-absent"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// acquireScript writes the owner when the lock is absent, empty or "null".
//
// KEYS: lock. ARGV: owner, ttl milliseconds (<= 0 keeps forever).
var acquireScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if v and v ~= '' and v ~= 'null' then return 0 end
if tonumber(ARGV[2]) > 0 then
  redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
else
  redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

// Coordinator is a single-slot lock stored under one key.
type Coordinator struct {
	rdb  redis.UniversalClient
	key  string
	ttl  time.Duration
	mode Mode
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTTL sets the lock expiry. Zero or below disables it.
func WithTTL(d time.Duration) Option {
	return func(c *Coordinator) { c.ttl = d }
}

// WithMode selects the acquisition mode.
func WithMode(m Mode) Option {
	return func(c *Coordinator) { c.mode = m }
}

// New returns a Coordinator for key.
func New(rdb redis.UniversalClient, key string, opts ...Option) *Coordinator {
	c := &Coordinator{rdb: rdb, key: key, ttl: DefaultTTL, mode: ModeReadThenWrite}
	for _, opt := range opts {
		opt(c)
	}
	if c.ttl < 0 {
		c.ttl = 0
	}
	return c
}

// Key returns the storage key of the lock.
func (c *Coordinator) Key() string { return c.key }

// Mode returns the acquisition mode.
func (c *Coordinator) Mode() Mode { return c.mode }

// TryAcquire attempts to take the lock for owner without blocking.
func (c *Coordinator) TryAcquire(ctx context.Context, owner string) (bool, error) {
	if c.mode == ModeSetIfAbsent {
		n, err := acquireScript.Run(ctx, c.rdb, []string{c.key}, owner, c.ttl.Milliseconds()).Int64()
		if err != nil {
			return false, fmt.Errorf("uniqm/claim: acquire: %w", err)
		}
		return n == 1, nil
	}

	holder, err := c.Holder(ctx)
	if err != nil {
		return false, err
	}
	if holder != "" {
		return false, nil
	}
	if err := c.rdb.Set(ctx, c.key, owner, c.ttl).Err(); err != nil {
		return false, fmt.Errorf("uniqm/claim: set: %w", err)
	}
	return true, nil
}

// Release clears the lock regardless of who holds it.
func (c *Coordinator) Release(ctx context.Context, _ string) error {
	if err := c.rdb.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("uniqm/claim: release: %w", err)
	}
	return nil
}

// Holder returns the current owner, or "" when the lock is free. The stored
// values "" and "null" count as free.
func (c *Coordinator) Holder(ctx context.Context) (string, error) {
	v, err := c.rdb.Get(ctx, c.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("uniqm/claim: get: %w", err)
	}
	if v == "null" {
		return "", nil
	}
	return v, nil
}
