// Package replay remembers one-time codes that were already accepted so the
// same code cannot be used twice while it is still inside the tolerance window.
package replay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrEmptyKey is returned when Claim is called without a key.
var ErrEmptyKey = errors.New("replay: empty key")

// Guard records keys for a bounded time.
type Guard interface {
	// Claim records key for ttl. It returns true the first time a key is seen
	// and false while an earlier claim is still live.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type clocker interface {
	Now() time.Time
}

// Redis implements Guard with SET NX, so claims are shared by every replica.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis returns a Redis guard.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{
		client: client,
		prefix: "otpgate:replay:",
	}
}

// Claim reserves key until ttl elapses.
func (r *Redis) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}
	return r.client.SetNX(ctx, r.prefix+key, "1", ttl).Result()
}

// Memory implements Guard in process. Claims are not shared between replicas.
type Memory struct {
	mu      sync.Mutex
	clock   clocker
	entries map[string]time.Time
	sweepAt time.Time
}

// NewMemory returns an in-process guard.
func NewMemory(clock clocker) *Memory {
	return &Memory{
		clock:   clock,
		entries: make(map[string]time.Time),
	}
}

// Claim reserves key until ttl elapses.
func (m *Memory) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	if now.After(m.sweepAt) {
		for k, exp := range m.entries {
			if !now.Before(exp) {
				delete(m.entries, k)
			}
		}
		m.sweepAt = now.Add(ttl)
	}

	if exp, ok := m.entries[key]; ok && now.Before(exp) {
		return false, nil
	}

	m.entries[key] = now.Add(ttl)
	return true, nil
}

// Noop implements Guard by accepting every claim.
type Noop struct{}

// Claim always succeeds.
func (Noop) Claim(context.Context, string, time.Duration) (bool, error) {
	return true, nil
}
