// Package redis provides a circuit-breaker-guarded cache for the
// scheduler's cooldown timers and deny-list, so a transient Redis outage
// degrades to "no cache" rather than stalling the loop.
package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache wraps a redis.Client with a circuit breaker so callers never block
// the scheduler loop behind a wedged Redis connection.
type Cache struct {
	rdb *redis.Client
	cb  *CircuitBreaker
}

// New creates a Cache against addr, tripping its breaker after 5
// consecutive failures and probing again after 10s. onTrip, if non-nil, is
// called every time the breaker transitions into the open state.
func New(addr, password string, db int, onTrip func()) *Cache {
	cb := NewCircuitBreaker(5, 10*time.Second)
	if onTrip != nil {
		cb.OnStateChange = func(from, to State) {
			if to == StateOpen {
				onTrip()
			}
		}
	}
	return &Cache{
		rdb: redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db}),
		cb:  cb,
	}
}

// SetCooldown records instid's cooldown expiry.
func (c *Cache) SetCooldown(ctx context.Context, instid string, ttl time.Duration) error {
	return c.cb.Execute(func() error {
		return c.rdb.Set(ctx, "cooldown:"+instid, 1, ttl).Err()
	})
}

// OnCooldown reports whether instid is still cooling down. A circuit-open
// or lookup error is treated as "not on cooldown" — the scheduler prefers
// to risk a slightly early rebuy over stalling on a degraded cache.
func (c *Cache) OnCooldown(ctx context.Context, instid string) bool {
	var onCooldown bool
	err := c.cb.Execute(func() error {
		n, err := c.rdb.Exists(ctx, "cooldown:"+instid).Result()
		onCooldown = n > 0
		return err
	})
	if err != nil {
		return false
	}
	return onCooldown
}

// SetDenyList replaces the cached deny-list snapshot.
func (c *Cache) SetDenyList(ctx context.Context, instids []string) error {
	return c.cb.Execute(func() error {
		pipe := c.rdb.TxPipeline()
		pipe.Del(ctx, "deny_list")
		if len(instids) > 0 {
			members := make([]interface{}, len(instids))
			for i, id := range instids {
				members[i] = id
			}
			pipe.SAdd(ctx, "deny_list", members...)
		}
		_, err := pipe.Exec(ctx)
		return err
	})
}

// DenyList returns the cached deny-list snapshot, or nil if the breaker is
// open or the cache is empty.
func (c *Cache) DenyList(ctx context.Context) []string {
	var out []string
	err := c.cb.Execute(func() error {
		members, err := c.rdb.SMembers(ctx, "deny_list").Result()
		out = members
		return err
	})
	if err != nil {
		return nil
	}
	return out
}

// BreakerState reports the circuit breaker's current state, for export as
// a gauge by the caller.
func (c *Cache) BreakerState() State {
	return c.cb.CurrentState()
}

// Close closes the underlying Redis connection.
func (c *Cache) Close() error {
	return c.rdb.Close()
}
