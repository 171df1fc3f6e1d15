// Package cache implements the authorization decision cache (C2): a TTL cache
// in front of the tuple store that coalesces concurrent misses.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/allisson/authkeyd/internal/authz/domain"
	"github.com/allisson/authkeyd/internal/authz/repository"
)

const (
	// DefaultTTL is the cache entry lifetime used when not overridden by config.
	DefaultTTL = 300 * time.Second

	// DefaultSweepRatio is the fraction of TTL between sweeper passes.
	DefaultSweepRatio = 0.2
)

type entry struct {
	allowed   bool
	expiresAt time.Time
}

// DecisionCache wraps a TupleStore, caching both positive and negative check
// results. Checks that carry contextual tuples bypass the cache entirely, since
// their result depends on ephemeral input that isn't part of the cache key.
type DecisionCache struct {
	store repository.TupleStore
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[string]entry

	group singleflight.Group

	stopSweep chan struct{}
}

// New creates a decision cache with the given TTL and starts its background
// sweeper, which runs every sweepRatio*ttl to evict expired entries. A sweepRatio
// outside (0, 1] falls back to DefaultSweepRatio.
func New(store repository.TupleStore, ttl time.Duration, sweepRatio float64) *DecisionCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if sweepRatio <= 0 || sweepRatio > 1 {
		sweepRatio = DefaultSweepRatio
	}

	c := &DecisionCache{
		store:     store,
		ttl:       ttl,
		entries:   map[string]entry{},
		stopSweep: make(chan struct{}),
	}
	go c.sweepLoop(time.Duration(float64(ttl) * sweepRatio))
	return c
}

// Close stops the background sweeper.
func (c *DecisionCache) Close() {
	close(c.stopSweep)
}

func (c *DecisionCache) sweepLoop(interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopSweep:
			return
		case now := <-ticker.C:
			c.sweep(now)
		}
	}
}

func (c *DecisionCache) sweep(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}

// cacheKey builds the tenantId:user:relation:object key. The separator is "|"
// rather than ":" because object refs themselves contain ":"; "|" never appears
// in a tagged ref, so the key splits unambiguously.
func cacheKey(tenantID, user string, relation domain.Relation, object string) string {
	var b strings.Builder
	b.WriteString(tenantID)
	b.WriteByte('|')
	b.WriteString(user)
	b.WriteByte('|')
	b.WriteString(string(relation))
	b.WriteByte('|')
	b.WriteString(object)
	return b.String()
}

// Check resolves whether user holds relation on object, serving from cache when
// possible. Checks with contextual tuples always go straight to the backing
// store and are never cached, since the result is only valid for that one call.
func (c *DecisionCache) Check(
	ctx context.Context,
	tenantID, user string,
	relation domain.Relation,
	object string,
	contextualTuples []domain.Tuple,
) (bool, error) {
	if len(contextualTuples) > 0 {
		return c.store.Check(ctx, tenantID, user, relation, object, contextualTuples)
	}

	key := cacheKey(tenantID, user, relation, object)

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && time.Now().Before(e.expiresAt) {
		return e.allowed, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		allowed, err := c.store.Check(ctx, tenantID, user, relation, object, nil)
		if err != nil {
			return false, err
		}
		c.mu.Lock()
		c.entries[key] = entry{allowed: allowed, expiresAt: time.Now().Add(c.ttl)}
		c.mu.Unlock()
		return allowed, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// WriteTuples writes tuples through to the backing store, then drops the
// tenant's cached decisions before returning, so a subsequent check observes
// the grant (read-your-writes, §5). Invalidation is tenant-wide rather than
// per-key: a single tuple can flip decisions about unrelated objects through
// parent propagation and admin unions, so the exact key alone is not enough.
func (c *DecisionCache) WriteTuples(ctx context.Context, tenantID string, tuples []domain.Tuple) error {
	if err := c.store.WriteTuples(ctx, tenantID, tuples); err != nil {
		return err
	}
	c.InvalidateTenant(tenantID)
	return nil
}

// DeleteTuples deletes tuples through to the backing store, then drops the
// tenant's cached decisions, mirroring WriteTuples.
func (c *DecisionCache) DeleteTuples(ctx context.Context, tenantID string, tuples []domain.Tuple) error {
	if err := c.store.DeleteTuples(ctx, tenantID, tuples); err != nil {
		return err
	}
	c.InvalidateTenant(tenantID)
	return nil
}

// DeleteTenantTuples cascades a tenant deletion through to the backing store.
// Callers should also invoke InvalidateTenant to drop the tenant's cached
// decisions.
func (c *DecisionCache) DeleteTenantTuples(ctx context.Context, tenantID string) error {
	return c.store.DeleteTenantTuples(ctx, tenantID)
}

// ListTenantIDs passes through to the backing store; tenant listings are never
// cached.
func (c *DecisionCache) ListTenantIDs(ctx context.Context) ([]string, error) {
	return c.store.ListTenantIDs(ctx)
}

// InvalidateTenant drops every cached decision for tenantID, used after any
// tuple mutation and when a tenant is deleted.
func (c *DecisionCache) InvalidateTenant(tenantID string) {
	prefix := tenantID + "|"
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
}
