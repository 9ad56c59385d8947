// Package query is a per-session query cache in front of the backend. Reads
// are cached by key, concurrent identical reads share one backend call, and
// mutations drop cached resources according to the Invalidates table.
package query

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/awn-app/awn/pkg/metrics"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// Key identifies one cached value.
type Key struct {
	Scope    string
	Resource Resource
	Params   string
}

// NewKey builds a key; params are joined in order.
func NewKey(scope string, r Resource, params ...any) Key {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = fmt.Sprint(p)
	}
	return Key{Scope: scope, Resource: r, Params: strings.Join(parts, ",")}
}

func (k Key) String() string {
	return k.Scope + "|" + string(k.Resource) + "|" + k.Params
}

func (k Key) family() string {
	return k.Scope + "|" + string(k.Resource)
}

type entry struct {
	value     any
	fetchedAt time.Time
	seq       uint64
}

// Cache is safe for concurrent use.
type Cache struct {
	entries   *lru.Cache[string, entry]
	group     singleflight.Group
	staleTime time.Duration
	now       func() time.Time

	// mu guards the maps and seq and serializes optimistic patch/rollback.
	// A family has a generation only while a fetch of it is in flight.
	mu          sync.Mutex
	seq         uint64
	inflight    map[string]int
	generations map[string]uint64
}

// New returns a cache holding at most size entries that are served without
// refetching for staleTime.
func New(size int, staleTime time.Duration) *Cache {
	if size <= 0 {
		size = 1
	}
	entries, _ := lru.New[string, entry](size)
	return &Cache{
		entries:     entries,
		staleTime:   staleTime,
		now:         time.Now,
		inflight:    make(map[string]int),
		generations: make(map[string]uint64),
	}
}

// begin registers a fetch of family and returns the generation it must
// still see when it finishes.
func (c *Cache) begin(family string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight[family]++
	return c.generations[family]
}

// finish stores v when the family was not invalidated since begin and
// forgets the family once no fetch of it is left.
func (c *Cache) finish(family string, gen uint64, k string, v any, keep bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if keep && c.generations[family] == gen {
		c.store(k, v)
	}
	c.inflight[family]--
	if c.inflight[family] <= 0 {
		delete(c.inflight, family)
		delete(c.generations, family)
	}
}

// bump discards in-flight fetches of family. Callers hold mu.
func (c *Cache) bump(family string) {
	if c.inflight[family] > 0 {
		c.generations[family]++
	}
}

// store writes v under k. Callers hold mu.
func (c *Cache) store(k string, v any) uint64 {
	c.seq++
	c.entries.Add(k, entry{value: v, fetchedAt: c.now(), seq: c.seq})
	return c.seq
}

func (c *Cache) fresh(e entry) bool {
	return c.now().Sub(e.fetchedAt) < c.staleTime
}

// Fetch returns the cached value for key or calls fn. Concurrent calls for
// the same key share one fn call, which runs detached from any single
// caller's cancellation; a canceled caller stops waiting and gets ctx.Err().
// A result is not stored when its resource was invalidated while fn ran.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fn func(context.Context) (T, error)) (T, error) {
	k := key.String()
	if e, ok := c.entries.Get(k); ok && c.fresh(e) {
		if v, ok := e.value.(T); ok {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return v, nil
		}
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	ch := c.group.DoChan(k, func() (any, error) {
		family := key.family()
		gen := c.begin(family)
		v, err := fn(context.WithoutCancel(ctx))
		c.finish(family, gen, k, v, err == nil)
		return v, err
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Get returns the cached value for key regardless of staleness.
func Get[T any](c *Cache, key Key) (T, bool) {
	var zero T
	e, ok := c.entries.Peek(key.String())
	if !ok {
		return zero, false
	}
	v, ok := e.value.(T)
	return v, ok
}

// Set stores v under key as freshly fetched.
func (c *Cache) Set(key Key, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store(key.String(), v)
}

// Invalidate drops every entry of the given resources within scope and
// discards in-flight fetches for them.
func (c *Cache) Invalidate(scope string, resources ...Resource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range resources {
		family := Key{Scope: scope, Resource: r}.family()
		c.bump(family)
		c.removePrefix(family + "|")
	}
}

// DropScope removes everything cached for scope and discards its in-flight
// fetches.
func (c *Cache) DropScope(scope string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := scope + "|"
	for family := range c.inflight {
		if strings.HasPrefix(family, prefix) {
			c.bump(family)
		}
	}
	c.removePrefix(prefix)
}

func (c *Cache) removePrefix(prefix string) {
	for _, k := range c.entries.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.entries.Remove(k)
		}
	}
}

// Mutate runs fn and, when it succeeds, applies the invalidations of m.
func (c *Cache) Mutate(ctx context.Context, scope string, m Mutation, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		return err
	}
	c.Invalidate(scope, Invalidates[m]...)
	return nil
}

// Optimistic patches the cached value under key before calling fn. On error
// the previous value is restored unless the patch was already replaced or
// dropped; on success the invalidations of m apply. In-flight fetches of the
// resource are discarded so they cannot overwrite the patch.
func Optimistic[T any](ctx context.Context, c *Cache, key Key, m Mutation, patch func(T) T, fn func(context.Context) error) error {
	k := key.String()

	c.mu.Lock()
	prev, had := c.entries.Peek(k)
	var current T
	if had {
		if v, ok := prev.value.(T); ok {
			current = v
		}
	}
	c.bump(key.family())
	patched := c.store(k, patch(current))
	c.mu.Unlock()

	if err := fn(ctx); err != nil {
		c.mu.Lock()
		if cur, ok := c.entries.Peek(k); ok && cur.seq == patched {
			if had {
				c.entries.Add(k, prev)
			} else {
				c.entries.Remove(k)
			}
		}
		c.mu.Unlock()
		return err
	}

	c.Invalidate(key.Scope, Invalidates[m]...)
	return nil
}

// Prune removes entries older than the stale time and returns how many
// were removed.
func (c *Cache) Prune() int {
	removed := 0
	for _, k := range c.entries.Keys() {
		if e, ok := c.entries.Peek(k); ok && !c.fresh(e) {
			c.entries.Remove(k)
			removed++
		}
	}
	return removed
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.entries.Len()
}
