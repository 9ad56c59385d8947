package query

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchCachesUntilStale(t *testing.T) {
	c := New(16, time.Minute)
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	var calls int
	fn := func(context.Context) ([]int, error) {
		calls++
		return []int{calls}, nil
	}
	key := NewKey("s1", Favorites)

	v, err := Fetch(context.Background(), c, key, fn)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, v)

	v, _ = Fetch(context.Background(), c, key, fn)
	assert.Equal(t, []int{1}, v)

	now = now.Add(2 * time.Minute)
	v, _ = Fetch(context.Background(), c, key, fn)
	assert.Equal(t, []int{2}, v)
}

func TestFetchErrorNotCached(t *testing.T) {
	c := New(16, time.Minute)
	key := NewKey("s1", Notifications)
	boom := errors.New("boom")

	_, err := Fetch(context.Background(), c, key, func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	_, ok := Get[int](c, key)
	assert.False(t, ok)
}

func TestFetchDeduplicatesConcurrentCalls(t *testing.T) {
	c := New(16, time.Minute)
	key := NewKey("s1", Announcements, "page=1")

	var calls int32
	release := make(chan struct{})
	fn := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "ok", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = Fetch(context.Background(), c, key, fn)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.Equal(t, "ok", r)
	}
}

func TestInvalidationDiscardsInFlightResult(t *testing.T) {
	c := New(16, time.Minute)
	key := NewKey("s1", Trackers)

	_, err := Fetch(context.Background(), c, key, func(context.Context) (string, error) {
		c.Invalidate("s1", Trackers)
		return "stale", nil
	})
	require.NoError(t, err)

	_, ok := Get[string](c, key)
	assert.False(t, ok)
}

func TestDropScopeDiscardsInFlightResult(t *testing.T) {
	c := New(16, time.Minute)
	key := NewKey("s1", Favorites)

	_, err := Fetch(context.Background(), c, key, func(context.Context) (string, error) {
		c.DropScope("s1")
		return "previous user", nil
	})
	require.NoError(t, err)

	_, ok := Get[string](c, key)
	assert.False(t, ok)
}

func TestFetchOutlivesCanceledCaller(t *testing.T) {
	c := New(16, time.Minute)
	key := NewKey("s1", Notifications)

	started := make(chan struct{})
	release := make(chan struct{})
	fn := func(ctx context.Context) (int, error) {
		close(started)
		<-release
		return 7, ctx.Err()
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := Fetch(ctx, c, key, fn)
		errc <- err
	}()
	<-started
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	close(release)
	assert.Eventually(t, func() bool {
		v, ok := Get[int](c, key)
		return ok && v == 7
	}, time.Second, 10*time.Millisecond)
}

func TestGenerationsReleased(t *testing.T) {
	c := New(64, time.Minute)
	for i := 0; i < 10000; i++ {
		scope := fmt.Sprintf("s%d", i)
		_, err := Fetch(context.Background(), c, NewKey(scope, Favorites), func(context.Context) (int, error) {
			c.Invalidate(scope, Favorites, Trackers)
			return i, nil
		})
		require.NoError(t, err)
		c.Invalidate(scope, Favorites, Trackers)
		c.DropScope(scope)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Empty(t, c.generations)
	assert.Empty(t, c.inflight)
}

func TestMutateInvalidatesByTable(t *testing.T) {
	c := New(16, time.Minute)
	c.Set(NewKey("s1", Announcements, "all"), 1)
	c.Set(NewKey("s1", Announcement, 4), 2)
	c.Set(NewKey("s1", Organizations), 3)
	c.Set(NewKey("s2", Announcements, "all"), 4)

	err := c.Mutate(context.Background(), "s1", DeleteAnnouncement, func(context.Context) error { return nil })
	require.NoError(t, err)

	_, ok := Get[int](c, NewKey("s1", Announcements, "all"))
	assert.False(t, ok)
	_, ok = Get[int](c, NewKey("s1", Announcement, 4))
	assert.False(t, ok)
	_, ok = Get[int](c, NewKey("s1", Organizations))
	assert.True(t, ok)
	_, ok = Get[int](c, NewKey("s2", Announcements, "all"))
	assert.True(t, ok, "other scopes are untouched")
}

func TestMutateErrorKeepsCache(t *testing.T) {
	c := New(16, time.Minute)
	key := NewKey("s1", Trackers)
	c.Set(key, "cached")

	err := c.Mutate(context.Background(), "s1", UpsertTracker, func(context.Context) error { return errors.New("400") })
	assert.Error(t, err)
	v, ok := Get[string](c, key)
	assert.True(t, ok)
	assert.Equal(t, "cached", v)
}

func TestOptimisticVisibleBeforeConfirmation(t *testing.T) {
	c := New(16, time.Minute)
	key := NewKey("s1", Favorites)
	c.Set(key, []int{1, 2})

	err := Optimistic(context.Background(), c, key, AddFavorite,
		func(ids []int) []int { return append(append([]int(nil), ids...), 3) },
		func(context.Context) error {
			v, ok := Get[[]int](c, key)
			require.True(t, ok)
			assert.Equal(t, []int{1, 2, 3}, v)
			return nil
		})
	require.NoError(t, err)

	_, ok := Get[[]int](c, key)
	assert.False(t, ok, "confirmed mutation invalidates favorites")
}

func TestOptimisticRollsBackOnError(t *testing.T) {
	c := New(16, time.Minute)
	key := NewKey("s1", Favorites)
	c.Set(key, []int{1, 2})

	boom := errors.New("server error")
	err := Optimistic(context.Background(), c, key, RemoveFavorite,
		func(ids []int) []int { return ids[:1] },
		func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	v, ok := Get[[]int](c, key)
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, v)
}

func TestOptimisticWithoutCachedValue(t *testing.T) {
	c := New(16, time.Minute)
	key := NewKey("s1", Favorites)

	err := Optimistic(context.Background(), c, key, AddFavorite,
		func(ids []int) []int { return append(ids, 7) },
		func(context.Context) error { return errors.New("nope") })
	assert.Error(t, err)
	_, ok := Get[[]int](c, key)
	assert.False(t, ok)
}

func TestOptimisticRollbackSkipsDroppedScope(t *testing.T) {
	c := New(16, time.Minute)
	key := NewKey("s1", Favorites)
	c.Set(key, []int{1, 2})

	err := Optimistic(context.Background(), c, key, AddFavorite,
		func(ids []int) []int { return append(append([]int(nil), ids...), 3) },
		func(context.Context) error {
			c.DropScope("s1")
			return errors.New("session expired")
		})
	assert.Error(t, err)

	_, ok := Get[[]int](c, key)
	assert.False(t, ok, "rollback must not restore a dropped scope")
}

func TestPruneAndDropScope(t *testing.T) {
	c := New(16, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }
	c.Set(NewKey("s1", Favorites), 1)
	c.Set(NewKey("s2", Favorites), 2)

	now = now.Add(30 * time.Second)
	c.Set(NewKey("s1", Trackers), 3)
	now = now.Add(45 * time.Second)

	assert.Equal(t, 2, c.Prune())
	assert.Equal(t, 1, c.Len())

	c.DropScope("s1")
	assert.Equal(t, 0, c.Len())
}

func TestEveryMutationHasInvalidations(t *testing.T) {
	for m, rs := range Invalidates {
		assert.NotEmpty(t, rs, string(m))
	}
}
