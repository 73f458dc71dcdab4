package cache

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

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestStore(ttl time.Duration) (*Store, *fakeClock) {
	clk := &fakeClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStore(ttl)
	s.clock = clk.Now
	return s, clk
}

func TestStore_GetOrLoadCoalescesConcurrentCallers(t *testing.T) {
	store := NewStore(time.Minute)
	var calls atomic.Int32
	release := make(chan struct{})

	load := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "team-list", nil
	}

	var wg sync.WaitGroup
	results := make([]any, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := store.GetOrLoad(context.Background(), "team:list:faceit", load)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for _, v := range results {
		assert.Equal(t, "team-list", v)
	}

	_, err := store.GetOrLoad(context.Background(), "team:list:faceit", load)
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestStore_GetOrLoadDoesNotCacheErrors(t *testing.T) {
	store := NewStore(time.Minute)
	boom := errors.New("provider down")
	calls := 0
	load := func(context.Context) (any, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return 42, nil
	}

	_, err := store.GetOrLoad(context.Background(), "round:id:r1", load)
	assert.ErrorIs(t, err, boom)

	v, err := store.GetOrLoad(context.Background(), "round:id:r1", load)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestStore_GetOrLoadCallerCancelled(t *testing.T) {
	store := NewStore(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	block := make(chan struct{})
	defer close(block)
	_, err := store.GetOrLoad(ctx, "slow", func(context.Context) (any, error) {
		<-block
		return nil, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_Expiry(t *testing.T) {
	store, clk := newTestStore(30 * time.Second)
	ctx := context.Background()

	store.Set(ctx, "tournament:faceit:t1", "x")
	clk.now = clk.now.Add(29 * time.Second)
	_, ok := store.Get(ctx, "tournament:faceit:t1")
	assert.True(t, ok)

	clk.now = clk.now.Add(time.Second)
	_, ok = store.Get(ctx, "tournament:faceit:t1")
	assert.False(t, ok)
	assert.Zero(t, store.Len())
}

func TestStore_SetNX(t *testing.T) {
	store, clk := newTestStore(time.Minute)
	ctx := context.Background()
	key := "live-sync:faceit:1"

	assert.True(t, store.SetNX(ctx, key, true, 30*time.Second))
	assert.False(t, store.SetNX(ctx, key, true, 30*time.Second))
	assert.False(t, store.SetNX(ctx, "", true, time.Second))

	clk.now = clk.now.Add(31 * time.Second)
	assert.True(t, store.SetNX(ctx, key, true, 30*time.Second))
}

func TestStore_SweepsExpiredOnWrite(t *testing.T) {
	store, clk := newTestStore(time.Second)
	ctx := context.Background()

	for i := 0; i < sweepEvery-1; i++ {
		store.Set(ctx, fmt.Sprintf("k%d", i), i)
	}
	clk.now = clk.now.Add(2 * time.Second)
	store.Set(ctx, "fresh", 1)

	assert.Equal(t, 1, store.Len())
}

func TestStore_Delete(t *testing.T) {
	store := NewStore(0)
	ctx := context.Background()
	store.Set(ctx, "team:faceit:a", 1)
	store.Delete(ctx, "team:faceit:a")
	_, ok := store.Get(ctx, "team:faceit:a")
	assert.False(t, ok)
}
