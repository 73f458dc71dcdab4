// Package cache is the in-process TTL store behind the read-through
// repository decorators and the memory live-sync deduper.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// sweep expired items after this many writes
const sweepEvery = 256

type item struct {
	value    any
	deadline time.Time
}

func (it item) live(now time.Time) bool {
	return it.deadline.IsZero() || now.Before(it.deadline)
}

// Store is safe for concurrent use. A ttl <= 0 means items never expire.
type Store struct {
	ttl   time.Duration
	clock func() time.Time
	group singleflight.Group

	mu     sync.Mutex
	items  map[string]item
	writes int
}

func NewStore(ttl time.Duration) *Store {
	return &Store{ttl: ttl, clock: time.Now, items: map[string]item{}}
}

func (s *Store) Get(_ context.Context, key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[key]
	if !ok {
		return nil, false
	}
	if !it.live(s.clock()) {
		delete(s.items, key)
		return nil, false
	}
	return it.value, true
}

func (s *Store) Set(_ context.Context, key string, value any) {
	s.mu.Lock()
	s.put(key, value, s.ttl)
	s.mu.Unlock()
}

// SetNX stores value only when key is absent or expired and reports whether it did.
func (s *Store) SetNX(_ context.Context, key string, value any, ttl time.Duration) bool {
	if key == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if it, ok := s.items[key]; ok && it.live(s.clock()) {
		return false
	}
	s.put(key, value, ttl)
	return true
}

func (s *Store) Delete(_ context.Context, key string) {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// GetOrLoad returns the cached value or runs load once for all concurrent
// callers of the same key. Errors are not cached. A caller whose ctx ends
// stops waiting without cancelling the shared load.
func (s *Store) GetOrLoad(ctx context.Context, key string, load func(context.Context) (any, error)) (any, error) {
	if load == nil {
		return nil, errors.New("cache: nil loader")
	}
	if v, ok := s.Get(ctx, key); ok {
		return v, nil
	}

	ch := s.group.DoChan(key, func() (any, error) {
		if v, ok := s.Get(ctx, key); ok {
			return v, nil
		}
		v, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		s.Set(ctx, key, v)
		return v, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// put must be called with mu held.
func (s *Store) put(key string, value any, ttl time.Duration) {
	if key == "" {
		return
	}
	now := s.clock()
	it := item{value: value}
	if ttl > 0 {
		it.deadline = now.Add(ttl)
	}
	s.items[key] = it

	s.writes++
	if s.writes%sweepEvery != 0 {
		return
	}
	for k, v := range s.items {
		if !v.live(now) {
			delete(s.items, k)
		}
	}
}
