package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDeduper_AcquireOncePerWindow(t *testing.T) {
	t.Parallel()

	d := NewMemoryDeduper(nil)
	ctx := context.Background()

	ok, err := d.Acquire(ctx, "live-sync:faceit:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.Acquire(ctx, "live-sync:faceit:1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = d.Acquire(ctx, "live-sync:faceit:2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryDeduper_ReleaseReopensKey(t *testing.T) {
	t.Parallel()

	d := NewMemoryDeduper(nil)
	ctx := context.Background()

	ok, err := d.Acquire(ctx, "live-sync:faceit:1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, d.Release(ctx, "live-sync:faceit:1"))

	ok, err = d.Acquire(ctx, "live-sync:faceit:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryDeduper_RejectsEmptyKey(t *testing.T) {
	t.Parallel()

	_, err := NewMemoryDeduper(nil).Acquire(context.Background(), " ", time.Minute)
	assert.Error(t, err)
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	t.Parallel()

	_, err := NewRedisClient("http://not-redis")
	assert.Error(t, err)
}
