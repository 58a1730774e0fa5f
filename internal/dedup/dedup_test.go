package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilters(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	filters := map[string]Filter{
		"redis":  NewRedis(rdb, time.Hour),
		"memory": NewMemory(time.Hour),
	}
	for name, f := range filters {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seen, err := f.Seen(ctx, "evt-1")
			require.NoError(t, err)
			assert.False(t, seen)

			seen, err = f.Seen(ctx, "evt-1")
			require.NoError(t, err)
			assert.True(t, seen)

			seen, err = f.Seen(ctx, "evt-2")
			require.NoError(t, err)
			assert.False(t, seen)

			require.NoError(t, f.Forget(ctx, "evt-1"))
			seen, err = f.Seen(ctx, "evt-1")
			require.NoError(t, err)
			assert.False(t, seen)
		})
	}
}

func TestExpiry(t *testing.T) {
	ctx := context.Background()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	r := NewRedis(rdb, time.Minute)
	_, err := r.Seen(ctx, "evt")
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)
	seen, err := r.Seen(ctx, "evt")
	require.NoError(t, err)
	assert.False(t, seen)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(time.Minute)
	m.now = func() time.Time { return now }
	_, _ = m.Seen(ctx, "evt")
	now = now.Add(time.Minute)
	seen, err = m.Seen(ctx, "evt")
	require.NoError(t, err)
	assert.False(t, seen)
}
