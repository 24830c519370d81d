package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/timebucket/internal/repository"
)

func TestCache_SetGetDelete(t *testing.T) {
	c := NewCache(time.Hour)
	defer c.Stop()
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)

	value := []byte("user-1")
	require.NoError(t, c.Set(ctx, "k", value, 0))
	value[0] = 'X'

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("user-1"), got, "stored value must be a copy")

	require.NoError(t, c.Delete(ctx, "k", "never-set"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)
}

func TestCache_TTL(t *testing.T) {
	c := NewCache(time.Hour)
	defer c.Stop()
	ctx := context.Background()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "short", []byte("v"), time.Minute))
	require.NoError(t, c.Set(ctx, "forever", []byte("v"), 0))

	now = now.Add(time.Minute)
	_, err := c.Get(ctx, "short")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)

	_, err = c.Get(ctx, "forever")
	assert.NoError(t, err)

	c.cleanup()
	assert.Equal(t, 1, c.Len())
}
