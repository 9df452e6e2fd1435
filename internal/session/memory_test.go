package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDIsOpaqueAndUnique(t *testing.T) {
	a, err := NewID()
	require.NoError(t, err)
	b, err := NewID()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestMemoryStoreLifecycle(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "sid", 7, time.Hour))
	id, ok, err := s.Get(ctx, "sid")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint(7), id)

	require.NoError(t, s.Destroy(ctx, "sid"))
	require.NoError(t, s.Destroy(ctx, "sid"), "destroy is idempotent")
	_, ok, _ = s.Get(ctx, "sid")
	assert.False(t, ok)
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "short", 1, time.Minute))
	require.NoError(t, s.Set(ctx, "long", 2, DefaultTTL))

	now = now.Add(2 * time.Minute)
	_, ok, _ := s.Get(ctx, "short")
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "short2", 3, time.Minute))
	now = now.Add(time.Hour)
	assert.Equal(t, 1, s.Sweep())

	id, ok, _ := s.Get(ctx, "long")
	assert.True(t, ok)
	assert.Equal(t, uint(2), id)
}

func TestMemoryStoreJanitorStops(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunJanitor(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
