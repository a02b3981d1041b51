package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/daily-meme-quiz/internal/store"
	"github.com/daily-meme-quiz/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newMemoryHarness(t *testing.T) (store.Store, func(time.Duration)) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return store.NewMemoryStoreWithClock(clock.Now), clock.Advance
}

func TestMemoryStore_Contract(t *testing.T) {
	storetest.Run(t, newMemoryHarness, nil)
}

func TestMemoryStore_TiesKeepInsertionOrder(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.ZAdd(ctx, "z", 7000, "second"))
	require.NoError(t, s.ZAdd(ctx, "z", 9000, "top"))
	require.NoError(t, s.ZAdd(ctx, "z", 7000, "third"))

	top, err := s.ZTop(ctx, "z", 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, "top", top[0].Member)
	assert.Equal(t, "second", top[1].Member)
	assert.Equal(t, "third", top[2].Member)
}

func TestMemoryStore_SetReplacesOtherTypes(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.SAdd(ctx, "k", "x"))
	require.NoError(t, s.SetJSON(ctx, "k", "value", 0))

	members, err := s.SMembers(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, members)

	ok, err := s.SetIfAbsent(ctx, "k", "other", 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_ExpiryCoversAllTypes(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	s := store.NewMemoryStoreWithClock(clock.Now)
	ctx := context.Background()

	require.NoError(t, s.SetJSON(ctx, "k", 1, time.Second))
	clock.Advance(time.Second)

	require.NoError(t, s.HSet(ctx, "k", "f", "v"))
	exists, err := s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists, "hash written after expiry starts a fresh key")

	var got int
	ok, err := s.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}
