// Package storetest holds the behavioural suite every store.Store backend
// must pass.
package storetest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/daily-meme-quiz/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Harness builds a fresh, empty store for one subtest. Advance moves the
// store's notion of time forward so TTL behaviour can be checked without
// sleeping.
type Harness func(t *testing.T) (s store.Store, advance func(time.Duration))

// RawWriter lets the suite plant a payload the backend did not encode.
type RawWriter func(t *testing.T, s store.Store, key string, raw string)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Run executes the contract suite.
func Run(t *testing.T, newStore Harness, writeRaw RawWriter) {
	ctx := context.Background()

	t.Run("json round trip", func(t *testing.T) {
		s, _ := newStore(t)

		require.NoError(t, s.SetJSON(ctx, "k", payload{Name: "a", Count: 2}, 0))

		var got payload
		ok, err := s.GetJSON(ctx, "k", &got)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, payload{Name: "a", Count: 2}, got)
	})

	t.Run("missing key is absent", func(t *testing.T) {
		s, _ := newStore(t)

		var got payload
		ok, err := s.GetJSON(ctx, "nope", &got)
		require.NoError(t, err)
		assert.False(t, ok)

		exists, err := s.Exists(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("malformed payload is absent", func(t *testing.T) {
		if writeRaw == nil {
			t.Skip("backend cannot plant raw payloads")
		}
		s, _ := newStore(t)
		writeRaw(t, s, "bad", "{not json")

		var got payload
		ok, err := s.GetJSON(ctx, "bad", &got)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ttl expiry", func(t *testing.T) {
		s, advance := newStore(t)

		require.NoError(t, s.SetJSON(ctx, "short", payload{Name: "x"}, 10*time.Second))
		require.NoError(t, s.SetJSON(ctx, "forever", payload{Name: "y"}, 0))

		advance(5 * time.Second)
		exists, err := s.Exists(ctx, "short")
		require.NoError(t, err)
		assert.True(t, exists)

		advance(6 * time.Second)
		var got payload
		ok, err := s.GetJSON(ctx, "short", &got)
		require.NoError(t, err)
		assert.False(t, ok, "expired entries must never be returned")

		exists, err = s.Exists(ctx, "forever")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("delete", func(t *testing.T) {
		s, _ := newStore(t)

		require.NoError(t, s.SetJSON(ctx, "k", 1, 0))
		require.NoError(t, s.Delete(ctx, "k"))
		require.NoError(t, s.Delete(ctx, "never-set"))

		exists, err := s.Exists(ctx, "k")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("set if absent", func(t *testing.T) {
		s, advance := newStore(t)

		ok, err := s.SetIfAbsent(ctx, "lock", payload{Name: "first"}, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.SetIfAbsent(ctx, "lock", payload{Name: "second"}, time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		var got payload
		found, err := s.GetJSON(ctx, "lock", &got)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "first", got.Name, "existing value must be untouched")

		advance(2 * time.Minute)
		ok, err = s.SetIfAbsent(ctx, "lock", payload{Name: "third"}, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "expired lock can be taken again")
	})

	t.Run("set if absent is atomic under contention", func(t *testing.T) {
		s, _ := newStore(t)

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := s.SetIfAbsent(ctx, "race", 1, time.Minute)
				assert.NoError(t, err)
				if ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})

	t.Run("hash", func(t *testing.T) {
		s, _ := newStore(t)

		require.NoError(t, s.HSet(ctx, "h", "alice", "Alice"))
		require.NoError(t, s.HSet(ctx, "h", "alice", "Alice2"))

		v, ok, err := s.HGet(ctx, "h", "alice")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "Alice2", v)

		_, ok, err = s.HGet(ctx, "h", "bob")
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = s.HGet(ctx, "missing", "bob")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ranked set", func(t *testing.T) {
		s, _ := newStore(t)

		require.NoError(t, s.ZAdd(ctx, "z", 100, "a"))
		require.NoError(t, s.ZAdd(ctx, "z", 300, "b"))
		require.NoError(t, s.ZAdd(ctx, "z", 200, "c"))
		require.NoError(t, s.ZAdd(ctx, "z", 50, "a"))

		top, err := s.ZTop(ctx, "z", 10)
		require.NoError(t, err)
		assert.Equal(t, []store.ScoredMember{
			{Member: "b", Score: 300},
			{Member: "c", Score: 200},
			{Member: "a", Score: 50},
		}, top, "re-adding overwrites rather than accumulates")

		top, err = s.ZTop(ctx, "z", 2)
		require.NoError(t, err)
		assert.Len(t, top, 2)

		top, err = s.ZTop(ctx, "empty", 5)
		require.NoError(t, err)
		assert.Empty(t, top)
	})

	t.Run("set", func(t *testing.T) {
		s, _ := newStore(t)

		require.NoError(t, s.SAdd(ctx, "used", "a", "b"))
		require.NoError(t, s.SAdd(ctx, "used", "b", "c"))

		members, err := s.SMembers(ctx, "used")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a", "b", "c"}, members)

		require.NoError(t, s.Delete(ctx, "used"))
		members, err = s.SMembers(ctx, "used")
		require.NoError(t, err)
		assert.Empty(t, members)
	})

	t.Run("ping", func(t *testing.T) {
		s, _ := newStore(t)
		assert.NoError(t, s.Ping(ctx))
	})
}
