// Package store defines the key-value contract the game engine persists
// through, and an in-process implementation of it.
//
// Two backends satisfy Store: the networked one in internal/redis, which is
// the source of truth when several instances serve traffic, and MemoryStore
// for single-process deployments and tests. The backend is chosen once at
// startup from configuration.
package store

import (
	"context"
	"encoding/json"
	"time"
)

// ScoredMember is one entry of a ranked set
type ScoredMember struct {
	Member string
	Score  float64
}

// Store is the key-value contract shared by every backend.
//
// A ttl of zero means the key never expires. Hash and sorted-set keys live
// in the same namespace as string keys.
type Store interface {
	// GetJSON decodes the value at key into dst. It returns false when the
	// key is absent, expired or holds a payload that does not decode.
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)

	// SetIfAbsent atomically stores value only when key does not exist and
	// reports whether it did so.
	SetIfAbsent(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)

	HSet(ctx context.Context, key, field, value string) error
	HGet(ctx context.Context, key, field string) (string, bool, error)

	// ZAdd upserts member with score; it never accumulates.
	ZAdd(ctx context.Context, key string, score float64, member string) error
	// ZTop returns up to limit members ordered by score descending.
	ZTop(ctx context.Context, key string, limit int) ([]ScoredMember, error)

	SAdd(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)

	Ping(ctx context.Context) error
	Close() error
}

// Decode unmarshals a stored payload, treating malformed data as absent.
func Decode(raw []byte, dst any) bool {
	if raw == nil {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}
