package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. Expiry is enforced lazily: every
// access to a key first drops it if its deadline has passed, so expired
// entries are never observed even though nothing sweeps them.
type MemoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	strings map[string][]byte
	hashes  map[string]map[string]string
	zsets   map[string]*rankedSet
	sets    map[string]map[string]struct{}
	expiry  map[string]time.Time
}

// rankedSet keeps insertion order so equal scores rank first-come first.
type rankedSet struct {
	scores map[string]float64
	order  map[string]int
	seq    int
}

// NewMemoryStore creates an empty store using the wall clock.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock creates an empty store that reads time from now.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		now:     now,
		strings: make(map[string][]byte),
		hashes:  make(map[string]map[string]string),
		zsets:   make(map[string]*rankedSet),
		sets:    make(map[string]map[string]struct{}),
		expiry:  make(map[string]time.Time),
	}
}

// clearIfExpired must be called with mu held.
func (m *MemoryStore) clearIfExpired(key string) {
	deadline, ok := m.expiry[key]
	if !ok || m.now().Before(deadline) {
		return
	}
	m.drop(key)
}

func (m *MemoryStore) drop(key string) {
	delete(m.expiry, key)
	delete(m.strings, key)
	delete(m.hashes, key)
	delete(m.zsets, key)
	delete(m.sets, key)
}

func (m *MemoryStore) setExpiry(key string, ttl time.Duration) {
	if ttl > 0 {
		m.expiry[key] = m.now().Add(ttl)
		return
	}
	delete(m.expiry, key)
}

func (m *MemoryStore) live(key string) bool {
	if _, ok := m.strings[key]; ok {
		return true
	}
	if _, ok := m.hashes[key]; ok {
		return true
	}
	if _, ok := m.zsets[key]; ok {
		return true
	}
	_, ok := m.sets[key]
	return ok
}

// GetJSON decodes the value at key into dst
func (m *MemoryStore) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clearIfExpired(key)
	return Decode(m.strings[key], dst), nil
}

// SetJSON stores value at key
func (m *MemoryStore) SetJSON(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.drop(key)
	m.strings[key] = data
	m.setExpiry(key, ttl)
	return nil
}

// Delete removes key of any type
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.drop(key)
	return nil
}

// Exists reports whether key holds a live value of any type
func (m *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clearIfExpired(key)
	return m.live(key), nil
}

// SetIfAbsent stores value only when key is not live
func (m *MemoryStore) SetIfAbsent(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("encoding %s: %w", key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.clearIfExpired(key)
	if m.live(key) {
		return false, nil
	}
	m.strings[key] = data
	m.setExpiry(key, ttl)
	return true, nil
}

// HSet sets field in the hash at key
func (m *MemoryStore) HSet(_ context.Context, key, field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clearIfExpired(key)
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	h[field] = value
	return nil
}

// HGet reads field from the hash at key
func (m *MemoryStore) HGet(_ context.Context, key, field string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clearIfExpired(key)
	value, ok := m.hashes[key][field]
	return value, ok, nil
}

// ZAdd upserts member's score in the ranked set at key
func (m *MemoryStore) ZAdd(_ context.Context, key string, score float64, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clearIfExpired(key)
	z, ok := m.zsets[key]
	if !ok {
		z = &rankedSet{scores: make(map[string]float64), order: make(map[string]int)}
		m.zsets[key] = z
	}
	if _, seen := z.order[member]; !seen {
		z.order[member] = z.seq
		z.seq++
	}
	z.scores[member] = score
	return nil
}

// ZTop returns the highest-scored members
func (m *MemoryStore) ZTop(_ context.Context, key string, limit int) ([]ScoredMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clearIfExpired(key)
	z, ok := m.zsets[key]
	if !ok || limit <= 0 {
		return []ScoredMember{}, nil
	}

	members := make([]ScoredMember, 0, len(z.scores))
	for member, score := range z.scores {
		members = append(members, ScoredMember{Member: member, Score: score})
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].Score != members[j].Score {
			return members[i].Score > members[j].Score
		}
		return z.order[members[i].Member] < z.order[members[j].Member]
	})

	if len(members) > limit {
		members = members[:limit]
	}
	return members, nil
}

// SAdd adds members to the set at key
func (m *MemoryStore) SAdd(_ context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clearIfExpired(key)
	s, ok := m.sets[key]
	if !ok {
		s = make(map[string]struct{})
		m.sets[key] = s
	}
	for _, member := range members {
		s[member] = struct{}{}
	}
	return nil
}

// SMembers lists the set at key in no particular order
func (m *MemoryStore) SMembers(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clearIfExpired(key)
	out := make([]string, 0, len(m.sets[key]))
	for member := range m.sets[key] {
		out = append(out, member)
	}
	return out, nil
}

// Ping always succeeds
func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

// Close is a no-op
func (m *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
