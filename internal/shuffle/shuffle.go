// Package shuffle provides a text-seeded permutation that is stable across
// processes, machines and releases. Daily puzzle selection, play order and
// option placement all depend on it, so the algorithm must never change.
package shuffle

import (
	"math"
	"unicode/utf16"
)

const (
	fnvOffset uint32 = 2166136261
	fnvPrime  uint32 = 16777619

	mulberryIncrement uint32 = 0x6d2b79f5
)

// HashSeed folds a seed string into a 32-bit seed with FNV-1a over its
// UTF-16 code units.
func HashSeed(seed string) uint32 {
	hash := fnvOffset
	for _, unit := range utf16.Encode([]rune(seed)) {
		hash ^= uint32(unit)
		hash *= fnvPrime
	}
	return hash
}

// Source is a mulberry32 generator.
type Source struct {
	state uint32
}

// NewSource creates a generator starting from seed.
func NewSource(seed uint32) *Source {
	return &Source{state: seed}
}

// Next returns the next value in [0, 1).
func (s *Source) Next() float64 {
	s.state += mulberryIncrement
	t := s.state
	x := (t ^ (t >> 15)) * (t | 1)
	x ^= x + (x^(x>>7))*(x|61)
	return float64(x^(x>>14)) / 4294967296
}

// Shuffle returns a permutation of items determined entirely by seedText.
// The input slice is not modified.
func Shuffle[T any](items []T, seedText string) []T {
	out := make([]T, len(items))
	copy(out, items)

	src := NewSource(HashSeed(seedText))
	for i := len(out) - 1; i > 0; i-- {
		j := int(math.Floor(src.Next() * float64(i+1)))
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Indices returns the permutation of 0..n-1 for seedText.
func Indices(n int, seedText string) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return Shuffle(idx, seedText)
}
