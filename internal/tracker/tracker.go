// Package tracker keeps the set of primary keys the generator believes exist
// in a fact table. It is a local cache, not a source of truth.
package tracker

import "math/rand"

// DefaultSeedLimit bounds how many keys are loaded from the store at startup
const DefaultSeedLimit = 10000

// KeySet is a set of keys supporting uniform sampling in constant time.
// It is owned by a single pipeline and is not safe for concurrent use.
type KeySet struct {
	keys  []int64
	index map[int64]int
}

// NewKeySet creates an empty key set
func NewKeySet() *KeySet {
	return &KeySet{index: make(map[int64]int)}
}

// Seed replaces the contents of the set with keys
func (s *KeySet) Seed(keys []int64) {
	s.keys = make([]int64, 0, len(keys))
	s.index = make(map[int64]int, len(keys))
	for _, k := range keys {
		s.Add(k)
	}
}

// Add inserts key; adding a present key is a no-op
func (s *KeySet) Add(key int64) {
	if _, ok := s.index[key]; ok {
		return
	}
	s.index[key] = len(s.keys)
	s.keys = append(s.keys, key)
}

// Remove deletes key; removing an absent key is a no-op
func (s *KeySet) Remove(key int64) {
	i, ok := s.index[key]
	if !ok {
		return
	}
	last := len(s.keys) - 1
	moved := s.keys[last]
	s.keys[i] = moved
	s.index[moved] = i
	s.keys = s.keys[:last]
	delete(s.index, key)
}

// Contains reports whether key is tracked
func (s *KeySet) Contains(key int64) bool {
	_, ok := s.index[key]
	return ok
}

// Len returns the number of tracked keys
func (s *KeySet) Len() int {
	return len(s.keys)
}

// Sample returns a uniformly chosen key, or false when the set is empty
func (s *KeySet) Sample(rng *rand.Rand) (int64, bool) {
	if len(s.keys) == 0 {
		return 0, false
	}
	return s.keys[rng.Intn(len(s.keys))], true
}

// Keys returns a copy of the tracked keys in no particular order
func (s *KeySet) Keys() []int64 {
	out := make([]int64, len(s.keys))
	copy(out, s.keys)
	return out
}
