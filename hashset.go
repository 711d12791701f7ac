package uuidmap

import (
	"iter"

	"github.com/cockroachdb/swiss"
)

// HashSet is an unordered set of keys that reduce to UUIDv4s or UUIDv7s.
//
// The zero value is an empty set ready to use. See HashMap for the
// concurrency and panic contract.
type HashSet[K comparable, S Strategy[K]] struct {
	table *swiss.Map[K, struct{}]
}

// NewHashSet returns an empty HashSet with room for at least capacity keys.
func NewHashSet[K comparable, S Strategy[K]](capacity int) *HashSet[K, S] {
	return &HashSet[K, S]{table: newTable[K, struct{}, S](capacity)}
}

// CollectHashSet builds a HashSet from seq.
func CollectHashSet[K comparable, S Strategy[K]](seq iter.Seq[K]) *HashSet[K, S] {
	s := &HashSet[K, S]{}
	s.Extend(seq)
	return s
}

func (s *HashSet[K, S]) init() {
	if s.table == nil {
		s.table = newTable[K, struct{}, S](0)
	}
}

// Insert adds key and reports whether it was newly added.
func (s *HashSet[K, S]) Insert(key K) bool {
	s.init()
	if _, ok := s.table.Get(key); ok {
		return false
	}
	s.table.Put(key, struct{}{})
	return true
}

// Contains reports whether key is present.
func (s *HashSet[K, S]) Contains(key K) bool {
	if s.table == nil {
		var st S
		st.HashKey(&key)
		return false
	}
	_, ok := s.table.Get(key)
	return ok
}

// Remove deletes key and reports whether it was present.
func (s *HashSet[K, S]) Remove(key K) bool {
	if !s.Contains(key) {
		return false
	}
	s.table.Delete(key)
	return true
}

// Len returns the number of keys.
func (s *HashSet[K, S]) Len() int {
	if s.table == nil {
		return 0
	}
	return s.table.Len()
}

// Clear removes all keys.
func (s *HashSet[K, S]) Clear() {
	s.table = nil
}

// Clone returns a copy of s.
func (s *HashSet[K, S]) Clone() *HashSet[K, S] {
	c := NewHashSet[K, S](s.Len())
	c.Extend(s.All())
	return c
}

// Extend adds every key of seq.
func (s *HashSet[K, S]) Extend(seq iter.Seq[K]) {
	s.init()
	for k := range seq {
		s.table.Put(k, struct{}{})
	}
}

// All returns an iterator over all keys in unspecified order.
func (s *HashSet[K, S]) All() iter.Seq[K] {
	return func(yield func(K) bool) {
		if s.table == nil {
			return
		}
		s.table.All(func(k K, _ struct{}) bool {
			return yield(k)
		})
	}
}

// Drain returns an iterator that yields every key and leaves s empty.
// s is emptied as soon as iteration starts.
func (s *HashSet[K, S]) Drain() iter.Seq[K] {
	return func(yield func(K) bool) {
		t := s.table
		s.table = nil
		if t == nil {
			return
		}
		t.All(func(k K, _ struct{}) bool {
			return yield(k)
		})
	}
}

// Equal reports whether s and o hold the same keys.
func (s *HashSet[K, S]) Equal(o *HashSet[K, S]) bool {
	if s.Len() != o.Len() {
		return false
	}
	for k := range s.All() {
		if !o.Contains(k) {
			return false
		}
	}
	return true
}

// String formats s like a Go slice of keys.
func (s *HashSet[K, S]) String() string {
	return formatKeys("set[", s.All())
}
