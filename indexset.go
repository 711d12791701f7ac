package uuidmap

import "iter"

// IndexSet is a set of keys that reduce to UUIDv4s or UUIDv7s and whose
// iteration order is insertion order. It has the removal semantics of
// IndexMap.
//
// The zero value is an empty set ready to use.
type IndexSet[K comparable, S Strategy[K]] struct {
	m IndexMap[K, struct{}, S]
}

// NewIndexSet returns an empty IndexSet with room for at least capacity keys.
func NewIndexSet[K comparable, S Strategy[K]](capacity int) *IndexSet[K, S] {
	return &IndexSet[K, S]{m: *NewIndexMap[K, struct{}, S](capacity)}
}

// CollectIndexSet builds an IndexSet from seq, keeping first occurrences.
func CollectIndexSet[K comparable, S Strategy[K]](seq iter.Seq[K]) *IndexSet[K, S] {
	s := &IndexSet[K, S]{}
	s.Extend(seq)
	return s
}

// Insert appends key and reports whether it was newly added. An existing key
// keeps its position.
func (s *IndexSet[K, S]) Insert(key K) bool {
	_, replaced := s.m.Insert(key, struct{}{})
	return !replaced
}

// Contains reports whether key is present.
func (s *IndexSet[K, S]) Contains(key K) bool { return s.m.Contains(key) }

// IndexOf returns the position of key in insertion order.
func (s *IndexSet[K, S]) IndexOf(key K) (int, bool) { return s.m.IndexOf(key) }

// GetIndex returns the key at position i.
func (s *IndexSet[K, S]) GetIndex(i int) (K, bool) {
	k, _, ok := s.m.GetIndex(i)
	return k, ok
}

// First returns the oldest key.
func (s *IndexSet[K, S]) First() (K, bool) { return s.GetIndex(0) }

// Last returns the newest key.
func (s *IndexSet[K, S]) Last() (K, bool) { return s.GetIndex(s.m.Len() - 1) }

// Remove deletes key, preserving the order of the remaining keys.
func (s *IndexSet[K, S]) Remove(key K) bool {
	_, ok := s.m.ShiftRemove(key)
	return ok
}

// ShiftRemove is the same as Remove.
func (s *IndexSet[K, S]) ShiftRemove(key K) bool { return s.Remove(key) }

// SwapRemove deletes key and moves the last key into its position.
func (s *IndexSet[K, S]) SwapRemove(key K) bool {
	_, ok := s.m.SwapRemove(key)
	return ok
}

// Pop removes and returns the newest key.
func (s *IndexSet[K, S]) Pop() (K, bool) {
	k, _, ok := s.m.Pop()
	return k, ok
}

// Len returns the number of keys.
func (s *IndexSet[K, S]) Len() int { return s.m.Len() }

// Clear removes all keys.
func (s *IndexSet[K, S]) Clear() { s.m.Clear() }

// Clone returns a copy of s with the same order.
func (s *IndexSet[K, S]) Clone() *IndexSet[K, S] {
	return &IndexSet[K, S]{m: *s.m.Clone()}
}

// Extend adds every key of seq in order.
func (s *IndexSet[K, S]) Extend(seq iter.Seq[K]) {
	for k := range seq {
		s.m.Insert(k, struct{}{})
	}
}

// All returns an iterator over all keys in insertion order.
func (s *IndexSet[K, S]) All() iter.Seq[K] { return s.m.Keys() }

// Drain returns an iterator that yields every key in insertion order and
// leaves s empty. s is emptied as soon as iteration starts.
func (s *IndexSet[K, S]) Drain() iter.Seq[K] { return s.m.DrainKeys() }

// Equal reports whether s and o hold the same keys, in any order.
func (s *IndexSet[K, S]) Equal(o *IndexSet[K, S]) bool {
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

// String formats s like a Go slice of keys, in insertion order.
func (s *IndexSet[K, S]) String() string {
	return formatKeys("set[", s.All())
}
