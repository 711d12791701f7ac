package uuidmap

import (
	"iter"

	"github.com/cockroachdb/swiss"
)

// entry is a key-value pair stored in insertion order.
type entry[K any, V any] struct {
	key   K
	value V
}

// IndexMap is a map whose keys reduce to UUIDv4s or UUIDv7s and whose
// iteration order is insertion order.
//
// Entries live in a slice in insertion order; a swiss table hashed by S maps
// each key to its position. Overwriting a key keeps its position. Remove
// shifts later entries down, so the relative order of the remaining entries
// never changes; SwapRemove is the O(1) alternative that moves the last entry
// into the removed position.
//
// The zero value is an empty map ready to use. See HashMap for the
// concurrency and panic contract.
type IndexMap[K comparable, V any, S Strategy[K]] struct {
	entries []entry[K, V]
	index   *swiss.Map[K, int]
}

// NewIndexMap returns an empty IndexMap with room for at least capacity
// entries.
func NewIndexMap[K comparable, V any, S Strategy[K]](capacity int) *IndexMap[K, V, S] {
	return &IndexMap[K, V, S]{
		entries: make([]entry[K, V], 0, capacity),
		index:   newTable[K, int, S](capacity),
	}
}

// CollectIndexMap builds an IndexMap from seq. A repeated key keeps the
// position of its first occurrence and the value of its last.
func CollectIndexMap[K comparable, V any, S Strategy[K]](seq iter.Seq2[K, V]) *IndexMap[K, V, S] {
	m := &IndexMap[K, V, S]{}
	m.Extend(seq)
	return m
}

func (m *IndexMap[K, V, S]) init() {
	if m.index == nil {
		m.index = newTable[K, int, S](0)
	}
}

// Insert sets the value for key. A new key is appended at the end; an
// existing key keeps its position and its previous value is returned.
func (m *IndexMap[K, V, S]) Insert(key K, value V) (old V, replaced bool) {
	m.init()
	if i, ok := m.index.Get(key); ok {
		old = m.entries[i].value
		m.entries[i].value = value
		return old, true
	}
	m.index.Put(key, len(m.entries))
	m.entries = append(m.entries, entry[K, V]{key: key, value: value})
	return old, false
}

// Get returns the value for key and whether it was present.
func (m *IndexMap[K, V, S]) Get(key K) (V, bool) {
	if i, ok := m.IndexOf(key); ok {
		return m.entries[i].value, true
	}
	var zero V
	return zero, false
}

// Contains reports whether key is present.
func (m *IndexMap[K, V, S]) Contains(key K) bool {
	_, ok := m.IndexOf(key)
	return ok
}

// IndexOf returns the position of key in insertion order.
func (m *IndexMap[K, V, S]) IndexOf(key K) (int, bool) {
	if m.index == nil {
		var s S
		s.HashKey(&key)
		return 0, false
	}
	return m.index.Get(key)
}

// GetIndex returns the entry at position i.
func (m *IndexMap[K, V, S]) GetIndex(i int) (K, V, bool) {
	if i < 0 || i >= len(m.entries) {
		var k K
		var v V
		return k, v, false
	}
	e := m.entries[i]
	return e.key, e.value, true
}

// First returns the oldest entry.
func (m *IndexMap[K, V, S]) First() (K, V, bool) {
	return m.GetIndex(0)
}

// Last returns the newest entry.
func (m *IndexMap[K, V, S]) Last() (K, V, bool) {
	return m.GetIndex(len(m.entries) - 1)
}

// Remove deletes key, preserving the order of the remaining entries.
// It is the same as ShiftRemove.
func (m *IndexMap[K, V, S]) Remove(key K) (V, bool) {
	return m.ShiftRemove(key)
}

// ShiftRemove deletes key and shifts every later entry down by one position.
// It costs O(n) in the number of later entries.
func (m *IndexMap[K, V, S]) ShiftRemove(key K) (V, bool) {
	i, ok := m.IndexOf(key)
	if !ok {
		var zero V
		return zero, false
	}
	v := m.entries[i].value
	m.index.Delete(key)

	last := len(m.entries) - 1
	copy(m.entries[i:], m.entries[i+1:])
	m.entries[last] = entry[K, V]{}
	m.entries = m.entries[:last]
	for j := i; j < last; j++ {
		m.index.Put(m.entries[j].key, j)
	}
	return v, true
}

// SwapRemove deletes key and moves the last entry into its position.
// It costs O(1) but changes the position of the last entry.
func (m *IndexMap[K, V, S]) SwapRemove(key K) (V, bool) {
	i, ok := m.IndexOf(key)
	if !ok {
		var zero V
		return zero, false
	}
	v := m.entries[i].value
	m.index.Delete(key)

	last := len(m.entries) - 1
	if i != last {
		m.entries[i] = m.entries[last]
		m.index.Put(m.entries[i].key, i)
	}
	m.entries[last] = entry[K, V]{}
	m.entries = m.entries[:last]
	return v, true
}

// Pop removes and returns the newest entry.
func (m *IndexMap[K, V, S]) Pop() (K, V, bool) {
	k, v, ok := m.Last()
	if ok {
		m.index.Delete(k)
		last := len(m.entries) - 1
		m.entries[last] = entry[K, V]{}
		m.entries = m.entries[:last]
	}
	return k, v, ok
}

// Len returns the number of entries.
func (m *IndexMap[K, V, S]) Len() int {
	return len(m.entries)
}

// Clear removes all entries.
func (m *IndexMap[K, V, S]) Clear() {
	m.entries = nil
	m.index = nil
}

// Clone returns a shallow copy of m with the same order.
func (m *IndexMap[K, V, S]) Clone() *IndexMap[K, V, S] {
	c := NewIndexMap[K, V, S](m.Len())
	c.Extend(m.All())
	return c
}

// Extend inserts every pair of seq in order.
func (m *IndexMap[K, V, S]) Extend(seq iter.Seq2[K, V]) {
	for k, v := range seq {
		m.Insert(k, v)
	}
}

// All returns an iterator over all entries in insertion order.
func (m *IndexMap[K, V, S]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, e := range m.entries {
			if !yield(e.key, e.value) {
				return
			}
		}
	}
}

// Keys returns an iterator over all keys in insertion order.
func (m *IndexMap[K, V, S]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for _, e := range m.entries {
			if !yield(e.key) {
				return
			}
		}
	}
}

// Values returns an iterator over all values in insertion order.
func (m *IndexMap[K, V, S]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, e := range m.entries {
			if !yield(e.value) {
				return
			}
		}
	}
}

// Drain returns an iterator that yields every entry in insertion order and
// leaves m empty. m is emptied as soon as iteration starts.
func (m *IndexMap[K, V, S]) Drain() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		entries := m.entries
		m.Clear()
		for _, e := range entries {
			if !yield(e.key, e.value) {
				return
			}
		}
	}
}

// DrainKeys is like Drain but yields only keys.
func (m *IndexMap[K, V, S]) DrainKeys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range m.Drain() {
			if !yield(k) {
				return
			}
		}
	}
}

// DrainValues is like Drain but yields only values.
func (m *IndexMap[K, V, S]) DrainValues() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, v := range m.Drain() {
			if !yield(v) {
				return
			}
		}
	}
}

// EqualFunc reports whether m and o hold the same keys with values equal
// under eq. Order is ignored.
func (m *IndexMap[K, V, S]) EqualFunc(o *IndexMap[K, V, S], eq func(V, V) bool) bool {
	if m.Len() != o.Len() {
		return false
	}
	for _, e := range m.entries {
		ov, ok := o.Get(e.key)
		if !ok || !eq(e.value, ov) {
			return false
		}
	}
	return true
}

// EqualIndexMaps reports whether a and b hold the same entries, in any order.
func EqualIndexMaps[K comparable, V comparable, S Strategy[K]](a, b *IndexMap[K, V, S]) bool {
	return a.EqualFunc(b, func(x, y V) bool { return x == y })
}

// String formats m like a Go map, in insertion order.
func (m *IndexMap[K, V, S]) String() string {
	return formatEntries("map[", m.All())
}
