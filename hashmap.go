package uuidmap

import (
	"iter"

	"github.com/cockroachdb/swiss"
)

// HashMap is an unordered map whose keys reduce to UUIDv4s or UUIDv7s.
// Keys are hashed by strategy S instead of a general-purpose hash function.
//
// The zero value is an empty map ready to use. A HashMap is NOT safe for
// concurrent use when any goroutine mutates it.
//
// Every operation that hashes a key panics if the key's identifier is not a
// UUIDv4 or UUIDv7, including lookups on an empty or zero-value map. Validate identifiers from untrusted input first.
type HashMap[K comparable, V any, S Strategy[K]] struct {
	table *swiss.Map[K, V]
}

// newTable creates a swiss table that hashes with S.
func newTable[K comparable, V any, S Strategy[K]](capacity int) *swiss.Map[K, V] {
	return swiss.New[K, V](capacity, swiss.WithHash[K, V](tableHash[K, S]))
}

// NewHashMap returns an empty HashMap with room for at least capacity
// entries.
func NewHashMap[K comparable, V any, S Strategy[K]](capacity int) *HashMap[K, V, S] {
	return &HashMap[K, V, S]{table: newTable[K, V, S](capacity)}
}

// CollectHashMap builds a HashMap from seq. Later pairs overwrite earlier
// pairs with the same key.
func CollectHashMap[K comparable, V any, S Strategy[K]](seq iter.Seq2[K, V]) *HashMap[K, V, S] {
	m := &HashMap[K, V, S]{}
	m.Extend(seq)
	return m
}

func (m *HashMap[K, V, S]) init() {
	if m.table == nil {
		m.table = newTable[K, V, S](0)
	}
}

// Insert sets the value for key. If key was already present, its previous
// value is returned with replaced set to true.
func (m *HashMap[K, V, S]) Insert(key K, value V) (old V, replaced bool) {
	m.init()
	old, replaced = m.table.Get(key)
	m.table.Put(key, value)
	return old, replaced
}

// Get returns the value for key and whether it was present.
func (m *HashMap[K, V, S]) Get(key K) (V, bool) {
	if m.table == nil {
		var s S
		s.HashKey(&key)
		var zero V
		return zero, false
	}
	return m.table.Get(key)
}

// Contains reports whether key is present.
func (m *HashMap[K, V, S]) Contains(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// Remove deletes key and returns its value, if it was present.
func (m *HashMap[K, V, S]) Remove(key K) (V, bool) {
	v, ok := m.Get(key)
	if ok {
		m.table.Delete(key)
	}
	return v, ok
}

// Len returns the number of entries.
func (m *HashMap[K, V, S]) Len() int {
	if m.table == nil {
		return 0
	}
	return m.table.Len()
}

// Clear removes all entries.
func (m *HashMap[K, V, S]) Clear() {
	m.table = nil
}

// Clone returns a shallow copy of m.
func (m *HashMap[K, V, S]) Clone() *HashMap[K, V, S] {
	c := NewHashMap[K, V, S](m.Len())
	c.Extend(m.All())
	return c
}

// Extend inserts every pair of seq.
func (m *HashMap[K, V, S]) Extend(seq iter.Seq2[K, V]) {
	m.init()
	for k, v := range seq {
		m.table.Put(k, v)
	}
}

// All returns an iterator over all entries in unspecified order.
func (m *HashMap[K, V, S]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if m.table != nil {
			m.table.All(yield)
		}
	}
}

// Keys returns an iterator over all keys in unspecified order.
func (m *HashMap[K, V, S]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range m.All() {
			if !yield(k) {
				return
			}
		}
	}
}

// Values returns an iterator over all values in unspecified order.
func (m *HashMap[K, V, S]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, v := range m.All() {
			if !yield(v) {
				return
			}
		}
	}
}

// Drain returns an iterator that yields every entry and leaves m empty.
// m is emptied as soon as iteration starts, even if the caller stops early;
// entries not yet yielded are dropped.
func (m *HashMap[K, V, S]) Drain() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		t := m.table
		m.table = nil
		if t != nil {
			t.All(yield)
		}
	}
}

// DrainKeys is like Drain but yields only keys.
func (m *HashMap[K, V, S]) DrainKeys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range m.Drain() {
			if !yield(k) {
				return
			}
		}
	}
}

// DrainValues is like Drain but yields only values.
func (m *HashMap[K, V, S]) DrainValues() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, v := range m.Drain() {
			if !yield(v) {
				return
			}
		}
	}
}

// EqualFunc reports whether m and o hold the same keys with values equal
// under eq.
func (m *HashMap[K, V, S]) EqualFunc(o *HashMap[K, V, S], eq func(V, V) bool) bool {
	if m.Len() != o.Len() {
		return false
	}
	for k, v := range m.All() {
		ov, ok := o.Get(k)
		if !ok || !eq(v, ov) {
			return false
		}
	}
	return true
}

// EqualMaps reports whether a and b hold the same entries.
func EqualMaps[K comparable, V comparable, S Strategy[K]](a, b *HashMap[K, V, S]) bool {
	return a.EqualFunc(b, func(x, y V) bool { return x == y })
}

// String formats m like a Go map.
func (m *HashMap[K, V, S]) String() string {
	return formatEntries("map[", m.All())
}
