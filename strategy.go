package uuidmap

import "github.com/google/uuid"

// Strategy reduces keys of type K to identifiers and hashes them.
//
// Implementations are zero-size types: containers take the strategy as a type
// parameter and instantiate it with its zero value on every hash, so a
// strategy must not carry state.
type Strategy[K any] interface {
	// Build returns a fresh Hasher.
	Build() Hasher

	// ID returns the identifier that key reduces to.
	ID(key *K) uuid.UUID

	// HashKey hashes key with a fresh Hasher.
	HashKey(key *K) uint64
}

// Like is implemented by key types that wrap a UUIDv4 or UUIDv7, such as
// domain identifiers:
//
//	type UserID uuid.UUID
//
//	func (u UserID) UUID() uuid.UUID { return uuid.UUID(u) }
//
// Two keys that are equal must return the same identifier.
type Like interface {
	comparable
	UUID() uuid.UUID
}

// BuildHasher is the Strategy for uuid.UUID keys.
type BuildHasher struct{}

// Build returns a fresh Hasher.
func (BuildHasher) Build() Hasher { return Hasher{} }

// ID returns *key.
func (BuildHasher) ID(key *uuid.UUID) uuid.UUID { return *key }

// HashKey hashes *key. It panics if *key is not a UUIDv4 or UUIDv7.
func (b BuildHasher) HashKey(key *uuid.UUID) uint64 {
	h := b.Build()
	_, _ = h.Write(key[:])
	return h.Sum64()
}

// LikeBuildHasher is the Strategy for identifier-like keys.
type LikeBuildHasher[K Like] struct{}

// Build returns a fresh Hasher.
func (LikeBuildHasher[K]) Build() Hasher { return Hasher{} }

// ID returns key.UUID().
func (LikeBuildHasher[K]) ID(key *K) uuid.UUID { return (*key).UUID() }

// HashKey hashes key.UUID(). It panics if the identifier is not a UUIDv4 or
// UUIDv7.
func (b LikeBuildHasher[K]) HashKey(key *K) uint64 {
	id := (*key).UUID()
	h := b.Build()
	_, _ = h.Write(id[:])
	return h.Sum64()
}

// tableHash adapts a Strategy to the hash function signature of the backing
// swiss tables. The per-table seed is ignored: the hash must stay a pure
// function of the identifier.
func tableHash[K any, S Strategy[K]](key *K, _ uintptr) uintptr {
	var s S
	return uintptr(s.HashKey(key))
}
