package uuidmap

import (
	"context"
	"iter"

	"github.com/google/uuid"
)

// Map is a HashMap keyed by uuid.UUID.
type Map[V any] = HashMap[uuid.UUID, V, BuildHasher]

// OrderedMap is an IndexMap keyed by uuid.UUID.
type OrderedMap[V any] = IndexMap[uuid.UUID, V, BuildHasher]

// Set is a HashSet of uuid.UUID.
type Set = HashSet[uuid.UUID, BuildHasher]

// OrderedSet is an IndexSet of uuid.UUID.
type OrderedSet = IndexSet[uuid.UUID, BuildHasher]

// LikeMap is a HashMap keyed by an identifier-like type.
type LikeMap[K Like, V any] = HashMap[K, V, LikeBuildHasher[K]]

// LikeOrderedMap is an IndexMap keyed by an identifier-like type.
type LikeOrderedMap[K Like, V any] = IndexMap[K, V, LikeBuildHasher[K]]

// LikeSet is a HashSet of an identifier-like type.
type LikeSet[K Like] = HashSet[K, LikeBuildHasher[K]]

// LikeOrderedSet is an IndexSet of an identifier-like type.
type LikeOrderedSet[K Like] = IndexSet[K, LikeBuildHasher[K]]

// NewMap returns an empty Map with room for at least capacity entries.
func NewMap[V any](capacity int) *Map[V] {
	return NewHashMap[uuid.UUID, V, BuildHasher](capacity)
}

// CollectMap builds a Map from seq.
func CollectMap[V any](seq iter.Seq2[uuid.UUID, V]) *Map[V] {
	return CollectHashMap[uuid.UUID, V, BuildHasher](seq)
}

// NewOrderedMap returns an empty OrderedMap with room for at least capacity
// entries.
func NewOrderedMap[V any](capacity int) *OrderedMap[V] {
	return NewIndexMap[uuid.UUID, V, BuildHasher](capacity)
}

// CollectOrderedMap builds an OrderedMap from seq, in order.
func CollectOrderedMap[V any](seq iter.Seq2[uuid.UUID, V]) *OrderedMap[V] {
	return CollectIndexMap[uuid.UUID, V, BuildHasher](seq)
}

// NewSet returns an empty Set with room for at least capacity identifiers.
func NewSet(capacity int) *Set {
	return NewHashSet[uuid.UUID, BuildHasher](capacity)
}

// CollectSet builds a Set from seq.
func CollectSet(seq iter.Seq[uuid.UUID]) *Set {
	return CollectHashSet[uuid.UUID, BuildHasher](seq)
}

// NewOrderedSet returns an empty OrderedSet with room for at least capacity
// identifiers.
func NewOrderedSet(capacity int) *OrderedSet {
	return NewIndexSet[uuid.UUID, BuildHasher](capacity)
}

// CollectOrderedSet builds an OrderedSet from seq, in order.
func CollectOrderedSet(seq iter.Seq[uuid.UUID]) *OrderedSet {
	return CollectIndexSet[uuid.UUID, BuildHasher](seq)
}

// NewLikeMap returns an empty LikeMap with room for at least capacity
// entries.
func NewLikeMap[K Like, V any](capacity int) *LikeMap[K, V] {
	return NewHashMap[K, V, LikeBuildHasher[K]](capacity)
}

// CollectLikeMap builds a LikeMap from seq.
func CollectLikeMap[K Like, V any](seq iter.Seq2[K, V]) *LikeMap[K, V] {
	return CollectHashMap[K, V, LikeBuildHasher[K]](seq)
}

// NewLikeOrderedMap returns an empty LikeOrderedMap with room for at least
// capacity entries.
func NewLikeOrderedMap[K Like, V any](capacity int) *LikeOrderedMap[K, V] {
	return NewIndexMap[K, V, LikeBuildHasher[K]](capacity)
}

// CollectLikeOrderedMap builds a LikeOrderedMap from seq, in order.
func CollectLikeOrderedMap[K Like, V any](seq iter.Seq2[K, V]) *LikeOrderedMap[K, V] {
	return CollectIndexMap[K, V, LikeBuildHasher[K]](seq)
}

// NewLikeSet returns an empty LikeSet with room for at least capacity keys.
func NewLikeSet[K Like](capacity int) *LikeSet[K] {
	return NewHashSet[K, LikeBuildHasher[K]](capacity)
}

// CollectLikeSet builds a LikeSet from seq.
func CollectLikeSet[K Like](seq iter.Seq[K]) *LikeSet[K] {
	return CollectHashSet[K, LikeBuildHasher[K]](seq)
}

// NewLikeOrderedSet returns an empty LikeOrderedSet with room for at least
// capacity keys.
func NewLikeOrderedSet[K Like](capacity int) *LikeOrderedSet[K] {
	return NewIndexSet[K, LikeBuildHasher[K]](capacity)
}

// CollectLikeOrderedSet builds a LikeOrderedSet from seq, in order.
func CollectLikeOrderedSet[K Like](seq iter.Seq[K]) *LikeOrderedSet[K] {
	return CollectIndexSet[K, LikeBuildHasher[K]](seq)
}

// CollectMapParallel builds a Map from parts on parallel workers.
func CollectMapParallel[V any](ctx context.Context, parts []iter.Seq2[uuid.UUID, V], opts ...ParallelOption) (*Map[V], error) {
	return CollectHashMapParallel[uuid.UUID, V, BuildHasher](ctx, parts, opts...)
}

// CollectOrderedMapParallel builds an OrderedMap from parts on parallel
// workers, keeping part order.
func CollectOrderedMapParallel[V any](ctx context.Context, parts []iter.Seq2[uuid.UUID, V], opts ...ParallelOption) (*OrderedMap[V], error) {
	return CollectIndexMapParallel[uuid.UUID, V, BuildHasher](ctx, parts, opts...)
}

// CollectSetParallel builds a Set from parts on parallel workers.
func CollectSetParallel(ctx context.Context, parts []iter.Seq[uuid.UUID], opts ...ParallelOption) (*Set, error) {
	return CollectHashSetParallel[uuid.UUID, BuildHasher](ctx, parts, opts...)
}

// CollectOrderedSetParallel builds an OrderedSet from parts on parallel
// workers, keeping part order.
func CollectOrderedSetParallel(ctx context.Context, parts []iter.Seq[uuid.UUID], opts ...ParallelOption) (*OrderedSet, error) {
	return CollectIndexSetParallel[uuid.UUID, BuildHasher](ctx, parts, opts...)
}
