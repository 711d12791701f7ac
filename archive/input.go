package archive

import (
	"iter"

	"github.com/google/uuid"
	"github.com/tamirms/uuidmap"
)

// Input is a container prepared for archiving. It captures the container
// by reference: mutating the container before Marshal or WriteFile returns
// changes what is written.
type Input struct {
	kind Kind
	len  func() int
	all  iter.Seq2[uuid.UUID, any]
}

// Kind returns the container kind the input archives as.
func (in Input) Kind() Kind { return in.kind }

// Len returns the number of entries the input holds.
func (in Input) Len() int {
	if in.len == nil {
		return 0
	}
	return in.len()
}

// entries yields identifiers with their values. Sets yield nil values.
func (in Input) entries() iter.Seq2[uuid.UUID, any] {
	if in.all == nil {
		return func(func(uuid.UUID, any) bool) {}
	}
	return in.all
}

// Map prepares a HashMap (including Map and LikeMap) for archiving.
func Map[K comparable, V any, S uuidmap.Strategy[K]](m *uuidmap.HashMap[K, V, S]) Input {
	return Input{kind: KindMap, len: m.Len, all: mapEntries[K, V, S](m.All())}
}

// IndexMap prepares an IndexMap (including OrderedMap and LikeOrderedMap)
// for archiving. The archive keeps its insertion order.
func IndexMap[K comparable, V any, S uuidmap.Strategy[K]](m *uuidmap.IndexMap[K, V, S]) Input {
	return Input{kind: KindIndexMap, len: m.Len, all: mapEntries[K, V, S](m.All())}
}

// Set prepares a HashSet (including Set and LikeSet) for archiving.
func Set[K comparable, S uuidmap.Strategy[K]](s *uuidmap.HashSet[K, S]) Input {
	return Input{kind: KindSet, len: s.Len, all: setEntries[K, S](s.All())}
}

// IndexSet prepares an IndexSet (including OrderedSet and LikeOrderedSet)
// for archiving. The archive keeps its insertion order.
func IndexSet[K comparable, S uuidmap.Strategy[K]](s *uuidmap.IndexSet[K, S]) Input {
	return Input{kind: KindIndexSet, len: s.Len, all: setEntries[K, S](s.All())}
}

func mapEntries[K comparable, V any, S uuidmap.Strategy[K]](all iter.Seq2[K, V]) iter.Seq2[uuid.UUID, any] {
	return func(yield func(uuid.UUID, any) bool) {
		var s S
		for k, v := range all {
			if !yield(s.ID(&k), v) {
				return
			}
		}
	}
}

func setEntries[K comparable, S uuidmap.Strategy[K]](all iter.Seq[K]) iter.Seq2[uuid.UUID, any] {
	return func(yield func(uuid.UUID, any) bool) {
		var s S
		for k := range all {
			if !yield(s.ID(&k), nil) {
				return
			}
		}
	}
}
