package archive

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/tamirms/uuidmap"
	uuiderrors "github.com/tamirms/uuidmap/errors"
)

// decodeEntries validates every archived identifier and calls fn with it
// and its encoded value, in archive order. wantValues selects map kinds
// (true) or set kinds (false); ordered and unordered kinds of the same
// family load into each other.
func (a *Archive) decodeEntries(wantValues bool, fn func(id uuid.UUID, raw []byte) error) error {
	if a.closed.Load() {
		return uuiderrors.ErrArchiveClosed
	}
	if a.header.Kind.hasValues() != wantValues {
		want := "set"
		if wantValues {
			want = "map"
		}
		return fmt.Errorf("%w: cannot load a %s archive as a %s", uuiderrors.ErrKindMismatch, a.header.Kind, want)
	}

	i := 0
	for id, raw := range a.All() {
		if err := uuidmap.Validate(id); err != nil {
			return fmt.Errorf("%w: entry %d: %w", uuiderrors.ErrCorruptedArchive, i, err)
		}
		if err := fn(id, raw); err != nil {
			return err
		}
		i++
	}
	if uint64(i) != a.header.Len {
		return fmt.Errorf("%w: %d of %d entries readable", uuiderrors.ErrCorruptedArchive, i, a.header.Len)
	}
	return nil
}

// checkDistinct reports an archive whose entries collapsed into fewer than
// Len keys on load.
func (a *Archive) checkDistinct(loaded int) error {
	if uint64(loaded) != a.header.Len {
		return fmt.Errorf("%w: %w: %d distinct of %d entries",
			uuiderrors.ErrCorruptedArchive, uuiderrors.ErrDuplicateID, loaded, a.header.Len)
	}
	return nil
}

func decodeValue[V any](a *Archive, id uuid.UUID, raw []byte) (V, error) {
	var v V
	if err := a.codec.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decode value of %s with %s: %w", id, a.codec.Name(), err)
	}
	return v, nil
}

// LoadMap decodes a map archive into a new Map.
func LoadMap[V any](a *Archive) (*uuidmap.Map[V], error) {
	m := uuidmap.NewMap[V](a.Len())
	err := a.decodeEntries(true, func(id uuid.UUID, raw []byte) error {
		v, err := decodeValue[V](a, id, raw)
		if err != nil {
			return err
		}
		m.Insert(id, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := a.checkDistinct(m.Len()); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadOrderedMap decodes a map archive into a new OrderedMap in archive
// order.
func LoadOrderedMap[V any](a *Archive) (*uuidmap.OrderedMap[V], error) {
	m := uuidmap.NewOrderedMap[V](a.Len())
	err := a.decodeEntries(true, func(id uuid.UUID, raw []byte) error {
		v, err := decodeValue[V](a, id, raw)
		if err != nil {
			return err
		}
		m.Insert(id, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := a.checkDistinct(m.Len()); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadSet decodes a set archive into a new Set.
func LoadSet(a *Archive) (*uuidmap.Set, error) {
	s := uuidmap.NewSet(a.Len())
	err := a.decodeEntries(false, func(id uuid.UUID, _ []byte) error {
		s.Insert(id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := a.checkDistinct(s.Len()); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadOrderedSet decodes a set archive into a new OrderedSet in archive
// order.
func LoadOrderedSet(a *Archive) (*uuidmap.OrderedSet, error) {
	s := uuidmap.NewOrderedSet(a.Len())
	err := a.decodeEntries(false, func(id uuid.UUID, _ []byte) error {
		s.Insert(id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := a.checkDistinct(s.Len()); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadLikeMap decodes a map archive into a new LikeMap, converting every
// identifier with key.
func LoadLikeMap[K uuidmap.Like, V any](a *Archive, key func(uuid.UUID) K) (*uuidmap.LikeMap[K, V], error) {
	m := uuidmap.NewLikeMap[K, V](a.Len())
	err := a.decodeEntries(true, func(id uuid.UUID, raw []byte) error {
		v, err := decodeValue[V](a, id, raw)
		if err != nil {
			return err
		}
		m.Insert(key(id), v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := a.checkDistinct(m.Len()); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadLikeOrderedMap is LoadLikeMap for LikeOrderedMap, in archive order.
func LoadLikeOrderedMap[K uuidmap.Like, V any](a *Archive, key func(uuid.UUID) K) (*uuidmap.LikeOrderedMap[K, V], error) {
	m := uuidmap.NewLikeOrderedMap[K, V](a.Len())
	err := a.decodeEntries(true, func(id uuid.UUID, raw []byte) error {
		v, err := decodeValue[V](a, id, raw)
		if err != nil {
			return err
		}
		m.Insert(key(id), v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := a.checkDistinct(m.Len()); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadLikeSet decodes a set archive into a new LikeSet.
func LoadLikeSet[K uuidmap.Like](a *Archive, key func(uuid.UUID) K) (*uuidmap.LikeSet[K], error) {
	s := uuidmap.NewLikeSet[K](a.Len())
	err := a.decodeEntries(false, func(id uuid.UUID, _ []byte) error {
		s.Insert(key(id))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := a.checkDistinct(s.Len()); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadLikeOrderedSet decodes a set archive into a new LikeOrderedSet, in
// archive order.
func LoadLikeOrderedSet[K uuidmap.Like](a *Archive, key func(uuid.UUID) K) (*uuidmap.LikeOrderedSet[K], error) {
	s := uuidmap.NewLikeOrderedSet[K](a.Len())
	err := a.decodeEntries(false, func(id uuid.UUID, _ []byte) error {
		s.Insert(key(id))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := a.checkDistinct(s.Len()); err != nil {
		return nil, err
	}
	return s, nil
}
