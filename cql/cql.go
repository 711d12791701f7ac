// Package cql lets uuidmap containers be bound directly as Cassandra/Scylla
// collection columns through github.com/gocql/gocql.
//
// Maps bind to map<uuid, V> columns and sets to set<uuid> or list<uuid>
// columns:
//
//	users := uuidmap.NewMap[string](0)
//	err := session.Query(`SELECT names FROM groups WHERE id = ?`, gid).
//		Scan(cql.Map(users))
//
// Encoding defers to gocql's native collection encoding. Decoding validates
// every identifier before touching the container, then replaces its
// contents. Ordered containers are not adapted: CQL collections carry no
// insertion order.
package cql

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/tamirms/uuidmap"
	uuiderrors "github.com/tamirms/uuidmap/errors"
)

// MapColumn adapts a HashMap to a map<uuid, V> column.
type MapColumn[K comparable, V any, S uuidmap.Strategy[K]] struct {
	m   *uuidmap.HashMap[K, V, S]
	key func(uuid.UUID) K
}

var (
	_ gocql.Marshaler   = (*MapColumn[uuid.UUID, int, uuidmap.BuildHasher])(nil)
	_ gocql.Unmarshaler = (*MapColumn[uuid.UUID, int, uuidmap.BuildHasher])(nil)
	_ gocql.Marshaler   = (*SetColumn[uuid.UUID, uuidmap.BuildHasher])(nil)
	_ gocql.Unmarshaler = (*SetColumn[uuid.UUID, uuidmap.BuildHasher])(nil)
)

// Map binds m to a map<uuid, V> column.
func Map[V any](m *uuidmap.Map[V]) *MapColumn[uuid.UUID, V, uuidmap.BuildHasher] {
	return &MapColumn[uuid.UUID, V, uuidmap.BuildHasher]{m: m, key: identity}
}

// LikeMap binds m to a map<uuid, V> column. key converts decoded
// identifiers back to K.
func LikeMap[K uuidmap.Like, V any](m *uuidmap.LikeMap[K, V], key func(uuid.UUID) K) *MapColumn[K, V, uuidmap.LikeBuildHasher[K]] {
	return &MapColumn[K, V, uuidmap.LikeBuildHasher[K]]{m: m, key: key}
}

// MarshalCQL implements gocql.Marshaler.
func (c *MapColumn[K, V, S]) MarshalCQL(info gocql.TypeInfo) ([]byte, error) {
	if err := checkColumn(info, gocql.TypeMap); err != nil {
		return nil, err
	}
	var s S
	native := make(map[gocql.UUID]V, c.m.Len())
	for k, v := range c.m.All() {
		native[gocql.UUID(s.ID(&k))] = v
	}
	return gocql.Marshal(info, native)
}

// UnmarshalCQL implements gocql.Unmarshaler. On error the map is left
// unchanged.
func (c *MapColumn[K, V, S]) UnmarshalCQL(info gocql.TypeInfo, data []byte) error {
	if err := checkColumn(info, gocql.TypeMap); err != nil {
		return err
	}
	var native map[gocql.UUID]V
	if err := gocql.Unmarshal(info, data, &native); err != nil {
		return fmt.Errorf("unmarshal %v column: %w", info, err)
	}
	for id := range native {
		if err := uuidmap.Validate(uuid.UUID(id)); err != nil {
			return fmt.Errorf("decode %v column: %w", info, err)
		}
	}

	c.m.Clear()
	for id, v := range native {
		c.m.Insert(c.key(uuid.UUID(id)), v)
	}
	return nil
}

// SetColumn adapts a HashSet to a set<uuid> or list<uuid> column.
type SetColumn[K comparable, S uuidmap.Strategy[K]] struct {
	s   *uuidmap.HashSet[K, S]
	key func(uuid.UUID) K
}

// Set binds s to a set<uuid> or list<uuid> column.
func Set(s *uuidmap.Set) *SetColumn[uuid.UUID, uuidmap.BuildHasher] {
	return &SetColumn[uuid.UUID, uuidmap.BuildHasher]{s: s, key: identity}
}

// LikeSet binds s to a set<uuid> or list<uuid> column. key converts
// decoded identifiers back to K.
func LikeSet[K uuidmap.Like](s *uuidmap.LikeSet[K], key func(uuid.UUID) K) *SetColumn[K, uuidmap.LikeBuildHasher[K]] {
	return &SetColumn[K, uuidmap.LikeBuildHasher[K]]{s: s, key: key}
}

// MarshalCQL implements gocql.Marshaler. Elements are written in byte
// order so equal sets encode identically.
func (c *SetColumn[K, S]) MarshalCQL(info gocql.TypeInfo) ([]byte, error) {
	if err := checkColumn(info, gocql.TypeSet, gocql.TypeList); err != nil {
		return nil, err
	}
	var s S
	native := make([]gocql.UUID, 0, c.s.Len())
	for k := range c.s.All() {
		native = append(native, gocql.UUID(s.ID(&k)))
	}
	slices.SortFunc(native, func(a, b gocql.UUID) int {
		return bytes.Compare(a[:], b[:])
	})
	return gocql.Marshal(info, native)
}

// UnmarshalCQL implements gocql.Unmarshaler. Duplicate list elements
// collapse. On error the set is left unchanged.
func (c *SetColumn[K, S]) UnmarshalCQL(info gocql.TypeInfo, data []byte) error {
	if err := checkColumn(info, gocql.TypeSet, gocql.TypeList); err != nil {
		return err
	}
	var native []gocql.UUID
	if err := gocql.Unmarshal(info, data, &native); err != nil {
		return fmt.Errorf("unmarshal %v column: %w", info, err)
	}
	for _, id := range native {
		if err := uuidmap.Validate(uuid.UUID(id)); err != nil {
			return fmt.Errorf("decode %v column: %w", info, err)
		}
	}

	c.s.Clear()
	for _, id := range native {
		c.s.Insert(c.key(uuid.UUID(id)))
	}
	return nil
}

func identity(id uuid.UUID) uuid.UUID { return id }

// checkColumn returns ErrColumnType unless info is a collection of one of
// the given types whose identifier component is uuid or timeuuid.
func checkColumn(info gocql.TypeInfo, want ...gocql.Type) error {
	ct, ok := info.(gocql.CollectionType)
	if !ok || !slices.Contains(want, ct.Type()) {
		return fmt.Errorf("%w: declared %v", uuiderrors.ErrColumnType, info)
	}
	idInfo := ct.Elem
	if ct.Type() == gocql.TypeMap {
		idInfo = ct.Key
	}
	if idInfo == nil {
		return fmt.Errorf("%w: declared %v", uuiderrors.ErrColumnType, info)
	}
	switch idInfo.Type() {
	case gocql.TypeUUID, gocql.TypeTimeUUID:
		return nil
	default:
		return fmt.Errorf("%w: declared %v, identifiers must be uuid or timeuuid", uuiderrors.ErrColumnType, info)
	}
}
