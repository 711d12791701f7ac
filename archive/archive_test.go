package archive

import (
	"bytes"
	"encoding/binary"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tamirms/uuidmap"
	uuiderrors "github.com/tamirms/uuidmap/errors"
	"github.com/tamirms/uuidmap/internal/encoding"
)

type profile struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

type userID uuid.UUID

func (u userID) UUID() uuid.UUID { return uuid.UUID(u) }

// newIDs returns n identifiers alternating between UUIDv4 and UUIDv7.
func newIDs(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		if i%2 == 0 {
			ids[i] = uuidmap.NewV7()
		} else {
			ids[i] = uuidmap.NewV4()
		}
	}
	return ids
}

func newProfileMap(n int) (*uuidmap.Map[profile], []uuid.UUID) {
	ids := newIDs(n)
	m := uuidmap.NewMap[profile](n)
	for i, id := range ids {
		m.Insert(id, profile{Name: "user-" + id.String()[:8], Age: i})
	}
	return m, ids
}

func TestCapacityFor(t *testing.T) {
	tests := []struct {
		n    uint64
		want uint64
	}{
		{0, 8},
		{1, 8},
		{7, 8},
		{8, 16},
		{14, 16},
		{15, 32},
		{1000, 2048},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, capacityFor(tt.n), "capacityFor(%d)", tt.n)
		// Load factor never exceeds 7/8.
		assert.LessOrEqual(t, tt.n*8, capacityFor(tt.n)*7, "capacityFor(%d)", tt.n)
	}
}

func TestMarshalMapRoundtrip(t *testing.T) {
	m, ids := newProfileMap(500)

	buf, err := Marshal(Map(m))
	require.NoError(t, err)

	a, err := OpenBytes(buf)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, KindMap, a.Kind())
	assert.False(t, a.Ordered())
	assert.Equal(t, 500, a.Len())
	assert.Equal(t, "go-json", a.CodecName())
	require.NoError(t, a.Verify())

	for i, id := range ids {
		require.True(t, a.Contains(id))
		var got profile
		ok, err := a.Value(id, &got)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, i, got.Age)
	}

	absent := uuidmap.NewV4()
	assert.False(t, a.Contains(absent))
	_, ok := a.Lookup(absent)
	assert.False(t, ok)
	var got profile
	ok, err = a.Value(absent, &got)
	require.NoError(t, err)
	assert.False(t, ok)

	loaded, err := LoadMap[profile](a)
	require.NoError(t, err)
	assert.True(t, uuidmap.EqualMaps(m, loaded))

	equal, err := a.Equal(Map(m))
	require.NoError(t, err)
	assert.True(t, equal)
}

func TestLookupUnsupportedIdentifier(t *testing.T) {
	m, _ := newProfileMap(10)
	buf, err := Marshal(Map(m))
	require.NoError(t, err)
	a, err := OpenBytes(buf)
	require.NoError(t, err)

	// Version 1 identifiers cannot be hashed; lookups report absence
	// instead of panicking.
	v1 := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	assert.False(t, a.Contains(v1))
	_, ok := a.Lookup(v1)
	assert.False(t, ok)
}

func TestMarshalEmpty(t *testing.T) {
	buf, err := Marshal(Set(uuidmap.NewSet(0)))
	require.NoError(t, err)
	assert.Len(t, buf, minArchiveSize)

	a, err := OpenBytes(buf)
	require.NoError(t, err)
	assert.Equal(t, 0, a.Len())
	assert.Equal(t, "", a.CodecName())
	require.NoError(t, a.Verify())

	s, err := LoadSet(a)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestOrderedRoundtrip(t *testing.T) {
	ids := newIDs(64)

	om := uuidmap.NewOrderedMap[int](0)
	for i, id := range ids {
		om.Insert(id, i*10)
	}
	oset := uuidmap.CollectOrderedSet(slices.Values(ids))

	t.Run("IndexMap", func(t *testing.T) {
		buf, err := Marshal(IndexMap(om))
		require.NoError(t, err)
		a, err := OpenBytes(buf)
		require.NoError(t, err)
		assert.Equal(t, KindIndexMap, a.Kind())
		assert.True(t, a.Ordered())

		var order []uuid.UUID
		for id := range a.All() {
			order = append(order, id)
		}
		assert.Equal(t, ids, order)

		loaded, err := LoadOrderedMap[int](a)
		require.NoError(t, err)
		assert.Equal(t, ids, slices.Collect(loaded.Keys()))
		assert.True(t, uuidmap.EqualIndexMaps(om, loaded))

		// A map archive also loads into the unordered shape.
		unordered, err := LoadMap[int](a)
		require.NoError(t, err)
		assert.Equal(t, len(ids), unordered.Len())
	})

	t.Run("IndexSet", func(t *testing.T) {
		buf, err := Marshal(IndexSet(oset))
		require.NoError(t, err)
		a, err := OpenBytes(buf)
		require.NoError(t, err)
		assert.Equal(t, KindIndexSet, a.Kind())

		loaded, err := LoadOrderedSet(a)
		require.NoError(t, err)
		assert.Equal(t, ids, slices.Collect(loaded.All()))

		v, ok := a.Lookup(ids[3])
		assert.True(t, ok)
		assert.Empty(t, v)
	})
}

func TestLikeKeys(t *testing.T) {
	ids := newIDs(32)
	m := uuidmap.NewLikeMap[userID, string](0)
	s := uuidmap.NewLikeOrderedSet[userID](0)
	for _, id := range ids {
		m.Insert(userID(id), id.String())
		s.Insert(userID(id))
	}

	toUserID := func(id uuid.UUID) userID { return userID(id) }

	buf, err := Marshal(Map(m))
	require.NoError(t, err)
	a, err := OpenBytes(buf)
	require.NoError(t, err)
	lm, err := LoadLikeMap[userID, string](a, toUserID)
	require.NoError(t, err)
	assert.True(t, uuidmap.EqualMaps(m, lm))

	buf, err = Marshal(IndexSet(s))
	require.NoError(t, err)
	a, err = OpenBytes(buf)
	require.NoError(t, err)
	ls, err := LoadLikeOrderedSet(a, toUserID)
	require.NoError(t, err)
	assert.Equal(t, slices.Collect(s.All()), slices.Collect(ls.All()))
}

func TestCodecs(t *testing.T) {
	ids := newIDs(20)
	m := uuidmap.NewMap[string](0)
	for _, id := range ids {
		m.Insert(id, strings.Repeat("compressible ", 50)+id.String())
	}

	codecs := []Codec{
		Raw{},
		GoJSON{},
		Compressed(GoJSON{}, CompressionLZ4),
		Compressed(GoJSON{}, CompressionZSTD),
		Compressed(Raw{}, CompressionLZ4),
		Compressed(Raw{}, CompressionZSTD),
	}
	for _, c := range codecs {
		t.Run(c.Name(), func(t *testing.T) {
			buf, err := Marshal(Map(m), WithCodec(c))
			require.NoError(t, err)
			a, err := OpenBytes(buf)
			require.NoError(t, err)
			assert.Equal(t, c.Name(), a.CodecName())

			loaded, err := LoadMap[string](a)
			require.NoError(t, err)
			assert.True(t, uuidmap.EqualMaps(m, loaded))

			equal, err := a.Equal(Map(m))
			require.NoError(t, err)
			assert.True(t, equal)
		})
	}
}

func TestCompressedSkipsIncompressible(t *testing.T) {
	c := Compressed(Raw{}, CompressionZSTD)
	enc, err := c.Marshal("x")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(enc[4:8]), "tiny values are stored uncompressed")

	var got string
	require.NoError(t, c.Unmarshal(enc, &got))
	assert.Equal(t, "x", got)

	assert.Error(t, c.Unmarshal([]byte{1, 2}, &got))
}

// TestCompressedRawSizeBound rewrites the stored raw size of a compressed
// block to 4 GiB. Decoding must fail on the size mismatch instead of
// allocating the claimed size up front.
func TestCompressedRawSizeBound(t *testing.T) {
	value := strings.Repeat("a", 64<<10)
	for _, alg := range []Compression{CompressionLZ4, CompressionZSTD} {
		c := Compressed(Raw{}, alg)
		t.Run(c.Name(), func(t *testing.T) {
			enc, err := c.Marshal(value)
			require.NoError(t, err)
			require.NotZero(t, binary.LittleEndian.Uint32(enc[4:8]), "value should be stored compressed")

			var got string
			require.NoError(t, c.Unmarshal(enc, &got), "highly compressible values still decode")
			assert.Equal(t, value, got)

			bad := bytes.Clone(enc)
			binary.LittleEndian.PutUint32(bad[0:4], math.MaxUint32)
			assert.Error(t, c.Unmarshal(bad, &got))

			tiny := []byte{0xFF, 0xFF, 0xFF, 0xFF, 4, 0, 0, 0, 1, 2, 3, 4}
			assert.Error(t, c.Unmarshal(tiny, &got))
		})
	}
}

// reverseCodec is a custom codec unknown to ByName.
type reverseCodec struct{}

func (reverseCodec) Name() string { return "reverse" }

func (reverseCodec) Marshal(v any) ([]byte, error) {
	b := []byte(v.(string))
	slices.Reverse(b)
	return b, nil
}

func (reverseCodec) Unmarshal(data []byte, v any) error {
	b := slices.Clone(data)
	slices.Reverse(b)
	*v.(*string) = string(b)
	return nil
}

func TestCustomCodec(t *testing.T) {
	id := uuidmap.NewV7()
	m := uuidmap.NewMap[string](0)
	m.Insert(id, "hello")

	buf, err := Marshal(Map(m), WithCodec(reverseCodec{}))
	require.NoError(t, err)

	_, err = OpenBytes(buf)
	require.ErrorIs(t, err, uuiderrors.ErrUnknownCodec)

	a, err := OpenBytes(buf, WithCodecs(reverseCodec{}))
	require.NoError(t, err)
	raw, ok := a.Lookup(id)
	require.True(t, ok)
	assert.Equal(t, "olleh", string(raw))

	var got string
	ok, err = a.Value(id, &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello", got)
}

type longNameCodec struct{ Raw }

func (longNameCodec) Name() string { return "a-name-longer-than-twelve" }

func TestCodecNameTooLong(t *testing.T) {
	m := uuidmap.NewMap[string](0)
	m.Insert(uuidmap.NewV4(), "v")
	_, err := Marshal(Map(m), WithCodec(longNameCodec{}))
	assert.Error(t, err)
}

func TestMarshalValueError(t *testing.T) {
	m := uuidmap.NewMap[int](0)
	m.Insert(uuidmap.NewV4(), 1)
	// Raw only encodes []byte and string.
	_, err := Marshal(Map(m), WithCodec(Raw{}))
	assert.ErrorContains(t, err, "raw codec")
}

func TestZeroInput(t *testing.T) {
	_, err := Marshal(Input{})
	assert.Error(t, err)
}

func TestOpenErrors(t *testing.T) {
	m, ids := newProfileMap(50)
	good, err := Marshal(Map(m))
	require.NoError(t, err)
	h, err := decodeHeader(good)
	require.NoError(t, err)

	mutate := func(fn func(b []byte) []byte) []byte {
		return fn(bytes.Clone(good))
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"TooShort", good[:minArchiveSize-1], uuiderrors.ErrTruncatedArchive},
		{"Truncated", good[:len(good)-1], uuiderrors.ErrTruncatedArchive},
		{"Trailing", append(bytes.Clone(good), 0), uuiderrors.ErrCorruptedArchive},
		{"Magic", mutate(func(b []byte) []byte { b[0] ^= 0xFF; return b }), uuiderrors.ErrInvalidMagic},
		{"Version", mutate(func(b []byte) []byte { b[4] = 9; return b }), uuiderrors.ErrInvalidVersion},
		{"Kind", mutate(func(b []byte) []byte { b[6] = 42; return b }), uuiderrors.ErrCorruptedArchive},
		{"CodecLen", mutate(func(b []byte) []byte { b[7] = 13; return b }), uuiderrors.ErrCorruptedArchive},
		{"Capacity", mutate(func(b []byte) []byte {
			binary.LittleEndian.PutUint64(b[16:24], h.Capacity*2)
			return b
		}), uuiderrors.ErrCorruptedArchive},
		{"UnknownCodec", mutate(func(b []byte) []byte { b[32] = 'X'; return b }), uuiderrors.ErrUnknownCodec},
		// A value region size chosen so the described size wraps around to
		// exactly len(good).
		{"ValueRegionWraps", mutate(func(b []byte) []byte {
			wrapped := header{Len: 1 << 20, Capacity: capacityFor(1 << 20)}
			binary.LittleEndian.PutUint64(b[8:16], wrapped.Len)
			binary.LittleEndian.PutUint64(b[16:24], wrapped.Capacity)
			binary.LittleEndian.PutUint64(b[24:32], uint64(len(b))-wrapped.valuesOffset()-footerSize)
			return b
		}), uuiderrors.ErrCorruptedArchive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			require.NotPanics(t, func() { _, err = OpenBytes(tt.data) })
			assert.ErrorIs(t, err, tt.want)
		})
	}

	// The untouched archive still opens.
	a, err := OpenBytes(good)
	require.NoError(t, err)
	assert.True(t, a.Contains(ids[0]))
}

func TestVerifyDetectsCorruption(t *testing.T) {
	m, _ := newProfileMap(50)
	good, err := Marshal(Map(m))
	require.NoError(t, err)
	h, err := decodeHeader(good)
	require.NoError(t, err)

	regions := map[string]uint64{
		"Slots":   h.slotsOffset(),
		"Entries": h.entriesOffset() + 20,
		"Values":  h.valuesOffset() + 3,
		"Footer":  h.footerOffset() + 1,
	}
	for name, off := range regions {
		t.Run(name, func(t *testing.T) {
			b := bytes.Clone(good)
			b[off] ^= 0x01
			a, err := OpenBytes(b)
			require.NoError(t, err, "open only reads the header")
			assert.ErrorIs(t, a.Verify(), uuiderrors.ErrChecksumFailed)
		})
	}

	t.Run("InvalidIdentifier", func(t *testing.T) {
		b := bytes.Clone(good)
		// Rewrite the version nibble of the first entry to version 1.
		entries := b[h.entriesOffset():h.valuesOffset()]
		entries[6] = entries[6]&0x0F | 0x10
		a, err := OpenBytes(b)
		require.NoError(t, err)
		_, err = LoadMap[profile](a)
		assert.ErrorIs(t, err, uuiderrors.ErrCorruptedArchive)
		assert.ErrorIs(t, err, uuiderrors.ErrUnsupportedVersion)
	})

	t.Run("ValueOutOfBounds", func(t *testing.T) {
		b := bytes.Clone(good)
		entries := b[h.entriesOffset():h.valuesOffset()]
		e := encoding.ReadEntry(entries, 0)
		e.Length = uint32(h.ValueRegionSize) + 1
		encoding.WriteEntry(entries, 0, e)
		a, err := OpenBytes(b)
		require.NoError(t, err)

		var got profile
		_, err = a.Value(uuid.UUID(e.ID), &got)
		assert.ErrorIs(t, err, uuiderrors.ErrCorruptedArchive)
		_, err = LoadMap[profile](a)
		assert.ErrorIs(t, err, uuiderrors.ErrCorruptedArchive)
		assert.True(t, a.Contains(uuid.UUID(e.ID)), "membership does not depend on the value")
	})

	t.Run("RepeatedIdentifier", func(t *testing.T) {
		b := bytes.Clone(good)
		entries := b[h.entriesOffset():h.valuesOffset()]
		first := encoding.ReadEntry(entries, 0)
		second := encoding.ReadEntry(entries, 1)
		second.ID = first.ID
		encoding.WriteEntry(entries, 1, second)
		a, err := OpenBytes(b)
		require.NoError(t, err)

		_, err = LoadMap[profile](a)
		assert.ErrorIs(t, err, uuiderrors.ErrCorruptedArchive)
		assert.ErrorIs(t, err, uuiderrors.ErrDuplicateID)
		_, err = LoadOrderedMap[profile](a)
		assert.ErrorIs(t, err, uuiderrors.ErrDuplicateID)
	})
}

// taggedID is a Like key whose UUID ignores the tag, so two distinct keys
// can share an identifier.
type taggedID struct {
	id  uuid.UUID
	tag int
}

func (k taggedID) UUID() uuid.UUID { return k.id }

func TestMarshalRejectsRepeatedIdentifier(t *testing.T) {
	id := uuidmap.NewV7()
	s := uuidmap.NewLikeSet[taggedID](0)
	s.Insert(taggedID{id: id, tag: 1})
	s.Insert(taggedID{id: id, tag: 2})
	require.Equal(t, 2, s.Len())

	_, err := Marshal(Set(s))
	assert.ErrorIs(t, err, uuiderrors.ErrDuplicateID)

	m := uuidmap.NewLikeOrderedMap[taggedID, string](0)
	m.Insert(taggedID{id: id, tag: 1}, "a")
	m.Insert(taggedID{id: id, tag: 2}, "b")
	_, err = Marshal(IndexMap(m))
	assert.ErrorIs(t, err, uuiderrors.ErrDuplicateID)

	path := filepath.Join(t.TempDir(), "dup.uuma")
	err = WriteFile(path, Set(s))
	assert.ErrorIs(t, err, uuiderrors.ErrDuplicateID)
	assert.NoFileExists(t, path)
}

func TestKindMismatch(t *testing.T) {
	m, _ := newProfileMap(5)
	s := uuidmap.CollectSet(slices.Values(newIDs(5)))

	mapBuf, err := Marshal(Map(m))
	require.NoError(t, err)
	setBuf, err := Marshal(Set(s))
	require.NoError(t, err)

	ma, err := OpenBytes(mapBuf)
	require.NoError(t, err)
	sa, err := OpenBytes(setBuf)
	require.NoError(t, err)

	_, err = LoadSet(ma)
	assert.ErrorIs(t, err, uuiderrors.ErrKindMismatch)
	_, err = LoadMap[profile](sa)
	assert.ErrorIs(t, err, uuiderrors.ErrKindMismatch)

	_, err = ma.Equal(Set(s))
	assert.ErrorIs(t, err, uuiderrors.ErrKindMismatch)
	_, err = ma.Equal(IndexMap(uuidmap.CollectOrderedMap(m.All())))
	assert.ErrorIs(t, err, uuiderrors.ErrKindMismatch)

	var v string
	_, err = sa.Value(uuidmap.NewV4(), &v)
	assert.ErrorIs(t, err, uuiderrors.ErrKindMismatch)
}

func TestEqualDetectsChanges(t *testing.T) {
	m, ids := newProfileMap(20)
	buf, err := Marshal(Map(m))
	require.NoError(t, err)
	a, err := OpenBytes(buf)
	require.NoError(t, err)

	c := m.Clone()
	c.Insert(ids[0], profile{Name: "changed"})
	equal, err := a.Equal(Map(c))
	require.NoError(t, err)
	assert.False(t, equal, "changed value")

	c = m.Clone()
	c.Remove(ids[0])
	equal, err = a.Equal(Map(c))
	require.NoError(t, err)
	assert.False(t, equal, "missing entry")

	c = m.Clone()
	c.Remove(ids[0])
	c.Insert(uuidmap.NewV4(), profile{})
	equal, err = a.Equal(Map(c))
	require.NoError(t, err)
	assert.False(t, equal, "same length, different key")
}

func TestClose(t *testing.T) {
	m, ids := newProfileMap(5)
	buf, err := Marshal(Map(m))
	require.NoError(t, err)
	a, err := OpenBytes(buf)
	require.NoError(t, err)

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	assert.False(t, a.Contains(ids[0]))
	var got profile
	_, err = a.Value(ids[0], &got)
	assert.ErrorIs(t, err, uuiderrors.ErrArchiveClosed)
	assert.ErrorIs(t, a.Verify(), uuiderrors.ErrArchiveClosed)
	_, err = a.Equal(Map(m))
	assert.ErrorIs(t, err, uuiderrors.ErrArchiveClosed)
	_, err = LoadMap[profile](a)
	assert.ErrorIs(t, err, uuiderrors.ErrArchiveClosed)
}

func TestWriteFileOpen(t *testing.T) {
	ids := newIDs(300)
	om := uuidmap.NewOrderedMap[profile](0)
	for i, id := range ids {
		om.Insert(id, profile{Name: id.String(), Age: i})
	}
	path := filepath.Join(t.TempDir(), "profiles.uuma")

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	require.NoError(t, WriteFile(path, IndexMap(om), WithLogger(logger)))
	assert.Contains(t, logs.String(), "archive written")

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	inMemory, err := Marshal(IndexMap(om))
	require.NoError(t, err)
	assert.Equal(t, inMemory, onDisk, "file and in-memory encodings match")

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()
	require.NoError(t, a.Verify())

	loaded, err := LoadOrderedMap[profile](a)
	require.NoError(t, err)
	assert.Equal(t, ids, slices.Collect(loaded.Keys()))

	f, err := os.Open(path)
	require.NoError(t, err)
	b, err := OpenFile(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	defer b.Close()

	var got profile
	ok, err := b.Value(ids[42], &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 42, got.Age)
}

func TestWriteFileErrors(t *testing.T) {
	dir := t.TempDir()

	err := WriteFile(filepath.Join(dir, "missing", "x.uuma"), Set(uuidmap.NewSet(0)))
	assert.Error(t, err)

	m := uuidmap.NewMap[int](0)
	m.Insert(uuidmap.NewV4(), 1)
	path := filepath.Join(dir, "bad.uuma")
	err = WriteFile(path, Map(m), WithCodec(Raw{}))
	assert.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "failed writes leave no file")

	_, err = Open(filepath.Join(dir, "nope.uuma"))
	assert.Error(t, err)

	tiny := filepath.Join(dir, "tiny.uuma")
	require.NoError(t, os.WriteFile(tiny, []byte("UUMA"), 0o644))
	_, err = Open(tiny)
	assert.ErrorIs(t, err, uuiderrors.ErrTruncatedArchive)
}
