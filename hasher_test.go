package uuidmap

import (
	"encoding/binary"
	"hash"
	"testing"

	"github.com/google/uuid"
	uuiderrors "github.com/tamirms/uuidmap/errors"
)

var _ hash.Hash64 = (*Hasher)(nil)

// TestSum64Extraction pins the extracted bytes: byte 7 then bytes 9..15.
func TestSum64Extraction(t *testing.T) {
	id := uuid.UUID{
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x4F, 0x11,
		0xBF, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88,
	}
	const want = 0x1122334455667788
	if got := Sum64(id); got != want {
		t.Fatalf("Sum64 = %#x, want %#x", got, want)
	}

	var h Hasher
	n, err := h.Write(id[:])
	if err != nil || n != 16 {
		t.Fatalf("Write = (%d, %v), want (16, nil)", n, err)
	}
	if got := h.Sum64(); got != want {
		t.Fatalf("Hasher.Sum64 = %#x, want %#x", got, want)
	}
	sum := h.Sum([]byte{0xAA})
	if len(sum) != 9 || sum[0] != 0xAA || binary.BigEndian.Uint64(sum[1:]) != want {
		t.Fatalf("Sum = %x", sum)
	}
}

// TestSum64IgnoresFixedBits verifies that timestamp, version and variant
// bits never reach the hash.
func TestSum64IgnoresFixedBits(t *testing.T) {
	rng := newTestRNG(t)
	for range 1000 {
		id := randID(rng, 7)
		want := Sum64(id)

		other := id
		binary.BigEndian.PutUint64(other[0:8], rng.Uint64())
		other[6] = other[6]&0x0F | 0x40
		other[7] = id[7]
		other[8] = other[8]&0x3F | 0x80
		if got := Sum64(other); got != want {
			t.Fatalf("hash changed with fixed bits: %#x vs %#x", got, want)
		}
	}
}

func TestSum64Deterministic(t *testing.T) {
	rng := newTestRNG(t)
	for _, id := range randIDs(rng, 500) {
		a, b := Sum64(id), Sum64(id)
		if a != b {
			t.Fatalf("Sum64(%s) not deterministic: %#x vs %#x", id, a, b)
		}
		var h Hasher
		_, _ = h.Write(id[:])
		if h.Sum64() != a {
			t.Fatalf("Hasher and Sum64 disagree for %s", id)
		}
	}
}

func TestHasherReset(t *testing.T) {
	rng := newTestRNG(t)
	a, b := randID(rng, 4), randID(rng, 7)

	var h Hasher
	if h.Sum64() != 0 {
		t.Fatal("fresh hasher should sum to 0")
	}
	_, _ = h.Write(a[:])
	h.Reset()
	if h.Sum64() != 0 {
		t.Fatal("Reset should clear the hash")
	}
	_, _ = h.Write(b[:])
	if h.Sum64() != Sum64(b) {
		t.Fatal("hash after Reset does not match")
	}
	if h.Size() != 8 || h.BlockSize() != 16 {
		t.Fatalf("Size/BlockSize = %d/%d", h.Size(), h.BlockSize())
	}
}

func TestHasherPanics(t *testing.T) {
	rng := newTestRNG(t)
	good := randID(rng, 4)

	t.Run("ShortWrite", func(t *testing.T) {
		var h Hasher
		expectPanic(t, uuiderrors.ErrInvalidLength, func() { _, _ = h.Write(good[:15]) })
	})
	t.Run("LongWrite", func(t *testing.T) {
		var h Hasher
		expectPanic(t, uuiderrors.ErrInvalidLength, func() { _, _ = h.Write(append(good[:], 0)) })
	})
	t.Run("Version1", func(t *testing.T) {
		expectPanic(t, uuiderrors.ErrUnsupportedVersion, func() { Sum64(v1ID) })
	})
	t.Run("Nil", func(t *testing.T) {
		expectPanic(t, uuiderrors.ErrUnsupportedVariant, func() { Sum64(uuid.Nil) })
	})
	t.Run("Variant", func(t *testing.T) {
		expectPanic(t, uuiderrors.ErrUnsupportedVariant, func() { Sum64(ncsID) })
	})
	t.Run("SecondWrite", func(t *testing.T) {
		var h Hasher
		_, _ = h.Write(good[:])
		expectPanic(t, uuiderrors.ErrHasherMisuse, func() { _, _ = h.Write(good[:]) })
	})
	t.Run("WriteByte", func(t *testing.T) {
		var h Hasher
		expectPanic(t, uuiderrors.ErrHasherMisuse, func() { _ = h.WriteByte(1) })
	})
	t.Run("WriteString", func(t *testing.T) {
		var h Hasher
		expectPanic(t, uuiderrors.ErrHasherMisuse, func() { _, _ = h.WriteString("x") })
	})
}

func TestStrategyHashKey(t *testing.T) {
	rng := newTestRNG(t)
	id := randID(rng, 7)
	u := userID(id)

	if got := (BuildHasher{}).HashKey(&id); got != Sum64(id) {
		t.Fatalf("BuildHasher.HashKey = %#x, want %#x", got, Sum64(id))
	}
	if got := (LikeBuildHasher[userID]{}).HashKey(&u); got != Sum64(id) {
		t.Fatalf("LikeBuildHasher.HashKey = %#x, want %#x", got, Sum64(id))
	}
	if got := (LikeBuildHasher[userID]{}).ID(&u); got != id {
		t.Fatalf("LikeBuildHasher.ID = %s, want %s", got, id)
	}
}

func BenchmarkSum64(b *testing.B) {
	ids := randIDs(newTestRNG(b), 1024)
	var sink uint64
	for i := 0; b.Loop(); i++ {
		sink ^= Sum64(ids[i&1023])
	}
	_ = sink
}
