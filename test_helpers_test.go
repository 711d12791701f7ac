package uuidmap

import (
	"encoding/binary"
	"errors"
	"hash/fnv"
	"math/rand/v2"
	"testing"

	"github.com/google/uuid"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

// newTestRNG returns a PCG seeded from the test name, so every test draws a
// stable sequence independent of test order.
func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

// randID returns a pseudo-random identifier with the given version nibble
// and the RFC 9562 variant.
func randID(rng *rand.Rand, version byte) uuid.UUID {
	var id uuid.UUID
	binary.LittleEndian.PutUint64(id[0:8], rng.Uint64())
	binary.LittleEndian.PutUint64(id[8:16], rng.Uint64())
	id[6] = id[6]&0x0F | version<<4
	id[8] = id[8]&0x3F | 0x80
	return id
}

// randIDs returns n distinct identifiers alternating between v4 and v7.
func randIDs(rng *rand.Rand, n int) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, n)
	ids := make([]uuid.UUID, 0, n)
	for len(ids) < n {
		version := byte(4)
		if len(ids)%2 == 1 {
			version = 7
		}
		id := randID(rng, version)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// v1ID is a time-based identifier; containers reject it.
var v1ID = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// ncsID is a version-4 identifier with the reserved NCS variant.
var ncsID = uuid.MustParse("6ba7b810-9dad-41d1-00b4-00c04fd430c8")

// expectPanic runs fn and fails unless it panics with an error wrapping want.
func expectPanic(t *testing.T, want error, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("expected panic wrapping %v", want)
		}
		err, ok := r.(error)
		if !ok {
			t.Fatalf("panic value %v (%T) is not an error", r, r)
		}
		if !errors.Is(err, want) {
			t.Fatalf("panic %v does not wrap %v", err, want)
		}
	}()
	fn()
}

// userID is an identifier-like key.
type userID uuid.UUID

func (u userID) UUID() uuid.UUID { return uuid.UUID(u) }
