package uuidmap

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	uuiderrors "github.com/tamirms/uuidmap/errors"
)

const (
	// idSize is the only input length the hasher accepts.
	idSize = 16

	// hashSize is the size of the extracted hash in bytes.
	hashSize = 8
)

// Hasher is a hash.Hash64 that uses the random bits of UUIDv4s and UUIDv7s
// instead of hashing them.
//
// Byte layout of the two supported formats:
//
//	Bytes   UUIDv4                 UUIDv7
//	0-5     random                 unix_ts_ms (48 bits)
//	6       version(4) | random    version(7) | rand_a
//	7       random                 rand_a
//	8       variant(10) | random   variant(10) | rand_b
//	9-15    random                 rand_b
//
// The hash is byte 7 followed by bytes 9 through 15, read as a big-endian
// uint64. Those bytes carry no timestamp, version or variant bits in either
// format.
//
// A Hasher accepts exactly one 16-byte Write between resets. Any other use
// (other lengths, other UUID versions, a second Write, WriteByte, WriteString)
// panics with an error wrapping a sentinel from the errors package.
type Hasher struct {
	hash    uint64
	written bool
}

// Write records the hash of a 16-byte UUIDv4 or UUIDv7. It never returns an
// error; contract violations panic.
func (h *Hasher) Write(p []byte) (int, error) {
	if h.written {
		panic(fmt.Errorf("%w: second Write without Reset", uuiderrors.ErrHasherMisuse))
	}
	if len(p) != idSize {
		panic(fmt.Errorf("%w: got %d bytes", uuiderrors.ErrInvalidLength, len(p)))
	}
	if v := p[6] >> 4; v != 4 && v != 7 {
		panic(fmt.Errorf("%w: got version %d", uuiderrors.ErrUnsupportedVersion, v))
	}
	if p[8]>>6 != 0b10 {
		panic(fmt.Errorf("%w: got variant bits %02b", uuiderrors.ErrUnsupportedVariant, p[8]>>6))
	}

	h.hash = extract(p)
	h.written = true
	return idSize, nil
}

// WriteByte always panics. Only whole identifiers can be hashed.
func (h *Hasher) WriteByte(byte) error {
	panic(fmt.Errorf("%w: WriteByte is not supported, only Write is", uuiderrors.ErrHasherMisuse))
}

// WriteString always panics. Only whole identifiers can be hashed.
func (h *Hasher) WriteString(string) (int, error) {
	panic(fmt.Errorf("%w: WriteString is not supported, only Write is", uuiderrors.ErrHasherMisuse))
}

// Sum64 returns the extracted hash, or 0 if nothing was written.
func (h *Hasher) Sum64() uint64 {
	return h.hash
}

// Sum appends the big-endian hash to b.
func (h *Hasher) Sum(b []byte) []byte {
	return binary.BigEndian.AppendUint64(b, h.hash)
}

// Reset clears the hasher so it can accept another Write.
func (h *Hasher) Reset() {
	h.hash = 0
	h.written = false
}

// Size returns the number of bytes Sum appends.
func (h *Hasher) Size() int { return hashSize }

// BlockSize returns the only accepted Write length.
func (h *Hasher) BlockSize() int { return idSize }

// extract assembles [b7, b9..b15] big-endian.
// Precondition: len(p) == 16.
func extract(p []byte) uint64 {
	_ = p[15]
	return uint64(p[7])<<56 | binary.BigEndian.Uint64(p[8:16])&0x00FFFFFFFFFFFFFF
}

// Sum64 returns the hash of id. It panics if id is not a UUIDv4 or UUIDv7.
func Sum64(id uuid.UUID) uint64 {
	var h Hasher
	_, _ = h.Write(id[:])
	return h.Sum64()
}
