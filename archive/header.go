package archive

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"

	uuiderrors "github.com/tamirms/uuidmap/errors"
	"github.com/tamirms/uuidmap/internal/encoding"
)

const (
	// magic number for uuidmap archives
	// "UUMA" in little-endian
	magic = uint32(0x414D5555)

	// version is the current format version
	version = uint16(0x0001)

	// headerSize is the exact size of the serialized header (48 bytes)
	headerSize = 48

	// footerSize is the exact size of the serialized footer (16 bytes)
	footerSize = 16

	// codecNameSize is the space reserved for the codec name.
	codecNameSize = 12

	// minCapacity is the smallest slot table.
	minCapacity = 8

	// minArchiveSize is the size of an empty archive.
	minArchiveSize = headerSize + minCapacity*encoding.SlotSize + footerSize

	// maxLen bounds the entry count so that entry index + 1 fits a slot.
	maxLen = math.MaxUint32 - 1
)

// Kind identifies the container shape an archive was written from.
type Kind uint8

const (
	KindMap Kind = iota + 1
	KindSet
	KindIndexMap
	KindIndexSet
)

func (k Kind) String() string {
	switch k {
	case KindMap:
		return "map"
	case KindSet:
		return "set"
	case KindIndexMap:
		return "index_map"
	case KindIndexSet:
		return "index_set"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

func (k Kind) valid() bool {
	return k >= KindMap && k <= KindIndexSet
}

// hasValues reports whether entries of this kind carry values.
func (k Kind) hasValues() bool {
	return k == KindMap || k == KindIndexMap
}

// ordered reports whether this kind archives insertion order.
func (k Kind) ordered() bool {
	return k == KindIndexMap || k == KindIndexSet
}

// header is the 48-byte archive header.
//
// Layout:
//
//	Offset  Size  Field            Type
//	0       4     Magic            0x414D5555 ("UUMA")
//	4       2     Version          0x0001
//	6       1     Kind             uint8
//	7       1     CodecLen         uint8
//	8       8     Len              uint64_le (entries)
//	16      8     Capacity         uint64_le (slots, power of two)
//	24      8     ValueRegionSize  uint64_le
//	32      12    Codec            [12]byte (zero padded)
//	44      4     Reserved         (zero)
type header struct {
	Magic           uint32
	Version         uint16
	Kind            Kind
	CodecLen        uint8
	Len             uint64
	Capacity        uint64
	ValueRegionSize uint64
	Codec           [codecNameSize]byte
}

// encodeTo serializes the header to an existing buffer.
func (h *header) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	buf[6] = byte(h.Kind)
	buf[7] = h.CodecLen
	binary.LittleEndian.PutUint64(buf[8:16], h.Len)
	binary.LittleEndian.PutUint64(buf[16:24], h.Capacity)
	binary.LittleEndian.PutUint64(buf[24:32], h.ValueRegionSize)
	copy(buf[32:44], h.Codec[:])
	clear(buf[44:48])
}

// decodeHeader parses a 48-byte header.
func decodeHeader(buf []byte) (*header, error) {
	if len(buf) < headerSize {
		return nil, uuiderrors.ErrTruncatedArchive
	}

	h := &header{
		Magic:           binary.LittleEndian.Uint32(buf[0:4]),
		Version:         binary.LittleEndian.Uint16(buf[4:6]),
		Kind:            Kind(buf[6]),
		CodecLen:        buf[7],
		Len:             binary.LittleEndian.Uint64(buf[8:16]),
		Capacity:        binary.LittleEndian.Uint64(buf[16:24]),
		ValueRegionSize: binary.LittleEndian.Uint64(buf[24:32]),
	}
	copy(h.Codec[:], buf[32:44])

	if h.Magic != magic {
		return nil, uuiderrors.ErrInvalidMagic
	}
	if h.Version != version {
		return nil, uuiderrors.ErrInvalidVersion
	}
	if !h.Kind.valid() {
		return nil, fmt.Errorf("%w: unknown kind %d", uuiderrors.ErrCorruptedArchive, buf[6])
	}
	if h.CodecLen > codecNameSize {
		return nil, fmt.Errorf("%w: codec name length %d", uuiderrors.ErrCorruptedArchive, h.CodecLen)
	}
	if h.Len > maxLen {
		return nil, fmt.Errorf("%w: entry count %d", uuiderrors.ErrCorruptedArchive, h.Len)
	}
	if h.Capacity != capacityFor(h.Len) {
		return nil, fmt.Errorf("%w: capacity %d for %d entries", uuiderrors.ErrCorruptedArchive, h.Capacity, h.Len)
	}
	if !h.Kind.hasValues() && h.ValueRegionSize != 0 {
		return nil, fmt.Errorf("%w: %s archive with a value region", uuiderrors.ErrCorruptedArchive, h.Kind)
	}
	// size() must not wrap.
	if h.ValueRegionSize > math.MaxUint64-h.valuesOffset()-footerSize {
		return nil, fmt.Errorf("%w: value region size %d", uuiderrors.ErrCorruptedArchive, h.ValueRegionSize)
	}

	return h, nil
}

// codecName returns the stored codec name.
func (h *header) codecName() string {
	return string(h.Codec[:h.CodecLen])
}

// slotsOffset, entriesOffset, valuesOffset and footerOffset locate the
// regions that follow the header.
func (h *header) slotsOffset() uint64 { return headerSize }

func (h *header) entriesOffset() uint64 {
	return h.slotsOffset() + h.Capacity*encoding.SlotSize
}

func (h *header) valuesOffset() uint64 {
	return h.entriesOffset() + h.Len*encoding.EntrySize
}

func (h *header) footerOffset() uint64 {
	return h.valuesOffset() + h.ValueRegionSize
}

// size returns the exact archive size the header describes.
func (h *header) size() uint64 {
	return h.footerOffset() + footerSize
}

// capacityFor returns the slot count for n entries: the smallest power of
// two holding n at a load factor of at most 7/8, and at least minCapacity.
func capacityFor(n uint64) uint64 {
	need := (n*8 + 6) / 7
	if need <= minCapacity {
		return minCapacity
	}
	return 1 << bits.Len64(need-1)
}

// footer is the 16-byte archive footer.
//
// Layout:
//
//	Offset  Size  Field       Type
//	0       8     SlotsHash   uint64_le (xxHash64 of the slot table)
//	8       8     DataHash    uint64_le (xxHash64 of entry table + value region)
type footer struct {
	SlotsHash uint64
	DataHash  uint64
}

// encodeTo serializes the footer into an existing buffer.
func (f *footer) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], f.SlotsHash)
	binary.LittleEndian.PutUint64(buf[8:16], f.DataHash)
}

// decodeFooter parses a 16-byte footer.
func decodeFooter(buf []byte) (*footer, error) {
	if len(buf) < footerSize {
		return nil, uuiderrors.ErrTruncatedArchive
	}
	return &footer{
		SlotsHash: binary.LittleEndian.Uint64(buf[0:8]),
		DataHash:  binary.LittleEndian.Uint64(buf[8:16]),
	}, nil
}
