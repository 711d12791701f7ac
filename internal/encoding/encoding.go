// Package encoding provides fixed-width record serialization for archive
// slot and entry tables.
//
// All records are little-endian. Reads are bounds-checked by the slice
// operations; callers validate table sizes once at open time.
package encoding

import "encoding/binary"

const (
	// SlotSize is the size of one slot table record.
	SlotSize = 4

	// EntrySize is the size of one entry table record.
	//
	//	Offset  Size  Field     Type
	//	0       16    ID        [16]byte
	//	16      8     Offset    uint64_le (relative to the value region)
	//	24      4     Length    uint32_le
	//	28      4     Reserved  (zero)
	EntrySize = 32
)

// Entry is one decoded entry table record.
type Entry struct {
	ID     [16]byte
	Offset uint64
	Length uint32
}

// End returns the exclusive end offset of the entry's value.
func (e Entry) End() uint64 {
	return e.Offset + uint64(e.Length)
}

// WriteSlot stores v in slot pos of the table buf.
func WriteSlot(buf []byte, pos int, v uint32) {
	binary.LittleEndian.PutUint32(buf[pos*SlotSize:], v)
}

// ReadSlot returns the value of slot pos of the table buf.
func ReadSlot(buf []byte, pos int) uint32 {
	return binary.LittleEndian.Uint32(buf[pos*SlotSize:])
}

// WriteEntry stores e as record pos of the table buf, zeroing the reserved
// bytes.
func WriteEntry(buf []byte, pos int, e Entry) {
	rec := buf[pos*EntrySize : (pos+1)*EntrySize]
	copy(rec[0:16], e.ID[:])
	binary.LittleEndian.PutUint64(rec[16:24], e.Offset)
	binary.LittleEndian.PutUint32(rec[24:28], e.Length)
	clear(rec[28:32])
}

// ReadEntry decodes record pos of the table buf.
func ReadEntry(buf []byte, pos int) Entry {
	rec := buf[pos*EntrySize : (pos+1)*EntrySize]
	var e Entry
	copy(e.ID[:], rec[0:16])
	e.Offset = binary.LittleEndian.Uint64(rec[16:24])
	e.Length = binary.LittleEndian.Uint32(rec[24:28])
	return e
}

// ReadID returns only the identifier of record pos, for probe loops that
// do not need the value location.
func ReadID(buf []byte, pos int) [16]byte {
	var id [16]byte
	copy(id[:], buf[pos*EntrySize:pos*EntrySize+16])
	return id
}
