package archive

import (
	"bytes"
	"errors"
	"fmt"
	"iter"
	"os"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"
	"github.com/google/uuid"
	"github.com/tamirms/uuidmap"
	uuiderrors "github.com/tamirms/uuidmap/errors"
	"github.com/tamirms/uuidmap/internal/encoding"
)

// Archive is a read-only view of an archived container.
//
// Thread Safety:
// - Contains, Lookup, Value, All and Verify are safe for concurrent use
// - Close is NOT safe to call concurrently with other methods
// - After Close, lookups report absence and Value, Verify and Equal
//   return ErrArchiveClosed
type Archive struct {
	// Memory map (nil for OpenBytes)
	mmap mmap.MMap
	data []byte

	header *header
	codec  Codec // nil for sets

	slots   []byte
	entries []byte
	values  []byte

	closed atomic.Bool
}

// Open opens an archive file for reading.
// It opens the file, memory-maps it, and closes the file descriptor.
func Open(path string, opts ...OpenOption) (*Archive, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive file: %w", err)
	}
	defer file.Close()
	return OpenFile(file, opts...)
}

// OpenFile opens an archive by memory-mapping the given file.
// The caller is responsible for closing f. Per POSIX mmap(2), f may be
// closed immediately after OpenFile returns.
func OpenFile(f *os.File, opts ...OpenOption) (*Archive, error) {
	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat archive file: %w", err)
	}
	fileSize := stat.Size()

	if fileSize < int64(minArchiveSize) {
		return nil, uuiderrors.ErrTruncatedArchive
	}

	fadviseRandom(int(f.Fd()), fileSize)

	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap archive file: %w", err)
	}

	a := &Archive{
		mmap: mm,
		data: []byte(mm),
	}
	if err := a.initFromData(newOpenConfig(opts)); err != nil {
		return nil, errors.Join(err, a.Close())
	}
	return a, nil
}

// OpenBytes opens an archive held in memory, such as the output of Marshal.
// No file is opened or memory-mapped; Close only marks the archive closed.
// The caller must ensure data is not modified while the Archive is in use.
func OpenBytes(data []byte, opts ...OpenOption) (*Archive, error) {
	if len(data) < minArchiveSize {
		return nil, uuiderrors.ErrTruncatedArchive
	}
	a := &Archive{data: data}
	if err := a.initFromData(newOpenConfig(opts)); err != nil {
		return nil, err
	}
	return a, nil
}

// initFromData parses the header and slices the regions out of a.data.
// Checksums are only checked by Verify, so opening touches the header page
// alone.
func (a *Archive) initFromData(cfg *openConfig) error {
	hdr, err := decodeHeader(a.data[:headerSize])
	if err != nil {
		return err
	}

	size := uint64(len(a.data))
	want := hdr.size()
	switch {
	case size < want:
		return fmt.Errorf("%w: %d bytes, header describes %d", uuiderrors.ErrTruncatedArchive, size, want)
	case size > want:
		return fmt.Errorf("%w: %d trailing bytes", uuiderrors.ErrCorruptedArchive, size-want)
	}
	a.header = hdr

	a.slots = a.data[hdr.slotsOffset():hdr.entriesOffset()]
	a.entries = a.data[hdr.entriesOffset():hdr.valuesOffset()]
	a.values = a.data[hdr.valuesOffset():hdr.footerOffset()]

	if hdr.Kind.hasValues() {
		a.codec, err = resolveCodec(hdr.codecName(), cfg.codecs)
		if err != nil {
			return err
		}
	}
	return nil
}

// Close releases the memory mapping. It is idempotent.
func (a *Archive) Close() error {
	if a.closed.Swap(true) {
		return nil
	}
	if a.mmap != nil {
		return a.mmap.Unmap()
	}
	return nil
}

// Kind returns the container kind the archive was written from.
func (a *Archive) Kind() Kind { return a.header.Kind }

// Ordered reports whether the archive keeps insertion order.
func (a *Archive) Ordered() bool { return a.header.Kind.ordered() }

// Len returns the number of archived entries.
func (a *Archive) Len() int { return int(a.header.Len) }

// CodecName returns the name of the value codec, or "" for sets.
func (a *Archive) CodecName() string { return a.header.codecName() }

// Codec returns the value codec, or nil for sets.
func (a *Archive) Codec() Codec { return a.codec }

// find probes the slot table for id and returns its entry.
// Identifiers that are not UUIDv4 or UUIDv7 are never archived, so they
// are reported absent without hashing.
func (a *Archive) find(id uuid.UUID) (encoding.Entry, bool) {
	if a.closed.Load() || uuidmap.Validate(id) != nil {
		return encoding.Entry{}, false
	}

	mask := a.header.Capacity - 1
	pos := uuidmap.Sum64(id) & mask
	for range a.header.Capacity {
		s := encoding.ReadSlot(a.slots, int(pos))
		if s == 0 {
			return encoding.Entry{}, false
		}
		idx := uint64(s - 1)
		if idx >= a.header.Len {
			// Corrupted slot; Verify reports it.
			return encoding.Entry{}, false
		}
		if uuid.UUID(encoding.ReadID(a.entries, int(idx))) == id {
			return encoding.ReadEntry(a.entries, int(idx)), true
		}
		pos = (pos + 1) & mask
	}
	return encoding.Entry{}, false
}

// valueOf returns the encoded value bytes of e.
func (a *Archive) valueOf(e encoding.Entry) ([]byte, error) {
	if e.Offset > uint64(len(a.values)) || e.End() > uint64(len(a.values)) {
		return nil, fmt.Errorf("%w: value of %s out of bounds", uuiderrors.ErrCorruptedArchive, uuid.UUID(e.ID))
	}
	return a.values[e.Offset:e.End()], nil
}

// Contains reports whether id is archived.
func (a *Archive) Contains(id uuid.UUID) bool {
	_, ok := a.find(id)
	return ok
}

// Lookup returns the encoded value of id without copying. The slice is
// backed by the archive and is valid until Close. For sets, present
// identifiers return an empty slice.
func (a *Archive) Lookup(id uuid.UUID) ([]byte, bool) {
	e, ok := a.find(id)
	if !ok {
		return nil, false
	}
	b, err := a.valueOf(e)
	if err != nil {
		return nil, false
	}
	return b, true
}

// Value decodes the value of id into v using the archive's codec.
// It reports false if id is absent.
func (a *Archive) Value(id uuid.UUID, v any) (bool, error) {
	if a.closed.Load() {
		return false, uuiderrors.ErrArchiveClosed
	}
	if a.codec == nil {
		return false, fmt.Errorf("%w: %s archive has no values", uuiderrors.ErrKindMismatch, a.header.Kind)
	}
	e, ok := a.find(id)
	if !ok {
		return false, nil
	}
	b, err := a.valueOf(e)
	if err != nil {
		return false, err
	}
	if err := a.codec.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("decode value of %s with %s: %w", id, a.codec.Name(), err)
	}
	return true, nil
}

// All yields every identifier with its encoded value in archive order,
// which is insertion order for ordered kinds. Entries whose value lies
// outside the value region are skipped; Verify reports them.
func (a *Archive) All() iter.Seq2[uuid.UUID, []byte] {
	return func(yield func(uuid.UUID, []byte) bool) {
		if a.closed.Load() {
			return
		}
		for i := range a.Len() {
			e := encoding.ReadEntry(a.entries, i)
			b, err := a.valueOf(e)
			if err != nil {
				continue
			}
			if !yield(uuid.UUID(e.ID), b) {
				return
			}
		}
	}
}

// Verify checks both footer checksums and the bounds of every entry.
func (a *Archive) Verify() error {
	if a.closed.Load() {
		return uuiderrors.ErrArchiveClosed
	}

	// Lazy footer decode: only Verify touches the last page.
	ft, err := decodeFooter(a.data[a.header.footerOffset():])
	if err != nil {
		return err
	}
	if xxhash.Sum64(a.slots) != ft.SlotsHash {
		return fmt.Errorf("%w: slot table", uuiderrors.ErrChecksumFailed)
	}
	if xxhash.Sum64(a.data[a.header.entriesOffset():a.header.footerOffset()]) != ft.DataHash {
		return fmt.Errorf("%w: entry table or value region", uuiderrors.ErrChecksumFailed)
	}

	for i := range a.Len() {
		e := encoding.ReadEntry(a.entries, i)
		if _, err := a.valueOf(e); err != nil {
			return err
		}
	}
	var filled uint64
	for pos := range int(a.header.Capacity) {
		s := encoding.ReadSlot(a.slots, pos)
		if s == 0 {
			continue
		}
		if uint64(s-1) >= a.header.Len {
			return fmt.Errorf("%w: slot %d points past the entry table", uuiderrors.ErrCorruptedArchive, pos)
		}
		filled++
	}
	if filled != a.header.Len {
		return fmt.Errorf("%w: %d slots filled for %d entries", uuiderrors.ErrCorruptedArchive, filled, a.header.Len)
	}
	return nil
}

// Equal reports whether the archive holds exactly the entries of in,
// ignoring order. Map values are compared by their encoding under the
// archive's codec. The archive and in must be of the same kind.
func (a *Archive) Equal(in Input) (bool, error) {
	if a.closed.Load() {
		return false, uuiderrors.ErrArchiveClosed
	}
	if in.kind != a.header.Kind {
		return false, fmt.Errorf("%w: archive is %s, input is %s", uuiderrors.ErrKindMismatch, a.header.Kind, in.kind)
	}
	if uint64(in.Len()) != a.header.Len {
		return false, nil
	}

	for id, v := range in.entries() {
		stored, ok := a.Lookup(id)
		if !ok {
			return false, nil
		}
		if a.codec == nil {
			continue
		}
		enc, err := a.codec.Marshal(v)
		if err != nil {
			return false, fmt.Errorf("encode value of %s with %s: %w", id, a.codec.Name(), err)
		}
		if !bytes.Equal(enc, stored) {
			return false, nil
		}
	}
	return true, nil
}
