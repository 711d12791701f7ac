package archive

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"
	"github.com/google/uuid"
	"github.com/tamirms/uuidmap"
	uuiderrors "github.com/tamirms/uuidmap/errors"
	"github.com/tamirms/uuidmap/internal/encoding"
)

// plan is a fully encoded input whose exact archive size is known.
// File layout: [Header 48B][Slot table capacity×4B][Entry table len×32B][Value region][Footer 16B]
type plan struct {
	header header

	ids     []uuid.UUID
	offsets []uint64 // nil for sets
	lengths []uint32 // nil for sets
	values  []byte
}

// newPlan validates every identifier of in and encodes its values.
func newPlan(in Input, cfg *writeConfig) (*plan, error) {
	if !in.kind.valid() {
		return nil, errors.New("input was not prepared by Map, Set, IndexMap or IndexSet")
	}
	n := in.Len()
	withValues := in.kind.hasValues()

	p := &plan{ids: make([]uuid.UUID, 0, n)}
	if withValues {
		p.offsets = make([]uint64, 0, n)
		p.lengths = make([]uint32, 0, n)
	}

	for id, v := range in.entries() {
		if err := uuidmap.Validate(id); err != nil {
			return nil, fmt.Errorf("entry %d: %w", len(p.ids), err)
		}
		p.ids = append(p.ids, id)
		if !withValues {
			continue
		}
		b, err := cfg.codec.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode value of %s with %s: %w", id, cfg.codec.Name(), err)
		}
		if uint64(len(b)) > math.MaxUint32 {
			return nil, fmt.Errorf("encoded value of %s is %d bytes, limit is %d", id, len(b), uint64(math.MaxUint32))
		}
		p.offsets = append(p.offsets, uint64(len(p.values)))
		p.lengths = append(p.lengths, uint32(len(b)))
		p.values = append(p.values, b...)
	}

	if uint64(len(p.ids)) > maxLen {
		return nil, fmt.Errorf("%d entries exceed the archive limit of %d", len(p.ids), uint64(maxLen))
	}

	p.header = header{
		Magic:           magic,
		Version:         version,
		Kind:            in.kind,
		Len:             uint64(len(p.ids)),
		Capacity:        capacityFor(uint64(len(p.ids))),
		ValueRegionSize: uint64(len(p.values)),
	}
	if withValues {
		name := cfg.codec.Name()
		if len(name) == 0 || len(name) > codecNameSize {
			return nil, fmt.Errorf("codec name %q must be 1 to %d bytes", name, codecNameSize)
		}
		p.header.CodecLen = uint8(len(name))
		copy(p.header.Codec[:], name)
	}
	return p, nil
}

// writeTo serializes the archive into buf, which must be exactly
// p.header.size() bytes.
func (p *plan) writeTo(buf []byte) error {
	h := &p.header
	if uint64(len(buf)) != h.size() {
		return fmt.Errorf("archive buffer is %d bytes, want %d", len(buf), h.size())
	}

	h.encodeTo(buf[:headerSize])

	slots := buf[h.slotsOffset():h.entriesOffset()]
	entries := buf[h.entriesOffset():h.valuesOffset()]
	clear(slots)

	mask := h.Capacity - 1
	for i, id := range p.ids {
		e := encoding.Entry{ID: [16]byte(id)}
		if p.offsets != nil {
			e.Offset = p.offsets[i]
			e.Length = p.lengths[i]
		}
		encoding.WriteEntry(entries, i, e)

		pos := uuidmap.Sum64(id) & mask
		for {
			s := encoding.ReadSlot(slots, int(pos))
			if s == 0 {
				break
			}
			if uuid.UUID(encoding.ReadID(entries, int(s-1))) == id {
				return fmt.Errorf("%w: %s", uuiderrors.ErrDuplicateID, id)
			}
			pos = (pos + 1) & mask
		}
		encoding.WriteSlot(slots, int(pos), uint32(i+1))
	}

	copy(buf[h.valuesOffset():h.footerOffset()], p.values)

	ftr := footer{
		SlotsHash: xxhash.Sum64(slots),
		DataHash:  xxhash.Sum64(buf[h.entriesOffset():h.footerOffset()]),
	}
	ftr.encodeTo(buf[h.footerOffset():])
	return nil
}

// Marshal encodes in as an archive in memory. The result can be opened
// with OpenBytes.
func Marshal(in Input, opts ...WriteOption) ([]byte, error) {
	cfg := newWriteConfig(opts)
	p, err := newPlan(in, cfg)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, p.header.size())
	if err := p.writeTo(buf); err != nil {
		return nil, err
	}
	cfg.logger.Debug("archive marshaled",
		"kind", p.header.Kind, "len", p.header.Len, "capacity", p.header.Capacity,
		"codec", p.header.codecName(), "bytes", len(buf))
	return buf, nil
}

// WriteFile writes in as an archive file at path, replacing any existing
// file. The file is pre-allocated and written in place through a shared
// memory mapping. On error, the partially written file is removed.
func WriteFile(path string, in Input, opts ...WriteOption) error {
	cfg := newWriteConfig(opts)
	p, err := newPlan(in, cfg)
	if err != nil {
		return err
	}
	size := p.header.size()

	fw, err := newFileWriter(path, size)
	if err != nil {
		return err
	}
	if err := p.writeTo(fw.data); err != nil {
		return errors.Join(err, fw.close(), os.Remove(path))
	}
	if err := fw.finalize(); err != nil {
		return errors.Join(err, os.Remove(path))
	}

	cfg.logger.Debug("archive written",
		"path", path, "kind", p.header.Kind, "len", p.header.Len, "capacity", p.header.Capacity,
		"codec", p.header.codecName(), "bytes", size)
	return nil
}

// fileWriter owns a pre-allocated archive file and its writable mapping.
type fileWriter struct {
	file *os.File
	mmap mmap.MMap
	data []byte
}

// newFileWriter creates path with exactly size bytes and maps it for
// writing.
func newFileWriter(path string, size uint64) (*fileWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create archive file: %w", err)
	}
	fw := &fileWriter{file: file}

	// Pre-allocate disk blocks to prevent SIGBUS on disk full
	if err := fallocateFile(file, int64(size)); err != nil {
		primaryErr := fmt.Errorf("allocate disk space: %w", err)
		return nil, errors.Join(primaryErr, fw.close(), os.Remove(path))
	}

	mm, err := mmap.MapRegion(file, int(size), mmap.RDWR, 0, 0)
	if err != nil {
		primaryErr := fmt.Errorf("mmap archive file: %w", err)
		return nil, errors.Join(primaryErr, fw.close(), os.Remove(path))
	}
	fw.mmap = mm
	fw.data = []byte(mm)

	prefaultRegion(fw.data)
	return fw, nil
}

// finalize flushes the mapping and closes the file.
// On error, delegates to close() for idempotent cleanup.
func (fw *fileWriter) finalize() error {
	if err := fw.mmap.Flush(); err != nil {
		primaryErr := fmt.Errorf("mmap flush failed: %w", err)
		return errors.Join(primaryErr, fw.close())
	}

	unmapErr := fw.mmap.Unmap()
	fw.mmap = nil
	fw.data = nil
	if unmapErr != nil {
		primaryErr := fmt.Errorf("mmap unmap failed: %w", unmapErr)
		return errors.Join(primaryErr, fw.close())
	}

	closeErr := fw.file.Close()
	fw.file = nil
	return closeErr
}

// close releases the writer without flushing (for error cleanup).
// Idempotent: safe to call multiple times.
func (fw *fileWriter) close() error {
	var unmapErr error
	if fw.mmap != nil {
		unmapErr = fw.mmap.Unmap()
		fw.mmap = nil
		fw.data = nil
	}
	var closeErr error
	if fw.file != nil {
		closeErr = fw.file.Close()
		fw.file = nil
	}
	return errors.Join(unmapErr, closeErr)
}
