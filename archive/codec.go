package archive

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	gojson "github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	uuiderrors "github.com/tamirms/uuidmap/errors"
)

// Codec encodes and decodes map values.
// Implementations must be safe for concurrent use.
//
// The codec name is stored in the archive header and selects the codec when
// the archive is opened, so it must be stable and at most 12 bytes.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// GoJSON is a JSON codec backed by github.com/goccy/go-json.
type GoJSON struct{}

// Marshal encodes the value to JSON.
func (GoJSON) Marshal(v any) ([]byte, error) { return gojson.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (GoJSON) Unmarshal(data []byte, v any) error { return gojson.Unmarshal(data, v) }

// Name returns "go-json".
func (GoJSON) Name() string { return "go-json" }

// Raw stores []byte and string values verbatim.
type Raw struct{}

// Marshal accepts []byte or string.
func (Raw) Marshal(v any) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	default:
		return nil, fmt.Errorf("raw codec: cannot marshal %T", v)
	}
}

// Unmarshal accepts *[]byte or *string. A *[]byte receives a copy.
func (Raw) Unmarshal(data []byte, v any) error {
	switch x := v.(type) {
	case *[]byte:
		*x = append([]byte(nil), data...)
		return nil
	case *string:
		*x = string(data)
		return nil
	default:
		return fmt.Errorf("raw codec: cannot unmarshal into %T", v)
	}
}

// Name returns "raw".
func (Raw) Name() string { return "raw" }

// Default is the codec used when no WithCodec option is given.
var Default Codec = GoJSON{}

// Compression selects the block compressor of a Compressed codec.
type Compression uint8

const (
	// CompressionLZ4 uses LZ4 block compression (fast, good for hot data).
	CompressionLZ4 Compression = iota + 1
	// CompressionZSTD uses ZSTD (better ratio, good for cold data).
	CompressionZSTD
)

func (c Compression) prefix() string {
	switch c {
	case CompressionLZ4:
		return "lz4+"
	case CompressionZSTD:
		return "zstd+"
	default:
		return ""
	}
}

// compressed wraps another codec and compresses every encoded value.
//
// Encoded form: [UncompressedSize uint32][CompressedSize uint32][Data...].
// CompressedSize 0 means Data is stored uncompressed because compression
// did not help.
type compressed struct {
	inner Codec
	alg   Compression
}

// Compressed returns a codec that compresses the output of inner with alg.
// Its name is the compressor prefix followed by the inner codec's name,
// for example "zstd+go-json".
func Compressed(inner Codec, alg Compression) Codec {
	return compressed{inner: inner, alg: alg}
}

func (c compressed) Name() string { return c.alg.prefix() + c.inner.Name() }

const blockHeaderSize = 8

func (c compressed) Marshal(v any) ([]byte, error) {
	data, err := c.inner.Marshal(v)
	if err != nil {
		return nil, err
	}

	var packed []byte
	switch c.alg {
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		packed = buf[:n]
	case CompressionZSTD:
		enc := getZstdEncoder()
		packed = enc.EncodeAll(data, nil)
		putZstdEncoder(enc)
	default:
		return nil, fmt.Errorf("%w: compression %d", uuiderrors.ErrUnknownCodec, c.alg)
	}

	// n == 0 from lz4 means incompressible.
	if len(packed) == 0 || len(packed) >= len(data) {
		out := make([]byte, blockHeaderSize+len(data))
		binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
		copy(out[blockHeaderSize:], data)
		return out, nil
	}
	out := make([]byte, blockHeaderSize+len(packed))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[4:], uint32(len(packed)))
	copy(out[blockHeaderSize:], packed)
	return out, nil
}

var errBadBlock = errors.New("compressed value is malformed")

// lz4MaxRatio bounds how far an LZ4 block can expand: a match length
// extension byte encodes at most 255 output bytes.
const lz4MaxRatio = 255

func (c compressed) Unmarshal(data []byte, v any) error {
	if len(data) < blockHeaderSize {
		return errBadBlock
	}
	rawSize := binary.LittleEndian.Uint32(data[0:])
	packedSize := binary.LittleEndian.Uint32(data[4:])
	body := data[blockHeaderSize:]

	if packedSize == 0 {
		if uint64(len(body)) < uint64(rawSize) {
			return errBadBlock
		}
		return c.inner.Unmarshal(body[:rawSize], v)
	}
	if uint64(len(body)) < uint64(packedSize) {
		return errBadBlock
	}
	body = body[:packedSize]

	var raw []byte
	switch c.alg {
	case CompressionLZ4:
		if uint64(rawSize) > (uint64(packedSize)+1)*lz4MaxRatio {
			return errBadBlock
		}
		raw = make([]byte, rawSize)
		n, err := lz4.UncompressBlock(body, raw)
		if err != nil {
			return fmt.Errorf("lz4 decompress: %w", err)
		}
		if uint32(n) != rawSize {
			return errBadBlock
		}
	case CompressionZSTD:
		// The output grows with what the frame actually decodes to, not with
		// the stored size.
		dec := getZstdDecoder()
		out, err := dec.DecodeAll(body, make([]byte, 0, min(uint64(rawSize), 4*uint64(packedSize))))
		putZstdDecoder(dec)
		if err != nil {
			return fmt.Errorf("zstd decompress: %w", err)
		}
		if uint32(len(out)) != rawSize {
			return errBadBlock
		}
		raw = out
	default:
		return fmt.Errorf("%w: compression %d", uuiderrors.ErrUnknownCodec, c.alg)
	}
	return c.inner.Unmarshal(raw, v)
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(math.MaxUint32))
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// builtinCodecs lists the codecs ByName resolves.
var builtinCodecs = []Codec{
	GoJSON{},
	Raw{},
	Compressed(GoJSON{}, CompressionLZ4),
	Compressed(GoJSON{}, CompressionZSTD),
	Compressed(Raw{}, CompressionLZ4),
	Compressed(Raw{}, CompressionZSTD),
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	for _, c := range builtinCodecs {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// resolveCodec finds name among extra, then the built-in codecs.
func resolveCodec(name string, extra []Codec) (Codec, error) {
	for _, c := range extra {
		if c.Name() == name {
			return c, nil
		}
	}
	if c, ok := ByName(name); ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %q", uuiderrors.ErrUnknownCodec, name)
}
