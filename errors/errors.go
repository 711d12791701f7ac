// Package errors defines all exported error sentinels for the uuidmap module.
//
// This is the single source of truth for error values. The root uuidmap
// package and the archive and cql adapters all import from here, so
// errors.Is checks work across package boundaries, including on the error
// values carried by contract-violation panics.
package errors

import "errors"

// Identifier format errors
var (
	ErrInvalidLength      = errors.New("uuidmap: identifier must be exactly 16 bytes")
	ErrUnsupportedVersion = errors.New("uuidmap: identifier version is neither 4 nor 7")
	ErrUnsupportedVariant = errors.New("uuidmap: identifier variant is not RFC 9562")
)

// Hasher errors (always raised as panics)
var (
	ErrHasherMisuse = errors.New("uuidmap: hasher supports a single 16-byte Write per Reset")
)

// Parallel errors
var (
	ErrInvalidPartitions = errors.New("uuidmap: partition count must be positive")
)

// Archive errors
var (
	ErrInvalidMagic     = errors.New("uuidmap: invalid archive magic number")
	ErrInvalidVersion   = errors.New("uuidmap: unsupported archive version")
	ErrTruncatedArchive = errors.New("uuidmap: archive is truncated")
	ErrCorruptedArchive = errors.New("uuidmap: archive data is corrupted")
	ErrChecksumFailed   = errors.New("uuidmap: archive checksum verification failed")
	ErrKindMismatch     = errors.New("uuidmap: archive holds a different container kind")
	ErrUnknownCodec     = errors.New("uuidmap: unknown value codec")
	ErrArchiveClosed    = errors.New("uuidmap: archive is closed")
	ErrDuplicateID      = errors.New("uuidmap: duplicate identifier")
)

// Column errors
var (
	ErrColumnType = errors.New("uuidmap: column type does not match container")
)
