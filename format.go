package uuidmap

import (
	"fmt"

	"github.com/google/uuid"
	uuiderrors "github.com/tamirms/uuidmap/errors"
)

// Format identifies one of the two supported identifier formats.
type Format uint8

const (
	// FormatV4 is a random UUID (RFC 9562 version 4).
	FormatV4 Format = 4

	// FormatV7 is a Unix-time-ordered UUID (RFC 9562 version 7).
	FormatV7 Format = 7
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatV4:
		return "v4"
	case FormatV7:
		return "v7"
	default:
		return "unknown"
	}
}

// FormatOf reports the format of id. It returns ErrUnsupportedVersion or
// ErrUnsupportedVariant when id cannot be used as a container key.
//
// Use it (or Validate) wherever identifiers enter from untrusted input: the
// containers themselves panic on unsupported identifiers.
func FormatOf(id uuid.UUID) (Format, error) {
	if id[8]>>6 != 0b10 {
		return 0, fmt.Errorf("%w: %s", uuiderrors.ErrUnsupportedVariant, id)
	}
	switch v := id[6] >> 4; v {
	case 4:
		return FormatV4, nil
	case 7:
		return FormatV7, nil
	default:
		return 0, fmt.Errorf("%w: %s has version %d", uuiderrors.ErrUnsupportedVersion, id, v)
	}
}

// Validate returns nil if id is a UUIDv4 or UUIDv7.
func Validate(id uuid.UUID) error {
	_, err := FormatOf(id)
	return err
}

// Parse parses s in any form accepted by uuid.Parse and validates its format.
func Parse(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse identifier: %w", err)
	}
	if err := Validate(id); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) uuid.UUID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// NewV4 returns a new random UUIDv4. It panics if the random source fails,
// like uuid.New.
func NewV4() uuid.UUID {
	return uuid.New()
}

// NewV7 returns a new UUIDv7. It panics if the random source fails.
func NewV7() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}
