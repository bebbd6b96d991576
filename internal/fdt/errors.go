package fdt

import (
	"errors"
	"fmt"
)

// Header errors.
var (
	ErrMagic        = errors.New("fdt: bad magic")
	ErrEOF          = errors.New("fdt: blob too short")
	ErrSize         = errors.New("fdt: size overflows address space")
	ErrIndex        = errors.New("fdt: offset out of bounds")
	ErrAlignment    = errors.New("fdt: misaligned block")
	ErrNewerVersion = errors.New("fdt: unsupported format version")
)

// Token errors.
var (
	ErrInvalidToken = errors.New("fdt: invalid token")
	ErrTruncated    = errors.New("fdt: truncated token")
	ErrNodeName     = errors.New("fdt: invalid node name")
	ErrNamePadding  = errors.New("fdt: non-zero node name padding")
	ErrPropValue    = errors.New("fdt: property value out of bounds")
	ErrPropPadding  = errors.New("fdt: non-zero property padding")
	ErrPropName     = errors.New("fdt: invalid property name offset")
)

// Value errors.
var (
	ErrCellsLength = errors.New("fdt: cell data length mismatch")
	ErrValue       = errors.New("fdt: malformed property value")
	ErrString      = errors.New("fdt: malformed string value")
)

// HeaderError reports a header field that failed validation.
type HeaderError struct {
	Field string
	Value uint64
	Err   error
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("%v: %s=%#x", e.Err, e.Field, e.Value)
}

func (e *HeaderError) Unwrap() error { return e.Err }

// TokenError reports a structure block token that could not be decoded.
// Offset is relative to the start of the structure block.
type TokenError struct {
	Offset int
	Token  uint32
	Err    error
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("%v at struct offset %#x (token %#x)", e.Err, e.Offset, e.Token)
}

func (e *TokenError) Unwrap() error { return e.Err }
