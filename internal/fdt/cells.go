package fdt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// ReadCells consumes n big-endian cells from buf and returns their value and
// the unconsumed remainder. Zero cells decode to 0; more than two cells keep
// the first two and warn when any discarded cell is non-zero.
func ReadCells(buf []byte, n uint8, warn Warner) (uint64, []byte, error) {
	need := int(n) * Cell
	if len(buf) < need {
		return 0, buf, fmt.Errorf("%w: need %d cells, have %d bytes", ErrCellsLength, n, len(buf))
	}
	var v uint64
	switch n {
	case 0:
	case 1:
		v = uint64(binary.BigEndian.Uint32(buf))
	default:
		v = binary.BigEndian.Uint64(buf)
		if n > 2 && !zero(buf[2*Cell:need]) {
			if warn == nil {
				warn = Discard
			}
			warn.Warn("discarding non-zero cells beyond 64 bits", "cells", n, "value", fmt.Sprintf("%#x", buf[:need]))
		}
	}
	return v, buf[need:], nil
}

// DecodeCells decodes a value of exactly n cells.
func DecodeCells(buf []byte, n uint8, warn Warner) (uint64, error) {
	v, rest, err := ReadCells(buf, n, warn)
	if err != nil {
		return 0, err
	}
	if len(rest) != 0 {
		return 0, fmt.Errorf("%w: %d trailing bytes after %d cells", ErrCellsLength, len(rest), n)
	}
	return v, nil
}

// DecodeTuples splits buf into consecutive tuples whose fields are widths
// cells wide. The buffer must hold a whole number of tuples.
func DecodeTuples(buf []byte, widths []uint8, warn Warner) ([][]uint64, error) {
	if len(buf)%Cell != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of cells", ErrCellsLength, len(buf))
	}
	stride := 0
	for _, w := range widths {
		stride += int(w) * Cell
	}
	if stride == 0 {
		if len(buf) != 0 {
			return nil, fmt.Errorf("%w: %d bytes for zero-width tuples", ErrCellsLength, len(buf))
		}
		return [][]uint64{}, nil
	}
	if len(buf)%stride != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrCellsLength, len(buf), stride)
	}
	out := make([][]uint64, 0, len(buf)/stride)
	for len(buf) > 0 {
		tuple := make([]uint64, len(widths))
		for i, w := range widths {
			var err error
			tuple[i], buf, err = ReadCells(buf, w, warn)
			if err != nil {
				return nil, err
			}
		}
		out = append(out, tuple)
	}
	return out, nil
}

// U32 decodes a single-cell property value.
func U32(v []byte) (uint32, error) {
	if len(v) != 4 {
		return 0, fmt.Errorf("%w: want 4 bytes, have %d", ErrValue, len(v))
	}
	return binary.BigEndian.Uint32(v), nil
}

// U64 decodes a two-cell property value.
func U64(v []byte) (uint64, error) {
	if len(v) != 8 {
		return 0, fmt.Errorf("%w: want 8 bytes, have %d", ErrValue, len(v))
	}
	return binary.BigEndian.Uint64(v), nil
}

// U32s decodes a list of cells.
func U32s(v []byte) ([]uint32, error) {
	if len(v)%Cell != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of cells", ErrValue, len(v))
	}
	out := make([]uint32, len(v)/Cell)
	for i := range out {
		out[i] = binary.BigEndian.Uint32(v[i*Cell:])
	}
	return out, nil
}

// String decodes a single NUL-terminated UTF-8 string.
func String(v []byte) (string, error) {
	nul := bytes.IndexByte(v, 0)
	if nul != len(v)-1 {
		return "", fmt.Errorf("%w: expected exactly one terminating NUL", ErrString)
	}
	s := v[:nul]
	if !utf8.Valid(s) {
		return "", fmt.Errorf("%w: invalid UTF-8", ErrString)
	}
	return string(s), nil
}

// StringList decodes a list of NUL-terminated UTF-8 strings.
func StringList(v []byte) ([]string, error) {
	if len(v) == 0 {
		return nil, nil
	}
	if v[len(v)-1] != 0 {
		return nil, fmt.Errorf("%w: missing terminating NUL", ErrString)
	}
	parts := bytes.Split(v[:len(v)-1], []byte{0})
	out := make([]string, len(parts))
	for i, p := range parts {
		if !utf8.Valid(p) {
			return nil, fmt.Errorf("%w: invalid UTF-8 in entry %d", ErrString, i)
		}
		out[i] = string(p)
	}
	return out, nil
}

// IsPrintableStringList reports whether v looks like a string list. It is a
// display heuristic only.
func IsPrintableStringList(v []byte) bool {
	if len(v) == 0 || v[len(v)-1] != 0 || v[0] == 0 {
		return false
	}
	prev := byte(1)
	for _, c := range v {
		if c == 0 {
			if prev == 0 {
				return false
			}
		} else if c < 0x20 || c > 0x7e {
			return false
		}
		prev = c
	}
	return true
}
