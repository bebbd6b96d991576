package fdt

import (
	"cmp"
	"encoding/binary"
	"slices"
)

// Reservation is one entry of the memory reservation block.
type Reservation struct {
	Address uint64
	Size    uint64
}

// End returns the first address past the reservation.
func (r Reservation) End() uint64 { return r.Address + r.Size }

// Reservations decodes the memory reservation block. Entries are returned
// sorted by address.
func (b *Blob) Reservations() ([]Reservation, error) {
	off := int(b.Header.OffMemRsvmap)
	var out []Reservation
	for {
		if off+16 > len(b.data) {
			return nil, &HeaderError{Field: "off_mem_rsvmap", Value: uint64(off), Err: ErrEOF}
		}
		r := Reservation{
			Address: binary.BigEndian.Uint64(b.data[off:]),
			Size:    binary.BigEndian.Uint64(b.data[off+8:]),
		}
		off += 16
		if r.Address == 0 && r.Size == 0 {
			break
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b Reservation) int { return cmp.Compare(a.Address, b.Address) })
	return out, nil
}
