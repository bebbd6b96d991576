package fdt

import (
	"encoding/binary"
	"math"
)

// Header mirrors the fixed 40-byte FDT header.
type Header struct {
	Magic           uint32
	TotalSize       uint32
	OffDtStruct     uint32
	OffDtStrings    uint32
	OffMemRsvmap    uint32
	Version         uint32
	LastCompVersion uint32
	BootCPUIDPhys   uint32
	SizeDtStrings   uint32
	SizeDtStruct    uint32
}

// Blob is a validated FDT with its blocks sliced out of the input buffer.
type Blob struct {
	Header  Header
	Struct  []byte
	Strings []byte

	data []byte
}

// ParseHeader validates the header of data and slices out the structure and
// strings blocks. The returned slices alias data.
func ParseHeader(data []byte) (*Blob, error) {
	if len(data) < 4 {
		return nil, &HeaderError{Field: "magic", Value: uint64(len(data)), Err: ErrEOF}
	}
	var h Header
	h.Magic = binary.BigEndian.Uint32(data[0:4])
	if h.Magic != Magic {
		return nil, &HeaderError{Field: "magic", Value: uint64(h.Magic), Err: ErrMagic}
	}
	if len(data) < 8 {
		return nil, &HeaderError{Field: "totalsize", Value: uint64(len(data)), Err: ErrEOF}
	}
	h.TotalSize = binary.BigEndian.Uint32(data[4:8])
	total, err := toInt("totalsize", h.TotalSize)
	if err != nil {
		return nil, err
	}
	if total > len(data) || total < HeaderSize {
		return nil, &HeaderError{Field: "totalsize", Value: uint64(h.TotalSize), Err: ErrEOF}
	}
	data = data[:total]

	word := func(i int) uint32 { return binary.BigEndian.Uint32(data[i*4:]) }
	h.OffDtStruct = word(2)
	h.OffDtStrings = word(3)
	h.OffMemRsvmap = word(4)
	h.Version = word(5)
	h.LastCompVersion = word(6)
	h.BootCPUIDPhys = word(7)
	h.SizeDtStrings = word(8)
	h.SizeDtStruct = word(9)

	if h.LastCompVersion > Version {
		return nil, &HeaderError{Field: "last_comp_version", Value: uint64(h.LastCompVersion), Err: ErrNewerVersion}
	}
	if h.OffDtStruct%Cell != 0 {
		return nil, &HeaderError{Field: "off_dt_struct", Value: uint64(h.OffDtStruct), Err: ErrAlignment}
	}
	if h.SizeDtStruct%Cell != 0 {
		return nil, &HeaderError{Field: "size_dt_struct", Value: uint64(h.SizeDtStruct), Err: ErrAlignment}
	}
	if h.OffMemRsvmap%8 != 0 {
		return nil, &HeaderError{Field: "off_mem_rsvmap", Value: uint64(h.OffMemRsvmap), Err: ErrAlignment}
	}

	structBlock, err := block(data, "dt_struct", h.OffDtStruct, h.SizeDtStruct)
	if err != nil {
		return nil, err
	}
	stringsBlock, err := block(data, "dt_strings", h.OffDtStrings, h.SizeDtStrings)
	if err != nil {
		return nil, err
	}
	if int(h.OffMemRsvmap) > total {
		return nil, &HeaderError{Field: "off_mem_rsvmap", Value: uint64(h.OffMemRsvmap), Err: ErrIndex}
	}

	return &Blob{Header: h, Struct: structBlock, Strings: stringsBlock, data: data}, nil
}

func block(data []byte, name string, off, size uint32) ([]byte, error) {
	start, err := toInt("off_"+name, off)
	if err != nil {
		return nil, err
	}
	n, err := toInt("size_"+name, size)
	if err != nil {
		return nil, err
	}
	if start > math.MaxInt-n {
		return nil, &HeaderError{Field: "size_" + name, Value: uint64(size), Err: ErrSize}
	}
	end := start + n
	if end > len(data) {
		return nil, &HeaderError{Field: "size_" + name, Value: uint64(size), Err: ErrIndex}
	}
	return data[start:end:end], nil
}

func toInt(field string, v uint32) (int, error) {
	if uint64(v) > uint64(math.MaxInt) {
		return 0, &HeaderError{Field: field, Value: uint64(v), Err: ErrSize}
	}
	return int(v), nil
}
