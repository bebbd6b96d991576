// Package fdttest builds Flattened Device Tree blobs for tests. The builder
// writes tokens verbatim, so it can also produce malformed streams.
package fdttest

import (
	"encoding/binary"

	"github.com/NeilAllavarpu/device-tree/internal/fdt"
)

// Builder constructs a Flattened Device Tree blob token by token.
type Builder struct {
	structure    []byte
	strings      []byte
	stringOff    map[string]uint32
	reservations []fdt.Reservation
	bootCPU      uint32
	lastComp     uint32
}

// NewBuilder creates a new FDT builder.
func NewBuilder() *Builder {
	return &Builder{
		stringOff: make(map[string]uint32),
		lastComp:  16,
	}
}

// SetBootCPU sets boot_cpuid_phys.
func (b *Builder) SetBootCPU(id uint32) *Builder {
	b.bootCPU = id
	return b
}

// SetLastCompVersion overrides last_comp_version.
func (b *Builder) SetLastCompVersion(v uint32) *Builder {
	b.lastComp = v
	return b
}

// AddReservation appends a memory reservation entry in the order given.
func (b *Builder) AddReservation(addr, size uint64) *Builder {
	b.reservations = append(b.reservations, fdt.Reservation{Address: addr, Size: size})
	return b
}

// BeginNode starts a new node with the given name.
func (b *Builder) BeginNode(name string) {
	b.appendU32(uint32(fdt.TokenBeginNode))
	b.appendString(name)
}

// EndNode ends the current node.
func (b *Builder) EndNode() {
	b.appendU32(uint32(fdt.TokenEndNode))
}

// Nop emits a NOP token.
func (b *Builder) Nop() {
	b.appendU32(uint32(fdt.TokenNop))
}

// End emits an END token. Build adds one on its own; End is for streams
// that need extra or early terminators.
func (b *Builder) End() {
	b.appendU32(uint32(fdt.TokenEnd))
}

// Token emits an arbitrary token word.
func (b *Builder) Token(v uint32) {
	b.appendU32(v)
}

// AddPropertyEmpty adds an empty property.
func (b *Builder) AddPropertyEmpty(name string) {
	b.AddPropertyBytes(name, nil)
}

// AddPropertyString adds a string property.
func (b *Builder) AddPropertyString(name, value string) {
	b.AddPropertyBytes(name, append([]byte(value), 0))
}

// AddPropertyStringList adds a string list property.
func (b *Builder) AddPropertyStringList(name string, values ...string) {
	b.AddPropertyBytes(name, StringsValue(values...))
}

// AddPropertyU32 adds one or more cells.
func (b *Builder) AddPropertyU32(name string, values ...uint32) {
	b.AddPropertyBytes(name, CellsValue(values...))
}

// AddPropertyU64 adds one or more 64-bit values.
func (b *Builder) AddPropertyU64(name string, values ...uint64) {
	b.AddPropertyBytes(name, U64Value(values...))
}

// AddPropertyBytes adds a raw bytes property.
func (b *Builder) AddPropertyBytes(name string, data []byte) {
	b.appendU32(uint32(fdt.TokenProp))
	b.appendU32(uint32(len(data)))
	b.appendU32(b.addString(name))
	b.appendBytes(data)
}

// Build appends the END token and generates the blob.
func (b *Builder) Build() []byte {
	b.End()
	return b.BuildRaw()
}

// BuildRaw generates the blob from the tokens written so far.
func (b *Builder) BuildRaw() []byte {
	rsvmap := make([]byte, 0, 16*(len(b.reservations)+1))
	for _, r := range b.reservations {
		rsvmap = binary.BigEndian.AppendUint64(rsvmap, r.Address)
		rsvmap = binary.BigEndian.AppendUint64(rsvmap, r.Size)
	}
	rsvmap = append(rsvmap, make([]byte, 16)...)

	memRsvmapOff := uint32(fdt.HeaderSize)
	structOff := memRsvmapOff + uint32(len(rsvmap))
	structSize := uint32(len(b.structure))
	stringsOff := structOff + structSize
	stringsSize := uint32(len(b.strings))
	totalSize := stringsOff + stringsSize

	blob := make([]byte, totalSize)
	put := func(word int, v uint32) { binary.BigEndian.PutUint32(blob[word*4:], v) }
	put(0, fdt.Magic)
	put(1, totalSize)
	put(2, structOff)
	put(3, stringsOff)
	put(4, memRsvmapOff)
	put(5, fdt.Version)
	put(6, b.lastComp)
	put(7, b.bootCPU)
	put(8, stringsSize)
	put(9, structSize)

	copy(blob[memRsvmapOff:], rsvmap)
	copy(blob[structOff:], b.structure)
	copy(blob[stringsOff:], b.strings)
	return blob
}

func (b *Builder) appendU32(v uint32) {
	b.structure = binary.BigEndian.AppendUint32(b.structure, v)
}

func (b *Builder) appendString(s string) {
	b.structure = append(b.structure, s...)
	b.structure = append(b.structure, 0)
	b.pad()
}

func (b *Builder) appendBytes(data []byte) {
	b.structure = append(b.structure, data...)
	b.pad()
}

func (b *Builder) pad() {
	for len(b.structure)%fdt.Cell != 0 {
		b.structure = append(b.structure, 0)
	}
}

func (b *Builder) addString(name string) uint32 {
	if off, ok := b.stringOff[name]; ok {
		return off
	}
	off := uint32(len(b.strings))
	b.stringOff[name] = off
	b.strings = append(b.strings, name...)
	b.strings = append(b.strings, 0)
	return off
}

// CellsValue encodes big-endian cells.
func CellsValue(values ...uint32) []byte {
	out := make([]byte, 0, len(values)*4)
	for _, v := range values {
		out = binary.BigEndian.AppendUint32(out, v)
	}
	return out
}

// U64Value encodes big-endian 64-bit values.
func U64Value(values ...uint64) []byte {
	out := make([]byte, 0, len(values)*8)
	for _, v := range values {
		out = binary.BigEndian.AppendUint64(out, v)
	}
	return out
}

// StringsValue encodes a NUL-terminated string list.
func StringsValue(values ...string) []byte {
	var out []byte
	for _, v := range values {
		out = append(out, v...)
		out = append(out, 0)
	}
	return out
}
