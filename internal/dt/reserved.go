package dt

import (
	"fmt"
	"iter"
	"strings"

	"github.com/NeilAllavarpu/device-tree/internal/fdt"
	"github.com/NeilAllavarpu/device-tree/internal/rawtree"
	"github.com/NeilAllavarpu/device-tree/internal/sortedmap"
)

// ReservedUsage restricts how the OS may use a reserved region.
type ReservedUsage uint8

const (
	// ReservedOther carries no mapping restriction.
	ReservedOther ReservedUsage = iota
	// ReservedNoMap regions must not be mapped by the OS.
	ReservedNoMap
	// ReservedReusable regions may be used by the OS while the owner does
	// not need them.
	ReservedReusable
)

func (u ReservedUsage) String() string {
	switch u {
	case ReservedNoMap:
		return "no-map"
	case ReservedReusable:
		return "reusable"
	default:
		return "other"
	}
}

// ReservedCompatibleKind classifies a reserved memory compatible.
type ReservedCompatibleKind uint8

const (
	CompatibleNone ReservedCompatibleKind = iota
	CompatibleSharedDMAPool
	CompatibleVendor
	CompatibleOther
)

// ReservedCompatible is the first compatible string of a reserved region.
// Vendor strings have the form vendor,[device-]usage.
type ReservedCompatible struct {
	Kind   ReservedCompatibleKind
	Vendor string
	Device string
	Usage  string
	Raw    string
}

func (c ReservedCompatible) String() string { return c.Raw }

func parseReservedCompatible(s string) (ReservedCompatible, error) {
	if s == "shared-dma-pool" {
		return ReservedCompatible{Kind: CompatibleSharedDMAPool, Raw: s}, nil
	}
	vendor, rest, ok := strings.Cut(s, ",")
	if !ok {
		return ReservedCompatible{Kind: CompatibleOther, Raw: s}, nil
	}
	c := ReservedCompatible{Kind: CompatibleVendor, Vendor: vendor, Usage: rest, Raw: s}
	if device, usage, ok := strings.Cut(rest, "-"); ok {
		c.Device, c.Usage = device, usage
	}
	if c.Vendor == "" || c.Usage == "" {
		return ReservedCompatible{}, fmt.Errorf("%w: %q", ErrReservedCompatible, s)
	}
	return c, nil
}

// ReservedRegion is either a static region list or a dynamic allocation
// request.
type ReservedRegion struct {
	// Static is set for regions given by reg.
	Static []Reg

	// Size, Alignment and AllocRanges describe a dynamic allocation.
	// Alignment is zero when unconstrained; AllocRanges is sorted by
	// address and nil when unconstrained.
	Size        uint64
	Alignment   uint64
	AllocRanges []Reg
}

// IsStatic reports whether the region was given by reg.
func (r ReservedRegion) IsStatic() bool { return r.Static != nil }

// ReservedMemory is a child of /reserved-memory.
type ReservedMemory struct {
	base

	region     ReservedRegion
	usage      ReservedUsage
	compatible ReservedCompatible
	phandle    uint32
	hasPHandle bool
}

// Region returns the static or dynamic placement.
func (m *ReservedMemory) Region() ReservedRegion { return m.region }

// Usage returns the mapping restriction.
func (m *ReservedMemory) Usage() ReservedUsage { return m.usage }

// Compatible returns the decoded compatible, Kind CompatibleNone when absent.
func (m *ReservedMemory) Compatible() ReservedCompatible { return m.compatible }

// PHandle returns the region's phandle.
func (m *ReservedMemory) PHandle() (uint32, bool) { return m.phandle, m.hasPHandle }

// ReservedMemoryParent is the /reserved-memory container.
type ReservedMemoryParent struct {
	base

	regions    *sortedmap.Map[fdt.Name, *ReservedMemory]
	phandle    uint32
	hasPHandle bool
}

// PHandle returns the phandle of /reserved-memory itself.
func (p *ReservedMemoryParent) PHandle() (uint32, bool) { return p.phandle, p.hasPHandle }

// Regions returns the reserved regions keyed by name.
func (p *ReservedMemoryParent) Regions() *sortedmap.Map[fdt.Name, *ReservedMemory] {
	return p.regions
}

func (p *ReservedMemoryParent) lookupChild(name fdt.Name) (Node, bool) {
	if m, ok := findChild(p.regions, name); ok {
		return m, true
	}
	return nil, false
}

func (p *ReservedMemoryParent) nodes() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for m := range p.regions.Values() {
			if !yield(m) {
				return
			}
		}
	}
}

func (r *resolver) reservedMemory(raw *rawtree.Node, root *Root) (*ReservedMemoryParent, error) {
	p := &ReservedMemoryParent{
		base:    newBase(fdt.Name{Node: nodeReservedMemory}, root),
		regions: sortedmap.NewFunc[fdt.Name, *ReservedMemory](fdt.CompareNames),
	}
	props := raw.Properties
	path := p.Path()

	cells, err := takeCells(props, p)
	if err != nil {
		return nil, wrapErr(ErrCellsMismatch, err)
	}
	if cells != root.cells {
		return nil, nodeErr(path, "", fmt.Errorf("%w: cells %d/%d, root %d/%d",
			ErrCellsMismatch, cells.address, cells.size, root.cells.address, root.cells.size))
	}
	ranges, ok := props.Remove(propRanges)
	if !ok || len(ranges) != 0 {
		return nil, nodeErr(path, propRanges, fmt.Errorf("%w: ranges must be present and empty", ErrCellsMismatch))
	}
	if p.phandle, p.hasPHandle, err = r.claimPHandle(props, p); err != nil {
		return nil, err
	}

	for name, c := range raw.Children.All() {
		m, err := r.reservedRegion(c, name, p, cells)
		if err != nil {
			return nil, err
		}
		p.regions.Insert(name, m)
	}
	p.properties = props
	return p, nil
}

func (r *resolver) reservedRegion(raw *rawtree.Node, name fdt.Name, parent *ReservedMemoryParent, cells cellCounts) (*ReservedMemory, error) {
	m := &ReservedMemory{base: newBase(name, parent)}
	props := raw.Properties

	regs, hasReg, err := r.takeReg(props, m, cells)
	if err != nil {
		return nil, err
	}
	size, hasSize, err := r.takeSizedValue(props, m, propSize, cells.size)
	if err != nil {
		return nil, err
	}
	align, _, err := r.takeSizedValue(props, m, propAlignment, cells.size)
	if err != nil {
		return nil, err
	}
	var alloc []Reg
	if v, ok := props.Remove(propAllocRanges); ok {
		if alloc, err = r.decodeRegs(v, m, propAllocRanges, cells); err != nil {
			return nil, nodeErr(m.Path(), propAllocRanges, wrapErr(ErrReservedMemory, err))
		}
		sortRegs(alloc)
	}
	switch {
	case hasReg:
		if regs == nil {
			regs = []Reg{}
		}
		if hasSize {
			r.at(m, propSize).Warn("size ignored for region with reg")
		}
		m.region = ReservedRegion{Static: regs}
	case hasSize:
		m.region = ReservedRegion{Size: size, Alignment: align, AllocRanges: alloc}
	default:
		return nil, nodeErr(m.Path(), "", fmt.Errorf("%w: neither reg nor size", ErrReservedMemory))
	}

	noMap := takeFlag(props, propNoMap)
	reusable := takeFlag(props, propReusable)
	switch {
	case noMap && reusable:
		return nil, nodeErr(m.Path(), "", ErrReservedUsage)
	case noMap:
		m.usage = ReservedNoMap
	case reusable:
		m.usage = ReservedReusable
	}

	compat, ok, err := takeStrings(props, propCompatible)
	if err != nil {
		return nil, nodeErr(m.Path(), propCompatible, wrapErr(ErrReservedCompatible, err))
	}
	if ok && len(compat) > 0 {
		if m.compatible, err = parseReservedCompatible(compat[0]); err != nil {
			return nil, nodeErr(m.Path(), propCompatible, err)
		}
	}

	if m.phandle, m.hasPHandle, err = r.claimPHandle(props, m); err != nil {
		return nil, err
	}
	own, err := takeCells(props, m)
	if err != nil {
		return nil, err
	}
	if m.children, err = r.devices(raw.Children, m, own); err != nil {
		return nil, err
	}
	m.properties = props
	return m, nil
}

// takeSizedValue decodes a property that is exactly n cells wide.
func (r *resolver) takeSizedValue(props *Properties, node Node, name string, n uint8) (uint64, bool, error) {
	v, ok := props.Remove(name)
	if !ok {
		return 0, false, nil
	}
	x, err := fdt.DecodeCells(v, n, r.at(node, name))
	if err != nil {
		return 0, true, nodeErr(node.Path(), name, wrapErr(ErrReservedMemory, err))
	}
	return x, true, nil
}
