package dt

import (
	"encoding/binary"
	"fmt"

	"github.com/NeilAllavarpu/device-tree/internal/fdt"
	"github.com/NeilAllavarpu/device-tree/internal/rawtree"
)

// InitialMappedArea is the memory a platform maps before handing over to
// the OS.
type InitialMappedArea struct {
	EffectiveAddress uint64
	PhysicalAddress  uint64
	Size             uint32
}

// MemoryRegion is a root child with device_type "memory".
type MemoryRegion struct {
	base

	ranges       []Reg
	hotpluggable bool
	mapped       *InitialMappedArea
	phandle      uint32
	hasPHandle   bool
}

// Ranges returns the physical memory ranges.
func (m *MemoryRegion) Ranges() []Reg { return m.ranges }

// Hotpluggable reports whether the region may be removed at runtime.
func (m *MemoryRegion) Hotpluggable() bool { return m.hotpluggable }

// PHandle returns the region's phandle.
func (m *MemoryRegion) PHandle() (uint32, bool) { return m.phandle, m.hasPHandle }

// InitialMappedArea returns the pre-mapped window, if any.
func (m *MemoryRegion) InitialMappedArea() (InitialMappedArea, bool) {
	if m.mapped == nil {
		return InitialMappedArea{}, false
	}
	return *m.mapped, true
}

func isMemoryNode(raw *rawtree.Node) bool {
	v, ok := raw.Properties.Get(propDeviceType)
	if !ok {
		return false
	}
	s, err := fdt.String(v)
	return err == nil && s == "memory"
}

func (r *resolver) memoryRegion(raw *rawtree.Node, name fdt.Name, root *Root) (*MemoryRegion, error) {
	m := &MemoryRegion{base: newBase(name, root)}
	props := raw.Properties
	path := m.Path()
	props.Remove(propDeviceType)

	if raw.Children.Len() != 0 {
		return nil, nodeErr(path, "", ErrMemoryChildren)
	}
	regs, ok, err := r.takeReg(props, m, root.cells)
	if err != nil {
		return nil, err
	}
	if !ok || len(regs) == 0 {
		return nil, nodeErr(path, propReg, ErrMemoryReg)
	}
	if name.HasUnit() && name.Address != regs[0].Address {
		return nil, &RegMismatchError{Path: path, Unit: name.Address, Reg: regs[0].Address}
	}
	m.ranges = regs
	m.hotpluggable = takeFlag(props, propHotpluggable)

	if v, ok := props.Remove(propMappedArea); ok {
		if len(v) != 20 {
			return nil, nodeErr(path, propMappedArea, fmt.Errorf("%w: want 20 bytes, have %d", ErrMemoryMappedArea, len(v)))
		}
		area := InitialMappedArea{
			EffectiveAddress: binary.BigEndian.Uint64(v[0:]),
			PhysicalAddress:  binary.BigEndian.Uint64(v[8:]),
			Size:             binary.BigEndian.Uint32(v[16:]),
		}
		if area.Size == 0 {
			return nil, nodeErr(path, propMappedArea, fmt.Errorf("%w: zero size", ErrMemoryMappedArea))
		}
		m.mapped = &area
	}
	if m.phandle, m.hasPHandle, err = r.claimPHandle(props, m); err != nil {
		return nil, err
	}
	m.properties = props
	return m, nil
}
