package dt

import (
	"slices"

	"github.com/NeilAllavarpu/device-tree/internal/fdt"
	"github.com/NeilAllavarpu/device-tree/internal/rawtree"
)

type rawChildren = rawtree.Children

// Device is a generic device node.
type Device struct {
	base

	compatible []Model
	model      *Model
	reg        []Reg
	hasReg     bool
	ranges     []Range
	hasRanges  bool
	status     Status
	phandle    uint32
	hasPHandle bool
	cells      cellCounts
	interrupts Interrupts
}

// Compatible returns the compatible list, most specific first.
func (d *Device) Compatible() []Model { return d.compatible }

// IsCompatible reports whether any compatible entry equals s.
func (d *Device) IsCompatible(s string) bool {
	return slices.ContainsFunc(d.compatible, func(m Model) bool { return m.String() == s })
}

// Model returns the model property.
func (d *Device) Model() (Model, bool) {
	if d.model == nil {
		return Model{}, false
	}
	return *d.model, true
}

// Reg returns the decoded reg property. An absent property and an empty one
// are distinguished by the boolean.
func (d *Device) Reg() ([]Reg, bool) { return d.reg, d.hasReg }

// Ranges returns the decoded ranges property. A present but empty ranges
// means an identity mapping.
func (d *Device) Ranges() ([]Range, bool) { return d.ranges, d.hasRanges }

// Status returns the status property, okay when absent.
func (d *Device) Status() Status { return d.status }

// PHandle returns the node's phandle.
func (d *Device) PHandle() (uint32, bool) { return d.phandle, d.hasPHandle }

// AddressCells returns the #address-cells that apply to this node's children.
func (d *Device) AddressCells() uint8 { return d.cells.address }

// SizeCells returns the #size-cells that apply to this node's children.
func (d *Device) SizeCells() uint8 { return d.cells.size }

// Interrupts returns the node's interrupt information.
func (d *Device) Interrupts() *Interrupts { return &d.interrupts }

// device runs the generic pipeline over raw's own properties. parentCells
// are the cell counts declared by the parent, which govern this node's reg
// and ranges. Children are left to devices.
func (r *resolver) device(raw *rawtree.Node, name fdt.Name, parent Node, parentCells cellCounts) (*Device, error) {
	d := &Device{base: newBase(name, parent)}
	props := raw.Properties

	cells, err := takeCells(props, d)
	if err != nil {
		return nil, err
	}
	d.cells = cells
	if d.reg, d.hasReg, err = r.takeReg(props, d, parentCells); err != nil {
		return nil, err
	}
	if d.compatible, err = r.takeCompatible(props, d); err != nil {
		return nil, err
	}
	if d.model, err = r.takeModel(props, d); err != nil {
		return nil, err
	}
	if d.ranges, d.hasRanges, err = r.takeRanges(props, d, cells, parentCells); err != nil {
		return nil, err
	}
	if d.status, err = takeStatus(props, d); err != nil {
		return nil, err
	}
	if d.phandle, d.hasPHandle, err = r.claimPHandle(props, d); err != nil {
		return nil, err
	}
	if d.interrupts, err = takeInterrupts(props, d); err != nil {
		return nil, err
	}
	d.properties = props
	return d, nil
}
