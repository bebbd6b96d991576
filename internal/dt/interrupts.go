package dt

import (
	"github.com/NeilAllavarpu/device-tree/internal/fdt"
)

// maxInterruptHops bounds the interrupt-parent walk so a phandle cycle
// cannot loop forever.
const maxInterruptHops = 256

// Interrupts holds a device's interrupt properties and, after resolution,
// its interrupt parent and decoded specifiers.
type Interrupts struct {
	controller    bool
	cells         uint32
	hasCells      bool
	parentPHandle uint32
	hasParent     bool
	raw           []uint32

	parent     *Device
	specifiers [][]uint32
}

// Controller reports whether the node is an interrupt controller.
func (i *Interrupts) Controller() bool { return i.controller }

// Cells returns #interrupt-cells.
func (i *Interrupts) Cells() (uint32, bool) { return i.cells, i.hasCells }

// ParentPHandle returns the explicit interrupt-parent.
func (i *Interrupts) ParentPHandle() (uint32, bool) { return i.parentPHandle, i.hasParent }

// Raw returns the interrupts property cells.
func (i *Interrupts) Raw() []uint32 { return i.raw }

// Parent returns the controller the interrupts are routed to, or nil when
// it could not be determined.
func (i *Interrupts) Parent() *Device { return i.parent }

// Specifiers returns the interrupts property split by the parent's
// #interrupt-cells.
func (i *Interrupts) Specifiers() [][]uint32 { return i.specifiers }

func takeInterrupts(props *Properties, n Node) (Interrupts, error) {
	var irq Interrupts
	irq.controller = takeFlag(props, propInterruptController)

	var err error
	if irq.cells, irq.hasCells, err = takeU32(props, propInterruptCells); err != nil {
		return irq, nodeErr(n.Path(), propInterruptCells, wrapErr(ErrInterrupts, err))
	}
	if irq.parentPHandle, irq.hasParent, err = takeU32(props, propInterruptParent); err != nil {
		return irq, nodeErr(n.Path(), propInterruptParent, wrapErr(ErrInterrupts, err))
	}
	if v, ok := props.Remove(propInterrupts); ok {
		if irq.raw, err = fdt.U32s(v); err != nil {
			return irq, nodeErr(n.Path(), propInterrupts, wrapErr(ErrInterrupts, err))
		}
		if irq.raw == nil {
			irq.raw = []uint32{}
		}
	}
	return irq, nil
}

// resolveInterrupts finds the interrupt parent of every device with an
// interrupts property and splits the property into specifiers. Failures
// only warn.
func (r *resolver) resolveInterrupts(root *Root) {
	for n := range Walk(root) {
		d, ok := n.(*Device)
		if !ok || d.interrupts.raw == nil {
			continue
		}
		warn := r.at(d, propInterrupts)
		ctrl := r.interruptParent(root, d)
		if ctrl == nil {
			warn.Warn("no interrupt parent with #interrupt-cells")
			continue
		}
		d.interrupts.parent = ctrl
		cells := int(ctrl.interrupts.cells)
		if cells == 0 || len(d.interrupts.raw)%cells != 0 {
			warn.Warn("interrupts do not divide into specifiers", "controller", pathOf{ctrl}, "cells", cells, "len", len(d.interrupts.raw))
			continue
		}
		for s := range len(d.interrupts.raw) / cells {
			d.interrupts.specifiers = append(d.interrupts.specifiers, d.interrupts.raw[s*cells:(s+1)*cells])
		}
	}
}

// interruptParent follows explicit interrupt-parent phandles, falling back
// to the tree parent, until it reaches a node with #interrupt-cells.
func (r *resolver) interruptParent(root *Root, d *Device) *Device {
	var cur Node = d
	for range maxInterruptHops {
		next := cur.Parent()
		if ph, ok := explicitInterruptParent(cur); ok {
			target, found := root.phandles.Get(ph)
			if !found {
				r.at(cur, propInterruptParent).Warn("interrupt-parent names no node", "phandle", ph)
				return nil
			}
			next = target
		}
		if next == nil {
			return nil
		}
		if dev, ok := next.(*Device); ok && dev.interrupts.hasCells {
			return dev
		}
		cur = next
	}
	return nil
}

func explicitInterruptParent(n Node) (uint32, bool) {
	switch v := n.(type) {
	case *Device:
		return v.interrupts.ParentPHandle()
	case *Root:
		return v.interruptParent, v.hasInterruptParent
	}
	return 0, false
}
