package dt

import (
	"cmp"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/NeilAllavarpu/device-tree/internal/fdt"
	"github.com/NeilAllavarpu/device-tree/internal/rawtree"
	"github.com/NeilAllavarpu/device-tree/internal/sortedmap"
)

// resolver carries the state shared by the typed pass.
type resolver struct {
	warn     fdt.Warner
	phandles *sortedmap.Map[uint32, Node]
}

func newResolver(warn fdt.Warner) *resolver {
	return &resolver{
		warn:     warn,
		phandles: sortedmap.New[uint32, Node](),
	}
}

// at returns a Warner that tags diagnostics with a node and property.
func (r *resolver) at(n Node, prop string) fdt.Warner {
	return r.scoped(pathOf{n}, prop)
}

// atPath is at for nodes that are not part of the resolved tree.
func (r *resolver) atPath(path, prop string) fdt.Warner {
	return r.scoped(path, prop)
}

func (r *resolver) scoped(node any, prop string) fdt.Warner {
	attrs := []any{"node", node}
	if prop != "" {
		attrs = append(attrs, "property", prop)
	}
	return scopedWarner{w: r.warn, attrs: attrs}
}

type scopedWarner struct {
	w     fdt.Warner
	attrs []any
}

func (s scopedWarner) Warn(msg string, args ...any) {
	s.w.Warn(msg, append(slices.Clone(s.attrs), args...)...)
}

// pathOf renders a node's path when a diagnostic is emitted.
type pathOf struct{ n Node }

func (p pathOf) String() string       { return p.n.Path() }
func (p pathOf) LogValue() slog.Value { return slog.StringValue(p.n.Path()) }

func (r *resolver) claim(ph uint32, n Node) error {
	if prev, ok := r.phandles.Get(ph); ok {
		return &PHandleError{PHandle: ph, First: prev.Path(), Second: n.Path()}
	}
	r.phandles.Insert(ph, n)
	return nil
}

// claimPHandle takes the node's phandle, if any, and registers it.
func (r *resolver) claimPHandle(props *Properties, n Node) (uint32, bool, error) {
	ph, ok, err := takePHandle(props, n)
	if err != nil || !ok {
		return 0, ok, err
	}
	if err := r.claim(ph, n); err != nil {
		return 0, true, err
	}
	return ph, true, nil
}

// The take helpers remove a property from props and decode it. The boolean
// result reports whether the property was present.

func takeCellCount(props *Properties, name string) (uint8, bool, error) {
	v, ok := props.Remove(name)
	if !ok {
		return 0, false, nil
	}
	n, err := fdt.U32(v)
	if err != nil {
		return 0, true, wrapErr(ErrCells, err)
	}
	if n > math.MaxUint8 {
		return 0, true, fmt.Errorf("%w: %d", ErrCells, n)
	}
	return uint8(n), true, nil
}

// takeCells removes #address-cells and #size-cells, applying defaults.
func takeCells(props *Properties, n Node) (cellCounts, error) {
	c := defaultCells
	if v, ok, err := takeCellCount(props, propAddressCells); err != nil {
		return c, nodeErr(n.Path(), propAddressCells, err)
	} else if ok {
		c.address = v
	}
	if v, ok, err := takeCellCount(props, propSizeCells); err != nil {
		return c, nodeErr(n.Path(), propSizeCells, err)
	} else if ok {
		c.size = v
	}
	return c, nil
}

func takeString(props *Properties, name string) (string, bool, error) {
	v, ok := props.Remove(name)
	if !ok {
		return "", false, nil
	}
	s, err := fdt.String(v)
	return s, true, err
}

func takeStrings(props *Properties, name string) ([]string, bool, error) {
	v, ok := props.Remove(name)
	if !ok {
		return nil, false, nil
	}
	s, err := fdt.StringList(v)
	return s, true, err
}

func takeU32(props *Properties, name string) (uint32, bool, error) {
	v, ok := props.Remove(name)
	if !ok {
		return 0, false, nil
	}
	n, err := fdt.U32(v)
	return n, true, err
}

func takeFlag(props *Properties, name string) bool {
	_, ok := props.Remove(name)
	return ok
}

func (r *resolver) takeReg(props *Properties, n Node, parent cellCounts) ([]Reg, bool, error) {
	v, ok := props.Remove(propReg)
	if !ok {
		return nil, false, nil
	}
	regs, err := r.decodeRegs(v, n, propReg, parent)
	if err != nil {
		return nil, true, nodeErr(n.Path(), propReg, wrapErr(ErrReg, err))
	}
	return regs, true, nil
}

func (r *resolver) decodeRegs(v []byte, n Node, prop string, cells cellCounts) ([]Reg, error) {
	tuples, err := fdt.DecodeTuples(v, []uint8{cells.address, cells.size}, r.at(n, prop))
	if err != nil {
		return nil, err
	}
	regs := make([]Reg, len(tuples))
	for i, t := range tuples {
		regs[i] = Reg{Address: t[0], Size: t[1]}
	}
	return regs, nil
}

func (r *resolver) takeRanges(props *Properties, n Node, own, parent cellCounts) ([]Range, bool, error) {
	v, ok := props.Remove(propRanges)
	if !ok {
		return nil, false, nil
	}
	tuples, err := fdt.DecodeTuples(v, []uint8{own.address, parent.address, own.size}, r.at(n, propRanges))
	if err != nil {
		return nil, true, nodeErr(n.Path(), propRanges, wrapErr(ErrRanges, err))
	}
	ranges := make([]Range, len(tuples))
	for i, t := range tuples {
		ranges[i] = Range{ChildAddress: t[0], ParentAddress: t[1], Size: t[2]}
	}
	return ranges, true, nil
}

// takeCompatible decodes a compatible list. Empty entries are skipped and an
// entirely empty list reads as absent.
func (r *resolver) takeCompatible(props *Properties, n Node) ([]Model, error) {
	list, ok, err := takeStrings(props, propCompatible)
	if err != nil {
		return nil, nodeErr(n.Path(), propCompatible, wrapErr(ErrCompatible, err))
	}
	if !ok {
		return nil, nil
	}
	var out []Model
	for _, s := range list {
		if s == "" {
			continue
		}
		out = append(out, ParseModel(s))
	}
	if len(out) == 0 {
		r.at(n, propCompatible).Warn("ignoring empty compatible")
	}
	return out, nil
}

func (r *resolver) takeModel(props *Properties, n Node) (*Model, error) {
	s, ok, err := takeString(props, propModel)
	if err != nil {
		return nil, nodeErr(n.Path(), propModel, wrapErr(ErrModel, err))
	}
	if !ok {
		return nil, nil
	}
	if s == "" {
		r.at(n, propModel).Warn("ignoring empty model")
		return nil, nil
	}
	m := ParseModel(s)
	return &m, nil
}

func takeStatus(props *Properties, n Node) (Status, error) {
	s, ok, err := takeString(props, propStatus)
	if err != nil {
		return Status{}, nodeErr(n.Path(), propStatus, wrapErr(ErrStatus, err))
	}
	if !ok {
		return Status{}, nil
	}
	st, err := parseStatus(s)
	if err != nil {
		return Status{}, nodeErr(n.Path(), propStatus, err)
	}
	return st, nil
}

// takePHandle removes phandle and the legacy linux,phandle. When both are
// present they must agree.
func takePHandle(props *Properties, n Node) (uint32, bool, error) {
	ph, ok, err := takeU32(props, propPHandle)
	if err != nil {
		return 0, true, nodeErr(n.Path(), propPHandle, wrapErr(ErrPHandle, err))
	}
	legacy, legacyOK, err := takeU32(props, propLinuxPHandle)
	if err != nil {
		return 0, true, nodeErr(n.Path(), propLinuxPHandle, wrapErr(ErrPHandle, err))
	}
	switch {
	case ok && legacyOK && ph != legacy:
		return 0, true, nodeErr(n.Path(), propLinuxPHandle, fmt.Errorf("%w: %#x disagrees with phandle %#x", ErrPHandle, legacy, ph))
	case !ok && legacyOK:
		ph, ok = legacy, true
	}
	if !ok {
		return 0, false, nil
	}
	if ph == 0 || ph == math.MaxUint32 {
		return 0, true, nodeErr(n.Path(), propPHandle, fmt.Errorf("%w: reserved value %#x", ErrPHandle, ph))
	}
	return ph, true, nil
}

func sortRegs(regs []Reg) {
	slices.SortFunc(regs, func(a, b Reg) int { return cmp.Compare(a.Address, b.Address) })
}

type deviceFrame struct {
	raw         *rawtree.Node
	name        fdt.Name
	parent      Node
	parentCells cellCounts
	into        *Children
}

// pushDevices queues raw's children so they pop in name order.
func pushDevices(stack []deviceFrame, raw *rawChildren, parent Node, cells cellCounts, into *Children) []deviceFrame {
	start := len(stack)
	for name, c := range raw.All() {
		stack = append(stack, deviceFrame{raw: c, name: name, parent: parent, parentCells: cells, into: into})
	}
	slices.Reverse(stack[start:])
	return stack
}

// devices resolves raw and every node below it as generic devices. The walk
// keeps its own stack, so nesting depth is bounded only by memory.
func (r *resolver) devices(raw *rawChildren, parent Node, cells cellCounts) (*Children, error) {
	out := newChildren()
	stack := pushDevices(nil, raw, parent, cells, out)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		d, err := r.device(f.raw, f.name, f.parent, f.parentCells)
		if err != nil {
			return nil, err
		}
		f.into.Insert(f.name, d)
		stack = pushDevices(stack, f.raw.Children, d, d.cells, d.children)
	}
	return out, nil
}
