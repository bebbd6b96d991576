// Package dump renders decoded device trees as text, YAML or CBOR.
package dump

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/NeilAllavarpu/device-tree/internal/dt"
	"github.com/NeilAllavarpu/device-tree/internal/fdt"
)

// Attr is one rendered name/value pair.
type Attr struct {
	Name  string `yaml:"name" cbor:"name"`
	Value string `yaml:"value" cbor:"value"`
}

// NodeView is the rendering of one node and its subtree. Attrs are the
// decoded properties; Properties are the leftover raw ones.
type NodeView struct {
	Path       string      `yaml:"path" cbor:"path"`
	Kind       string      `yaml:"kind" cbor:"kind"`
	Attrs      []Attr      `yaml:"attrs,omitempty" cbor:"attrs,omitempty"`
	Properties []Attr      `yaml:"properties,omitempty" cbor:"properties,omitempty"`
	Children   []*NodeView `yaml:"children,omitempty" cbor:"children,omitempty"`
}

// Name returns the last path component, "/" for the root.
func (v *NodeView) Name() string {
	if v.Path == "/" {
		return "/"
	}
	return v.Path[strings.LastIndexByte(v.Path, '/')+1:]
}

// TreeView is the rendering of a whole blob.
type TreeView struct {
	Version         uint32    `yaml:"version" cbor:"version"`
	LastCompVersion uint32    `yaml:"lastCompVersion" cbor:"lastCompVersion"`
	BootCPU         uint32    `yaml:"bootCPU" cbor:"bootCPU"`
	Reservations    []dt.Reg  `yaml:"reservations,omitempty" cbor:"reservations,omitempty"`
	Root            *NodeView `yaml:"root" cbor:"root"`
}

// Options controls what goes into a view.
type Options struct {
	// Properties includes leftover raw properties.
	Properties bool
	// Depth limits recursion; negative means unlimited and zero renders
	// only the node itself.
	Depth int
}

// NewTreeView renders the whole tree.
func NewTreeView(t *dt.DeviceTree, opts Options) *TreeView {
	v := &TreeView{
		Version:         t.Version(),
		LastCompVersion: t.LastCompatibleVersion(),
		BootCPU:         t.BootCPUID(),
		Root:            NewNodeView(t.Root(), opts),
	}
	for _, r := range t.Reservations() {
		v.Reservations = append(v.Reservations, dt.Reg{Address: r.Address, Size: r.Size})
	}
	return v
}

// NewNodeView renders n and its descendants.
func NewNodeView(n dt.Node, opts Options) *NodeView {
	v := &NodeView{Path: n.Path()}
	v.Kind, v.Attrs = describe(n)
	if opts.Properties {
		if props := n.Properties(); props != nil {
			for name, val := range props.All() {
				v.Properties = append(v.Properties, Attr{Name: name, Value: FormatValue(val)})
			}
		}
	}
	if opts.Depth == 0 {
		return v
	}
	child := opts
	if child.Depth > 0 {
		child.Depth--
	}
	for c := range dt.ChildNodes(n) {
		v.Children = append(v.Children, NewNodeView(c, child))
	}
	return v
}

type attrs []Attr

func (a *attrs) add(name, format string, args ...any) {
	*a = append(*a, Attr{Name: name, Value: fmt.Sprintf(format, args...)})
}

func describe(n dt.Node) (string, []Attr) {
	var a attrs
	switch v := n.(type) {
	case *dt.Root:
		a.add("model", "%q", v.Model().String())
		a.add("compatible", "%s", models(v.Compatible()))
		if s, ok := v.SerialNumber(); ok {
			a.add("serial-number", "%q", s)
		}
		if v.ChassisType() != dt.ChassisUnknown {
			a.add("chassis-type", "%s", v.ChassisType())
		}
		a.add("#address-cells", "%d", v.AddressCells())
		a.add("#size-cells", "%d", v.SizeCells())
		if ph, ok := v.InterruptParent(); ok {
			a.add("interrupt-parent", "%#x", ph)
		}
		if ph, ok := v.OwnPHandle(); ok {
			a.add("phandle", "%#x", ph)
		}
		return "root", a
	case *dt.CPUs:
		a.add("#address-cells", "%d", v.AddressCells())
		if ph, ok := v.PHandle(); ok {
			a.add("phandle", "%#x", ph)
		}
		return "cpus", a
	case *dt.CPU:
		a.add("id", "%#x", v.ID())
		if len(v.Threads()) > 1 {
			a.add("threads", "%s", hexList(v.Threads()))
		}
		if !v.Status().OK() {
			a.add("status", "%s", v.Status())
		}
		if m := v.EnableMethod(); m.Kind != dt.EnableNone {
			a.add("enable-method", "%s", m)
		}
		l1 := v.L1Cache()
		if l1.Unified {
			a.add("l1-cache", "unified %s", cacheDesc(l1.Cache))
		} else {
			if !l1.ICache.IsZero() {
				a.add("l1-icache", "%s", cacheDesc(l1.ICache))
			}
			if !l1.DCache.IsZero() {
				a.add("l1-dcache", "%s", cacheDesc(l1.DCache))
			}
		}
		if next := v.NextCache(); next != nil {
			a.add("next-level-cache", "%s", next.Path())
		}
		if ph, ok := v.PHandle(); ok {
			a.add("phandle", "%#x", ph)
		}
		return "cpu", a
	case *dt.HigherLevelCache:
		a.add("cache-level", "%d", v.Level())
		if !v.Description().IsZero() {
			a.add("cache", "%s", cacheDesc(v.Description()))
		}
		if next := v.NextCache(); next != nil {
			a.add("next-level-cache", "%s", next.Path())
		}
		a.add("phandle", "%#x", v.PHandle())
		return "cache", a
	case *dt.MemoryRegion:
		a.add("reg", "%s", regs(v.Ranges()))
		if v.Hotpluggable() {
			a.add("hotpluggable", "true")
		}
		if m, ok := v.InitialMappedArea(); ok {
			a.add("initial-mapped-area", "ea=%#x pa=%#x size=%#x", m.EffectiveAddress, m.PhysicalAddress, m.Size)
		}
		if ph, ok := v.PHandle(); ok {
			a.add("phandle", "%#x", ph)
		}
		return "memory", a
	case *dt.ReservedMemoryParent:
		if ph, ok := v.PHandle(); ok {
			a.add("phandle", "%#x", ph)
		}
		return "reserved-memory", a
	case *dt.ReservedMemory:
		r := v.Region()
		if r.IsStatic() {
			a.add("reg", "%s", regs(r.Static))
		} else {
			a.add("size", "%#x", r.Size)
			if r.Alignment != 0 {
				a.add("alignment", "%#x", r.Alignment)
			}
			if r.AllocRanges != nil {
				a.add("alloc-ranges", "%s", regs(r.AllocRanges))
			}
		}
		if v.Usage() != dt.ReservedOther {
			a.add("usage", "%s", v.Usage())
		}
		if c := v.Compatible(); c.Kind != dt.CompatibleNone {
			a.add("compatible", "%q", c.Raw)
		}
		if ph, ok := v.PHandle(); ok {
			a.add("phandle", "%#x", ph)
		}
		return "reserved", a
	case *dt.Chosen:
		if s, ok := v.BootArgs(); ok {
			a.add("bootargs", "%q", s)
		}
		if out := v.Stdout(); out != nil {
			a.add("stdout", "%s", console(out, v.StdoutOptions()))
		}
		if in := v.Stdin(); in != nil {
			a.add("stdin", "%s", console(in, v.StdinOptions()))
		}
		if ph, ok := v.PHandle(); ok {
			a.add("phandle", "%#x", ph)
		}
		return "chosen", a
	case *dt.Device:
		describeDevice(v, &a)
		return "device", a
	}
	return "node", a
}

func describeDevice(d *dt.Device, a *attrs) {
	if c := d.Compatible(); len(c) > 0 {
		a.add("compatible", "%s", models(c))
	}
	if m, ok := d.Model(); ok {
		a.add("model", "%q", m.String())
	}
	if r, ok := d.Reg(); ok {
		a.add("reg", "%s", regs(r))
	}
	if r, ok := d.Ranges(); ok {
		parts := make([]string, len(r))
		for i, x := range r {
			parts[i] = fmt.Sprintf("%#x->%#x+%#x", x.ChildAddress, x.ParentAddress, x.Size)
		}
		a.add("ranges", "[%s]", strings.Join(parts, " "))
	}
	if !d.Status().OK() {
		a.add("status", "%s", d.Status())
	}
	if ph, ok := d.PHandle(); ok {
		a.add("phandle", "%#x", ph)
	}
	irq := d.Interrupts()
	if irq.Controller() {
		a.add("interrupt-controller", "true")
	}
	if n, ok := irq.Cells(); ok {
		a.add("#interrupt-cells", "%d", n)
	}
	if p := irq.Parent(); p != nil {
		a.add("interrupt-parent", "%s", p.Path())
	}
	if specs := irq.Specifiers(); len(specs) > 0 {
		parts := make([]string, len(specs))
		for i, s := range specs {
			parts[i] = hexList(s)
		}
		a.add("interrupts", "%s", strings.Join(parts, " "))
	} else if raw := irq.Raw(); raw != nil {
		a.add("interrupts", "%s", hexList(raw))
	}
}

func console(n dt.Node, opts string) string {
	if opts == "" {
		return n.Path()
	}
	return n.Path() + ":" + opts
}

func models(ms []dt.Model) string {
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = strconv.Quote(m.String())
	}
	return strings.Join(parts, ", ")
}

func regs(rs []dt.Reg) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = r.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func hexList(vs []uint32) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprintf("%#x", v)
	}
	return "<" + strings.Join(parts, " ") + ">"
}

func cacheDesc(c dt.CacheDescription) string {
	var parts []string
	for _, f := range []struct {
		name string
		v    uint32
	}{
		{"size", c.Size},
		{"sets", c.Sets},
		{"block", c.BlockSize},
		{"line", c.LineSize},
	} {
		if f.v != 0 {
			parts = append(parts, fmt.Sprintf("%s=%#x", f.name, f.v))
		}
	}
	return strings.Join(parts, " ")
}

// FormatValue renders a raw property value the way dtc prints it: string
// lists quoted, whole cells as <...>, anything else as [bytes].
func FormatValue(v []byte) string {
	switch {
	case len(v) == 0:
		return ""
	case fdt.IsPrintableStringList(v):
		list, _ := fdt.StringList(v)
		parts := make([]string, len(list))
		for i, s := range list {
			parts[i] = strconv.Quote(s)
		}
		return strings.Join(parts, ", ")
	case len(v)%fdt.Cell == 0:
		cells, _ := fdt.U32s(v)
		return hexList(cells)
	default:
		parts := make([]string, len(v))
		for i, b := range v {
			parts[i] = fmt.Sprintf("%02x", b)
		}
		return "[" + strings.Join(parts, " ") + "]"
	}
}
