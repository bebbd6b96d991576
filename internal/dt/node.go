package dt

import (
	"iter"
	"slices"
	"strings"

	"github.com/NeilAllavarpu/device-tree/internal/fdt"
	"github.com/NeilAllavarpu/device-tree/internal/sortedmap"
)

// Properties maps property names to the raw values the resolver did not
// interpret.
type Properties = sortedmap.Map[string, []byte]

// Children maps child names to generic device nodes.
type Children = sortedmap.Map[fdt.Name, *Device]

// Node is implemented by every resolved node kind.
type Node interface {
	Name() fdt.Name
	// Path is the absolute path of the node.
	Path() string
	// Parent is nil for the root.
	Parent() Node
	// Properties holds the properties left after typed decoding.
	Properties() *Properties
	// Children holds the generic device children.
	Children() *Children

	nodes() iter.Seq[Node]
}

// base does not store the path. Path walks the parent chain on demand.
type base struct {
	name       fdt.Name
	parent     Node
	properties *Properties
	children   *Children
}

func newBase(name fdt.Name, parent Node) base {
	return base{
		name:     name,
		parent:   parent,
		children: newChildren(),
	}
}

func newChildren() *Children {
	return sortedmap.NewFunc[fdt.Name, *Device](fdt.CompareNames)
}

func (b *base) Name() fdt.Name          { return b.name }
func (b *base) Parent() Node            { return b.parent }
func (b *base) Properties() *Properties { return b.properties }
func (b *base) Children() *Children     { return b.children }

func (b *base) Path() string {
	if b.parent == nil {
		return "/"
	}
	segs := []string{b.name.String()}
	for p := b.parent; p.Parent() != nil; p = p.Parent() {
		segs = append(segs, p.Name().String())
	}
	slices.Reverse(segs)
	return "/" + strings.Join(segs, "/")
}

// Property returns a raw leftover property.
func (b *base) Property(name string) ([]byte, bool) {
	return b.properties.Get(name)
}

// Child returns the generic child with the given name.
func (b *base) Child(name string) (*Device, bool) {
	n, err := fdt.ParseName(name)
	if err != nil {
		return nil, false
	}
	return findChild(b.children, n)
}

func (b *base) nodes() iter.Seq[Node] {
	return devicesSeq(b.children)
}

func devicesSeq(m *Children) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for d := range m.Values() {
			if !yield(d) {
				return
			}
		}
	}
}

// ChildNodes yields the direct children of n, including typed nodes such as
// CPUs and memory regions.
func ChildNodes(n Node) iter.Seq[Node] { return n.nodes() }

// findChild looks name up in m. A name without a unit address also matches
// a single child with the same node-name and any unit address.
func findChild[V any](m *sortedmap.Map[fdt.Name, V], name fdt.Name) (V, bool) {
	if v, ok := m.Get(name); ok || name.HasUnit() {
		return v, ok
	}
	var found V
	matches := 0
	for k, v := range m.All() {
		if k.Node == name.Node {
			found = v
			matches++
		}
	}
	if matches != 1 {
		var zero V
		return zero, false
	}
	return found, true
}

// Walk visits n and all of its descendants in pre-order, including the
// typed nodes held by the root, /cpus and /reserved-memory.
func Walk(n Node) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		stack := []Node{n}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(cur) {
				return
			}
			kids := slices.Collect(cur.nodes())
			slices.Reverse(kids)
			stack = append(stack, kids...)
		}
	}
}
