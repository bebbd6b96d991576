package fdttest

import (
	"slices"
	"testing"

	"github.com/NeilAllavarpu/device-tree/internal/fdt"
)

// Tree describes a whole blob: the node tree plus header-level data.
type Tree struct {
	Root         Node
	BootCPU      uint32
	Reservations []fdt.Reservation
}

// Build serializes the tree. Properties are emitted in sorted name order,
// children in slice order.
func (t Tree) Build() []byte {
	b := NewBuilder().SetBootCPU(t.BootCPU)
	for _, r := range t.Reservations {
		b.AddReservation(r.Address, r.Size)
	}
	emitNode(b, t.Root)
	return b.Build()
}

// Build serializes a tree rooted at root with boot CPU 0.
func Build(root Node) []byte {
	return Tree{Root: root}.Build()
}

// Clone returns a deep copy of t.
func (t Tree) Clone() Tree {
	return Tree{Root: t.Root.Clone(), BootCPU: t.BootCPU, Reservations: slices.Clone(t.Reservations)}
}

func emitNode(b *Builder, n Node) {
	b.BeginNode(n.Name)
	keys := make([]string, 0, len(n.Properties))
	for name := range n.Properties {
		keys = append(keys, name)
	}
	slices.Sort(keys)
	for _, name := range keys {
		b.AddPropertyBytes(name, n.Properties[name].Value())
	}
	for _, child := range n.Children {
		emitNode(b, child)
	}
	b.EndNode()
}

// Sample returns the blob of SampleMachine.
func Sample(t testing.TB) []byte {
	t.Helper()
	return SampleMachine().Build()
}
