package fdttest

import (
	"slices"
	"strings"
)

// Property is one property value. Exactly one field should be populated;
// a zero Property encodes as an empty value.
type Property struct {
	Strings []string
	U32     []uint32
	U64     []uint64
	Bytes   []byte
}

// Str returns a string list property.
func Str(values ...string) Property { return Property{Strings: values} }

// Cells returns a property of 32-bit cells.
func Cells(values ...uint32) Property { return Property{U32: values} }

// U64 returns a property of 64-bit values.
func U64(values ...uint64) Property { return Property{U64: values} }

// Raw returns a property holding data verbatim.
func Raw(data []byte) Property { return Property{Bytes: data} }

// Flag returns an empty property.
func Flag() Property { return Property{} }

// Value encodes the property.
func (p Property) Value() []byte {
	switch {
	case p.Strings != nil:
		return StringsValue(p.Strings...)
	case p.U32 != nil:
		return CellsValue(p.U32...)
	case p.U64 != nil:
		return U64Value(p.U64...)
	default:
		return p.Bytes
	}
}

// Node describes a device-tree node.
type Node struct {
	Name       string
	Properties map[string]Property
	Children   []Node
}

// N is a shorthand constructor for Node.
func N(name string, props map[string]Property, children ...Node) Node {
	return Node{Name: name, Properties: props, Children: children}
}

// Find returns the descendant at the slash-separated path relative to n.
// The pointer is valid until n's child slices are modified.
func (n *Node) Find(path string) *Node {
	cur := n
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		i := slices.IndexFunc(cur.Children, func(c Node) bool { return c.Name == seg })
		if i < 0 {
			return nil
		}
		cur = &cur.Children[i]
	}
	return cur
}

// Set stores a property on n.
func (n *Node) Set(name string, p Property) *Node {
	if n.Properties == nil {
		n.Properties = make(map[string]Property)
	}
	n.Properties[name] = p
	return n
}

// Delete removes a property from n.
func (n *Node) Delete(name string) *Node {
	delete(n.Properties, name)
	return n
}

// AddChild appends a child node.
func (n *Node) AddChild(c Node) *Node {
	n.Children = append(n.Children, c)
	return n
}

// RemoveChild removes the named child.
func (n *Node) RemoveChild(name string) *Node {
	n.Children = slices.DeleteFunc(n.Children, func(c Node) bool { return c.Name == name })
	return n
}

// Clone returns a deep copy of n.
func (n Node) Clone() Node {
	out := Node{Name: n.Name}
	if n.Properties != nil {
		out.Properties = make(map[string]Property, len(n.Properties))
		for k, v := range n.Properties {
			out.Properties[k] = v
		}
	}
	for _, c := range n.Children {
		out.Children = append(out.Children, c.Clone())
	}
	return out
}
