// Package rawtree assembles the structure block token stream into an untyped
// tree of property maps. Nesting is tracked with an explicit stack, so
// arbitrarily deep blobs cannot exhaust the goroutine stack.
package rawtree

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/NeilAllavarpu/device-tree/internal/fdt"
	"github.com/NeilAllavarpu/device-tree/internal/sortedmap"
)

var (
	ErrPropertyOutsideNode = errors.New("rawtree: property outside any node")
	ErrDuplicateProperty   = errors.New("rawtree: duplicate property")
	ErrDuplicateNode       = errors.New("rawtree: duplicate node name")
	ErrTooManyEnds         = errors.New("rawtree: unbalanced END_NODE")
	ErrUnclosedNodes       = errors.New("rawtree: END with unclosed nodes")
	ErrNoRoot              = errors.New("rawtree: no root node")
	ErrMultipleRoots       = errors.New("rawtree: multiple root nodes")
	ErrRootName            = errors.New("rawtree: root node has a name")
	ErrMultipleEnds        = errors.New("rawtree: more than one END token")
	ErrTrailingData        = errors.New("rawtree: data after END token")
	ErrMissingEnd          = errors.New("rawtree: structure block ends without END token")
)

// Error locates a structural failure.
type Error struct {
	Offset int
	Path   string
	Name   string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	if e.Name != "" {
		fmt.Fprintf(&b, " %q", e.Name)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " in %s", e.Path)
	}
	fmt.Fprintf(&b, " at struct offset %#x", e.Offset)
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Properties maps property names to raw values.
type Properties = sortedmap.Map[string, []byte]

// Children maps child names to nodes.
type Children = sortedmap.Map[fdt.Name, *Node]

// Node is an untyped device tree node. Resolution consumes it by removing
// entries from its maps.
type Node struct {
	Properties *Properties
	Children   *Children
}

// NewNode returns an empty node.
func NewNode() *Node {
	return &Node{
		Properties: sortedmap.New[string, []byte](),
		Children:   sortedmap.NewFunc[fdt.Name, *Node](fdt.CompareNames),
	}
}

type frame struct {
	name     fdt.Name
	node     *Node
	children []child
}

type child struct {
	name fdt.Name
	node *Node
}

// Build consumes dec up to and including the END token and returns the
// root node. Any bytes left in the structure block afterwards are an error.
func Build(dec *fdt.Decoder) (*Node, error) {
	// stack[0] is a synthetic frame that collects the top-level node.
	stack := []*frame{{}}
	path := func() string {
		if len(stack) <= 1 {
			return ""
		}
		parts := make([]string, 0, len(stack)-1)
		for _, f := range stack[2:] {
			parts = append(parts, f.name.String())
		}
		return "/" + strings.Join(parts, "/")
	}

	for {
		off := dec.Offset()
		tok, err := dec.Next()
		if err == io.EOF {
			return nil, &Error{Offset: off, Path: path(), Err: ErrMissingEnd}
		}
		if err != nil {
			return nil, err
		}

		switch tok.Kind {
		case fdt.TokenNop:
		case fdt.TokenBeginNode:
			stack = append(stack, &frame{name: tok.Name, node: NewNode()})
		case fdt.TokenProp:
			if len(stack) == 1 {
				return nil, &Error{Offset: off, Name: tok.Property, Err: ErrPropertyOutsideNode}
			}
			top := stack[len(stack)-1]
			if !top.node.Properties.InsertNew(tok.Property, tok.Value) {
				return nil, &Error{Offset: off, Path: path(), Name: tok.Property, Err: ErrDuplicateProperty}
			}
		case fdt.TokenEndNode:
			if len(stack) == 1 {
				return nil, &Error{Offset: off, Err: ErrTooManyEnds}
			}
			top := stack[len(stack)-1]
			for _, c := range top.children {
				if !top.node.Children.InsertNew(c.name, c.node) {
					return nil, &Error{Offset: off, Path: path(), Name: c.name.String(), Err: ErrDuplicateNode}
				}
			}
			top.children = nil
			stack = stack[:len(stack)-1]
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, child{name: top.name, node: top.node})
		case fdt.TokenEnd:
			if len(stack) != 1 {
				return nil, &Error{Offset: off, Path: path(), Err: fmt.Errorf("%w: %d open", ErrUnclosedNodes, len(stack)-1)}
			}
			top := stack[0].children
			switch {
			case len(top) == 0:
				return nil, &Error{Offset: off, Err: ErrNoRoot}
			case len(top) > 1:
				return nil, &Error{Offset: off, Name: top[1].name.String(), Err: ErrMultipleRoots}
			case !top[0].name.IsRoot():
				return nil, &Error{Offset: off, Name: top[0].name.String(), Err: ErrRootName}
			}
			if err := checkTrailing(dec); err != nil {
				return nil, err
			}
			return top[0].node, nil
		}
	}
}

func checkTrailing(dec *fdt.Decoder) error {
	if dec.Remaining() == 0 {
		return nil
	}
	off, n := dec.Offset(), dec.Remaining()
	tok, err := dec.Next()
	if err == nil && tok.Kind == fdt.TokenEnd {
		return &Error{Offset: off, Err: ErrMultipleEnds}
	}
	return &Error{Offset: off, Err: fmt.Errorf("%w: %d bytes", ErrTrailingData, n)}
}
