package fdt

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
)

// MaxNodeNameLen is the longest node-name component accepted.
const MaxNodeNameLen = 31

// Name is a node name of the form node-name[@unit-address]. The zero value
// is the root node's name.
type Name struct {
	// Node is the node-name component.
	Node string
	// Unit is the unit-address text after '@', empty when absent.
	Unit string
	// Address is the numeric value of the first comma-separated component
	// of Unit.
	Address uint64
}

// ParseName validates a node name.
func ParseName(s string) (Name, error) {
	if s == "" {
		return Name{}, nil
	}
	node, unit, hasUnit := strings.Cut(s, "@")
	if len(node) == 0 || len(node) > MaxNodeNameLen {
		return Name{}, fmt.Errorf("%w: %q: node-name must be 1-%d characters", ErrNodeName, s, MaxNodeNameLen)
	}
	for i := 0; i < len(node); i++ {
		if !isNameChar(node[i]) {
			return Name{}, fmt.Errorf("%w: %q: invalid character %q", ErrNodeName, s, node[i])
		}
	}
	if !hasUnit {
		return Name{Node: node}, nil
	}
	first, _, _ := strings.Cut(unit, ",")
	addr, err := strconv.ParseUint(first, 16, 64)
	if err != nil {
		return Name{}, fmt.Errorf("%w: %q: unit address is not hexadecimal", ErrNodeName, s)
	}
	for i := 0; i < len(unit); i++ {
		if !isNameChar(unit[i]) {
			return Name{}, fmt.Errorf("%w: %q: invalid character %q", ErrNodeName, s, unit[i])
		}
	}
	return Name{Node: node, Unit: unit, Address: addr}, nil
}

// MustParseName is ParseName for names known to be valid.
func MustParseName(s string) Name {
	n, err := ParseName(s)
	if err != nil {
		panic(err)
	}
	return n
}

func isNameChar(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte(",._+-", c) >= 0
}

// HasUnit reports whether the name carries a unit-address.
func (n Name) HasUnit() bool { return n.Unit != "" }

// IsRoot reports whether n is the empty root name.
func (n Name) IsRoot() bool { return n.Node == "" }

func (n Name) String() string {
	if n.Unit == "" {
		return n.Node
	}
	return n.Node + "@" + n.Unit
}

// Compare orders names by node-name, then unit-address.
func (n Name) Compare(o Name) int {
	if c := cmp.Compare(n.Node, o.Node); c != 0 {
		return c
	}
	switch {
	case !n.HasUnit() && o.HasUnit():
		return -1
	case n.HasUnit() && !o.HasUnit():
		return 1
	}
	if c := cmp.Compare(n.Address, o.Address); c != 0 {
		return c
	}
	return cmp.Compare(n.Unit, o.Unit)
}

// CompareNames is Name.Compare as a free function, for sorted containers.
func CompareNames(a, b Name) int { return a.Compare(b) }
