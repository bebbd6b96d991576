package dt

import (
	"strings"

	"github.com/NeilAllavarpu/device-tree/internal/fdt"
)

type childLookup interface {
	lookupChild(fdt.Name) (Node, bool)
}

// Lookup resolves a slash-separated path relative to from. Empty segments
// are ignored, so "/a//b" and "a/b" are the same path. A segment without a
// unit address matches a lone child of that node-name.
func Lookup(from Node, path string) (Node, bool) {
	cur := from
	for seg := range strings.SplitSeq(path, "/") {
		if seg == "" {
			continue
		}
		name, err := fdt.ParseName(seg)
		if err != nil {
			return nil, false
		}
		next, ok := child(cur, name)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func child(n Node, name fdt.Name) (Node, bool) {
	if l, ok := n.(childLookup); ok {
		return l.lookupChild(name)
	}
	d, ok := findChild(n.Children(), name)
	if !ok {
		return nil, false
	}
	return d, true
}

// lookupWithAliases resolves an absolute path, or a path whose first
// segment is an alias.
func lookupWithAliases(root *Root, path string) (Node, bool) {
	if strings.HasPrefix(path, "/") {
		return Lookup(root, path)
	}
	alias, rest, _ := strings.Cut(path, "/")
	start, ok := root.aliases.Get(alias)
	if !ok {
		return nil, false
	}
	return Lookup(start, rest)
}
