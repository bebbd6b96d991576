package dt

import (
	"strings"

	"github.com/NeilAllavarpu/device-tree/internal/fdt"
	"github.com/NeilAllavarpu/device-tree/internal/rawtree"
	"github.com/NeilAllavarpu/device-tree/internal/sortedmap"
)

// resolveLabels maps each property of an /aliases-style node to the node its
// path names. Entries that do not resolve are dropped with a warning.
func (r *resolver) resolveLabels(raw *rawtree.Node, root *Root, nodeName string, into *sortedmap.Map[string, Node]) {
	if raw == nil {
		return
	}
	path := "/" + nodeName
	if raw.Children.Len() > 0 {
		r.atPath(path, "").Warn("ignoring child nodes", "count", raw.Children.Len())
	}
	for name, v := range raw.Properties.All() {
		warn := r.atPath(path, name)
		target, err := fdt.String(v)
		if err != nil {
			warn.Warn("skipping malformed path", "err", err)
			continue
		}
		if !strings.HasPrefix(target, "/") {
			warn.Warn("skipping relative path", "target", target)
			continue
		}
		n, ok := Lookup(root, target)
		if !ok {
			warn.Warn("skipping path that names no node", "target", target)
			continue
		}
		into.Insert(name, n)
	}
}
