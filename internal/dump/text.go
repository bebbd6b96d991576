package dump

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

const indentUnit = "    "

type textWriter struct {
	w     io.Writer
	width int
	err   error
}

func (t *textWriter) printf(format string, args ...any) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, format, args...)
}

func (t *textWriter) tree(v *TreeView) {
	t.printf("/dts-v%d/; // last compatible v%d, boot cpu %#x\n", v.Version, v.LastCompVersion, v.BootCPU)
	for _, r := range v.Reservations {
		t.printf("/memreserve/ %#x %#x;\n", r.Address, r.Size)
	}
	t.printf("\n")
	t.node(v.Root, 0)
}

func (t *textWriter) node(v *NodeView, depth int) {
	indent := strings.Repeat(indentUnit, depth)
	t.printf("%s%s { // %s\n", indent, v.Name(), v.Kind)

	inner := indent + indentUnit
	nameWidth := 0
	for _, a := range v.Attrs {
		nameWidth = max(nameWidth, ansi.StringWidth(a.Name))
	}
	for _, a := range v.Properties {
		nameWidth = max(nameWidth, ansi.StringWidth(a.Name))
	}
	for _, a := range v.Attrs {
		t.attr(inner, a, nameWidth, "")
	}
	for _, a := range v.Properties {
		t.attr(inner, a, nameWidth, " // raw")
	}
	for _, c := range v.Children {
		t.node(c, depth+1)
	}
	t.printf("%s};\n", indent)
}

func (t *textWriter) attr(indent string, a Attr, nameWidth int, suffix string) {
	pad := strings.Repeat(" ", nameWidth-ansi.StringWidth(a.Name))
	if a.Value == "" {
		t.printf("%s%s;%s\n", indent, a.Name, suffix)
		return
	}
	value := a.Value
	if t.width > 0 {
		value = ansi.Truncate(value, t.width, "…")
	}
	t.printf("%s%s%s = %s;%s\n", indent, a.Name, pad, value, suffix)
}
