package dump

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/NeilAllavarpu/device-tree/internal/config"
)

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor encoder mode: %v", err))
	}
}

// Write renders v, a *TreeView or *NodeView, in the given format. width
// bounds values in text output; zero or negative disables truncation.
func Write(w io.Writer, v any, format config.Format, width int) error {
	switch format {
	case config.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case config.FormatCBOR:
		if err := encMode.NewEncoder(w).Encode(v); err != nil {
			return fmt.Errorf("encode cbor: %w", err)
		}
		return nil
	case config.FormatText, "":
		tw := &textWriter{w: w, width: width}
		switch v := v.(type) {
		case *TreeView:
			tw.tree(v)
		case *NodeView:
			tw.node(v, 0)
		default:
			return fmt.Errorf("dump: cannot render %T", v)
		}
		return tw.err
	}
	return fmt.Errorf("%w: %q", config.ErrFormat, format)
}
