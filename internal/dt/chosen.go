package dt

import (
	"slices"
	"strings"

	"github.com/NeilAllavarpu/device-tree/internal/fdt"
	"github.com/NeilAllavarpu/device-tree/internal/rawtree"
)

// Chosen holds the boot parameters from /chosen.
type Chosen struct {
	base

	bootArgs    string
	hasBootArgs bool
	phandle     uint32
	hasPHandle  bool

	stdoutRaw  []byte
	stdinRaw   []byte
	stdoutPath string
	stdinPath  string

	stdout        Node
	stdoutOptions string
	stdin         Node
	stdinOptions  string
}

// BootArgs returns the kernel command line.
func (c *Chosen) BootArgs() (string, bool) { return c.bootArgs, c.hasBootArgs }

// PHandle returns the phandle of /chosen.
func (c *Chosen) PHandle() (uint32, bool) { return c.phandle, c.hasPHandle }

// Stdout returns the console output device, or nil.
func (c *Chosen) Stdout() Node { return c.stdout }

// StdoutPath returns stdout-path as written, without options.
func (c *Chosen) StdoutPath() string { return c.stdoutPath }

// StdoutOptions returns the text after ':' in stdout-path, such as a baud
// rate.
func (c *Chosen) StdoutOptions() string { return c.stdoutOptions }

// Stdin returns the console input device. It defaults to Stdout.
func (c *Chosen) Stdin() Node { return c.stdin }

// StdinPath returns stdin-path as written, or the stdout path it defaulted to.
func (c *Chosen) StdinPath() string { return c.stdinPath }

// StdinOptions returns the text after ':' in stdin-path.
func (c *Chosen) StdinOptions() string { return c.stdinOptions }

// chosen decodes /chosen except for the path properties, which need the
// finished tree.
func (r *resolver) chosen(raw *rawtree.Node, root *Root) (*Chosen, error) {
	c := &Chosen{base: newBase(fdt.Name{Node: nodeChosen}, root)}
	props := raw.Properties

	var err error
	if c.bootArgs, c.hasBootArgs, err = takeString(props, propBootArgs); err != nil {
		return nil, nodeErr(c.Path(), propBootArgs, wrapErr(ErrBootArgs, err))
	}
	c.stdoutRaw, _ = props.Remove(propStdoutPath)
	c.stdinRaw, _ = props.Remove(propStdinPath)
	if c.phandle, c.hasPHandle, err = r.claimPHandle(props, c); err != nil {
		return nil, err
	}

	cells, err := takeCells(props, c)
	if err != nil {
		return nil, err
	}
	if c.children, err = r.devices(raw.Children, c, cells); err != nil {
		return nil, err
	}
	c.properties = props
	return c, nil
}

// resolveChosen binds stdout-path and stdin-path. Unlike aliases, a path
// that names nothing is fatal.
func (r *resolver) resolveChosen(c *Chosen, root *Root) error {
	if c.stdoutRaw != nil {
		n, p, opts, err := resolveConsole(root, c.stdoutRaw, propStdoutPath, ErrStdoutPath)
		if err != nil {
			return nodeErr(c.Path(), propStdoutPath, err)
		}
		c.stdout, c.stdoutPath, c.stdoutOptions = n, p, opts
	}
	if c.stdinRaw != nil {
		n, p, opts, err := resolveConsole(root, c.stdinRaw, propStdinPath, ErrStdinPath)
		if err != nil {
			return nodeErr(c.Path(), propStdinPath, err)
		}
		c.stdin, c.stdinPath, c.stdinOptions = n, p, opts
	} else {
		c.stdin, c.stdinPath, c.stdinOptions = c.stdout, c.stdoutPath, c.stdoutOptions
	}
	c.stdoutRaw, c.stdinRaw = nil, nil

	if c.properties.Len() > 0 {
		names := slices.Collect(c.properties.Keys())
		r.at(c, "").Warn("unrecognised chosen properties", "properties", strings.Join(names, ","))
	}
	return nil
}

func resolveConsole(root *Root, raw []byte, prop string, invalid error) (Node, string, string, error) {
	s, err := fdt.String(raw)
	if err != nil || s == "" {
		return nil, "", "", wrapErr(invalid, err)
	}
	p, opts, _ := strings.Cut(s, ":")
	n, ok := lookupWithAliases(root, p)
	if !ok {
		return nil, "", "", &DanglingPathError{Property: prop, Target: p}
	}
	return n, p, opts, nil
}
