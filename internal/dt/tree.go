package dt

import (
	"fmt"
	"log/slog"

	"github.com/NeilAllavarpu/device-tree/internal/fdt"
	"github.com/NeilAllavarpu/device-tree/internal/rawtree"
)

// Option configures Parse.
type Option func(*parseConfig)

type parseConfig struct {
	warn fdt.Warner
}

// WithWarner sends recoverable diagnostics to w.
func WithWarner(w fdt.Warner) Option {
	return func(c *parseConfig) {
		if w == nil {
			w = fdt.Discard
		}
		c.warn = w
	}
}

// WithLogger sends recoverable diagnostics to l at warn level.
func WithLogger(l *slog.Logger) Option {
	return func(c *parseConfig) {
		if l == nil {
			c.warn = fdt.Discard
			return
		}
		c.warn = l
	}
}

// DeviceTree is a fully decoded device tree blob.
type DeviceTree struct {
	header       fdt.Header
	reservations []fdt.Reservation
	root         *Root
	bootCPU      *CPU
}

// Parse decodes and validates a flattened device tree. Errors are
// *ParseError values naming the stage that failed; the underlying sentinel
// is reachable through errors.Is.
func Parse(data []byte, opts ...Option) (*DeviceTree, error) {
	cfg := parseConfig{warn: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	blob, err := fdt.ParseHeader(data)
	if err != nil {
		return nil, &ParseError{Stage: StageHeader, Err: err}
	}
	res, err := blob.Reservations()
	if err != nil {
		return nil, &ParseError{Stage: StageHeader, Err: err}
	}
	raw, err := rawtree.Build(fdt.NewDecoder(blob.Struct, blob.Strings))
	if err != nil {
		return nil, &ParseError{Stage: StageStructure, Err: err}
	}

	t := &DeviceTree{header: blob.Header, reservations: res}
	if raw.Properties.Len() == 0 && raw.Children.Len() == 0 {
		t.root = newRoot()
		return t, nil
	}
	if err := t.resolve(raw, cfg.warn); err != nil {
		return nil, &ParseError{Stage: StageResolve, Err: err}
	}
	return t, nil
}

func (t *DeviceTree) resolve(raw *rawtree.Node, warn fdt.Warner) error {
	r := newResolver(warn)
	root, pulled, err := r.root(raw)
	if err != nil {
		return err
	}
	t.root = root
	r.resolveLabels(pulled.aliases, root, nodeAliases, root.aliases)
	r.resolveLabels(pulled.symbols, root, nodeSymbols, root.symbols)
	if root.chosen != nil {
		if err := r.resolveChosen(root.chosen, root); err != nil {
			return err
		}
	}
	r.resolveInterrupts(root)

	boot, ok := root.cpus.cpus.Get(t.header.BootCPUIDPhys)
	if !ok {
		return nodeErr(root.cpus.Path(), "", fmt.Errorf("%w: boot_cpuid_phys %#x", ErrBootCPU, t.header.BootCPUIDPhys))
	}
	t.bootCPU = boot
	return nil
}

// Root returns the root node.
func (t *DeviceTree) Root() *Root { return t.root }

// Version returns the header version.
func (t *DeviceTree) Version() uint32 { return t.header.Version }

// LastCompatibleVersion returns the header last_comp_version.
func (t *DeviceTree) LastCompatibleVersion() uint32 { return t.header.LastCompVersion }

// Header returns the raw header fields.
func (t *DeviceTree) Header() fdt.Header { return t.header }

// Reservations returns the memory reservation block sorted by address.
func (t *DeviceTree) Reservations() []fdt.Reservation { return t.reservations }

// BootCPUID returns boot_cpuid_phys from the header.
func (t *DeviceTree) BootCPUID() uint32 { return t.header.BootCPUIDPhys }

// BootCPU returns the CPU named by boot_cpuid_phys, nil for an empty tree.
func (t *DeviceTree) BootCPU() *CPU { return t.bootCPU }

// CPUs returns every CPU in id order.
func (t *DeviceTree) CPUs() []*CPU {
	m := t.root.CPUs()
	if m == nil {
		return nil
	}
	out := make([]*CPU, 0, m.Len())
	for c := range m.Values() {
		out = append(out, c)
	}
	return out
}

// Lookup resolves an absolute path, or a path starting with an alias.
func (t *DeviceTree) Lookup(path string) (Node, bool) {
	return lookupWithAliases(t.root, path)
}

// LookupDevice is Lookup restricted to generic devices.
func (t *DeviceTree) LookupDevice(path string) (*Device, bool) {
	n, ok := t.Lookup(path)
	if !ok {
		return nil, false
	}
	d, ok := n.(*Device)
	return d, ok
}

// Alias returns the node an alias points at.
func (t *DeviceTree) Alias(name string) (Node, bool) { return t.root.aliases.Get(name) }

// PHandle returns the node with the given phandle.
func (t *DeviceTree) PHandle(ph uint32) (Node, bool) { return t.root.PHandle(ph) }
