package dt

import (
	"fmt"
	"iter"
	"math"
	"strings"

	"github.com/NeilAllavarpu/device-tree/internal/fdt"
	"github.com/NeilAllavarpu/device-tree/internal/rawtree"
	"github.com/NeilAllavarpu/device-tree/internal/sortedmap"
)

// EnableMethodKind says how a CPU is brought online.
type EnableMethodKind uint8

const (
	// EnableNone means the property was absent.
	EnableNone EnableMethodKind = iota
	// EnableSpinTable CPUs poll ReleaseAddr.
	EnableSpinTable
	// EnableVendor is a vendor,method pair.
	EnableVendor
	// EnableStandard is a method name without a vendor, such as psci.
	EnableStandard
)

// EnableMethod is a decoded enable-method property.
type EnableMethod struct {
	Kind        EnableMethodKind
	ReleaseAddr uint64
	Vendor      string
	Method      string
}

func (m EnableMethod) String() string {
	switch m.Kind {
	case EnableSpinTable:
		return fmt.Sprintf("spin-table@%#x", m.ReleaseAddr)
	case EnableVendor:
		return m.Vendor + "," + m.Method
	case EnableStandard:
		return m.Method
	default:
		return ""
	}
}

// CPU is a node under /cpus describing one hardware thread group.
type CPU struct {
	base

	id           uint32
	threads      []uint32
	status       Status
	enableMethod EnableMethod
	l1           L1Cache
	next         *HigherLevelCache
	phandle      uint32
	hasPHandle   bool
}

// ID returns the CPU's reg value, matched against boot_cpuid_phys.
func (c *CPU) ID() uint32 { return c.id }

// Threads returns every hardware thread id listed in reg.
func (c *CPU) Threads() []uint32 { return c.threads }

// Status returns the CPU status.
func (c *CPU) Status() Status { return c.status }

// EnableMethod returns how the CPU is started.
func (c *CPU) EnableMethod() EnableMethod { return c.enableMethod }

// L1Cache returns the CPU's first-level cache description.
func (c *CPU) L1Cache() L1Cache { return c.l1 }

// NextCache returns the cache behind the L1, or nil.
func (c *CPU) NextCache() *HigherLevelCache { return c.next }

// PHandle returns the CPU's phandle.
func (c *CPU) PHandle() (uint32, bool) { return c.phandle, c.hasPHandle }

// CPUs is the /cpus container.
type CPUs struct {
	base

	addressCells uint8
	phandle      uint32
	hasPHandle   bool
	cpus         *sortedmap.Map[uint32, *CPU]
	caches       *sortedmap.Map[uint32, *HigherLevelCache]
	named        *sortedmap.Map[fdt.Name, Node]
}

// PHandle returns the phandle of /cpus itself.
func (c *CPUs) PHandle() (uint32, bool) { return c.phandle, c.hasPHandle }

// ByID returns CPUs keyed by id.
func (c *CPUs) ByID() *sortedmap.Map[uint32, *CPU] { return c.cpus }

// Caches returns the higher-level caches keyed by phandle.
func (c *CPUs) Caches() *sortedmap.Map[uint32, *HigherLevelCache] { return c.caches }

// AddressCells returns the number of cells in a CPU reg.
func (c *CPUs) AddressCells() uint8 { return c.addressCells }

func (c *CPUs) lookupChild(name fdt.Name) (Node, bool) {
	if n, ok := findChild(c.named, name); ok {
		return n, true
	}
	if d, ok := findChild(c.children, name); ok {
		return d, true
	}
	return nil, false
}

func (c *CPUs) nodes() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for n := range c.named.Values() {
			if !yield(n) {
				return
			}
		}
		for d := range c.children.Values() {
			if !yield(d) {
				return
			}
		}
	}
}

func (r *resolver) cpus(raw *rawtree.Node, root *Root) (*CPUs, error) {
	c := &CPUs{
		base:   newBase(fdt.Name{Node: nodeCPUs}, root),
		cpus:   sortedmap.New[uint32, *CPU](),
		caches: sortedmap.New[uint32, *HigherLevelCache](),
		named:  sortedmap.NewFunc[fdt.Name, Node](fdt.CompareNames),
	}
	props := raw.Properties
	path := c.Path()

	addr, ok, err := takeCellCount(props, propAddressCells)
	if err != nil {
		return nil, nodeErr(path, propAddressCells, wrapErr(ErrCPURoot, err))
	}
	if !ok {
		return nil, nodeErr(path, propAddressCells, fmt.Errorf("%w: missing", ErrCPURoot))
	}
	size, ok, err := takeCellCount(props, propSizeCells)
	if err != nil {
		return nil, nodeErr(path, propSizeCells, wrapErr(ErrCPURoot, err))
	}
	if !ok || size != 0 {
		return nil, nodeErr(path, propSizeCells, fmt.Errorf("%w: must be 0", ErrCPURoot))
	}
	c.addressCells = addr
	cells := cellCounts{address: addr}
	// Taken before the baseline is copied into each cpu.
	if c.phandle, c.hasPHandle, err = r.claimPHandle(props, c); err != nil {
		return nil, err
	}

	// Caches first, so CPUs can resolve next-level-cache.
	for _, e := range raw.Children.ExtractFunc(func(n fdt.Name, _ *rawtree.Node) bool {
		return !strings.HasPrefix(n.Node, nodeCPU)
	}) {
		hc, err := r.cache(e.Value, e.Key, c)
		if err != nil {
			return nil, err
		}
		c.caches.Insert(hc.phandle, hc)
		c.named.Insert(e.Key, hc)
	}
	for hc := range c.caches.Values() {
		if !hc.hasNext {
			continue
		}
		next, ok := c.caches.Get(hc.nextPHandle)
		if !ok {
			return nil, nodeErr(hc.Path(), propNextLevelCache, fmt.Errorf("%w: no cache with phandle %#x", ErrNextLevelCache, hc.nextPHandle))
		}
		hc.next = next
	}

	topology := sortedmap.NewFunc[fdt.Name, *rawtree.Node](fdt.CompareNames)
	for _, e := range raw.Children.ExtractFunc(func(n fdt.Name, _ *rawtree.Node) bool {
		return n.Node == nodeCPUMap
	}) {
		topology.Insert(e.Key, e.Value)
	}

	baseline := props.Clone()
	for name, cpuRaw := range raw.Children.All() {
		cpuRaw.Properties.ExtendPreserve(baseline)
		cpu, err := r.cpu(cpuRaw, name, c, cells)
		if err != nil {
			return nil, err
		}
		if !c.cpus.InsertNew(cpu.id, cpu) {
			return nil, nodeErr(cpu.Path(), propReg, fmt.Errorf("%w: %d", ErrDuplicateCPU, cpu.id))
		}
		c.named.Insert(name, cpu)
	}

	if c.children, err = r.devices(topology, c, cells); err != nil {
		return nil, err
	}
	c.properties = props
	return c, nil
}

func (r *resolver) cpu(raw *rawtree.Node, name fdt.Name, parent *CPUs, cells cellCounts) (*CPU, error) {
	c := &CPU{base: newBase(name, parent)}
	props := raw.Properties

	devType, ok, err := takeString(props, propDeviceType)
	if err != nil || !ok || devType != nodeCPU {
		return nil, nodeErr(c.Path(), propDeviceType, wrapErr(ErrCPUDeviceType, err))
	}
	if c.status, err = takeStatus(props, c); err != nil {
		return nil, err
	}
	if c.enableMethod, err = takeEnableMethod(props, c, c.status); err != nil {
		return nil, err
	}
	if c.l1, err = takeL1Cache(props, c); err != nil {
		return nil, err
	}
	next, ok, err := takeU32(props, propNextLevelCache)
	if err != nil {
		return nil, nodeErr(c.Path(), propNextLevelCache, wrapErr(ErrNextLevelCache, err))
	}
	if ok {
		if c.next, ok = parent.caches.Get(next); !ok {
			return nil, nodeErr(c.Path(), propNextLevelCache, fmt.Errorf("%w: no cache with phandle %#x", ErrNextLevelCache, next))
		}
	}
	if err := r.takeCPUReg(c, props, cells); err != nil {
		return nil, err
	}
	if c.phandle, c.hasPHandle, err = r.claimPHandle(props, c); err != nil {
		return nil, err
	}
	own, err := takeCells(props, c)
	if err != nil {
		return nil, err
	}
	if c.children, err = r.devices(raw.Children, c, own); err != nil {
		return nil, err
	}
	c.properties = props
	return c, nil
}

func (r *resolver) takeCPUReg(c *CPU, props *Properties, cells cellCounts) error {
	if cells.address != 1 && cells.address != 2 {
		return nodeErr(c.Path(), propReg, fmt.Errorf("%w: unsupported #address-cells %d", ErrCPUReg, cells.address))
	}
	regs, ok, err := r.takeReg(props, c, cells)
	if err != nil {
		return wrapErr(ErrCPUReg, err)
	}
	if !ok || len(regs) == 0 {
		return nodeErr(c.Path(), propReg, fmt.Errorf("%w: missing", ErrCPUReg))
	}
	for _, reg := range regs {
		if reg.Address > math.MaxUint32 {
			return nodeErr(c.Path(), propReg, fmt.Errorf("%w: id %#x exceeds 32 bits", ErrCPUReg, reg.Address))
		}
		c.threads = append(c.threads, uint32(reg.Address))
	}
	c.id = c.threads[0]
	if c.name.HasUnit() && c.name.Address != regs[0].Address {
		return &RegMismatchError{Path: c.Path(), Unit: c.name.Address, Reg: regs[0].Address}
	}
	return nil
}

func takeEnableMethod(props *Properties, n Node, status Status) (EnableMethod, error) {
	list, ok, err := takeStrings(props, propEnableMethod)
	if err != nil {
		return EnableMethod{}, nodeErr(n.Path(), propEnableMethod, wrapErr(ErrEnableMethod, err))
	}
	if !ok {
		if status.Kind == StatusDisabled {
			return EnableMethod{}, nodeErr(n.Path(), propEnableMethod, fmt.Errorf("%w: required for disabled cpu", ErrEnableMethod))
		}
		return EnableMethod{}, nil
	}
	if len(list) == 0 || list[0] == "" {
		return EnableMethod{}, nodeErr(n.Path(), propEnableMethod, fmt.Errorf("%w: empty", ErrEnableMethod))
	}
	method := list[0]
	if method == "spin-table" {
		v, ok := props.Remove(propReleaseAddr)
		if !ok {
			return EnableMethod{}, nodeErr(n.Path(), propReleaseAddr, ErrReleaseAddr)
		}
		addr, err := fdt.U64(v)
		if err != nil {
			return EnableMethod{}, nodeErr(n.Path(), propReleaseAddr, wrapErr(ErrReleaseAddr, err))
		}
		return EnableMethod{Kind: EnableSpinTable, ReleaseAddr: addr}, nil
	}
	vendor, name, hasVendor := strings.Cut(method, ",")
	if !hasVendor {
		return EnableMethod{Kind: EnableStandard, Method: method}, nil
	}
	if vendor == "" || name == "" {
		return EnableMethod{}, nodeErr(n.Path(), propEnableMethod, fmt.Errorf("%w: %q", ErrEnableMethod, method))
	}
	return EnableMethod{Kind: EnableVendor, Vendor: vendor, Method: name}, nil
}
