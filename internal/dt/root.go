package dt

import (
	"fmt"
	"iter"

	"github.com/NeilAllavarpu/device-tree/internal/fdt"
	"github.com/NeilAllavarpu/device-tree/internal/rawtree"
	"github.com/NeilAllavarpu/device-tree/internal/sortedmap"
)

// Root is the resolved root node.
type Root struct {
	base

	model        Model
	compatible   []Model
	serialNumber string
	hasSerial    bool
	chassis      Chassis
	cells        cellCounts

	interruptParent    uint32
	hasInterruptParent bool
	phandle            uint32
	hasPHandle         bool

	cpus           *CPUs
	reservedMemory *ReservedMemoryParent
	memory         []*MemoryRegion
	memoryByName   *sortedmap.Map[fdt.Name, *MemoryRegion]
	chosen         *Chosen
	aliases        *sortedmap.Map[string, Node]
	symbols        *sortedmap.Map[string, Node]
	phandles       *sortedmap.Map[uint32, Node]
}

func newRoot() *Root {
	return &Root{
		base: base{
			properties: sortedmap.New[string, []byte](),
			children:   newChildren(),
		},
		cells:        defaultCells,
		memoryByName: sortedmap.NewFunc[fdt.Name, *MemoryRegion](fdt.CompareNames),
		aliases:      sortedmap.New[string, Node](),
		symbols:      sortedmap.New[string, Node](),
		phandles:     sortedmap.New[uint32, Node](),
	}
}

// Model returns the machine model.
func (t *Root) Model() Model { return t.model }

// Compatible returns the machine compatible list.
func (t *Root) Compatible() []Model { return t.compatible }

// SerialNumber returns the machine serial number.
func (t *Root) SerialNumber() (string, bool) { return t.serialNumber, t.hasSerial }

// ChassisType returns the chassis type, ChassisUnknown when absent.
func (t *Root) ChassisType() Chassis { return t.chassis }

// AddressCells returns the root #address-cells.
func (t *Root) AddressCells() uint8 { return t.cells.address }

// SizeCells returns the root #size-cells.
func (t *Root) SizeCells() uint8 { return t.cells.size }

// InterruptParent returns the root interrupt-parent phandle.
func (t *Root) InterruptParent() (uint32, bool) {
	return t.interruptParent, t.hasInterruptParent
}

// OwnPHandle returns the root's own phandle. PHandle looks nodes up by value.
func (t *Root) OwnPHandle() (uint32, bool) { return t.phandle, t.hasPHandle }

// CPUs returns the CPUs keyed by id.
func (t *Root) CPUs() *sortedmap.Map[uint32, *CPU] {
	if t.cpus == nil {
		return nil
	}
	return t.cpus.cpus
}

// CPUsNode returns the /cpus container, nil for an empty tree.
func (t *Root) CPUsNode() *CPUs { return t.cpus }

// HigherCaches returns the shared caches keyed by phandle.
func (t *Root) HigherCaches() *sortedmap.Map[uint32, *HigherLevelCache] {
	if t.cpus == nil {
		return nil
	}
	return t.cpus.caches
}

// ReservedMemory returns the reserved regions, nil when the tree has no
// /reserved-memory node.
func (t *Root) ReservedMemory() *sortedmap.Map[fdt.Name, *ReservedMemory] {
	if t.reservedMemory == nil {
		return nil
	}
	return t.reservedMemory.regions
}

// ReservedMemoryNode returns the /reserved-memory container.
func (t *Root) ReservedMemoryNode() *ReservedMemoryParent { return t.reservedMemory }

// MemoryRegions returns the memory nodes in name order.
func (t *Root) MemoryRegions() []*MemoryRegion { return t.memory }

// Chosen returns /chosen, nil when absent.
func (t *Root) Chosen() *Chosen { return t.chosen }

// Aliases returns the resolved aliases.
func (t *Root) Aliases() *sortedmap.Map[string, Node] { return t.aliases }

// Symbols returns the resolved /__symbols__ labels.
func (t *Root) Symbols() *sortedmap.Map[string, Node] { return t.symbols }

// PHandles returns every node with a phandle.
func (t *Root) PHandles() *sortedmap.Map[uint32, Node] { return t.phandles }

// PHandle returns the node with the given phandle.
func (t *Root) PHandle(ph uint32) (Node, bool) { return t.phandles.Get(ph) }

func (t *Root) lookupChild(name fdt.Name) (Node, bool) {
	if !name.HasUnit() {
		switch {
		case name.Node == nodeCPUs && t.cpus != nil:
			return t.cpus, true
		case name.Node == nodeReservedMemory && t.reservedMemory != nil:
			return t.reservedMemory, true
		case name.Node == nodeChosen && t.chosen != nil:
			return t.chosen, true
		}
	}
	if m, ok := findChild(t.memoryByName, name); ok {
		return m, true
	}
	if d, ok := findChild(t.children, name); ok {
		return d, true
	}
	return nil, false
}

func (t *Root) nodes() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		if t.cpus != nil && !yield(t.cpus) {
			return
		}
		for _, m := range t.memory {
			if !yield(m) {
				return
			}
		}
		if t.reservedMemory != nil && !yield(t.reservedMemory) {
			return
		}
		if t.chosen != nil && !yield(t.chosen) {
			return
		}
		for d := range t.children.Values() {
			if !yield(d) {
				return
			}
		}
	}
}

// rootNodes holds the special children pulled out of the raw root before
// the generic pass.
type rootNodes struct {
	aliases *rawtree.Node
	symbols *rawtree.Node
}

func (r *resolver) root(raw *rawtree.Node) (*Root, rootNodes, error) {
	t := newRoot()
	t.phandles = r.phandles
	props := raw.Properties
	var pulled rootNodes

	cells, err := takeCells(props, t)
	if err != nil {
		return nil, pulled, err
	}
	if cells.size == 0 {
		return nil, pulled, nodeErr("/", propSizeCells, fmt.Errorf("%w: root #size-cells must be non-zero", ErrCells))
	}
	t.cells = cells

	model, ok, err := takeString(props, propModel)
	if err != nil || !ok || model == "" {
		return nil, pulled, nodeErr("/", propModel, wrapErr(ErrRootModel, err))
	}
	t.model = ParseModel(model)
	compat, err := r.takeCompatible(props, t)
	if err != nil || len(compat) == 0 {
		return nil, pulled, wrapErr(ErrRootCompatible, err)
	}
	t.compatible = compat
	if t.serialNumber, t.hasSerial, err = takeString(props, propSerialNumber); err != nil {
		return nil, pulled, nodeErr("/", propSerialNumber, wrapErr(ErrSerialNumber, err))
	}
	chassis, ok, err := takeString(props, propChassisType)
	if err != nil {
		return nil, pulled, nodeErr("/", propChassisType, wrapErr(ErrChassis, err))
	}
	if ok {
		if t.chassis, err = parseChassis(chassis); err != nil {
			return nil, pulled, nodeErr("/", propChassisType, err)
		}
	}
	if t.interruptParent, t.hasInterruptParent, err = takeU32(props, propInterruptParent); err != nil {
		return nil, pulled, nodeErr("/", propInterruptParent, wrapErr(ErrInterrupts, err))
	}
	if t.phandle, t.hasPHandle, err = r.claimPHandle(props, t); err != nil {
		return nil, pulled, err
	}

	take := func(name string) *rawtree.Node {
		n, _ := raw.Children.Remove(fdt.Name{Node: name})
		return n
	}
	pulled.aliases = take(nodeAliases)
	pulled.symbols = take(nodeSymbols)

	cpusRaw := take(nodeCPUs)
	if cpusRaw == nil {
		return nil, pulled, nodeErr("/"+nodeCPUs, "", fmt.Errorf("%w: missing", ErrCPURoot))
	}
	if t.cpus, err = r.cpus(cpusRaw, t); err != nil {
		return nil, pulled, err
	}
	if rm := take(nodeReservedMemory); rm != nil {
		if t.reservedMemory, err = r.reservedMemory(rm, t); err != nil {
			return nil, pulled, err
		}
	}
	for _, e := range raw.Children.ExtractFunc(func(_ fdt.Name, n *rawtree.Node) bool { return isMemoryNode(n) }) {
		m, err := r.memoryRegion(e.Value, e.Key, t)
		if err != nil {
			return nil, pulled, err
		}
		t.memory = append(t.memory, m)
		t.memoryByName.Insert(e.Key, m)
	}
	if ch := take(nodeChosen); ch != nil {
		if t.chosen, err = r.chosen(ch, t); err != nil {
			return nil, pulled, err
		}
	}
	if t.children, err = r.devices(raw.Children, t, cells); err != nil {
		return nil, pulled, err
	}
	t.properties = props
	return t, pulled, nil
}
