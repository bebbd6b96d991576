package dt_test

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeilAllavarpu/device-tree/internal/dt"
	"github.com/NeilAllavarpu/device-tree/internal/fdt"
	"github.com/NeilAllavarpu/device-tree/internal/fdt/fdttest"
)

type warning struct {
	msg  string
	args string
}

type recordingWarner struct {
	warnings []warning
}

func (w *recordingWarner) Warn(msg string, args ...any) {
	w.warnings = append(w.warnings, warning{msg: msg, args: fmt.Sprint(args...)})
}

func (w *recordingWarner) has(substr string) bool {
	return slices.ContainsFunc(w.warnings, func(x warning) bool {
		return strings.Contains(x.msg, substr)
	})
}

func parse(t *testing.T, tree fdttest.Tree) (*dt.DeviceTree, *recordingWarner) {
	t.Helper()
	w := &recordingWarner{}
	d, err := dt.Parse(tree.Build(), dt.WithWarner(w))
	require.NoError(t, err)
	return d, w
}

func parseErr(t *testing.T, tree fdttest.Tree) error {
	t.Helper()
	_, err := dt.Parse(tree.Build(), dt.WithWarner(fdt.Discard))
	require.Error(t, err)
	return err
}

func TestParseSampleMachine(t *testing.T) {
	d, w := parse(t, fdttest.SampleMachine())
	assert.Empty(t, w.warnings)

	root := d.Root()
	assert.Equal(t, dt.Model{Vendor: "acme", Name: "board-1"}, root.Model())
	require.Len(t, root.Compatible(), 2)
	assert.Equal(t, "soc", root.Compatible()[1].Name)
	serial, ok := root.SerialNumber()
	assert.True(t, ok)
	assert.Equal(t, "A123", serial)
	assert.Equal(t, dt.ChassisEmbedded, root.ChassisType())
	assert.Equal(t, uint8(2), root.AddressCells())
	assert.Equal(t, uint8(2), root.SizeCells())

	assert.Equal(t, uint32(17), d.Version())
	assert.Equal(t, []fdt.Reservation{
		{Address: 0x7f000000, Size: 0x800000},
		{Address: 0x90000000, Size: 0x1000},
	}, d.Reservations())
}

func TestParseCPUs(t *testing.T) {
	d, _ := parse(t, fdttest.SampleMachine())

	cpus := d.CPUs()
	require.Len(t, cpus, 2)
	require.NotNil(t, d.BootCPU())
	assert.Equal(t, uint32(0), d.BootCPU().ID())

	c0, c1 := cpus[0], cpus[1]
	assert.Equal(t, "/cpus/cpu@0", c0.Path())
	assert.Equal(t, dt.EnableMethod{Kind: dt.EnableStandard, Method: "psci"}, c0.EnableMethod())
	assert.False(t, c0.L1Cache().Unified)
	assert.Equal(t, dt.CacheDescription{Size: 0x8000, LineSize: 64}, c0.L1Cache().ICache)
	assert.Equal(t, dt.CacheDescription{Size: 0x8000, Sets: 128}, c0.L1Cache().DCache)
	ph, ok := c0.PHandle()
	assert.True(t, ok)
	assert.Equal(t, uint32(fdttest.PHandleCPU0), ph)

	assert.Equal(t, dt.EnableMethod{Kind: dt.EnableSpinTable, ReleaseAddr: 0x8000fff8}, c1.EnableMethod())
	assert.True(t, c1.L1Cache().Unified)
	assert.Equal(t, uint32(0x10000), c1.L1Cache().Cache.Size)

	l2 := c0.NextCache()
	require.NotNil(t, l2)
	assert.Same(t, l2, c1.NextCache())
	assert.Equal(t, uint32(2), l2.Level())
	require.NotNil(t, l2.NextCache())
	assert.Equal(t, uint32(3), l2.NextCache().Level())
	assert.Nil(t, l2.NextCache().NextCache())

	// Properties of /cpus are inherited unless the cpu overrides them.
	tb, ok := c0.Property("timebase-frequency")
	require.True(t, ok)
	assert.Equal(t, fdttest.CellsValue(10000000), tb)
	tb, ok = c1.Property("timebase-frequency")
	require.True(t, ok)
	assert.Equal(t, fdttest.CellsValue(20000000), tb)

	cpuMap, ok := d.Lookup("/cpus/cpu-map/cluster0/core0")
	require.True(t, ok)
	assert.Equal(t, "/cpus/cpu-map/cluster0/core0", cpuMap.Path())
}

func TestParseMemory(t *testing.T) {
	d, _ := parse(t, fdttest.SampleMachine())

	mem := d.Root().MemoryRegions()
	require.Len(t, mem, 1)
	assert.Equal(t, []dt.Reg{{Address: 0x40000000, Size: 0x80000000}}, mem[0].Ranges())
	assert.False(t, mem[0].Hotpluggable())

	res := d.Root().ReservedMemory()
	require.NotNil(t, res)
	require.Equal(t, 2, res.Len())

	fb, ok := res.Get(fdt.MustParseName("framebuffer@7f000000"))
	require.True(t, ok)
	assert.True(t, fb.Region().IsStatic())
	assert.Equal(t, dt.ReservedNoMap, fb.Usage())
	assert.Equal(t, dt.CompatibleNone, fb.Compatible().Kind)

	cma, ok := res.Get(fdt.MustParseName("linux,cma"))
	require.True(t, ok)
	assert.False(t, cma.Region().IsStatic())
	assert.Equal(t, dt.ReservedReusable, cma.Usage())
	assert.Equal(t, dt.CompatibleSharedDMAPool, cma.Compatible().Kind)
	assert.Equal(t, uint64(0x4000000), cma.Region().Size)
	assert.Equal(t, uint64(0x400000), cma.Region().Alignment)
	assert.Equal(t, []dt.Reg{
		{Address: 0x40000000, Size: 0x10000000},
		{Address: 0x60000000, Size: 0x10000000},
	}, cma.Region().AllocRanges)

	n, ok := d.PHandle(fdttest.PHandleCMA)
	require.True(t, ok)
	assert.Same(t, cma, n)
}

func TestParseChosenAndAliases(t *testing.T) {
	d, _ := parse(t, fdttest.SampleMachine())

	serial, ok := d.LookupDevice("/soc/serial@10000000")
	require.True(t, ok)

	alias, ok := d.Alias("serial0")
	require.True(t, ok)
	assert.Same(t, serial, alias)

	chosen := d.Root().Chosen()
	require.NotNil(t, chosen)
	args, ok := chosen.BootArgs()
	assert.True(t, ok)
	assert.Equal(t, "console=ttyS0 root=/dev/vda", args)
	assert.Same(t, serial, chosen.Stdout())
	assert.Equal(t, "serial0", chosen.StdoutPath())
	assert.Equal(t, "115200n8", chosen.StdoutOptions())
	assert.Same(t, serial, chosen.Stdin())
}

func TestParseInterrupts(t *testing.T) {
	d, _ := parse(t, fdttest.SampleMachine())

	gic, ok := d.LookupDevice("/soc/interrupt-controller")
	require.True(t, ok)
	assert.True(t, gic.Interrupts().Controller())

	serial, ok := d.LookupDevice("serial0")
	require.True(t, ok)
	assert.Same(t, gic, serial.Interrupts().Parent())
	assert.Equal(t, [][]uint32{{0, 33, 4}}, serial.Interrupts().Specifiers())

	eth, ok := d.LookupDevice("/soc/ethernet@10010000")
	require.True(t, ok)
	assert.Equal(t, dt.StatusDisabled, eth.Status().Kind)
	assert.Len(t, eth.Interrupts().Specifiers(), 2)
}

func TestParseBusRanges(t *testing.T) {
	d, _ := parse(t, fdttest.SampleMachine())

	soc, ok := d.LookupDevice("/soc")
	require.True(t, ok)
	ranges, ok := soc.Ranges()
	require.True(t, ok)
	assert.Equal(t, []dt.Range{{ChildAddress: 0, ParentAddress: 0, Size: 0x40000000}}, ranges)
	assert.Equal(t, uint8(1), soc.AddressCells())

	serial, _ := d.LookupDevice("serial0")
	reg, ok := serial.Reg()
	require.True(t, ok)
	assert.Equal(t, []dt.Reg{{Address: 0x10000000, Size: 0x100}}, reg)
}

func TestWalkVisitsEveryNode(t *testing.T) {
	d, _ := parse(t, fdttest.SampleMachine())

	var paths []string
	for n := range dt.Walk(d.Root()) {
		paths = append(paths, n.Path())
	}
	assert.Equal(t, "/", paths[0])
	for _, want := range []string{
		"/cpus", "/cpus/cpu@0", "/cpus/l2-cache", "/cpus/cpu-map/cluster0/core0",
		"/memory@40000000", "/reserved-memory/linux,cma", "/chosen",
		"/soc/ethernet@10010000",
	} {
		assert.Contains(t, paths, want)
	}
	assert.NotContains(t, paths, "/aliases")
}

func TestParseMinimal(t *testing.T) {
	d, w := parse(t, fdttest.Minimal())
	assert.Empty(t, w.warnings)
	require.NotNil(t, d.BootCPU())
	assert.Equal(t, dt.EnableNone, d.BootCPU().EnableMethod().Kind)
	assert.Nil(t, d.Root().ReservedMemory())
	assert.Nil(t, d.Root().Chosen())
}

func TestParseEmptyRoot(t *testing.T) {
	d, _ := parse(t, fdttest.Tree{Root: fdttest.N("", nil)})
	assert.Nil(t, d.BootCPU())
	assert.Empty(t, d.CPUs())
	n, ok := d.Lookup("/")
	require.True(t, ok)
	assert.Same(t, d.Root(), n)
}

func TestParseErrorStages(t *testing.T) {
	var perr *dt.ParseError

	_, err := dt.Parse([]byte{0xde, 0xad, 0xbe, 0xef})
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, dt.StageHeader, perr.Stage)
	assert.ErrorIs(t, err, fdt.ErrMagic)

	b := fdttest.NewBuilder()
	b.BeginNode("")
	b.AddPropertyString("model", "a")
	b.AddPropertyString("model", "b")
	b.EndNode()
	_, err = dt.Parse(b.Build())
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, dt.StageStructure, perr.Stage)

	tree := fdttest.Minimal()
	tree.Root.Delete("model")
	err = parseErr(t, tree)
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, dt.StageResolve, perr.Stage)
	assert.ErrorIs(t, err, dt.ErrRootModel)
}

func TestRootValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*fdttest.Node)
		want   error
	}{
		{"no model", func(n *fdttest.Node) { n.Delete("model") }, dt.ErrRootModel},
		{"empty model", func(n *fdttest.Node) { n.Set("model", fdttest.Str("")) }, dt.ErrRootModel},
		{"no compatible", func(n *fdttest.Node) { n.Delete("compatible") }, dt.ErrRootCompatible},
		{"empty compatible", func(n *fdttest.Node) { n.Set("compatible", fdttest.Str("")) }, dt.ErrRootCompatible},
		{"zero size cells", func(n *fdttest.Node) { n.Set("#size-cells", fdttest.Cells(0)) }, dt.ErrCells},
		{"bad chassis", func(n *fdttest.Node) { n.Set("chassis-type", fdttest.Str("toaster")) }, dt.ErrChassis},
		{"no cpus", func(n *fdttest.Node) { n.RemoveChild("cpus") }, dt.ErrCPURoot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := fdttest.Minimal()
			tt.modify(&tree.Root)
			assert.ErrorIs(t, parseErr(t, tree), tt.want)
		})
	}
}

func TestCPUValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*fdttest.Node)
		want   error
	}{
		{"cpus without address cells", func(n *fdttest.Node) { n.Find("cpus").Delete("#address-cells") }, dt.ErrCPURoot},
		{"cpus with size cells", func(n *fdttest.Node) { n.Find("cpus").Set("#size-cells", fdttest.Cells(1)) }, dt.ErrCPURoot},
		{"cpus without size cells", func(n *fdttest.Node) { n.Find("cpus").Delete("#size-cells") }, dt.ErrCPURoot},
		{"wrong device type", func(n *fdttest.Node) { n.Find("cpus/cpu@0").Set("device_type", fdttest.Str("memory")) }, dt.ErrCPUDeviceType},
		{"no reg", func(n *fdttest.Node) { n.Find("cpus/cpu@0").Delete("reg") }, dt.ErrCPUReg},
		{"unit mismatch", func(n *fdttest.Node) { n.Find("cpus/cpu@0").Set("reg", fdttest.Cells(4)) }, dt.ErrRegMismatch},
		{"disabled without enable-method", func(n *fdttest.Node) {
			n.Find("cpus/cpu@0").Set("status", fdttest.Str("disabled"))
		}, dt.ErrEnableMethod},
		{"spin-table without release addr", func(n *fdttest.Node) {
			n.Find("cpus/cpu@0").Set("enable-method", fdttest.Str("spin-table"))
		}, dt.ErrReleaseAddr},
		{"spin-table with short release addr", func(n *fdttest.Node) {
			n.Find("cpus/cpu@0").Set("enable-method", fdttest.Str("spin-table")).Set("cpu-release-addr", fdttest.Cells(1))
		}, dt.ErrReleaseAddr},
		{"vendor without method", func(n *fdttest.Node) {
			n.Find("cpus/cpu@0").Set("enable-method", fdttest.Str("acme,"))
		}, dt.ErrEnableMethod},
		{"zero cache size", func(n *fdttest.Node) {
			n.Find("cpus/cpu@0").Set("d-cache-size", fdttest.Cells(0))
		}, dt.ErrCacheDescription},
		{"dangling next-level-cache", func(n *fdttest.Node) {
			n.Find("cpus/cpu@0").Set("next-level-cache", fdttest.Cells(99))
		}, dt.ErrNextLevelCache},
		{"duplicate id", func(n *fdttest.Node) {
			n.Find("cpus").AddChild(fdttest.N("cpu@0,1", map[string]fdttest.Property{
				"device_type": fdttest.Str("cpu"),
				"reg":         fdttest.Cells(0),
			}))
		}, dt.ErrDuplicateCPU},
		{"cache with wrong compatible", func(n *fdttest.Node) {
			n.Find("cpus").AddChild(fdttest.N("l2-cache", map[string]fdttest.Property{
				"compatible":  fdttest.Str("acme,cache"),
				"cache-level": fdttest.Cells(2),
				"phandle":     fdttest.Cells(7),
			}))
		}, dt.ErrCache},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := fdttest.Minimal()
			tt.modify(&tree.Root)
			assert.ErrorIs(t, parseErr(t, tree), tt.want)
		})
	}
}

func TestEnableMethodVendor(t *testing.T) {
	tree := fdttest.Minimal()
	tree.Root.Find("cpus/cpu@0").Set("enable-method", fdttest.Str("acme,smp", "psci"))
	d, _ := parse(t, tree)
	assert.Equal(t, dt.EnableMethod{Kind: dt.EnableVendor, Vendor: "acme", Method: "smp"}, d.BootCPU().EnableMethod())
}

func TestCPUTwoAddressCells(t *testing.T) {
	tree := fdttest.Minimal()
	cpus := tree.Root.Find("cpus")
	cpus.Set("#address-cells", fdttest.Cells(2))
	cpus.Find("cpu@0").Set("reg", fdttest.Cells(0, 0))
	cpus.AddChild(fdttest.N("cpu@100", map[string]fdttest.Property{
		"device_type": fdttest.Str("cpu"),
		"reg":         fdttest.Cells(0, 0x100),
	}))
	d, _ := parse(t, tree)
	cs := d.CPUs()
	require.Len(t, cs, 2)
	assert.Equal(t, uint32(0x100), cs[1].ID())
}

func TestBootCPUMustExist(t *testing.T) {
	tree := fdttest.Minimal()
	tree.BootCPU = 3
	assert.ErrorIs(t, parseErr(t, tree), dt.ErrBootCPU)
}

func TestDuplicatePHandle(t *testing.T) {
	for _, order := range [][2]string{{"a", "b"}, {"b", "a"}} {
		t.Run(order[0]+order[1], func(t *testing.T) {
			tree := fdttest.Minimal()
			for _, name := range order {
				tree.Root.AddChild(fdttest.N(name, map[string]fdttest.Property{"phandle": fdttest.Cells(7)}))
			}
			err := parseErr(t, tree)
			assert.ErrorIs(t, err, dt.ErrDuplicatePHandle)
			var perr *dt.PHandleError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, uint32(7), perr.PHandle)
			assert.Equal(t, "/a", perr.First)
			assert.Equal(t, "/b", perr.Second)
		})
	}
}

func TestDuplicatePHandleAcrossKinds(t *testing.T) {
	tree := fdttest.SampleMachine()
	tree.Root.Find("soc/serial@10000000").Set("phandle", fdttest.Cells(fdttest.PHandleL2))
	assert.ErrorIs(t, parseErr(t, tree), dt.ErrDuplicatePHandle)

	const ph = 9
	tests := []struct {
		name  string
		setup func(root *fdttest.Node)
		path  string
	}{
		{"root", func(root *fdttest.Node) {
			root.Set("phandle", fdttest.Cells(ph))
		}, "/"},
		{"cpus", func(root *fdttest.Node) {
			root.Find("cpus").Set("phandle", fdttest.Cells(ph))
		}, "/cpus"},
		{"memory", func(root *fdttest.Node) {
			root.AddChild(fdttest.N("memory@0", map[string]fdttest.Property{
				"device_type": fdttest.Str("memory"),
				"reg":         fdttest.Cells(0, 0, 0x1000),
				"phandle":     fdttest.Cells(ph),
			}))
		}, "/memory@0"},
		{"reserved-memory", func(root *fdttest.Node) {
			root.AddChild(fdttest.N("reserved-memory", map[string]fdttest.Property{
				"#address-cells": fdttest.Cells(2),
				"#size-cells":    fdttest.Cells(1),
				"ranges":         fdttest.Flag(),
				"phandle":        fdttest.Cells(ph),
			}))
		}, "/reserved-memory"},
		{"chosen", func(root *fdttest.Node) {
			root.AddChild(fdttest.N("chosen", map[string]fdttest.Property{"phandle": fdttest.Cells(ph)}))
		}, "/chosen"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := fdttest.Minimal()
			tt.setup(&tree.Root)
			d, _ := parse(t, tree)
			n, ok := d.PHandle(ph)
			require.True(t, ok)
			assert.Equal(t, tt.path, n.Path())

			tree.Root.AddChild(fdttest.N("dev", map[string]fdttest.Property{"phandle": fdttest.Cells(ph)}))
			err := parseErr(t, tree)
			var perr *dt.PHandleError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.path, perr.First)
			assert.Equal(t, "/dev", perr.Second)
		})
	}
}

func TestPHandleValidation(t *testing.T) {
	for _, v := range []uint32{0, 0xffffffff} {
		tree := fdttest.Minimal()
		tree.Root.AddChild(fdttest.N("a", map[string]fdttest.Property{"phandle": fdttest.Cells(v)}))
		assert.ErrorIs(t, parseErr(t, tree), dt.ErrPHandle)
	}

	tree := fdttest.Minimal()
	tree.Root.AddChild(fdttest.N("a", map[string]fdttest.Property{
		"phandle":       fdttest.Cells(4),
		"linux,phandle": fdttest.Cells(5),
	}))
	assert.ErrorIs(t, parseErr(t, tree), dt.ErrPHandle)

	tree = fdttest.Minimal()
	tree.Root.AddChild(fdttest.N("a", map[string]fdttest.Property{"linux,phandle": fdttest.Cells(4)}))
	d, _ := parse(t, tree)
	n, ok := d.PHandle(4)
	require.True(t, ok)
	assert.Equal(t, "/a", n.Path())
}

func TestChosenDanglingPaths(t *testing.T) {
	tree := fdttest.SampleMachine()
	tree.Root.Find("chosen").Set("stdout-path", fdttest.Str("/soc/uart@0"))
	err := parseErr(t, tree)
	assert.ErrorIs(t, err, dt.ErrStdoutDanglingPath)
	assert.NotErrorIs(t, err, dt.ErrStdinDanglingPath)

	tree = fdttest.SampleMachine()
	tree.Root.Find("chosen").Set("stdin-path", fdttest.Str("nosuchalias"))
	assert.ErrorIs(t, parseErr(t, tree), dt.ErrStdinDanglingPath)

	tree = fdttest.SampleMachine()
	tree.Root.Find("chosen").Set("stdout-path", fdttest.Str(""))
	assert.ErrorIs(t, parseErr(t, tree), dt.ErrStdoutPath)
}

func TestChosenStdinPath(t *testing.T) {
	tree := fdttest.SampleMachine()
	tree.Root.Find("chosen").Set("stdin-path", fdttest.Str("/soc/ethernet@10010000"))
	d, _ := parse(t, tree)
	eth, _ := d.LookupDevice("ethernet0")
	assert.Same(t, eth, d.Root().Chosen().Stdin())
	assert.Empty(t, d.Root().Chosen().StdinOptions())
}

func TestAliasWarnings(t *testing.T) {
	tree := fdttest.SampleMachine()
	aliases := tree.Root.Find("aliases")
	aliases.Set("gone", fdttest.Str("/soc/uart@0"))
	aliases.Set("relative", fdttest.Str("soc"))
	aliases.Set("binary", fdttest.Cells(1))
	d, w := parse(t, tree)

	_, ok := d.Alias("gone")
	assert.False(t, ok)
	_, ok = d.Alias("relative")
	assert.False(t, ok)
	_, ok = d.Alias("serial0")
	assert.True(t, ok)
	assert.True(t, w.has("names no node"))
	assert.True(t, w.has("relative"))
	assert.True(t, w.has("malformed"))
}

func TestSymbols(t *testing.T) {
	tree := fdttest.SampleMachine()
	tree.Root.AddChild(fdttest.N("__symbols__", map[string]fdttest.Property{
		"gic": fdttest.Str("/soc/interrupt-controller@8000000"),
	}))
	d, _ := parse(t, tree)
	gic, ok := d.Root().Symbols().Get("gic")
	require.True(t, ok)
	assert.Equal(t, "/soc/interrupt-controller@8000000", gic.Path())
}

func TestMemoryValidation(t *testing.T) {
	mem := func(name string, props map[string]fdttest.Property, children ...fdttest.Node) func(*fdttest.Node) {
		return func(n *fdttest.Node) {
			props["device_type"] = fdttest.Str("memory")
			n.AddChild(fdttest.N(name, props, children...))
		}
	}
	tests := []struct {
		name   string
		modify func(*fdttest.Node)
		want   error
	}{
		{"no reg", mem("memory@0", map[string]fdttest.Property{}), dt.ErrMemoryReg},
		{"empty reg", mem("memory@0", map[string]fdttest.Property{"reg": fdttest.Flag()}), dt.ErrMemoryReg},
		{"unit mismatch", mem("memory@0", map[string]fdttest.Property{"reg": fdttest.Cells(0, 0x1000, 0x1000)}), dt.ErrRegMismatch},
		{"children", mem("memory@0", map[string]fdttest.Property{"reg": fdttest.Cells(0, 0, 0x1000)}, fdttest.N("x", nil)), dt.ErrMemoryChildren},
		{"short mapped area", mem("memory@0", map[string]fdttest.Property{
			"reg":                 fdttest.Cells(0, 0, 0x1000),
			"initial-mapped-area": fdttest.Cells(1, 2),
		}), dt.ErrMemoryMappedArea},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := fdttest.Minimal()
			tt.modify(&tree.Root)
			assert.ErrorIs(t, parseErr(t, tree), tt.want)
		})
	}
}

func TestMemoryMappedArea(t *testing.T) {
	tree := fdttest.Minimal()
	tree.Root.AddChild(fdttest.N("memory@0", map[string]fdttest.Property{
		"device_type":         fdttest.Str("memory"),
		"reg":                 fdttest.Cells(0, 0, 0x1000, 0, 0x2000, 0x1000),
		"hotpluggable":        fdttest.Flag(),
		"initial-mapped-area": fdttest.Raw(append(fdttest.U64Value(0xffff0000, 0), fdttest.CellsValue(0x1000)...)),
	}))
	d, _ := parse(t, tree)
	mem := d.Root().MemoryRegions()
	require.Len(t, mem, 1)
	assert.True(t, mem[0].Hotpluggable())
	assert.Equal(t, []dt.Reg{{Address: 0, Size: 0x1000}, {Address: 0x2000, Size: 0x1000}}, mem[0].Ranges())
	area, ok := mem[0].InitialMappedArea()
	require.True(t, ok)
	assert.Equal(t, dt.InitialMappedArea{EffectiveAddress: 0xffff0000, Size: 0x1000}, area)
}

func TestReservedMemoryValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*fdttest.Node)
		want   error
	}{
		{"cells mismatch", func(n *fdttest.Node) {
			n.Find("reserved-memory").Set("#size-cells", fdttest.Cells(1))
		}, dt.ErrCellsMismatch},
		{"no ranges", func(n *fdttest.Node) {
			n.Find("reserved-memory").Delete("ranges")
		}, dt.ErrCellsMismatch},
		{"non-empty ranges", func(n *fdttest.Node) {
			n.Find("reserved-memory").Set("ranges", fdttest.Cells(0, 0, 0, 0, 0, 1))
		}, dt.ErrCellsMismatch},
		{"no-map and reusable", func(n *fdttest.Node) {
			n.Find("reserved-memory/framebuffer@7f000000").Set("reusable", fdttest.Flag())
		}, dt.ErrReservedUsage},
		{"neither reg nor size", func(n *fdttest.Node) {
			n.Find("reserved-memory/linux,cma").Delete("size")
		}, dt.ErrReservedMemory},
		{"empty vendor", func(n *fdttest.Node) {
			n.Find("reserved-memory/linux,cma").Set("compatible", fdttest.Str(",pool"))
		}, dt.ErrReservedCompatible},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := fdttest.SampleMachine()
			tt.modify(&tree.Root)
			assert.ErrorIs(t, parseErr(t, tree), tt.want)
		})
	}
}

func TestInterruptWarnings(t *testing.T) {
	tree := fdttest.SampleMachine()
	tree.Root.Find("soc/serial@10000000").Set("interrupts", fdttest.Cells(0, 33))
	d, w := parse(t, tree)
	serial, _ := d.LookupDevice("serial0")
	assert.Empty(t, serial.Interrupts().Specifiers())
	assert.Equal(t, []uint32{0, 33}, serial.Interrupts().Raw())
	assert.True(t, w.has("specifiers"))

	tree = fdttest.SampleMachine()
	tree.Root.Delete("interrupt-parent")
	d, w = parse(t, tree)
	serial, _ = d.LookupDevice("serial0")
	assert.Nil(t, serial.Interrupts().Parent())
	assert.True(t, w.has("no interrupt parent"))
}

func TestLookup(t *testing.T) {
	d, _ := parse(t, fdttest.SampleMachine())

	tests := []struct {
		path string
		want string
	}{
		{"/", "/"},
		{"/cpus/cpu@1", "/cpus/cpu@1"},
		{"/cpus/l3-cache", "/cpus/l3-cache"},
		{"/memory", "/memory@40000000"},
		{"/reserved-memory/framebuffer", "/reserved-memory/framebuffer@7f000000"},
		{"/soc//serial", "/soc/serial@10000000"},
		{"ethernet0", "/soc/ethernet@10010000"},
		{"/chosen", "/chosen"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			n, ok := d.Lookup(tt.path)
			require.True(t, ok)
			assert.Equal(t, tt.want, n.Path())
		})
	}

	for _, path := range []string{"/cpus/cpu", "/nope", "/soc/serial@20000000", "missing", "/soc/bad name"} {
		_, ok := d.Lookup(path)
		assert.False(t, ok, path)
	}

	cpus := d.Root().CPUsNode()
	n, ok := dt.Lookup(cpus, "cpu@0")
	require.True(t, ok)
	assert.Equal(t, "/cpus/cpu@0", n.Path())
}

func TestWarningsGoToLogger(t *testing.T) {
	tree := fdttest.Minimal()
	tree.Root.AddChild(fdttest.N("dev", map[string]fdttest.Property{"model": fdttest.Str("")}))
	w := &recordingWarner{}
	d, err := dt.Parse(tree.Build(), dt.WithWarner(w))
	require.NoError(t, err)
	dev, ok := d.LookupDevice("/dev")
	require.True(t, ok)
	_, ok = dev.Model()
	assert.False(t, ok)
	require.Len(t, w.warnings, 1)
	assert.Contains(t, w.warnings[0].args, "/dev")
}

func TestParseErrorUnwraps(t *testing.T) {
	tree := fdttest.Minimal()
	tree.Root.Find("cpus/cpu@0").Set("reg", fdttest.Cells(4))
	err := parseErr(t, tree)
	var mm *dt.RegMismatchError
	require.True(t, errors.As(err, &mm))
	assert.Equal(t, uint64(0), mm.Unit)
	assert.Equal(t, uint64(4), mm.Reg)
}

func TestParseDeepNesting(t *testing.T) {
	allocated := func(depth int) uint64 {
		chain := fdttest.N("n", nil)
		for range depth - 1 {
			chain = fdttest.N("n", nil, chain)
		}
		tree := fdttest.Minimal()
		tree.Root.AddChild(chain)
		blob := tree.Build()

		var before, after runtime.MemStats
		runtime.ReadMemStats(&before)
		d, err := dt.Parse(blob, dt.WithWarner(fdt.Discard))
		runtime.ReadMemStats(&after)
		require.NoError(t, err)

		n, ok := d.LookupDevice("/n")
		require.True(t, ok)
		for range depth - 1 {
			n, ok = n.Child("n")
			require.True(t, ok)
		}
		assert.Zero(t, n.Children().Len())
		assert.Len(t, n.Path(), 2*depth)
		return after.TotalAlloc - before.TotalAlloc
	}

	shallow := allocated(2000)
	deep := allocated(16000)
	// Eight times the depth must cost roughly eight times the memory.
	assert.Less(t, deep, 16*shallow)
}
