package fdttest

import "github.com/NeilAllavarpu/device-tree/internal/fdt"

// Phandles used by SampleMachine.
const (
	PHandleGIC  = 1
	PHandleL2   = 2
	PHandleL3   = 3
	PHandleFB   = 5
	PHandleCMA  = 6
	PHandleCPU0 = 10
)

type props = map[string]Property

// SampleMachine returns a small but complete two-core machine: CPUs with
// Harvard and unified L1 caches, a two-level cache chain, memory, reserved
// memory, aliases, chosen and an interrupt controller.
func SampleMachine() Tree {
	root := N("", props{
		"#address-cells":   Cells(2),
		"#size-cells":      Cells(2),
		"model":            Str("acme,board-1"),
		"compatible":       Str("acme,board-1", "acme,soc"),
		"serial-number":    Str("A123"),
		"chassis-type":     Str("embedded"),
		"interrupt-parent": Cells(PHandleGIC),
	},
		N("aliases", props{
			"serial0":   Str("/soc/serial@10000000"),
			"ethernet0": Str("/soc/ethernet@10010000"),
		}),
		N("chosen", props{
			"bootargs":    Str("console=ttyS0 root=/dev/vda"),
			"stdout-path": Str("serial0:115200n8"),
		}),
		N("cpus", props{
			"#address-cells":     Cells(1),
			"#size-cells":        Cells(0),
			"timebase-frequency": Cells(10000000),
		},
			N("cpu@0", props{
				"device_type":       Str("cpu"),
				"reg":               Cells(0),
				"compatible":        Str("arm,cortex-a53"),
				"enable-method":     Str("psci"),
				"i-cache-size":      Cells(0x8000),
				"i-cache-line-size": Cells(64),
				"d-cache-size":      Cells(0x8000),
				"d-cache-sets":      Cells(128),
				"next-level-cache":  Cells(PHandleL2),
				"phandle":           Cells(PHandleCPU0),
			}),
			N("cpu@1", props{
				"device_type":        Str("cpu"),
				"reg":                Cells(1),
				"compatible":         Str("arm,cortex-a53"),
				"enable-method":      Str("spin-table"),
				"cpu-release-addr":   U64(0x8000fff8),
				"cache-unified":      Flag(),
				"cache-size":         Cells(0x10000),
				"next-level-cache":   Cells(PHandleL2),
				"timebase-frequency": Cells(20000000),
			}),
			N("l2-cache", props{
				"compatible":       Str("cache"),
				"cache-level":      Cells(2),
				"cache-size":       Cells(0x80000),
				"next-level-cache": Cells(PHandleL3),
				"phandle":          Cells(PHandleL2),
			}),
			N("l3-cache", props{
				"compatible":  Str("cache"),
				"cache-level": Cells(3),
				"cache-size":  Cells(0x200000),
				"phandle":     Cells(PHandleL3),
			}),
			N("cpu-map", nil,
				N("cluster0", nil,
					N("core0", props{"cpu": Cells(PHandleCPU0)}),
				),
			),
		),
		N("memory@40000000", props{
			"device_type": Str("memory"),
			"reg":         Cells(0, 0x40000000, 0, 0x80000000),
		}),
		N("reserved-memory", props{
			"#address-cells": Cells(2),
			"#size-cells":    Cells(2),
			"ranges":         Flag(),
		},
			N("framebuffer@7f000000", props{
				"reg":     Cells(0, 0x7f000000, 0, 0x800000),
				"no-map":  Flag(),
				"phandle": Cells(PHandleFB),
			}),
			N("linux,cma", props{
				"compatible":   Str("shared-dma-pool"),
				"reusable":     Flag(),
				"size":         Cells(0, 0x4000000),
				"alignment":    Cells(0, 0x400000),
				"alloc-ranges": Cells(0, 0x60000000, 0, 0x10000000, 0, 0x40000000, 0, 0x10000000),
				"phandle":      Cells(PHandleCMA),
			}),
		),
		N("soc", props{
			"compatible":     Str("simple-bus"),
			"#address-cells": Cells(1),
			"#size-cells":    Cells(1),
			"ranges":         Cells(0, 0, 0, 0x40000000),
		},
			N("interrupt-controller@8000000", props{
				"compatible":           Str("arm,gic-400"),
				"interrupt-controller": Flag(),
				"#interrupt-cells":     Cells(3),
				"reg":                  Cells(0x8000000, 0x1000),
				"phandle":              Cells(PHandleGIC),
			}),
			N("serial@10000000", props{
				"compatible":      Str("ns16550a"),
				"reg":             Cells(0x10000000, 0x100),
				"interrupts":      Cells(0, 33, 4),
				"status":          Str("okay"),
				"clock-frequency": Cells(1843200),
			}),
			N("ethernet@10010000", props{
				"compatible":    Str("acme,eth"),
				"reg":           Cells(0x10010000, 0x1000),
				"status":        Str("disabled"),
				"interrupts":    Cells(0, 34, 4, 0, 35, 4),
				"memory-region": Cells(PHandleCMA),
			}),
		),
	)
	return Tree{
		Root:    root,
		BootCPU: 0,
		Reservations: []fdt.Reservation{
			{Address: 0x90000000, Size: 0x1000},
			{Address: 0x7f000000, Size: 0x800000},
		},
	}
}

// Minimal returns a tree whose root has the properties every machine needs
// and a single CPU, for tests that tweak one aspect at a time.
func Minimal() Tree {
	root := N("", props{
		"model":      Str("acme,mini"),
		"compatible": Str("acme,mini"),
	},
		N("cpus", props{
			"#address-cells": Cells(1),
			"#size-cells":    Cells(0),
		},
			N("cpu@0", props{
				"device_type": Str("cpu"),
				"reg":         Cells(0),
			}),
		),
	)
	return Tree{Root: root}
}
