package dt

import (
	"fmt"
	"strings"
)

// Reg is one (address, size) pair of a reg property.
type Reg struct {
	Address uint64
	Size    uint64
}

// End returns the first address past the region.
func (r Reg) End() uint64 { return r.Address + r.Size }

func (r Reg) String() string {
	return fmt.Sprintf("%#x+%#x", r.Address, r.Size)
}

// Range is one entry of a ranges property, mapping a child bus address
// window onto the parent bus.
type Range struct {
	ChildAddress  uint64
	ParentAddress uint64
	Size          uint64
}

// Translate maps a child bus address into the parent bus address space.
func (r Range) Translate(addr uint64) (uint64, bool) {
	if addr < r.ChildAddress || addr-r.ChildAddress >= r.Size {
		return 0, false
	}
	return r.ParentAddress + (addr - r.ChildAddress), true
}

// Model is a compatible or model string. Strings of the form vendor,model
// are split at the first comma; anything else is kept whole in Name.
type Model struct {
	Vendor string
	Name   string
}

// ParseModel splits s into vendor and model.
func ParseModel(s string) Model {
	vendor, name, ok := strings.Cut(s, ",")
	if !ok || vendor == "" {
		return Model{Name: s}
	}
	return Model{Vendor: vendor, Name: name}
}

func (m Model) String() string {
	if m.Vendor == "" {
		return m.Name
	}
	return m.Vendor + "," + m.Name
}

// StatusKind is the operational state of a device.
type StatusKind uint8

const (
	StatusOK StatusKind = iota
	StatusDisabled
	StatusReserved
	StatusFail
)

// Status is a decoded status property. The zero value is "okay", which is
// also what an absent property means.
type Status struct {
	Kind StatusKind
	// Code is the device-specific condition after "fail-".
	Code string
}

// OK reports whether the device is operational.
func (s Status) OK() bool { return s.Kind == StatusOK }

func (s Status) String() string {
	switch s.Kind {
	case StatusOK:
		return "okay"
	case StatusDisabled:
		return "disabled"
	case StatusReserved:
		return "reserved"
	default:
		if s.Code == "" {
			return "fail"
		}
		return "fail-" + s.Code
	}
}

func parseStatus(s string) (Status, error) {
	switch s {
	case "okay", "ok":
		return Status{Kind: StatusOK}, nil
	case "disabled":
		return Status{Kind: StatusDisabled}, nil
	case "reserved":
		return Status{Kind: StatusReserved}, nil
	case "fail":
		return Status{Kind: StatusFail}, nil
	}
	if code, ok := strings.CutPrefix(s, "fail-"); ok {
		return Status{Kind: StatusFail, Code: code}, nil
	}
	return Status{}, fmt.Errorf("%w: %q", ErrStatus, s)
}

// Chassis is the root chassis-type.
type Chassis uint8

const (
	ChassisUnknown Chassis = iota
	ChassisDesktop
	ChassisLaptop
	ChassisConvertible
	ChassisServer
	ChassisTablet
	ChassisHandset
	ChassisWatch
	ChassisEmbedded
)

var chassisNames = [...]string{
	ChassisUnknown:     "",
	ChassisDesktop:     "desktop",
	ChassisLaptop:      "laptop",
	ChassisConvertible: "convertible",
	ChassisServer:      "server",
	ChassisTablet:      "tablet",
	ChassisHandset:     "handset",
	ChassisWatch:       "watch",
	ChassisEmbedded:    "embedded",
}

func (c Chassis) String() string {
	if int(c) < len(chassisNames) {
		return chassisNames[c]
	}
	return fmt.Sprintf("Chassis(%d)", c)
}

func parseChassis(s string) (Chassis, error) {
	for i, name := range chassisNames {
		if i > 0 && name == s {
			return Chassis(i), nil
		}
	}
	return ChassisUnknown, fmt.Errorf("%w: %q", ErrChassis, s)
}

type cellCounts struct {
	address uint8
	size    uint8
}

var defaultCells = cellCounts{address: defaultAddressCells, size: defaultSizeCells}
