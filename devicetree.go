// Package devicetree decodes flattened device tree blobs (DTB) into a
// validated, typed tree: CPUs with their caches, memory and reserved memory,
// chosen boot parameters, aliases and generic devices.
package devicetree

import (
	"iter"

	"github.com/NeilAllavarpu/device-tree/internal/blob"
	"github.com/NeilAllavarpu/device-tree/internal/dt"
	"github.com/NeilAllavarpu/device-tree/internal/fdt"
)

// -----------------------------------------------------------------------------
// Type Aliases - These re-export types from internal/dt and internal/fdt
// -----------------------------------------------------------------------------

// DeviceTree is a fully decoded blob.
type DeviceTree = dt.DeviceTree

// Node is implemented by every node kind.
type Node = dt.Node

// Root is the root node.
type Root = dt.Root

// Device is a generic node with the standard properties decoded.
type Device = dt.Device

// CPU is a node under /cpus.
type CPU = dt.CPU

// CPUs is the /cpus container.
type CPUs = dt.CPUs

// HigherLevelCache is a shared cache under /cpus.
type HigherLevelCache = dt.HigherLevelCache

// MemoryRegion is a node with device_type "memory".
type MemoryRegion = dt.MemoryRegion

// ReservedMemory is a child of /reserved-memory.
type ReservedMemory = dt.ReservedMemory

// Chosen holds the /chosen boot parameters.
type Chosen = dt.Chosen

// Name is a parsed node name.
type Name = fdt.Name

// Reservation is one entry of the memory reservation block.
type Reservation = fdt.Reservation

// Warner receives recoverable diagnostics. *slog.Logger implements it.
type Warner = fdt.Warner

// Option configures Parse.
type Option = dt.Option

// Value types.
type (
	Reg                = dt.Reg
	Range              = dt.Range
	Model              = dt.Model
	Status             = dt.Status
	EnableMethod       = dt.EnableMethod
	L1Cache            = dt.L1Cache
	CacheDescription   = dt.CacheDescription
	ReservedRegion     = dt.ReservedRegion
	ReservedCompatible = dt.ReservedCompatible
	Interrupts         = dt.Interrupts
)

// Enumerations.
type (
	StatusKind       = dt.StatusKind
	EnableMethodKind = dt.EnableMethodKind
	ReservedUsage    = dt.ReservedUsage
	Chassis          = dt.Chassis
)

const (
	StatusOK       = dt.StatusOK
	StatusDisabled = dt.StatusDisabled
	StatusReserved = dt.StatusReserved
	StatusFail     = dt.StatusFail

	EnableNone      = dt.EnableNone
	EnableSpinTable = dt.EnableSpinTable
	EnableVendor    = dt.EnableVendor
	EnableStandard  = dt.EnableStandard

	ReservedOther    = dt.ReservedOther
	ReservedNoMap    = dt.ReservedNoMap
	ReservedReusable = dt.ReservedReusable
)

// Error types.
type (
	ParseError        = dt.ParseError
	NodeError         = dt.NodeError
	PHandleError      = dt.PHandleError
	RegMismatchError  = dt.RegMismatchError
	DanglingPathError = dt.DanglingPathError
	HeaderError       = fdt.HeaderError
	TokenError        = fdt.TokenError
)

// Common sentinel errors. Use errors.Is on the result of Parse.
var (
	ErrMagic        = fdt.ErrMagic
	ErrNewerVersion = fdt.ErrNewerVersion
	ErrAlignment    = fdt.ErrAlignment
	ErrEOF          = fdt.ErrEOF

	ErrDuplicatePHandle   = dt.ErrDuplicatePHandle
	ErrCPURoot            = dt.ErrCPURoot
	ErrEnableMethod       = dt.ErrEnableMethod
	ErrBootCPU            = dt.ErrBootCPU
	ErrRootModel          = dt.ErrRootModel
	ErrRootCompatible     = dt.ErrRootCompatible
	ErrStdoutDanglingPath = dt.ErrStdoutDanglingPath
	ErrStdinDanglingPath  = dt.ErrStdinDanglingPath
)

// -----------------------------------------------------------------------------
// Parsing
// -----------------------------------------------------------------------------

// Parse decodes and validates data.
func Parse(data []byte, opts ...Option) (*DeviceTree, error) {
	return dt.Parse(data, opts...)
}

// ParseFile loads and decodes the blob at path. The file is read fully
// before returning, so the result does not depend on it.
func ParseFile(path string, opts ...Option) (*DeviceTree, error) {
	b, err := blob.Open(path)
	if err != nil {
		return nil, err
	}
	defer b.Close()
	data := append([]byte(nil), b.Bytes()...)
	return dt.Parse(data, opts...)
}

// DefaultPath is where Linux exposes the firmware device tree.
const DefaultPath = blob.DefaultPath

// WithWarner sends recoverable diagnostics to w instead of slog.Default().
var WithWarner = dt.WithWarner

// WithLogger sends recoverable diagnostics to l.
var WithLogger = dt.WithLogger

// -----------------------------------------------------------------------------
// Traversal
// -----------------------------------------------------------------------------

// Lookup resolves a slash-separated path relative to from.
func Lookup(from Node, path string) (Node, bool) { return dt.Lookup(from, path) }

// Walk visits n and its descendants in pre-order.
func Walk(n Node) iter.Seq[Node] { return dt.Walk(n) }

// ChildNodes yields the direct children of n.
func ChildNodes(n Node) iter.Seq[Node] { return dt.ChildNodes(n) }
