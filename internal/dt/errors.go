package dt

import (
	"errors"
	"fmt"
)

// Generic node errors.
var (
	ErrCells            = errors.New("invalid #address-cells or #size-cells")
	ErrReg              = errors.New("invalid reg")
	ErrRanges           = errors.New("invalid ranges")
	ErrCompatible       = errors.New("invalid compatible")
	ErrModel            = errors.New("invalid model")
	ErrStatus           = errors.New("invalid status")
	ErrPHandle          = errors.New("invalid phandle")
	ErrDuplicatePHandle = errors.New("duplicate phandle")
	ErrInterrupts       = errors.New("invalid interrupt properties")
)

// Root node errors.
var (
	ErrRootModel      = errors.New("root node has no valid model")
	ErrRootCompatible = errors.New("root node has no valid compatible")
	ErrSerialNumber   = errors.New("invalid serial-number")
	ErrChassis        = errors.New("invalid chassis-type")
)

// CPU and cache errors.
var (
	ErrCPURoot          = errors.New("invalid /cpus node")
	ErrCPUDeviceType    = errors.New("cpu node device_type is not \"cpu\"")
	ErrCPUReg           = errors.New("invalid cpu reg")
	ErrDuplicateCPU     = errors.New("duplicate cpu id")
	ErrEnableMethod     = errors.New("invalid enable-method")
	ErrReleaseAddr      = errors.New("spin-table cpu without valid cpu-release-addr")
	ErrNextLevelCache   = errors.New("invalid next-level-cache")
	ErrCache            = errors.New("cache node compatible is not \"cache\"")
	ErrCacheLevel       = errors.New("invalid cache-level")
	ErrCachePHandle     = errors.New("cache node has no phandle")
	ErrCacheDescription = errors.New("invalid cache description")
	ErrRegMismatch      = errors.New("reg does not match unit address")
	ErrBootCPU          = errors.New("no cpu matches boot_cpuid_phys")
)

// Memory errors.
var (
	ErrCellsMismatch      = errors.New("reserved-memory cells or ranges differ from root")
	ErrReservedMemory     = errors.New("invalid reserved memory region")
	ErrReservedUsage      = errors.New("reserved memory is both no-map and reusable")
	ErrReservedCompatible = errors.New("invalid reserved memory compatible")
	ErrMemoryChildren     = errors.New("memory node has children")
	ErrMemoryReg          = errors.New("memory node has no reg")
	ErrMemoryMappedArea   = errors.New("invalid initial-mapped-area")
)

// Chosen errors.
var (
	ErrBootArgs           = errors.New("invalid bootargs")
	ErrStdoutPath         = errors.New("invalid stdout-path")
	ErrStdoutDanglingPath = errors.New("stdout-path does not name a node")
	ErrStdinPath          = errors.New("invalid stdin-path")
	ErrStdinDanglingPath  = errors.New("stdin-path does not name a node")
)

// NodeError attributes a failure to a node and, when known, a property.
type NodeError struct {
	Path     string
	Property string
	Err      error
}

func (e *NodeError) Error() string {
	if e.Property != "" {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Property, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

func nodeErr(path, prop string, err error) error {
	return &NodeError{Path: path, Property: prop, Err: err}
}

// wrapErr attaches sentinel to a lower-level cause so both match errors.Is.
func wrapErr(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}

// PHandleError reports a phandle claimed by two nodes.
type PHandleError struct {
	PHandle uint32
	First   string
	Second  string
}

func (e *PHandleError) Error() string {
	return fmt.Sprintf("phandle %#x used by both %s and %s", e.PHandle, e.First, e.Second)
}

func (e *PHandleError) Is(target error) bool { return target == ErrDuplicatePHandle }

// RegMismatchError reports a unit address that disagrees with reg.
type RegMismatchError struct {
	Path string
	Unit uint64
	Reg  uint64
}

func (e *RegMismatchError) Error() string {
	return fmt.Sprintf("%s: unit address %#x does not match reg %#x", e.Path, e.Unit, e.Reg)
}

func (e *RegMismatchError) Is(target error) bool { return target == ErrRegMismatch }

// DanglingPathError reports a chosen path that resolves to nothing.
type DanglingPathError struct {
	Property string
	Target   string
}

func (e *DanglingPathError) Error() string {
	return fmt.Sprintf("%s %q does not name a node", e.Property, e.Target)
}

func (e *DanglingPathError) Is(target error) bool {
	switch e.Property {
	case propStdoutPath:
		return target == ErrStdoutDanglingPath
	case propStdinPath:
		return target == ErrStdinDanglingPath
	}
	return false
}

// Stage names the phase of Parse that failed.
type Stage string

const (
	StageHeader    Stage = "header"
	StageStructure Stage = "structure"
	StageResolve   Stage = "resolve"
)

// ParseError is returned by Parse.
type ParseError struct {
	Stage Stage
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse device tree (%s): %v", e.Stage, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
