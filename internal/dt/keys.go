package dt

// Property names consumed by the resolver.
const (
	propAddressCells   = "#address-cells"
	propSizeCells      = "#size-cells"
	propReg            = "reg"
	propRanges         = "ranges"
	propCompatible     = "compatible"
	propModel          = "model"
	propStatus         = "status"
	propPHandle        = "phandle"
	propLinuxPHandle   = "linux,phandle"
	propDeviceType     = "device_type"
	propSerialNumber   = "serial-number"
	propChassisType    = "chassis-type"
	propEnableMethod   = "enable-method"
	propReleaseAddr    = "cpu-release-addr"
	propNextLevelCache = "next-level-cache"
	propCacheUnified   = "cache-unified"
	propCacheLevel     = "cache-level"
	propCacheSize      = "cache-size"
	propCacheSets      = "cache-sets"
	propCacheBlockSize = "cache-block-size"
	propCacheLineSize  = "cache-line-size"
	propSize           = "size"
	propAlignment      = "alignment"
	propAllocRanges    = "alloc-ranges"
	propNoMap          = "no-map"
	propReusable       = "reusable"
	propHotpluggable   = "hotpluggable"
	propMappedArea     = "initial-mapped-area"
	propBootArgs       = "bootargs"
	propStdoutPath     = "stdout-path"
	propStdinPath      = "stdin-path"

	propInterruptParent     = "interrupt-parent"
	propInterruptController = "interrupt-controller"
	propInterruptCells      = "#interrupt-cells"
	propInterrupts          = "interrupts"
)

// Node names with special meaning under the root.
const (
	nodeCPUs           = "cpus"
	nodeCPU            = "cpu"
	nodeCPUMap         = "cpu-map"
	nodeReservedMemory = "reserved-memory"
	nodeAliases        = "aliases"
	nodeSymbols        = "__symbols__"
	nodeChosen         = "chosen"
)

const (
	defaultAddressCells = 2
	defaultSizeCells    = 1
)
