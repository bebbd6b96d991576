package dt

import (
	"fmt"
	"slices"

	"github.com/NeilAllavarpu/device-tree/internal/fdt"
	"github.com/NeilAllavarpu/device-tree/internal/rawtree"
)

// CacheDescription describes one cache. Zero fields were absent.
type CacheDescription struct {
	Size      uint32
	Sets      uint32
	BlockSize uint32
	LineSize  uint32
}

// IsZero reports whether no attribute was given.
func (c CacheDescription) IsZero() bool { return c == CacheDescription{} }

// L1Cache is a CPU's first-level cache: either unified, or split into
// instruction and data caches.
type L1Cache struct {
	Unified bool
	// Cache is set when Unified.
	Cache CacheDescription
	// ICache and DCache are set when not Unified.
	ICache CacheDescription
	DCache CacheDescription
}

func takeCacheDescription(props *Properties, n Node, prefix string) (CacheDescription, error) {
	var c CacheDescription
	for _, f := range []struct {
		key string
		dst *uint32
	}{
		{propCacheSize, &c.Size},
		{propCacheSets, &c.Sets},
		{propCacheBlockSize, &c.BlockSize},
		{propCacheLineSize, &c.LineSize},
	} {
		name := prefix + f.key
		v, ok, err := takeU32(props, name)
		if err != nil {
			return c, nodeErr(n.Path(), name, wrapErr(ErrCacheDescription, err))
		}
		if ok && v == 0 {
			return c, nodeErr(n.Path(), name, fmt.Errorf("%w: zero", ErrCacheDescription))
		}
		*f.dst = v
	}
	return c, nil
}

func takeL1Cache(props *Properties, n Node) (L1Cache, error) {
	if takeFlag(props, propCacheUnified) {
		c, err := takeCacheDescription(props, n, "")
		return L1Cache{Unified: true, Cache: c}, err
	}
	i, err := takeCacheDescription(props, n, "i-")
	if err != nil {
		return L1Cache{}, err
	}
	d, err := takeCacheDescription(props, n, "d-")
	return L1Cache{ICache: i, DCache: d}, err
}

// HigherLevelCache is a shared cache node under /cpus.
type HigherLevelCache struct {
	base

	level       uint32
	desc        CacheDescription
	phandle     uint32
	next        *HigherLevelCache
	nextPHandle uint32
	hasNext     bool
}

// Level returns cache-level.
func (c *HigherLevelCache) Level() uint32 { return c.level }

// Description returns the cache geometry.
func (c *HigherLevelCache) Description() CacheDescription { return c.desc }

// PHandle returns the cache's phandle, which every cache node has.
func (c *HigherLevelCache) PHandle() uint32 { return c.phandle }

// NextCache returns the next cache level, or nil.
func (c *HigherLevelCache) NextCache() *HigherLevelCache { return c.next }

func (r *resolver) cache(raw *rawtree.Node, name fdt.Name, parent Node) (*HigherLevelCache, error) {
	c := &HigherLevelCache{base: newBase(name, parent)}
	props := raw.Properties

	compat, ok, err := takeStrings(props, propCompatible)
	if err != nil || !ok || !slices.Equal(compat, []string{"cache"}) {
		return nil, nodeErr(c.Path(), propCompatible, wrapErr(ErrCache, err))
	}
	ph, ok, err := takePHandle(props, c)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nodeErr(c.Path(), propPHandle, ErrCachePHandle)
	}
	c.phandle = ph
	level, ok, err := takeU32(props, propCacheLevel)
	if err != nil || !ok {
		return nil, nodeErr(c.Path(), propCacheLevel, wrapErr(ErrCacheLevel, err))
	}
	c.level = level
	if c.desc, err = takeCacheDescription(props, c, ""); err != nil {
		return nil, err
	}
	if c.nextPHandle, c.hasNext, err = takeU32(props, propNextLevelCache); err != nil {
		return nil, nodeErr(c.Path(), propNextLevelCache, wrapErr(ErrNextLevelCache, err))
	}
	if err := r.claim(ph, c); err != nil {
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
