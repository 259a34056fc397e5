// Package program implements the process-wide Program Cache: compiles
// kernel source once per content hash and serves named kernels out of it
// in O(1) on repeat lookups.
package program

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/jgillich/go-opencl/cl"

	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpu/device"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpuerr"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpulog"
)

type cachedProgram struct {
	program *cl.Program
	source  string
	kernels sync.Map // name string -> *cl.Kernel
}

// Cache is a content-hash-keyed program cache, one per compute facade.
// Concurrent Load calls for distinct sources compile concurrently; the map
// itself is protected by mu — a single global map with hit/miss counters
// rather than sharded storage, since program counts stay small.
type Cache struct {
	ctx *device.Context

	mu       sync.Mutex
	programs map[uint64]*cachedProgram

	programCount atomic.Uint64
	hits         atomic.Uint64
	misses       atomic.Uint64
}

// NewCache builds an empty program cache bound to the given device context.
func NewCache(ctx *device.Context) *Cache {
	return &Cache{
		ctx:      ctx,
		programs: make(map[uint64]*cachedProgram),
	}
}

// Load compiles source (or returns the cached compile) keyed by its xxhash.
func (c *Cache) Load(source string) (*cl.Program, error) {
	key := xxhash.Sum64String(source)

	c.mu.Lock()
	if cp, ok := c.programs[key]; ok {
		c.mu.Unlock()
		c.hits.Add(1)
		return cp.program, nil
	}
	c.mu.Unlock()

	prog, err := c.ctx.CL().CreateProgramWithSource([]string{source})
	if err != nil {
		return nil, fmt.Errorf("%w: create program: %v", gpuerr.ErrBuildError, err)
	}
	if err := prog.BuildProgram([]*cl.Device{c.ctx.Device()}, ""); err != nil {
		log, _ := prog.GetBuildLog(c.ctx.Device())
		return nil, &gpuerr.BuildError{Source: source, Log: log, Cause: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cp, ok := c.programs[key]; ok {
		// Lost the race to another goroutine compiling the same source.
		c.hits.Add(1)
		return cp.program, nil
	}
	cp := &cachedProgram{program: prog, source: source}
	c.programs[key] = cp
	c.programCount.Add(1)
	c.misses.Add(1)
	gpulog.Logger().WithField("hash", key).Debug("program compiled and cached")
	return prog, nil
}

// GetKernel returns a named entry point from a previously loaded program,
// caching the *cl.Kernel so repeat lookups are O(1).
func (c *Cache) GetKernel(source, name string) (*cl.Kernel, error) {
	key := xxhash.Sum64String(source)

	c.mu.Lock()
	cp, ok := c.programs[key]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: program for source not loaded", gpuerr.ErrKernelNotFound)
	}

	if k, ok := cp.kernels.Load(name); ok {
		return k.(*cl.Kernel), nil
	}

	k, err := cp.program.CreateKernel(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", gpuerr.ErrKernelNotFound, name, err)
	}
	actual, _ := cp.kernels.LoadOrStore(name, k)
	return actual.(*cl.Kernel), nil
}

// Statistics is the snapshot returned by Cache.Statistics().
type Statistics struct {
	Programs int
	Hits     uint64
	Misses   uint64
	HitRate  float64
}

func (c *Cache) Statistics() Statistics {
	hits := c.hits.Load()
	misses := c.misses.Load()
	total := hits + misses
	rate := 0.0
	if total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Statistics{
		Programs: int(c.programCount.Load()),
		Hits:     hits,
		Misses:   misses,
		HitRate:  rate,
	}
}
