// Package queue implements the Queue Pool: N out-of-order command streams
// with round-robin and indexed selection, plus global flush/finish and
// per-queue use statistics.
package queue

import (
	"fmt"
	"sync/atomic"

	"github.com/jgillich/go-opencl/cl"

	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpu/device"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpuerr"
)

const (
	// MinQueues and MaxQueues clamp the requested pool size.
	MinQueues = 1
	MaxQueues = 16
	// DefaultQueues is the pool size New uses when asked for n <= 0; the
	// host's hardware concurrency is not consulted.
	DefaultQueues = 4
)

type entry struct {
	q      *cl.CommandQueue
	uses   atomic.Uint64
}

// Pool is a round-robin collection of out-of-order OpenCL command queues.
// The round-robin counter is a single atomic counter since every queue here
// is equivalent (no FIFO slot semantics to track).
type Pool struct {
	entries []*entry
	counter atomic.Uint64
}

// New constructs a pool of n out-of-order queues against ctx, clamping n to
// [MinQueues, MaxQueues].
func New(ctx *device.Context, n int) (*Pool, error) {
	if n <= 0 {
		n = DefaultQueues
	}
	if n < MinQueues {
		n = MinQueues
	}
	if n > MaxQueues {
		n = MaxQueues
	}

	p := &Pool{entries: make([]*entry, 0, n)}
	for i := 0; i < n; i++ {
		q, err := ctx.CL().CreateCommandQueue(ctx.Device(), cl.CommandQueueOutOfOrderExecModeEnable|cl.CommandQueueProfilingEnable)
		if err != nil {
			for _, e := range p.entries {
				e.q.Release()
			}
			return nil, fmt.Errorf("%w: create command queue %d: %v", gpuerr.ErrDeviceUnavailable, i, err)
		}
		p.entries = append(p.entries, &entry{q: q})
	}
	return p, nil
}

// Len returns the number of queues in the pool.
func (p *Pool) Len() int { return len(p.entries) }

// Next returns the queue at counter mod N, atomically advancing the
// round-robin counter and the chosen queue's use count.
func (p *Pool) Next() *cl.CommandQueue {
	idx := p.counter.Add(1) - 1
	e := p.entries[int(idx%uint64(len(p.entries)))]
	e.uses.Add(1)
	return e.q
}

// ByIndex returns the queue at i, bounds-checked.
func (p *Pool) ByIndex(i int) (*cl.CommandQueue, error) {
	if i < 0 || i >= len(p.entries) {
		return nil, fmt.Errorf("%w: queue index %d out of range [0,%d)", gpuerr.ErrInvalidConfig, i, len(p.entries))
	}
	return p.entries[i].q, nil
}

// FlushAll flushes every queue in the pool.
func (p *Pool) FlushAll() error {
	for i, e := range p.entries {
		if err := e.q.Flush(); err != nil {
			return fmt.Errorf("%w: flush queue %d: %v", gpuerr.ErrEventWait, i, err)
		}
	}
	return nil
}

// FinishAll blocks until every queue in the pool has drained.
func (p *Pool) FinishAll() error {
	for i, e := range p.entries {
		if err := e.q.Finish(); err != nil {
			return fmt.Errorf("%w: finish queue %d: %v", gpuerr.ErrEventWait, i, err)
		}
	}
	return nil
}

// Release releases every underlying command queue. Not idempotent; call
// once during facade teardown.
func (p *Pool) Release() {
	for _, e := range p.entries {
		e.q.Release()
	}
}

// QueueStats is the per-queue use count returned by Statistics.
type QueueStats struct {
	Index int
	Uses  uint64
}

// Statistics reports per-queue use counts for load-balance visibility.
func (p *Pool) Statistics() []QueueStats {
	out := make([]QueueStats, len(p.entries))
	for i, e := range p.entries {
		out[i] = QueueStats{Index: i, Uses: e.uses.Load()}
	}
	return out
}
