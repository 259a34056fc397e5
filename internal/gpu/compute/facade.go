// Package compute is the Compute Facade: the single entry point combining
// the Device Context, Program Cache, Queue Pool, and Memory Layer into one
// object with high-level kernel launch, event wiring, and statistics. A
// constructor wires sub-objects into a one-way DAG, fmt.Errorf wrapping at
// every call site, no cyclic ownership.
package compute

import (
	"fmt"

	"github.com/jgillich/go-opencl/cl"

	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpu/device"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpu/memory"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpu/program"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpu/queue"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpuerr"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpulog"
)

// Facade is the process-lifetime instance every processor (fractional
// delay, FFT engine) holds a non-owning pointer to. It must outlive every
// processor built on top of it.
type Facade struct {
	ctx      *device.Context
	programs *program.Cache
	queues   *queue.Pool
	factory  *memory.Factory
}

// New initialises the Device Context (if not already initialised),
// a Queue Pool of numQueues streams, a Program Cache, and a default
// Memory Factory, and wires them into a Facade.
func New(kind device.Kind, numQueues int) (*Facade, error) {
	ctx, err := device.Init(kind)
	if err != nil {
		return nil, fmt.Errorf("compute: %w", err)
	}
	queues, err := queue.New(ctx, numQueues)
	if err != nil {
		return nil, fmt.Errorf("compute: %w", err)
	}
	return &Facade{
		ctx:      ctx,
		programs: program.NewCache(ctx),
		queues:   queues,
		factory:  memory.NewFactory(ctx),
	}, nil
}

// Device exposes the underlying device context (capabilities, raw handles).
func (f *Facade) Device() *device.Context { return f.ctx }

// LoadProgram compiles source via the Program Cache.
func (f *Facade) LoadProgram(source string) (*cl.Program, error) {
	return f.programs.Load(source)
}

// GetKernel returns a named kernel from a previously loaded program's source.
func (f *Facade) GetKernel(source, name string) (*cl.Kernel, error) {
	return f.programs.GetKernel(source, name)
}

// CreateBuffer allocates via the default factory policy.
func (f *Facade) CreateBuffer(access memory.AccessMode, numElements, elemSize int) (memory.Buffer, error) {
	return f.factory.Create(access, int64(numElements)*int64(elemSize))
}

// CreateBufferWithStrategy allocates with an explicit strategy override.
func (f *Facade) CreateBufferWithStrategy(access memory.AccessMode, numElements, elemSize int, strategy memory.Strategy) (memory.Buffer, error) {
	return f.factory.CreateWithStrategy(access, int64(numElements)*int64(elemSize), strategy)
}

// CreateBufferWithData allocates then uploads host in one step on a pool
// queue. Access modes are never weakened; WriteOnly is strengthened to
// ReadWrite here because an upload-then-later-readback round trip (the
// common use of this constructor) requires host write visibility the
// device-private WriteOnly flag would otherwise forbid.
func (f *Facade) CreateBufferWithData(access memory.AccessMode, host []byte) (memory.Buffer, error) {
	if access == memory.WriteOnly {
		access = memory.ReadWrite
	}
	buf, err := f.factory.Create(access, int64(len(host)))
	if err != nil {
		return nil, err
	}
	q := f.queues.Next()
	if err := buf.Write(q, host); err != nil {
		buf.Release()
		return nil, err
	}
	return buf, nil
}

// ExecuteKernel binds buffers as sequential kernel args, enqueues on a
// pool queue, and blocks until completion.
func (f *Facade) ExecuteKernel(kernel *cl.Kernel, buffers []memory.Buffer, global, local []int) error {
	ev, err := f.ExecuteKernelAsync(kernel, buffers, global, local)
	if err != nil {
		return err
	}
	if ev == nil {
		return nil
	}
	return f.Wait(ev)
}

// ExecuteKernelAsync is the non-blocking counterpart, returning the launch
// event for the caller to chain or wait on.
func (f *Facade) ExecuteKernelAsync(kernel *cl.Kernel, buffers []memory.Buffer, global, local []int) (*cl.Event, error) {
	for i, b := range buffers {
		if err := b.BindAsKernelArg(kernel, i); err != nil {
			return nil, err
		}
	}
	q := f.queues.Next()
	ev, err := q.EnqueueNDRangeKernel(kernel, nil, global, local, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gpuerr.ErrKernelLaunch, err)
	}
	return ev, nil
}

// BindScalarArgs sets kernel args starting at startIndex to the given
// values, one SetArg call per value. Used by multi-stage pipelines (the
// FFT engine) that mix buffer and scalar kernel arguments, where
// ExecuteKernel's buffer-only binding loop is insufficient.
func (f *Facade) BindScalarArgs(kernel *cl.Kernel, startIndex int, values ...interface{}) error {
	for i, v := range values {
		if err := kernel.SetArg(startIndex+i, v); err != nil {
			return fmt.Errorf("%w: scalar arg %d: %v", gpuerr.ErrKernelLaunch, startIndex+i, err)
		}
	}
	return nil
}

// LaunchOn enqueues kernel on queue q with an explicit wait list, returning
// the completion event without blocking. Buffers must already be bound
// (via BindAsKernelArg/BindScalarArgs) by the caller — unlike
// ExecuteKernelAsync, LaunchOn does no implicit binding, since multi-stage
// pipelines bind once per stage and re-dispatch across batches.
func (f *Facade) LaunchOn(q *cl.CommandQueue, kernel *cl.Kernel, global, local []int, wait []*cl.Event) (*cl.Event, error) {
	ev, err := q.EnqueueNDRangeKernel(kernel, nil, global, local, wait)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gpuerr.ErrKernelLaunch, err)
	}
	return ev, nil
}

// Wait blocks until every given event has completed.
func (f *Facade) Wait(events ...*cl.Event) error {
	if len(events) == 0 {
		return nil
	}
	if err := cl.WaitForEvents(events); err != nil {
		return fmt.Errorf("%w: %v", gpuerr.ErrEventWait, err)
	}
	return nil
}

// KernelDurationMS reads ev's CL_PROFILING_COMMAND_START/_END timestamps
// and returns the device-measured elapsed time in milliseconds. ev must
// come from a queue created with CommandQueueProfilingEnable (every pool
// queue is) and must already have completed. A nil event (the SVM
// synchronous-write placeholder) reports zero.
func (f *Facade) KernelDurationMS(ev *cl.Event) (float64, error) {
	if ev == nil {
		return 0, nil
	}
	start, end, err := f.eventTimestamps(ev)
	if err != nil {
		return 0, err
	}
	return float64(end-start) / 1e6, nil
}

// EventSpanMS reports the device-measured elapsed time in milliseconds
// between first's start and last's end, for a chain of kernel launches
// that together make up one logical pipeline stage. A nil endpoint
// reports zero.
func (f *Facade) EventSpanMS(first, last *cl.Event) (float64, error) {
	if first == nil || last == nil {
		return 0, nil
	}
	start, _, err := f.eventTimestamps(first)
	if err != nil {
		return 0, err
	}
	_, end, err := f.eventTimestamps(last)
	if err != nil {
		return 0, err
	}
	return float64(end-start) / 1e6, nil
}

func (f *Facade) eventTimestamps(ev *cl.Event) (start, end uint64, err error) {
	start, err = ev.GetEventProfilingInfo(cl.ProfilingCommandStart)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: profiling start: %v", gpuerr.ErrEventWait, err)
	}
	end, err = ev.GetEventProfilingInfo(cl.ProfilingCommandEnd)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: profiling end: %v", gpuerr.ErrEventWait, err)
	}
	return start, end, nil
}

// Flush flushes every pool queue.
func (f *Facade) Flush() error { return f.queues.FlushAll() }

// Finish drains every pool queue.
func (f *Facade) Finish() error { return f.queues.FinishAll() }

// NextQueue exposes the next round-robin pool queue for callers that need
// direct access (the fractional-delay processor uploads its per-beam
// delays on it). Pool queues are out-of-order, so stage ordering on them
// comes from event wait lists, not from enqueue order.
func (f *Facade) NextQueue() *cl.CommandQueue { return f.queues.Next() }

// ByQueueIndex exposes a specific pool queue, used by the FFT engine's
// per-stream resource sets in batched mode.
func (f *Facade) ByQueueIndex(i int) (*cl.CommandQueue, error) { return f.queues.ByIndex(i) }

// Statistics composes per-subsystem stats.
type Statistics struct {
	Programs program.Statistics
	Queues   []queue.QueueStats
}

func (f *Facade) Statistics() Statistics {
	return Statistics{
		Programs: f.programs.Statistics(),
		Queues:   f.queues.Statistics(),
	}
}

// Close tears down the facade's owned resources. The Device Context itself
// is process-wide and outlives any one Facade, so Close does not call
// device.Teardown — only the facade-owned Queue Pool is released here.
func (f *Facade) Close() {
	f.queues.Release()
	gpulog.Logger().Info("compute facade closed")
}
