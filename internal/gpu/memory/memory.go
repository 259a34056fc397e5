// Package memory implements the polymorphic buffer abstraction: one Buffer
// capability with three variants (device-private, SVM coarse-grain, SVM
// fine-grain), dispatched by a BufferFactory that picks a memory *strategy*
// by byte count and device SVM capability, the same size-class bucketing
// idea as a free-list allocator picking a tier by byte count.
package memory

import (
	"fmt"
	"unsafe"

	"github.com/jgillich/go-opencl/cl"

	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpu/device"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpuerr"
)

// AccessMode is the caller-requested intent for a buffer.
type AccessMode int

const (
	ReadOnly AccessMode = iota
	WriteOnly
	ReadWrite
)

func (a AccessMode) clFlags() cl.MemFlag {
	switch a {
	case ReadOnly:
		return cl.MemReadOnly
	case WriteOnly:
		return cl.MemWriteOnly
	default:
		return cl.MemReadWrite
	}
}

// Kind names which of the three strategies backs a Buffer.
type Kind int

const (
	KindRegular Kind = iota
	KindSVMCoarseGrain
	KindSVMFineGrain
)

func (k Kind) String() string {
	switch k {
	case KindRegular:
		return "regular"
	case KindSVMCoarseGrain:
		return "svm-coarse"
	case KindSVMFineGrain:
		return "svm-fine"
	default:
		return "unknown"
	}
}

// Buffer is the polymorphic capability every strategy variant implements.
// Copying a Buffer value is disallowed by convention (callers pass the
// interface by pointer-receiver implementations); move semantics are
// expressed by transferring the interface value and never reusing the
// source variable.
type Buffer interface {
	SizeBytes() int64
	Kind() Kind
	// Write uploads src, blocking until the transfer completes.
	Write(q *cl.CommandQueue, src []byte) error
	// Read downloads the full buffer, blocking until the transfer completes.
	Read(q *cl.CommandQueue) ([]byte, error)
	// ReadPartial downloads the first n bytes.
	ReadPartial(q *cl.CommandQueue, n int) ([]byte, error)
	// WriteAsync enqueues a non-blocking upload and returns its event.
	WriteAsync(q *cl.CommandQueue, src []byte) (*cl.Event, error)
	// ReadAsync enqueues a non-blocking download that waits on the given
	// events before starting; the returned channel receives exactly one
	// slice once the associated event completes.
	ReadAsync(q *cl.CommandQueue, wait []*cl.Event) (<-chan []byte, *cl.Event, error)
	// BindAsKernelArg binds the buffer as kernel argument index.
	BindAsKernelArg(k *cl.Kernel, index int) error
	// Release frees the underlying allocation. No-op for NON-OWNING buffers.
	Release()
}

// ---- Regular (device-private) buffer -------------------------------------

// RegularBuffer wraps a cl.MemObject created via clCreateBuffer. It may be
// OWNING (allocated by this package) or NON-OWNING (wrapping a handle that
// must already belong to the active context).
type RegularBuffer struct {
	mem     *cl.MemObject
	size    int64
	owning  bool
	context *cl.Context
}

func newRegularBuffer(ctx *device.Context, access AccessMode, size int64) (*RegularBuffer, error) {
	mem, err := ctx.CL().CreateEmptyBuffer(access.clFlags(), int(size))
	if err != nil {
		return nil, fmt.Errorf("%w: create buffer (%d bytes): %v", gpuerr.ErrOutOfMemory, size, err)
	}
	return &RegularBuffer{mem: mem, size: size, owning: true, context: ctx.CL()}, nil
}

// WrapNonOwning wraps an externally created buffer, validating it belongs
// to ctx. Mismatch surfaces ErrContextMismatch.
func WrapNonOwning(ctx *device.Context, mem *cl.MemObject, size int64, owner *cl.Context) (*RegularBuffer, error) {
	if !ctx.BelongsToContext(owner) {
		return nil, fmt.Errorf("%w: buffer context does not match active context", gpuerr.ErrContextMismatch)
	}
	return &RegularBuffer{mem: mem, size: size, owning: false, context: owner}, nil
}

func (b *RegularBuffer) SizeBytes() int64 { return b.size }
func (b *RegularBuffer) Kind() Kind       { return KindRegular }

func (b *RegularBuffer) Write(q *cl.CommandQueue, src []byte) error {
	if int64(len(src)) > b.size {
		return fmt.Errorf("%w: write %d bytes into %d-byte buffer", gpuerr.ErrShapeMismatch, len(src), b.size)
	}
	if _, err := q.EnqueueWriteBuffer(b.mem, true, 0, len(src), unsafe.Pointer(&src[0]), nil); err != nil {
		return fmt.Errorf("%w: %v", gpuerr.ErrTransferError, err)
	}
	return nil
}

func (b *RegularBuffer) Read(q *cl.CommandQueue) ([]byte, error) {
	return b.ReadPartial(q, int(b.size))
}

func (b *RegularBuffer) ReadPartial(q *cl.CommandQueue, n int) ([]byte, error) {
	out := make([]byte, n)
	if n == 0 {
		return out, nil
	}
	if _, err := q.EnqueueReadBuffer(b.mem, true, 0, n, unsafe.Pointer(&out[0]), nil); err != nil {
		return nil, fmt.Errorf("%w: %v", gpuerr.ErrTransferError, err)
	}
	return out, nil
}

func (b *RegularBuffer) WriteAsync(q *cl.CommandQueue, src []byte) (*cl.Event, error) {
	if int64(len(src)) > b.size {
		return nil, fmt.Errorf("%w: write %d bytes into %d-byte buffer", gpuerr.ErrShapeMismatch, len(src), b.size)
	}
	ev, err := q.EnqueueWriteBuffer(b.mem, false, 0, len(src), unsafe.Pointer(&src[0]), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gpuerr.ErrTransferError, err)
	}
	return ev, nil
}

func (b *RegularBuffer) ReadAsync(q *cl.CommandQueue, wait []*cl.Event) (<-chan []byte, *cl.Event, error) {
	out := make([]byte, b.size)
	ch := make(chan []byte, 1)
	var ev *cl.Event
	var err error
	if b.size == 0 {
		ch <- out
		close(ch)
		return ch, nil, nil
	}
	ev, err = q.EnqueueReadBuffer(b.mem, false, 0, int(b.size), unsafe.Pointer(&out[0]), wait)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", gpuerr.ErrTransferError, err)
	}
	go func() {
		cl.WaitForEvents([]*cl.Event{ev})
		ch <- out
		close(ch)
	}()
	return ch, ev, nil
}

func (b *RegularBuffer) BindAsKernelArg(k *cl.Kernel, index int) error {
	if err := k.SetArgBuffer(index, b.mem); err != nil {
		return fmt.Errorf("%w: bind arg %d: %v", gpuerr.ErrKernelLaunch, index, err)
	}
	return nil
}

func (b *RegularBuffer) Release() {
	if b.owning && b.mem != nil {
		b.mem.Release()
	}
	b.mem = nil
}
