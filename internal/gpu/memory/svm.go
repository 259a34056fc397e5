package memory

import (
	"fmt"
	"unsafe"

	"github.com/jgillich/go-opencl/cl"

	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpuerr"
)

// SVMBuffer backs both the coarse-grain and fine-grain SVM variants; the
// two differ only in whether host access requires an explicit map/unmap
// bracket (coarse) or may touch the pointer directly (fine), controlled by
// the fineGrain flag.
type SVMBuffer struct {
	contextID uintptr
	ptr       unsafe.Pointer
	size      int64
	fineGrain bool
	owning    bool
}

func newSVMBuffer(contextID uintptr, size int64, fineGrain bool) (*SVMBuffer, error) {
	ptr, err := svmAlloc(contextID, int(size), fineGrain)
	if err != nil {
		return nil, err
	}
	return &SVMBuffer{contextID: contextID, ptr: ptr, size: size, fineGrain: fineGrain, owning: true}, nil
}

func (b *SVMBuffer) SizeBytes() int64 { return b.size }

func (b *SVMBuffer) Kind() Kind {
	if b.fineGrain {
		return KindSVMFineGrain
	}
	return KindSVMCoarseGrain
}

func (b *SVMBuffer) hostSlice() []byte {
	return unsafe.Slice((*byte)(b.ptr), b.size)
}

// Write copies src into the SVM region. Coarse-grain brackets the touch
// with an explicit map/unmap on q; fine-grain writes the pointer directly
// (the caller is responsible for ordering against any in-flight kernel).
func (b *SVMBuffer) Write(q *cl.CommandQueue, src []byte) error {
	if int64(len(src)) > b.size {
		return fmt.Errorf("%w: write %d bytes into %d-byte SVM buffer", gpuerr.ErrShapeMismatch, len(src), b.size)
	}
	if !b.fineGrain {
		qID := uintptr(q.ID())
		if err := svmMap(qID, b.ptr, int(b.size), true); err != nil {
			return err
		}
		defer svmUnmap(qID, b.ptr)
	}
	copy(b.hostSlice(), src)
	return nil
}

func (b *SVMBuffer) Read(q *cl.CommandQueue) ([]byte, error) {
	return b.ReadPartial(q, int(b.size))
}

func (b *SVMBuffer) ReadPartial(q *cl.CommandQueue, n int) ([]byte, error) {
	if !b.fineGrain {
		qID := uintptr(q.ID())
		if err := svmMap(qID, b.ptr, int(b.size), false); err != nil {
			return nil, err
		}
		defer svmUnmap(qID, b.ptr)
	}
	out := make([]byte, n)
	copy(out, b.hostSlice()[:n])
	return out, nil
}

// WriteAsync has no true async path for SVM host writes (the map/unmap
// bracket is already the synchronisation point); it performs the write
// synchronously and returns a nil event, which callers must treat as
// already complete.
func (b *SVMBuffer) WriteAsync(q *cl.CommandQueue, src []byte) (*cl.Event, error) {
	return nil, b.Write(q, src)
}

// ReadAsync waits on wait before mapping, since the map/unmap bracket (or
// the direct pointer touch for fine-grain) is itself the synchronisation
// point for SVM host access and cannot be made to straddle it.
func (b *SVMBuffer) ReadAsync(q *cl.CommandQueue, wait []*cl.Event) (<-chan []byte, *cl.Event, error) {
	if len(wait) > 0 {
		if err := cl.WaitForEvents(wait); err != nil {
			ch := make(chan []byte, 1)
			close(ch)
			return ch, nil, fmt.Errorf("%w: %v", gpuerr.ErrEventWait, err)
		}
	}
	out, err := b.Read(q)
	ch := make(chan []byte, 1)
	if err != nil {
		close(ch)
		return ch, nil, err
	}
	ch <- out
	close(ch)
	return ch, nil, nil
}

func (b *SVMBuffer) BindAsKernelArg(k *cl.Kernel, index int) error {
	if err := k.SetArgSVMPointer(index, b.ptr); err != nil {
		return fmt.Errorf("%w: bind SVM arg %d: %v", gpuerr.ErrKernelLaunch, index, err)
	}
	return nil
}

func (b *SVMBuffer) Release() {
	if b.owning && b.ptr != nil {
		svmFree(b.contextID, b.ptr)
	}
	b.ptr = nil
}
