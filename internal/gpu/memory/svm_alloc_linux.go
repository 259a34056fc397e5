//go:build linux && cgo

package memory

/*
#cgo linux CFLAGS: -I/opt/rocm/include -I/usr/include
#cgo linux LDFLAGS: -L/opt/rocm/lib -L/usr/lib/x86_64-linux-gnu -lOpenCL
#include <CL/cl.h>
#include <stdint.h>

#ifndef CL_MEM_READ_WRITE
#define CL_MEM_READ_WRITE (1 << 0)
#endif
#ifndef CL_MEM_SVM_FINE_GRAIN_BUFFER
#define CL_MEM_SVM_FINE_GRAIN_BUFFER (1 << 10)
#endif

static void *svm_alloc(uintptr_t context_id, size_t size, int fine_grain) {
	cl_context ctx = (cl_context)context_id;
	cl_svm_mem_flags flags = CL_MEM_READ_WRITE;
	if (fine_grain) {
		flags |= CL_MEM_SVM_FINE_GRAIN_BUFFER;
	}
	return clSVMAlloc(ctx, flags, size, 0);
}

static void svm_free(uintptr_t context_id, void *ptr) {
	clSVMFree((cl_context)context_id, ptr);
}

static int svm_map(uintptr_t queue_id, void *ptr, size_t size, int for_write) {
	cl_command_queue q = (cl_command_queue)queue_id;
	cl_map_flags flags = for_write ? CL_MAP_WRITE : CL_MAP_READ;
	cl_int err = clEnqueueSVMMap(q, CL_TRUE, flags, ptr, size, 0, NULL, NULL);
	return (int)err;
}

static int svm_unmap(uintptr_t queue_id, void *ptr) {
	cl_command_queue q = (cl_command_queue)queue_id;
	cl_int err = clEnqueueSVMUnmap(q, ptr, 0, NULL, NULL);
	return (int)err;
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpuerr"
)

func svmAlloc(contextID uintptr, size int, fineGrain bool) (unsafe.Pointer, error) {
	fg := C.int(0)
	if fineGrain {
		fg = 1
	}
	ptr := C.svm_alloc(C.uintptr_t(contextID), C.size_t(size), fg)
	if ptr == nil {
		return nil, fmt.Errorf("%w: clSVMAlloc returned NULL", gpuerr.ErrOutOfMemory)
	}
	return ptr, nil
}

func svmFree(contextID uintptr, ptr unsafe.Pointer) {
	C.svm_free(C.uintptr_t(contextID), ptr)
}

func svmMap(queueID uintptr, ptr unsafe.Pointer, size int, forWrite bool) error {
	fw := C.int(0)
	if forWrite {
		fw = 1
	}
	if rc := C.svm_map(C.uintptr_t(queueID), ptr, C.size_t(size), fw); rc != 0 {
		return fmt.Errorf("%w: clEnqueueSVMMap failed: %d", gpuerr.ErrTransferError, int(rc))
	}
	return nil
}

func svmUnmap(queueID uintptr, ptr unsafe.Pointer) error {
	if rc := C.svm_unmap(C.uintptr_t(queueID), ptr); rc != 0 {
		return fmt.Errorf("%w: clEnqueueSVMUnmap failed: %d", gpuerr.ErrTransferError, int(rc))
	}
	return nil
}
