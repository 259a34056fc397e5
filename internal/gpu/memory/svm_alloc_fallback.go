//go:build !(linux && cgo)

package memory

import (
	"unsafe"

	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpuerr"
)

// On platforms without the cgo SVM shim, SVM buffers are simply
// unavailable; the BufferFactory never selects them here because
// device.Capabilities.SVM comes back all-false from the matching
// device/svm_query_fallback.go build.

func svmAlloc(contextID uintptr, size int, fineGrain bool) (unsafe.Pointer, error) {
	return nil, gpuerr.ErrDeviceUnavailable
}

func svmFree(contextID uintptr, ptr unsafe.Pointer) {}

func svmMap(queueID uintptr, ptr unsafe.Pointer, size int, forWrite bool) error {
	return gpuerr.ErrDeviceUnavailable
}

func svmUnmap(queueID uintptr, ptr unsafe.Pointer) error {
	return gpuerr.ErrDeviceUnavailable
}
