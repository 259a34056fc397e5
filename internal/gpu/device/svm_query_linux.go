//go:build linux && cgo

package device

/*
#cgo linux CFLAGS: -I/opt/rocm/include -I/usr/include
#cgo linux LDFLAGS: -L/opt/rocm/lib -L/usr/lib/x86_64-linux-gnu -lOpenCL
#include <CL/cl.h>
#include <stdint.h>

#ifndef CL_DEVICE_SVM_CAPABILITIES
#define CL_DEVICE_SVM_CAPABILITIES 0x1053
#endif
#ifndef CL_DEVICE_SVM_COARSE_GRAIN_BUFFER
#define CL_DEVICE_SVM_COARSE_GRAIN_BUFFER   (1 << 0)
#define CL_DEVICE_SVM_FINE_GRAIN_BUFFER     (1 << 1)
#define CL_DEVICE_SVM_FINE_GRAIN_SYSTEM     (1 << 2)
#define CL_DEVICE_SVM_ATOMICS               (1 << 3)
#endif

static cl_ulong query_svm_caps(uintptr_t device_id) {
	cl_device_id dev = (cl_device_id)device_id;
	cl_device_svm_capabilities caps = 0;
	clGetDeviceInfo(dev, CL_DEVICE_SVM_CAPABILITIES, sizeof(caps), &caps, NULL);
	return (cl_ulong)caps;
}
*/
import "C"

import "github.com/jgillich/go-opencl/cl"

// querySVMCapabilities queries CL_DEVICE_SVM_CAPABILITIES directly, since
// go-opencl/cl (an OpenCL 1.2-era binding) exposes no SVM query of its own.
// The device's raw cl_device_id is recovered through its ID() accessor.
func querySVMCapabilities(d *cl.Device) SVMCapabilities {
	raw := C.query_svm_caps(C.uintptr_t(d.ID()))
	return SVMCapabilities{
		CoarseGrainBuffer: raw&C.CL_DEVICE_SVM_COARSE_GRAIN_BUFFER != 0,
		FineGrainBuffer:   raw&C.CL_DEVICE_SVM_FINE_GRAIN_BUFFER != 0,
		FineGrainSystem:   raw&C.CL_DEVICE_SVM_FINE_GRAIN_SYSTEM != 0,
		Atomics:           raw&C.CL_DEVICE_SVM_ATOMICS != 0,
	}
}
