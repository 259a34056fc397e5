//go:build !(linux && cgo)

package device

import "github.com/jgillich/go-opencl/cl"

// querySVMCapabilities falls back to "no SVM" on platforms where the cgo
// shim isn't built (non-Linux, or cgo disabled): hardware-optional
// capability degrades gracefully instead of failing Init.
func querySVMCapabilities(d *cl.Device) SVMCapabilities {
	return SVMCapabilities{}
}
