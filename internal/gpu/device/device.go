// Package device owns the single process-wide OpenCL platform/device/context
// triple. Every other gpu/* package and every radar processor reaches the
// hardware through the *Context returned here; nothing else in the module
// calls cl.GetPlatforms or cl.CreateContext directly.
package device

import (
	"fmt"
	"sync"

	"github.com/jgillich/go-opencl/cl"

	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpuerr"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpulog"
)

// Kind selects the class of device Init should bind to.
type Kind int

const (
	KindDefault Kind = iota
	KindGPU
	KindCPU
)

func (k Kind) clDeviceType() cl.DeviceType {
	switch k {
	case KindGPU:
		return cl.DeviceTypeGPU
	case KindCPU:
		return cl.DeviceTypeCPU
	default:
		return cl.DeviceTypeAll
	}
}

// SVMCapabilities mirrors CL_DEVICE_SVM_CAPABILITIES. go-opencl/cl predates
// OpenCL 2.0 SVM, so these flags come from the cgo shim in svm_query*.go
// rather than from the cl.Device wrapper itself.
type SVMCapabilities struct {
	CoarseGrainBuffer bool
	FineGrainBuffer   bool
	FineGrainSystem   bool
	Atomics           bool
}

// Capabilities is the immutable capability record exposed after Init.
type Capabilities struct {
	DeviceName                string
	Vendor                    string
	Version                   string
	GlobalMemSize             uint64
	MaxMemAllocSize           uint64
	ComputeUnits              uint32
	MaxWorkGroupSize          int
	PreferredVectorWidthFloat uint32
	SVM                       SVMCapabilities
}

// Context is the process-wide singleton: one platform, one device, one
// OpenCL context. Handles are immutable for the remainder of the process
// once Init has returned successfully.
type Context struct {
	kind      Kind
	platform  *cl.Platform
	device    *cl.Device
	clContext *cl.Context
	caps      Capabilities
}

var (
	mu       sync.Mutex
	instance *Context
)

// Init selects a platform/device of the requested kind and creates the
// process-wide context. A second call is a no-op that logs a warning and
// returns the existing instance — double-initialisation is never an error.
func Init(kind Kind) (*Context, error) {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		gpulog.Logger().Warn("device.Init called again; returning existing context")
		return instance, nil
	}

	platforms, err := cl.GetPlatforms()
	if err != nil || len(platforms) == 0 {
		return nil, fmt.Errorf("%w: no OpenCL platforms: %v", gpuerr.ErrDeviceUnavailable, err)
	}

	var chosenPlatform *cl.Platform
	var chosenDevice *cl.Device
	for _, p := range platforms {
		devices, err := p.GetDevices(kind.clDeviceType())
		if err != nil || len(devices) == 0 {
			continue
		}
		chosenPlatform = p
		chosenDevice = devices[0]
		break
	}
	if chosenDevice == nil {
		return nil, fmt.Errorf("%w: no device of kind %v", gpuerr.ErrDeviceUnavailable, kind)
	}

	clCtx, err := cl.CreateContext([]*cl.Device{chosenDevice})
	if err != nil {
		return nil, fmt.Errorf("%w: create context: %v", gpuerr.ErrDeviceUnavailable, err)
	}

	ctx := &Context{
		kind:      kind,
		platform:  chosenPlatform,
		device:    chosenDevice,
		clContext: clCtx,
		caps:      capabilitiesOf(chosenDevice),
	}
	instance = ctx
	gpulog.Logger().WithField("device", ctx.caps.DeviceName).Info("device context initialised")
	return instance, nil
}

// Current returns the already-initialised singleton, or ErrNotInitialised.
func Current() (*Context, error) {
	mu.Lock()
	defer mu.Unlock()
	if instance == nil {
		return nil, gpuerr.ErrNotInitialised
	}
	return instance, nil
}

// Teardown releases the context. Idempotent.
func Teardown() {
	mu.Lock()
	defer mu.Unlock()
	if instance == nil {
		return
	}
	if instance.clContext != nil {
		instance.clContext.Release()
	}
	gpulog.Logger().Info("device context torn down")
	instance = nil
}

func (c *Context) CL() *cl.Context       { return c.clContext }
func (c *Context) Device() *cl.Device    { return c.device }
func (c *Context) Platform() *cl.Platform { return c.platform }
func (c *Context) Capabilities() Capabilities { return c.caps }

// BelongsToContext reports whether a memory object handle was created
// against this context, for NON-OWNING wrapper validation.
// go-opencl/cl has no clGetMemObjectInfo(CL_MEM_CONTEXT) wrapper, so
// validation is by identity of the *cl.Context pointer supplied at wrap
// time — the only context-mismatch case this module can construct.
func (c *Context) BelongsToContext(owner *cl.Context) bool {
	return owner == c.clContext
}

func capabilitiesOf(d *cl.Device) Capabilities {
	caps := Capabilities{
		DeviceName:                d.Name(),
		Vendor:                    d.Vendor(),
		Version:                   d.Version(),
		GlobalMemSize:             d.GlobalMemSize(),
		MaxMemAllocSize:           d.MaxMemAllocSize(),
		ComputeUnits:              uint32(d.MaxComputeUnits()),
		MaxWorkGroupSize:          d.MaxWorkGroupSize(),
		PreferredVectorWidthFloat: uint32(d.PreferredVectorWidthFloat()),
		SVM:                       querySVMCapabilities(d),
	}
	return caps
}
