// Package gputest provides the skip-if-no-hardware helper shared by every
// test that needs a real OpenCL device.
package gputest

import (
	"testing"

	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpu/device"
)

// RequireDevice skips t unless an OpenCL platform/device is available,
// returning the initialised context otherwise.
func RequireDevice(t *testing.T) *device.Context {
	t.Helper()
	ctx, err := device.Init(device.KindDefault)
	if err != nil {
		t.Skipf("no OpenCL device available: %v", err)
	}
	return ctx
}
