package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpuerr"
)

func requireDevice(t *testing.T) *Context {
	t.Helper()
	ctx, err := Init(KindDefault)
	if err != nil {
		t.Skipf("no OpenCL device available: %v", err)
	}
	return ctx
}

func TestInitThenCurrentReturnsSameInstance(t *testing.T) {
	ctx := requireDevice(t)
	defer Teardown()

	cur, err := Current()
	require.NoError(t, err)
	assert.Same(t, ctx, cur)
}

func TestSecondInitIsNoOpNotError(t *testing.T) {
	ctx := requireDevice(t)
	defer Teardown()

	again, err := Init(KindGPU) // a different kind must not matter
	require.NoError(t, err)
	assert.Same(t, ctx, again)
}

func TestCurrentBeforeInitFails(t *testing.T) {
	Teardown() // guard against singleton bleed from an earlier test
	_, err := Current()
	assert.ErrorIs(t, err, gpuerr.ErrNotInitialised)
}

func TestCapabilitiesReportsNonZeroFields(t *testing.T) {
	ctx := requireDevice(t)
	defer Teardown()

	caps := ctx.Capabilities()
	assert.NotEmpty(t, caps.DeviceName)
	assert.Greater(t, caps.GlobalMemSize, uint64(0))
	assert.Greater(t, caps.ComputeUnits, uint32(0))
}

func TestBelongsToContextDetectsMismatch(t *testing.T) {
	ctx := requireDevice(t)
	defer Teardown()

	assert.True(t, ctx.BelongsToContext(ctx.CL()))
	assert.False(t, ctx.BelongsToContext(nil))
}

func TestTeardownIsIdempotent(t *testing.T) {
	requireDevice(t)
	Teardown()
	assert.NotPanics(t, func() { Teardown() })
}
