package compute

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/jgillich/go-opencl/cl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpu/device"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpu/memory"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gputest"
)

const scaleKernelSource = `
__kernel void scale(__global float* buf, float factor) {
    int i = get_global_id(0);
    buf[i] = buf[i] * factor;
}
`

func encodeFloats(vals []float32) []byte {
	out := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func decodeFloats(raw []byte) []float32 {
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out
}

func TestExecuteKernelRoundTrip(t *testing.T) {
	gputest.RequireDevice(t)
	f, err := New(device.KindDefault, 2)
	require.NoError(t, err)
	defer f.Close()

	host := encodeFloats([]float32{1, 2, 3, 4})
	buf, err := f.CreateBufferWithData(memory.ReadWrite, host)
	require.NoError(t, err)
	defer buf.Release()

	program, err := f.LoadProgram(scaleKernelSource)
	require.NoError(t, err)
	kernel, err := f.GetKernel(scaleKernelSource, "scale")
	require.NoError(t, err)
	_ = program

	require.NoError(t, f.BindScalarArgs(kernel, 1, float32(2)))
	require.NoError(t, f.ExecuteKernel(kernel, []memory.Buffer{buf}, []int{4}, nil))

	raw, err := buf.Read(f.NextQueue())
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 4, 6, 8}, decodeFloats(raw))
}

func TestLaunchOnWithExplicitWaitList(t *testing.T) {
	gputest.RequireDevice(t)
	f, err := New(device.KindDefault, 1)
	require.NoError(t, err)
	defer f.Close()

	host := encodeFloats([]float32{1, 1, 1, 1})
	buf, err := f.CreateBufferWithData(memory.ReadWrite, host)
	require.NoError(t, err)
	defer buf.Release()

	_, err = f.LoadProgram(scaleKernelSource)
	require.NoError(t, err)
	kernel, err := f.GetKernel(scaleKernelSource, "scale")
	require.NoError(t, err)

	require.NoError(t, buf.BindAsKernelArg(kernel, 0))
	require.NoError(t, f.BindScalarArgs(kernel, 1, float32(3)))

	q := f.NextQueue()
	ev, err := f.LaunchOn(q, kernel, []int{4}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, f.Wait(ev))

	raw, err := buf.Read(q)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 3, 3, 3}, decodeFloats(raw))
}

func TestKernelDurationMSAndEventSpanMSReportNonNegative(t *testing.T) {
	gputest.RequireDevice(t)
	f, err := New(device.KindDefault, 1)
	require.NoError(t, err)
	defer f.Close()

	host := encodeFloats([]float32{1, 1, 1, 1})
	buf, err := f.CreateBufferWithData(memory.ReadWrite, host)
	require.NoError(t, err)
	defer buf.Release()

	_, err = f.LoadProgram(scaleKernelSource)
	require.NoError(t, err)
	kernel, err := f.GetKernel(scaleKernelSource, "scale")
	require.NoError(t, err)

	require.NoError(t, buf.BindAsKernelArg(kernel, 0))
	require.NoError(t, f.BindScalarArgs(kernel, 1, float32(2)))

	q := f.NextQueue()
	ev1, err := f.LaunchOn(q, kernel, []int{4}, nil, nil)
	require.NoError(t, err)
	ev2, err := f.LaunchOn(q, kernel, []int{4}, nil, []*cl.Event{ev1})
	require.NoError(t, err)
	require.NoError(t, f.Wait(ev2))

	dur, err := f.KernelDurationMS(ev1)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, dur, 0.0)

	span, err := f.EventSpanMS(ev1, ev2)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, span, 0.0)

	zero, err := f.KernelDurationMS(nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, zero)
}

func TestStatisticsAggregatesSubsystems(t *testing.T) {
	gputest.RequireDevice(t)
	f, err := New(device.KindDefault, 2)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.LoadProgram(scaleKernelSource)
	require.NoError(t, err)
	_, err = f.LoadProgram(scaleKernelSource)
	require.NoError(t, err)

	stats := f.Statistics()
	assert.Equal(t, uint64(1), stats.Programs.Misses)
	assert.Equal(t, uint64(1), stats.Programs.Hits)
	assert.Len(t, stats.Queues, 2)
}
