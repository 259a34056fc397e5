package memory

import (
	"testing"

	"github.com/jgillich/go-opencl/cl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gputest"
)

func TestRegularBufferWriteReadRoundTrip(t *testing.T) {
	ctx := gputest.RequireDevice(t)
	q, err := ctx.CL().CreateCommandQueue(ctx.Device(), 0)
	require.NoError(t, err)
	defer q.Release()

	buf, err := newRegularBuffer(ctx, ReadWrite, 16)
	require.NoError(t, err)
	defer buf.Release()

	src := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	require.NoError(t, buf.Write(q, src))
	got, err := buf.Read(q)
	require.NoError(t, err)
	assert.Equal(t, src, got)
}

func TestRegularBufferReadAsyncWaitsOnGivenEvents(t *testing.T) {
	ctx := gputest.RequireDevice(t)
	q, err := ctx.CL().CreateCommandQueue(ctx.Device(), 0)
	require.NoError(t, err)
	defer q.Release()

	buf, err := newRegularBuffer(ctx, ReadWrite, 16)
	require.NoError(t, err)
	defer buf.Release()

	src := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	writeEvent, err := buf.WriteAsync(q, src)
	require.NoError(t, err)

	ch, _, err := buf.ReadAsync(q, []*cl.Event{writeEvent})
	require.NoError(t, err)
	got := <-ch
	assert.Equal(t, src, got)
}

func TestFactoryAutoPolicyPicksRegularForLargeBuffer(t *testing.T) {
	ctx := gputest.RequireDevice(t)
	f := NewFactory(ctx)
	buf, err := f.Create(ReadWrite, DefaultThresholdCoarse+1)
	require.NoError(t, err)
	defer buf.Release()
	assert.Equal(t, KindRegular, buf.Kind())
}

func TestFactoryExplicitRegularStrategy(t *testing.T) {
	ctx := gputest.RequireDevice(t)
	f := NewFactory(ctx)
	buf, err := f.CreateWithStrategy(ReadWrite, 64, StrategyRegular)
	require.NoError(t, err)
	defer buf.Release()
	assert.Equal(t, KindRegular, buf.Kind())
}

func TestFactoryRejectsNegativeSize(t *testing.T) {
	ctx := gputest.RequireDevice(t)
	f := NewFactory(ctx)
	_, err := f.Create(ReadWrite, -1)
	assert.Error(t, err)
}

func TestWrapNonOwningRejectsForeignContext(t *testing.T) {
	ctx := gputest.RequireDevice(t)
	buf, err := newRegularBuffer(ctx, ReadWrite, 16)
	require.NoError(t, err)
	defer buf.Release()

	_, err = WrapNonOwning(ctx, buf.mem, 16, nil)
	assert.Error(t, err)
}
