package fft

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpu/compute"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpu/device"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gputest"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/radar/refgen"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/radar/types"
)

func newEngine(t *testing.T, facade *compute.Facade, cfg Config) *Engine {
	t.Helper()
	e, err := New(facade, cfg)
	require.NoError(t, err)
	return e
}

func TestRunSmallSingleBeamTakesSingleBatchPath(t *testing.T) {
	gputest.RequireDevice(t)
	facade, err := compute.New(device.KindDefault, 2)
	require.NoError(t, err)
	defer facade.Close()

	gen := refgen.New(facade)
	matrix, err := gen.Generate(context.Background(), types.LFMParams{
		FStart: 1e3, FStop: 5e3, SampleRate: 20e3, NumBeams: 1, CountPoints: 64,
	})
	require.NoError(t, err)

	e := newEngine(t, facade, Config{NumParallelStreams: 1})
	defer e.Close()

	params := types.FFTParams{BeamCount: 1, CountPoints: 64, OutCountPointsFFT: 16, MaxPeaksCount: 4}
	result, err := e.Run(context.Background(), matrix, params)
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalBeams)
	assert.Equal(t, params.NFFT(), result.NFFT)
	require.Len(t, result.Results, 1)
	assert.Len(t, result.Results[0].Peaks, 4)
}

func TestRunReturnsDescendingDistinctPeaksPerBeam(t *testing.T) {
	gputest.RequireDevice(t)
	facade, err := compute.New(device.KindDefault, 2)
	require.NoError(t, err)
	defer facade.Close()

	gen := refgen.New(facade)
	matrix, err := gen.Generate(context.Background(), types.LFMParams{
		FStart: 1e3, FStop: 8e3, SampleRate: 40e3, NumBeams: 4, CountPoints: 256,
		AngleStartDeg: 0, AngleStepDeg: 5,
	})
	require.NoError(t, err)

	e := newEngine(t, facade, Config{NumParallelStreams: 2})
	defer e.Close()

	params := types.FFTParams{BeamCount: 4, CountPoints: 256, OutCountPointsFFT: 32, MaxPeaksCount: 4}
	result, err := e.Run(context.Background(), matrix, params)
	require.NoError(t, err)
	require.Len(t, result.Results, 4)

	for _, r := range result.Results {
		seen := map[uint32]bool{}
		lastMag := float32(1e30)
		for _, p := range r.Peaks {
			if p.Index == types.PeakIndexSentinel {
				continue
			}
			assert.False(t, seen[p.Index], "duplicate peak index within a beam")
			seen[p.Index] = true
			assert.LessOrEqual(t, p.Magnitude, lastMag, "peaks must be sorted descending by magnitude")
			lastMag = p.Magnitude
		}
	}
}

func TestRunBatchesLargeBeamCount(t *testing.T) {
	gputest.RequireDevice(t)
	facade, err := compute.New(device.KindDefault, 3)
	require.NoError(t, err)
	defer facade.Close()

	gen := refgen.New(facade)
	matrix, err := gen.Generate(context.Background(), types.LFMParams{
		FStart: 1e3, FStop: 5e3, SampleRate: 20e3, NumBeams: 40, CountPoints: 128,
		AngleStartDeg: 0, AngleStepDeg: 1,
	})
	require.NoError(t, err)

	// A near-zero memory budget forces the batched path: 40*0.1 = 4 beams is
	// raised to the floor of 5, giving 8 batches over 3 streams.
	cfg := Config{MemoryUsageLimit: 1e-9, BatchSizeRatio: 0.1, MinBeamsForBatch: 5, NumParallelStreams: 3}
	e := newEngine(t, facade, cfg)
	defer e.Close()

	params := types.FFTParams{BeamCount: 40, CountPoints: 128, OutCountPointsFFT: 16, MaxPeaksCount: 2}
	result, err := e.Run(context.Background(), matrix, params)
	require.NoError(t, err)
	require.Len(t, result.Results, 40)

	for i, r := range result.Results {
		assert.Equal(t, i, r.BeamIndex, "results must be ordered by beam index after batch reassembly")
	}
}
