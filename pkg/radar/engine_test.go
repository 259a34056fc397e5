package radar

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpu/device"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gputest"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/radar/delay"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/radar/types"
)

func TestOpenGenerateDelayFFTReportFlow(t *testing.T) {
	gputest.RequireDevice(t)

	engine, err := Open(Options{
		DeviceKind:  device.KindDefault,
		NumQueues:   2,
		DelayConfig: delay.Config{NumBeams: 2, NumSamples: 64},
	})
	require.NoError(t, err)
	defer engine.Close()

	matrix, err := engine.Generate(context.Background(), types.LFMParams{
		FStart: 1e3, FStop: 5e3, SampleRate: 20e3, NumBeams: 2, CountPoints: 64,
	})
	require.NoError(t, err)

	require.NoError(t, engine.ApplyUniformDelay(&matrix, types.NewDelayParamsFromSamples(2.5)))

	result, err := engine.RunFFT(context.Background(), matrix, types.FFTParams{
		BeamCount: 2, CountPoints: 64, OutCountPointsFFT: 16, MaxPeaksCount: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalBeams)

	dir := t.TempDir()
	require.NoError(t, engine.WriteReport(dir, "run", result))
	assert.FileExists(t, filepath.Join(dir, "run.json"))
	assert.FileExists(t, filepath.Join(dir, "run.md"))

	stats := engine.Statistics()
	assert.NotEmpty(t, stats.Queues)
}

func TestOpenWithMissingLagrangeFileFails(t *testing.T) {
	gputest.RequireDevice(t)

	_, err := Open(Options{DeviceKind: device.KindDefault, NumQueues: 1, LagrangeFile: "/nonexistent/table.json"})
	assert.Error(t, err)
}
