package delay

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpu/compute"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpu/device"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpu/memory"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gputest"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/radar/lagrange"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/radar/types"
)

func newMatrix(t *testing.T, facade *compute.Facade, beams, samples int, fill func(beam, sample int) (float32, float32)) types.BeamMatrix {
	t.Helper()
	host := make([]byte, beams*samples*8)
	for b := 0; b < beams; b++ {
		for s := 0; s < samples; s++ {
			re, im := fill(b, s)
			off := (b*samples + s) * 8
			binary.LittleEndian.PutUint32(host[off:], math.Float32bits(re))
			binary.LittleEndian.PutUint32(host[off+4:], math.Float32bits(im))
		}
	}
	buf, err := facade.CreateBufferWithData(memory.ReadWrite, host)
	require.NoError(t, err)
	return types.BeamMatrix{Beams: beams, Samples: samples, Buf: buf}
}

func readMatrix(t *testing.T, facade *compute.Facade, m types.BeamMatrix) []complex64 {
	t.Helper()
	raw, err := m.Buf.Read(facade.NextQueue())
	require.NoError(t, err)
	out := make([]complex64, m.ElementCount())
	for i := range out {
		off := i * 8
		re := math.Float32frombits(binary.LittleEndian.Uint32(raw[off:]))
		im := math.Float32frombits(binary.LittleEndian.Uint32(raw[off+4:]))
		out[i] = complex(re, im)
	}
	return out
}

func TestZeroDelayIsNearIdentity(t *testing.T) {
	gputest.RequireDevice(t)
	facade, err := compute.New(device.KindDefault, 2)
	require.NoError(t, err)
	defer facade.Close()

	beams, samples := 2, 64
	matrix := newMatrix(t, facade, beams, samples, func(b, s int) (float32, float32) {
		return float32(math.Sin(float64(s) * 0.2)), 0
	})
	before := readMatrix(t, facade, matrix)

	proc, err := New(facade, lagrange.Default(), Config{NumBeams: beams, NumSamples: samples})
	require.NoError(t, err)
	defer proc.Close()

	require.NoError(t, proc.ApplyUniform(&matrix, types.NewDelayParamsFromSamples(0)))
	after := readMatrix(t, facade, matrix)

	var mse float64
	for i := range before {
		d := complex128(after[i]) - complex128(before[i])
		mse += real(d)*real(d) + imag(d)*imag(d)
	}
	mse /= float64(len(before))
	assert.Less(t, mse, 1e-4)
}

func TestIntegerDelayShiftsSamples(t *testing.T) {
	gputest.RequireDevice(t)
	facade, err := compute.New(device.KindDefault, 2)
	require.NoError(t, err)
	defer facade.Close()

	beams, samples := 1, 32
	matrix := newMatrix(t, facade, beams, samples, func(b, s int) (float32, float32) {
		if s == 10 {
			return 1, 0
		}
		return 0, 0
	})

	proc, err := New(facade, lagrange.Default(), Config{NumBeams: beams, NumSamples: samples})
	require.NoError(t, err)
	defer proc.Close()

	require.NoError(t, proc.ApplyUniform(&matrix, types.NewDelayParamsFromSamples(5)))
	after := readMatrix(t, facade, matrix)

	// The impulse at sample 10 should have moved to sample 15.
	maxIdx, maxMag := 0, float32(0)
	for i, v := range after {
		mag := real(v)*real(v) + imag(v)*imag(v)
		if float32(mag) > maxMag {
			maxMag = float32(mag)
			maxIdx = i
		}
	}
	assert.Equal(t, 15, maxIdx)
}

func TestApplyPopulatesDeviceProfiling(t *testing.T) {
	gputest.RequireDevice(t)
	facade, err := compute.New(device.KindDefault, 2)
	require.NoError(t, err)
	defer facade.Close()

	beams, samples := 2, 64
	matrix := newMatrix(t, facade, beams, samples, func(b, s int) (float32, float32) {
		return float32(math.Sin(float64(s) * 0.2)), 0
	})

	proc, err := New(facade, lagrange.Default(), Config{NumBeams: beams, NumSamples: samples})
	require.NoError(t, err)
	defer proc.Close()

	require.NoError(t, proc.ApplyUniform(&matrix, types.NewDelayParamsFromSamples(1)))
	prof := proc.LastProfiling()
	assert.GreaterOrEqual(t, prof.KernelMS, 0.0)
	assert.GreaterOrEqual(t, prof.TotalMS, prof.KernelMS)
}

func TestConfigValidation(t *testing.T) {
	assert.Error(t, Config{NumBeams: 0, NumSamples: 64}.Validate())
	assert.Error(t, Config{NumBeams: 4, NumSamples: 8}.Validate())
	assert.Error(t, Config{NumBeams: 4, NumSamples: 64, LocalWorkSize: 16}.Validate())
	assert.NoError(t, Config{NumBeams: 4, NumSamples: 64}.Validate())
}
