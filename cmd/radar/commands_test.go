package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpu/device"
)

func TestNewDevicesCommand(t *testing.T) {
	cmd := newDevicesCommand()
	assert.NotNil(t, cmd)
	assert.Equal(t, "devices", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("kind"))
}

func TestNewBenchCommand(t *testing.T) {
	cmd := newBenchCommand()
	assert.NotNil(t, cmd)
	assert.Equal(t, "bench", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("beams"))
	assert.NotNil(t, cmd.Flags().Lookup("max-peaks"))
}

func TestNewDelayCommand(t *testing.T) {
	cmd := newDelayCommand()
	assert.NotNil(t, cmd)
	assert.Equal(t, "delay", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("delay"))
}

func TestNewFFTCommand(t *testing.T) {
	cmd := newFFTCommand()
	assert.NotNil(t, cmd)
	assert.Equal(t, "fft", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("k"))
}

func TestNewReportCommand(t *testing.T) {
	cmd := newReportCommand()
	assert.NotNil(t, cmd)
	assert.Equal(t, "report", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("out"))
	assert.NotNil(t, cmd.Flags().Lookup("prefix"))
}

func TestParseDeviceKind(t *testing.T) {
	kind, err := parseDeviceKind("")
	assert.NoError(t, err)
	assert.Equal(t, device.KindDefault, kind)

	kind, err = parseDeviceKind("gpu")
	assert.NoError(t, err)
	assert.Equal(t, device.KindGPU, kind)

	kind, err = parseDeviceKind("cpu")
	assert.NoError(t, err)
	assert.Equal(t, device.KindCPU, kind)

	_, err = parseDeviceKind("quantum")
	assert.Error(t, err)
}

func TestSynthFlagsLFMParams(t *testing.T) {
	sf := synthFlags{
		numBeams: 4, countPoints: 512, fStart: 1e6, fStop: 5e6,
		sampleRate: 20e6, angleStart: -10, angleStop: 10, angleStep: 2,
	}
	params := sf.lfmParams()
	assert.Equal(t, sf.fStart, params.FStart)
	assert.Equal(t, sf.numBeams, params.NumBeams)
	assert.Equal(t, sf.angleStep, params.AngleStepDeg)
}
