// Package radar is the public entry point: it wires the Device Context,
// Program Cache, Queue Pool, Memory Factory, Compute Facade, Fractional
// Delay Processor, and Antenna FFT + Peaks Engine into one Engine value that
// a CLI or other caller can drive through a single handle.
package radar

import (
	"context"
	"fmt"

	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpu/compute"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpu/device"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpulog"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/radar/delay"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/radar/fft"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/radar/lagrange"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/radar/refgen"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/radar/report"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/radar/types"
)

// Options configure Open.
type Options struct {
	DeviceKind    device.Kind
	NumQueues     int
	LagrangeFile  string // path to a JSON Lagrange table; empty uses the built-in default
	DelayConfig   delay.Config
	FFTConfig     fft.Config
}

// Engine is the process-lifetime handle a CLI or long-running service holds.
type Engine struct {
	facade *compute.Facade
	gen    *refgen.Generator
	delays *delay.Processor
	ffte   *fft.Engine
}

// Open initialises the full compute stack and both processors. The
// returned Engine owns the compute facade and must be Close()d.
func Open(opts Options) (*Engine, error) {
	facade, err := compute.New(opts.DeviceKind, opts.NumQueues)
	if err != nil {
		return nil, fmt.Errorf("radar: %w", err)
	}

	table, err := loadLagrangeTable(opts.LagrangeFile)
	if err != nil {
		facade.Close()
		return nil, fmt.Errorf("radar: %w", err)
	}

	delayCfg := opts.DelayConfig
	if delayCfg.NumBeams == 0 {
		delayCfg.NumBeams = 1
	}
	if delayCfg.NumSamples == 0 {
		delayCfg.NumSamples = 16
	}
	delays, err := delay.New(facade, table, delayCfg)
	if err != nil {
		facade.Close()
		return nil, fmt.Errorf("radar: %w", err)
	}

	ffte, err := fft.New(facade, opts.FFTConfig)
	if err != nil {
		delays.Close()
		facade.Close()
		return nil, fmt.Errorf("radar: %w", err)
	}

	gpulog.Logger().WithField("device", facade.Device().Capabilities().DeviceName).Info("radar engine opened")

	return &Engine{
		facade: facade,
		gen:    refgen.New(facade),
		delays: delays,
		ffte:   ffte,
	}, nil
}

func loadLagrangeTable(path string) (types.LagrangeMatrix, error) {
	if path == "" {
		return lagrange.Default(), nil
	}
	return lagrange.Load(path)
}

// Generate synthesises a reference LFM chirp matrix via the host-side
// reference generator.
func (e *Engine) Generate(ctx context.Context, params types.LFMParams) (types.BeamMatrix, error) {
	return e.gen.Generate(ctx, params)
}

// ApplyDelay applies per-beam fractional delays in place.
func (e *Engine) ApplyDelay(matrix *types.BeamMatrix, delays []types.DelayParams) error {
	return e.delays.Apply(matrix, delays)
}

// ApplyUniformDelay broadcasts one delay to every beam.
func (e *Engine) ApplyUniformDelay(matrix *types.BeamMatrix, d types.DelayParams) error {
	return e.delays.ApplyUniform(matrix, d)
}

// RunFFT executes the batched FFT + peaks pipeline.
func (e *Engine) RunFFT(ctx context.Context, matrix types.BeamMatrix, params types.FFTParams) (types.AntennaFFTResult, error) {
	return e.ffte.Run(ctx, matrix, params)
}

// WriteReport renders an AntennaFFTResult to JSON and Markdown under dir.
func (e *Engine) WriteReport(dir, basePrefix string, result types.AntennaFFTResult) error {
	return report.Write(dir, basePrefix, result)
}

// DelayProfiling exposes the last ApplyDelay call's profiling.
func (e *Engine) DelayProfiling() delay.Profiling { return e.delays.LastProfiling() }

// Statistics exposes program-cache and queue-pool counters.
func (e *Engine) Statistics() compute.Statistics { return e.facade.Statistics() }

// Device exposes the underlying device context (capabilities, raw handles).
func (e *Engine) Device() *device.Context { return e.facade.Device() }

// Close releases every owned resource. The process-wide Device Context
// outlives this call: it is shared across Engine instances and torn down
// independently.
func (e *Engine) Close() {
	e.ffte.Close()
	e.delays.Close()
	e.facade.Close()
}
