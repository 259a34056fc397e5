// Package refgen is a host-side reference implementation of the
// types.Generator contract, used only by tests and the CLI demo — never a
// product kernel. Signal generation is treated as an external collaborator
// whose only visible contract is "produces a device buffer of num_beams x
// num_samples complex32 values".
package refgen

import (
	"context"
	"fmt"
	"math"

	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpu/compute"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpu/memory"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpuerr"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/radar/types"
)

// Generator synthesises an LFM chirp on the host and uploads it, matching
// types.Generator. It steers no real antenna; every beam gets the same
// chirp shifted by AngleStepDeg purely for test/demo variety.
type Generator struct {
	facade *compute.Facade
}

// New binds a host-side reference generator to facade.
func New(facade *compute.Facade) *Generator {
	return &Generator{facade: facade}
}

// Generate synthesises params.NumBeams rows of an LFM chirp of
// params.ResolvedCountPoints() samples each and uploads them as one
// contiguous device buffer.
func (g *Generator) Generate(ctx context.Context, params types.LFMParams) (types.BeamMatrix, error) {
	if !params.Valid() {
		return types.BeamMatrix{}, fmt.Errorf("%w: invalid LFM parameters", gpuerr.ErrInvalidConfig)
	}
	select {
	case <-ctx.Done():
		return types.BeamMatrix{}, ctx.Err()
	default:
	}

	n := params.ResolvedCountPoints()
	beams := params.NumBeams
	host := make([]byte, beams*n*8)

	duration := float64(n) / params.SampleRate
	rate := (params.FStop - params.FStart) / duration // chirp rate Hz/s

	for b := 0; b < beams; b++ {
		angle := params.AngleStartDeg + float64(b)*params.AngleStepDeg
		phaseShift := angle * math.Pi / 180
		for s := 0; s < n; s++ {
			t := float64(s) / params.SampleRate
			phase := 2*math.Pi*(params.FStart*t+0.5*rate*t*t) + phaseShift
			re := float32(math.Cos(phase))
			im := float32(math.Sin(phase))
			idx := (b*n + s) * 8
			putComplex(host, idx, re, im)
		}
	}

	buf, err := g.facade.CreateBufferWithData(memory.ReadWrite, host)
	if err != nil {
		return types.BeamMatrix{}, err
	}
	return types.BeamMatrix{Beams: beams, Samples: n, Buf: buf}, nil
}

func putComplex(buf []byte, offset int, re, im float32) {
	putFloat32(buf, offset, re)
	putFloat32(buf, offset+4, im)
}
