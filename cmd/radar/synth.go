package main

import (
	"github.com/spf13/cobra"

	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/radar/types"
)

// synthFlags are the LFM synthesis parameters shared by bench/delay/fft/report.
type synthFlags struct {
	numBeams      int
	countPoints   int
	fStart        float64
	fStop         float64
	sampleRate    float64
	angleStart    float64
	angleStop     float64
	angleStep     float64
}

func addSynthFlags(cmd *cobra.Command, f *synthFlags) {
	cmd.Flags().IntVar(&f.numBeams, "beams", 8, "number of antenna beams")
	cmd.Flags().IntVar(&f.countPoints, "samples", 1024, "samples per beam")
	cmd.Flags().Float64Var(&f.fStart, "f-start", 1e6, "chirp start frequency (Hz)")
	cmd.Flags().Float64Var(&f.fStop, "f-stop", 5e6, "chirp stop frequency (Hz)")
	cmd.Flags().Float64Var(&f.sampleRate, "sample-rate", 20e6, "sample rate (Hz)")
	cmd.Flags().Float64Var(&f.angleStart, "angle-start", -30, "beam angle start (deg)")
	cmd.Flags().Float64Var(&f.angleStop, "angle-stop", 30, "beam angle stop (deg)")
	cmd.Flags().Float64Var(&f.angleStep, "angle-step", 5, "beam angle step (deg)")
}

func (f synthFlags) lfmParams() types.LFMParams {
	return types.LFMParams{
		FStart:        f.fStart,
		FStop:         f.fStop,
		SampleRate:    f.sampleRate,
		NumBeams:      f.numBeams,
		CountPoints:   f.countPoints,
		AngleStartDeg: f.angleStart,
		AngleStopDeg:  f.angleStop,
		AngleStepDeg:  f.angleStep,
	}
}
