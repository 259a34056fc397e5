package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/radar/types"
	"github.com/AlexLan73/LCH-Farrow01-sub002/pkg/radar"
)

func newFFTCommand() *cobra.Command {
	var sf synthFlags
	var kindFlag string
	var kWidth int
	var maxPeaks int
	var taskID, moduleName string

	cmd := &cobra.Command{
		Use:   "fft",
		Short: "Run the batched antenna FFT and print the top peaks per beam",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseDeviceKind(kindFlag)
			if err != nil {
				return err
			}
			params := sf.lfmParams()

			engine, err := radar.Open(radar.Options{DeviceKind: kind})
			if err != nil {
				return err
			}
			defer engine.Close()

			ctx := context.Background()
			matrix, err := engine.Generate(ctx, params)
			if err != nil {
				return fmt.Errorf("generate: %w", err)
			}

			fftParams := types.FFTParams{
				BeamCount:         params.NumBeams,
				CountPoints:       params.ResolvedCountPoints(),
				OutCountPointsFFT: kWidth,
				MaxPeaksCount:     maxPeaks,
				TaskID:            taskID,
				ModuleName:        moduleName,
			}
			result, err := engine.RunFFT(ctx, matrix, fftParams)
			if err != nil {
				return fmt.Errorf("fft: %w", err)
			}

			fmt.Printf("nfft=%d total_beams=%d total_ms=%.3f\n", result.NFFT, result.TotalBeams, result.Profiling.TotalMS)
			for _, r := range result.Results {
				fmt.Printf("beam %d:\n", r.BeamIndex)
				for _, p := range r.Peaks {
					if p.Index == types.PeakIndexSentinel {
						continue
					}
					fmt.Printf("  bin=%d magnitude=%.4f phase_deg=%.2f\n", p.Index, p.Magnitude, p.PhaseDeg)
				}
			}
			return nil
		},
	}

	addSynthFlags(cmd, &sf)
	cmd.Flags().StringVar(&kindFlag, "kind", "default", "device kind: default, gpu, or cpu")
	cmd.Flags().IntVar(&kWidth, "k", 32, "number of retained FFT bins (first K/2 + last K/2)")
	cmd.Flags().IntVar(&maxPeaks, "max-peaks", 4, "peaks to extract per beam")
	cmd.Flags().StringVar(&taskID, "task-id", "", "label carried into the result and any report files (default: generated)")
	cmd.Flags().StringVar(&moduleName, "module-name", "", "label carried into the result and any report files (default: "+types.DefaultModuleName+")")
	return cmd
}
