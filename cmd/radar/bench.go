package main

import (
	"context"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/radar/delay"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/radar/types"
	"github.com/AlexLan73/LCH-Farrow01-sub002/pkg/radar"
)

func newBenchCommand() *cobra.Command {
	var sf synthFlags
	var kindFlag string
	var kWidth int
	var maxPeaks int

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run the full delay + FFT pipeline once and print profiling",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseDeviceKind(kindFlag)
			if err != nil {
				return err
			}
			fmt.Printf("platform: %s/%s, cpu cores: %d\n", runtime.GOOS, runtime.GOARCH, runtime.NumCPU())

			params := sf.lfmParams()
			engine, err := radar.Open(radar.Options{
				DeviceKind:  kind,
				DelayConfig: delay.Config{NumBeams: params.NumBeams, NumSamples: params.ResolvedCountPoints()},
			})
			if err != nil {
				return err
			}
			defer engine.Close()

			caps := engine.Device().Capabilities()
			fmt.Printf("device: %s (%s)\n", caps.DeviceName, caps.Vendor)

			ctx := context.Background()
			matrix, err := engine.Generate(ctx, params)
			if err != nil {
				return fmt.Errorf("generate: %w", err)
			}

			if err := engine.ApplyUniformDelay(&matrix, types.NewDelayParamsFromSamples(1.5)); err != nil {
				return fmt.Errorf("apply delay: %w", err)
			}
			delayProf := engine.DelayProfiling()
			fmt.Printf("delay:  kernel_ms=%.3f total_ms=%.3f throughput=%.0f samples/s\n",
				delayProf.KernelMS, delayProf.TotalMS, delayProf.ThroughputSamplesPerSecond)

			fftParams := types.FFTParams{
				BeamCount:         params.NumBeams,
				CountPoints:       params.ResolvedCountPoints(),
				OutCountPointsFFT: kWidth,
				MaxPeaksCount:     maxPeaks,
			}
			result, err := engine.RunFFT(ctx, matrix, fftParams)
			if err != nil {
				return fmt.Errorf("fft: %w", err)
			}
			fmt.Printf("fft:    nfft=%d upload_ms=%.3f fft_ms=%.3f post_ms=%.3f reduction_ms=%.3f total_ms=%.3f\n",
				result.NFFT, result.Profiling.UploadMS, result.Profiling.FFTMS, result.Profiling.PostMS,
				result.Profiling.ReductionMS, result.Profiling.TotalMS)

			stats := engine.Statistics()
			fmt.Printf("program cache: %d programs, %d hits, %d misses (%.1f%% hit rate)\n",
				stats.Programs.Programs, stats.Programs.Hits, stats.Programs.Misses, stats.Programs.HitRate*100)
			return nil
		},
	}

	addSynthFlags(cmd, &sf)
	cmd.Flags().StringVar(&kindFlag, "kind", "default", "device kind: default, gpu, or cpu")
	cmd.Flags().IntVar(&kWidth, "k", 32, "number of retained FFT bins (first K/2 + last K/2)")
	cmd.Flags().IntVar(&maxPeaks, "max-peaks", 4, "peaks to extract per beam")
	return cmd
}
