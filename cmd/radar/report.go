package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/radar/types"
	"github.com/AlexLan73/LCH-Farrow01-sub002/pkg/radar"
)

func newReportCommand() *cobra.Command {
	var sf synthFlags
	var kindFlag string
	var kWidth int
	var maxPeaks int
	var outDir string
	var prefix string
	var taskID, moduleName string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run the batched antenna FFT and write a JSON + Markdown report",
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

			if err := engine.WriteReport(outDir, prefix, result); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			fmt.Printf("wrote report to %s/%s.json and %s/%s.md\n", outDir, prefix, outDir, prefix)
			return nil
		},
	}

	addSynthFlags(cmd, &sf)
	cmd.Flags().StringVar(&kindFlag, "kind", "default", "device kind: default, gpu, or cpu")
	cmd.Flags().IntVar(&kWidth, "k", 32, "number of retained FFT bins (first K/2 + last K/2)")
	cmd.Flags().IntVar(&maxPeaks, "max-peaks", 4, "peaks to extract per beam")
	cmd.Flags().StringVar(&outDir, "out", ".", "output directory")
	cmd.Flags().StringVar(&prefix, "prefix", "radar-report", "output file base name")
	cmd.Flags().StringVar(&taskID, "task-id", "", "label carried into the report files (default: generated)")
	cmd.Flags().StringVar(&moduleName, "module-name", "", "label carried into the report files (default: "+types.DefaultModuleName+")")
	return cmd
}
