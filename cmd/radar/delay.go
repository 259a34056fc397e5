package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/radar/delay"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/radar/types"
	"github.com/AlexLan73/LCH-Farrow01-sub002/pkg/radar"
)

func newDelayCommand() *cobra.Command {
	var sf synthFlags
	var kindFlag string
	var delaySamples float64

	cmd := &cobra.Command{
		Use:   "delay",
		Short: "Apply a uniform fractional delay to a synthesised beam matrix",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseDeviceKind(kindFlag)
			if err != nil {
				return err
			}
			params := sf.lfmParams()

			engine, err := radar.Open(radar.Options{
				DeviceKind:  kind,
				DelayConfig: delay.Config{NumBeams: params.NumBeams, NumSamples: params.ResolvedCountPoints()},
			})
			if err != nil {
				return err
			}
			defer engine.Close()

			matrix, err := engine.Generate(context.Background(), params)
			if err != nil {
				return fmt.Errorf("generate: %w", err)
			}

			d := types.NewDelayParamsFromSamples(delaySamples)
			if err := engine.ApplyUniformDelay(&matrix, d); err != nil {
				return fmt.Errorf("apply delay: %w", err)
			}

			prof := engine.DelayProfiling()
			fmt.Printf("delay_integer=%d lagrange_row=%d effective=%.4f samples\n", d.DelayInteger, d.LagrangeRow, d.EffectiveDelay())
			fmt.Printf("kernel_ms=%.3f total_ms=%.3f throughput=%.0f samples/s\n", prof.KernelMS, prof.TotalMS, prof.ThroughputSamplesPerSecond)
			return nil
		},
	}

	addSynthFlags(cmd, &sf)
	cmd.Flags().StringVar(&kindFlag, "kind", "default", "device kind: default, gpu, or cpu")
	cmd.Flags().Float64Var(&delaySamples, "delay", 2.5, "delay to apply, in samples")
	return cmd
}
