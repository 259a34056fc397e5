package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AlexLan73/LCH-Farrow01-sub002/pkg/radar"
)

func newDevicesCommand() *cobra.Command {
	var kindFlag string

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "Print the OpenCL device selected for compute and its capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseDeviceKind(kindFlag)
			if err != nil {
				return err
			}
			engine, err := radar.Open(radar.Options{DeviceKind: kind})
			if err != nil {
				return err
			}
			defer engine.Close()

			caps := engine.Device().Capabilities()
			fmt.Printf("Device:        %s\n", caps.DeviceName)
			fmt.Printf("Vendor:        %s\n", caps.Vendor)
			fmt.Printf("Version:       %s\n", caps.Version)
			fmt.Printf("Compute units: %d\n", caps.ComputeUnits)
			fmt.Printf("Global memory: %d bytes\n", caps.GlobalMemSize)
			fmt.Printf("Max alloc:     %d bytes\n", caps.MaxMemAllocSize)
			fmt.Printf("Max WG size:   %d\n", caps.MaxWorkGroupSize)
			fmt.Printf("SVM coarse:    %v\n", caps.SVM.CoarseGrainBuffer)
			fmt.Printf("SVM fine:      %v\n", caps.SVM.FineGrainBuffer)
			return nil
		},
	}

	cmd.Flags().StringVar(&kindFlag, "kind", "default", "device kind: default, gpu, or cpu")
	return cmd
}
