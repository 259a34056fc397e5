package main

import (
	"fmt"

	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpu/device"
)

func parseDeviceKind(s string) (device.Kind, error) {
	switch s {
	case "", "default":
		return device.KindDefault, nil
	case "gpu":
		return device.KindGPU, nil
	case "cpu":
		return device.KindCPU, nil
	default:
		return device.KindDefault, fmt.Errorf("unknown device kind %q (want default, gpu, or cpu)", s)
	}
}
