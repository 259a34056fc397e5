package memory

import (
	"fmt"

	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpu/device"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpuerr"
)

const (
	bytesPerMiB = 1 << 20

	// DefaultThresholdFine and DefaultThresholdCoarse are the default policy
	// thresholds (128 MiB / 512 MiB).
	DefaultThresholdFine   = 128 * bytesPerMiB
	DefaultThresholdCoarse = 512 * bytesPerMiB
)

// Strategy lets callers force a specific variant instead of the default
// size/capability-driven policy.
type Strategy int

const (
	StrategyAuto Strategy = iota
	StrategyRegular
	StrategyCoarseGrainSVM
	StrategyFineGrainSVM
)

// BufferConfig holds the tunable thresholds of the default factory policy.
// Every tunable is a hard-coded-default struct field with an explicit
// setter — no environment variables, no config files.
type BufferConfig struct {
	ThresholdFine   int64
	ThresholdCoarse int64
}

// DefaultBufferConfig returns the default buffer strategy policy.
func DefaultBufferConfig() BufferConfig {
	return BufferConfig{
		ThresholdFine:   DefaultThresholdFine,
		ThresholdCoarse: DefaultThresholdCoarse,
	}
}

// Factory dispatches buffer creation to the right variant: the same size-
// class bucketing idea as a free-list allocator, applied to picking a
// memory strategy instead of a free-list bucket.
type Factory struct {
	ctx    *device.Context
	config BufferConfig
}

// NewFactory builds a Factory bound to ctx using the default policy.
func NewFactory(ctx *device.Context) *Factory {
	return &Factory{ctx: ctx, config: DefaultBufferConfig()}
}

// SetConfig replaces the threshold policy.
func (f *Factory) SetConfig(cfg BufferConfig) { f.config = cfg }

func (f *Factory) contextID() uintptr { return uintptr(f.ctx.CL().ID()) }

// Create allocates a buffer of sizeBytes using the default auto policy:
// prefer fine-grain SVM when available and size <= ThresholdFine, else
// coarse-grain SVM when available and size <= ThresholdCoarse, else
// regular. Buffers over ThresholdCoarse are always regular.
func (f *Factory) Create(access AccessMode, sizeBytes int64) (Buffer, error) {
	return f.CreateWithStrategy(access, sizeBytes, StrategyAuto)
}

// CreateWithStrategy allocates a buffer, honouring an explicit strategy
// override when one is given.
func (f *Factory) CreateWithStrategy(access AccessMode, sizeBytes int64, strategy Strategy) (Buffer, error) {
	if sizeBytes < 0 {
		return nil, fmt.Errorf("%w: negative buffer size", gpuerr.ErrInvalidConfig)
	}

	svm := f.ctx.Capabilities().SVM

	switch strategy {
	case StrategyFineGrainSVM:
		if !svm.FineGrainBuffer {
			return nil, fmt.Errorf("%w: device has no fine-grain SVM", gpuerr.ErrDeviceUnavailable)
		}
		return newSVMBuffer(f.contextID(), sizeBytes, true)
	case StrategyCoarseGrainSVM:
		if !svm.CoarseGrainBuffer {
			return nil, fmt.Errorf("%w: device has no coarse-grain SVM", gpuerr.ErrDeviceUnavailable)
		}
		return newSVMBuffer(f.contextID(), sizeBytes, false)
	case StrategyRegular:
		return newRegularBuffer(f.ctx, access, sizeBytes)
	}

	// StrategyAuto: fine -> coarse -> regular.
	if sizeBytes <= f.config.ThresholdFine && svm.FineGrainBuffer {
		return newSVMBuffer(f.contextID(), sizeBytes, true)
	}
	if sizeBytes <= f.config.ThresholdCoarse && svm.CoarseGrainBuffer {
		return newSVMBuffer(f.contextID(), sizeBytes, false)
	}
	return newRegularBuffer(f.ctx, access, sizeBytes)
}
