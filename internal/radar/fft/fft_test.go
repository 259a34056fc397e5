package fft

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func defaultTestConfig() Config {
	return Config{MemoryUsageLimit: 0.65, BatchSizeRatio: 0.22, MinBeamsForBatch: 10, NumParallelStreams: 3}
}

func TestComputeBatchPlanSingleBeamAlwaysSingleBatch(t *testing.T) {
	cfg := defaultTestConfig()
	key := planKey{beamCount: 1, countPoints: 1 << 20, nfft: 1 << 22, k: 64, maxPeaks: 4}
	// A tiny memory budget would normally force batching, but a single beam
	// must always take the single-batch path.
	p := computeBatchPlan(cfg, key, 1024)
	assert.Equal(t, 1, p.batchSize)
	assert.Equal(t, 1, p.numBatches)
}

func TestComputeBatchPlanFitsInBudget(t *testing.T) {
	cfg := defaultTestConfig()
	key := planKey{beamCount: 256, countPoints: 1024, nfft: 2048, k: 32}
	p := computeBatchPlan(cfg, key, 1<<40) // enormous device memory
	assert.Equal(t, 256, p.batchSize)
	assert.Equal(t, 1, p.numBatches)
}

func TestComputeBatchPlanSplitsWhenOverBudget(t *testing.T) {
	cfg := defaultTestConfig()
	beamCount := 256
	key := planKey{beamCount: beamCount, countPoints: 1 << 20, nfft: 1 << 22, k: 64}
	estimate := int64(beamCount) * int64(key.countPoints+2*key.nfft+key.k) * 8
	// Budget smaller than the full estimate forces a multi-batch plan.
	globalMem := int64(float64(estimate) / cfg.MemoryUsageLimit / 4)
	p := computeBatchPlan(cfg, key, globalMem)
	assert.Less(t, p.batchSize, beamCount)
	assert.GreaterOrEqual(t, p.batchSize, cfg.MinBeamsForBatch)
	assert.Equal(t, (beamCount+p.batchSize-1)/p.batchSize, p.numBatches)
}

func TestComputeBatchPlanRespectsMinBeamsFloor(t *testing.T) {
	cfg := defaultTestConfig()
	beamCount := 20 // 0.22 ratio -> 4.4, below the floor of 10
	key := planKey{beamCount: beamCount, countPoints: 1 << 20, nfft: 1 << 22, k: 64}
	p := computeBatchPlan(cfg, key, 1) // force the over-budget branch
	assert.Equal(t, cfg.MinBeamsForBatch, p.batchSize)
}

func TestComputeBatchPlanClampsBatchSizeToBeamCount(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.MinBeamsForBatch = 1000 // deliberately larger than beamCount
	beamCount := 5
	key := planKey{beamCount: beamCount, countPoints: 1 << 20, nfft: 1 << 22, k: 64}
	p := computeBatchPlan(cfg, key, 1)
	assert.Equal(t, beamCount, p.batchSize)
	assert.Equal(t, 1, p.numBatches)
}

func TestConfigValidate(t *testing.T) {
	bad := Config{MemoryUsageLimit: 1.5, BatchSizeRatio: 0.2, MinBeamsForBatch: 1, NumParallelStreams: 1}
	assert.Error(t, bad.validate())

	good := defaultTestConfig()
	assert.NoError(t, good.validate())
}
