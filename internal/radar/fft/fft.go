// Package fft implements the Antenna FFT + Peaks Engine: a batched,
// multi-stream pipeline that zero-pads each beam's samples to
// nFFT = 2*next_power_of_two(count_points), runs an iterative radix-2 FFT,
// keeps only the first/last K/2 bins, and reduces each beam's slim
// spectrum down to its top max_peaks_count peaks.
//
// The batch-plan cache uses the same mutex-guarded keyed-map shape as the
// program cache (without hit/miss counters); memory-adaptive batching across parallel streams uses
// an errgroup-based worker fan-out.
package fft

import (
	"context"
	"fmt"
	"math/bits"
	"sort"
	"sync"

	"github.com/jgillich/go-opencl/cl"
	"golang.org/x/sync/errgroup"

	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpu/compute"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpu/memory"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpuerr"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/radar/types"
)

// Config are the memory-adaptive batching tunables.
type Config struct {
	MemoryUsageLimit   float64
	BatchSizeRatio     float64
	MinBeamsForBatch   int
	NumParallelStreams int
}

func (c Config) resolved() Config {
	if c.MemoryUsageLimit == 0 {
		c.MemoryUsageLimit = 0.65
	}
	if c.BatchSizeRatio == 0 {
		c.BatchSizeRatio = 0.22
	}
	if c.MinBeamsForBatch == 0 {
		c.MinBeamsForBatch = 10
	}
	if c.NumParallelStreams == 0 {
		c.NumParallelStreams = 3
	}
	return c
}

func (c Config) validate() error {
	if c.MemoryUsageLimit <= 0 || c.MemoryUsageLimit > 1 {
		return fmt.Errorf("%w: memory_usage_limit %f outside (0,1]", gpuerr.ErrInvalidConfig, c.MemoryUsageLimit)
	}
	if c.BatchSizeRatio <= 0 || c.BatchSizeRatio > 1 {
		return fmt.Errorf("%w: batch_size_ratio %f outside (0,1]", gpuerr.ErrInvalidConfig, c.BatchSizeRatio)
	}
	if c.MinBeamsForBatch < 1 {
		return fmt.Errorf("%w: min_beams_for_batch %d below 1", gpuerr.ErrInvalidConfig, c.MinBeamsForBatch)
	}
	if c.NumParallelStreams < 1 {
		return fmt.Errorf("%w: num_parallel_streams %d below 1", gpuerr.ErrInvalidConfig, c.NumParallelStreams)
	}
	return nil
}

// kernelSet is one stream's private kernel instances. cl.Kernel objects
// carry argument state across SetArg calls, so sharing one instance across
// concurrently-dispatching streams would race; each stream gets its own
// set compiled from the same (cached) programs.
type kernelSet struct {
	pack, bitrev, butterfly, post, reduce *cl.Kernel
}

// planKey identifies a batching decision worth memoising: the same shape
// recomputes the same batch boundaries every time.
type planKey struct {
	beamCount, countPoints, nfft, k, maxPeaks int
}

type plan struct {
	batchSize  int
	numBatches int
}

// Engine is the non-owning, facade-backed batched FFT + peaks processor.
// It must not outlive the compute.Facade it was built from.
type Engine struct {
	facade *compute.Facade
	cfg    Config

	streams []kernelSet

	planMu sync.Mutex
	plans  map[planKey]plan
}

// New compiles the five pipeline kernels once per parallel stream and
// wires them to facade.
func New(facade *compute.Facade, cfg Config) (*Engine, error) {
	if facade == nil {
		return nil, gpuerr.ErrNotInitialised
	}
	cfg = cfg.resolved()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	packProgram, err := facade.LoadProgram(packKernelSource)
	if err != nil {
		return nil, err
	}
	bitrevProgram, err := facade.LoadProgram(bitrevKernelSource)
	if err != nil {
		return nil, err
	}
	butterflyProgram, err := facade.LoadProgram(butterflyKernelSource)
	if err != nil {
		return nil, err
	}
	postProgram, err := facade.LoadProgram(postKernelSource)
	if err != nil {
		return nil, err
	}
	reduceProgram, err := facade.LoadProgram(reduceKernelSource)
	if err != nil {
		return nil, err
	}

	streams := make([]kernelSet, cfg.NumParallelStreams)
	for i := range streams {
		pack, err := packProgram.CreateKernel("fft_pack")
		if err != nil {
			return nil, fmt.Errorf("%w: pack kernel: %v", gpuerr.ErrKernelNotFound, err)
		}
		bitrev, err := bitrevProgram.CreateKernel("fft_bitrev")
		if err != nil {
			return nil, fmt.Errorf("%w: bitrev kernel: %v", gpuerr.ErrKernelNotFound, err)
		}
		butterfly, err := butterflyProgram.CreateKernel("fft_butterfly")
		if err != nil {
			return nil, fmt.Errorf("%w: butterfly kernel: %v", gpuerr.ErrKernelNotFound, err)
		}
		post, err := postProgram.CreateKernel("fft_post")
		if err != nil {
			return nil, fmt.Errorf("%w: post kernel: %v", gpuerr.ErrKernelNotFound, err)
		}
		reduce, err := reduceProgram.CreateKernel("fft_reduce")
		if err != nil {
			return nil, fmt.Errorf("%w: reduce kernel: %v", gpuerr.ErrKernelNotFound, err)
		}
		streams[i] = kernelSet{pack: pack, bitrev: bitrev, butterfly: butterfly, post: post, reduce: reduce}
	}

	return &Engine{
		facade:  facade,
		cfg:     cfg,
		streams: streams,
		plans:   make(map[planKey]plan),
	}, nil
}

// planFor computes (and memoises) the batch boundaries for one shape.
func (e *Engine) planFor(key planKey) plan {
	e.planMu.Lock()
	defer e.planMu.Unlock()
	if p, ok := e.plans[key]; ok {
		return p
	}
	globalMem := int64(e.facade.Device().Capabilities().GlobalMemSize)
	p := computeBatchPlan(e.cfg, key, globalMem)
	e.plans[key] = p
	return p
}

// computeBatchPlan is the pure memory-adaptive batching decision, factored
// out of planFor so it can be tested without a device: a single beam
// always takes the single-batch path regardless of the memory estimate;
// otherwise the estimate beam_count*(count_points + 2*nFFT + K)*8 bytes is
// compared against memory_usage_limit*device_global_memory.
func computeBatchPlan(cfg Config, key planKey, globalMemBytes int64) plan {
	if key.beamCount == 1 {
		return plan{batchSize: 1, numBatches: 1}
	}

	estimateBytes := int64(key.beamCount) * int64(key.countPoints+2*key.nfft+key.k) * 8
	budget := int64(float64(globalMemBytes) * cfg.MemoryUsageLimit)

	var batchSize int
	if globalMemBytes == 0 || estimateBytes <= budget {
		batchSize = key.beamCount
	} else {
		batchSize = int(float64(key.beamCount) * cfg.BatchSizeRatio)
		if batchSize < cfg.MinBeamsForBatch {
			batchSize = cfg.MinBeamsForBatch
		}
		if batchSize > key.beamCount {
			batchSize = key.beamCount
		}
	}
	numBatches := (key.beamCount + batchSize - 1) / batchSize
	return plan{batchSize: batchSize, numBatches: numBatches}
}

// Run executes the batched FFT + peaks pipeline over matrix and returns
// one FFTResult per beam, in original beam order.
func (e *Engine) Run(ctx context.Context, matrix types.BeamMatrix, params types.FFTParams) (types.AntennaFFTResult, error) {
	if !params.Valid() {
		return types.AntennaFFTResult{}, fmt.Errorf("%w: invalid FFT parameters", gpuerr.ErrInvalidConfig)
	}
	if matrix.Beams != params.BeamCount || matrix.Samples != params.CountPoints {
		return types.AntennaFFTResult{}, fmt.Errorf("%w: matrix shape (%d,%d) != params (%d,%d)",
			gpuerr.ErrShapeMismatch, matrix.Beams, matrix.Samples, params.BeamCount, params.CountPoints)
	}
	select {
	case <-ctx.Done():
		return types.AntennaFFTResult{}, ctx.Err()
	default:
	}
	params = params.Resolved()
	runStart := nowMS()

	nfft := params.NFFT()
	log2n := bits.TrailingZeros(uint(nfft))
	key := planKey{beamCount: params.BeamCount, countPoints: params.CountPoints, nfft: nfft, k: params.OutCountPointsFFT, maxPeaks: params.MaxPeaksCount}
	p := e.planFor(key)

	outcomes := make([]gpuerr.BatchOutcome, p.numBatches)
	resultsByBatch := make([][]types.FFTResult, p.numBatches)
	var mu sync.Mutex

	numStreams := e.cfg.NumParallelStreams
	if numStreams > p.numBatches {
		numStreams = p.numBatches
	}

	var totalProfiling types.Profiling
	g, gctx := errgroup.WithContext(ctx)
	for s := 0; s < numStreams; s++ {
		streamIdx := s
		g.Go(func() error {
			q, err := e.facade.ByQueueIndex(streamIdx)
			if err != nil {
				return err
			}
			ks := e.streams[streamIdx]
			for batchIdx := streamIdx; batchIdx < p.numBatches; batchIdx += numStreams {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				firstBeam := batchIdx * p.batchSize
				lastBeam := firstBeam + p.batchSize
				if lastBeam > params.BeamCount {
					lastBeam = params.BeamCount
				}
				batchBeams := lastBeam - firstBeam

				results, prof, err := e.runBatch(q, ks, matrix, firstBeam, batchBeams, nfft, log2n, params)
				mu.Lock()
				outcomes[batchIdx] = gpuerr.BatchOutcome{BatchIndex: batchIdx, FirstBeam: firstBeam, LastBeam: lastBeam, Completed: err == nil, Err: err}
				if err == nil {
					resultsByBatch[batchIdx] = results
					totalProfiling.Add(prof)
				}
				mu.Unlock()
				if err != nil {
					return err
				}
			}
			return nil
		})
	}

	runErr := g.Wait()

	anyFailed := false
	for _, o := range outcomes {
		if !o.Completed {
			anyFailed = true
			break
		}
	}
	if anyFailed {
		_ = e.facade.Finish()
		_ = runErr
		return types.AntennaFFTResult{}, &gpuerr.PartialBatchFailure{Outcomes: outcomes}
	}

	all := make([]types.FFTResult, 0, params.BeamCount)
	for _, r := range resultsByBatch {
		all = append(all, r...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].BeamIndex < all[j].BeamIndex })
	totalProfiling.TotalMS = nowMS() - runStart

	return types.AntennaFFTResult{
		TaskID:     params.TaskID,
		ModuleName: params.ModuleName,
		TotalBeams: params.BeamCount,
		NFFT:       nfft,
		Profiling:  totalProfiling,
		Results:    all,
	}, nil
}

// runBatch executes the 5-stage pipeline for one contiguous beam range as
// a single event-driven chain: every launch carries an explicit wait list
// naming the event it depends on (the pool's queues are out-of-order, so
// enqueue order alone would not guarantee the butterfly passes observe
// each other's writes), and the host issues exactly one blocking wait —
// on the final readback's event, after every stage has been enqueued.
func (e *Engine) runBatch(q *cl.CommandQueue, ks kernelSet, matrix types.BeamMatrix, firstBeam, batchBeams, nfft, log2n int, params types.FFTParams) ([]types.FFTResult, types.Profiling, error) {
	k := params.OutCountPointsFFT
	maxPeaks := params.MaxPeaksCount

	staging, err := e.facade.CreateBuffer(memory.ReadWrite, batchBeams*nfft, 8)
	if err != nil {
		return nil, types.Profiling{}, err
	}
	defer staging.Release()

	complexSlim, err := e.facade.CreateBuffer(memory.ReadWrite, batchBeams*k, 8)
	if err != nil {
		return nil, types.Profiling{}, err
	}
	defer complexSlim.Release()

	magnitudeSlim, err := e.facade.CreateBuffer(memory.ReadWrite, batchBeams*k, 4)
	if err != nil {
		return nil, types.Profiling{}, err
	}
	defer magnitudeSlim.Release()

	outPeaks, err := e.facade.CreateBuffer(memory.ReadWrite, batchBeams*maxPeaks, peakRecordBytes)
	if err != nil {
		return nil, types.Profiling{}, err
	}
	defer outPeaks.Release()

	if err := matrix.Buf.BindAsKernelArg(ks.pack, 0); err != nil {
		return nil, types.Profiling{}, err
	}
	if err := staging.BindAsKernelArg(ks.pack, 1); err != nil {
		return nil, types.Profiling{}, err
	}
	if err := e.facade.BindScalarArgs(ks.pack, 2, uint32(firstBeam), uint32(params.CountPoints), uint32(nfft)); err != nil {
		return nil, types.Profiling{}, err
	}
	packEvent, err := e.facade.LaunchOn(q, ks.pack, []int{batchBeams * nfft}, nil, nil)
	if err != nil {
		return nil, types.Profiling{}, err
	}

	if err := staging.BindAsKernelArg(ks.bitrev, 0); err != nil {
		return nil, types.Profiling{}, err
	}
	if err := e.facade.BindScalarArgs(ks.bitrev, 1, uint32(nfft), uint32(log2n)); err != nil {
		return nil, types.Profiling{}, err
	}
	bitrevEvent, err := e.facade.LaunchOn(q, ks.bitrev, []int{batchBeams * nfft}, nil, []*cl.Event{packEvent})
	if err != nil {
		return nil, types.Profiling{}, err
	}

	if err := staging.BindAsKernelArg(ks.butterfly, 0); err != nil {
		return nil, types.Profiling{}, err
	}
	prevEvent := bitrevEvent
	for stage := 0; stage < log2n; stage++ {
		if err := e.facade.BindScalarArgs(ks.butterfly, 1, uint32(nfft), uint32(stage)); err != nil {
			return nil, types.Profiling{}, err
		}
		ev, err := e.facade.LaunchOn(q, ks.butterfly, []int{batchBeams * nfft / 2}, nil, []*cl.Event{prevEvent})
		if err != nil {
			return nil, types.Profiling{}, err
		}
		prevEvent = ev
	}
	butterflyEvent := prevEvent

	if err := staging.BindAsKernelArg(ks.post, 0); err != nil {
		return nil, types.Profiling{}, err
	}
	if err := complexSlim.BindAsKernelArg(ks.post, 1); err != nil {
		return nil, types.Profiling{}, err
	}
	if err := magnitudeSlim.BindAsKernelArg(ks.post, 2); err != nil {
		return nil, types.Profiling{}, err
	}
	if err := e.facade.BindScalarArgs(ks.post, 3, uint32(nfft), uint32(k)); err != nil {
		return nil, types.Profiling{}, err
	}
	postEvent, err := e.facade.LaunchOn(q, ks.post, []int{batchBeams * k}, nil, []*cl.Event{butterflyEvent})
	if err != nil {
		return nil, types.Profiling{}, err
	}

	if err := complexSlim.BindAsKernelArg(ks.reduce, 0); err != nil {
		return nil, types.Profiling{}, err
	}
	if err := magnitudeSlim.BindAsKernelArg(ks.reduce, 1); err != nil {
		return nil, types.Profiling{}, err
	}
	if err := outPeaks.BindAsKernelArg(ks.reduce, 2); err != nil {
		return nil, types.Profiling{}, err
	}
	if err := e.facade.BindScalarArgs(ks.reduce, 3, uint32(k), uint32(maxPeaks)); err != nil {
		return nil, types.Profiling{}, err
	}
	local := []int{reduceLocalWorkSize}
	reduceEvent, err := e.facade.LaunchOn(q, ks.reduce, []int{batchBeams * reduceLocalWorkSize}, local, []*cl.Event{postEvent})
	if err != nil {
		return nil, types.Profiling{}, err
	}

	readCh, readEvent, err := outPeaks.ReadAsync(q, []*cl.Event{reduceEvent})
	if err != nil {
		return nil, types.Profiling{}, err
	}
	if readEvent != nil {
		if err := e.facade.Wait(readEvent); err != nil {
			return nil, types.Profiling{}, err
		}
	}
	raw := <-readCh

	uploadMS, err := e.facade.KernelDurationMS(packEvent)
	if err != nil {
		return nil, types.Profiling{}, err
	}
	fftMS, err := e.facade.EventSpanMS(bitrevEvent, butterflyEvent)
	if err != nil {
		return nil, types.Profiling{}, err
	}
	postMS, err := e.facade.KernelDurationMS(postEvent)
	if err != nil {
		return nil, types.Profiling{}, err
	}
	reductionMS, err := e.facade.KernelDurationMS(reduceEvent)
	if err != nil {
		return nil, types.Profiling{}, err
	}

	results := make([]types.FFTResult, batchBeams)
	for b := 0; b < batchBeams; b++ {
		peaks := make([]types.PeakRecord, maxPeaks)
		for i := 0; i < maxPeaks; i++ {
			peaks[i] = decodePeakRecord(raw, (b*maxPeaks+i)*peakRecordBytes)
		}
		results[b] = types.FFTResult{BeamIndex: firstBeam + b, Peaks: peaks}
	}

	return results, types.Profiling{UploadMS: uploadMS, FFTMS: fftMS, PostMS: postMS, ReductionMS: reductionMS}, nil
}

// Close releases every per-stream kernel instance. The facade's Program
// Cache owns the underlying cl.Program objects and the facade itself is
// not owned by the engine, so neither is touched here.
func (e *Engine) Close() {
	for _, ks := range e.streams {
		ks.pack.Release()
		ks.bitrev.Release()
		ks.butterfly.Release()
		ks.post.Release()
		ks.reduce.Release()
	}
}
