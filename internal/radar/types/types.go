// Package types holds the data model shared by every radar processor:
// complex samples, beam matrices, delay/LFM parameters, the Lagrange
// table, FFT parameters, and the peak/profiling result shapes. These are
// plain value types; the GPU-facing buffers they wrap live in
// internal/gpu/memory.
package types

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpu/memory"
)

var taskIDCounter atomic.Uint64

// newTaskID generates a process-unique label for runs that don't supply
// their own TaskID, combining wall-clock time with a monotonic counter so
// concurrent batches in the same process never collide.
func newTaskID() string {
	n := taskIDCounter.Add(1)
	return fmt.Sprintf("task-%d-%d", time.Now().UnixNano(), n)
}

// PeakIndexSentinel marks a PeakRecord slot that holds no peak (e.g. fewer
// than max_peaks_count peaks existed for a beam).
const PeakIndexSentinel = math.MaxUint32

// Complex is a single-precision complex sample, interop-compatible with
// the device's native float2 layout.
type Complex struct {
	Re, Im float32
}

// BeamMatrix is a logical beams x samples row-major complex matrix backed
// by one linear device buffer: B[beam*Samples+sample].
type BeamMatrix struct {
	Beams, Samples int
	Buf             memory.Buffer
}

// ElementCount is the total number of complex samples in the matrix.
func (m BeamMatrix) ElementCount() int { return m.Beams * m.Samples }

// LFMParams describes the chirp the external Generator is asked to
// synthesise, plus the derived sample count the rest of the pipeline acts
// on.
type LFMParams struct {
	FStart, FStop, SampleRate                 float64
	NumBeams                                  int
	CountPoints                               int
	Duration                                  float64
	AngleStartDeg, AngleStopDeg, AngleStepDeg float64
}

// ResolvedCountPoints returns CountPoints if set, else derives it from
// Duration * SampleRate, rounded to the nearest sample.
func (p LFMParams) ResolvedCountPoints() int {
	if p.CountPoints > 0 {
		return p.CountPoints
	}
	return int(math.Round(p.Duration * p.SampleRate))
}

// Valid checks the LFM validity rules: f_stop > f_start > 0,
// Nyquist-satisfying sample rate, at least one beam, and a resolvable
// sample count.
func (p LFMParams) Valid() bool {
	if !(p.FStop > p.FStart && p.FStart > 0) {
		return false
	}
	if p.SampleRate < 2*p.FStop {
		return false
	}
	if p.NumBeams < 1 {
		return false
	}
	return p.ResolvedCountPoints() > 0
}

// Generator is the external collaborator contract: produce a device
// buffer of shape (num_beams, num_samples) complex32 values. Signal
// synthesis kernels are out of this module's scope; only the
// interface and a host-side reference implementation (radar/refgen) live
// here.
type Generator interface {
	Generate(ctx context.Context, params LFMParams) (BeamMatrix, error)
}

// DelayParams is the per-beam integer + fractional (Lagrange row) delay.
// The effective delay in samples is DelayInteger + LagrangeRow/48.
type DelayParams struct {
	DelayInteger int32
	LagrangeRow  uint32
}

// LagrangeRows is the fixed number of precomputed fractional-delay taps.
const LagrangeRows = 48

// NewDelayParamsFromSamples builds DelayParams from a floating-point delay
// d: delay_integer = floor(d), lagrange_row =
// floor((d - floor(d)) * 48) mod 48.
func NewDelayParamsFromSamples(d float64) DelayParams {
	intPart := math.Floor(d)
	frac := d - intPart
	row := int64(math.Floor(frac*LagrangeRows)) % LagrangeRows
	if row < 0 {
		row += LagrangeRows
	}
	return DelayParams{
		DelayInteger: int32(intPart),
		LagrangeRow:  uint32(row),
	}
}

// EffectiveDelay returns DelayInteger + LagrangeRow/48 as a float64.
func (d DelayParams) EffectiveDelay() float64 {
	return float64(d.DelayInteger) + float64(d.LagrangeRow)/LagrangeRows
}

// LagrangeMatrix is the 48x5 interpolation table: row r holds the 5-tap
// coefficients for a fractional delay of r/48 samples.
type LagrangeMatrix struct {
	Description   string
	Rows, Columns int
	Data          [][]float32
}

// LagrangeTaps is the fixed window width of every Lagrange row.
const LagrangeTaps = 5

// RowSum returns sum(Data[r]) for validating the ~1.0 invariant.
func (m LagrangeMatrix) RowSum(r int) float32 {
	var sum float32
	for _, v := range m.Data[r] {
		sum += v
	}
	return sum
}

// Reflect applies symmetric boundary reflection of i against [0, n),
// periodic with period 2*n: -1 -> 0, -2 -> 1, n -> n-1, n+1 -> n-2.
// Implemented branch-free via modular arithmetic plus a single conditional
// flip.
func Reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	m := i % period
	if m < 0 {
		m += period
	}
	if m >= n {
		m = period - 1 - m
	}
	return m
}

// FFTParams describes one Antenna FFT + Peaks invocation's shape.
type FFTParams struct {
	BeamCount, CountPoints, OutCountPointsFFT, MaxPeaksCount int
	// TaskID and ModuleName are opaque caller-supplied labels carried
	// through to AntennaFFTResult and the report files; both default when
	// left empty (see Resolved).
	TaskID, ModuleName string
}

// DefaultModuleName is used when FFTParams.ModuleName is left empty.
const DefaultModuleName = "antenna-fft"

// Resolved fills TaskID/ModuleName defaults without touching the shape
// fields Valid checks.
func (p FFTParams) Resolved() FFTParams {
	if p.ModuleName == "" {
		p.ModuleName = DefaultModuleName
	}
	if p.TaskID == "" {
		p.TaskID = newTaskID()
	}
	return p
}

// NextPowerOfTwo returns the smallest power of two >= n (n > 0).
func NextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// NFFT derives the zero-padded FFT length: 2 * next_power_of_two(count_points).
func (p FFTParams) NFFT() int {
	return 2 * NextPowerOfTwo(p.CountPoints)
}

// Valid checks the batching and peak-extraction invariants: K even, K <=
// nFFT, K >= 2*max_peaks_count, beam_count > 0.
func (p FFTParams) Valid() bool {
	if p.BeamCount <= 0 {
		return false
	}
	if p.OutCountPointsFFT%2 != 0 {
		return false
	}
	if p.OutCountPointsFFT > p.NFFT() {
		return false
	}
	return p.OutCountPointsFFT >= 2*p.MaxPeaksCount
}

// PeakRecord is one spectral peak: Index == PeakIndexSentinel means "no
// peak occupies this slot".
type PeakRecord struct {
	Index     uint32
	Magnitude float32
	PhaseDeg  float32
}

// FFTResult is one beam's peak list (and, optionally, its retained FFT
// slim-buffer complex values).
type FFTResult struct {
	BeamIndex  int
	Peaks      []PeakRecord
	FFTComplex []Complex
}

// Profiling captures per-stage GPU timestamps in milliseconds.
type Profiling struct {
	UploadMS, FFTMS, PostMS, ReductionMS, TotalMS float64
}

// Add accumulates another batch's profiling into the running totals,
// except TotalMS which callers set once from host wall-clock time.
func (p *Profiling) Add(o Profiling) {
	p.UploadMS += o.UploadMS
	p.FFTMS += o.FFTMS
	p.PostMS += o.PostMS
	p.ReductionMS += o.ReductionMS
}

// AntennaFFTResult is the full batch result returned to the host.
type AntennaFFTResult struct {
	TaskID, ModuleName string
	TotalBeams, NFFT   int
	Profiling          Profiling
	Results            []FFTResult
}

// NormalizePhaseDeg maps an arbitrary degree value into [-180, 180).
func NormalizePhaseDeg(deg float64) float64 {
	deg = math.Mod(deg+180, 360)
	if deg < 0 {
		deg += 360
	}
	return deg - 180
}
