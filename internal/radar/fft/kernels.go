package fft

// The Antenna FFT + Peaks Engine implements a 5-stage event-driven
// pipeline as five kernels, chained by explicit event dependencies rather
// than relying on queue ordering — the out-of-order queues this engine
// dispatches on give no implicit ordering guarantee between enqueues.
// There is no clFFT binding in reach here, so the FFT stage is an
// iterative radix-2 Cooley-Tukey implemented directly as bit-reversal +
// per-stage butterfly kernels; nFFT is always a power of two, so radix-2
// always applies.

const packKernelSource = `
__kernel void fft_pack(
    __global const float2* input,
    __global float2* staging,
    const uint beam_offset,
    const uint count_points,
    const uint nfft)
{
    size_t gid = get_global_id(0);
    uint local_beam = gid / nfft;
    uint j = gid % nfft;
    uint global_beam = beam_offset + local_beam;
    float2 v = (float2)(0.0f, 0.0f);
    if (j < count_points) {
        v = input[global_beam * count_points + j];
    }
    staging[local_beam * nfft + j] = v;
}
`

const bitrevKernelSource = `
__kernel void fft_bitrev(__global float2* data, const uint nfft, const uint log2n)
{
    size_t gid = get_global_id(0);
    uint beam = gid / nfft;
    uint i = gid % nfft;
    uint rev = 0;
    uint x = i;
    for (uint b = 0; b < log2n; b++) {
        rev = (rev << 1) | (x & 1u);
        x >>= 1;
    }
    if (rev > i) {
        float2 tmp = data[beam*nfft+i];
        data[beam*nfft+i] = data[beam*nfft+rev];
        data[beam*nfft+rev] = tmp;
    }
}
`

const butterflyKernelSource = `
__kernel void fft_butterfly(__global float2* data, const uint nfft, const uint stage)
{
    size_t gid = get_global_id(0);
    uint half_size = 1u << stage;
    uint group_size = half_size << 1;
    uint per_beam = nfft / 2;
    uint beam = gid / per_beam;
    uint idx = gid % per_beam;
    uint group_id = idx / half_size;
    uint k = idx % half_size;
    uint base = group_id * group_size;
    uint i = base + k;
    uint j = i + half_size;

    float angle = -2.0f * M_PI_F * (float)k / (float)group_size;
    float2 w = (float2)(cos(angle), sin(angle));

    float2 a = data[beam*nfft + i];
    float2 b = data[beam*nfft + j];
    float2 wb = (float2)(w.x*b.x - w.y*b.y, w.x*b.y + w.y*b.x);

    data[beam*nfft + i] = a + wb;
    data[beam*nfft + j] = a - wb;
}
`

// postKernelSource implements the "first K/2 and last K/2" selection rule,
// the split convention chosen over a contiguous-K-point slice.
const postKernelSource = `
__kernel void fft_post(
    __global const float2* fftdata,
    __global float2* complex_slim,
    __global float* magnitude_slim,
    const uint nfft,
    const uint k_width)
{
    size_t gid = get_global_id(0);
    uint half_k = k_width / 2;
    uint beam = gid / k_width;
    uint out = gid % k_width;
    uint bin = (out < half_k) ? out : (nfft - k_width + out);
    float2 v = fftdata[beam*nfft + bin];
    complex_slim[beam*k_width+out] = v;
    magnitude_slim[beam*k_width+out] = sqrt(v.x*v.x + v.y*v.y);
}
`

// reduceKernelSource matches the PeakRecord layout exactly:
// {u32 index, f32 magnitude, f32 phase, u32 pad}. One work-group per beam;
// each iteration finds the current maximum (tie-break: smaller index) via
// local-memory tree reduction, then marks it with the sentinel magnitude
// -1 so later iterations skip it.
const reduceKernelSource = `
typedef struct {
    uint index;
    float magnitude;
    float phase;
    uint pad;
} PeakRecord;

__kernel void fft_reduce(
    __global const float2* complex_slim,
    __global float* magnitude_slim,
    __global PeakRecord* out_peaks,
    const uint k_width,
    const uint max_peaks)
{
    uint beam = get_group_id(0);
    uint lid = get_local_id(0);
    uint lsize = get_local_size(0);

    __local float lmag[256];
    __local uint lidx[256];

    __global float* mags = magnitude_slim + beam * k_width;

    for (uint p = 0; p < max_peaks; p++) {
        float best = -1.0f;
        uint best_idx = 0xFFFFFFFFu;
        for (uint i = lid; i < k_width; i += lsize) {
            float m = mags[i];
            if (m > best || (m == best && i < best_idx)) {
                best = m;
                best_idx = i;
            }
        }
        lmag[lid] = best;
        lidx[lid] = best_idx;
        barrier(CLK_LOCAL_MEM_FENCE);

        for (uint stride = lsize / 2; stride > 0; stride >>= 1) {
            if (lid < stride) {
                float om = lmag[lid + stride];
                uint oi = lidx[lid + stride];
                if (om > lmag[lid] || (om == lmag[lid] && oi < lidx[lid])) {
                    lmag[lid] = om;
                    lidx[lid] = oi;
                }
            }
            barrier(CLK_LOCAL_MEM_FENCE);
        }

        if (lid == 0) {
            uint slot = beam * max_peaks + p;
            PeakRecord rec;
            if (lmag[0] < 0.0f) {
                rec.index = 0xFFFFFFFFu;
                rec.magnitude = 0.0f;
                rec.phase = 0.0f;
                rec.pad = 0;
            } else {
                uint chosen = lidx[0];
                float2 c = complex_slim[beam * k_width + chosen];
                float phase = atan2(c.y, c.x) * (180.0f / M_PI_F);
                if (phase >= 180.0f) phase -= 360.0f;
                if (phase < -180.0f) phase += 360.0f;
                rec.index = chosen;
                rec.magnitude = lmag[0];
                rec.phase = phase;
                rec.pad = 0;
                mags[chosen] = -1.0f;
            }
            out_peaks[slot] = rec;
        }
        barrier(CLK_GLOBAL_MEM_FENCE);
    }
}
`

const reduceLocalWorkSize = 256
