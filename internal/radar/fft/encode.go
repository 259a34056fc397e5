package fft

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/radar/types"
)

// peakRecordBytes is sizeof(PeakRecord) on the device: u32 + f32 + f32 + u32.
const peakRecordBytes = 16

func decodePeakRecord(buf []byte, offset int) types.PeakRecord {
	index := binary.LittleEndian.Uint32(buf[offset:])
	magnitude := math.Float32frombits(binary.LittleEndian.Uint32(buf[offset+4:]))
	phase := math.Float32frombits(binary.LittleEndian.Uint32(buf[offset+8:]))
	return types.PeakRecord{Index: index, Magnitude: magnitude, PhaseDeg: phase}
}

// nowMS is host wall-clock milliseconds, used only for Run's overall
// TotalMS: that figure spans multiple concurrent per-stream batches, not
// one device event, so it has no single kernel timestamp to read. Every
// per-stage timing (upload/fft/post/reduction) instead comes from device
// event profiling in runBatch.
func nowMS() float64 {
	return float64(time.Now().UnixNano()) / 1e6
}
