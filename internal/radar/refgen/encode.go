package refgen

import (
	"encoding/binary"
	"math"
)

func putFloat32(buf []byte, offset int, v float32) {
	binary.LittleEndian.PutUint32(buf[offset:], math.Float32bits(v))
}
