package metastore

import (
	"encoding/binary"
	"math"
)

// encodeVector serializes a float32 slice as little-endian binary32 words,
// the same numeric convention as the KWI container's payload region (spec.md
// §6), so a value round-trips identically whichever store reads it back.
func encodeVector(data []float32) []byte {
	buf := make([]byte, len(data)*4)
	for i, v := range data {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte, dim int) []float32 {
	out := make([]float32, dim)
	for i := range out {
		if (i+1)*4 > len(buf) {
			break
		}
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4 : i*4+4]))
	}
	return out
}
