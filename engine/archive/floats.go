package archive

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeFloats packs a fixed-length float32 vector (an Embedding, spec §3)
// into the raw byte record format the archive stores.
func EncodeFloats(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DecodeFloats unpacks a record written by EncodeFloats.
func DecodeFloats(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("archive: float record length %d not a multiple of 4", len(buf))
	}
	out := make([]float32, len(buf)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out, nil
}
