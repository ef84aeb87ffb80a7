package db

import (
	"encoding/binary"
	"math"
)

// VectorToString serializes a vector to the little-endian float32 byte layout
// the FT vector index expects for HASH fields and KNN BLOB params.
func VectorToString(v []float32) string {
	b := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return string(b)
}

// VectorFromString deserializes the little-endian float32 byte layout.
// Returns nil if the input length is not a multiple of 4.
func VectorFromString(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
