package sqlite

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// float32ArrayToBLOB converts a []float32 to a little-endian BLOB.
func float32ArrayToBLOB(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(v))
	}
	return buf
}

// blobToFloat32Array converts a BLOB back to a float32 array. This is the
// inverse of float32ArrayToBLOB.
func blobToFloat32Array(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, errors.Errorf("invalid BLOB length: %d is not a multiple of 4", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		bits := binary.LittleEndian.Uint32(blob[i*4 : i*4+4])
		vec[i] = math.Float32frombits(bits)
	}
	return vec, nil
}

// cosineDistance computes the cosine distance (1 - cosine similarity) between
// two vectors, matching the range of pgvector's <=> operator: 0 = identical
// direction, 2 = opposite. Mismatched dimensions or a zero vector yield the
// maximum distance.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 2
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
