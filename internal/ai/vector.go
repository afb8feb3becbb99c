package ai

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// CosineSimilarity calculates the similarity between two vectors (-1.0 to 1.0).
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dotProduct, magA, magB float32
	for i := 0; i < len(a); i++ {
		dotProduct += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dotProduct / (float32(math.Sqrt(float64(magA))) * float32(math.Sqrt(float64(magB))))
}

// FloatsToBytes converts a []float32 slice to a little-endian BLOB for SQLite.
func FloatsToBytes(floats []float32) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, floats); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BytesToFloats converts the stored byte slice back to []float32.
func BytesToFloats(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid byte length %d for float32 slice", len(b))
	}
	floats := make([]float32, len(b)/4)
	err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &floats)
	return floats, err
}
