// Package similarity scores pairs of embedding vectors.
//
// Numeric edge cases are reported as errors instead of producing NaN:
//
//	len(a) != len(b)       ErrDimensionMismatch
//	len(a) == 0            ErrEmptyVector
//	|a| == 0 or |b| == 0   ErrZeroVector
//
// Cosine results are clamped to [-1, 1] so rounding never escapes the range.
package similarity

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrDimensionMismatch = errors.New("similarity: dimension mismatch")
	ErrEmptyVector       = errors.New("similarity: empty vector")
	ErrZeroVector        = errors.New("similarity: zero-magnitude vector")
)

// Cosine computes the cosine similarity between two vectors
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, ErrEmptyVector
	}

	var dot, na2, nb2 float64
	for i := range a {
		va := float64(a[i])
		vb := float64(b[i])
		dot += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 0, ErrZeroVector
	}

	return clamp(dot / (math.Sqrt(na2) * math.Sqrt(nb2))), nil
}

// Magnitude returns the Euclidean norm of v
func Magnitude(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func clamp(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}
