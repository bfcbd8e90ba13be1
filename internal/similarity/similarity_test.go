package similarity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name    string
		a, b    []float32
		want    float64
		wantErr error
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1, nil},
		{"scaled", []float32{1, 2, 3}, []float32{2, 4, 6}, 1, nil},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0, nil},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1, nil},
		{"dimension mismatch", []float32{1, 2}, []float32{1, 2, 3}, 0, ErrDimensionMismatch},
		{"empty", []float32{}, []float32{}, 0, ErrEmptyVector},
		{"nil", nil, nil, 0, ErrEmptyVector},
		{"zero left", []float32{0, 0}, []float32{1, 1}, 0, ErrZeroVector},
		{"zero right", []float32{1, 1}, []float32{0, 0}, 0, ErrZeroVector},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Cosine(tt.a, tt.b)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.False(t, math.IsNaN(got))
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestCosine_StaysInRange(t *testing.T) {
	v := []float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7}
	got, err := Cosine(v, v)
	require.NoError(t, err)
	assert.LessOrEqual(t, got, 1.0)
	assert.GreaterOrEqual(t, got, -1.0)
}

func TestMagnitude(t *testing.T) {
	assert.Equal(t, 5.0, Magnitude([]float32{3, 4}))
	assert.Equal(t, 0.0, Magnitude(nil))
}
