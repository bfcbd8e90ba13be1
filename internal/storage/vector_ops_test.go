package storage

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorSerialization(t *testing.T) {
	tests := []struct {
		name   string
		vector []float32
	}{
		{"empty", []float32{}},
		{"single", []float32{1.5}},
		{"mixed signs", []float32{-1, 0, 1, 0.25}},
		{"extremes", []float32{math.MaxFloat32, math.SmallestNonzeroFloat32, float32(math.Inf(1))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob := SerializeVector(tt.vector)
			assert.Len(t, blob, len(tt.vector)*4)

			got, err := DeserializeVector(blob)
			require.NoError(t, err)
			assert.Equal(t, tt.vector, got)
		})
	}
}

func TestDeserializeVector_Corrupt(t *testing.T) {
	_, err := DeserializeVector([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrCorruptVector)
}

func TestSerializeVector_LittleEndian(t *testing.T) {
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, SerializeVector([]float32{1}))
}
