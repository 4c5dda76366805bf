package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0.0, CosineDistance([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 1.0, CosineDistance([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 2.0, CosineDistance([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 2.0, CosineDistance([]float32{1}, []float32{1, 0}))
	assert.Equal(t, 2.0, CosineDistance([]float32{0, 0}, []float32{1, 0}))
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := Normalize([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)
}
