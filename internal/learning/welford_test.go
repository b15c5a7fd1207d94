package learning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runWelford(xs []float64) (int64, float64, float64) {
	var n int64
	var mean, m2 float64
	for _, x := range xs {
		n, mean, m2 = UpdateWelford(n, mean, m2, x)
	}
	return n, mean, m2
}

func TestUpdateWelfordMatchesDirectComputation(t *testing.T) {
	xs := []float64{540, 610, 480, 505, 587, 622, 498}

	n, mean, m2 := runWelford(xs)
	require.EqualValues(t, len(xs), n)

	var sum float64
	for _, x := range xs {
		sum += x
	}
	directMean := sum / float64(len(xs))

	var sumSq float64
	for _, x := range xs {
		sumSq += (x - directMean) * (x - directMean)
	}

	assert.InDelta(t, directMean, mean, 1e-9)
	assert.InDelta(t, sumSq/float64(len(xs)), VarianceFromM2(m2, n), 1e-9)
}

func TestUpdateWelfordOrderIndependent(t *testing.T) {
	a := []float64{300, 450, 290, 510, 333}
	b := []float64{510, 290, 333, 300, 450}

	nA, meanA, m2A := runWelford(a)
	nB, meanB, m2B := runWelford(b)

	assert.Equal(t, nA, nB)
	assert.InDelta(t, meanA, meanB, 1e-9)
	assert.InDelta(t, m2A, m2B, 1e-9)
}

func TestVarianceFromM2BelowTwoSamples(t *testing.T) {
	assert.Zero(t, VarianceFromM2(0, 0))
	assert.Zero(t, VarianceFromM2(123.4, 1))
	assert.InDelta(t, 50.0, VarianceFromM2(100, 2), 1e-9)
}

func TestUpdateWelfordSingleObservation(t *testing.T) {
	n, mean, m2 := UpdateWelford(0, 0, 0, 420)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, 420.0, mean)
	assert.Zero(t, m2)
}
