package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvenlySpacedValidation(t *testing.T) {
	_, err := NewEvenlySpaced(TechniqueFTIR, []float64{1}, 400, 4000, XUnitWavenumbers, YUnitAbsorbance)
	assert.Error(t, err)

	_, err = NewEvenlySpaced(TechniqueFTIR, []float64{1, 2}, 400, 400, XUnitWavenumbers, YUnitAbsorbance)
	assert.Error(t, err)

	s, err := NewEvenlySpaced(TechniqueFTIR, []float64{1, 2, 3}, 400, 4000, XUnitWavenumbers, YUnitAbsorbance)
	require.NoError(t, err)
	assert.True(t, s.EvenlySpaced())
	assert.Equal(t, 3, s.Points())
}

func TestNewUnevenlySpacedRequiresMonotonicX(t *testing.T) {
	_, err := NewUnevenlySpaced(TechniqueRaman, []float64{1, 3, 2}, []float64{1, 2, 3}, XUnitWavenumbers, YUnitArbitraryIntensity)
	assert.Error(t, err)

	// Descending is fine as long as it stays descending.
	s, err := NewUnevenlySpaced(TechniqueRaman, []float64{10, 5, 1}, []float64{1, 2, 3}, XUnitWavenumbers, YUnitArbitraryIntensity)
	require.NoError(t, err)
	assert.Equal(t, 10.0, s.FirstX)
	assert.Equal(t, 1.0, s.LastX)
}

func TestXAt(t *testing.T) {
	s, err := NewEvenlySpaced(TechniqueFTIR, []float64{0, 0, 0, 0, 0}, 100, 500, XUnitWavenumbers, YUnitAbsorbance)
	require.NoError(t, err)

	assert.Equal(t, 100.0, s.XAt(0))
	assert.Equal(t, 300.0, s.XAt(2))
	assert.Equal(t, 500.0, s.XAt(4))
}

func TestValueAtInterpolation(t *testing.T) {
	even, err := NewEvenlySpaced(TechniqueFTIR, []float64{0, 10, 20}, 0, 2, XUnitWavenumbers, YUnitAbsorbance)
	require.NoError(t, err)

	assert.InDelta(t, 5.0, even.ValueAt(0.5), 1e-12)
	assert.InDelta(t, 10.0, even.ValueAt(1), 1e-12)
	assert.Equal(t, 0.0, even.ValueAt(-1), "outside range is zero")
	assert.Equal(t, 0.0, even.ValueAt(3))

	uneven, err := NewUnevenlySpaced(TechniqueFTIR, []float64{0, 1, 4}, []float64{0, 10, 40}, XUnitWavenumbers, YUnitAbsorbance)
	require.NoError(t, err)

	assert.InDelta(t, 20.0, uneven.ValueAt(2), 1e-12)
	assert.Equal(t, 0.0, uneven.ValueAt(5))
}

func TestEmptyXArrayCountsAsEvenlySpaced(t *testing.T) {
	// Storage layers can reconstruct a spectrum with a zero-length X
	// array where the original had nil; both must behave identically.
	s, err := NewEvenlySpaced(TechniqueFTIR, []float64{0, 10, 20}, 0, 2, XUnitWavenumbers, YUnitAbsorbance)
	require.NoError(t, err)
	s.X = []float64{}

	assert.True(t, s.EvenlySpaced())
	assert.NotPanics(t, func() {
		assert.InDelta(t, 5.0, s.ValueAt(0.5), 1e-12)
		assert.Equal(t, 1.0, s.XAt(1))
	})
}

func TestResample(t *testing.T) {
	s, err := NewEvenlySpaced(TechniqueFTIR, []float64{0, 10, 20, 30}, 0, 3, XUnitWavenumbers, YUnitAbsorbance)
	require.NoError(t, err)

	out := s.Resample(0, 3, 7)
	require.Len(t, out, 7)
	assert.InDelta(t, 0.0, out[0], 1e-12)
	assert.InDelta(t, 15.0, out[3], 1e-12)
	assert.InDelta(t, 30.0, out[6], 1e-12)
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float64{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-12)
	assert.InDelta(t, 0.8, v[1], 1e-12)

	zero := Normalize([]float64{0, 0})
	assert.Equal(t, []float64{0, 0}, zero)
}

func TestPearson(t *testing.T) {
	a := []float64{1, 2, 3, 4}

	assert.InDelta(t, 1.0, Pearson(a, []float64{2, 4, 6, 8}), 1e-12)
	assert.InDelta(t, -1.0, Pearson(a, []float64{4, 3, 2, 1}), 1e-12)
	assert.Equal(t, 0.0, Pearson(a, []float64{5, 5, 5, 5}), "constant vector")
	assert.Equal(t, 0.0, Pearson(a, []float64{1, 2}), "length mismatch")

	// Correlation is scale and offset invariant.
	b := []float64{1.3, 0.2, 2.7, 0.9}
	shifted := make([]float64, len(b))
	for i, v := range b {
		shifted[i] = 5*v + 100
	}
	assert.InDelta(t, 1.0, Pearson(b, shifted), 1e-12)
	assert.False(t, math.IsNaN(Pearson(b, b)))
}
