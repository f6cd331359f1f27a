package types

import (
	"fmt"
	"math"
)

// Spectrum is a single measured or reference spectrum. Evenly spaced spectra
// carry only Y values plus the FirstX/LastX bounds; unevenly spaced spectra
// carry explicit paired X values as well.
type Spectrum struct {
	ID        string
	Name      string
	Library   string
	Licensed  bool
	Technique Technique
	XUnit     XUnit
	YUnit     YUnit

	// FirstX and LastX bound the X axis. For unevenly spaced spectra they
	// are derived from the X array.
	FirstX float64
	LastX  float64

	// X is nil for evenly spaced spectra.
	X []float64
	Y []float64
}

// NewEvenlySpaced builds a spectrum from a uniform-interval intensity array.
func NewEvenlySpaced(technique Technique, y []float64, firstX, lastX float64, xUnit XUnit, yUnit YUnit) (Spectrum, error) {
	if len(y) < 2 {
		return Spectrum{}, fmt.Errorf("spectrum requires at least 2 points, got %d", len(y))
	}
	if firstX == lastX {
		return Spectrum{}, fmt.Errorf("degenerate X range [%v, %v]", firstX, lastX)
	}
	return Spectrum{
		Technique: technique,
		XUnit:     xUnit,
		YUnit:     yUnit,
		FirstX:    firstX,
		LastX:     lastX,
		Y:         y,
	}, nil
}

// NewUnevenlySpaced builds a spectrum from explicit paired X/Y arrays.
// X values must be strictly monotonic.
func NewUnevenlySpaced(technique Technique, x, y []float64, xUnit XUnit, yUnit YUnit) (Spectrum, error) {
	if len(x) != len(y) {
		return Spectrum{}, fmt.Errorf("x/y length mismatch: %d vs %d", len(x), len(y))
	}
	if len(x) < 2 {
		return Spectrum{}, fmt.Errorf("spectrum requires at least 2 points, got %d", len(x))
	}
	for i := 1; i < len(x); i++ {
		if (x[i]-x[i-1])*(x[1]-x[0]) <= 0 {
			return Spectrum{}, fmt.Errorf("x values not strictly monotonic at index %d", i)
		}
	}
	return Spectrum{
		Technique: technique,
		XUnit:     xUnit,
		YUnit:     yUnit,
		FirstX:    x[0],
		LastX:     x[len(x)-1],
		X:         x,
		Y:         y,
	}, nil
}

// Points returns the number of data points.
func (s Spectrum) Points() int {
	return len(s.Y)
}

// EvenlySpaced reports whether the spectrum carries an implicit uniform
// grid. An empty X array counts as evenly spaced so that spectra
// reconstructed from storage behave the same whether the array came back
// nil or zero-length.
func (s Spectrum) EvenlySpaced() bool {
	return len(s.X) == 0
}

// XAt returns the X value of point i.
func (s Spectrum) XAt(i int) float64 {
	if !s.EvenlySpaced() {
		return s.X[i]
	}
	if len(s.Y) == 1 {
		return s.FirstX
	}
	return s.FirstX + (s.LastX-s.FirstX)*float64(i)/float64(len(s.Y)-1)
}

// ValueAt linearly interpolates the intensity at x. X values outside the
// spectrum's range yield 0.
func (s Spectrum) ValueAt(x float64) float64 {
	lo, hi := s.FirstX, s.LastX
	if lo > hi {
		lo, hi = hi, lo
	}
	if x < lo || x > hi || len(s.Y) == 0 {
		return 0
	}
	if len(s.Y) == 1 {
		return s.Y[0]
	}
	if s.EvenlySpaced() {
		pos := (x - s.FirstX) / (s.LastX - s.FirstX) * float64(len(s.Y)-1)
		i := int(math.Floor(pos))
		if i >= len(s.Y)-1 {
			return s.Y[len(s.Y)-1]
		}
		frac := pos - float64(i)
		return s.Y[i]*(1-frac) + s.Y[i+1]*frac
	}
	// Uneven spacing: scan for the bracketing pair. Reference spectra are
	// small enough that a linear scan beats keeping an index around.
	ascending := s.X[1] > s.X[0]
	for i := 1; i < len(s.X); i++ {
		a, b := s.X[i-1], s.X[i]
		if !ascending {
			a, b = b, a
		}
		if x >= a && x <= b {
			if s.X[i] == s.X[i-1] {
				return s.Y[i]
			}
			frac := (x - s.X[i-1]) / (s.X[i] - s.X[i-1])
			return s.Y[i-1]*(1-frac) + s.Y[i]*frac
		}
	}
	return 0
}

// Resample interpolates the spectrum onto a uniform grid of n points
// spanning [firstX, lastX].
func (s Spectrum) Resample(firstX, lastX float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = s.ValueAt(firstX)
		return out
	}
	step := (lastX - firstX) / float64(n-1)
	for i := range out {
		out[i] = s.ValueAt(firstX + step*float64(i))
	}
	return out
}

// Normalize scales a vector to unit L2 norm in place and returns it.
// Zero vectors are returned unchanged.
func Normalize(v []float64) []float64 {
	var sum float64
	for _, y := range v {
		sum += y * y
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] /= norm
	}
	return v
}

// Pearson computes the Pearson correlation coefficient of two equal-length
// vectors. Constant vectors correlate at 0.
func Pearson(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	n := float64(len(a))
	var sumA, sumB float64
	for i := range a {
		sumA += a[i]
		sumB += b[i]
	}
	meanA, meanB := sumA/n, sumB/n
	var cov, varA, varB float64
	for i := range a {
		da, db := a[i]-meanA, b[i]-meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}
