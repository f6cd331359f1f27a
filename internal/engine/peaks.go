package engine

import (
	"math"

	"github.com/lox/spectral-search-sdk/internal/types"
)

// Peak is a local intensity maximum in a spectrum.
type Peak struct {
	X         float64
	Intensity float64
}

const (
	// peakNeighbourhood is the number of grid points a maximum must
	// dominate on each side.
	peakNeighbourhood = 3
	// peakMinSigma is how far above the mean (in standard deviations) a
	// point must rise to count as a peak.
	peakMinSigma = 1.5
	// peakMatchTolerance is the matching window between query and
	// candidate peaks, as a fraction of the query's X range.
	peakMatchTolerance = 0.01
)

// ExtractPeaks finds local maxima that rise clearly above the baseline.
// The spectrum is scanned on its scoring grid so evenly and unevenly spaced
// spectra behave the same.
func ExtractPeaks(s types.Spectrum) []Peak {
	grid := s.Resample(s.FirstX, s.LastX, scoringGridSize)

	var sum, sumSq float64
	for _, y := range grid {
		sum += y
		sumSq += y * y
	}
	n := float64(len(grid))
	mean := sum / n
	std := math.Sqrt(math.Max(0, sumSq/n-mean*mean))
	threshold := mean + peakMinSigma*std

	step := (s.LastX - s.FirstX) / float64(len(grid)-1)

	var peaks []Peak
	for i := peakNeighbourhood; i < len(grid)-peakNeighbourhood; i++ {
		y := grid[i]
		if y < threshold {
			continue
		}
		isMax := true
		for d := -peakNeighbourhood; d <= peakNeighbourhood; d++ {
			if d != 0 && grid[i+d] >= y {
				isMax = false
				break
			}
		}
		if isMax {
			peaks = append(peaks, Peak{X: s.FirstX + step*float64(i), Intensity: y})
		}
	}
	return peaks
}

// peakSearch scores each candidate by the fraction of query peaks that have
// a candidate peak within the matching tolerance.
func (e *Engine) peakSearch(sess *Session, query types.Spectrum, candidates []types.Spectrum) []types.SearchResult {
	queryPeaks := ExtractPeaks(query)
	tolerance := math.Abs(query.LastX-query.FirstX) * peakMatchTolerance

	results := make([]types.SearchResult, 0, len(candidates))
	for i, cand := range candidates {
		if sess.isCancelled() {
			break
		}

		pct := 0.0
		if len(queryPeaks) > 0 {
			candPeaks := ExtractPeaks(cand)
			matched := 0
			for _, qp := range queryPeaks {
				for _, cp := range candPeaks {
					if math.Abs(qp.X-cp.X) <= tolerance {
						matched++
						break
					}
				}
			}
			pct = float64(matched) * 100 / float64(len(queryPeaks))
		}

		flags := types.MatchFlagPeakSearchResult
		if !cand.Licensed {
			flags |= types.MatchFlagLocked
		}
		results = append(results, types.SearchResult{
			Flags: flags,
			Match: types.Match{
				Percentage: pct,
				Name:       cand.Name,
				Locked:     !cand.Licensed,
			},
			SpectrumID: cand.ID,
		})
		sess.setProgress(float64(i+1) * 100 / float64(len(candidates)))
	}

	sortByPercentage(results)
	return results
}
