package engine

import (
	"fmt"

	"github.com/lox/spectral-search-sdk/internal/types"
)

const (
	// defaultMaxComponents caps the greedy decomposition depth.
	defaultMaxComponents = 5
	// minEnergyGain stops the decomposition once a component explains
	// less than this fraction of the query's energy.
	minEnergyGain = 0.01
)

// mixtureSearch decomposes the query into a non-negative weighted sum of
// library spectra plus a residual, greedily: at each step it projects the
// current residual onto every remaining candidate and subtracts the best
// fit. The result list carries the composite first, then the components in
// pick order, then the residual.
func (e *Engine) mixtureSearch(sess *Session, query types.Spectrum, candidates []types.Spectrum, maxComponents int) []types.SearchResult {
	if maxComponents <= 0 {
		maxComponents = defaultMaxComponents
	}

	grid := query.Resample(query.FirstX, query.LastX, scoringGridSize)
	queryEnergy := dot(grid, grid)
	if queryEnergy == 0 || len(candidates) == 0 {
		return nil
	}

	candGrids := make([][]float64, len(candidates))
	for i, cand := range candidates {
		candGrids[i] = cand.Resample(query.FirstX, query.LastX, scoringGridSize)
	}

	type component struct {
		spectrum types.Spectrum
		weight   float64
		corr     float64
	}

	residual := make([]float64, len(grid))
	copy(residual, grid)
	used := make(map[int]bool)
	var components []component

	// Progress covers the component picks; each pick scans all candidates.
	for step := 0; step < maxComponents; step++ {
		if sess.isCancelled() {
			break
		}

		best := -1
		bestCorr := 0.0
		for i := range candidates {
			if used[i] {
				continue
			}
			r := types.Pearson(residual, candGrids[i])
			if r > bestCorr {
				bestCorr = r
				best = i
			}
		}
		if best < 0 {
			break
		}

		// Least-squares weight of the candidate against the residual,
		// clamped non-negative.
		denom := dot(candGrids[best], candGrids[best])
		if denom == 0 {
			used[best] = true
			continue
		}
		weight := dot(residual, candGrids[best]) / denom
		if weight <= 0 {
			break
		}

		before := dot(residual, residual)
		for j := range residual {
			residual[j] -= weight * candGrids[best][j]
		}
		after := dot(residual, residual)
		if (before-after)/queryEnergy < minEnergyGain {
			// Restore: the component does not pull its weight.
			for j := range residual {
				residual[j] += weight * candGrids[best][j]
			}
			break
		}

		used[best] = true
		components = append(components, component{
			spectrum: candidates[best],
			weight:   weight,
			corr:     bestCorr,
		})
		sess.setProgress(float64(step+1) * 100 / float64(maxComponents))
	}

	if len(components) == 0 {
		return nil
	}

	residualEnergy := dot(residual, residual)
	explained := 1 - residualEnergy/queryEnergy
	if explained < 0 {
		explained = 0
	}

	// Component weights are reported as fractions of the total weight so
	// they land in the wire format's 0-1 range.
	var totalWeight float64
	for _, c := range components {
		totalWeight += c.weight
	}

	results := make([]types.SearchResult, 0, len(components)+2)
	results = append(results, types.SearchResult{
		Flags: types.MatchFlagComposite,
		Match: types.Match{
			Percentage: explained * 100,
			Name:       fmt.Sprintf("Composite of %d components", len(components)),
		},
	})
	for _, c := range components {
		flags := types.MatchFlagComponent
		if !c.spectrum.Licensed {
			flags |= types.MatchFlagLocked
		}
		results = append(results, types.SearchResult{
			Flags: flags,
			Match: types.Match{
				Percentage: c.corr * 100,
				Name:       c.spectrum.Name,
				Locked:     !c.spectrum.Licensed,
			},
			ComponentWeight: c.weight / totalWeight,
			SpectrumID:      c.spectrum.ID,
		})
	}
	results = append(results, types.SearchResult{
		Flags: types.MatchFlagResidual,
		Match: types.Match{
			Percentage: (1 - explained) * 100,
			Name:       "Residual",
		},
		ComponentWeight: residualEnergy / queryEnergy,
	})
	return results
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
