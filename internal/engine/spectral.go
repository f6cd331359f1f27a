package engine

import (
	"github.com/lox/spectral-search-sdk/internal/types"
)

// spectralSearch scores each candidate by Pearson correlation against the
// query on a shared uniform grid. Negative correlations score 0.
func (e *Engine) spectralSearch(sess *Session, query types.Spectrum, candidates []types.Spectrum) []types.SearchResult {
	grid := query.Resample(query.FirstX, query.LastX, scoringGridSize)

	results := make([]types.SearchResult, 0, len(candidates))
	for i, cand := range candidates {
		if sess.isCancelled() {
			break
		}

		candGrid := cand.Resample(query.FirstX, query.LastX, scoringGridSize)
		r := types.Pearson(grid, candGrid)
		if r < 0 {
			r = 0
		}

		results = append(results, types.SearchResult{
			Flags: spectralFlags(cand),
			Match: types.Match{
				Percentage: r * 100,
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

func spectralFlags(cand types.Spectrum) types.MatchFlag {
	flags := types.MatchFlagSpectralSearchResult
	if !cand.Licensed {
		flags |= types.MatchFlagLocked
	}
	return flags
}
