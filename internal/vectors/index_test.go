package vectors

import (
	"context"
	"io"
	"math"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/spectral-search-sdk/internal/types"
)

func gaussian(center, width float64, n int, firstX, lastX float64) []float64 {
	y := make([]float64, n)
	for i := range y {
		x := firstX + (lastX-firstX)*float64(i)/float64(n-1)
		y[i] = math.Exp(-((x - center) * (x - center)) / (2 * width * width))
	}
	return y
}

func spectrumNamed(id, name string, center float64) types.Spectrum {
	return types.Spectrum{
		ID:        id,
		Name:      name,
		Technique: types.TechniqueRaman,
		XUnit:     types.XUnitWavenumbers,
		YUnit:     types.YUnitArbitraryIntensity,
		FirstX:    200,
		LastX:     3200,
		Y:         gaussian(center, 80, 400, 200, 3200),
	}
}

func TestEmbedIsUnitNorm(t *testing.T) {
	emb := Embed(spectrumNamed("a", "A", 1000))
	require.Len(t, emb, EmbeddingDim)

	var sum float64
	for _, v := range emb {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
}

func TestQueryRanksBySimilarity(t *testing.T) {
	logger := log.New(io.Discard)
	ix, err := New(t.TempDir(), logger)
	require.NoError(t, err)
	ctx := context.Background()

	near := spectrumNamed("near", "Near", 1010)
	far := spectrumNamed("far", "Far", 2500)
	require.NoError(t, ix.Add(ctx, near))
	require.NoError(t, ix.Add(ctx, far))

	query := spectrumNamed("", "Query", 1000)
	hits, err := ix.Query(ctx, query, 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "near", hits[0].ID)
	assert.Greater(t, hits[0].Similarity, hits[1].Similarity)
}

func TestQueryFiltersByTechnique(t *testing.T) {
	logger := log.New(io.Discard)
	ix, err := New(t.TempDir(), logger)
	require.NoError(t, err)
	ctx := context.Background()

	raman := spectrumNamed("raman", "Raman", 1000)
	ftir := spectrumNamed("ftir", "FTIR", 1000)
	ftir.Technique = types.TechniqueFTIR
	require.NoError(t, ix.Add(ctx, raman))
	require.NoError(t, ix.Add(ctx, ftir))

	query := spectrumNamed("", "Query", 1000)
	hits, err := ix.Query(ctx, query, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "raman", hits[0].ID)
}

func TestRemove(t *testing.T) {
	logger := log.New(io.Discard)
	ix, err := New(t.TempDir(), logger)
	require.NoError(t, err)
	ctx := context.Background()

	s := spectrumNamed("gone", "Gone", 1000)
	require.NoError(t, ix.Add(ctx, s))
	require.Equal(t, 1, ix.Count())

	require.NoError(t, ix.Remove(ctx, "gone"))
	assert.Zero(t, ix.Count())
}

func TestQueryEmptyIndex(t *testing.T) {
	logger := log.New(io.Discard)
	ix, err := New(t.TempDir(), logger)
	require.NoError(t, err)

	hits, err := ix.Query(context.Background(), spectrumNamed("", "Q", 1000), 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
