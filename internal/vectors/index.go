// Package vectors maintains a cosine-similarity prefilter index over the
// spectral library. Each stored spectrum is resampled to a fixed dimension
// and L2-normalized; the resulting vector is its own embedding, so no
// external embedding service is involved.
package vectors

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/philippgille/chromem-go"

	"github.com/lox/spectral-search-sdk/internal/types"
)

// EmbeddingDim is the fixed resample dimension used for prefilter vectors.
const EmbeddingDim = 256

// Result is a single prefilter hit.
type Result struct {
	// ID is the library spectrum ID.
	ID string
	// Similarity is the cosine similarity (0.0-1.0 for non-negative spectra).
	Similarity float32
}

// Index wraps a persistent chromem-go collection of spectrum vectors.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
	logger     *log.Logger
}

// New opens (creating if needed) the vector index under dataDir.
func New(dataDir string, logger *log.Logger) (*Index, error) {
	dbPath := filepath.Join(dataDir, "chromem-go")

	db, err := chromem.NewPersistentDB(dbPath, true)
	if err != nil {
		return nil, fmt.Errorf("failed to create chromem database: %w", err)
	}

	collection, err := db.GetOrCreateCollection("spectra", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	logger.Debug("Opened spectrum vector index", "path", dbPath, "document_count", collection.Count())

	return &Index{db: db, collection: collection, logger: logger}, nil
}

// Embed converts a spectrum into its prefilter vector: resampled onto a
// uniform EmbeddingDim grid over its own X range, then L2-normalized.
func Embed(s types.Spectrum) []float32 {
	resampled := types.Normalize(s.Resample(s.FirstX, s.LastX, EmbeddingDim))
	out := make([]float32, len(resampled))
	for i, v := range resampled {
		out[i] = float32(v)
	}
	return out
}

// Add indexes a spectrum under its library ID.
func (ix *Index) Add(ctx context.Context, s types.Spectrum) error {
	if s.ID == "" {
		return fmt.Errorf("spectrum %q has no ID", s.Name)
	}
	doc, err := chromem.NewDocument(ctx, s.ID, map[string]string{
		"technique": strconv.FormatUint(uint64(s.Technique), 10),
	}, Embed(s), s.ID, nil)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	if err := ix.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to index spectrum %s: %w", s.ID, err)
	}
	return nil
}

// Query returns up to limit spectra of the given technique ranked by cosine
// similarity to the query spectrum, most similar first.
func (ix *Index) Query(ctx context.Context, query types.Spectrum, limit int) ([]Result, error) {
	count := ix.collection.Count()
	if count == 0 {
		return nil, nil
	}

	where := map[string]string{
		"technique": strconv.FormatUint(uint64(query.Technique), 10),
	}
	results, err := ix.collection.QueryEmbedding(ctx, Embed(query), count, where, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query spectrum index: %w", err)
	}

	hits := make([]Result, 0, len(results))
	for _, r := range results {
		hits = append(hits, Result{ID: r.ID, Similarity: r.Similarity})
	}
	sort.Slice(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Remove drops a spectrum from the index.
func (ix *Index) Remove(ctx context.Context, id string) error {
	return ix.collection.Delete(ctx, nil, nil, id)
}

// Count returns the number of indexed spectra.
func (ix *Index) Count() int {
	return ix.collection.Count()
}

// Close is a no-op: chromem persists on every write.
func (ix *Index) Close() error {
	return nil
}
