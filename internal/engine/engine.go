// Package engine implements the reference search engine behind the SDK
// surface: session management, spectral correlation search, peak search and
// greedy mixture decomposition over a SQLite-backed spectral library with a
// vector prefilter.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/spectral-search-sdk/internal/library"
	"github.com/lox/spectral-search-sdk/internal/types"
	"github.com/lox/spectral-search-sdk/internal/vectors"
)

var (
	// ErrUnknownSession is returned for closed or never-opened handles.
	ErrUnknownSession = errors.New("engine: unknown search session")
	// ErrSearchRunning is returned when a second search is started on a
	// session that is already running one.
	ErrSearchRunning = errors.New("engine: search already running on this session")
	// ErrClosed is returned after the engine has been shut down.
	ErrClosed = errors.New("engine: engine is closed")
)

// SearchKind selects the matching strategy.
type SearchKind int

const (
	// KindSpectral scores candidates by full-spectrum correlation.
	KindSpectral SearchKind = iota
	// KindPeak scores candidates by matched peak positions.
	KindPeak
	// KindMixture decomposes the query into a weighted sum of library
	// spectra plus a residual.
	KindMixture
)

const (
	// defaultPrefilterLimit caps how many candidates survive the vector
	// prefilter before exact scoring.
	defaultPrefilterLimit = 64
	// scoringGridSize is the uniform grid exact scoring resamples onto.
	scoringGridSize = 1024
)

type searchOptions struct {
	kind           SearchKind
	prefilterLimit int
	maxComponents  int
}

// SearchOption adjusts a single search call.
type SearchOption func(*searchOptions)

// WithKind selects the matching strategy (default spectral).
func WithKind(kind SearchKind) SearchOption {
	return func(o *searchOptions) {
		o.kind = kind
	}
}

// WithPrefilterLimit overrides how many candidates the vector prefilter
// passes on to exact scoring.
func WithPrefilterLimit(limit int) SearchOption {
	return func(o *searchOptions) {
		o.prefilterLimit = limit
	}
}

// WithMaxComponents caps the mixture decomposition depth.
func WithMaxComponents(n int) SearchOption {
	return func(o *searchOptions) {
		o.maxComponents = n
	}
}

// Engine owns the spectral library, the prefilter index and all open
// sessions.
type Engine struct {
	db     *library.DB
	index  *vectors.Index
	logger *log.Logger

	mu       sync.Mutex
	sessions map[SessionID]*Session
	closed   bool

	warmOnce sync.Once
	warmErr  error
}

// New creates an engine over an opened library and index.
func New(db *library.DB, index *vectors.Index, logger *log.Logger) *Engine {
	return &Engine{
		db:       db,
		index:    index,
		logger:   logger,
		sessions: make(map[SessionID]*Session),
	}
}

// Warm scans the library and backfills any spectra missing from the vector
// index so the first search does not pay for discovery. Idempotent; safe to
// run in the background right after start-up.
func (e *Engine) Warm(ctx context.Context) error {
	e.warmOnce.Do(func() {
		e.warmErr = e.warm(ctx)
	})
	return e.warmErr
}

func (e *Engine) warm(ctx context.Context) error {
	spectra, err := e.db.List(ctx)
	if err != nil {
		return fmt.Errorf("scan library: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, s := range spectra {
		g.Go(func() error {
			if err := e.index.Add(ctx, s); err != nil {
				// Already-indexed spectra collide on ID; that is the
				// common warm path, not a failure.
				e.logger.Debug("Skipping index backfill", "id", s.ID, "reason", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	e.logger.Info("Library warm scan complete", "spectra", len(spectra), "indexed", e.index.Count())
	return nil
}

// Open creates a search session and returns its handle.
func (e *Engine) Open() (SessionID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return "", ErrClosed
	}
	sess := newSession()
	e.sessions[sess.id] = sess
	e.logger.Debug("Opened search session", "session", sess.id)
	return sess.id, nil
}

// CloseSession invalidates a handle and drops the results retained for it.
func (e *Engine) CloseSession(id SessionID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	sess, ok := e.sessions[id]
	if !ok {
		return ErrUnknownSession
	}
	sess.Cancel()
	sess.setResults(nil)
	delete(e.sessions, id)
	e.logger.Debug("Closed search session", "session", id)
	return nil
}

// Cancel requests cancellation of the search running on id. Call from a
// goroutine other than the one running the search.
func (e *Engine) Cancel(id SessionID) error {
	sess, err := e.session(id)
	if err != nil {
		return err
	}
	sess.Cancel()
	return nil
}

// Progress returns the 0-100 progress of the search running on id. Call
// from a goroutine other than the one running the search.
func (e *Engine) Progress(id SessionID) (float64, error) {
	sess, err := e.session(id)
	if err != nil {
		return 0, err
	}
	return sess.Progress(), nil
}

// Results returns the retained results of the last search on id. They stay
// valid until the session is closed.
func (e *Engine) Results(id SessionID) ([]types.SearchResult, error) {
	sess, err := e.session(id)
	if err != nil {
		return nil, err
	}
	return sess.Results(), nil
}

// Close shuts the engine down: cancels running searches and invalidates all
// sessions. The library and index are owned by the caller and stay open.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, sess := range e.sessions {
		sess.Cancel()
		delete(e.sessions, id)
	}
	e.closed = true
}

func (e *Engine) session(id SessionID) (*Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	sess, ok := e.sessions[id]
	if !ok {
		return nil, ErrUnknownSession
	}
	return sess, nil
}

// SearchEvenlySpaced runs a synchronous search for a uniform-interval
// intensity array. It fills buf with at most len(buf) results and returns
// how many were written; the search blocks the calling goroutine until
// completion or cancellation.
func (e *Engine) SearchEvenlySpaced(ctx context.Context, id SessionID, technique types.Technique,
	y []float64, firstX, lastX float64, xUnit types.XUnit, yUnit types.YUnit,
	buf []types.SearchResult, opts ...SearchOption) (int, error) {

	query, err := types.NewEvenlySpaced(technique, y, firstX, lastX, xUnit, yUnit)
	if err != nil {
		return 0, fmt.Errorf("invalid query spectrum: %w", err)
	}
	return e.Search(ctx, id, query, buf, opts...)
}

// SearchUnevenlySpaced runs a synchronous search for explicit paired X/Y
// arrays. Same buffer contract as SearchEvenlySpaced.
func (e *Engine) SearchUnevenlySpaced(ctx context.Context, id SessionID, technique types.Technique,
	x, y []float64, xUnit types.XUnit, yUnit types.YUnit,
	buf []types.SearchResult, opts ...SearchOption) (int, error) {

	query, err := types.NewUnevenlySpaced(technique, x, y, xUnit, yUnit)
	if err != nil {
		return 0, fmt.Errorf("invalid query spectrum: %w", err)
	}
	return e.Search(ctx, id, query, buf, opts...)
}

// Search runs a synchronous search for an already-built query spectrum.
func (e *Engine) Search(ctx context.Context, id SessionID, query types.Spectrum,
	buf []types.SearchResult, opts ...SearchOption) (int, error) {

	options := searchOptions{
		kind:           KindSpectral,
		prefilterLimit: defaultPrefilterLimit,
		maxComponents:  defaultMaxComponents,
	}
	for _, opt := range opts {
		opt(&options)
	}

	sess, err := e.session(id)
	if err != nil {
		return 0, err
	}
	if !sess.running.CompareAndSwap(false, true) {
		return 0, ErrSearchRunning
	}
	defer sess.running.Store(false)

	sess.cancelled.Store(false)
	sess.setProgress(0)

	candidates, err := e.candidates(ctx, query, options.prefilterLimit)
	if err != nil {
		return 0, err
	}

	e.logger.Debug("Scoring candidates",
		"session", id,
		"kind", options.kind,
		"candidates", len(candidates),
		"capacity", len(buf))

	var results []types.SearchResult
	switch options.kind {
	case KindPeak:
		results = e.peakSearch(sess, query, candidates)
	case KindMixture:
		results = e.mixtureSearch(sess, query, candidates, options.maxComponents)
	default:
		results = e.spectralSearch(sess, query, candidates)
	}
	sess.finish(results)

	n := copy(buf, results)
	e.logger.Info("Search complete",
		"session", id,
		"kind", options.kind,
		"found", len(results),
		"returned", n,
		"cancelled", sess.isCancelled())
	return n, nil
}

// candidates loads the scoring candidate set: the vector prefilter's top
// hits when the index is populated, otherwise every library spectrum of the
// query's technique.
func (e *Engine) candidates(ctx context.Context, query types.Spectrum, limit int) ([]types.Spectrum, error) {
	if e.index != nil && e.index.Count() > 0 {
		hits, err := e.index.Query(ctx, query, limit)
		if err != nil {
			e.logger.Warn("Vector prefilter failed, falling back to full scan", "error", err)
		} else if len(hits) > 0 {
			spectra := make([]types.Spectrum, 0, len(hits))
			for _, hit := range hits {
				s, err := e.db.GetByID(ctx, hit.ID)
				if err != nil {
					// Index entry with no backing row; drop it so it
					// stops showing up.
					e.logger.Warn("Removing stale index entry", "id", hit.ID, "error", err)
					if rmErr := e.index.Remove(ctx, hit.ID); rmErr != nil {
						e.logger.Warn("Failed to remove stale index entry", "id", hit.ID, "error", rmErr)
					}
					continue
				}
				spectra = append(spectra, *s)
			}
			return spectra, nil
		}
	}
	return e.db.List(ctx, library.WithTechnique(query.Technique))
}

// sortByPercentage orders results best-first, keeping a stable order for
// ties.
func sortByPercentage(results []types.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Percentage > results[j].Percentage
	})
}
