package engine

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/lox/spectral-search-sdk/internal/types"
)

// SessionID is the opaque handle callers hold for an open search session.
type SessionID string

// Session tracks one search session. A session runs at most one search at a
// time; progress and cancellation are safe to use from goroutines other than
// the one running the search.
type Session struct {
	id SessionID

	running   atomic.Bool
	cancelled atomic.Bool
	// progress holds the current 0-100 percentage as float64 bits.
	progress atomic.Uint64

	mu sync.Mutex
	// results retained from the last completed search; dropped on close.
	results []types.SearchResult
}

func newSession() *Session {
	return &Session{id: SessionID(uuid.NewString())}
}

// ID returns the session handle.
func (s *Session) ID() SessionID {
	return s.id
}

// Cancel requests that the in-flight search stop. The search observes the
// flag at candidate granularity and returns whatever it scored so far.
func (s *Session) Cancel() {
	s.cancelled.Store(true)
}

func (s *Session) isCancelled() bool {
	return s.cancelled.Load()
}

// Progress returns the current search progress from 0 to 100.
func (s *Session) Progress() float64 {
	return math.Float64frombits(s.progress.Load())
}

func (s *Session) setProgress(pct float64) {
	s.progress.Store(math.Float64bits(pct))
}

func (s *Session) setResults(results []types.SearchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = results
}

// finish records a completed search: results are retained and, unless the
// search was cancelled, progress jumps to 100. A cancelled search leaves
// progress where the cancellation was observed so pollers can tell how far
// it got.
func (s *Session) finish(results []types.SearchResult) {
	if !s.isCancelled() {
		s.setProgress(100)
	}
	s.setResults(results)
}

// Results returns the results of the last completed search on this session.
func (s *Session) Results() []types.SearchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}
