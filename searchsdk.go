// Package searchsdk is the public, ABI-shaped surface of the spectral
// search engine: initialize/exit, open/close search sessions, two
// synchronous search variants over a caller-supplied result buffer, and
// cancel/progress operations designed to be called from a goroutine other
// than the one running the search.
//
// Operations report success or failure as a bare boolean with no further
// detail; diagnostics go to the configured logger.
package searchsdk

import (
	"context"
	"os"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/lox/spectral-search-sdk/internal/engine"
	"github.com/lox/spectral-search-sdk/internal/library"
	"github.com/lox/spectral-search-sdk/internal/types"
	"github.com/lox/spectral-search-sdk/internal/vectors"
)

// Handle is an opaque identifier for one search session. Handles are
// created by OpenSearch, consumed by the search, cancel and progress
// operations, and invalidated by CloseSearch.
type Handle string

// Measurement techniques.
const (
	TechniqueFTIR         uint32 = 0x00000001
	TechniqueATRIR        uint32 = 0x00000002
	TechniqueRaman        uint32 = 0x00000003
	TechniqueVaporPhaseIR uint32 = 0x00000004
	TechniqueMS           uint32 = 0x00000005
)

// X axis units.
const (
	XUnitWavenumbers uint16 = 0x0001
	XUnitNanometers  uint16 = 0x0002
	XUnitMOverZ      uint16 = 0x0003
)

// Y axis units.
const (
	YUnitArbitraryIntensity uint16 = 0x0001
	YUnitAbsorbance         uint16 = 0x0002
	YUnitTransmittance      uint16 = 0x0003
)

// Match is one candidate library entry returned by a search. Results stay
// valid until the session that produced them is closed.
type Match struct {
	// Percentage is the match quality from 0 to 100. The result
	// transfer wire format uses 0 to 1 instead; the conventions are
	// per-interface and never reconciled in place.
	Percentage float64
	// Name is the name of the matched record.
	Name string
	// Locked reports that the match comes from an unlicensed database.
	Locked bool
}

// SDK wraps the engine behind the plugin-style call surface.
type SDK struct {
	dataDir string
	logger  *log.Logger

	mu     sync.Mutex
	inited bool
	db     *library.DB
	index  *vectors.Index
	engine *engine.Engine
}

// Option configures an SDK before Init.
type Option func(*SDK)

// WithDataDir sets the directory holding the spectral library.
func WithDataDir(dir string) Option {
	return func(s *SDK) {
		s.dataDir = dir
	}
}

// WithLogger overrides the default stderr logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *SDK) {
		s.logger = logger
	}
}

// New builds an SDK. Nothing is opened until Init.
func New(opts ...Option) *SDK {
	s := &SDK{
		dataDir: "./data",
		logger:  log.New(os.Stderr),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init opens the library and starts the background warm scan that discovers
// available spectra, so the first RunSearch call does not pay for it. Call
// once at start-up; further calls are no-ops.
func (s *SDK) Init() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inited {
		return
	}

	db, err := library.New(s.dataDir, s.logger)
	if err != nil {
		s.logger.Error("SDK init failed opening library", "error", err)
		return
	}
	index, err := vectors.New(s.dataDir, s.logger)
	if err != nil {
		s.logger.Error("SDK init failed opening vector index", "error", err)
		db.Close()
		return
	}

	s.db = db
	s.index = index
	s.engine = engine.New(db, index, s.logger)
	s.inited = true

	go func() {
		if err := s.engine.Warm(context.Background()); err != nil {
			s.logger.Warn("Library warm scan failed", "error", err)
		}
	}()
}

// Exit shuts the SDK down: all sessions are invalidated and the library is
// closed. Call once before termination.
func (s *SDK) Exit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inited {
		return
	}
	s.engine.Close()
	if err := s.db.Close(); err != nil {
		s.logger.Warn("Failed to close library", "error", err)
	}
	s.inited = false
}

// OpenSearch creates a search session and returns its handle. An empty
// handle means the SDK is not initialized.
func (s *SDK) OpenSearch() Handle {
	e := s.currentEngine()
	if e == nil {
		return ""
	}
	id, err := e.Open()
	if err != nil {
		s.logger.Error("OpenSearch failed", "error", err)
		return ""
	}
	return Handle(id)
}

// CloseSearch releases a session and the results returned under it.
func (s *SDK) CloseSearch(h Handle) bool {
	e := s.currentEngine()
	if e == nil {
		return false
	}
	if err := e.CloseSession(engine.SessionID(h)); err != nil {
		s.logger.Error("CloseSearch failed", "handle", h, "error", err)
		return false
	}
	return true
}

// RunSearchEvenlySpaced runs a search synchronously on evenly spaced data.
// yArray holds the intensity values, firstX/lastX the X values of the first
// and last points. results defines the capacity; the returned count is the
// number of entries filled, which may be lower if fewer matches were found.
func (s *SDK) RunSearchEvenlySpaced(h Handle, technique uint32, yArray []float64,
	firstX, lastX float64, xUnit, yUnit uint16, results []Match) (int, bool) {

	e := s.currentEngine()
	if e == nil {
		return 0, false
	}
	buf := make([]types.SearchResult, len(results))
	n, err := e.SearchEvenlySpaced(context.Background(), engine.SessionID(h),
		types.Technique(technique), yArray, firstX, lastX,
		types.XUnit(xUnit), types.YUnit(yUnit), buf)
	if err != nil {
		s.logger.Error("RunSearchEvenlySpaced failed", "handle", h, "error", err)
		return 0, false
	}
	fillMatches(results, buf[:n])
	return n, true
}

// RunSearchUnevenlySpaced runs a search synchronously on unevenly spaced
// data given explicit paired X/Y arrays. Same buffer contract as
// RunSearchEvenlySpaced.
func (s *SDK) RunSearchUnevenlySpaced(h Handle, technique uint32, xArray, yArray []float64,
	xUnit, yUnit uint16, results []Match) (int, bool) {

	e := s.currentEngine()
	if e == nil {
		return 0, false
	}
	buf := make([]types.SearchResult, len(results))
	n, err := e.SearchUnevenlySpaced(context.Background(), engine.SessionID(h),
		types.Technique(technique), xArray, yArray,
		types.XUnit(xUnit), types.YUnit(yUnit), buf)
	if err != nil {
		s.logger.Error("RunSearchUnevenlySpaced failed", "handle", h, "error", err)
		return 0, false
	}
	fillMatches(results, buf[:n])
	return n, true
}

// CancelSearch requests that the search running on h stop. Call from a
// goroutine other than the one that called the search function.
func (s *SDK) CancelSearch(h Handle) bool {
	e := s.currentEngine()
	if e == nil {
		return false
	}
	if err := e.Cancel(engine.SessionID(h)); err != nil {
		s.logger.Error("CancelSearch failed", "handle", h, "error", err)
		return false
	}
	return true
}

// GetProgressPercentage reports 0-100 progress for the search running on h.
// Call from a goroutine other than the one that called the search function.
// Unknown handles report 0.
func (s *SDK) GetProgressPercentage(h Handle) float64 {
	e := s.currentEngine()
	if e == nil {
		return 0
	}
	pct, err := e.Progress(engine.SessionID(h))
	if err != nil {
		return 0
	}
	return pct
}

func (s *SDK) currentEngine() *engine.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inited {
		s.logger.Error("SDK not initialized")
		return nil
	}
	return s.engine
}

func fillMatches(dst []Match, src []types.SearchResult) {
	for i, r := range src {
		dst[i] = Match{
			Percentage: r.Percentage,
			Name:       r.Name,
			Locked:     r.Locked,
		}
	}
}
