package mcp

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lox/spectral-search-sdk/internal/engine"
	"github.com/lox/spectral-search-sdk/internal/library"
	"github.com/lox/spectral-search-sdk/internal/specio"
	"github.com/lox/spectral-search-sdk/internal/types"
)

type Server struct {
	db     *library.DB
	engine *engine.Engine
	logger *log.Logger
}

func New(db *library.DB, eng *engine.Engine, logger *log.Logger) *Server {
	return &Server{
		db:     db,
		engine: eng,
		logger: logger,
	}
}

func (s *Server) Run() error {
	// Create MCP server
	mcpServer := server.NewMCPServer(
		"Spectral Search",
		"1.0.0",
	)

	mcpServer.AddTool(mcp.NewTool("search_spectra",
		mcp.WithDescription("Search the spectrum library by compound or library name"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query - compound or library name"),
		),
		mcp.WithString("limit",
			mcp.Description("Maximum number of results to return (default: 10)"),
		),
	), s.searchSpectraHandler)

	mcpServer.AddTool(mcp.NewTool("list_spectra",
		mcp.WithDescription("List reference spectra with optional filters"),
		mcp.WithString("technique",
			mcp.Description("Filter by measurement technique (ftir, atr-ir, raman, vapor-phase-ir, ms)"),
		),
		mcp.WithString("limit",
			mcp.Description("Maximum number of results to return (default: 50)"),
		),
	), s.listSpectraHandler)

	mcpServer.AddTool(mcp.NewTool("list_libraries",
		mcp.WithDescription("List the spectrum libraries and how many spectra each holds"),
	), s.listLibrariesHandler)

	mcpServer.AddTool(mcp.NewTool("identify_spectrum",
		mcp.WithDescription("Identify an unknown spectrum file against the reference library"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the spectrum file (.csv or .json)"),
		),
		mcp.WithString("technique",
			mcp.Required(),
			mcp.Description("Measurement technique of the query (ftir, atr-ir, raman, vapor-phase-ir, ms)"),
		),
		mcp.WithString("kind",
			mcp.Description("Search kind: spectral, peak, or mixture (default: spectral)"),
		),
		mcp.WithString("limit",
			mcp.Description("Maximum number of matches to return (default: 10)"),
		),
	), s.identifySpectrumHandler)

	// Start the stdio server
	if err := server.ServeStdio(mcpServer); err != nil {
		return err
	}

	return nil
}

func intArg(request mcp.CallToolRequest, name string, fallback int) (int, error) {
	val, ok := request.Params.Arguments[name]
	if !ok {
		return fallback, nil
	}
	switch v := val.(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", name, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be a number or string", name)
	}
}

func (s *Server) searchSpectraHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, ok := request.Params.Arguments["query"].(string)
	if !ok {
		return nil, errors.New("query must be a string")
	}

	limit, err := intArg(request, "limit", 10)
	if err != nil {
		return nil, err
	}

	matches, err := s.db.SearchByName(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search spectra: %w", err)
	}

	var result string
	for _, m := range matches {
		result += formatSpectrum(m.Spectrum)
	}
	if result == "" {
		result = "No spectra matched.\n"
	}

	return mcp.NewToolResultText(result), nil
}

func (s *Server) listSpectraHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit, err := intArg(request, "limit", 50)
	if err != nil {
		return nil, err
	}

	opts := []library.QueryOption{library.WithLimit(limit)}
	if name, ok := request.Params.Arguments["technique"].(string); ok && name != "" {
		technique, ok := types.ParseTechnique(name)
		if !ok {
			return nil, fmt.Errorf("unknown technique: %s", name)
		}
		opts = append(opts, library.WithTechnique(technique))
	}

	spectra, err := s.db.List(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to list spectra: %w", err)
	}

	var result string
	for _, sp := range spectra {
		result += formatSpectrum(sp)
	}
	if result == "" {
		result = "The library is empty.\n"
	}

	return mcp.NewToolResultText(result), nil
}

func (s *Server) listLibrariesHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	libraries, err := s.db.Libraries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list libraries: %w", err)
	}

	var result string
	var total int
	for name, count := range libraries {
		if name == "" {
			name = "(unnamed)"
		}
		result += fmt.Sprintf("%-30s %d spectra\n", name, count)
		total += count
	}
	result += fmt.Sprintf("\nTotal Spectra: %d\n", total)

	return mcp.NewToolResultText(result), nil
}

func (s *Server) identifySpectrumHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, ok := request.Params.Arguments["path"].(string)
	if !ok {
		return nil, errors.New("path must be a string")
	}
	techniqueName, ok := request.Params.Arguments["technique"].(string)
	if !ok {
		return nil, errors.New("technique must be a string")
	}
	technique, ok := types.ParseTechnique(techniqueName)
	if !ok {
		return nil, fmt.Errorf("unknown technique: %s", techniqueName)
	}

	limit, err := intArg(request, "limit", 10)
	if err != nil {
		return nil, err
	}

	kind := engine.KindSpectral
	if name, ok := request.Params.Arguments["kind"].(string); ok && name != "" {
		switch name {
		case "spectral":
			kind = engine.KindSpectral
		case "peak":
			kind = engine.KindPeak
		case "mixture":
			kind = engine.KindMixture
		default:
			return nil, fmt.Errorf("unknown search kind: %s", name)
		}
	}

	query, err := specio.ReadFile(path, specio.Defaults{Technique: technique})
	if err != nil {
		return nil, fmt.Errorf("failed to read spectrum: %w", err)
	}

	session, err := s.engine.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open search session: %w", err)
	}
	defer s.engine.CloseSession(session)

	buf := make([]types.SearchResult, limit)
	n, err := s.engine.Search(ctx, session, query, buf, engine.WithKind(kind))
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	var result string
	for _, r := range buf[:n] {
		result += fmt.Sprintf("%6.2f%%  %s\n", r.Percentage, r.Name)
		if r.Flags&types.MatchFlagComponent != 0 {
			result += fmt.Sprintf("         Component Weight: %.3f\n", r.ComponentWeight)
		}
		if r.Locked {
			result += "         Locked: requires a license to view details\n"
		}
	}
	if result == "" {
		result = "No matches found.\n"
	}

	return mcp.NewToolResultText(result), nil
}

func formatSpectrum(sp types.Spectrum) string {
	result := fmt.Sprintf("%s: %s\n", sp.ID, sp.Name)
	result += fmt.Sprintf("  Technique: %s\n", sp.Technique)
	if sp.Library != "" {
		result += fmt.Sprintf("  Library: %s\n", sp.Library)
	}
	result += fmt.Sprintf("  Range: %g to %g (%d points)\n", sp.FirstX, sp.LastX, sp.Points())
	if !sp.Licensed {
		result += "  Unlicensed: results appear locked\n"
	}
	return result + "\n"
}
