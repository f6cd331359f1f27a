// Package library stores reference spectra in SQLite. Spectrum names and
// library names are indexed in an FTS5 table for text lookup; the intensity
// data lives in float64 little-endian blobs.
package library

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/lox/spectral-search-sdk/internal/types"
)

// DB is a SQLite-backed spectral library.
type DB struct {
	db     *sql.DB
	logger *log.Logger
}

// New opens (creating if needed) the library database under dataDir.
func New(dataDir string, logger *log.Logger) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "spectra.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("failed to set database pragmas: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	d := &DB{db: db, logger: logger}
	if err := ApplyMigrations(context.Background(), db, logger.Debugf); err != nil {
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	return d, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS spectra (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			library TEXT NOT NULL,
			licensed INTEGER NOT NULL DEFAULT 1,
			technique INTEGER NOT NULL,
			x_unit INTEGER NOT NULL,
			y_unit INTEGER NOT NULL,
			first_x REAL NOT NULL,
			last_x REAL NOT NULL,
			point_count INTEGER NOT NULL,
			x_points BLOB,
			y_points BLOB NOT NULL
		);

		-- Full-text index over spectrum and library names
		CREATE VIRTUAL TABLE IF NOT EXISTS spectra_fts USING fts5(
			name,
			library,
			content='spectra',
			content_rowid='rowid'
		);

		CREATE TRIGGER IF NOT EXISTS spectra_ai AFTER INSERT ON spectra BEGIN
			INSERT INTO spectra_fts(rowid, name, library) VALUES (new.rowid, new.name, new.library);
		END;

		CREATE TRIGGER IF NOT EXISTS spectra_ad AFTER DELETE ON spectra BEGIN
			INSERT INTO spectra_fts(spectra_fts, rowid, name, library) VALUES ('delete', old.rowid, old.name, old.library);
		END;

		CREATE TRIGGER IF NOT EXISTS spectra_au AFTER UPDATE ON spectra BEGIN
			INSERT INTO spectra_fts(spectra_fts, rowid, name, library) VALUES ('delete', old.rowid, old.name, old.library);
			INSERT INTO spectra_fts(rowid, name, library) VALUES (new.rowid, new.name, new.library);
		END;
	`)
	if err != nil {
		return fmt.Errorf("failed to create spectra table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_spectra_technique ON spectra(technique)",
		"CREATE INDEX IF NOT EXISTS idx_spectra_library ON spectra(library)",
	}
	for _, index := range indexes {
		if _, err := db.Exec(index); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// Add stores a reference spectrum, assigning an ID if it has none, and
// returns the ID.
func (d *DB) Add(ctx context.Context, s types.Spectrum) (string, error) {
	if len(s.Y) == 0 {
		return "", fmt.Errorf("spectrum %q has no points", s.Name)
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	var xBlob []byte
	if len(s.X) > 0 {
		xBlob = encodeFloats(s.X)
	}

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO spectra (id, name, library, licensed, technique, x_unit, y_unit, first_x, last_x, point_count, x_points, y_points)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.Name, s.Library, s.Licensed, uint32(s.Technique), uint16(s.XUnit), uint16(s.YUnit),
		s.FirstX, s.LastX, len(s.Y), xBlob, encodeFloats(s.Y))
	if err != nil {
		return "", fmt.Errorf("failed to store spectrum %q: %w", s.Name, err)
	}

	d.logger.Debug("Stored spectrum", "id", s.ID, "name", s.Name, "library", s.Library, "points", len(s.Y))
	return s.ID, nil
}

const spectrumColumns = `id, name, library, licensed, technique, x_unit, y_unit, first_x, last_x, x_points, y_points`

// GetByID loads a single spectrum with its full point data.
func (d *DB) GetByID(ctx context.Context, id string) (*types.Spectrum, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+spectrumColumns+` FROM spectra WHERE id = ?`, id)
	s, err := scanSpectrum(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("spectrum %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load spectrum %s: %w", id, err)
	}
	return s, nil
}

type queryOptions struct {
	technique types.Technique
	limit     int
}

// QueryOption narrows a List call.
type QueryOption func(*queryOptions)

// WithTechnique restricts results to one measurement technique.
func WithTechnique(t types.Technique) QueryOption {
	return func(o *queryOptions) {
		o.technique = t
	}
}

// WithLimit caps the number of returned spectra.
func WithLimit(limit int) QueryOption {
	return func(o *queryOptions) {
		o.limit = limit
	}
}

// List returns spectra with full point data, newest insertion order last.
func (d *DB) List(ctx context.Context, opts ...QueryOption) ([]types.Spectrum, error) {
	var o queryOptions
	for _, opt := range opts {
		opt(&o)
	}

	query := `SELECT ` + spectrumColumns + ` FROM spectra`
	var args []any
	if o.technique != 0 {
		query += ` WHERE technique = ?`
		args = append(args, uint32(o.technique))
	}
	query += ` ORDER BY rowid`
	if o.limit > 0 {
		query += ` LIMIT ?`
		args = append(args, o.limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list spectra: %w", err)
	}
	defer rows.Close()

	var spectra []types.Spectrum
	for rows.Next() {
		s, err := scanSpectrum(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan spectrum: %w", err)
		}
		spectra = append(spectra, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating spectra: %w", err)
	}
	return spectra, nil
}

// NameMatch is one hit from a text search over spectrum names.
type NameMatch struct {
	Spectrum types.Spectrum
	// Rank is the FTS5 bm25 rank; lower is better.
	Rank float64
}

// SearchByName performs a full-text search over spectrum and library names.
func (d *DB) SearchByName(ctx context.Context, query string, limit int) ([]NameMatch, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.library, s.licensed, s.technique, s.x_unit, s.y_unit, s.first_x, s.last_x, s.x_points, s.y_points,
			bm25(spectra_fts) AS rank
		FROM spectra s
		JOIN spectra_fts fts ON s.rowid = fts.rowid
		WHERE spectra_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search spectra: %w", err)
	}
	defer rows.Close()

	var matches []NameMatch
	for rows.Next() {
		var m NameMatch
		s, err := scanSpectrumWith(rows, &m.Rank)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		m.Spectrum = *s
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search results: %w", err)
	}
	return matches, nil
}

// DeleteByID removes a spectrum.
func (d *DB) DeleteByID(ctx context.Context, id string) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM spectra WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete spectrum %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("spectrum %s not found", id)
	}
	return nil
}

// Count returns the number of stored spectra.
func (d *DB) Count(ctx context.Context) (int, error) {
	var count int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM spectra`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count spectra: %w", err)
	}
	return count, nil
}

// Libraries returns the distinct library names with their spectrum counts.
func (d *DB) Libraries(ctx context.Context) (map[string]int, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT library, COUNT(*) FROM spectra GROUP BY library`)
	if err != nil {
		return nil, fmt.Errorf("failed to list libraries: %w", err)
	}
	defer rows.Close()

	libs := make(map[string]int)
	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("failed to scan library row: %w", err)
		}
		libs[name] = count
	}
	return libs, rows.Err()
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSpectrum(row scanner) (*types.Spectrum, error) {
	return scanSpectrumWith(row)
}

func scanSpectrumWith(row scanner, extra ...any) (*types.Spectrum, error) {
	var s types.Spectrum
	var technique uint32
	var xUnit, yUnit uint16
	var xBlob, yBlob []byte

	dest := []any{&s.ID, &s.Name, &s.Library, &s.Licensed, &technique, &xUnit, &yUnit, &s.FirstX, &s.LastX, &xBlob, &yBlob}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	s.Technique = types.Technique(technique)
	s.XUnit = types.XUnit(xUnit)
	s.YUnit = types.YUnit(yUnit)
	// The driver hands back a zero-length blob for a NULL/empty x_points
	// column; only a populated blob means the spectrum is unevenly spaced.
	if len(xBlob) > 0 {
		s.X = decodeFloats(xBlob)
	}
	s.Y = decodeFloats(yBlob)
	return &s, nil
}

func encodeFloats(v []float64) []byte {
	buf := make([]byte, 0, len(v)*8)
	for _, f := range v {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(f))
	}
	return buf
}

func decodeFloats(buf []byte) []float64 {
	out := make([]float64, len(buf)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return out
}
