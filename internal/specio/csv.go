package specio

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lox/spectral-search-sdk/internal/types"
)

// ReadCSV parses a spectrum from CSV. Two columns are read as x,y pairs;
// a single column is read as evenly spaced intensities spanning
// defaults.FirstX to defaults.LastX. A non-numeric first row is treated as
// a header and skipped.
func ReadCSV(path string, defaults Defaults) (types.Spectrum, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Spectrum{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return types.Spectrum{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return types.Spectrum{}, fmt.Errorf("%s is empty", path)
	}

	// Skip a header row if the first field is not a number.
	start := 0
	if _, err := strconv.ParseFloat(strings.TrimSpace(records[0][0]), 64); err != nil {
		start = 1
	}
	records = records[start:]
	if len(records) == 0 {
		return types.Spectrum{}, fmt.Errorf("%s has a header but no data rows", path)
	}

	var xs, ys []float64
	paired := len(records[0]) >= 2
	for i, rec := range records {
		if len(rec) == 0 {
			continue
		}
		if paired && len(rec) < 2 {
			return types.Spectrum{}, fmt.Errorf("%s row %d: expected 2 columns, got %d", path, start+i+1, len(rec))
		}

		y, err := strconv.ParseFloat(strings.TrimSpace(rec[len(rec)-1]), 64)
		if err != nil {
			return types.Spectrum{}, fmt.Errorf("%s row %d: bad intensity %q: %w", path, start+i+1, rec[len(rec)-1], err)
		}
		ys = append(ys, y)

		if paired {
			x, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
			if err != nil {
				return types.Spectrum{}, fmt.Errorf("%s row %d: bad x value %q: %w", path, start+i+1, rec[0], err)
			}
			xs = append(xs, x)
		}
	}

	name := defaults.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	var s types.Spectrum
	if paired {
		s, err = types.NewUnevenlySpaced(defaults.Technique, xs, ys, defaults.XUnit, defaults.YUnit)
	} else {
		if defaults.FirstX == defaults.LastX {
			return types.Spectrum{}, fmt.Errorf("%s has no x column; --first-x/--last-x are required", path)
		}
		s, err = types.NewEvenlySpaced(defaults.Technique, ys, defaults.FirstX, defaults.LastX, defaults.XUnit, defaults.YUnit)
	}
	if err != nil {
		return types.Spectrum{}, fmt.Errorf("invalid spectrum in %s: %w", path, err)
	}

	s.Name = name
	s.Library = defaults.Library
	s.Licensed = defaults.Licensed
	return s, nil
}
