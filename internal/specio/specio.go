// Package specio reads spectra from files: two-column CSV (x,y) or
// single-column CSV (y only, bounds supplied out of band), and a JSON
// document format used for library imports.
package specio

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lox/spectral-search-sdk/internal/types"
)

// Defaults supplies the metadata a bare data file cannot carry itself.
type Defaults struct {
	Name      string
	Library   string
	Licensed  bool
	Technique types.Technique
	XUnit     types.XUnit
	YUnit     types.YUnit
	// FirstX/LastX are required for single-column CSV input.
	FirstX float64
	LastX  float64
}

// ReadFile loads one spectrum, picking the format from the file extension.
func ReadFile(path string, defaults Defaults) (types.Spectrum, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(path, defaults)
	case ".json":
		spectra, err := ReadJSON(path, defaults)
		if err != nil {
			return types.Spectrum{}, err
		}
		if len(spectra) != 1 {
			return types.Spectrum{}, fmt.Errorf("%s holds %d spectra, expected exactly 1", path, len(spectra))
		}
		return spectra[0], nil
	default:
		return types.Spectrum{}, fmt.Errorf("unsupported spectrum format %q", filepath.Ext(path))
	}
}

// ReadAll loads every spectrum in a file; CSV files always hold one, JSON
// files may hold a list.
func ReadAll(path string, defaults Defaults) ([]types.Spectrum, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		s, err := ReadCSV(path, defaults)
		if err != nil {
			return nil, err
		}
		return []types.Spectrum{s}, nil
	case ".json":
		return ReadJSON(path, defaults)
	default:
		return nil, fmt.Errorf("unsupported spectrum format %q", filepath.Ext(path))
	}
}
