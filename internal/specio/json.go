package specio

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/lox/spectral-search-sdk/internal/types"
)

type spectrumDoc struct {
	Name      string    `json:"name"`
	Library   string    `json:"library,omitempty"`
	Licensed  bool      `json:"licensed,omitempty"`
	Technique string    `json:"technique"`
	XUnit     string    `json:"x_unit,omitempty"`
	YUnit     string    `json:"y_unit,omitempty"`
	FirstX    float64   `json:"first_x,omitempty"`
	LastX     float64   `json:"last_x,omitempty"`
	X         []float64 `json:"x,omitempty"`
	Y         []float64 `json:"y"`
}

// ReadJSON loads spectra from a JSON file holding either a single spectrum
// object or an array of them. Document fields override defaults.
func ReadJSON(path string, defaults Defaults) ([]types.Spectrum, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var docs []spectrumDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		var single spectrumDoc
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		docs = []spectrumDoc{single}
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%s holds no spectra", path)
	}

	spectra := make([]types.Spectrum, 0, len(docs))
	for i, doc := range docs {
		s, err := doc.toSpectrum(defaults)
		if err != nil {
			return nil, fmt.Errorf("%s spectrum %d: %w", path, i, err)
		}
		spectra = append(spectra, s)
	}
	return spectra, nil
}

func (d spectrumDoc) toSpectrum(defaults Defaults) (types.Spectrum, error) {
	technique := defaults.Technique
	if d.Technique != "" {
		t, ok := types.ParseTechnique(d.Technique)
		if !ok {
			return types.Spectrum{}, fmt.Errorf("unknown technique %q", d.Technique)
		}
		technique = t
	}

	xUnit := defaults.XUnit
	if d.XUnit != "" {
		u, ok := parseXUnit(d.XUnit)
		if !ok {
			return types.Spectrum{}, fmt.Errorf("unknown x unit %q", d.XUnit)
		}
		xUnit = u
	}
	yUnit := defaults.YUnit
	if d.YUnit != "" {
		u, ok := parseYUnit(d.YUnit)
		if !ok {
			return types.Spectrum{}, fmt.Errorf("unknown y unit %q", d.YUnit)
		}
		yUnit = u
	}

	var (
		s   types.Spectrum
		err error
	)
	if len(d.X) > 0 {
		s, err = types.NewUnevenlySpaced(technique, d.X, d.Y, xUnit, yUnit)
	} else {
		firstX, lastX := d.FirstX, d.LastX
		if firstX == lastX {
			firstX, lastX = defaults.FirstX, defaults.LastX
		}
		if firstX == lastX {
			return types.Spectrum{}, fmt.Errorf("evenly spaced spectrum needs first_x and last_x")
		}
		s, err = types.NewEvenlySpaced(technique, d.Y, firstX, lastX, xUnit, yUnit)
	}
	if err != nil {
		return types.Spectrum{}, err
	}

	s.Name = d.Name
	if s.Name == "" {
		s.Name = defaults.Name
	}
	s.Library = d.Library
	if s.Library == "" {
		s.Library = defaults.Library
	}
	s.Licensed = d.Licensed || defaults.Licensed
	return s, nil
}

func parseXUnit(s string) (types.XUnit, bool) {
	switch s {
	case "wavenumbers", "cm-1":
		return types.XUnitWavenumbers, true
	case "nanometers", "nm":
		return types.XUnitNanometers, true
	case "m/z", "mz":
		return types.XUnitMOverZ, true
	}
	return 0, false
}

func parseYUnit(s string) (types.YUnit, bool) {
	switch s {
	case "arbitrary":
		return types.YUnitArbitraryIntensity, true
	case "absorbance":
		return types.YUnitAbsorbance, true
	case "transmittance":
		return types.YUnitTransmittance, true
	}
	return 0, false
}
