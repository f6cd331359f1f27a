package specio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/spectral-search-sdk/internal/types"
)

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestReadCSVPaired(t *testing.T) {
	path := writeFile(t, "acetone.csv", "wavenumber,absorbance\n400,0.1\n401.5,0.3\n403,0.2\n")

	s, err := ReadFile(path, Defaults{
		Technique: types.TechniqueFTIR,
		XUnit:     types.XUnitWavenumbers,
		YUnit:     types.YUnitAbsorbance,
	})
	require.NoError(t, err)

	assert.Equal(t, "acetone", s.Name)
	assert.False(t, s.EvenlySpaced())
	assert.Equal(t, []float64{400, 401.5, 403}, s.X)
	assert.Equal(t, []float64{0.1, 0.3, 0.2}, s.Y)
}

func TestReadCSVSingleColumn(t *testing.T) {
	path := writeFile(t, "scan.csv", "0.1\n0.2\n0.3\n0.4\n")

	s, err := ReadFile(path, Defaults{
		Technique: types.TechniqueRaman,
		FirstX:    400,
		LastX:     4000,
	})
	require.NoError(t, err)

	assert.True(t, s.EvenlySpaced())
	assert.Equal(t, 4, s.Points())
	assert.Equal(t, 400.0, s.FirstX)
	assert.Equal(t, 4000.0, s.LastX)
}

func TestReadCSVSingleColumnNeedsBounds(t *testing.T) {
	path := writeFile(t, "scan.csv", "0.1\n0.2\n")

	_, err := ReadFile(path, Defaults{Technique: types.TechniqueFTIR})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first-x")
}

func TestReadCSVBadValue(t *testing.T) {
	path := writeFile(t, "bad.csv", "400,0.1\n401,oops\n")

	_, err := ReadFile(path, Defaults{Technique: types.TechniqueFTIR})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}

func TestReadJSONSingle(t *testing.T) {
	path := writeFile(t, "toluene.json", `{
		"name": "Toluene",
		"library": "Organics",
		"licensed": true,
		"technique": "raman",
		"x_unit": "cm-1",
		"y_unit": "arbitrary",
		"first_x": 200,
		"last_x": 3500,
		"y": [0.1, 0.5, 0.9, 0.4]
	}`)

	s, err := ReadFile(path, Defaults{})
	require.NoError(t, err)

	assert.Equal(t, "Toluene", s.Name)
	assert.Equal(t, "Organics", s.Library)
	assert.True(t, s.Licensed)
	assert.Equal(t, types.TechniqueRaman, s.Technique)
	assert.Equal(t, types.XUnitWavenumbers, s.XUnit)
	assert.True(t, s.EvenlySpaced())
	assert.Equal(t, 4, s.Points())
}

func TestReadJSONArray(t *testing.T) {
	path := writeFile(t, "set.json", `[
		{"name": "A", "technique": "ftir", "first_x": 400, "last_x": 4000, "y": [1, 2, 3]},
		{"name": "B", "technique": "ftir", "x": [400, 410, 430], "y": [1, 2, 3]}
	]`)

	spectra, err := ReadAll(path, Defaults{Library: "Bulk"})
	require.NoError(t, err)
	require.Len(t, spectra, 2)

	assert.Equal(t, "A", spectra[0].Name)
	assert.Equal(t, "Bulk", spectra[0].Library)
	assert.True(t, spectra[0].EvenlySpaced())
	assert.False(t, spectra[1].EvenlySpaced())

	// ReadFile refuses a multi-spectrum document.
	_, err = ReadFile(path, Defaults{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected exactly 1")
}

func TestReadJSONUnknownTechnique(t *testing.T) {
	path := writeFile(t, "bad.json", `{"name": "X", "technique": "nmr", "first_x": 0, "last_x": 10, "y": [1, 2]}`)

	_, err := ReadFile(path, Defaults{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown technique")
}

func TestUnsupportedExtension(t *testing.T) {
	path := writeFile(t, "spectrum.xml", "<spectrum/>")

	_, err := ReadFile(path, Defaults{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported spectrum format")
}
