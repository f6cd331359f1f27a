package searchsdk

import (
	"context"
	"io"
	"math"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/spectral-search-sdk/internal/library"
	"github.com/lox/spectral-search-sdk/internal/types"
)

func seedLibrary(t *testing.T, dir string, names ...string) {
	t.Helper()

	logger := log.New(io.Discard)
	db, err := library.New(dir, logger)
	require.NoError(t, err)
	defer db.Close()

	for i, name := range names {
		y := make([]float64, 256)
		center := 800 + float64(i)*600
		for j := range y {
			x := 400 + 3600*float64(j)/255
			y[j] = math.Exp(-((x - center) * (x - center)) / (2 * 50 * 50))
		}
		_, err := db.Add(context.Background(), types.Spectrum{
			Name:      name,
			Library:   "Seed",
			Licensed:  true,
			Technique: types.TechniqueFTIR,
			XUnit:     types.XUnitWavenumbers,
			YUnit:     types.YUnitAbsorbance,
			FirstX:    400,
			LastX:     4000,
			Y:         y,
		})
		require.NoError(t, err)
	}
}

func newTestSDK(t *testing.T, names ...string) *SDK {
	t.Helper()

	dir := t.TempDir()
	seedLibrary(t, dir, names...)

	sdk := New(WithDataDir(dir), WithLogger(log.New(io.Discard)))
	sdk.Init()
	t.Cleanup(sdk.Exit)
	return sdk
}

func querySpectrum(center float64) []float64 {
	y := make([]float64, 256)
	for j := range y {
		x := 400 + 3600*float64(j)/255
		y[j] = math.Exp(-((x - center) * (x - center)) / (2 * 50 * 50))
	}
	return y
}

func TestInitIsIdempotent(t *testing.T) {
	sdk := newTestSDK(t, "Sample")
	sdk.Init()
	sdk.Init()

	h := sdk.OpenSearch()
	assert.NotEmpty(t, h)
	assert.True(t, sdk.CloseSearch(h))
}

func TestUninitializedSDKFailsBooleanContract(t *testing.T) {
	sdk := New(WithDataDir(t.TempDir()), WithLogger(log.New(io.Discard)))

	assert.Empty(t, sdk.OpenSearch())
	assert.False(t, sdk.CloseSearch("nope"))
	assert.False(t, sdk.CancelSearch("nope"))
	assert.Zero(t, sdk.GetProgressPercentage("nope"))

	n, ok := sdk.RunSearchEvenlySpaced("nope", TechniqueFTIR, querySpectrum(800), 400, 4000,
		XUnitWavenumbers, YUnitAbsorbance, make([]Match, 4))
	assert.False(t, ok)
	assert.Zero(t, n)
}

func TestRunSearchEvenlySpaced(t *testing.T) {
	sdk := newTestSDK(t, "Alpha", "Beta", "Gamma")

	h := sdk.OpenSearch()
	require.NotEmpty(t, h)

	results := make([]Match, 2)
	n, ok := sdk.RunSearchEvenlySpaced(h, TechniqueFTIR, querySpectrum(800), 400, 4000,
		XUnitWavenumbers, YUnitAbsorbance, results)
	require.True(t, ok)
	require.Equal(t, 2, n, "count is capped at buffer capacity")

	assert.Equal(t, "Alpha", results[0].Name)
	assert.InDelta(t, 100, results[0].Percentage, 1)
	assert.GreaterOrEqual(t, results[0].Percentage, results[1].Percentage)

	assert.True(t, sdk.CloseSearch(h))
	assert.False(t, sdk.CloseSearch(h), "double close fails")
}

func TestRunSearchUnevenlySpaced(t *testing.T) {
	sdk := newTestSDK(t, "Alpha", "Beta")

	h := sdk.OpenSearch()
	require.NotEmpty(t, h)

	y := querySpectrum(800)
	x := make([]float64, len(y))
	for i := range x {
		x[i] = 400 + 3600*float64(i)/255
	}

	results := make([]Match, 8)
	n, ok := sdk.RunSearchUnevenlySpaced(h, TechniqueFTIR, x, y,
		XUnitWavenumbers, YUnitAbsorbance, results)
	require.True(t, ok)
	assert.Equal(t, 2, n, "count reports matches found below capacity")
	assert.Equal(t, "Alpha", results[0].Name)
}

func TestSearchOnClosedHandleFails(t *testing.T) {
	sdk := newTestSDK(t, "Alpha")

	h := sdk.OpenSearch()
	require.True(t, sdk.CloseSearch(h))

	n, ok := sdk.RunSearchEvenlySpaced(h, TechniqueFTIR, querySpectrum(800), 400, 4000,
		XUnitWavenumbers, YUnitAbsorbance, make([]Match, 1))
	assert.False(t, ok)
	assert.Zero(t, n)
	assert.False(t, sdk.CancelSearch(h))
}

func TestProgressAfterSearch(t *testing.T) {
	sdk := newTestSDK(t, "Alpha", "Beta")

	h := sdk.OpenSearch()
	require.NotEmpty(t, h)

	_, ok := sdk.RunSearchEvenlySpaced(h, TechniqueFTIR, querySpectrum(800), 400, 4000,
		XUnitWavenumbers, YUnitAbsorbance, make([]Match, 4))
	require.True(t, ok)

	assert.Equal(t, 100.0, sdk.GetProgressPercentage(h))
}

func TestExitInvalidatesHandles(t *testing.T) {
	sdk := newTestSDK(t, "Alpha")

	h := sdk.OpenSearch()
	require.NotEmpty(t, h)

	sdk.Exit()
	assert.False(t, sdk.CancelSearch(h))
	assert.Empty(t, sdk.OpenSearch())
}
