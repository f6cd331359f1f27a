package shm

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionViewRoundTrip(t *testing.T) {
	dir := t.TempDir()
	payload := []byte("spectral results payload")

	region, err := Create(dir, payload)
	require.NoError(t, err)
	defer region.Close()

	assert.Equal(t, len(payload), region.Size())

	view, err := Open(region.Handle(), region.Size())
	require.NoError(t, err)
	assert.Equal(t, payload, view.Bytes())

	// Closing the view must not disturb the region.
	require.NoError(t, view.Close())
	_, err = os.Stat(region.Handle())
	assert.NoError(t, err, "region file must survive view close")

	// A second consumer can still map it.
	view2, err := Open(region.Handle(), region.Size())
	require.NoError(t, err)
	assert.Equal(t, payload, view2.Bytes())
	require.NoError(t, view2.Close())
}

func TestRegionCloseUnlinks(t *testing.T) {
	dir := t.TempDir()
	region, err := Create(dir, []byte{1, 2, 3, 4})
	require.NoError(t, err)

	path := region.Handle()
	require.NoError(t, region.Close())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "region file must be unlinked by producer close")

	// Close is idempotent.
	assert.NoError(t, region.Close())
}

func TestCreateEmptyRejected(t *testing.T) {
	_, err := Create(t.TempDir(), nil)
	assert.Error(t, err)
}

func TestOpenSizeMismatch(t *testing.T) {
	dir := t.TempDir()
	region, err := Create(dir, []byte{1, 2, 3, 4})
	require.NoError(t, err)
	defer region.Close()

	_, err = Open(region.Handle(), region.Size()+1)
	assert.Error(t, err, "announced size larger than region must be rejected")

	_, err = Open(region.Handle(), 0)
	assert.Error(t, err)
}

func TestOpenMissingRegion(t *testing.T) {
	_, err := Open("/nonexistent/region.shm", 16)
	assert.Error(t, err)
}
