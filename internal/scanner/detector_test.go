package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpoolDetector_DrainsAndDedupes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beacons.spool")
	require.NoError(t, os.WriteFile(path, []byte("beacon-a\nbeacon-b\n\nbeacon-a\n  beacon-c  \n"), 0o644))

	d := NewSpoolDetector(path)
	ids, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"beacon-a", "beacon-b", "beacon-c"}, ids)

	// The spool is truncated after a read; the next cycle sees nothing.
	ids, err = d.Detect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSpoolDetector_MissingFile(t *testing.T) {
	d := NewSpoolDetector(filepath.Join(t.TempDir(), "absent.spool"))

	ids, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.Nil(t, ids)
}

func TestSpoolDetector_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewSpoolDetector(filepath.Join(t.TempDir(), "beacons.spool"))
	_, err := d.Detect(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStaticLocator(t *testing.T) {
	l := StaticLocator{Latitude: 40.7, Longitude: -74.0, Accuracy: 15}

	lat, lon, acc, err := l.Location(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 40.7, lat)
	assert.Equal(t, -74.0, lon)
	assert.Equal(t, 15.0, acc)
}
