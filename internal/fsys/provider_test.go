package fsys

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSWriteAndReadTimestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	p := NewOS()
	atime := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	mtime := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, p.WriteTimestamps(path, atime, mtime))

	ts, err := p.ReadTimestamps(path)
	require.NoError(t, err)
	assert.True(t, ts.Modified.Equal(mtime), "modified = %s", ts.Modified)
}

func TestOSReadTimestampsMissingFile(t *testing.T) {
	_, err := NewOS().ReadTimestamps(filepath.Join(t.TempDir(), "missing.mp4"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOSWriteCreationTimeMatchesSupport(t *testing.T) {
	p := NewOS()
	if p.SupportsCreationTime() {
		t.Skip("platform can set creation time")
	}
	err := p.WriteCreationTime(filepath.Join(t.TempDir(), "a.mp4"), time.Now())
	assert.ErrorIs(t, err, ErrCreationUnsupported)
}
