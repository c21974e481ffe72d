package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDateRoundTrip(t *testing.T) {
	s := openTestStore(t)
	mod := time.Date(2024, 3, 1, 10, 0, 0, 123456789, time.UTC)
	encoded := time.Date(2023, 12, 24, 18, 30, 0, 250_000_000, time.UTC)

	require.NoError(t, s.PutDate(DateEntry{Path: "/m/a.mp4", Size: 100, ModTime: mod, Encoded: &encoded}))
	require.NoError(t, s.PutDate(DateEntry{Path: "/m/b.mp4", Size: 200, ModTime: mod}))
	s.Flush()

	e, ok := s.GetDate("/m/a.mp4", 100, mod)
	require.True(t, ok)
	require.NotNil(t, e.Encoded)
	assert.True(t, e.Encoded.Equal(encoded))

	e, ok = s.GetDate("/m/b.mp4", 200, mod)
	require.True(t, ok)
	assert.Nil(t, e.Encoded)

	total, withDate := s.DateStats()
	assert.Equal(t, int64(2), total)
	assert.Equal(t, int64(1), withDate)
}

func TestDateMissesWhenFileChanged(t *testing.T) {
	s := openTestStore(t)
	mod := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	encoded := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.PutDate(DateEntry{Path: "/m/a.mp4", Size: 100, ModTime: mod, Encoded: &encoded}))
	s.Flush()

	_, ok := s.GetDate("/m/a.mp4", 100, mod.Add(time.Second))
	assert.False(t, ok)
	_, ok = s.GetDate("/m/a.mp4", 101, mod)
	assert.False(t, ok)
	_, ok = s.GetDate("/m/other.mp4", 100, mod)
	assert.False(t, ok)
}

func TestPruneDeleted(t *testing.T) {
	s := openTestStore(t)
	mod := time.Now()
	for _, p := range []string{"/m/a.mp4", "/m/b.mp4", "/m/c.mp4", "/other/d.mp4"} {
		require.NoError(t, s.PutDate(DateEntry{Path: p, Size: 1, ModTime: mod}))
	}
	s.Flush()

	removed, err := s.PruneDeleted("/m", map[string]bool{"/m/b.mp4": true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	total, _ := s.DateStats()
	assert.Equal(t, int64(2), total, "entries outside the root are kept")

	removed, err = s.PruneDeleted("", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
}

func TestSettingsDefaultsAndRoundTrip(t *testing.T) {
	s := openTestStore(t)

	st, err := s.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), st)

	st.DateSync.SetCreationDate = false
	st.DateDifference.MaxDifferenceInDays = 30
	st.DateDifference.CheckModifiedDate = false
	st.LastPath = "/Volumes/Camera"
	st.ViewMode = ViewDetails
	require.NoError(t, s.SaveSettings(st))

	got, err := s.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, st, got)
}

func TestSettingsPersistAcrossOpen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.SetSetting(KeyLastPath, "/media"))
	require.NoError(t, s.Close())

	s, err = OpenPath(filepath.Join(dir, "datesync.db"), zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	var last string
	ok, err := s.GetSetting(KeyLastPath, &last)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/media", last)
}

func TestUnknownViewModeFallsBack(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SetSetting(KeyViewMode, "carousel"))

	st, err := s.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, ViewGrid, st.ViewMode)
}

func TestCloseIsIdempotent(t *testing.T) {
	s, err := Open(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}
