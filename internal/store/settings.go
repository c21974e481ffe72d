package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Setting keys
const (
	KeyDateSyncDefaults       = "dateSyncDefaults"
	KeyDateDifferenceDefaults = "dateDifferenceDefaults"
	KeyLastPath               = "lastPath"
	KeyViewMode               = "viewMode"
)

// View modes for directory listings
const (
	ViewGrid    = "grid"
	ViewList    = "list"
	ViewDetails = "details"
)

// SyncDefaults preselects which timestamps a sync overwrites
type SyncDefaults struct {
	SetCreationDate bool `json:"setCreationDate"`
	SetModifiedDate bool `json:"setModifiedDate"`
}

// DifferenceDefaults preselects the date difference criteria
type DifferenceDefaults struct {
	CheckCreationDate   bool    `json:"checkCreationDate"`
	CheckModifiedDate   bool    `json:"checkModifiedDate"`
	MaxDifferenceInDays float64 `json:"maxDifferenceInDays"`
}

// Settings is the full set of user preferences
type Settings struct {
	DateSync       SyncDefaults
	DateDifference DifferenceDefaults
	LastPath       string
	ViewMode       string
}

// DefaultSettings returns the preferences used before anything is saved
func DefaultSettings() Settings {
	return Settings{
		DateSync: SyncDefaults{SetCreationDate: true, SetModifiedDate: true},
		DateDifference: DifferenceDefaults{
			CheckCreationDate:   true,
			CheckModifiedDate:   true,
			MaxDifferenceInDays: 7,
		},
		ViewMode: ViewGrid,
	}
}

// ValidViewMode reports whether mode is a known view mode
func ValidViewMode(mode string) bool {
	switch mode {
	case ViewGrid, ViewList, ViewDetails:
		return true
	}
	return false
}

// GetSetting decodes the JSON value stored under key into dst. It reports
// false when the key has never been set.
func (s *Store) GetSetting(key string, dst any) (bool, error) {
	var raw string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read setting %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("decode setting %s: %w", key, err)
	}
	return true, nil
}

// SetSetting stores value under key as JSON
func (s *Store) SetSetting(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}
	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
	`, key, string(raw), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	return nil
}

// LoadSettings reads every preference, falling back to defaults for keys
// that were never saved
func (s *Store) LoadSettings() (Settings, error) {
	st := DefaultSettings()
	fields := []struct {
		key string
		dst any
	}{
		{KeyDateSyncDefaults, &st.DateSync},
		{KeyDateDifferenceDefaults, &st.DateDifference},
		{KeyLastPath, &st.LastPath},
		{KeyViewMode, &st.ViewMode},
	}
	for _, f := range fields {
		if _, err := s.GetSetting(f.key, f.dst); err != nil {
			return DefaultSettings(), err
		}
	}
	if !ValidViewMode(st.ViewMode) {
		st.ViewMode = ViewGrid
	}
	return st, nil
}

// SaveSettings writes every preference
func (s *Store) SaveSettings(st Settings) error {
	if err := s.SetSetting(KeyDateSyncDefaults, st.DateSync); err != nil {
		return err
	}
	if err := s.SetSetting(KeyDateDifferenceDefaults, st.DateDifference); err != nil {
		return err
	}
	if err := s.SetSetting(KeyLastPath, st.LastPath); err != nil {
		return err
	}
	return s.SetSetting(KeyViewMode, st.ViewMode)
}
