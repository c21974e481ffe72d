package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// DateEntry is one cached extraction. Encoded is nil when the file was
// inspected and carries no encoded date.
type DateEntry struct {
	Path        string
	Size        int64
	ModTime     time.Time
	Encoded     *time.Time
	ProcessedAt time.Time
}

// GetDate returns the cached entry for path if its size and modification
// time still match
func (s *Store) GetDate(path string, size int64, modTime time.Time) (DateEntry, bool) {
	var e DateEntry
	var modNanos, processedAt int64
	var encodedMillis sql.NullInt64
	var found bool

	err := s.db.QueryRow(`
		SELECT path, size, mod_time, encoded, found, processed_at
		FROM encoded_dates
		WHERE path = ? AND size = ? AND mod_time = ?
	`, path, size, modTime.UnixNano()).Scan(
		&e.Path, &e.Size, &modNanos, &encodedMillis, &found, &processedAt,
	)
	if err != nil {
		return DateEntry{}, false
	}

	e.ModTime = time.Unix(0, modNanos)
	e.ProcessedAt = time.Unix(processedAt, 0)
	if found && encodedMillis.Valid {
		t := time.UnixMilli(encodedMillis.Int64).UTC()
		e.Encoded = &t
	}
	return e, true
}

// PutDate queues an entry for writing (non-blocking)
func (s *Store) PutDate(e DateEntry) error {
	select {
	case s.writeChan <- writeRequest{entry: e}:
		return nil
	default:
		// Channel full, skip this write
		return fmt.Errorf("cache write queue full")
	}
}

// writeDate performs the actual database write (called by writer goroutine)
func (s *Store) writeDate(e DateEntry) error {
	var encodedMillis sql.NullInt64
	if e.Encoded != nil {
		encodedMillis.Valid = true
		encodedMillis.Int64 = e.Encoded.UnixMilli()
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO encoded_dates
		(path, size, mod_time, encoded, found, processed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.Path, e.Size, e.ModTime.UnixNano(), encodedMillis, e.Encoded != nil, time.Now().Unix())
	return err
}

// DateStats returns cache statistics
func (s *Store) DateStats() (total, withDate int64) {
	s.db.QueryRow("SELECT COUNT(*) FROM encoded_dates").Scan(&total)
	s.db.QueryRow("SELECT COUNT(*) FROM encoded_dates WHERE found = 1").Scan(&withDate)
	return
}

// PruneDeleted removes entries under root whose paths are not in
// validPaths. An empty root considers every entry.
func (s *Store) PruneDeleted(root string, validPaths map[string]bool) (int64, error) {
	prefix := ""
	if root != "" {
		prefix = strings.TrimSuffix(root, string(filepath.Separator)) + string(filepath.Separator)
	}

	rows, err := s.db.Query("SELECT path FROM encoded_dates")
	if err != nil {
		return 0, err
	}

	var toDelete []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			continue
		}
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		if !validPaths[path] {
			toDelete = append(toDelete, path)
		}
	}
	rows.Close()

	if len(toDelete) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("DELETE FROM encoded_dates WHERE path = ?")
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, path := range toDelete {
		if _, err := stmt.Exec(path); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int64(len(toDelete)), nil
}
