// Package store persists encoded dates and user settings in sqlite.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS encoded_dates (
	path TEXT PRIMARY KEY,
	size INTEGER NOT NULL,
	mod_time INTEGER NOT NULL,
	encoded INTEGER,
	found INTEGER NOT NULL,
	processed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_encoded_mod_time ON encoded_dates(mod_time);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// writeRequest carries either a date entry or, when done is set, a flush
// barrier the writer closes once everything before it has been applied.
type writeRequest struct {
	entry DateEntry
	done  chan struct{}
}

// Store is the sqlite database behind the date cache and settings
type Store struct {
	db         *sql.DB
	logger     zerolog.Logger
	writeChan  chan writeRequest
	writerDone sync.WaitGroup
	closeOnce  sync.Once
}

// Open opens or creates the database in dir
func Open(dir string, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return OpenPath(filepath.Join(dir, "datesync.db"), logger)
}

// OpenPath opens or creates the database file at path
func OpenPath(path string, logger zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store db: %w", err)
	}
	// One connection keeps the pragmas below in effect for every query
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Retry instead of failing immediately when another connection holds the lock
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &Store{
		db:        db,
		logger:    logger.With().Str("component", "store").Logger(),
		writeChan: make(chan writeRequest, 1000),
	}

	// Single writer goroutine serializes all date writes
	s.writerDone.Add(1)
	go s.writerLoop()

	return s, nil
}

func (s *Store) writerLoop() {
	defer s.writerDone.Done()

	for req := range s.writeChan {
		if req.done != nil {
			close(req.done)
			continue
		}
		if err := s.writeDate(req.entry); err != nil {
			// Cache is best-effort
			s.logger.Warn().Err(err).Str("file", req.entry.Path).Msg("cache write failed")
		}
	}
}

// Close flushes pending writes and closes the database
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.writeChan)
		s.writerDone.Wait()
		err = s.db.Close()
	})
	return err
}

// Flush blocks until every write queued before it has been applied
func (s *Store) Flush() {
	done := make(chan struct{})
	s.writeChan <- writeRequest{done: done}
	<-done
}
