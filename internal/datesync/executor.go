// Package datesync rewrites filesystem timestamps from encoded media dates,
// chunk by chunk, and reports progress as it goes.
package datesync

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"media-datesync/internal/fsys"
	"media-datesync/internal/media"
	"media-datesync/internal/retry"
)

const (
	// DefaultChunkSize is the number of files written between progress updates
	DefaultChunkSize = 5

	// DefaultPause separates chunks so progress stays readable
	DefaultPause = 100 * time.Millisecond
)

// ErrNoFiles is returned when Sync is called without files
var ErrNoFiles = errors.New("no files to sync")

// MsgNoEncodedDate is the failure recorded for files without an encoded date
const MsgNoEncodedDate = "No encoded date found"

// Options selects which timestamps a sync overwrites
type Options struct {
	SetCreation bool
	SetModified bool
}

// Outcome is the result of syncing one file
type Outcome struct {
	Path    string
	Success bool
	Err     string
}

// DateLookup finds an encoded date for a file that arrived without one
type DateLookup func(ctx context.Context, path string) (time.Time, bool)

// ChunkFunc observes progress after each chunk
type ChunkFunc func(st State, chunk []Outcome)

// Executor applies encoded dates to files
type Executor struct {
	fs        fsys.Provider
	lookup    DateLookup
	policy    retry.Policy
	chunkSize int
	pause     time.Duration
	reporter  *Reporter
	logger    zerolog.Logger
}

// Option configures an Executor
type Option func(*Executor)

// WithLookup sets the fallback used for files without an encoded date
func WithLookup(l DateLookup) Option {
	return func(e *Executor) { e.lookup = l }
}

// WithRetry sets the policy for timestamp reads and writes
func WithRetry(p retry.Policy) Option {
	return func(e *Executor) { e.policy = p }
}

// WithChunkSize sets the number of files per chunk
func WithChunkSize(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.chunkSize = n
		}
	}
}

// WithPause sets the delay between chunks; zero disables it
func WithPause(d time.Duration) Option {
	return func(e *Executor) {
		if d >= 0 {
			e.pause = d
		}
	}
}

// WithReporter shares a progress reporter
func WithReporter(r *Reporter) Option {
	return func(e *Executor) {
		if r != nil {
			e.reporter = r
		}
	}
}

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// NewExecutor creates an Executor writing through provider
func NewExecutor(provider fsys.Provider, opts ...Option) *Executor {
	e := &Executor{
		fs:        provider,
		policy:    retry.None,
		chunkSize: DefaultChunkSize,
		pause:     DefaultPause,
		reporter:  NewReporter(),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With().Str("component", "datesync").Logger()
	return e
}

// Reporter returns the executor's progress reporter
func (e *Executor) Reporter() *Reporter {
	return e.reporter
}

// Sync writes encoded dates onto files and returns one outcome per file, in
// input order. Chunks run strictly one after another; files inside a chunk
// run concurrently. Cancellation is honoured between chunks only: a started
// chunk always finishes, and the outcomes so far are returned with ctx.Err().
func (e *Executor) Sync(ctx context.Context, files []media.FileWithEncodedDate, opts Options, onChunk ChunkFunc) ([]Outcome, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if err := e.reporter.Start(len(files)); err != nil {
		return nil, err
	}

	// In-flight writes must not be torn down by cancellation
	fileCtx := context.WithoutCancel(ctx)

	outcomes := make([]Outcome, 0, len(files))
	for start := 0; start < len(files); start += e.chunkSize {
		if start > 0 {
			if err := e.wait(ctx); err != nil {
				e.logger.Info().Int("processed", len(outcomes)).Int("total", len(files)).Msg("sync cancelled")
				return outcomes, err
			}
		}

		end := min(start+e.chunkSize, len(files))
		chunk := e.syncChunk(fileCtx, files[start:end], opts)
		outcomes = append(outcomes, chunk...)

		st := e.reporter.Record(chunk)
		if onChunk != nil {
			onChunk(st, chunk)
		}
	}

	st := e.reporter.Snapshot()
	e.logger.Info().
		Int("total", st.Total).
		Int("succeeded", st.Succeeded).
		Int("failed", st.Failed).
		Msg("sync complete")
	return outcomes, nil
}

// wait sleeps for the inter-chunk pause and reports cancellation
func (e *Executor) wait(ctx context.Context) error {
	if e.pause > 0 {
		t := time.NewTimer(e.pause)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
		}
	}
	return ctx.Err()
}

func (e *Executor) syncChunk(ctx context.Context, files []media.FileWithEncodedDate, opts Options) []Outcome {
	chunk := make([]Outcome, len(files))
	var g errgroup.Group
	for i, f := range files {
		g.Go(func() error {
			chunk[i] = e.syncFile(ctx, f, opts)
			return nil
		})
	}
	g.Wait()
	return chunk
}

func (e *Executor) syncFile(ctx context.Context, f media.FileWithEncodedDate, opts Options) Outcome {
	encoded := f.Encoded
	if encoded == nil && e.lookup != nil {
		if t, ok := e.lookup(ctx, f.Path); ok {
			encoded = &t
		}
	}
	if encoded == nil {
		e.logger.Warn().Str("file", f.Path).Msg("no encoded date")
		return Outcome{Path: f.Path, Err: MsgNoEncodedDate}
	}

	err := e.policy.Do(ctx, func() error {
		ts, err := e.fs.ReadTimestamps(f.Path)
		if err != nil {
			return permanentIfFinal(err)
		}

		// The write always runs; without SetModified it rewrites the old mtime
		mtime := ts.Modified
		if opts.SetModified {
			mtime = *encoded
		}
		return permanentIfFinal(e.fs.WriteTimestamps(f.Path, ts.Access, mtime))
	})
	if err != nil {
		e.logger.Warn().Err(err).Str("file", f.Path).Msg("sync failed")
		return Outcome{Path: f.Path, Err: err.Error()}
	}

	if opts.SetCreation && e.fs.SupportsCreationTime() {
		if err := e.fs.WriteCreationTime(f.Path, *encoded); err != nil {
			// Best effort; the modified time is already written
			e.logger.Debug().Err(err).Str("file", f.Path).Msg("creation time not set")
		}
	}

	return Outcome{Path: f.Path, Success: true}
}

// permanentIfFinal stops retries for errors another attempt cannot fix
func permanentIfFinal(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) || errors.Is(err, fsys.ErrCreationUnsupported) {
		return retry.Permanent(err)
	}
	return err
}
