// Package resolve turns batches of media files into encoded dates, running a
// bounded number of extractions at a time.
package resolve

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"media-datesync/internal/extract"
	"media-datesync/internal/media"
	"media-datesync/internal/retry"
	"media-datesync/internal/store"
)

// DefaultWindowSize is the number of extractions in flight at once
const DefaultWindowSize = 10

var errToolFailed = errors.New("metadata tool failed")

// Persistent caches dates across runs, keyed by path, size and modification
// time
type Persistent interface {
	GetDate(path string, size int64, modTime time.Time) (store.DateEntry, bool)
	PutDate(e store.DateEntry) error
}

// Resolver resolves encoded dates for batches of files
type Resolver struct {
	extractor  extract.Extractor
	window     int
	policy     retry.Policy
	cache      *DateCache
	persistent Persistent
	stat       StatFunc
	group      singleflight.Group
	logger     zerolog.Logger
}

// StatFunc reports the size and modification time that key the persistent
// cache
type StatFunc func(path string) (fs.FileInfo, error)

// Option configures a Resolver
type Option func(*Resolver)

// WithWindowSize sets how many extractions run concurrently
func WithWindowSize(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.window = n
		}
	}
}

// WithRetry sets the policy applied to extractions that end in a tool error
func WithRetry(p retry.Policy) Option {
	return func(r *Resolver) { r.policy = p }
}

// WithCache shares an existing memory cache
func WithCache(c *DateCache) Option {
	return func(r *Resolver) {
		if c != nil {
			r.cache = c
		}
	}
}

// WithPersistent adds a cross-run cache
func WithPersistent(p Persistent) Option {
	return func(r *Resolver) { r.persistent = p }
}

// WithStat replaces os.Stat for persistent cache keys
func WithStat(stat StatFunc) Option {
	return func(r *Resolver) {
		if stat != nil {
			r.stat = stat
		}
	}
}

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// New creates a Resolver around extractor
func New(extractor extract.Extractor, opts ...Option) *Resolver {
	r := &Resolver{
		extractor: extractor,
		window:    DefaultWindowSize,
		policy:    retry.None,
		cache:     NewDateCache(),
		stat:      os.Stat,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With().Str("component", "resolver").Logger()
	return r
}

// Cache returns the resolver's memory cache
func (r *Resolver) Cache() *DateCache {
	return r.cache
}

// Resolve returns the encoded date of every file that has one. Files of kind
// none are skipped without running the extractor; files whose extraction
// fails are simply absent. When ctx is cancelled the dates resolved so far
// are returned.
func (r *Resolver) Resolve(ctx context.Context, refs []media.FileRef) map[string]time.Time {
	dates := make(map[string]time.Time)
	r.Stream(ctx, refs, func(res extract.Result) {
		if res.Found() {
			dates[res.Path] = *res.Date
		}
	})
	return dates
}

// Stream resolves refs window by window and hands every result, found or
// not, to fn as soon as it is known. Calls to fn are serialized. The next
// window starts only after the current one has finished; cancellation is
// observed between windows.
func (r *Resolver) Stream(ctx context.Context, refs []media.FileRef, fn func(extract.Result)) error {
	eligible := make([]media.FileRef, 0, len(refs))
	for _, ref := range refs {
		if ref.Kind.HasEncodedDate() {
			eligible = append(eligible, ref)
		}
	}

	var mu sync.Mutex
	resolved := 0
	for start := 0; start < len(eligible); start += r.window {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+r.window, len(eligible))

		// Goroutines never return errors so one failure cannot cancel its
		// siblings
		var g errgroup.Group
		for _, ref := range eligible[start:end] {
			g.Go(func() error {
				res := r.lookup(ctx, ref.Path)
				mu.Lock()
				if res.Found() {
					resolved++
				}
				fn(res)
				mu.Unlock()
				return nil
			})
		}
		g.Wait()
	}

	r.logger.Debug().
		Int("files", len(refs)).
		Int("eligible", len(eligible)).
		Int("resolved", resolved).
		Msg("batch resolved")
	return nil
}

// Lookup resolves a single file, using the caches when possible
func (r *Resolver) Lookup(ctx context.Context, path string) (time.Time, bool) {
	res := r.lookup(ctx, path)
	if !res.Found() {
		return time.Time{}, false
	}
	return *res.Date, true
}

func (r *Resolver) lookup(ctx context.Context, path string) extract.Result {
	if res, ok := r.cache.Get(path); ok {
		return res
	}

	v, _, _ := r.group.Do(path, func() (interface{}, error) {
		// Another caller may have filled the cache while we waited
		if res, ok := r.cache.Get(path); ok {
			return res, nil
		}

		// A file that cannot be stat'ed bypasses the persistent cache
		var info fs.FileInfo
		if r.persistent != nil {
			if fi, err := r.stat(path); err == nil {
				info = fi
			}
		}
		if info != nil {
			if e, ok := r.persistent.GetDate(path, info.Size(), info.ModTime()); ok {
				res := extract.Result{Path: path, Date: e.Encoded, Outcome: extract.OutcomeNotFound}
				if e.Encoded != nil {
					res.Outcome = extract.OutcomeSuccess
				}
				r.cache.Put(res)
				return res, nil
			}
		}

		res := r.extractWithRetry(ctx, path)
		r.cache.Put(res)

		if info != nil && res.Outcome != extract.OutcomeToolError {
			if err := r.persistent.PutDate(store.DateEntry{
				Path:    path,
				Size:    info.Size(),
				ModTime: info.ModTime(),
				Encoded: res.Date,
			}); err != nil {
				r.logger.Debug().Err(err).Str("file", path).Msg("persistent cache write skipped")
			}
		}
		return res, nil
	})
	return v.(extract.Result)
}

// extractWithRetry runs the extractor, retrying tool errors per the policy
func (r *Resolver) extractWithRetry(ctx context.Context, path string) extract.Result {
	var res extract.Result
	err := r.policy.Do(ctx, func() error {
		res = r.extractor.Extract(ctx, path)
		if res.Outcome == extract.OutcomeToolError {
			return errToolFailed
		}
		return nil
	})
	if err != nil {
		r.logger.Warn().Err(err).Str("file", path).Msg("could not read encoded date")
		if res.Path == "" {
			res = extract.Result{Path: path, Outcome: extract.OutcomeToolError}
		}
	}
	return res
}
