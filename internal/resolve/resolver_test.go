package resolve

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-datesync/internal/extract"
	"media-datesync/internal/media"
	"media-datesync/internal/retry"
	"media-datesync/internal/store"
)

var encoded = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

// fakeExtractor returns scripted outcomes and counts calls per path
type fakeExtractor struct {
	mu       sync.Mutex
	calls    map[string]int
	outcomes map[string][]extract.Outcome
	delay    time.Duration
	onStart  func(path string)
	onEnd    func(path string)
}

func newFakeExtractor() *fakeExtractor {
	return &fakeExtractor{
		calls:    make(map[string]int),
		outcomes: make(map[string][]extract.Outcome),
	}
}

func (f *fakeExtractor) Extract(ctx context.Context, path string) extract.Result {
	if f.onStart != nil {
		f.onStart(path)
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.onEnd != nil {
		defer f.onEnd(path)
	}

	f.mu.Lock()
	n := f.calls[path]
	f.calls[path]++
	script := f.outcomes[path]
	f.mu.Unlock()

	outcome := extract.OutcomeSuccess
	if len(script) > 0 {
		outcome = script[min(n, len(script)-1)]
	}
	if outcome == extract.OutcomeSuccess {
		d := encoded
		return extract.Result{Path: path, Date: &d, Outcome: outcome}
	}
	return extract.Result{Path: path, Outcome: outcome}
}

func (f *fakeExtractor) callsFor(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *fakeExtractor) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func videoRefs(n int) []media.FileRef {
	refs := make([]media.FileRef, n)
	for i := range refs {
		refs[i] = media.FileRef{Path: fmt.Sprintf("/m/clip%02d.mp4", i), Kind: media.KindVideo}
	}
	return refs
}

func TestResolveSkipsNonMedia(t *testing.T) {
	fx := newFakeExtractor()
	r := New(fx)

	dates := r.Resolve(context.Background(), []media.FileRef{
		{Path: "/m/notes.txt", Kind: media.KindNone},
		{Path: "/m/clip.mp4", Kind: media.KindVideo},
		{Path: "/m/song.mp3", Kind: media.KindAudio},
	})

	assert.Len(t, dates, 2)
	assert.Contains(t, dates, "/m/clip.mp4")
	assert.Contains(t, dates, "/m/song.mp3")
	assert.Equal(t, 0, fx.callsFor("/m/notes.txt"))
}

func TestResolveEmpty(t *testing.T) {
	r := New(newFakeExtractor())
	assert.Empty(t, r.Resolve(context.Background(), nil))
}

func TestResolveOmitsFailures(t *testing.T) {
	fx := newFakeExtractor()
	fx.outcomes["/m/clip01.mp4"] = []extract.Outcome{extract.OutcomeNotFound}
	fx.outcomes["/m/clip02.mp4"] = []extract.Outcome{extract.OutcomeToolError}
	r := New(fx)

	dates := r.Resolve(context.Background(), videoRefs(4))

	assert.Len(t, dates, 2)
	assert.NotContains(t, dates, "/m/clip01.mp4")
	assert.NotContains(t, dates, "/m/clip02.mp4")
	assert.True(t, dates["/m/clip00.mp4"].Equal(encoded))
}

func TestResolveBoundsConcurrency(t *testing.T) {
	fx := newFakeExtractor()
	fx.delay = 5 * time.Millisecond

	var active, peak, finished int32
	index := make(map[string]int)
	refs := videoRefs(25)
	for i, ref := range refs {
		index[ref.Path] = i
	}
	var early atomic.Bool

	fx.onStart = func(path string) {
		n := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		// A file of window k may only start once all earlier windows finished
		window := index[path] / 10
		if int(atomic.LoadInt32(&finished)) < window*10 {
			early.Store(true)
		}
	}
	fx.onEnd = func(path string) {
		atomic.AddInt32(&active, -1)
		atomic.AddInt32(&finished, 1)
	}

	r := New(fx, WithWindowSize(10))
	dates := r.Resolve(context.Background(), refs)

	assert.Len(t, dates, 25)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(10))
	assert.False(t, early.Load(), "a window started before the previous one finished")
}

func TestResolveRetriesToolErrors(t *testing.T) {
	fx := newFakeExtractor()
	fx.outcomes["/m/clip00.mp4"] = []extract.Outcome{extract.OutcomeToolError, extract.OutcomeSuccess}
	fx.outcomes["/m/clip01.mp4"] = []extract.Outcome{extract.OutcomeNotFound}
	r := New(fx, WithRetry(retry.Policy{MaxAttempts: 3, Delay: time.Millisecond, Factor: 2}))

	dates := r.Resolve(context.Background(), videoRefs(2))

	assert.Contains(t, dates, "/m/clip00.mp4")
	assert.Equal(t, 2, fx.callsFor("/m/clip00.mp4"))
	assert.Equal(t, 1, fx.callsFor("/m/clip01.mp4"), "not-found is not retried")
}

func TestResolveUsesMemoryCache(t *testing.T) {
	fx := newFakeExtractor()
	fx.outcomes["/m/clip01.mp4"] = []extract.Outcome{extract.OutcomeNotFound}
	fx.outcomes["/m/clip02.mp4"] = []extract.Outcome{extract.OutcomeToolError}
	r := New(fx)
	refs := videoRefs(3)

	r.Resolve(context.Background(), refs)
	second := r.Resolve(context.Background(), refs)

	assert.Len(t, second, 1)
	assert.Equal(t, 1, fx.callsFor("/m/clip00.mp4"))
	assert.Equal(t, 1, fx.callsFor("/m/clip01.mp4"))
	assert.Equal(t, 2, fx.callsFor("/m/clip02.mp4"), "tool errors are not cached")

	r.Cache().Invalidate()
	r.Resolve(context.Background(), refs)
	assert.Equal(t, 2, fx.callsFor("/m/clip00.mp4"))
}

func TestDateCacheSetDirectory(t *testing.T) {
	c := NewDateCache()
	c.SetDirectory("/a")
	d := encoded
	c.Put(extract.Result{Path: "/a/x.mp4", Date: &d, Outcome: extract.OutcomeSuccess})

	c.SetDirectory("/a")
	assert.Equal(t, 1, c.Len())

	c.SetDirectory("/b")
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, "/b", c.Directory())
}

func TestDateCacheLastWriteWins(t *testing.T) {
	c := NewDateCache()
	first := encoded
	second := encoded.Add(time.Hour)
	c.Put(extract.Result{Path: "/a/x.mp4", Date: &first, Outcome: extract.OutcomeSuccess})
	c.Put(extract.Result{Path: "/a/x.mp4", Date: &second, Outcome: extract.OutcomeSuccess})

	got, ok := c.Get("/a/x.mp4")
	require.True(t, ok)
	assert.True(t, got.Date.Equal(second))
}

func TestStreamReportsEveryEligibleFile(t *testing.T) {
	fx := newFakeExtractor()
	fx.outcomes["/m/clip01.mp4"] = []extract.Outcome{extract.OutcomeNotFound}
	r := New(fx, WithWindowSize(2))

	refs := append(videoRefs(5), media.FileRef{Path: "/m/readme.md", Kind: media.KindNone})
	var seen []extract.Result
	err := r.Stream(context.Background(), refs, func(res extract.Result) {
		seen = append(seen, res)
	})

	require.NoError(t, err)
	assert.Len(t, seen, 5)
	found := 0
	for _, res := range seen {
		if res.Found() {
			found++
		}
	}
	assert.Equal(t, 4, found)
}

func TestStreamStopsWhenCancelled(t *testing.T) {
	fx := newFakeExtractor()
	ctx, cancel := context.WithCancel(context.Background())
	r := New(fx, WithWindowSize(2))

	calls := 0
	err := r.Stream(ctx, videoRefs(6), func(res extract.Result) {
		calls++
		if calls == 2 {
			cancel()
		}
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls, "the in-flight window completes, later ones never start")
}

func TestLookupDeduplicatesConcurrentCalls(t *testing.T) {
	fx := newFakeExtractor()
	fx.delay = 20 * time.Millisecond
	r := New(fx)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, ok := r.Lookup(context.Background(), "/m/clip.mp4")
			assert.True(t, ok)
			assert.True(t, got.Equal(encoded))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, fx.totalCalls())
}

func TestPersistentCacheSurvivesNewResolver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("video"), 0644))

	db, err := store.Open(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	defer db.Close()

	fx := newFakeExtractor()
	refs := []media.FileRef{{Path: path, Kind: media.KindVideo}}

	first := New(fx, WithPersistent(db)).Resolve(context.Background(), refs)
	require.Contains(t, first, path)
	db.Flush()

	second := New(fx, WithPersistent(db)).Resolve(context.Background(), refs)
	require.Contains(t, second, path)
	assert.True(t, second[path].Equal(encoded))
	assert.Equal(t, 1, fx.callsFor(path))

	// Touching the file invalidates the persistent entry
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))
	New(fx, WithPersistent(db)).Resolve(context.Background(), refs)
	assert.Equal(t, 2, fx.callsFor(path))
}

// fakeInfo is the slice of fs.FileInfo the persistent cache key reads
type fakeInfo struct {
	fs.FileInfo
	size    int64
	modTime time.Time
}

func (f fakeInfo) Size() int64        { return f.size }
func (f fakeInfo) ModTime() time.Time { return f.modTime }

// memPersistent is an in-memory Persistent keyed like the sqlite store
type memPersistent struct {
	mu      sync.Mutex
	entries map[string]store.DateEntry
}

func (p *memPersistent) GetDate(path string, size int64, modTime time.Time) (store.DateEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[path]
	if !ok || e.Size != size || !e.ModTime.Equal(modTime) {
		return store.DateEntry{}, false
	}
	return e, true
}

func (p *memPersistent) PutDate(e store.DateEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[e.Path] = e
	return nil
}

func TestPersistentCacheKeyUsesStat(t *testing.T) {
	db := &memPersistent{entries: make(map[string]store.DateEntry)}
	modTime := encoded.Add(48 * time.Hour)
	var statErr error
	stat := func(path string) (fs.FileInfo, error) {
		if statErr != nil {
			return nil, statErr
		}
		return fakeInfo{size: 42, modTime: modTime}, nil
	}

	fx := newFakeExtractor()
	refs := []media.FileRef{{Path: "/virtual/clip.mp4", Kind: media.KindVideo}}

	first := New(fx, WithPersistent(db), WithStat(stat)).Resolve(context.Background(), refs)
	require.Contains(t, first, "/virtual/clip.mp4")
	require.Contains(t, db.entries, "/virtual/clip.mp4")
	assert.Equal(t, int64(42), db.entries["/virtual/clip.mp4"].Size)

	New(fx, WithPersistent(db), WithStat(stat)).Resolve(context.Background(), refs)
	assert.Equal(t, 1, fx.callsFor("/virtual/clip.mp4"))

	// A new modification time misses
	modTime = modTime.Add(time.Minute)
	New(fx, WithPersistent(db), WithStat(stat)).Resolve(context.Background(), refs)
	assert.Equal(t, 2, fx.callsFor("/virtual/clip.mp4"))

	// Without stat results the persistent cache is skipped entirely
	statErr = fs.ErrNotExist
	delete(db.entries, "/virtual/clip.mp4")
	New(fx, WithPersistent(db), WithStat(stat)).Resolve(context.Background(), refs)
	assert.Equal(t, 3, fx.callsFor("/virtual/clip.mp4"))
	assert.NotContains(t, db.entries, "/virtual/clip.mp4")
}
