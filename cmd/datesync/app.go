package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"media-datesync/internal/config"
	"media-datesync/internal/datesync"
	"media-datesync/internal/extract"
	"media-datesync/internal/fsys"
	"media-datesync/internal/logging"
	"media-datesync/internal/media"
	"media-datesync/internal/resolve"
	"media-datesync/internal/store"
)

// app holds the components shared by every command
type app struct {
	cfg       *config.Config
	logger    zerolog.Logger
	store     *store.Store
	settings  store.Settings
	inspector *extract.MediaInfo
	resolver  *resolve.Resolver
	executor  *datesync.Executor
	drives    *fsys.DriveCache
}

// newApp loads config, sets up logging and opens the cache. A cache that
// cannot be opened only disables caching. quiet discards log output.
func newApp(c *cli.Context, quiet bool) (*app, error) {
	cfg, err := config.LoadOrDefault(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if c.IsSet("mediainfo") {
		cfg.MediaInfoPath = c.String("mediainfo")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.LogFormat = c.String("log-format")
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if quiet {
		logger = logging.Discard()
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		settings: store.DefaultSettings(),
	}

	if !c.Bool("no-cache") {
		db, err := store.Open(cfg.CacheDir, logger)
		if err != nil {
			logger.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache disabled")
		} else {
			a.store = db
			if a.settings, err = db.LoadSettings(); err != nil {
				logger.Warn().Err(err).Msg("using default settings")
			}
		}
	}

	a.inspector = extract.NewMediaInfo(cfg.MediaInfoPath, cfg.ExtractTimeout, logger)
	if !a.inspector.Available() {
		logger.Warn().Str("binary", cfg.MediaInfoPath).Msg("mediainfo not found, only image dates can be read")
	}

	resolverOpts := []resolve.Option{
		resolve.WithWindowSize(cfg.WindowSize),
		resolve.WithRetry(cfg.RetryPolicy()),
		resolve.WithLogger(logger),
	}
	if a.store != nil {
		resolverOpts = append(resolverOpts, resolve.WithPersistent(a.store))
	}
	a.resolver = resolve.New(extract.NewDefault(a.inspector), resolverOpts...)

	a.executor = datesync.NewExecutor(fsys.NewOS(),
		datesync.WithLookup(a.resolver.Lookup),
		datesync.WithRetry(cfg.RetryPolicy()),
		datesync.WithChunkSize(cfg.ChunkSize),
		datesync.WithPause(cfg.ChunkPause),
		datesync.WithLogger(logger),
	)

	a.drives = fsys.NewDriveCache(fsys.ListDrives, fsys.SystemClock, cfg.DriveCacheTTL)
	return a, nil
}

// close flushes and closes the cache
func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

// fromContext returns the app stored by Before
func fromContext(c *cli.Context) (*app, error) {
	a, ok := c.App.Metadata["app"].(*app)
	if !ok {
		return nil, fmt.Errorf("application not initialized")
	}
	return a, nil
}

// targetDir picks the directory argument, falling back to the last path used
// and then the working directory
func (a *app) targetDir(c *cli.Context) (string, error) {
	dir := c.Args().First()
	if dir == "" {
		dir = a.settings.LastPath
	}
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", abs)
	}
	return abs, nil
}

// rememberDir stores dir as the last path used
func (a *app) rememberDir(dir string) {
	if a.store == nil || dir == a.settings.LastPath {
		return
	}
	if err := a.store.SetSetting(store.KeyLastPath, dir); err != nil {
		a.logger.Debug().Err(err).Msg("could not save last path")
		return
	}
	a.settings.LastPath = dir
}

// loadEntries lists dir, or walks it when recursive. The resolver cache is
// scoped to the listed directory.
func (a *app) loadEntries(dir string, recursive bool, limit int, showHidden bool) ([]media.Entry, error) {
	a.resolver.Cache().SetDirectory(dir)
	if recursive {
		entries, err := media.Walk(dir, limit)
		if err == nil && a.store != nil && limit == 0 {
			a.pruneUnder(dir, entries)
		}
		return entries, err
	}
	entries, err := media.List(dir, showHidden)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// pruneUnder drops cached dates for files under dir that no longer exist
func (a *app) pruneUnder(dir string, entries []media.Entry) {
	valid := make(map[string]bool, len(entries))
	for _, e := range entries {
		valid[e.Path] = true
	}
	pruned, err := a.store.PruneDeleted(dir, valid)
	if err != nil {
		a.logger.Debug().Err(err).Msg("cache prune failed")
		return
	}
	if pruned > 0 {
		a.logger.Info().Int64("pruned", pruned).Str("dir", dir).Msg("pruned vanished files from cache")
	}
}
