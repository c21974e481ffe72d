package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"media-datesync/internal/config"
	"media-datesync/internal/datesync"
	"media-datesync/internal/extract"
	"media-datesync/internal/media"
	"media-datesync/internal/selector"
	"media-datesync/internal/store"
	"media-datesync/internal/tui"
)

var scanFlags = []cli.Flag{
	&cli.BoolFlag{
		Name:    "recursive",
		Aliases: []string{"r"},
		Usage:   "Scan subdirectories for media files",
	},
	&cli.IntFlag{
		Name:  "limit",
		Usage: "Limit number of files to process (0 = no limit)",
	},
	&cli.BoolFlag{
		Name:  "hidden",
		Usage: "Include hidden files",
	},
}

var criteriaFlags = []cli.Flag{
	&cli.BoolFlag{
		Name:  "check-creation",
		Usage: "Compare the creation time (default from settings)",
	},
	&cli.BoolFlag{
		Name:  "check-modified",
		Usage: "Compare the modified time (default from settings)",
	},
	&cli.Float64Flag{
		Name:    "days",
		Aliases: []string{"d"},
		Usage:   "Maximum allowed difference in days (default from settings)",
	},
}

func withFlags(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// criteriaFrom merges criteria flags over the saved defaults
func criteriaFrom(c *cli.Context, s store.Settings) (selector.Criteria, error) {
	crit := selector.Criteria{
		CheckCreation:     s.DateDifference.CheckCreationDate,
		CheckModified:     s.DateDifference.CheckModifiedDate,
		MaxDifferenceDays: s.DateDifference.MaxDifferenceInDays,
	}
	if c.IsSet("check-creation") {
		crit.CheckCreation = c.Bool("check-creation")
	}
	if c.IsSet("check-modified") {
		crit.CheckModified = c.Bool("check-modified")
	}
	if c.IsSet("days") {
		crit.MaxDifferenceDays = c.Float64("days")
	}
	return crit, crit.Validate()
}

// resolveEntries lists dir and fills in encoded dates, drawing progress
func resolveEntries(c *cli.Context, a *app, dir string) ([]media.Entry, error) {
	entries, err := a.loadEntries(dir, c.Bool("recursive"), c.Int("limit"), c.Bool("hidden"))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	a.rememberDir(dir)

	refs := media.Refs(entries)
	total := 0
	for _, ref := range refs {
		if ref.Kind.HasEncodedDate() {
			total++
		}
	}

	out := c.App.ErrWriter
	processed := 0
	found := make(map[string]extract.Result)
	err = a.resolver.Stream(c.Context, refs, func(res extract.Result) {
		processed++
		if res.Found() {
			found[res.Path] = res
		}
		printProgress(out, processed, total, res.Path)
	})
	clearLine(out)
	if err != nil {
		return nil, err
	}

	for i := range entries {
		if res, ok := found[entries[i].Path]; ok {
			entries[i].Encoded = res.Date
		}
	}
	return entries, nil
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Aliases:   []string{"ls"},
		Usage:     "List a directory with filesystem and encoded dates",
		ArgsUsage: "[dir]",
		Flags: withFlags(scanFlags, []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-dates",
				Usage: "Skip reading encoded dates",
			},
		}),
		Action: func(c *cli.Context) error {
			a, err := fromContext(c)
			if err != nil {
				return err
			}
			dir, err := a.targetDir(c)
			if err != nil {
				return err
			}

			var entries []media.Entry
			if c.Bool("no-dates") {
				entries, err = a.loadEntries(dir, c.Bool("recursive"), c.Int("limit"), c.Bool("hidden"))
				a.rememberDir(dir)
			} else {
				entries, err = resolveEntries(c, a, dir)
			}
			if err != nil {
				return err
			}

			t := newTable("Name", "Kind", "Size", "Modified", "Encoded")
			for _, e := range entries {
				t.Row(entryRow(e)...)
			}
			fmt.Fprintln(c.App.Writer, headerStyle.Render(dir))
			fmt.Fprintln(c.App.Writer, t)
			fmt.Fprintln(c.App.Writer, dimStyle.Render(fmt.Sprintf(
				"%d videos • %d audio • %d images",
				media.CountByKind(entries, media.KindVideo),
				media.CountByKind(entries, media.KindAudio),
				media.CountByKind(entries, media.KindImage),
			)))
			return nil
		},
	}
}

// mismatched resolves dir and returns the entries the criteria select
func mismatched(c *cli.Context, a *app, dir string) ([]media.Entry, selector.Criteria, error) {
	crit, err := criteriaFrom(c, a.settings)
	if err != nil {
		return nil, crit, err
	}
	entries, err := resolveEntries(c, a, dir)
	if err != nil {
		return nil, crit, err
	}

	files := make([]media.FileWithDates, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir {
			files = append(files, e.WithDates())
		}
	}
	chosen := selector.Select(files, crit)

	var selected []media.Entry
	for _, e := range entries {
		if _, ok := chosen[e.Path]; ok {
			selected = append(selected, e)
		}
	}
	return selected, crit, nil
}

func selectCommand() *cli.Command {
	return &cli.Command{
		Name:      "select",
		Usage:     "Show files whose timestamps drifted from their encoded date",
		ArgsUsage: "[dir]",
		Flags:     withFlags(scanFlags, criteriaFlags),
		Action: func(c *cli.Context) error {
			a, err := fromContext(c)
			if err != nil {
				return err
			}
			dir, err := a.targetDir(c)
			if err != nil {
				return err
			}
			selected, crit, err := mismatched(c, a, dir)
			if err != nil {
				return err
			}

			printSelection(c, selected, crit)
			return nil
		},
	}
}

func printSelection(c *cli.Context, selected []media.Entry, crit selector.Criteria) {
	fmt.Fprintln(c.App.Writer, headerStyle.Render(fmt.Sprintf(
		"%d files differ by more than %g days", len(selected), crit.MaxDifferenceDays)))
	if len(selected) == 0 {
		return
	}
	t := newTable("Name", "Encoded", "Created", "Modified")
	for _, e := range selected {
		t.Row(e.Name, formatTime(e.Encoded), drift(e.Created, e.Encoded), drift(e.Modified, e.Encoded))
	}
	fmt.Fprintln(c.App.Writer, t)
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "Rewrite drifted timestamps from the encoded date",
		ArgsUsage: "[dir]",
		Flags: withFlags(scanFlags, criteriaFlags, []cli.Flag{
			&cli.BoolFlag{
				Name:  "set-creation",
				Usage: "Write the creation time where the platform allows it (default from settings)",
			},
			&cli.BoolFlag{
				Name:  "set-modified",
				Usage: "Write the modified time (default from settings)",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Sync every file with an encoded date, not only drifted ones",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Show what would change without writing",
			},
		}),
		Action: syncAction,
	}
}

func syncAction(c *cli.Context) error {
	a, err := fromContext(c)
	if err != nil {
		return err
	}
	dir, err := a.targetDir(c)
	if err != nil {
		return err
	}

	opts := datesync.Options{
		SetCreation: a.settings.DateSync.SetCreationDate,
		SetModified: a.settings.DateSync.SetModifiedDate,
	}
	if c.IsSet("set-creation") {
		opts.SetCreation = c.Bool("set-creation")
	}
	if c.IsSet("set-modified") {
		opts.SetModified = c.Bool("set-modified")
	}

	var selected []media.Entry
	if c.Bool("all") {
		entries, err := resolveEntries(c, a, dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.Encoded != nil {
				selected = append(selected, e)
			}
		}
		fmt.Fprintln(c.App.Writer, headerStyle.Render(fmt.Sprintf("%d files with an encoded date", len(selected))))
	} else {
		var crit selector.Criteria
		selected, crit, err = mismatched(c, a, dir)
		if err != nil {
			return err
		}
		printSelection(c, selected, crit)
	}

	if len(selected) == 0 {
		fmt.Fprintln(c.App.Writer, "Nothing to sync.")
		return nil
	}
	if c.Bool("dry-run") {
		fmt.Fprintln(c.App.Writer, "This was a DRY RUN. Run without --dry-run to write timestamps.")
		return nil
	}

	files := make([]media.FileWithEncodedDate, len(selected))
	for i, e := range selected {
		files[i] = e.WithEncodedDate()
	}

	runID := uuid.NewString()
	logger := a.logger.With().Str("run_id", runID).Logger()
	logger.Info().
		Int("files", len(files)).
		Bool("set_creation", opts.SetCreation).
		Bool("set_modified", opts.SetModified).
		Msg("sync started")

	out := c.App.ErrWriter
	outcomes, err := a.executor.Sync(c.Context, files, opts, func(st datesync.State, chunk []datesync.Outcome) {
		current := ""
		if len(chunk) > 0 {
			current = chunk[len(chunk)-1].Path
		}
		printProgress(out, st.Processed, st.Total, current)
	})
	clearLine(out)

	st := a.executor.Reporter().Snapshot()
	for _, o := range outcomes {
		if !o.Success {
			fmt.Fprintln(c.App.Writer, failStyle.Render(fmt.Sprintf("✗ %s: %s", o.Path, o.Err)))
		}
	}
	logger.Info().Int("succeeded", st.Succeeded).Int("failed", st.Failed).Msg("sync finished")

	if err != nil {
		if errors.Is(err, c.Context.Err()) {
			fmt.Fprintln(c.App.Writer, failStyle.Render("Sync interrupted: "+st.Summary()))
			return nil
		}
		return err
	}
	fmt.Fprintln(c.App.Writer, okStyle.Render("✓ "+st.Summary()))
	return nil
}

func drivesCommand() *cli.Command {
	return &cli.Command{
		Name:  "drives",
		Usage: "List mounted drives",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "refresh",
				Usage: "Bypass the drive cache",
			},
		},
		Action: func(c *cli.Context) error {
			a, err := fromContext(c)
			if err != nil {
				return err
			}

			drives, err := a.drives.Drives()
			if c.Bool("refresh") {
				drives, err = a.drives.Refresh()
			}
			if err != nil {
				a.logger.Warn().Err(err).Msg("drive listing incomplete")
			}

			t := newTable("Name", "Path", "Type", "Free", "Total")
			for _, d := range drives {
				t.Row(d.Name, d.Path, d.FSType, humanize.Bytes(d.FreeSpace), humanize.Bytes(d.TotalSize))
			}
			fmt.Fprintln(c.App.Writer, t)
			return nil
		},
	}
}

func settingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Show or change saved defaults",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the saved defaults",
				Action: func(c *cli.Context) error {
					a, err := fromContext(c)
					if err != nil {
						return err
					}
					printSettings(c, a.settings)
					return nil
				},
			},
			{
				Name:  "set",
				Usage: "Change saved defaults",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "set-creation", Usage: "Sync writes the creation time"},
					&cli.BoolFlag{Name: "set-modified", Usage: "Sync writes the modified time"},
					&cli.BoolFlag{Name: "check-creation", Usage: "Compare the creation time"},
					&cli.BoolFlag{Name: "check-modified", Usage: "Compare the modified time"},
					&cli.Float64Flag{Name: "days", Usage: "Maximum allowed difference in days (1-365)"},
					&cli.StringFlag{Name: "view", Usage: "View mode: grid, list or details"},
					&cli.StringFlag{Name: "last-path", Usage: "Directory opened by default"},
				},
				Action: settingsSetAction,
			},
		},
		Action: func(c *cli.Context) error {
			a, err := fromContext(c)
			if err != nil {
				return err
			}
			printSettings(c, a.settings)
			return nil
		},
	}
}

func settingsSetAction(c *cli.Context) error {
	a, err := fromContext(c)
	if err != nil {
		return err
	}
	if a.store == nil {
		return fmt.Errorf("settings need the cache database, which is disabled")
	}

	s := a.settings
	if c.IsSet("set-creation") {
		s.DateSync.SetCreationDate = c.Bool("set-creation")
	}
	if c.IsSet("set-modified") {
		s.DateSync.SetModifiedDate = c.Bool("set-modified")
	}
	if c.IsSet("check-creation") {
		s.DateDifference.CheckCreationDate = c.Bool("check-creation")
	}
	if c.IsSet("check-modified") {
		s.DateDifference.CheckModifiedDate = c.Bool("check-modified")
	}
	if c.IsSet("days") {
		days := c.Float64("days")
		if !(days >= 1 && days <= 365) {
			return fmt.Errorf("days must be between 1 and 365, got %g", days)
		}
		s.DateDifference.MaxDifferenceInDays = days
	}
	if c.IsSet("view") {
		view := strings.ToLower(c.String("view"))
		if !store.ValidViewMode(view) {
			return fmt.Errorf("unknown view mode %q", view)
		}
		s.ViewMode = view
	}
	if c.IsSet("last-path") {
		s.LastPath = c.String("last-path")
	}

	if err := a.store.SaveSettings(s); err != nil {
		return err
	}
	a.settings = s
	printSettings(c, s)
	return nil
}

func printSettings(c *cli.Context, s store.Settings) {
	t := newTable("Setting", "Value")
	t.Row("sync: set creation date", fmt.Sprint(s.DateSync.SetCreationDate))
	t.Row("sync: set modified date", fmt.Sprint(s.DateSync.SetModifiedDate))
	t.Row("difference: check creation date", fmt.Sprint(s.DateDifference.CheckCreationDate))
	t.Row("difference: check modified date", fmt.Sprint(s.DateDifference.CheckModifiedDate))
	t.Row("difference: max days", fmt.Sprintf("%g", s.DateDifference.MaxDifferenceInDays))
	t.Row("view mode", s.ViewMode)
	t.Row("last path", s.LastPath)
	fmt.Fprintln(c.App.Writer, t)
}

func cacheCommand() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or prune the encoded date cache",
		Subcommands: []*cli.Command{
			{
				Name:  "stats",
				Usage: "Show cache counts",
				Action: func(c *cli.Context) error {
					a, err := fromContext(c)
					if err != nil {
						return err
					}
					if a.store == nil {
						return fmt.Errorf("cache is disabled")
					}
					total, withDate := a.store.DateStats()
					fmt.Fprintf(c.App.Writer, "Cache: %s files (%s with an encoded date) in %s\n",
						humanize.Comma(total), humanize.Comma(withDate), a.cfg.CacheDir)
					return nil
				},
			},
			{
				Name:      "prune",
				Usage:     "Drop cached dates for files under dir that no longer exist",
				ArgsUsage: "[dir]",
				Action: func(c *cli.Context) error {
					a, err := fromContext(c)
					if err != nil {
						return err
					}
					if a.store == nil {
						return fmt.Errorf("cache is disabled")
					}
					dir, err := a.targetDir(c)
					if err != nil {
						return err
					}
					entries, err := media.Walk(dir, 0)
					if err != nil {
						return err
					}
					valid := make(map[string]bool, len(entries))
					for _, e := range entries {
						valid[e.Path] = true
					}
					pruned, err := a.store.PruneDeleted(dir, valid)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Pruned %d deleted files from cache\n", pruned)
					return nil
				},
			},
		},
	}
}

func tuiCommand() *cli.Command {
	return &cli.Command{
		Name:      "tui",
		Usage:     "Open the interactive view",
		ArgsUsage: "[dir]",
		Flags:     withFlags(scanFlags, criteriaFlags),
		Action: func(c *cli.Context) error {
			a, err := fromContext(c)
			if err != nil {
				return err
			}
			dir, err := a.targetDir(c)
			if err != nil {
				return err
			}
			crit, err := criteriaFrom(c, a.settings)
			if err != nil {
				return err
			}
			a.rememberDir(dir)

			return tui.Run(tui.Deps{
				Dir: dir,
				List: func() ([]media.Entry, error) {
					return a.loadEntries(dir, c.Bool("recursive"), c.Int("limit"), c.Bool("hidden"))
				},
				Resolver: a.resolver,
				Executor: a.executor,
				Criteria: crit,
				Options: datesync.Options{
					SetCreation: a.settings.DateSync.SetCreationDate,
					SetModified: a.settings.DateSync.SetModifiedDate,
				},
			})
		},
	}
}

func initCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Run the interactive setup and write the config file",
		Action: func(c *cli.Context) error {
			_, err := config.RunSetupWizard(os.Stdin, c.App.Writer, c.String("config"))
			if errors.Is(err, config.ErrSetupCancelled) {
				fmt.Fprintln(c.App.Writer, "\nSetup cancelled.")
				return nil
			}
			return err
		},
	}
}
