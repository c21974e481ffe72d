// Package tui is the interactive front end: list a directory, resolve
// encoded dates, review mismatches and sync them.
package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"media-datesync/internal/datesync"
	"media-datesync/internal/extract"
	"media-datesync/internal/media"
	"media-datesync/internal/resolve"
	"media-datesync/internal/selector"
)

type phase int

const (
	phaseListing phase = iota
	phaseResolving
	phaseReview
	phaseSyncing
	phaseDone
)

// Deps is everything the TUI drives
type Deps struct {
	Dir      string
	List     func() ([]media.Entry, error)
	Resolver *resolve.Resolver
	Executor *datesync.Executor
	Criteria selector.Criteria
	Options  datesync.Options
}

type resolveProgress struct {
	processed int
	total     int
	current   string
}

type model struct {
	deps         Deps
	currentPhase phase
	spinner      spinner.Model
	progress     progress.Model

	// Data
	entries  []media.Entry
	selected []media.Entry
	outcomes []datesync.Outcome
	criteria selector.Criteria

	// Progress tracking
	resolveState   resolveProgress
	syncState      datesync.State
	statusMsg      string
	resolveUpdates chan resolveProgress
	syncUpdates    <-chan datesync.State
	unsubscribe    func()

	// UI state
	cursor       int
	scrollOffset int
	width        int
	height       int

	// Error
	err error
}

type listedMsg struct {
	entries []media.Entry
}

type resolvedMsg struct {
	dates map[string]time.Time
}

type syncDoneMsg struct {
	outcomes []datesync.Outcome
	err      error
}

type resolveProgressMsg resolveProgress
type syncStateMsg datesync.State
type errMsg error

func newModel(deps Deps) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithoutPercentage(),
	)
	p.Width = 60

	return model{
		deps:         deps,
		currentPhase: phaseListing,
		spinner:      s,
		progress:     p,
		criteria:     deps.Criteria,
		statusMsg:    "Listing " + deps.Dir,
		height:       30,
	}
}

// Run starts the program and blocks until the user quits
func Run(deps Deps) error {
	_, err := tea.NewProgram(newModel(deps), tea.WithAltScreen()).Run()
	return err
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		listFiles(m.deps.List),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		progressWidth := msg.Width - 35
		if progressWidth < 20 {
			progressWidth = 20
		}
		m.progress.Width = progressWidth
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case listedMsg:
		m.entries = msg.entries
		m.currentPhase = phaseResolving
		refs := media.Refs(m.entries)
		m.statusMsg = fmt.Sprintf("Reading encoded dates from %d files...", len(refs))
		m.resolveState = resolveProgress{}
		m.resolveUpdates = make(chan resolveProgress, 100)
		return m, tea.Batch(
			resolveDates(m.deps.Resolver, refs, m.resolveUpdates),
			waitForResolve(m.resolveUpdates),
		)

	case resolveProgressMsg:
		m.resolveState = resolveProgress(msg)
		if m.currentPhase == phaseResolving {
			return m, waitForResolve(m.resolveUpdates)
		}
		return m, nil

	case resolvedMsg:
		media.ApplyEncoded(m.entries, msg.dates)
		m.currentPhase = phaseReview
		m.reselect()
		return m, nil

	case syncStateMsg:
		m.syncState = datesync.State(msg)
		if m.currentPhase == phaseSyncing {
			return m, waitForSync(m.syncUpdates)
		}
		return m, nil

	case syncDoneMsg:
		if m.unsubscribe != nil {
			// Releases the pending waitForSync
			m.unsubscribe()
			m.unsubscribe = nil
		}
		m.outcomes = msg.outcomes
		m.syncState = m.deps.Executor.Reporter().Snapshot()
		m.currentPhase = phaseDone
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Sync stopped: %v (%s)", msg.err, m.syncState.Summary())
		} else {
			m.statusMsg = "Complete! " + m.syncState.Summary()
		}
		return m, nil

	case errMsg:
		m.err = error(msg)
		return m, nil
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "y", "enter":
		if m.currentPhase == phaseReview {
			if len(m.selected) == 0 {
				m.statusMsg = "Nothing to sync"
				return m, nil
			}
			m.currentPhase = phaseSyncing
			m.statusMsg = fmt.Sprintf("Syncing %d files...", len(m.selected))
			m.syncUpdates, m.unsubscribe = m.deps.Executor.Reporter().Subscribe()
			return m, tea.Batch(
				syncFiles(m.deps.Executor, m.selected, m.deps.Options),
				waitForSync(m.syncUpdates),
			)
		}
		if m.currentPhase == phaseDone {
			return m, tea.Quit
		}

	case "c":
		if m.currentPhase == phaseReview {
			m.criteria.CheckCreation = !m.criteria.CheckCreation
			m.reselect()
		}

	case "m":
		if m.currentPhase == phaseReview {
			m.criteria.CheckModified = !m.criteria.CheckModified
			m.reselect()
		}

	case "+", "=":
		if m.currentPhase == phaseReview && m.criteria.MaxDifferenceDays < 365 {
			m.criteria.MaxDifferenceDays++
			m.reselect()
		}

	case "-":
		if m.currentPhase == phaseReview && m.criteria.MaxDifferenceDays >= 1 {
			m.criteria.MaxDifferenceDays--
			m.reselect()
		}

	case "up", "k":
		if m.currentPhase == phaseReview && m.cursor > 0 {
			m.cursor--
			if m.cursor < m.scrollOffset {
				m.scrollOffset = m.cursor
			}
		}

	case "down", "j":
		if m.currentPhase == phaseReview && m.cursor < len(m.selected)-1 {
			m.cursor++
			maxVisible := m.maxVisible()
			if m.cursor >= m.scrollOffset+maxVisible {
				m.scrollOffset = m.cursor - maxVisible + 1
			}
		}
	}
	return m, nil
}

// reselect recomputes the mismatched files for the current criteria
func (m *model) reselect() {
	files := make([]media.FileWithDates, 0, len(m.entries))
	for _, e := range m.entries {
		if !e.IsDir {
			files = append(files, e.WithDates())
		}
	}
	chosen := selector.Select(files, m.criteria)

	m.selected = nil
	for _, e := range m.entries {
		if _, ok := chosen[e.Path]; ok {
			m.selected = append(m.selected, e)
		}
	}
	m.cursor = 0
	m.scrollOffset = 0
	m.statusMsg = fmt.Sprintf("%d files differ by more than %g days", len(m.selected), m.criteria.MaxDifferenceDays)
}

func (m model) maxVisible() int {
	n := m.height - 18
	if n < 3 {
		n = 3
	}
	return n
}

func (m model) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to quit", m.err)
	}

	var b strings.Builder
	b.WriteString("\n")

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86")).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1).
		MarginLeft(2)
	b.WriteString(titleStyle.Render("Media Date Sync"))
	b.WriteString("\n\n")

	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginLeft(2)
	b.WriteString(dimStyle.Render(truncatePath(m.deps.Dir, 60)))
	b.WriteString("\n\n")

	// Phase indicator
	b.WriteString("  ")
	phases := []string{"Listing", "Resolving", "Review", "Syncing", "Done"}
	for i, name := range phases {
		if i > 0 {
			b.WriteString(" → ")
		}
		if int(m.currentPhase) == i {
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true).Render(name))
		} else if int(m.currentPhase) > i {
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render("✓"))
		} else {
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render(name))
		}
	}
	b.WriteString("\n\n")

	switch m.currentPhase {
	case phaseListing, phaseResolving:
		b.WriteString(fmt.Sprintf("  %s %s\n\n", m.spinner.View(), m.statusMsg))
		if m.resolveState.total > 0 {
			b.WriteString(m.renderProgress(m.resolveState.processed, m.resolveState.total))
		}
		if m.resolveState.current != "" {
			fileStyle := dimStyle.Italic(true)
			b.WriteString(fileStyle.Render(truncatePath(m.resolveState.current, max(m.width-20, 40))))
		}

	case phaseSyncing:
		b.WriteString(fmt.Sprintf("  %s %s\n\n", m.spinner.View(), m.statusMsg))
		if m.syncState.Total > 0 {
			b.WriteString(m.renderProgress(m.syncState.Processed, m.syncState.Total))
		}

	case phaseReview:
		b.WriteString(m.renderReview())

	case phaseDone:
		doneStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true).
			MarginLeft(2)
		b.WriteString(doneStyle.Render("✓ " + m.statusMsg))
		b.WriteString("\n\n")
		b.WriteString(m.renderFailures())
	}

	b.WriteString("\n\n")
	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		MarginLeft(2)
	switch m.currentPhase {
	case phaseReview:
		b.WriteString(helpStyle.Render("↑/↓: navigate • c/m: toggle creation/modified • +/-: tolerance • y/enter: sync • q: quit"))
	case phaseDone:
		b.WriteString(helpStyle.Render("enter: quit • q: quit"))
	default:
		b.WriteString(helpStyle.Render("q: quit"))
	}
	b.WriteString("\n")

	return b.String()
}

func (m model) renderProgress(processed, total int) string {
	percent := float64(processed) / float64(total)
	return fmt.Sprintf("  %s %d%% (%d/%d files)\n\n",
		m.progress.ViewAs(percent), int(percent*100), processed, total)
}

func (m model) renderReview() string {
	var b strings.Builder

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1).
		MarginLeft(2)

	withDate := 0
	for _, e := range m.entries {
		if e.Encoded != nil {
			withDate++
		}
	}
	b.WriteString(boxStyle.Render(fmt.Sprintf(
		"Files: %d • Videos: %d • Audio: %d • Images: %d • With encoded date: %d\nCriteria: creation %s • modified %s • tolerance %g days",
		len(media.Refs(m.entries)),
		media.CountByKind(m.entries, media.KindVideo),
		media.CountByKind(m.entries, media.KindAudio),
		media.CountByKind(m.entries, media.KindImage),
		withDate,
		onOff(m.criteria.CheckCreation),
		onOff(m.criteria.CheckModified),
		m.criteria.MaxDifferenceDays,
	)))
	b.WriteString("\n\n")

	headerStyle := lipgloss.NewStyle().Bold(true).MarginLeft(2)
	b.WriteString(headerStyle.Render(m.statusMsg))
	b.WriteString("\n\n")

	end := min(m.scrollOffset+m.maxVisible(), len(m.selected))
	for i := m.scrollOffset; i < end; i++ {
		e := m.selected[i]
		line := fmt.Sprintf("%s  encoded %s", e.Name, e.Encoded.Format("2006-01-02 15:04"))
		if e.Modified != nil {
			line += "  modified " + humanize.RelTime(*e.Modified, *e.Encoded, "before encoded", "after encoded")
		}

		if i == m.cursor {
			selectedStyle := lipgloss.NewStyle().
				Background(lipgloss.Color("62")).
				Foreground(lipgloss.Color("230")).
				MarginLeft(2)
			b.WriteString(selectedStyle.Render("► " + line))
		} else {
			b.WriteString("    " + line)
		}
		b.WriteString("\n")
	}

	if len(m.selected) > end {
		moreStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginLeft(2)
		b.WriteString(moreStyle.Render(fmt.Sprintf("\n... %d more files ...", len(m.selected)-end)))
	}

	return b.String()
}

func (m model) renderFailures() string {
	var b strings.Builder
	failStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196")).MarginLeft(2)
	shown := 0
	for _, o := range m.outcomes {
		if o.Success {
			continue
		}
		if shown == m.maxVisible() {
			b.WriteString(failStyle.Render("..."))
			b.WriteString("\n")
			break
		}
		b.WriteString(failStyle.Render(fmt.Sprintf("✗ %s: %s", filepath.Base(o.Path), o.Err)))
		b.WriteString("\n")
		shown++
	}
	return b.String()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// Commands
func listFiles(list func() ([]media.Entry, error)) tea.Cmd {
	return func() tea.Msg {
		entries, err := list()
		if err != nil {
			return errMsg(err)
		}
		return listedMsg{entries: entries}
	}
}

func resolveDates(r *resolve.Resolver, refs []media.FileRef, updates chan resolveProgress) tea.Cmd {
	return func() tea.Msg {
		total := 0
		for _, ref := range refs {
			if ref.Kind.HasEncodedDate() {
				total++
			}
		}

		dates := make(map[string]time.Time)
		processed := 0
		r.Stream(context.Background(), refs, func(res extract.Result) {
			processed++
			if res.Found() {
				dates[res.Path] = *res.Date
			}
			select {
			case updates <- resolveProgress{processed: processed, total: total, current: res.Path}:
			default:
			}
		})
		close(updates)
		return resolvedMsg{dates: dates}
	}
}

// waitForResolve relays one resolver progress update
func waitForResolve(updates <-chan resolveProgress) tea.Cmd {
	return func() tea.Msg {
		prog, ok := <-updates
		if !ok {
			return nil
		}
		return resolveProgressMsg(prog)
	}
}

func syncFiles(e *datesync.Executor, entries []media.Entry, opts datesync.Options) tea.Cmd {
	return func() tea.Msg {
		files := make([]media.FileWithEncodedDate, len(entries))
		for i, entry := range entries {
			files[i] = entry.WithEncodedDate()
		}
		outcomes, err := e.Sync(context.Background(), files, opts, nil)
		return syncDoneMsg{outcomes: outcomes, err: err}
	}
}

// waitForSync relays one reporter state
func waitForSync(updates <-chan datesync.State) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-updates
		if !ok {
			return nil
		}
		return syncStateMsg(st)
	}
}

// truncatePath shortens a file path for display
func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	if maxLen > 10 {
		return "..." + path[len(path)-maxLen+3:]
	}
	return path[:maxLen]
}
