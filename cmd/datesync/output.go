package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"media-datesync/internal/media"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// newTable returns a table with the shared header styling
func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

// entryRow renders one listing row
func entryRow(e media.Entry) []string {
	if e.IsDir {
		return []string{e.Name + "/", "dir", "", formatTime(e.Modified), ""}
	}
	return []string{
		e.Name,
		e.Kind.String(),
		humanize.Bytes(uint64(e.Size)),
		formatTime(e.Modified),
		formatTime(e.Encoded),
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// drift describes how far fs is from encoded, e.g. "9 days after"
func drift(fs, encoded *time.Time) string {
	if fs == nil || encoded == nil {
		return "-"
	}
	if fs.Equal(*encoded) {
		return "exact"
	}
	return humanize.RelTime(*fs, *encoded, "before", "after")
}

// printProgress redraws a single progress line
func printProgress(w io.Writer, processed, total int, current string) {
	if total == 0 {
		return
	}
	percent := float64(processed) * 100 / float64(total)
	fmt.Fprintf(w, "\r  Progress: [%-50s] %3.0f%% (%d/%d) %s",
		progressBar(percent),
		percent,
		processed,
		total,
		truncateFilePath(current, 60))
}

// clearLine blanks the progress line
func clearLine(w io.Writer) {
	fmt.Fprintf(w, "\r%s\r", strings.Repeat(" ", 150))
}

// progressBar creates a text progress bar
func progressBar(percent float64) string {
	const width = 50
	filled := int(percent / 2) // 50 chars = 100%
	if filled > width {
		filled = width
	}
	var b strings.Builder
	for i := 0; i < width; i++ {
		switch {
		case i < filled:
			b.WriteByte('=')
		case i == filled:
			b.WriteByte('>')
		default:
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// truncateFilePath shortens a file path for display
func truncateFilePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	// Show just the filename
	base := filepath.Base(path)
	if len(base) <= maxLen {
		return "..." + base
	}
	return "..." + base[len(base)-maxLen+3:]
}
