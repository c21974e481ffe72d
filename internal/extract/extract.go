// Package extract reads the encoded date embedded in media files.
package extract

import (
	"context"
	"strings"
	"time"
)

// Outcome classifies a single extraction attempt
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeNotFound
	OutcomeToolError
)

func (o Outcome) String() string {
	return [...]string{"success", "not-found", "tool-error"}[o]
}

// Result is the outcome of one extraction attempt. Date is nil unless
// Outcome is OutcomeSuccess.
type Result struct {
	Path    string
	Date    *time.Time
	Outcome Outcome
}

// Found reports whether a date was extracted
func (r Result) Found() bool {
	return r.Outcome == OutcomeSuccess && r.Date != nil
}

// Extractor probes one file for its encoded date. Implementations never
// return errors; every failure collapses into a Result outcome.
type Extractor interface {
	Extract(ctx context.Context, path string) Result
}

// ExtractorFunc adapts a function to the Extractor interface
type ExtractorFunc func(ctx context.Context, path string) Result

// Extract calls f
func (f ExtractorFunc) Extract(ctx context.Context, path string) Result {
	return f(ctx, path)
}

func found(path string, t time.Time) Result {
	return Result{Path: path, Date: &t, Outcome: OutcomeSuccess}
}

func notFound(path string) Result {
	return Result{Path: path, Outcome: OutcomeNotFound}
}

func toolError(path string) Result {
	return Result{Path: path, Outcome: OutcomeToolError}
}

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006:01:02 15:04:05",
}

// ParseEncodedDate parses one line of media inspector output. A leading
// "UTC " marker is stripped and the result is normalized to UTC.
func ParseEncodedDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	// Multiple tracks can report dates; the first line is the container's
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	s = strings.TrimSpace(strings.TrimPrefix(s, "UTC"))
	s = strings.TrimSpace(strings.TrimSuffix(s, "UTC"))
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
