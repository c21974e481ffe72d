// Package selector finds media files whose filesystem timestamps have
// drifted from the date encoded in their metadata.
package selector

import (
	"fmt"
	"math"
	"sort"
	"time"

	"media-datesync/internal/media"
)

const day = 24 * time.Hour

// Criteria controls which timestamps are compared and how far apart they may
// be
type Criteria struct {
	CheckCreation     bool
	CheckModified     bool
	MaxDifferenceDays float64
}

// Validate rejects a negative or non-finite tolerance
func (c Criteria) Validate() error {
	if math.IsNaN(c.MaxDifferenceDays) || math.IsInf(c.MaxDifferenceDays, 0) {
		return fmt.Errorf("max difference must be a finite number of days, got %g", c.MaxDifferenceDays)
	}
	if c.MaxDifferenceDays < 0 {
		return fmt.Errorf("max difference must be zero or more days, got %g", c.MaxDifferenceDays)
	}
	return nil
}

// MaxDifference converts the tolerance to a duration. Tolerances too large
// for a Duration saturate at the maximum; NaN and negatives yield zero.
func (c Criteria) MaxDifference() time.Duration {
	ns := c.MaxDifferenceDays * float64(day)
	switch {
	case math.IsNaN(ns) || ns <= 0:
		return 0
	case ns >= math.MaxInt64:
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ns)
}

// Select returns the paths of files whose encoded date differs from a
// checked filesystem timestamp by strictly more than the tolerance. Files
// without an encoded date never qualify, and a missing filesystem date
// cannot qualify its own criterion. With both criteria on, either one
// qualifies the file.
func Select(files []media.FileWithDates, c Criteria) map[string]struct{} {
	selected := make(map[string]struct{})
	if (!c.CheckCreation && !c.CheckModified) || math.IsNaN(c.MaxDifferenceDays) {
		return selected
	}

	maxDiff := c.MaxDifference()
	for _, f := range files {
		if f.Encoded == nil {
			continue
		}
		if c.CheckCreation && exceeds(*f.Encoded, f.Created, maxDiff) {
			selected[f.Path] = struct{}{}
			continue
		}
		if c.CheckModified && exceeds(*f.Encoded, f.Modified, maxDiff) {
			selected[f.Path] = struct{}{}
		}
	}
	return selected
}

// SelectPaths is Select with the result sorted for display
func SelectPaths(files []media.FileWithDates, c Criteria) []string {
	set := Select(files, c)
	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Difference returns the absolute distance between encoded and fs, and false
// when fs is missing
func Difference(encoded time.Time, fs *time.Time) (time.Duration, bool) {
	if fs == nil {
		return 0, false
	}
	d := encoded.Sub(*fs)
	if d < 0 {
		d = -d
	}
	return d, true
}

func exceeds(encoded time.Time, fs *time.Time, maxDiff time.Duration) bool {
	d, ok := Difference(encoded, fs)
	return ok && d > maxDiff
}
