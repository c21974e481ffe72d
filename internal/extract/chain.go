package extract

import (
	"context"

	"media-datesync/internal/media"
)

// Chain tries each extractor in order and returns the first date found.
// When none finds a date, a tool error from any link wins over not-found.
type Chain []Extractor

// Extract runs the chain for path
func (c Chain) Extract(ctx context.Context, path string) Result {
	last := notFound(path)
	for _, e := range c {
		r := e.Extract(ctx, path)
		if r.Found() {
			return r
		}
		if r.Outcome == OutcomeToolError {
			last = r
		}
	}
	return last
}

// ForKinds restricts e to files whose extension maps to one of kinds; other
// files report NotFound without running e.
func ForKinds(e Extractor, kinds ...media.Kind) Extractor {
	allowed := make(map[media.Kind]bool, len(kinds))
	for _, k := range kinds {
		allowed[k] = true
	}
	return ExtractorFunc(func(ctx context.Context, path string) Result {
		if !allowed[media.DetectKind(path)] {
			return notFound(path)
		}
		return e.Extract(ctx, path)
	})
}

// NewDefault reads EXIF natively for images and falls back to the media
// inspector for everything else.
func NewDefault(inspector Extractor) Extractor {
	return Chain{
		ForKinds(Exif{}, media.KindImage),
		inspector,
	}
}
