package extract

import (
	"context"
	"os"

	"github.com/rwcarlsen/goexif/exif"
)

// Exif reads DateTime straight from a photo's EXIF block without spawning a
// process. Files with no EXIF data report NotFound.
type Exif struct{}

// Extract decodes the EXIF block of path
func (Exif) Extract(ctx context.Context, path string) Result {
	f, err := os.Open(path)
	if err != nil {
		return toolError(path)
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		// No EXIF data or decode failed
		return notFound(path)
	}

	tm, err := x.DateTime()
	if err != nil {
		return notFound(path)
	}
	return found(path, tm.UTC())
}
