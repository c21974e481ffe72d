package extract

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultTimeout bounds a single inspector run so a corrupt file cannot
	// stall a batch
	DefaultTimeout = 3 * time.Second

	// encodedDateInform asks mediainfo for exactly one field
	encodedDateInform = "--Inform=General;%Encoded_Date%"
)

// MediaInfo extracts encoded dates by running the mediainfo CLI
type MediaInfo struct {
	binary  string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewMediaInfo creates a mediainfo-backed extractor. An empty binary uses
// "mediainfo" from PATH; a non-positive timeout uses DefaultTimeout.
func NewMediaInfo(binary string, timeout time.Duration, logger zerolog.Logger) *MediaInfo {
	if binary == "" {
		binary = "mediainfo"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &MediaInfo{
		binary:  binary,
		timeout: timeout,
		logger:  logger.With().Str("component", "mediainfo").Logger(),
	}
}

// Available reports whether the mediainfo binary can be found
func (m *MediaInfo) Available() bool {
	_, err := exec.LookPath(m.binary)
	return err == nil
}

// Extract runs mediainfo for path and parses its single line of output
func (m *MediaInfo) Extract(ctx context.Context, path string) Result {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, m.binary, encodedDateInform, path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		m.logger.Debug().
			Err(err).
			Str("file", path).
			Str("stderr", stderr.String()).
			Msg("mediainfo failed")
		return toolError(path)
	}

	t, ok := ParseEncodedDate(stdout.String())
	if !ok {
		return notFound(path)
	}
	return found(path, t)
}
