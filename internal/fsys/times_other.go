//go:build !linux && !darwin && !windows

package fsys

import (
	"os"
	"time"
)

const creationTimeSupported = false

func statTimes(path string, info os.FileInfo) Timestamps {
	return Timestamps{
		Access:   info.ModTime(),
		Modified: info.ModTime(),
	}
}

func setCreationTime(path string, t time.Time) error {
	return ErrCreationUnsupported
}
