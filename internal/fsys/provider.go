// Package fsys reads and writes filesystem timestamps and lists drives.
package fsys

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrCreationUnsupported is returned by WriteCreationTime on platforms
// without a settable creation time.
var ErrCreationUnsupported = errors.New("creation time not supported on this platform")

// Timestamps holds the filesystem times of a single file
type Timestamps struct {
	Access   time.Time
	Modified time.Time
	Created  *time.Time // nil when the filesystem does not report a birth time
}

// Provider is the filesystem surface the date sync core depends on
type Provider interface {
	ReadTimestamps(path string) (Timestamps, error)
	WriteTimestamps(path string, atime, mtime time.Time) error
	WriteCreationTime(path string, t time.Time) error
	SupportsCreationTime() bool
}

// OS is the Provider backed by the local filesystem
type OS struct{}

// NewOS returns the local filesystem provider
func NewOS() *OS {
	return &OS{}
}

// ReadTimestamps stats path and returns its access, modified and creation times
func (OS) ReadTimestamps(path string) (Timestamps, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Timestamps{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return statTimes(path, info), nil
}

// WriteTimestamps sets the access and modified times of path
func (OS) WriteTimestamps(path string, atime, mtime time.Time) error {
	if err := os.Chtimes(path, atime, mtime); err != nil {
		return fmt.Errorf("set times on %s: %w", path, err)
	}
	return nil
}

// WriteCreationTime sets the birth time of path where the platform allows it
func (OS) WriteCreationTime(path string, t time.Time) error {
	if !creationTimeSupported {
		return ErrCreationUnsupported
	}
	return setCreationTime(path, t)
}

// SupportsCreationTime reports whether WriteCreationTime can succeed here
func (OS) SupportsCreationTime() bool {
	return creationTimeSupported
}

// CreatedTime returns the creation time of info when the platform reports one
func CreatedTime(path string, info os.FileInfo) *time.Time {
	return statTimes(path, info).Created
}
