//go:build linux

package fsys

import (
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Linux exposes btime through statx but offers no call to change it.
const creationTimeSupported = false

func statTimes(path string, info os.FileInfo) Timestamps {
	ts := Timestamps{
		Access:   info.ModTime(),
		Modified: info.ModTime(),
	}

	var stx unix.Statx_t
	mask := unix.STATX_ATIME | unix.STATX_MTIME | unix.STATX_BTIME
	if err := unix.Statx(unix.AT_FDCWD, path, unix.AT_STATX_SYNC_AS_STAT, mask, &stx); err == nil {
		if stx.Mask&unix.STATX_ATIME != 0 {
			ts.Access = time.Unix(stx.Atime.Sec, int64(stx.Atime.Nsec))
		}
		if stx.Mask&unix.STATX_BTIME != 0 && stx.Btime.Sec != 0 {
			created := time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec))
			ts.Created = &created
		}
		return ts
	}

	// statx unavailable (old kernel or seccomp filter)
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		ts.Access = time.Unix(st.Atim.Unix())
	}
	return ts
}

func setCreationTime(path string, t time.Time) error {
	return ErrCreationUnsupported
}
