//go:build windows

package fsys

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/windows"
)

const creationTimeSupported = true

func statTimes(path string, info os.FileInfo) Timestamps {
	ts := Timestamps{
		Access:   info.ModTime(),
		Modified: info.ModTime(),
	}
	if d, ok := info.Sys().(*syscall.Win32FileAttributeData); ok {
		ts.Access = time.Unix(0, d.LastAccessTime.Nanoseconds())
		created := time.Unix(0, d.CreationTime.Nanoseconds())
		ts.Created = &created
	}
	return ts
}

func setCreationTime(path string, t time.Time) error {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return fmt.Errorf("encode path %s: %w", path, err)
	}

	h, err := windows.CreateFile(p,
		windows.FILE_WRITE_ATTRIBUTES,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_BACKUP_SEMANTICS,
		0)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer windows.CloseHandle(h)

	ctime := windows.NsecToFiletime(t.UnixNano())
	if err := windows.SetFileTime(h, &ctime, nil, nil); err != nil {
		return fmt.Errorf("set creation time on %s: %w", path, err)
	}
	return nil
}
