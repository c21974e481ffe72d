//go:build darwin

package fsys

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

const creationTimeSupported = true

// setFileLayout is the date format SetFile -d expects, in local time
const setFileLayout = "01/02/2006 15:04:05"

func statTimes(path string, info os.FileInfo) Timestamps {
	ts := Timestamps{
		Access:   info.ModTime(),
		Modified: info.ModTime(),
	}
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		ts.Access = time.Unix(st.Atimespec.Unix())
		created := time.Unix(st.Birthtimespec.Unix())
		ts.Created = &created
	}
	return ts
}

// setCreationTime shells out to SetFile (Xcode command line tools) with an
// argument vector; no shell is involved.
func setCreationTime(path string, t time.Time) error {
	cmd := exec.Command("SetFile", "-d", t.Local().Format(setFileLayout), path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("SetFile %s: %w: %s", path, err, strings.TrimSpace(string(out)))
	}
	return nil
}
