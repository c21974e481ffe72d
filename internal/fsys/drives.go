package fsys

import (
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
)

// DefaultDriveTTL is how long a drive listing is reused before re-probing
const DefaultDriveTTL = 30 * time.Second

// Drive is a mounted volume the user can browse
type Drive struct {
	Name      string
	Path      string
	FSType    string
	FreeSpace uint64
	TotalSize uint64
}

// Clock supplies the current time; injected so cache expiry is testable
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock
var SystemClock Clock = systemClock{}

// DriveLister enumerates mounted drives
type DriveLister func() ([]Drive, error)

// ListDrives enumerates physical partitions through gopsutil, falling back to
// the filesystem root when nothing usable is reported.
func ListDrives() ([]Drive, error) {
	parts, err := disk.Partitions(false)
	if err != nil || len(parts) == 0 {
		return rootDrive(), err
	}

	seen := make(map[string]bool)
	var drives []Drive
	for _, p := range parts {
		if p.Mountpoint == "" || seen[p.Mountpoint] {
			continue
		}
		seen[p.Mountpoint] = true

		d := Drive{
			Name:   driveName(p.Mountpoint),
			Path:   p.Mountpoint,
			FSType: p.Fstype,
		}
		// Size info failing does not hide the drive
		if usage, err := disk.Usage(p.Mountpoint); err == nil {
			d.FreeSpace = usage.Free
			d.TotalSize = usage.Total
		}
		drives = append(drives, d)
	}

	if len(drives) == 0 {
		return rootDrive(), nil
	}

	sort.Slice(drives, func(i, j int) bool {
		return drives[i].Path < drives[j].Path
	})
	return drives, nil
}

func rootDrive() []Drive {
	if runtime.GOOS == "windows" {
		return []Drive{{Name: "C:", Path: `C:\`}}
	}
	return []Drive{{Name: "Root", Path: "/"}}
}

func driveName(mountpoint string) string {
	if mountpoint == "/" {
		return "Root"
	}
	// "C:\" -> "C:"
	if len(mountpoint) >= 2 && mountpoint[1] == ':' {
		return strings.ToUpper(mountpoint[:2])
	}
	parts := strings.Split(strings.TrimRight(mountpoint, "/"), "/")
	return parts[len(parts)-1]
}

// DriveCache memoizes a drive listing for a fixed TTL
type DriveCache struct {
	list  DriveLister
	clock Clock
	ttl   time.Duration

	mu       sync.Mutex
	drives   []Drive
	loadedAt time.Time
}

// NewDriveCache wraps list with a TTL cache. A nil clock uses the wall clock.
func NewDriveCache(list DriveLister, clock Clock, ttl time.Duration) *DriveCache {
	if clock == nil {
		clock = SystemClock
	}
	if ttl <= 0 {
		ttl = DefaultDriveTTL
	}
	return &DriveCache{list: list, clock: clock, ttl: ttl}
}

// Drives returns the cached listing, reloading it once the TTL has passed
func (c *DriveCache) Drives() ([]Drive, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if len(c.drives) > 0 && now.Sub(c.loadedAt) < c.ttl {
		return c.drives, nil
	}

	drives, err := c.list()
	if len(drives) > 0 {
		c.drives = drives
		c.loadedAt = now
	}
	return drives, err
}

// Refresh drops the cached listing and loads a fresh one
func (c *DriveCache) Refresh() ([]Drive, error) {
	c.mu.Lock()
	c.drives = nil
	c.loadedAt = time.Time{}
	c.mu.Unlock()
	return c.Drives()
}
