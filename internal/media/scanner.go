package media

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"media-datesync/internal/fsys"
)

var (
	videoExtensions = map[string]bool{
		".mp4": true, ".avi": true, ".mkv": true, ".mov": true,
		".wmv": true, ".flv": true, ".webm": true, ".m4v": true,
		".mpg": true, ".mpeg": true, ".3gp": true, ".mts": true,
		".m2ts": true,
	}

	audioExtensions = map[string]bool{
		".mp3": true, ".wav": true, ".flac": true, ".aac": true,
		".ogg": true, ".wma": true, ".m4a": true, ".opus": true,
	}

	imageExtensions = map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
		".bmp": true, ".svg": true, ".webp": true, ".ico": true,
		".tiff": true, ".tif": true, ".heic": true, ".heif": true,
		".cr2": true, ".nef": true, ".arw": true, ".dng": true,
	}

	excludePatterns = []string{
		"/.Trash/", "/.Thumbnails/", "/Thumbnails/",
		"/.deleted_media/", "/System/", "/Library/",
		"/Applications/", "/Windows/", "/Program Files/",
	}
)

// DetectKind detects the media kind from the file extension
func DetectKind(path string) Kind {
	ext := strings.ToLower(filepath.Ext(path))

	if videoExtensions[ext] {
		return KindVideo
	}
	if audioExtensions[ext] {
		return KindAudio
	}
	if imageExtensions[ext] {
		return KindImage
	}
	return KindNone
}

// shouldExclude checks if a path should be excluded from recursive scans
func shouldExclude(path string) bool {
	slashed := filepath.ToSlash(path) + "/"
	for _, pattern := range excludePatterns {
		if strings.Contains(slashed, pattern) {
			return true
		}
	}
	return false
}

// List reads one directory. Directories come first, then files by name.
// Entries that cannot be stat'ed are skipped; an empty dir returns nothing.
func List(dir string, showHidden bool) ([]Entry, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, nil
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if !showHidden && strings.HasPrefix(de.Name(), ".") {
			continue
		}

		path := filepath.Join(dir, de.Name())
		info, err := os.Stat(path)
		if err != nil {
			continue
		}

		entries = append(entries, newEntry(path, info))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})

	return entries, nil
}

// Walk scans root recursively for media files, stopping after limit files
// when limit > 0.
func Walk(root string, limit int) ([]Entry, error) {
	var entries []Entry

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}

		if info.IsDir() {
			if path != root && shouldExclude(path) {
				return filepath.SkipDir
			}
			return nil
		}

		if DetectKind(path) == KindNone || shouldExclude(path) {
			return nil
		}

		if limit > 0 && len(entries) >= limit {
			return filepath.SkipAll
		}

		entries = append(entries, newEntry(path, info))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func newEntry(path string, info os.FileInfo) Entry {
	modified := info.ModTime()
	e := Entry{
		Name:     info.Name(),
		Path:     path,
		IsDir:    info.IsDir(),
		Modified: &modified,
		Created:  fsys.CreatedTime(path, info),
	}
	if !e.IsDir {
		e.Size = info.Size()
		e.Extension = strings.ToLower(filepath.Ext(info.Name()))
		e.Kind = DetectKind(path)
	}
	return e
}
