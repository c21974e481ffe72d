package media

import (
	"time"
)

// Kind represents the type of media file
type Kind int

const (
	KindNone Kind = iota
	KindVideo
	KindAudio
	KindImage
)

func (k Kind) String() string {
	return [...]string{"none", "video", "audio", "image"}[k]
}

// HasEncodedDate reports whether files of this kind can carry an embedded date
func (k Kind) HasEncodedDate() bool {
	return k == KindVideo || k == KindAudio || k == KindImage
}

// FileRef identifies a file eligible for date reconciliation.
// Kind is fixed at discovery time.
type FileRef struct {
	Path string
	Kind Kind
}

// FileWithDates carries everything the selector needs to compare a file
type FileWithDates struct {
	Path     string
	Encoded  *time.Time
	Created  *time.Time
	Modified *time.Time
}

// FileWithEncodedDate is the executor input. A nil Encoded date is a per-file
// failure, not a batch error.
type FileWithEncodedDate struct {
	Path    string
	Encoded *time.Time
}

// Entry is one row of a directory listing
type Entry struct {
	Name      string
	Path      string
	IsDir     bool
	Size      int64
	Modified  *time.Time
	Created   *time.Time
	Extension string
	Kind      Kind
	Encoded   *time.Time
}

// Ref returns the media reference for the entry
func (e Entry) Ref() FileRef {
	return FileRef{Path: e.Path, Kind: e.Kind}
}

// WithDates returns the selector view of the entry
func (e Entry) WithDates() FileWithDates {
	return FileWithDates{
		Path:     e.Path,
		Encoded:  e.Encoded,
		Created:  e.Created,
		Modified: e.Modified,
	}
}

// WithEncodedDate returns the executor view of the entry
func (e Entry) WithEncodedDate() FileWithEncodedDate {
	return FileWithEncodedDate{Path: e.Path, Encoded: e.Encoded}
}

// Refs converts entries to media references, dropping directories
func Refs(entries []Entry) []FileRef {
	refs := make([]FileRef, 0, len(entries))
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		refs = append(refs, e.Ref())
	}
	return refs
}

// ApplyEncoded copies resolved dates onto the matching entries
func ApplyEncoded(entries []Entry, dates map[string]time.Time) {
	for i := range entries {
		if d, ok := dates[entries[i].Path]; ok {
			d := d
			entries[i].Encoded = &d
		}
	}
}

// CountByKind counts entries of the given kind
func CountByKind(entries []Entry, kind Kind) int {
	count := 0
	for _, e := range entries {
		if !e.IsDir && e.Kind == kind {
			count++
		}
	}
	return count
}
