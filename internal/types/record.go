package types

import (
	"sort"
	"time"
)

// FileRecord describes a single non-directory entry (regular file or symlink).
// Regular files and symlinks are kept in separate lists on the owning DirRecord,
// so FileRecord itself carries no subtype flag.
type FileRecord struct {
	Name       string
	Size       uint64
	ModTime    time.Time
	HasModTime bool
}

// Fingerprint is a 128-bit content identity for a DirRecord, used exclusively
// for move detection between snapshots. Computation lives in the fingerprint
// package; it is treated here as an opaque, comparable value.
type Fingerprint [16]byte

// DirRecord describes one directory discovered by a scan.
//
// Here counters reflect only direct children; Below counters are filled in
// by the aggregator and are zero immediately after the walker produces a
// record. Files and Symlinks are sorted by Name ascending.
type DirRecord struct {
	Path       string
	ModTime    time.Time
	HasModTime bool

	FilesHere  uint64
	FilesBelow uint64
	DirsHere   uint64
	DirsBelow  uint64

	SizeHere  int64
	SizeBelow int64

	Fingerprint Fingerprint

	Files    []FileRecord
	Symlinks []FileRecord
}

// SortFileRecords sorts a FileRecord slice by base name ascending, in place.
func SortFileRecords(recs []FileRecord) {
	sort.Slice(recs, func(i, j int) bool { return recs[i].Name < recs[j].Name })
}

// Snapshot is a vector of DirRecord sorted by Path ascending, byte by byte.
// A directory's path is a prefix of every descendant's path, so a non-root
// entry's parent always appears at a lower index than the entry itself. A
// sibling whose name sorts below '/' (e.g. "a.bak" next to "a") can fall
// between a directory and its children, so the order is not strictly the
// depth-first pre-order of the tree.
type Snapshot []DirRecord

// SortByPath sorts a Snapshot by Path ascending, in place.
func (s Snapshot) SortByPath() {
	sort.Slice(s, func(i, j int) bool { return s[i].Path < s[j].Path })
}

// IndexByPath builds a path → index lookup for the snapshot. Used by the
// aggregator to locate a directory's parent without pointer back-references.
func (s Snapshot) IndexByPath() map[string]int {
	idx := make(map[string]int, len(s))
	for i := range s {
		idx[s[i].Path] = i
	}
	return idx
}

// TimeDelta is a signed (seconds, nanoseconds) modification-time difference.
// It is additive and purely informational: never used to reconstruct an
// absolute time.
type TimeDelta struct {
	Seconds int64
	Nanos   int64
}

// Add returns the element-wise sum of two TimeDeltas.
func (t TimeDelta) Add(o TimeDelta) TimeDelta {
	return TimeDelta{Seconds: t.Seconds + o.Seconds, Nanos: t.Nanos + o.Nanos}
}

// TimeDeltaBetween computes the signed delta b-a, handling the optional
// (HasModTime) nature of both sides by treating a missing timestamp as no
// change rather than a large jump to/from the zero time.
func TimeDeltaBetween(aHas bool, a time.Time, bHas bool, b time.Time) TimeDelta {
	if !aHas || !bHas {
		return TimeDelta{}
	}
	d := b.Sub(a)
	return TimeDelta{Seconds: int64(d / time.Second), Nanos: int64(d % time.Second)}
}
