package orchestrator

import (
	"path/filepath"
	"strings"

	"github.com/aravindh-k/diskwatch/internal/fingerprint"
	"github.com/aravindh-k/diskwatch/internal/types"
)

// reconstructCurrent applies a composite DiffEntry to the on-disk baseline
// to approximate the tree as it looked after the last scan: moves rewrite
// paths, Adds insert new records built from the diff's absolute content,
// Removes drop the record and every descendant (nested removes are
// suppressed by the Differ, so only the ancestor's Remove is present),
// Modifies adjust an existing record's counts, sizes and file lists in
// place. Reconstructed Adds carry no modification time: the diff format
// only stores deltas, not absolute times, for newly-created content.
//
// DirDiff carries no Fingerprint field, so an Added or Modified record's
// Fingerprint is recomputed from its reconstructed content right after it
// is built. Without this, the reconstructed record would keep the zero
// Fingerprint and the next scan's move detection (which keys off it) would
// never match the freshly-walked, correctly-hashed side.
func reconstructCurrent(baseline types.Snapshot, entry types.DiffEntry) types.Snapshot {
	byPath := make(map[string]types.DirRecord, len(baseline))
	for _, d := range baseline {
		byPath[d.Path] = d
	}

	for src, dst := range entry.MoveToPaths {
		if rec, ok := byPath[src]; ok {
			delete(byPath, src)
			rec.Path = dst
			byPath[dst] = rec
		}
	}

	var removedRoots []string
	for _, d := range entry.Dirs {
		switch d.Kind {
		case types.DiffMove:
			// handled above via MoveToPaths
		case types.DiffAdd:
			byPath[d.Path] = recordFromAdd(d)
		case types.DiffRemove:
			delete(byPath, d.Path)
			removedRoots = append(removedRoots, d.Path)
		case types.DiffModify:
			if rec, ok := byPath[d.Path]; ok {
				byPath[d.Path] = applyModify(rec, d)
			}
		}
	}

	for path := range byPath {
		for _, root := range removedRoots {
			if isUnderRoot(path, root) {
				delete(byPath, path)
				break
			}
		}
	}

	out := make(types.Snapshot, 0, len(byPath))
	for _, d := range byPath {
		out = append(out, d)
	}
	out.SortByPath()
	return out
}

func isUnderRoot(path, root string) bool {
	return len(path) > len(root) && strings.HasPrefix(path, root) && path[len(root)] == filepath.Separator
}

func recordFromAdd(d types.DirDiff) types.DirRecord {
	rec := types.DirRecord{
		Path:       d.Path,
		FilesHere:  uint64(d.FilesHereDelta),
		FilesBelow: uint64(d.FilesBelowDelta),
		DirsHere:   uint64(d.DirsHereDelta),
		DirsBelow:  uint64(d.DirsBelowDelta),
		SizeHere:   d.SizeHereDelta,
		SizeBelow:  d.SizeBelowDelta,
		Files:      filesFromDiffs(d.Files),
		Symlinks:   filesFromDiffs(d.Symlinks),
	}
	rec.Fingerprint = fingerprint.Compute(&rec)
	return rec
}

func filesFromDiffs(diffs []types.FileDiff) []types.FileRecord {
	if len(diffs) == 0 {
		return nil
	}
	out := make([]types.FileRecord, len(diffs))
	for i, fd := range diffs {
		out[i] = types.FileRecord{Name: fd.Name, Size: uint64(fd.SizeDelta)}
	}
	types.SortFileRecords(out)
	return out
}

// applyModify updates counts, sizes and file lists in place. TimeDelta is
// never used to reconstruct an absolute ModTime (see TimeDelta's doc
// comment), so a record's modification time is left as the baseline's.
func applyModify(rec types.DirRecord, d types.DirDiff) types.DirRecord {
	rec.FilesHere = addDelta(rec.FilesHere, d.FilesHereDelta)
	rec.FilesBelow = addDelta(rec.FilesBelow, d.FilesBelowDelta)
	rec.DirsHere = addDelta(rec.DirsHere, d.DirsHereDelta)
	rec.DirsBelow = addDelta(rec.DirsBelow, d.DirsBelowDelta)
	rec.SizeHere += d.SizeHereDelta
	rec.SizeBelow += d.SizeBelowDelta
	rec.Files = applyFileDiffs(rec.Files, d.Files)
	rec.Symlinks = applyFileDiffs(rec.Symlinks, d.Symlinks)
	rec.Fingerprint = fingerprint.Compute(&rec)
	return rec
}

func addDelta(v uint64, delta int64) uint64 {
	n := int64(v) + delta
	if n < 0 {
		return 0
	}
	return uint64(n)
}

func applyFileDiffs(files []types.FileRecord, diffs []types.FileDiff) []types.FileRecord {
	byName := make(map[string]types.FileRecord, len(files))
	for _, f := range files {
		byName[f.Name] = f
	}
	for _, fd := range diffs {
		switch fd.Kind {
		case types.DiffAdd:
			byName[fd.Name] = types.FileRecord{Name: fd.Name, Size: uint64(fd.SizeDelta)}
		case types.DiffRemove:
			delete(byName, fd.Name)
		case types.DiffModify:
			if f, ok := byName[fd.Name]; ok {
				f.Size = uint64(int64(f.Size) + fd.SizeDelta)
				byName[fd.Name] = f
			}
		}
	}
	out := make([]types.FileRecord, 0, len(byName))
	for _, f := range byName {
		out = append(out, f)
	}
	types.SortFileRecords(out)
	return out
}
