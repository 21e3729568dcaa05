// Package differ computes a structural DiffEntry between two sorted
// Snapshots in a single merge pass, classifying directories and files as
// Add/Remove/Modify and detecting directory moves via content fingerprints.
package differ

import (
	"path/filepath"
	"strings"

	"github.com/aravindh-k/diskwatch/internal/types"
)

// Diff computes the DiffEntry between base (adjusted to reflect all prior
// diffs) and cur (the freshly walked snapshot), discarding Modify diffs
// whose combined size delta magnitude is below threshold.
func Diff(base, cur types.Snapshot, threshold int64) types.DiffEntry {
	entry := types.NewDiffEntry()
	addByFP := map[types.Fingerprint]int{} // fingerprint -> index of emitted Add in entry.Dirs
	remByFP := map[types.Fingerprint]int{} // fingerprint -> index of emitted Remove in entry.Dirs
	var movedSources []string

	emitRemove := func(d types.DirRecord) {
		if ai, ok := addByFP[d.Fingerprint]; ok && !isDescendantOfMoved(d.Path, movedSources) {
			dst := entry.Dirs[ai].Path
			entry.Dirs[ai] = types.DirDiff{Path: d.Path, Kind: types.DiffMove}
			entry.MoveToPaths[d.Path] = dst
			delete(addByFP, d.Fingerprint)
			movedSources = append(movedSources, d.Path)
			return
		}
		idx := len(entry.Dirs)
		entry.Dirs = append(entry.Dirs, RemoveDiffOf(d))
		remByFP[d.Fingerprint] = idx
	}

	emitAdd := func(d types.DirRecord) {
		if ri, ok := remByFP[d.Fingerprint]; ok {
			srcPath := entry.Dirs[ri].Path
			if !isDescendantOfMoved(srcPath, movedSources) {
				entry.Dirs[ri] = types.DirDiff{Path: srcPath, Kind: types.DiffMove}
				entry.MoveToPaths[srcPath] = d.Path
				delete(remByFP, d.Fingerprint)
				movedSources = append(movedSources, srcPath)
				return
			}
		}
		idx := len(entry.Dirs)
		entry.Dirs = append(entry.Dirs, AddDiffOf(d))
		addByFP[d.Fingerprint] = idx
	}

	i, j := 0, 0
	for i < len(base) && j < len(cur) {
		switch {
		case base[i].Path == cur[j].Path:
			if dd, ok := diffDir(base[i], cur[j]); ok {
				entry.Dirs = append(entry.Dirs, dd)
			}
			i++
			j++
		case base[i].Path < cur[j].Path:
			emitRemove(base[i])
			i++
		default:
			emitAdd(cur[j])
			j++
		}
	}
	for ; i < len(base); i++ {
		emitRemove(base[i])
	}
	for ; j < len(cur); j++ {
		emitAdd(cur[j])
	}

	applyThreshold(&entry, threshold)
	suppressNestedAdds(&entry)

	return entry
}

// isDescendantOfMoved reports whether path is a strict descendant of any
// already-moved source path. A directory moved as part of an ancestor's
// move is never independently promoted.
func isDescendantOfMoved(path string, moved []string) bool {
	for _, a := range moved {
		if len(path) > len(a) && strings.HasPrefix(path, a) && path[len(a)] == filepath.Separator {
			return true
		}
	}
	return false
}

func diffDir(base, cur types.DirRecord) (types.DirDiff, bool) {
	filesDiff := diffFileList(base.Files, cur.Files)
	symlinksDiff := diffFileList(base.Symlinks, cur.Symlinks)

	dd := types.DirDiff{
		Path:            cur.Path,
		Kind:            types.DiffModify,
		FilesHereDelta:  int64(cur.FilesHere) - int64(base.FilesHere),
		FilesBelowDelta: int64(cur.FilesBelow) - int64(base.FilesBelow),
		DirsHereDelta:   int64(cur.DirsHere) - int64(base.DirsHere),
		DirsBelowDelta:  int64(cur.DirsBelow) - int64(base.DirsBelow),
		SizeHereDelta:   cur.SizeHere - base.SizeHere,
		SizeBelowDelta:  cur.SizeBelow - base.SizeBelow,
		Time:            types.TimeDeltaBetween(base.HasModTime, base.ModTime, cur.HasModTime, cur.ModTime),
		Files:           filesDiff,
		Symlinks:        symlinksDiff,
	}

	if dd.FilesHereDelta == 0 && dd.FilesBelowDelta == 0 && dd.DirsHereDelta == 0 &&
		dd.DirsBelowDelta == 0 && dd.SizeHereDelta == 0 && dd.SizeBelowDelta == 0 &&
		len(filesDiff) == 0 && len(symlinksDiff) == 0 {
		return types.DirDiff{}, false
	}
	return dd, true
}

// diffFileList merges two base-name-sorted FileRecord lists, producing
// Add/Remove/Modify FileDiffs. A Modify is emitted when size differs or the
// modification time differs, even if size matches.
func diffFileList(base, cur []types.FileRecord) []types.FileDiff {
	var out []types.FileDiff
	i, j := 0, 0
	for i < len(base) && j < len(cur) {
		switch {
		case base[i].Name == cur[j].Name:
			b, c := base[i], cur[j]
			if b.Size != c.Size || !sameModTime(b, c) {
				out = append(out, types.FileDiff{
					Name:      c.Name,
					Kind:      types.DiffModify,
					SizeDelta: int64(c.Size) - int64(b.Size),
					Time:      types.TimeDeltaBetween(b.HasModTime, b.ModTime, c.HasModTime, c.ModTime),
				})
			}
			i++
			j++
		case base[i].Name < cur[j].Name:
			out = append(out, fileDiffOf(base[i], types.DiffRemove))
			i++
		default:
			out = append(out, fileDiffOf(cur[j], types.DiffAdd))
			j++
		}
	}
	for ; i < len(base); i++ {
		out = append(out, fileDiffOf(base[i], types.DiffRemove))
	}
	for ; j < len(cur); j++ {
		out = append(out, fileDiffOf(cur[j], types.DiffAdd))
	}
	return out
}

func sameModTime(a, b types.FileRecord) bool {
	if a.HasModTime != b.HasModTime {
		return false
	}
	if !a.HasModTime {
		return true
	}
	return a.ModTime.Equal(b.ModTime)
}

func fileDiffOf(f types.FileRecord, kind types.DiffKind) types.FileDiff {
	delta := int64(f.Size)
	if kind == types.DiffRemove {
		delta = -delta
	}
	return types.FileDiff{Name: f.Name, Kind: kind, SizeDelta: delta}
}

// RemoveDiffOf builds the full-content Remove diff for a directory that
// disappeared entirely, its deltas the negative of its absolute content.
// Exported for reuse by the combiner's move-interception rules.
func RemoveDiffOf(d types.DirRecord) types.DirDiff {
	return types.DirDiff{
		Path:            d.Path,
		Kind:            types.DiffRemove,
		FilesHereDelta:  -int64(d.FilesHere),
		FilesBelowDelta: -int64(d.FilesBelow),
		DirsHereDelta:   -int64(d.DirsHere),
		DirsBelowDelta:  -int64(d.DirsBelow),
		SizeHereDelta:   -d.SizeHere,
		SizeBelowDelta:  -d.SizeBelow,
		Files:           fileDiffsOf(d.Files, types.DiffRemove),
		Symlinks:        fileDiffsOf(d.Symlinks, types.DiffRemove),
	}
}

// AddDiffOf builds the full-content Add diff for a directory that appeared
// entirely new, its deltas equal to its absolute content.
func AddDiffOf(d types.DirRecord) types.DirDiff {
	return types.DirDiff{
		Path:            d.Path,
		Kind:            types.DiffAdd,
		FilesHereDelta:  int64(d.FilesHere),
		FilesBelowDelta: int64(d.FilesBelow),
		DirsHereDelta:   int64(d.DirsHere),
		DirsBelowDelta:  int64(d.DirsBelow),
		SizeHereDelta:   d.SizeHere,
		SizeBelowDelta:  d.SizeBelow,
		Files:           fileDiffsOf(d.Files, types.DiffAdd),
		Symlinks:        fileDiffsOf(d.Symlinks, types.DiffAdd),
	}
}

func fileDiffsOf(files []types.FileRecord, kind types.DiffKind) []types.FileDiff {
	if len(files) == 0 {
		return nil
	}
	out := make([]types.FileDiff, len(files))
	for i, f := range files {
		out[i] = fileDiffOf(f, kind)
	}
	return out
}

// applyThreshold discards Modify diffs whose |size_here+size_below| is
// below threshold. Add, Remove and Move diffs are retained unconditionally.
func applyThreshold(entry *types.DiffEntry, threshold int64) {
	kept := entry.Dirs[:0]
	for _, d := range entry.Dirs {
		if d.Kind == types.DiffModify {
			net := d.NetSize()
			if net < 0 {
				net = -net
			}
			if net < threshold {
				continue
			}
		}
		kept = append(kept, d)
	}
	entry.Dirs = kept
}

// suppressNestedAdds drops an Add (or Remove) whose immediate parent is
// itself newly Added (or Removed): the child's contribution already lives
// in the ancestor's diff.
func suppressNestedAdds(entry *types.DiffEntry) {
	added := make(map[string]bool)
	removed := make(map[string]bool)
	for _, d := range entry.Dirs {
		switch d.Kind {
		case types.DiffAdd:
			added[d.Path] = true
		case types.DiffRemove:
			removed[d.Path] = true
		}
	}

	kept := entry.Dirs[:0]
	for _, d := range entry.Dirs {
		if d.Kind == types.DiffAdd && added[filepath.Dir(d.Path)] {
			continue
		}
		if d.Kind == types.DiffRemove && removed[filepath.Dir(d.Path)] {
			continue
		}
		kept = append(kept, d)
	}
	entry.Dirs = kept
}
