// Package combiner merges a contiguous time-window of stored diffs into one
// composite DiffEntry, resolving move-chains and moves that are later
// overwritten by a fresh Add or Remove at their destination.
//
// The dir-diff merge and the file-diff merge inside it share the same
// shape: cancel an opposite Remove/Add pair whose magnitudes net to zero,
// otherwise sum deltas and let the incoming kind win. Both are implemented
// by a pair of parallel functions below rather than one generic routine,
// since DirDiff and FileDiff don't share a common field set to abstract
// over without reflection.
package combiner

import (
	"sort"
	"time"

	"github.com/aravindh-k/diskwatch/internal/differ"
	"github.com/aravindh-k/diskwatch/internal/types"
)

// Window bounds a report's time range. A nil Window (passed to Combine's
// caller) means "use the cached composite if one exists", handled by the
// diff log, not here.
type Window struct {
	HasStart bool
	Start    time.Time
	HasEnd   bool
	End      time.Time
}

// SelectWindow finds the contiguous slice [start,end] (inclusive) of
// timestamps satisfying window. The cached composite occupies the last
// slot with the epoch sentinel timestamp when hasMergedDiff is set, and is
// excluded from the scan. ok is false when no entry falls inside the
// window.
func SelectWindow(timestamps []time.Time, hasMergedDiff bool, window *Window) (start, end int, ok bool) {
	n := len(timestamps)
	if hasMergedDiff {
		n--
	}
	if n <= 0 {
		return 0, 0, false
	}

	lo := 0
	if window != nil && window.HasStart {
		for lo < n && timestamps[lo].Before(window.Start) {
			lo++
		}
	}
	hi := n - 1
	if window != nil && window.HasEnd {
		for hi >= 0 && timestamps[hi].After(window.End) {
			hi--
		}
	}
	if lo > hi {
		return 0, 0, false
	}
	return lo, hi, true
}

// Combine folds entries left to right into one DiffEntry semantically
// equivalent to applying each of them, in order, to baseline.
func Combine(baseline types.Snapshot, entries []types.DiffEntry) types.DiffEntry {
	baseIdx := baseline.IndexByPath()
	acc := make(map[string]types.DirDiff)
	moveToPaths := make(map[string]string)
	revMove := make(map[string]string)

	for _, cur := range entries {
		foldEntry(baseline, baseIdx, acc, moveToPaths, revMove, cur)
	}

	out := types.DiffEntry{MoveToPaths: moveToPaths, Dirs: make([]types.DirDiff, 0, len(acc))}
	for _, d := range acc {
		out.Dirs = append(out.Dirs, d)
	}
	sort.Slice(out.Dirs, func(i, j int) bool { return out.Dirs[i].Path < out.Dirs[j].Path })
	return out
}

func foldEntry(
	baseline types.Snapshot,
	baseIdx map[string]int,
	acc map[string]types.DirDiff,
	moveToPaths, revMove map[string]string,
	cur types.DiffEntry,
) {
	consumed := make(map[string]bool, len(cur.Dirs))
	curMoves := make(map[string]string, len(cur.MoveToPaths))
	for s, d := range cur.MoveToPaths {
		curMoves[s] = d
	}

	// Step 1: Move-to-Add interception. An Add at a path that was
	// previously the destination of a move means the moved directory's
	// identity didn't survive: split it back into a Modify on the
	// original source (against the baseline) plus a fresh Add at the
	// destination.
	for _, d := range cur.Dirs {
		if d.Kind != types.DiffAdd {
			continue
		}
		src, ok := revMove[d.Path]
		if !ok {
			continue
		}
		if bi, found := baseIdx[src]; found {
			mergeDirDiff(acc, modifyAgainstBaseline(baseline[bi], d, src))
		} else {
			mergeDirDiff(acc, types.DirDiff{Path: src, Kind: types.DiffModify})
		}
		mergeDirDiff(acc, d)
		delete(moveToPaths, src)
		delete(revMove, d.Path)
		consumed[d.Path] = true
	}

	// Step 2: Move-to-Remove interception. A Remove at a move's
	// destination means the moved thing no longer exists there: the move
	// becomes a plain Remove of the original source, and the Remove at
	// the destination itself is dropped (nothing was ever really added
	// there in the composite view).
	for _, d := range cur.Dirs {
		if d.Kind != types.DiffRemove {
			continue
		}
		src, ok := revMove[d.Path]
		if !ok {
			continue
		}
		if bi, found := baseIdx[src]; found {
			mergeDirDiff(acc, differ.RemoveDiffOf(baseline[bi]))
		} else {
			mergeDirDiff(acc, types.DirDiff{Path: src, Kind: types.DiffRemove})
		}
		delete(moveToPaths, src)
		delete(revMove, d.Path)
		consumed[d.Path] = true
	}

	// Step 3: Move-chain compaction. S->P accumulated plus a fresh P->Q
	// collapses to S->Q; P was only ever transient. D_cur's own diff at P
	// (if any) is dropped via consumed[p], but anything already
	// accumulated at P from an earlier fold (e.g. a Modify recorded while
	// the directory was still named P) is real content change that
	// happened in between the two moves: it carries forward re-keyed to Q
	// rather than being discarded.
	for src, p := range moveToPaths {
		if q, ok := curMoves[p]; ok {
			if carried, ok2 := acc[p]; ok2 {
				carried.Path = q
				delete(acc, p)
				mergeDirDiff(acc, carried)
			}
			moveToPaths[src] = q
			delete(revMove, p)
			revMove[q] = src
			delete(curMoves, p)
			consumed[p] = true
		}
	}

	// Step 4 + 5: merge remaining diffs path-by-path. Keying the
	// accumulator by path makes "concatenate, stable-sort by path with
	// incoming wins, dedupe adjacent" the same operation as "merge this
	// diff into whatever is already accumulated for this path". A fresh
	// Move gets its own rule: the generic sum-and-incoming-kind-wins
	// branch must never run for it, or content accumulated at the source
	// would end up inlined on the Move entry.
	for _, d := range cur.Dirs {
		if consumed[d.Path] {
			continue
		}
		if d.Kind == types.DiffMove {
			mergeMoveDiff(acc, d, curMoves[d.Path])
			continue
		}
		mergeDirDiff(acc, d)
	}

	for s, p := range curMoves {
		moveToPaths[s] = p
		revMove[p] = s
	}
}

// mergeMoveDiff installs a fresh Move's own zero-delta entry at its source
// path. Content already accumulated at the source is change that happened
// before the rename, so it carries forward to the destination as its own
// entry, re-keyed the same way step 3 re-keys content caught between two
// chained moves. A Move entry never reports deltas of its own.
func mergeMoveDiff(acc map[string]types.DirDiff, mv types.DirDiff, dst string) {
	old, ok := acc[mv.Path]
	if !ok || old.Kind == types.DiffMove || dst == "" {
		mergeDirDiff(acc, mv)
		return
	}
	delete(acc, mv.Path)
	old.Path = dst
	if old.Kind != types.DiffAdd {
		old.Kind = types.DiffModify
	}
	mergeDirDiff(acc, old)
	acc[mv.Path] = mv
}

func mergeDirDiff(acc map[string]types.DirDiff, newD types.DirDiff) {
	old, ok := acc[newD.Path]
	if !ok {
		acc[newD.Path] = newD
		return
	}
	merged, drop := combineDirDiffPair(old, newD)
	if drop {
		delete(acc, newD.Path)
		return
	}
	acc[newD.Path] = merged
}

func combineDirDiffPair(old, cur types.DirDiff) (types.DirDiff, bool) {
	opposite := (old.Kind == types.DiffRemove && cur.Kind == types.DiffAdd) ||
		(old.Kind == types.DiffAdd && cur.Kind == types.DiffRemove)
	if opposite && dirDiffSumsToZero(old, cur) {
		return types.DirDiff{}, true
	}
	return types.DirDiff{
		Path:            cur.Path,
		Kind:            cur.Kind,
		FilesHereDelta:  old.FilesHereDelta + cur.FilesHereDelta,
		FilesBelowDelta: old.FilesBelowDelta + cur.FilesBelowDelta,
		DirsHereDelta:   old.DirsHereDelta + cur.DirsHereDelta,
		DirsBelowDelta:  old.DirsBelowDelta + cur.DirsBelowDelta,
		SizeHereDelta:   old.SizeHereDelta + cur.SizeHereDelta,
		SizeBelowDelta:  old.SizeBelowDelta + cur.SizeBelowDelta,
		Time:            old.Time.Add(cur.Time),
		Files:           mergeFileDiffLists(old.Files, cur.Files),
		Symlinks:        mergeFileDiffLists(old.Symlinks, cur.Symlinks),
	}, false
}

func dirDiffSumsToZero(a, b types.DirDiff) bool {
	return a.FilesHereDelta+b.FilesHereDelta == 0 &&
		a.FilesBelowDelta+b.FilesBelowDelta == 0 &&
		a.DirsHereDelta+b.DirsHereDelta == 0 &&
		a.DirsBelowDelta+b.DirsBelowDelta == 0 &&
		a.SizeHereDelta+b.SizeHereDelta == 0 &&
		a.SizeBelowDelta+b.SizeBelowDelta == 0
}

func mergeFileDiffLists(oldList, curList []types.FileDiff) []types.FileDiff {
	if len(oldList) == 0 {
		return curList
	}
	if len(curList) == 0 {
		return oldList
	}

	byName := make(map[string]types.FileDiff, len(oldList)+len(curList))
	for _, f := range oldList {
		byName[f.Name] = f
	}
	for _, f := range curList {
		prev, ok := byName[f.Name]
		if !ok {
			byName[f.Name] = f
			continue
		}
		opposite := (prev.Kind == types.DiffRemove && f.Kind == types.DiffAdd) ||
			(prev.Kind == types.DiffAdd && f.Kind == types.DiffRemove)
		if opposite && prev.SizeDelta+f.SizeDelta == 0 {
			delete(byName, f.Name)
			continue
		}
		byName[f.Name] = types.FileDiff{
			Name:      f.Name,
			Kind:      f.Kind,
			SizeDelta: prev.SizeDelta + f.SizeDelta,
			Time:      prev.Time.Add(f.Time),
		}
	}

	out := make([]types.FileDiff, 0, len(byName))
	for _, f := range byName {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// modifyAgainstBaseline reconstructs the Modify that src should carry once
// a move into addDiff's path is undone: addDiff's deltas are absolute
// content (an Add diff's delta equals its value), so subtracting src's
// baseline content from them yields the net change relative to what src
// originally looked like.
func modifyAgainstBaseline(rec types.DirRecord, addDiff types.DirDiff, path string) types.DirDiff {
	return types.DirDiff{
		Path:            path,
		Kind:            types.DiffModify,
		FilesHereDelta:  addDiff.FilesHereDelta - int64(rec.FilesHere),
		FilesBelowDelta: addDiff.FilesBelowDelta - int64(rec.FilesBelow),
		DirsHereDelta:   addDiff.DirsHereDelta - int64(rec.DirsHere),
		DirsBelowDelta:  addDiff.DirsBelowDelta - int64(rec.DirsBelow),
		SizeHereDelta:   addDiff.SizeHereDelta - rec.SizeHere,
		SizeBelowDelta:  addDiff.SizeBelowDelta - rec.SizeBelow,
		Files:           diffAgainstBaselineFiles(rec.Files, addDiff.Files),
		Symlinks:        diffAgainstBaselineFiles(rec.Symlinks, addDiff.Symlinks),
	}
}

func diffAgainstBaselineFiles(baseFiles []types.FileRecord, addFiles []types.FileDiff) []types.FileDiff {
	baseByName := make(map[string]types.FileRecord, len(baseFiles))
	for _, f := range baseFiles {
		baseByName[f.Name] = f
	}

	seen := make(map[string]bool, len(addFiles))
	var out []types.FileDiff
	for _, fd := range addFiles {
		seen[fd.Name] = true
		if b, ok := baseByName[fd.Name]; ok {
			delta := fd.SizeDelta - int64(b.Size)
			if delta != 0 {
				out = append(out, types.FileDiff{Name: fd.Name, Kind: types.DiffModify, SizeDelta: delta})
			}
			continue
		}
		out = append(out, types.FileDiff{Name: fd.Name, Kind: types.DiffAdd, SizeDelta: fd.SizeDelta})
	}
	for _, b := range baseFiles {
		if !seen[b.Name] {
			out = append(out, types.FileDiff{Name: b.Name, Kind: types.DiffRemove, SizeDelta: -int64(b.Size)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
