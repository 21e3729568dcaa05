package differ

import (
	"testing"

	"github.com/aravindh-k/diskwatch/internal/aggregator"
	"github.com/aravindh-k/diskwatch/internal/types"
)

// build is a small test helper turning a flat list of (path, fileSizes...)
// into an aggregated, fingerprinted Snapshot rooted at "/root".
func build(t *testing.T, dirs map[string][]int64) types.Snapshot {
	t.Helper()
	var snap types.Snapshot
	for path, sizes := range dirs {
		rec := types.DirRecord{Path: path}
		for i, sz := range sizes {
			rec.Files = append(rec.Files, types.FileRecord{Name: string(rune('a' + i)), Size: uint64(sz)})
			rec.FilesHere++
			rec.SizeHere += sz
		}
		types.SortFileRecords(rec.Files)
		snap = append(snap, rec)
	}
	snap.SortByPath()
	aggregator.Aggregate(snap, "/root")
	return snap
}

func TestDiffAddedFile(t *testing.T) {
	base := build(t, map[string][]int64{"/root": {100}})
	cur := build(t, map[string][]int64{"/root": {100, 50}})

	entry := Diff(base, cur, 0)
	if len(entry.Dirs) != 1 {
		t.Fatalf("expected 1 dir diff, got %d: %+v", len(entry.Dirs), entry.Dirs)
	}
	d := entry.Dirs[0]
	if d.Kind != types.DiffModify || d.SizeHereDelta != 50 {
		t.Errorf("got %+v, want Modify +50", d)
	}
	if len(d.Files) != 1 || d.Files[0].Kind != types.DiffAdd {
		t.Errorf("file diffs = %+v, want one Add", d.Files)
	}
}

func TestDiffRemovedSubtree(t *testing.T) {
	base := build(t, map[string][]int64{
		"/root":        {},
		"/root/gone":   {100},
		"/root/stable": {10},
	})
	cur := build(t, map[string][]int64{
		"/root":        {},
		"/root/stable": {10},
	})

	entry := Diff(base, cur, 0)
	var removes []string
	for _, d := range entry.Dirs {
		if d.Kind == types.DiffRemove {
			removes = append(removes, d.Path)
		}
	}
	if len(removes) != 1 || removes[0] != "/root/gone" {
		t.Errorf("removes = %v, want [/root/gone]", removes)
	}
}

func TestDiffDirectoryMoveDetected(t *testing.T) {
	base := build(t, map[string][]int64{
		"/root":          {},
		"/root/src":      {100},
		"/root/src/deep": {5},
	})
	cur := build(t, map[string][]int64{
		"/root":          {},
		"/root/dst":      {100},
		"/root/dst/deep": {5},
	})

	entry := Diff(base, cur, 0)

	var moveKinds int
	for _, d := range entry.Dirs {
		if d.Kind == types.DiffMove {
			moveKinds++
		}
	}
	if moveKinds != 1 {
		t.Fatalf("expected exactly one Move entry (the ancestor), got %d: %+v", moveKinds, entry.Dirs)
	}
	if got := entry.MoveToPaths["/root/src"]; got != "/root/dst" {
		t.Errorf("MoveToPaths[/root/src] = %q, want /root/dst", got)
	}
	if _, ok := entry.MoveToPaths["/root/src/deep"]; ok {
		t.Error("descendant of a moved directory must not be independently promoted to a move")
	}
}

func TestThresholdDropsSmallModifies(t *testing.T) {
	base := build(t, map[string][]int64{"/root": {1000}})
	cur := build(t, map[string][]int64{"/root": {1001}})

	entry := Diff(base, cur, 100)
	if len(entry.Dirs) != 0 {
		t.Errorf("expected small modify to be dropped by threshold, got %+v", entry.Dirs)
	}
}

func TestNestedAddSuppressed(t *testing.T) {
	base := build(t, map[string][]int64{"/root": {}})
	cur := build(t, map[string][]int64{
		"/root":         {},
		"/root/new":     {10},
		"/root/new/sub": {20},
	})

	entry := Diff(base, cur, 0)
	var adds []string
	for _, d := range entry.Dirs {
		if d.Kind == types.DiffAdd {
			adds = append(adds, d.Path)
		}
	}
	if len(adds) != 1 || adds[0] != "/root/new" {
		t.Errorf("adds = %v, want only [/root/new] (child suppressed)", adds)
	}
}

func TestDiffUnchangedIsEmpty(t *testing.T) {
	snap := build(t, map[string][]int64{"/root": {10, 20}, "/root/a": {5}})
	entry := Diff(snap, snap, 0)
	if !entry.IsEmpty() {
		t.Errorf("identical snapshots should diff to empty, got %+v", entry)
	}
}
