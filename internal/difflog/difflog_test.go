package difflog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/aravindh-k/diskwatch/internal/combiner"
	"github.com/aravindh-k/diskwatch/internal/types"
)

func open(t *testing.T) *DiffLog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "diffs.db")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func modifyEntry(delta int64) types.DiffEntry {
	e := types.NewDiffEntry()
	e.Dirs = append(e.Dirs, types.DirDiff{Path: "/root", Kind: types.DiffModify, SizeHereDelta: delta})
	return e
}

func TestAppendWithoutCache(t *testing.T) {
	l := open(t)
	baseline := types.Snapshot{{Path: "/root", SizeHere: 100}}

	if err := l.Append(baseline, modifyEntry(10), time.Now(), false); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if l.HasMergedDiff {
		t.Error("HasMergedDiff should be false when caching is disabled")
	}
	n, err := l.Len()
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != 1 {
		t.Errorf("Len = %d, want 1", n)
	}
}

func TestAppendWithCachePopsAndRecomputes(t *testing.T) {
	l := open(t)
	baseline := types.Snapshot{{Path: "/root", SizeHere: 100}}

	t1 := time.Now()
	if err := l.Append(baseline, modifyEntry(10), t1, true); err != nil {
		t.Fatalf("Append #1: %v", err)
	}
	if !l.HasMergedDiff {
		t.Fatal("HasMergedDiff should be true after a cached append")
	}
	n, _ := l.Len()
	if n != 2 {
		t.Fatalf("Len after first cached append = %d, want 2 (real + cache)", n)
	}

	t2 := t1.Add(time.Minute)
	if err := l.Append(baseline, modifyEntry(-3), t2, true); err != nil {
		t.Fatalf("Append #2: %v", err)
	}
	n, _ = l.Len()
	if n != 3 {
		t.Fatalf("Len after second cached append = %d, want 3", n)
	}

	entries, stamps, err := l.Entries()
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	last := entries[len(entries)-1]
	if !stamps[len(stamps)-1].Equal(Epoch) {
		t.Errorf("last stamp = %v, want Epoch sentinel", stamps[len(stamps)-1])
	}
	if got := last.Dirs[0].SizeHereDelta; got != 7 {
		t.Errorf("cached composite SizeHereDelta = %d, want 7", got)
	}
}

func TestAppendTurningOnCacheAfterUncachedAppendsRecombinesEverything(t *testing.T) {
	l := open(t)
	baseline := types.Snapshot{{Path: "/root", SizeHere: 100}}
	t1 := time.Now()

	// Two uncached appends: no composite is maintained for these.
	if err := l.Append(baseline, modifyEntry(10), t1, false); err != nil {
		t.Fatalf("Append #1: %v", err)
	}
	if err := l.Append(baseline, modifyEntry(5), t1.Add(time.Minute), false); err != nil {
		t.Fatalf("Append #2: %v", err)
	}
	if l.HasMergedDiff {
		t.Fatal("HasMergedDiff should still be false before caching is turned on")
	}

	// Caching turns on here, with no prior cache to extend.
	if err := l.Append(baseline, modifyEntry(-2), t1.Add(2*time.Minute), true); err != nil {
		t.Fatalf("Append #3: %v", err)
	}
	if !l.HasMergedDiff {
		t.Fatal("HasMergedDiff should be true after a cached append")
	}

	entries, stamps, err := l.Entries()
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("Len = %d, want 4 (3 real + 1 cache)", len(entries))
	}
	last := entries[len(entries)-1]
	if !stamps[len(stamps)-1].Equal(Epoch) {
		t.Errorf("last stamp = %v, want Epoch sentinel", stamps[len(stamps)-1])
	}
	// The composite must cover all three real appends (10+5-2=13), not just
	// the one appended while caching was being turned on (-2 alone).
	if got := last.Dirs[0].SizeHereDelta; got != 13 {
		t.Errorf("cached composite SizeHereDelta = %d, want 13 (all three prior appends combined)", got)
	}

	combined, err := l.Combine(baseline, nil)
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if got := combined.Dirs[0].SizeHereDelta; got != 13 {
		t.Errorf("Combine(nil) = %d, want 13", got)
	}
}

func TestCombineNilWindowReturnsCachedComposite(t *testing.T) {
	l := open(t)
	baseline := types.Snapshot{{Path: "/root", SizeHere: 100}}
	if err := l.Append(baseline, modifyEntry(10), time.Now(), true); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l.Append(baseline, modifyEntry(5), time.Now().Add(time.Minute), true); err != nil {
		t.Fatalf("Append: %v", err)
	}

	combined, err := l.Combine(baseline, nil)
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if got := combined.Dirs[0].SizeHereDelta; got != 15 {
		t.Errorf("Combine(nil) = %d, want 15", got)
	}
}

func TestCombineWindowedExcludesCachedSlot(t *testing.T) {
	l := open(t)
	baseline := types.Snapshot{{Path: "/root", SizeHere: 100}}
	base := time.Now()
	if err := l.Append(baseline, modifyEntry(10), base, true); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l.Append(baseline, modifyEntry(5), base.Add(time.Minute), true); err != nil {
		t.Fatalf("Append: %v", err)
	}

	w := &combiner.Window{HasStart: true, Start: base.Add(-time.Second)}
	combined, err := l.Combine(baseline, w)
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if got := combined.Dirs[0].SizeHereDelta; got != 15 {
		t.Errorf("windowed Combine = %d, want 15 (both real entries, cache excluded)", got)
	}
}

func TestCombineEmptyLog(t *testing.T) {
	l := open(t)
	baseline := types.Snapshot{}
	combined, err := l.Combine(baseline, nil)
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if !combined.IsEmpty() {
		t.Errorf("expected an empty entry for an empty log, got %+v", combined)
	}
}
