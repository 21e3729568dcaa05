package aggregator

import (
	"testing"

	"github.com/aravindh-k/diskwatch/internal/types"
)

func TestAggregateBubblesCountsAndSizes(t *testing.T) {
	snap := types.Snapshot{
		{Path: "/root", FilesHere: 1, SizeHere: 10},
		{Path: "/root/a", FilesHere: 2, SizeHere: 20},
		{Path: "/root/a/b", FilesHere: 3, SizeHere: 30},
	}
	snap.SortByPath()

	Aggregate(snap, "/root")

	idx := snap.IndexByPath()
	root := snap[idx["/root"]]
	a := snap[idx["/root/a"]]
	b := snap[idx["/root/a/b"]]

	if a.DirsHere != 1 || a.DirsBelow != 0 {
		t.Errorf("/root/a: DirsHere=%d DirsBelow=%d, want 1 0", a.DirsHere, a.DirsBelow)
	}
	if a.FilesBelow != 3 || a.SizeBelow != 30 {
		t.Errorf("/root/a: FilesBelow=%d SizeBelow=%d, want 3 30", a.FilesBelow, a.SizeBelow)
	}
	if root.DirsHere != 1 || root.DirsBelow != 1 {
		t.Errorf("/root: DirsHere=%d DirsBelow=%d, want 1 1", root.DirsHere, root.DirsBelow)
	}
	if root.FilesBelow != 5 || root.SizeBelow != 50 {
		t.Errorf("/root: FilesBelow=%d SizeBelow=%d, want 5 50", root.FilesBelow, root.SizeBelow)
	}
	if b.DirsBelow != 0 {
		t.Errorf("/root/a/b should have no descendants, got DirsBelow=%d", b.DirsBelow)
	}
}

func TestAggregateAssignsFingerprints(t *testing.T) {
	snap := types.Snapshot{
		{Path: "/root", FilesHere: 1, SizeHere: 10},
		{Path: "/root/a", FilesHere: 1, SizeHere: 5},
	}
	snap.SortByPath()
	Aggregate(snap, "/root")

	var zero types.Fingerprint
	for _, d := range snap {
		if d.Fingerprint == zero {
			t.Errorf("%s: fingerprint left zero", d.Path)
		}
	}
}
