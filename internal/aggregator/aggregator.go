// Package aggregator bubbles per-directory counts and sizes from leaves
// toward the root of a Snapshot, and assigns each DirRecord its content
// Fingerprint once the bubble-up is complete.
package aggregator

import (
	"path/filepath"

	"github.com/aravindh-k/diskwatch/internal/fingerprint"
	"github.com/aravindh-k/diskwatch/internal/types"
)

// Aggregate computes *_below totals and fingerprints for a freshly-walked
// Snapshot in place. root is the scan root's path, used to recognize the
// entry with no parent in the snapshot.
//
// Snapshot order is byte-wise path order, in which a directory sorts before
// all of its descendants (its path is a prefix of theirs), so iterating from
// last to first always visits a child strictly before its parent: a single
// backward pass with a path→index lookup (built once, up front) is enough —
// no pointer-cyclic tree is needed.
func Aggregate(snap types.Snapshot, root string) {
	idx := snap.IndexByPath()

	for i := len(snap) - 1; i >= 0; i-- {
		d := &snap[i]
		if d.Path == root {
			continue
		}
		parentPath := filepath.Dir(d.Path)
		pi, ok := idx[parentPath]
		if !ok {
			continue
		}
		p := &snap[pi]
		p.DirsHere++
		p.DirsBelow += d.DirsHere + d.DirsBelow
		p.FilesBelow += d.FilesHere + d.FilesBelow
		p.SizeBelow += d.SizeHere + d.SizeBelow
	}

	for i := range snap {
		snap[i].Fingerprint = fingerprint.Compute(&snap[i])
	}
}
