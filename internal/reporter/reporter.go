// Package reporter renders a composite DiffEntry as the human-readable
// report stream: one line per changed directory, sorted by the magnitude
// of its net size change, largest first.
package reporter

import (
	"fmt"
	"io"
	"sort"

	"github.com/aravindh-k/diskwatch/internal/reportfmt"
	"github.com/aravindh-k/diskwatch/internal/types"
)

// Options controls report rendering.
type Options struct {
	ShowMoves bool
}

// Write renders entry to w per Options.
func Write(w io.Writer, entry types.DiffEntry, opts Options) error {
	dirs := make([]types.DirDiff, len(entry.Dirs))
	copy(dirs, entry.Dirs)
	sort.SliceStable(dirs, func(i, j int) bool {
		return abs(dirs[i].NetSize()) > abs(dirs[j].NetSize())
	})

	var total int64
	for _, d := range dirs {
		if d.Kind == types.DiffIgnore || d.Kind == types.DiffMove {
			// Moves are rendered by the dedicated block below, which also
			// has the destination path. The combiner keeps a Move entry's
			// own deltas at zero; any content change around a rename
			// arrives as a separate diff at the destination.
			continue
		}
		net := d.NetSize()
		if net == 0 {
			continue
		}
		total += net
		if _, err := fmt.Fprintf(w, "%s: %s (%s)\n", d.Kind, d.Path, reportfmt.SizeShorthand(net)); err != nil {
			return err
		}
	}

	if opts.ShowMoves {
		srcs := make([]string, 0, len(entry.MoveToPaths))
		for src := range entry.MoveToPaths {
			srcs = append(srcs, src)
		}
		sort.Strings(srcs)
		for _, src := range srcs {
			if _, err := fmt.Fprintf(w, "MOV: %s -> %s (0B)\n", src, entry.MoveToPaths[src]); err != nil {
				return err
			}
		}
	}

	_, err := fmt.Fprintf(w, "Total change is: %s\n", reportfmt.SizeShorthand(total))
	return err
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
