// Package walker implements the bounded-yield cooperative directory walk.
//
// # Scheduling model
//
// Unlike a recursive goroutine-per-directory fan-out, the walker processes
// a local queue breadth-first and yields back to the orchestrator once it
// has touched a bounded number of filesystem entries (the yield limit L).
// The orchestrator re-partitions whatever each lane didn't get to, round
// robin, and re-dispatches — repeating until no directory is left
// undiscovered. This keeps any single lane from running far longer than its
// siblings on a lopsided tree, at the cost of the bookkeeping needed to
// hand work back and forth each round.
//
// # Data flow
//
//	Run()
//	    │
//	    ├──► boundedWalk(root) on the calling goroutine   [round 0]
//	    │
//	    └──► for as long as leftover subdirectories remain:
//	             ├──► partition leftover round-robin across min(T, |frontier|) lanes
//	             ├──► one goroutine per lane runs boundedWalk on its slice
//	             ├──► wait for all lanes (sync.WaitGroup)
//	             └──► concatenate records, frontier = concatenated leftovers
package walker

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aravindh-k/diskwatch/internal/progress"
	"github.com/aravindh-k/diskwatch/internal/types"
)

// Config configures a single walk.
type Config struct {
	Root         string              // absolute root path
	SkipSet      map[string]struct{} // paths never entered (e.g. the state dir)
	Threads      int                 // T, thread count for redistribution rounds
	YieldLimit   int                 // L, entries processed per bounded-walk quantum
	ShowProgress bool
	ErrCh        chan error // non-fatal per-child errors
}

// Walker produces a Snapshot for one root by repeated bounded-walk rounds.
type Walker struct {
	cfg   Config
	stats *stats
	stage *progress.Stage
}

// New creates a Walker. Threads and YieldLimit below 1 are clamped to 1.
func New(cfg Config) *Walker {
	if cfg.Threads < 1 {
		cfg.Threads = 1
	}
	if cfg.YieldLimit < 1 {
		cfg.YieldLimit = 1
	}
	return &Walker{cfg: cfg}
}

type stats struct {
	dirs      atomic.Int64
	files     atomic.Int64
	startTime time.Time
}

func (s *stats) String() string {
	return fmt.Sprintf("Walked %d dirs, %d files in %.1fs",
		s.dirs.Load(), s.files.Load(), time.Since(s.startTime).Seconds())
}

// Run executes the walk to completion and returns a Snapshot sorted by path.
func (w *Walker) Run() (types.Snapshot, error) {
	w.stats = &stats{startTime: time.Now()}
	w.stage = progress.Start(w.cfg.ShowProgress)
	w.stage.Update(w.stats)

	frontier := []string{w.cfg.Root}

	recs, leftover, err := w.boundedWalk(frontier)
	if err != nil {
		return nil, err
	}
	out := recs
	frontier = leftover

	for len(frontier) > 0 {
		lanes := w.cfg.Threads
		if lanes > len(frontier) {
			lanes = len(frontier)
		}
		buckets := partitionRoundRobin(frontier, lanes)

		type laneResult struct {
			recs     []types.DirRecord
			leftover []string
			err      error
		}
		results := make([]laneResult, lanes)

		var wg sync.WaitGroup
		for i := 0; i < lanes; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				recs, left, err := w.boundedWalk(buckets[i])
				results[i] = laneResult{recs: recs, leftover: left, err: err}
			}(i)
		}
		wg.Wait()

		frontier = nil
		for _, r := range results {
			if r.err != nil {
				return nil, r.err
			}
			out = append(out, r.recs...)
			frontier = append(frontier, r.leftover...)
		}
		w.stage.Update(w.stats)
	}

	w.stage.Done(w.stats)
	snap := types.Snapshot(out)
	snap.SortByPath()
	return snap, nil
}

// boundedWalk processes queue breadth-first until processed entries reach
// the yield limit or the queue drains, whichever comes first. It returns
// the DirRecords produced and any subdirectories still unvisited.
//
// A directory stat/read failure is fatal for the whole walk. A child entry
// stat failure is absorbed: that entry is skipped and reported on ErrCh.
func (w *Walker) boundedWalk(queue []string) ([]types.DirRecord, []string, error) {
	q := append([]string(nil), queue...)
	idx := 0
	processed := 0
	var recs []types.DirRecord

	for idx < len(q) {
		if processed >= w.cfg.YieldLimit {
			break
		}
		dir := q[idx]
		idx++

		if _, skip := w.cfg.SkipSet[dir]; skip {
			continue
		}

		info, err := os.Lstat(dir)
		if err != nil {
			return nil, nil, fmt.Errorf("stat %s: %w", dir, err)
		}

		entries, err := readDirEntries(dir)
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", dir, err)
		}

		rec := types.DirRecord{Path: dir}
		if mt := info.ModTime(); !mt.IsZero() {
			rec.ModTime = mt
			rec.HasModTime = true
		}

		var files, symlinks []types.FileRecord
		for _, e := range entries {
			full := filepath.Join(dir, e.Name())

			switch {
			case e.IsDir():
				q = append(q, full)

			case e.Type()&fs.ModeSymlink != 0:
				finfo, ferr := e.Info()
				if ferr != nil {
					w.sendError(fmt.Errorf("stat %s: %w", full, ferr))
					continue
				}
				symlinks = append(symlinks, newFileRecord(e.Name(), finfo))
				processed++

			case e.Type().IsRegular():
				finfo, ferr := e.Info()
				if ferr != nil {
					w.sendError(fmt.Errorf("stat %s: %w", full, ferr))
					continue
				}
				fr := newFileRecord(e.Name(), finfo)
				files = append(files, fr)
				rec.FilesHere++
				rec.SizeHere += int64(fr.Size)
				processed++
				w.stats.files.Add(1)

			default:
				// devices, sockets, fifos and the like: discarded
			}
		}

		types.SortFileRecords(files)
		types.SortFileRecords(symlinks)
		rec.Files = files
		rec.Symlinks = symlinks
		recs = append(recs, rec)

		processed++
		w.stats.dirs.Add(1)
	}

	return recs, q[idx:], nil
}

// readDirEntries lists a directory in batches, the same ReadDir(n) idiom
// used to bound memory usage on very large directories.
func readDirEntries(dirPath string) ([]os.DirEntry, error) {
	dir, err := os.Open(dirPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = dir.Close() }()

	const batchSize = 1000
	var all []os.DirEntry
	for {
		entries, err := dir.ReadDir(batchSize)
		if len(entries) == 0 {
			if err != nil && err != io.EOF {
				return all, err
			}
			break
		}
		all = append(all, entries...)
	}
	return all, nil
}

func newFileRecord(name string, info os.FileInfo) types.FileRecord {
	mt := info.ModTime()
	return types.FileRecord{
		Name:       name,
		Size:       uint64(info.Size()),
		ModTime:    mt,
		HasModTime: !mt.IsZero(),
	}
}

// partitionRoundRobin splits items round-robin across lanes buckets.
func partitionRoundRobin(items []string, lanes int) [][]string {
	buckets := make([][]string, lanes)
	for i, it := range items {
		buckets[i%lanes] = append(buckets[i%lanes], it)
	}
	return buckets
}

func (w *Walker) sendError(err error) {
	if w.cfg.ErrCh != nil {
		w.cfg.ErrCh <- err
	}
}
