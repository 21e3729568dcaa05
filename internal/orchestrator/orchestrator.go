// Package orchestrator ties the walker, aggregator, differ, combiner and
// diff log together for one scan invocation, and exposes the combined
// diff a report needs.
//
// A scan derives the root's state-file names from a hash of its absolute
// path, short-circuits to a baseline write on the first run, and otherwise
// reconstructs the tree as of the last scan before diffing it against the
// fresh walk.
package orchestrator

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/aravindh-k/diskwatch/internal/aggregator"
	"github.com/aravindh-k/diskwatch/internal/combiner"
	"github.com/aravindh-k/diskwatch/internal/differ"
	"github.com/aravindh-k/diskwatch/internal/difflog"
	"github.com/aravindh-k/diskwatch/internal/privilege"
	"github.com/aravindh-k/diskwatch/internal/progress"
	"github.com/aravindh-k/diskwatch/internal/state"
	"github.com/aravindh-k/diskwatch/internal/types"
	"github.com/aravindh-k/diskwatch/internal/walker"
)

// ScanConfig configures one scan invocation.
type ScanConfig struct {
	TargetPath   string
	StateDir     string
	Threshold    int64
	Threads      int
	YieldLimit   int
	CacheEnabled bool
	ShowProgress bool
	ErrCh        chan error
}

// ScanResult summarizes what a scan did.
type ScanResult struct {
	FirstScan bool
	Files     uint64
	Dirs      uint64
}

// Scan runs one full scan: walk, aggregate, load-and-reconstruct, diff,
// append, persist. On the root's first scan it writes only the baseline.
func Scan(cfg ScanConfig) (ScanResult, error) {
	absRoot, err := filepath.Abs(cfg.TargetPath)
	if err != nil {
		return ScanResult{}, fmt.Errorf("resolve target path: %w", err)
	}
	absState, err := filepath.Abs(cfg.StateDir)
	if err != nil {
		return ScanResult{}, fmt.Errorf("resolve state dir: %w", err)
	}

	elevated := privilege.Elevated()
	initialPath, diffsPath := state.Paths(absState, absRoot, elevated)

	skipSet := map[string]struct{}{absState: {}, filepath.Dir(initialPath): {}}

	w := walker.New(walker.Config{
		Root:         absRoot,
		SkipSet:      skipSet,
		Threads:      cfg.Threads,
		YieldLimit:   cfg.YieldLimit,
		ShowProgress: cfg.ShowProgress,
		ErrCh:        cfg.ErrCh,
	})
	cur, err := w.Run()
	if err != nil {
		return ScanResult{}, fmt.Errorf("walk: %w", err)
	}
	aggregator.Aggregate(cur, absRoot)

	res := scanTotals(cur, absRoot)

	baseline, hasBaseline, err := state.LoadBaseline(initialPath)
	if err != nil {
		return ScanResult{}, fmt.Errorf("load baseline: %w", err)
	}
	if !hasBaseline {
		if err := state.SaveBaseline(initialPath, cur); err != nil {
			return ScanResult{}, fmt.Errorf("save baseline: %w", err)
		}
		res.FirstScan = true
		return res, nil
	}

	log, err := difflog.Open(diffsPath)
	if err != nil {
		return ScanResult{}, fmt.Errorf("open diff log: %w", err)
	}
	defer func() { _ = log.Close() }()

	ps := &phaseStats{phase: "Combining and diffing", start: time.Now()}
	stage := progress.Start(cfg.ShowProgress)
	stage.Update(ps)

	combined, err := log.Combine(baseline, nil)
	if err != nil {
		return ScanResult{}, fmt.Errorf("combine diff log: %w", err)
	}

	reconstructed := reconstructCurrent(baseline, combined)

	entry := differ.Diff(reconstructed, cur, cfg.Threshold)
	if err := log.Append(baseline, entry, time.Now(), cfg.CacheEnabled); err != nil {
		return ScanResult{}, fmt.Errorf("append diff: %w", err)
	}
	stage.Done(ps)

	return res, nil
}

type phaseStats struct {
	phase string
	start time.Time
}

func (s *phaseStats) String() string {
	return fmt.Sprintf("%s (%.1fs)", s.phase, time.Since(s.start).Seconds())
}

func scanTotals(snap types.Snapshot, root string) ScanResult {
	var res ScanResult
	for _, d := range snap {
		if d.Path == root {
			res.Files = d.FilesHere + d.FilesBelow
			res.Dirs = d.DirsHere + d.DirsBelow + 1
			return res
		}
	}
	return res
}

// ReportConfig configures one report invocation.
type ReportConfig struct {
	TargetPath string
	StateDir   string
	Window     *combiner.Window
}

// ErrNoBaseline is returned when a report is requested before any scan has
// produced a baseline.
var ErrNoBaseline = fmt.Errorf("no baseline: run a scan first")

// Report loads the baseline and diff log for a root and returns the
// composite DiffEntry for the requested window.
func Report(cfg ReportConfig) (types.DiffEntry, error) {
	absRoot, err := filepath.Abs(cfg.TargetPath)
	if err != nil {
		return types.DiffEntry{}, fmt.Errorf("resolve target path: %w", err)
	}
	absState, err := filepath.Abs(cfg.StateDir)
	if err != nil {
		return types.DiffEntry{}, fmt.Errorf("resolve state dir: %w", err)
	}

	elevated := privilege.Elevated()
	initialPath, diffsPath := state.Paths(absState, absRoot, elevated)

	baseline, ok, err := state.LoadBaseline(initialPath)
	if err != nil {
		return types.DiffEntry{}, fmt.Errorf("load baseline: %w", err)
	}
	if !ok {
		return types.DiffEntry{}, ErrNoBaseline
	}

	log, err := difflog.Open(diffsPath)
	if err != nil {
		return types.DiffEntry{}, fmt.Errorf("open diff log: %w", err)
	}
	defer func() { _ = log.Close() }()

	return log.Combine(baseline, cfg.Window)
}
