package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aravindh-k/diskwatch/internal/orchestrator"
)

type scanOptions struct {
	printPerf       bool
	minDiffStr      string
	threads         int
	yieldLimit      int
	cacheMergedDiff bool
}

func newScanCmd() *cobra.Command {
	opts := &scanOptions{
		minDiffStr: "50M",
		threads:    84,
		yieldLimit: 384,
	}

	cmd := &cobra.Command{
		Use:   "scan <target-dir> <state-dir>",
		Short: "Walk a directory tree and record its structural diff against the last scan",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runScan(args[0], args[1], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.printPerf, "p", "p", false, "print perf stats after scan")
	cmd.Flags().StringVar(&opts.minDiffStr, "md", opts.minDiffStr, "minimum modify delta (bytes or M/G shorthand)")
	cmd.Flags().IntVarP(&opts.threads, "t", "t", opts.threads, "thread count (>=2)")
	cmd.Flags().IntVar(&opts.yieldLimit, "fdl", opts.yieldLimit, "per-quantum yield limit (>=1)")
	cmd.Flags().BoolVar(&opts.cacheMergedDiff, "cache-merged-diff", false, "maintain the cached combined diff on append")

	return cmd
}

func drainErrors(errs <-chan error) {
	for err := range errs {
		fmt.Fprintf(os.Stderr, "\r\033[Kerror: %v\n", err)
	}
}

func runScan(targetDir, stateDir string, opts *scanOptions) error {
	threshold, err := parseSize(opts.minDiffStr)
	if err != nil {
		return fmt.Errorf("invalid --md: %w", err)
	}
	if opts.threads < 2 {
		return fmt.Errorf("-t must be >= 2")
	}
	if opts.yieldLimit < 1 {
		return fmt.Errorf("--fdl must be >= 1")
	}

	errCh := make(chan error, 100)
	go drainErrors(errCh)
	defer close(errCh)

	start := time.Now()
	res, err := orchestrator.Scan(orchestrator.ScanConfig{
		TargetPath:   targetDir,
		StateDir:     stateDir,
		Threshold:    threshold,
		Threads:      opts.threads,
		YieldLimit:   opts.yieldLimit,
		CacheEnabled: opts.cacheMergedDiff,
		ShowProgress: opts.printPerf,
		ErrCh:        errCh,
	})
	if err != nil {
		return err
	}

	if opts.printPerf {
		elapsed := time.Since(start)
		fmt.Fprintf(os.Stdout, "scanned %d files, %d dirs in %s\n", res.Files, res.Dirs, elapsed)
	}
	return nil
}
