package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aravindh-k/diskwatch/internal/combiner"
	"github.com/aravindh-k/diskwatch/internal/orchestrator"
	"github.com/aravindh-k/diskwatch/internal/reporter"
)

type reportOptions struct {
	showMoves   bool
	startReport string
	endReport   string
}

func newReportCmd() *cobra.Command {
	opts := &reportOptions{}

	cmd := &cobra.Command{
		Use:   "report <target-dir> <state-dir>",
		Short: "Print accumulated changes for a scanned root",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runReport(args[0], args[1], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.showMoves, "mvs", false, "show move lines")
	cmd.Flags().StringVar(&opts.startReport, "start-report", "", "window start, local time, YYYY-MM-DDTHH:MM:SS")
	cmd.Flags().StringVar(&opts.endReport, "end-report", "", "window end, local time, YYYY-MM-DDTHH:MM:SS")

	return cmd
}

func runReport(targetDir, stateDir string, opts *reportOptions) error {
	var window *combiner.Window
	if opts.startReport != "" || opts.endReport != "" {
		window = &combiner.Window{}
		if opts.startReport != "" {
			t, err := parseLocalTimestamp(opts.startReport)
			if err != nil {
				return fmt.Errorf("invalid --start-report: %w", err)
			}
			window.HasStart, window.Start = true, t
		}
		if opts.endReport != "" {
			t, err := parseLocalTimestamp(opts.endReport)
			if err != nil {
				return fmt.Errorf("invalid --end-report: %w", err)
			}
			window.HasEnd, window.End = true, t
		}
	}

	entry, err := orchestrator.Report(orchestrator.ReportConfig{
		TargetPath: targetDir,
		StateDir:   stateDir,
		Window:     window,
	})
	if err != nil {
		return err
	}

	return reporter.Write(os.Stdout, entry, reporter.Options{ShowMoves: opts.showMoves})
}
