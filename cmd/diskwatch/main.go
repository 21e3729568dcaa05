package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	os.Exit(run())
}

func run() int {
	root := &cobra.Command{
		Use:     "diskwatch",
		Short:   "Track directory-tree changes between scans",
		Version: version + " (" + commit + ")",
	}

	root.AddCommand(newScanCmd())
	root.AddCommand(newReportCmd())

	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}
