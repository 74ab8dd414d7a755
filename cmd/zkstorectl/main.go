// Command zkstorectl is a local debugging and replay harness for the
// store (spec.md §9's A4): it never opens a socket, never speaks a wire
// protocol, and never participates in quorum. It exists to drive
// TransactionProcessor and the snapshot codec from the command line —
// replaying a JSON transaction log, dumping/loading a snapshot file, and
// printing watch/ephemeral diagnostic reports.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/latticeio/zkstore/internal/zlog"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "zkstorectl",
		Short: "Replay and inspect a zkstore DataTree offline",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				zlog.L().SetLevel(logrus.DebugLevel)
			}
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newReplayCmd())
	root.AddCommand(newSnapshotCmd())
	root.AddCommand(newReportCmd())
	return root
}
