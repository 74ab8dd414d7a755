package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/latticeio/zkstore/ztree"
)

// newReportCmd prints the diagnostic introspection spec.md §4.3 calls
// out: watch counts and the ephemeral/container/TTL index snapshot of a
// freshly bootstrapped tree. Since the harness has no long-running
// process to attach to, this mainly exercises the reporting code paths
// against a tree built in-process for the duration of the command.
func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print watch and ephemeral diagnostic reports for a fresh tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			tree := ztree.New()
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "data watches: %d\n", tree.DataWatches().Count())
			fmt.Fprintf(out, "child watches: %d\n", tree.ChildWatches().Count())
			fmt.Fprintf(out, "containers: %v\n", tree.Containers())
			fmt.Fprintf(out, "ttl paths: %v\n", tree.TTLPaths())
			fmt.Fprintf(out, "ephemerals: %v\n", tree.GetAllEphemerals())
			return nil
		},
	}
	return cmd
}
