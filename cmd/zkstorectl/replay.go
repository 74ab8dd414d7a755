package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/latticeio/zkstore/internal/zlog"
	"github.com/latticeio/zkstore/snapshot"
	"github.com/latticeio/zkstore/txn"
	"github.com/latticeio/zkstore/ztree"
)

func newReplayCmd() *cobra.Command {
	var (
		logPath      string
		fromSnapshot string
		toSnapshot   string
		quotas       bool
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a JSON transaction log through a DataTree",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []ztree.Option{}
			if quotas {
				opts = append(opts, ztree.WithQuotasEnabled(true))
			}
			tree := ztree.New(opts...)

			if fromSnapshot != "" {
				f, err := os.Open(fromSnapshot)
				if err != nil {
					return errors.Wrap(err, "open snapshot")
				}
				defer f.Close()
				if err := snapshot.Read(f, tree); err != nil {
					return err
				}
			}

			f, err := os.Open(logPath)
			if err != nil {
				return errors.Wrap(err, "open transaction log")
			}
			defer f.Close()

			headers, bodies, err := decodeLog(f)
			if err != nil {
				return err
			}

			proc := &txn.Processor{Tree: tree}
			results := make([]txn.Result, 0, len(headers))
			for i := range headers {
				// runID distinguishes this replay invocation in logs; it is
				// not part of the transaction's identity.
				runID := uuid.New()
				zlog.WithFields(map[string]interface{}{"run": runID.String(), "cxid": headers[i].Cxid}).
					Debug("replaying transaction")
				results = append(results, proc.ProcessTxn(context.Background(), headers[i], bodies[i]))
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(results); err != nil {
				return errors.Wrap(err, "encode results")
			}

			if toSnapshot != "" {
				out, err := os.Create(toSnapshot)
				if err != nil {
					return errors.Wrap(err, "create snapshot")
				}
				defer out.Close()
				if err := snapshot.Write(out, tree); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&logPath, "log", "", "path to the JSON transaction log (required)")
	cmd.Flags().StringVar(&fromSnapshot, "from-snapshot", "", "optional snapshot to restore before replay")
	cmd.Flags().StringVar(&toSnapshot, "to-snapshot", "", "optional path to write a snapshot after replay")
	cmd.Flags().BoolVar(&quotas, "quotas", false, "enable quota accounting")
	cmd.MarkFlagRequired("log")

	return cmd
}
