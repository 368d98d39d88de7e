package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/rendis/flowmon/internal/store"
)

func dbCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Maintain the flowmon database",
	}
	cmd.AddCommand(vacuumCmd(a), replayCmd(a))
	return cmd
}

func vacuumCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "vacuum",
		Short: "Compact the database file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Vacuum(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), good.Sprint("vacuumed"), subtle.Sprint(a.cfg.DBPath))
			return nil
		},
	}
}

func replayCmd(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "replay <workflow-id>",
		Short: "Rebuild node states from the status event log",
		Long: `Replay every status event of a workflow in sequence order and write the
resulting node states back, repairing states that drifted from the log.
A gap in the event sequence aborts the replay.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			workflowID := args[0]
			if _, err := st.GetWorkflow(ctx, workflowID); err != nil {
				return err
			}
			states, err := store.NewEventLog(st).ReplayEvents(ctx, workflowID)
			if err != nil {
				return err
			}

			ids := make([]string, 0, len(states))
			for id := range states {
				ids = append(ids, id)
			}
			slices.Sort(ids)

			out := cmd.OutOrStdout()
			for _, id := range ids {
				ns := states[id]
				if !dryRun {
					if err := st.UpsertNodeState(ctx, ns); err != nil {
						return err
					}
				}
				fmt.Fprintf(out, "%-16s %s\n", id, statusColor(ns.Status).Sprint(ns.Status))
			}
			if dryRun {
				fmt.Fprintln(out, subtle.Sprintf("dry run, %d states not written", len(ids)))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the replayed states without writing them")
	return cmd
}
