package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rendis/flowmon/internal/expressions"
	"github.com/rendis/flowmon/internal/layout"
)

func layoutCmd(a *app) *cobra.Command {
	var (
		query string
		quiet bool
	)

	cmd := &cobra.Command{
		Use:   "layout <graph.json>",
		Short: "Lay out a graph document and print the final positions",
		Long: `Run the force simulation on a graph document to completion and print
the final snapshot as JSON. Use - to read the graph from stdin.

  flowmon layout graph.json
  flowmon layout graph.json --seed 7
  flowmon layout graph.json --query '.nodes[] | select(.kind == "stage") | .id'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g, err := a.readGraph(ctx, cmd, args[0])
			if err != nil {
				return err
			}

			cfg := a.cfg.Layout
			cfg.FrameInterval = 0
			snap, err := layout.Simulate(ctx, g, cfg, nil)
			if err != nil {
				return err
			}
			if !quiet {
				printSummary(cmd.ErrOrStderr(), g, snap)
			}

			out := json.NewEncoder(cmd.OutOrStdout())
			out.SetIndent("", "  ")
			if query == "" {
				return out.Encode(snap)
			}
			results, err := expressions.NewGoJQEngine().Query(ctx, query, snap)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			for _, r := range results {
				if err := out.Encode(r); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "jq expression applied to the final snapshot")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Suppress the summary line")
	return cmd
}
