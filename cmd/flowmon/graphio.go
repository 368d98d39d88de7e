package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rendis/flowmon/internal/layout"
	"github.com/rendis/flowmon/pkg/schema"
)

// readGraph loads and validates a graph document from path, or stdin for "-".
func (a *app) readGraph(ctx context.Context, cmd *cobra.Command, path string) (*schema.Graph, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(cmd.InOrStdin())
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read graph: %w", err)
	}

	v, err := a.validator()
	if err != nil {
		return nil, err
	}
	g, err := v.ValidateGraphJSON(ctx, raw)
	if err != nil {
		return nil, err
	}
	if res := v.CheckGraph(g); len(res.Warnings) > 0 {
		fmt.Fprint(cmd.ErrOrStderr(), warn.Sprint(res.Summary()))
	}
	return g, nil
}

// printSummary writes a one-line colored layout summary to w.
func printSummary(w io.Writer, g *schema.Graph, snap *layout.Snapshot) {
	status := good.Sprint("converged")
	if snap.State != layout.StateConverged.String() {
		status = warn.Sprint(snap.State)
	}
	fmt.Fprintf(w, "%s %s after %d iterations, energy %.4f, %d nodes",
		brand.Sprint("layout"), status, snap.Iteration, snap.Energy, len(snap.Nodes))
	if n := snap.Stats.SkippedEdges; n > 0 {
		fmt.Fprintf(w, ", %s", warn.Sprintf("%d skipped edges", n))
	}
	if n := snap.Stats.DuplicateNodes; n > 0 {
		fmt.Fprintf(w, ", %s", warn.Sprintf("%d duplicate nodes", n))
	}
	if g.WorkflowTitle != "" {
		fmt.Fprintf(w, " %s", subtle.Sprint("("+g.WorkflowTitle+")"))
	}
	fmt.Fprintln(w)
}
