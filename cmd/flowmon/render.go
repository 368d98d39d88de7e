package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rendis/flowmon/internal/diagram"
	"github.com/rendis/flowmon/internal/expressions"
	"github.com/rendis/flowmon/internal/layout"
)

func renderCmd(a *app) *cobra.Command {
	var (
		format    string
		output    string
		selected  string
		highlight string
	)

	cmd := &cobra.Command{
		Use:   "render <graph.json>",
		Short: "Render a graph document as SVG, Mermaid, PNG or ASCII",
		Long: `Render a graph document. SVG and ASCII output are laid out first;
Mermaid and PNG leave placement to their own engines.

  flowmon render graph.json --format svg -o graph.svg
  flowmon render graph.json --format svg --highlight 'status == "failed"'
  flowmon render graph.json --format png -o graph.png
  flowmon render graph.json --format ascii`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g, err := a.readGraph(ctx, cmd, args[0])
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			switch format {
			case "mermaid":
				buf.WriteString(diagram.RenderMermaid(g))
			case "png":
				png, err := diagram.RenderImage(ctx, g)
				if err != nil {
					return err
				}
				buf.Write(png)
			case "svg", "ascii":
				cfg := a.cfg.Layout
				cfg.FrameInterval = 0
				snap, err := layout.Simulate(ctx, g, cfg, nil)
				if err != nil {
					return err
				}
				printSummary(cmd.ErrOrStderr(), g, snap)
				if format == "ascii" {
					buf.WriteString(diagram.RenderASCII(g, snap))
					break
				}
				matched, err := expressions.NewExprEngine().Highlight(ctx, highlight, g)
				if err != nil {
					return err
				}
				opts := diagram.RenderOptions{Selected: selected, Highlighted: matched}
				if err := diagram.Render(&buf, g, snap, opts); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown format %q (want svg, mermaid, png or ascii)", format)
			}

			if output == "" || output == "-" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", good.Sprint("wrote"), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "svg", "Output format: svg, mermaid, png, ascii")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&selected, "selected", "", "Node id to draw as selected (svg)")
	cmd.Flags().StringVar(&highlight, "highlight", "", "expr predicate marking highlighted nodes (svg)")
	return cmd
}
