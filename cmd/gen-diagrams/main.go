// gen-diagrams generates sample diagram outputs for README documentation.
// Run: go run ./cmd/gen-diagrams
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rendis/flowmon/internal/diagram"
	"github.com/rendis/flowmon/internal/layout"
	"github.com/rendis/flowmon/internal/store"
	"github.com/rendis/flowmon/pkg/schema"
)

func main() {
	ctx := context.Background()

	// Daily PnL: ingest (trades, prices) → compute (positions after trades) → publish
	def := &schema.WorkflowDefinition{
		ProcessID: "pnl-daily",
		Metadata:  map[string]any{"name": "Daily PnL"},
		Stages: []schema.StageDefinition{
			{ID: 1, Name: "Ingest", Substages: []schema.SubstageDefinition{
				{ID: 10, Name: "Trades"},
				{ID: 11, Name: "Prices"},
			}},
			{ID: 2, Name: "Compute", Substages: []schema.SubstageDefinition{
				{ID: 20, Name: "Positions"},
				{ID: 21, Name: "PnL", DependsOn: []int{20}},
			}},
			{ID: 3, Name: "Publish", Substages: []schema.SubstageDefinition{
				{ID: 30, Name: "Report"},
			}},
		},
	}

	states := []*store.NodeState{
		{NodeID: "substage-10", Status: schema.NodeStatusCompleted},
		{NodeID: "substage-11", Status: schema.NodeStatusCompleted},
		{NodeID: "substage-20", Status: schema.NodeStatusCompleted},
		{NodeID: "substage-21", Status: schema.NodeStatusInProgress},
	}

	g, err := diagram.Build("wf-sample", def, states)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build error: %v\n", err)
		os.Exit(1)
	}

	cfg := layout.DefaultConfig()
	cfg.Seed = 1
	cfg.FrameInterval = 0
	snap, err := layout.Simulate(ctx, g, cfg, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "layout error: %v\n", err)
		os.Exit(1)
	}

	outDir := filepath.Join("docs", "assets")
	os.MkdirAll(outDir, 0o755)

	// ASCII
	ascii := diagram.RenderASCII(g, snap)
	os.WriteFile(filepath.Join(outDir, "diagram-ascii.txt"), []byte(ascii), 0o644)
	fmt.Println("=== ASCII ===")
	fmt.Println(ascii)

	// Mermaid
	mermaid := diagram.RenderMermaid(g)
	os.WriteFile(filepath.Join(outDir, "diagram-mermaid.md"), []byte("```mermaid\n"+mermaid+"\n```\n"), 0o644)
	fmt.Println("=== Mermaid ===")
	fmt.Println(mermaid)

	// SVG (force layout)
	var svg bytes.Buffer
	if err := diagram.Render(&svg, g, snap, diagram.RenderOptions{Selected: "stage-2"}); err != nil {
		fmt.Fprintf(os.Stderr, "svg error: %v\n", err)
	} else {
		svgPath := filepath.Join(outDir, "diagram-sample.svg")
		os.WriteFile(svgPath, svg.Bytes(), 0o644)
		fmt.Printf("=== SVG ===\nWritten: %s (%d bytes, %d iterations)\n", svgPath, svg.Len(), snap.Iteration)
	}

	// Image (PNG)
	png, imgErr := diagram.RenderImage(ctx, g)
	if imgErr != nil {
		fmt.Fprintf(os.Stderr, "image error: %v\n", imgErr)
	} else {
		pngPath := filepath.Join(outDir, "diagram-sample.png")
		os.WriteFile(pngPath, png, 0o644)
		fmt.Printf("=== Image (PNG) ===\nWritten: %s (%d bytes)\n", pngPath, len(png))
	}
}
