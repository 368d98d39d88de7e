package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	flowmcp "github.com/rendis/flowmon/pkg/mcp"
)

func mcpCmd(a *app) *cobra.Command {
	var noStore bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the flowmon MCP tools over stdio",
		Long: `Expose flowmon.layout, flowmon.diagram, flowmon.query and flowmon.watch
to an MCP client over stdin/stdout. Logs go to stderr.

  flowmon mcp
  flowmon mcp --no-store   # inline graphs only`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			deps := flowmcp.FlowmonServerDeps{
				Layout: a.cfg.Layout,
				Logger: a.logger,
			}
			if !noStore {
				st, err := a.openStack(ctx)
				if err != nil {
					return err
				}
				defer st.close()
				if err := st.start(ctx); err != nil {
					return err
				}
				deps.Store = st.store
				deps.Views = st.views
				deps.Hub = st.hub
				deps.Validator = st.validator
			} else {
				v, err := a.validator()
				if err != nil {
					return err
				}
				deps.Validator = v
			}

			a.logger.Info("mcp server starting", "store", !noStore)
			return flowmcp.NewFlowmonServer(deps).Serve(ctx)
		},
	}
	cmd.Flags().BoolVar(&noStore, "no-store", false, "Run without the workflow store")
	return cmd
}
