package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rendis/flowmon/internal/logging"
	"github.com/rendis/flowmon/internal/validation"
)

// app carries the resolved configuration and logger into subcommands.
type app struct {
	cfg      Config
	level    *slog.LevelVar
	logger   *slog.Logger
	logOut   io.Writer
	dbPath   string
	logLevel string
	logFmt   string
	seed     uint64
}

func newRootCmd() *cobra.Command {
	root, _ := newRoot(os.Stderr)
	return root
}

// newRoot builds the command tree around a fresh app whose logger writes
// to logOut.
func newRoot(logOut io.Writer) (*cobra.Command, *app) {
	a := &app{level: new(slog.LevelVar), logOut: logOut}

	root := &cobra.Command{
		Use:   "flowmon",
		Short: "flowmon: live workflow diagrams",
		Long: brand.Sprint("flowmon") + " lays out workflow diagrams with a force simulation\n" +
			subtle.Sprint("Serve the panel, run layouts, and render SVG, Mermaid, PNG or ASCII"),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.configure(cmd)
		},
	}
	root.SetVersionTemplate("flowmon {{ .Version }}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&a.dbPath, "db-path", "", "database path (default: ~/.flowmon/flowmon.db)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&a.logFmt, "log-format", "", "log format: text or json")
	pf.Uint64Var(&a.seed, "seed", 0, "layout jitter seed (0 seeds from the clock)")

	root.AddCommand(
		serveCmd(a),
		layoutCmd(a),
		renderCmd(a),
		mcpCmd(a),
		dbCmd(a),
		versionCmd(),
	)
	return root, a
}

// configure resolves the layered config, applies changed flags on top and
// builds the logger.
func (a *app) configure(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Layer 4: flags override.
	flags := cmd.Flags()
	if flags.Changed("db-path") {
		cfg.DBPath = a.dbPath
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = a.logFmt
	}
	if flags.Changed("seed") {
		cfg.Layout.Seed = a.seed
	}
	if flags.Changed("listen-addr") {
		cfg.ListenAddr, _ = flags.GetString("listen-addr")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	lvl, _ := logging.ParseLevel(cfg.LogLevel)
	a.level.Set(lvl)
	a.logger = logging.New(a.logOut, a.level, cfg.LogFormat)
	a.cfg = cfg
	return nil
}

func (a *app) validator() (*validation.GraphValidator, error) {
	return validation.NewDefaultGraphValidator(a.cfg.AdmissionRules)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the flowmon version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
