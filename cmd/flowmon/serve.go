package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rendis/flowmon/internal/logging"
	"github.com/rendis/flowmon/internal/panel"
	"github.com/rendis/flowmon/internal/validation"
)

const shutdownTimeout = 5 * time.Second

func serveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the diagram panel and API",
		Long: `Serve the web panel, the view API and the SSE snapshot streams.

SIGHUP reloads settings.json: log level and admission rules apply live,
other changed fields are reported as needing a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().String("listen-addr", "", "TCP listen address (default :4200)")
	return cmd
}

func (a *app) serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", a.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.ListenAddr, err)
	}
	swapper := newHandlerSwapper(startingHandler())
	srv := &http.Server{
		Handler:           swapper,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	st, err := a.openStack(ctx)
	if err != nil {
		srv.Close()
		return err
	}
	defer st.close()

	if err := st.start(ctx); err != nil {
		srv.Close()
		return err
	}
	swapper.Swap(a.panelHandler(st, st.validator))

	if err := os.WriteFile(pidPath(), []byte(strconv.Itoa(os.Getpid())), 0o644); err == nil {
		defer os.Remove(pidPath())
	}

	fmt.Fprintf(os.Stderr, "%s listening on %s %s\n",
		brand.Sprint("flowmon"), good.Sprint(displayAddr(ln.Addr())), subtle.Sprint("("+a.cfg.DBPath+")"))

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case err := <-serveErr:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-hup:
			a.reload(st, swapper)
		}
	}
}

func (a *app) panelHandler(st *stack, v validation.Validator) http.Handler {
	return panel.NewPanelServer(panel.PanelDeps{
		Store:     st.store,
		Views:     st.views,
		Hub:       st.hub,
		Recorder:  st.events,
		Refresher: st.refresher,
		Validator: v,
		Layout:    a.cfg.Layout,
		Logger:    a.logger,
	}).Handler()
}

// reload re-reads the layered config and applies what can change live.
func (a *app) reload(st *stack, swapper *handlerSwapper) {
	next, err := loadConfig()
	if err == nil {
		err = next.Validate()
	}
	if err != nil {
		a.logger.Error("config reload failed", "error", err)
		return
	}

	d := diffConfigs(a.cfg, next)
	if d.LogLevelChanged {
		lvl, _ := logging.ParseLevel(next.LogLevel)
		a.level.Set(lvl)
		a.cfg.LogLevel = next.LogLevel
		a.logger.Info("log level changed", "level", lvl.String())
	}
	if d.RulesChanged {
		v, err := validation.NewDefaultGraphValidator(next.AdmissionRules)
		if err != nil {
			a.logger.Error("admission rules rejected", "error", err)
		} else {
			a.cfg.AdmissionRules = next.AdmissionRules
			swapper.Swap(a.panelHandler(st, v))
			a.logger.Info("admission rules reloaded", slog.Int("rules", len(next.AdmissionRules)))
		}
	}
	if len(d.RestartNeeded) > 0 {
		a.logger.Warn("config changes need a restart", "fields", d.RestartNeeded)
	}
}

func displayAddr(addr net.Addr) string {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok || tcp.IP.IsUnspecified() {
		port := 0
		if ok {
			port = tcp.Port
		}
		return fmt.Sprintf("http://localhost:%d", port)
	}
	return "http://" + tcp.String()
}
