package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rendis/flowmon/internal/refresher"
	"github.com/rendis/flowmon/internal/store"
	"github.com/rendis/flowmon/internal/streaming"
	"github.com/rendis/flowmon/internal/validation"
	"github.com/rendis/flowmon/internal/view"
)

// stack is the long-running service graph shared by serve and mcp.
type stack struct {
	store     *store.LibSQLStore
	events    *store.EventLog
	hub       *streaming.MemoryHub
	validator *validation.GraphValidator
	views     *view.Manager
	refresher *refresher.Refresher
}

// openStore opens and migrates the configured database.
func (a *app) openStore(ctx context.Context) (*store.LibSQLStore, error) {
	if dir := filepath.Dir(a.cfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	st, err := store.NewLibSQLStore("file:" + a.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return st, nil
}

// openStack opens the store and wires the hub, view manager and refresher
// on top of it. The refresher is not started.
func (a *app) openStack(ctx context.Context) (*stack, error) {
	st, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	validator, err := a.validator()
	if err != nil {
		st.Close()
		return nil, err
	}
	hub := streaming.NewMemoryHub(streaming.WithBuffer(a.cfg.HubBuffer))
	views, err := view.NewManager(st, hub, a.cfg.Layout,
		view.WithLogger(a.logger),
		view.WithValidator(validator),
	)
	if err != nil {
		st.Close()
		return nil, err
	}

	interval, _ := a.cfg.refreshInterval()
	return &stack{
		store:     st,
		events:    store.NewEventLog(st),
		hub:       hub,
		validator: validator,
		views:     views,
		refresher: refresher.New(st, views, a.logger, refresher.WithInterval(interval)),
	}, nil
}

// start recovers missed refresh jobs and launches the refresh loop.
func (s *stack) start(ctx context.Context) error {
	if err := s.refresher.RecoverMissed(ctx); err != nil {
		return err
	}
	return s.refresher.Start(ctx)
}

// close stops the refresher, cancels every view and closes the store.
func (s *stack) close() error {
	_ = s.refresher.Stop()
	s.views.Shutdown()
	return s.store.Close()
}
