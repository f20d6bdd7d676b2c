package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Agrid-Dev/parasweep/cmd/app"
	"github.com/Agrid-Dev/parasweep/internal/driver"
	"github.com/Agrid-Dev/parasweep/internal/logging"
	"github.com/Agrid-Dev/parasweep/internal/runner"
	"github.com/Agrid-Dev/parasweep/internal/store"
	"github.com/Agrid-Dev/parasweep/internal/thermal"
)

// loadConfig reads the config named by --config and applies the global flag
// overrides.
func loadConfig(cmd *cobra.Command) (app.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := app.LoadConfig(path)
	if err != nil {
		return app.Config{}, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	return cfg, nil
}

// stack is the wired sweep service and everything it owns.
type stack struct {
	cfg     app.Config
	log     *slog.Logger
	engine  *thermal.Engine
	ledger  *store.Ledger
	events  *logging.EventLog
	service *runner.Service
}

func newStack(ctx context.Context, cfg app.Config) (*stack, error) {
	logger := logging.NewLogger(cfg.LogLevel, os.Stderr)
	project := cfg.ProjectRef()

	opts, err := cfg.DriverOptions()
	if err != nil {
		logger.Error("route flag set incorrectly", "route", cfg.Sweep.Route)
		return nil, err
	}

	eng, err := thermal.NewEngine(cfg.ThermalParams(), logger.With("component", "engine"))
	if err != nil {
		return nil, fmt.Errorf("thermal engine: %w", err)
	}
	drv := driver.New(eng, eng, eng, project, opts, logger.With("component", "driver"))

	st := &stack{
		cfg:    cfg,
		log:    logger,
		engine: eng,
		events: logging.NewEventLog(filepath.Join(project.Path, store.Dir), cfg.LogLevel),
	}

	deps := runner.Deps{Simulator: drv, Project: project, Events: st.events}
	if path := cfg.LedgerPath(); path != "" {
		l, err := store.Open(ctx, path)
		if err != nil {
			st.events.Close()
			return nil, err
		}
		st.ledger = l
		deps.Ledger = l
	}

	st.service = runner.New(deps, runner.DefaultConfig(), logger.With("component", "runner"))
	return st, nil
}

func (st *stack) Close() {
	st.engine.Wait()
	if st.ledger != nil {
		if err := st.ledger.Close(); err != nil {
			st.log.Warn("close ledger", "err", err)
		}
	}
	st.events.Close()
}
