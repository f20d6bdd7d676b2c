// Package runner orchestrates a parametric sweep: one driver pass per
// scenario, a baseline reset after each, and the consolidated export.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/Agrid-Dev/parasweep/internal/logging"
	"github.com/Agrid-Dev/parasweep/internal/ports"
	"github.com/Agrid-Dev/parasweep/internal/results"
	"github.com/Agrid-Dev/parasweep/internal/store"
	"github.com/Agrid-Dev/parasweep/internal/sweep"
)

// Simulator runs scenario tables against the engine and restores the model.
type Simulator interface {
	Simulate(ctx context.Context, table sweep.Table, outputPath string, metrics []string) (*results.Table, error)
	Reset(ctx context.Context, baseline sweep.Scenario) error
}

// Ledger records sweep history.
type Ledger interface {
	BeginSweep(ctx context.Context, project string, total int) (string, error)
	RecordRun(ctx context.Context, run store.Run) error
	FinishSweep(ctx context.Context, id, state string) error
}

type Deps struct {
	Simulator Simulator
	Project   ports.Project
	Ledger    Ledger            // optional
	Events    *logging.EventLog // optional
}

type Config struct {
	Metrics      []string // defaults to results.Metrics
	RunFile      string   // per-scenario CSV name, formatted with the 1-based index
	CombinedFile string
}

func DefaultConfig() Config {
	return Config{
		Metrics:      results.Metrics,
		RunFile:      "simulation_%d.csv",
		CombinedFile: "combined_simulation_results.xlsx",
	}
}

// Summary describes a finished sweep.
type Summary struct {
	SweepID    string
	Total      int
	Succeeded  int
	Failed     int
	OutputFile string
	Results    *results.Table
}

// Service runs one sweep at a time and exposes its progress.
type Service struct {
	deps Deps
	cfg  Config
	log  *slog.Logger

	mu sync.RWMutex
	p  sweep.Progress

	jobs chan sweep.Table
}

func New(deps Deps, cfg Config, logger *slog.Logger) *Service {
	def := DefaultConfig()
	if len(cfg.Metrics) == 0 {
		cfg.Metrics = def.Metrics
	}
	if cfg.RunFile == "" {
		cfg.RunFile = def.RunFile
	}
	if cfg.CombinedFile == "" {
		cfg.CombinedFile = def.CombinedFile
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		deps: deps,
		cfg:  cfg,
		log:  logger,
		p:    sweep.Progress{State: sweep.StateIdle},
		jobs: make(chan sweep.Table, 1),
	}
}

func (s *Service) Get() sweep.Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.p.Clone()
}

// Run validates form and runs the whole sweep before returning. Input
// errors are returned before anything is simulated or written.
func (s *Service) Run(ctx context.Context, form sweep.Form) (Summary, error) {
	table, err := s.prepare(form)
	if err != nil {
		return Summary{}, err
	}
	return s.execute(ctx, table)
}

// Start validates form and queues the sweep for Serve.
func (s *Service) Start(form sweep.Form) error {
	table, err := s.prepare(form)
	if err != nil {
		return err
	}
	s.jobs <- table
	return nil
}

// Serve runs sweeps queued by Start until ctx ends.
func (s *Service) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case table := <-s.jobs:
			if _, err := s.execute(ctx, table); err != nil {
				s.log.Error("sweep failed", "err", err)
			}
		}
	}
}

func (s *Service) prepare(form sweep.Form) (sweep.Table, error) {
	table, err := sweep.Build(form)
	if err != nil {
		s.log.Warn("invalid sweep input", "err", err)
		return sweep.Table{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.p.State == sweep.StateRunning {
		return sweep.Table{}, sweep.ErrSweepRunning
	}
	s.p = sweep.Progress{State: sweep.StateRunning, Total: table.Len()}
	return table, nil
}

func (s *Service) execute(ctx context.Context, table sweep.Table) (Summary, error) {
	if table.Large() {
		s.log.Warn("large sweep, this will take a while", "simulations", table.Len())
	}

	sum := Summary{
		SweepID:    s.beginSweep(ctx, table.Len()),
		Total:      table.Len(),
		OutputFile: filepath.Join(s.deps.Project.Path, s.cfg.CombinedFile),
		Results:    results.New(table.Names(), s.cfg.Metrics),
	}
	s.update(func(p *sweep.Progress) { p.SweepID = sum.SweepID })
	s.deps.Events.Log(map[string]any{"event": "sweep_start", "sweep_id": sum.SweepID, "total": sum.Total})
	log := s.log.With("sweep", sum.SweepID)
	log.Info("sweep started", "simulations", sum.Total, "params", table.Names())

	runErr := s.runScenarios(ctx, log, table, &sum)

	if sum.Results.Len() > 0 {
		if err := sum.Results.SaveXLSX(sum.OutputFile); err != nil {
			log.Error("export results", "path", sum.OutputFile, "err", err)
			runErr = errors.Join(runErr, err)
		} else {
			log.Info("results exported", "path", sum.OutputFile)
		}
	} else if runErr == nil {
		runErr = ErrNoRows
	}

	s.finishSweep(sum, runErr)
	return sum, runErr
}

func (s *Service) runScenarios(ctx context.Context, log *slog.Logger, table sweep.Table, sum *Summary) error {
	baseline := table.Baseline()
	for i := range table.Len() {
		sc := table.Row(i)
		outputPath := filepath.Join(s.deps.Project.Path, fmt.Sprintf(s.cfg.RunFile, i+1))
		s.update(func(p *sweep.Progress) {
			p.Current = i + 1
			p.Scenario = scenarioMap(sc)
			p.OutputFile = outputPath
		})
		log.Info("running simulation", "n", i+1, "of", sum.Total)

		out, err := s.deps.Simulator.Simulate(ctx, table.Single(i), outputPath, s.cfg.Metrics)
		if out != nil && out.Len() > 0 {
			row, _ := out.Row(0)
			if appendErr := sum.Results.Append(row); appendErr != nil {
				log.Error("accumulate row", "err", appendErr)
			}
			s.recordRun(ctx, log, sum, out, row, sc)
		}
		if out == nil {
			// nothing was applied
			return err
		}
		s.reset(ctx, log, baseline)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) recordRun(ctx context.Context, log *slog.Logger, sum *Summary, out *results.Table, row results.Row, sc sweep.Scenario) {
	if row.Status == results.StatusOK {
		sum.Succeeded++
	} else {
		sum.Failed++
	}
	s.update(func(p *sweep.Progress) {
		p.Succeeded, p.Failed = sum.Succeeded, sum.Failed
	})

	run := store.Run{
		SweepID:  sum.SweepID,
		RunIndex: sc.Index,
		Params:   scenarioMap(sc),
		Status:   row.Status.String(),
	}
	if row.Status == results.StatusOK {
		run.Metrics, _ = out.Values(0)
	}
	s.deps.Events.Log(map[string]any{
		"event": "run", "sweep_id": sum.SweepID, "run": sc.Index,
		"status": run.Status, "params": run.Params,
	})
	if s.deps.Ledger == nil {
		return
	}
	if err := s.deps.Ledger.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		log.Warn("ledger: record run", "run", sc.Index, "err", err)
	}
}

// reset restores the baseline even after ctx has ended.
func (s *Service) reset(ctx context.Context, log *slog.Logger, baseline sweep.Scenario) {
	if err := s.deps.Simulator.Reset(context.WithoutCancel(ctx), baseline); err != nil {
		log.Error("reset model", "err", err)
	}
}

func (s *Service) beginSweep(ctx context.Context, total int) string {
	if s.deps.Ledger != nil {
		id, err := s.deps.Ledger.BeginSweep(ctx, s.deps.Project.Name, total)
		if err == nil {
			return id
		}
		s.log.Warn("ledger: begin sweep", "err", err)
	}
	return uuid.NewString()
}

func (s *Service) finishSweep(sum Summary, runErr error) {
	state, ledgerState := sweep.StateDone, store.StateDone
	if runErr != nil {
		state, ledgerState = sweep.StateFailed, store.StateFailed
	}
	s.update(func(p *sweep.Progress) {
		p.State = state
		p.OutputFile = sum.OutputFile
		if runErr != nil {
			p.LastError = runErr.Error()
		}
	})
	s.deps.Events.Log(map[string]any{
		"event": "sweep_end", "sweep_id": sum.SweepID, "state": state.String(),
		"succeeded": sum.Succeeded, "failed": sum.Failed,
	})
	s.log.Info("sweep finished", "sweep", sum.SweepID, "state", state.String(),
		"succeeded", sum.Succeeded, "failed", sum.Failed)
	if s.deps.Ledger == nil {
		return
	}
	if err := s.deps.Ledger.FinishSweep(context.Background(), sum.SweepID, ledgerState); err != nil {
		s.log.Warn("ledger: finish sweep", "err", err)
	}
}

func (s *Service) update(fn func(p *sweep.Progress)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.p)
}

func scenarioMap(sc sweep.Scenario) map[string]float64 {
	out := make(map[string]float64)
	names := sc.Names()
	for i, v := range sc.Values() {
		out[names[i]] = v
	}
	return out
}
