package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Agrid-Dev/parasweep/internal/ports"
	"github.com/Agrid-Dev/parasweep/internal/results"
	"github.com/Agrid-Dev/parasweep/internal/sweep"
)

// Timing holds the bounded waits around engine calls.
type Timing struct {
	Poll             time.Duration // result-file poll interval
	Timeout          time.Duration // give up waiting for the result file
	LoadsSettle      time.Duration // after loads and sizing passes
	DirectSettle     time.Duration // after a direct run, before cleanup
	ComplianceSettle time.Duration // after a compliance run, before cleanup
}

func DefaultTiming() Timing {
	return Timing{
		Poll:             1 * time.Second,
		Timeout:          900 * time.Second,
		LoadsSettle:      10 * time.Second,
		DirectSettle:     2 * time.Second,
		ComplianceSettle: 10 * time.Second,
	}
}

type Options struct {
	ModelIndex  int
	Route       sweep.Route
	LoadsOn     bool
	HVACNetwork string // applied before the loads passes when set
	Timing      Timing
}

// Driver applies scenarios to the model and runs the engine for each of
// them, strictly one at a time.
type Driver struct {
	mutator   ports.ModelMutator
	engine    ports.SimulationEngine
	extractor ports.ResultsExtractor
	project   ports.Project
	opts      Options
	log       *slog.Logger
}

func New(mutator ports.ModelMutator, engine ports.SimulationEngine, extractor ports.ResultsExtractor,
	project ports.Project, opts Options, logger *slog.Logger) *Driver {
	def := DefaultTiming()
	if opts.Timing.Poll <= 0 {
		opts.Timing.Poll = def.Poll
	}
	if opts.Timing.Timeout <= 0 {
		opts.Timing.Timeout = def.Timeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		mutator:   mutator,
		engine:    engine,
		extractor: extractor,
		project:   project,
		opts:      opts,
		log:       logger,
	}
}

func (d *Driver) Options() Options { return d.opts }

// Simulate runs every scenario of table and returns one result row per
// scenario. The whole table, pending rows included, is written to
// outputPath after each scenario. A failed scenario keeps zero metrics and
// the sweep moves on; only an invalid route or ctx ending stops it early.
func (d *Driver) Simulate(ctx context.Context, table sweep.Table, outputPath string, metrics []string) (*results.Table, error) {
	if !d.opts.Route.Valid() {
		d.log.Error("route flag set incorrectly", "route", int(d.opts.Route))
		return nil, fmt.Errorf("%w: %d", sweep.ErrInvalidRoute, int(d.opts.Route))
	}

	out := results.FromScenarios(table, metrics)
	for pos, sc := range table.Scenarios() {
		status, err := d.simulateOne(ctx, out, pos, sc, metrics)
		if err != nil {
			return out, err
		}
		if status != results.StatusOK {
			_ = out.MarkStatus(pos, status)
		}

		if err := out.SaveCSV(outputPath); err != nil {
			d.log.Error("persist results", "path", outputPath, "err", err)
		}
	}
	return out, nil
}

func (d *Driver) simulateOne(ctx context.Context, out *results.Table, pos int, sc sweep.Scenario, metrics []string) (results.Status, error) {
	log := d.log.With("run", sc.Index)
	log.Info("applying scenario modifications", "values", scenarioAttrs(sc))

	if err := d.mutator.Apply(ctx, d.opts.ModelIndex, sc.Names(), sc.Values()); err != nil {
		if ctx.Err() != nil {
			return results.StatusFailed, ctx.Err()
		}
		log.Error("apply scenario", "err", err)
		return results.StatusFailed, nil
	}

	arts, err := ArtifactsFor(d.project, d.opts.Route, sc.Index)
	if err != nil {
		return results.StatusFailed, err
	}
	d.engine.SetResultsFile(arts.ResultsFile)

	if d.opts.LoadsOn {
		if err := d.runLoads(ctx, log); err != nil {
			return results.StatusFailed, err
		}
	}

	log.Info("running scenario", "route", d.opts.Route.String(), "results_file", arts.ResultsFile)
	ok := d.runThermal(ctx, log)
	if ctx.Err() != nil {
		return results.StatusFailed, ctx.Err()
	}

	appeared, err := WaitForFile(ctx, arts.ResultsPath, d.opts.Timing.Poll, d.opts.Timing.Timeout)
	if err != nil {
		return results.StatusFailed, err
	}
	log.Info("thermal simulation finished", "success", ok, "results_present", appeared)

	status := results.StatusFailed
	switch {
	case !ok:
	case !appeared:
		log.Warn("results file not produced before timeout", "path", arts.ResultsPath, "timeout", d.opts.Timing.Timeout)
		status = results.StatusTimeout
	default:
		values, err := d.extractor.Extract(ctx, arts.ResultsFile, metrics)
		if err != nil {
			log.Error("extract results", "err", err)
			break
		}
		if err := out.Set(pos, values); err != nil {
			log.Error("store results", "err", err)
			break
		}
		status = results.StatusOK
	}

	if err := sleep(ctx, d.settle()); err != nil {
		return status, err
	}
	d.cleanup(arts.Paths)
	return status, nil
}

func (d *Driver) runLoads(ctx context.Context, log *slog.Logger) error {
	if d.opts.HVACNetwork != "" {
		if err := d.engine.SetHVACNetwork(d.opts.HVACNetwork); err != nil {
			log.Warn("set hvac network", "file", d.opts.HVACNetwork, "err", err)
		}
	}
	if ok, err := d.engine.RunRoomZoneLoads(ctx); !ok || err != nil {
		log.Warn("room/zone loads simulation failed", "err", err)
	}
	if ok, err := d.engine.RunLoadsSizing(ctx); !ok || err != nil {
		log.Warn("loads sizing simulation failed", "err", err)
	}
	return sleep(ctx, d.opts.Timing.LoadsSettle)
}

func (d *Driver) runThermal(ctx context.Context, log *slog.Logger) bool {
	var (
		ok  bool
		err error
	)
	if d.opts.Route == sweep.RouteCompliance {
		ok, err = d.engine.RunComplianceSimulation(ctx)
	} else {
		// solar and daylight pre-simulations need the queued mode
		ok, err = d.engine.RunSimulation(ctx, true)
	}
	if err != nil {
		log.Error("thermal simulation", "err", err)
		return false
	}
	return ok
}

func (d *Driver) settle() time.Duration {
	if d.opts.Route == sweep.RouteCompliance {
		return d.opts.Timing.ComplianceSettle
	}
	return d.opts.Timing.DirectSettle
}

// cleanup removes run artifacts; failures are ignored.
func (d *Driver) cleanup(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			d.log.Debug("remove artifact", "path", p, "err", err)
		}
	}
}

// Reset re-applies the baseline scenario so the next sweep starts from an
// unmodified model. Applying it twice is the same as applying it once.
func (d *Driver) Reset(ctx context.Context, baseline sweep.Scenario) error {
	d.log.Info("resetting model to baseline", "values", scenarioAttrs(baseline))
	if err := d.mutator.Apply(ctx, d.opts.ModelIndex, baseline.Names(), baseline.Values()); err != nil {
		return fmt.Errorf("reset model: %w", err)
	}
	return nil
}

func scenarioAttrs(sc sweep.Scenario) map[string]float64 {
	out := make(map[string]float64)
	names := sc.Names()
	for i, v := range sc.Values() {
		out[names[i]] = v
	}
	return out
}
