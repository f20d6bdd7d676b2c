package thermal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Agrid-Dev/parasweep/internal/logging"
	"github.com/Agrid-Dev/parasweep/internal/ports"
	"github.com/Agrid-Dev/parasweep/internal/results"
	"github.com/Agrid-Dev/parasweep/internal/sweep"
)

type engineOption func(*Params)

func withWriteDelay(d time.Duration) engineOption {
	return func(p *Params) { p.WriteDelay = d }
}

func newTestEngine(t *testing.T, opts ...engineOption) *Engine {
	t.Helper()
	params := DefaultParams()
	params.Project = ports.Project{Name: "office", Path: t.TempDir()}
	for _, opt := range opts {
		opt(&params)
	}
	e, err := NewEngine(params, logging.Discard())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestNewEngineValidates(t *testing.T) {
	params := DefaultParams()
	params.Models = nil
	if _, err := NewEngine(params, nil); !errors.Is(err, ErrModelIndex) {
		t.Errorf("got %v, want %v", err, ErrModelIndex)
	}
	params = DefaultParams()
	params.Models[0].CapacitancePerArea = 0
	if _, err := NewEngine(params, nil); !errors.Is(err, ErrInvalidCapacitance) {
		t.Errorf("got %v, want %v", err, ErrInvalidCapacitance)
	}
}

func TestEngineApply(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	err := e.Apply(ctx, 0, []string{sweep.ParamWall, sweep.ParamRoof}, []float64{0.15, 0.1})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	b, _ := e.Model(0)
	if b.Envelope.WallU != 0.15 || b.Envelope.RoofU != 0.1 {
		t.Errorf("envelope = %+v", b.Envelope)
	}

	tests := []struct {
		name   string
		index  int
		names  []string
		values []float64
		want   error
	}{
		{"Bad model index", 3, []string{sweep.ParamWall}, []float64{1}, ErrModelIndex},
		{"Length mismatch", 0, []string{sweep.ParamWall}, []float64{1, 2}, ErrParameterValueLength},
		{"Unknown name", 0, []string{"door_u_value"}, []float64{1}, ErrUnknownParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := e.Apply(ctx, tt.index, tt.names, tt.values); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEngineApplyIsAtomic(t *testing.T) {
	e := newTestEngine(t)
	before, _ := e.Model(0)
	err := e.Apply(context.Background(), 0, []string{sweep.ParamWall, "door_u_value"}, []float64{0.1, 1})
	if err == nil {
		t.Fatal("expected error")
	}
	after, _ := e.Model(0)
	if after.Envelope != before.Envelope {
		t.Errorf("envelope changed on failed apply: %+v", after.Envelope)
	}
}

func TestEngineSizingNeedsLoads(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	if ok, err := e.RunLoadsSizing(ctx); ok || !errors.Is(err, ErrLoadsNotRun) {
		t.Errorf("got %v, %v, want false, %v", ok, err, ErrLoadsNotRun)
	}
	if ok, err := e.RunRoomZoneLoads(ctx); !ok || err != nil {
		t.Fatalf("RunRoomZoneLoads: %v, %v", ok, err)
	}
	if ok, err := e.RunLoadsSizing(ctx); !ok || err != nil {
		t.Errorf("RunLoadsSizing: %v, %v", ok, err)
	}
	// New fabric needs new loads
	_ = e.Apply(ctx, 0, []string{sweep.ParamWall}, []float64{0.2})
	if _, err := e.RunLoadsSizing(ctx); !errors.Is(err, ErrLoadsNotRun) {
		t.Errorf("got %v, want %v", err, ErrLoadsNotRun)
	}
}

func TestEngineSimulationNeedsResultsFile(t *testing.T) {
	e := newTestEngine(t)
	if ok, err := e.RunSimulation(context.Background(), false); ok || !errors.Is(err, ErrNoResultsFile) {
		t.Errorf("got %v, %v, want false, %v", ok, err, ErrNoResultsFile)
	}
}

func TestEngineQueuedSimulationWritesArtifacts(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	dir := e.params.Project.Path

	e.SetResultsFile("Para_run_1.aps")
	if ok, err := e.RunSimulation(ctx, true); !ok || err != nil {
		t.Fatalf("RunSimulation: %v, %v", ok, err)
	}
	for _, p := range []string{
		filepath.Join(dir, "Vista", "Para_run_1.aps"),
		filepath.Join(dir, "Vista", "Para_run_1.asp"),
		filepath.Join(dir, "SunCast", "office.shd"),
		filepath.Join(dir, "SunCast", "office.gsk"),
	} {
		if !fileExists(p) {
			t.Errorf("%s not written", p)
		}
	}

	got, err := e.Extract(ctx, "Para_run_1.aps", results.Metrics)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got) != len(results.Metrics) {
		t.Errorf("got %d metrics, want %d", len(got), len(results.Metrics))
	}
	if got["Gas_MWh"] <= 0 {
		t.Errorf("Gas_MWh = %v, want > 0", got["Gas_MWh"])
	}
}

func TestEngineExtractUnknownMetric(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	e.SetResultsFile("Para_run_1.aps")
	if _, err := e.RunSimulation(ctx, false); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Extract(ctx, "Para_run_1.aps", []string{"Gas_MWh", "Steam_MWh"}); !errors.Is(err, ErrUnknownMetric) {
		t.Errorf("got %v, want %v", err, ErrUnknownMetric)
	}
	if _, err := e.Extract(ctx, "missing.aps", []string{"Gas_MWh"}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v, want not exist", err)
	}
}

func TestEngineComplianceWritesNotional(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	actual := "a_(Part L2 2013)_office.aps"
	notional := "n_(Part L2 2013)_office.aps"

	e.SetResultsFile(actual)
	if ok, err := e.RunComplianceSimulation(ctx); !ok || err != nil {
		t.Fatalf("RunComplianceSimulation: %v, %v", ok, err)
	}
	a, err := e.Extract(ctx, actual, []string{"Gas_MWh"})
	if err != nil {
		t.Fatal(err)
	}
	n, err := e.Extract(ctx, notional, []string{"Gas_MWh"})
	if err != nil {
		t.Fatal(err)
	}
	// The notional fabric is better than the default model
	if n["Gas_MWh"] >= a["Gas_MWh"] {
		t.Errorf("notional gas %v, want below actual %v", n["Gas_MWh"], a["Gas_MWh"])
	}
}

func TestEngineDelayedWrite(t *testing.T) {
	e := newTestEngine(t, withWriteDelay(50*time.Millisecond))
	path := filepath.Join(e.params.Project.Path, "Vista", "Para_run_1.aps")

	e.SetResultsFile("Para_run_1.aps")
	if ok, err := e.RunSimulation(context.Background(), false); !ok || err != nil {
		t.Fatalf("RunSimulation: %v, %v", ok, err)
	}
	if fileExists(path) {
		t.Error("results written before the delay")
	}
	e.Wait()
	if !fileExists(path) {
		t.Error("results not written after the delay")
	}
}

func TestEngineHVACNetwork(t *testing.T) {
	e := newTestEngine(t)
	if err := e.SetHVACNetwork(""); err != nil {
		t.Errorf("empty network: %v", err)
	}
	if err := e.SetHVACNetwork(filepath.Join(t.TempDir(), "none.asn")); err == nil {
		t.Error("expected error for missing network file")
	}
	f := filepath.Join(t.TempDir(), "vav.asn")
	if err := os.WriteFile(f, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := e.SetHVACNetwork(f); err != nil {
		t.Errorf("SetHVACNetwork: %v", err)
	}
}

func TestEngineHonoursCancelledContext(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.RunRoomZoneLoads(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want %v", err, context.Canceled)
	}
}
