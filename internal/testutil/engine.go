package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/Agrid-Dev/parasweep/internal/ports"
)

// FakeEngine implements the model, simulation and extraction ports against
// a temporary project directory. Successful thermal runs write an empty
// results file where the driver expects it.
type FakeEngine struct {
	mu sync.Mutex

	Project ports.Project

	ApplyCalls [][]float64
	ApplyNames [][]string
	ApplyErr   error

	ResultsFile string
	HVACNetwork string
	Calls       []string

	// Keyed by thermal run number, counting from 0.
	FailRuns    map[int]bool
	NoFileRuns  map[int]bool
	ExtractErr  error
	FixedValues map[string]float64

	thermalRuns int
	state       []float64
}

func NewFakeEngine(dir string) *FakeEngine {
	return &FakeEngine{
		Project:    ports.Project{Name: "office", Path: dir},
		FailRuns:   map[int]bool{},
		NoFileRuns: map[int]bool{},
	}
}

func (f *FakeEngine) Apply(_ context.Context, _ int, names []string, values []float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ApplyNames = append(f.ApplyNames, append([]string(nil), names...))
	f.ApplyCalls = append(f.ApplyCalls, append([]float64(nil), values...))
	if f.ApplyErr != nil {
		return f.ApplyErr
	}
	f.state = append([]float64(nil), values...)
	return nil
}

// State returns the values most recently applied to the model.
func (f *FakeEngine) State() []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]float64(nil), f.state...)
}

func (f *FakeEngine) SetResultsFile(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ResultsFile = name
}

func (f *FakeEngine) SetHVACNetwork(file string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.HVACNetwork = file
	f.Calls = append(f.Calls, "hvac")
	return nil
}

func (f *FakeEngine) RunRoomZoneLoads(_ context.Context) (bool, error) {
	f.record("loads")
	return true, nil
}

func (f *FakeEngine) RunLoadsSizing(_ context.Context) (bool, error) {
	f.record("sizing")
	return true, nil
}

func (f *FakeEngine) RunSimulation(_ context.Context, queued bool) (bool, error) {
	name := "simulation"
	if queued {
		name = "simulation_queued"
	}
	return f.thermal(name, filepath.Join("SunCast", f.Project.Name+".shd"))
}

func (f *FakeEngine) RunComplianceSimulation(_ context.Context) (bool, error) {
	return f.thermal("compliance", "")
}

func (f *FakeEngine) thermal(name, extra string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, name)
	n := f.thermalRuns
	f.thermalRuns++
	if f.FailRuns[n] {
		return false, nil
	}
	if f.NoFileRuns[n] {
		return true, nil
	}
	if err := touch(filepath.Join(f.Project.Path, "Vista", f.ResultsFile)); err != nil {
		return false, err
	}
	if extra != "" {
		if err := touch(filepath.Join(f.Project.Path, extra)); err != nil {
			return false, err
		}
	}
	return true, nil
}

// Extract returns FixedValues where set, otherwise the sum of the current
// model values, so tests can tell which scenario produced a row.
func (f *FakeEngine) Extract(_ context.Context, _ string, metrics []string) (map[string]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ExtractErr != nil {
		return nil, f.ExtractErr
	}
	var sum float64
	for _, v := range f.state {
		sum += v
	}
	out := make(map[string]float64, len(metrics))
	for _, m := range metrics {
		if v, ok := f.FixedValues[m]; ok {
			out[m] = v
			continue
		}
		out[m] = sum
	}
	return out, nil
}

// CallLog returns the engine calls in order.
func (f *FakeEngine) CallLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}

func (f *FakeEngine) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, name)
}

func touch(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, nil, 0o644)
}
