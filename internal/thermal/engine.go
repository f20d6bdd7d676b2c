package thermal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Agrid-Dev/parasweep/internal/ports"
)

const (
	vistaDir   = "Vista"
	sunCastDir = "SunCast"
)

type Params struct {
	Project   ports.Project
	Models    []Building
	Climate   Climate
	Operation Operation
	Plant     Plant
	Notional  Envelope // U-values of the compliance reference building
	// WriteDelay makes thermal runs return before their results file
	// exists, the way a queued engine does.
	WriteDelay time.Duration
}

func (params *Params) Validate() error {
	if len(params.Models) == 0 {
		return ErrModelIndex
	}
	for i := range params.Models {
		if err := params.Models[i].Validate(); err != nil {
			return fmt.Errorf("model %d: %w", i, err)
		}
	}
	if err := params.Notional.Validate(); err != nil {
		return fmt.Errorf("notional: %w", err)
	}
	if params.Operation.HeatingSetpoint >= params.Operation.CoolingSetpoint {
		return ErrInvalidSetpoints
	}
	return params.Plant.Validate()
}

// DefaultParams describes a mid-size naturally lit office in a temperate
// climate.
func DefaultParams() Params {
	return Params{
		Models: []Building{{
			Envelope: Envelope{
				WallU: 0.35, WindowU: 2.2, RoofU: 0.25, FloorU: 0.25,
				WallArea: 1200, WindowArea: 480, RoofArea: 1000, FloorArea: 1000,
			},
			GrossFloorArea:     3000,
			CapacitancePerArea: 165000,
		}},
		Climate: Climate{
			MeanOutdoor:       10.5,
			SeasonalAmplitude: 6.5,
			DailyAmplitude:    4,
			PeakIrradiance:    450,
			DesignWinter:      -4,
			DesignSummer:      28,
		},
		Operation: Operation{
			HeatingSetpoint:    21,
			CoolingSetpoint:    24,
			Hysteresis:         0.5,
			OccupiedFrom:       8,
			OccupiedTo:         18,
			OccupancyGains:     8,
			LightingDensity:    8,
			EquipmentDensity:   12,
			SolarTransmittance: 0.4,
			DHWIntensity:       5,
			ElevatorIntensity:  2,
		},
		Plant: Plant{
			BoilerEfficiency: 0.91,
			ChillerCOP:       3.2,
			SizingFactor:     1.25,
			PumpFraction:     0.04,
			FanFraction:      0.08,
		},
		Notional: Envelope{WallU: 0.26, WindowU: 1.8, RoofU: 0.18, FloorU: 0.22},
	}
}

// Engine is a built-in simulation engine. It keeps the project models in
// memory and writes results files under the project Vista/ folder.
type Engine struct {
	mu     sync.Mutex
	params Params
	logger *slog.Logger

	model       int
	resultsFile string
	hvacNetwork string
	loads       Loads
	loadsRun    bool
	capacity    Loads

	pending sync.WaitGroup
}

func NewEngine(params Params, logger *slog.Logger) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	params.Models = append([]Building(nil), params.Models...)
	return &Engine{params: params, logger: logger}, nil
}

// Model returns a copy of the current state of model i.
func (e *Engine) Model(i int) (Building, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.params.Models) {
		return Building{}, ErrModelIndex
	}
	return e.params.Models[i], nil
}

func (e *Engine) Apply(ctx context.Context, modelIndex int, names []string, values []float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(names) != len(values) {
		return ErrParameterValueLength
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if modelIndex < 0 || modelIndex >= len(e.params.Models) {
		return fmt.Errorf("%d: %w", modelIndex, ErrModelIndex)
	}
	env := e.params.Models[modelIndex].Envelope
	for i, name := range names {
		if err := env.Set(name, values[i]); err != nil {
			return err
		}
	}
	e.params.Models[modelIndex].Envelope = env
	e.model = modelIndex
	// Changed fabric invalidates the previous sizing
	e.loadsRun = false
	e.capacity = Loads{}
	e.logger.Debug("model updated", "model", modelIndex, "u_values", env.UValues())
	return nil
}

func (e *Engine) SetResultsFile(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resultsFile = name
}

// SetHVACNetwork selects the HVAC network file used for loads. An empty
// name keeps the current network.
func (e *Engine) SetHVACNetwork(file string) error {
	if file == "" {
		return nil
	}
	if _, err := os.Stat(file); err != nil {
		return fmt.Errorf("hvac network: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hvacNetwork = file
	return nil
}

func (e *Engine) RunRoomZoneLoads(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loads = DesignLoads(e.params.Models[e.model], e.params.Climate, e.params.Operation)
	e.loadsRun = true
	e.logger.Debug("room/zone loads", "heating_w", e.loads.Heating, "cooling_w", e.loads.Cooling)
	return true, nil
}

func (e *Engine) RunLoadsSizing(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loadsRun {
		return false, ErrLoadsNotRun
	}
	f := e.params.Plant.SizingFactor
	if f <= 0 {
		f = 1
	}
	e.capacity = Loads{Heating: f * e.loads.Heating, Cooling: f * e.loads.Cooling}
	return true, nil
}

// RunSimulation simulates the current model into the results file. Queued
// runs also leave the solar and thermal side files a full queue produces.
func (e *Engine) RunSimulation(ctx context.Context, queued bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.resultsFile == "" {
		return false, ErrNoResultsFile
	}
	b := e.params.Models[e.model]
	doc, err := e.simulate(b, "actual")
	if err != nil {
		return false, err
	}
	files := map[string]any{e.vistaPath(e.resultsFile): doc}
	if queued {
		stem := strings.TrimSuffix(e.resultsFile, filepath.Ext(e.resultsFile))
		files[e.vistaPath(stem+".asp")] = doc.Envelope
		shading := map[string]float64{"aperture_m2": b.Envelope.WindowArea * e.params.Operation.SolarTransmittance}
		files[e.sunCastPath(".shd")] = shading
		files[e.sunCastPath(".gsk")] = shading
	}
	return e.write(files)
}

// RunComplianceSimulation simulates the current model and its notional
// counterpart. The results file names the actual building; the notional
// results take the n_ prefix in place of a_.
func (e *Engine) RunComplianceSimulation(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.resultsFile == "" {
		return false, ErrNoResultsFile
	}
	b := e.params.Models[e.model]
	actual, err := e.simulate(b, "actual")
	if err != nil {
		return false, err
	}
	nb := b
	nb.Envelope = b.Envelope.WithUValues(e.params.Notional)
	notional, err := e.simulate(nb, "notional")
	if err != nil {
		return false, err
	}
	notionalFile := "n_" + strings.TrimPrefix(e.resultsFile, "a_")
	return e.write(map[string]any{
		e.vistaPath(e.resultsFile): actual,
		e.vistaPath(notionalFile):  notional,
	})
}

// Wait blocks until delayed result writes have finished.
func (e *Engine) Wait() {
	e.pending.Wait()
}

func (e *Engine) Extract(ctx context.Context, resultsFile string, metrics []string) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(e.vistaPath(resultsFile))
	if err != nil {
		return nil, err
	}
	var doc resultsDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", resultsFile, err)
	}
	out := make(map[string]float64, len(metrics))
	for _, m := range metrics {
		v, ok := doc.Metrics[m]
		if !ok {
			return nil, fmt.Errorf("%s: %w", m, ErrUnknownMetric)
		}
		out[m] = v
	}
	return out, nil
}

type resultsDoc struct {
	Project  string             `yaml:"project"`
	Model    int                `yaml:"model"`
	Kind     string             `yaml:"kind"`
	Envelope Envelope           `yaml:"envelope"`
	Metrics  map[string]float64 `yaml:"metrics"`
}

func (e *Engine) simulate(b Building, kind string) (resultsDoc, error) {
	rep, err := Simulate(b, e.params.Climate, e.params.Operation, e.params.Plant, e.capacity)
	if err != nil {
		return resultsDoc{}, err
	}
	e.logger.Debug("simulated", "kind", kind, "model", e.model,
		"heating_kwh", rep.HeatingKWh, "cooling_kwh", rep.CoolingKWh)
	return resultsDoc{
		Project:  e.params.Project.Name,
		Model:    e.model,
		Kind:     kind,
		Envelope: b.Envelope,
		Metrics:  rep.Metrics(),
	}, nil
}

func (e *Engine) write(files map[string]any) (bool, error) {
	encoded := make(map[string][]byte, len(files))
	for path, v := range files {
		raw, err := yaml.Marshal(v)
		if err != nil {
			return false, err
		}
		encoded[path] = raw
	}
	if e.params.WriteDelay <= 0 {
		return true, writeFiles(encoded)
	}
	e.pending.Add(1)
	go func() {
		defer e.pending.Done()
		time.Sleep(e.params.WriteDelay)
		if err := writeFiles(encoded); err != nil {
			e.logger.Error("write results", "error", err)
		}
	}()
	return true, nil
}

func writeFiles(files map[string][]byte) error {
	for path, raw := range files {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) vistaPath(name string) string {
	return filepath.Join(e.params.Project.Path, vistaDir, name)
}

func (e *Engine) sunCastPath(ext string) string {
	return filepath.Join(e.params.Project.Path, sunCastDir, e.params.Project.Name+ext)
}
