package thermal

import (
	"errors"
	"math"
	"testing"

	"github.com/Agrid-Dev/parasweep/internal/results"
	"github.com/Agrid-Dev/parasweep/internal/sweep"
)

func defaultBuilding() Building {
	return DefaultParams().Models[0]
}

func simulateDefault(t *testing.T, b Building, capacity Loads) Report {
	t.Helper()
	p := DefaultParams()
	rep, err := Simulate(b, p.Climate, p.Operation, p.Plant, capacity)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	return rep
}

func TestClimateColdestHour(t *testing.T) {
	c := DefaultParams().Climate
	got := c.Outdoor(15*24 + 3)
	want := c.MeanOutdoor - c.SeasonalAmplitude - c.DailyAmplitude
	if !almostEqual(got, want, 1e-9) {
		t.Errorf("Outdoor = %v, want %v", got, want)
	}
}

func TestClimateIrradiance(t *testing.T) {
	c := DefaultParams().Climate
	if got := c.Irradiance(172*24 + 2); got != 0 {
		t.Errorf("night irradiance = %v, want 0", got)
	}
	if got := c.Irradiance(172*24 + 12); !almostEqual(got, c.PeakIrradiance, 1e-9) {
		t.Errorf("midsummer noon irradiance = %v, want %v", got, c.PeakIrradiance)
	}
}

func TestOccupiedSchedule(t *testing.T) {
	op := DefaultParams().Operation
	tests := []struct {
		hour int
		want bool
	}{
		{9, true},
		{7, false},
		{18, false},
		{5*24 + 10, false}, // saturday
		{7*24 + 10, true},  // next monday
	}
	for _, tt := range tests {
		if got := op.occupied(tt.hour); got != tt.want {
			t.Errorf("occupied(%d) = %v, want %v", tt.hour, got, tt.want)
		}
	}
}

func TestDesignLoads(t *testing.T) {
	p := DefaultParams()
	b := defaultBuilding()
	got := DesignLoads(b, p.Climate, p.Operation)
	ua := b.Envelope.Conductance()
	wantHeating := ua * (p.Operation.HeatingSetpoint - p.Climate.DesignWinter)
	if !almostEqual(got.Heating, wantHeating, 1e-6) {
		t.Errorf("Heating = %v, want %v", got.Heating, wantHeating)
	}
	if got.Cooling <= 0 {
		t.Errorf("Cooling = %v, want > 0", got.Cooling)
	}
}

func TestSimulateReportsEveryMetric(t *testing.T) {
	rep := simulateDefault(t, defaultBuilding(), Loads{})
	m := rep.Metrics()
	for _, name := range results.Metrics {
		if _, ok := m[name]; !ok {
			t.Errorf("metric %q missing", name)
		}
	}
	if len(m) != len(results.Metrics) {
		t.Errorf("got %d metrics, want %d", len(m), len(results.Metrics))
	}
}

func TestSimulateEnergyBalance(t *testing.T) {
	rep := simulateDefault(t, defaultBuilding(), Loads{})
	if rep.HeatingKWh <= 0 {
		t.Errorf("HeatingKWh = %v, want > 0", rep.HeatingKWh)
	}
	m := rep.Metrics()
	if !almostEqual(m["EUI_kWh/m2"], m["Gas_kWh/m2"]+m["Elec_kWh/m2"], 1e-9) {
		t.Errorf("EUI %v != gas %v + elec %v", m["EUI_kWh/m2"], m["Gas_kWh/m2"], m["Elec_kWh/m2"])
	}
	if !almostEqual(m["Gas_MWh"]*1000/rep.FloorArea, m["Gas_kWh/m2"], 1e-9) {
		t.Errorf("Gas_MWh and Gas_kWh/m2 disagree")
	}
}

func TestSimulateBetterFabricHeatsLess(t *testing.T) {
	base := defaultBuilding()
	better := base
	better.Envelope = base.Envelope.WithUValues(Envelope{
		WallU:   base.Envelope.WallU / 2,
		WindowU: base.Envelope.WindowU / 2,
		RoofU:   base.Envelope.RoofU / 2,
		FloorU:  base.Envelope.FloorU / 2,
	})
	a := simulateDefault(t, base, Loads{})
	b := simulateDefault(t, better, Loads{})
	if b.HeatingKWh >= a.HeatingKWh {
		t.Errorf("heating %v with halved U-values, want below %v", b.HeatingKWh, a.HeatingKWh)
	}
}

func TestSimulateCapacityLimitsPeak(t *testing.T) {
	rep := simulateDefault(t, defaultBuilding(), Loads{Heating: 5000, Cooling: 5000})
	if rep.PeakHeatingW > 5000 || rep.PeakCoolingW > 5000 {
		t.Errorf("peaks %v / %v exceed 5000", rep.PeakHeatingW, rep.PeakCoolingW)
	}
}

func TestSimulateInvalidInput(t *testing.T) {
	p := DefaultParams()
	p.Plant.ChillerCOP = 0
	if _, err := Simulate(defaultBuilding(), p.Climate, p.Operation, p.Plant, Loads{}); err != ErrInvalidPlant {
		t.Errorf("got %v, want %v", err, ErrInvalidPlant)
	}
	b := defaultBuilding()
	b.GrossFloorArea = 0
	if _, err := Simulate(b, p.Climate, p.Operation, DefaultParams().Plant, Loads{}); err != ErrInvalidArea {
		t.Errorf("got %v, want %v", err, ErrInvalidArea)
	}
}

func TestSimulateTraceCoversYear(t *testing.T) {
	p := DefaultParams()
	b := defaultBuilding()
	var (
		hours   int
		heatWh  float64
		lastOut HourSample
	)
	rep, err := SimulateTrace(b, p.Climate, p.Operation, p.Plant, Loads{}, func(s HourSample) {
		if s.Hour != hours {
			t.Fatalf("hour %d delivered as %d", hours, s.Hour)
		}
		hours++
		if s.Power > 0 {
			heatWh += s.Power
		}
		lastOut = s
	})
	if err != nil {
		t.Fatalf("SimulateTrace: %v", err)
	}
	if hours != HoursPerYear {
		t.Fatalf("got %d samples, want %d", hours, HoursPerYear)
	}
	if !almostEqual(heatWh/1000, rep.HeatingKWh, 1e-6) {
		t.Errorf("traced heating %v kWh, report %v kWh", heatWh/1000, rep.HeatingKWh)
	}
	if lastOut.Outdoor != p.Climate.Outdoor(HoursPerYear-1) {
		t.Errorf("last outdoor %v, want %v", lastOut.Outdoor, p.Climate.Outdoor(HoursPerYear-1))
	}
	plain := simulateDefault(t, b, Loads{})
	if plain != rep {
		t.Errorf("trace changed the report: %+v vs %+v", rep, plain)
	}
}

func TestSimulateLeakyFabricStaysFinite(t *testing.T) {
	p := DefaultParams()
	b := defaultBuilding()
	for _, name := range sweep.UValueParams {
		if err := b.Envelope.Set(name, 999); err != nil {
			t.Fatal(err)
		}
	}
	op := p.Operation
	rep, err := SimulateTrace(b, p.Climate, op, p.Plant, Loads{Heating: 5000, Cooling: 5000}, func(s HourSample) {
		lo := math.Min(s.Outdoor, op.HeatingSetpoint) - 50
		hi := math.Max(s.Outdoor, op.CoolingSetpoint) + 50
		if s.Indoor < lo || s.Indoor > hi {
			t.Fatalf("hour %d: indoor %v outside [%v, %v]", s.Hour, s.Indoor, lo, hi)
		}
	})
	if err != nil {
		t.Fatalf("SimulateTrace: %v", err)
	}
	for name, v := range rep.Metrics() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("metric %s = %v", name, v)
		}
	}
}

func TestSimulateRejectsNaNUValue(t *testing.T) {
	p := DefaultParams()
	b := defaultBuilding()
	b.Envelope.WallU = math.NaN()
	if _, err := Simulate(b, p.Climate, p.Operation, p.Plant, Loads{}); !errors.Is(err, ErrNegativeUValue) {
		t.Errorf("got %v, want %v", err, ErrNegativeUValue)
	}
}
