package thermal

import (
	"fmt"
	"math"
	"time"
)

const HoursPerYear = 8760

// Carbon factors in kgCO2/kWh: current grid and the 2013 compliance set.
const (
	gasCarbon     = 0.210
	elecCarbon    = 0.233
	gasCarbonBER  = 0.216
	elecCarbonBER = 0.519
)

// Climate is a synthetic annual weather year.
type Climate struct {
	MeanOutdoor       float64 `yaml:"mean_outdoor" koanf:"mean_outdoor"`
	SeasonalAmplitude float64 `yaml:"seasonal_amplitude" koanf:"seasonal_amplitude"`
	DailyAmplitude    float64 `yaml:"daily_amplitude" koanf:"daily_amplitude"`
	PeakIrradiance    float64 `yaml:"peak_irradiance" koanf:"peak_irradiance"` // W/m² on glazing, midsummer noon
	DesignWinter      float64 `yaml:"design_winter" koanf:"design_winter"`
	DesignSummer      float64 `yaml:"design_summer" koanf:"design_summer"`
}

// Outdoor is the dry-bulb temperature at the given hour of the year.
// The coldest day is mid-January, the coldest hour 03:00.
func (c Climate) Outdoor(hour int) float64 {
	day := float64(hour / 24)
	hod := float64(hour % 24)
	seasonal := -c.SeasonalAmplitude * math.Cos(2*math.Pi*(day-15)/365)
	daily := -c.DailyAmplitude * math.Cos(2*math.Pi*(hod-3)/24)
	return c.MeanOutdoor + seasonal + daily
}

// Irradiance is the solar flux on glazing at the given hour of the year.
func (c Climate) Irradiance(hour int) float64 {
	day := float64(hour / 24)
	hod := float64(hour % 24)
	if hod <= 6 || hod >= 18 {
		return 0
	}
	season := 0.6 + 0.4*math.Cos(2*math.Pi*(day-172)/365)
	return c.PeakIrradiance * season * math.Sin(math.Pi*(hod-6)/12)
}

// Operation describes setpoints, schedules and internal loads.
type Operation struct {
	HeatingSetpoint    float64 `yaml:"heating_setpoint" koanf:"heating_setpoint"`
	CoolingSetpoint    float64 `yaml:"cooling_setpoint" koanf:"cooling_setpoint"`
	Hysteresis         float64 `yaml:"hysteresis" koanf:"hysteresis"`
	OccupiedFrom       int     `yaml:"occupied_from" koanf:"occupied_from"`
	OccupiedTo         int     `yaml:"occupied_to" koanf:"occupied_to"`
	OccupancyGains     float64 `yaml:"occupancy_gains" koanf:"occupancy_gains"`         // W/m²
	LightingDensity    float64 `yaml:"lighting_density" koanf:"lighting_density"`       // W/m²
	EquipmentDensity   float64 `yaml:"equipment_density" koanf:"equipment_density"`     // W/m²
	SolarTransmittance float64 `yaml:"solar_transmittance" koanf:"solar_transmittance"` // glazing g-value
	DHWIntensity       float64 `yaml:"dhw_intensity" koanf:"dhw_intensity"`             // kWh/m² yr delivered
	ElevatorIntensity  float64 `yaml:"elevator_intensity" koanf:"elevator_intensity"`   // kWh/m² yr
}

// occupied reports working hours, Monday to Friday, day 0 being a Monday.
func (op Operation) occupied(hour int) bool {
	day := hour / 24
	hod := hour % 24
	return day%7 < 5 && hod >= op.OccupiedFrom && hod < op.OccupiedTo
}

func (op Operation) gainDensity() float64 {
	return op.OccupancyGains + op.LightingDensity + op.EquipmentDensity
}

// Plant holds the heating and cooling generation parameters.
type Plant struct {
	BoilerEfficiency float64 `yaml:"boiler_efficiency" koanf:"boiler_efficiency"`
	ChillerCOP       float64 `yaml:"chiller_cop" koanf:"chiller_cop"`
	SizingFactor     float64 `yaml:"sizing_factor" koanf:"sizing_factor"`
	PumpFraction     float64 `yaml:"pump_fraction" koanf:"pump_fraction"` // of plant energy
	FanFraction      float64 `yaml:"fan_fraction" koanf:"fan_fraction"`   // of delivered heating and cooling
}

func (p *Plant) Validate() error {
	if p.BoilerEfficiency <= 0 || p.ChillerCOP <= 0 {
		return ErrInvalidPlant
	}
	return nil
}

// Building is one model of the project: an envelope around a single zone.
type Building struct {
	Envelope           Envelope `yaml:"envelope" koanf:"envelope"`
	GrossFloorArea     float64  `yaml:"gross_floor_area" koanf:"gross_floor_area"`         // m²
	CapacitancePerArea float64  `yaml:"capacitance_per_area" koanf:"capacitance_per_area"` // J/m²K
}

func (b *Building) Validate() error {
	if err := b.Envelope.Validate(); err != nil {
		return err
	}
	if b.GrossFloorArea <= 0 {
		return ErrInvalidArea
	}
	if b.CapacitancePerArea <= 0 {
		return ErrInvalidCapacitance
	}
	return nil
}

func (b Building) Capacitance() float64 {
	return b.CapacitancePerArea * b.GrossFloorArea
}

// Loads are design peak loads in W.
type Loads struct {
	Heating float64
	Cooling float64
}

// DesignLoads computes steady-state peak loads at the design conditions.
func DesignLoads(b Building, cl Climate, op Operation) Loads {
	ua := b.Envelope.Conductance()
	heating := ua * (op.HeatingSetpoint - cl.DesignWinter)
	cooling := ua*(cl.DesignSummer-op.CoolingSetpoint) +
		cl.PeakIrradiance*b.Envelope.WindowArea*op.SolarTransmittance +
		op.gainDensity()*b.GrossFloorArea
	return Loads{Heating: math.Max(0, heating), Cooling: math.Max(0, cooling)}
}

// Report is the annual outcome of one simulation.
type Report struct {
	FloorArea       float64
	HeatingKWh      float64 // delivered
	CoolingKWh      float64 // delivered
	BoilerFuelKWh   float64
	ChillerElecKWh  float64
	LightingKWh     float64
	ExtLightingKWh  float64
	EquipmentKWh    float64
	PumpsKWh        float64
	FansKWh         float64
	DHWKWh          float64
	ElevatorsKWh    float64
	PeakHeatingW    float64
	PeakCoolingW    float64
	MaxOccupiedTemp float64
}

func (r Report) GasKWh() float64 { return r.BoilerFuelKWh + r.DHWKWh }

func (r Report) ElecKWh() float64 {
	return r.ChillerElecKWh + r.LightingKWh + r.ExtLightingKWh + r.EquipmentKWh +
		r.PumpsKWh + r.FansKWh + r.ElevatorsKWh
}

// Metrics returns the report under the extracted output variable names.
func (r Report) Metrics() map[string]float64 {
	a := r.FloorArea
	gas, elec := r.GasKWh(), r.ElecKWh()
	return map[string]float64{
		"Gas_MWh":                      gas / 1000,
		"Elec_MWh":                     elec / 1000,
		"Gas_kWh/m2":                   gas / a,
		"Elec_kWh/m2":                  elec / a,
		"Boilers_MWh":                  r.BoilerFuelKWh / 1000,
		"Chillers_MWh":                 r.ChillerElecKWh / 1000,
		"Boilers_kWh/m2":               r.BoilerFuelKWh / a,
		"Chillers_kWh/m2":              r.ChillerElecKWh / a,
		"CE_kgCO2/m2":                  (gas*gasCarbon + elec*elecCarbon) / a,
		"UK_BER_kgCO2/m2":              (gas*gasCarbonBER + elec*elecCarbonBER) / a,
		"EUI_kWh/m2":                   (gas + elec) / a,
		"Ta_max_degC":                  r.MaxOccupiedTemp,
		"Boiler_max_kW":                r.PeakHeatingW / 1000,
		"Chiller_max_kW":               r.PeakCoolingW / 1000,
		"Interior_lighting_kWh/m2":     r.LightingKWh / a,
		"Exterior_lighting_kWh/m2":     r.ExtLightingKWh / a,
		"Space_heating_(gas)_kWh/m2":   r.BoilerFuelKWh / a,
		"Space_heating_(elec)_kWh/m2":  0,
		"Space_cooling_kWh/m2":         r.ChillerElecKWh / a,
		"Pumps_kWh/m2":                 r.PumpsKWh / a,
		"Fans_interior_kWh/m2":         r.FansKWh / a,
		"DHW_heating_kWh/m2":           r.DHWKWh / a,
		"Receptacle_equipment_kWh/m2":  r.EquipmentKWh / a,
		"Elevators_escalators_kWh/m2":  r.ElevatorsKWh / a,
		"Data_center_equipment_kWh/m2": 0,
		"Cooking_(gas)_kWh/m2":         0,
		"Cooking_(elec)_kWh/m2":        0,
		"Refrigeration_kWh/m2":         0,
		"Wind_PV_kWh/m2":               0,
	}
}

// HourSample is the zone state at the end of one simulated hour. Power is
// positive for heating and negative for cooling.
type HourSample struct {
	Hour     int
	Outdoor  float64
	Indoor   float64
	Power    float64
	Occupied bool
}

// Simulate runs an hourly annual simulation. Capacity limits plant output;
// zero fields mean unsized, unlimited plant.
func Simulate(b Building, cl Climate, op Operation, pl Plant, capacity Loads) (Report, error) {
	return SimulateTrace(b, cl, op, pl, capacity, nil)
}

// SimulateTrace is Simulate with a callback receiving every hour.
func SimulateTrace(b Building, cl Climate, op Operation, pl Plant, capacity Loads, trace func(HourSample)) (Report, error) {
	if err := b.Validate(); err != nil {
		return Report{}, err
	}
	if err := pl.Validate(); err != nil {
		return Report{}, err
	}
	regParams := RegulatorParams{
		HeatingSetpoint:   op.HeatingSetpoint,
		CoolingSetpoint:   op.CoolingSetpoint,
		TriggerHysteresis: op.Hysteresis,
		HeatingCapacity:   capacity.Heating,
		CoolingCapacity:   capacity.Cooling,
	}
	if err := regParams.Validate(); err != nil {
		return Report{}, err
	}
	zone, err := NewHeatLossSimulator(HeatLossSimulatorParams{
		Conductance: b.Envelope.Conductance(),
		Capacitance: b.Capacitance(),
	})
	if err != nil {
		return Report{}, err
	}
	reg := NewRegulator(regParams)

	const dt = time.Hour
	var (
		heatWh, coolWh float64
		occupiedHours  float64
		rep            = Report{FloorArea: b.GrossFloorArea, MaxOccupiedTemp: math.Inf(-1)}
		indoor         = op.HeatingSetpoint
	)
	aperture := b.Envelope.WindowArea * op.SolarTransmittance

	for h := range HoursPerYear {
		gains := cl.Irradiance(h) * aperture
		occ := op.occupied(h)
		if occ {
			gains += op.gainDensity() * b.GrossFloorArea
			occupiedHours++
		}

		outdoor := cl.Outdoor(h)
		free := indoor + zone.DeltaTemperature(indoor, outdoor, gains, dt)
		power := reg.Update(free, zone, dt)
		indoor = free + zone.Shift(power, dt)
		if trace != nil {
			trace(HourSample{Hour: h, Outdoor: outdoor, Indoor: indoor, Power: power, Occupied: occ})
		}

		switch {
		case power > 0:
			heatWh += power * dt.Hours()
			rep.PeakHeatingW = math.Max(rep.PeakHeatingW, power)
		case power < 0:
			coolWh += -power * dt.Hours()
			rep.PeakCoolingW = math.Max(rep.PeakCoolingW, -power)
		}
		if occ {
			rep.MaxOccupiedTemp = math.Max(rep.MaxOccupiedTemp, indoor)
		}
	}
	if math.IsInf(rep.MaxOccupiedTemp, -1) {
		rep.MaxOccupiedTemp = indoor
	}

	rep.HeatingKWh = heatWh / 1000
	rep.CoolingKWh = coolWh / 1000
	rep.BoilerFuelKWh = rep.HeatingKWh / pl.BoilerEfficiency
	rep.ChillerElecKWh = rep.CoolingKWh / pl.ChillerCOP
	rep.LightingKWh = op.LightingDensity * b.GrossFloorArea * occupiedHours / 1000
	rep.ExtLightingKWh = 0.05 * rep.LightingKWh
	rep.EquipmentKWh = op.EquipmentDensity * b.GrossFloorArea * occupiedHours / 1000
	rep.PumpsKWh = pl.PumpFraction * (rep.BoilerFuelKWh + rep.ChillerElecKWh)
	rep.FansKWh = pl.FanFraction * (rep.HeatingKWh + rep.CoolingKWh)
	rep.DHWKWh = op.DHWIntensity * b.GrossFloorArea / pl.BoilerEfficiency
	rep.ElevatorsKWh = op.ElevatorIntensity * b.GrossFloorArea
	for name, v := range rep.Metrics() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Report{}, fmt.Errorf("%s: %w", name, ErrNonFiniteResult)
		}
	}
	return rep, nil
}
