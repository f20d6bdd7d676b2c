package thermal

import (
	"math"
	"time"
)

type HeatLossSimulatorParams struct {
	Conductance float64 // UA in W/K, >= 0. 0 for an adiabatic zone.
	Capacitance float64 // J/K, > 0
}

func (params *HeatLossSimulatorParams) Validate() error {
	if params.Conductance < 0 {
		return ErrNegativeUValue
	}
	if params.Capacitance <= 0 {
		return ErrInvalidCapacitance
	}
	return nil
}

// HeatLossSimulator integrates a single lumped thermal mass exchanging heat
// with outdoor air through the envelope.
type HeatLossSimulator struct {
	params HeatLossSimulatorParams
}

func NewHeatLossSimulator(params HeatLossSimulatorParams) (*HeatLossSimulator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &HeatLossSimulator{params: params}, nil
}

// DeltaTemperature is the free-running change of indoor temperature over dt
// given outdoor temperature and internal plus solar gains (W). The zone decays
// exponentially towards its equilibrium, so any dt is stable.
func (heatLoss *HeatLossSimulator) DeltaTemperature(indoorTemperature, outdoorTemperature, gains float64, dt time.Duration) float64 {
	ua, c := heatLoss.params.Conductance, heatLoss.params.Capacitance
	if ua == 0 {
		return gains * dt.Seconds() / c
	}
	equilibrium := outdoorTemperature + gains/ua
	return (equilibrium - indoorTemperature) * -math.Expm1(-ua*dt.Seconds()/c)
}

// Power is the heat rate (W) that changes the zone temperature by delta over dt.
func (heatLoss *HeatLossSimulator) Power(delta float64, dt time.Duration) float64 {
	return delta * heatLoss.params.Capacitance / dt.Seconds()
}

// Shift is the temperature change caused by applying power (W) over dt.
func (heatLoss *HeatLossSimulator) Shift(power float64, dt time.Duration) float64 {
	return power * dt.Seconds() / heatLoss.params.Capacitance
}
