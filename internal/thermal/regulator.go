package thermal

import "time"

type RegulatorParams struct {
	HeatingSetpoint   float64
	CoolingSetpoint   float64
	TriggerHysteresis float64 // how far past a setpoint heating / cooling starts
	HeatingCapacity   float64 // W, 0 for unlimited
	CoolingCapacity   float64 // W, 0 for unlimited
}

func (params *RegulatorParams) Validate() error {
	if params.HeatingSetpoint >= params.CoolingSetpoint {
		return ErrInvalidSetpoints
	}
	if params.TriggerHysteresis < 0 || params.HeatingCapacity < 0 || params.CoolingCapacity < 0 {
		return ErrInvalidPlant
	}
	return nil
}

// Regulator is an ideal dual-setpoint controller: once triggered it delivers
// exactly the power needed to bring the zone back to the setpoint, limited
// by plant capacity.
type Regulator struct {
	params    RegulatorParams
	isHeating bool
	isCooling bool
}

func NewRegulator(params RegulatorParams) *Regulator {
	return &Regulator{params: params}
}

func (reg *Regulator) Activate(ambient float64) {
	p := reg.params
	if ambient < p.HeatingSetpoint-p.TriggerHysteresis && !reg.isHeating {
		reg.isHeating = true
		reg.isCooling = false
	} else if ambient > p.CoolingSetpoint+p.TriggerHysteresis && !reg.isCooling {
		reg.isCooling = true
		reg.isHeating = false
	}
	// Stop once the free-running zone no longer needs conditioning
	if reg.isHeating && ambient >= p.HeatingSetpoint {
		reg.isHeating = false
	} else if reg.isCooling && ambient <= p.CoolingSetpoint {
		reg.isCooling = false
	}
}

// Update returns the HVAC power over dt: positive for heating, negative for
// cooling, 0 when idle.
func (reg *Regulator) Update(ambient float64, zone *HeatLossSimulator, dt time.Duration) float64 {
	reg.Activate(ambient)
	switch {
	case reg.isHeating:
		return capAt(zone.Power(reg.params.HeatingSetpoint-ambient, dt), reg.params.HeatingCapacity)
	case reg.isCooling:
		return -capAt(zone.Power(ambient-reg.params.CoolingSetpoint, dt), reg.params.CoolingCapacity)
	default:
		return 0
	}
}

func capAt(v, capacity float64) float64 {
	if capacity > 0 && v > capacity {
		return capacity
	}
	return v
}
