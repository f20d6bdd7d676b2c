package thermal

import (
	"fmt"
	"math"

	"github.com/Agrid-Dev/parasweep/internal/sweep"
)

// Envelope holds the fabric U-values (W/m²K) and exposed areas (m²).
type Envelope struct {
	WallU   float64 `yaml:"wall_u" koanf:"wall_u"`
	WindowU float64 `yaml:"window_u" koanf:"window_u"`
	RoofU   float64 `yaml:"roof_u" koanf:"roof_u"`
	FloorU  float64 `yaml:"floor_u" koanf:"floor_u"`

	WallArea   float64 `yaml:"wall_area" koanf:"wall_area"`
	WindowArea float64 `yaml:"window_area" koanf:"window_area"`
	RoofArea   float64 `yaml:"roof_area" koanf:"roof_area"`
	FloorArea  float64 `yaml:"floor_area" koanf:"floor_area"`
}

func (e *Envelope) Validate() error {
	for _, u := range []float64{e.WallU, e.WindowU, e.RoofU, e.FloorU} {
		if u < 0 || math.IsNaN(u) {
			return ErrNegativeUValue
		}
	}
	if e.WallArea < 0 || e.WindowArea < 0 || e.RoofArea < 0 || e.FloorArea < 0 {
		return ErrInvalidArea
	}
	return nil
}

// Conductance is the fabric heat loss coefficient UA in W/K.
func (e Envelope) Conductance() float64 {
	return e.WallU*e.WallArea + e.WindowU*e.WindowArea + e.RoofU*e.RoofArea + e.FloorU*e.FloorArea
}

// Set assigns one swept U-value by parameter name.
func (e *Envelope) Set(name string, v float64) error {
	if v < 0 || math.IsNaN(v) {
		return fmt.Errorf("%s=%v: %w", name, v, ErrNegativeUValue)
	}
	switch name {
	case sweep.ParamWall:
		e.WallU = v
	case sweep.ParamWindow:
		e.WindowU = v
	case sweep.ParamRoof:
		e.RoofU = v
	case sweep.ParamFloor:
		e.FloorU = v
	default:
		return fmt.Errorf("%q: %w", name, ErrUnknownParameter)
	}
	return nil
}

// UValues returns the U-values keyed by parameter name.
func (e Envelope) UValues() map[string]float64 {
	return map[string]float64{
		sweep.ParamWall:   e.WallU,
		sweep.ParamWindow: e.WindowU,
		sweep.ParamRoof:   e.RoofU,
		sweep.ParamFloor:  e.FloorU,
	}
}

// WithUValues returns a copy of e with the U-values of u and the areas of e.
func (e Envelope) WithUValues(u Envelope) Envelope {
	e.WallU, e.WindowU, e.RoofU, e.FloorU = u.WallU, u.WindowU, u.RoofU, u.FloorU
	return e
}
