package thermal

import (
	"errors"
	"testing"

	"github.com/Agrid-Dev/parasweep/internal/sweep"
)

func testEnvelope() Envelope {
	return Envelope{
		WallU: 0.3, WindowU: 2, RoofU: 0.2, FloorU: 0.25,
		WallArea: 100, WindowArea: 40, RoofArea: 50, FloorArea: 50,
	}
}

func TestEnvelopeConductance(t *testing.T) {
	e := testEnvelope()
	// 30 + 80 + 10 + 12.5
	if got := e.Conductance(); !almostEqual(got, 132.5, 1e-9) {
		t.Errorf("Conductance() = %v, want 132.5", got)
	}
}

func TestEnvelopeSet(t *testing.T) {
	e := testEnvelope()
	if err := e.Set(sweep.ParamWindow, 1.4); err != nil {
		t.Fatal(err)
	}
	if e.WindowU != 1.4 {
		t.Errorf("WindowU = %v, want 1.4", e.WindowU)
	}
	if err := e.Set("door_u_value", 1); !errors.Is(err, ErrUnknownParameter) {
		t.Errorf("got %v, want %v", err, ErrUnknownParameter)
	}
	if err := e.Set(sweep.ParamRoof, -0.1); !errors.Is(err, ErrNegativeUValue) {
		t.Errorf("got %v, want %v", err, ErrNegativeUValue)
	}
	if e.RoofU != 0.2 {
		t.Errorf("RoofU changed to %v on error", e.RoofU)
	}
}

func TestEnvelopeUValues(t *testing.T) {
	u := testEnvelope().UValues()
	for _, name := range sweep.UValueParams {
		if _, ok := u[name]; !ok {
			t.Errorf("missing %s", name)
		}
	}
	if u[sweep.ParamFloor] != 0.25 {
		t.Errorf("floor = %v, want 0.25", u[sweep.ParamFloor])
	}
}

func TestEnvelopeWithUValues(t *testing.T) {
	e := testEnvelope()
	got := e.WithUValues(Envelope{WallU: 0.1, WindowU: 0.9, RoofU: 0.1, FloorU: 0.1})
	if got.WallU != 0.1 || got.WindowU != 0.9 {
		t.Errorf("U-values not taken: %+v", got)
	}
	if got.WallArea != e.WallArea || got.WindowArea != e.WindowArea {
		t.Errorf("areas changed: %+v", got)
	}
	if e.WallU != 0.3 {
		t.Errorf("receiver modified")
	}
}

func TestEnvelopeValidate(t *testing.T) {
	e := testEnvelope()
	e.WallArea = -1
	if err := e.Validate(); err != ErrInvalidArea {
		t.Errorf("got %v, want %v", err, ErrInvalidArea)
	}
	e = testEnvelope()
	e.FloorU = -1
	if err := e.Validate(); err != ErrNegativeUValue {
		t.Errorf("got %v, want %v", err, ErrNegativeUValue)
	}
}
