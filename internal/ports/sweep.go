package ports

import "github.com/Agrid-Dev/parasweep/internal/sweep"

// SweepService is the control-plane port used by controllers (HTTP/MQTT/Modbus).
type SweepService interface {
	Get() sweep.Progress
	Start(form sweep.Form) error
}
