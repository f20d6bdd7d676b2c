package main

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/Agrid-Dev/parasweep/internal/sweep"
	"github.com/Agrid-Dev/parasweep/internal/thermal"
)

type UValueOverride struct {
	Param string
	Value float64
}

// SimulateBuilding writes the hourly zone trace of the default office, with
// the given U-values applied, for the first `hours` hours of the year.
func SimulateBuilding(hours int, filename string, overrides []UValueOverride) error {
	params := thermal.DefaultParams()
	b := params.Models[0]
	for _, o := range overrides {
		if err := b.Envelope.Set(o.Param, o.Value); err != nil {
			return fmt.Errorf("failed to apply %s: %v", o.Param, err)
		}
	}
	op := params.Operation

	// Create CSV file
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write CSV header
	if err := writer.Write([]string{"Hour", "Outdoor", "Indoor", "HeatingSetpoint", "CoolingSetpoint", "HeatingTrigger", "CoolingTrigger", "PowerKW", "Occupied"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	var writeErr error
	rep, err := thermal.SimulateTrace(b, params.Climate, op, params.Plant, thermal.Loads{}, func(s thermal.HourSample) {
		if s.Hour >= hours || writeErr != nil {
			return
		}
		writeErr = writer.Write([]string{
			fmt.Sprintf("%d", s.Hour),
			fmt.Sprintf("%.2f", s.Outdoor),
			fmt.Sprintf("%.2f", s.Indoor),
			fmt.Sprintf("%.2f", op.HeatingSetpoint),
			fmt.Sprintf("%.2f", op.CoolingSetpoint),
			fmt.Sprintf("%.2f", op.HeatingSetpoint-op.Hysteresis),
			fmt.Sprintf("%.2f", op.CoolingSetpoint+op.Hysteresis),
			fmt.Sprintf("%.3f", s.Power/1000),
			fmt.Sprintf("%t", s.Occupied),
		})
	})
	if err != nil {
		return fmt.Errorf("failed to simulate: %v", err)
	}
	if writeErr != nil {
		return fmt.Errorf("failed to write CSV record: %v", writeErr)
	}

	m := rep.Metrics()
	fmt.Printf("EUI %.1f kWh/m2, heating peak %.1f kW, cooling peak %.1f kW\n",
		m["EUI_kWh/m2"], m["Boiler_max_kW"], m["Chiller_max_kW"])
	return nil
}

func main() {
	walls, err := sweep.NewRange(sweep.ParamWall, 0.15, 0.35, 0.1)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	// two winter weeks per wall U-value
	for _, wall := range walls.Values() {
		overrides := []UValueOverride{
			{Param: sweep.ParamWall, Value: wall},
			{Param: sweep.ParamWindow, Value: 1.6},
		}
		filename := fmt.Sprintf("parasweep_trace_wall_%s.csv", sweep.FormatValue(wall))
		if err := SimulateBuilding(14*24, filename, overrides); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}
