package sweep

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// LargeSweepThreshold is the scenario count above which callers should warn
// that the sweep may take a long time.
const LargeSweepThreshold = 100

// MaxScenarios is the largest scenario table a sweep may enumerate.
const MaxScenarios = 10000

// Param is one swept parameter and its candidate values. A fixed value is a
// single-element list.
type Param struct {
	Name   string
	Values []float64
}

// Scalar wraps a single value as a one-element parameter.
func Scalar(name string, v float64) Param {
	return Param{Name: name, Values: []float64{v}}
}

// Scenario is one concrete assignment of a value to every parameter.
type Scenario struct {
	Index  int
	names  []string
	values []float64
}

func (s Scenario) Names() []string {
	return append([]string(nil), s.names...)
}

func (s Scenario) Values() []float64 {
	return append([]float64(nil), s.values...)
}

func (s Scenario) Value(name string) (float64, bool) {
	for i, n := range s.names {
		if n == name {
			return s.values[i], true
		}
	}
	return 0, false
}

// Table is the ordered set of scenarios of one sweep. Row 0 is the baseline.
type Table struct {
	names []string
	rows  [][]float64
	base  int // index of the first row within the sweep it was taken from
}

// Enumerate builds every combination of the parameter values, one value per
// parameter. The first parameter varies slowest, the last fastest.
func Enumerate(params []Param) (Table, error) {
	if len(params) == 0 {
		return Table{}, ErrNoParams
	}
	names := make([]string, len(params))
	total := 1
	for i, p := range params {
		if len(p.Values) == 0 {
			return Table{}, fmt.Errorf("%s: %w", p.Name, ErrNoValues)
		}
		names[i] = p.Name
		if len(p.Values) > MaxScenarios/total {
			return Table{}, &InputError{Field: "scenarios", Value: scenarioCount(params), Err: ErrTooManyScenarios}
		}
		total *= len(p.Values)
	}

	rows := make([][]float64, 0, total)
	idx := make([]int, len(params))
	for range total {
		row := make([]float64, len(params))
		for i, p := range params {
			row[i] = p.Values[idx[i]]
		}
		rows = append(rows, row)

		for i := len(idx) - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(params[i].Values) {
				break
			}
			idx[i] = 0
		}
	}
	return Table{names: names, rows: rows}, nil
}

func (t Table) Len() int { return len(t.rows) }

func (t Table) Names() []string {
	return append([]string(nil), t.names...)
}

// Large reports whether the table exceeds LargeSweepThreshold rows.
func (t Table) Large() bool { return len(t.rows) > LargeSweepThreshold }

func (t Table) Row(i int) Scenario {
	return Scenario{Index: t.base + i, names: t.names, values: append([]float64(nil), t.rows[i]...)}
}

// Baseline is row 0, the state the model is returned to between scenarios.
func (t Table) Baseline() Scenario { return t.Row(0) }

// Single returns a one-row table holding row i. The row keeps its index.
func (t Table) Single(i int) Table {
	return Table{names: t.names, rows: [][]float64{append([]float64(nil), t.rows[i]...)}, base: t.base + i}
}

func (t Table) Scenarios() []Scenario {
	out := make([]Scenario, len(t.rows))
	for i := range t.rows {
		out[i] = t.Row(i)
	}
	return out
}

// WriteCSV renders the table with a leading "run" index column.
func (t Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"run"}, t.names...)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range t.rows {
		rec := make([]string, 0, len(row)+1)
		rec = append(rec, strconv.Itoa(t.base+i))
		for _, v := range row {
			rec = append(rec, FormatValue(v))
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// scenarioCount spells out the table size as a product of value counts.
func scenarioCount(params []Param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = strconv.Itoa(len(p.Values))
	}
	return strings.Join(parts, "x")
}

// FormatValue renders a parameter value with the shortest exact representation.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
