package results

import (
	"fmt"
	"sync"

	"github.com/Agrid-Dev/parasweep/internal/sweep"
)

// Status records how a row's simulation ended.
type Status int

const (
	StatusPending Status = iota
	StatusOK
	StatusFailed
	StatusTimeout
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusOK:
		return "ok"
	case StatusFailed:
		return "failed"
	case StatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Row is one scenario's parameter values and extracted metrics. Metrics stay
// zero unless Status is StatusOK.
type Row struct {
	Run     int
	Params  []float64
	Metrics []float64
	Status  Status
}

func (r Row) clone() Row {
	r.Params = append([]float64(nil), r.Params...)
	r.Metrics = append([]float64(nil), r.Metrics...)
	return r
}

// Table accumulates result rows in run order.
type Table struct {
	mu      sync.RWMutex
	params  []string
	metrics []string
	rows    []Row
}

// New returns an empty table with the given parameter and metric columns.
func New(params, metrics []string) *Table {
	return &Table{
		params:  append([]string(nil), params...),
		metrics: append([]string(nil), metrics...),
	}
}

// FromScenarios returns a table with one pending, all-zero row per scenario.
func FromScenarios(table sweep.Table, metrics []string) *Table {
	t := New(table.Names(), metrics)
	for _, sc := range table.Scenarios() {
		t.rows = append(t.rows, Row{
			Run:     sc.Index,
			Params:  sc.Values(),
			Metrics: make([]float64, len(metrics)),
			Status:  StatusPending,
		})
	}
	return t
}

func (t *Table) Params() []string  { return append([]string(nil), t.params...) }
func (t *Table) Metrics() []string { return append([]string(nil), t.metrics...) }

// Columns is the parameter columns followed by the metric columns.
func (t *Table) Columns() []string {
	return append(t.Params(), t.metrics...)
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

func (t *Table) Row(i int) (Row, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i < 0 || i >= len(t.rows) {
		return Row{}, fmt.Errorf("row %d: %w", i, ErrRowOutOfRange)
	}
	return t.rows[i].clone(), nil
}

func (t *Table) Rows() []Row {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Row, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.clone()
	}
	return out
}

// Set writes extracted metrics into row i and marks it ok. Every metric
// column must be present in values, otherwise the row is left untouched.
func (t *Table) Set(i int, values map[string]float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.rows) {
		return fmt.Errorf("row %d: %w", i, ErrRowOutOfRange)
	}
	out := make([]float64, len(t.metrics))
	for j, m := range t.metrics {
		v, ok := values[m]
		if !ok {
			return fmt.Errorf("%s: %w", m, ErrMissingMetric)
		}
		out[j] = v
	}
	t.rows[i].Metrics = out
	t.rows[i].Status = StatusOK
	return nil
}

// MarkStatus records a non-ok outcome for row i and zeroes its metrics.
func (t *Table) MarkStatus(i int, s Status) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.rows) {
		return fmt.Errorf("row %d: %w", i, ErrRowOutOfRange)
	}
	if s != StatusOK {
		t.rows[i].Metrics = make([]float64, len(t.metrics))
	}
	t.rows[i].Status = s
	return nil
}

// Append adds a row at the end of the table, renumbering its Run.
func (t *Table) Append(r Row) error {
	if len(r.Params) != len(t.params) || len(r.Metrics) != len(t.metrics) {
		return fmt.Errorf("%d params, %d metrics: %w", len(r.Params), len(r.Metrics), ErrColumnCount)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	r = r.clone()
	r.Run = len(t.rows)
	t.rows = append(t.rows, r)
	return nil
}

// Values returns the metrics of a row keyed by name.
func (t *Table) Values(i int) (map[string]float64, error) {
	r, err := t.Row(i)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(t.metrics))
	for j, m := range t.metrics {
		out[m] = r.Metrics[j]
	}
	return out, nil
}
