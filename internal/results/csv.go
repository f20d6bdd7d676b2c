package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// WriteCSV renders the table with a leading "run" index column, matching
// the run suffix of the engine's result files.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"run"}, t.Columns()...)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range t.Rows() {
		rec := make([]string, 0, 1+len(r.Params)+len(r.Metrics))
		rec = append(rec, strconv.Itoa(r.Run))
		for _, v := range r.Params {
			rec = append(rec, formatFloat(v))
		}
		for _, v := range r.Metrics {
			rec = append(rec, formatFloat(v))
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", r.Run, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the table to path through a temporary file so a crash
// never leaves a truncated export behind.
func (t *Table) SaveCSV(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := t.WriteCSV(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close csv: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename csv: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
