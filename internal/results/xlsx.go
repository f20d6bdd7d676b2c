package results

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the consolidated results.
const SheetName = "results"

// SaveXLSX writes the consolidated workbook: parameters, metrics and the
// status of every run, without the run index.
func (t *Table) SaveXLSX(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	cols := append(t.Columns(), "status")
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range t.Rows() {
		rec := make([]any, 0, len(cols))
		for _, v := range r.Params {
			rec = append(rec, v)
		}
		for _, v := range r.Metrics {
			rec = append(rec, v)
		}
		rec = append(rec, r.Status.String())

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &rec); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
