package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/Agrid-Dev/parasweep/internal/store"
	"github.com/Agrid-Dev/parasweep/internal/sweep"
)

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history [sweep-id]",
		Short: "List past sweeps, or the runs of one sweep",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			path := cfg.LedgerPath()
			if path == "" {
				return fmt.Errorf("ledger is disabled")
			}
			l, err := store.Open(cmd.Context(), path)
			if err != nil {
				return err
			}
			defer l.Close()

			jsonOut, _ := cmd.Flags().GetBool("json")
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				sweeps, err := l.Sweeps(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return json.NewEncoder(out).Encode(sweeps)
				}
				return printSweeps(out, sweeps)
			}

			runs, err := l.Runs(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return json.NewEncoder(out).Encode(runs)
			}
			return printRuns(out, runs)
		},
	}
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func newHistoryTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderHeader(true).
		BorderRow(false).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func printSweeps(w io.Writer, sweeps []store.Sweep) error {
	if len(sweeps) == 0 {
		_, err := fmt.Fprintln(w, "No sweeps recorded.")
		return err
	}
	t := newHistoryTable("ID", "PROJECT", "STARTED", "RUNS", "STATE")
	for _, s := range sweeps {
		t.Row(s.ID, s.Project, s.StartedAt.Local().Format(time.DateTime), strconv.Itoa(s.Total), s.State)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func printRuns(w io.Writer, runs []store.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}
	headers := append([]string{"RUN", "STATUS"}, sweep.UValueParams...)
	t := newHistoryTable(append(headers, "METRICS")...)
	for _, r := range runs {
		row := []string{strconv.Itoa(r.RunIndex), r.Status}
		for _, p := range sweep.UValueParams {
			row = append(row, sweep.FormatValue(r.Params[p]))
		}
		t.Row(append(row, strconv.Itoa(nonZero(r.Metrics)))...)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// nonZero counts the metrics that carry a value.
func nonZero(m map[string]float64) int {
	n := 0
	for _, v := range m {
		if v != 0 {
			n++
		}
	}
	return n
}
