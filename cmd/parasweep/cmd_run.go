package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Agrid-Dev/parasweep/internal/sweep"
)

// fieldFlags are the range flags, in form order.
var fieldFlags = []string{"wall", "window", "roof", "floor"}

func addFieldFlags(cmd *cobra.Command) {
	for _, name := range fieldFlags {
		cmd.Flags().String(name, "", fmt.Sprintf("%s U-value range as start:end:step", name))
	}
}

// parseFieldInput splits "start:end:step". The parts are validated later,
// together with the rest of the form.
func parseFieldInput(s string) (sweep.FieldInput, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return sweep.FieldInput{}, fmt.Errorf("range %q: want start:end:step", s)
	}
	return sweep.FieldInput{
		Start: strings.TrimSpace(parts[0]),
		End:   strings.TrimSpace(parts[1]),
		Step:  strings.TrimSpace(parts[2]),
	}, nil
}

// applyFieldFlags overrides the rows of form given on the command line.
func applyFieldFlags(cmd *cobra.Command, form sweep.Form) (sweep.Form, error) {
	for _, name := range fieldFlags {
		if !cmd.Flags().Changed(name) {
			continue
		}
		v, _ := cmd.Flags().GetString(name)
		in, err := parseFieldInput(v)
		if err != nil {
			return form, fmt.Errorf("--%s: %w", name, err)
		}
		switch name {
		case "wall":
			form.Wall = in
		case "window":
			form.Window = in
		case "roof":
			form.Roof = in
		case "floor":
			form.Floor = in
		}
	}
	return form, nil
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a sweep and write its results",
		Long: `Run enumerates the scenario table from the configured form (with any
--wall/--window/--roof/--floor overrides), simulates every scenario in turn,
writes simulation_<i>.csv per run and combined_simulation_results.xlsx into
the project directory, then resets the model to the baseline.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			form, err := applyFieldFlags(cmd, cfg.Sweep.Form)
			if err != nil {
				return err
			}
			if route, _ := cmd.Flags().GetString("route"); route != "" {
				cfg.Sweep.Route = route
			}
			// nothing is created in the project directory for a form that
			// cannot be enumerated
			table, err := sweep.Build(form)
			if err != nil {
				return fmt.Errorf("invalid sweep form: %w", err)
			}
			if table.Large() {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d scenarios, this will take a while\n", table.Len())
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			st, err := newStack(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			sum, err := st.service.Run(ctx, form)
			var inputErr *sweep.InputError
			if errors.As(err, &inputErr) {
				return fmt.Errorf("invalid sweep form: %w", err)
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				_ = json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"sweep_id":    sum.SweepID,
					"total":       sum.Total,
					"succeeded":   sum.Succeeded,
					"failed":      sum.Failed,
					"output_file": sum.OutputFile,
				})
			} else if sum.SweepID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "sweep %s: %d/%d succeeded, %d failed\n",
					sum.SweepID, sum.Succeeded, sum.Total, sum.Failed)
				if sum.OutputFile != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "results: %s\n", sum.OutputFile)
				}
			}
			return err
		},
	}
	addFieldFlags(cmd)
	cmd.Flags().String("route", "", "override route (direct, compliance)")
	return cmd
}

func newScenariosCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "Print the scenario table without simulating",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			form, err := applyFieldFlags(cmd, cfg.Sweep.Form)
			if err != nil {
				return err
			}
			table, err := sweep.Build(form)
			if err != nil {
				return fmt.Errorf("invalid sweep form: %w", err)
			}
			if table.Large() {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d scenarios, this will take a while\n", table.Len())
			}
			return table.WriteCSV(cmd.OutOrStdout())
		},
	}
	addFieldFlags(cmd)
	return cmd
}
