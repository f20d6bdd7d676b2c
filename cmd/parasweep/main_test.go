package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/Agrid-Dev/parasweep/internal/sweep"
)

func TestParseFieldInput(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    sweep.FieldInput
		wantErr bool
	}{
		{"full", "0.2:0.3:0.05", sweep.FieldInput{Start: "0.2", End: "0.3", Step: "0.05"}, false},
		{"spaces", " 1.2 : 1.8 : 0.3 ", sweep.FieldInput{Start: "1.2", End: "1.8", Step: "0.3"}, false},
		{"empty parts kept", "0.2::", sweep.FieldInput{Start: "0.2"}, false},
		{"single value", "0.2", sweep.FieldInput{}, true},
		{"too many parts", "0.2:0.3:0.1:1", sweep.FieldInput{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFieldInput(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseFieldInput(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("parseFieldInput(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestApplyFieldFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	addFieldFlags(cmd)
	if err := cmd.Flags().Parse([]string{"--window", "1.2:1.8:0.3", "--floor", "0.1:0.2:0.1"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	base := sweep.Form{
		Wall:   sweep.FieldInput{Start: "0.2", End: "0.2", Step: "0.1"},
		Window: sweep.FieldInput{Start: "1.6", End: "1.6", Step: "0.1"},
	}
	got, err := applyFieldFlags(cmd, base)
	if err != nil {
		t.Fatalf("applyFieldFlags: %v", err)
	}
	if got.Wall != base.Wall {
		t.Fatalf("wall changed: %+v", got.Wall)
	}
	if got.Window != (sweep.FieldInput{Start: "1.2", End: "1.8", Step: "0.3"}) {
		t.Fatalf("window = %+v", got.Window)
	}
	if got.Floor != (sweep.FieldInput{Start: "0.1", End: "0.2", Step: "0.1"}) {
		t.Fatalf("floor = %+v", got.Floor)
	}

	bad := &cobra.Command{Use: "x"}
	addFieldFlags(bad)
	_ = bad.Flags().Parse([]string{"--roof", "0.1-0.2"})
	if _, err := applyFieldFlags(bad, base); err == nil {
		t.Fatal("expected error for malformed --roof")
	}
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out.String(), version) {
		t.Fatalf("output %q does not contain %q", out.String(), version)
	}
}

// writeProjectConfig writes a config with short waits for a project in a
// temp directory and returns both paths.
func writeProjectConfig(t *testing.T) (cfgPath, projectDir string) {
	t.Helper()
	projectDir = t.TempDir()
	cfgPath = filepath.Join(t.TempDir(), "parasweep.yaml")
	content := `
log_level: warn
project:
  name: office
  path: ` + projectDir + `
sweep:
  route: direct
timing:
  poll: 5ms
  timeout: 2s
  loads_settle: 0s
  direct_settle: 0s
  compliance_settle: 0s
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath, projectDir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestScenariosCmd(t *testing.T) {
	cfgPath, _ := writeProjectConfig(t)
	out, err := execute(t, "scenarios", "--config", cfgPath, "--wall", "0.2:0.3:0.1", "--window", "1.2:1.8:0.3")
	if err != nil {
		t.Fatalf("scenarios: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 1+2*3 {
		t.Fatalf("expected header and 6 rows, got %d lines:\n%s", len(lines), out)
	}
	if lines[0] != "run,"+strings.Join(sweep.UValueParams, ",") {
		t.Fatalf("header = %q", lines[0])
	}
	if lines[1] != "0,0.2,1.2,0.15,0.25" {
		t.Fatalf("baseline row = %q", lines[1])
	}
}

func TestScenariosCmdInvalidForm(t *testing.T) {
	cfgPath, _ := writeProjectConfig(t)
	_, err := execute(t, "scenarios", "--config", cfgPath, "--wall", "0.3:0.2:0.1")
	if !errors.Is(err, sweep.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRunCmdWritesResultsAndHistory(t *testing.T) {
	cfgPath, projectDir := writeProjectConfig(t)

	out, err := execute(t, "run", "--config", cfgPath, "--wall", "0.2:0.3:0.1")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	if !strings.Contains(out, "2/2 succeeded") {
		t.Fatalf("unexpected summary: %q", out)
	}
	for _, name := range []string{"simulation_1.csv", "simulation_2.csv", "combined_simulation_results.xlsx"} {
		if _, err := os.Stat(filepath.Join(projectDir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(projectDir, "Vista", "Para_run_0.aps")); !os.IsNotExist(err) {
		t.Errorf("expected run artifacts cleaned up, stat err = %v", err)
	}

	out, err = execute(t, "history", "--config", cfgPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "office") || !strings.Contains(out, "done") {
		t.Fatalf("history output missing sweep: %q", out)
	}
}

func TestRunCmdInvalidFormWritesNothing(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
	}{
		{"zero step", []string{"--roof", "0.2:0.3:0"}, sweep.ErrInvalidStep},
		{"non-numeric", []string{"--wall", "abc:0.3:0.1"}, sweep.ErrInvalidNumber},
		{"too many scenarios", []string{"--wall", "0:999:1", "--window", "0:999:1"}, sweep.ErrTooManyScenarios},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfgPath, projectDir := writeProjectConfig(t)

			_, err := execute(t, append([]string{"run", "--config", cfgPath, "--log-level", "debug"}, tt.args...)...)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			entries, err := os.ReadDir(projectDir)
			if err != nil {
				t.Fatalf("read project dir: %v", err)
			}
			if len(entries) != 0 {
				names := make([]string, len(entries))
				for i, e := range entries {
					names[i] = e.Name()
				}
				t.Fatalf("project dir not empty: %v", names)
			}
		})
	}
}

func TestRunCmdInvalidRoute(t *testing.T) {
	cfgPath, projectDir := writeProjectConfig(t)

	_, err := execute(t, "run", "--config", cfgPath, "--route", "2")
	if !errors.Is(err, sweep.ErrInvalidRoute) {
		t.Fatalf("expected ErrInvalidRoute, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(projectDir, "combined_simulation_results.xlsx")); !os.IsNotExist(err) {
		t.Fatalf("no workbook expected, stat err = %v", err)
	}
}
