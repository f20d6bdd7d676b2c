package driver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Agrid-Dev/parasweep/internal/ports"
	"github.com/Agrid-Dev/parasweep/internal/sweep"
)

func TestWaitForFileAppears(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Para_run_0.aps")
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = os.WriteFile(path, nil, 0o644)
	}()

	ok, err := WaitForFile(context.Background(), path, 5*time.Millisecond, time.Second)
	if err != nil || !ok {
		t.Fatalf("expected file to appear, got ok=%v err=%v", ok, err)
	}
}

func TestWaitForFileTimesOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.aps")
	start := time.Now()
	ok, err := WaitForFile(context.Background(), path, 5*time.Millisecond, 30*time.Millisecond)
	if err != nil || ok {
		t.Fatalf("expected timeout without error, got ok=%v err=%v", ok, err)
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Fatal("returned before the timeout")
	}
}

func TestWaitForFileCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := WaitForFile(ctx, filepath.Join(t.TempDir(), "x"), time.Millisecond, time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestArtifactsFor(t *testing.T) {
	p := ports.Project{Name: "office", Path: "/proj"}

	a, err := ArtifactsFor(p, sweep.RouteDirect, 3)
	if err != nil {
		t.Fatal(err)
	}
	if a.ResultsFile != "Para_run_3.aps" || a.ResultsPath != filepath.Join("/proj", "Vista", "Para_run_3.aps") {
		t.Fatalf("unexpected direct artifacts %+v", a)
	}
	if len(a.Paths) != 4 || a.Paths[3] != filepath.Join("/proj", "SunCast", "office.gsk") {
		t.Fatalf("unexpected direct paths %v", a.Paths)
	}

	c, err := ArtifactsFor(p, sweep.RouteCompliance, 3)
	if err != nil {
		t.Fatal(err)
	}
	if c.ResultsFile != "a_(Part L2 2013)_office.aps" || len(c.Paths) != 2 {
		t.Fatalf("unexpected compliance artifacts %+v", c)
	}
	if c.Paths[1] != filepath.Join("/proj", "Vista", "n_(Part L2 2013)_office.aps") {
		t.Fatalf("unexpected notional path %q", c.Paths[1])
	}

	if _, err := ArtifactsFor(p, sweep.Route(5), 0); !errors.Is(err, sweep.ErrInvalidRoute) {
		t.Fatalf("expected ErrInvalidRoute, got %v", err)
	}
}
