package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// Dir and File locate the ledger inside a project directory.
const (
	Dir  = ".parasweep"
	File = "ledger.db"
)

// fixed width so timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Sweep states recorded in the ledger.
const (
	StateRunning = "running"
	StateDone    = "done"
	StateFailed  = "failed"
)

type Sweep struct {
	ID         string
	Project    string
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	Total      int
	State      string
}

type Run struct {
	SweepID  string
	RunIndex int
	Params   map[string]float64
	Metrics  map[string]float64
	Status   string
}

// Ledger records sweeps and runs in SQLite.
type Ledger struct {
	mu  sync.Mutex
	db  *sql.DB
	now func() time.Time
}

// DefaultPath returns the ledger location for a project directory.
func DefaultPath(projectPath string) string {
	return filepath.Join(projectPath, Dir, File)
}

// Open opens or creates the ledger database at path.
func Open(ctx context.Context, path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Ledger{db: db, now: time.Now}, nil
}

// BeginSweep registers a running sweep and returns its ID.
func (l *Ledger) BeginSweep(ctx context.Context, project string, total int) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := uuid.NewString()
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO sweeps (id, project, started_at, total, state) VALUES (?, ?, ?, ?, ?)`,
		id, project, l.stamp(), total, StateRunning)
	if err != nil {
		return "", fmt.Errorf("failed to insert sweep: %w", err)
	}
	return id, nil
}

// RecordRun stores one run of a sweep. Recording the same run again
// replaces it.
func (l *Ledger) RecordRun(ctx context.Context, run Run) error {
	if run.SweepID == "" {
		return ErrEmptySweepID
	}
	params, err := json.Marshal(orEmpty(run.Params))
	if err != nil {
		return err
	}
	metrics, err := json.Marshal(orEmpty(run.Metrics))
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (sweep_id, run_index, params, metrics, status, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.SweepID, run.RunIndex, string(params), string(metrics), run.Status, l.stamp())
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// FinishSweep sets the final state of a sweep.
func (l *Ledger) FinishSweep(ctx context.Context, id, state string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	res, err := l.db.ExecContext(ctx,
		`UPDATE sweeps SET finished_at = ?, state = ? WHERE id = ?`, l.stamp(), state, id)
	if err != nil {
		return fmt.Errorf("failed to update sweep: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, ErrSweepNotFound)
	}
	return nil
}

// Sweeps lists every sweep, most recent first.
func (l *Ledger) Sweeps(ctx context.Context) ([]Sweep, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, project, started_at, COALESCE(finished_at, ''), total, state
		 FROM sweeps ORDER BY started_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sweeps: %w", err)
	}
	defer rows.Close()

	var out []Sweep
	for rows.Next() {
		var (
			s                 Sweep
			started, finished string
		)
		if err := rows.Scan(&s.ID, &s.Project, &started, &finished, &s.Total, &s.State); err != nil {
			return nil, err
		}
		s.StartedAt, _ = time.Parse(timeLayout, started)
		if finished != "" {
			s.FinishedAt, _ = time.Parse(timeLayout, finished)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Runs lists the runs of a sweep in run order.
func (l *Ledger) Runs(ctx context.Context, sweepID string) ([]Run, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rows, err := l.db.QueryContext(ctx,
		`SELECT run_index, params, metrics, status FROM runs WHERE sweep_id = ? ORDER BY run_index`,
		sweepID)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r               Run
			params, metrics string
		)
		if err := rows.Scan(&r.RunIndex, &params, &metrics, &r.Status); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(params), &r.Params); err != nil {
			return nil, fmt.Errorf("run %d params: %w", r.RunIndex, err)
		}
		if err := json.Unmarshal([]byte(metrics), &r.Metrics); err != nil {
			return nil, fmt.Errorf("run %d metrics: %w", r.RunIndex, err)
		}
		r.SweepID = sweepID
		out = append(out, r)
	}
	return out, rows.Err()
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) stamp() string {
	return l.now().UTC().Format(timeLayout)
}

func orEmpty(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}
