// Package journal keeps a sqlite record of animation runs and the outcome of
// every frame, so intermittent driver failures can be traced across runs.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/richinsley/goshadergif/sequencer"
)

const (
	StatusRunning   = "running"
	StatusComplete  = "complete"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
	frameRendered   = "rendered"
	frameFailedText = "failed"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,              -- uuid
    shader TEXT NOT NULL,
    width INTEGER NOT NULL,
    height INTEGER NOT NULL,
    frame_rate REAL NOT NULL,
    duration REAL NOT NULL,
    output TEXT NOT NULL,
    status TEXT NOT NULL,
    rendered INTEGER DEFAULT 0,
    failed INTEGER DEFAULT 0,
    started_at INTEGER NOT NULL,      -- UnixNano
    finished_at INTEGER
);

CREATE TABLE IF NOT EXISTS frames (
    run_id TEXT NOT NULL REFERENCES runs(id),
    idx INTEGER NOT NULL,
    timestamp REAL NOT NULL,
    status TEXT NOT NULL,
    error TEXT,
    elapsed_ns INTEGER NOT NULL,
    PRIMARY KEY (run_id, idx)
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`

// Journal is a handle on the database file.
type Journal struct {
	db *sql.DB
}

// RunInfo describes a run at the moment it starts.
type RunInfo struct {
	Shader    string
	Width     int
	Height    int
	FrameRate float64
	Duration  float64
	Output    string
}

// RunRecord is a row of the runs table.
type RunRecord struct {
	ID         string
	Info       RunInfo
	Status     string
	Rendered   int
	Failed     int
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
}

type FrameRecord struct {
	Index     int
	Timestamp float64
	Status    string
	Error     string
	Elapsed   time.Duration
}

// DefaultPath is runs.db in the per-user cache directory.
func DefaultPath() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "goshadergif", "runs.db"), nil
}

func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	dsn := path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Begin inserts a new run in the running state.
func (j *Journal) Begin(info RunInfo) (*Run, error) {
	r := &Run{j: j, ID: uuid.NewString()}
	_, err := j.db.Exec(
		`INSERT INTO runs (id, shader, width, height, frame_rate, duration, output, status, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, info.Shader, info.Width, info.Height, info.FrameRate, info.Duration, info.Output,
		StatusRunning, time.Now().UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	return r, nil
}

// Runs returns every recorded run, newest first.
func (j *Journal) Runs() ([]RunRecord, error) {
	rows, err := j.db.Query(
		`SELECT id, shader, width, height, frame_rate, duration, output, status, rendered, failed, started_at, finished_at
		 FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		var started int64
		var finished sql.NullInt64
		if err := rows.Scan(&rec.ID, &rec.Info.Shader, &rec.Info.Width, &rec.Info.Height,
			&rec.Info.FrameRate, &rec.Info.Duration, &rec.Info.Output, &rec.Status,
			&rec.Rendered, &rec.Failed, &started, &finished); err != nil {
			return nil, err
		}
		rec.StartedAt = time.Unix(0, started)
		if finished.Valid {
			rec.FinishedAt = time.Unix(0, finished.Int64)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Frames returns the frames of run id in index order.
func (j *Journal) Frames(id string) ([]FrameRecord, error) {
	rows, err := j.db.Query(
		`SELECT idx, timestamp, status, COALESCE(error, ''), elapsed_ns
		 FROM frames WHERE run_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FrameRecord
	for rows.Next() {
		var rec FrameRecord
		var elapsed int64
		if err := rows.Scan(&rec.Index, &rec.Timestamp, &rec.Status, &rec.Error, &elapsed); err != nil {
			return nil, err
		}
		rec.Elapsed = time.Duration(elapsed)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Run records the frames of one run. It implements sequencer.Recorder.
type Run struct {
	ID string

	j  *Journal
	mu sync.Mutex
}

func (r *Run) RecordFrame(f sequencer.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	status, errText := frameRendered, sql.NullString{}
	if f.Err != nil {
		status = frameFailedText
		errText = sql.NullString{String: f.Err.Error(), Valid: true}
	}
	_, err := r.j.db.Exec(
		`INSERT OR REPLACE INTO frames (run_id, idx, timestamp, status, error, elapsed_ns)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, f.Index, f.Timestamp, status, errText, f.Elapsed.Nanoseconds(),
	)
	return err
}

// Finish stores the final status and frame counts.
func (r *Run) Finish(status string, rendered, failed int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.j.db.Exec(
		`UPDATE runs SET status = ?, rendered = ?, failed = ?, finished_at = ? WHERE id = ?`,
		status, rendered, failed, time.Now().UnixNano(), r.ID,
	)
	return err
}
