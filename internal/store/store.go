// Package store persists tasks and practice recordings (component H) to
// PostgreSQL. Adapted from the teacher gateway's internal/trace/store.go:
// same sql.Open("pgx", ...)/Ping/embedded-migration shape, generalized from
// the call-tracing session/run/span schema to the task/recording schema
// this pipeline needs.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// TaskStatus is a task's lifecycle state.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusProcessing TaskStatus = "processing"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
)

// Task is one audio-to-subtitle job, matching
// original_source/server/models.py's Task model field-for-field.
type Task struct {
	ID                   string
	Status               TaskStatus
	Filename             string
	FilePath             string
	Duration             *float64
	Progress             float64
	LastPlayedChunkIndex int
	Message              *string
	Result               *string // JSON: {"segments":[...], "srt": "..."}
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// PracticeRecording is one learner recording attached to a task segment,
// cascade-deleted with its parent task.
type PracticeRecording struct {
	ID           string
	TaskID       string
	SegmentIndex int
	FilePath     string
	CreatedAt    time.Time
}

// Store wraps the Postgres connection pool.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres at connStr and applies pending migrations.
func Open(connStr string) (*Store, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("store open: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store ping: %w", err)
	}
	if err = migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`)
	if err != nil {
		return err
	}

	var current int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), -1) FROM schema_version`)
	if err = row.Scan(&current); err != nil {
		return err
	}

	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	for i := current + 1; i < len(entries); i++ {
		data, readErr := migrationFS.ReadFile("migrations/" + entries[i].Name())
		if readErr != nil {
			return fmt.Errorf("read migration %d: %w", i, readErr)
		}
		if _, execErr := db.Exec(string(data)); execErr != nil {
			return fmt.Errorf("migration %d: %w", i, execErr)
		}
		if _, execErr := db.Exec(`INSERT INTO schema_version (version) VALUES ($1)`, i); execErr != nil {
			return fmt.Errorf("migration %d record: %w", i, execErr)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateTask inserts a new pending task.
func (s *Store) CreateTask(ctx context.Context, t *Task) error {
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	if t.Status == "" {
		t.Status = StatusPending
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, status, filename, file_path, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.Status, t.Filename, t.FilePath, t.CreatedAt, t.UpdatedAt,
	)
	return err
}

// GetTask fetches a task by ID.
func (s *Store) GetTask(ctx context.Context, id string) (*Task, error) {
	var t Task
	err := s.db.QueryRowContext(ctx,
		`SELECT id, status, filename, file_path, duration, progress,
		        last_played_chunk_index, message, result, created_at, updated_at
		 FROM tasks WHERE id = $1`, id,
	).Scan(&t.ID, &t.Status, &t.Filename, &t.FilePath, &t.Duration, &t.Progress,
		&t.LastPlayedChunkIndex, &t.Message, &t.Result, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTasks returns tasks newest first.
func (s *Store) ListTasks(ctx context.Context) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, filename, file_path, duration, progress,
		        last_played_chunk_index, message, result, created_at, updated_at
		 FROM tasks ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var t Task
		if err = rows.Scan(&t.ID, &t.Status, &t.Filename, &t.FilePath, &t.Duration, &t.Progress,
			&t.LastPlayedChunkIndex, &t.Message, &t.Result, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ClaimPending atomically transitions one pending task to processing,
// returning it, or (nil, sql.ErrNoRows) if none is pending — the
// compare-and-swap a worker uses to pick up the next job without a second
// worker grabbing the same one.
func (s *Store) ClaimPending(ctx context.Context) (*Task, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE tasks SET status = $1, updated_at = $2
		 WHERE id = (
		     SELECT id FROM tasks WHERE status = $3 ORDER BY created_at ASC LIMIT 1 FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, status, filename, file_path, duration, progress,
		           last_played_chunk_index, message, result, created_at, updated_at`,
		StatusProcessing, time.Now().UTC(), StatusPending,
	)

	var t Task
	err := row.Scan(&t.ID, &t.Status, &t.Filename, &t.FilePath, &t.Duration, &t.Progress,
		&t.LastPlayedChunkIndex, &t.Message, &t.Result, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// MarkProcessing transitions a task to processing with an optional message.
func (s *Store) MarkProcessing(ctx context.Context, id string, message *string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = $1, message = $2, updated_at = $3 WHERE id = $4`,
		StatusProcessing, message, time.Now().UTC(), id,
	)
	return err
}

// UpdateProgress updates a task's fractional progress and optional message.
func (s *Store) UpdateProgress(ctx context.Context, id string, progress float64, message *string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET progress = $1, message = $2, updated_at = $3 WHERE id = $4`,
		progress, message, time.Now().UTC(), id,
	)
	return err
}

// CompleteTask marks a task completed with its result JSON and duration.
func (s *Store) CompleteTask(ctx context.Context, id string, duration float64, result string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = $1, progress = 1.0, duration = $2, result = $3, updated_at = $4 WHERE id = $5`,
		StatusCompleted, duration, result, time.Now().UTC(), id,
	)
	return err
}

// FailTask marks a task failed with a message, best-effort — callers log a
// warning rather than treat a failed write here as fatal.
func (s *Store) FailTask(ctx context.Context, id string, message string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = $1, message = $2, updated_at = $3 WHERE id = $4`,
		StatusFailed, message, time.Now().UTC(), id,
	)
	return err
}

// UpdateLastPlayedChunk records the learner's last-played segment index.
func (s *Store) UpdateLastPlayedChunk(ctx context.Context, id string, index int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET last_played_chunk_index = $1, updated_at = $2 WHERE id = $3`,
		index, time.Now().UTC(), id,
	)
	return err
}

// DeleteTask removes a task; practice recordings cascade via the foreign key.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	return err
}

// CreatePracticeRecording inserts a recording attached to a task segment.
func (s *Store) CreatePracticeRecording(ctx context.Context, r *PracticeRecording) error {
	r.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO practice_recordings (id, task_id, segment_index, file_path, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		r.ID, r.TaskID, r.SegmentIndex, r.FilePath, r.CreatedAt,
	)
	return err
}

// ListPracticeRecordings returns every recording for a task, ordered by
// segment index.
func (s *Store) ListPracticeRecordings(ctx context.Context, taskID string) ([]PracticeRecording, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, segment_index, file_path, created_at
		 FROM practice_recordings WHERE task_id = $1 ORDER BY segment_index ASC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []PracticeRecording
	for rows.Next() {
		var r PracticeRecording
		if err = rows.Scan(&r.ID, &r.TaskID, &r.SegmentIndex, &r.FilePath, &r.CreatedAt); err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// GetConfigOverrides returns every persisted config override, keyed by
// dotted path (e.g. "llm.model"), backing the PATCH /api/config surface
// that lets an operator tweak resolved config without touching the
// process environment.
func (s *Store) GetConfigOverrides(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM config_overrides`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err = rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// SetConfigOverride upserts a single override.
func (s *Store) SetConfigOverride(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO config_overrides (key, value, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, value, time.Now().UTC(),
	)
	return err
}
