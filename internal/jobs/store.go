package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"revoice/internal/config"
)

// Transition rule violations reported by Update.
var (
	ErrTerminalJob     = errors.New("job already terminal")
	ErrStageRegression = errors.New("stage regression")
	ErrInvalidStatus   = errors.New("invalid status")
)

// Store manages job persistence backed by SQLite. All methods are safe for
// concurrent use; writes are serialized by the database itself.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the job database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.LogDir, "jobs.db"))
}

// OpenPath connects to the job database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Create inserts a new job in the starting state and returns it.
func (s *Store) Create(ctx context.Context, sourceFilename, targetLang string) (*Job, error) {
	now := time.Now().UTC()
	job := &Job{
		ID:             uuid.NewString(),
		Status:         StatusStarting,
		Stage:          StageNone,
		SourceFilename: sourceFilename,
		TargetLang:     targetLang,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
            id, status, stage, source_filename, source_path, target_lang,
            video_uri, transcript, translation, analysis_json, error_message,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, '', ?, '', '', '', '', '', ?, ?)`,
		job.ID,
		job.Status,
		job.Stage,
		job.SourceFilename,
		job.TargetLang,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

// GetByID fetches a job by identifier. A missing job returns (nil, nil).
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" FROM jobs WHERE id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query job %s: %w", id, err)
	}
	return job, nil
}

// Update persists the mutable fields of a job, enforcing the lifecycle
// rules: a terminal job is never rewritten and the stage never moves
// backwards.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if !job.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, job.Status)
	}
	if !job.Stage.IsValid() {
		return fmt.Errorf("unknown stage %q", job.Stage)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var currentStatus Status
	var currentStage Stage
	row := tx.QueryRowContext(ctx, "SELECT status, stage FROM jobs WHERE id = ?", job.ID)
	if err := row.Scan(&currentStatus, &currentStage); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("job %s not found", job.ID)
		}
		return fmt.Errorf("read current state: %w", err)
	}

	if currentStatus.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrTerminalJob, job.ID, currentStatus)
	}
	if job.Stage.Ordinal() < currentStage.Ordinal() {
		return fmt.Errorf("%w: %s cannot move from %q to %q", ErrStageRegression, job.ID, currentStage, job.Stage)
	}

	job.UpdatedAt = time.Now().UTC()
	_, err = tx.ExecContext(
		ctx,
		`UPDATE jobs SET
            status = ?, stage = ?, source_path = ?, video_uri = ?,
            transcript = ?, translation = ?, analysis_json = ?,
            error_message = ?, updated_at = ?
        WHERE id = ?`,
		job.Status,
		job.Stage,
		job.SourcePath,
		job.VideoURI,
		job.Transcript,
		job.Translation,
		job.AnalysisJSON,
		job.ErrorMessage,
		job.UpdatedAt.Format(time.RFC3339Nano),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job %s: %w", job.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update: %w", err)
	}
	return nil
}

// List returns all jobs, newest first.
func (s *Store) List(ctx context.Context) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+" FROM jobs ORDER BY created_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var result []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		result = append(result, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return result, nil
}

// Stats aggregates job counts per lifecycle state.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM jobs GROUP BY status")
	if err != nil {
		return Stats{}, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, fmt.Errorf("scan stats: %w", err)
		}
		stats.Total += count
		switch status {
		case StatusStarting:
			stats.Starting = count
		case StatusInProgress:
			stats.InProgress = count
		case StatusCompleted:
			stats.Completed = count
		case StatusFailed:
			stats.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate stats: %w", err)
	}
	return stats, nil
}

// DeleteTerminalBefore removes completed and failed jobs whose last update
// precedes the cutoff. It returns the number of evicted jobs.
func (s *Store) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		"DELETE FROM jobs WHERE status IN (?, ?) AND updated_at < ?",
		StatusCompleted,
		StatusFailed,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("delete terminal jobs: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return deleted, nil
}

// FailActive marks all non-terminal jobs failed with the given reason. The
// daemon calls this during shutdown so restarted processes never report
// stale in-progress work.
func (s *Store) FailActive(ctx context.Context, reason string) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		"UPDATE jobs SET status = ?, error_message = ?, updated_at = ? WHERE status IN (?, ?)",
		StatusFailed,
		reason,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusStarting,
		StatusInProgress,
	)
	if err != nil {
		return 0, fmt.Errorf("fail active jobs: %w", err)
	}
	updated, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return updated, nil
}

const selectColumns = `SELECT
    id, status, stage, source_filename, source_path, target_lang,
    video_uri, transcript, translation, analysis_json, error_message,
    created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var job Job
	var createdAt, updatedAt string
	err := row.Scan(
		&job.ID,
		&job.Status,
		&job.Stage,
		&job.SourceFilename,
		&job.SourcePath,
		&job.TargetLang,
		&job.VideoURI,
		&job.Transcript,
		&job.Translation,
		&job.AnalysisJSON,
		&job.ErrorMessage,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if job.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if job.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &job, nil
}
