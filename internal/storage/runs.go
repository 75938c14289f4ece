// ABOUTME: TrainingRun CRUD operations for SQLite storage.
// ABOUTME: Implements Repository interface methods for training runs.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/stress/internal/models"
)

const runColumns = `id, run_date, model, run_trigger, rmse, cv_score, artifact_path,
	train_rows, test_rows, duration_ms, notes, created_at`

// CreateRun stores a new training run in the database.
func (d *DB) CreateRun(r *models.TrainingRun) error {
	query := `
		INSERT INTO training_runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := d.db.Exec(query,
		r.ID.String(),
		r.RunDate.UTC().Format(time.RFC3339),
		r.Model,
		string(r.Trigger),
		r.RMSE,
		r.CVScore,
		r.ArtifactPath,
		r.TrainRows,
		r.TestRows,
		r.Duration.Milliseconds(),
		r.Notes,
		r.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID or ID prefix.
func (d *DB) GetRun(idOrPrefix string) (*models.TrainingRun, error) {
	id, err := d.resolveRunID(idOrPrefix)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + runColumns + ` FROM training_runs WHERE id = ?`
	return scanRun(d.db.QueryRow(query, id))
}

// ListRuns retrieves runs with optional filtering by trigger.
// Results are sorted by RunDate descending (most recent first).
func (d *DB) ListRuns(trigger *models.Trigger, limit int) ([]*models.TrainingRun, error) {
	query := `SELECT ` + runColumns + ` FROM training_runs`
	var args []interface{}

	if trigger != nil {
		query += ` WHERE run_trigger = ?`
		args = append(args, string(*trigger))
	}
	query += ` ORDER BY run_date DESC, created_at DESC`

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.TrainingRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run by ID or prefix.
func (d *DB) DeleteRun(idOrPrefix string) error {
	id, err := d.resolveRunID(idOrPrefix)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}

	result, err := d.db.Exec("DELETE FROM training_runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("not found: %s", idOrPrefix)
	}

	return nil
}

// GetLatestRun returns the most recent training run.
func (d *DB) GetLatestRun() (*models.TrainingRun, error) {
	query := `SELECT ` + runColumns + ` FROM training_runs ORDER BY run_date DESC, created_at DESC LIMIT 1`
	r, err := scanRun(d.db.QueryRow(query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no training runs recorded")
		}
		return nil, err
	}
	return r, nil
}

// resolveRunID finds the full ID from a prefix.
func (d *DB) resolveRunID(idOrPrefix string) (string, error) {
	// If it looks like a full UUID, use it directly
	if len(idOrPrefix) == 36 && strings.Count(idOrPrefix, "-") == 4 {
		return idOrPrefix, nil
	}

	query := `SELECT id FROM training_runs WHERE id LIKE ? || '%'`
	rows, err := d.db.Query(query, idOrPrefix)
	if err != nil {
		return "", fmt.Errorf("resolve run ID: %w", err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scan run ID: %w", err)
		}
		matches = append(matches, id)
	}

	if len(matches) == 0 {
		return "", fmt.Errorf("not found: %s", idOrPrefix)
	}
	if len(matches) > 1 {
		return "", fmt.Errorf("ambiguous prefix %s: matches multiple records", idOrPrefix)
	}

	return matches[0], nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanRun scans a single row into a TrainingRun struct.
func scanRun(row rowScanner) (*models.TrainingRun, error) {
	var r models.TrainingRun
	var idStr, runDate, trigger, createdAt string
	var durationMS int64
	var notes sql.NullString

	err := row.Scan(&idStr, &runDate, &r.Model, &trigger, &r.RMSE, &r.CVScore, &r.ArtifactPath,
		&r.TrainRows, &r.TestRows, &durationMS, &notes, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}

	r.ID, _ = uuid.Parse(idStr)
	r.RunDate, _ = time.Parse(time.RFC3339, runDate)
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	r.Trigger = models.Trigger(trigger)
	r.Duration = time.Duration(durationMS) * time.Millisecond
	if notes.Valid {
		r.Notes = &notes.String
	}

	return &r, nil
}
