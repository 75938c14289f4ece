// ABOUTME: SQLite schema definition and initialization.
// ABOUTME: Defines the training_runs table and its lookup indexes.
package storage

// initSchema creates or updates the database schema.
func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS training_runs (
		id TEXT PRIMARY KEY,
		run_date DATETIME NOT NULL,
		model TEXT NOT NULL,
		run_trigger TEXT NOT NULL,
		rmse REAL NOT NULL,
		cv_score REAL NOT NULL DEFAULT 0,
		artifact_path TEXT NOT NULL,
		train_rows INTEGER NOT NULL DEFAULT 0,
		test_rows INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		notes TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_date ON training_runs(run_date DESC);
	CREATE INDEX IF NOT EXISTS idx_runs_trigger_date ON training_runs(run_trigger, run_date DESC);
	`

	_, err := d.db.Exec(schema)
	return err
}
