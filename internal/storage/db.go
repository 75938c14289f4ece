// ABOUTME: SQLite handle for the training-run registry shared by train, mcp, and runs.
// ABOUTME: Every pooled connection runs in WAL mode with a busy timeout.
package storage

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// busyTimeoutMS bounds how long a writer waits on another process's lock.
// A retrain run from `stress mcp` can overlap a cron `stress train`.
const busyTimeoutMS = 5000

// registryPragmas are applied by the driver to each new connection, so
// every connection in the pool gets them, not only the first.
var registryPragmas = []string{
	"journal_mode(WAL)",
	fmt.Sprintf("busy_timeout(%d)", busyTimeoutMS),
	"synchronous(NORMAL)",
}

// DB is the run registry.
type DB struct {
	db     *sql.DB
	dbPath string
}

// Open opens the registry at dbPath, creating the file, its directory,
// and the schema on first use. The file is readable by the owner only.
func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("create registry directory: %w", err)
	}

	db, err := sql.Open("sqlite", registryDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}

	d := &DB{db: db, dbPath: dbPath}
	if err := d.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	// The file only exists once the schema statement has run.
	if err := os.Chmod(dbPath, 0600); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("restrict registry permissions: %w", err)
	}
	return d, nil
}

func registryDSN(path string) string {
	q := url.Values{}
	for _, p := range registryPragmas {
		q.Add("_pragma", p)
	}
	return path + "?" + q.Encode()
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.dbPath
}
