// ABOUTME: Tests for the SQLite training-run registry.
// ABOUTME: Verifies CRUD, prefix lookup, ordering, and export formats.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harperreed/stress/internal/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "logs", "runs.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenConfiguresEveryConnection(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// Hold two connections at once so the pool cannot hand back the same one.
	first, err := db.db.Conn(ctx)
	if err != nil {
		t.Fatalf("Conn failed: %v", err)
	}
	defer first.Close()
	second, err := db.db.Conn(ctx)
	if err != nil {
		t.Fatalf("Conn failed: %v", err)
	}
	defer second.Close()

	for i, conn := range []*sql.Conn{first, second} {
		var mode string
		if err := conn.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
			t.Fatalf("conn %d: journal_mode: %v", i, err)
		}
		if mode != "wal" {
			t.Errorf("conn %d: journal_mode = %s, want wal", i, mode)
		}
		var timeout int
		if err := conn.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout); err != nil {
			t.Fatalf("conn %d: busy_timeout: %v", i, err)
		}
		if timeout != busyTimeoutMS {
			t.Errorf("conn %d: busy_timeout = %d, want %d", i, timeout, busyTimeoutMS)
		}
	}
}

func TestOpenRestrictsPermissions(t *testing.T) {
	db := setupTestDB(t)

	info, err := os.Stat(db.Path())
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("registry mode = %o, want 600", perm)
	}
}

func TestOpenSharedByTwoProcesses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	trainer, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer trainer.Close()
	server, err := Open(path)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer server.Close()

	if err := trainer.CreateRun(newRun(3.1, 0, models.TriggerFreshData)); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	runs, err := server.ListRuns(nil, 10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("Expected the second handle to see 1 run, got %d", len(runs))
	}
}

func newRun(rmse float64, daysAgo int, trigger models.Trigger) *models.TrainingRun {
	day := time.Now().UTC().Truncate(time.Second).AddDate(0, 0, -daysAgo)
	return models.NewTrainingRun("GradientBoostedRegressor", rmse, "models/gbm_model_"+day.Format("20060102")+".json").
		WithRunDate(day).
		WithTrigger(trigger)
}

func TestCreateAndGetRun(t *testing.T) {
	db := setupTestDB(t)

	r := newRun(4.21, 0, models.TriggerColdStart).WithNotes("first model")
	r.TrainRows = 120
	r.TestRows = 90
	r.CVScore = -4.5
	r.Duration = 1500 * time.Millisecond

	if err := db.CreateRun(r); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	got, err := db.GetRun(r.ID.String())
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.ID != r.ID {
		t.Errorf("ID mismatch: got %v, want %v", got.ID, r.ID)
	}
	if got.RMSE != 4.21 || got.CVScore != -4.5 {
		t.Errorf("Scores mismatch: got %v / %v", got.RMSE, got.CVScore)
	}
	if got.Trigger != models.TriggerColdStart {
		t.Errorf("Trigger mismatch: got %v", got.Trigger)
	}
	if got.TrainRows != 120 || got.TestRows != 90 {
		t.Errorf("Row counts mismatch: got %d/%d", got.TrainRows, got.TestRows)
	}
	if got.Duration != 1500*time.Millisecond {
		t.Errorf("Duration mismatch: got %v", got.Duration)
	}
	if got.Notes == nil || *got.Notes != "first model" {
		t.Errorf("Notes mismatch: got %v", got.Notes)
	}
	if !got.RunDate.Equal(r.RunDate) {
		t.Errorf("RunDate mismatch: got %v, want %v", got.RunDate, r.RunDate)
	}
}

func TestGetRunByPrefix(t *testing.T) {
	db := setupTestDB(t)

	r := newRun(3, 0, models.TriggerManual)
	if err := db.CreateRun(r); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	got, err := db.GetRun(r.ID.String()[:8])
	if err != nil {
		t.Fatalf("GetRun by prefix failed: %v", err)
	}
	if got.ID != r.ID {
		t.Errorf("ID mismatch: got %v, want %v", got.ID, r.ID)
	}

	if _, err := db.GetRun("zzzzzzzz"); err == nil {
		t.Error("Expected error for unknown prefix")
	}
}

func TestListRuns(t *testing.T) {
	db := setupTestDB(t)

	r1 := newRun(5, 14, models.TriggerColdStart)
	r2 := newRun(4, 7, models.TriggerFreshData)
	r3 := newRun(3, 0, models.TriggerFreshData)
	for _, r := range []*models.TrainingRun{r1, r2, r3} {
		if err := db.CreateRun(r); err != nil {
			t.Fatalf("CreateRun failed: %v", err)
		}
	}

	all, err := db.ListRuns(nil, 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 runs, got %d", len(all))
	}
	if all[0].ID != r3.ID {
		t.Errorf("Expected most recent first, got %v", all[0].ID)
	}

	fresh := models.TriggerFreshData
	filtered, err := db.ListRuns(&fresh, 0)
	if err != nil {
		t.Fatalf("ListRuns with trigger failed: %v", err)
	}
	if len(filtered) != 2 {
		t.Errorf("Expected 2 fresh_data runs, got %d", len(filtered))
	}

	limited, err := db.ListRuns(nil, 2)
	if err != nil {
		t.Fatalf("ListRuns with limit failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("Expected 2 runs with limit, got %d", len(limited))
	}
}

func TestGetLatestRun(t *testing.T) {
	db := setupTestDB(t)

	if _, err := db.GetLatestRun(); err == nil {
		t.Error("Expected error on empty registry")
	}

	older := newRun(5, 3, models.TriggerColdStart)
	newer := newRun(4, 1, models.TriggerForced)
	for _, r := range []*models.TrainingRun{newer, older} {
		if err := db.CreateRun(r); err != nil {
			t.Fatalf("CreateRun failed: %v", err)
		}
	}

	got, err := db.GetLatestRun()
	if err != nil {
		t.Fatalf("GetLatestRun failed: %v", err)
	}
	if got.ID != newer.ID {
		t.Errorf("Expected newest run, got %v", got.ID)
	}
}

func TestDeleteRun(t *testing.T) {
	db := setupTestDB(t)

	r := newRun(3, 0, models.TriggerManual)
	if err := db.CreateRun(r); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if err := db.DeleteRun(r.ID.String()); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}
	if _, err := db.GetRun(r.ID.String()); err == nil {
		t.Error("Expected error after delete")
	}
	if err := db.DeleteRun(r.ID.String()); err == nil {
		t.Error("Expected error deleting twice")
	}
}

func TestExportFormats(t *testing.T) {
	db := setupTestDB(t)

	for _, r := range []*models.TrainingRun{newRun(5, 2, models.TriggerColdStart), newRun(4, 0, models.TriggerForced)} {
		if err := db.CreateRun(r); err != nil {
			t.Fatalf("CreateRun failed: %v", err)
		}
	}

	jsonData, err := db.ExportJSON()
	if err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}
	var decoded ExportData
	if err := json.Unmarshal(jsonData, &decoded); err != nil {
		t.Fatalf("ExportJSON produced invalid JSON: %v", err)
	}
	if len(decoded.Runs) != 2 || decoded.Tool != "stress" {
		t.Errorf("Unexpected export: %d runs, tool %q", len(decoded.Runs), decoded.Tool)
	}

	yamlData, err := db.ExportYAML()
	if err != nil {
		t.Fatalf("ExportYAML failed: %v", err)
	}
	if !strings.Contains(string(yamlData), "cold_start:") {
		t.Errorf("YAML export missing trigger group:\n%s", yamlData)
	}

	md, err := db.ExportMarkdown(nil, nil)
	if err != nil {
		t.Fatalf("ExportMarkdown failed: %v", err)
	}
	if !strings.Contains(md, "## forced") || !strings.Contains(md, "| Date | Model | RMSE | Artifact |") {
		t.Errorf("Markdown export missing sections:\n%s", md)
	}
}

func TestImportJSON(t *testing.T) {
	src := setupTestDB(t)
	r := newRun(2.5, 0, models.TriggerManual)
	if err := src.CreateRun(r); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	data, err := src.ExportJSON()
	if err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}

	dst := setupTestDB(t)
	if err := dst.ImportJSON(data); err != nil {
		t.Fatalf("ImportJSON failed: %v", err)
	}
	got, err := dst.GetRun(r.ID.String())
	if err != nil {
		t.Fatalf("GetRun after import failed: %v", err)
	}
	if got.RMSE != 2.5 {
		t.Errorf("RMSE mismatch after import: got %v", got.RMSE)
	}
}

func TestRepositoryInterface(t *testing.T) {
	var _ Repository = setupTestDB(t)
}
