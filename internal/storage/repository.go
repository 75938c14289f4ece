// ABOUTME: Repository interface for the training-run registry.
// ABOUTME: Defines the contract the trainer, CLI, and MCP server use.
package storage

import (
	"github.com/harperreed/stress/internal/models"
)

// Repository defines the storage interface for training runs.
type Repository interface {
	CreateRun(r *models.TrainingRun) error
	GetRun(idOrPrefix string) (*models.TrainingRun, error)
	ListRuns(trigger *models.Trigger, limit int) ([]*models.TrainingRun, error)
	DeleteRun(idOrPrefix string) error
	GetLatestRun() (*models.TrainingRun, error)

	GetAllData() (*ExportData, error)

	Close() error
}
