// ABOUTME: Export and import of the training-run registry.
// ABOUTME: Supports JSON, YAML, and Markdown export formats.
package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harperreed/stress/internal/models"
	"gopkg.in/yaml.v3"
)

// ExportData represents the full export format for the run registry.
type ExportData struct {
	Version    string                `json:"version" yaml:"version"`
	ExportedAt time.Time             `json:"exported_at" yaml:"exported_at"`
	Tool       string                `json:"tool" yaml:"tool"`
	Runs       []*models.TrainingRun `json:"runs" yaml:"runs"`
}

// GetAllData retrieves all runs for export.
func (d *DB) GetAllData() (*ExportData, error) {
	runs, err := d.ListRuns(nil, 0)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	return &ExportData{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Tool:       "stress",
		Runs:       runs,
	}, nil
}

// ImportData imports runs from an export.
func (d *DB) ImportData(data *ExportData) error {
	for _, r := range data.Runs {
		if err := d.CreateRun(r); err != nil {
			return fmt.Errorf("import run: %w", err)
		}
	}
	return nil
}

// ExportJSON exports all runs as JSON.
func (d *DB) ExportJSON() ([]byte, error) {
	data, err := d.GetAllData()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(data, "", "  ")
}

// ExportYAML exports all runs as YAML, grouped by trigger.
func (d *DB) ExportYAML() ([]byte, error) {
	data, err := d.GetAllData()
	if err != nil {
		return nil, err
	}

	yamlData := struct {
		Version    string               `yaml:"version"`
		ExportedAt string               `yaml:"exported_at"`
		Tool       string               `yaml:"tool"`
		Runs       map[string][]yamlRun `yaml:"runs"`
	}{
		Version:    data.Version,
		ExportedAt: data.ExportedAt.Format(time.RFC3339),
		Tool:       data.Tool,
		Runs:       make(map[string][]yamlRun),
	}

	for _, r := range data.Runs {
		yr := yamlRun{
			ID:       r.ID.String()[:8],
			RunDate:  r.RunDate.Format(time.RFC3339),
			Model:    r.Model,
			RMSE:     r.RMSE,
			Artifact: r.ArtifactPath,
		}
		if r.Notes != nil {
			yr.Notes = *r.Notes
		}
		yamlData.Runs[string(r.Trigger)] = append(yamlData.Runs[string(r.Trigger)], yr)
	}

	return yaml.Marshal(yamlData)
}

type yamlRun struct {
	ID       string  `yaml:"id"`
	RunDate  string  `yaml:"run_date"`
	Model    string  `yaml:"model"`
	RMSE     float64 `yaml:"rmse"`
	Artifact string  `yaml:"artifact"`
	Notes    string  `yaml:"notes,omitempty"`
}

// ExportMarkdown exports runs as Markdown tables, one per trigger.
func (d *DB) ExportMarkdown(trigger *models.Trigger, since *time.Time) (string, error) {
	runs, err := d.ListRuns(trigger, 0)
	if err != nil {
		return "", err
	}

	if since != nil {
		var filtered []*models.TrainingRun
		for _, r := range runs {
			if !r.RunDate.Before(*since) {
				filtered = append(filtered, r)
			}
		}
		runs = filtered
	}

	grouped := make(map[models.Trigger][]*models.TrainingRun)
	for _, r := range runs {
		grouped[r.Trigger] = append(grouped[r.Trigger], r)
	}
	var triggers []models.Trigger
	for t := range grouped {
		triggers = append(triggers, t)
	}
	sort.Slice(triggers, func(i, j int) bool {
		return string(triggers[i]) < string(triggers[j])
	})

	var sb strings.Builder
	now := time.Now()
	sb.WriteString(fmt.Sprintf("# Training Runs - %s\n\n", now.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", now.Format(time.RFC3339)))

	for _, t := range triggers {
		sb.WriteString(fmt.Sprintf("## %s\n\n", t))
		sb.WriteString("| Date | Model | RMSE | Artifact |\n")
		sb.WriteString("|------|-------|------|----------|\n")
		for _, r := range grouped[t] {
			sb.WriteString(fmt.Sprintf("| %s | %s | %.2f | %s |\n",
				r.RunDate.Format("2006-01-02 15:04"), r.Model, r.RMSE, r.ArtifactPath))
		}
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

// ImportJSON imports runs from JSON bytes.
func (d *DB) ImportJSON(data []byte) error {
	var exportData ExportData
	if err := json.Unmarshal(data, &exportData); err != nil {
		return fmt.Errorf("unmarshal JSON: %w", err)
	}
	return d.ImportData(&exportData)
}
