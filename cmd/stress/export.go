// ABOUTME: CLI commands for exporting and importing the training-run registry.
// ABOUTME: Supports JSON, YAML, and Markdown export formats.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/harperreed/stress/internal/models"
	"github.com/spf13/cobra"
)

var (
	exportOutput  string
	exportTrigger string
	exportSince   string
)

var exportCmd = &cobra.Command{
	Use:   "export <format>",
	Short: "Export training runs",
	Long: `Export the training-run registry in various formats.

FORMATS:

  json       Full JSON export (suitable for backup/restore)
  yaml       YAML export grouped by trigger
  markdown   Markdown table (for documentation/sharing)

OPTIONS:

  --output, -o    Write to file instead of stdout
  --trigger, -t   Filter by trigger (markdown only)
  --since         Only include runs since this date (YYYY-MM-DD, markdown only)

EXAMPLES:

  stress export json -o runs.json          # Back up the registry
  stress export markdown --since 2025-01-01`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"json", "yaml", "markdown"},
	RunE: func(cmd *cobra.Command, args []string) error {
		format := args[0]

		db, err := requireRegistry()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		var data []byte
		switch format {
		case "json":
			data, err = db.ExportJSON()
		case "yaml":
			data, err = db.ExportYAML()
		case "markdown":
			var trigger *models.Trigger
			if exportTrigger != "" {
				if !models.IsValidTrigger(exportTrigger) {
					return fmt.Errorf("unknown trigger: %s", exportTrigger)
				}
				tr := models.Trigger(exportTrigger)
				trigger = &tr
			}
			var since *time.Time
			if exportSince != "" {
				t, perr := time.Parse("2006-01-02", exportSince)
				if perr != nil {
					return fmt.Errorf("invalid date format: %s (use YYYY-MM-DD)", exportSince)
				}
				since = &t
			}
			var md string
			md, err = db.ExportMarkdown(trigger, since)
			data = []byte(md)
		default:
			return fmt.Errorf("unknown format: %s (use json, yaml, or markdown)", format)
		}

		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		if exportOutput != "" {
			if err := os.WriteFile(exportOutput, data, 0600); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}
			color.Green("✓ Exported to %s", exportOutput)
		} else {
			fmt.Println(string(data))
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import training runs from JSON",
	Long: `Import training runs from a JSON file written by 'stress export json'.

Duplicate runs (same ID) cause an error; runs before the duplicate stay imported.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := args[0]

		data, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		db, err := requireRegistry()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		if err := db.ImportJSON(data); err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		color.Green("✓ Imported from %s", filename)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")
	exportCmd.Flags().StringVarP(&exportTrigger, "trigger", "t", "", "filter by trigger (markdown only)")
	exportCmd.Flags().StringVar(&exportSince, "since", "", "only include runs since date (YYYY-MM-DD)")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
