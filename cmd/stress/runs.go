// ABOUTME: CLI commands for browsing the training-run registry.
// ABOUTME: Supports listing by trigger, showing one run, and deleting runs.
package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/harperreed/stress/internal/models"
	"github.com/spf13/cobra"
)

var (
	runsTrigger string
	runsLimit   int
)

var runsCmd = &cobra.Command{
	Use:     "runs",
	Aliases: []string{"ls"},
	Short:   "List training runs",
	Long: `List recent training runs from the run registry.

OUTPUT FORMAT:

  Each line shows: ID  DATE  TRIGGER  RMSE  ARTIFACT

  The ID is an 8-character prefix you can use with show and delete.

TRIGGERS:

  cold_start   no model existed yet
  fresh_data   the dataset had newer dates than the last model
  forced       --force-retrain
  manual       trained outside the retrain policy

EXAMPLES:

  stress runs                      # Show the last 20 runs
  stress runs --trigger forced     # Only forced runs
  stress runs -n 5                 # Show the last 5 runs`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var trigger *models.Trigger
		if runsTrigger != "" {
			if !models.IsValidTrigger(runsTrigger) {
				return fmt.Errorf("unknown trigger: %s", runsTrigger)
			}
			tr := models.Trigger(runsTrigger)
			trigger = &tr
		}

		db, err := requireRegistry()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		runs, err := db.ListRuns(trigger, runsLimit)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}

		if len(runs) == 0 {
			fmt.Println("No training runs found.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, r := range runs {
			fmt.Printf("%s %s %s %6.2f %s\n",
				faint.Sprint(r.ID.String()[:8]),
				faint.Sprint(r.RunDate.Format("2006-01-02")),
				padRight(string(r.Trigger), 11),
				r.RMSE,
				r.ArtifactPath)
		}
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one training run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := requireRegistry()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		r, err := db.GetRun(args[0])
		if err != nil {
			return fmt.Errorf("run not found: %s", args[0])
		}

		faint := color.New(color.Faint)
		color.New(color.Bold).Printf("%s  %s\n", r.Model, r.ID.String())
		fmt.Printf("  %s %s\n", faint.Sprint("date      "), r.RunDate.Format("2006-01-02 15:04"))
		fmt.Printf("  %s %s %s\n", faint.Sprint("trigger   "), r.Trigger, faint.Sprintf("(%s)", r.Trigger.Description()))
		fmt.Printf("  %s %.2f\n", faint.Sprint("rmse      "), r.RMSE)
		fmt.Printf("  %s %.4f\n", faint.Sprint("cv score  "), r.CVScore)
		fmt.Printf("  %s %d train / %d test\n", faint.Sprint("rows      "), r.TrainRows, r.TestRows)
		fmt.Printf("  %s %s\n", faint.Sprint("duration  "), r.Duration)
		fmt.Printf("  %s %s\n", faint.Sprint("artifact  "), r.ArtifactPath)
		if r.Notes != nil && *r.Notes != "" {
			fmt.Printf("  %s %s\n", faint.Sprint("notes     "), truncate(*r.Notes, 60))
		}
		return nil
	},
}

var runsDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"del", "rm"},
	Short:   "Delete a training run record",
	Long: `Delete a training run from the registry by its ID or ID prefix.

Only the registry record is removed. The model artifact and the metrics
log row stay in place.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := requireRegistry()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		r, err := db.GetRun(args[0])
		if err != nil {
			return fmt.Errorf("run not found: %s", args[0])
		}
		if err := db.DeleteRun(args[0]); err != nil {
			return fmt.Errorf("failed to delete run: %w", err)
		}

		color.Yellow("✗ Deleted run %s", r.ID.String()[:8])
		fmt.Printf("  %s %s %.2f\n",
			color.New(color.Faint).Sprint(r.RunDate.Format("2006-01-02")),
			r.Trigger, r.RMSE)
		return nil
	},
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func padRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}

func init() {
	runsCmd.Flags().StringVarP(&runsTrigger, "trigger", "t", "", "filter by trigger")
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "max number of results")
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsDeleteCmd)
	rootCmd.AddCommand(runsCmd)
}
