// ABOUTME: CLI command for printing the training metrics log.
// ABOUTME: Shows one line per trained model, oldest first.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/harperreed/stress/internal/training"
	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Print the training metrics log",
	Long: `Print the metrics log: one row per trained model with the date, model
name, held-out RMSE, and artifact path.

The newest date in this log is what the retrain policy compares against
the dataset.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := training.MetricsLog{Path: cfg.MetricsLogPath()}.Entries()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No models trained yet.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, e := range entries {
			fmt.Printf("%s %s %6.2f %s\n",
				faint.Sprint(e.Date.Format("2006-01-02")),
				padRight(e.Model, 26),
				e.RMSE,
				e.Path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logCmd)
}
