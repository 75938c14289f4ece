// ABOUTME: CLI commands for building the dataset and training the model.
// ABOUTME: train applies the retrain policy; transform only rebuilds the dataset.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/harperreed/stress/internal/features"
	"github.com/harperreed/stress/internal/retrain"
	"github.com/harperreed/stress/internal/training"
	"github.com/spf13/cobra"
)

var (
	trainForce   bool
	trainRefresh bool
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a new model when the policy calls for one",
	Long: `Decide whether to retrain and, if so, train and persist a new model.

POLICY:

  No model yet            train from scratch
  Newer data              train when the dataset has dates past the last
                          model and the last model is older than
                          min_model_age_days (default 7)
  --force-retrain         train even when the model is up to date
  Otherwise               print "model is up to date" and exit

Every training run rebuilds the merged dataset from the raw exports first,
holds out the last test_window_days (default 90) for evaluation, and
appends a row to the metrics log once the artifact is written. When
telemetry.pushgateway is set, run metrics are pushed there on exit.

EXAMPLES:

  stress train                        # Apply the policy
  stress train --force-retrain        # Always train
  stress train --refresh-data         # Rebuild the dataset before checking freshness`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		reg, m := newMetrics()
		defer pushMetrics(reg, "train")

		deps := training.Deps{Logger: logger, Metrics: m}
		if db := openRegistry(); db != nil {
			defer func() { _ = db.Close() }()
			deps.Registry = db
		}

		trainer := training.NewTrainer(cfg, deps)
		pipeline := retrain.NewPipeline(cfg, trainer, retrain.Options{Logger: logger, Metrics: m})

		out, err := pipeline.Run(ctx, retrain.RunOptions{Force: trainForce, RefreshData: trainRefresh})
		if err != nil {
			return err
		}

		if out.Result == nil {
			fmt.Println(out.Decision.Reason)
			return nil
		}

		faint := color.New(color.Faint)
		color.Green("✓ Trained %s (%s)", out.Result.Model.Name, out.Decision.Trigger)
		fmt.Printf("  %s %.2f\n", faint.Sprint("rmse     "), out.Result.RMSE)
		fmt.Printf("  %s %s\n", faint.Sprint("artifact "), out.Result.ArtifactPath)
		fmt.Printf("  %s %d train / %d test (cutoff %s)\n", faint.Sprint("rows     "),
			out.Result.TrainRows, out.Result.TestRows, out.Result.Cutoff.Format("2006-01-02"))
		return nil
	},
}

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Rebuild the merged dataset from raw exports",
	Long: `Load every raw export, aggregate it to one row per day, outer-join the
sources on date, add lagged features, and write the merged dataset.

The dataset file is replaced atomically, so a failed run leaves the
previous dataset in place.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, m := newMetrics()
		defer pushMetrics(reg, "transform")

		merger := features.NewMerger(cfg, logger, m)
		frame, err := merger.Run(cmd.Context())
		if err != nil {
			return err
		}

		color.Green("✓ Wrote %s", merger.Path())
		fmt.Printf("  %d rows, %d columns\n", frame.Len(), len(frame.Columns))
		if last, ok := frame.MaxDate(); ok {
			fmt.Printf("  %s %s\n", color.New(color.Faint).Sprint("last date"), last.Format("2006-01-02"))
		}
		return nil
	},
}

func init() {
	trainCmd.Flags().BoolVar(&trainForce, "force-retrain", false, "train even when the model is up to date")
	trainCmd.Flags().BoolVar(&trainRefresh, "refresh-data", false, "rebuild the dataset before checking freshness")
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(transformCmd)
}
