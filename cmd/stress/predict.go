// ABOUTME: CLI command for scoring one feature row with the latest model.
// ABOUTME: Features are given as name=value arguments.
package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/harperreed/stress/internal/predict"
	"github.com/spf13/cobra"
)

var predictCmd = &cobra.Command{
	Use:   "predict <feature=value>...",
	Short: "Predict the stress score for one day",
	Long: `Predict the stress score from one row of features using the newest
model artifact.

Every feature the model was trained on must be given. Use 'nan' for a
missing value to see the validation error.

EXAMPLES:

  stress predict heart_max_rate=140 heart_min_rate=52 heart_rate=71 \
    stress_max=88 stress_min=12 heart_min_rate_lag1=54 \
    heart_min_rate_lag2=53 heart_min_rate_lag3=55`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		row, err := parseFeatureArgs(args)
		if err != nil {
			return err
		}

		predictor := predict.New(cfg.ModelsDir(), predict.ArtifactLoader)
		score, err := predictor.Predict(cmd.Context(), row)
		if err != nil {
			return err
		}

		fmt.Printf("%s %.2f\n", color.New(color.Bold).Sprint("Predicted stress score:"), math.Round(score*100)/100)
		return nil
	},
}

// parseFeatureArgs turns name=value arguments into a feature row.
func parseFeatureArgs(args []string) (predict.Row, error) {
	row := make(predict.Row, len(args))
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid feature %q (use name=value)", arg)
		}
		if _, dup := row[name]; dup {
			return nil, fmt.Errorf("feature %q given twice", name)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %s", name, raw)
		}
		row[name] = v
	}
	return row, nil
}

func init() {
	rootCmd.AddCommand(predictCmd)
}
