package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/slobench/slobench/internal/results"
	"github.com/slobench/slobench/internal/slo"
	"github.com/slobench/slobench/pkg/models"
)

var (
	evalInput     string
	evalBaseTTFT  float64
	evalBaseTPOT  float64
	evalTotalTime float64
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Re-evaluate a persisted results file",
	Long: `Re-run the SLO evaluator over a results file produced by a previous
replay run. Evaluation is deterministic: the same results and thresholds
always yield the same attainment tallies, so thresholds can be explored
after the fact without re-driving the server.

The wall-clock time used for goodput defaults to the span between the
earliest send and the latest completion in the file.`,
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVar(&evalInput, "input", "", "Path to a results JSON file (required)")
	evaluateCmd.Flags().Float64Var(&evalBaseTTFT, "base-ttft", 0.3, "Base time-to-first-token threshold in seconds")
	evaluateCmd.Flags().Float64Var(&evalBaseTPOT, "base-tpot", 0.1, "Base time-per-output-token threshold in seconds")
	evaluateCmd.Flags().Float64Var(&evalTotalTime, "total-time", 0, "Wall-clock time in seconds for goodput (0 = derive from results)")

	if err := evaluateCmd.MarkFlagRequired("input"); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	loaded, err := results.Load(evalInput)
	if err != nil {
		return err
	}
	if len(loaded) == 0 {
		return fmt.Errorf("no results in %s", evalInput)
	}

	totalTime := evalTotalTime
	if totalTime <= 0 {
		totalTime = spanSeconds(loaded)
	}

	thresholds := slo.Thresholds{TargetTTFT: evalBaseTTFT, TargetTPOT: evalBaseTPOT}
	report := slo.BuildReport(loaded, thresholds, totalTime)
	results.PrintSummary(os.Stdout, report)
	return nil
}

// spanSeconds returns the wall-clock span covered by the result set.
func spanSeconds(rs []*models.RequestResult) float64 {
	earliest := rs[0].StartTime
	latest := rs[0].EndTime
	for _, r := range rs[1:] {
		if r.StartTime < earliest {
			earliest = r.StartTime
		}
		if r.EndTime > latest {
			latest = r.EndTime
		}
	}
	return latest - earliest
}
