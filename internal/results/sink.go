// Package results persists completed request results and renders the
// human-readable run summary.
package results

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/slobench/slobench/internal/slo"
	"github.com/slobench/slobench/pkg/models"
)

// Write serializes the full ordered result set to path as an indented JSON
// array, creating parent directories as needed.
func Write(path string, results []*models.RequestResult) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Load reads a persisted result set back. Together with Write it round-trips
// every field exactly, so the evaluator can be re-run over old output.
func Load(path string) ([]*models.RequestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var results []*models.RequestResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to parse results file %s: %w", path, err)
	}
	return results, nil
}

// PrintSummary writes the run summary lines to w.
func PrintSummary(w io.Writer, report slo.Report) {
	t := report.Tally
	fmt.Fprintf(w, "Total time: %.2f s\n", report.TotalTimeSeconds)
	fmt.Fprintf(w, "Throughput:\n")
	fmt.Fprintf(w, "\t%.2f requests/s\n", report.RequestsPerSecond)
	fmt.Fprintf(w, "Request SLO Attainment:\n")
	fmt.Fprintf(w, "\t%.2f%%\n", report.AttainmentRate*100)
	fmt.Fprintf(w, "\t%d / %d\n", t.RequestsAttained, t.TotalRequests)
	fmt.Fprintf(w, "Token SLO Goodput:\n")
	fmt.Fprintf(w, "\t%.2f tokens/s\n", report.TokenGoodput)
	fmt.Fprintf(w, "\t%d / %d\n", t.TokensAttained, t.TotalOutputTokens)
	fmt.Fprintf(w, "TTFT:\n")
	fmt.Fprintf(w, "\tmean %.3f s, p50 %.3f s, p90 %.3f s, p99 %.3f s\n",
		report.TTFTMean, report.TTFTP50, report.TTFTP90, report.TTFTP99)
}
