// Package slo evaluates completed requests against latency service-level
// objectives and aggregates attainment statistics. Evaluation is a pure fold
// over immutable results: re-running it over the same set yields identical
// tallies.
package slo

import (
	"sort"

	"github.com/slobench/slobench/pkg/models"
)

// Thresholds are the base latency bounds in seconds. Each request scales
// them by its own SLO ratio before comparison.
type Thresholds struct {
	TargetTTFT float64 // Time to first token
	TargetTPOT float64 // Max gap between consecutive tokens
}

// Evaluate checks a single result against the scaled thresholds. It returns
// whether the request attained its SLO and how many tokens it contributes to
// the token-attainment tally: len(token_timestamps) when attained, 0
// otherwise. A request whose first token misses the TTFT bound contributes
// nothing regardless of its later deltas; a single-token output attains on
// the first-token check alone.
func (t Thresholds) Evaluate(r *models.RequestResult) (attained bool, tokens int) {
	if r.FirstTokenLatency() > t.TargetTTFT*r.SLORatio {
		return false, 0
	}
	for i := 1; i < len(r.TokenTimestamps); i++ {
		if r.TokenTimestamps[i]-r.TokenTimestamps[i-1] > t.TargetTPOT*r.SLORatio {
			return false, 0
		}
	}
	return true, len(r.TokenTimestamps)
}

// Tally holds running attainment counters folded over a result set.
type Tally struct {
	TotalRequests     int `json:"total_requests"`
	RequestsAttained  int `json:"requests_attained"`
	TokensAttained    int `json:"tokens_attained"`
	TotalOutputTokens int `json:"total_output_tokens"`
}

// Add folds one evaluated result into the tally.
func (ta *Tally) Add(r *models.RequestResult, attained bool, tokens int) {
	ta.TotalRequests++
	ta.TotalOutputTokens += r.OutputLen
	if attained {
		ta.RequestsAttained++
	}
	ta.TokensAttained += tokens
}

// Aggregate evaluates every result and returns the combined tally.
func Aggregate(results []*models.RequestResult, t Thresholds) Tally {
	var tally Tally
	for _, r := range results {
		attained, tokens := t.Evaluate(r)
		tally.Add(r, attained, tokens)
	}
	return tally
}

// Report is the aggregate view of a completed run.
type Report struct {
	Tally Tally `json:"tally"`

	TotalTimeSeconds  float64 `json:"total_time_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	AttainmentRate    float64 `json:"request_attainment_rate"` // attained / total
	TokenGoodput      float64 `json:"token_goodput"`           // attained tokens / wall time

	// TTFT distribution across all results, in seconds
	TTFTMean float64 `json:"ttft_mean"`
	TTFTP50  float64 `json:"ttft_p50"`
	TTFTP90  float64 `json:"ttft_p90"`
	TTFTP99  float64 `json:"ttft_p99"`
}

// BuildReport aggregates results against the thresholds over the measured
// wall-clock time of the run.
func BuildReport(results []*models.RequestResult, t Thresholds, totalTime float64) Report {
	report := Report{
		Tally:            Aggregate(results, t),
		TotalTimeSeconds: totalTime,
	}
	if totalTime > 0 {
		report.RequestsPerSecond = float64(len(results)) / totalTime
		report.TokenGoodput = float64(report.Tally.TokensAttained) / totalTime
	}
	if len(results) > 0 {
		report.AttainmentRate = float64(report.Tally.RequestsAttained) / float64(len(results))
	}

	samples := make([]float64, 0, len(results))
	for _, r := range results {
		if len(r.TokenTimestamps) > 0 {
			samples = append(samples, r.FirstTokenLatency())
		}
	}
	if len(samples) > 0 {
		sort.Float64s(samples)
		report.TTFTMean = mean(samples)
		report.TTFTP50 = percentile(samples, 50)
		report.TTFTP90 = percentile(samples, 90)
		report.TTFTP99 = percentile(samples, 99)
	}
	return report
}

func percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (len(sorted) - 1) * p / 100
	return sorted[idx]
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
