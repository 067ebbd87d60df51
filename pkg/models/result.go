package models

import "encoding/json"

// RequestResult captures the measured outcome of a single replayed request.
// It is created once by the replayer when a well-formed, error-free response
// has been obtained and is never mutated afterwards. All timestamps are Unix
// seconds so client-side send times and server-reported token arrival times
// share one clock.
type RequestResult struct {
	PromptLen       int             `json:"prompt_len"`
	OutputLen       int             `json:"output_len"`
	StartTime       float64         `json:"start_time"` // Request send time
	EndTime         float64         `json:"end_time"`   // Full response received
	SLORatio        float64         `json:"slo_ratio"`
	TokenTimestamps []float64       `json:"token_timestamps"` // One entry per emitted token, monotonic
	LifetimeEvents  json.RawMessage `json:"lifetime_events,omitempty"`
}

// Latency returns the end-to-end request latency in seconds.
func (r *RequestResult) Latency() float64 {
	return r.EndTime - r.StartTime
}

// FirstTokenLatency returns the time from send to first token arrival in
// seconds, or 0 if the server reported no token timestamps.
func (r *RequestResult) FirstTokenLatency() float64 {
	if len(r.TokenTimestamps) == 0 {
		return 0
	}
	return r.TokenTimestamps[0] - r.StartTime
}

// AvgTPOT returns the mean gap between consecutive token arrivals in seconds.
// A single-token output has no gaps and yields 0.
func (r *RequestResult) AvgTPOT() float64 {
	n := len(r.TokenTimestamps)
	if n < 2 {
		return 0
	}
	return (r.TokenTimestamps[n-1] - r.TokenTimestamps[0]) / float64(n-1)
}
