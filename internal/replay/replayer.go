// Package replay executes a recorded request trace against a running
// inference server. Every trace record becomes one concurrent task that
// sends as close as possible to its planned emission time, never earlier,
// and retries until the server produces a clean response.
package replay

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/slobench/slobench/internal/metrics"
	"github.com/slobench/slobench/internal/trace"
	"github.com/slobench/slobench/pkg/models"
)

// DefaultRequestTimeout bounds a single request across all of its retries.
const DefaultRequestTimeout = 3 * time.Hour

// Replayer schedules and sends trace records against one endpoint. The run
// epoch is captured once at the top of Run and passed by value to every
// task; there is no other shared mutable state between tasks.
type Replayer struct {
	client  *Client
	logger  *slog.Logger
	clock   func() time.Time
	timeout time.Duration

	// Load-shaping knobs. Zero values preserve the intended behavior:
	// unlimited concurrency, unlimited retries, no rate limit.
	maxConcurrency int
	maxRetries     int
	limiter        *rate.Limiter

	verbose bool
}

// Option configures the replayer
type Option func(*Replayer)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(r *Replayer) {
		r.logger = logger
	}
}

// WithTimeout sets the per-request hard deadline spanning all retries
func WithTimeout(d time.Duration) Option {
	return func(r *Replayer) {
		r.timeout = d
	}
}

// WithMaxConcurrency caps the number of requests in flight at once.
// 0 means one task per trace record with no cap.
func WithMaxConcurrency(n int) Option {
	return func(r *Replayer) {
		r.maxConcurrency = n
	}
}

// WithMaxRetries bounds the number of send attempts per request.
// 0 means retry forever.
func WithMaxRetries(n int) Option {
	return func(r *Replayer) {
		r.maxRetries = n
	}
}

// WithRateLimit throttles sends to at most rps requests per second.
// 0 disables the limiter.
func WithRateLimit(rps float64) Option {
	return func(r *Replayer) {
		if rps > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithClock injects a time source, used by tests
func WithClock(clock func() time.Time) Option {
	return func(r *Replayer) {
		r.clock = clock
	}
}

// WithVerbose enables per-request prompt and output logging
func WithVerbose(verbose bool) Option {
	return func(r *Replayer) {
		r.verbose = verbose
	}
}

// New creates a replayer targeting the given /generate URL.
func New(url string, opts ...Option) *Replayer {
	r := &Replayer{
		client:  NewClient(url),
		logger:  slog.Default(),
		clock:   time.Now,
		timeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run replays all records and returns their results in trace order. It
// always waits for every task to finish; if any task failed (deadline
// expiry, exhausted retries, or cancellation) the first such error is
// returned and no results are produced.
func (r *Replayer) Run(ctx context.Context, records []trace.Record) ([]*models.RequestResult, time.Duration, error) {
	epoch := r.clock()

	var sem chan struct{}
	if r.maxConcurrency > 0 {
		sem = make(chan struct{}, r.maxConcurrency)
	}

	results := make([]*models.RequestResult, len(records))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i, rec := range records {
		wg.Add(1)
		go func(idx int, rec trace.Record) {
			defer wg.Done()
			res, err := r.replayOne(ctx, epoch, idx, rec, sem)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			results[idx] = res
		}(i, rec)
	}
	wg.Wait()

	elapsed := r.clock().Sub(epoch)
	if firstErr != nil {
		return nil, elapsed, firstErr
	}
	return results, elapsed, nil
}

// replayOne runs the full lifecycle of a single record: scheduled wait,
// retry-until-clean send loop, and result construction.
func (r *Replayer) replayOne(ctx context.Context, epoch time.Time, idx int, rec trace.Record, sem chan struct{}) (*models.RequestResult, error) {
	logger := r.logger.With(slog.Int("request_index", idx))

	// Best effort: already-late records send immediately, no catch-up.
	wait := time.Duration(rec.EmissionTimeMS*float64(time.Millisecond)) - r.clock().Sub(epoch)
	if wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if sem != nil {
		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	payload := NewGenerateRequest(rec.Prompt, rec.OutputLength)

	reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	sentAt := r.clock()
	attempts := 0
	var resp *GenerateResponse
	for {
		attempts++
		metrics.RequestsSent.Inc()
		metrics.RequestsInFlight.Inc()
		out, err := r.client.Do(reqCtx, payload)
		metrics.RequestsInFlight.Dec()
		if err == nil {
			resp = out
			break
		}

		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			logger.Error("request exceeded hard deadline",
				slog.Duration("timeout", r.timeout),
				slog.Int("attempts", attempts))
			return nil, &TransportTimeoutError{Prompt: rec.Prompt, Timeout: r.timeout}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		reason := retryReason(err)
		metrics.RequestRetries.WithLabelValues(reason).Inc()
		logger.Warn("request failed, resending",
			slog.String("reason", reason),
			slog.String("error", err.Error()),
			slog.String("prompt", rec.Prompt),
			slog.Int("max_tokens", payload.MaxTokens))

		if r.maxRetries > 0 && attempts >= r.maxRetries {
			return nil, &RetriesExhaustedError{Prompt: rec.Prompt, Attempts: attempts, LastErr: err}
		}
	}
	endAt := r.clock()

	metrics.RequestsCompleted.Inc()
	metrics.TokensReceived.Add(float64(len(resp.Timestamps)))
	metrics.RequestDuration.Observe(endAt.Sub(sentAt).Seconds())

	if r.verbose {
		logger.Info("request completed",
			slog.String("prompt", rec.Prompt),
			slog.String("output", resp.Text),
			slog.Int("tokens", len(resp.Timestamps)),
			slog.Int("attempts", attempts))
	}

	return &models.RequestResult{
		PromptLen:       rec.InputLength,
		OutputLen:       rec.OutputLength,
		StartTime:       unixSeconds(sentAt),
		EndTime:         unixSeconds(endAt),
		SLORatio:        rec.SLORatio,
		TokenTimestamps: resp.Timestamps,
		LifetimeEvents:  resp.LifetimeEvents,
	}, nil
}

func retryReason(err error) string {
	var ae *ApplicationError
	var me *MalformedResponseError
	switch {
	case errors.As(err, &ae):
		return metrics.ReasonAppError
	case errors.As(err, &me):
		return metrics.ReasonMalformed
	default:
		return metrics.ReasonTransport
	}
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
