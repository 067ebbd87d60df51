package cmd

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/slobench/slobench/internal/config"
	"github.com/slobench/slobench/internal/logging"
	"github.com/slobench/slobench/internal/replay"
	"github.com/slobench/slobench/internal/results"
	"github.com/slobench/slobench/internal/slo"
	"github.com/slobench/slobench/internal/trace"
)

var (
	replayDataset     string
	replayHost        string
	replayPort        string
	replayVerbose     bool
	replayOutput      string
	replayBaseTTFT    float64
	replayBaseTPOT    float64
	replayTimeout     time.Duration
	replayMaxConc     int
	replayMaxRetries  int
	replayMaxRPS      float64
	replayMetricsAddr string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a request trace against an inference server",
	Long: `Replay every record of a trace dataset against the target server's
/generate endpoint and report SLO attainment.

The dataset is a JSON array (or YAML sequence) of records:
  {"emission_time_ms": ..., "prompt": ..., "input_length": ...,
   "output_length": ..., "slo_ratio": ...}

All requests are scheduled up front against a single run epoch and executed
concurrently. The run only succeeds once every request has obtained a clean
response; results are then written to the output file and summarized.`,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayDataset, "dataset", "", "Path to the trace dataset (required)")
	replayCmd.Flags().StringVar(&replayHost, "host", "localhost", "Inference server host")
	replayCmd.Flags().StringVar(&replayPort, "port", "8000", "Inference server port")
	replayCmd.Flags().BoolVar(&replayVerbose, "verbose", false, "Log each prompt and output")
	replayCmd.Flags().StringVar(&replayOutput, "output", "logs/results.json", "Output file for results")
	replayCmd.Flags().Float64Var(&replayBaseTTFT, "base-ttft", 0.3, "Base time-to-first-token threshold in seconds")
	replayCmd.Flags().Float64Var(&replayBaseTPOT, "base-tpot", 0.1, "Base time-per-output-token threshold in seconds")
	replayCmd.Flags().DurationVar(&replayTimeout, "timeout", replay.DefaultRequestTimeout, "Per-request hard deadline spanning all retries")
	replayCmd.Flags().IntVar(&replayMaxConc, "max-concurrency", 0, "Cap on in-flight requests (0 = one task per record)")
	replayCmd.Flags().IntVar(&replayMaxRetries, "max-retries", 0, "Max send attempts per request (0 = retry forever)")
	replayCmd.Flags().Float64Var(&replayMaxRPS, "max-rps", 0, "Cap on request send rate (0 = unlimited)")
	replayCmd.Flags().StringVar(&replayMetricsAddr, "metrics-addr", "", "Listen address for Prometheus metrics during the run (empty = disabled)")

	if err := replayCmd.MarkFlagRequired("dataset"); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadReplayConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	runID := "run-" + uuid.New().String()[:8]
	ctx := logging.WithRunID(cmd.Context(), runID)
	ctx = logging.WithDataset(ctx, replayDataset)
	logger := logging.Logger(ctx)

	records, err := trace.Load(replayDataset)
	if err != nil {
		return err
	}

	logger.Info("starting replay",
		slog.String("target", cfg.GenerateURL()),
		slog.Int("records", len(records)),
		slog.String("output", cfg.Output.Path))

	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				logger.Warn("metrics endpoint stopped", slog.String("error", err.Error()))
			}
		}()
		logger.Info("metrics endpoint listening", slog.String("addr", cfg.Metrics.Addr))
	}

	replayer := replay.New(cfg.GenerateURL(),
		replay.WithLogger(logger),
		replay.WithTimeout(cfg.Replay.RequestTimeout),
		replay.WithMaxConcurrency(cfg.Replay.MaxConcurrency),
		replay.WithMaxRetries(cfg.Replay.MaxRetries),
		replay.WithRateLimit(cfg.Replay.MaxRPS),
		replay.WithVerbose(replayVerbose))

	runResults, elapsed, err := replayer.Run(ctx, records)
	if err != nil {
		return err
	}

	if err := results.Write(cfg.Output.Path, runResults); err != nil {
		return err
	}
	logger.Info("results written", slog.String("path", cfg.Output.Path))

	thresholds := slo.Thresholds{TargetTTFT: cfg.SLO.BaseTTFT, TargetTPOT: cfg.SLO.BaseTPOT}
	report := slo.BuildReport(runResults, thresholds, elapsed.Seconds())
	results.PrintSummary(os.Stdout, report)
	return nil
}

// loadReplayConfig resolves the layered configuration: file and environment
// first, then any explicitly set CLI flag on top.
func loadReplayConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Server.Host = replayHost
	}
	if flags.Changed("port") {
		cfg.Server.Port = replayPort
	}
	if flags.Changed("output") {
		cfg.Output.Path = replayOutput
	}
	if flags.Changed("base-ttft") {
		cfg.SLO.BaseTTFT = replayBaseTTFT
	}
	if flags.Changed("base-tpot") {
		cfg.SLO.BaseTPOT = replayBaseTPOT
	}
	if flags.Changed("timeout") {
		cfg.Replay.RequestTimeout = replayTimeout
	}
	if flags.Changed("max-concurrency") {
		cfg.Replay.MaxConcurrency = replayMaxConc
	}
	if flags.Changed("max-retries") {
		cfg.Replay.MaxRetries = replayMaxRetries
	}
	if flags.Changed("max-rps") {
		cfg.Replay.MaxRPS = replayMaxRPS
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = replayMetricsAddr
	}
	return cfg, nil
}
