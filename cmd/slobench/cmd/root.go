package cmd

import (
	"github.com/spf13/cobra"

	"github.com/slobench/slobench/internal/logging"
)

var (
	configFile string
	logLevel   string
	logFormat  string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "slobench",
	Short: "Trace-driven SLO benchmark harness for LLM inference servers",
	Long: `slobench replays a pre-recorded request trace against a running
inference server, measures per-token latency, and computes SLO attainment
statistics.

Each trace record is sent at its planned emission offset relative to the run
epoch, one concurrent task per record. A request is retried until the server
produces a well-formed, error-free response; attainment is then judged
against time-to-first-token and time-per-output-token thresholds scaled by
each record's SLO ratio.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(logging.Config{Level: logLevel, Format: logFormat})
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (optional)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
}
