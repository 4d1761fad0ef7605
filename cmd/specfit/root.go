package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "specfit",
	Short: "Gamma-ray spectrum peak fitting and bookkeeping",
	Long: `specfit fits peak shapes to binned gamma-ray spectra, keeps the results
in a sqlite database, and serves a counting-house monitor with charts of
the loaded spectrum and its fits.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Setup logger
		var level slog.Level
		switch logLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}

		// Reports go to stdout, so keep the log stream on stderr.
		opts := &slog.HandlerOptions{Level: level}
		handler := slog.NewJSONHandler(os.Stderr, opts)
		slog.SetDefault(slog.New(handler))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}
