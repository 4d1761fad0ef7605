package main

import (
	"context"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gammalab-data/specfit/internal/db"
	"github.com/gammalab-data/specfit/internal/monitor"
)

var (
	serveListen string
	serveDBPath string
	serveConfig string
	serveInput  string
	serveShape  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the counting-house monitor",
	Long: `Serves the monitor HTTP interface: status page, JSON API and charts.
Settings come from SPECFIT_* environment variables; flags override them.
With --input the spectrum is loaded and fitted before serving, so the
charts have something to show immediately.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "HTTP listen address (overrides SPECFIT_LISTEN_ADDR)")
	serveCmd.Flags().StringVar(&serveDBPath, "db", "", "sqlite database path (overrides SPECFIT_DB_PATH)")
	serveCmd.Flags().StringVar(&serveConfig, "config", "", "Tuning config JSON (built-in defaults when omitted)")
	serveCmd.Flags().StringVar(&serveInput, "input", "", "Spectrum to load and fit at startup")
	serveCmd.Flags().StringVar(&serveShape, "shape", "", "Peak shape for the startup fit")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := monitor.ConfigFromEnv()
	if err != nil {
		return err
	}
	if serveListen != "" {
		cfg.ListenAddr = serveListen
	}
	if serveDBPath != "" {
		cfg.DBPath = serveDBPath
	}

	tuning, err := loadTuning(serveConfig)
	if err != nil {
		return err
	}
	tuning.ApplyWaveformDefaults()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.MigrateUp(); err != nil {
		return err
	}

	stats := monitor.NewFitStats(nil)
	server := monitor.NewWebServer(monitor.WebServerConfig{
		Address:    cfg.ListenAddr,
		Stats:      stats,
		DB:         database,
		Tuning:     tuning,
		ExportDir:  cfg.ExportDir,
		ChartTheme: cfg.ChartTheme,
	})

	if serveInput != "" {
		s, err := loadSpectrum(serveInput)
		if err != nil {
			return err
		}
		peaks, err := analyzeSpectrum(s, tuning, serveShape, nil, stats)
		if err != nil {
			return err
		}
		server.SetSpectrum(s, peaks)
		slog.Info("startup fit complete", "spectrum", s.Name(), "peaks", len(peaks))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		stats.LogLoop(ctx, cfg.StatsInterval)
	}()

	slog.Info("monitor starting", "listen", cfg.ListenAddr, "db", cfg.DBPath)
	err = server.Start(ctx)
	wg.Wait()
	return err
}
