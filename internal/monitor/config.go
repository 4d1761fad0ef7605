package monitor

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the monitor server settings, loaded from the environment so
// counting-house deployments can point the same binary at different
// databases without flags.
type Config struct {
	ListenAddr    string        `env:"SPECFIT_LISTEN_ADDR" envDefault:":8089"`
	DBPath        string        `env:"SPECFIT_DB_PATH" envDefault:"data/specfit.db"`
	ExportDir     string        `env:"SPECFIT_EXPORT_DIR" envDefault:"exports"`
	ChartTheme    string        `env:"SPECFIT_CHART_THEME" envDefault:"dark"`
	StatsInterval time.Duration `env:"SPECFIT_STATS_INTERVAL" envDefault:"30s"`
}

// ConfigFromEnv loads configuration from environment variables.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
