package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tributai/tributai-migrate/internal/config"
	"github.com/tributai/tributai-migrate/internal/engine"
	"github.com/tributai/tributai-migrate/internal/logging"
)

var (
	cfgFile  string
	envFile  string
	logLevel string
	version  = "dev"
	commit   = "none"
	date     = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "tributai-migrate",
	Short: "PostgreSQL to SQL Server migration for the TRIBUTAI area difference tables",
	Long: `tributai-migrate copies diferencia_rural_area and diferencia_urbana_area from
PostgreSQL into SQL Server in fixed-size windows, then validates the result.

Connection settings come from the config file (default ~/.tributai/migrate.yaml),
a .env file with PG_* and SQLSERVER_* variables, or the environment.`,
	SilenceUsage: true,
}

func Execute() {
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.tributai/migrate.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file with PG_* and SQLSERVER_* variables (default: ./.env when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config")
}

// loadConfig reads the env file and the config, then validates it.
func loadConfig() (*config.Config, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newEngine loads the config and sets up logging. The returned closer
// flushes the log file.
func newEngine() (*engine.Engine, io.Closer, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, closer, err := logging.Setup(cfg.Logging.Level, cfg.Logging.Directory)
	if err != nil {
		return nil, nil, fmt.Errorf("setting up logging: %w", err)
	}
	return engine.New(cfg, logger), closer, nil
}
