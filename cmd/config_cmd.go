package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tributai/tributai-migrate/internal/config"
	"github.com/tributai/tributai-migrate/internal/schema"
	"github.com/tributai/tributai-migrate/internal/typemap"
)

var (
	configEnvOut    string
	configTypesYAML bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Create, view and validate the tributai-migrate configuration and column types.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file and .env template",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath := cfgFile
		if cfgPath == "" {
			cfgPath = config.ExpandHome(config.DefaultPath)
		}
		if err := config.WriteIfAbsent(cfgPath, nil, 0o600); err != nil {
			return err
		}
		if err := config.Starter().Save(cfgPath); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Printf("Config written to %s\n", cfgPath)

		if err := config.WriteIfAbsent(configEnvOut, []byte(config.EnvTemplate), 0o600); err != nil {
			fmt.Printf("Skipped env template: %v\n", err)
		} else {
			fmt.Printf("Env template written to %s (keep it out of version control)\n", configEnvOut)
		}

		fmt.Println()
		fmt.Println("Next steps:")
		fmt.Println("  1. Fill in the PG_* and SQLSERVER_* variables")
		fmt.Println("  2. tributai-migrate check")
		fmt.Println("  3. tributai-migrate migrate")
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current config (secrets masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnvFile(envFile); err != nil {
			return err
		}
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		fmt.Println("Current configuration:")
		fmt.Println()
		fmt.Printf("  Source (PostgreSQL):\n")
		fmt.Printf("    Host:           %s:%d\n", cfg.Source.Host, cfg.Source.Port)
		fmt.Printf("    Database:       %s\n", cfg.Source.Database)
		fmt.Printf("    Schema:         %s\n", cfg.Source.Schema)
		fmt.Printf("    Username:       %s\n", cfg.Source.Username)
		fmt.Printf("    Password:       %s\n", maskSecret(cfg.Source.Password))
		fmt.Printf("    SSL mode:       %s\n", cfg.Source.SSLMode)
		fmt.Printf("    Max Conns:      %d\n", cfg.Source.MaxConnections)
		fmt.Println()
		fmt.Printf("  Target (SQL Server):\n")
		fmt.Printf("    Host:           %s:%d\n", cfg.Target.Host, cfg.Target.Port)
		fmt.Printf("    Database:       %s\n", cfg.Target.Database)
		fmt.Printf("    Schema:         %s\n", cfg.Target.Schema)
		fmt.Printf("    Username:       %s\n", cfg.Target.Username)
		fmt.Printf("    Password:       %s\n", maskSecret(cfg.Target.Password))
		fmt.Printf("    Encrypt:        %t\n", cfg.Target.Encrypt == nil || *cfg.Target.Encrypt)
		fmt.Printf("    Trust cert:     %t\n", cfg.Target.TrustServerCertificate)
		fmt.Printf("    Max Conns:      %d\n", cfg.Target.MaxConnections)
		fmt.Println()
		fmt.Printf("  Migration:\n")
		fmt.Printf("    Tables:         %s\n", strings.Join(cfg.Migration.Tables, ", "))
		fmt.Printf("    Batch size:     %d\n", cfg.Migration.BatchSize)
		fmt.Printf("    Order by key:   %t\n", cfg.OrderByKey())
		fmt.Printf("    Truncate:       %t\n", cfg.Migration.Truncate)
		fmt.Printf("    Transactional:  %t\n", cfg.Migration.TransactionalBatches)

		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnvFile(envFile); err != nil {
			return err
		}
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("config invalid: %w", err)
		}

		if err := cfg.Validate(); err != nil {
			fmt.Println("Validation errors:")
			for _, line := range strings.Split(err.Error(), "\n") {
				fmt.Printf("  - %s\n", line)
			}
			return fmt.Errorf("configuration is invalid")
		}

		fmt.Println("Configuration is valid.")
		return nil
	},
}

var configTypesCmd = &cobra.Command{
	Use:   "types",
	Short: "Show the SQL Server type of every destination column",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnvFile(envFile); err != nil {
			return err
		}
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		tm := typemap.WithOverrides(cfg.Migration.TypeOverrides)
		tables, err := schema.Resolve(cfg.Migration.Tables, cfg.Source.Schema, cfg.Target.Schema)
		if err != nil {
			return err
		}

		if configTypesYAML {
			for _, t := range tables {
				data, err := t.ToYAML()
				if err != nil {
					return fmt.Errorf("encoding %s: %w", t, err)
				}
				fmt.Printf("---\n%s", data)
			}
			return nil
		}

		fmt.Print(schema.Summary(tables))
		fmt.Println()
		for _, c := range schema.DifferenceAreaColumns() {
			marker := ""
			if tm.IsOverridden(c.Name) {
				marker = "  (override)"
			}
			fmt.Printf("  %-12s %s%s\n", c.Name, tm.Resolve(c), marker)
		}
		for _, name := range tm.SortedOverrides() {
			if _, ok := tables[0].Column(name); !ok {
				fmt.Printf("  warning: override for unknown column %q is ignored\n", name)
			}
		}
		return nil
	},
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

func init() {
	configInitCmd.Flags().StringVar(&configEnvOut, "env-out", ".env", "where to write the env template")
	configTypesCmd.Flags().BoolVar(&configTypesYAML, "yaml", false, "print the full table specs as YAML")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configTypesCmd)
	rootCmd.AddCommand(configCmd)
}
