package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tributai/tributai-migrate/internal/config"
	"github.com/tributai/tributai-migrate/internal/schema"
	"github.com/tributai/tributai-migrate/internal/target"
	"github.com/tributai/tributai-migrate/internal/typemap"
)

var (
	provisionTables []string
	provisionDryRun bool
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Create the destination schema and tables",
	Long:  `Create the destination schema and tables in SQL Server when they do not exist yet. Existing tables are left untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if provisionDryRun {
			if err := config.LoadEnvFile(envFile); err != nil {
				return err
			}
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			tables, err := schema.Resolve(orDefault(provisionTables, cfg.Migration.Tables), cfg.Source.Schema, cfg.Target.Schema)
			if err != nil {
				return err
			}
			tm := typemap.WithOverrides(cfg.Migration.TypeOverrides)
			for _, t := range tables {
				fmt.Println(target.DDL(t, tm))
			}
			return nil
		}

		eng, closer, err := newEngine()
		if err != nil {
			return err
		}
		defer closer.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		tables, err := eng.Provision(ctx, provisionTables)
		if err != nil {
			return err
		}
		for _, t := range tables {
			fmt.Printf("  ready: %s\n", t)
		}
		return nil
	},
}

func orDefault(names, fallback []string) []string {
	if len(names) > 0 {
		return names
	}
	return fallback
}

func init() {
	provisionCmd.Flags().StringSliceVar(&provisionTables, "table", nil, "table to provision (repeatable; default: configured tables)")
	provisionCmd.Flags().BoolVar(&provisionDryRun, "dry-run", false, "print the DDL without connecting")
	rootCmd.AddCommand(provisionCmd)
}
