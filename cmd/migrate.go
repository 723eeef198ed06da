package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tributai/tributai-migrate/internal/migration"
	"github.com/tributai/tributai-migrate/internal/report"
)

var (
	migrateTables        []string
	migrateBatchSize     int
	migrateTruncate      bool
	migrateTransactional bool
	migrateReport        string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy the tables from PostgreSQL to SQL Server",
	Long: `Provision each destination table when missing, then copy the source rows in
windows of --batch-size rows, one table after the other. The run stops at the
first failing table. Re-running without --truncate appends the rows again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, closer, err := newEngine()
		if err != nil {
			return err
		}
		defer closer.Close()

		opts := eng.MigrationOptions()
		if cmd.Flags().Changed("batch-size") {
			opts.BatchSize = migrateBatchSize
		}
		if cmd.Flags().Changed("truncate") {
			opts.Truncate = migrateTruncate
		}
		if cmd.Flags().Changed("transactional") {
			opts.Transactional = migrateTransactional
		}
		if opts.BatchSize <= 0 {
			return fmt.Errorf("--batch-size must be positive, got %d", opts.BatchSize)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		bar := report.NewProgress(40)
		summary, runErr := eng.Migrate(ctx, migrateTables, opts, func(p migration.Progress) {
			fmt.Println(bar.Line(p))
		})

		if summary != nil {
			fmt.Println()
			fmt.Print(report.MigrationSummary(summary))
			if migrateReport != "" {
				src, tgt := eng.Endpoints()
				if err := report.Write(report.GenerateReport(src, tgt, summary, nil), migrateReport); err != nil {
					eng.Logger.Error("writing report", "path", migrateReport, "err", err)
				} else {
					fmt.Printf("Report saved to: %s\n", migrateReport)
				}
			}
		}
		return runErr
	},
}

func init() {
	migrateCmd.Flags().StringSliceVar(&migrateTables, "table", nil, "table to migrate (repeatable; default: configured tables)")
	migrateCmd.Flags().IntVar(&migrateBatchSize, "batch-size", migration.DefaultBatchSize, "rows per window")
	migrateCmd.Flags().BoolVar(&migrateTruncate, "truncate", false, "empty each destination table before copying")
	migrateCmd.Flags().BoolVar(&migrateTransactional, "transactional", false, "write each window in one transaction")
	migrateCmd.Flags().StringVar(&migrateReport, "report", "", "write a run report (.json or text)")
	rootCmd.AddCommand(migrateCmd)
}
