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
	extractTable string
	extractOut   string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Dump a source table to a JSON file",
	Long:  `Read a source table window by window and write its rows as a JSON array of objects keyed by column name.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, closer, err := newEngine()
		if err != nil {
			return err
		}
		defer closer.Close()

		out := extractOut
		if out == "" {
			out = extractTable + ".json"
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		bar := report.NewProgress(40)
		n, err := eng.Extract(ctx, extractTable, out, func(p migration.Progress) {
			fmt.Println(bar.Line(p))
		})
		if err != nil {
			return err
		}
		fmt.Printf("Extracted %d rows to %s\n", n, out)
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractTable, "table", "", "source table to dump")
	extractCmd.Flags().StringVar(&extractOut, "out", "", "output file (default: <table>.json)")
	_ = extractCmd.MarkFlagRequired("table")
	rootCmd.AddCommand(extractCmd)
}
