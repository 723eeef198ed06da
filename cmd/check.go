package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tributai/tributai-migrate/internal/engine"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Test connectivity to both databases",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, closer, err := newEngine()
		if err != nil {
			return err
		}
		defer closer.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		statuses, err := eng.Check(ctx)
		return printCheck(os.Stdout, statuses, err)
	},
}

// printCheck writes one line per endpoint and wraps the joined check error.
func printCheck(w io.Writer, statuses []engine.EndpointStatus, err error) error {
	for _, s := range statuses {
		if s.OK {
			fmt.Fprintf(w, "  [OK]   %-12s %s\n", s.Name, s.Version)
		} else {
			fmt.Fprintf(w, "  [FAIL] %-12s %s\n", s.Name, s.Error)
		}
		tables := make([]string, 0, len(s.MissingColumns))
		for table := range s.MissingColumns {
			tables = append(tables, table)
		}
		slices.Sort(tables)
		for _, table := range tables {
			fmt.Fprintf(w, "         %s is missing: %s\n", table, strings.Join(s.MissingColumns[table], ", "))
		}
	}
	if err != nil {
		return fmt.Errorf("connectivity check failed: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
