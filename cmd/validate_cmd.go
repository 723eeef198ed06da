package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tributai/tributai-migrate/internal/report"
)

var (
	validateTables []string
	validateReport string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Compare source and destination tables",
	Long: `Compare row counts, list destination rows whose id_0 is missing from the source,
list duplicated id_0 values in the destination, and profile nulls and ranges.
Per-table failures are reported and do not change the exit status.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, closer, err := newEngine()
		if err != nil {
			return err
		}
		defer closer.Close()

		fmt.Println("Running validation...")
		result, err := eng.Validate(context.Background(), validateTables, func(table, checkType string, passed bool) {
			status := "PASS"
			if !passed {
				status = "FAIL"
			}
			fmt.Printf("  [%s] %s: %s\n", status, table, checkType)
		})
		if err != nil {
			return err
		}

		fmt.Println()
		fmt.Print(report.ValidationResult(result))

		if validateReport != "" {
			src, tgt := eng.Endpoints()
			if err := report.Write(report.GenerateReport(src, tgt, nil, result), validateReport); err != nil {
				return fmt.Errorf("writing report: %w", err)
			}
			fmt.Printf("\nReport saved to: %s\n", validateReport)
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringSliceVar(&validateTables, "table", nil, "table to validate (repeatable; default: configured tables)")
	validateCmd.Flags().StringVar(&validateReport, "report", "", "write a validation report (.json or text)")
	rootCmd.AddCommand(validateCmd)
}
