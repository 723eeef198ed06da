package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tributai/tributai-migrate/internal/migration"
	"github.com/tributai/tributai-migrate/internal/validation"
)

// RunReport is the report written after a migrate or validate run.
type RunReport struct {
	Version     string             `json:"version"`
	GeneratedAt time.Time          `json:"generated_at"`
	Source      Endpoint           `json:"source"`
	Target      Endpoint           `json:"target"`
	Migration   *migration.Summary `json:"migration,omitempty"`
	Validation  *validation.Result `json:"validation,omitempty"`
	Clean       bool               `json:"clean"`
	NextSteps   []string           `json:"next_steps"`
}

// Endpoint describes one side of the migration.
type Endpoint struct {
	Type     string `json:"type"`
	Host     string `json:"host"`
	Database string `json:"database"`
	Schema   string `json:"schema"`
}

// GenerateReport builds a RunReport. Either summary may be nil.
func GenerateReport(src, tgt Endpoint, sum *migration.Summary, val *validation.Result) *RunReport {
	r := &RunReport{
		Version:     "1",
		GeneratedAt: time.Now(),
		Source:      src,
		Target:      tgt,
		Migration:   sum,
		Validation:  val,
		Clean:       true,
	}

	if sum != nil && sum.Phase != "completed" {
		r.Clean = false
		r.NextSteps = append(r.NextSteps,
			"Fix the failing table, then re-run with --truncate; a plain re-run appends duplicate rows")
	}
	if val != nil {
		for _, t := range val.Tables {
			switch {
			case t.Error != "":
				r.Clean = false
				r.NextSteps = append(r.NextSteps, fmt.Sprintf("%s: validation did not finish (%s)", t.Table, t.Error))
			case len(t.Duplicates) > 0:
				r.Clean = false
				r.NextSteps = append(r.NextSteps, fmt.Sprintf("%s: remove %d duplicated id_0 groups", t.Table, len(t.Duplicates)))
			case len(t.TargetOnly) > 0:
				r.Clean = false
				r.NextSteps = append(r.NextSteps, fmt.Sprintf("%s: inspect %d destination-only rows", t.Table, len(t.TargetOnly)))
			case t.RowCount != nil && !t.RowCount.Match:
				r.Clean = false
				r.NextSteps = append(r.NextSteps, fmt.Sprintf("%s: row counts differ by %+d", t.Table, t.RowCount.Delta))
			}
		}
	}
	if r.Clean {
		r.NextSteps = append(r.NextSteps, "No discrepancies found")
	}
	return r
}

// WriteJSON writes the report as JSON.
func WriteJSON(report *RunReport, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadJSON reads a report from a JSON file.
func ReadJSON(path string) (*RunReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	r := &RunReport{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}
	return r, nil
}

// WriteText writes the report as human-readable text.
func WriteText(report *RunReport, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	return os.WriteFile(path, []byte(FormatText(report)), 0o644)
}

// Write picks the format from the file extension: .json or plain text.
func Write(report *RunReport, path string) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return WriteJSON(report, path)
	}
	return WriteText(report, path)
}

// FormatText renders the report as plain text.
func FormatText(report *RunReport) string {
	var b strings.Builder

	b.WriteString("=== TRIBUTAI Migration Report ===\n")
	b.WriteString(fmt.Sprintf("Generated: %s\n\n", report.GeneratedAt.Format(time.RFC3339)))

	writeEndpoint(&b, "Source", report.Source)
	writeEndpoint(&b, "Target", report.Target)

	if m := report.Migration; m != nil {
		b.WriteString(fmt.Sprintf("Migration: %s (%d rows in %s)\n", m.Phase, m.Rows, m.Duration.Round(time.Millisecond)))
		for _, t := range m.Tables {
			b.WriteString(fmt.Sprintf("  %s: %s, %d/%d rows, %d windows", t.Table, t.State, t.Written, t.Total, t.Windows))
			if t.Error != "" {
				b.WriteString(" - " + t.Error)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if v := report.Validation; v != nil {
		b.WriteString(fmt.Sprintf("Validation: %s\n", v.Status))
		for _, t := range v.Tables {
			b.WriteString(fmt.Sprintf("  %s: %s", t.Table, t.Status))
			if t.RowCount != nil {
				b.WriteString(fmt.Sprintf(" (source=%d destination=%d delta=%+d, %d duplicate groups, %d destination-only keys)",
					t.RowCount.SourceCount, t.RowCount.TargetCount, t.RowCount.Delta, len(t.Duplicates), len(t.TargetOnly)))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if report.Clean {
		b.WriteString("Clean: YES\n\n")
	} else {
		b.WriteString("Clean: NO\n\n")
	}

	b.WriteString("Next Steps:\n")
	for i, step := range report.NextSteps {
		b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, step))
	}

	return b.String()
}

func writeEndpoint(b *strings.Builder, title string, e Endpoint) {
	b.WriteString(title + ":\n")
	b.WriteString(fmt.Sprintf("  Type:     %s\n", e.Type))
	b.WriteString(fmt.Sprintf("  Host:     %s\n", e.Host))
	b.WriteString(fmt.Sprintf("  Database: %s\n", e.Database))
	b.WriteString(fmt.Sprintf("  Schema:   %s\n\n", e.Schema))
}
