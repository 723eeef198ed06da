package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/tributai/tributai-migrate/internal/migration"
	"github.com/tributai/tributai-migrate/internal/row"
	"github.com/tributai/tributai-migrate/internal/validation"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

// Progress renders per-window progress lines.
type Progress struct {
	bar progress.Model
}

// NewProgress creates a progress renderer with a bar of the given width.
func NewProgress(width int) *Progress {
	return &Progress{bar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(width))}
}

// Line renders one progress line: table, bar, percentage and row counts.
func (p *Progress) Line(pr migration.Progress) string {
	return fmt.Sprintf("%s %s %d/%d rows",
		pr.Table, p.bar.ViewAs(pr.Percent()/100), pr.Processed, pr.Total)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		StyleFunc(func(r, _ int) lipgloss.Style {
			if r == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// MigrationSummary renders the per-table outcome of a run.
func MigrationSummary(s *migration.Summary) string {
	t := newTable("Table", "State", "Rows", "Windows", "Duration")
	for _, r := range s.Tables {
		t.Row(r.Table, r.State,
			fmt.Sprintf("%d/%d", r.Written, r.Total),
			strconv.Itoa(r.Windows),
			r.Duration.Round(time.Millisecond).String())
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Migration summary"))
	b.WriteString("\n")
	b.WriteString(t.String())
	b.WriteString("\n")
	status := successStyle.Render(s.Phase)
	if s.Phase != "completed" {
		status = errStyle.Render(s.Phase)
	}
	b.WriteString(fmt.Sprintf("%s: %d rows in %s\n", status, s.Rows, s.Duration.Round(time.Millisecond)))
	for _, r := range s.Tables {
		if r.Error != "" {
			b.WriteString(errStyle.Render(r.Table+": "+r.Error) + "\n")
		}
	}
	return b.String()
}

// ValidationReport renders the findings of one table.
func ValidationReport(rep *validation.Report) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("=== " + rep.Table + " ==="))
	b.WriteString("\n")

	if rc := rep.RowCount; rc != nil {
		t := newTable("Side", "Rows")
		t.Row("source", strconv.FormatInt(rc.SourceCount, 10))
		t.Row("destination", strconv.FormatInt(rc.TargetCount, 10))
		b.WriteString(t.String())
		b.WriteString("\n")
		if rc.Match {
			b.WriteString(successStyle.Render("counts match") + "\n")
		} else {
			b.WriteString(warnStyle.Render(fmt.Sprintf("difference: %+d rows", rc.Delta)) + "\n")
		}
	}

	if len(rep.TargetOnly) > 0 {
		b.WriteString("\nRows in the destination but not in the source:\n")
		for _, k := range rep.TargetOnly {
			b.WriteString(rowsTable(k.Rows, nil))
			b.WriteString("\n")
		}
	}
	if len(rep.Missing) > 0 {
		b.WriteString(warnStyle.Render(fmt.Sprintf("%d source keys missing from the destination", len(rep.Missing))) + "\n")
	}

	if len(rep.Duplicates) > 0 {
		b.WriteString("\nDuplicated rows in the destination:\n")
		for _, d := range rep.Duplicates {
			b.WriteString(rowsTable(d.Rows, &d.Repetitions))
			b.WriteString("\n")
		}
	}

	if len(rep.NullCounts) > 0 {
		t := newTable("Column", "Nulls")
		for _, n := range rep.NullCounts {
			t.Row(n.Column, strconv.FormatInt(n.Nulls, 10))
		}
		b.WriteString("\nNull values:\n")
		b.WriteString(t.String())
		b.WriteString("\n")
	}

	if len(rep.Ranges) > 0 {
		t := newTable("Column", "Min", "Max")
		for _, r := range rep.Ranges {
			if r.Empty {
				t.Row(r.Column, "-", "-")
				continue
			}
			t.Row(r.Column, r.Min, r.Max)
		}
		b.WriteString("\nRanges:\n")
		b.WriteString(t.String())
		b.WriteString("\n")
	}

	if rep.Error != "" {
		b.WriteString(errStyle.Render("validation stopped: "+rep.Error) + "\n")
	}
	return b.String()
}

// ValidationResult renders every table report followed by the overall status.
func ValidationResult(res *validation.Result) string {
	var b strings.Builder
	for _, rep := range res.Tables {
		b.WriteString(ValidationReport(rep))
		b.WriteString("\n")
	}
	status := successStyle.Render(res.Status)
	if res.Status != "PASS" {
		status = errStyle.Render(res.Status)
	}
	b.WriteString("Overall: " + status + "\n")
	return b.String()
}

// rowsTable renders full records, optionally with a repetition column.
func rowsTable(rows []*row.Source, repetitions *int64) string {
	if len(rows) == 0 {
		return dimStyle.Render("(no rows)")
	}
	cols := rows[0].Columns()
	headers := append([]string{}, cols...)
	if repetitions != nil {
		headers = append(headers, "repetitions")
	}
	t := newTable(headers...)
	for _, r := range rows {
		cells := make([]string, 0, len(headers))
		for _, c := range cols {
			v := r.Get(c)
			if v.IsNull() {
				cells = append(cells, "NULL")
				continue
			}
			cells = append(cells, truncate(v.String(), 40))
		}
		if repetitions != nil {
			cells = append(cells, strconv.FormatInt(*repetitions, 10))
		}
		t.Row(cells...)
	}
	return t.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
