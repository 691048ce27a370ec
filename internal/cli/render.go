package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/schollz/progressbar/v3"

	"envelopes/internal/model"
)

// RenderMonthTable renders the report rows of a single month as a styled
// table, indented by envelope depth so the hierarchy reads at a glance.
func RenderMonthTable(rows []model.EnvelopeState, month string) string {
	var b strings.Builder

	header := fmt.Sprintf("%-34s %10s %10s %10s %10s %10s",
		"Envelope", "Budget", "Adjust", "Month", "State", "Carryover")
	b.WriteString(TableHeaderStyle.Render(header))
	b.WriteString("\n")

	count := 0
	for _, row := range rows {
		if row.Month != month {
			continue
		}
		count++

		name := row.Envelope
		if name == model.RootEnvelope {
			name = "TOTAL"
		}
		depth := 0
		if row.Envelope != model.RootEnvelope {
			depth = strings.Count(row.Envelope, model.EnvelopeSeparator) + 1
		}
		name = strings.Repeat("  ", depth) + name

		line := fmt.Sprintf("%-34s %10.0f %10.0f %10.0f %10.0f %10.0f",
			name, row.Budget, row.Adjustment, row.StateMonth, row.State, row.Carryover)
		if row.State < 0 {
			line = NegativeStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if count == 0 {
		return SubtleStyle.Render(fmt.Sprintf("no envelope stats for %s", month))
	}
	return RenderBox(fmt.Sprintf("Envelope stats for %s", month), strings.TrimRight(b.String(), "\n"))
}

// RenderYearlyTable renders the yearly aggregation.
func RenderYearlyTable(rows []model.YearlyEnvelopeState) string {
	if len(rows) == 0 {
		return SubtleStyle.Render("no yearly stats")
	}

	var b strings.Builder
	header := fmt.Sprintf("%-34s %6s %12s %12s %12s",
		"Envelope", "Year", "Budget", "Adjust", "State")
	b.WriteString(TableHeaderStyle.Render(header))
	b.WriteString("\n")

	for _, row := range rows {
		name := row.Envelope
		if name == model.RootEnvelope {
			name = "TOTAL"
		}
		line := fmt.Sprintf("%-34s %6s %12.0f %12.0f %12.0f",
			name, row.Year, row.Budget, row.Adjustment, row.State)
		if row.State < 0 {
			line = NegativeStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return RenderBox("Yearly envelope stats", strings.TrimRight(b.String(), "\n"))
}

// NewIngestProgress creates a progress bar across input source files.
func NewIngestProgress(total int, w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Ingesting sources..."),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(w)
		}),
	)
}
