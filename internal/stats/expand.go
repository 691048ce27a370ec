// Package stats joins aggregated budgets with transaction totals and
// computes the per-envelope monthly reconciliation report.
package stats

import (
	"log/slog"
	"time"

	"envelopes/internal/model"
)

// ExpandResult counts what happened to one source's records during
// hierarchy expansion.
type ExpandResult struct {
	Expanded      int // output records, ancestor copies included
	DroppedFuture int // records dated after ingestion time
	DroppedNoDate int // records without a resolvable date
}

// Expand duplicates each transaction into every ancestor envelope of its
// assigned envelope, root included, and stamps the derived month key.
// Records with no envelope are tagged with the unassigned sentinel so their
// spend still reaches the root total. Future-dated records are dropped and
// counted; records without a date are dropped and logged.
func Expand(records []model.Transaction, now time.Time, logger *slog.Logger) ([]model.Transaction, ExpandResult) {
	var result ExpandResult
	today := now.Format("2006-01-02")

	expanded := make([]model.Transaction, 0, len(records))
	for i := range records {
		r := records[i]
		if r.Date.IsZero() {
			result.DroppedNoDate++
			logger.Error("transaction has no resolvable date, dropping",
				"envelope", r.Envelope, "amount", r.Amount)
			continue
		}
		if r.Date.Format("2006-01-02") > today {
			result.DroppedFuture++
			continue
		}
		if r.Envelope == "" {
			r.Envelope = model.UnassignedEnvelope
		}
		r.Month = r.MonthKey()

		for _, ancestor := range model.Ancestors(r.Envelope) {
			copy := r
			copy.Envelope = ancestor
			expanded = append(expanded, copy)
		}
	}

	result.Expanded = len(expanded)
	if result.DroppedFuture > 0 {
		logger.Info("ignored future-dated transactions", "count", result.DroppedFuture)
	}
	return expanded, result
}
