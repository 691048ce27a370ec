package budget

import (
	"sort"

	"envelopes/internal/model"
)

// Rollup fills budget gaps across the observed month range and sums every
// entry up its envelope's ancestor chain, producing the aggregated budget
// table. For every distinct envelope it emits one row per observed month:
// missing budgets are carried forward from the last known value, months
// before the earliest definition inherit it backward. Adjustments are never
// gap-filled. The root (empty) envelope ends up holding the total of all
// top-level envelopes for each month.
func Rollup(entries []model.BudgetEntry) []model.BudgetEntry {
	if len(entries) == 0 {
		return nil
	}

	monthSet := make(map[string]struct{})
	byEnvelope := make(map[string]map[string]model.BudgetEntry)
	for _, e := range entries {
		monthSet[e.Month] = struct{}{}
		env, ok := byEnvelope[e.Envelope]
		if !ok {
			env = make(map[string]model.BudgetEntry)
			byEnvelope[e.Envelope] = env
		}
		env[e.Month] = e
	}

	months := make([]string, 0, len(monthSet))
	for m := range monthSet {
		months = append(months, m)
	}
	sort.Strings(months)

	aggregated := make(map[entryKey]*model.BudgetEntry)
	for envelope, byMonth := range byEnvelope {
		filled := fillBudgets(envelope, byMonth, months)
		for _, row := range filled {
			for _, ancestor := range model.Ancestors(envelope) {
				mergeEntry(aggregated, model.BudgetEntry{
					Envelope:   ancestor,
					Month:      row.Month,
					Budget:     copyAmount(row.Budget),
					Adjustment: copyAmount(row.Adjustment),
				})
			}
		}
	}

	return sortedEntries(aggregated)
}

// fillBudgets produces one row per month for a single envelope, with the
// budget forward-filled then backward-filled across the month sequence.
func fillBudgets(envelope string, byMonth map[string]model.BudgetEntry, months []string) []model.BudgetEntry {
	rows := make([]model.BudgetEntry, 0, len(months))
	for _, m := range months {
		row := model.BudgetEntry{Envelope: envelope, Month: m}
		if e, ok := byMonth[m]; ok {
			row.Budget = copyAmount(e.Budget)
			row.Adjustment = copyAmount(e.Adjustment)
		}
		rows = append(rows, row)
	}

	var last *float64
	for i := range rows {
		if rows[i].Budget != nil {
			last = rows[i].Budget
		} else if last != nil {
			rows[i].Budget = copyAmount(last)
		}
	}
	last = nil
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].Budget != nil {
			last = rows[i].Budget
		} else if last != nil {
			rows[i].Budget = copyAmount(last)
		}
	}

	return rows
}

func copyAmount(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func sortedEntries(merged map[entryKey]*model.BudgetEntry) []model.BudgetEntry {
	out := make([]model.BudgetEntry, 0, len(merged))
	for _, e := range merged {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Envelope != out[j].Envelope {
			return out[i].Envelope < out[j].Envelope
		}
		return out[i].Month < out[j].Month
	})
	return out
}
