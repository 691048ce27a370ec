// Package budget converts raw period-based budget records into monthly
// amounts and rolls them up across the envelope hierarchy.
package budget

import (
	"fmt"
	"math"

	"envelopes/internal/common"
	"envelopes/internal/model"
)

// DuplicatePolicy decides what happens when two budget-defining records
// target the same (envelope, month).
type DuplicatePolicy string

const (
	// PolicySum adds duplicate definitions together.
	PolicySum DuplicatePolicy = "sum"
	// PolicyReject fails ingestion on a duplicate definition.
	PolicyReject DuplicatePolicy = "reject"
)

// ParseDuplicatePolicy converts a config string into a DuplicatePolicy.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(s) {
	case PolicySum, PolicyReject:
		return DuplicatePolicy(s), nil
	case "":
		return PolicySum, nil
	default:
		return "", fmt.Errorf("unknown duplicate policy %q (want %q or %q)", s, PolicySum, PolicyReject)
	}
}

type entryKey struct {
	envelope string
	month    string
}

// Normalize converts one source's budget records into normalized monthly
// entries keyed by (envelope, month). Budget-defining amounts are divided
// by the period's month count and rounded to whole monetary units; one-offs
// and transfers become adjustments, with transfers split into a signed pair
// that nets to zero. Entries sharing a key are merged with null-safe sums,
// unless the policy rejects duplicate budget definitions.
func Normalize(records []model.BudgetRecord, policy DuplicatePolicy) ([]model.BudgetEntry, error) {
	merged := make(map[entryKey]*model.BudgetEntry)

	for i := range records {
		r := records[i]
		if err := r.Validate(); err != nil {
			return nil, err
		}

		if r.Period.IsAdjustment() {
			adjustments, err := expandAdjustment(r)
			if err != nil {
				return nil, err
			}
			for _, adj := range adjustments {
				mergeEntry(merged, adj)
			}
			continue
		}

		amount := 0.0
		if r.Amount != nil {
			amount = *r.Amount
		}
		monthly := math.Round(amount / float64(r.Period.MonthCount()))

		key := entryKey{envelope: r.Envelope, month: r.Month}
		if policy == PolicyReject {
			if existing, ok := merged[key]; ok && existing.Budget != nil {
				return nil, fmt.Errorf("%w: envelope %q month %s", common.ErrDuplicateBudget, r.Envelope, r.Month)
			}
		}
		mergeEntry(merged, model.BudgetEntry{
			Envelope: r.Envelope,
			Month:    r.Month,
			Budget:   &monthly,
		})
	}

	return sortedEntries(merged), nil
}

// expandAdjustment turns a one-off or transfer record into adjustment
// entries. A transfer with amount X decreases the source by X and increases
// the destination by X; both halves are plain one-offs afterwards.
func expandAdjustment(r model.BudgetRecord) ([]model.BudgetEntry, error) {
	if r.Period == model.PeriodTransfer {
		source, destination, err := model.SplitTransfer(r.Envelope)
		if err != nil {
			return nil, err
		}
		if r.Amount == nil {
			return []model.BudgetEntry{
				{Envelope: source, Month: r.Month},
				{Envelope: destination, Month: r.Month},
			}, nil
		}
		outgoing := -*r.Amount
		incoming := *r.Amount
		return []model.BudgetEntry{
			{Envelope: source, Month: r.Month, Adjustment: &outgoing},
			{Envelope: destination, Month: r.Month, Adjustment: &incoming},
		}, nil
	}

	entry := model.BudgetEntry{Envelope: r.Envelope, Month: r.Month}
	if r.Amount != nil {
		amount := *r.Amount
		entry.Adjustment = &amount
	}
	return []model.BudgetEntry{entry}, nil
}

func mergeEntry(merged map[entryKey]*model.BudgetEntry, entry model.BudgetEntry) {
	key := entryKey{envelope: entry.Envelope, month: entry.Month}
	existing, ok := merged[key]
	if !ok {
		clone := entry
		merged[key] = &clone
		return
	}
	existing.Budget = nullSum(existing.Budget, entry.Budget)
	existing.Adjustment = nullSum(existing.Adjustment, entry.Adjustment)
}

// nullSum adds two optional amounts: nil only when both are nil, otherwise
// nil operands count as zero.
func nullSum(a, b *float64) *float64 {
	if a == nil && b == nil {
		return nil
	}
	total := 0.0
	if a != nil {
		total += *a
	}
	if b != nil {
		total += *b
	}
	return &total
}
