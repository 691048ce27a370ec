package model

import "fmt"

// Period identifies the time span a budget record covers.
type Period string

const (
	// PeriodMonthly is the default period: the amount applies to one month.
	PeriodMonthly Period = ""
	// PeriodYearly spreads the amount over twelve months.
	PeriodYearly Period = "y"
	// PeriodHalfYearly spreads the amount over six months.
	PeriodHalfYearly Period = "h"
	// PeriodQuarterly spreads the amount over three months.
	PeriodQuarterly Period = "q"
	// PeriodOneOff is a single-month adjustment, not a recurring budget.
	PeriodOneOff Period = "o"
	// PeriodTransfer is a zero-sum reallocation between two envelopes.
	PeriodTransfer Period = "t"
)

// IsAdjustment reports whether the period produces an adjustment rather
// than a recurring monthly budget.
func (p Period) IsAdjustment() bool {
	return p == PeriodOneOff || p == PeriodTransfer
}

// MonthCount returns the number of months a budget-defining period spreads
// its amount over.
func (p Period) MonthCount() int {
	switch p {
	case PeriodYearly:
		return 12
	case PeriodHalfYearly:
		return 6
	case PeriodQuarterly:
		return 3
	default:
		return 1
	}
}

// Valid reports whether p is a recognized period code.
func (p Period) Valid() bool {
	switch p {
	case PeriodMonthly, PeriodYearly, PeriodHalfYearly, PeriodQuarterly, PeriodOneOff, PeriodTransfer:
		return true
	}
	return false
}

// BudgetRecord is a single raw budget definition as supplied by a budget
// source. Transfer records carry both envelope paths in the Envelope field,
// joined by the transfer arrow.
type BudgetRecord struct {
	Envelope string
	Month    string
	Period   Period
	Amount   *float64 // nil means no amount given; treated as 0 before division
	Note     string
}

// Validate checks the structural invariants of a budget record.
func (r *BudgetRecord) Validate() error {
	if err := ValidateMonth(r.Month); err != nil {
		return err
	}
	if !r.Period.Valid() {
		return fmt.Errorf("unknown period %q for envelope %q", r.Period, r.Envelope)
	}
	if r.Period == PeriodTransfer {
		if _, _, err := SplitTransfer(r.Envelope); err != nil {
			return err
		}
	}
	return nil
}

// BudgetEntry is a normalized per-(envelope, month) budget value. Budget
// holds the monthly recurring amount, Adjustment the summed one-off and
// transfer corrections. A nil field means no source row contributed to it,
// which is distinct from an explicit zero.
type BudgetEntry struct {
	Envelope   string
	Month      string
	Budget     *float64
	Adjustment *float64
}
