package stats

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"envelopes/internal/budget"
	"envelopes/internal/common"
	"envelopes/internal/model"
)

// Config holds configuration options for the stats calculator.
type Config struct {
	// FirstMonth is the first reporting month (YYYY-MM). When empty, the
	// earliest month observed in any ingested budget or transaction is used.
	FirstMonth string
	// DuplicatePolicy decides whether duplicate budget definitions for the
	// same (envelope, month) are summed or rejected.
	DuplicatePolicy budget.DuplicatePolicy
}

// DefaultConfig returns the default calculator configuration.
func DefaultConfig() Config {
	return Config{DuplicatePolicy: budget.PolicySum}
}

// Calculator accumulates budgets and transactions across sources and
// computes envelope reconciliation stats. It is not safe for concurrent
// use; a single caller owns one instance per reporting session.
type Calculator struct {
	logger       *slog.Logger
	now          func() time.Time
	budgets      map[budgetKey]*model.BudgetEntry
	defined      map[budgetKey]struct{}
	sources      map[string]struct{}
	transactions []model.Transaction
	cfg          Config
}

type budgetKey struct {
	envelope string
	month    string
}

// New creates a calculator with the default configuration.
func New(logger *slog.Logger) *Calculator {
	return NewWithConfig(logger, DefaultConfig())
}

// NewWithConfig creates a calculator with custom configuration.
func NewWithConfig(logger *slog.Logger, cfg Config) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DuplicatePolicy == "" {
		cfg.DuplicatePolicy = budget.PolicySum
	}
	return &Calculator{
		logger:  logger,
		now:     time.Now,
		budgets: make(map[budgetKey]*model.BudgetEntry),
		defined: make(map[budgetKey]struct{}),
		sources: make(map[string]struct{}),
		cfg:     cfg,
	}
}

// AddBudgets normalizes and rolls up one source's budget records and merges
// them into the cumulative aggregated table. Re-adding a source with the
// same identifier is a no-op.
func (c *Calculator) AddBudgets(source string, records []model.BudgetRecord) error {
	if _, done := c.sources[source]; done {
		c.logger.Debug("budget source already ingested, skipping", "source", source)
		return nil
	}

	normalized, err := budget.Normalize(records, c.cfg.DuplicatePolicy)
	if err != nil {
		return fmt.Errorf("budget source %s: %w", source, err)
	}

	// cross-source duplicates are detected on budget-defining rows;
	// ancestor rollup rows and gap-filled months legitimately overlap
	// between sources
	if c.cfg.DuplicatePolicy == budget.PolicyReject {
		for _, entry := range normalized {
			if entry.Budget == nil {
				continue
			}
			key := budgetKey{envelope: entry.Envelope, month: entry.Month}
			if _, dup := c.defined[key]; dup {
				return fmt.Errorf("budget source %s: %w: envelope %q month %s",
					source, common.ErrDuplicateBudget, entry.Envelope, entry.Month)
			}
		}
	}

	aggregated := budget.Rollup(normalized)
	for _, entry := range aggregated {
		key := budgetKey{envelope: entry.Envelope, month: entry.Month}
		existing, ok := c.budgets[key]
		if !ok {
			clone := entry
			c.budgets[key] = &clone
			continue
		}
		existing.Budget = addOptional(existing.Budget, entry.Budget)
		existing.Adjustment = addOptional(existing.Adjustment, entry.Adjustment)
	}

	for _, entry := range normalized {
		if entry.Budget != nil {
			c.defined[budgetKey{envelope: entry.Envelope, month: entry.Month}] = struct{}{}
		}
	}

	c.sources[source] = struct{}{}
	c.logger.Info("added budgets", "source", source, "entries", len(aggregated))
	return nil
}

// AddTransactions expands one source's transaction records across the
// envelope hierarchy and appends them to the cumulative set. Re-ingestion
// of the same file is the caller's responsibility to avoid.
func (c *Calculator) AddTransactions(source string, records []model.Transaction) ExpandResult {
	expanded, result := Expand(records, c.now(), c.logger)
	c.transactions = append(c.transactions, expanded...)
	c.logger.Info("added transactions",
		"source", source,
		"records", result.Expanded,
		"total", len(c.transactions))
	return result
}

// EnvelopeStats computes the monthly reconciliation table over everything
// ingested so far: one row per (envelope, month) with budget, adjustment,
// monthly difference, cumulative state, and carryover, restricted to months
// from the first reporting month onward and to envelopes with a positive
// budget. Rows are sorted by (envelope, month).
func (c *Calculator) EnvelopeStats() ([]model.EnvelopeState, error) {
	if len(c.budgets) == 0 && len(c.transactions) == 0 {
		return nil, common.ErrNoData
	}

	firstMonth := c.cfg.FirstMonth
	if firstMonth == "" {
		firstMonth = c.earliestMonth()
		c.logger.Info("first month not configured, using earliest observed", "first_month", firstMonth)
	} else if err := model.ValidateMonth(firstMonth); err != nil {
		return nil, err
	}

	lastMonth := c.lastMonth()
	if lastMonth < firstMonth {
		lastMonth = firstMonth
	}
	months, err := model.MonthRange(firstMonth, lastMonth)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("reporting months", "first", firstMonth, "last", lastMonth, "count", len(months))

	spend := c.aggregateSpend(firstMonth)
	groups := c.joinByEnvelope(spend)

	envelopes := make([]string, 0, len(groups))
	for envelope := range groups {
		envelopes = append(envelopes, envelope)
	}
	sort.Strings(envelopes)

	var report []model.EnvelopeState
	for _, envelope := range envelopes {
		rows := buildMonthlyRows(groups[envelope], months)

		cumulative := 0.0
		for _, row := range rows {
			if row.month < firstMonth {
				continue
			}
			previous := cumulative
			cumulative += row.budget + row.adjustment - row.amount

			if row.budget <= 0 {
				continue
			}
			// state_month is the difference of the rounded states, so
			// state == carryover + state_month holds exactly even for
			// fractional amounts
			state := math.Round(cumulative)
			carryover := math.Round(previous)
			report = append(report, model.EnvelopeState{
				Envelope:   envelope,
				Month:      row.month,
				Budget:     row.budget,
				Adjustment: row.adjustment,
				StateMonth: state - carryover,
				State:      state,
				Carryover:  carryover,
			})
		}
	}

	return report, nil
}

// YearlyStats collapses a monthly report to calendar years: budget and
// adjustment are summed, state is the last state of the year.
func YearlyStats(report []model.EnvelopeState) []model.YearlyEnvelopeState {
	type yearKey struct {
		envelope string
		year     string
	}
	totals := make(map[yearKey]*model.YearlyEnvelopeState)
	order := make([]yearKey, 0)

	for _, row := range report {
		key := yearKey{envelope: row.Envelope, year: row.Month[:4]}
		y, ok := totals[key]
		if !ok {
			y = &model.YearlyEnvelopeState{Envelope: row.Envelope, Year: key.year}
			totals[key] = y
			order = append(order, key)
		}
		y.Budget += row.Budget
		y.Adjustment += row.Adjustment
		// report rows are month-ascending, so the last one seen wins
		y.State = row.State
	}

	out := make([]model.YearlyEnvelopeState, 0, len(order))
	for _, key := range order {
		out = append(out, *totals[key])
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Envelope != out[j].Envelope {
			return out[i].Envelope < out[j].Envelope
		}
		return out[i].Year < out[j].Year
	})
	return out
}

// monthlyRow is a joined (budget, adjustment, spend) triple for one month.
type monthlyRow struct {
	month      string
	budget     float64
	adjustment float64
	amount     float64
	hasBudget  bool
}

// joined carries the outer join of budgets and spend for one envelope,
// keyed by month.
type joined map[string]*joinedRow

type joinedRow struct {
	budget     *float64
	adjustment *float64
	amount     *float64
}

func (c *Calculator) aggregateSpend(firstMonth string) map[budgetKey]float64 {
	spend := make(map[budgetKey]float64)
	for i := range c.transactions {
		t := &c.transactions[i]
		if t.Month < firstMonth {
			continue
		}
		spend[budgetKey{envelope: t.Envelope, month: t.Month}] += t.Amount
	}
	return spend
}

func (c *Calculator) joinByEnvelope(spend map[budgetKey]float64) map[string]joined {
	groups := make(map[string]joined)
	row := func(key budgetKey) *joinedRow {
		group, ok := groups[key.envelope]
		if !ok {
			group = make(joined)
			groups[key.envelope] = group
		}
		r, ok := group[key.month]
		if !ok {
			r = &joinedRow{}
			group[key.month] = r
		}
		return r
	}

	for key, entry := range c.budgets {
		r := row(key)
		r.budget = entry.Budget
		r.adjustment = entry.Adjustment
	}
	for key, amount := range spend {
		total := amount
		row(key).amount = &total
	}
	return groups
}

// buildMonthlyRows materializes a contiguous, month-ascending series for
// one envelope: every month of the canonical sequence is present (missing
// ones synthesized as fresh null rows), budget is forward- then
// backward-filled, and remaining nulls become zero.
func buildMonthlyRows(group joined, months []string) []monthlyRow {
	monthSet := make(map[string]struct{}, len(group)+len(months))
	for m := range group {
		monthSet[m] = struct{}{}
	}
	for _, m := range months {
		monthSet[m] = struct{}{}
	}
	ordered := make([]string, 0, len(monthSet))
	for m := range monthSet {
		ordered = append(ordered, m)
	}
	sort.Strings(ordered)

	rows := make([]monthlyRow, 0, len(ordered))
	for _, m := range ordered {
		row := monthlyRow{month: m}
		if r, ok := group[m]; ok {
			if r.budget != nil {
				row.budget = *r.budget
				row.hasBudget = true
			}
			if r.adjustment != nil {
				row.adjustment = *r.adjustment
			}
			if r.amount != nil {
				row.amount = *r.amount
			}
		}
		rows = append(rows, row)
	}

	// forward-fill then backward-fill the budget; the join and month
	// synthesis can reintroduce gaps the rollup already closed once
	lastKnown := -1
	for i := range rows {
		if rows[i].hasBudget {
			lastKnown = i
		} else if lastKnown >= 0 {
			rows[i].budget = rows[lastKnown].budget
			rows[i].hasBudget = true
		}
	}
	lastKnown = -1
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].hasBudget {
			lastKnown = i
		} else if lastKnown >= 0 {
			rows[i].budget = rows[lastKnown].budget
			rows[i].hasBudget = true
		}
	}

	return rows
}

func (c *Calculator) earliestMonth() string {
	earliest := ""
	for key := range c.budgets {
		if earliest == "" || key.month < earliest {
			earliest = key.month
		}
	}
	for i := range c.transactions {
		if m := c.transactions[i].Month; earliest == "" || m < earliest {
			earliest = m
		}
	}
	return earliest
}

// lastMonth is the maximum month present in ingested transactions, falling
// back to the maximum budget month when no transactions were ingested.
func (c *Calculator) lastMonth() string {
	last := ""
	for i := range c.transactions {
		if m := c.transactions[i].Month; m > last {
			last = m
		}
	}
	if last != "" {
		return last
	}
	for key := range c.budgets {
		if key.month > last {
			last = key.month
		}
	}
	return last
}

func addOptional(a, b *float64) *float64 {
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
