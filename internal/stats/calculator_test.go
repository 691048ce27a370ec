package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"envelopes/internal/budget"
	"envelopes/internal/model"
)

func amount(v float64) *float64 {
	return &v
}

func newTestCalculator(cfg Config) *Calculator {
	calc := NewWithConfig(testLogger(), cfg)
	// pin ingestion time so no test record counts as future-dated
	calc.now = func() time.Time { return day(2024, 6, 1) }
	return calc
}

func findState(t *testing.T, report []model.EnvelopeState, envelope, month string) model.EnvelopeState {
	t.Helper()
	for _, row := range report {
		if row.Envelope == envelope && row.Month == month {
			return row
		}
	}
	t.Fatalf("no report row for %q %s", envelope, month)
	return model.EnvelopeState{}
}

func TestCalculator_HalfYearlyBudgetEndToEnd(t *testing.T) {
	calc := newTestCalculator(DefaultConfig())

	err := calc.AddBudgets("budgets.csv", []model.BudgetRecord{
		{Envelope: "Health:Insurance", Month: "2023-01", Period: model.PeriodHalfYearly, Amount: amount(2000)},
	})
	require.NoError(t, err)

	calc.AddTransactions("statements.csv", []model.Transaction{
		{Envelope: "Health:Insurance", Date: day(2023, 7, 10), Amount: 100},
	})

	report, err := calc.EnvelopeStats()
	require.NoError(t, err)

	july := findState(t, report, "Health:Insurance", "2023-07")
	assert.Equal(t, 333.0, july.Budget, "2000/6 rounded, carried forward from 2023-01")
	assert.Equal(t, 233.0, july.StateMonth)
	assert.Equal(t, 6*333.0, july.Carryover)
	assert.Equal(t, 6*333.0+233.0, july.State)

	root := findState(t, report, model.RootEnvelope, "2023-07")
	assert.Equal(t, 333.0, root.Budget, "root mirrors its only descendant")
}

func TestCalculator_QuarterlyForwardFill(t *testing.T) {
	calc := newTestCalculator(DefaultConfig())

	err := calc.AddBudgets("budgets.csv", []model.BudgetRecord{
		{Envelope: "Living:Power", Month: "2023-01", Period: model.PeriodQuarterly, Amount: amount(300)},
		{Envelope: "Household", Month: "2024-01", Amount: amount(500)},
	})
	require.NoError(t, err)

	report, err := calc.EnvelopeStats()
	require.NoError(t, err)

	november := findState(t, report, "Living:Power", "2023-11")
	assert.Equal(t, 100.0, november.Budget, "300/3 rounded, carried forward")
}

func TestCalculator_IdempotentBudgetIngestion(t *testing.T) {
	records := []model.BudgetRecord{
		{Envelope: "Car", Month: "2023-01", Amount: amount(200)},
	}

	once := newTestCalculator(DefaultConfig())
	require.NoError(t, once.AddBudgets("budgets.csv", records))

	twice := newTestCalculator(DefaultConfig())
	require.NoError(t, twice.AddBudgets("budgets.csv", records))
	require.NoError(t, twice.AddBudgets("budgets.csv", records))

	wantReport, err := once.EnvelopeStats()
	require.NoError(t, err)
	gotReport, err := twice.EnvelopeStats()
	require.NoError(t, err)
	assert.Equal(t, wantReport, gotReport)
}

func TestCalculator_CarryoverRecurrence(t *testing.T) {
	calc := newTestCalculator(DefaultConfig())

	err := calc.AddBudgets("budgets.csv", []model.BudgetRecord{
		{Envelope: "Car", Month: "2023-01", Amount: amount(200)},
	})
	require.NoError(t, err)

	calc.AddTransactions("statements.csv", []model.Transaction{
		{Envelope: "Car", Date: day(2023, 1, 5), Amount: 150},
		{Envelope: "Car", Date: day(2023, 2, 14), Amount: 300},
		{Envelope: "Car", Date: day(2023, 3, 20), Amount: 50},
	})

	report, err := calc.EnvelopeStats()
	require.NoError(t, err)

	january := findState(t, report, "Car", "2023-01")
	february := findState(t, report, "Car", "2023-02")
	march := findState(t, report, "Car", "2023-03")

	assert.Equal(t, 0.0, january.Carryover, "nothing carried into the first month")
	assert.Equal(t, 50.0, january.State)
	assert.Equal(t, -50.0, february.State)
	assert.Equal(t, 100.0, march.State)

	for _, row := range []model.EnvelopeState{january, february, march} {
		assert.Equal(t, row.State, row.Carryover+row.StateMonth, "month %s", row.Month)
	}
	assert.Equal(t, january.State, february.Carryover)
	assert.Equal(t, february.State, march.Carryover)
}

func TestCalculator_TransferZeroSum(t *testing.T) {
	calc := newTestCalculator(DefaultConfig())

	err := calc.AddBudgets("budgets.csv", []model.BudgetRecord{
		{Envelope: "A", Month: "2023-05", Amount: amount(100)},
		{Envelope: "B", Month: "2023-05", Amount: amount(100)},
		{Envelope: "A->B", Month: "2023-05", Period: model.PeriodTransfer, Amount: amount(50)},
	})
	require.NoError(t, err)

	report, err := calc.EnvelopeStats()
	require.NoError(t, err)

	a := findState(t, report, "A", "2023-05")
	b := findState(t, report, "B", "2023-05")
	root := findState(t, report, model.RootEnvelope, "2023-05")

	assert.Equal(t, -50.0, a.Adjustment)
	assert.Equal(t, 50.0, b.Adjustment)
	assert.Equal(t, 0.0, a.Adjustment+b.Adjustment)
	assert.Equal(t, 0.0, root.Adjustment, "transfers are redistribution, not new money")
	assert.Equal(t, 200.0, root.Budget)

	assert.Equal(t, 50.0, a.StateMonth, "adjustment folds into the monthly difference")
	assert.Equal(t, 150.0, b.StateMonth)
}

func TestCalculator_FilterDropsUnbudgetedEnvelopes(t *testing.T) {
	calc := newTestCalculator(DefaultConfig())

	err := calc.AddBudgets("budgets.csv", []model.BudgetRecord{
		{Envelope: "Car", Month: "2023-01", Amount: amount(200)},
	})
	require.NoError(t, err)

	calc.AddTransactions("statements.csv", []model.Transaction{
		{Envelope: "Car", Date: day(2023, 1, 5), Amount: 80},
		{Envelope: "Misc", Date: day(2023, 1, 9), Amount: 40},
	})

	report, err := calc.EnvelopeStats()
	require.NoError(t, err)

	for _, row := range report {
		assert.Greater(t, row.Budget, 0.0, "row %q %s", row.Envelope, row.Month)
		assert.NotEqual(t, "Misc", row.Envelope)
	}

	// unbudgeted spend still hit the root total
	root := findState(t, report, model.RootEnvelope, "2023-01")
	assert.Equal(t, 200.0-120.0, root.StateMonth)
}

func TestCalculator_ConfiguredFirstMonth(t *testing.T) {
	calc := newTestCalculator(Config{FirstMonth: "2023-03", DuplicatePolicy: budget.PolicySum})

	err := calc.AddBudgets("budgets.csv", []model.BudgetRecord{
		{Envelope: "Car", Month: "2023-01", Amount: amount(200)},
	})
	require.NoError(t, err)

	calc.AddTransactions("statements.csv", []model.Transaction{
		{Envelope: "Car", Date: day(2023, 1, 5), Amount: 150},
		{Envelope: "Car", Date: day(2023, 4, 5), Amount: 100},
	})

	report, err := calc.EnvelopeStats()
	require.NoError(t, err)

	for _, row := range report {
		assert.GreaterOrEqual(t, row.Month, "2023-03")
	}

	march := findState(t, report, "Car", "2023-03")
	assert.Equal(t, 200.0, march.Budget, "budget defined before the first month still applies")
	assert.Equal(t, 200.0, march.State, "spend before the first month is excluded")

	april := findState(t, report, "Car", "2023-04")
	assert.Equal(t, 300.0, april.State)
}

func TestCalculator_DuplicateAcrossSources(t *testing.T) {
	t.Run("summed by default", func(t *testing.T) {
		calc := newTestCalculator(DefaultConfig())
		require.NoError(t, calc.AddBudgets("a.csv", []model.BudgetRecord{
			{Envelope: "Car", Month: "2023-01", Amount: amount(100)},
		}))
		require.NoError(t, calc.AddBudgets("b.csv", []model.BudgetRecord{
			{Envelope: "Car", Month: "2023-01", Amount: amount(200)},
		}))

		report, err := calc.EnvelopeStats()
		require.NoError(t, err)
		assert.Equal(t, 300.0, findState(t, report, "Car", "2023-01").Budget)
	})

	t.Run("rejected when configured", func(t *testing.T) {
		calc := newTestCalculator(Config{DuplicatePolicy: budget.PolicyReject})
		require.NoError(t, calc.AddBudgets("a.csv", []model.BudgetRecord{
			{Envelope: "Car", Month: "2023-01", Amount: amount(100)},
		}))
		err := calc.AddBudgets("b.csv", []model.BudgetRecord{
			{Envelope: "Car", Month: "2023-01", Amount: amount(200)},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate")
	})

	t.Run("reject tolerates disjoint envelopes", func(t *testing.T) {
		calc := newTestCalculator(Config{DuplicatePolicy: budget.PolicyReject})
		require.NoError(t, calc.AddBudgets("a.csv", []model.BudgetRecord{
			{Envelope: "Car", Month: "2023-01", Amount: amount(100)},
		}))
		require.NoError(t, calc.AddBudgets("b.csv", []model.BudgetRecord{
			{Envelope: "Bike", Month: "2023-01", Amount: amount(200)},
		}), "different envelopes only overlap in the rollup, not in their definitions")

		report, err := calc.EnvelopeStats()
		require.NoError(t, err)
		assert.Equal(t, 100.0, findState(t, report, "Car", "2023-01").Budget)
		assert.Equal(t, 200.0, findState(t, report, "Bike", "2023-01").Budget)
		assert.Equal(t, 300.0, findState(t, report, model.RootEnvelope, "2023-01").Budget)
	})

	t.Run("reject tolerates a shared parent", func(t *testing.T) {
		calc := newTestCalculator(Config{DuplicatePolicy: budget.PolicyReject})
		require.NoError(t, calc.AddBudgets("a.csv", []model.BudgetRecord{
			{Envelope: "Household:Food", Month: "2023-01", Amount: amount(100)},
		}))
		require.NoError(t, calc.AddBudgets("b.csv", []model.BudgetRecord{
			{Envelope: "Household:Pets", Month: "2023-01", Amount: amount(50)},
		}))

		report, err := calc.EnvelopeStats()
		require.NoError(t, err)
		assert.Equal(t, 150.0, findState(t, report, "Household", "2023-01").Budget)
	})
}

func TestCalculator_FractionalAmountRounding(t *testing.T) {
	calc := newTestCalculator(DefaultConfig())

	err := calc.AddBudgets("budgets.csv", []model.BudgetRecord{
		{Envelope: "Car", Month: "2023-01", Amount: amount(100)},
	})
	require.NoError(t, err)

	calc.AddTransactions("statements.csv", []model.Transaction{
		{Envelope: "Car", Date: day(2023, 1, 5), Amount: 99.40},
		{Envelope: "Car", Date: day(2023, 2, 5), Amount: 99.40},
	})

	report, err := calc.EnvelopeStats()
	require.NoError(t, err)

	january := findState(t, report, "Car", "2023-01")
	february := findState(t, report, "Car", "2023-02")

	// exact surpluses are 0.6 and 1.2; the rounded states are 1 and 1,
	// and state_month absorbs the rounding residue
	assert.Equal(t, 1.0, january.State)
	assert.Equal(t, 0.0, january.Carryover)
	assert.Equal(t, 1.0, january.StateMonth)
	assert.Equal(t, 1.0, february.State)
	assert.Equal(t, 1.0, february.Carryover)
	assert.Equal(t, 0.0, february.StateMonth)

	for _, row := range report {
		assert.Equal(t, row.State, row.Carryover+row.StateMonth,
			"envelope %q month %s", row.Envelope, row.Month)
	}
	assert.Equal(t, january.State, february.Carryover)
}

func TestCalculator_NoDataFails(t *testing.T) {
	calc := newTestCalculator(DefaultConfig())
	_, err := calc.EnvelopeStats()
	assert.Error(t, err)
}

func TestYearlyStats(t *testing.T) {
	calc := newTestCalculator(DefaultConfig())

	err := calc.AddBudgets("budgets.csv", []model.BudgetRecord{
		{Envelope: "Car", Month: "2023-01", Amount: amount(200)},
	})
	require.NoError(t, err)

	calc.AddTransactions("statements.csv", []model.Transaction{
		{Envelope: "Car", Date: day(2023, 1, 5), Amount: 150},
		{Envelope: "Car", Date: day(2023, 2, 14), Amount: 300},
		{Envelope: "Car", Date: day(2023, 3, 20), Amount: 50},
	})

	report, err := calc.EnvelopeStats()
	require.NoError(t, err)

	yearly := YearlyStats(report)
	require.NotEmpty(t, yearly)

	var car model.YearlyEnvelopeState
	for _, row := range yearly {
		if row.Envelope == "Car" && row.Year == "2023" {
			car = row
		}
	}
	assert.Equal(t, 600.0, car.Budget, "three reported months of 200")
	assert.Equal(t, 100.0, car.State, "last state of the year")
}
