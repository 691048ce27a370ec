package budget

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"envelopes/internal/model"
)

func amount(v float64) *float64 {
	return &v
}

func findEntry(t *testing.T, entries []model.BudgetEntry, envelope, month string) model.BudgetEntry {
	t.Helper()
	for _, e := range entries {
		if e.Envelope == envelope && e.Month == month {
			return e
		}
	}
	t.Fatalf("no entry for %q %s", envelope, month)
	return model.BudgetEntry{}
}

func TestNormalize_PeriodBreakdown(t *testing.T) {
	tests := []struct {
		name   string
		period model.Period
		amount float64
		want   float64
	}{
		{name: "yearly", period: model.PeriodYearly, amount: 2000, want: 167},
		{name: "half-yearly", period: model.PeriodHalfYearly, amount: 2000, want: 333},
		{name: "quarterly", period: model.PeriodQuarterly, amount: 300, want: 100},
		{name: "monthly default", period: model.PeriodMonthly, amount: 250, want: 250},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := Normalize([]model.BudgetRecord{
				{Envelope: "Living:Power", Month: "2023-01", Period: tt.period, Amount: amount(tt.amount)},
			}, PolicySum)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			require.NotNil(t, entries[0].Budget)
			assert.Equal(t, tt.want, *entries[0].Budget)
			assert.Nil(t, entries[0].Adjustment)
		})
	}
}

func TestNormalize_NilAmountIsZero(t *testing.T) {
	entries, err := Normalize([]model.BudgetRecord{
		{Envelope: "Car", Month: "2023-01", Period: model.PeriodYearly},
	}, PolicySum)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Budget)
	assert.Equal(t, 0.0, *entries[0].Budget)
}

func TestNormalize_OneOffBecomesAdjustment(t *testing.T) {
	entries, err := Normalize([]model.BudgetRecord{
		{Envelope: "Car", Month: "2023-11", Period: model.PeriodOneOff, Amount: amount(150)},
	}, PolicySum)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].Budget)
	require.NotNil(t, entries[0].Adjustment)
	assert.Equal(t, 150.0, *entries[0].Adjustment)
}

func TestNormalize_TransferIsZeroSum(t *testing.T) {
	entries, err := Normalize([]model.BudgetRecord{
		{Envelope: "A->B", Month: "2023-05", Period: model.PeriodTransfer, Amount: amount(50)},
	}, PolicySum)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	a := findEntry(t, entries, "A", "2023-05")
	b := findEntry(t, entries, "B", "2023-05")
	require.NotNil(t, a.Adjustment)
	require.NotNil(t, b.Adjustment)
	assert.Equal(t, -50.0, *a.Adjustment)
	assert.Equal(t, 50.0, *b.Adjustment)
	assert.Equal(t, 0.0, *a.Adjustment+*b.Adjustment)
	assert.Nil(t, a.Budget)
	assert.Nil(t, b.Budget)
}

func TestNormalize_MalformedTransferFails(t *testing.T) {
	_, err := Normalize([]model.BudgetRecord{
		{Envelope: "A=>B", Month: "2023-05", Period: model.PeriodTransfer, Amount: amount(50)},
	}, PolicySum)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "->")
}

func TestNormalize_DuplicatesSummed(t *testing.T) {
	entries, err := Normalize([]model.BudgetRecord{
		{Envelope: "Car", Month: "2023-01", Amount: amount(100)},
		{Envelope: "Car", Month: "2023-01", Amount: amount(50)},
	}, PolicySum)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Budget)
	assert.Equal(t, 150.0, *entries[0].Budget)
}

func TestNormalize_DuplicatesRejected(t *testing.T) {
	_, err := Normalize([]model.BudgetRecord{
		{Envelope: "Car", Month: "2023-01", Amount: amount(100)},
		{Envelope: "Car", Month: "2023-01", Amount: amount(50)},
	}, PolicyReject)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestNormalize_AdjustmentAndBudgetShareMonth(t *testing.T) {
	entries, err := Normalize([]model.BudgetRecord{
		{Envelope: "Car", Month: "2023-11", Amount: amount(400)},
		{Envelope: "Car", Month: "2023-11", Period: model.PeriodOneOff, Amount: amount(131)},
	}, PolicySum)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Budget)
	require.NotNil(t, entries[0].Adjustment)
	assert.Equal(t, 400.0, *entries[0].Budget)
	assert.Equal(t, 131.0, *entries[0].Adjustment)
}

func TestParseDuplicatePolicy(t *testing.T) {
	policy, err := ParseDuplicatePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicySum, policy)

	policy, err = ParseDuplicatePolicy("reject")
	require.NoError(t, err)
	assert.Equal(t, PolicyReject, policy)

	_, err = ParseDuplicatePolicy("panic")
	assert.Error(t, err)
}
