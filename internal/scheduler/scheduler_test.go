package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"pocket-ledger/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRuleStore struct {
	rules   []models.RecurringRule
	entries []models.LedgerEntry

	// failUpdateFor makes UpdateRule fail for one rule id.
	failUpdateFor uint
}

func (f *fakeRuleStore) ListRules(_ context.Context) ([]models.RecurringRule, error) {
	out := make([]models.RecurringRule, len(f.rules))
	copy(out, f.rules)
	return out, nil
}

func (f *fakeRuleStore) UpdateRule(_ context.Context, r *models.RecurringRule) error {
	if f.failUpdateFor != 0 && r.ID == f.failUpdateFor {
		return errors.New("injected failure")
	}
	for i := range f.rules {
		if f.rules[i].ID == r.ID {
			f.rules[i] = *r
			return nil
		}
	}
	return errors.New("rule not found")
}

func (f *fakeRuleStore) InsertEntry(_ context.Context, e *models.LedgerEntry) error {
	e.ID = uint(len(f.entries) + 1)
	f.entries = append(f.entries, *e)
	return nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func expenseRule(id uint, start time.Time, frequency string) models.RecurringRule {
	return models.RecurringRule{
		ID:              id,
		UserID:          1,
		Kind:            models.RuleExpense,
		AmountCent:      3000,
		CategoryKey:     "housing",
		AccountID:       10,
		Frequency:       frequency,
		StartedAt:       start,
		NextExecutionAt: start,
		EndMode:         models.EndNever,
	}
}

func TestDailyBacklogCatchesUp(t *testing.T) {
	start := day(2025, 6, 1)
	f := &fakeRuleStore{rules: []models.RecurringRule{expenseRule(1, start, models.FreqDaily)}}
	s := New(f)

	asOf := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	executed, err := s.RunDueRules(context.Background(), asOf)
	require.NoError(t, err)

	// June 1 through June 10 inclusive, one execution per day
	assert.Equal(t, 10, executed)
	assert.Len(t, f.entries, 10)
	assert.Equal(t, day(2025, 6, 11), f.rules[0].NextExecutionAt)

	// entries keep the scheduled dates, not the invocation time
	assert.Equal(t, start, f.entries[0].OccurredAt)
	assert.Equal(t, day(2025, 6, 10), f.entries[9].OccurredAt)

	// nothing left due: a second run is a no-op
	executed, err = s.RunDueRules(context.Background(), asOf)
	require.NoError(t, err)
	assert.Zero(t, executed)
}

func TestExpenseAndIncomeSigns(t *testing.T) {
	start := day(2025, 6, 1)
	income := expenseRule(2, start, models.FreqMonthly)
	income.Kind = models.RuleIncome
	income.AmountCent = 500000
	f := &fakeRuleStore{rules: []models.RecurringRule{
		expenseRule(1, start, models.FreqMonthly),
		income,
	}}
	s := New(f)

	_, err := s.RunDueRules(context.Background(), start)
	require.NoError(t, err)

	require.Len(t, f.entries, 2)
	assert.Equal(t, int64(-3000), f.entries[0].AmountCent)
	assert.Equal(t, int64(500000), f.entries[1].AmountCent)
}

func transferRule(id uint, start time.Time, feeMode string) models.RecurringRule {
	return models.RecurringRule{
		ID:              id,
		UserID:          1,
		Kind:            models.RuleTransfer,
		AmountCent:      10000,
		FeeCent:         500,
		FeeMode:         feeMode,
		CategoryKey:     "transfer_out",
		AccountID:       10,
		TargetAccountID: 20,
		Frequency:       models.FreqMonthly,
		StartedAt:       start,
		NextExecutionAt: start,
		EndMode:         models.EndNever,
	}
}

func TestTransferFeeFromDestination(t *testing.T) {
	start := day(2025, 6, 1)
	f := &fakeRuleStore{rules: []models.RecurringRule{transferRule(1, start, models.FeeFromDestination)}}
	s := New(f)

	_, err := s.RunDueRules(context.Background(), start)
	require.NoError(t, err)

	require.Len(t, f.entries, 2)
	source, dest := f.entries[0], f.entries[1]
	assert.Equal(t, int64(-10000), source.AmountCent)
	assert.Equal(t, int64(9500), dest.AmountCent)

	// legs are a pair: shared group id, mirrored accounts
	assert.NotEmpty(t, source.TransferGroupID)
	assert.Equal(t, source.TransferGroupID, dest.TransferGroupID)
	assert.Equal(t, uint(10), source.AccountID)
	assert.Equal(t, uint(20), dest.AccountID)
	assert.Equal(t, uint(20), source.CounterAccountID)
	assert.Equal(t, uint(10), dest.CounterAccountID)
	assert.Equal(t, models.KindTransfer, source.Kind)
	assert.Equal(t, models.KindTransfer, dest.Kind)
}

func TestTransferFeeAddedToSource(t *testing.T) {
	start := day(2025, 6, 1)
	f := &fakeRuleStore{rules: []models.RecurringRule{transferRule(1, start, models.FeeAddedToSource)}}
	s := New(f)

	_, err := s.RunDueRules(context.Background(), start)
	require.NoError(t, err)

	require.Len(t, f.entries, 2)
	assert.Equal(t, int64(-10500), f.entries[0].AmountCent)
	assert.Equal(t, int64(10000), f.entries[1].AmountCent)
}

func TestByCountDecrementsAndStops(t *testing.T) {
	start := day(2025, 6, 1)
	rule := expenseRule(1, start, models.FreqDaily)
	rule.EndMode = models.EndByCount
	remaining := 3
	rule.RemainingCount = &remaining
	f := &fakeRuleStore{rules: []models.RecurringRule{rule}}
	s := New(f)

	// ten days of backlog but only three executions remain
	executed, err := s.RunDueRules(context.Background(), day(2025, 6, 10))
	require.NoError(t, err)
	assert.Equal(t, 3, executed)
	require.NotNil(t, f.rules[0].RemainingCount)
	assert.Zero(t, *f.rules[0].RemainingCount)

	// the exhausted rule is skipped, not deleted
	executed, err = s.RunDueRules(context.Background(), day(2025, 6, 30))
	require.NoError(t, err)
	assert.Zero(t, executed)
	assert.Len(t, f.rules, 1)
}

func TestByDateStopsAfterEnd(t *testing.T) {
	start := day(2025, 6, 1)
	rule := expenseRule(1, start, models.FreqDaily)
	rule.EndMode = models.EndByDate
	end := day(2025, 6, 3)
	rule.EndAt = &end
	f := &fakeRuleStore{rules: []models.RecurringRule{rule}}
	s := New(f)

	executed, err := s.RunDueRules(context.Background(), day(2025, 6, 30))
	require.NoError(t, err)

	// June 1, 2, 3 execute; the advance past EndAt exhausts the rule
	assert.Equal(t, 3, executed)
}

func TestNotDueUntilStart(t *testing.T) {
	rule := expenseRule(1, day(2025, 7, 1), models.FreqMonthly)
	f := &fakeRuleStore{rules: []models.RecurringRule{rule}}
	s := New(f)

	executed, err := s.RunDueRules(context.Background(), day(2025, 6, 30))
	require.NoError(t, err)
	assert.Zero(t, executed)
	assert.Empty(t, f.entries)

	// due on the start day itself, any time of day
	executed, err = s.RunDueRules(context.Background(), time.Date(2025, 7, 1, 0, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, executed)
}

func TestFailingRuleDoesNotBlockOthers(t *testing.T) {
	start := day(2025, 6, 1)
	f := &fakeRuleStore{
		rules: []models.RecurringRule{
			expenseRule(1, start, models.FreqMonthly),
			expenseRule(2, start, models.FreqMonthly),
		},
		failUpdateFor: 1,
	}
	s := New(f)

	executed, err := s.RunDueRules(context.Background(), start)
	assert.Error(t, err)
	assert.Equal(t, 1, executed)
}

func TestMonthlyCadence(t *testing.T) {
	rule := expenseRule(1, day(2025, 1, 15), models.FreqMonthly)
	f := &fakeRuleStore{rules: []models.RecurringRule{rule}}
	s := New(f)

	executed, err := s.RunDueRules(context.Background(), day(2025, 4, 20))
	require.NoError(t, err)
	assert.Equal(t, 4, executed) // Jan 15, Feb 15, Mar 15, Apr 15

	dates := make([]time.Time, 0, len(f.entries))
	for _, e := range f.entries {
		dates = append(dates, e.OccurredAt)
	}
	assert.Equal(t, []time.Time{
		day(2025, 1, 15), day(2025, 2, 15), day(2025, 3, 15), day(2025, 4, 15),
	}, dates)
}
