package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pocket-ledger/internal/category"
	"pocket-ledger/internal/models"

	"github.com/google/uuid"
)

// RuleStore is the local store surface the scheduler needs. The gorm
// implementation lives in internal/store.
type RuleStore interface {
	ListRules(ctx context.Context) ([]models.RecurringRule, error)
	// UpdateRule persists NextExecutionAt and RemainingCount as one update.
	UpdateRule(ctx context.Context, r *models.RecurringRule) error
	InsertEntry(ctx context.Context, e *models.LedgerEntry) error
}

// Scheduler advances recurring rules and generates the derived ledger
// entries. One invocation advances each due rule by exactly one period,
// so RunDueRules keeps re-reading the rule set until nothing is due:
// a daily rule untouched for six months catches up one day per pass
// instead of silently skipping the backlog.
type Scheduler struct {
	store RuleStore
}

func New(store RuleStore) *Scheduler {
	return &Scheduler{store: store}
}

// RunDueRules executes every rule whose NextExecutionAt is at or before
// the end of asOf's day. Per-rule failures are isolated: a broken rule is
// set aside for this batch and the rest keep executing; the collected
// errors come back joined. Returns the number of executions performed.
func (s *Scheduler) RunDueRules(ctx context.Context, asOf time.Time) (int, error) {
	cutoff := endOfDay(asOf)

	executed := 0
	failed := make(map[uint]bool)
	var errs []error

	for {
		rules, err := s.store.ListRules(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("list rules: %w", err))
			break
		}

		ranAny := false
		for i := range rules {
			r := &rules[i]
			if failed[r.ID] || r.NextExecutionAt.After(cutoff) {
				continue
			}
			// Exhausted rules stay pending forever until edited; they are
			// skipped, not deleted, to preserve audit history.
			if r.Exhausted() {
				continue
			}

			if err := s.executeRule(ctx, r); err != nil {
				failed[r.ID] = true
				errs = append(errs, fmt.Errorf("rule %d: %w", r.ID, err))
				continue
			}
			executed++
			ranAny = true
		}

		if !ranAny {
			break
		}
	}

	return executed, errors.Join(errs...)
}

// executeRule generates the rule's entries dated at the current
// NextExecutionAt, then advances the rule state by one period.
func (s *Scheduler) executeRule(ctx context.Context, r *models.RecurringRule) error {
	note := r.Note
	if note == "" {
		note = category.DisplayName(category.KeyAutoRemark)
	}

	if r.Kind == models.RuleTransfer && r.TargetAccountID != 0 {
		if err := s.insertTransferPair(ctx, r, note); err != nil {
			return err
		}
	} else {
		amount := r.AmountCent
		if r.Kind == models.RuleExpense {
			amount = -amount
		}
		entry := &models.LedgerEntry{
			UserID:             r.UserID,
			AccountID:          r.AccountID,
			CategoryKey:        r.CategoryKey,
			AmountCent:         amount,
			OccurredAt:         r.NextExecutionAt,
			Note:               note,
			Kind:               models.KindOrdinary,
			ExcludedFromBudget: r.ExcludeFromBudget,
		}
		if err := s.store.InsertEntry(ctx, entry); err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
	}

	// Advance from the current NextExecutionAt, not from now: the cadence
	// stays fixed even when the scheduler is invoked late.
	r.NextExecutionAt = advance(r.NextExecutionAt, r.Frequency)
	if r.EndMode == models.EndByCount && r.RemainingCount != nil {
		remaining := *r.RemainingCount - 1
		r.RemainingCount = &remaining
	}
	if err := s.store.UpdateRule(ctx, r); err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	return nil
}

// insertTransferPair writes the two legs of a transfer rule. Both legs
// share one transfer-group id; fee handling depends on FeeMode:
//
//	fee_from_destination: source -amount, destination amount-fee
//	fee_added_to_source:  source -(amount+fee), destination amount
func (s *Scheduler) insertTransferPair(ctx context.Context, r *models.RecurringRule, note string) error {
	sourceAmount := -r.AmountCent
	destAmount := r.AmountCent - r.FeeCent
	if r.FeeMode == models.FeeAddedToSource {
		sourceAmount = -(r.AmountCent + r.FeeCent)
		destAmount = r.AmountCent
	}

	groupID := uuid.New().String()

	source := &models.LedgerEntry{
		UserID:             r.UserID,
		AccountID:          r.AccountID,
		CategoryKey:        category.KeyTransferOut,
		AmountCent:         sourceAmount,
		OccurredAt:         r.NextExecutionAt,
		Note:               note,
		Kind:               models.KindTransfer,
		TransferGroupID:    groupID,
		CounterAccountID:   r.TargetAccountID,
		ExcludedFromBudget: r.ExcludeFromBudget,
	}
	dest := &models.LedgerEntry{
		UserID:             r.UserID,
		AccountID:          r.TargetAccountID,
		CategoryKey:        category.KeyTransferIn,
		AmountCent:         destAmount,
		OccurredAt:         r.NextExecutionAt,
		Note:               note,
		Kind:               models.KindTransfer,
		TransferGroupID:    groupID,
		CounterAccountID:   r.AccountID,
		ExcludedFromBudget: r.ExcludeFromBudget,
	}

	if err := s.store.InsertEntry(ctx, source); err != nil {
		return fmt.Errorf("insert source leg: %w", err)
	}
	if err := s.store.InsertEntry(ctx, dest); err != nil {
		return fmt.Errorf("insert destination leg: %w", err)
	}
	return nil
}

func advance(t time.Time, frequency string) time.Time {
	switch frequency {
	case models.FreqDaily:
		return t.AddDate(0, 0, 1)
	case models.FreqWeekly:
		return t.AddDate(0, 0, 7)
	case models.FreqMonthly:
		return t.AddDate(0, 1, 0)
	case models.FreqYearly:
		return t.AddDate(1, 0, 0)
	}
	// unknown frequency would loop forever if left in place
	return t.AddDate(0, 0, 1)
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}
