package store

import (
	"context"
	"errors"
	"fmt"

	"pocket-ledger/internal/models"
	"pocket-ledger/internal/syncengine"

	"gorm.io/gorm"
)

// Store is the gorm-backed ledger store consumed by the reconciliation
// engine, the scheduler and main. HTTP handlers keep talking to *gorm.DB
// directly.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) ListEntries(ctx context.Context, userID uint) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("occurred_at ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

func (s *Store) InsertEntry(ctx context.Context, e *models.LedgerEntry) error {
	return s.db.WithContext(ctx).Create(e).Error
}

func (s *Store) ListAccounts(ctx context.Context, userID uint) ([]models.Account, error) {
	var accounts []models.Account
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

func (s *Store) InsertAccount(ctx context.Context, a *models.Account) error {
	return s.db.WithContext(ctx).Create(a).Error
}

func (s *Store) ListDebts(ctx context.Context, userID uint) ([]models.DebtRecord, error) {
	var debts []models.DebtRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&debts).Error
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	return debts, nil
}

func (s *Store) InsertDebt(ctx context.Context, d *models.DebtRecord) error {
	return s.db.WithContext(ctx).Create(d).Error
}

func (s *Store) CountEntries(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (s *Store) CountAccounts(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

// WipeAll removes the user's ledger data ahead of a destructive restore.
// Rules and preferences survive: the snapshot carries neither.
func (s *Store) WipeAll(ctx context.Context, userID uint) error {
	db := s.db.WithContext(ctx)
	if err := db.Where("user_id = ?", userID).Delete(&models.LedgerEntry{}).Error; err != nil {
		return fmt.Errorf("wipe entries: %w", err)
	}
	if err := db.Where("user_id = ?", userID).Delete(&models.DebtRecord{}).Error; err != nil {
		return fmt.Errorf("wipe debts: %w", err)
	}
	if err := db.Where("user_id = ?", userID).Delete(&models.Budget{}).Error; err != nil {
		return fmt.Errorf("wipe budgets: %w", err)
	}
	if err := db.Where("user_id = ?", userID).Delete(&models.Account{}).Error; err != nil {
		return fmt.Errorf("wipe accounts: %w", err)
	}
	return nil
}

func (s *Store) GetPreference(ctx context.Context, userID uint, key string) (string, error) {
	var pref models.Preference
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND key = ?", userID, key).
		First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get preference %s: %w", key, err)
	}
	return pref.Value, nil
}

func (s *Store) SavePreference(ctx context.Context, userID uint, key, value string) error {
	var pref models.Preference
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND key = ?", userID, key).
		First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		pref = models.Preference{UserID: userID, Key: key, Value: value}
		return s.db.WithContext(ctx).Create(&pref).Error
	}
	if err != nil {
		return fmt.Errorf("save preference %s: %w", key, err)
	}
	pref.Value = value
	return s.db.WithContext(ctx).Save(&pref).Error
}

// WithinTx satisfies syncengine.LedgerStore: fn runs against a
// transaction-scoped store, everything commits or rolls back together.
func (s *Store) WithinTx(ctx context.Context, fn func(syncengine.LedgerStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}

// ---------- scheduler side ----------

func (s *Store) ListRules(ctx context.Context) ([]models.RecurringRule, error) {
	var rules []models.RecurringRule
	err := s.db.WithContext(ctx).
		Order("next_execution_at ASC, id ASC").
		Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return rules, nil
}

func (s *Store) UpdateRule(ctx context.Context, r *models.RecurringRule) error {
	return s.db.WithContext(ctx).Save(r).Error
}

// ---------- derived values ----------

// AccountBalance computes the current balance: initial balance plus the
// sum of all entry amounts on the account. Never stored redundantly.
func (s *Store) AccountBalance(ctx context.Context, userID, accountID uint) (int64, error) {
	var acc models.Account
	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", accountID, userID).
		First(&acc).Error; err != nil {
		return 0, err
	}

	var sum int64
	err := s.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("user_id = ? AND account_id = ?", userID, accountID).
		Select("COALESCE(SUM(amount_cent), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, fmt.Errorf("sum entries: %w", err)
	}
	return acc.InitialBalanceCent + sum, nil
}
