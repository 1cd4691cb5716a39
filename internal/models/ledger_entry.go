package models

import "time"

// Entry kinds.
const (
	KindOrdinary = "ordinary"
	KindTransfer = "transfer"
)

// LedgerEntry 表示一笔账目记录
// 金额用分存储，避免浮点误差，比如 12.34 元 = 1234 分；负数为支出，正数为收入
type LedgerEntry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"-"`
	AccountID   uint      `gorm:"index;not null" json:"account_id"`
	CategoryKey string    `gorm:"size:64;not null" json:"category_key"`
	AmountCent  int64     `gorm:"not null" json:"amount_cent"`
	OccurredAt  time.Time `gorm:"index;not null" json:"occurred_at"`
	Note        string    `gorm:"size:255" json:"note"`
	Kind        string    `gorm:"size:16;not null;default:ordinary" json:"kind"`

	// Transfer pairing: a transfer-kind entry always exists in a pair that
	// shares TransferGroupID, with sign-opposite amounts and swapped
	// AccountID/CounterAccountID.
	TransferGroupID  string `gorm:"size:36;index" json:"transfer_group_id,omitempty"`
	CounterAccountID uint   `json:"counter_account_id,omitempty"`

	// Back-reference to a DebtRecord; deleting the entry cascades to it.
	LinkedDebtID uint `gorm:"index" json:"linked_debt_id,omitempty"`

	ExcludedFromBudget bool `gorm:"not null;default:false" json:"excluded_from_budget"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}
