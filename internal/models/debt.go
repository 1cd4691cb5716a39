package models

import "time"

// DebtRecord 表示一笔借入/借出记录。
// 结清用独立的一条 DebtRecord 表示，IsSettlement 为结构化标记
// （不再像旧版那样把“已结清”藏在备注文本里）。
type DebtRecord struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"index;not null" json:"-"`
	Counterparty  string     `gorm:"size:64;not null" json:"counterparty"`
	PrincipalCent int64      `gorm:"not null" json:"principal_cent"` // unsigned magnitude
	CreatedAt     time.Time  `gorm:"index;not null" json:"created_at"`
	SettledAt     *time.Time `json:"settled_at,omitempty"`
	Note          string     `gorm:"size:255" json:"note"`

	IsSettlement bool  `gorm:"not null;default:false" json:"is_settlement"`
	InterestCent int64 `gorm:"not null;default:0" json:"interest_cent"`

	// Exactly one side is set on an origination record: money leaves
	// FundedByAccountID or arrives at FundedToAccountID. Nil means no
	// account involved, or the reference could not be resolved on import.
	FundedByAccountID *uint `json:"funded_by_account_id,omitempty"`
	FundedToAccountID *uint `json:"funded_to_account_id,omitempty"`

	UpdatedAt time.Time `json:"-"`
}
