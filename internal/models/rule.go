package models

import "time"

// Recurring rule kinds.
const (
	RuleExpense  = "expense"
	RuleIncome   = "income"
	RuleTransfer = "transfer"
)

// Transfer fee modes.
const (
	FeeFromDestination = "fee_from_destination" // destination receives amount - fee
	FeeAddedToSource   = "fee_added_to_source"  // source pays amount + fee
)

// Frequencies.
const (
	FreqDaily   = "daily"
	FreqWeekly  = "weekly"
	FreqMonthly = "monthly"
	FreqYearly  = "yearly"
)

// End modes.
const (
	EndNever   = "never"
	EndByDate  = "by_date"
	EndByCount = "by_count"
)

// RecurringRule 表示一条周期记账规则。
// NextExecutionAt 和 RemainingCount 只由调度器修改，且 NextExecutionAt 只会前进。
// 到期但已耗尽（BY_COUNT 归零 / BY_DATE 过期）的规则被跳过而不删除，保留审计历史。
type RecurringRule struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	UserID          uint   `gorm:"index;not null" json:"-"`
	Kind            string `gorm:"size:16;not null" json:"kind"`
	AmountCent      int64  `gorm:"not null" json:"amount_cent"` // unsigned magnitude
	FeeCent         int64  `gorm:"not null;default:0" json:"fee_cent"`
	FeeMode         string `gorm:"size:32" json:"fee_mode,omitempty"`
	CategoryKey     string `gorm:"size:64;not null" json:"category_key"`
	AccountID       uint   `gorm:"index;not null" json:"account_id"`
	TargetAccountID uint   `json:"target_account_id,omitempty"` // transfer only

	Frequency       string    `gorm:"size:16;not null" json:"frequency"`
	StartedAt       time.Time `gorm:"not null" json:"started_at"`
	NextExecutionAt time.Time `gorm:"index;not null" json:"next_execution_at"`

	EndMode        string     `gorm:"size:16;not null;default:never" json:"end_mode"`
	EndAt          *time.Time `json:"end_at,omitempty"`
	RemainingCount *int       `json:"remaining_count,omitempty"`

	Note              string `gorm:"size:255" json:"note"`
	ExcludeFromStats  bool   `gorm:"not null;default:false" json:"exclude_from_stats"`
	ExcludeFromBudget bool   `gorm:"not null;default:false" json:"exclude_from_budget"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

// Exhausted reports whether the rule's end condition has been reached.
// An exhausted rule stays in the table and is skipped by the scheduler.
func (r *RecurringRule) Exhausted() bool {
	switch r.EndMode {
	case EndByDate:
		return r.EndAt != nil && r.NextExecutionAt.After(*r.EndAt)
	case EndByCount:
		return r.RemainingCount != nil && *r.RemainingCount <= 0
	}
	return false
}
