package util

import (
	"fmt"
	"time"

	"pocket-ledger/internal/models"
)

// ValidateAmountCent 验证金额（必须为正数且不超过上限，单位：分）
func ValidateAmountCent(amountCent int64) error {
	if amountCent <= 0 {
		return fmt.Errorf("amount must be positive, got %d", amountCent)
	}
	if amountCent >= 1_000_000_000 { // 限制最大金额为1千万元
		return fmt.Errorf("amount too large, got %d", amountCent)
	}
	return nil
}

// ValidateDate 验证日期格式（必须为 YYYY-MM-DD）
func ValidateDate(dateStr string) error {
	if dateStr == "" {
		return fmt.Errorf("date is empty")
	}
	_, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return fmt.Errorf("invalid date format: %w", err)
	}
	return nil
}

// ValidateCategoryKey 验证分类键（不能为空且长度合理）
func ValidateCategoryKey(key string) error {
	if key == "" {
		return fmt.Errorf("category is empty")
	}
	if len(key) > 64 {
		return fmt.Errorf("category too long, max 64 characters")
	}
	return nil
}

// ValidateFrequency 验证周期规则频率
func ValidateFrequency(freq string) error {
	switch freq {
	case models.FreqDaily, models.FreqWeekly, models.FreqMonthly, models.FreqYearly:
		return nil
	}
	return fmt.Errorf("invalid frequency %q", freq)
}

// ValidateRuleKind 验证周期规则类型
func ValidateRuleKind(kind string) error {
	switch kind {
	case models.RuleExpense, models.RuleIncome, models.RuleTransfer:
		return nil
	}
	return fmt.Errorf("invalid rule kind %q", kind)
}
