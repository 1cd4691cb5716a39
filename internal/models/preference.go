package models

import "time"

// Preference keys used by the sync engine.
const (
	PrefExpenseCategoryTree = "category_tree_expense"
	PrefIncomeCategoryTree  = "category_tree_income"
)

// Preference 按用户存储的键值偏好，目前用于保存序列化的分类树。
type Preference struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"uniqueIndex:idx_pref_user_key;not null"`
	Key       string `gorm:"size:64;uniqueIndex:idx_pref_user_key;not null"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}
