package category

import "strings"

// Fixed keys used by generated entries.
const (
	KeyTransferOut = "transfer_out"
	KeyTransferIn  = "transfer_in"

	KeyDebtLend   = "debt_lend"
	KeyDebtBorrow = "debt_borrow"
	KeyDebtSettle = "debt_settle"

	// KeyAutoRemark is the default note for scheduler-generated entries
	// when the rule has none.
	KeyAutoRemark = "recurring_auto"
)

// displayNames maps stable keys to user-facing names.
// 展示文案目前只有中文，和移动端保持一致。
var displayNames = map[string]string{
	"dining":        "餐饮",
	"transport":     "交通",
	"shopping":      "购物",
	"entertainment": "娱乐",
	"housing":       "住房",
	"medical":       "医疗",
	"salary":        "工资",
	"bonus":         "奖金",
	"investment":    "投资",
	KeyTransferOut:  "转出",
	KeyTransferIn:   "转入",
	KeyDebtLend:     "借出",
	KeyDebtBorrow:   "借入",
	KeyDebtSettle:   "借贷结清",
	KeyAutoRemark:   "周期记账自动生成",

	"account_bank":    "银行卡",
	"account_cash":    "现金",
	"account_ewallet": "电子钱包",
	"account_credit":  "信用卡",
}

// aliases maps display names and common English labels back to keys.
var aliases = map[string]string{}

func init() {
	for key, name := range displayNames {
		aliases[strings.ToLower(name)] = key
	}
	// English account-type labels seen in older exports.
	for alias, key := range map[string]string{
		"bank":     "account_bank",
		"cash":     "account_cash",
		"e-wallet": "account_ewallet",
		"ewallet":  "account_ewallet",
		"credit":   "account_credit",
	} {
		aliases[alias] = key
	}
}

// StableKey resolves a display name (or an already-stable key) to its key.
// Unknown values are slugified so the result is deterministic either way.
func StableKey(nameOrKey string) string {
	s := strings.TrimSpace(nameOrKey)
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)
	if _, ok := displayNames[lower]; ok {
		return lower
	}
	if key, ok := aliases[lower]; ok {
		return key
	}
	return strings.ReplaceAll(lower, " ", "_")
}

// DisplayName returns the localized name for a stable key. Unknown keys
// come back unchanged so imported custom categories still render.
func DisplayName(key string) string {
	if name, ok := displayNames[key]; ok {
		return name
	}
	return key
}
