package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStableKey(t *testing.T) {
	cases := map[string]string{
		"dining":   "dining",
		"餐饮":       "dining",
		"Bank":     "account_bank",
		"bank":     "account_bank",
		"银行卡":      "account_bank",
		"e-wallet": "account_ewallet",
		"转出":       KeyTransferOut,
		"借出":       KeyDebtLend,
		"":         "",
		// unknown values slugify deterministically
		"My Custom": "my_custom",
	}
	for in, want := range cases {
		assert.Equal(t, want, StableKey(in), "StableKey(%q)", in)
	}
}

func TestStableKeyIdempotent(t *testing.T) {
	for key := range displayNames {
		assert.Equal(t, key, StableKey(key))
		assert.Equal(t, key, StableKey(StableKey(key)))
	}
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "餐饮", DisplayName("dining"))
	assert.Equal(t, "转入", DisplayName(KeyTransferIn))
	// unknown keys pass through so imported custom categories still render
	assert.Equal(t, "my_custom", DisplayName("my_custom"))
}
