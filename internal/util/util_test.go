package util

import (
	"testing"
	"time"

	"pocket-ledger/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("Sup3rSecret")
	require.NoError(t, err)
	assert.NotContains(t, hash, "Sup3rSecret")

	assert.True(t, CheckPassword("Sup3rSecret", hash))
	assert.False(t, CheckPassword("wrong", hash))
	assert.False(t, CheckPassword("Sup3rSecret", "garbage"))
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plain := []byte(`{"accounts":[],"ledger_entries":[]}`)

	box, err := EncryptAES("snapshot-key", plain)
	require.NoError(t, err)
	assert.NotEqual(t, plain, box)

	got, err := DecryptAES("snapshot-key", box)
	require.NoError(t, err)
	assert.Equal(t, plain, got)

	_, err = DecryptAES("wrong-key", box)
	assert.Error(t, err)
}

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken("secret", 42, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)

	_, err = ParseToken("other-secret", token)
	assert.Error(t, err)
}

func TestValidateAmountCent(t *testing.T) {
	assert.NoError(t, ValidateAmountCent(1))
	assert.Error(t, ValidateAmountCent(0))
	assert.Error(t, ValidateAmountCent(-100))
	assert.Error(t, ValidateAmountCent(1_000_000_000))
}

func TestValidateDate(t *testing.T) {
	assert.NoError(t, ValidateDate("2025-06-01"))
	assert.Error(t, ValidateDate(""))
	assert.Error(t, ValidateDate("06/01/2025"))
}

func TestValidateFrequencyAndKind(t *testing.T) {
	for _, freq := range []string{models.FreqDaily, models.FreqWeekly, models.FreqMonthly, models.FreqYearly} {
		assert.NoError(t, ValidateFrequency(freq))
	}
	assert.Error(t, ValidateFrequency("hourly"))

	for _, kind := range []string{models.RuleExpense, models.RuleIncome, models.RuleTransfer} {
		assert.NoError(t, ValidateRuleKind(kind))
	}
	assert.Error(t, ValidateRuleKind("loan"))
}
