package rates

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableFetch(table map[string]decimal.Decimal, err error) FetchFunc {
	return func(context.Context) (map[string]decimal.Decimal, error) {
		if err != nil {
			return nil, err
		}
		return table, nil
	}
}

func TestConvertSameCurrency(t *testing.T) {
	p := New("CNY", nil)
	got, err := p.Convert(12345, "USD", "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(12345), got)
}

func TestConvertUsesBaseRates(t *testing.T) {
	p := New("CNY", tableFetch(map[string]decimal.Decimal{
		"USD": decimal.RequireFromString("0.14"),
		"EUR": decimal.RequireFromString("0.13"),
	}, nil))
	require.NoError(t, p.Refresh(context.Background()))

	// 100.00 CNY -> 14.00 USD
	got, err := p.Convert(10000, "CNY", "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(1400), got)

	// and back, rounding to the nearest cent
	got, err = p.Convert(1400, "USD", "CNY")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), got)
}

func TestConvertUnknownCurrency(t *testing.T) {
	p := New("CNY", nil)
	_, err := p.Convert(100, "CNY", "XYZ")
	assert.Error(t, err)
}

func TestFailedRefreshKeepsOldTable(t *testing.T) {
	table := map[string]decimal.Decimal{"USD": decimal.RequireFromString("0.14")}
	fetchErr := errors.New("upstream down")

	calls := 0
	p := New("CNY", func(context.Context) (map[string]decimal.Decimal, error) {
		calls++
		if calls > 1 {
			return nil, fetchErr
		}
		return table, nil
	})

	require.NoError(t, p.Refresh(context.Background()))
	first := p.LastUpdated()

	err := p.Refresh(context.Background())
	assert.ErrorIs(t, err, fetchErr)
	assert.Equal(t, first, p.LastUpdated(), "failed refresh keeps the old table")

	got, err := p.Convert(10000, "CNY", "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(1400), got)
}
