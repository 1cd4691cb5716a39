package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// FetchFunc returns the latest rate table: units of each currency per one
// unit of the provider's base currency.
type FetchFunc func(ctx context.Context) (map[string]decimal.Decimal, error)

// Provider is an explicitly-injected, refreshable exchange-rate source.
// There is no package-level mutable state: construct one, inject it, and
// refresh it on whatever cadence the caller wants. A failed refresh keeps
// the previous table and is reported to the caller.
type Provider struct {
	mu        sync.RWMutex
	base      string
	rates     map[string]decimal.Decimal
	updatedAt time.Time
	fetch     FetchFunc
}

func New(base string, fetch FetchFunc) *Provider {
	return &Provider{
		base:  base,
		rates: map[string]decimal.Decimal{base: decimal.NewFromInt(1)},
		fetch: fetch,
	}
}

// Refresh replaces the rate table via the injected fetch function.
func (p *Provider) Refresh(ctx context.Context) error {
	if p.fetch == nil {
		return fmt.Errorf("no fetch function configured")
	}
	table, err := p.fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch rates: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.rates = table
	p.rates[p.base] = decimal.NewFromInt(1)
	p.updatedAt = time.Now()
	return nil
}

// LastUpdated returns when the table was last refreshed successfully.
// Zero means never.
func (p *Provider) LastUpdated() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.updatedAt
}

// Convert converts an amount in cents between currencies, rounding half
// up to the nearest cent.
func (p *Provider) Convert(amountCent int64, from, to string) (int64, error) {
	if from == to {
		return amountCent, nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	rateFrom, ok := p.rates[from]
	if !ok {
		return 0, fmt.Errorf("unknown currency %q", from)
	}
	rateTo, ok := p.rates[to]
	if !ok {
		return 0, fmt.Errorf("unknown currency %q", to)
	}
	if rateFrom.IsZero() {
		return 0, fmt.Errorf("zero rate for %q", from)
	}

	converted := decimal.NewFromInt(amountCent).Mul(rateTo).Div(rateFrom)
	return converted.Round(0).IntPart(), nil
}

// HTTPFetch builds a FetchFunc against a JSON endpoint of the shape
// {"base":"CNY","rates":{"USD":0.14,...}}.
func HTTPFetch(url string, client *http.Client) FetchFunc {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return func(ctx context.Context) (map[string]decimal.Decimal, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}

		var body struct {
			Base  string                     `json:"base"`
			Rates map[string]decimal.Decimal `json:"rates"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("decode rates: %w", err)
		}
		return body.Rates, nil
	}
}
