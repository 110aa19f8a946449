// Package provider implements the HTTP collaborators of the ledger: exchange
// rates from Yahoo Finance and daily portfolio performance from M1 Finance.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"wallet/internal/models"
)

const (
	yahooChartURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	yahooUA       = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)"
)

// yahooChartResponse is the subset of the v8 chart API the converter reads.
type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				Currency           string  `json:"currency"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type cachedRate struct {
	rate      decimal.Decimal
	fetchedAt time.Time
}

// ExchangeRates fetches units of a currency per USD from Yahoo Finance.
// Each currency is cached for ttl from its own fetch time.
type ExchangeRates struct {
	httpClient *http.Client
	baseURL    string // overridable for tests
	ttl        time.Duration
	now        func() time.Time
	mu         sync.RWMutex
	rates      map[models.Currency]cachedRate
}

// NewExchangeRates creates a new ExchangeRates with the given cache TTL.
func NewExchangeRates(httpClient *http.Client, ttl time.Duration) *ExchangeRates {
	return &ExchangeRates{
		httpClient: httpClient,
		baseURL:    yahooChartURL,
		ttl:        ttl,
		now:        time.Now,
		rates:      make(map[models.Currency]cachedRate),
	}
}

// Rate returns how many units of currency one USD buys, rounded to 4 places.
func (f *ExchangeRates) Rate(ctx context.Context, currency models.Currency) (decimal.Decimal, error) {
	if currency == models.CurrencyUSD {
		return decimal.NewFromInt(1), nil
	}
	if !currency.Valid() {
		return decimal.Zero, fmt.Errorf("unsupported currency %q", currency)
	}

	f.mu.RLock()
	cached, ok := f.rates[currency]
	f.mu.RUnlock()
	if ok && f.now().Sub(cached.fetchedAt) < f.ttl {
		return cached.rate, nil
	}

	rate, err := f.fetchRate(ctx, "USD"+currency.ISOCode()+"=X")
	if err != nil {
		return decimal.Zero, err
	}

	f.mu.Lock()
	f.rates[currency] = cachedRate{rate: rate, fetchedAt: f.now()}
	f.mu.Unlock()

	return rate, nil
}

// fetchRate fetches the latest price of a forex ticker such as "USDCNY=X".
func (f *ExchangeRates) fetchRate(ctx context.Context, ticker string) (decimal.Decimal, error) {
	url := f.baseURL + "/" + ticker + "?interval=1d&range=1d"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("building forex request: %w", err)
	}
	req.Header.Set("User-Agent", yahooUA)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("forex http request for %s: %w", ticker, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("forex request for %s: unexpected status %d", ticker, resp.StatusCode)
	}

	var chartResp yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chartResp); err != nil {
		return decimal.Zero, fmt.Errorf("decoding forex response for %s: %w", ticker, err)
	}

	if chartResp.Chart.Error != nil {
		return decimal.Zero, fmt.Errorf("forex chart error for %s: %s: %s", ticker, chartResp.Chart.Error.Code, chartResp.Chart.Error.Description)
	}

	if len(chartResp.Chart.Result) == 0 {
		return decimal.Zero, fmt.Errorf("no forex results for %s", ticker)
	}

	price := chartResp.Chart.Result[0].Meta.RegularMarketPrice
	if price <= 0 {
		return decimal.Zero, fmt.Errorf("invalid forex rate for %s: %f", ticker, price)
	}

	return decimal.NewFromFloat(price).Round(4), nil
}
