package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"wallet/internal/logger"
	"wallet/internal/models"
)

const m1URL = "https://lens.m1finance.com/graphql"

const m1AccountsQuery = `mutation ($token: String!) {
  reauthenticate(input: {refreshToken: $token}) {
    didSucceed
    error
    outcome {
      viewer {
        accounts {
          edges {
            node {
              name
              rootPortfolioSlice {
                performance(period: ONE_DAY) {
                  startValue { date value }
                  endValue { date value }
                  moneyWeightedRateOfReturn
                  totalGain
                  capitalGain
                  earnedDividends
                  netCashFlow
                }
              }
            }
          }
        }
      }
    }
  }
}`

// RetryPolicy bounds how often a failed fetch is repeated.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// permanentError marks a failure that retrying cannot fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

type m1Value struct {
	Date  string          `json:"date"`
	Value decimal.Decimal `json:"value"`
}

type m1Performance struct {
	StartValue                m1Value         `json:"startValue"`
	EndValue                  m1Value         `json:"endValue"`
	MoneyWeightedRateOfReturn decimal.Decimal `json:"moneyWeightedRateOfReturn"`
	TotalGain                 decimal.Decimal `json:"totalGain"`
	CapitalGain               decimal.Decimal `json:"capitalGain"`
	EarnedDividends           decimal.Decimal `json:"earnedDividends"`
	NetCashFlow               decimal.Decimal `json:"netCashFlow"`
}

type m1Response struct {
	Data struct {
		Reauthenticate struct {
			DidSucceed bool    `json:"didSucceed"`
			Error      *string `json:"error"`
			Outcome    struct {
				Viewer struct {
					Accounts struct {
						Edges []struct {
							Node struct {
								Name               string `json:"name"`
								RootPortfolioSlice struct {
									Performance *m1Performance `json:"performance"`
								} `json:"rootPortfolioSlice"`
							} `json:"node"`
						} `json:"edges"`
					} `json:"accounts"`
				} `json:"viewer"`
			} `json:"outcome"`
		} `json:"reauthenticate"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// M1Source reports the one-day performance of every M1 Finance account.
// One GraphQL call returns all accounts; the result is kept until the next
// call to Portfolios.
type M1Source struct {
	httpClient *http.Client
	url        string
	token      string
	loc        *time.Location
	retry      RetryPolicy
	mu         sync.Mutex
	accounts   map[string]*m1Performance
	names      []string
}

// NewM1Source creates an M1 data source. Start dates are read in loc.
func NewM1Source(httpClient *http.Client, url, token string, loc *time.Location, retry RetryPolicy) *M1Source {
	if url == "" {
		url = m1URL
	}
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	return &M1Source{
		httpClient: httpClient,
		url:        url,
		token:      token,
		loc:        loc,
		retry:      retry,
	}
}

// Portfolios fetches the accounts and returns their names in API order.
func (m *M1Source) Portfolios(ctx context.Context) ([]string, error) {
	if err := m.refresh(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.names...), nil
}

// FetchDailyPerformance returns the performance of the named account, or nil
// when M1 reports none.
func (m *M1Source) FetchDailyPerformance(ctx context.Context, name string) (*models.Performance, error) {
	m.mu.Lock()
	loaded := m.accounts != nil
	m.mu.Unlock()
	if !loaded {
		if err := m.refresh(ctx); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	p, ok := m.accounts[name]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("m1 account %q not found", name)
	}
	if p == nil {
		return nil, nil
	}

	started, err := time.Parse(time.RFC3339, p.StartValue.Date)
	if err != nil {
		return nil, fmt.Errorf("parsing start date of %q: %w", name, err)
	}

	return &models.Performance{
		Value:        p.EndValue.Value,
		Gain:         p.TotalGain,
		Rate:         p.MoneyWeightedRateOfReturn,
		StartValue:   p.StartValue.Value,
		NetCashFlow:  p.NetCashFlow,
		CapitalGain:  p.CapitalGain,
		DividendGain: p.EarnedDividends,
		StartDate:    models.DateOf(started.In(m.loc)),
	}, nil
}

func (m *M1Source) refresh(ctx context.Context) error {
	var resp *m1Response
	var err error
	for attempt := 1; attempt <= m.retry.MaxAttempts; attempt++ {
		resp, err = m.fetch(ctx)
		var permanent *permanentError
		if err == nil || errors.As(err, &permanent) || attempt == m.retry.MaxAttempts {
			break
		}

		logger.Get().Warnw("m1 fetch failed, retrying",
			"attempt", attempt,
			"backoff", m.retry.Backoff,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.retry.Backoff):
		}
	}
	if err != nil {
		return err
	}

	accounts := make(map[string]*m1Performance)
	var names []string
	for _, edge := range resp.Data.Reauthenticate.Outcome.Viewer.Accounts.Edges {
		accounts[edge.Node.Name] = edge.Node.RootPortfolioSlice.Performance
		names = append(names, edge.Node.Name)
	}

	m.mu.Lock()
	m.accounts, m.names = accounts, names
	m.mu.Unlock()
	return nil
}

func (m *M1Source) fetch(ctx context.Context) (*m1Response, error) {
	body, err := json.Marshal(map[string]any{
		"query":     m1AccountsQuery,
		"variables": map[string]string{"token": m.token},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding m1 request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building m1 request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("m1 http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("m1 request: unexpected status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &permanentError{fmt.Errorf("m1 request: unexpected status %d", resp.StatusCode)}
	}

	var out m1Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding m1 response: %w", err)
	}
	if len(out.Errors) > 0 {
		return nil, &permanentError{fmt.Errorf("m1 graphql error: %s", out.Errors[0].Message)}
	}
	if !out.Data.Reauthenticate.DidSucceed {
		msg := "failed to load M1 accounts"
		if e := out.Data.Reauthenticate.Error; e != nil && *e != "" {
			msg = *e
		}
		return nil, &permanentError{errors.New(msg)}
	}
	return &out, nil
}
