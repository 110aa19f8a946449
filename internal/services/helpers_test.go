package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"wallet/internal/models"
	"wallet/internal/testutil"
)

// stubRates serves fixed exchange rates and counts lookups.
type stubRates struct {
	mu    sync.Mutex
	rates map[models.Currency]decimal.Decimal
	calls int
}

func newStubRates(rates map[models.Currency]string) *stubRates {
	r := &stubRates{rates: make(map[models.Currency]decimal.Decimal)}
	for c, v := range rates {
		r.rates[c] = decimal.RequireFromString(v)
	}
	return r
}

func (r *stubRates) Rate(_ context.Context, currency models.Currency) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	rate, ok := r.rates[currency]
	if !ok {
		return decimal.Zero, fmt.Errorf("no rate for %s", currency)
	}
	return rate, nil
}

// ledger bundles the ledger services around one user and category.
type ledger struct {
	db       *gorm.DB
	entries  EntryServicer
	txns     TransactionServicer
	accounts AccountServicer
	user     *models.User
	category *models.Category
}

func newLedger(t *testing.T, db *gorm.DB, rates ExchangeRateProvider) *ledger {
	t.Helper()
	entries := NewEntryService(db, rates, NewAuditService(db))
	user := testutil.CreateTestUser(t, db)
	return &ledger{
		db:       db,
		entries:  entries,
		txns:     NewTransactionService(db, entries, rates),
		accounts: NewAccountService(db),
		user:     user,
		category: testutil.CreateTestCategory(t, db, user.ID),
	}
}

func (l *ledger) newTransaction(t *testing.T, name string) *models.Transaction {
	t.Helper()
	txn, err := l.txns.CreateTransaction(context.Background(), CreateTransactionInput{
		UserID:      l.user.ID,
		Name:        name,
		CategoryID:  l.category.ID,
		OccurredUTC: time.Date(2024, 5, 1, 17, 0, 0, 0, time.UTC),
		OccurredTZ:  models.TimezoneUS,
	})
	testutil.AssertNoError(t, err)
	return txn
}

func (l *ledger) addEntry(t *testing.T, txnID string, account *models.Account, amount string, currency models.Currency) *models.Entry {
	t.Helper()
	entry, err := l.txns.AddEntry(context.Background(), txnID, AddEntryInput{
		AccountID: account.ID,
		Amount:    decimal.RequireFromString(amount),
		Currency:  currency,
	})
	testutil.AssertNoError(t, err)
	return entry
}

func (l *ledger) equityAccountID() string {
	return *l.user.DefaultEquityAccountID
}

func reloadEntry(t *testing.T, db *gorm.DB, id string) *models.Entry {
	t.Helper()
	var e models.Entry
	if err := db.First(&e, "id = ?", id).Error; err != nil {
		t.Fatalf("failed to reload entry %s: %v", id, err)
	}
	return &e
}

// assertBalanced checks that every currency among the transaction's entries
// nets to zero with assets counted positive and other accounts negative.
func assertBalanced(t *testing.T, db *gorm.DB, txnID string) {
	t.Helper()
	var entries []models.Entry
	if err := db.Preload("Account").Where("transaction_id = ?", txnID).Find(&entries).Error; err != nil {
		t.Fatalf("failed to load entries: %v", err)
	}
	net := make(map[models.Currency]decimal.Decimal)
	for _, e := range entries {
		net[e.Currency] = net[e.Currency].Add(e.Account.Type.Signed(e.Amount))
	}
	for currency, amount := range net {
		if !amount.Round(2).IsZero() {
			t.Errorf("transaction %s unbalanced in %s by %s", txnID, currency, amount)
		}
	}
}
