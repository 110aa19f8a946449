package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"wallet/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a unique name and its default equity account.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	return CreateTestUserWithName(t, db, fmt.Sprintf("user%d", nextID()))
}

// CreateTestUserWithName creates a user with the given name and its default equity account.
func CreateTestUserWithName(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()

	user := &models.User{Name: name}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	equity := &models.Account{UserID: user.ID, Name: "Equity", Type: models.AccountTypeEquity}
	if err := db.Create(equity).Error; err != nil {
		t.Fatalf("failed to create test equity account: %v", err)
	}
	user.DefaultEquityAccountID = &equity.ID
	if err := db.Model(user).Update("default_equity_account_id", equity.ID).Error; err != nil {
		t.Fatalf("failed to set default equity account: %v", err)
	}
	return user
}

// CreateTestAccount creates an account of the given type.
func CreateTestAccount(t *testing.T, db *gorm.DB, userID string, accountType models.AccountType) *models.Account {
	t.Helper()

	account := &models.Account{
		UserID: userID,
		Name:   fmt.Sprintf("Test Account %d", nextID()),
		Type:   accountType,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// CreateTestCategory creates a category with a unique name.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID string) *models.Category {
	t.Helper()

	category := &models.Category{
		UserID: userID,
		Name:   fmt.Sprintf("Test Category %d", nextID()),
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestEntry creates a standalone entry; it is active iff amount is non-zero.
func CreateTestEntry(t *testing.T, db *gorm.DB, accountID, amount string, currency models.Currency) *models.Entry {
	t.Helper()

	value := decimal.RequireFromString(amount)
	entry := &models.Entry{
		AccountID: accountID,
		Name:      fmt.Sprintf("Test Entry %d", nextID()),
		Amount:    value,
		Currency:  currency,
		Active:    !value.IsZero(),
	}
	if err := db.Create(entry).Error; err != nil {
		t.Fatalf("failed to create test entry: %v", err)
	}
	return entry
}

// NewTestSnapshot builds an unsaved snapshot whose derived fields are consistent.
func NewTestSnapshot(name string, date time.Time, value, startValue, netCashFlow, dividendGain string) *models.PortfolioSnapshot {
	s := &models.PortfolioSnapshot{
		Name:         name,
		Date:         models.DateOf(date),
		Value:        decimal.RequireFromString(value),
		StartValue:   decimal.RequireFromString(startValue),
		NetCashFlow:  decimal.RequireFromString(netCashFlow),
		DividendGain: decimal.RequireFromString(dividendGain),
		CostBasis:    decimal.NewNullDecimal(decimal.Zero),
	}
	s.CapitalGain = s.ExpectedCapitalGain()
	s.Gain = s.ExpectedGain()
	s.Rate = s.ExpectedRate()
	return s
}

// CreateTestSnapshot persists a consistent snapshot.
func CreateTestSnapshot(t *testing.T, db *gorm.DB, name string, date time.Time, value, startValue string) *models.PortfolioSnapshot {
	t.Helper()

	s := NewTestSnapshot(name, date, value, startValue, "0", "0")
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("failed to create test snapshot: %v", err)
	}
	return s
}
