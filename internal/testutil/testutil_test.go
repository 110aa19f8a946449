package testutil_test

import (
	"testing"
	"time"

	"wallet/internal/errors"
	"wallet/internal/models"
	"wallet/internal/testutil"
)

func TestSetupTestDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	// Verify all tables exist by doing a simple count query on each model.
	var count int64
	for _, table := range []string{"users", "accounts", "categories", "transactions", "entries", "portfolio_snapshots", "audit_logs"} {
		if err := db.Table(table).Count(&count).Error; err != nil {
			t.Errorf("table %q should exist after migration: %v", table, err)
		}
	}
}

func TestFixtures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	if user.ID == "" {
		t.Fatal("user should have an ID")
	}
	if user.DefaultEquityAccountID == nil {
		t.Fatal("user should have a default equity account")
	}

	account := testutil.CreateTestAccount(t, db, user.ID, models.AccountTypeAsset)
	if account.Type != models.AccountTypeAsset {
		t.Errorf("expected asset account, got %s", account.Type)
	}

	entry := testutil.CreateTestEntry(t, db, account.ID, "12.34", models.CurrencyUSD)
	if !entry.Active {
		t.Error("non-zero entry should be active")
	}
	zero := testutil.CreateTestEntry(t, db, account.ID, "0", models.CurrencyUSD)
	if zero.Active {
		t.Error("zero entry should be inactive")
	}

	snap := testutil.CreateTestSnapshot(t, db, "Individual", time.Now(), "110", "100")
	testutil.AssertDecimal(t, snap.Rate, "10")
	if err := snap.Check(nil); err != nil {
		t.Errorf("fixture snapshot should be consistent: %v", err)
	}
}

func TestAssertAppError(t *testing.T) {
	err := errors.WithMessage(errors.ErrAccountNotFound, "custom message")
	testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")
}

func TestAssertNoError(t *testing.T) {
	testutil.AssertNoError(t, nil)
}
