package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"wallet/internal/models"
	"wallet/internal/testutil"
)

func TestCreateAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)
		user := testutil.CreateTestUser(t, db)

		account, err := svc.CreateAccount(ctx, user.ID, "Checking", models.AccountTypeAsset)
		testutil.AssertNoError(t, err)

		if account.ID == "" {
			t.Fatal("expected account ID")
		}
		balance, err := svc.Balance(ctx, account.ID, models.CurrencyUSD)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, balance, "0")
	})

	t.Run("duplicate_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateAccount(ctx, user.ID, "Checking", models.AccountTypeAsset)
		testutil.AssertNoError(t, err)

		_, err = svc.CreateAccount(ctx, user.ID, "Checking", models.AccountTypeLiability)
		testutil.AssertAppError(t, err, "DUPLICATE_ACCOUNT_NAME")
	})

	t.Run("same_name_other_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)
		alice := testutil.CreateTestUser(t, db)
		bob := testutil.CreateTestUser(t, db)

		_, err := svc.CreateAccount(ctx, alice.ID, "Checking", models.AccountTypeAsset)
		testutil.AssertNoError(t, err)
		_, err = svc.CreateAccount(ctx, bob.ID, "Checking", models.AccountTypeAsset)
		testutil.AssertNoError(t, err)
	})

	t.Run("invalid_type", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateAccount(ctx, user.ID, "Wallet", models.AccountType("cash"))
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("unknown_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)

		_, err := svc.CreateAccount(ctx, models.NewID(), "Checking", models.AccountTypeAsset)
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})
}

func TestBalances(t *testing.T) {
	ctx := context.Background()

	t.Run("active_entries_only", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID, models.AccountTypeAsset)

		testutil.CreateTestEntry(t, db, account.ID, "10.10", models.CurrencyUSD)
		testutil.CreateTestEntry(t, db, account.ID, "0.20", models.CurrencyUSD)
		testutil.CreateTestEntry(t, db, account.ID, "88", models.CurrencyRMB)
		merged := testutil.CreateTestEntry(t, db, account.ID, "1000", models.CurrencyUSD)
		db.Model(merged).Update("active", false)

		balance, err := svc.Balance(ctx, account.ID, models.CurrencyUSD)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, balance, "10.30")

		balances, err := svc.ComputeBalances(ctx, []string{account.ID})
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, balances[account.ID].Get(models.CurrencyUSD), "10.30")
		testutil.AssertDecimal(t, balances[account.ID].Get(models.CurrencyRMB), "88")
	})

	t.Run("empty_account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID, models.AccountTypeAsset)

		balances, err := svc.ComputeBalances(ctx, []string{account.ID})
		testutil.AssertNoError(t, err)
		if len(balances[account.ID]) != 0 {
			t.Errorf("expected no balances, got %v", balances[account.ID])
		}
	})
}

func TestListForUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAccountService(db)
	ctx := context.Background()
	user := testutil.CreateTestUser(t, db)

	quiet := testutil.CreateTestAccount(t, db, user.ID, models.AccountTypeAsset)
	busy := testutil.CreateTestAccount(t, db, user.ID, models.AccountTypeLiability)
	for i := 0; i < 3; i++ {
		testutil.CreateTestEntry(t, db, busy.ID, "5", models.CurrencyUSD)
	}
	testutil.CreateTestEntry(t, db, quiet.ID, "1", models.CurrencyUSD)

	accounts, err := svc.ListForUser(ctx, user.ID)
	testutil.AssertNoError(t, err)

	// busy, quiet, then the unused equity account
	if len(accounts) != 3 {
		t.Fatalf("expected 3 accounts, got %d", len(accounts))
	}
	if accounts[0].ID != busy.ID || accounts[1].ID != quiet.ID {
		t.Errorf("unexpected order: %s, %s", accounts[0].Name, accounts[1].Name)
	}
	if accounts[2].ID != *user.DefaultEquityAccountID {
		t.Errorf("expected equity account last, got %s", accounts[2].Name)
	}
	if !accounts[0].Balances.Get(models.CurrencyUSD).Equal(decimal.NewFromInt(15)) {
		t.Errorf("expected busy balance 15, got %s", accounts[0].Balances.Get(models.CurrencyUSD))
	}
}

func TestActiveEntries(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAccountService(db)
	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)

	account := testutil.CreateTestAccount(t, db, user.ID, models.AccountTypeAsset)
	testutil.CreateTestEntry(t, db, account.ID, "3", models.CurrencyUSD)
	testutil.CreateTestEntry(t, db, account.ID, "0", models.CurrencyUSD)
	foreign := testutil.CreateTestAccount(t, db, other.ID, models.AccountTypeAsset)
	testutil.CreateTestEntry(t, db, foreign.ID, "9", models.CurrencyUSD)

	entries, err := svc.ActiveEntries(context.Background(), user.ID)
	testutil.AssertNoError(t, err)

	if len(entries) != 1 || len(entries[account.ID]) != 1 {
		t.Fatalf("expected one active entry in one account, got %v", entries)
	}
}
