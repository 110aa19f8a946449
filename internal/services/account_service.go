package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "wallet/internal/errors"
	"wallet/internal/models"
	"wallet/internal/validator"
)

// accountService handles account-related business logic.
type accountService struct {
	db *gorm.DB
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(db *gorm.DB) AccountServicer {
	return &accountService{db: db}
}

// WithTx returns a copy of the service bound to tx.
func (s *accountService) WithTx(tx *gorm.DB) AccountServicer {
	return &accountService{db: tx}
}

type createAccountInput struct {
	Name string `validate:"required,max=32"`
	Type string `validate:"account_type"`
}

// CreateAccount creates a new account for a user. Account names are unique per user.
func (s *accountService) CreateAccount(ctx context.Context, userID, name string, accountType models.AccountType) (*models.Account, error) {
	if err := validator.Struct(createAccountInput{Name: name, Type: string(accountType)}); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, err)
	}

	account := &models.Account{
		UserID: userID,
		Name:   name,
		Type:   accountType,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count == 0 {
			return apperrors.ErrUserNotFound
		}

		if err := tx.Model(&models.Account{}).Where("user_id = ? AND name = ?", userID, name).Count(&count).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count > 0 {
			return apperrors.ErrDuplicateAccountName
		}

		if err := tx.Create(account).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return account, nil
}

// GetAccountByID retrieves an account by ID for a specific user
func (s *accountService) GetAccountByID(ctx context.Context, userID, accountID string) (*models.Account, error) {
	var account models.Account
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", accountID, userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// Balance sums the active entries of an account in one currency.
// Merged-away entries are inactive, so nothing is counted twice.
func (s *accountService) Balance(ctx context.Context, accountID string, currency models.Currency) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := s.db.WithContext(ctx).Model(&models.Entry{}).
		Select("SUM(amount)").
		Where("account_id = ? AND currency = ? AND active = ?", accountID, currency, true).
		Row().Scan(&sum)
	if err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal.Round(2), nil
}

type balanceRow struct {
	AccountID string
	Currency  models.Currency
	Total     decimal.Decimal
}

// ComputeBalances returns per-currency balances over active entries for each
// requested account. Accounts without entries map to empty balances.
func (s *accountService) ComputeBalances(ctx context.Context, accountIDs []string) (map[string]models.Balances, error) {
	result := make(map[string]models.Balances, len(accountIDs))
	if len(accountIDs) == 0 {
		return result, nil
	}
	for _, id := range accountIDs {
		result[id] = models.Balances{}
	}

	var rows []balanceRow
	err := s.db.WithContext(ctx).Model(&models.Entry{}).
		Select("account_id, currency, SUM(amount) AS total").
		Where("account_id IN ? AND active = ?", accountIDs, true).
		Group("account_id, currency").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	for _, row := range rows {
		result[row.AccountID][row.Currency] = row.Total.Round(2)
	}
	return result, nil
}

// ListForUser returns the user's accounts with balances, most used first.
// Usage is the number of entries ever posted to the account; ties fall back
// to account ID.
func (s *accountService) ListForUser(ctx context.Context, userID string) ([]models.AccountWithBalance, error) {
	var accounts []models.Account
	err := s.db.WithContext(ctx).Model(&models.Account{}).
		Select("accounts.*").
		Joins("LEFT JOIN (SELECT account_id, COUNT(*) AS entry_count FROM entries GROUP BY account_id) AS usage_counts ON usage_counts.account_id = accounts.id").
		Where("accounts.user_id = ?", userID).
		Order("COALESCE(usage_counts.entry_count, 0) DESC").
		Order("accounts.id").
		Find(&accounts).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	ids := make([]string, len(accounts))
	for i, a := range accounts {
		ids[i] = a.ID
	}
	balances, err := s.ComputeBalances(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]models.AccountWithBalance, len(accounts))
	for i, a := range accounts {
		result[i] = models.AccountWithBalance{Account: a, Balances: balances[a.ID]}
	}
	return result, nil
}

// ActiveEntries returns the active entries of every account the user owns,
// keyed by account ID.
func (s *accountService) ActiveEntries(ctx context.Context, userID string) (map[string][]models.Entry, error) {
	var entries []models.Entry
	err := s.db.WithContext(ctx).
		Joins("JOIN accounts ON accounts.id = entries.account_id").
		Where("accounts.user_id = ? AND entries.active = ?", userID, true).
		Order("entries.id").
		Find(&entries).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := make(map[string][]models.Entry)
	for _, e := range entries {
		result[e.AccountID] = append(result[e.AccountID], e)
	}
	return result, nil
}
