package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "wallet/internal/errors"
	"wallet/internal/models"
	"wallet/internal/pagination"
	"wallet/internal/validator"
)

// maxRateDeviation is the relative tolerance between an assumed exchange
// rate and the provider's reference rate.
var maxRateDeviation = decimal.RequireFromString("0.01")

// transactionService handles transaction-related business logic.
type transactionService struct {
	db      *gorm.DB
	entries EntryServicer
	rates   ExchangeRateProvider
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, entries EntryServicer, rates ExchangeRateProvider) TransactionServicer {
	return &transactionService{db: db, entries: entries, rates: rates}
}

// WithTx returns a copy of the service bound to tx.
func (s *transactionService) WithTx(tx *gorm.DB) TransactionServicer {
	return &transactionService{db: tx, entries: s.entries.WithTx(tx), rates: s.rates}
}

// CreateTransaction creates an empty transaction in one of the user's categories.
func (s *transactionService) CreateTransaction(ctx context.Context, input CreateTransactionInput) (*models.Transaction, error) {
	if err := validator.Struct(input); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, err)
	}

	txn := &models.Transaction{
		UserID:      input.UserID,
		Name:        input.Name,
		CategoryID:  input.CategoryID,
		Amount:      decimal.Zero,
		Currency:    models.CurrencyUSD,
		OccurredUTC: input.OccurredUTC.UTC(),
		OccurredTZ:  input.OccurredTZ,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.Where("id = ? AND user_id = ?", input.CategoryID, input.UserID).First(&category).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrCategoryNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Omit("Category", "Entries").Create(txn).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		txn.Category = &category
		return nil
	})
	if err != nil {
		return nil, err
	}

	return txn, nil
}

// AddEntry posts one leg of the transaction.
func (s *transactionService) AddEntry(ctx context.Context, transactionID string, input AddEntryInput) (*models.Entry, error) {
	if input.Amount.Round(2).IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "entry amount must not be zero")
	}
	if err := validator.Struct(input); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, err)
	}

	var entry *models.Entry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txn, err := loadTransaction(tx, transactionID)
		if err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.Account{}).Where("id = ? AND user_id = ?", input.AccountID, txn.UserID).Count(&count).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count == 0 {
			return apperrors.ErrAccountNotFound
		}

		name := input.Name
		if name == "" {
			name = defaultEntryName(txn)
		}
		entry, err = s.entries.WithTx(tx).Create(ctx, CreateEntryInput{
			AccountID:     input.AccountID,
			Name:          name,
			Amount:        input.Amount,
			Currency:      input.Currency,
			TransactionID: &txn.ID,
			Pending:       input.Pending,
			AutoMerge:     input.AutoMerge,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Finish balances the transaction after its real entries have been added.
// A single unbalanced currency is closed with an entry in the user's default
// equity account. Two unbalanced currencies are a currency exchange whose
// implied rate must be within 1% of the reference rate. Finish may run again
// after entries change.
func (s *transactionService) Finish(ctx context.Context, transactionID string, opts FinishOptions) (*models.Transaction, error) {
	if err := validator.Struct(opts); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, err)
	}

	var result *models.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txn, err := loadTransaction(tx, transactionID)
		if err != nil {
			return err
		}
		if len(txn.Entries) == 0 {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "transaction has no entries")
		}

		net := make(map[models.Currency]decimal.Decimal)
		for _, e := range txn.Entries {
			net[e.Currency] = net[e.Currency].Add(e.Account.Type.Signed(e.Amount))
		}
		var residual []models.Currency
		for currency, amount := range net {
			if !amount.Round(2).IsZero() {
				residual = append(residual, currency)
			}
		}
		sort.Slice(residual, func(i, j int) bool { return residual[i] < residual[j] })

		var assumed decimal.NullDecimal
		switch len(residual) {
		case 0:
		case 1:
			if err := s.plug(ctx, tx, txn, residual[0], net[residual[0]], opts); err != nil {
				return err
			}
			if txn, err = loadTransaction(tx, transactionID); err != nil {
				return err
			}
		case 2:
			rate, err := s.checkExchange(ctx, residual, net)
			if err != nil {
				return err
			}
			assumed = decimal.NewNullDecimal(rate)
		default:
			return apperrors.WithMessage(apperrors.ErrUnbalancedTransaction,
				fmt.Sprintf("%d currencies left unbalanced, at most 2 are supported", len(residual)))
		}
		// Only an exchange carries an assumed rate; a re-finish clears it.
		txn.ExchangeRateAssumed = assumed

		if err := summarize(ctx, tx, s.rates, txn); err != nil {
			return err
		}
		result = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// plug closes a single-currency imbalance in the default equity account.
// Equity is credit-normal, so posting +net contributes -net.
func (s *transactionService) plug(ctx context.Context, tx *gorm.DB, txn *models.Transaction, currency models.Currency, net decimal.Decimal, opts FinishOptions) error {
	var user models.User
	if err := tx.Where("id = ?", txn.UserID).First(&user).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if user.DefaultEquityAccountID == nil {
		return apperrors.ErrNoEquityAccount
	}

	name := opts.Name
	if name == "" {
		name = defaultEntryName(txn)
	}
	_, err := s.entries.WithTx(tx).Create(ctx, CreateEntryInput{
		AccountID:     *user.DefaultEquityAccountID,
		Name:          name,
		Amount:        net.Round(2),
		Currency:      currency,
		TransactionID: &txn.ID,
		AutoMerge:     opts.AutoMerge,
	})
	return err
}

// checkExchange derives the assumed rate of a two-currency transaction as
// quote units per base unit. USD is the base when present.
func (s *transactionService) checkExchange(ctx context.Context, currencies []models.Currency, net map[models.Currency]decimal.Decimal) (decimal.Decimal, error) {
	base, quote := currencies[0], currencies[1]
	if quote == models.CurrencyUSD {
		base, quote = quote, base
	}
	assumed := net[quote].Neg().Div(net[base]).Round(4)

	reference, err := crossRate(ctx, s.rates, base, quote)
	if err != nil {
		return decimal.Zero, err
	}
	deviation := assumed.Div(reference).Sub(decimal.NewFromInt(1)).Abs()
	if deviation.GreaterThanOrEqual(maxRateDeviation) {
		return decimal.Zero, apperrors.WithMessage(apperrors.ErrExchangeRateDeviation,
			fmt.Sprintf("assumed %s/%s rate %s deviates from reference %s", quote, base, assumed, reference.Round(4)))
	}
	return assumed, nil
}

func crossRate(ctx context.Context, rates ExchangeRateProvider, base, quote models.Currency) (decimal.Decimal, error) {
	one := decimal.NewFromInt(1)
	rate := func(c models.Currency) (decimal.Decimal, error) {
		if c == models.CurrencyUSD {
			return one, nil
		}
		r, err := rates.Rate(ctx, c)
		if err != nil {
			return decimal.Zero, fmt.Errorf("exchange rate for %s: %w", c, err)
		}
		if !r.IsPositive() {
			return decimal.Zero, apperrors.WithMessage(apperrors.ErrInternalServer, fmt.Sprintf("non-positive exchange rate %s for %s", r, c))
		}
		return r, nil
	}
	rb, err := rate(base)
	if err != nil {
		return decimal.Zero, err
	}
	rq, err := rate(quote)
	if err != nil {
		return decimal.Zero, err
	}
	return rq.Div(rb), nil
}

// summarize sets the transaction's amount and currency from the entry with the
// largest USD value and writes them back.
func summarize(ctx context.Context, tx *gorm.DB, rates ExchangeRateProvider, txn *models.Transaction) error {
	var largest *models.Entry
	largestUSD := decimal.Zero
	for i := range txn.Entries {
		e := &txn.Entries[i]
		usd, err := usdAmount(ctx, rates, e.Amount, e.Currency)
		if err != nil {
			return err
		}
		if largest == nil || usd.Abs().GreaterThan(largestUSD) {
			largest, largestUSD = e, usd.Abs()
		}
	}
	if largest != nil {
		txn.Amount = largest.Amount.Abs()
		txn.Currency = largest.Currency
	}

	err := tx.Model(&models.Transaction{}).Where("id = ?", txn.ID).Updates(map[string]interface{}{
		"amount":                txn.Amount,
		"currency":              txn.Currency,
		"exchange_rate_assumed": txn.ExchangeRateAssumed,
	}).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// RecordTransaction creates a transaction, posts its entries and balances it
// as a single unit of work.
func (s *transactionService) RecordTransaction(ctx context.Context, input RecordTransactionInput) (*models.Transaction, error) {
	if err := validator.Struct(input); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, err)
	}

	var result *models.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		svc := s.WithTx(tx)
		txn, err := svc.CreateTransaction(ctx, input.CreateTransactionInput)
		if err != nil {
			return err
		}
		for _, entry := range input.Entries {
			if _, err := svc.AddEntry(ctx, txn.ID, entry); err != nil {
				return err
			}
		}
		result, err = svc.Finish(ctx, txn.ID, input.Finish)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetTransactionByID retrieves a transaction with its entries for a specific user
func (s *transactionService) GetTransactionByID(ctx context.Context, userID, transactionID string) (*models.Transaction, error) {
	txn, err := loadTransaction(s.db.WithContext(ctx), transactionID)
	if err != nil {
		return nil, err
	}
	if txn.UserID != userID {
		return nil, apperrors.ErrTransactionNotFound
	}
	return txn, nil
}

// GetUserTransactions retrieves a paginated list of the user's transactions, newest first.
func (s *transactionService) GetUserTransactions(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	var totalItems int64
	base := s.db.WithContext(ctx).Model(&models.Transaction{}).Where("user_id = ?", userID)
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	err := base.Preload("Category").
		Order("occurred_utc DESC").Order("id DESC").
		Scopes(pagination.Paginate(page)).
		Find(&transactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// loadTransaction loads a transaction with its category and every entry
// attached to it, in posting order, each with its account.
func loadTransaction(tx *gorm.DB, transactionID string) (*models.Transaction, error) {
	var txn models.Transaction
	err := tx.Preload("Category").
		Preload("Entries", func(db *gorm.DB) *gorm.DB { return db.Order("entries.id") }).
		Preload("Entries.Account").
		Where("id = ?", transactionID).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &txn, nil
}

// defaultEntryName is the transaction name, else the category name, cut to
// the entry name limit.
func defaultEntryName(txn *models.Transaction) string {
	name := txn.Name
	if name == "" && txn.Category != nil {
		name = txn.Category.Name
	}
	if r := []rune(name); len(r) > 32 {
		name = string(r[:32])
	}
	return name
}
