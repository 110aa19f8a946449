package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"wallet/internal/models"
	"wallet/internal/pagination"
)

// ExchangeRateProvider supplies reference exchange rates.
type ExchangeRateProvider interface {
	// Rate returns how many units of currency one USD buys.
	Rate(ctx context.Context, currency models.Currency) (decimal.Decimal, error)
}

// PortfolioDataSource reports daily performance of external portfolios.
type PortfolioDataSource interface {
	Portfolios(ctx context.Context) ([]string, error)
	// FetchDailyPerformance returns nil when the source has no performance for name.
	FetchDailyPerformance(ctx context.Context, name string) (*models.Performance, error)
}

// Clock reports the current calendar date in the reporting timezone.
type Clock interface {
	Today() time.Time
}

// Locker guards a key across processes. The returned function releases it.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(ctx context.Context, name string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByName(ctx context.Context, name string) (*models.User, error)
}

// AccountServicer defines the contract for account-related business logic.
type AccountServicer interface {
	CreateAccount(ctx context.Context, userID, name string, accountType models.AccountType) (*models.Account, error)
	GetAccountByID(ctx context.Context, userID, accountID string) (*models.Account, error)
	Balance(ctx context.Context, accountID string, currency models.Currency) (decimal.Decimal, error)
	ComputeBalances(ctx context.Context, accountIDs []string) (map[string]models.Balances, error)
	ListForUser(ctx context.Context, userID string) ([]models.AccountWithBalance, error)
	ActiveEntries(ctx context.Context, userID string) (map[string][]models.Entry, error)
	WithTx(tx *gorm.DB) AccountServicer
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(ctx context.Context, userID, name string) (*models.Category, error)
	GetCategoryByID(ctx context.Context, userID, categoryID string) (*models.Category, error)
	ListForUser(ctx context.Context, userID string) ([]models.Category, error)
}

// CreateEntryInput holds the fields of a new ledger entry.
type CreateEntryInput struct {
	AccountID     string          `validate:"required"`
	Name          string          `validate:"required,max=32"`
	Amount        decimal.Decimal
	Currency      models.Currency `validate:"currency"`
	TransactionID *string
	Pending       bool
	// AutoMerge lists entries the new entry is merged with right away.
	AutoMerge []string
}

// EntryServicer defines the contract for ledger entry operations.
type EntryServicer interface {
	Create(ctx context.Context, input CreateEntryInput) (*models.Entry, error)
	Merge(ctx context.Context, entryIDs []string, primaryID string) (*models.Entry, error)
	Split(ctx context.Context, entryID, name string, amount decimal.Decimal) (*models.Entry, error)
	ModifyAmount(ctx context.Context, entryID string, newAmount decimal.Decimal) (*models.Entry, error)
	USDAmount(ctx context.Context, entry *models.Entry) (decimal.Decimal, error)
	WithTx(tx *gorm.DB) EntryServicer
}

// CreateTransactionInput holds the fields of a new transaction.
type CreateTransactionInput struct {
	UserID      string          `validate:"required"`
	Name        string          `validate:"max=128"`
	CategoryID  string          `validate:"required"`
	OccurredUTC time.Time       `validate:"required"`
	OccurredTZ  models.Timezone `validate:"timezone"`
}

// AddEntryInput holds one leg added to a transaction. Name defaults to the
// transaction name, then the category name.
type AddEntryInput struct {
	AccountID string          `validate:"required"`
	Amount    decimal.Decimal
	Currency  models.Currency `validate:"currency"`
	Name      string          `validate:"max=32"`
	Pending   bool
	AutoMerge []string
}

// FinishOptions controls the balancing entry created by Finish.
type FinishOptions struct {
	Name      string `validate:"max=32"`
	AutoMerge []string
}

// RecordTransactionInput creates, fills and balances a transaction at once.
type RecordTransactionInput struct {
	CreateTransactionInput
	Entries []AddEntryInput `validate:"required,min=1,dive"`
	Finish  FinishOptions
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(ctx context.Context, input CreateTransactionInput) (*models.Transaction, error)
	AddEntry(ctx context.Context, transactionID string, input AddEntryInput) (*models.Entry, error)
	Finish(ctx context.Context, transactionID string, opts FinishOptions) (*models.Transaction, error)
	RecordTransaction(ctx context.Context, input RecordTransactionInput) (*models.Transaction, error)
	GetTransactionByID(ctx context.Context, userID, transactionID string) (*models.Transaction, error)
	GetUserTransactions(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error)
	WithTx(tx *gorm.DB) TransactionServicer
}

// SeriesPoint is one de-compounded point of a portfolio value series.
type SeriesPoint struct {
	Date  time.Time       `json:"date"`
	Value decimal.Decimal `json:"value"`
	Gain  decimal.Decimal `json:"gain"`
	Rate  decimal.Decimal `json:"rate"`
}

// PortfolioServicer defines the contract for portfolio snapshot reconciliation.
type PortfolioServicer interface {
	Update(ctx context.Context) ([]models.PortfolioSnapshot, error)
	Inspect(current, previous *models.PortfolioSnapshot) error
	Fix(current, previous *models.PortfolioSnapshot) ([]models.SnapshotCorrection, error)
	FixSnapshot(ctx context.Context, name string, date time.Time) (*models.PortfolioSnapshot, []models.SnapshotCorrection, error)
	InspectSeries(ctx context.Context, name string) error
	NetValueSeries(ctx context.Context, name string, limit int) ([]SeriesPoint, error)
	ListSnapshots(ctx context.Context, name string, page pagination.PageRequest) (*pagination.PageResponse[models.PortfolioSnapshot], error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(ctx context.Context, userID *string, action, resourceType, resourceID string, changes map[string]any)
	WithTx(tx *gorm.DB) AuditServicer
}
