package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "wallet/internal/errors"
	"wallet/internal/models"
	"wallet/internal/validator"
)

// entryService implements the ledger entry state machine. Entries are never
// deleted: merging deactivates the inputs and points them at a freshly
// created successor, so successor chains cannot form cycles.
type entryService struct {
	db    *gorm.DB
	rates ExchangeRateProvider
	audit AuditServicer
}

// NewEntryService creates a new EntryServicer.
func NewEntryService(db *gorm.DB, rates ExchangeRateProvider, audit AuditServicer) EntryServicer {
	return &entryService{db: db, rates: rates, audit: audit}
}

// WithTx returns a copy of the service bound to tx, so its operations join
// the caller's unit of work.
func (s *entryService) WithTx(tx *gorm.DB) EntryServicer {
	return &entryService{db: tx, rates: s.rates, audit: s.audit}
}

// Create posts a new entry. Zero-amount entries are stored inactive as
// placeholders. With AutoMerge the new entry is merged with the listed
// entries and the successor is returned.
func (s *entryService) Create(ctx context.Context, input CreateEntryInput) (*models.Entry, error) {
	var result *models.Entry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, successor, err := s.create(tx, input)
		if err != nil {
			return err
		}
		result = created
		if successor != nil {
			result = successor
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// create returns the created entry and, when it was auto-merged, the successor.
func (s *entryService) create(tx *gorm.DB, input CreateEntryInput) (*models.Entry, *models.Entry, error) {
	if err := validator.Struct(input); err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrInvalidInput, err)
	}

	var count int64
	if err := tx.Model(&models.Account{}).Where("id = ?", input.AccountID).Count(&count).Error; err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return nil, nil, apperrors.ErrAccountNotFound
	}

	amount := input.Amount.Round(2)
	entry := &models.Entry{
		AccountID:     input.AccountID,
		Name:          input.Name,
		Amount:        amount,
		Currency:      input.Currency,
		TransactionID: input.TransactionID,
		Pending:       input.Pending,
		Active:        !amount.IsZero(),
	}
	if err := tx.Omit(clause.Associations).Create(entry).Error; err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if len(input.AutoMerge) == 0 || !entry.Active {
		return entry, nil, nil
	}

	others, err := loadEntriesForUpdate(tx, input.AutoMerge)
	if err != nil {
		return nil, nil, err
	}
	successor, err := mergeEntries(tx, append([]*models.Entry{entry}, others...), nil)
	if err != nil {
		return nil, nil, err
	}
	return entry, successor, nil
}

// Merge collapses the given entries into one successor. primaryID is
// optional; by default the entry with the largest absolute amount names the
// successor, the first one listed winning ties.
func (s *entryService) Merge(ctx context.Context, entryIDs []string, primaryID string) (*models.Entry, error) {
	var successor *models.Entry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entries, err := loadEntriesForUpdate(tx, entryIDs)
		if err != nil {
			return err
		}

		var primary *models.Entry
		if primaryID != "" {
			for _, e := range entries {
				if e.ID == primaryID {
					primary = e
				}
			}
			if primary == nil {
				return apperrors.WithMessage(apperrors.ErrEntryNotMergeable, "primary entry is not among the merged entries")
			}
		}

		successor, err = mergeEntries(tx, entries, primary)
		return err
	})
	if err != nil {
		return nil, err
	}
	return successor, nil
}

// loadEntriesForUpdate loads entries in the order given, locking the rows
// where the dialect supports it.
func loadEntriesForUpdate(tx *gorm.DB, ids []string) ([]*models.Entry, error) {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return nil, apperrors.WithMessage(apperrors.ErrEntryNotMergeable, "entry listed twice")
		}
		seen[id] = true
	}

	var rows []models.Entry
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	byID := make(map[string]*models.Entry, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}

	entries := make([]*models.Entry, 0, len(ids))
	for _, id := range ids {
		e, ok := byID[id]
		if !ok {
			return nil, apperrors.WithMessage(apperrors.ErrEntryNotFound, fmt.Sprintf("entry %s not found", id))
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// mergeEntries creates the successor and deactivates the inputs. The
// deactivation only matches rows that are still active, so when two merges
// race over the same entry the second one fails instead of double-counting.
func mergeEntries(tx *gorm.DB, entries []*models.Entry, primary *models.Entry) (*models.Entry, error) {
	if len(entries) < 2 {
		return nil, apperrors.WithMessage(apperrors.ErrEntryNotMergeable, "at least two entries are required")
	}

	first := entries[0]
	given := primary != nil
	ids := make([]string, len(entries))
	sum := decimal.Zero
	for i, e := range entries {
		switch {
		case e.AccountID != first.AccountID:
			return nil, apperrors.WithMessage(apperrors.ErrEntryNotMergeable, "entries belong to different accounts")
		case e.Currency != first.Currency:
			return nil, apperrors.WithMessage(apperrors.ErrEntryNotMergeable, "entries have different currencies")
		case e.Pending:
			return nil, apperrors.WithMessage(apperrors.ErrEntryNotMergeable, "pending entries cannot be merged")
		case !e.Active:
			return nil, apperrors.WithMessage(apperrors.ErrEntryNotMergeable, "inactive entries cannot be merged")
		}
		if !given && (primary == nil || e.Amount.Abs().GreaterThan(primary.Amount.Abs())) {
			primary = e
		}
		ids[i] = e.ID
		sum = sum.Add(e.Amount)
	}

	successor := &models.Entry{
		AccountID: first.AccountID,
		Name:      primary.Name,
		Amount:    sum.Round(2),
		Currency:  first.Currency,
	}
	successor.Active = !successor.Amount.IsZero()
	if err := tx.Omit(clause.Associations).Create(successor).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	res := tx.Model(&models.Entry{}).
		Where("id IN ? AND active = ?", ids, true).
		Updates(map[string]interface{}{"active": false, "successor_id": successor.ID})
	if res.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected != int64(len(ids)) {
		return nil, apperrors.ErrEntryConcurrentChange
	}

	for _, e := range entries {
		e.Active = false
		e.SuccessorID = &successor.ID
	}
	return successor, nil
}

// Split carves amount out of an active entry. The entry is merged with a
// -amount counterpart, leaving a successor that carries the remainder, and a
// standalone +amount entry is returned.
func (s *entryService) Split(ctx context.Context, entryID, name string, amount decimal.Decimal) (*models.Entry, error) {
	amount = amount.Round(2)
	if amount.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidSplit, "split amount must not be zero")
	}

	var branch *models.Entry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entries, err := loadEntriesForUpdate(tx, []string{entryID})
		if err != nil {
			return err
		}
		trunk := entries[0]
		if !trunk.Active || trunk.Pending {
			return apperrors.WithMessage(apperrors.ErrInvalidSplit, "only active, settled entries can be split")
		}
		if name == "" {
			name = trunk.Name
		}

		counterpart, _, err := s.create(tx, CreateEntryInput{
			AccountID: trunk.AccountID,
			Name:      name,
			Amount:    amount.Neg(),
			Currency:  trunk.Currency,
		})
		if err != nil {
			return err
		}
		if _, err := mergeEntries(tx, []*models.Entry{trunk, counterpart}, trunk); err != nil {
			return err
		}

		branch, _, err = s.create(tx, CreateEntryInput{
			AccountID: trunk.AccountID,
			Name:      name,
			Amount:    amount,
			Currency:  trunk.Currency,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return branch, nil
}

// ModifyAmount changes the amount of an entry posted by a transaction and
// moves the difference onto its offsetting entry so the transaction stays
// balanced. The offset is the other entry of a two-entry transaction,
// otherwise the user's default equity entry in the same currency.
func (s *entryService) ModifyAmount(ctx context.Context, entryID string, newAmount decimal.Decimal) (*models.Entry, error) {
	newAmount = newAmount.Round(2)

	var entry *models.Entry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var self models.Entry
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Preload("Account").
			Where("id = ?", entryID).First(&self).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrEntryNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if !self.Active || self.TransactionID == nil {
			return apperrors.WithMessage(apperrors.ErrEntryNotModifiable, "only active entries of a transaction can be modified")
		}
		entry = &self

		delta := newAmount.Sub(self.Amount)
		if delta.IsZero() {
			return nil
		}

		txn, err := loadTransaction(tx, *self.TransactionID)
		if err != nil {
			return err
		}
		offset, err := s.findOffset(tx, txn, &self)
		if err != nil {
			return err
		}

		oldAmount, oldOffset := self.Amount, offset.Amount
		if self.Account.Type.IsDebitNormal() == offset.Account.Type.IsDebitNormal() {
			offset.Amount = offset.Amount.Sub(delta)
		} else {
			offset.Amount = offset.Amount.Add(delta)
		}
		self.Amount = newAmount

		for _, e := range []*models.Entry{offset, &self} {
			e.Active = !e.Amount.IsZero()
			res := tx.Model(&models.Entry{}).
				Where("id = ? AND active = ?", e.ID, true).
				Updates(map[string]interface{}{"amount": e.Amount, "active": e.Active})
			if res.Error != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
			}
			if res.RowsAffected != 1 {
				return apperrors.ErrEntryConcurrentChange
			}
		}

		for i := range txn.Entries {
			switch txn.Entries[i].ID {
			case self.ID:
				txn.Entries[i].Amount = self.Amount
			case offset.ID:
				txn.Entries[i].Amount = offset.Amount
			}
		}
		if err := summarize(ctx, tx, s.rates, txn); err != nil {
			return err
		}

		s.audit.WithTx(tx).Log(ctx, &txn.UserID, "modify_amount", "entry", self.ID, map[string]any{
			"transaction_id":   txn.ID,
			"from":             oldAmount.StringFixed(2),
			"to":               self.Amount.StringFixed(2),
			"offset_entry_id":  offset.ID,
			"offset_from":      oldOffset.StringFixed(2),
			"offset_to":        offset.Amount.StringFixed(2),
			"offset_is_active": offset.Active,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *entryService) findOffset(tx *gorm.DB, txn *models.Transaction, self *models.Entry) (*models.Entry, error) {
	candidates := make([]*models.Entry, 0, len(txn.Entries))
	if len(txn.Entries) == 2 {
		for i := range txn.Entries {
			if txn.Entries[i].ID != self.ID {
				candidates = append(candidates, &txn.Entries[i])
			}
		}
	} else {
		var user models.User
		if err := tx.Where("id = ?", txn.UserID).First(&user).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if user.DefaultEquityAccountID == nil {
			return nil, apperrors.ErrNoEquityAccount
		}
		for i := range txn.Entries {
			if txn.Entries[i].AccountID == *user.DefaultEquityAccountID {
				candidates = append(candidates, &txn.Entries[i])
			}
		}
	}

	for _, e := range candidates {
		if e.ID != self.ID && e.Active && e.Currency == self.Currency {
			return e, nil
		}
	}
	return nil, apperrors.ErrOffsetEntryNotFound
}

// USDAmount converts the entry amount to USD at the provider's current rate.
func (s *entryService) USDAmount(ctx context.Context, entry *models.Entry) (decimal.Decimal, error) {
	return usdAmount(ctx, s.rates, entry.Amount, entry.Currency)
}

func usdAmount(ctx context.Context, rates ExchangeRateProvider, amount decimal.Decimal, currency models.Currency) (decimal.Decimal, error) {
	if currency == models.CurrencyUSD {
		return amount, nil
	}
	rate, err := rates.Rate(ctx, currency)
	if err != nil {
		return decimal.Zero, fmt.Errorf("exchange rate for %s: %w", currency, err)
	}
	if !rate.IsPositive() {
		return decimal.Zero, apperrors.WithMessage(apperrors.ErrInternalServer, fmt.Sprintf("non-positive exchange rate %s for %s", rate, currency))
	}
	return amount.Div(rate), nil
}
