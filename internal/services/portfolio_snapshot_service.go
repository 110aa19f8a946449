package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	apperrors "wallet/internal/errors"
	"wallet/internal/logger"
	"wallet/internal/models"
	"wallet/internal/pagination"
)

// portfolioSnapshotService reconciles daily external portfolio performance
// into the snapshot series.
type portfolioSnapshotService struct {
	db      *gorm.DB
	sources []PortfolioDataSource
	clock   Clock
	locker  Locker
	audit   AuditServicer
	group   singleflight.Group
}

// NewPortfolioSnapshotService creates a new PortfolioServicer. locker may be
// nil when a single process runs updates.
func NewPortfolioSnapshotService(db *gorm.DB, clock Clock, locker Locker, audit AuditServicer, sources ...PortfolioDataSource) PortfolioServicer {
	return &portfolioSnapshotService{
		db:      db,
		sources: sources,
		clock:   clock,
		locker:  locker,
		audit:   audit,
	}
}

// Update records today's performance of every portfolio the data sources
// report. Each portfolio is written in its own transaction; a failure rolls
// back that portfolio only. Errors of all portfolios are joined.
func (s *portfolioSnapshotService) Update(ctx context.Context) ([]models.PortfolioSnapshot, error) {
	today := models.DateOf(s.clock.Today())
	log := logger.Get()

	var updated []models.PortfolioSnapshot
	var errs []error
	for _, source := range s.sources {
		names, err := source.Portfolios(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("list portfolios: %w", err))
			continue
		}

		for _, name := range names {
			perf, err := source.FetchDailyPerformance(ctx, name)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				continue
			}
			if perf == nil || perf.Empty() {
				log.Infow("skipping empty portfolio", "name", name)
				continue
			}

			snapshot, err := s.updateOne(ctx, name, today, perf)
			if err != nil {
				log.Errorw("failed to update portfolio snapshot", "name", name, "error", err)
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				continue
			}
			log.Infow("updated portfolio snapshot", "name", name, "snapshot", snapshot.String())
			updated = append(updated, *snapshot)
		}
	}

	return updated, errors.Join(errs...)
}

// updateOne runs at most once at a time per name, in-process and across
// processes sharing the locker.
func (s *portfolioSnapshotService) updateOne(ctx context.Context, name string, today time.Time, perf *models.Performance) (*models.PortfolioSnapshot, error) {
	v, err, _ := s.group.Do(name, func() (interface{}, error) {
		if s.locker != nil {
			unlock, err := s.locker.Lock(ctx, "portfolio:"+name)
			if err != nil {
				return nil, fmt.Errorf("lock portfolio: %w", err)
			}
			defer unlock()
		}
		return s.record(ctx, name, today, perf)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.PortfolioSnapshot), nil
}

func (s *portfolioSnapshotService) record(ctx context.Context, name string, today time.Time, perf *models.Performance) (*models.PortfolioSnapshot, error) {
	var current *models.PortfolioSnapshot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var latest []models.PortfolioSnapshot
		if err := tx.Where("name = ?", name).Order("date DESC").Limit(2).Find(&latest).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		var previous *models.PortfolioSnapshot
		if len(latest) > 0 && models.DateOf(latest[0].Date).Equal(today) {
			current = &latest[0]
			if len(latest) > 1 {
				previous = &latest[1]
			}
		} else {
			current = &models.PortfolioSnapshot{Name: name, Date: today}
			if len(latest) > 0 {
				previous = &latest[0]
			}
		}

		current.Value = perf.Value.Round(2)
		current.Gain = perf.Gain.Round(2)
		current.Rate = perf.Rate.Round(2)
		current.StartValue = perf.StartValue.Round(2)
		current.NetCashFlow = perf.NetCashFlow.Round(2)
		current.CapitalGain = perf.CapitalGain.Round(2)
		current.DividendGain = perf.DividendGain.Round(2)

		costBasis := decimal.Zero
		if previous != nil && previous.CostBasis.Valid {
			costBasis = previous.CostBasis.Decimal
		}
		current.CostBasis = decimal.NewNullDecimal(perf.NetCashFlow.RoundBank(-2).Add(costBasis))

		if previous != nil {
			startDate, prevDate := models.DateOf(perf.StartDate), models.DateOf(previous.Date)
			if !startDate.Equal(prevDate) {
				return apperrors.WithMessage(apperrors.ErrSnapshotDiscontinuity, fmt.Sprintf(
					"%s: start date %s not matched, expected %s", name,
					startDate.Format(time.DateOnly), prevDate.Format(time.DateOnly)))
			}
		}
		if err := s.Inspect(current, previous); err != nil {
			return err
		}

		if err := tx.Save(current).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return current, nil
}

// Inspect verifies the snapshot's derived fields and its continuity with
// previous without changing anything.
func (s *portfolioSnapshotService) Inspect(current, previous *models.PortfolioSnapshot) error {
	if previous != nil && previous.Name != current.Name {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "snapshots belong to different portfolios")
	}
	mismatch := current.Check(previous)
	if mismatch == nil {
		return nil
	}

	sentinel := apperrors.ErrSnapshotMismatch
	if mismatch.Continuity() {
		sentinel = apperrors.ErrSnapshotDiscontinuity
	}
	err := apperrors.Wrap(sentinel, mismatch)
	err.Message = fmt.Sprintf("%s %s: %s", current.Name, current.Date.Format(time.DateOnly), mismatch.Error())
	return err
}

// Fix repairs the snapshot in memory and logs every corrected field.
func (s *portfolioSnapshotService) Fix(current, previous *models.PortfolioSnapshot) ([]models.SnapshotCorrection, error) {
	if previous != nil && previous.Name != current.Name {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "snapshots belong to different portfolios")
	}
	corrections, err := current.Repair(previous)
	if err != nil {
		appErr := apperrors.Wrap(apperrors.ErrSnapshotDiscontinuity, err)
		appErr.Message = fmt.Sprintf("%s %s: %s", current.Name, current.Date.Format(time.DateOnly), err.Error())
		return nil, appErr
	}

	log := logger.Get()
	for _, c := range corrections {
		log.Infow("fixed snapshot field",
			"name", current.Name,
			"date", current.Date.Format(time.DateOnly),
			"field", c.Field,
			"from", c.From.StringFixed(2),
			"to", c.To.StringFixed(2),
		)
	}
	return corrections, nil
}

// FixSnapshot repairs one stored snapshot against its predecessor and
// records the corrections in the audit log.
func (s *portfolioSnapshotService) FixSnapshot(ctx context.Context, name string, date time.Time) (*models.PortfolioSnapshot, []models.SnapshotCorrection, error) {
	var current models.PortfolioSnapshot
	var corrections []models.SnapshotCorrection
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		day := models.DateOf(date)
		if err := tx.Where("name = ? AND date = ?", name, day).First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrSnapshotNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		var previous *models.PortfolioSnapshot
		var rows []models.PortfolioSnapshot
		if err := tx.Where("name = ? AND date < ?", name, day).Order("date DESC").Limit(1).Find(&rows).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if len(rows) > 0 {
			previous = &rows[0]
		}

		var err error
		if corrections, err = s.Fix(&current, previous); err != nil {
			return err
		}
		if len(corrections) == 0 {
			return nil
		}

		if err := tx.Save(&current).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		changes := make(map[string]any, len(corrections))
		for _, c := range corrections {
			changes[c.Field] = map[string]string{"from": c.From.StringFixed(2), "to": c.To.StringFixed(2)}
		}
		s.audit.WithTx(tx).Log(ctx, nil, "fix_snapshot", "portfolio_snapshot", current.ID, changes)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &current, corrections, nil
}

// InspectSeries checks every snapshot of name against its predecessor,
// oldest first, and returns the first failure.
func (s *portfolioSnapshotService) InspectSeries(ctx context.Context, name string) error {
	var snapshots []models.PortfolioSnapshot
	if err := s.db.WithContext(ctx).Where("name = ?", name).Order("date ASC").Find(&snapshots).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(snapshots) == 0 {
		return apperrors.ErrSnapshotNotFound
	}

	var previous *models.PortfolioSnapshot
	for i := range snapshots {
		if err := s.Inspect(&snapshots[i], previous); err != nil {
			return err
		}
		previous = &snapshots[i]
	}
	return nil
}

// NetValueSeries rebuilds the latest limit days of name from stored rates.
// Walking newest first, each day's start value is its end value
// de-compounded by the day's rate, and becomes the previous day's value.
// Points are returned oldest first.
func (s *portfolioSnapshotService) NetValueSeries(ctx context.Context, name string, limit int) ([]SeriesPoint, error) {
	if limit <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "limit must be positive")
	}

	var items []models.PortfolioSnapshot
	err := s.db.WithContext(ctx).Where("name = ?", name).Order("date DESC").Limit(limit).Find(&items).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(items) == 0 {
		return []SeriesPoint{}, nil
	}

	one, hundred := decimal.NewFromInt(1), decimal.NewFromInt(100)
	points := make([]SeriesPoint, len(items))
	value := items[0].Value
	for i, item := range items {
		growth := one.Add(item.Rate.Div(hundred))
		if growth.IsZero() {
			return nil, apperrors.WithMessage(apperrors.ErrSnapshotMismatch,
				fmt.Sprintf("%s %s: a -100%% day cannot be de-compounded", name, item.Date.Format(time.DateOnly)))
		}
		start := value.Div(growth).Round(2)
		points[len(items)-1-i] = SeriesPoint{
			Date:  item.Date,
			Value: value,
			Gain:  value.Sub(start),
			Rate:  item.Rate,
		}
		value = start
	}
	return points, nil
}

// ListSnapshots retrieves a paginated list of snapshots of name, newest first.
func (s *portfolioSnapshotService) ListSnapshots(ctx context.Context, name string, page pagination.PageRequest) (*pagination.PageResponse[models.PortfolioSnapshot], error) {
	page.Defaults()

	var totalItems int64
	base := s.db.WithContext(ctx).Model(&models.PortfolioSnapshot{}).Where("name = ?", name)
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var snapshots []models.PortfolioSnapshot
	if err := base.Order("date DESC").Scopes(pagination.Paginate(page)).Find(&snapshots).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(snapshots, page.Page, page.PageSize, totalItems)
	return &result, nil
}
