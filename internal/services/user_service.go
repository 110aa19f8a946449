package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "wallet/internal/errors"
	"wallet/internal/models"
)

// DefaultEquityAccountName names the equity account every user starts with.
const DefaultEquityAccountName = "Equity"

// userService handles user-related business logic.
type userService struct {
	db *gorm.DB
}

// NewUserService creates a new UserServicer.
func NewUserService(db *gorm.DB) UserServicer {
	return &userService{db: db}
}

// CreateUser creates a user together with its default equity account.
func (s *userService) CreateUser(ctx context.Context, name string) (*models.User, error) {
	if name == "" || len(name) > 32 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "user name is required and at most 32 characters")
	}

	user := &models.User{Name: name}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("name = ?", name).Count(&count).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count > 0 {
			return apperrors.ErrDuplicateUserName
		}

		if err := tx.Create(user).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		equity := &models.Account{UserID: user.ID, Name: DefaultEquityAccountName, Type: models.AccountTypeEquity}
		if err := tx.Create(equity).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Model(user).Update("default_equity_account_id", equity.ID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		user.DefaultEquityAccountID = &equity.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// GetUserByID retrieves a user by ID
func (s *userService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// GetUserByName retrieves a user by its unique name
func (s *userService) GetUserByName(ctx context.Context, name string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}
