package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "wallet/internal/errors"
	"wallet/internal/models"
)

// categoryService handles category-related business logic.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

// CreateCategory creates a new category. Category names are unique per user.
func (s *categoryService) CreateCategory(ctx context.Context, userID, name string) (*models.Category, error) {
	if name == "" || len(name) > 32 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required and at most 32 characters")
	}

	category := &models.Category{UserID: userID, Name: name}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Category{}).Where("user_id = ? AND name = ?", userID, name).Count(&count).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count > 0 {
			return apperrors.ErrDuplicateCategoryName
		}
		if err := tx.Create(category).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return category, nil
}

// GetCategoryByID retrieves a category by ID for a specific user
func (s *categoryService) GetCategoryByID(ctx context.Context, userID, categoryID string) (*models.Category, error) {
	var category models.Category
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", categoryID, userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

// ListForUser returns the user's categories, most used first.
func (s *categoryService) ListForUser(ctx context.Context, userID string) ([]models.Category, error) {
	var categories []models.Category
	err := s.db.WithContext(ctx).Model(&models.Category{}).
		Select("categories.*").
		Joins("LEFT JOIN (SELECT category_id, COUNT(*) AS transaction_count FROM transactions GROUP BY category_id) AS usage_counts ON usage_counts.category_id = categories.id").
		Where("categories.user_id = ?", userID).
		Order("COALESCE(usage_counts.transaction_count, 0) DESC").
		Order("categories.id").
		Find(&categories).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return categories, nil
}
