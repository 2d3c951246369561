package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"pocketledger/internal/events"
	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/lock"
	"pocketledger/internal/models"
)

// categoryService handles category creation, listing and deletion.
type categoryService struct {
	ledgerTx
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB, locker lock.Locker, publisher events.Publisher) CategoryServicer {
	return &categoryService{ledgerTx: newLedgerTx(db, locker, publisher)}
}

// CreateCategory creates an empty category. Names are unique per user,
// ignoring case.
func (s *categoryService) CreateCategory(ctx context.Context, userID, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}

	var category *models.Category
	err := s.run(ctx, userID, func(tx *gorm.DB) error {
		if _, err := loadUser(tx, userID); err != nil {
			return err
		}
		existing, err := findCategoryByName(tx, userID, name)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperrors.ErrDuplicateCategory
		}
		category, err = createCategory(tx, userID, name)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, categoryEvent(events.CategoryCreated, category))
	return category, nil
}

// ListCategories returns the user's categories, oldest first.
func (s *categoryService) ListCategories(ctx context.Context, userID string) ([]models.Category, error) {
	return listCategories(s.db.WithContext(ctx), userID)
}

// DeleteCategory removes an unused category and returns the remaining ones.
// A category with a non-zero total or any expense left is in use.
func (s *categoryService) DeleteCategory(ctx context.Context, userID, categoryID string) ([]models.Category, error) {
	var category *models.Category
	err := s.run(ctx, userID, func(tx *gorm.DB) error {
		var err error
		category, err = getCategory(tx, userID, categoryID)
		if err != nil {
			return err
		}
		if category.Total != 0 {
			return apperrors.ErrCategoryInUse
		}

		var count int64
		if err := tx.Model(&models.Expense{}).Where("category_id = ?", category.ID).Count(&count).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count > 0 {
			return apperrors.ErrCategoryInUse
		}

		if err := tx.Delete(&models.Category{}, "id = ?", category.ID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, categoryEvent(events.CategoryDeleted, category))
	return s.ListCategories(ctx, userID)
}

// resolveCategory finds the user's category named name, ignoring case, or
// creates it with a zero total. created reports which happened.
func resolveCategory(tx *gorm.DB, userID, name string) (category *models.Category, created bool, err error) {
	category, err = findCategoryByName(tx, userID, name)
	if err != nil {
		return nil, false, err
	}
	if category != nil {
		return category, false, nil
	}
	category, err = createCategory(tx, userID, name)
	if err != nil {
		return nil, false, err
	}
	return category, true, nil
}

func findCategoryByName(tx *gorm.DB, userID, name string) (*models.Category, error) {
	var category models.Category
	err := tx.Where("user_id = ? AND LOWER(cat_name) = LOWER(?)", userID, name).First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

func createCategory(tx *gorm.DB, userID, name string) (*models.Category, error) {
	category := &models.Category{UserID: userID, Name: name}
	if err := tx.Create(category).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.ErrDuplicateCategory
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return category, nil
}

func getCategory(tx *gorm.DB, userID, categoryID string) (*models.Category, error) {
	var category models.Category
	err := tx.Where("id = ? AND user_id = ?", categoryID, userID).First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

func listCategories(db *gorm.DB, userID string) ([]models.Category, error) {
	categories := []models.Category{}
	if err := db.Where("user_id = ?", userID).Order("created_at ASC, id ASC").Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return categories, nil
}

func categoryEvent(typ events.Type, c *models.Category) events.Event {
	return events.Event{Type: typ, UserID: c.UserID, ResourceID: c.ID, CategoryID: c.ID}
}
