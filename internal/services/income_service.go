package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"pocketledger/internal/events"
	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/ledger"
	"pocketledger/internal/lock"
	"pocketledger/internal/models"
	"pocketledger/internal/pagination"
)

// incomeService orchestrates income writes. Incomes are mutable only
// inside window; older ones are read-only history.
type incomeService struct {
	ledgerTx
	window ledger.Window
}

// NewIncomeService creates a new IncomeServicer.
func NewIncomeService(db *gorm.DB, locker lock.Locker, publisher events.Publisher, window ledger.Window) IncomeServicer {
	return &incomeService{ledgerTx: newLedgerTx(db, locker, publisher), window: window}
}

// AddIncome records an inflow and credits the matching balance.
func (s *incomeService) AddIncome(ctx context.Context, userID string, amount int64, paymentType models.PaymentType, receivedFrom string) ([]models.Income, error) {
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if !paymentType.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "paymentType must be cash or online")
	}

	var income *models.Income
	err := s.run(ctx, userID, func(tx *gorm.DB) error {
		if _, err := loadUser(tx, userID); err != nil {
			return err
		}
		income = &models.Income{
			UserID:       userID,
			Amount:       amount,
			PaymentType:  paymentType,
			ReceivedFrom: strings.TrimSpace(receivedFrom),
		}
		if err := tx.Create(income).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return applyDelta(tx, userID, ledger.Diff(nil, ledger.IncomeEntry(income)))
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, incomeEvent(events.IncomeCreated, income))
	return s.ListRecentIncomes(ctx, userID)
}

// EditIncome rewrites an income inside its window. The old income is
// reverted and the new one applied, so the payment type may change. No
// funds check is made.
func (s *incomeService) EditIncome(ctx context.Context, userID, incomeID string, update IncomeUpdate) ([]models.Income, error) {
	if update.Amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if update.PaymentType != nil && !update.PaymentType.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "paymentType must be cash or online")
	}

	var income *models.Income
	err := s.run(ctx, userID, func(tx *gorm.DB) error {
		var err error
		income, err = s.getMutable(tx, userID, incomeID)
		if err != nil {
			return err
		}

		before := ledger.IncomeEntry(income)
		income.Amount = update.Amount
		if update.PaymentType != nil {
			income.PaymentType = *update.PaymentType
		}
		if update.ReceivedFrom != nil {
			income.ReceivedFrom = strings.TrimSpace(*update.ReceivedFrom)
		}

		err = tx.Model(&models.Income{}).Where("id = ?", income.ID).Updates(map[string]interface{}{
			"amount":        income.Amount,
			"payment_type":  income.PaymentType,
			"received_from": income.ReceivedFrom,
		}).Error
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return applyDelta(tx, userID, ledger.Diff(before, ledger.IncomeEntry(income)))
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, incomeEvent(events.IncomeUpdated, income))
	return s.ListRecentIncomes(ctx, userID)
}

// DeleteIncome removes an income inside its window and debits the balance
// it credited.
func (s *incomeService) DeleteIncome(ctx context.Context, userID, incomeID string) ([]models.Income, error) {
	var income *models.Income
	err := s.run(ctx, userID, func(tx *gorm.DB) error {
		var err error
		income, err = s.getMutable(tx, userID, incomeID)
		if err != nil {
			return err
		}
		if err := tx.Delete(&models.Income{}, "id = ?", income.ID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return applyDelta(tx, userID, ledger.Diff(ledger.IncomeEntry(income), nil))
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, incomeEvent(events.IncomeDeleted, income))
	return s.ListRecentIncomes(ctx, userID)
}

// ListRecentIncomes returns the incomes still inside the window, newest
// first.
func (s *incomeService) ListRecentIncomes(ctx context.Context, userID string) ([]models.Income, error) {
	incomes := []models.Income{}
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", userID, s.window.Start(s.now())).
		Order("created_at DESC, id DESC").
		Find(&incomes).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return incomes, nil
}

// ListIncomeHistory returns one page of all incomes, newest first.
func (s *incomeService) ListIncomeHistory(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Income], error) {
	q := s.db.WithContext(ctx).Model(&models.Income{}).Where("user_id = ?", userID)
	result, err := pagination.Query[models.Income](q, page, "created_at DESC, id DESC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// getMutable loads an income the user owns and rejects it once its window
// has passed.
func (s *incomeService) getMutable(tx *gorm.DB, userID, incomeID string) (*models.Income, error) {
	var income models.Income
	err := tx.Where("id = ? AND user_id = ?", incomeID, userID).First(&income).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrIncomeNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !s.window.Contains(income.CreatedAt, s.now()) {
		return nil, apperrors.ErrIncomeLocked
	}
	return &income, nil
}

func incomeEvent(typ events.Type, i *models.Income) events.Event {
	return events.Event{
		Type:        typ,
		UserID:      i.UserID,
		ResourceID:  i.ID,
		Amount:      i.Amount,
		PaymentType: string(i.PaymentType),
	}
}
