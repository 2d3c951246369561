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
)

// ExpenseOptions tunes the expense write path.
type ExpenseOptions struct {
	// RequireFundsOnAdd applies the balance and budget check to plain
	// adds too. Smart adds and amount increases are always checked.
	RequireFundsOnAdd bool
}

// expenseService orchestrates expense writes.
type expenseService struct {
	ledgerTx
	opts ExpenseOptions
}

// NewExpenseService creates a new ExpenseServicer.
func NewExpenseService(db *gorm.DB, locker lock.Locker, publisher events.Publisher, opts ExpenseOptions) ExpenseServicer {
	return &expenseService{ledgerTx: newLedgerTx(db, locker, publisher), opts: opts}
}

func validateExpense(amount int64, paymentType models.PaymentType) error {
	if amount <= 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if !paymentType.Valid() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "paymentType must be cash or online")
	}
	return nil
}

// AddExpense records a spend against an existing category.
func (s *expenseService) AddExpense(ctx context.Context, userID, categoryID string, amount int64, paymentType models.PaymentType) (*models.Expense, error) {
	if err := validateExpense(amount, paymentType); err != nil {
		return nil, err
	}

	var expense *models.Expense
	err := s.run(ctx, userID, func(tx *gorm.DB) error {
		user, err := loadUser(tx, userID)
		if err != nil {
			return err
		}
		category, err := getCategory(tx, userID, categoryID)
		if err != nil {
			return err
		}
		expense, err = s.insert(tx, user, category, amount, paymentType, s.opts.RequireFundsOnAdd)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, expenseEvent(events.ExpenseCreated, expense))
	return expense, nil
}

// SmartAddExpense records a spend against the category named categoryName,
// creating the category when the user has none by that name. Balance and
// budget must cover the amount.
func (s *expenseService) SmartAddExpense(ctx context.Context, userID, categoryName string, amount int64, paymentType models.PaymentType) (*models.Expense, error) {
	categoryName = strings.TrimSpace(categoryName)
	if categoryName == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "categoryName is required")
	}
	if err := validateExpense(amount, paymentType); err != nil {
		return nil, err
	}

	var (
		expense  *models.Expense
		category *models.Category
		created  bool
	)
	err := s.run(ctx, userID, func(tx *gorm.DB) error {
		user, err := loadUser(tx, userID)
		if err != nil {
			return err
		}
		// Reject before resolving so a failed add never leaves a new category.
		pending := &ledger.Entry{Kind: ledger.KindExpense, Amount: amount, PaymentType: paymentType}
		if err := ledger.CheckFunds(ledger.BalancesOf(user), ledger.Diff(nil, pending)); err != nil {
			return err
		}
		category, created, err = resolveCategory(tx, userID, categoryName)
		if err != nil {
			return err
		}
		expense, err = s.insert(tx, user, category, amount, paymentType, true)
		return err
	})
	if err != nil {
		return nil, err
	}

	if created {
		s.publish(ctx, categoryEvent(events.CategoryCreated, category))
	}
	s.publish(ctx, expenseEvent(events.ExpenseCreated, expense))
	return expense, nil
}

// insert creates the expense and applies its create delta.
func (s *expenseService) insert(tx *gorm.DB, user *models.User, category *models.Category, amount int64, paymentType models.PaymentType, checkFunds bool) (*models.Expense, error) {
	expense := &models.Expense{
		UserID:      user.ID,
		CategoryID:  category.ID,
		Amount:      amount,
		PaymentType: paymentType,
	}
	delta := ledger.Diff(nil, ledger.ExpenseEntry(expense))
	if checkFunds {
		if err := ledger.CheckFunds(ledger.BalancesOf(user), delta); err != nil {
			return nil, err
		}
	}

	if err := tx.Create(expense).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := applyDelta(tx, user.ID, delta); err != nil {
		return nil, err
	}
	return expense, nil
}

// EditExpense changes an expense's amount and returns its category's
// expenses. An unchanged amount changes nothing. An increase must be
// covered by the balance and the budget.
func (s *expenseService) EditExpense(ctx context.Context, userID, expenseID string, amount int64) ([]models.Expense, error) {
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	var (
		expense *models.Expense
		changed bool
	)
	err := s.run(ctx, userID, func(tx *gorm.DB) error {
		var err error
		expense, err = getExpense(tx, userID, expenseID)
		if err != nil {
			return err
		}

		before := ledger.ExpenseEntry(expense)
		after := *before
		after.Amount = amount
		delta := ledger.Diff(before, &after)
		if delta.IsZero() {
			return nil
		}

		user, err := loadUser(tx, userID)
		if err != nil {
			return err
		}
		if err := ledger.CheckFunds(ledger.BalancesOf(user), delta); err != nil {
			return err
		}

		if err := tx.Model(expense).Update("amount", amount).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		expense.Amount = amount
		if err := applyDelta(tx, userID, delta); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.publish(ctx, expenseEvent(events.ExpenseUpdated, expense))
	}
	return listExpenses(s.db.WithContext(ctx), userID, expense.CategoryID)
}

// DeleteExpense removes an expense, returns its amount to the balance and
// the budget, and returns the category's remaining expenses.
func (s *expenseService) DeleteExpense(ctx context.Context, userID, expenseID string) ([]models.Expense, error) {
	var expense *models.Expense
	err := s.run(ctx, userID, func(tx *gorm.DB) error {
		var err error
		expense, err = getExpense(tx, userID, expenseID)
		if err != nil {
			return err
		}
		if err := tx.Delete(&models.Expense{}, "id = ?", expense.ID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return applyDelta(tx, userID, ledger.Diff(ledger.ExpenseEntry(expense), nil))
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, expenseEvent(events.ExpenseDeleted, expense))
	return listExpenses(s.db.WithContext(ctx), userID, expense.CategoryID)
}

// ListExpenses returns a category's expenses, newest first.
func (s *expenseService) ListExpenses(ctx context.Context, userID, categoryID string) ([]models.Expense, error) {
	db := s.db.WithContext(ctx)
	if _, err := getCategory(db, userID, categoryID); err != nil {
		return nil, err
	}
	return listExpenses(db, userID, categoryID)
}

func getExpense(tx *gorm.DB, userID, expenseID string) (*models.Expense, error) {
	var expense models.Expense
	err := tx.Where("id = ? AND user_id = ?", expenseID, userID).First(&expense).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrExpenseNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &expense, nil
}

func listExpenses(db *gorm.DB, userID, categoryID string) ([]models.Expense, error) {
	expenses := []models.Expense{}
	err := db.Where("user_id = ? AND category_id = ?", userID, categoryID).
		Order("created_at DESC, id DESC").
		Find(&expenses).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return expenses, nil
}

func expenseEvent(typ events.Type, e *models.Expense) events.Event {
	return events.Event{
		Type:        typ,
		UserID:      e.UserID,
		ResourceID:  e.ID,
		CategoryID:  e.CategoryID,
		Amount:      e.Amount,
		PaymentType: string(e.PaymentType),
	}
}
