package services

import (
	"context"

	"pocketledger/internal/models"
	"pocketledger/internal/pagination"
)

// SignupInput carries the fields of a new user.
type SignupInput struct {
	Name          string
	UserName      string
	Password      string
	CashBalance   int64
	OnlineBalance int64
	MonthlyBudget int64
}

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	Signup(ctx context.Context, in SignupInput) (*models.User, error)
	Authenticate(ctx context.Context, userName, password string) (*models.User, error)
	GetProfile(ctx context.Context, userID string) (*models.User, error)
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(ctx context.Context, userID, name string) (*models.Category, error)
	ListCategories(ctx context.Context, userID string) ([]models.Category, error)
	DeleteCategory(ctx context.Context, userID, categoryID string) ([]models.Category, error)
}

// ExpenseServicer defines the contract for expense writes and reads. Every
// write keeps the user's balances, budget and category totals in step with
// the expense records.
type ExpenseServicer interface {
	AddExpense(ctx context.Context, userID, categoryID string, amount int64, paymentType models.PaymentType) (*models.Expense, error)
	SmartAddExpense(ctx context.Context, userID, categoryName string, amount int64, paymentType models.PaymentType) (*models.Expense, error)
	EditExpense(ctx context.Context, userID, expenseID string, amount int64) ([]models.Expense, error)
	DeleteExpense(ctx context.Context, userID, expenseID string) ([]models.Expense, error)
	ListExpenses(ctx context.Context, userID, categoryID string) ([]models.Expense, error)
}

// IncomeUpdate holds the fields of an income edit. Nil fields keep their
// current value.
type IncomeUpdate struct {
	Amount       int64
	PaymentType  *models.PaymentType
	ReceivedFrom *string
}

// IncomeServicer defines the contract for income writes and reads. Writes
// return the recent incomes, the ones still inside the edit window.
type IncomeServicer interface {
	AddIncome(ctx context.Context, userID string, amount int64, paymentType models.PaymentType, receivedFrom string) ([]models.Income, error)
	EditIncome(ctx context.Context, userID, incomeID string, update IncomeUpdate) ([]models.Income, error)
	DeleteIncome(ctx context.Context, userID, incomeID string) ([]models.Income, error)
	ListRecentIncomes(ctx context.Context, userID string) ([]models.Income, error)
	ListIncomeHistory(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Income], error)
}
