package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"pocketledger/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TestPassword is the plain-text password of every fixture user.
const TestPassword = "Secret123"

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with 1000.00 cash, 500.00 online and a
// 1000.00 budget.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	return CreateTestUserWithBalances(t, db, 100000, 50000, 100000)
}

// CreateTestUserWithBalances creates a user with the given counters (in
// minor units).
func CreateTestUserWithBalances(t *testing.T, db *gorm.DB, cash, online, budget int64) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	n := nextID()
	user := &models.User{
		Name:          fmt.Sprintf("Test User %d", n),
		UserName:      fmt.Sprintf("user%d", n),
		Password:      string(hash),
		CashBalance:   cash,
		OnlineBalance: online,
		MonthlyBudget: budget,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestCategory creates an empty category.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID string) *models.Category {
	t.Helper()
	return CreateTestCategoryNamed(t, db, userID, fmt.Sprintf("Test Category %d", nextID()))
}

// CreateTestCategoryNamed creates an empty category called name.
func CreateTestCategoryNamed(t *testing.T, db *gorm.DB, userID, name string) *models.Category {
	t.Helper()

	category := &models.Category{UserID: userID, Name: name}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestIncome inserts an income created at createdAt. Balances are not
// touched; use it for window tests where only the record matters.
func CreateTestIncome(t *testing.T, db *gorm.DB, userID string, amount int64, paymentType models.PaymentType, createdAt time.Time) *models.Income {
	t.Helper()

	income := &models.Income{
		UserID:       userID,
		Amount:       amount,
		PaymentType:  paymentType,
		ReceivedFrom: "Fixture",
	}
	income.CreatedAt = createdAt
	income.UpdatedAt = createdAt
	if err := db.Create(income).Error; err != nil {
		t.Fatalf("failed to create test income: %v", err)
	}
	return income
}

// ReloadUser reads the user's current counters.
func ReloadUser(t *testing.T, db *gorm.DB, userID string) *models.User {
	t.Helper()

	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	return &user
}

// ReloadCategory reads the category's current total.
func ReloadCategory(t *testing.T, db *gorm.DB, categoryID string) *models.Category {
	t.Helper()

	var category models.Category
	if err := db.First(&category, "id = ?", categoryID).Error; err != nil {
		t.Fatalf("failed to reload category: %v", err)
	}
	return &category
}
