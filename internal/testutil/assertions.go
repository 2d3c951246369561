package testutil

import (
	"errors"
	"testing"

	"gorm.io/gorm"

	apperrors "pocketledger/internal/errors"
)

// AssertAppError checks that err is an *AppError carrying expectedCode.
func AssertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected AppError with code %q, got nil", expectedCode)
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}

	if appErr.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertBalances reloads the user and checks its three counters.
func AssertBalances(t *testing.T, db *gorm.DB, userID string, cash, online, budget int64) {
	t.Helper()

	user := ReloadUser(t, db, userID)
	if user.CashBalance != cash || user.OnlineBalance != online || user.MonthlyBudget != budget {
		t.Errorf("expected cash=%d online=%d budget=%d, got cash=%d online=%d budget=%d",
			cash, online, budget, user.CashBalance, user.OnlineBalance, user.MonthlyBudget)
	}
}

// AssertCategoryTotal reloads the category and checks cat_total.
func AssertCategoryTotal(t *testing.T, db *gorm.DB, categoryID string, want int64) {
	t.Helper()

	if got := ReloadCategory(t, db, categoryID).Total; got != want {
		t.Errorf("expected cat_total %d, got %d", want, got)
	}
}
