package services

import (
	"context"
	"sync"
	"testing"

	"gorm.io/gorm"

	"pocketledger/internal/events"
	"pocketledger/internal/lock"
	"pocketledger/internal/models"
	"pocketledger/internal/testutil"
)

const missingID = "0190a1b2-c3d4-7e5f-8a9b-0c1d2e3f4a5b"

func TestExpenseLifecycle(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	rec := &events.Recorder{}
	svc := NewExpenseService(db, lock.NewLocal(), rec, ExpenseOptions{})
	user := testutil.CreateTestUserWithBalances(t, db, 100, 50, 100)
	category := testutil.CreateTestCategory(t, db, user.ID)

	expense, err := svc.AddExpense(ctx, user.ID, category.ID, 30, models.PaymentTypeCash)
	testutil.AssertNoError(t, err)
	testutil.AssertBalances(t, db, user.ID, 70, 50, 70)
	testutil.AssertCategoryTotal(t, db, category.ID, 30)

	list, err := svc.EditExpense(ctx, user.ID, expense.ID, 50)
	testutil.AssertNoError(t, err)
	if len(list) != 1 || list[0].Amount != 50 {
		t.Fatalf("expected one expense of 50, got %+v", list)
	}
	testutil.AssertBalances(t, db, user.ID, 50, 50, 50)
	testutil.AssertCategoryTotal(t, db, category.ID, 50)

	list, err = svc.DeleteExpense(ctx, user.ID, expense.ID)
	testutil.AssertNoError(t, err)
	if len(list) != 0 {
		t.Errorf("expected empty list, got %d", len(list))
	}
	testutil.AssertBalances(t, db, user.ID, 100, 50, 100)
	testutil.AssertCategoryTotal(t, db, category.ID, 0)

	want := []events.Type{events.ExpenseCreated, events.ExpenseUpdated, events.ExpenseDeleted}
	got := rec.Types()
	if len(got) != len(want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestAddExpense(t *testing.T) {
	ctx := context.Background()

	t.Run("online_pool", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db, nil, nil, ExpenseOptions{})
		user := testutil.CreateTestUserWithBalances(t, db, 100, 50, 100)
		category := testutil.CreateTestCategory(t, db, user.ID)

		_, err := svc.AddExpense(ctx, user.ID, category.ID, 20, models.PaymentTypeOnline)
		testutil.AssertNoError(t, err)
		testutil.AssertBalances(t, db, user.ID, 100, 30, 80)
	})

	t.Run("unchecked_by_default", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db, nil, nil, ExpenseOptions{})
		user := testutil.CreateTestUserWithBalances(t, db, 10, 0, 10)
		category := testutil.CreateTestCategory(t, db, user.ID)

		_, err := svc.AddExpense(ctx, user.ID, category.ID, 25, models.PaymentTypeCash)
		testutil.AssertNoError(t, err)
		testutil.AssertBalances(t, db, user.ID, -15, 0, -15)
	})

	t.Run("checked_when_required", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db, nil, nil, ExpenseOptions{RequireFundsOnAdd: true})
		user := testutil.CreateTestUserWithBalances(t, db, 10, 0, 10)
		category := testutil.CreateTestCategory(t, db, user.ID)

		_, err := svc.AddExpense(ctx, user.ID, category.ID, 25, models.PaymentTypeCash)
		testutil.AssertAppError(t, err, "INSUFFICIENT_BALANCE")
		testutil.AssertBalances(t, db, user.ID, 10, 0, 10)
	})

	t.Run("invalid_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db, nil, nil, ExpenseOptions{})
		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, user.ID)

		_, err := svc.AddExpense(ctx, user.ID, category.ID, 0, models.PaymentTypeCash)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("invalid_payment_type", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db, nil, nil, ExpenseOptions{})
		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, user.ID)

		_, err := svc.AddExpense(ctx, user.ID, category.ID, 10, models.PaymentType("card"))
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("unknown_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db, nil, nil, ExpenseOptions{})

		_, err := svc.AddExpense(ctx, missingID, missingID, 10, models.PaymentTypeCash)
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})

	t.Run("foreign_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db, nil, nil, ExpenseOptions{})
		alice := testutil.CreateTestUser(t, db)
		bob := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, alice.ID)

		_, err := svc.AddExpense(ctx, bob.ID, category.ID, 10, models.PaymentTypeCash)
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
		testutil.AssertBalances(t, db, bob.ID, bob.CashBalance, bob.OnlineBalance, bob.MonthlyBudget)
	})
}

func TestSmartAddExpense(t *testing.T) {
	ctx := context.Background()

	t.Run("creates_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		rec := &events.Recorder{}
		svc := NewExpenseService(db, nil, rec, ExpenseOptions{})
		user := testutil.CreateTestUserWithBalances(t, db, 100, 50, 100)

		expense, err := svc.SmartAddExpense(ctx, user.ID, "Coffee", 5, models.PaymentTypeCash)
		testutil.AssertNoError(t, err)

		category := testutil.ReloadCategory(t, db, expense.CategoryID)
		if category.Name != "Coffee" || category.Total != 5 {
			t.Errorf("expected Coffee with total 5, got %s/%d", category.Name, category.Total)
		}
		testutil.AssertBalances(t, db, user.ID, 95, 50, 95)

		got := rec.Types()
		if len(got) != 2 || got[0] != events.CategoryCreated || got[1] != events.ExpenseCreated {
			t.Errorf("expected category.created then expense.created, got %v", got)
		}
	})

	t.Run("reuses_category_ignoring_case", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db, nil, nil, ExpenseOptions{})
		user := testutil.CreateTestUser(t, db)
		existing := testutil.CreateTestCategoryNamed(t, db, user.ID, "Food")

		expense, err := svc.SmartAddExpense(ctx, user.ID, "fOOd", 10, models.PaymentTypeOnline)
		testutil.AssertNoError(t, err)
		if expense.CategoryID != existing.ID {
			t.Errorf("expected category %s, got %s", existing.ID, expense.CategoryID)
		}

		var count int64
		db.Model(&models.Category{}).Where("user_id = ?", user.ID).Count(&count)
		if count != 1 {
			t.Errorf("expected 1 category, got %d", count)
		}
	})

	t.Run("insufficient_balance_creates_nothing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db, nil, nil, ExpenseOptions{})
		user := testutil.CreateTestUserWithBalances(t, db, 10, 100, 100)

		_, err := svc.SmartAddExpense(ctx, user.ID, "Travel", 20, models.PaymentTypeCash)
		testutil.AssertAppError(t, err, "INSUFFICIENT_BALANCE")

		var count int64
		db.Model(&models.Category{}).Where("user_id = ?", user.ID).Count(&count)
		if count != 0 {
			t.Errorf("expected no category to be created, got %d", count)
		}
		testutil.AssertBalances(t, db, user.ID, 10, 100, 100)
	})

	t.Run("budget_exceeded", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db, nil, nil, ExpenseOptions{})
		user := testutil.CreateTestUserWithBalances(t, db, 100, 0, 10)

		_, err := svc.SmartAddExpense(ctx, user.ID, "Travel", 20, models.PaymentTypeCash)
		testutil.AssertAppError(t, err, "BUDGET_EXCEEDED")
	})

	t.Run("missing_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db, nil, nil, ExpenseOptions{})
		user := testutil.CreateTestUser(t, db)

		_, err := svc.SmartAddExpense(ctx, user.ID, "", 20, models.PaymentTypeCash)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestEditExpense(t *testing.T) {
	ctx := context.Background()

	t.Run("same_amount_is_noop", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		rec := &events.Recorder{}
		svc := NewExpenseService(db, nil, rec, ExpenseOptions{})
		user := testutil.CreateTestUserWithBalances(t, db, 100, 50, 100)
		category := testutil.CreateTestCategory(t, db, user.ID)
		expense, err := svc.AddExpense(ctx, user.ID, category.ID, 30, models.PaymentTypeCash)
		testutil.AssertNoError(t, err)

		list, err := svc.EditExpense(ctx, user.ID, expense.ID, 30)
		testutil.AssertNoError(t, err)
		if len(list) != 1 {
			t.Errorf("expected the category list, got %d items", len(list))
		}
		testutil.AssertBalances(t, db, user.ID, 70, 50, 70)
		testutil.AssertCategoryTotal(t, db, category.ID, 30)
		if got := rec.Types(); len(got) != 1 {
			t.Errorf("expected no update event, got %v", got)
		}
	})

	t.Run("decrease_always_allowed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db, nil, nil, ExpenseOptions{})
		user := testutil.CreateTestUserWithBalances(t, db, 30, 0, 30)
		category := testutil.CreateTestCategory(t, db, user.ID)
		expense, err := svc.AddExpense(ctx, user.ID, category.ID, 30, models.PaymentTypeCash)
		testutil.AssertNoError(t, err)

		_, err = svc.EditExpense(ctx, user.ID, expense.ID, 10)
		testutil.AssertNoError(t, err)
		testutil.AssertBalances(t, db, user.ID, 20, 0, 20)
		testutil.AssertCategoryTotal(t, db, category.ID, 10)
	})

	t.Run("increase_beyond_balance", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db, nil, nil, ExpenseOptions{})
		user := testutil.CreateTestUserWithBalances(t, db, 40, 0, 100)
		category := testutil.CreateTestCategory(t, db, user.ID)
		expense, err := svc.AddExpense(ctx, user.ID, category.ID, 30, models.PaymentTypeCash)
		testutil.AssertNoError(t, err)

		_, err = svc.EditExpense(ctx, user.ID, expense.ID, 41)
		testutil.AssertAppError(t, err, "INSUFFICIENT_BALANCE")
		testutil.AssertBalances(t, db, user.ID, 10, 0, 70)
		testutil.AssertCategoryTotal(t, db, category.ID, 30)
	})

	t.Run("increase_beyond_budget", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db, nil, nil, ExpenseOptions{})
		user := testutil.CreateTestUserWithBalances(t, db, 100, 0, 40)
		category := testutil.CreateTestCategory(t, db, user.ID)
		expense, err := svc.AddExpense(ctx, user.ID, category.ID, 30, models.PaymentTypeCash)
		testutil.AssertNoError(t, err)

		_, err = svc.EditExpense(ctx, user.ID, expense.ID, 41)
		testutil.AssertAppError(t, err, "BUDGET_EXCEEDED")
	})

	t.Run("increase_to_exact_balance", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db, nil, nil, ExpenseOptions{})
		user := testutil.CreateTestUserWithBalances(t, db, 40, 0, 40)
		category := testutil.CreateTestCategory(t, db, user.ID)
		expense, err := svc.AddExpense(ctx, user.ID, category.ID, 30, models.PaymentTypeCash)
		testutil.AssertNoError(t, err)

		_, err = svc.EditExpense(ctx, user.ID, expense.ID, 40)
		testutil.AssertNoError(t, err)
		testutil.AssertBalances(t, db, user.ID, 0, 0, 0)
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db, nil, nil, ExpenseOptions{})
		user := testutil.CreateTestUser(t, db)

		_, err := svc.EditExpense(ctx, user.ID, missingID, 10)
		testutil.AssertAppError(t, err, "EXPENSE_NOT_FOUND")
	})

	t.Run("other_users_expense", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db, nil, nil, ExpenseOptions{})
		alice := testutil.CreateTestUser(t, db)
		bob := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, alice.ID)
		expense, err := svc.AddExpense(ctx, alice.ID, category.ID, 30, models.PaymentTypeCash)
		testutil.AssertNoError(t, err)

		_, err = svc.EditExpense(ctx, bob.ID, expense.ID, 10)
		testutil.AssertAppError(t, err, "EXPENSE_NOT_FOUND")
		_, err = svc.DeleteExpense(ctx, bob.ID, expense.ID)
		testutil.AssertAppError(t, err, "EXPENSE_NOT_FOUND")
	})
}

func TestListExpenses(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewExpenseService(db, nil, nil, ExpenseOptions{})
	user := testutil.CreateTestUser(t, db)
	food := testutil.CreateTestCategory(t, db, user.ID)
	travel := testutil.CreateTestCategory(t, db, user.ID)

	for _, amount := range []int64{1, 2, 3} {
		_, err := svc.AddExpense(ctx, user.ID, food.ID, amount, models.PaymentTypeCash)
		testutil.AssertNoError(t, err)
	}
	_, err := svc.AddExpense(ctx, user.ID, travel.ID, 9, models.PaymentTypeCash)
	testutil.AssertNoError(t, err)

	list, err := svc.ListExpenses(ctx, user.ID, food.ID)
	testutil.AssertNoError(t, err)
	if len(list) != 3 {
		t.Fatalf("expected 3 expenses, got %d", len(list))
	}
	for i, want := range []int64{3, 2, 1} {
		if list[i].Amount != want {
			t.Errorf("position %d: expected amount %d, got %d", i, want, list[i].Amount)
		}
	}

	_, err = svc.ListExpenses(ctx, user.ID, missingID)
	testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
}

// trackingLocker wraps a Locker and records who holds it. With
// releaseEarly set it hands back the lock before the caller's work runs,
// which is what a Locker that never excludes looks like from the inside.
type trackingLocker struct {
	inner        lock.Locker
	releaseEarly bool

	mu        sync.Mutex
	keys      []string
	holders   int
	maxHeld   int
	unguarded int
}

func (l *trackingLocker) Lock(ctx context.Context, key string) (lock.Unlock, error) {
	unlock, err := l.inner.Lock(ctx, key)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.keys = append(l.keys, key)
	l.holders++
	if l.holders > l.maxHeld {
		l.maxHeld = l.holders
	}
	l.mu.Unlock()

	release := func() {
		l.mu.Lock()
		l.holders--
		l.mu.Unlock()
		unlock()
	}
	if l.releaseEarly {
		release()
		return func() {}, nil
	}
	var once sync.Once
	return func() { once.Do(release) }, nil
}

// guardWrites flags every row write that happens while nobody holds l.
func (l *trackingLocker) guardWrites(t *testing.T, db *gorm.DB) {
	t.Helper()
	check := func(*gorm.DB) {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.holders == 0 {
			l.unguarded++
		}
	}
	cb := db.Callback()
	testutil.AssertNoError(t, cb.Create().Before("gorm:create").Register("test:guard_create", check))
	testutil.AssertNoError(t, cb.Update().Before("gorm:update").Register("test:guard_update", check))
	testutil.AssertNoError(t, cb.Delete().Before("gorm:delete").Register("test:guard_delete", check))
}

func runConcurrentAdds(t *testing.T, locker *trackingLocker, workers int) (*models.User, *models.Category) {
	t.Helper()
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })
	svc := NewExpenseService(db, locker, nil, ExpenseOptions{})
	user := testutil.CreateTestUserWithBalances(t, db, 1000, 1000, 2000)
	category := testutil.CreateTestCategory(t, db, user.ID)
	locker.guardWrites(t, db)

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pt := models.PaymentTypeCash
			if i%2 == 1 {
				pt = models.PaymentTypeOnline
			}
			if _, err := svc.SmartAddExpense(ctx, user.ID, category.Name, 10, pt); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent add failed: %v", err)
	}

	testutil.AssertBalances(t, db, user.ID, 900, 900, 1800)
	if got := testutil.ReloadCategory(t, db, category.ID).Total; got != int64(workers*10) {
		t.Errorf("expected cat_total %d, got %d", workers*10, got)
	}
	return user, category
}

func TestConcurrentExpenseWrites(t *testing.T) {
	const workers = 20
	locker := &trackingLocker{inner: lock.NewLocal()}
	user, _ := runConcurrentAdds(t, locker, workers)

	if len(locker.keys) != workers {
		t.Fatalf("expected %d lock acquisitions, got %d", workers, len(locker.keys))
	}
	for _, key := range locker.keys {
		if key != lock.UserKey(user.ID) {
			t.Errorf("expected lock key %q, got %q", lock.UserKey(user.ID), key)
		}
	}
	if locker.maxHeld != 1 {
		t.Errorf("expected at most one holder, saw %d", locker.maxHeld)
	}
	if locker.unguarded != 0 {
		t.Errorf("expected every write under the user lock, %d were not", locker.unguarded)
	}
	if locker.holders != 0 {
		t.Errorf("expected lock released after each write, %d still held", locker.holders)
	}
}

func TestConcurrentExpenseWrites_DetectsNonExcludingLocker(t *testing.T) {
	const workers = 5
	locker := &trackingLocker{inner: lock.NewLocal(), releaseEarly: true}
	runConcurrentAdds(t, locker, workers)

	// Each add writes the expense, the user and the category.
	if locker.unguarded < workers*3 {
		t.Errorf("expected unguarded writes to be flagged, got %d", locker.unguarded)
	}
}
