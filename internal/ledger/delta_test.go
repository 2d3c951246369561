package ledger

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/models"
)

func expense(amount int64, pt models.PaymentType, cat string) *Entry {
	return &Entry{Kind: KindExpense, Amount: amount, PaymentType: pt, CategoryID: cat}
}

func income(amount int64, pt models.PaymentType) *Entry {
	return &Entry{Kind: KindIncome, Amount: amount, PaymentType: pt}
}

func TestDiff_Expense(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		d := Diff(nil, expense(30, models.PaymentTypeCash, "food"))
		assert.Equal(t, int64(-30), d.Cash)
		assert.Equal(t, int64(0), d.Online)
		assert.Equal(t, int64(-30), d.Budget)
		assert.Equal(t, map[string]int64{"food": 30}, d.Categories)
	})

	t.Run("edit_increase", func(t *testing.T) {
		d := Diff(expense(30, models.PaymentTypeCash, "food"), expense(50, models.PaymentTypeCash, "food"))
		assert.Equal(t, int64(-20), d.Cash)
		assert.Equal(t, int64(-20), d.Budget)
		assert.Equal(t, map[string]int64{"food": 20}, d.Categories)
	})

	t.Run("edit_decrease", func(t *testing.T) {
		d := Diff(expense(50, models.PaymentTypeOnline, "food"), expense(10, models.PaymentTypeOnline, "food"))
		assert.Equal(t, int64(40), d.Online)
		assert.Equal(t, int64(40), d.Budget)
		assert.Equal(t, map[string]int64{"food": -40}, d.Categories)
	})

	t.Run("edit_same_amount_is_zero", func(t *testing.T) {
		d := Diff(expense(30, models.PaymentTypeCash, "food"), expense(30, models.PaymentTypeCash, "food"))
		assert.True(t, d.IsZero())
		assert.Nil(t, d.Categories)
	})

	t.Run("delete", func(t *testing.T) {
		d := Diff(expense(30, models.PaymentTypeOnline, "food"), nil)
		assert.Equal(t, int64(30), d.Online)
		assert.Equal(t, int64(30), d.Budget)
		assert.Equal(t, map[string]int64{"food": -30}, d.Categories)
	})

	t.Run("payment_type_and_category_move", func(t *testing.T) {
		d := Diff(expense(30, models.PaymentTypeCash, "food"), expense(30, models.PaymentTypeOnline, "travel"))
		assert.Equal(t, int64(30), d.Cash)
		assert.Equal(t, int64(-30), d.Online)
		assert.Equal(t, int64(0), d.Budget)
		assert.Equal(t, map[string]int64{"food": -30, "travel": 30}, d.Categories)
	})
}

func TestDiff_Income(t *testing.T) {
	t.Run("create_leaves_budget", func(t *testing.T) {
		d := Diff(nil, income(40, models.PaymentTypeOnline))
		assert.Equal(t, int64(40), d.Online)
		assert.Equal(t, int64(0), d.Budget)
		assert.Nil(t, d.Categories)
	})

	t.Run("edit_switches_pool", func(t *testing.T) {
		d := Diff(income(40, models.PaymentTypeOnline), income(60, models.PaymentTypeCash))
		assert.Equal(t, int64(-40), d.Online)
		assert.Equal(t, int64(60), d.Cash)
	})

	t.Run("delete", func(t *testing.T) {
		d := Diff(income(40, models.PaymentTypeCash), nil)
		assert.Equal(t, int64(-40), d.Cash)
	})
}

func TestCheckFunds(t *testing.T) {
	b := Balances{Cash: 70, Online: 50, Budget: 70}

	tests := []struct {
		name    string
		delta   Delta
		wantErr error
	}{
		{name: "within_limits", delta: Delta{Cash: -20, Budget: -20}},
		{name: "exactly_balance", delta: Delta{Cash: -70, Budget: -70}},
		{name: "over_balance", delta: Delta{Cash: -71, Budget: -10}, wantErr: apperrors.ErrInsufficientBalance},
		{name: "over_online", delta: Delta{Online: -51}, wantErr: apperrors.ErrInsufficientBalance},
		{name: "over_budget", delta: Delta{Cash: -10, Budget: -71}, wantErr: apperrors.ErrBudgetExceeded},
		{name: "balance_checked_first", delta: Delta{Cash: -100, Budget: -100}, wantErr: apperrors.ErrInsufficientBalance},
		{name: "increases_always_pass", delta: Delta{Cash: 1000, Budget: 1000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckFunds(b, tt.delta)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestScenario_ExpenseLifecycle(t *testing.T) {
	b := Balances{Cash: 100, Online: 50, Budget: 100}
	catTotal := int64(0)

	created := expense(30, models.PaymentTypeCash, "c")
	d := Diff(nil, created)
	b, catTotal = d.Apply(b), catTotal+d.Categories["c"]
	assert.Equal(t, Balances{Cash: 70, Online: 50, Budget: 70}, b)
	assert.Equal(t, int64(30), catTotal)

	edited := expense(50, models.PaymentTypeCash, "c")
	d = Diff(created, edited)
	require.NoError(t, CheckFunds(b, d))
	b, catTotal = d.Apply(b), catTotal+d.Categories["c"]
	assert.Equal(t, Balances{Cash: 50, Online: 50, Budget: 50}, b)
	assert.Equal(t, int64(50), catTotal)

	d = Diff(edited, nil)
	b, catTotal = d.Apply(b), catTotal+d.Categories["c"]
	assert.Equal(t, Balances{Cash: 100, Online: 50, Budget: 100}, b)
	assert.Equal(t, int64(0), catTotal)
}

// TestDiff_RandomSequencesConserveTotals replays random create/edit/delete
// sequences and compares the running counters against sums recomputed
// from the surviving records.
func TestDiff_RandomSequencesConserveTotals(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	pts := []models.PaymentType{models.PaymentTypeCash, models.PaymentTypeOnline}
	cats := []string{"a", "b", "c"}

	start := Balances{Cash: 1000, Online: 1000, Budget: 1000}
	b := start
	totals := map[string]int64{}
	var live []*Entry

	randomEntry := func() *Entry {
		if rng.Intn(2) == 0 {
			return expense(int64(rng.Intn(100)+1), pts[rng.Intn(2)], cats[rng.Intn(3)])
		}
		return income(int64(rng.Intn(100)+1), pts[rng.Intn(2)])
	}
	apply := func(d Delta) {
		b = d.Apply(b)
		for id, v := range d.Categories {
			totals[id] += v
		}
	}

	for i := 0; i < 500; i++ {
		switch op := rng.Intn(3); {
		case op == 0 || len(live) == 0:
			e := randomEntry()
			apply(Diff(nil, e))
			live = append(live, e)
		case op == 1:
			idx := rng.Intn(len(live))
			next := *live[idx]
			next.Amount = int64(rng.Intn(100) + 1)
			if next.Kind == KindIncome {
				next.PaymentType = pts[rng.Intn(2)]
			}
			apply(Diff(live[idx], &next))
			live[idx] = &next
		default:
			idx := rng.Intn(len(live))
			apply(Diff(live[idx], nil))
			live = append(live[:idx], live[idx+1:]...)
		}
	}

	want := start
	wantTotals := map[string]int64{}
	for _, e := range live {
		sign := int64(1)
		if e.Kind == KindExpense {
			sign = -1
			want.Budget -= e.Amount
			wantTotals[e.CategoryID] += e.Amount
		}
		if e.PaymentType == models.PaymentTypeCash {
			want.Cash += sign * e.Amount
		} else {
			want.Online += sign * e.Amount
		}
	}

	assert.Equal(t, want, b)
	for _, id := range cats {
		assert.Equal(t, wantTotals[id], totals[id], "category %s", id)
	}
}
