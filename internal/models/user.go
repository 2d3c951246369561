package models

// User owns two money pools and a monthly spending budget. All three are
// kept in minor currency units and mutated only through ledger deltas.
type User struct {
	Base
	Name          string `gorm:"not null" json:"name"`
	UserName      string `gorm:"uniqueIndex;not null" json:"userName"`
	Password      string `gorm:"not null" json:"-"`
	CashBalance   int64  `gorm:"not null;default:0" json:"cashBalance"`
	OnlineBalance int64  `gorm:"not null;default:0" json:"onlineBalance"`
	MonthlyBudget int64  `gorm:"not null;default:0" json:"monthlyBudget"`

	Categories []Category `gorm:"foreignKey:UserID" json:"-"`
	Expenses   []Expense  `gorm:"foreignKey:UserID" json:"-"`
	Incomes    []Income   `gorm:"foreignKey:UserID" json:"-"`
}

// Balance returns the pool selected by paymentType.
func (u *User) Balance(paymentType PaymentType) int64 {
	if paymentType == PaymentTypeCash {
		return u.CashBalance
	}
	return u.OnlineBalance
}
