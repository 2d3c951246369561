package models

// Category is a named spending bucket scoped to one user. Total is the
// running sum of the amounts of the live expenses that reference it.
type Category struct {
	Base
	UserID    string `gorm:"type:uuid;not null;index" json:"user_id"`
	Name      string `gorm:"column:cat_name;not null" json:"cat_name"`
	Total     int64  `gorm:"column:cat_total;not null;default:0" json:"cat_total"`
	PrevMonth int64  `gorm:"column:cat_prevmonth;not null;default:0" json:"cat_prevmonth"`

	Expenses []Expense `gorm:"foreignKey:CategoryID" json:"-"`
}
