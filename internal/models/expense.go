package models

// Expense is one spend event against a category.
type Expense struct {
	Base
	UserID      string      `gorm:"type:uuid;not null;index" json:"user_id"`
	CategoryID  string      `gorm:"type:uuid;not null;index" json:"category_id"`
	Amount      int64       `gorm:"type:bigint;not null" json:"amount"`
	PaymentType PaymentType `gorm:"type:varchar(10);not null" json:"paymentType"`
}
