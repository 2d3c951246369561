package models

// Income is one inflow event. It is mutable only inside the edit window
// that follows its creation.
type Income struct {
	Base
	UserID       string      `gorm:"type:uuid;not null;index" json:"user_id"`
	Amount       int64       `gorm:"type:bigint;not null" json:"amount"`
	PaymentType  PaymentType `gorm:"type:varchar(10);not null" json:"paymentType"`
	ReceivedFrom string      `gorm:"not null" json:"receivedFrom"`
}
