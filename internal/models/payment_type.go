package models

// PaymentType selects which of the user's balance fields a record moves.
type PaymentType string

const (
	PaymentTypeCash   PaymentType = "cash"
	PaymentTypeOnline PaymentType = "online"
)

// Valid reports whether p is one of the two supported payment types.
func (p PaymentType) Valid() bool {
	return p == PaymentTypeCash || p == PaymentTypeOnline
}

// BalanceColumn is the users column that p debits or credits.
func (p PaymentType) BalanceColumn() string {
	if p == PaymentTypeCash {
		return "cash_balance"
	}
	return "online_balance"
}
