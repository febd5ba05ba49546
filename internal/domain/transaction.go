package domain

// Transaction is one row of a user's transaction history, the common input to
// every feature function. It is treated as an immutable value: feature
// extraction never mutates a transaction, only derives scalars from it.
type Transaction struct {
	ID     int64   `json:"id"`      // unique within the batch it was parsed from
	UserID string  `json:"user_id"` // owner of the transaction
	Name   string  `json:"name"`    // vendor/merchant display string, free text
	Date   string  `json:"date"`    // calendar date as "YYYY-MM-DD"
	Amount float64 `json:"amount"`  // signed amount; negative means refund/credit
}

// IsRefund reports whether the transaction looks like a refund or credit.
func (t Transaction) IsRefund() bool {
	return t.Amount < 0
}
