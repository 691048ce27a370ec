package model

import "time"

// Transaction represents a single resolved financial transaction from any
// source. Amount sign convention: positive is a draw on the envelope
// (spend), negative is money flowing back in. Envelope assignment has
// already been resolved by the source; an empty Envelope is replaced with
// UnassignedEnvelope during hierarchy expansion.
type Transaction struct {
	Date     time.Time
	Envelope string
	Month    string // derived calendar-month key; set during expansion
	Amount   float64
}

// MonthKey returns the calendar-month key of the transaction date.
func (t *Transaction) MonthKey() string {
	return MonthOf(t.Date)
}
