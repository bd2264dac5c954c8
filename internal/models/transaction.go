package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the side of the account movement.
type Direction string

const (
	Credit Direction = "credit"
	Debit  Direction = "debit"
)

// Transaction is one financial movement reported by a bank, as parsed
// from an alert body or a statement row. Amounts are decimal, never
// float, so later duplicate comparisons are exact.
type Transaction struct {
	SourceEmailID string
	Bank          string // parser that produced it, e.g. "firstbank-alert"

	Date      time.Time
	Amount    decimal.Decimal
	Direction Direction
	Narration string

	Balance      *decimal.Decimal // running balance, when the source reports one
	Reference    string           // bank-assigned reference, may be empty
	AccountLast4 string           // masked account fragment, may be empty

	// Warnings are soft parse signals (e.g. a date outside the sane
	// window). They route the transaction to review but never block it.
	Warnings []string
}

// ParseWarning values used by the parsers.
const (
	WarnSuspiciousDate = "transaction date outside expected window"
)
