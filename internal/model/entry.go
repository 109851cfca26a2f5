package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry directions derived from the sign of the amount.
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// LedgerEntry is one money movement on a member's account. An entry
// starts provisional (Validated=false) and only moves the member's
// committed balance when it transitions into or out of the validated
// state. SlotID and BatchID are optional references (zero when unset).
type LedgerEntry struct {
	ID        uint64
	MemberID  uint64
	SlotID    uint64
	BatchID   uint64
	Amount    decimal.Decimal
	Label     string
	Validated bool
	Date      time.Time
}

// Direction reports "in" for positive amounts and "out" otherwise.
func (e *LedgerEntry) Direction() string {
	if e.Amount.IsPositive() {
		return DirectionIn
	}
	return DirectionOut
}

// AbsAmount is the magnitude of the movement.
func (e *LedgerEntry) AbsAmount() decimal.Decimal { return e.Amount.Abs() }

// MonthlyBatch is a periodic pro-rata cost spread over members by
// occupancy share. At most one batch may exist per (month, year).
type MonthlyBatch struct {
	ID        uint64
	Month     int
	Year      int
	Amount    decimal.Decimal
	Note      string
	CreatedAt time.Time
}
