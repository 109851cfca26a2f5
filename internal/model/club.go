package model

import (
	"github.com/shopspring/decimal"
)

// Club groups courts and members. New members are enrolled in every
// club; the weekly board is split per club.
type Club struct {
	ID        uint64
	Name      string
	MemberIDs []uint64
}

// HasMember reports whether the member belongs to the club.
func (c *Club) HasMember(memberID uint64) bool {
	for _, id := range c.MemberIDs {
		if id == memberID {
			return true
		}
	}
	return false
}

// HourRate maps an hour label to a default slot price. Only rates of
// the active schedule are consulted when a slot is opened without an
// explicit price.
type HourRate struct {
	ID     uint64
	Label  string
	Price  decimal.Decimal
	Active bool
}
