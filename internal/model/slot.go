package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SlotState is the lifecycle state of a bookable slot.
type SlotState string

const (
	SlotOpened   SlotState = "opened"   // roster open, below minimum
	SlotClosed   SlotState = "closed"   // minimum reached, still mutable
	SlotReserved SlotState = "reserved" // locked by a reservation
	SlotExpired  SlotState = "expired"  // terminal
)

// SlotStates lists every valid state value.
var SlotStates = []SlotState{SlotOpened, SlotClosed, SlotReserved, SlotExpired}

// ValidSlotState reports whether s is one of the known states.
func ValidSlotState(s SlotState) bool {
	for _, v := range SlotStates {
		if v == s {
			return true
		}
	}
	return false
}

// Slot is a bookable court time-unit: one court, one calendar date,
// one hour label, with capacity bounds and a price per occupant.
// (Name, Date, Hour) is unique. Reads through the store return the
// slot fully populated: confirmed occupants, guests of both kinds and
// the reservation reference.
//
// Fields:
//  ID            – primary key identifier.
//  Name          – court name, auto-generated ("Court N") when absent.
//  ClubID        – owning club.
//  Date          – calendar date at midnight UTC.
//  Hour          – time label, e.g. "18:00".
//  MinOccupants  – roster size at which the slot closes.
//  MaxOccupants  – hard capacity across occupants and guests.
//  Price         – price per occupant, 2 decimal places.
//  State         – lifecycle state.
//  ReservationID – non-zero once the slot is reserved.
//  Occupants     – confirmed members (populated on read).
//  Guests        – invited members and anonymous guests (populated on read).
type Slot struct {
	ID            uint64
	Name          string
	ClubID        uint64
	Date          time.Time
	Hour          string
	MinOccupants  int
	MaxOccupants  int
	Price         decimal.Decimal
	State         SlotState
	ReservationID uint64
	Occupants     []Member
	Guests        []Guest
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TotalOccupancy counts confirmed occupants plus guests of both kinds.
// The capacity invariant is TotalOccupancy() <= MaxOccupants.
func (s *Slot) TotalOccupancy() int { return len(s.Occupants) + len(s.Guests) }

// HasOccupant reports whether the member is on the confirmed roster.
func (s *Slot) HasOccupant(memberID uint64) bool {
	for _, m := range s.Occupants {
		if m.ID == memberID {
			return true
		}
	}
	return false
}

// GuestKind distinguishes the two guest variants.
type GuestKind string

const (
	GuestMember GuestKind = "member" // invite of an existing member
	GuestAnon   GuestKind = "anon"   // free-text name, no account
)

// Guest is an occupancy granted by a paying member to somebody else:
// either an invited member or an anonymous free-text name. The payer
// is charged the slot price for each guest.
type Guest struct {
	ID       uint64
	SlotID   uint64
	PayerID  uint64
	Kind     GuestKind
	MemberID uint64 // set for GuestMember
	Name     string // display name; the free-text name for GuestAnon
}

// Reservation locks a slot from further roster changes. It is created
// only from a closed slot; deleting it reopens the slot to closed and
// reverts the slot's entries back to provisional.
type Reservation struct {
	ID         uint64
	SlotID     uint64
	ReservedBy uint64 // admin who confirmed it
	Date       time.Time
	CreatedAt  time.Time
}
