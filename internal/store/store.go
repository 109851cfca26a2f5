// Package store defines the narrow transactional contract the core
// operates against: typed read, write, delete and filtered-query
// operations executed under a single logical transaction. The MySQL
// implementation lives in store/mysql; an in-memory implementation in
// store/memory backs the unit tests and the demo seeder. Every mutation
// of members, slots or ledger entries happens inside a transaction
// claimed from the sequencer; no component mutates state outside that
// boundary.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aleixpons/padel-club-backend/internal/model"
)

// Store opens logical transactions. Begin runs fn atomically: when fn
// returns an error all of its writes are rolled back and the error is
// returned unchanged.
type Store interface {
	Begin(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

// Tx bundles the per-entity stores available inside one transaction.
type Tx interface {
	Members() MemberStore
	Clubs() ClubStore
	Hours() HourStore
	Slots() SlotStore
	Guests() GuestStore
	Entries() EntryStore
	Reservations() ReservationStore
	Batches() BatchStore
	Tokens() TokenStore
}

// MemberStore persists account records.
type MemberStore interface {
	// Create inserts the member and fills in its ID.
	Create(ctx context.Context, m *model.Member) error
	Update(ctx context.Context, m *model.Member) error
	// Get returns apperror.NotFound when the id is unresolved.
	Get(ctx context.Context, id uint64) (model.Member, error)
	GetByEmail(ctx context.Context, email string) (model.Member, error)
	GetByPhone(ctx context.Context, phone string) (model.Member, error)
	// List returns all members ordered by name then surname.
	List(ctx context.Context) ([]model.Member, error)
	// ListByRole returns members whose role is in roles.
	ListByRole(ctx context.Context, roles ...model.Role) ([]model.Member, error)
	// Delete detaches the account; past ledger entries are untouched.
	Delete(ctx context.Context, id uint64) error
}

// ClubStore persists clubs and their membership lists.
type ClubStore interface {
	Create(ctx context.Context, c *model.Club) error
	Get(ctx context.Context, id uint64) (model.Club, error)
	List(ctx context.Context) ([]model.Club, error)
	AddMember(ctx context.Context, clubID, memberID uint64) error
}

// HourStore persists the hour-label price schedule.
type HourStore interface {
	Put(ctx context.Context, r *model.HourRate) error
	// ActivePrice returns the price for the label in the active
	// schedule; ok is false when the label has no active rate.
	ActivePrice(ctx context.Context, label string) (price decimal.Decimal, ok bool, err error)
}

// SlotFilter narrows slot queries. Zero values mean "any".
type SlotFilter struct {
	ClubID     uint64
	Hour       string
	Date       time.Time // exact calendar date
	DateFrom   time.Time // inclusive lower bound
	DateTo     time.Time // inclusive upper bound
	DateBefore time.Time // strict upper bound (roll-forward expiry scan)
	States     []model.SlotState
	Unreserved bool // only slots without a reservation
}

// SlotStore persists slots. Get and List return fully populated value
// objects: occupants, guests of both kinds and the reservation
// reference are always fetched, never lazily resolved.
type SlotStore interface {
	// Create inserts the slot together with its occupant list.
	Create(ctx context.Context, s *model.Slot) error
	// Update rewrites the slot row and its occupant list.
	Update(ctx context.Context, s *model.Slot) error
	Get(ctx context.Context, id uint64) (model.Slot, error)
	// List returns matching slots ordered by date ascending.
	List(ctx context.Context, f SlotFilter) ([]model.Slot, error)
	// Delete removes the slot; its guests go with it and its ledger
	// entries keep existing with the slot reference cleared.
	Delete(ctx context.Context, id uint64) error
}

// GuestStore persists the tagged guest variant rows.
type GuestStore interface {
	Add(ctx context.Context, g *model.Guest) error
	Remove(ctx context.Context, id uint64) error
}

// EntryFilter narrows ledger queries. Zero values mean "any";
// Validated is a tri-state.
type EntryFilter struct {
	MemberID  uint64
	SlotID    uint64
	BatchID   uint64
	Validated *bool
	DateFrom  time.Time
	DateTo    time.Time
}

// EntryOrder selects the sort order of a ledger listing.
type EntryOrder int

const (
	// OrderDateDesc sorts newest first (member statements).
	OrderDateDesc EntryOrder = iota
	// OrderAdminView sorts unvalidated first, then amount descending,
	// then date descending (administrative view).
	OrderAdminView
)

// Page is a zero-based page request.
type Page struct {
	Number int
	Size   int
}

// EntryStore persists ledger entries.
type EntryStore interface {
	Create(ctx context.Context, e *model.LedgerEntry) error
	Get(ctx context.Context, id uint64) (model.LedgerEntry, error)
	SetValidated(ctx context.Context, id uint64, validated bool) error
	Delete(ctx context.Context, id uint64) error
	// List returns one page of matching entries; a zero Page.Size
	// returns everything.
	List(ctx context.Context, f EntryFilter, order EntryOrder, page Page) ([]model.LedgerEntry, error)
	Count(ctx context.Context, f EntryFilter) (int, error)
	// SumUnvalidated totals the member's provisional entries; adding
	// it to the committed balance yields the projected balance.
	SumUnvalidated(ctx context.Context, memberID uint64) (decimal.Decimal, error)
}

// ReservationStore persists slot reservations.
type ReservationStore interface {
	Create(ctx context.Context, r *model.Reservation) error
	Get(ctx context.Context, id uint64) (model.Reservation, error)
	List(ctx context.Context) ([]model.Reservation, error)
	Delete(ctx context.Context, id uint64) error
}

// BatchStore persists monthly cost batches.
type BatchStore interface {
	Create(ctx context.Context, b *model.MonthlyBatch) error
	Get(ctx context.Context, id uint64) (model.MonthlyBatch, error)
	// GetByPeriod returns apperror.NotFound when no batch exists for
	// the month/year pair.
	GetByPeriod(ctx context.Context, month, year int) (model.MonthlyBatch, error)
	// List returns batches ordered by year then month, newest first.
	List(ctx context.Context) ([]model.MonthlyBatch, error)
	Delete(ctx context.Context, id uint64) error
}

// TokenStore persists refresh-token hashes.
type TokenStore interface {
	Create(ctx context.Context, t *model.RefreshToken) error
	// FindActive returns the non-revoked, non-expired token with the
	// given hash, or apperror.NotFound.
	FindActive(ctx context.Context, hash string) (model.RefreshToken, error)
	Revoke(ctx context.Context, id uint64) error
}
