// Package memory is the in-memory implementation of the store
// contract. It keeps everything in maps guarded by one mutex and gives
// real rollback semantics: a transaction works on a deep copy that is
// swapped in only on success. It backs the unit tests and the demo
// seeder; production runs on store/mysql.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aleixpons/padel-club-backend/internal/model"
	"github.com/aleixpons/padel-club-backend/internal/store"
)

// slotRow is the persisted shape of a slot: the row itself plus the
// confirmed occupant ids. Occupants and guests are joined in on read.
type slotRow struct {
	slot        model.Slot // Occupants/Guests left nil here
	occupantIDs []uint64
}

type data struct {
	members      map[uint64]*model.Member
	clubs        map[uint64]*model.Club
	hours        map[uint64]*model.HourRate
	slots        map[uint64]*slotRow
	guests       map[uint64]*model.Guest
	entries      map[uint64]*model.LedgerEntry
	reservations map[uint64]*model.Reservation
	batches      map[uint64]*model.MonthlyBatch
	tokens       map[uint64]*model.RefreshToken
	seq          uint64
}

func newData() *data {
	return &data{
		members:      map[uint64]*model.Member{},
		clubs:        map[uint64]*model.Club{},
		hours:        map[uint64]*model.HourRate{},
		slots:        map[uint64]*slotRow{},
		guests:       map[uint64]*model.Guest{},
		entries:      map[uint64]*model.LedgerEntry{},
		reservations: map[uint64]*model.Reservation{},
		batches:      map[uint64]*model.MonthlyBatch{},
		tokens:       map[uint64]*model.RefreshToken{},
	}
}

func (d *data) nextID() uint64 {
	d.seq++
	return d.seq
}

func (d *data) clone() *data {
	c := newData()
	c.seq = d.seq
	for id, m := range d.members {
		cp := *m
		cp.ClubIDs = append([]uint64(nil), m.ClubIDs...)
		c.members[id] = &cp
	}
	for id, cl := range d.clubs {
		cp := *cl
		cp.MemberIDs = append([]uint64(nil), cl.MemberIDs...)
		c.clubs[id] = &cp
	}
	for id, h := range d.hours {
		cp := *h
		c.hours[id] = &cp
	}
	for id, s := range d.slots {
		cp := &slotRow{slot: s.slot, occupantIDs: append([]uint64(nil), s.occupantIDs...)}
		c.slots[id] = cp
	}
	for id, g := range d.guests {
		cp := *g
		c.guests[id] = &cp
	}
	for id, e := range d.entries {
		cp := *e
		c.entries[id] = &cp
	}
	for id, r := range d.reservations {
		cp := *r
		c.reservations[id] = &cp
	}
	for id, b := range d.batches {
		cp := *b
		c.batches[id] = &cp
	}
	for id, t := range d.tokens {
		cp := *t
		if t.RevokedAt != nil {
			rv := *t.RevokedAt
			cp.RevokedAt = &rv
		}
		c.tokens[id] = &cp
	}
	return c
}

// Store is the in-memory store. The zero value is not usable; call New.
type Store struct {
	mu sync.Mutex
	d  *data
}

// New returns an empty store.
func New() *Store { return &Store{d: newData()} }

// Begin runs fn on a deep copy of the data set and commits the copy
// only when fn succeeds, so a failing operation leaves no trace.
func (s *Store) Begin(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.d.clone()
	if err := fn(&tx{d: work}); err != nil {
		return err
	}
	s.d = work
	return nil
}

// Close implements store.Store; nothing to release.
func (s *Store) Close() error { return nil }

type tx struct{ d *data }

func (t *tx) Members() store.MemberStore           { return &memberStore{t.d} }
func (t *tx) Clubs() store.ClubStore               { return &clubStore{t.d} }
func (t *tx) Hours() store.HourStore               { return &hourStore{t.d} }
func (t *tx) Slots() store.SlotStore               { return &slotStore{t.d} }
func (t *tx) Guests() store.GuestStore             { return &guestStore{t.d} }
func (t *tx) Entries() store.EntryStore            { return &entryStore{t.d} }
func (t *tx) Reservations() store.ReservationStore { return &reservationStore{t.d} }
func (t *tx) Batches() store.BatchStore            { return &batchStore{t.d} }
func (t *tx) Tokens() store.TokenStore             { return &tokenStore{t.d} }

// sameDay compares calendar dates ignoring time of day.
func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
