package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aleixpons/padel-club-backend/internal/apperror"
	"github.com/aleixpons/padel-club-backend/internal/model"
	"github.com/aleixpons/padel-club-backend/internal/store"
)

// ----- members -----

type memberStore struct{ d *data }

func (s *memberStore) Create(_ context.Context, m *model.Member) error {
	for _, ex := range s.d.members {
		if ex.Name == m.Name && ex.Surname == m.Surname {
			return apperror.New(apperror.Conflict, "member %s %s already exists", m.Name, m.Surname)
		}
	}
	m.ID = s.d.nextID()
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now
	cp := *m
	cp.ClubIDs = append([]uint64(nil), m.ClubIDs...)
	s.d.members[m.ID] = &cp
	return nil
}

func (s *memberStore) Update(_ context.Context, m *model.Member) error {
	if _, ok := s.d.members[m.ID]; !ok {
		return apperror.New(apperror.NotFound, "member %d not found", m.ID)
	}
	m.UpdatedAt = time.Now().UTC()
	cp := *m
	cp.ClubIDs = append([]uint64(nil), m.ClubIDs...)
	s.d.members[m.ID] = &cp
	return nil
}

func (s *memberStore) Get(_ context.Context, id uint64) (model.Member, error) {
	m, ok := s.d.members[id]
	if !ok {
		return model.Member{}, apperror.New(apperror.NotFound, "member %d not found", id)
	}
	return *m, nil
}

func (s *memberStore) GetByEmail(_ context.Context, email string) (model.Member, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, m := range s.d.members {
		if m.Email != "" && m.Email == email {
			return *m, nil
		}
	}
	return model.Member{}, apperror.New(apperror.NotFound, "member with email %s not found", email)
}

func (s *memberStore) GetByPhone(_ context.Context, phone string) (model.Member, error) {
	for _, m := range s.d.members {
		if m.Phone != "" && m.Phone == phone {
			return *m, nil
		}
	}
	return model.Member{}, apperror.New(apperror.NotFound, "member with phone %s not found", phone)
}

func (s *memberStore) List(_ context.Context) ([]model.Member, error) {
	out := make([]model.Member, 0, len(s.d.members))
	for _, m := range s.d.members {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Surname < out[j].Surname
	})
	return out, nil
}

func (s *memberStore) ListByRole(_ context.Context, roles ...model.Role) ([]model.Member, error) {
	want := map[model.Role]bool{}
	for _, r := range roles {
		want[r] = true
	}
	var out []model.Member
	for _, m := range s.d.members {
		if want[m.Role] {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memberStore) Delete(_ context.Context, id uint64) error {
	if _, ok := s.d.members[id]; !ok {
		return apperror.New(apperror.NotFound, "member %d not found", id)
	}
	delete(s.d.members, id)
	return nil
}

// ----- clubs -----

type clubStore struct{ d *data }

func (s *clubStore) Create(_ context.Context, c *model.Club) error {
	c.ID = s.d.nextID()
	cp := *c
	cp.MemberIDs = append([]uint64(nil), c.MemberIDs...)
	s.d.clubs[c.ID] = &cp
	return nil
}

func (s *clubStore) Get(_ context.Context, id uint64) (model.Club, error) {
	c, ok := s.d.clubs[id]
	if !ok {
		return model.Club{}, apperror.New(apperror.NotFound, "club %d not found", id)
	}
	return *c, nil
}

func (s *clubStore) List(_ context.Context) ([]model.Club, error) {
	out := make([]model.Club, 0, len(s.d.clubs))
	for _, c := range s.d.clubs {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *clubStore) AddMember(_ context.Context, clubID, memberID uint64) error {
	c, ok := s.d.clubs[clubID]
	if !ok {
		return apperror.New(apperror.NotFound, "club %d not found", clubID)
	}
	if !c.HasMember(memberID) {
		c.MemberIDs = append(c.MemberIDs, memberID)
	}
	return nil
}

// ----- hour rates -----

type hourStore struct{ d *data }

func (s *hourStore) Put(_ context.Context, r *model.HourRate) error {
	if r.ID == 0 {
		r.ID = s.d.nextID()
	}
	cp := *r
	s.d.hours[r.ID] = &cp
	return nil
}

func (s *hourStore) ActivePrice(_ context.Context, label string) (decimal.Decimal, bool, error) {
	for _, h := range s.d.hours {
		if h.Active && h.Label == label {
			return h.Price, true, nil
		}
	}
	return decimal.Zero, false, nil
}

// ----- slots -----

type slotStore struct{ d *data }

func (s *slotStore) checkUnique(sl *model.Slot) error {
	for id, row := range s.d.slots {
		if id == sl.ID {
			continue
		}
		if row.slot.Name == sl.Name && sameDay(row.slot.Date, sl.Date) && row.slot.Hour == sl.Hour {
			return apperror.New(apperror.Conflict, "slot %s already exists for %s %s", sl.Name, sl.Date.Format("02-01-2006"), sl.Hour)
		}
	}
	return nil
}

func (s *slotStore) Create(_ context.Context, sl *model.Slot) error {
	if err := s.checkUnique(sl); err != nil {
		return err
	}
	sl.ID = s.d.nextID()
	now := time.Now().UTC()
	sl.CreatedAt, sl.UpdatedAt = now, now
	row := &slotRow{slot: *sl}
	row.slot.Occupants, row.slot.Guests = nil, nil
	for _, m := range sl.Occupants {
		row.occupantIDs = append(row.occupantIDs, m.ID)
	}
	s.d.slots[sl.ID] = row
	return nil
}

func (s *slotStore) Update(_ context.Context, sl *model.Slot) error {
	if _, ok := s.d.slots[sl.ID]; !ok {
		return apperror.New(apperror.NotFound, "slot %d not found", sl.ID)
	}
	if err := s.checkUnique(sl); err != nil {
		return err
	}
	sl.UpdatedAt = time.Now().UTC()
	row := &slotRow{slot: *sl}
	row.slot.Occupants, row.slot.Guests = nil, nil
	for _, m := range sl.Occupants {
		row.occupantIDs = append(row.occupantIDs, m.ID)
	}
	s.d.slots[sl.ID] = row
	return nil
}

func (s *slotStore) populate(row *slotRow) model.Slot {
	out := row.slot
	out.Occupants = make([]model.Member, 0, len(row.occupantIDs))
	for _, id := range row.occupantIDs {
		if m, ok := s.d.members[id]; ok {
			out.Occupants = append(out.Occupants, *m)
		}
	}
	for _, g := range s.d.guests {
		if g.SlotID == out.ID {
			cp := *g
			if cp.Kind == model.GuestMember {
				if m, ok := s.d.members[cp.MemberID]; ok {
					cp.Name = strings.TrimSpace(m.Name + " " + m.Surname)
				}
			}
			out.Guests = append(out.Guests, cp)
		}
	}
	sort.Slice(out.Guests, func(i, j int) bool { return out.Guests[i].ID < out.Guests[j].ID })
	return out
}

func (s *slotStore) Get(_ context.Context, id uint64) (model.Slot, error) {
	row, ok := s.d.slots[id]
	if !ok {
		return model.Slot{}, apperror.New(apperror.NotFound, "slot %d not found", id)
	}
	return s.populate(row), nil
}

func matchSlot(row *slotRow, f store.SlotFilter) bool {
	sl := &row.slot
	if f.ClubID != 0 && sl.ClubID != f.ClubID {
		return false
	}
	if f.Hour != "" && sl.Hour != f.Hour {
		return false
	}
	if !f.Date.IsZero() && !sameDay(sl.Date, f.Date) {
		return false
	}
	if !f.DateFrom.IsZero() && sl.Date.Before(f.DateFrom) {
		return false
	}
	if !f.DateTo.IsZero() && sl.Date.After(f.DateTo) {
		return false
	}
	if !f.DateBefore.IsZero() && !sl.Date.Before(f.DateBefore) {
		return false
	}
	if f.Unreserved && sl.ReservationID != 0 {
		return false
	}
	if len(f.States) > 0 {
		ok := false
		for _, st := range f.States {
			if sl.State == st {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func (s *slotStore) List(_ context.Context, f store.SlotFilter) ([]model.Slot, error) {
	var out []model.Slot
	for _, row := range s.d.slots {
		if matchSlot(row, f) {
			out = append(out, s.populate(row))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *slotStore) Delete(_ context.Context, id uint64) error {
	row, ok := s.d.slots[id]
	if !ok {
		return apperror.New(apperror.NotFound, "slot %d not found", id)
	}
	for gid, g := range s.d.guests {
		if g.SlotID == id {
			delete(s.d.guests, gid)
		}
	}
	if row.slot.ReservationID != 0 {
		delete(s.d.reservations, row.slot.ReservationID)
	}
	for _, e := range s.d.entries {
		if e.SlotID == id {
			e.SlotID = 0
		}
	}
	delete(s.d.slots, id)
	return nil
}

// ----- guests -----

type guestStore struct{ d *data }

func (s *guestStore) Add(_ context.Context, g *model.Guest) error {
	g.ID = s.d.nextID()
	cp := *g
	s.d.guests[g.ID] = &cp
	return nil
}

func (s *guestStore) Remove(_ context.Context, id uint64) error {
	if _, ok := s.d.guests[id]; !ok {
		return apperror.New(apperror.NotFound, "guest %d not found", id)
	}
	delete(s.d.guests, id)
	return nil
}

// ----- ledger entries -----

type entryStore struct{ d *data }

func (s *entryStore) Create(_ context.Context, e *model.LedgerEntry) error {
	e.ID = s.d.nextID()
	if e.Date.IsZero() {
		e.Date = time.Now().UTC()
	}
	cp := *e
	s.d.entries[e.ID] = &cp
	return nil
}

func (s *entryStore) Get(_ context.Context, id uint64) (model.LedgerEntry, error) {
	e, ok := s.d.entries[id]
	if !ok {
		return model.LedgerEntry{}, apperror.New(apperror.NotFound, "entry %d not found", id)
	}
	return *e, nil
}

func (s *entryStore) SetValidated(_ context.Context, id uint64, validated bool) error {
	e, ok := s.d.entries[id]
	if !ok {
		return apperror.New(apperror.NotFound, "entry %d not found", id)
	}
	e.Validated = validated
	return nil
}

func (s *entryStore) Delete(_ context.Context, id uint64) error {
	if _, ok := s.d.entries[id]; !ok {
		return apperror.New(apperror.NotFound, "entry %d not found", id)
	}
	delete(s.d.entries, id)
	return nil
}

func matchEntry(e *model.LedgerEntry, f store.EntryFilter) bool {
	if f.MemberID != 0 && e.MemberID != f.MemberID {
		return false
	}
	if f.SlotID != 0 && e.SlotID != f.SlotID {
		return false
	}
	if f.BatchID != 0 && e.BatchID != f.BatchID {
		return false
	}
	if f.Validated != nil && e.Validated != *f.Validated {
		return false
	}
	if !f.DateFrom.IsZero() && e.Date.Before(f.DateFrom) {
		return false
	}
	if !f.DateTo.IsZero() && e.Date.After(f.DateTo) {
		return false
	}
	return true
}

func (s *entryStore) List(_ context.Context, f store.EntryFilter, order store.EntryOrder, page store.Page) ([]model.LedgerEntry, error) {
	var out []model.LedgerEntry
	for _, e := range s.d.entries {
		if matchEntry(e, f) {
			out = append(out, *e)
		}
	}
	switch order {
	case store.OrderAdminView:
		sort.Slice(out, func(i, j int) bool {
			if out[i].Validated != out[j].Validated {
				return !out[i].Validated // unvalidated first
			}
			if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
				return c > 0
			}
			return out[i].Date.After(out[j].Date)
		})
	default: // OrderDateDesc
		sort.Slice(out, func(i, j int) bool {
			if !out[i].Date.Equal(out[j].Date) {
				return out[i].Date.After(out[j].Date)
			}
			return out[i].ID > out[j].ID
		})
	}
	if page.Size > 0 {
		start := page.Number * page.Size
		if start >= len(out) {
			return nil, nil
		}
		end := start + page.Size
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	return out, nil
}

func (s *entryStore) Count(_ context.Context, f store.EntryFilter) (int, error) {
	n := 0
	for _, e := range s.d.entries {
		if matchEntry(e, f) {
			n++
		}
	}
	return n, nil
}

func (s *entryStore) SumUnvalidated(_ context.Context, memberID uint64) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, e := range s.d.entries {
		if e.MemberID == memberID && !e.Validated {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

// ----- reservations -----

type reservationStore struct{ d *data }

func (s *reservationStore) Create(_ context.Context, r *model.Reservation) error {
	r.ID = s.d.nextID()
	r.CreatedAt = time.Now().UTC()
	cp := *r
	s.d.reservations[r.ID] = &cp
	return nil
}

func (s *reservationStore) Get(_ context.Context, id uint64) (model.Reservation, error) {
	r, ok := s.d.reservations[id]
	if !ok {
		return model.Reservation{}, apperror.New(apperror.NotFound, "reservation %d not found", id)
	}
	return *r, nil
}

func (s *reservationStore) List(_ context.Context) ([]model.Reservation, error) {
	out := make([]model.Reservation, 0, len(s.d.reservations))
	for _, r := range s.d.reservations {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *reservationStore) Delete(_ context.Context, id uint64) error {
	if _, ok := s.d.reservations[id]; !ok {
		return apperror.New(apperror.NotFound, "reservation %d not found", id)
	}
	delete(s.d.reservations, id)
	return nil
}

// ----- monthly batches -----

type batchStore struct{ d *data }

func (s *batchStore) Create(_ context.Context, b *model.MonthlyBatch) error {
	for _, ex := range s.d.batches {
		if ex.Month == b.Month && ex.Year == b.Year {
			return apperror.New(apperror.Conflict, "monthly batch %d/%d already exists", b.Month, b.Year)
		}
	}
	b.ID = s.d.nextID()
	b.CreatedAt = time.Now().UTC()
	cp := *b
	s.d.batches[b.ID] = &cp
	return nil
}

func (s *batchStore) Get(_ context.Context, id uint64) (model.MonthlyBatch, error) {
	b, ok := s.d.batches[id]
	if !ok {
		return model.MonthlyBatch{}, apperror.New(apperror.NotFound, "batch %d not found", id)
	}
	return *b, nil
}

func (s *batchStore) GetByPeriod(_ context.Context, month, year int) (model.MonthlyBatch, error) {
	for _, b := range s.d.batches {
		if b.Month == month && b.Year == year {
			return *b, nil
		}
	}
	return model.MonthlyBatch{}, apperror.New(apperror.NotFound, "batch %d/%d not found", month, year)
}

func (s *batchStore) List(_ context.Context) ([]model.MonthlyBatch, error) {
	out := make([]model.MonthlyBatch, 0, len(s.d.batches))
	for _, b := range s.d.batches {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out, nil
}

func (s *batchStore) Delete(_ context.Context, id uint64) error {
	if _, ok := s.d.batches[id]; !ok {
		return apperror.New(apperror.NotFound, "batch %d not found", id)
	}
	delete(s.d.batches, id)
	return nil
}

// ----- refresh tokens -----

type tokenStore struct{ d *data }

func (s *tokenStore) Create(_ context.Context, t *model.RefreshToken) error {
	t.ID = s.d.nextID()
	t.CreatedAt = time.Now().UTC()
	cp := *t
	s.d.tokens[t.ID] = &cp
	return nil
}

func (s *tokenStore) FindActive(_ context.Context, hash string) (model.RefreshToken, error) {
	now := time.Now().UTC()
	for _, t := range s.d.tokens {
		if t.TokenHash == hash && t.RevokedAt == nil && t.ExpiresAt.After(now) {
			return *t, nil
		}
	}
	return model.RefreshToken{}, apperror.New(apperror.NotFound, "refresh token not found")
}

func (s *tokenStore) Revoke(_ context.Context, id uint64) error {
	t, ok := s.d.tokens[id]
	if !ok {
		return apperror.New(apperror.NotFound, "refresh token %d not found", id)
	}
	now := time.Now().UTC()
	t.RevokedAt = &now
	return nil
}
