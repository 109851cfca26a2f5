package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aleixpons/padel-club-backend/internal/apperror"
	"github.com/aleixpons/padel-club-backend/internal/model"
	"github.com/aleixpons/padel-club-backend/internal/store"
	"github.com/aleixpons/padel-club-backend/internal/txqueue"
	"github.com/aleixpons/padel-club-backend/internal/utils"
)

// Capacity bounds applied when a slot is opened without explicit ones.
// Padel is played four a side of the net, so both default to 4.
const (
	defaultMinOccupants = 4
	defaultMaxOccupants = 4
)

// Booking drives the slot state machine: opened → closed → reserved →
// expired. All writes are funneled through the transaction sequencer.
type Booking struct {
	q      *txqueue.Queue
	events Events
}

// NewBooking wires the booking service to the sequencer.
func NewBooking(q *txqueue.Queue, events Events) *Booking {
	if events == nil {
		events = NopEvents{}
	}
	return &Booking{q: q, events: events}
}

// OpenSlotInput carries everything needed to open a slot. Zero-valued
// optional fields fall back to defaults: name is auto-generated, the
// capacity bounds default to 4/4 and the price comes from the active
// hour schedule.
type OpenSlotInput struct {
	Date         string
	Hour         string
	ClubID       uint64
	Name         string
	MinOccupants int
	MaxOccupants int
	Price        decimal.Decimal
	Occupants    []uint64
}

// Open creates a slot for a future date and charges every initial
// occupant a provisional entry of -price, enforcing the non-negative
// projected-balance rule per occupant. requester is a member id or
// email and must resolve to an account.
func (b *Booking) Open(ctx context.Context, in OpenSlotInput, requester string) (model.Slot, error) {
	var out model.Slot
	err := b.q.Do(ctx, func(tx store.Tx) error {
		sl, err := openSlotTx(ctx, tx, in, requester)
		if err != nil {
			return err
		}
		out = sl
		return nil
	})
	return out, err
}

// openSlotTx is the transaction body of Open, shared with the weekly
// roll-forward which opens slots inside its own transaction.
func openSlotTx(ctx context.Context, tx store.Tx, in OpenSlotInput, requester string) (model.Slot, error) {
	var zero model.Slot
	date, err := utils.ParseDate(in.Date)
	if err != nil {
		return zero, apperror.New(apperror.Validation, "%v", err)
	}
	if date.Before(utils.Today()) {
		return zero, apperror.New(apperror.Validation, "date %s already passed", utils.FormatDate(date))
	}
	me, err := resolveMember(ctx, tx, requester)
	if err != nil {
		return zero, err
	}
	if in.ClubID == 0 {
		return zero, apperror.New(apperror.Validation, "club required")
	}
	if _, err := tx.Clubs().Get(ctx, in.ClubID); err != nil {
		return zero, err
	}
	if strings.TrimSpace(in.Hour) == "" {
		return zero, apperror.New(apperror.Validation, "hour required")
	}

	sl := model.Slot{
		Name:         strings.TrimSpace(in.Name),
		ClubID:       in.ClubID,
		Date:         date,
		Hour:         in.Hour,
		MinOccupants: in.MinOccupants,
		MaxOccupants: in.MaxOccupants,
		Price:        in.Price.Round(2),
		State:        model.SlotOpened,
	}
	if sl.MinOccupants <= 0 {
		sl.MinOccupants = defaultMinOccupants
	}
	if sl.MaxOccupants <= 0 {
		sl.MaxOccupants = defaultMaxOccupants
	}

	for _, id := range in.Occupants {
		m, err := tx.Members().Get(ctx, id)
		if err != nil {
			return zero, err
		}
		if sl.HasOccupant(m.ID) {
			return zero, apperror.New(apperror.Conflict, "member %s %s listed twice", m.Name, m.Surname)
		}
		sl.Occupants = append(sl.Occupants, m)
	}
	if len(sl.Occupants) > sl.MaxOccupants {
		return zero, apperror.New(apperror.CapacityExceeded, "too many occupants, maximum %d", sl.MaxOccupants)
	}

	// A second court for the same (date, club, hour) may only be
	// opened once every existing one is full, and never by somebody
	// already playing at that hour.
	existing, err := tx.Slots().List(ctx, store.SlotFilter{
		ClubID: in.ClubID,
		Hour:   in.Hour,
		Date:   date,
		States: []model.SlotState{model.SlotOpened, model.SlotClosed, model.SlotReserved},
	})
	if err != nil {
		return zero, err
	}
	for i := range existing {
		ex := &existing[i]
		if ex.TotalOccupancy() < ex.MaxOccupants {
			return zero, apperror.New(apperror.Conflict, "slot %s already exists for %s %s", ex.Name, utils.FormatDate(date), in.Hour)
		}
		if ex.HasOccupant(me.ID) {
			return zero, apperror.New(apperror.Conflict, "already included in slot %s for %s", ex.Name, utils.FormatDate(date))
		}
	}

	if sl.Name == "" {
		sameDay, err := tx.Slots().List(ctx, store.SlotFilter{ClubID: in.ClubID, Date: date})
		if err != nil {
			return zero, err
		}
		sl.Name = fmt.Sprintf("Court %d", len(sameDay)+1)
	}
	if sl.Price.IsZero() {
		price, ok, err := tx.Hours().ActivePrice(ctx, sl.Hour)
		if err != nil {
			return zero, err
		}
		if !ok {
			return zero, apperror.New(apperror.Validation, "no active rate for hour %s", sl.Hour)
		}
		sl.Price = price.Round(2)
	}
	if len(sl.Occupants) >= sl.MinOccupants {
		sl.State = model.SlotClosed
	}

	if err := tx.Slots().Create(ctx, &sl); err != nil {
		return zero, err
	}
	for i := range sl.Occupants {
		if err := chargeSeat(ctx, tx, &sl, &sl.Occupants[i], ""); err != nil {
			return zero, err
		}
	}
	return tx.Slots().Get(ctx, sl.ID)
}

// chargeSeat writes one provisional entry of -price against payer,
// rejecting the charge when it would drive the payer's projected
// balance negative. An empty label defaults to the slot payment label.
func chargeSeat(ctx context.Context, tx store.Tx, sl *model.Slot, payer *model.Member, label string) error {
	future, err := projectedBalance(ctx, tx, payer)
	if err != nil {
		return err
	}
	after := future.Sub(sl.Price)
	if after.IsNegative() {
		return apperror.New(apperror.InsufficientFunds,
			"projected balance %s insufficient for %s %s (slot price %s)",
			after.StringFixed(2), payer.Name, payer.Surname, sl.Price.StringFixed(2))
	}
	if label == "" {
		label = "Payment " + sl.Name
	}
	entry := model.LedgerEntry{
		MemberID: payer.ID,
		SlotID:   sl.ID,
		Amount:   sl.Price.Neg(),
		Label:    label,
		Date:     time.Now().UTC(),
	}
	return tx.Entries().Create(ctx, &entry)
}

// JoinInput names the member joining a slot plus the guests they bring
// and pay for: invitees are existing members, anonymous guests are
// free-text names.
type JoinInput struct {
	MemberID  uint64
	Invitees  []uint64
	AnonNames []string
}

// Join adds a member (and their guests) to a slot. The cost of every
// accepted seat is charged to the joining member; the operation is
// all-or-nothing — the solvency and capacity checks run before any
// entry or roster change is written.
func (b *Booking) Join(ctx context.Context, slotID uint64, in JoinInput) (model.Slot, error) {
	var out model.Slot
	err := b.q.Do(ctx, func(tx store.Tx) error {
		sl, err := tx.Slots().Get(ctx, slotID)
		if err != nil {
			return err
		}
		switch sl.State {
		case model.SlotExpired:
			return apperror.New(apperror.InvalidState, "slot %s expired", sl.Name)
		case model.SlotReserved:
			return apperror.New(apperror.InvalidState, "slot %s is reserved", sl.Name)
		}
		if sl.Date.Before(utils.Today()) {
			return apperror.New(apperror.InvalidState, "slot %s %s already passed", utils.FormatDate(sl.Date), sl.Hour)
		}
		if sl.TotalOccupancy() >= sl.MaxOccupants {
			return apperror.New(apperror.CapacityExceeded, "slot %s full, maximum %d", sl.Name, sl.MaxOccupants)
		}
		me, err := tx.Members().Get(ctx, in.MemberID)
		if err != nil {
			return err
		}
		if sl.HasOccupant(me.ID) {
			return apperror.New(apperror.Conflict, "%s %s already on slot %s", me.Name, me.Surname, sl.Name)
		}

		var invited []model.Member
		for _, id := range in.Invitees {
			im, err := tx.Members().Get(ctx, id)
			if err != nil {
				return err
			}
			if sl.HasOccupant(im.ID) || im.ID == me.ID {
				return apperror.New(apperror.Conflict, "%s %s already on slot %s", im.Name, im.Surname, sl.Name)
			}
			for _, g := range sl.Guests {
				if g.Kind == model.GuestMember && g.MemberID == im.ID {
					return apperror.New(apperror.Conflict, "%s %s already invited to slot %s", im.Name, im.Surname, sl.Name)
				}
			}
			invited = append(invited, im)
		}
		var anon []string
		for _, name := range in.AnonNames {
			name = strings.TrimSpace(name)
			if name == "" {
				return apperror.New(apperror.Validation, "guest name required")
			}
			for _, g := range sl.Guests {
				if g.Name == name {
					return apperror.New(apperror.Conflict, "guest %s already on slot %s", name, sl.Name)
				}
			}
			anon = append(anon, name)
		}

		seats := 1 + len(invited) + len(anon)
		if sl.TotalOccupancy()+seats > sl.MaxOccupants {
			return apperror.New(apperror.CapacityExceeded,
				"too many occupants on slot %s, maximum %d", sl.Name, sl.MaxOccupants)
		}
		totalCost := sl.Price.Mul(decimal.NewFromInt(int64(seats)))
		future, err := projectedBalance(ctx, tx, &me)
		if err != nil {
			return err
		}
		if future.Sub(totalCost).IsNegative() {
			return apperror.New(apperror.InsufficientFunds,
				"projected balance %s insufficient, slots added cost %s",
				future.Sub(totalCost).StringFixed(2), totalCost.StringFixed(2))
		}

		// All checks passed; now write guests, charges and the roster.
		for i := range invited {
			g := model.Guest{SlotID: sl.ID, PayerID: me.ID, Kind: model.GuestMember, MemberID: invited[i].ID}
			if err := tx.Guests().Add(ctx, &g); err != nil {
				return err
			}
			label := fmt.Sprintf("Inviting %s %s", invited[i].Name, invited[i].Surname)
			if err := chargeSeat(ctx, tx, &sl, &me, label); err != nil {
				return err
			}
		}
		for _, name := range anon {
			g := model.Guest{SlotID: sl.ID, PayerID: me.ID, Kind: model.GuestAnon, Name: name}
			if err := tx.Guests().Add(ctx, &g); err != nil {
				return err
			}
			if err := chargeSeat(ctx, tx, &sl, &me, "Inviting "+name); err != nil {
				return err
			}
		}
		sl.Occupants = append(sl.Occupants, me)
		if err := chargeSeat(ctx, tx, &sl, &me, ""); err != nil {
			return err
		}
		if sl.TotalOccupancy()+len(invited)+len(anon) >= sl.MinOccupants && sl.State == model.SlotOpened {
			sl.State = model.SlotClosed
		}
		if err := tx.Slots().Update(ctx, &sl); err != nil {
			return err
		}
		out, err = tx.Slots().Get(ctx, sl.ID)
		return err
	})
	return out, err
}

// Leave removes a member from a slot. Occupants take their paid guests
// and every ledger entry tied to them for the slot along; a member who
// was only present through somebody else's invite just has that invite
// removed. Reserved slots demand a substitute so occupancy never drops
// below the reserved minimum; the substitute is charged a provisional
// entry like any other occupant.
func (b *Booking) Leave(ctx context.Context, slotID, memberID, substituteID uint64) (model.Slot, error) {
	var out model.Slot
	err := b.q.Do(ctx, func(tx store.Tx) error {
		sl, err := tx.Slots().Get(ctx, slotID)
		if err != nil {
			return err
		}
		if sl.State == model.SlotExpired {
			return apperror.New(apperror.InvalidState, "slot %s expired", sl.Name)
		}
		if sl.State == model.SlotReserved && substituteID == 0 {
			return apperror.New(apperror.InvalidState, "slot %s is reserved, substitute required", sl.Name)
		}
		me, err := tx.Members().Get(ctx, memberID)
		if err != nil {
			return err
		}

		wasOccupant := sl.HasOccupant(me.ID)
		if wasOccupant {
			// Guests the leaver paid for go with them.
			kept := sl.Guests[:0]
			for _, g := range sl.Guests {
				if g.PayerID == me.ID {
					if err := tx.Guests().Remove(ctx, g.ID); err != nil {
						return err
					}
					continue
				}
				kept = append(kept, g)
			}
			sl.Guests = kept
			occ := sl.Occupants[:0]
			for _, m := range sl.Occupants {
				if m.ID != me.ID {
					occ = append(occ, m)
				}
			}
			sl.Occupants = occ
		} else {
			found := false
			for _, g := range sl.Guests {
				if g.Kind == model.GuestMember && g.MemberID == me.ID {
					if err := tx.Guests().Remove(ctx, g.ID); err != nil {
						return err
					}
					found = true
					break
				}
			}
			if !found {
				return apperror.New(apperror.NotFound, "%s %s is not on slot %s", me.Name, me.Surname, sl.Name)
			}
		}

		// Refund by deletion: every entry tied to the leaver for this
		// slot disappears rather than being negated. Settled entries
		// are retracted first so their balance effect is undone.
		entries, err := tx.Entries().List(ctx, store.EntryFilter{MemberID: me.ID, SlotID: sl.ID}, store.OrderDateDesc, store.Page{})
		if err != nil {
			return err
		}
		for i := range entries {
			if entries[i].Validated {
				if err := settleEntry(ctx, tx, &entries[i], false); err != nil {
					return err
				}
			}
			if err := tx.Entries().Delete(ctx, entries[i].ID); err != nil {
				return err
			}
		}

		// The substitute takes a regular seat whether the leaver held
		// one or came as a guest; either way occupancy is preserved.
		if substituteID != 0 {
			sub, err := tx.Members().Get(ctx, substituteID)
			if err != nil {
				return err
			}
			if sl.HasOccupant(sub.ID) {
				return apperror.New(apperror.Conflict, "%s %s already on slot %s", sub.Name, sub.Surname, sl.Name)
			}
			if err := chargeSeat(ctx, tx, &sl, &sub, ""); err != nil {
				return err
			}
			sl.Occupants = append(sl.Occupants, sub)
		}

		if sl.State == model.SlotClosed && sl.TotalOccupancy() < sl.MinOccupants {
			sl.State = model.SlotOpened
		}
		if err := tx.Slots().Update(ctx, &sl); err != nil {
			return err
		}
		out, err = tx.Slots().Get(ctx, sl.ID)
		return err
	})
	return out, err
}

// Expire forces a slot into its terminal state. The cascade deletes
// the slot's unvalidated entries; validated ones are left for audit.
// Expiry is irreversible.
func (b *Booking) Expire(ctx context.Context, slotID uint64) (model.Slot, error) {
	var out model.Slot
	err := b.q.Do(ctx, func(tx store.Tx) error {
		sl, err := tx.Slots().Get(ctx, slotID)
		if err != nil {
			return err
		}
		if sl.State == model.SlotExpired {
			return apperror.New(apperror.InvalidState, "slot %s already expired", sl.Name)
		}
		if err := expireSlotTx(ctx, tx, &sl); err != nil {
			return err
		}
		out = sl
		return nil
	})
	if err == nil {
		b.events.SlotExpired(ctx, out)
	}
	return out, err
}

// expireSlotTx performs the expiry cascade inside the caller's
// transaction.
func expireSlotTx(ctx context.Context, tx store.Tx, sl *model.Slot) error {
	unvalidated := false
	entries, err := tx.Entries().List(ctx, store.EntryFilter{SlotID: sl.ID, Validated: &unvalidated}, store.OrderDateDesc, store.Page{})
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := tx.Entries().Delete(ctx, e.ID); err != nil {
			return err
		}
	}
	sl.State = model.SlotExpired
	return tx.Slots().Update(ctx, sl)
}

// Remove deletes a slot outright. Without force it refuses when the
// slot still has occupants.
func (b *Booking) Remove(ctx context.Context, slotID uint64, force bool) error {
	return b.q.Do(ctx, func(tx store.Tx) error {
		sl, err := tx.Slots().Get(ctx, slotID)
		if err != nil {
			return err
		}
		if len(sl.Occupants) > 0 && !force {
			names := make([]string, 0, len(sl.Occupants))
			for _, m := range sl.Occupants {
				names = append(names, m.Name)
			}
			return apperror.New(apperror.Conflict, "slot %s for %s has occupants %s",
				sl.Name, utils.FormatDate(sl.Date), strings.Join(names, ", "))
		}
		return tx.Slots().Delete(ctx, sl.ID)
	})
}

// RollForwardResult summarizes a weekly roll-forward.
type RollForwardResult struct {
	Expired int
	Created []model.Slot
}

// RollForwardWeek expires every non-reserved slot dated before the
// Monday of the anchor date's week, then ensures one slot exists per
// weekday Monday–Friday for the given hour and club. New slots are
// pre-seeded with the priority and admin members who occupied the same
// weekday slot the prior week, capped at the default capacity.
func (b *Booking) RollForwardWeek(ctx context.Context, anchorDate, hour string, clubID, requesterID uint64) (RollForwardResult, error) {
	var (
		res     RollForwardResult
		expired []model.Slot
	)
	err := b.q.Do(ctx, func(tx store.Tx) error {
		requester, err := tx.Members().Get(ctx, requesterID)
		if err != nil {
			return err
		}
		if _, ok, err := tx.Hours().ActivePrice(ctx, hour); err != nil {
			return err
		} else if !ok {
			return apperror.New(apperror.Validation, "no active rate for hour %s", hour)
		}
		anchor, err := utils.ParseDate(anchorDate)
		if err != nil {
			return apperror.New(apperror.Validation, "%v", err)
		}
		monday := utils.MondayOf(anchor)

		stale, err := tx.Slots().List(ctx, store.SlotFilter{
			DateBefore: monday,
			Unreserved: true,
			States:     []model.SlotState{model.SlotOpened, model.SlotClosed},
		})
		if err != nil {
			return err
		}
		expired = expired[:0]
		for i := range stale {
			if err := expireSlotTx(ctx, tx, &stale[i]); err != nil {
				return err
			}
			expired = append(expired, stale[i])
		}
		res.Expired = len(stale)

		for i := 0; i < 5; i++ {
			day := monday.AddDate(0, 0, i)
			existing, err := tx.Slots().List(ctx, store.SlotFilter{ClubID: clubID, Hour: hour, Date: day})
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				continue
			}
			carry, err := carryOverOccupants(ctx, tx, clubID, hour, day)
			if err != nil {
				return err
			}
			sl, err := openSlotTx(ctx, tx, OpenSlotInput{
				Date:      utils.FormatDate(day),
				Hour:      hour,
				ClubID:    clubID,
				Occupants: carry,
			}, fmt.Sprint(requester.ID))
			if err != nil {
				return err
			}
			res.Created = append(res.Created, sl)
		}
		return nil
	})
	if err != nil {
		return RollForwardResult{}, err
	}
	for i := range expired {
		b.events.SlotExpired(ctx, expired[i])
	}
	return res, nil
}

// carryOverOccupants finds the priority/admin members who occupied the
// same weekday slot one week before day, capped at the default
// capacity.
func carryOverOccupants(ctx context.Context, tx store.Tx, clubID uint64, hour string, day time.Time) ([]uint64, error) {
	lastWeek, err := tx.Slots().List(ctx, store.SlotFilter{ClubID: clubID, Hour: hour, Date: day.AddDate(0, 0, -7)})
	if err != nil {
		return nil, err
	}
	occupied := map[uint64]bool{}
	for i := range lastWeek {
		for _, m := range lastWeek[i].Occupants {
			occupied[m.ID] = true
		}
	}
	if len(occupied) == 0 {
		return nil, nil
	}
	privileged, err := tx.Members().ListByRole(ctx, model.RolePriority, model.RoleAdmin)
	if err != nil {
		return nil, err
	}
	var carry []uint64
	for _, m := range privileged {
		if occupied[m.ID] && len(carry) < defaultMaxOccupants {
			carry = append(carry, m.ID)
		}
	}
	return carry, nil
}

// Get returns one fully populated slot.
func (b *Booking) Get(ctx context.Context, slotID uint64) (model.Slot, error) {
	var out model.Slot
	err := b.q.Do(ctx, func(tx store.Tx) error {
		sl, err := tx.Slots().Get(ctx, slotID)
		if err != nil {
			return err
		}
		out = sl
		return nil
	})
	return out, err
}

// List returns slots matching the filter, date ascending.
func (b *Booking) List(ctx context.Context, f store.SlotFilter) ([]model.Slot, error) {
	var out []model.Slot
	err := b.q.Do(ctx, func(tx store.Tx) error {
		slots, err := tx.Slots().List(ctx, f)
		if err != nil {
			return err
		}
		out = slots
		return nil
	})
	return out, err
}

// UnreservedClosed lists the closed slots that have no reservation
// yet: the candidates an admin picks from when reserving courts.
func (b *Booking) UnreservedClosed(ctx context.Context) ([]model.Slot, error) {
	return b.List(ctx, store.SlotFilter{
		States:     []model.SlotState{model.SlotClosed},
		Unreserved: true,
	})
}
