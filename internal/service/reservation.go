package service

import (
	"context"
	"strings"
	"time"

	"github.com/aleixpons/padel-club-backend/internal/apperror"
	"github.com/aleixpons/padel-club-backend/internal/model"
	"github.com/aleixpons/padel-club-backend/internal/store"
	"github.com/aleixpons/padel-club-backend/internal/txqueue"
)

// Reservations confirms closed slots into real-money bookings and
// undoes them. Reserving settles every provisional entry tied to the
// slot; unreserving reverts them.
type Reservations struct {
	q      *txqueue.Queue
	events Events
}

// NewReservations wires the reservation service.
func NewReservations(q *txqueue.Queue, events Events) *Reservations {
	if events == nil {
		events = NopEvents{}
	}
	return &Reservations{q: q, events: events}
}

// ReservationView pairs a reservation with its slot.
type ReservationView struct {
	Reservation model.Reservation
	Slot        model.Slot
}

// Reserve confirms a closed slot. Only closed slots are eligible; the
// slot moves to reserved, every one of its unvalidated entries settles
// against the payers' balances and an optional name override renames
// the court. A reservation event is published after commit.
func (r *Reservations) Reserve(ctx context.Context, slotID, adminID uint64, name string) (ReservationView, error) {
	var out ReservationView
	err := r.q.Do(ctx, func(tx store.Tx) error {
		sl, err := tx.Slots().Get(ctx, slotID)
		if err != nil {
			return err
		}
		if sl.State != model.SlotClosed {
			return apperror.New(apperror.InvalidState, "slot %s is %s, only closed slots can be reserved", sl.Name, sl.State)
		}
		if sl.ReservationID != 0 {
			return apperror.New(apperror.Conflict, "slot %s already reserved", sl.Name)
		}
		admin, err := tx.Members().Get(ctx, adminID)
		if err != nil {
			return err
		}

		res := model.Reservation{SlotID: sl.ID, ReservedBy: admin.ID, Date: time.Now().UTC()}
		if err := tx.Reservations().Create(ctx, &res); err != nil {
			return err
		}
		unvalidated := false
		entries, err := tx.Entries().List(ctx, store.EntryFilter{SlotID: sl.ID, Validated: &unvalidated}, store.OrderDateDesc, store.Page{})
		if err != nil {
			return err
		}
		for i := range entries {
			if err := settleEntry(ctx, tx, &entries[i], true); err != nil {
				return err
			}
		}
		if name = strings.TrimSpace(name); name != "" {
			sl.Name = name
		}
		sl.State = model.SlotReserved
		sl.ReservationID = res.ID
		if err := tx.Slots().Update(ctx, &sl); err != nil {
			return err
		}
		final, err := tx.Slots().Get(ctx, sl.ID)
		if err != nil {
			return err
		}
		out = ReservationView{Reservation: res, Slot: final}
		return nil
	})
	if err == nil {
		r.events.SlotReserved(ctx, out.Slot, out.Reservation)
	}
	return out, err
}

// Unreserve cancels a reservation: the slot returns to closed and the
// entries the reservation settled revert to provisional, reversing
// their balance effect.
func (r *Reservations) Unreserve(ctx context.Context, reservationID uint64) (model.Slot, error) {
	var out model.Slot
	err := r.q.Do(ctx, func(tx store.Tx) error {
		res, err := tx.Reservations().Get(ctx, reservationID)
		if err != nil {
			return err
		}
		sl, err := tx.Slots().Get(ctx, res.SlotID)
		if err != nil {
			return err
		}
		if sl.State != model.SlotReserved {
			return apperror.New(apperror.InvalidState, "slot %s is %s, not reserved", sl.Name, sl.State)
		}
		validated := true
		entries, err := tx.Entries().List(ctx, store.EntryFilter{SlotID: sl.ID, Validated: &validated}, store.OrderDateDesc, store.Page{})
		if err != nil {
			return err
		}
		for i := range entries {
			if err := settleEntry(ctx, tx, &entries[i], false); err != nil {
				return err
			}
		}
		sl.State = model.SlotClosed
		sl.ReservationID = 0
		if err := tx.Slots().Update(ctx, &sl); err != nil {
			return err
		}
		if err := tx.Reservations().Delete(ctx, res.ID); err != nil {
			return err
		}
		out, err = tx.Slots().Get(ctx, sl.ID)
		return err
	})
	return out, err
}

// List returns every reservation with its slot, newest first.
func (r *Reservations) List(ctx context.Context) ([]ReservationView, error) {
	var out []ReservationView
	err := r.q.Do(ctx, func(tx store.Tx) error {
		all, err := tx.Reservations().List(ctx)
		if err != nil {
			return err
		}
		out = make([]ReservationView, 0, len(all))
		for _, res := range all {
			sl, err := tx.Slots().Get(ctx, res.SlotID)
			if err != nil {
				return err
			}
			out = append(out, ReservationView{Reservation: res, Slot: sl})
		}
		return nil
	})
	return out, err
}

// Get returns one reservation with its slot.
func (r *Reservations) Get(ctx context.Context, id uint64) (ReservationView, error) {
	var out ReservationView
	err := r.q.Do(ctx, func(tx store.Tx) error {
		res, err := tx.Reservations().Get(ctx, id)
		if err != nil {
			return err
		}
		sl, err := tx.Slots().Get(ctx, res.SlotID)
		if err != nil {
			return err
		}
		out = ReservationView{Reservation: res, Slot: sl}
		return nil
	})
	return out, err
}
