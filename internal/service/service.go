// Package service implements the core operations of the club backend:
// the slot-allocation state machine, the cash ledger, reservations,
// the member directory and the weekly projection. Every operation runs
// inside exactly one store transaction claimed from the transaction
// sequencer; the taxonomy errors defined in apperror abort the whole
// transaction, so partial writes never persist.
package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aleixpons/padel-club-backend/internal/apperror"
	"github.com/aleixpons/padel-club-backend/internal/model"
	"github.com/aleixpons/padel-club-backend/internal/store"
)

// Events receives lifecycle notifications after a transaction commits.
// The AMQP publisher implements it; NopEvents is for code paths that
// do not care.
type Events interface {
	SlotReserved(ctx context.Context, sl model.Slot, r model.Reservation)
	SlotExpired(ctx context.Context, sl model.Slot)
}

// NopEvents discards every notification.
type NopEvents struct{}

func (NopEvents) SlotReserved(context.Context, model.Slot, model.Reservation) {}
func (NopEvents) SlotExpired(context.Context, model.Slot)                     {}

// resolveMember looks a member up by numeric id or, failing that, by
// email. Open-slot requests carry whichever the caller has at hand.
func resolveMember(ctx context.Context, tx store.Tx, ref string) (model.Member, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.Member{}, apperror.New(apperror.Validation, "member reference required")
	}
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		return tx.Members().Get(ctx, id)
	}
	return tx.Members().GetByEmail(ctx, ref)
}

// projectedBalance is the member's committed balance plus the sum of
// their unvalidated entries. It is recomputed from the ledger on every
// call rather than cached anywhere.
func projectedBalance(ctx context.Context, tx store.Tx, m *model.Member) (decimal.Decimal, error) {
	sum, err := tx.Entries().SumUnvalidated(ctx, m.ID)
	if err != nil {
		return decimal.Zero, err
	}
	return m.Balance.Add(sum).Round(2), nil
}

// settleEntry flips an entry's validated flag and applies the balance
// delta to its member: +amount when turning validated on, -amount when
// turning it off, re-rounded to 2dp after each change. Calling it with
// the flag already in the requested state is a no-op, which is what
// makes settlement idempotent.
func settleEntry(ctx context.Context, tx store.Tx, e *model.LedgerEntry, validated bool) error {
	if e.Validated == validated {
		return nil
	}
	m, err := tx.Members().Get(ctx, e.MemberID)
	if err != nil {
		return err
	}
	delta := e.Amount
	if !validated {
		delta = delta.Neg()
	}
	m.Balance = m.Balance.Add(delta).Round(2)
	if err := tx.Members().Update(ctx, &m); err != nil {
		return err
	}
	if err := tx.Entries().SetValidated(ctx, e.ID, validated); err != nil {
		return err
	}
	e.Validated = validated
	return nil
}
