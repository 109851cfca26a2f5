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

// Ledger manages the cash ledger: provisional and settled entries,
// member statements and the monthly cash batch distribution. fee is
// the maintenance amount withheld per occupancy from each batch.
type Ledger struct {
	q   *txqueue.Queue
	fee decimal.Decimal
}

// NewLedger wires the ledger service. fee is typically 0.20.
func NewLedger(q *txqueue.Queue, fee decimal.Decimal) *Ledger {
	return &Ledger{q: q, fee: fee}
}

// RecordInput describes a manual ledger entry. A zero SlotID records a
// slot-independent movement (top-up or cash out). Validated entries
// apply to the member's balance immediately.
type RecordInput struct {
	MemberRef string
	SlotID    uint64
	Amount    decimal.Decimal
	Label     string
	Validated bool
}

// Record writes one entry. Empty labels default by amount sign:
// negative entries are "Cash out", positive ones "Balance top-up";
// entries tied to a slot default to "Payment <slot>".
func (l *Ledger) Record(ctx context.Context, in RecordInput) (model.LedgerEntry, error) {
	var out model.LedgerEntry
	err := l.q.Do(ctx, func(tx store.Tx) error {
		m, err := resolveMember(ctx, tx, in.MemberRef)
		if err != nil {
			return err
		}
		if in.Amount.IsZero() {
			return apperror.New(apperror.Validation, "amount required")
		}
		label := strings.TrimSpace(in.Label)
		if label == "" {
			switch {
			case in.SlotID != 0:
				sl, err := tx.Slots().Get(ctx, in.SlotID)
				if err != nil {
					return err
				}
				label = "Payment " + sl.Name
			case in.Amount.IsNegative():
				label = "Cash out"
			default:
				label = "Balance top-up"
			}
		} else if in.SlotID != 0 {
			if _, err := tx.Slots().Get(ctx, in.SlotID); err != nil {
				return err
			}
		}
		entry := model.LedgerEntry{
			MemberID: m.ID,
			SlotID:   in.SlotID,
			Amount:   in.Amount.Round(2),
			Label:    label,
			Date:     time.Now().UTC(),
		}
		if err := tx.Entries().Create(ctx, &entry); err != nil {
			return err
		}
		if in.Validated {
			if err := settleEntry(ctx, tx, &entry, true); err != nil {
				return err
			}
		}
		out = entry
		return nil
	})
	return out, err
}

// Settle validates a provisional entry, applying its amount to the
// member's balance. Settling an already validated entry is a no-op.
func (l *Ledger) Settle(ctx context.Context, entryID uint64) (model.LedgerEntry, error) {
	var out model.LedgerEntry
	err := l.q.Do(ctx, func(tx store.Tx) error {
		e, err := tx.Entries().Get(ctx, entryID)
		if err != nil {
			return err
		}
		if err := settleEntry(ctx, tx, &e, true); err != nil {
			return err
		}
		out = e
		return nil
	})
	return out, err
}

// Retract reverts a validated entry to provisional, undoing its
// balance effect. Retracting an unvalidated entry is a no-op.
func (l *Ledger) Retract(ctx context.Context, entryID uint64) (model.LedgerEntry, error) {
	var out model.LedgerEntry
	err := l.q.Do(ctx, func(tx store.Tx) error {
		e, err := tx.Entries().Get(ctx, entryID)
		if err != nil {
			return err
		}
		if err := settleEntry(ctx, tx, &e, false); err != nil {
			return err
		}
		out = e
		return nil
	})
	return out, err
}

// Remove deletes an entry outright. Validated entries are refused
// unless force is set; a forced removal does not re-adjust the
// member's balance — the settlement already happened and the balance
// keeps reflecting it. Flagged for product review.
func (l *Ledger) Remove(ctx context.Context, entryID uint64, force bool) error {
	return l.q.Do(ctx, func(tx store.Tx) error {
		e, err := tx.Entries().Get(ctx, entryID)
		if err != nil {
			return err
		}
		if e.Validated && !force {
			return apperror.New(apperror.InvalidState, "entry %d is validated, removal requires force", entryID)
		}
		return tx.Entries().Delete(ctx, e.ID)
	})
}

// StatementLine is one row of a member statement. Date is the slot's
// date for slot entries so the statement reads in playing order.
type StatementLine struct {
	Entry model.LedgerEntry
	Date  time.Time
	Hour  string
}

// Statement is a member's ledger view over a window.
type Statement struct {
	Member        model.Member
	Balance       decimal.Decimal
	FutureBalance decimal.Decimal
	TotalCount    int
	Lines         []StatementLine
}

// ForMember builds the member statement. A zero window defaults to
// the last month through today; page 0 means everything at once.
func (l *Ledger) ForMember(ctx context.Context, memberRef string, from, to time.Time, page store.Page) (Statement, error) {
	var out Statement
	err := l.q.Do(ctx, func(tx store.Tx) error {
		m, err := resolveMember(ctx, tx, memberRef)
		if err != nil {
			return err
		}
		if from.IsZero() && to.IsZero() {
			to = utils.EndOfDay(utils.Today())
			from = to.AddDate(0, -1, 0)
		}
		f := store.EntryFilter{MemberID: m.ID, DateFrom: from, DateTo: to}
		entries, err := tx.Entries().List(ctx, f, store.OrderDateDesc, page)
		if err != nil {
			return err
		}
		count, err := tx.Entries().Count(ctx, f)
		if err != nil {
			return err
		}
		future, err := projectedBalance(ctx, tx, &m)
		if err != nil {
			return err
		}
		out = Statement{
			Member:        m,
			Balance:       m.Balance.Round(2),
			FutureBalance: future,
			TotalCount:    count,
		}
		for _, e := range entries {
			line := StatementLine{Entry: e, Date: e.Date}
			if e.SlotID != 0 {
				if sl, err := tx.Slots().Get(ctx, e.SlotID); err == nil {
					line.Date, line.Hour = sl.Date, sl.Hour
				}
			}
			out.Lines = append(out.Lines, line)
		}
		return nil
	})
	return out, err
}

// All lists entries across members for the admin ledger view:
// unvalidated first, then by date descending. A zero window defaults
// to the last month through today, like member statements.
func (l *Ledger) All(ctx context.Context, f store.EntryFilter, page store.Page) ([]model.LedgerEntry, int, error) {
	var (
		out   []model.LedgerEntry
		total int
	)
	if f.DateFrom.IsZero() && f.DateTo.IsZero() {
		f.DateTo = utils.EndOfDay(utils.Today())
		f.DateFrom = f.DateTo.AddDate(0, -1, 0)
	}
	err := l.q.Do(ctx, func(tx store.Tx) error {
		entries, err := tx.Entries().List(ctx, f, store.OrderAdminView, page)
		if err != nil {
			return err
		}
		count, err := tx.Entries().Count(ctx, f)
		if err != nil {
			return err
		}
		out, total = entries, count
		return nil
	})
	return out, total, err
}

// ApplyMonthlyBatch distributes a month's cash intake back to the
// members who played that month. A maintenance share (fee × total
// occupancies) is withheld; the remainder is split pro-rata by each
// member's occupancy count, written as validated entries. Occupancies
// count only slots backed by a reservation: own seats plus guest
// seats attributed to the paying member.
func (l *Ledger) ApplyMonthlyBatch(ctx context.Context, month, year int, amount decimal.Decimal, note string) (model.MonthlyBatch, error) {
	var out model.MonthlyBatch
	err := l.q.Do(ctx, func(tx store.Tx) error {
		if month < 1 || month > 12 {
			return apperror.New(apperror.Validation, "month %d out of range", month)
		}
		if amount.IsNegative() || amount.IsZero() {
			return apperror.New(apperror.Validation, "amount must be positive")
		}
		if _, err := tx.Batches().GetByPeriod(ctx, month, year); err == nil {
			return apperror.New(apperror.Conflict, "batch for %02d/%d already applied", month, year)
		} else if !apperror.IsKind(err, apperror.NotFound) {
			return err
		}

		from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(0, 1, 0).Add(-time.Nanosecond)
		slots, err := tx.Slots().List(ctx, store.SlotFilter{
			DateFrom: from,
			DateTo:   to,
			States:   []model.SlotState{model.SlotReserved},
		})
		if err != nil {
			return err
		}
		occ := map[uint64]int{}
		totalOcc := 0
		for i := range slots {
			for _, m := range slots[i].Occupants {
				occ[m.ID]++
				totalOcc++
			}
			for _, g := range slots[i].Guests {
				occ[g.PayerID]++
				totalOcc++
			}
		}

		batch := model.MonthlyBatch{Month: month, Year: year, Amount: amount.Round(2), Note: strings.TrimSpace(note)}
		if totalOcc == 0 {
			if batch.Note == "" {
				batch.Note = "no occupancies found, nothing distributed"
			}
			if err := tx.Batches().Create(ctx, &batch); err != nil {
				return err
			}
			out = batch
			return nil
		}

		maintenance := l.fee.Mul(decimal.NewFromInt(int64(totalOcc))).Round(2)
		remaining := batch.Amount.Sub(maintenance)
		if remaining.IsNegative() {
			batch.Note = fmt.Sprintf("maintenance %s exceeds amount %s, nothing distributed",
				maintenance.StringFixed(2), batch.Amount.StringFixed(2))
			if err := tx.Batches().Create(ctx, &batch); err != nil {
				return err
			}
			out = batch
			return nil
		}
		if err := tx.Batches().Create(ctx, &batch); err != nil {
			return err
		}

		perOcc := remaining.Div(decimal.NewFromInt(int64(totalOcc)))
		for id, n := range occ {
			m, err := tx.Members().Get(ctx, id)
			if err != nil {
				return err
			}
			share := perOcc.Mul(decimal.NewFromInt(int64(n))).Round(2)
			entry := model.LedgerEntry{
				MemberID: m.ID,
				BatchID:  batch.ID,
				Amount:   share.Neg(),
				Label:    fmt.Sprintf("Cash batch %02d/%d", month, year),
				Date:     time.Now().UTC(),
			}
			if err := tx.Entries().Create(ctx, &entry); err != nil {
				return err
			}
			if err := settleEntry(ctx, tx, &entry, true); err != nil {
				return err
			}
		}
		out = batch
		return nil
	})
	return out, err
}

// RemoveBatch undoes a monthly batch: every entry it produced is
// retracted, then deleted, then the batch record goes. Ordered so a
// mid-way failure rolls the whole thing back with the transaction.
func (l *Ledger) RemoveBatch(ctx context.Context, batchID uint64) error {
	return l.q.Do(ctx, func(tx store.Tx) error {
		batch, err := tx.Batches().Get(ctx, batchID)
		if err != nil {
			return err
		}
		entries, err := tx.Entries().List(ctx, store.EntryFilter{BatchID: batch.ID}, store.OrderDateDesc, store.Page{})
		if err != nil {
			return err
		}
		for i := range entries {
			if err := settleEntry(ctx, tx, &entries[i], false); err != nil {
				return err
			}
			if err := tx.Entries().Delete(ctx, entries[i].ID); err != nil {
				return err
			}
		}
		return tx.Batches().Delete(ctx, batch.ID)
	})
}

// Batches lists applied monthly batches, newest first.
func (l *Ledger) Batches(ctx context.Context) ([]model.MonthlyBatch, error) {
	var out []model.MonthlyBatch
	err := l.q.Do(ctx, func(tx store.Tx) error {
		batches, err := tx.Batches().List(ctx)
		if err != nil {
			return err
		}
		out = batches
		return nil
	})
	return out, err
}
