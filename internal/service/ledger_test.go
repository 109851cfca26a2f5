package service

import (
	"context"
	"testing"
	"time"

	"github.com/aleixpons/padel-club-backend/internal/apperror"
	"github.com/aleixpons/padel-club-backend/internal/model"
	"github.com/aleixpons/padel-club-backend/internal/store"
	"github.com/aleixpons/padel-club-backend/internal/utils"
)

func TestRecordDefaultLabels(t *testing.T) {
	e := newEnv(t)
	m := e.member(t, "Anna", "Roca", model.RoleMember, "")

	cases := []struct {
		amount string
		want   string
	}{
		{"-5.00", "Cash out"},
		{"12.50", "Balance top-up"},
	}
	for _, tc := range cases {
		en, err := e.ledger.Record(context.Background(), RecordInput{
			MemberRef: ref(m.ID),
			Amount:    dec(tc.amount),
		})
		if err != nil {
			t.Fatalf("record %s: %v", tc.amount, err)
		}
		if en.Label != tc.want {
			t.Fatalf("label for %s = %q, want %q", tc.amount, en.Label, tc.want)
		}
		if en.Validated {
			t.Fatal("entries start provisional")
		}
	}

	sl, err := e.booking.Open(context.Background(), OpenSlotInput{
		Date:   futureDate(7),
		Hour:   "18:00",
		ClubID: e.clubID,
	}, ref(m.ID))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	en, err := e.ledger.Record(context.Background(), RecordInput{
		MemberRef: ref(m.ID),
		SlotID:    sl.ID,
		Amount:    dec("-4.00"),
	})
	if err != nil {
		t.Fatalf("record slot entry: %v", err)
	}
	if en.Label != "Payment Court 1" {
		t.Fatalf("label = %q, want Payment Court 1", en.Label)
	}
}

func TestRecordRejectsZeroAmount(t *testing.T) {
	e := newEnv(t)
	m := e.member(t, "Anna", "Roca", model.RoleMember, "")
	_, err := e.ledger.Record(context.Background(), RecordInput{MemberRef: ref(m.ID)})
	wantKind(t, err, apperror.Validation)
}

func TestSettleAndRetractIdempotent(t *testing.T) {
	e := newEnv(t)
	m := e.member(t, "Anna", "Roca", model.RoleMember, "20.00")
	en, err := e.ledger.Record(context.Background(), RecordInput{
		MemberRef: ref(m.ID),
		Amount:    dec("-4.00"),
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	wantBalance(t, e.view(t, m.ID).Member.Balance, "20.00")
	wantBalance(t, e.view(t, m.ID).FutureBalance, "16.00")

	if _, err := e.ledger.Settle(context.Background(), en.ID); err != nil {
		t.Fatalf("settle: %v", err)
	}
	wantBalance(t, e.view(t, m.ID).Member.Balance, "16.00")

	// Settling twice must not apply the amount twice.
	if _, err := e.ledger.Settle(context.Background(), en.ID); err != nil {
		t.Fatalf("second settle: %v", err)
	}
	wantBalance(t, e.view(t, m.ID).Member.Balance, "16.00")

	if _, err := e.ledger.Retract(context.Background(), en.ID); err != nil {
		t.Fatalf("retract: %v", err)
	}
	wantBalance(t, e.view(t, m.ID).Member.Balance, "20.00")
	wantBalance(t, e.view(t, m.ID).FutureBalance, "16.00")

	if _, err := e.ledger.Retract(context.Background(), en.ID); err != nil {
		t.Fatalf("second retract: %v", err)
	}
	wantBalance(t, e.view(t, m.ID).Member.Balance, "20.00")
}

func TestRemoveEntryValidatedRequiresForce(t *testing.T) {
	e := newEnv(t)
	m := e.member(t, "Anna", "Roca", model.RoleMember, "20.00")
	en, err := e.ledger.Record(context.Background(), RecordInput{
		MemberRef: ref(m.ID),
		Amount:    dec("-4.00"),
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := e.ledger.Settle(context.Background(), en.ID); err != nil {
		t.Fatalf("settle: %v", err)
	}
	wantBalance(t, e.view(t, m.ID).Member.Balance, "16.00")

	err = e.ledger.Remove(context.Background(), en.ID, false)
	wantKind(t, err, apperror.InvalidState)

	if err := e.ledger.Remove(context.Background(), en.ID, true); err != nil {
		t.Fatalf("forced remove: %v", err)
	}
	// The entry is gone; the settled balance stays as it was.
	if _, err := e.ledger.Settle(context.Background(), en.ID); !apperror.IsKind(err, apperror.NotFound) {
		t.Fatalf("settle after remove: got %v, want not found", err)
	}
	v := e.view(t, m.ID)
	wantBalance(t, v.Member.Balance, "16.00")
	wantBalance(t, v.FutureBalance, "16.00")
}

func TestRemoveEntryProvisional(t *testing.T) {
	e := newEnv(t)
	m := e.member(t, "Anna", "Roca", model.RoleMember, "20.00")
	en, err := e.ledger.Record(context.Background(), RecordInput{
		MemberRef: ref(m.ID),
		Amount:    dec("-4.00"),
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	wantBalance(t, e.view(t, m.ID).FutureBalance, "16.00")

	if err := e.ledger.Remove(context.Background(), en.ID, false); err != nil {
		t.Fatalf("remove draft: %v", err)
	}
	v := e.view(t, m.ID)
	if v.DraftEntries != 0 {
		t.Fatalf("draft entries = %d, want 0 after removal", v.DraftEntries)
	}
	wantBalance(t, v.Member.Balance, "20.00")
	wantBalance(t, v.FutureBalance, "20.00")
}

func TestAllDefaultsToLastMonth(t *testing.T) {
	e := newEnv(t)
	m := e.member(t, "Anna", "Roca", model.RoleMember, "")

	// An entry dated well outside the default window.
	old := model.LedgerEntry{
		MemberID: m.ID,
		Amount:   dec("-2.00"),
		Label:    "Cash out",
		Date:     utils.Today().AddDate(0, -3, 0),
	}
	if err := e.q.Do(context.Background(), func(tx store.Tx) error {
		return tx.Entries().Create(context.Background(), &old)
	}); err != nil {
		t.Fatalf("backdate entry: %v", err)
	}
	recent, err := e.ledger.Record(context.Background(), RecordInput{
		MemberRef: ref(m.ID),
		Amount:    dec("5.00"),
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	entries, total, err := e.ledger.All(context.Background(), store.EntryFilter{MemberID: m.ID}, store.Page{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(entries) != 1 || entries[0].ID != recent.ID {
		t.Fatalf("default window returned %d entries, want only the recent one", total)
	}

	// An explicit window reaches the older entry.
	wide := store.EntryFilter{MemberID: m.ID, DateFrom: utils.Today().AddDate(0, -6, 0), DateTo: utils.EndOfDay(utils.Today())}
	_, total, err = e.ledger.All(context.Background(), wide, store.Page{})
	if err != nil {
		t.Fatalf("list wide: %v", err)
	}
	if total != 2 {
		t.Fatalf("explicit window returned %d entries, want 2", total)
	}
}

func TestStatementUsesSlotDates(t *testing.T) {
	e := newEnv(t)
	m := e.member(t, "Anna", "Roca", model.RoleMember, "20.00")
	sl, err := e.booking.Open(context.Background(), OpenSlotInput{
		Date:      futureDate(7),
		Hour:      "18:00",
		ClubID:    e.clubID,
		Occupants: []uint64{m.ID},
	}, ref(m.ID))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	st, err := e.ledger.ForMember(context.Background(), ref(m.ID), time.Time{}, time.Time{}, store.Page{})
	if err != nil {
		t.Fatalf("statement: %v", err)
	}
	if st.TotalCount != 2 {
		t.Fatalf("total = %d, want the top-up and the slot charge", st.TotalCount)
	}
	wantBalance(t, st.Balance, "20.00")
	wantBalance(t, st.FutureBalance, "16.00")

	var found bool
	for _, line := range st.Lines {
		if line.Entry.SlotID == sl.ID {
			found = true
			if !line.Date.Equal(sl.Date) || line.Hour != sl.Hour {
				t.Fatalf("slot line dated %s %s, want %s %s",
					utils.FormatDate(line.Date), line.Hour, utils.FormatDate(sl.Date), sl.Hour)
			}
		}
	}
	if !found {
		t.Fatal("statement should include the slot charge")
	}
}

// batchFixture reserves one slot next month with four occupants and
// one anonymous guest paid by the first of them, so the month counts
// five occupancies, two of them attributed to the first member.
func batchFixture(t *testing.T, e *env) (month, year int, ids []uint64) {
	t.Helper()
	admin := e.member(t, "Marta", "Vila", model.RoleAdmin, "20.00")
	for _, name := range []string{"Anna", "Pau", "Laia"} {
		m := e.member(t, name, "Test", model.RoleMember, "20.00")
		ids = append(ids, m.ID)
	}
	payer := e.member(t, "Jordi", "Font", model.RoleMember, "40.00")
	ids = append([]uint64{payer.ID}, ids...)

	nm := utils.Today().AddDate(0, 1, 0)
	date := time.Date(nm.Year(), nm.Month(), 15, 0, 0, 0, 0, time.UTC)
	sl, err := e.booking.Open(context.Background(), OpenSlotInput{
		Date:         utils.FormatDate(date),
		Hour:         "18:00",
		ClubID:       e.clubID,
		MaxOccupants: 5,
		Occupants:    ids[1:],
	}, ref(admin.ID))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := e.booking.Join(context.Background(), sl.ID, JoinInput{
		MemberID:  payer.ID,
		AnonNames: []string{"Pepe"},
	}); err != nil {
		t.Fatalf("join with guest: %v", err)
	}
	if _, err := e.reservations.Reserve(context.Background(), sl.ID, admin.ID, ""); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	return int(date.Month()), date.Year(), ids
}

func TestMonthlyBatchProRata(t *testing.T) {
	e := newEnv(t)
	month, year, ids := batchFixture(t, e)

	// Five occupancies, fee 0.20 each: 1.00 maintenance withheld from
	// 10.00 leaves 9.00, or 1.80 per occupancy.
	batch, err := e.ledger.ApplyMonthlyBatch(context.Background(), month, year, dec("10.00"), "")
	if err != nil {
		t.Fatalf("apply batch: %v", err)
	}

	entries, total, err := e.ledger.All(context.Background(), store.EntryFilter{BatchID: batch.ID}, store.Page{})
	if err != nil {
		t.Fatalf("list batch entries: %v", err)
	}
	if total != 4 {
		t.Fatalf("batch entries = %d, want one per member", total)
	}
	for _, en := range entries {
		if !en.Validated {
			t.Fatalf("batch entry %d not validated", en.ID)
		}
		want := "-1.80"
		if en.MemberID == ids[0] {
			want = "-3.60" // own seat plus the paid guest
		}
		if en.Amount.StringFixed(2) != want {
			t.Fatalf("share for member %d = %s, want %s", en.MemberID, en.Amount.StringFixed(2), want)
		}
	}

	// Payer: 40.00 minus two settled seats minus the 3.60 share.
	wantBalance(t, e.view(t, ids[0]).Member.Balance, "28.40")
	// Others: 20.00 minus one settled seat minus the 1.80 share.
	wantBalance(t, e.view(t, ids[1]).Member.Balance, "14.20")

	_, err = e.ledger.ApplyMonthlyBatch(context.Background(), month, year, dec("10.00"), "")
	wantKind(t, err, apperror.Conflict)
}

func TestMonthlyBatchNoOccupancies(t *testing.T) {
	e := newEnv(t)
	e.member(t, "Anna", "Roca", model.RoleMember, "20.00")

	batch, err := e.ledger.ApplyMonthlyBatch(context.Background(), 1, 2031, dec("10.00"), "")
	if err != nil {
		t.Fatalf("apply batch: %v", err)
	}
	if batch.Note == "" {
		t.Fatal("expected a diagnostic note on an empty month")
	}
	batches, err := e.ledger.Batches(context.Background())
	if err != nil {
		t.Fatalf("list batches: %v", err)
	}
	if len(batches) != 1 || batches[0].ID != batch.ID {
		t.Fatalf("batches = %+v, want the empty-month record", batches)
	}
}

func TestMonthlyBatchMaintenanceExceedsAmount(t *testing.T) {
	e := newEnv(t)
	month, year, ids := batchFixture(t, e)

	batch, err := e.ledger.ApplyMonthlyBatch(context.Background(), month, year, dec("0.50"), "")
	if err != nil {
		t.Fatalf("apply batch: %v", err)
	}
	if batch.Note == "" {
		t.Fatal("expected a diagnostic note when maintenance exceeds the amount")
	}
	_, total, err := e.ledger.All(context.Background(), store.EntryFilter{BatchID: batch.ID}, store.Page{})
	if err != nil {
		t.Fatalf("list batch entries: %v", err)
	}
	if total != 0 {
		t.Fatalf("batch entries = %d, want none distributed", total)
	}
	// Balances untouched beyond the settled seats.
	wantBalance(t, e.view(t, ids[1]).Member.Balance, "16.00")
}

func TestRemoveBatchRestoresBalances(t *testing.T) {
	e := newEnv(t)
	month, year, ids := batchFixture(t, e)

	batch, err := e.ledger.ApplyMonthlyBatch(context.Background(), month, year, dec("10.00"), "")
	if err != nil {
		t.Fatalf("apply batch: %v", err)
	}
	if err := e.ledger.RemoveBatch(context.Background(), batch.ID); err != nil {
		t.Fatalf("remove batch: %v", err)
	}

	wantBalance(t, e.view(t, ids[0]).Member.Balance, "32.00")
	wantBalance(t, e.view(t, ids[1]).Member.Balance, "16.00")
	_, total, err := e.ledger.All(context.Background(), store.EntryFilter{BatchID: batch.ID}, store.Page{})
	if err != nil {
		t.Fatalf("list batch entries: %v", err)
	}
	if total != 0 {
		t.Fatalf("batch entries = %d, want all removed", total)
	}

	// The period is reusable once the batch is gone.
	if _, err := e.ledger.ApplyMonthlyBatch(context.Background(), month, year, dec("10.00"), ""); err != nil {
		t.Fatalf("re-apply batch: %v", err)
	}
}

func TestMonthlyBatchValidation(t *testing.T) {
	e := newEnv(t)
	if _, err := e.ledger.ApplyMonthlyBatch(context.Background(), 13, 2031, dec("10.00"), ""); !apperror.IsKind(err, apperror.Validation) {
		t.Fatalf("month 13: got %v, want validation error", err)
	}
	if _, err := e.ledger.ApplyMonthlyBatch(context.Background(), 6, 2031, dec("0"), ""); !apperror.IsKind(err, apperror.Validation) {
		t.Fatalf("zero amount: got %v, want validation error", err)
	}
}
