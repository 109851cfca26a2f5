package service

import (
	"context"
	"sync"
	"testing"

	"github.com/aleixpons/padel-club-backend/internal/apperror"
	"github.com/aleixpons/padel-club-backend/internal/model"
	"github.com/aleixpons/padel-club-backend/internal/store"
	"github.com/aleixpons/padel-club-backend/internal/utils"
)

func TestOpenSlotDefaults(t *testing.T) {
	e := newEnv(t)
	admin := e.member(t, "Marta", "Vila", model.RoleAdmin, "20.00")

	sl, err := e.booking.Open(context.Background(), OpenSlotInput{
		Date:   futureDate(7),
		Hour:   "18:00",
		ClubID: e.clubID,
	}, ref(admin.ID))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if sl.Name != "Court 1" {
		t.Fatalf("name = %q, want Court 1", sl.Name)
	}
	if sl.MinOccupants != 4 || sl.MaxOccupants != 4 {
		t.Fatalf("capacity = %d/%d, want 4/4", sl.MinOccupants, sl.MaxOccupants)
	}
	if sl.Price.StringFixed(2) != "4.00" {
		t.Fatalf("price = %s, want 4.00 from the hour schedule", sl.Price.StringFixed(2))
	}
	if sl.State != model.SlotOpened {
		t.Fatalf("state = %s, want opened", sl.State)
	}
}

func TestOpenSlotRejectsPastDate(t *testing.T) {
	e := newEnv(t)
	m := e.member(t, "Anna", "Roca", model.RoleMember, "20.00")

	_, err := e.booking.Open(context.Background(), OpenSlotInput{
		Date:   utils.FormatDate(utils.Today().AddDate(0, 0, -1)),
		Hour:   "18:00",
		ClubID: e.clubID,
	}, ref(m.ID))
	wantKind(t, err, apperror.Validation)
}

func TestOpenSlotChargesInitialOccupants(t *testing.T) {
	e := newEnv(t)
	a := e.member(t, "Anna", "Roca", model.RoleMember, "20.00")
	b := e.member(t, "Pau", "Serra", model.RoleMember, "20.00")

	sl, err := e.booking.Open(context.Background(), OpenSlotInput{
		Date:      futureDate(7),
		Hour:      "18:00",
		ClubID:    e.clubID,
		Occupants: []uint64{a.ID, b.ID},
	}, ref(a.ID))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if sl.State != model.SlotOpened {
		t.Fatalf("state = %s, want opened with 2 of 4 seats", sl.State)
	}
	for _, id := range []uint64{a.ID, b.ID} {
		v := e.view(t, id)
		wantBalance(t, v.Member.Balance, "20.00")
		wantBalance(t, v.FutureBalance, "16.00")
		if v.DraftEntries != 1 {
			t.Fatalf("draft entries = %d, want 1", v.DraftEntries)
		}
	}
}

func TestJoinClosesSlotAtMinimum(t *testing.T) {
	e := newEnv(t)
	var ids []uint64
	for _, name := range []string{"Anna", "Pau", "Laia", "Jordi", "Marc"} {
		m := e.member(t, name, "Test", model.RoleMember, "20.00")
		ids = append(ids, m.ID)
	}
	sl, err := e.booking.Open(context.Background(), OpenSlotInput{
		Date:      futureDate(7),
		Hour:      "18:00",
		ClubID:    e.clubID,
		Occupants: ids[:3],
	}, ref(ids[0]))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if sl.State != model.SlotOpened {
		t.Fatalf("state = %s, want opened with 3 of 4 seats", sl.State)
	}

	sl, err = e.booking.Join(context.Background(), sl.ID, JoinInput{MemberID: ids[3]})
	if err != nil {
		t.Fatalf("fourth join: %v", err)
	}
	if sl.State != model.SlotClosed {
		t.Fatalf("state = %s, want closed at minimum occupancy", sl.State)
	}

	_, err = e.booking.Join(context.Background(), sl.ID, JoinInput{MemberID: ids[4]})
	wantKind(t, err, apperror.CapacityExceeded)
}

func TestJoinInsufficientFundsWritesNothing(t *testing.T) {
	e := newEnv(t)
	a := e.member(t, "Anna", "Roca", model.RoleMember, "10.00")
	i1 := e.member(t, "Ivan", "Costa", model.RoleMember, "")
	i2 := e.member(t, "Ona", "Puig", model.RoleMember, "")
	sl, err := e.booking.Open(context.Background(), OpenSlotInput{
		Date:   futureDate(7),
		Hour:   "18:00",
		ClubID: e.clubID,
	}, ref(a.ID))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	// Three seats at 4.00 against a projected balance of 10.00.
	_, err = e.booking.Join(context.Background(), sl.ID, JoinInput{
		MemberID: a.ID,
		Invitees: []uint64{i1.ID, i2.ID},
	})
	wantKind(t, err, apperror.InsufficientFunds)

	v := e.view(t, a.ID)
	if v.DraftEntries != 0 {
		t.Fatalf("draft entries = %d, want 0 after rejected join", v.DraftEntries)
	}
	sl, err = e.booking.Get(context.Background(), sl.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sl.TotalOccupancy() != 0 {
		t.Fatalf("occupancy = %d, want 0 after rejected join", sl.TotalOccupancy())
	}
}

func TestJoinWithGuests(t *testing.T) {
	e := newEnv(t)
	a := e.member(t, "Anna", "Roca", model.RoleMember, "20.00")
	inv := e.member(t, "Ivan", "Costa", model.RoleMember, "")
	sl, err := e.booking.Open(context.Background(), OpenSlotInput{
		Date:   futureDate(7),
		Hour:   "18:00",
		ClubID: e.clubID,
	}, ref(a.ID))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	sl, err = e.booking.Join(context.Background(), sl.ID, JoinInput{
		MemberID:  a.ID,
		Invitees:  []uint64{inv.ID},
		AnonNames: []string{"Pepe"},
	})
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if sl.TotalOccupancy() != 3 {
		t.Fatalf("occupancy = %d, want 3 (member plus two guests)", sl.TotalOccupancy())
	}
	if len(sl.Guests) != 2 {
		t.Fatalf("guests = %d, want 2", len(sl.Guests))
	}
	for _, g := range sl.Guests {
		if g.PayerID != a.ID {
			t.Fatalf("guest payer = %d, want %d", g.PayerID, a.ID)
		}
	}
	if sl.Guests[0].Kind != model.GuestMember || sl.Guests[0].Name != "Ivan Costa" {
		t.Fatalf("member guest = %+v, want Ivan Costa", sl.Guests[0])
	}
	if sl.Guests[1].Kind != model.GuestAnon || sl.Guests[1].Name != "Pepe" {
		t.Fatalf("anon guest = %+v, want Pepe", sl.Guests[1])
	}

	v := e.view(t, a.ID)
	wantBalance(t, v.FutureBalance, "8.00") // 20.00 minus three seats
	if v.DraftEntries != 3 {
		t.Fatalf("draft entries = %d, want 3", v.DraftEntries)
	}
}

func TestLeaveTakesGuestsAndRefunds(t *testing.T) {
	e := newEnv(t)
	a := e.member(t, "Anna", "Roca", model.RoleMember, "20.00")
	inv := e.member(t, "Ivan", "Costa", model.RoleMember, "")
	sl, err := e.booking.Open(context.Background(), OpenSlotInput{
		Date:   futureDate(7),
		Hour:   "18:00",
		ClubID: e.clubID,
	}, ref(a.ID))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := e.booking.Join(context.Background(), sl.ID, JoinInput{
		MemberID:  a.ID,
		Invitees:  []uint64{inv.ID},
		AnonNames: []string{"Pepe"},
	}); err != nil {
		t.Fatalf("join: %v", err)
	}

	sl, err = e.booking.Leave(context.Background(), sl.ID, a.ID, 0)
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	if sl.TotalOccupancy() != 0 {
		t.Fatalf("occupancy = %d, want 0 after the payer left", sl.TotalOccupancy())
	}
	v := e.view(t, a.ID)
	wantBalance(t, v.FutureBalance, "20.00")
	if v.DraftEntries != 0 {
		t.Fatalf("draft entries = %d, want 0 after refund", v.DraftEntries)
	}
}

func TestLeaveGuestHonorsSubstitute(t *testing.T) {
	e := newEnv(t)
	a := e.member(t, "Anna", "Roca", model.RoleMember, "20.00")
	inv := e.member(t, "Ivan", "Costa", model.RoleMember, "")
	sub := e.member(t, "Marc", "Sole", model.RoleMember, "20.00")
	sl, err := e.booking.Open(context.Background(), OpenSlotInput{
		Date:   futureDate(7),
		Hour:   "18:00",
		ClubID: e.clubID,
	}, ref(a.ID))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := e.booking.Join(context.Background(), sl.ID, JoinInput{
		MemberID: a.ID,
		Invitees: []uint64{inv.ID},
	}); err != nil {
		t.Fatalf("join: %v", err)
	}

	// The invitee leaves and hands their spot to a regular member.
	sl, err = e.booking.Leave(context.Background(), sl.ID, inv.ID, sub.ID)
	if err != nil {
		t.Fatalf("leave with substitute: %v", err)
	}
	if len(sl.Guests) != 0 {
		t.Fatalf("guests = %d, want 0 after the invitee left", len(sl.Guests))
	}
	if !sl.HasOccupant(sub.ID) {
		t.Fatal("substitute should hold a regular seat")
	}
	if sl.TotalOccupancy() != 2 {
		t.Fatalf("occupancy = %d, want 2 (payer plus substitute)", sl.TotalOccupancy())
	}
	v := e.view(t, sub.ID)
	wantBalance(t, v.FutureBalance, "16.00")
	if v.DraftEntries != 1 {
		t.Fatalf("substitute draft entries = %d, want 1", v.DraftEntries)
	}
}

func TestOpenSlotUnknownHourRate(t *testing.T) {
	e := newEnv(t)
	m := e.member(t, "Anna", "Roca", model.RoleMember, "20.00")

	_, err := e.booking.Open(context.Background(), OpenSlotInput{
		Date:   futureDate(7),
		Hour:   "21:00",
		ClubID: e.clubID,
	}, ref(m.ID))
	wantKind(t, err, apperror.Validation)
}

func TestLeaveReopensBelowMinimum(t *testing.T) {
	e := newEnv(t)
	var ids []uint64
	for _, name := range []string{"Anna", "Pau", "Laia", "Jordi"} {
		m := e.member(t, name, "Test", model.RoleMember, "20.00")
		ids = append(ids, m.ID)
	}
	sl, err := e.booking.Open(context.Background(), OpenSlotInput{
		Date:      futureDate(7),
		Hour:      "18:00",
		ClubID:    e.clubID,
		Occupants: ids,
	}, ref(ids[0]))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if sl.State != model.SlotClosed {
		t.Fatalf("state = %s, want closed at full roster", sl.State)
	}

	sl, err = e.booking.Leave(context.Background(), sl.ID, ids[3], 0)
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	if sl.State != model.SlotOpened {
		t.Fatalf("state = %s, want opened below minimum", sl.State)
	}
}

func TestLeaveReservedRequiresSubstitute(t *testing.T) {
	e := newEnv(t)
	admin := e.member(t, "Marta", "Vila", model.RoleAdmin, "20.00")
	var ids []uint64
	for _, name := range []string{"Anna", "Pau", "Laia", "Jordi"} {
		m := e.member(t, name, "Test", model.RoleMember, "20.00")
		ids = append(ids, m.ID)
	}
	sub := e.member(t, "Marc", "Sole", model.RoleMember, "20.00")

	sl, err := e.booking.Open(context.Background(), OpenSlotInput{
		Date:      futureDate(7),
		Hour:      "18:00",
		ClubID:    e.clubID,
		Occupants: ids,
	}, ref(admin.ID))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := e.reservations.Reserve(context.Background(), sl.ID, admin.ID, ""); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	_, err = e.booking.Leave(context.Background(), sl.ID, ids[0], 0)
	wantKind(t, err, apperror.InvalidState)

	sl, err = e.booking.Leave(context.Background(), sl.ID, ids[0], sub.ID)
	if err != nil {
		t.Fatalf("leave with substitute: %v", err)
	}
	if sl.State != model.SlotReserved {
		t.Fatalf("state = %s, want still reserved", sl.State)
	}
	if !sl.HasOccupant(sub.ID) || sl.HasOccupant(ids[0]) {
		t.Fatal("roster should swap the leaver for the substitute")
	}

	// The leaver's settled payment is undone entirely.
	leaver := e.view(t, ids[0])
	wantBalance(t, leaver.Member.Balance, "20.00")
	wantBalance(t, leaver.FutureBalance, "20.00")

	// The substitute carries a fresh provisional charge.
	s := e.view(t, sub.ID)
	wantBalance(t, s.Member.Balance, "20.00")
	wantBalance(t, s.FutureBalance, "16.00")
}

func TestExpireDeletesOnlyProvisionalEntries(t *testing.T) {
	e := newEnv(t)
	a := e.member(t, "Anna", "Roca", model.RoleMember, "20.00")
	b := e.member(t, "Pau", "Serra", model.RoleMember, "20.00")
	sl, err := e.booking.Open(context.Background(), OpenSlotInput{
		Date:      futureDate(7),
		Hour:      "18:00",
		ClubID:    e.clubID,
		Occupants: []uint64{a.ID, b.ID},
	}, ref(a.ID))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	entries, _, err := e.ledger.All(context.Background(), store.EntryFilter{SlotID: sl.ID}, store.Page{})
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	for _, en := range entries {
		if en.MemberID == a.ID {
			if _, err := e.ledger.Settle(context.Background(), en.ID); err != nil {
				t.Fatalf("settle: %v", err)
			}
		}
	}

	sl, err = e.booking.Expire(context.Background(), sl.ID)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if sl.State != model.SlotExpired {
		t.Fatalf("state = %s, want expired", sl.State)
	}

	left, _, err := e.ledger.All(context.Background(), store.EntryFilter{SlotID: sl.ID}, store.Page{})
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(left) != 1 || left[0].MemberID != a.ID || !left[0].Validated {
		t.Fatalf("entries after expiry = %+v, want only the settled one", left)
	}
	wantBalance(t, e.view(t, b.ID).FutureBalance, "20.00")

	_, err = e.booking.Expire(context.Background(), sl.ID)
	wantKind(t, err, apperror.InvalidState)
}

func TestRemoveOccupiedNeedsForce(t *testing.T) {
	e := newEnv(t)
	a := e.member(t, "Anna", "Roca", model.RoleMember, "20.00")
	sl, err := e.booking.Open(context.Background(), OpenSlotInput{
		Date:      futureDate(7),
		Hour:      "18:00",
		ClubID:    e.clubID,
		Occupants: []uint64{a.ID},
	}, ref(a.ID))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	err = e.booking.Remove(context.Background(), sl.ID, false)
	wantKind(t, err, apperror.Conflict)

	if err := e.booking.Remove(context.Background(), sl.ID, true); err != nil {
		t.Fatalf("forced remove: %v", err)
	}
	_, err = e.booking.Get(context.Background(), sl.ID)
	wantKind(t, err, apperror.NotFound)
}

func TestOpenSecondCourtRequiresFullFirst(t *testing.T) {
	e := newEnv(t)
	var ids []uint64
	for _, name := range []string{"Anna", "Pau", "Laia", "Jordi"} {
		m := e.member(t, name, "Test", model.RoleMember, "20.00")
		ids = append(ids, m.ID)
	}
	opener := e.member(t, "Marc", "Sole", model.RoleMember, "20.00")
	date := futureDate(7)

	first, err := e.booking.Open(context.Background(), OpenSlotInput{
		Date:      date,
		Hour:      "18:00",
		ClubID:    e.clubID,
		Occupants: ids[:3],
	}, ref(ids[0]))
	if err != nil {
		t.Fatalf("open first: %v", err)
	}

	_, err = e.booking.Open(context.Background(), OpenSlotInput{
		Date:   date,
		Hour:   "18:00",
		ClubID: e.clubID,
	}, ref(opener.ID))
	wantKind(t, err, apperror.Conflict)

	if _, err := e.booking.Join(context.Background(), first.ID, JoinInput{MemberID: ids[3]}); err != nil {
		t.Fatalf("fill first court: %v", err)
	}

	// A member already playing at that hour may not open another court.
	_, err = e.booking.Open(context.Background(), OpenSlotInput{
		Date:   date,
		Hour:   "18:00",
		ClubID: e.clubID,
	}, ref(ids[0]))
	wantKind(t, err, apperror.Conflict)

	second, err := e.booking.Open(context.Background(), OpenSlotInput{
		Date:   date,
		Hour:   "18:00",
		ClubID: e.clubID,
	}, ref(opener.ID))
	if err != nil {
		t.Fatalf("open second: %v", err)
	}
	if second.Name != "Court 2" {
		t.Fatalf("name = %q, want Court 2", second.Name)
	}
}

func TestJoinReservedSlotRejected(t *testing.T) {
	e := newEnv(t)
	admin := e.member(t, "Marta", "Vila", model.RoleAdmin, "20.00")
	var ids []uint64
	for _, name := range []string{"Anna", "Pau", "Laia", "Jordi"} {
		m := e.member(t, name, "Test", model.RoleMember, "20.00")
		ids = append(ids, m.ID)
	}
	late := e.member(t, "Marc", "Sole", model.RoleMember, "20.00")

	sl, err := e.booking.Open(context.Background(), OpenSlotInput{
		Date:      futureDate(7),
		Hour:      "18:00",
		ClubID:    e.clubID,
		Occupants: ids,
	}, ref(admin.ID))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := e.reservations.Reserve(context.Background(), sl.ID, admin.ID, ""); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	_, err = e.booking.Join(context.Background(), sl.ID, JoinInput{MemberID: late.ID})
	wantKind(t, err, apperror.InvalidState)
}

func TestConcurrentJoinsLastSeat(t *testing.T) {
	e := newEnv(t)
	var ids []uint64
	for _, name := range []string{"Anna", "Pau", "Laia"} {
		m := e.member(t, name, "Test", model.RoleMember, "20.00")
		ids = append(ids, m.ID)
	}
	sl, err := e.booking.Open(context.Background(), OpenSlotInput{
		Date:      futureDate(7),
		Hour:      "18:00",
		ClubID:    e.clubID,
		Occupants: ids,
	}, ref(ids[0]))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	var contenders []uint64
	for _, name := range []string{"Marc", "Ona", "Ivan"} {
		m := e.member(t, name, "Race", model.RoleMember, "20.00")
		contenders = append(contenders, m.ID)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		won  int
		lost int
	)
	for _, id := range contenders {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			_, err := e.booking.Join(context.Background(), sl.ID, JoinInput{MemberID: id})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				won++
			case apperror.IsKind(err, apperror.CapacityExceeded):
				lost++
			default:
				t.Errorf("unexpected join error: %v", err)
			}
		}(id)
	}
	wg.Wait()
	if won != 1 || lost != 2 {
		t.Fatalf("won=%d lost=%d, want exactly one winner for the last seat", won, lost)
	}
}

func TestRollForwardWeek(t *testing.T) {
	e := newEnv(t)
	admin := e.member(t, "Marta", "Vila", model.RoleAdmin, "20.00")
	prio := e.member(t, "Jordi", "Font", model.RolePriority, "40.00")
	plain := e.member(t, "Anna", "Roca", model.RoleMember, "20.00")

	monday := utils.MondayOf(utils.Today().AddDate(0, 0, 7))
	if _, err := e.booking.Open(context.Background(), OpenSlotInput{
		Date:      utils.FormatDate(monday),
		Hour:      "18:00",
		ClubID:    e.clubID,
		Occupants: []uint64{prio.ID, plain.ID},
	}, ref(admin.ID)); err != nil {
		t.Fatalf("open prior-week slot: %v", err)
	}

	res, err := e.booking.RollForwardWeek(context.Background(),
		utils.FormatDate(monday.AddDate(0, 0, 7)), "18:00", e.clubID, admin.ID)
	if err != nil {
		t.Fatalf("roll forward: %v", err)
	}
	if res.Expired != 1 {
		t.Fatalf("expired = %d, want 1 stale slot", res.Expired)
	}
	if len(res.Created) != 5 {
		t.Fatalf("created = %d, want Monday through Friday", len(res.Created))
	}

	next := res.Created[0]
	if !next.Date.Equal(monday.AddDate(0, 0, 7)) {
		t.Fatalf("first created slot dated %s, want the new Monday", utils.FormatDate(next.Date))
	}
	if !next.HasOccupant(prio.ID) {
		t.Fatal("priority member should carry over to the new Monday slot")
	}
	if next.HasOccupant(plain.ID) {
		t.Fatal("plain member should not carry over")
	}

	// The stale charge was refunded on expiry; only the carried seat
	// remains provisional.
	wantBalance(t, e.view(t, prio.ID).FutureBalance, "36.00")
	wantBalance(t, e.view(t, plain.ID).FutureBalance, "20.00")
}
