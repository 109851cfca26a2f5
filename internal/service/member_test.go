package service

import (
	"context"
	"testing"

	"github.com/aleixpons/padel-club-backend/internal/apperror"
	"github.com/aleixpons/padel-club-backend/internal/model"
)

func TestCreateMemberDefaults(t *testing.T) {
	e := newEnv(t)
	m, err := e.members.Create(context.Background(), MemberInput{
		Name:    " Anna ",
		Surname: "Roca",
		Email:   "Anna.Roca@Example.com",
		Phone:   "600111222",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.Name != "Anna" {
		t.Fatalf("name = %q, want trimmed Anna", m.Name)
	}
	if m.Email != "anna.roca@example.com" {
		t.Fatalf("email = %q, want lowercased", m.Email)
	}
	if m.Role != model.RoleMember {
		t.Fatalf("role = %s, want member by default", m.Role)
	}
	if len(m.ClubIDs) != 1 || m.ClubIDs[0] != e.clubID {
		t.Fatalf("clubs = %v, want enrollment in every club", m.ClubIDs)
	}
	if !m.Balance.IsZero() {
		t.Fatalf("balance = %s, want zero", m.Balance)
	}
}

func TestCreateMemberUniqueness(t *testing.T) {
	e := newEnv(t)
	e.member(t, "Anna", "Roca", model.RoleMember, "")

	_, err := e.members.Create(context.Background(), MemberInput{
		Name:    "Other",
		Surname: "Person",
		Email:   "anna.roca@example.com",
	})
	wantKind(t, err, apperror.Conflict)

	if _, err := e.members.Create(context.Background(), MemberInput{
		Name:    "With",
		Surname: "Phone",
		Email:   "with.phone@example.com",
		Phone:   "600111222",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = e.members.Create(context.Background(), MemberInput{
		Name:    "Second",
		Surname: "Phone",
		Email:   "second.phone@example.com",
		Phone:   "600111222",
	})
	wantKind(t, err, apperror.Conflict)
}

func TestCreateMemberValidation(t *testing.T) {
	e := newEnv(t)
	cases := []struct {
		name string
		in   MemberInput
	}{
		{"missing name", MemberInput{Surname: "Roca", Email: "a@b.com"}},
		{"missing email", MemberInput{Name: "Anna", Surname: "Roca"}},
		{"bad role", MemberInput{Name: "Anna", Surname: "Roca", Email: "a@b.com", Role: "boss"}},
	}
	for _, tc := range cases {
		_, err := e.members.Create(context.Background(), tc.in)
		if !apperror.IsKind(err, apperror.Validation) {
			t.Fatalf("%s: got %v, want validation error", tc.name, err)
		}
	}
}

func TestAuthenticateCredential(t *testing.T) {
	e := newEnv(t)
	if _, err := e.members.Create(context.Background(), MemberInput{
		Name:     "Anna",
		Surname:  "Roca",
		Email:    "anna@example.com",
		Password: "secret123",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	m, err := e.members.AuthenticateCredential(context.Background(), " Anna@Example.com ", "secret123")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if m.Email != "anna@example.com" {
		t.Fatalf("email = %q", m.Email)
	}

	_, err = e.members.AuthenticateCredential(context.Background(), "anna@example.com", "wrong")
	wantKind(t, err, apperror.Unauthorized)

	_, err = e.members.AuthenticateCredential(context.Background(), "nobody@example.com", "secret123")
	wantKind(t, err, apperror.Unauthorized)
}

func TestUpdateKeepsPasswordWhenBlank(t *testing.T) {
	e := newEnv(t)
	m, err := e.members.Create(context.Background(), MemberInput{
		Name:     "Anna",
		Surname:  "Roca",
		Email:    "anna@example.com",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := e.members.Update(context.Background(), m.ID, MemberInput{
		Name:    "Anna",
		Surname: "Roca",
		Email:   "anna@example.com",
		Role:    model.RolePriority,
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := e.members.AuthenticateCredential(context.Background(), "anna@example.com", "secret123")
	if err != nil {
		t.Fatalf("authenticate after update: %v", err)
	}
	if got.Role != model.RolePriority {
		t.Fatalf("role = %s, want priority", got.Role)
	}
}

func TestRefreshTokenRotation(t *testing.T) {
	e := newEnv(t)
	m := e.member(t, "Anna", "Roca", model.RoleMember, "")

	raw := "raw-refresh-token"
	if err := e.members.StoreRefresh(context.Background(), m.ID, raw); err != nil {
		t.Fatalf("store refresh: %v", err)
	}

	got, err := e.members.ValidateRefresh(context.Background(), raw)
	if err != nil {
		t.Fatalf("validate refresh: %v", err)
	}
	if got.ID != m.ID {
		t.Fatalf("member = %d, want %d", got.ID, m.ID)
	}

	// Rotation: the presented token is spent.
	_, err = e.members.ValidateRefresh(context.Background(), raw)
	wantKind(t, err, apperror.Unauthorized)

	// Revoking an unknown token is silent.
	if err := e.members.RevokeRefresh(context.Background(), "never-issued"); err != nil {
		t.Fatalf("revoke unknown: %v", err)
	}
}

func TestRevokeRefresh(t *testing.T) {
	e := newEnv(t)
	m := e.member(t, "Anna", "Roca", model.RoleMember, "")

	raw := "raw-refresh-token"
	if err := e.members.StoreRefresh(context.Background(), m.ID, raw); err != nil {
		t.Fatalf("store refresh: %v", err)
	}
	if err := e.members.RevokeRefresh(context.Background(), raw); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	_, err := e.members.ValidateRefresh(context.Background(), raw)
	wantKind(t, err, apperror.Unauthorized)
}

func TestRemoveMemberBlockedByUpcomingSlot(t *testing.T) {
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

	err = e.members.Remove(context.Background(), m.ID)
	wantKind(t, err, apperror.Conflict)

	if _, err := e.booking.Leave(context.Background(), sl.ID, m.ID, 0); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if err := e.members.Remove(context.Background(), m.ID); err != nil {
		t.Fatalf("remove after leaving: %v", err)
	}
	_, err = e.members.Get(context.Background(), ref(m.ID))
	wantKind(t, err, apperror.NotFound)
}

func TestMemberDirectoryView(t *testing.T) {
	e := newEnv(t)
	a := e.member(t, "Anna", "Roca", model.RoleMember, "20.00")
	if _, err := e.ledger.Record(context.Background(), RecordInput{
		MemberRef: ref(a.ID),
		Amount:    dec("-4.00"),
	}); err != nil {
		t.Fatalf("record: %v", err)
	}

	all, err := e.members.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("directory size = %d, want 1", len(all))
	}
	v := all[0]
	wantBalance(t, v.Member.Balance, "20.00")
	wantBalance(t, v.FutureBalance, "16.00")
	if v.DraftEntries != 1 {
		t.Fatalf("draft entries = %d, want 1", v.DraftEntries)
	}
}
