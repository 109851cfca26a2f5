package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aleixpons/padel-club-backend/internal/apperror"
	"github.com/aleixpons/padel-club-backend/internal/model"
	"github.com/aleixpons/padel-club-backend/internal/store/memory"
	"github.com/aleixpons/padel-club-backend/internal/txqueue"
	"github.com/aleixpons/padel-club-backend/internal/utils"
)

// env bundles every service on top of an in-memory store with one club
// ("Padel Nord") and an active 18:00 rate of 4.00 already seeded.
type env struct {
	q            *txqueue.Queue
	booking      *Booking
	ledger       *Ledger
	reservations *Reservations
	members      *Members
	weeks        *Weeks
	clubs        *Clubs
	clubID       uint64
}

func newEnv(t *testing.T) *env {
	t.Helper()
	q := txqueue.New(memory.New(), 16, 0)
	t.Cleanup(q.Close)
	e := &env{
		q:            q,
		booking:      NewBooking(q, nil),
		ledger:       NewLedger(q, dec("0.20")),
		reservations: NewReservations(q, nil),
		members:      NewMembers(q, 24*time.Hour),
		weeks:        NewWeeks(q),
		clubs:        NewClubs(q),
	}
	club, err := e.clubs.Create(context.Background(), "Padel Nord")
	if err != nil {
		t.Fatalf("create club: %v", err)
	}
	e.clubID = club.ID
	if _, err := e.clubs.SetHourRate(context.Background(), "18:00", dec("4.00")); err != nil {
		t.Fatalf("set hour rate: %v", err)
	}
	return e
}

// member registers an account and, when balance is non-zero, settles a
// top-up for that amount.
func (e *env) member(t *testing.T, name, surname string, role model.Role, balance string) model.Member {
	t.Helper()
	m, err := e.members.Create(context.Background(), MemberInput{
		Name:    name,
		Surname: surname,
		Email:   name + "." + surname + "@example.com",
		Role:    role,
	})
	if err != nil {
		t.Fatalf("create member %s: %v", name, err)
	}
	if balance != "" && balance != "0" {
		_, err := e.ledger.Record(context.Background(), RecordInput{
			MemberRef: ref(m.ID),
			Amount:    dec(balance),
			Validated: true,
		})
		if err != nil {
			t.Fatalf("top up %s: %v", name, err)
		}
	}
	return m
}

// view reloads a member's directory row.
func (e *env) view(t *testing.T, id uint64) MemberView {
	t.Helper()
	v, err := e.members.Get(context.Background(), ref(id))
	if err != nil {
		t.Fatalf("get member %d: %v", id, err)
	}
	return v
}

func ref(id uint64) string { return strconv.FormatUint(id, 10) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// futureDate renders today+days in wire format.
func futureDate(days int) string {
	return utils.FormatDate(utils.Today().AddDate(0, 0, days))
}

func wantKind(t *testing.T, err error, kind apperror.Kind) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !apperror.IsKind(err, kind) {
		t.Fatalf("error kind = %v (%v), want %v", apperror.KindOf(err), err, kind)
	}
}

func wantBalance(t *testing.T, got decimal.Decimal, want string) {
	t.Helper()
	if got.StringFixed(2) != want {
		t.Fatalf("balance = %s, want %s", got.StringFixed(2), want)
	}
}
