// Command seed loads a small demo dataset into the in-memory store and
// prints a week of bookings, exercising the full booking flow end to
// end without a database. Useful for demos and manual checks.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aleixpons/padel-club-backend/internal/model"
	"github.com/aleixpons/padel-club-backend/internal/service"
	"github.com/aleixpons/padel-club-backend/internal/store/memory"
	"github.com/aleixpons/padel-club-backend/internal/txqueue"
	"github.com/aleixpons/padel-club-backend/internal/utils"
)

func main() {
	st := memory.New()
	q := txqueue.New(st, 16, 10*time.Second)
	defer q.Close()

	clubs := service.NewClubs(q)
	members := service.NewMembers(q, 30*24*time.Hour)
	booking := service.NewBooking(q, nil)
	ledger := service.NewLedger(q, decimal.RequireFromString("0.20"))
	weeks := service.NewWeeks(q)

	ctx := context.Background()

	club, err := clubs.Create(ctx, "Padel Nord")
	if err != nil {
		log.Fatal(err)
	}
	if _, err := clubs.SetHourRate(ctx, "18h", decimal.RequireFromString("3.00")); err != nil {
		log.Fatal(err)
	}
	if _, err := clubs.SetHourRate(ctx, "19h", decimal.RequireFromString("3.50")); err != nil {
		log.Fatal(err)
	}

	seed := []service.MemberInput{
		{Name: "Marta", Surname: "Vila", Email: "marta@club.test", Role: model.RoleAdmin, Password: "secret"},
		{Name: "Jordi", Surname: "Serra", Email: "jordi@club.test", Role: model.RolePriority, Password: "secret"},
		{Name: "Anna", Surname: "Roca", Email: "anna@club.test", Password: "secret"},
		{Name: "Pau", Surname: "Font", Email: "pau@club.test", Password: "secret"},
		{Name: "Laia", Surname: "Camps", Email: "laia@club.test", Password: "secret"},
	}
	var ids []uint64
	for _, in := range seed {
		m, err := members.Create(ctx, in)
		if err != nil {
			log.Fatal(err)
		}
		// Everyone starts with a settled top-up so they can book.
		if _, err := ledger.Record(ctx, service.RecordInput{
			MemberRef: m.Email,
			Amount:    decimal.RequireFromString("20.00"),
			Validated: true,
		}); err != nil {
			log.Fatal(err)
		}
		ids = append(ids, m.ID)
	}

	monday := utils.MondayOf(utils.Today().AddDate(0, 0, 7))
	sl, err := booking.Open(ctx, service.OpenSlotInput{
		Date:      utils.FormatDate(monday),
		Hour:      "18h",
		ClubID:    club.ID,
		Occupants: ids[:2],
	}, fmt.Sprint(ids[0]))
	if err != nil {
		log.Fatal(err)
	}
	for _, id := range ids[2:4] {
		if sl, err = booking.Join(ctx, sl.ID, service.JoinInput{MemberID: id}); err != nil {
			log.Fatal(err)
		}
	}
	fmt.Printf("seeded slot %q on %s %s, state=%s, occupancy=%d/%d\n",
		sl.Name, utils.FormatDate(sl.Date), sl.Hour, sl.State, sl.TotalOccupancy(), sl.MaxOccupants)

	board, err := weeks.For(ctx, fmt.Sprint(ids[0]), utils.FormatDate(monday))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("week %s, balance %s\n", board.Name, board.CurrentBalance)
	for _, cw := range board.Clubs {
		for _, day := range cw.Days {
			for _, s := range day.Slots {
				fmt.Printf("  %s %s %-10s %s (%d/%d)\n", day.Date, s.Hour, cw.ClubName, s.State, s.Occupancy, s.Max)
			}
		}
	}
}
