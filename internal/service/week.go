package service

import (
	"context"

	"github.com/aleixpons/padel-club-backend/internal/model"
	"github.com/aleixpons/padel-club-backend/internal/store"
	"github.com/aleixpons/padel-club-backend/internal/txqueue"
	"github.com/aleixpons/padel-club-backend/internal/utils"
)

// Weeks builds the Monday-to-Sunday board a member sees when opening
// the app: one panel per club, one column per day, every slot with its
// roster, plus the member's projected balance.
type Weeks struct {
	q *txqueue.Queue
}

// NewWeeks wires the week projection service.
func NewWeeks(q *txqueue.Queue) *Weeks { return &Weeks{q: q} }

// SeatView is one roster line of a slot: an occupant or a guest. For
// guests, PaidBy names the inviting member.
type SeatView struct {
	MemberID uint64 `json:"member_id,omitempty"`
	Name     string `json:"name"`
	Guest    bool   `json:"guest"`
	PaidBy   string `json:"paid_by,omitempty"`
}

// SlotView is one slot cell of the weekly board.
type SlotView struct {
	ID        uint64          `json:"id"`
	Name      string          `json:"name"`
	Hour      string          `json:"hour"`
	Date      string          `json:"date"`
	State     model.SlotState `json:"state"`
	Price     string          `json:"price"`
	Min       int             `json:"min_occupants"`
	Max       int             `json:"max_occupants"`
	Occupancy int             `json:"occupancy"`
	Mine      bool            `json:"mine"`
	Seats     []SeatView      `json:"seats"`
}

// DayView groups a calendar day's slots.
type DayView struct {
	Date  string     `json:"date"`
	Slots []SlotView `json:"slots"`
}

// ClubWeek is one club's panel of the board.
type ClubWeek struct {
	ClubID   uint64    `json:"club_id"`
	ClubName string    `json:"club_name"`
	Days     []DayView `json:"days"`
}

// WeekView is the full board for one member and one week.
type WeekView struct {
	Name           string     `json:"name"` // "dd-mm-yyyy - dd-mm-yyyy"
	CurrentBalance string     `json:"current_balance"`
	Clubs          []ClubWeek `json:"clubs"`
}

// For builds the board for the week containing anchorDate (today when
// blank) restricted to the member's clubs.
func (w *Weeks) For(ctx context.Context, memberRef, anchorDate string) (WeekView, error) {
	var out WeekView
	err := w.q.Do(ctx, func(tx store.Tx) error {
		m, err := resolveMember(ctx, tx, memberRef)
		if err != nil {
			return err
		}
		anchor := utils.Today()
		if anchorDate != "" {
			anchor, err = utils.ParseDate(anchorDate)
			if err != nil {
				return err
			}
		}
		monday := utils.MondayOf(anchor)
		sunday := monday.AddDate(0, 0, 6)

		future, err := projectedBalance(ctx, tx, &m)
		if err != nil {
			return err
		}
		out = WeekView{
			Name:           utils.FormatDate(monday) + " - " + utils.FormatDate(sunday),
			CurrentBalance: future.StringFixed(2),
		}

		clubs, err := tx.Clubs().List(ctx)
		if err != nil {
			return err
		}
		for _, c := range clubs {
			if !c.HasMember(m.ID) {
				continue
			}
			panel := ClubWeek{ClubID: c.ID, ClubName: c.Name}
			for i := 0; i < 7; i++ {
				day := monday.AddDate(0, 0, i)
				slots, err := tx.Slots().List(ctx, store.SlotFilter{ClubID: c.ID, Date: day})
				if err != nil {
					return err
				}
				dv := DayView{Date: utils.FormatDate(day)}
				for j := range slots {
					dv.Slots = append(dv.Slots, slotView(&slots[j], m.ID))
				}
				panel.Days = append(panel.Days, dv)
			}
			out.Clubs = append(out.Clubs, panel)
		}
		return nil
	})
	return out, err
}

func slotView(sl *model.Slot, viewerID uint64) SlotView {
	v := SlotView{
		ID:        sl.ID,
		Name:      sl.Name,
		Hour:      sl.Hour,
		Date:      utils.FormatDate(sl.Date),
		State:     sl.State,
		Price:     sl.Price.StringFixed(2),
		Min:       sl.MinOccupants,
		Max:       sl.MaxOccupants,
		Occupancy: sl.TotalOccupancy(),
		Mine:      sl.HasOccupant(viewerID),
	}
	payers := map[uint64]string{}
	for _, m := range sl.Occupants {
		payers[m.ID] = m.Name + " " + m.Surname
		v.Seats = append(v.Seats, SeatView{MemberID: m.ID, Name: m.Name + " " + m.Surname})
	}
	for _, g := range sl.Guests {
		seat := SeatView{Name: g.Name, Guest: true, PaidBy: payers[g.PayerID]}
		if g.Kind == model.GuestMember {
			seat.MemberID = g.MemberID
		}
		v.Seats = append(v.Seats, seat)
	}
	return v
}
