package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/aleixpons/padel-club-backend/internal/model"
	"github.com/aleixpons/padel-club-backend/internal/service"
	"github.com/aleixpons/padel-club-backend/internal/store"
	"github.com/aleixpons/padel-club-backend/internal/utils"
)

// SlotHandler exposes the slot state machine over HTTP.
type SlotHandler struct {
	Booking      *service.Booking
	Reservations *service.Reservations
}

func NewSlotHandler(b *service.Booking, r *service.Reservations) *SlotHandler {
	return &SlotHandler{Booking: b, Reservations: r}
}

type openSlotReq struct {
	Date         string   `json:"date"` // dd-mm-yyyy
	Hour         string   `json:"hour"`
	ClubID       uint64   `json:"club_id"`
	Name         string   `json:"name"`
	MinOccupants int      `json:"min_occupants"`
	MaxOccupants int      `json:"max_occupants"`
	Price        string   `json:"price"`
	Occupants    []uint64 `json:"occupants"`
}

type joinReq struct {
	Invitees  []uint64 `json:"invitees"`
	AnonNames []string `json:"guest_names"`
}

type leaveReq struct {
	SubstituteID uint64 `json:"substitute_id"`
}

type rollForwardReq struct {
	Date   string `json:"date"`
	Hour   string `json:"hour"`
	ClubID uint64 `json:"club_id"`
}

type reserveReq struct {
	Name string `json:"name"`
}

// slotResp is the wire shape of a slot.
type slotResp struct {
	ID            uint64             `json:"id"`
	Name          string             `json:"name"`
	ClubID        uint64             `json:"club_id"`
	Date          string             `json:"date"`
	Hour          string             `json:"hour"`
	MinOccupants  int                `json:"min_occupants"`
	MaxOccupants  int                `json:"max_occupants"`
	Price         string             `json:"price"`
	State         string             `json:"state"`
	ReservationID uint64             `json:"reservation_id,omitempty"`
	Occupancy     int                `json:"occupancy"`
	Seats         []service.SeatView `json:"seats"`
}

func slotToResp(sl model.Slot) slotResp {
	out := slotResp{
		ID:            sl.ID,
		Name:          sl.Name,
		ClubID:        sl.ClubID,
		Date:          utils.FormatDate(sl.Date),
		Hour:          sl.Hour,
		MinOccupants:  sl.MinOccupants,
		MaxOccupants:  sl.MaxOccupants,
		Price:         sl.Price.StringFixed(2),
		State:         string(sl.State),
		ReservationID: sl.ReservationID,
		Occupancy:     sl.TotalOccupancy(),
	}
	payers := map[uint64]string{}
	for _, m := range sl.Occupants {
		payers[m.ID] = m.Name + " " + m.Surname
		out.Seats = append(out.Seats, service.SeatView{MemberID: m.ID, Name: m.Name + " " + m.Surname})
	}
	for _, g := range sl.Guests {
		seat := service.SeatView{Name: g.Name, Guest: true, PaidBy: payers[g.PayerID]}
		if g.Kind == model.GuestMember {
			seat.MemberID = g.MemberID
		}
		out.Seats = append(out.Seats, seat)
	}
	return out
}

// Open handles POST /v1/slots.
func (h *SlotHandler) Open(c echo.Context) error {
	requester, err := memberID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req openSlotReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	in := service.OpenSlotInput{
		Date:         req.Date,
		Hour:         req.Hour,
		ClubID:       req.ClubID,
		Name:         req.Name,
		MinOccupants: req.MinOccupants,
		MaxOccupants: req.MaxOccupants,
		Occupants:    req.Occupants,
	}
	if req.Price != "" {
		p, err := decimal.NewFromString(req.Price)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid price"})
		}
		in.Price = p
	}
	sl, err := h.Booking.Open(c.Request().Context(), in, strconv.FormatUint(requester, 10))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, slotToResp(sl))
}

// Join handles POST /v1/slots/:id/join.
func (h *SlotHandler) Join(c echo.Context) error {
	me, err := memberID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	var req joinReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	sl, err := h.Booking.Join(c.Request().Context(), id, service.JoinInput{
		MemberID:  me,
		Invitees:  req.Invitees,
		AnonNames: req.AnonNames,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, slotToResp(sl))
}

// Leave handles POST /v1/slots/:id/leave.
func (h *SlotHandler) Leave(c echo.Context) error {
	me, err := memberID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	var req leaveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	sl, err := h.Booking.Leave(c.Request().Context(), id, me, req.SubstituteID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, slotToResp(sl))
}

// Expire handles POST /v1/slots/:id/expire (admin).
func (h *SlotHandler) Expire(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	sl, err := h.Booking.Expire(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, slotToResp(sl))
}

// Remove handles DELETE /v1/slots/:id (admin). ?force=true overrides
// the occupancy guard.
func (h *SlotHandler) Remove(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	force := c.QueryParam("force") == "true"
	if err := h.Booking.Remove(c.Request().Context(), id, force); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// RollForward handles POST /v1/slots/roll-forward.
func (h *SlotHandler) RollForward(c echo.Context) error {
	me, err := memberID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req rollForwardReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	res, err := h.Booking.RollForwardWeek(c.Request().Context(), req.Date, req.Hour, req.ClubID, me)
	if err != nil {
		return fail(c, err)
	}
	created := make([]slotResp, 0, len(res.Created))
	for _, sl := range res.Created {
		created = append(created, slotToResp(sl))
	}
	return c.JSON(http.StatusOK, echo.Map{"expired": res.Expired, "created": created})
}

// Get handles GET /v1/slots/:id.
func (h *SlotHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	sl, err := h.Booking.Get(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, slotToResp(sl))
}

// List handles GET /v1/slots with club_id, hour, date, from, to and
// state filters.
func (h *SlotHandler) List(c echo.Context) error {
	var f store.SlotFilter
	f.ClubID = uint64(queryInt(c, "club_id", 0))
	f.Hour = c.QueryParam("hour")
	if s := c.QueryParam("date"); s != "" {
		d, err := utils.ParseDate(s)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date"})
		}
		f.Date = d
	}
	if s := c.QueryParam("from"); s != "" {
		d, err := utils.ParseDate(s)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid from date"})
		}
		f.DateFrom = d
	}
	if s := c.QueryParam("to"); s != "" {
		d, err := utils.ParseDate(s)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid to date"})
		}
		f.DateTo = d
	}
	if s := c.QueryParam("state"); s != "" {
		f.States = []model.SlotState{model.SlotState(s)}
	}
	slots, err := h.Booking.List(c.Request().Context(), f)
	if err != nil {
		return fail(c, err)
	}
	out := make([]slotResp, 0, len(slots))
	for _, sl := range slots {
		out = append(out, slotToResp(sl))
	}
	return c.JSON(http.StatusOK, echo.Map{"slots": out})
}

// UnreservedClosed handles GET /v1/slots/unreserved (admin): the
// closed slots awaiting confirmation.
func (h *SlotHandler) UnreservedClosed(c echo.Context) error {
	slots, err := h.Booking.UnreservedClosed(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	out := make([]slotResp, 0, len(slots))
	for _, sl := range slots {
		out = append(out, slotToResp(sl))
	}
	return c.JSON(http.StatusOK, echo.Map{"slots": out})
}

// Reserve handles POST /v1/slots/:id/reserve (admin).
func (h *SlotHandler) Reserve(c echo.Context) error {
	admin, err := memberID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	var req reserveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	view, err := h.Reservations.Reserve(c.Request().Context(), id, admin, req.Name)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"reservation_id": view.Reservation.ID,
		"slot":           slotToResp(view.Slot),
	})
}

// Unreserve handles DELETE /v1/reservations/:id (admin).
func (h *SlotHandler) Unreserve(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	sl, err := h.Reservations.Unreserve(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, slotToResp(sl))
}

// Reservation handles GET /v1/reservations/:id (admin).
func (h *SlotHandler) Reservation(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	view, err := h.Reservations.Get(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reservation_id": view.Reservation.ID,
		"reserved_by":    view.Reservation.ReservedBy,
		"date":           view.Reservation.Date,
		"slot":           slotToResp(view.Slot),
	})
}

// ReservationList handles GET /v1/reservations (admin).
func (h *SlotHandler) ReservationList(c echo.Context) error {
	views, err := h.Reservations.List(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	out := make([]echo.Map, 0, len(views))
	for _, v := range views {
		out = append(out, echo.Map{
			"reservation_id": v.Reservation.ID,
			"reserved_by":    v.Reservation.ReservedBy,
			"date":           v.Reservation.Date,
			"slot":           slotToResp(v.Slot),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": out})
}
