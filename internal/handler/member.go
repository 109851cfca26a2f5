package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/aleixpons/padel-club-backend/internal/model"
	"github.com/aleixpons/padel-club-backend/internal/service"
)

// MemberHandler exposes the member directory and club administration.
type MemberHandler struct {
	Members *service.Members
	Clubs   *service.Clubs
}

func NewMemberHandler(members *service.Members, clubs *service.Clubs) *MemberHandler {
	return &MemberHandler{Members: members, Clubs: clubs}
}

type memberReq struct {
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

type memberResp struct {
	ID            uint64   `json:"id"`
	Name          string   `json:"name"`
	Surname       string   `json:"surname"`
	Phone         string   `json:"phone,omitempty"`
	Email         string   `json:"email"`
	Role          string   `json:"role"`
	Balance       string   `json:"balance"`
	FutureBalance string   `json:"future_balance"`
	DraftEntries  int      `json:"draft_entries"`
	ClubIDs       []uint64 `json:"club_ids"`
}

func memberViewResp(v service.MemberView) memberResp {
	return memberResp{
		ID:            v.Member.ID,
		Name:          v.Member.Name,
		Surname:       v.Member.Surname,
		Phone:         v.Member.Phone,
		Email:         v.Member.Email,
		Role:          string(v.Member.Role),
		Balance:       v.Member.Balance.StringFixed(2),
		FutureBalance: v.FutureBalance.StringFixed(2),
		DraftEntries:  v.DraftEntries,
		ClubIDs:       v.Member.ClubIDs,
	}
}

// Create handles POST /v1/members (admin).
func (h *MemberHandler) Create(c echo.Context) error {
	var req memberReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	m, err := h.Members.Create(c.Request().Context(), service.MemberInput{
		Name:     req.Name,
		Surname:  req.Surname,
		Phone:    req.Phone,
		Email:    req.Email,
		Role:     model.Role(req.Role),
		Password: req.Password,
	})
	if err != nil {
		return fail(c, err)
	}
	v, err := h.Members.Get(c.Request().Context(), strconv.FormatUint(m.ID, 10))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, memberViewResp(v))
}

// Update handles PUT /v1/members/:id (admin).
func (h *MemberHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid member id"})
	}
	var req memberReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if _, err := h.Members.Update(c.Request().Context(), id, service.MemberInput{
		Name:     req.Name,
		Surname:  req.Surname,
		Phone:    req.Phone,
		Email:    req.Email,
		Role:     model.Role(req.Role),
		Password: req.Password,
	}); err != nil {
		return fail(c, err)
	}
	v, err := h.Members.Get(c.Request().Context(), strconv.FormatUint(id, 10))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, memberViewResp(v))
}

// Get handles GET /v1/members/:id, where the parameter is a numeric
// id or an email.
func (h *MemberHandler) Get(c echo.Context) error {
	v, err := h.Members.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, memberViewResp(v))
}

// List handles GET /v1/members (admin).
func (h *MemberHandler) List(c echo.Context) error {
	views, err := h.Members.List(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	out := make([]memberResp, 0, len(views))
	for _, v := range views {
		out = append(out, memberViewResp(v))
	}
	return c.JSON(http.StatusOK, echo.Map{"members": out})
}

// Remove handles DELETE /v1/members/:id (admin).
func (h *MemberHandler) Remove(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid member id"})
	}
	if err := h.Members.Remove(c.Request().Context(), id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type clubReq struct {
	Name string `json:"name"`
}

// CreateClub handles POST /v1/clubs (admin).
func (h *MemberHandler) CreateClub(c echo.Context) error {
	var req clubReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	club, err := h.Clubs.Create(c.Request().Context(), req.Name)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": club.ID, "name": club.Name, "member_ids": club.MemberIDs})
}

// ListClubs handles GET /v1/clubs.
func (h *MemberHandler) ListClubs(c echo.Context) error {
	clubs, err := h.Clubs.List(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	out := make([]echo.Map, 0, len(clubs))
	for _, club := range clubs {
		out = append(out, echo.Map{"id": club.ID, "name": club.Name, "member_ids": club.MemberIDs})
	}
	return c.JSON(http.StatusOK, echo.Map{"clubs": out})
}

type hourRateReq struct {
	Label string `json:"label"`
	Price string `json:"price"`
}

// SetHourRate handles PUT /v1/hours (admin).
func (h *MemberHandler) SetHourRate(c echo.Context) error {
	var req hourRateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid price"})
	}
	rate, err := h.Clubs.SetHourRate(c.Request().Context(), req.Label, price)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"label": rate.Label, "price": rate.Price.StringFixed(2)})
}
