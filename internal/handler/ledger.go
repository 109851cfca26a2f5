package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/aleixpons/padel-club-backend/internal/model"
	"github.com/aleixpons/padel-club-backend/internal/service"
	"github.com/aleixpons/padel-club-backend/internal/store"
	"github.com/aleixpons/padel-club-backend/internal/utils"
)

// LedgerHandler exposes the cash ledger over HTTP.
type LedgerHandler struct {
	Ledger *service.Ledger
}

func NewLedgerHandler(l *service.Ledger) *LedgerHandler { return &LedgerHandler{Ledger: l} }

type recordReq struct {
	Member    string `json:"member"` // id or email
	SlotID    uint64 `json:"slot_id"`
	Amount    string `json:"amount"`
	Label     string `json:"label"`
	Validated bool   `json:"validated"`
}

type batchReq struct {
	Month  int    `json:"month"`
	Year   int    `json:"year"`
	Amount string `json:"amount"`
	Note   string `json:"note"`
}

type entryResp struct {
	ID        uint64 `json:"id"`
	MemberID  uint64 `json:"member_id"`
	SlotID    uint64 `json:"slot_id,omitempty"`
	BatchID   uint64 `json:"batch_id,omitempty"`
	Amount    string `json:"amount"`
	Direction string `json:"direction"`
	Label     string `json:"label"`
	Validated bool   `json:"validated"`
	Date      string `json:"date"`
}

func entryToResp(e model.LedgerEntry) entryResp {
	return entryResp{
		ID:        e.ID,
		MemberID:  e.MemberID,
		SlotID:    e.SlotID,
		BatchID:   e.BatchID,
		Amount:    e.Amount.StringFixed(2),
		Direction: e.Direction(),
		Label:     e.Label,
		Validated: e.Validated,
		Date:      e.Date.Format("02-01-2006 15:04"),
	}
}

// Record handles POST /v1/ledger (admin).
func (h *LedgerHandler) Record(c echo.Context) error {
	var req recordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid amount"})
	}
	e, err := h.Ledger.Record(c.Request().Context(), service.RecordInput{
		MemberRef: req.Member,
		SlotID:    req.SlotID,
		Amount:    amount,
		Label:     req.Label,
		Validated: req.Validated,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, entryToResp(e))
}

// Settle handles POST /v1/ledger/:id/settle (admin).
func (h *LedgerHandler) Settle(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid entry id"})
	}
	e, err := h.Ledger.Settle(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, entryToResp(e))
}

// Retract handles POST /v1/ledger/:id/retract (admin).
func (h *LedgerHandler) Retract(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid entry id"})
	}
	e, err := h.Ledger.Retract(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, entryToResp(e))
}

// Remove handles DELETE /v1/ledger/:id (admin). Validated entries
// need ?force=true; a forced removal leaves the balance as settled.
func (h *LedgerHandler) Remove(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid entry id"})
	}
	force := c.QueryParam("force") == "true"
	if err := h.Ledger.Remove(c.Request().Context(), id, force); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Statement handles GET /v1/ledger/me and GET /v1/ledger/members/:ref
// (admin). Supports from/to date bounds and page/page_size.
func (h *LedgerHandler) Statement(c echo.Context) error {
	ref := c.Param("ref")
	if ref == "" {
		id, err := memberID(c)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		ref = strconv.FormatUint(id, 10)
	}
	var from, to time.Time
	if s := c.QueryParam("from"); s != "" {
		d, err := utils.ParseDate(s)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid from date"})
		}
		from = d
	}
	if s := c.QueryParam("to"); s != "" {
		d, err := utils.ParseDate(s)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid to date"})
		}
		to = utils.EndOfDay(d)
	}
	page := store.Page{Number: queryInt(c, "page", 0), Size: queryInt(c, "page_size", 0)}

	st, err := h.Ledger.ForMember(c.Request().Context(), ref, from, to, page)
	if err != nil {
		return fail(c, err)
	}
	lines := make([]echo.Map, 0, len(st.Lines))
	for _, line := range st.Lines {
		resp := entryToResp(line.Entry)
		resp.Date = utils.FormatDate(line.Date)
		lines = append(lines, echo.Map{"entry": resp, "hour": line.Hour})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"member_id":      st.Member.ID,
		"balance":        st.Balance.StringFixed(2),
		"future_balance": st.FutureBalance.StringFixed(2),
		"total_count":    st.TotalCount,
		"entries":        lines,
	})
}

// All handles GET /v1/ledger (admin): the cross-member view with
// unvalidated entries first. from/to bound the window; absent bounds
// default to the last month.
func (h *LedgerHandler) All(c echo.Context) error {
	var f store.EntryFilter
	f.MemberID = uint64(queryInt(c, "member_id", 0))
	f.SlotID = uint64(queryInt(c, "slot_id", 0))
	if s := c.QueryParam("validated"); s != "" {
		v := s == "true"
		f.Validated = &v
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
		f.DateTo = utils.EndOfDay(d)
	}
	page := store.Page{Number: queryInt(c, "page", 0), Size: queryInt(c, "page_size", 50)}
	entries, total, err := h.Ledger.All(c.Request().Context(), f, page)
	if err != nil {
		return fail(c, err)
	}
	out := make([]entryResp, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryToResp(e))
	}
	return c.JSON(http.StatusOK, echo.Map{"total_count": total, "entries": out})
}

// ApplyBatch handles POST /v1/ledger/batches (admin).
func (h *LedgerHandler) ApplyBatch(c echo.Context) error {
	var req batchReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid amount"})
	}
	b, err := h.Ledger.ApplyMonthlyBatch(c.Request().Context(), req.Month, req.Year, amount, req.Note)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":     b.ID,
		"month":  b.Month,
		"year":   b.Year,
		"amount": b.Amount.StringFixed(2),
		"note":   b.Note,
	})
}

// RemoveBatch handles DELETE /v1/ledger/batches/:id (admin).
func (h *LedgerHandler) RemoveBatch(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid batch id"})
	}
	if err := h.Ledger.RemoveBatch(c.Request().Context(), id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Batches handles GET /v1/ledger/batches (admin).
func (h *LedgerHandler) Batches(c echo.Context) error {
	batches, err := h.Ledger.Batches(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	out := make([]echo.Map, 0, len(batches))
	for _, b := range batches {
		out = append(out, echo.Map{
			"id":     b.ID,
			"month":  b.Month,
			"year":   b.Year,
			"amount": b.Amount.StringFixed(2),
			"note":   b.Note,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"batches": out})
}
