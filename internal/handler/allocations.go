package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/hostel-residence/internal/ledger"
	"github.com/iliyamo/hostel-residence/internal/model"
	"github.com/iliyamo/hostel-residence/internal/policy"
	"github.com/iliyamo/hostel-residence/internal/queue"
	"github.com/iliyamo/hostel-residence/internal/repository"
)

// AllocationHandler serves the allocation ledger over HTTP.
type AllocationHandler struct {
	Base
	Ledger      *ledger.Ledger
	Allocations *repository.AllocationRepo
}

func NewAllocationHandler(b Base, l *ledger.Ledger, allocs *repository.AllocationRepo) *AllocationHandler {
	return &AllocationHandler{Base: b, Ledger: l, Allocations: allocs}
}

// allocationView renders dates as YYYY-MM-DD.
type allocationView struct {
	ID              uint64          `json:"id"`
	UserID          uint64          `json:"user_id"`
	RoomID          uint64          `json:"room_id"`
	RoomNumber      string          `json:"room_number,omitempty"`
	StartDate       string          `json:"start_date"`
	EndDate         *string         `json:"end_date"`
	Status          string          `json:"status"`
	MonthlyRent     decimal.Decimal `json:"monthly_rent"`
	SecurityDeposit decimal.Decimal `json:"security_deposit"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func newAllocationView(a model.Allocation) allocationView {
	return allocationView{
		ID:              a.ID,
		UserID:          a.UserID,
		RoomID:          a.RoomID,
		RoomNumber:      a.RoomNumber,
		StartDate:       a.StartDate.UTC().Format(ledger.DateLayout),
		EndDate:         formatDay(a.EndDate),
		Status:          a.Status,
		MonthlyRent:     a.MonthlyRent,
		SecurityDeposit: a.SecurityDeposit,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func allocationViews(in []model.Allocation) []allocationView {
	out := make([]allocationView, 0, len(in))
	for _, a := range in {
		out = append(out, newAllocationView(a))
	}
	return out
}

type createAllocationReq struct {
	UserID          uint64           `json:"user_id" validate:"required"`
	RoomID          uint64           `json:"room_id" validate:"required"`
	StartDate       string           `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate         *string          `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	MonthlyRent     *decimal.Decimal `json:"monthly_rent"`
	SecurityDeposit *decimal.Decimal `json:"security_deposit"`
}

type terminateReq struct {
	EndDate string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Status  string `json:"status" validate:"omitempty,oneof=inactive terminated"`
}

// Create records a move-in. Capacity and double-booking are enforced by
// the ledger inside one transaction.
func (h *AllocationHandler) Create(c echo.Context) error {
	a, err := manage(c, policy.Allocations)
	if err != nil {
		return h.fail(c, err)
	}
	var req createAllocationReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	start, err := parseDay("start_date", req.StartDate)
	if err != nil {
		return h.fail(c, err)
	}
	var end *time.Time
	if req.EndDate != nil {
		d, err := parseDay("end_date", *req.EndDate)
		if err != nil {
			return h.fail(c, err)
		}
		end = &d
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	alloc, err := h.Ledger.Create(ctx, ledger.CreateRequest{
		OccupantID:      req.UserID,
		RoomID:          req.RoomID,
		StartDate:       start,
		EndDate:         end,
		MonthlyRent:     req.MonthlyRent,
		SecurityDeposit: req.SecurityDeposit,
	})
	if err != nil {
		return h.fail(c, err)
	}

	h.audit(c, "create", "room_allocation", alloc.ID,
		fmt.Sprintf("user %d allocated to room %s", alloc.UserID, alloc.RoomNumber))
	h.publish(ctx, queue.AllocationsQueue, h.event(queue.AllocationCreated, alloc, a.ID))
	h.notify(c, alloc.UserID, "Room allocated",
		fmt.Sprintf("You have been allocated room %s from %s.", alloc.RoomNumber, alloc.StartDate.Format(ledger.DateLayout)))
	return c.JSON(http.StatusCreated, newAllocationView(alloc))
}

// Terminate closes an active allocation.
func (h *AllocationHandler) Terminate(c echo.Context) error {
	a, err := manage(c, policy.Allocations)
	if err != nil {
		return h.fail(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	var req terminateReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	end, err := parseDay("end_date", req.EndDate)
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	alloc, err := h.Ledger.Terminate(ctx, id, end, req.Status)
	if err != nil {
		return h.fail(c, err)
	}

	h.audit(c, "terminate", "room_allocation", alloc.ID,
		fmt.Sprintf("allocation ended %s as %s", end.Format(ledger.DateLayout), alloc.Status))
	h.publish(ctx, queue.AllocationsQueue, h.event(queue.AllocationTerminated, alloc, a.ID))
	h.notify(c, alloc.UserID, "Room allocation ended",
		fmt.Sprintf("Your room allocation ends on %s.", end.Format(ledger.DateLayout)))
	return c.JSON(http.StatusOK, newAllocationView(alloc))
}

func (h *AllocationHandler) event(kind string, a model.Allocation, actorID uint64) queue.AllocationEvent {
	ev := queue.AllocationEvent{
		Event:        kind,
		AllocationID: a.ID,
		UserID:       a.UserID,
		RoomID:       a.RoomID,
		RoomNumber:   a.RoomNumber,
		StartDate:    a.StartDate.Format(ledger.DateLayout),
		Status:       a.Status,
		MonthlyRent:  a.MonthlyRent.StringFixed(2),
		ActorID:      actorID,
		OccurredAt:   h.now(),
	}
	if a.EndDate != nil {
		ev.EndDate = a.EndDate.Format(ledger.DateLayout)
	}
	return ev
}

// List returns allocations under the caller's scope filtered by
// status, room_id and user_id.
func (h *AllocationHandler) List(c echo.Context) error {
	_, scope, err := scope(c, policy.Allocations)
	if err != nil {
		return h.fail(c, err)
	}
	p, err := page(c)
	if err != nil {
		return h.fail(c, err)
	}
	f := repository.AllocationFilter{Status: c.QueryParam("status"), AsOf: h.Ledger.Today()}
	if f.Status != "" && f.Status != model.AllocationActive && f.Status != model.AllocationInactive && f.Status != model.AllocationTerminated {
		return h.fail(c, ledger.NewValidationError("status", "must be one of: active, inactive, terminated"))
	}
	if f.RoomID, err = queryUint(c, "room_id"); err != nil {
		return h.fail(c, err)
	}
	if f.UserID, err = queryUint(c, "user_id"); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	allocs, err := h.Allocations.List(ctx, scope, f, p)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, list(allocationViews(allocs), p))
}

// Get returns one allocation under the caller's scope.
func (h *AllocationHandler) Get(c echo.Context) error {
	_, scope, err := scope(c, policy.Allocations)
	if err != nil {
		return h.fail(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	alloc, err := h.Allocations.Get(ctx, scope, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, newAllocationView(alloc))
}

// Quote prices a stay in a room at its current monthly rent. Without
// end_date the flat monthly rent is returned.
func (h *AllocationHandler) Quote(c echo.Context) error {
	if _, _, err := scope(c, policy.Rooms); err != nil {
		return h.fail(c, err)
	}
	roomID, err := queryUint(c, "room_id")
	if err != nil {
		return h.fail(c, err)
	}
	start, err := queryDate(c, "start_date")
	if err != nil {
		return h.fail(c, err)
	}
	end, err := queryDate(c, "end_date")
	if err != nil {
		return h.fail(c, err)
	}
	verr := &ledger.ValidationError{}
	if roomID == 0 {
		verr.Add("room_id", "is required")
	}
	if start == nil {
		verr.Add("start_date", "is required")
	}
	if err := verr.OrNil(); err != nil {
		return h.fail(c, err)
	}
	span, err := ledger.NewSpan(*start, end)
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	amount, err := h.Ledger.Quote(ctx, roomID, *start, end)
	if err != nil {
		return h.fail(c, err)
	}
	resp := echo.Map{
		"room_id":    roomID,
		"start_date": start.Format(ledger.DateLayout),
		"end_date":   formatDay(end),
		"amount":     amount,
		"rounded":    amount.Round(2),
	}
	if end != nil {
		resp["days"] = span.Days()
	}
	return c.JSON(http.StatusOK, resp)
}
