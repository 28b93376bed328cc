package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/hostel-residence/internal/ledger"
	"github.com/iliyamo/hostel-residence/internal/model"
	"github.com/iliyamo/hostel-residence/internal/policy"
	"github.com/iliyamo/hostel-residence/internal/repository"
)

// RoomHandler serves the room inventory and its derived availability.
type RoomHandler struct {
	Base
	Rooms  *repository.RoomRepo
	Ledger *ledger.Ledger
}

func NewRoomHandler(b Base, rooms *repository.RoomRepo, l *ledger.Ledger) *RoomHandler {
	return &RoomHandler{Base: b, Rooms: rooms, Ledger: l}
}

type roomReq struct {
	Number      string          `json:"number" validate:"required,max=20"`
	Capacity    int             `json:"capacity" validate:"required,gte=1"`
	Floor       int             `json:"floor" validate:"gte=0"`
	RoomType    string          `json:"room_type" validate:"required,oneof=single double triple quad"`
	Status      string          `json:"status" validate:"omitempty,oneof=available occupied maintenance"`
	MonthlyRent decimal.Decimal `json:"monthly_rent"`
	Amenities   string          `json:"amenities" validate:"max=1000"`
	Description string          `json:"description" validate:"max=2000"`
}

type roomStatusReq struct {
	Status string `json:"status" validate:"required,oneof=available occupied maintenance"`
}

func (req roomReq) toModel(id uint64) (model.Room, error) {
	if req.MonthlyRent.IsNegative() {
		return model.Room{}, ledger.NewValidationError("monthly_rent", "must not be negative")
	}
	status := req.Status
	if status == "" {
		status = model.RoomStatusAvailable
	}
	return model.Room{
		ID:          id,
		Number:      strings.TrimSpace(req.Number),
		Capacity:    req.Capacity,
		Floor:       req.Floor,
		RoomType:    req.RoomType,
		Status:      status,
		MonthlyRent: req.MonthlyRent,
		Amenities:   req.Amenities,
		Description: req.Description,
	}, nil
}

// List returns rooms with occupancy as of today, filtered by status,
// room_type and floor.
func (h *RoomHandler) List(c echo.Context) error {
	return h.list(c, false)
}

// Available lists rooms whose derived occupancy today is below capacity.
func (h *RoomHandler) Available(c echo.Context) error {
	return h.list(c, true)
}

func (h *RoomHandler) list(c echo.Context, onlyAvailable bool) error {
	if _, _, err := scope(c, policy.Rooms); err != nil {
		return h.fail(c, err)
	}
	p, err := page(c)
	if err != nil {
		return h.fail(c, err)
	}
	f := repository.RoomFilter{
		Status:        c.QueryParam("status"),
		RoomType:      c.QueryParam("room_type"),
		OnlyAvailable: onlyAvailable,
	}
	if s := c.QueryParam("floor"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return h.fail(c, ledger.NewValidationError("floor", "must be a non-negative integer"))
		}
		f.Floor = &n
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	rooms, err := h.Rooms.ListWithOccupancy(ctx, h.Ledger.Today(), f, p)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, list(rooms, p))
}

// Get returns a room with current_occupancy and is_available for today.
func (h *RoomHandler) Get(c echo.Context) error {
	if _, _, err := scope(c, policy.Rooms); err != nil {
		return h.fail(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	st, err := h.Ledger.RoomStatus(ctx, id, h.Ledger.Today())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// Availability evaluates the room on ?as_of=YYYY-MM-DD, today when absent.
func (h *RoomHandler) Availability(c echo.Context) error {
	if _, _, err := scope(c, policy.RoomStatus); err != nil {
		return h.fail(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	asOf, err := queryDate(c, "as_of")
	if err != nil {
		return h.fail(c, err)
	}
	day := h.Ledger.Today()
	if asOf != nil {
		day = *asOf
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	st, err := h.Ledger.RoomStatus(ctx, id, day)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"room_id":           st.ID,
		"as_of":             day.Format(ledger.DateLayout),
		"capacity":          st.Capacity,
		"current_occupancy": st.CurrentOccupancy,
		"is_available":      st.IsAvailable,
		"status":            st.Status,
	})
}

// ActiveAllocations lists the room's open-ended active allocations.
func (h *RoomHandler) ActiveAllocations(c echo.Context) error {
	if _, err := manage(c, policy.Allocations); err != nil {
		return h.fail(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	allocs, err := h.Ledger.ListActive(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": allocationViews(allocs)})
}

// Stats summarizes the inventory with today's derived occupancy.
func (h *RoomHandler) Stats(c echo.Context) error {
	if _, _, err := scope(c, policy.Rooms); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	st, err := h.Rooms.Stats(ctx, h.Ledger.Today())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// Create adds a room (admin).
func (h *RoomHandler) Create(c echo.Context) error {
	if _, err := manage(c, policy.Rooms); err != nil {
		return h.fail(c, err)
	}
	var req roomReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	m, err := req.toModel(0)
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Rooms.Create(ctx, &m); err != nil {
		return h.fail(c, err)
	}
	h.audit(c, "create", "room", m.ID, "room "+m.Number+" created")
	return c.JSON(http.StatusCreated, model.RoomOccupancy{Room: m, IsAvailable: m.Capacity > 0})
}

// Update overwrites a room's attributes (admin).
func (h *RoomHandler) Update(c echo.Context) error {
	if _, err := manage(c, policy.Rooms); err != nil {
		return h.fail(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	var req roomReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	m, err := req.toModel(id)
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Rooms.Update(ctx, &m); err != nil {
		return h.fail(c, err)
	}
	h.audit(c, "update", "room", id, "room "+m.Number+" updated")
	st, err := h.Ledger.RoomStatus(ctx, id, h.Ledger.Today())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// SetStatus changes the manual status flag only (admin, warden).
func (h *RoomHandler) SetStatus(c echo.Context) error {
	if _, err := manage(c, policy.RoomStatus); err != nil {
		return h.fail(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	var req roomStatusReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Rooms.SetStatus(ctx, id, req.Status); err != nil {
		return h.fail(c, err)
	}
	h.audit(c, "update", "room", id, "status set to "+req.Status)
	return c.JSON(http.StatusOK, echo.Map{"id": id, "status": req.Status})
}

// Delete removes a room that has never been allocated (admin).
func (h *RoomHandler) Delete(c echo.Context) error {
	if _, err := manage(c, policy.Rooms); err != nil {
		return h.fail(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Rooms.Delete(ctx, id); err != nil {
		return h.fail(c, err)
	}
	h.audit(c, "delete", "room", id, "room deleted")
	return c.NoContent(http.StatusNoContent)
}
