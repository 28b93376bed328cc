package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hostel-residence/internal/ledger"
	"github.com/iliyamo/hostel-residence/internal/model"
	"github.com/iliyamo/hostel-residence/internal/policy"
	"github.com/iliyamo/hostel-residence/internal/repository"
)

// EventHandler serves the events calendar. Staff organize events; any
// caller who can see an event may join or leave it.
type EventHandler struct {
	Base
	Events *repository.EventRepo
}

func NewEventHandler(b Base, r *repository.EventRepo) *EventHandler {
	return &EventHandler{Base: b, Events: r}
}

type eventReq struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=5000"`
	EventType   string     `json:"event_type" validate:"omitempty,oneof=social academic sports cultural other"`
	StartDate   time.Time  `json:"start_date" validate:"required"`
	EndDate     *time.Time `json:"end_date"`
	Location    string     `json:"location" validate:"max=200"`
	IsPublic    *bool      `json:"is_public"`
}

func (req eventReq) toModel(id, organizer uint64) (model.Event, error) {
	if req.EndDate != nil && req.EndDate.Before(req.StartDate) {
		return model.Event{}, ledger.NewValidationError("end_date", "must not be before start_date")
	}
	e := model.Event{
		ID:          id,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		EventType:   req.EventType,
		StartsAt:    req.StartDate.UTC(),
		EndsAt:      req.EndDate,
		Location:    req.Location,
		OrganizerID: organizer,
		IsPublic:    true,
	}
	if e.EventType == "" {
		e.EventType = model.EventOther
	}
	if req.IsPublic != nil {
		e.IsPublic = *req.IsPublic
	}
	return e, nil
}

// List returns events in start order. upcoming=true hides past events.
func (h *EventHandler) List(c echo.Context) error {
	_, scope, err := scope(c, policy.Events)
	if err != nil {
		return h.fail(c, err)
	}
	p, err := page(c)
	if err != nil {
		return h.fail(c, err)
	}
	upcoming, err := queryBool(c, "upcoming")
	if err != nil {
		return h.fail(c, err)
	}
	f := repository.EventFilter{Type: c.QueryParam("event_type")}
	if upcoming != nil && *upcoming {
		f.From = h.now()
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	items, err := h.Events.List(ctx, scope, f, p)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, list(items, p))
}

func (h *EventHandler) Get(c echo.Context) error {
	_, scope, err := scope(c, policy.Events)
	if err != nil {
		return h.fail(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	e, err := h.Events.Get(ctx, scope, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

// Create schedules an event organized by the caller.
func (h *EventHandler) Create(c echo.Context) error {
	a, err := manage(c, policy.Events)
	if err != nil {
		return h.fail(c, err)
	}
	var req eventReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	e, err := req.toModel(0, a.ID)
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Events.Create(ctx, &e); err != nil {
		return h.fail(c, err)
	}
	h.audit(c, "create", "event", e.ID, "Created event "+e.Title)
	return c.JSON(http.StatusCreated, e)
}

func (h *EventHandler) Update(c echo.Context) error {
	a, err := manage(c, policy.Events)
	if err != nil {
		return h.fail(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	var req eventReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	e, err := req.toModel(id, a.ID)
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Events.Update(ctx, &e); err != nil {
		return h.fail(c, err)
	}
	h.audit(c, "update", "event", id, e.Title)
	return c.JSON(http.StatusOK, e)
}

func (h *EventHandler) Delete(c echo.Context) error {
	if _, err := manage(c, policy.Events); err != nil {
		return h.fail(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Events.Delete(ctx, id); err != nil {
		return h.fail(c, err)
	}
	h.audit(c, "delete", "event", id, "event deleted")
	return c.NoContent(http.StatusNoContent)
}

// Join adds the caller to an event's attendees. Joining twice is a no-op.
func (h *EventHandler) Join(c echo.Context) error {
	return h.attend(c, true)
}

// Leave removes the caller from an event's attendees.
func (h *EventHandler) Leave(c echo.Context) error {
	return h.attend(c, false)
}

func (h *EventHandler) attend(c echo.Context, join bool) error {
	a, scope, err := scope(c, policy.Events)
	if err != nil {
		return h.fail(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if _, err := h.Events.Get(ctx, scope, id); err != nil {
		return h.fail(c, err)
	}
	var changed bool
	if join {
		changed, err = h.Events.Join(ctx, id, a.ID)
	} else {
		changed, err = h.Events.Leave(ctx, id, a.ID)
	}
	if err != nil {
		return h.fail(c, err)
	}
	msg := "Successfully joined event"
	switch {
	case join && !changed:
		msg = "Already attending this event"
	case !join && changed:
		msg = "Successfully left event"
	case !join:
		msg = "Not attending this event"
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg})
}
