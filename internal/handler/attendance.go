package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hostel-residence/internal/ledger"
	"github.com/iliyamo/hostel-residence/internal/model"
	"github.com/iliyamo/hostel-residence/internal/policy"
	"github.com/iliyamo/hostel-residence/internal/repository"
)

// AttendanceHandler serves daily presence marks.
type AttendanceHandler struct {
	Base
	Attendance *repository.AttendanceRepo
}

func NewAttendanceHandler(b Base, r *repository.AttendanceRepo) *AttendanceHandler {
	return &AttendanceHandler{Base: b, Attendance: r}
}

type attendanceView struct {
	ID       uint64    `json:"id"`
	UserID   uint64    `json:"user_id"`
	Date     string    `json:"date"`
	Present  bool      `json:"present"`
	MarkedAt time.Time `json:"marked_at"`
}

func newAttendanceView(a model.Attendance) attendanceView {
	return attendanceView{ID: a.ID, UserID: a.UserID, Date: a.Date.UTC().Format(ledger.DateLayout), Present: a.Present, MarkedAt: a.MarkedAt}
}

type upsertAttendanceReq struct {
	UserID  uint64 `json:"user_id" validate:"required"`
	Date    string `json:"date" validate:"required,datetime=2006-01-02"`
	Present *bool  `json:"present" validate:"required"`
}

// Mark records the caller as present today. Repeating the call returns the
// existing mark with 200 instead of 201.
func (h *AttendanceHandler) Mark(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	if !policy.CanCreateOwn(a, policy.Attendance) {
		return h.fail(c, policy.ErrDenied)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	mark, created, err := h.Attendance.MarkPresent(ctx, a.ID, ledger.Day(h.now()))
	if err != nil {
		return h.fail(c, err)
	}
	if !created {
		return c.JSON(http.StatusOK, newAttendanceView(mark))
	}
	h.audit(c, "create", "attendance", mark.ID, "self marked present")
	return c.JSON(http.StatusCreated, newAttendanceView(mark))
}

// Upsert lets staff set any user's mark for a date.
func (h *AttendanceHandler) Upsert(c echo.Context) error {
	if _, err := manage(c, policy.Attendance); err != nil {
		return h.fail(c, err)
	}
	var req upsertAttendanceReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	day, err := parseDay("date", req.Date)
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	mark, err := h.Attendance.Upsert(ctx, req.UserID, day, *req.Present)
	if err != nil {
		return h.fail(c, err)
	}
	h.audit(c, "update", "attendance", mark.ID, "attendance set for "+req.Date)
	return c.JSON(http.StatusOK, newAttendanceView(mark))
}

func (h *AttendanceHandler) filter(c echo.Context) (repository.AttendanceFilter, error) {
	var (
		f   repository.AttendanceFilter
		err error
	)
	if f.UserID, err = queryUint(c, "user_id"); err != nil {
		return f, err
	}
	if f.From, err = queryDate(c, "from"); err != nil {
		return f, err
	}
	if f.To, err = queryDate(c, "to"); err != nil {
		return f, err
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return f, ledger.NewValidationError("to", "must be on or after from")
	}
	return f, nil
}

// List returns marks under the caller's scope.
func (h *AttendanceHandler) List(c echo.Context) error {
	_, scope, err := scope(c, policy.Attendance)
	if err != nil {
		return h.fail(c, err)
	}
	f, err := h.filter(c)
	if err != nil {
		return h.fail(c, err)
	}
	p, err := page(c)
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	marks, err := h.Attendance.List(ctx, scope, f, p)
	if err != nil {
		return h.fail(c, err)
	}
	views := make([]attendanceView, 0, len(marks))
	for _, m := range marks {
		views = append(views, newAttendanceView(m))
	}
	return c.JSON(http.StatusOK, list(views, p))
}

// Stats returns total, present, absent and percentage for the window.
func (h *AttendanceHandler) Stats(c echo.Context) error {
	_, scope, err := scope(c, policy.Attendance)
	if err != nil {
		return h.fail(c, err)
	}
	f, err := h.filter(c)
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	st, err := h.Attendance.Stats(ctx, scope, f)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, st)
}
