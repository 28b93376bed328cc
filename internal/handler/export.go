package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hostel-residence/internal/export"
	"github.com/iliyamo/hostel-residence/internal/ledger"
	"github.com/iliyamo/hostel-residence/internal/model"
	"github.com/iliyamo/hostel-residence/internal/policy"
	"github.com/iliyamo/hostel-residence/internal/repository"
)

// ExportHandler streams xlsx reports to admins.
type ExportHandler struct {
	Base
	Rooms       *repository.RoomRepo
	Users       *repository.UserRepo
	Allocations *repository.AllocationRepo
	Payments    *repository.PaymentRepo
}

func NewExportHandler(b Base, rooms *repository.RoomRepo, users *repository.UserRepo,
	allocs *repository.AllocationRepo, payments *repository.PaymentRepo) *ExportHandler {
	return &ExportHandler{Base: b, Rooms: rooms, Users: users, Allocations: allocs, Payments: payments}
}

// collect pages through fetch until a short page is returned.
func collect[T any](ctx context.Context, fetch func(context.Context, repository.Page) ([]T, error)) ([]T, error) {
	var out []T
	for p := (repository.Page{Page: 1, Size: repository.MaxPageSize}); ; p.Page++ {
		items, err := fetch(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
		if len(items) < p.Size {
			return out, nil
		}
	}
}

// Export renders /export/:kind for rooms, students or payments.
func (h *ExportHandler) Export(c echo.Context) error {
	// Only admins manage rooms, so this limits exports to admins.
	if _, err := manage(c, policy.Rooms); err != nil {
		return h.fail(c, err)
	}
	kind := c.Param("kind")
	ctx, cancel := context.WithTimeout(c.Request().Context(), 4*dbTimeout)
	defer cancel()
	today := ledger.Day(h.now())

	var (
		body []byte
		err  error
	)
	switch kind {
	case "rooms":
		var rooms []model.RoomOccupancy
		rooms, err = collect(ctx, func(ctx context.Context, p repository.Page) ([]model.RoomOccupancy, error) {
			return h.Rooms.ListWithOccupancy(ctx, today, repository.RoomFilter{}, p)
		})
		if err == nil {
			body, err = export.Rooms(rooms)
		}
	case "students":
		body, err = h.students(ctx, today)
	case "payments":
		var payments []model.Payment
		payments, err = collect(ctx, func(ctx context.Context, p repository.Page) ([]model.Payment, error) {
			return h.Payments.List(ctx, policy.All, repository.PaymentFilter{}, p)
		})
		if err == nil {
			body, err = export.Payments(payments)
		}
	default:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown export " + kind})
	}
	if err != nil {
		return h.fail(c, err)
	}
	h.audit(c, "export", kind, 0, "xlsx export")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+export.Filename(kind, h.now())+`"`)
	return c.Blob(http.StatusOK, export.ContentType, body)
}

// students joins each student with the room of their allocation covering
// today.
func (h *ExportHandler) students(ctx context.Context, today time.Time) ([]byte, error) {
	users, err := collect(ctx, func(ctx context.Context, p repository.Page) ([]model.User, error) {
		return h.Users.List(ctx, policy.All, repository.UserFilter{Role: model.RoleStudent}, p)
	})
	if err != nil {
		return nil, err
	}
	allocs, err := collect(ctx, func(ctx context.Context, p repository.Page) ([]model.Allocation, error) {
		return h.Allocations.List(ctx, policy.All, repository.AllocationFilter{Status: model.AllocationActive}, p)
	})
	if err != nil {
		return nil, err
	}
	rooms := make(map[uint64]string, len(allocs))
	for _, a := range allocs {
		span, err := ledger.NewSpan(a.StartDate, a.EndDate)
		if err != nil || !span.Contains(today) {
			continue
		}
		rooms[a.UserID] = a.RoomNumber
	}
	rows := make([]export.StudentRow, 0, len(users))
	for _, u := range users {
		rows = append(rows, export.StudentRow{User: u, RoomNumber: rooms[u.ID]})
	}
	return export.Students(rows)
}
