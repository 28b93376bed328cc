package handler // handler defines http handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/hostel-residence/internal/ledger"
	"github.com/iliyamo/hostel-residence/internal/middleware"
	"github.com/iliyamo/hostel-residence/internal/model"
	"github.com/iliyamo/hostel-residence/internal/policy"
	"github.com/iliyamo/hostel-residence/internal/queue"
	"github.com/iliyamo/hostel-residence/internal/repository"
	"github.com/iliyamo/hostel-residence/internal/service"
)

// dbTimeout bounds the database work of one request.
const dbTimeout = 5 * time.Second

// Auditor records write operations.
type Auditor interface {
	Record(ctx context.Context, e model.AuditLog) error
}

// Publisher sends a message to a broker queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, v any) error
}

// NotificationStore persists notifications before they are queued.
type NotificationStore interface {
	Create(ctx context.Context, userID uint64, subject, message string) (uint64, error)
}

// Base bundles the collaborators every handler shares.
type Base struct {
	Log    *zap.Logger
	Audit  Auditor
	Events Publisher
	Notes  NotificationStore
	Now    func() time.Time
}

// NewBase returns a Base. events and notes may be nil.
func NewBase(log *zap.Logger, audit Auditor, events Publisher, notes NotificationStore) Base {
	if log == nil {
		log = zap.NewNop()
	}
	return Base{Log: log, Audit: audit, Events: events, Notes: notes, Now: time.Now}
}

func (b *Base) now() time.Time {
	if b.Now == nil {
		return time.Now().UTC()
	}
	return b.Now().UTC()
}

func (b *Base) logger() *zap.Logger {
	if b.Log == nil {
		return zap.NewNop()
	}
	return b.Log
}

// audit records a write. Failures are logged and never fail the request.
func (b *Base) audit(c echo.Context, action, modelName string, objectID uint64, desc string) {
	if b.Audit == nil {
		return
	}
	e := model.AuditLog{
		Action:      action,
		ModelName:   modelName,
		Description: desc,
		IPAddress:   c.RealIP(),
		UserAgent:   c.Request().UserAgent(),
	}
	if a, ok := middleware.ActorFrom(c); ok {
		id := a.ID
		e.UserID = &id
	}
	if objectID != 0 {
		e.ObjectID = &objectID
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), dbTimeout)
	defer cancel()
	if err := b.Audit.Record(ctx, e); err != nil {
		b.logger().Warn("audit record failed",
			zap.String("action", action), zap.String("model", modelName), zap.Error(err))
	}
}

// publish sends an event. A disabled or unreachable broker is logged only.
func (b *Base) publish(ctx context.Context, q string, v any) {
	if b.Events == nil {
		return
	}
	if err := b.Events.Publish(ctx, q, v); err != nil {
		if errors.Is(err, service.ErrPublisherDisabled) {
			return
		}
		b.logger().Warn("publish failed", zap.String("queue", q), zap.Error(err))
	}
}

// notify stores a notification for userID and queues it for delivery.
func (b *Base) notify(c echo.Context, userID uint64, subject, message string) {
	if b.Notes == nil || userID == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), dbTimeout)
	defer cancel()
	id, err := b.Notes.Create(ctx, userID, subject, message)
	if err != nil {
		b.logger().Warn("notification create failed", zap.Uint64("user_id", userID), zap.Error(err))
		return
	}
	b.publish(ctx, queue.NotificationsQueue, queue.NotificationEvent{
		NotificationID: id,
		UserID:         userID,
		Subject:        subject,
		Message:        message,
		CreatedAt:      b.now(),
	})
}

// fail writes the response for err. Domain errors map to 4xx; anything
// else is logged and reported as 500 without detail.
func (b *Base) fail(c echo.Context, err error) error {
	var verr *ledger.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": verr.Fields})
	case errors.Is(err, ledger.ErrCapacityExceeded):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error(), "code": "capacity_exceeded"})
	case errors.Is(err, ledger.ErrOccupantAlreadyAllocated):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error(), "code": "occupant_already_allocated"})
	case errors.Is(err, ledger.ErrDuplicateAllocation):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error(), "code": "duplicate_allocation"})
	case errors.Is(err, ledger.ErrAllocationNotActive):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error(), "code": "allocation_not_active"})
	case ledger.IsNotFound(err):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, sql.ErrNoRows):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, policy.ErrDenied), errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	case errors.Is(err, repository.ErrDuplicate):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already exists"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict with current state"})
	}
	b.logger().Error("request failed",
		zap.String("request_id", middleware.RequestIDFrom(c)),
		zap.String("route", c.Path()),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// actor returns the authenticated caller or ErrDenied.
func actor(c echo.Context) (policy.Actor, error) {
	a, ok := middleware.ActorFrom(c)
	if !ok {
		return policy.Actor{}, policy.ErrDenied
	}
	return a, nil
}

// scope resolves the caller and the row predicate for r in one step.
func scope(c echo.Context, r policy.Resource) (policy.Actor, policy.Predicate, error) {
	a, err := actor(c)
	if err != nil {
		return a, policy.Predicate{}, err
	}
	p, err := policy.Scope(a, r)
	return a, p, err
}

// manage checks that the caller may perform staff writes on r.
func manage(c echo.Context, r policy.Resource) (policy.Actor, error) {
	a, err := actor(c)
	if err != nil {
		return a, err
	}
	if !policy.CanManage(a, r) {
		return a, policy.ErrDenied
	}
	return a, nil
}

func dbCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// bind decodes the body into req and runs struct validation.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return ledger.NewValidationError("body", "invalid JSON body")
	}
	return c.Validate(req)
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, ledger.NewValidationError(name, "must be a positive integer")
	}
	return id, nil
}

// queryUint reads an optional unsigned query parameter.
func queryUint(c echo.Context, name string) (uint64, error) {
	s := strings.TrimSpace(c.QueryParam(name))
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, ledger.NewValidationError(name, "must be a non-negative integer")
	}
	return n, nil
}

// queryDate reads an optional YYYY-MM-DD query parameter.
func queryDate(c echo.Context, name string) (*time.Time, error) {
	d, err := ledger.ParseOptionalDate(strings.TrimSpace(c.QueryParam(name)))
	if err != nil {
		return nil, ledger.NewValidationError(name, "must be a date (YYYY-MM-DD)")
	}
	return d, nil
}

// queryBool reads an optional true/false query parameter.
func queryBool(c echo.Context, name string) (*bool, error) {
	s := strings.TrimSpace(c.QueryParam(name))
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, ledger.NewValidationError(name, "must be true or false")
	}
	return &v, nil
}

// page reads page and page_size. Bounds are applied by the repository.
func page(c echo.Context) (repository.Page, error) {
	var p repository.Page
	verr := &ledger.ValidationError{}
	if s := c.QueryParam("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			verr.Add("page", "must be a positive integer")
		}
		p.Page = n
	}
	if s := c.QueryParam("page_size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			verr.Add("page_size", "must be a positive integer")
		}
		p.Size = n
	}
	return p.Normalize(), verr.OrNil()
}

// list wraps a page of results in the standard envelope.
func list[T any](items []T, p repository.Page) echo.Map {
	if items == nil {
		items = []T{}
	}
	return echo.Map{"items": items, "page": p.Page, "page_size": p.Size}
}

// parseDay parses a required YYYY-MM-DD field; empty strings were already
// rejected by the validator.
func parseDay(field, s string) (time.Time, error) {
	d, err := ledger.ParseDate(s)
	if err != nil {
		return time.Time{}, ledger.NewValidationError(field, "must be a date (YYYY-MM-DD)")
	}
	return d, nil
}

// formatDay renders a calendar date on the wire.
func formatDay(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(ledger.DateLayout)
	return &s
}
