package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/hostel-residence/internal/config"
	"github.com/iliyamo/hostel-residence/internal/ledger"
	"github.com/iliyamo/hostel-residence/internal/middleware"
	"github.com/iliyamo/hostel-residence/internal/model"
	"github.com/iliyamo/hostel-residence/internal/queue"
	"github.com/iliyamo/hostel-residence/internal/repository"
	"github.com/iliyamo/hostel-residence/internal/utils"
)

const testSecret = "handler-secret"

type recorder struct {
	mu     sync.Mutex
	audits []model.AuditLog
	events []string
	notes  []uint64
}

func (r *recorder) Record(_ context.Context, e model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audits = append(r.audits, e)
	return nil
}

func (r *recorder) Publish(_ context.Context, q string, v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ev, ok := v.(queue.AllocationEvent); ok {
		r.events = append(r.events, q+":"+ev.Event)
		return nil
	}
	r.events = append(r.events, q)
	return nil
}

func (r *recorder) Create(_ context.Context, userID uint64, _, _ string) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, userID)
	return uint64(len(r.notes)), nil
}

type env struct {
	e     *echo.Echo
	rec   *recorder
	store *ledger.MemoryStore
}

func newEnv(t *testing.T) env {
	t.Helper()
	store := ledger.NewMemoryStore()
	store.PutRoom(model.Room{ID: 1, Number: "101", Capacity: 1, Status: model.RoomStatusAvailable, MonthlyRent: decimal.RequireFromString("1200.00")})
	store.PutRoom(model.Room{ID: 2, Number: "102", Capacity: 2, Status: model.RoomStatusAvailable, MonthlyRent: decimal.RequireFromString("900.00")})
	for id := uint64(1); id <= 3; id++ {
		store.PutOccupant(id, true)
	}
	clock := func() time.Time { return time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC) }
	l := ledger.New(store, zap.NewNop()).WithClock(clock)

	rec := &recorder{}
	base := NewBase(zap.NewNop(), rec, rec, rec)
	base.Now = clock
	allocs := NewAllocationHandler(base, l, nil)
	rooms := NewRoomHandler(base, nil, l)

	e := echo.New()
	e.Validator = NewValidator()
	e.GET("/healthz", Health)
	g := e.Group("/v1", middleware.JWTAuth(testSecret))
	g.POST("/allocations", allocs.Create)
	g.POST("/allocations/:id/terminate", allocs.Terminate)
	g.GET("/rent/quote", allocs.Quote)
	g.GET("/rooms/:id", rooms.Get)
	g.GET("/rooms/:id/availability", rooms.Availability)
	g.GET("/rooms/:id/allocations/active", rooms.ActiveAllocations)
	return env{e: e, rec: rec, store: store}
}

func token(t *testing.T, id uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, id, role, 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func (v env) do(method, path, auth, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rr := httptest.NewRecorder()
	v.e.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &m), rr.Body.String())
	return m
}

func TestCreateAllocation(t *testing.T) {
	v := newEnv(t)
	warden := token(t, 9, model.RoleWarden)

	rr := v.do(http.MethodPost, "/v1/allocations", warden, `{"user_id":1,"room_id":1,"start_date":"2024-01-01"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	body := decode(t, rr)
	assert.Equal(t, "2024-01-01", body["start_date"])
	assert.Nil(t, body["end_date"])
	assert.Equal(t, model.AllocationActive, body["status"])
	assert.Equal(t, "2400", body["security_deposit"])

	assert.Len(t, v.rec.audits, 1)
	assert.Equal(t, "room_allocation", v.rec.audits[0].ModelName)
	require.NotNil(t, v.rec.audits[0].UserID)
	assert.Equal(t, uint64(9), *v.rec.audits[0].UserID)
	assert.Contains(t, v.rec.events, queue.AllocationsQueue+":"+queue.AllocationCreated)
	assert.Equal(t, []uint64{1}, v.rec.notes)
}

func TestCreateAllocationConflicts(t *testing.T) {
	v := newEnv(t)
	admin := token(t, 9, model.RoleAdmin)

	rr := v.do(http.MethodPost, "/v1/allocations", admin, `{"user_id":1,"room_id":1,"start_date":"2024-01-01"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = v.do(http.MethodPost, "/v1/allocations", admin, `{"user_id":2,"room_id":1,"start_date":"2024-03-01","end_date":"2024-03-31"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "capacity_exceeded", decode(t, rr)["code"])

	rr = v.do(http.MethodPost, "/v1/allocations", admin, `{"user_id":1,"room_id":2,"start_date":"2024-02-01"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "occupant_already_allocated", decode(t, rr)["code"])

	rr = v.do(http.MethodPost, "/v1/allocations", admin, `{"user_id":2,"room_id":99,"start_date":"2024-02-01"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	assert.Len(t, v.store.Allocations(), 1)
}

func TestCreateAllocationValidation(t *testing.T) {
	v := newEnv(t)
	admin := token(t, 9, model.RoleAdmin)

	rr := v.do(http.MethodPost, "/v1/allocations", admin, `{"room_id":1,"start_date":"01/02/2024"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	fields, ok := decode(t, rr)["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "is required", fields["user_id"])
	assert.Equal(t, "must be a date (YYYY-MM-DD)", fields["start_date"])

	rr = v.do(http.MethodPost, "/v1/allocations", admin, `{"user_id":1,"room_id":1,"start_date":"2024-02-01","end_date":"2024-01-01"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	fields = decode(t, rr)["fields"].(map[string]any)
	assert.Contains(t, fields, "end_date")

	rr = v.do(http.MethodPost, "/v1/allocations", admin, `{"user_id":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAllocationAccess(t *testing.T) {
	v := newEnv(t)

	rr := v.do(http.MethodPost, "/v1/allocations", "", `{"user_id":1,"room_id":1,"start_date":"2024-01-01"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = v.do(http.MethodPost, "/v1/allocations", token(t, 1, model.RoleStudent), `{"user_id":1,"room_id":1,"start_date":"2024-01-01"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Empty(t, v.store.Allocations())
}

func TestTerminateAllocation(t *testing.T) {
	v := newEnv(t)
	warden := token(t, 9, model.RoleWarden)

	rr := v.do(http.MethodPost, "/v1/allocations", warden, `{"user_id":1,"room_id":1,"start_date":"2024-01-01"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	id := decode(t, rr)["id"].(float64)
	path := fmt.Sprintf("/v1/allocations/%d/terminate", int(id))

	rr = v.do(http.MethodPost, path, warden, `{"end_date":"2023-12-01"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = v.do(http.MethodPost, path, warden, `{"end_date":"2024-01-20","status":"terminated"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decode(t, rr)
	assert.Equal(t, "2024-01-20", body["end_date"])
	assert.Equal(t, model.AllocationTerminated, body["status"])
	assert.Contains(t, v.rec.events, queue.AllocationsQueue+":"+queue.AllocationTerminated)

	rr = v.do(http.MethodPost, path, warden, `{"end_date":"2024-01-25"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "allocation_not_active", decode(t, rr)["code"])

	rr = v.do(http.MethodPost, "/v1/allocations/404/terminate", warden, `{"end_date":"2024-01-25"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = v.do(http.MethodPost, "/v1/allocations/abc/terminate", warden, `{"end_date":"2024-01-25"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRoomOccupancyFromLedger(t *testing.T) {
	v := newEnv(t)
	admin := token(t, 9, model.RoleAdmin)
	student := token(t, 3, model.RoleStudent)

	rr := v.do(http.MethodPost, "/v1/allocations", admin, `{"user_id":1,"room_id":2,"start_date":"2024-01-10","end_date":"2024-01-31"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = v.do(http.MethodGet, "/v1/rooms/2", student, "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, float64(1), body["current_occupancy"])
	assert.Equal(t, true, body["is_available"])

	rr = v.do(http.MethodGet, "/v1/rooms/2/availability?as_of=2024-02-01", student, "")
	require.Equal(t, http.StatusOK, rr.Code)
	body = decode(t, rr)
	assert.Equal(t, "2024-02-01", body["as_of"])
	assert.Equal(t, float64(0), body["current_occupancy"])

	rr = v.do(http.MethodGet, "/v1/rooms/2/availability?as_of=tomorrow", student, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = v.do(http.MethodGet, "/v1/rooms/77", student, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = v.do(http.MethodGet, "/v1/rooms/2/allocations/active", student, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRentQuote(t *testing.T) {
	v := newEnv(t)
	student := token(t, 3, model.RoleStudent)

	rr := v.do(http.MethodGet, "/v1/rent/quote?room_id=1&start_date=2024-01-01&end_date=2024-01-10", student, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decode(t, rr)
	assert.Equal(t, "400", body["amount"])
	assert.Equal(t, float64(10), body["days"])

	rr = v.do(http.MethodGet, "/v1/rent/quote?room_id=1&start_date=2024-01-01", student, "")
	require.Equal(t, http.StatusOK, rr.Code)
	body = decode(t, rr)
	assert.Equal(t, "1200", body["amount"])
	assert.NotContains(t, body, "days")

	rr = v.do(http.MethodGet, "/v1/rent/quote", student, "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	fields := decode(t, rr)["fields"].(map[string]any)
	assert.Contains(t, fields, "room_id")
	assert.Contains(t, fields, "start_date")
}

func TestReady(t *testing.T) {
	e := echo.New()
	e.GET("/readyz", Ready(map[string]func(context.Context) error{
		"db":    func(context.Context) error { return nil },
		"redis": nil,
	}))
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"db":"up","redis":"disabled"}`, rr.Body.String())

	e = echo.New()
	e.GET("/readyz", Ready(map[string]func(context.Context) error{
		"db": func(context.Context) error { return errors.New("refused") },
	}))
	rr = httptest.NewRecorder()
	e.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestFeedbackCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rec := &recorder{}
	h := NewFeedbackHandler(NewBase(zap.NewNop(), rec, nil, nil), repository.NewFeedbackRepo(db))
	e := echo.New()
	e.Validator = NewValidator()
	e.POST("/v1/feedback", h.Create, middleware.JWTAuth(testSecret))
	v := env{e: e, rec: rec}

	mock.ExpectExec("INSERT INTO feedback").
		WithArgs(uint64(3), 5, "quiet floor").
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, rating, comments, created_at FROM feedback WHERE id = ?")).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "rating", "comments", "created_at"}).
			AddRow(11, 3, 5, "quiet floor", time.Now()))

	rr := v.do(http.MethodPost, "/v1/feedback", token(t, 3, model.RoleStudent), `{"rating":5,"comments":"quiet floor"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, float64(11), decode(t, rr)["id"])
	require.NoError(t, mock.ExpectationsWereMet())

	rr = v.do(http.MethodPost, "/v1/feedback", token(t, 3, model.RoleStudent), `{"rating":9}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	fields := decode(t, rr)["fields"].(map[string]any)
	assert.Equal(t, "must be at most 5", fields["rating"])
}

func TestFailHidesInternalErrors(t *testing.T) {
	b := NewBase(nil, nil, nil, nil)
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	rr := c.Response().Writer.(*httptest.ResponseRecorder)

	require.NoError(t, b.fail(c, errors.New("dial tcp: connection refused")))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rr.Body.String())
}

func TestEventJoinAndLeave(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	h := NewEventHandler(NewBase(zap.NewNop(), nil, nil, nil), repository.NewEventRepo(db))
	e := echo.New()
	e.Validator = NewValidator()
	g := e.Group("/v1", middleware.JWTAuth(testSecret))
	g.POST("/events", h.Create)
	g.POST("/events/:id/join", h.Join)
	g.POST("/events/:id/leave", h.Leave)
	v := env{e: e}
	student := token(t, 3, model.RoleStudent)
	starts := time.Date(2024, 3, 5, 18, 0, 0, 0, time.UTC)
	cols := []string{"id", "title", "description", "event_type", "start_date", "end_date", "location", "organizer_id", "is_public", "attendees", "created_at", "updated_at"}
	visible := func() {
		mock.ExpectQuery(`FROM events e WHERE e.id = \? AND \(e.is_public = 1\)`).
			WithArgs(4).
			WillReturnRows(sqlmock.NewRows(cols).AddRow(4, "Quiz", "", model.EventAcademic, starts, nil, "Hall", 9, true, 0, starts, starts))
	}

	visible()
	mock.ExpectExec(`INSERT IGNORE INTO event_attendees`).WithArgs(4, 3).WillReturnResult(sqlmock.NewResult(0, 1))
	rr := v.do(http.MethodPost, "/v1/events/4/join", student, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Successfully joined event", decode(t, rr)["message"])

	visible()
	mock.ExpectExec(`INSERT IGNORE INTO event_attendees`).WithArgs(4, 3).WillReturnResult(sqlmock.NewResult(0, 0))
	rr = v.do(http.MethodPost, "/v1/events/4/join", student, "")
	assert.Equal(t, "Already attending this event", decode(t, rr)["message"])

	visible()
	mock.ExpectExec(`DELETE FROM event_attendees`).WithArgs(4, 3).WillReturnResult(sqlmock.NewResult(0, 1))
	rr = v.do(http.MethodPost, "/v1/events/4/leave", student, "")
	assert.Equal(t, "Successfully left event", decode(t, rr)["message"])

	mock.ExpectQuery(`FROM events e WHERE e.id = \? AND \(e.is_public = 1\)`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(cols))
	rr = v.do(http.MethodPost, "/v1/events/5/join", student, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	require.NoError(t, mock.ExpectationsWereMet())

	rr = v.do(http.MethodPost, "/v1/events", student, `{"title":"Quiz","start_date":"2024-03-05T18:00:00Z"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = v.do(http.MethodPost, "/v1/events", token(t, 9, model.RoleWarden),
		`{"title":"Quiz","start_date":"2024-03-05T18:00:00Z","end_date":"2024-03-05T17:00:00Z"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decode(t, rr)["fields"], "end_date")
}

func TestVerifyEmailNotifiesUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rec := &recorder{}
	h := NewUserHandler(NewBase(zap.NewNop(), rec, nil, rec), config.Config{}, repository.NewUserRepo(db), nil)
	e := echo.New()
	e.POST("/v1/users/:id/verify-email", h.VerifyEmail, middleware.JWTAuth(testSecret))
	v := env{e: e, rec: rec}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET email_verified=1 WHERE id=?")).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rr := v.do(http.MethodPost, "/v1/users/5/verify-email", token(t, 1, model.RoleAdmin), "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, []uint64{5}, rec.notes)
	require.Len(t, rec.audits, 1)
	assert.Equal(t, "verify", rec.audits[0].Action)
	require.NoError(t, mock.ExpectationsWereMet())

	rr = v.do(http.MethodPost, "/v1/users/5/verify-email", token(t, 2, model.RoleWarden), "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
