package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hostel-residence/internal/handler"
	"github.com/iliyamo/hostel-residence/internal/model"
	"github.com/iliyamo/hostel-residence/internal/utils"
)

const secret = "router-secret"

func newServer() *echo.Echo {
	e := echo.New()
	s := Stack{JWTSecret: secret}
	g := Protected(e, s)
	RegisterRoutes(e, nil)
	RegisterAuth(e, g, &handler.AuthHandler{}, s)
	RegisterRooms(g, &handler.RoomHandler{}, &handler.AllocationHandler{})
	RegisterResident(g, Resident{
		Attendance:    &handler.AttendanceHandler{},
		Complaints:    &handler.ComplaintHandler{},
		Maintenance:   &handler.MaintenanceHandler{},
		Payments:      &handler.PaymentHandler{},
		Notices:       &handler.NoticeHandler{},
		Visitors:      &handler.VisitorHandler{},
		Feedback:      &handler.FeedbackHandler{},
		Notifications: &handler.NotificationHandler{},
		Events:        &handler.EventHandler{},
	}, nil)
	RegisterAdmin(g, &handler.UserHandler{}, &handler.DashboardHandler{}, &handler.AuditHandler{}, &handler.ExportHandler{})
	return e
}

func TestRoutesRegistered(t *testing.T) {
	e := newServer()
	have := map[string]bool{}
	for _, r := range e.Routes() {
		have[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /healthz",
		"POST /v1/auth/login",
		"POST /v1/logout",
		"GET /v1/me",
		"GET /v1/rooms/:id",
		"GET /v1/rooms/available",
		"GET /v1/rooms/:id/availability",
		"GET /v1/rooms/:id/allocations/active",
		"POST /v1/allocations",
		"GET /v1/allocations",
		"POST /v1/allocations/:id/terminate",
		"GET /v1/rent/quote",
		"POST /v1/attendance/mark",
		"PATCH /v1/maintenance/:id/assign",
		"GET /v1/payments/pending",
		"PATCH /v1/visitors/:id/decision",
		"GET /v1/notices",
		"GET /v1/dashboard/stats",
		"GET /v1/export/:kind",
		"GET /v1/audit-logs",
		"GET /v1/users/stats",
		"POST /v1/users/:id/verify-email",
		"POST /v1/users/:id/verify-phone",
		"GET /v1/feedback/stats",
		"GET /v1/events",
		"POST /v1/events/:id/join",
		"POST /v1/events/:id/leave",
	} {
		assert.True(t, have[want], want)
	}
	assert.False(t, have["GET /readyz"])
}

func TestRoleGuards(t *testing.T) {
	e := newServer()
	tok, err := utils.NewAccessToken(secret, 4, model.RoleStudent, 5)
	require.NoError(t, err)

	cases := []struct {
		method, path, auth string
		code               int
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/v1/rooms/1", "", http.StatusUnauthorized},
		{http.MethodPost, "/v1/rooms", "Bearer " + tok.Token, http.StatusForbidden},
		{http.MethodPost, "/v1/allocations", "Bearer " + tok.Token, http.StatusForbidden},
		{http.MethodGet, "/v1/audit-logs", "Bearer " + tok.Token, http.StatusForbidden},
		{http.MethodGet, "/v1/dashboard/stats", "Bearer " + tok.Token, http.StatusForbidden},
		{http.MethodGet, "/v1/users/stats", "Bearer " + tok.Token, http.StatusForbidden},
		{http.MethodPost, "/v1/users/2/verify-email", "Bearer " + tok.Token, http.StatusForbidden},
		{http.MethodPost, "/v1/events", "Bearer " + tok.Token, http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		if tc.auth != "" {
			req.Header.Set(echo.HeaderAuthorization, tc.auth)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, tc.code, rec.Code, tc.method+" "+tc.path)
	}
}
