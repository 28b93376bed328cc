package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hostel-residence/internal/model"
)

var (
	student = Actor{ID: 7, Role: model.RoleStudent}
	warden  = Actor{ID: 2, Role: model.RoleWarden}
	admin   = Actor{ID: 1, Role: model.RoleAdmin}
)

func TestScope_StudentSeesOwnRows(t *testing.T) {
	for _, r := range []Resource{Allocations, Attendance, Complaints, Maintenance, Payments, Visitors, Feedback, Notifications} {
		p, err := Scope(student, r)
		require.NoError(t, err, r)
		assert.Equal(t, "user_id = ?", p.Clause, r)
		assert.Equal(t, []any{uint64(7)}, p.Args, r)
	}

	p, err := Scope(student, Users)
	require.NoError(t, err)
	assert.Equal(t, "id = ?", p.Clause)
}

func TestScope_StudentNotices(t *testing.T) {
	p, err := Scope(student, Notices)
	require.NoError(t, err)
	assert.Equal(t, "is_active = 1 AND target_audience IN (?, ?)", p.Clause)
	assert.Equal(t, []any{"student", "all"}, p.Args)

	q := p.Qualify("n")
	assert.Equal(t, "n.is_active = 1 AND n.target_audience IN (?, ?)", q.Clause)
}

func TestScope_StudentEvents(t *testing.T) {
	p, err := Scope(student, Events)
	require.NoError(t, err)
	assert.Equal(t, "e.is_public = 1", p.Qualify("e").Clause)

	p, err = Scope(warden, Events)
	require.NoError(t, err)
	assert.True(t, p.IsAll())
	assert.True(t, CanManage(warden, Events))
	assert.False(t, CanManage(student, Events))
}

func TestScope_StaffAndDenied(t *testing.T) {
	p, err := Scope(warden, Payments)
	require.NoError(t, err)
	assert.True(t, p.IsAll())

	_, err = Scope(warden, AuditLogs)
	assert.ErrorIs(t, err, ErrDenied)
	_, err = Scope(student, AuditLogs)
	assert.ErrorIs(t, err, ErrDenied)

	p, err = Scope(admin, AuditLogs)
	require.NoError(t, err)
	assert.True(t, p.IsAll())

	p, err = Scope(admin, Notifications)
	require.NoError(t, err)
	assert.Equal(t, "user_id = ?", p.Clause)

	_, err = Scope(Actor{ID: 3, Role: "guest"}, Rooms)
	assert.ErrorIs(t, err, ErrDenied)
}

func TestQualify(t *testing.T) {
	p := Predicate{Clause: "user_id = ?", Args: []any{uint64(1)}}
	assert.Equal(t, "a.user_id = ?", p.Qualify("a").Clause)
	assert.Equal(t, "user_id = ?", p.Qualify("").Clause)
	assert.True(t, All.Qualify("a").IsAll())
}

func TestCanManage(t *testing.T) {
	assert.True(t, CanManage(admin, Rooms))
	assert.False(t, CanManage(warden, Rooms))
	assert.True(t, CanManage(warden, Allocations))
	assert.True(t, CanManage(warden, RoomStatus))
	assert.False(t, CanManage(student, Allocations))
	assert.False(t, CanManage(admin, AuditLogs))
}

func TestCanCreateOwn(t *testing.T) {
	assert.True(t, CanCreateOwn(student, Complaints))
	assert.False(t, CanCreateOwn(student, Payments))
	assert.True(t, CanCreateOwn(warden, Attendance))
	assert.False(t, CanCreateOwn(student, Notices))
}
