// Package policy decides which rows an authenticated actor may read and
// which resources it may change. Repositories append the returned
// Predicate to their WHERE clause, so handlers never branch on role.
package policy

import (
	"errors"
	"strings"

	"github.com/iliyamo/hostel-residence/internal/model"
)

// ErrDenied is returned when the actor may not read the resource at all.
var ErrDenied = errors.New("access denied")

// Actor is the authenticated caller.
type Actor struct {
	ID   uint64
	Role string
}

// IsStaff reports whether the actor is an admin or warden.
func (a Actor) IsStaff() bool { return model.IsStaff(a.Role) }

// Resource names a table guarded by the policy.
type Resource string

const (
	Users         Resource = "users"
	Rooms         Resource = "rooms"
	RoomStatus    Resource = "room_status"
	Allocations   Resource = "room_allocations"
	Attendance    Resource = "attendance"
	Complaints    Resource = "complaints"
	Maintenance   Resource = "maintenance_requests"
	Payments      Resource = "payments"
	Notices       Resource = "notices"
	Visitors      Resource = "visitors"
	Feedback      Resource = "feedback"
	AuditLogs     Resource = "audit_logs"
	Notifications Resource = "notifications"
	Events        Resource = "events"
)

// ownerColumn is the column holding the owning user for per-user resources.
var ownerColumn = map[Resource]string{
	Users:         "id",
	Allocations:   "user_id",
	Attendance:    "user_id",
	Complaints:    "user_id",
	Maintenance:   "user_id",
	Payments:      "user_id",
	Visitors:      "user_id",
	Feedback:      "user_id",
	Notifications: "user_id",
}

// Predicate is a SQL boolean expression with positional arguments. An empty
// Clause matches every row.
type Predicate struct {
	Clause string
	Args   []any
}

// All matches every row.
var All = Predicate{}

// IsAll reports whether the predicate matches every row.
func (p Predicate) IsAll() bool { return p.Clause == "" }

// Qualify prefixes bare column references with a table alias. Only the
// columns emitted by Scope are rewritten.
func (p Predicate) Qualify(alias string) Predicate {
	if p.IsAll() || alias == "" {
		return p
	}
	c := p.Clause
	for _, col := range []string{"user_id", "id", "is_active", "is_public", "target_audience"} {
		if strings.HasPrefix(c, col+" ") {
			c = alias + "." + c
			break
		}
	}
	c = strings.ReplaceAll(c, " AND target_audience", " AND "+alias+".target_audience")
	return Predicate{Clause: c, Args: p.Args}
}

// Scope returns the rows of r that a may read.
func Scope(a Actor, r Resource) (Predicate, error) {
	switch a.Role {
	case model.RoleAdmin:
		if r == Notifications {
			return owned(a, r), nil
		}
		return All, nil
	case model.RoleWarden:
		switch r {
		case AuditLogs:
			return Predicate{}, ErrDenied
		case Notifications:
			return owned(a, r), nil
		}
		return All, nil
	case model.RoleStudent:
		switch r {
		case Rooms, RoomStatus:
			return All, nil
		case Notices:
			return Predicate{
				Clause: "is_active = 1 AND target_audience IN (?, ?)",
				Args:   []any{a.Role, model.AudienceAll},
			}, nil
		case Events:
			return Predicate{Clause: "is_public = 1"}, nil
		case AuditLogs:
			return Predicate{}, ErrDenied
		}
		if _, ok := ownerColumn[r]; ok {
			return owned(a, r), nil
		}
	}
	return Predicate{}, ErrDenied
}

func owned(a Actor, r Resource) Predicate {
	return Predicate{Clause: ownerColumn[r] + " = ?", Args: []any{a.ID}}
}

// CanManage reports whether a may perform staff writes on r: creating,
// updating or changing the state of records that belong to other users.
func CanManage(a Actor, r Resource) bool {
	switch a.Role {
	case model.RoleAdmin:
		return r != AuditLogs && r != Notifications
	case model.RoleWarden:
		switch r {
		case Rooms, Users, AuditLogs, Notifications:
			return false
		}
		return true
	}
	return false
}

// CanCreateOwn reports whether a may create records of r for itself.
func CanCreateOwn(a Actor, r Resource) bool {
	switch r {
	case Complaints, Maintenance, Visitors, Feedback, Attendance:
		switch a.Role {
		case model.RoleStudent, model.RoleAdmin, model.RoleWarden:
			return true
		}
	}
	return false
}
