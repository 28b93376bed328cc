package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/hostel-residence/internal/model"
	"github.com/iliyamo/hostel-residence/internal/policy"
)

// DashboardRepo computes the staff summary. Room availability figures come
// from the allocation ledger, never from the manual room status.
type DashboardRepo struct {
	db       *sql.DB
	payments *PaymentRepo
	audit    *AuditRepo
}

func NewDashboardRepo(db *sql.DB) *DashboardRepo {
	return &DashboardRepo{db: db, payments: NewPaymentRepo(db), audit: NewAuditRepo(db)}
}

// Stats returns the dashboard as of today.
func (r *DashboardRepo) Stats(ctx context.Context, today time.Time) (model.DashboardStats, error) {
	var st model.DashboardStats
	var rating sql.NullFloat64

	err := r.db.QueryRowContext(ctx,
		`SELECT
		    (SELECT COUNT(*) FROM users WHERE role = 'student' AND is_active = 1),
		    (SELECT COUNT(*) FROM complaints WHERE status IN ('open', 'in_progress')),
		    (SELECT COUNT(*) FROM maintenance_requests WHERE status IN ('pending', 'in_progress')),
		    (SELECT COUNT(*) FROM visitors WHERE status = 'pending'),
		    (SELECT AVG(rating) FROM feedback)`).
		Scan(&st.TotalStudents, &st.PendingComplaints, &st.PendingMaintenance, &st.PendingVisitors, &rating)
	if err != nil {
		return st, err
	}
	st.AverageRating = rating.Float64

	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(r.capacity), 0),
		        COALESCE(SUM(LEAST(COALESCE(o.n, 0), r.capacity)), 0),
		        COALESCE(SUM(COALESCE(o.n, 0) > 0), 0),
		        COALESCE(SUM(COALESCE(o.n, 0) < r.capacity), 0)
		   FROM rooms r`+occupancyJoin, today, today).
		Scan(&st.TotalRooms, &st.TotalCapacity, &st.CurrentOccupancy, &st.OccupiedRooms, &st.AvailableRooms)
	if err != nil {
		return st, err
	}

	ps, err := r.payments.Stats(ctx, policy.All, today)
	if err != nil {
		return st, err
	}
	st.PendingPayments = ps.PendingCount
	st.MonthlyRevenue = ps.MonthlyRevenue

	recent, err := r.audit.List(ctx, policy.All, AuditFilter{}, Page{Page: 1, Size: 10})
	if err != nil {
		return st, err
	}
	if recent == nil {
		recent = []model.AuditLog{}
	}
	st.RecentActivities = recent
	return st, nil
}
