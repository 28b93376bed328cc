package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/hostel-residence/internal/model"
	"github.com/iliyamo/hostel-residence/internal/policy"
)

// VisitorRepo persists the visitor log.
type VisitorRepo struct{ db *sql.DB }

func NewVisitorRepo(db *sql.DB) *VisitorRepo { return &VisitorRepo{db: db} }

const visitorCols = "id, user_id, visitor_name, phone, purpose, visit_date, status, approved_by, approved_at, created_at"

func scanVisitor(row interface{ Scan(...any) error }) (model.Visitor, error) {
	var (
		v          model.Visitor
		approvedBy sql.NullInt64
		approvedAt sql.NullTime
	)
	err := row.Scan(&v.ID, &v.UserID, &v.VisitorName, &v.Phone, &v.Purpose, &v.VisitDate, &v.Status,
		&approvedBy, &approvedAt, &v.CreatedAt)
	v.ApprovedBy = nullUint(approvedBy)
	v.ApprovedAt = nullTime(approvedAt)
	return v, err
}

// Create inserts a pending visitor entry.
func (r *VisitorRepo) Create(ctx context.Context, v *model.Visitor) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO visitors (user_id, visitor_name, phone, purpose, visit_date, status) VALUES (?, ?, ?, ?, ?, ?)",
		v.UserID, v.VisitorName, v.Phone, v.Purpose, v.VisitDate, model.VisitorPending)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.Get(ctx, policy.All, uint64(id))
	if err != nil {
		return err
	}
	*v = got
	return nil
}

// Get returns a visitor visible under scope.
func (r *VisitorRepo) Get(ctx context.Context, scope policy.Predicate, id uint64) (model.Visitor, error) {
	w := &where{}
	w.add("id = ?", id)
	w.scope(scope)
	v, err := scanVisitor(r.db.QueryRowContext(ctx, "SELECT "+visitorCols+" FROM visitors"+w.String(), w.args...))
	return v, notFound(err)
}

// List returns visitors under scope by visit date, newest first.
func (r *VisitorRepo) List(ctx context.Context, scope policy.Predicate, status string, p Page) ([]model.Visitor, error) {
	w := &where{}
	w.scope(scope)
	if status != "" {
		w.add("status = ?", status)
	}
	limit, offset := p.limitOffset()
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+visitorCols+" FROM visitors"+w.String()+" ORDER BY visit_date DESC, id DESC LIMIT ? OFFSET ?",
		append(w.args, limit, offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Visitor
	for rows.Next() {
		v, err := scanVisitor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Decide approves or rejects a pending visitor. A visitor that is no
// longer pending yields ErrConflict.
func (r *VisitorRepo) Decide(ctx context.Context, id, staffID uint64, status string, now time.Time) (model.Visitor, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE visitors SET status = ?, approved_by = ?, approved_at = ? WHERE id = ? AND status = 'pending'",
		status, staffID, now, id)
	if err != nil {
		return model.Visitor{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.Get(ctx, policy.All, id); err != nil {
			return model.Visitor{}, err
		}
		return model.Visitor{}, ErrConflict
	}
	return r.Get(ctx, policy.All, id)
}
