package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/hostel-residence/internal/model"
	"github.com/iliyamo/hostel-residence/internal/policy"
)

// MaintenanceRepo persists maintenance requests.
type MaintenanceRepo struct{ db *sql.DB }

func NewMaintenanceRepo(db *sql.DB) *MaintenanceRepo { return &MaintenanceRepo{db: db} }

const maintenanceCols = "id, user_id, room_id, title, description, priority, status, assigned_to, estimated_cost, actual_cost, completed_at, created_at, updated_at"

func scanMaintenance(row interface{ Scan(...any) error }) (model.MaintenanceRequest, error) {
	var (
		m         model.MaintenanceRequest
		assigned  sql.NullInt64
		completed sql.NullTime
	)
	err := row.Scan(&m.ID, &m.UserID, &m.RoomID, &m.Title, &m.Description, &m.Priority, &m.Status,
		&assigned, &m.EstimatedCost, &m.ActualCost, &completed, &m.CreatedAt, &m.UpdatedAt)
	m.AssignedTo = nullUint(assigned)
	m.CompletedAt = nullTime(completed)
	return m, err
}

// Create inserts a pending request.
func (r *MaintenanceRepo) Create(ctx context.Context, m *model.MaintenanceRequest) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO maintenance_requests (user_id, room_id, title, description, priority, status, estimated_cost)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.UserID, m.RoomID, m.Title, m.Description, m.Priority, model.MaintenancePending, m.EstimatedCost)
	if err != nil {
		if mysqlCode(err) == mysqlNoReferencedRow {
			return ErrNotFound
		}
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
	*m = got
	return nil
}

// Get returns a request visible under scope.
func (r *MaintenanceRepo) Get(ctx context.Context, scope policy.Predicate, id uint64) (model.MaintenanceRequest, error) {
	w := &where{}
	w.add("id = ?", id)
	w.scope(scope)
	m, err := scanMaintenance(r.db.QueryRowContext(ctx, "SELECT "+maintenanceCols+" FROM maintenance_requests"+w.String(), w.args...))
	return m, notFound(err)
}

// MaintenanceFilter narrows List.
type MaintenanceFilter struct {
	Status     string
	Priority   string
	RoomID     uint64
	AssignedTo uint64
}

// List returns requests under scope, newest first.
func (r *MaintenanceRepo) List(ctx context.Context, scope policy.Predicate, f MaintenanceFilter, p Page) ([]model.MaintenanceRequest, error) {
	w := &where{}
	w.scope(scope)
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	if f.Priority != "" {
		w.add("priority = ?", f.Priority)
	}
	if f.RoomID != 0 {
		w.add("room_id = ?", f.RoomID)
	}
	if f.AssignedTo != 0 {
		w.add("assigned_to = ?", f.AssignedTo)
	}
	limit, offset := p.limitOffset()
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+maintenanceCols+" FROM maintenance_requests"+w.String()+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		append(w.args, limit, offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.MaintenanceRequest
	for rows.Next() {
		m, err := scanMaintenance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Assign sets the assignee, optionally the estimate, and moves a pending
// request to in_progress.
func (r *MaintenanceRepo) Assign(ctx context.Context, id, assignee uint64, estimate decimal.NullDecimal) (model.MaintenanceRequest, error) {
	_, err := r.db.ExecContext(ctx,
		`UPDATE maintenance_requests
		    SET assigned_to = ?,
		        estimated_cost = COALESCE(?, estimated_cost),
		        status = CASE WHEN status = 'pending' THEN 'in_progress' ELSE status END
		  WHERE id = ?`,
		assignee, estimate, id)
	if err != nil {
		return model.MaintenanceRequest{}, err
	}
	return r.Get(ctx, policy.All, id)
}

// SetStatus changes the status. Completing stamps completed_at and the
// optional actual cost.
func (r *MaintenanceRepo) SetStatus(ctx context.Context, id uint64, status string, actual decimal.NullDecimal, now time.Time) (model.MaintenanceRequest, error) {
	var completedAt any
	if status == model.MaintenanceCompleted {
		completedAt = now
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE maintenance_requests
		    SET status = ?, actual_cost = COALESCE(?, actual_cost), completed_at = ?
		  WHERE id = ?`,
		status, actual, completedAt, id)
	if err != nil {
		return model.MaintenanceRequest{}, err
	}
	return r.Get(ctx, policy.All, id)
}
