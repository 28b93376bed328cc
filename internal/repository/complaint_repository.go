package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/hostel-residence/internal/model"
	"github.com/iliyamo/hostel-residence/internal/policy"
)

// ComplaintRepo persists resident complaints.
type ComplaintRepo struct{ db *sql.DB }

func NewComplaintRepo(db *sql.DB) *ComplaintRepo { return &ComplaintRepo{db: db} }

const complaintCols = "id, user_id, room_id, title, description, status, created_at, updated_at"

func scanComplaint(row interface{ Scan(...any) error }) (model.Complaint, error) {
	var (
		c    model.Complaint
		room sql.NullInt64
	)
	err := row.Scan(&c.ID, &c.UserID, &room, &c.Title, &c.Description, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	c.RoomID = nullUint(room)
	return c, err
}

// Create inserts an open complaint.
func (r *ComplaintRepo) Create(ctx context.Context, c *model.Complaint) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO complaints (user_id, room_id, title, description, status) VALUES (?, ?, ?, ?, ?)",
		c.UserID, c.RoomID, c.Title, c.Description, model.ComplaintOpen)
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
	*c = got
	return nil
}

// Get returns a complaint visible under scope.
func (r *ComplaintRepo) Get(ctx context.Context, scope policy.Predicate, id uint64) (model.Complaint, error) {
	w := &where{}
	w.add("id = ?", id)
	w.scope(scope)
	c, err := scanComplaint(r.db.QueryRowContext(ctx, "SELECT "+complaintCols+" FROM complaints"+w.String(), w.args...))
	return c, notFound(err)
}

// List returns complaints under scope, newest first.
func (r *ComplaintRepo) List(ctx context.Context, scope policy.Predicate, status string, p Page) ([]model.Complaint, error) {
	w := &where{}
	w.scope(scope)
	if status != "" {
		w.add("status = ?", status)
	}
	limit, offset := p.limitOffset()
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+complaintCols+" FROM complaints"+w.String()+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		append(w.args, limit, offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Complaint
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SetStatus moves a complaint to status.
func (r *ComplaintRepo) SetStatus(ctx context.Context, id uint64, status string) (model.Complaint, error) {
	if _, err := r.db.ExecContext(ctx, "UPDATE complaints SET status = ? WHERE id = ?", status, id); err != nil {
		return model.Complaint{}, err
	}
	return r.Get(ctx, policy.All, id)
}
