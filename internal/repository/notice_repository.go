package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/hostel-residence/internal/model"
	"github.com/iliyamo/hostel-residence/internal/policy"
)

// NoticeRepo persists notices.
type NoticeRepo struct{ db *sql.DB }

func NewNoticeRepo(db *sql.DB) *NoticeRepo { return &NoticeRepo{db: db} }

const noticeCols = "id, title, content, priority, target_audience, is_active, created_by, created_at, updated_at"

func scanNotice(row interface{ Scan(...any) error }) (model.Notice, error) {
	var n model.Notice
	err := row.Scan(&n.ID, &n.Title, &n.Content, &n.Priority, &n.TargetAudience, &n.IsActive, &n.CreatedBy, &n.CreatedAt, &n.UpdatedAt)
	return n, err
}

// Create inserts a notice.
func (r *NoticeRepo) Create(ctx context.Context, n *model.Notice) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO notices (title, content, priority, target_audience, is_active, created_by) VALUES (?, ?, ?, ?, ?, ?)",
		n.Title, n.Content, n.Priority, n.TargetAudience, n.IsActive, n.CreatedBy)
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
	*n = got
	return nil
}

// Get returns a notice visible under scope.
func (r *NoticeRepo) Get(ctx context.Context, scope policy.Predicate, id uint64) (model.Notice, error) {
	w := &where{}
	w.add("id = ?", id)
	w.scope(scope)
	n, err := scanNotice(r.db.QueryRowContext(ctx, "SELECT "+noticeCols+" FROM notices"+w.String(), w.args...))
	return n, notFound(err)
}

// List returns notices under scope by priority then recency.
func (r *NoticeRepo) List(ctx context.Context, scope policy.Predicate, p Page) ([]model.Notice, error) {
	w := &where{}
	w.scope(scope)
	limit, offset := p.limitOffset()
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+noticeCols+" FROM notices"+w.String()+
			" ORDER BY FIELD(priority, 'urgent', 'high', 'medium', 'low'), created_at DESC LIMIT ? OFFSET ?",
		append(w.args, limit, offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Notice
	for rows.Next() {
		n, err := scanNotice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Update overwrites the editable fields of a notice.
func (r *NoticeRepo) Update(ctx context.Context, n *model.Notice) error {
	if _, err := r.Get(ctx, policy.All, n.ID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		"UPDATE notices SET title = ?, content = ?, priority = ?, target_audience = ?, is_active = ? WHERE id = ?",
		n.Title, n.Content, n.Priority, n.TargetAudience, n.IsActive, n.ID)
	if err != nil {
		return err
	}
	got, err := r.Get(ctx, policy.All, n.ID)
	if err != nil {
		return err
	}
	*n = got
	return nil
}

// Delete removes a notice.
func (r *NoticeRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM notices WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
