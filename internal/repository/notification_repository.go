package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/hostel-residence/internal/model"
	"github.com/iliyamo/hostel-residence/internal/policy"
)

// NotificationRepo stores outbound notifications and their delivery state.
type NotificationRepo struct{ db *sql.DB }

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Create inserts a pending notification and returns its ID.
func (r *NotificationRepo) Create(ctx context.Context, userID uint64, subject, message string) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO notifications (user_id, subject, message, status) VALUES (?, ?, ?, ?)",
		userID, subject, message, model.NotificationPending)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// MarkSent records a successful delivery.
func (r *NotificationRepo) MarkSent(ctx context.Context, id uint64, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET status = ?, sent_at = ? WHERE id = ?", model.NotificationSent, at, id)
	return err
}

// MarkFailed records a failed delivery.
func (r *NotificationRepo) MarkFailed(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET status = ? WHERE id = ?", model.NotificationFailed, id)
	return err
}

// List returns notifications under scope, newest first.
func (r *NotificationRepo) List(ctx context.Context, scope policy.Predicate, p Page) ([]model.Notification, error) {
	w := &where{}
	w.scope(scope)
	limit, offset := p.limitOffset()
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, subject, message, status, sent_at, created_at FROM notifications"+w.String()+
			" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		append(w.args, limit, offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Notification
	for rows.Next() {
		var (
			n    model.Notification
			sent sql.NullTime
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Subject, &n.Message, &n.Status, &sent, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.SentAt = nullTime(sent)
		out = append(out, n)
	}
	return out, rows.Err()
}
