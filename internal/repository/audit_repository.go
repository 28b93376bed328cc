package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/hostel-residence/internal/model"
	"github.com/iliyamo/hostel-residence/internal/policy"
)

// AuditRepo appends to and reads the audit trail.
type AuditRepo struct{ db *sql.DB }

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

// Record appends one entry.
func (r *AuditRepo) Record(ctx context.Context, e model.AuditLog) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (user_id, action, model_name, object_id, description, ip_address, user_agent)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Action, e.ModelName, e.ObjectID, e.Description, e.IPAddress, e.UserAgent)
	return err
}

// AuditFilter narrows List.
type AuditFilter struct {
	UserID    uint64
	ModelName string
	Action    string
}

// List returns entries under scope, newest first.
func (r *AuditRepo) List(ctx context.Context, scope policy.Predicate, f AuditFilter, p Page) ([]model.AuditLog, error) {
	w := &where{}
	w.scope(scope)
	if f.UserID != 0 {
		w.add("user_id = ?", f.UserID)
	}
	if f.ModelName != "" {
		w.add("model_name = ?", f.ModelName)
	}
	if f.Action != "" {
		w.add("action = ?", f.Action)
	}
	limit, offset := p.limitOffset()
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, action, model_name, object_id, description, ip_address, user_agent, created_at FROM audit_logs"+
			w.String()+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		append(w.args, limit, offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.AuditLog
	for rows.Next() {
		var (
			e            model.AuditLog
			user, object sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &user, &e.Action, &e.ModelName, &object, &e.Description, &e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.UserID = nullUint(user)
		e.ObjectID = nullUint(object)
		out = append(out, e)
	}
	return out, rows.Err()
}
