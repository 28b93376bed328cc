package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/hostel-residence/internal/model"
	"github.com/iliyamo/hostel-residence/internal/policy"
)

// EventRepo persists hostel events and their attendee lists.
type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const eventCols = "e.id, e.title, e.description, e.event_type, e.start_date, e.end_date, e.location, e.organizer_id, e.is_public, " +
	"(SELECT COUNT(*) FROM event_attendees ea WHERE ea.event_id = e.id), e.created_at, e.updated_at"

func scanEvent(row interface{ Scan(...any) error }) (model.Event, error) {
	var (
		e   model.Event
		end sql.NullTime
	)
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.EventType, &e.StartsAt, &end, &e.Location,
		&e.OrganizerID, &e.IsPublic, &e.AttendeesCount, &e.CreatedAt, &e.UpdatedAt)
	e.EndsAt = nullTime(end)
	return e, err
}

// Create inserts an event organized by e.OrganizerID.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO events (title, description, event_type, start_date, end_date, location, organizer_id, is_public) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		e.Title, e.Description, e.EventType, e.StartsAt, e.EndsAt, e.Location, e.OrganizerID, e.IsPublic)
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
	*e = got
	return nil
}

// Get returns an event visible under scope.
func (r *EventRepo) Get(ctx context.Context, scope policy.Predicate, id uint64) (model.Event, error) {
	w := &where{}
	w.add("e.id = ?", id)
	w.scope(scope.Qualify("e"))
	e, err := scanEvent(r.db.QueryRowContext(ctx, "SELECT "+eventCols+" FROM events e"+w.String(), w.args...))
	return e, notFound(err)
}

// EventFilter narrows List. A non-zero From keeps events starting at or
// after it.
type EventFilter struct {
	Type string
	From time.Time
}

// List returns events under scope in start order.
func (r *EventRepo) List(ctx context.Context, scope policy.Predicate, f EventFilter, p Page) ([]model.Event, error) {
	w := &where{}
	w.scope(scope.Qualify("e"))
	if f.Type != "" {
		w.add("e.event_type = ?", f.Type)
	}
	if !f.From.IsZero() {
		w.add("e.start_date >= ?", f.From)
	}
	limit, offset := p.limitOffset()
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+eventCols+" FROM events e"+w.String()+" ORDER BY e.start_date, e.id LIMIT ? OFFSET ?",
		append(w.args, limit, offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Update overwrites the editable fields of an event.
func (r *EventRepo) Update(ctx context.Context, e *model.Event) error {
	if _, err := r.Get(ctx, policy.All, e.ID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		"UPDATE events SET title = ?, description = ?, event_type = ?, start_date = ?, end_date = ?, location = ?, is_public = ? WHERE id = ?",
		e.Title, e.Description, e.EventType, e.StartsAt, e.EndsAt, e.Location, e.IsPublic, e.ID)
	if err != nil {
		return err
	}
	got, err := r.Get(ctx, policy.All, e.ID)
	if err != nil {
		return err
	}
	*e = got
	return nil
}

// Delete removes an event and, by cascade, its attendees.
func (r *EventRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Join adds userID to the attendees. joined is false when the user was
// already attending.
func (r *EventRepo) Join(ctx context.Context, eventID, userID uint64) (joined bool, err error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT IGNORE INTO event_attendees (event_id, user_id) VALUES (?, ?)", eventID, userID)
	if err != nil {
		if mysqlCode(err) == mysqlNoReferencedRow {
			return false, ErrNotFound
		}
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Leave removes userID from the attendees. left is false when the user was
// not attending.
func (r *EventRepo) Leave(ctx context.Context, eventID, userID uint64) (left bool, err error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM event_attendees WHERE event_id = ? AND user_id = ?", eventID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
