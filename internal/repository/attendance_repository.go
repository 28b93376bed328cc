package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/hostel-residence/internal/model"
	"github.com/iliyamo/hostel-residence/internal/policy"
)

// AttendanceRepo persists daily attendance marks.
type AttendanceRepo struct{ db *sql.DB }

func NewAttendanceRepo(db *sql.DB) *AttendanceRepo { return &AttendanceRepo{db: db} }

const attendanceCols = "id, user_id, date, present, marked_at"

func scanAttendance(row interface{ Scan(...any) error }) (model.Attendance, error) {
	var a model.Attendance
	err := row.Scan(&a.ID, &a.UserID, &a.Date, &a.Present, &a.MarkedAt)
	return a, err
}

// MarkPresent records the user as present on day unless a mark already
// exists. created reports whether a new row was inserted.
func (r *AttendanceRepo) MarkPresent(ctx context.Context, userID uint64, day time.Time) (a model.Attendance, created bool, err error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT IGNORE INTO attendance (user_id, date, present) VALUES (?, ?, 1)", userID, day)
	if err != nil {
		return a, false, err
	}
	n, _ := res.RowsAffected()
	a, err = r.getByUserDate(ctx, userID, day)
	return a, n > 0, err
}

// Upsert sets the mark for (user, day).
func (r *AttendanceRepo) Upsert(ctx context.Context, userID uint64, day time.Time, present bool) (model.Attendance, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO attendance (user_id, date, present) VALUES (?, ?, ?)
		 ON DUPLICATE KEY UPDATE present = VALUES(present), marked_at = CURRENT_TIMESTAMP`,
		userID, day, present)
	if err != nil {
		if mysqlCode(err) == mysqlNoReferencedRow {
			return model.Attendance{}, ErrNotFound
		}
		return model.Attendance{}, err
	}
	return r.getByUserDate(ctx, userID, day)
}

func (r *AttendanceRepo) getByUserDate(ctx context.Context, userID uint64, day time.Time) (model.Attendance, error) {
	a, err := scanAttendance(r.db.QueryRowContext(ctx,
		"SELECT "+attendanceCols+" FROM attendance WHERE user_id = ? AND date = ?", userID, day))
	return a, notFound(err)
}

// AttendanceFilter narrows List and Stats. Zero values are ignored.
type AttendanceFilter struct {
	UserID uint64
	From   *time.Time
	To     *time.Time
}

func (f AttendanceFilter) apply(w *where) {
	if f.UserID != 0 {
		w.add("user_id = ?", f.UserID)
	}
	if f.From != nil {
		w.add("date >= ?", *f.From)
	}
	if f.To != nil {
		w.add("date <= ?", *f.To)
	}
}

// List returns marks under scope, newest first.
func (r *AttendanceRepo) List(ctx context.Context, scope policy.Predicate, f AttendanceFilter, p Page) ([]model.Attendance, error) {
	w := &where{}
	w.scope(scope)
	f.apply(w)
	limit, offset := p.limitOffset()
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+attendanceCols+" FROM attendance"+w.String()+" ORDER BY date DESC, id DESC LIMIT ? OFFSET ?",
		append(w.args, limit, offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Attendance
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Stats counts present and absent marks under scope.
func (r *AttendanceRepo) Stats(ctx context.Context, scope policy.Predicate, f AttendanceFilter) (model.AttendanceStats, error) {
	w := &where{}
	w.scope(scope)
	f.apply(w)
	var st model.AttendanceStats
	var present sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*), SUM(present) FROM attendance"+w.String(), w.args...).Scan(&st.Total, &present)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return st, err
	}
	st.Present = int(present.Int64)
	st.Absent = st.Total - st.Present
	if st.Total > 0 {
		st.Percentage = float64(st.Present) * 100 / float64(st.Total)
	}
	return st, nil
}
