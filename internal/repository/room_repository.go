package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/hostel-residence/internal/model"
)

// RoomRepo manages persistence for rooms.
type RoomRepo struct {
	db *sql.DB
}

// NewRoomRepo returns a RoomRepo using the provided DB.
func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

// DB exposes the underlying sql.DB.
func (r *RoomRepo) DB() *sql.DB { return r.db }

const roomCols = "r.id, r.number, r.capacity, r.floor, r.room_type, r.status, r.monthly_rent, r.amenities, r.description, r.created_at, r.updated_at"

// occupancyJoin counts allocations holding a bed on a date, per room. It
// takes the date twice.
const occupancyJoin = ` LEFT JOIN (
	SELECT room_id, COUNT(*) AS n FROM room_allocations
	 WHERE ` + holdsBed + ` AND start_date <= ? AND (end_date IS NULL OR end_date >= ?)
	 GROUP BY room_id) o ON o.room_id = r.id`

func scanRoom(row interface{ Scan(...any) error }, extra ...any) (model.Room, error) {
	var m model.Room
	dest := []any{&m.ID, &m.Number, &m.Capacity, &m.Floor, &m.RoomType, &m.Status, &m.MonthlyRent,
		&m.Amenities, &m.Description, &m.CreatedAt, &m.UpdatedAt}
	err := row.Scan(append(dest, extra...)...)
	return m, err
}

// Create inserts a room and fills in its ID and timestamps.
func (r *RoomRepo) Create(ctx context.Context, m *model.Room) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO rooms (number, capacity, floor, room_type, status, monthly_rent, amenities, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(m.Number), m.Capacity, m.Floor, m.RoomType, m.Status, m.MonthlyRent, m.Amenities, m.Description)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*m = got
	return nil
}

// GetByID returns a room or ErrNotFound.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (model.Room, error) {
	m, err := scanRoom(r.db.QueryRowContext(ctx, "SELECT "+roomCols+" FROM rooms r WHERE r.id = ?", id))
	return m, notFound(err)
}

// Update overwrites the mutable attributes of a room.
func (r *RoomRepo) Update(ctx context.Context, m *model.Room) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE rooms SET number=?, capacity=?, floor=?, room_type=?, status=?, monthly_rent=?, amenities=?, description=?
		 WHERE id=?`,
		strings.TrimSpace(m.Number), m.Capacity, m.Floor, m.RoomType, m.Status, m.MonthlyRent, m.Amenities, m.Description, m.ID)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, m.ID); err != nil {
			return err
		}
	}
	got, err := r.GetByID(ctx, m.ID)
	if err != nil {
		return err
	}
	*m = got
	return nil
}

// SetStatus changes only the manual status flag.
func (r *RoomRepo) SetStatus(ctx context.Context, id uint64, status string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE rooms SET status=? WHERE id=?", status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_, err := r.GetByID(ctx, id)
		return err
	}
	return nil
}

// Delete removes a room that has never been allocated. Rooms referenced by
// the allocation ledger yield ErrConflict.
func (r *RoomRepo) Delete(ctx context.Context, id uint64) error {
	var refs int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM room_allocations WHERE room_id = ?", id).Scan(&refs); err != nil {
		return err
	}
	if refs > 0 {
		return ErrConflict
	}
	res, err := r.db.ExecContext(ctx, "DELETE FROM rooms WHERE id = ?", id)
	if err != nil {
		if mysqlCode(err) == mysqlRowIsReferenced {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RoomFilter narrows List.
type RoomFilter struct {
	Status        string
	RoomType      string
	Floor         *int
	OnlyAvailable bool
}

// ListWithOccupancy returns rooms with their derived occupancy on asOf,
// ordered by room number. OnlyAvailable keeps rooms with a free place.
func (r *RoomRepo) ListWithOccupancy(ctx context.Context, asOf time.Time, f RoomFilter, p Page) ([]model.RoomOccupancy, error) {
	w := &where{}
	if f.Status != "" {
		w.add("r.status = ?", f.Status)
	}
	if f.RoomType != "" {
		w.add("r.room_type = ?", f.RoomType)
	}
	if f.Floor != nil {
		w.add("r.floor = ?", *f.Floor)
	}
	if f.OnlyAvailable {
		w.add("COALESCE(o.n, 0) < r.capacity")
	}
	limit, offset := p.limitOffset()
	args := append([]any{asOf, asOf}, w.args...)
	args = append(args, limit, offset)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+roomCols+", COALESCE(o.n, 0) FROM rooms r"+occupancyJoin+w.String()+
			" ORDER BY r.number LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RoomOccupancy
	for rows.Next() {
		var n int
		m, err := scanRoom(rows, &n)
		if err != nil {
			return nil, err
		}
		out = append(out, model.RoomOccupancy{Room: m, CurrentOccupancy: n, IsAvailable: n < m.Capacity})
	}
	return out, rows.Err()
}

// Stats aggregates the inventory and its derived occupancy on asOf.
func (r *RoomRepo) Stats(ctx context.Context, asOf time.Time) (model.RoomStats, error) {
	st := model.RoomStats{ByStatus: map[string]int{}, ByType: map[string]int{}}
	rows, err := r.db.QueryContext(ctx,
		"SELECT r.status, r.room_type, COUNT(*), COALESCE(SUM(r.capacity),0), COALESCE(SUM(LEAST(COALESCE(o.n,0), r.capacity)),0) FROM rooms r"+
			occupancyJoin+" GROUP BY r.status, r.room_type", asOf, asOf)
	if err != nil {
		return st, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status, kind            string
			count, capSum, occupied int
		)
		if err := rows.Scan(&status, &kind, &count, &capSum, &occupied); err != nil {
			return st, err
		}
		st.ByStatus[status] += count
		st.ByType[kind] += count
		st.TotalRooms += count
		st.TotalCapacity += capSum
		st.CurrentOccupancy += occupied
	}
	return st, rows.Err()
}
