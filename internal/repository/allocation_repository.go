package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/hostel-residence/internal/ledger"
	"github.com/iliyamo/hostel-residence/internal/model"
	"github.com/iliyamo/hostel-residence/internal/policy"
)

// AllocationRepo persists the allocation ledger in MySQL and implements
// ledger.Store. Capacity checks run inside a transaction that holds
// SELECT ... FOR UPDATE locks on the room row and the occupant row, so
// concurrent creates for the same room or occupant are serialized.
type AllocationRepo struct {
	db *sql.DB
}

// NewAllocationRepo returns an AllocationRepo using the provided DB.
func NewAllocationRepo(db *sql.DB) *AllocationRepo { return &AllocationRepo{db: db} }

var _ ledger.Store = (*AllocationRepo)(nil)

const allocationCols = "a.id, a.user_id, a.room_id, a.start_date, a.end_date, a.status, a.monthly_rent, a.security_deposit, a.created_at, a.updated_at, r.number"

const allocationFrom = " FROM room_allocations a JOIN rooms r ON r.id = a.room_id"

// holdsBed matches rows that occupy a bed over their date span. A closed
// row keeps its bed until its end date.
const holdsBed = "(status = 'active' OR end_date IS NOT NULL)"

// spanClause matches rows sharing at least one day with span. The end
// bound is omitted for open-ended spans.
func spanClause(span ledger.Span) (string, []any) {
	if span.End == nil {
		return "(end_date IS NULL OR end_date >= ?)", []any{span.Start}
	}
	return "start_date <= ? AND (end_date IS NULL OR end_date >= ?)", []any{*span.End, span.Start}
}

// roomOverlap counts against capacity; occupantOverlap enforces one
// active allocation per occupant.
func roomOverlap(span ledger.Span) (string, []any) {
	clause, args := spanClause(span)
	return holdsBed + " AND " + clause, args
}

func occupantOverlap(span ledger.Span) (string, []any) {
	clause, args := spanClause(span)
	return "status = 'active' AND " + clause, args
}

func scanAllocation(row interface{ Scan(...any) error }) (model.Allocation, error) {
	var (
		a   model.Allocation
		end sql.NullTime
	)
	err := row.Scan(&a.ID, &a.UserID, &a.RoomID, &a.StartDate, &end, &a.Status, &a.MonthlyRent,
		&a.SecurityDeposit, &a.CreatedAt, &a.UpdatedAt, &a.RoomNumber)
	a.EndDate = nullTime(end)
	return a, err
}

// Begin starts a ledger transaction.
func (r *AllocationRepo) Begin(ctx context.Context) (ledger.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &allocationTx{tx: tx}, nil
}

// GetRoom loads the room referenced by an allocation request.
func (r *AllocationRepo) GetRoom(ctx context.Context, roomID uint64) (model.Room, error) {
	m, err := scanRoom(r.db.QueryRowContext(ctx, "SELECT "+roomCols+" FROM rooms r WHERE r.id = ?", roomID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Room{}, ledger.ErrRoomNotFound
	}
	return m, err
}

// Occupancy counts allocations holding a bed in roomID on asOf.
func (r *AllocationRepo) Occupancy(ctx context.Context, roomID uint64, asOf time.Time) (int, error) {
	clause, args := roomOverlap(ledger.At(asOf))
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM room_allocations WHERE room_id = ? AND "+clause,
		append([]any{roomID}, args...)...).Scan(&n)
	return n, err
}

// ListActive returns open-ended active allocations of a room by start date.
func (r *AllocationRepo) ListActive(ctx context.Context, roomID uint64) ([]model.Allocation, error) {
	return r.query(ctx,
		"SELECT "+allocationCols+allocationFrom+
			" WHERE a.room_id = ? AND a.status = 'active' AND a.end_date IS NULL ORDER BY a.start_date, a.id",
		roomID)
}

// AllocationFilter narrows List. With Status active and a non-zero AsOf,
// fixed-term rows that ended before AsOf are left out.
type AllocationFilter struct {
	Status string
	RoomID uint64
	UserID uint64
	AsOf   time.Time
}

// List returns allocations visible under scope, newest first.
func (r *AllocationRepo) List(ctx context.Context, scope policy.Predicate, f AllocationFilter, p Page) ([]model.Allocation, error) {
	w := &where{}
	w.scope(scope.Qualify("a"))
	if f.Status != "" {
		w.add("a.status = ?", f.Status)
	}
	if f.Status == model.AllocationActive && !f.AsOf.IsZero() {
		w.add("(a.end_date IS NULL OR a.end_date >= ?)", f.AsOf)
	}
	if f.RoomID != 0 {
		w.add("a.room_id = ?", f.RoomID)
	}
	if f.UserID != 0 {
		w.add("a.user_id = ?", f.UserID)
	}
	limit, offset := p.limitOffset()
	return r.query(ctx,
		"SELECT "+allocationCols+allocationFrom+w.String()+" ORDER BY a.start_date DESC, a.id DESC LIMIT ? OFFSET ?",
		append(w.args, limit, offset)...)
}

// Get returns one allocation visible under scope.
func (r *AllocationRepo) Get(ctx context.Context, scope policy.Predicate, id uint64) (model.Allocation, error) {
	w := &where{}
	w.add("a.id = ?", id)
	w.scope(scope.Qualify("a"))
	a, err := scanAllocation(r.db.QueryRowContext(ctx, "SELECT "+allocationCols+allocationFrom+w.String(), w.args...))
	return a, notFound(err)
}

// ActiveForUser returns the occupant's allocation covering asOf.
func (r *AllocationRepo) ActiveForUser(ctx context.Context, userID uint64, asOf time.Time) (model.Allocation, error) {
	a, err := scanAllocation(r.db.QueryRowContext(ctx,
		"SELECT "+allocationCols+allocationFrom+
			" WHERE a.user_id = ? AND a.status = 'active' AND a.start_date <= ? AND (a.end_date IS NULL OR a.end_date >= ?)"+
			" ORDER BY a.start_date DESC LIMIT 1",
		userID, asOf, asOf))
	return a, notFound(err)
}

func (r *AllocationRepo) query(ctx context.Context, q string, args ...any) ([]model.Allocation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Allocation
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// allocationTx runs ledger steps on one *sql.Tx.
type allocationTx struct {
	tx *sql.Tx
}

func (t *allocationTx) LockRoom(ctx context.Context, roomID uint64) (model.Room, error) {
	m, err := scanRoom(t.tx.QueryRowContext(ctx,
		"SELECT "+roomCols+" FROM rooms r WHERE r.id = ? FOR UPDATE", roomID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Room{}, ledger.ErrRoomNotFound
	}
	return m, err
}

func (t *allocationTx) LockOccupant(ctx context.Context, userID uint64) error {
	var id uint64
	err := t.tx.QueryRowContext(ctx,
		"SELECT id FROM users WHERE id = ? AND is_active = 1 FOR UPDATE", userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.ErrOccupantNotFound
	}
	return err
}

func (t *allocationTx) CountRoomOverlaps(ctx context.Context, roomID uint64, span ledger.Span) (int, error) {
	clause, args := roomOverlap(span)
	var n int
	err := t.tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM room_allocations WHERE room_id = ? AND "+clause,
		append([]any{roomID}, args...)...).Scan(&n)
	return n, err
}

func (t *allocationTx) CountOccupantOverlaps(ctx context.Context, userID uint64, span ledger.Span) (int, error) {
	clause, args := occupantOverlap(span)
	var n int
	err := t.tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM room_allocations WHERE user_id = ? AND "+clause,
		append([]any{userID}, args...)...).Scan(&n)
	return n, err
}

func (t *allocationTx) InsertAllocation(ctx context.Context, a *model.Allocation) error {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO room_allocations (user_id, room_id, start_date, end_date, status, monthly_rent, security_deposit)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, a.RoomID, a.StartDate, a.EndDate, a.Status, a.MonthlyRent, a.SecurityDeposit)
	if err != nil {
		if isDuplicateKey(err) {
			return ledger.ErrDuplicateAllocation
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	return nil
}

func (t *allocationTx) LockAllocation(ctx context.Context, id uint64) (model.Allocation, error) {
	a, err := scanAllocation(t.tx.QueryRowContext(ctx,
		"SELECT "+allocationCols+allocationFrom+" WHERE a.id = ? FOR UPDATE", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Allocation{}, ledger.ErrAllocationNotFound
	}
	return a, err
}

func (t *allocationTx) CloseAllocation(ctx context.Context, id uint64, end time.Time, status string) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE room_allocations SET end_date = ?, status = ? WHERE id = ?", end, status, id)
	return err
}

func (t *allocationTx) Commit() error   { return t.tx.Commit() }
func (t *allocationTx) Rollback() error { return t.tx.Rollback() }
