// Package ledger implements the room allocation ledger: who occupies which
// room over which dates, and the capacity rules that govern it.
//
// Every create and terminate runs inside a single Store transaction. The
// Store locks the room row (and the occupant row) before counting
// overlapping allocations, so two concurrent requests for the last bed are
// serialized and exactly one of them wins.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/hostel-residence/internal/model"
)

// Store is the persistence boundary of the ledger.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	GetRoom(ctx context.Context, roomID uint64) (model.Room, error)
	// Occupancy counts allocations on roomID holding a bed on asOf: active
	// ones, and closed ones whose end date is not yet behind asOf.
	Occupancy(ctx context.Context, roomID uint64, asOf time.Time) (int, error)
	// ListActive returns the room's open-ended active allocations ordered by
	// start date.
	ListActive(ctx context.Context, roomID uint64) ([]model.Allocation, error)
}

// Tx is one ledger transaction. Lock* methods must be called before the
// Count* methods that depend on them.
type Tx interface {
	LockRoom(ctx context.Context, roomID uint64) (model.Room, error)
	LockOccupant(ctx context.Context, userID uint64) error
	// CountRoomOverlaps counts allocations holding a bed in roomID on any
	// day of span, closed ones included up to their end date.
	CountRoomOverlaps(ctx context.Context, roomID uint64, span Span) (int, error)
	// CountOccupantOverlaps counts the occupant's active allocations
	// overlapping span.
	CountOccupantOverlaps(ctx context.Context, userID uint64, span Span) (int, error)
	InsertAllocation(ctx context.Context, a *model.Allocation) error
	LockAllocation(ctx context.Context, id uint64) (model.Allocation, error)
	CloseAllocation(ctx context.Context, id uint64, end time.Time, status string) error
	Commit() error
	Rollback() error
}

// CreateRequest describes a move-in. MonthlyRent and SecurityDeposit
// override the values snapshotted from the room when non-nil.
type CreateRequest struct {
	OccupantID      uint64
	RoomID          uint64
	StartDate       time.Time
	EndDate         *time.Time
	MonthlyRent     *decimal.Decimal
	SecurityDeposit *decimal.Decimal
}

// Ledger applies allocation rules on top of a Store.
type Ledger struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

// New returns a Ledger backed by store.
func New(store Store, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{store: store, log: log, now: time.Now}
}

// WithClock replaces the clock used for "today".
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Today is the current calendar date in UTC.
func (l *Ledger) Today() time.Time { return Day(l.now()) }

func (r CreateRequest) validate() (Span, error) {
	verr := &ValidationError{}
	if r.OccupantID == 0 {
		verr.Add("user_id", "is required")
	}
	if r.RoomID == 0 {
		verr.Add("room_id", "is required")
	}
	if r.MonthlyRent != nil && r.MonthlyRent.IsNegative() {
		verr.Add("monthly_rent", "must not be negative")
	}
	if r.SecurityDeposit != nil && r.SecurityDeposit.IsNegative() {
		verr.Add("security_deposit", "must not be negative")
	}
	if r.StartDate.IsZero() {
		verr.Add("start_date", "is required")
		return Span{}, verr
	}
	span, err := NewSpan(r.StartDate, r.EndDate)
	if err != nil {
		return Span{}, err
	}
	return span, verr.OrNil()
}

// Create records a new active allocation. It fails with ErrCapacityExceeded
// when the room's overlapping active allocations already fill its capacity
// and with ErrOccupantAlreadyAllocated when the occupant holds an
// overlapping active allocation elsewhere. Nothing is written on failure.
func (l *Ledger) Create(ctx context.Context, req CreateRequest) (model.Allocation, error) {
	span, err := req.validate()
	if err != nil {
		return model.Allocation{}, err
	}

	tx, err := l.store.Begin(ctx)
	if err != nil {
		return model.Allocation{}, fmt.Errorf("begin allocation tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	room, err := tx.LockRoom(ctx, req.RoomID)
	if err != nil {
		return model.Allocation{}, err
	}
	if err := tx.LockOccupant(ctx, req.OccupantID); err != nil {
		return model.Allocation{}, err
	}

	taken, err := tx.CountRoomOverlaps(ctx, room.ID, span)
	if err != nil {
		return model.Allocation{}, fmt.Errorf("count room overlaps: %w", err)
	}
	if taken >= room.Capacity {
		l.log.Info("allocation rejected: capacity exceeded",
			zap.Uint64("room_id", room.ID),
			zap.Uint64("user_id", req.OccupantID),
			zap.Int("capacity", room.Capacity),
			zap.Int("overlapping", taken),
		)
		return model.Allocation{}, ErrCapacityExceeded
	}
	held, err := tx.CountOccupantOverlaps(ctx, req.OccupantID, span)
	if err != nil {
		return model.Allocation{}, fmt.Errorf("count occupant overlaps: %w", err)
	}
	if held > 0 {
		return model.Allocation{}, ErrOccupantAlreadyAllocated
	}

	a := model.Allocation{
		UserID:          req.OccupantID,
		RoomID:          room.ID,
		StartDate:       span.Start,
		EndDate:         span.End,
		Status:          model.AllocationActive,
		MonthlyRent:     room.MonthlyRent,
		SecurityDeposit: SecurityDeposit(room.MonthlyRent),
		RoomNumber:      room.Number,
	}
	if req.MonthlyRent != nil {
		a.MonthlyRent = *req.MonthlyRent
	}
	if req.SecurityDeposit != nil {
		a.SecurityDeposit = *req.SecurityDeposit
	}
	if err := tx.InsertAllocation(ctx, &a); err != nil {
		return model.Allocation{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Allocation{}, fmt.Errorf("commit allocation: %w", err)
	}
	committed = true

	l.log.Info("allocation created",
		zap.Uint64("allocation_id", a.ID),
		zap.Uint64("room_id", a.RoomID),
		zap.Uint64("user_id", a.UserID),
		zap.Int("occupancy_before", taken),
	)
	return a, nil
}

// Terminate closes an active allocation on end. A fixed-term allocation
// can be cut short but not extended, and one whose end date has already
// passed is no longer active. The closed allocation keeps its bed through
// end, so a future end date does not free the room early. status must be
// inactive or terminated; empty means inactive.
func (l *Ledger) Terminate(ctx context.Context, id uint64, end time.Time, status string) (model.Allocation, error) {
	if status == "" {
		status = model.AllocationInactive
	}
	verr := &ValidationError{}
	if status != model.AllocationInactive && status != model.AllocationTerminated {
		verr.Add("status", "must be inactive or terminated")
	}
	if end.IsZero() {
		verr.Add("end_date", "is required")
	}
	if err := verr.OrNil(); err != nil {
		return model.Allocation{}, err
	}
	end = Day(end)

	tx, err := l.store.Begin(ctx)
	if err != nil {
		return model.Allocation{}, fmt.Errorf("begin termination tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	a, err := tx.LockAllocation(ctx, id)
	if err != nil {
		return model.Allocation{}, err
	}
	if a.Status != model.AllocationActive || (a.EndDate != nil && a.EndDate.Before(l.Today())) {
		return model.Allocation{}, ErrAllocationNotActive
	}
	if end.Before(Day(a.StartDate)) {
		return model.Allocation{}, NewValidationError("end_date", "must be on or after start_date")
	}
	if a.EndDate != nil && end.After(Day(*a.EndDate)) {
		return model.Allocation{}, NewValidationError("end_date", "must not extend a fixed-term allocation")
	}
	if err := tx.CloseAllocation(ctx, id, end, status); err != nil {
		return model.Allocation{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Allocation{}, fmt.Errorf("commit termination: %w", err)
	}
	committed = true

	a.EndDate = &end
	a.Status = status
	l.log.Info("allocation terminated",
		zap.Uint64("allocation_id", a.ID),
		zap.Uint64("room_id", a.RoomID),
		zap.String("status", status),
	)
	return a, nil
}

// ListActive returns the open-ended active allocations of a room.
func (l *Ledger) ListActive(ctx context.Context, roomID uint64) ([]model.Allocation, error) {
	if _, err := l.store.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	return l.store.ListActive(ctx, roomID)
}

// Occupancy counts the room's active allocations covering asOf.
func (l *Ledger) Occupancy(ctx context.Context, roomID uint64, asOf time.Time) (int, error) {
	return l.store.Occupancy(ctx, roomID, Day(asOf))
}

// IsAvailable reports whether the room has a free place on asOf. It is
// always recomputed from the ledger and never cached.
func (l *Ledger) IsAvailable(ctx context.Context, roomID uint64, asOf time.Time) (bool, error) {
	st, err := l.RoomStatus(ctx, roomID, asOf)
	if err != nil {
		return false, err
	}
	return st.IsAvailable, nil
}

// RoomStatus returns the room together with its derived occupancy on asOf.
func (l *Ledger) RoomStatus(ctx context.Context, roomID uint64, asOf time.Time) (model.RoomOccupancy, error) {
	room, err := l.store.GetRoom(ctx, roomID)
	if err != nil {
		return model.RoomOccupancy{}, err
	}
	n, err := l.store.Occupancy(ctx, roomID, Day(asOf))
	if err != nil {
		return model.RoomOccupancy{}, err
	}
	return model.RoomOccupancy{Room: room, CurrentOccupancy: n, IsAvailable: n < room.Capacity}, nil
}

// Quote runs CalculateRent against the room's current monthly rent.
func (l *Ledger) Quote(ctx context.Context, roomID uint64, start time.Time, end *time.Time) (decimal.Decimal, error) {
	room, err := l.store.GetRoom(ctx, roomID)
	if err != nil {
		return decimal.Zero, err
	}
	return CalculateRent(room.MonthlyRent, start, end)
}
