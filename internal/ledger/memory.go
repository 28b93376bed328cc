package ledger

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/hostel-residence/internal/model"
)

var errTxDone = errors.New("transaction already finished")

// MemoryStore is a Store kept in process memory. A transaction holds the
// store-wide lock from Begin until Commit or Rollback, which makes every
// transaction serializable. Writes are staged and only applied on Commit.
type MemoryStore struct {
	mu      sync.Mutex
	rooms   map[uint64]model.Room
	users   map[uint64]bool
	allocs  []model.Allocation
	nextID  uint64
	nowFunc func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:   map[uint64]model.Room{},
		users:   map[uint64]bool{},
		nowFunc: time.Now,
	}
}

// PutRoom inserts or replaces a room.
func (s *MemoryStore) PutRoom(r model.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[r.ID] = r
}

// PutOccupant registers a user; inactive users cannot be allocated.
func (s *MemoryStore) PutOccupant(id uint64, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = active
}

// Allocations returns a copy of every committed allocation.
func (s *MemoryStore) Allocations() []model.Allocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Allocation, len(s.allocs))
	copy(out, s.allocs)
	return out
}

func (s *MemoryStore) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	return &memoryTx{s: s, closes: map[uint64]model.Allocation{}}, nil
}

func (s *MemoryStore) GetRoom(_ context.Context, roomID uint64) (model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return model.Room{}, ErrRoomNotFound
	}
	return r, nil
}

func (s *MemoryStore) Occupancy(_ context.Context, roomID uint64, asOf time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return countOverlaps(s.allocs, func(a model.Allocation) bool { return a.RoomID == roomID && holdsBed(a) }, At(asOf)), nil
}

func (s *MemoryStore) ListActive(_ context.Context, roomID uint64) ([]model.Allocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Allocation
	for _, a := range s.allocs {
		if a.RoomID == roomID && a.Status == model.AllocationActive && a.EndDate == nil {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func spanOf(a model.Allocation) Span {
	return Span{Start: Day(a.StartDate), End: a.EndDate}
}

// holdsBed reports whether a occupies a bed over its span. A closed
// allocation keeps its bed until its end date.
func holdsBed(a model.Allocation) bool {
	return a.Status == model.AllocationActive || a.EndDate != nil
}

func countOverlaps(allocs []model.Allocation, match func(model.Allocation) bool, span Span) int {
	n := 0
	for _, a := range allocs {
		if match(a) && spanOf(a).Overlaps(span) {
			n++
		}
	}
	return n
}

type memoryTx struct {
	s       *MemoryStore
	inserts []model.Allocation
	closes  map[uint64]model.Allocation
	done    bool
}

// view is the committed state with this transaction's staged writes applied.
func (t *memoryTx) view() []model.Allocation {
	out := make([]model.Allocation, 0, len(t.s.allocs)+len(t.inserts))
	for _, a := range t.s.allocs {
		if c, ok := t.closes[a.ID]; ok {
			a = c
		}
		out = append(out, a)
	}
	return append(out, t.inserts...)
}

func (t *memoryTx) LockRoom(_ context.Context, roomID uint64) (model.Room, error) {
	r, ok := t.s.rooms[roomID]
	if !ok {
		return model.Room{}, ErrRoomNotFound
	}
	return r, nil
}

func (t *memoryTx) LockOccupant(_ context.Context, userID uint64) error {
	if active, ok := t.s.users[userID]; !ok || !active {
		return ErrOccupantNotFound
	}
	return nil
}

func (t *memoryTx) CountRoomOverlaps(_ context.Context, roomID uint64, span Span) (int, error) {
	return countOverlaps(t.view(), func(a model.Allocation) bool { return a.RoomID == roomID && holdsBed(a) }, span), nil
}

func (t *memoryTx) CountOccupantOverlaps(_ context.Context, userID uint64, span Span) (int, error) {
	return countOverlaps(t.view(), func(a model.Allocation) bool {
		return a.UserID == userID && a.Status == model.AllocationActive
	}, span), nil
}

func (t *memoryTx) InsertAllocation(_ context.Context, a *model.Allocation) error {
	for _, b := range t.view() {
		if b.UserID == a.UserID && b.RoomID == a.RoomID && Day(b.StartDate).Equal(Day(a.StartDate)) {
			return ErrDuplicateAllocation
		}
	}
	t.s.nextID++
	now := t.s.nowFunc().UTC()
	a.ID = t.s.nextID
	a.CreatedAt, a.UpdatedAt = now, now
	t.inserts = append(t.inserts, *a)
	return nil
}

func (t *memoryTx) LockAllocation(_ context.Context, id uint64) (model.Allocation, error) {
	for _, a := range t.view() {
		if a.ID == id {
			return a, nil
		}
	}
	return model.Allocation{}, ErrAllocationNotFound
}

func (t *memoryTx) CloseAllocation(ctx context.Context, id uint64, end time.Time, status string) error {
	a, err := t.LockAllocation(ctx, id)
	if err != nil {
		return err
	}
	a.EndDate = &end
	a.Status = status
	a.UpdatedAt = t.s.nowFunc().UTC()
	t.closes[id] = a
	return nil
}

func (t *memoryTx) Commit() error {
	if t.done {
		return errTxDone
	}
	t.done = true
	t.s.allocs = t.view()
	t.s.mu.Unlock()
	return nil
}

func (t *memoryTx) Rollback() error {
	if t.done {
		return errTxDone
	}
	t.done = true
	t.s.mu.Unlock()
	return nil
}
