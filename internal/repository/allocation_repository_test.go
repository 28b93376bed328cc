package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/hostel-residence/internal/ledger"
	"github.com/iliyamo/hostel-residence/internal/model"
	"github.com/iliyamo/hostel-residence/internal/policy"
)

var roomColumns = []string{"id", "number", "capacity", "floor", "room_type", "status", "monthly_rent", "amenities", "description", "created_at", "updated_at"}

var allocationColumns = []string{"id", "user_id", "room_id", "start_date", "end_date", "status", "monthly_rent", "security_deposit", "created_at", "updated_at", "number"}

func setupAllocationRepo(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *AllocationRepo, *ledger.Ledger) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	repo := NewAllocationRepo(db)
	l := ledger.New(repo, zap.NewNop()).WithClock(func() time.Time {
		return time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC)
	})
	return db, mock, repo, l
}

func day(s string) time.Time {
	d, err := ledger.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func roomRow(capacity int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(roomColumns).
		AddRow(1, "101", capacity, 1, "double", "available", "1200.00", "wifi", "", now, now)
}

func TestLedgerCreate_MySQL_Success(t *testing.T) {
	db, mock, _, l := setupAllocationRepo(t)
	defer db.Close()
	start := day("2024-02-02")

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM rooms r WHERE r.id = \? FOR UPDATE`).
		WithArgs(1).
		WillReturnRows(roomRow(2))
	mock.ExpectQuery(`SELECT id FROM users WHERE id = \? AND is_active = 1 FOR UPDATE`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM room_allocations WHERE room_id = \? AND \(status = 'active' OR end_date IS NOT NULL\) AND \(end_date IS NULL OR end_date >= \?\)`).
		WithArgs(1, start).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM room_allocations WHERE user_id = \? AND status = 'active'`).
		WithArgs(3, start).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO room_allocations`).
		WithArgs(3, 1, start, nil, "active", "1200", "2400").
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectCommit()

	a, err := l.Create(context.Background(), ledger.CreateRequest{OccupantID: 3, RoomID: 1, StartDate: start})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), a.ID)
	assert.Equal(t, "101", a.RoomNumber)
	assert.Equal(t, "2400", a.SecurityDeposit.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerCreate_MySQL_CapacityExceededRollsBack(t *testing.T) {
	db, mock, _, l := setupAllocationRepo(t)
	defer db.Close()
	start, end := day("2024-01-01"), day("2024-03-31")

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(1).WillReturnRows(roomRow(2))
	mock.ExpectQuery(`FROM users WHERE id = \? AND is_active = 1 FOR UPDATE`).WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectQuery(`start_date <= \? AND \(end_date IS NULL OR end_date >= \?\)`).
		WithArgs(1, end, start).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
	mock.ExpectRollback()

	_, err := l.Create(context.Background(), ledger.CreateRequest{OccupantID: 5, RoomID: 1, StartDate: start, EndDate: &end})
	assert.ErrorIs(t, err, ledger.ErrCapacityExceeded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerCreate_MySQL_UnknownRoom(t *testing.T) {
	db, mock, _, l := setupAllocationRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(9).WillReturnRows(sqlmock.NewRows(roomColumns))
	mock.ExpectRollback()

	_, err := l.Create(context.Background(), ledger.CreateRequest{OccupantID: 5, RoomID: 9, StartDate: day("2024-01-01")})
	assert.ErrorIs(t, err, ledger.ErrRoomNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerCreate_MySQL_DuplicateKey(t *testing.T) {
	db, mock, _, l := setupAllocationRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(1).WillReturnRows(roomRow(3))
	mock.ExpectQuery(`FROM users`).WithArgs(3).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectQuery(`WHERE room_id = \?`).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectQuery(`WHERE user_id = \?`).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO room_allocations`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	_, err := l.Create(context.Background(), ledger.CreateRequest{OccupantID: 3, RoomID: 1, StartDate: day("2024-01-01")})
	assert.ErrorIs(t, err, ledger.ErrDuplicateAllocation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerTerminate_MySQL(t *testing.T) {
	db, mock, _, l := setupAllocationRepo(t)
	defer db.Close()
	now := time.Now()
	end := day("2024-02-01")

	mock.ExpectBegin()
	mock.ExpectQuery(`WHERE a.id = \? FOR UPDATE`).WithArgs(7).
		WillReturnRows(sqlmock.NewRows(allocationColumns).
			AddRow(7, 3, 1, day("2024-01-01"), nil, "active", "1200.00", "2400.00", now, now, "101"))
	mock.ExpectExec(`UPDATE room_allocations SET end_date = \?, status = \? WHERE id = \?`).
		WithArgs(end, "terminated", 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	a, err := l.Terminate(context.Background(), 7, end, model.AllocationTerminated)
	require.NoError(t, err)
	assert.Equal(t, model.AllocationTerminated, a.Status)
	assert.Equal(t, end, *a.EndDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerTerminate_MySQL_AlreadyClosed(t *testing.T) {
	db, mock, _, l := setupAllocationRepo(t)
	defer db.Close()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`WHERE a.id = \? FOR UPDATE`).WithArgs(7).
		WillReturnRows(sqlmock.NewRows(allocationColumns).
			AddRow(7, 3, 1, day("2024-01-01"), day("2024-01-10"), "inactive", "1200.00", "2400.00", now, now, "101"))
	mock.ExpectRollback()

	_, err := l.Terminate(context.Background(), 7, day("2024-02-01"), "")
	assert.ErrorIs(t, err, ledger.ErrAllocationNotActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepo_OccupancyAndListActive(t *testing.T) {
	db, mock, repo, _ := setupAllocationRepo(t)
	defer db.Close()
	asOf := day("2024-01-15")
	now := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM room_allocations WHERE room_id = \? AND \(status = 'active' OR end_date IS NOT NULL\) AND start_date <= \?`).
		WithArgs(1, asOf, asOf).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
	mock.ExpectQuery(`a.end_date IS NULL ORDER BY a.start_date, a.id`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(allocationColumns).
			AddRow(1, 3, 1, day("2024-01-01"), nil, "active", "1200.00", "2400.00", now, now, "101").
			AddRow(2, 4, 1, day("2024-01-05"), nil, "active", "1200.00", "2400.00", now, now, "101"))

	n, err := repo.Occupancy(context.Background(), 1, asOf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, err := repo.ListActive(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Nil(t, list[0].EndDate)
	assert.Equal(t, uint64(4), list[1].UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepo_ListAppliesScope(t *testing.T) {
	db, mock, repo, _ := setupAllocationRepo(t)
	defer db.Close()

	scope, err := policy.Scope(policy.Actor{ID: 3, Role: model.RoleStudent}, policy.Allocations)
	require.NoError(t, err)

	mock.ExpectQuery(`WHERE \(a.user_id = \?\) AND a.status = \? ORDER BY a.start_date DESC`).
		WithArgs(3, "active", 50, 0).
		WillReturnRows(sqlmock.NewRows(allocationColumns))

	list, err := repo.List(context.Background(), scope, AllocationFilter{Status: "active"}, Page{})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepo_ListActiveSkipsEndedTerms(t *testing.T) {
	db, mock, repo, _ := setupAllocationRepo(t)
	defer db.Close()
	today := day("2024-01-15")
	now := time.Now()

	mock.ExpectQuery(`WHERE a.status = \? AND \(a.end_date IS NULL OR a.end_date >= \?\) ORDER BY a.start_date DESC`).
		WithArgs("active", today, 50, 0).
		WillReturnRows(sqlmock.NewRows(allocationColumns).
			AddRow(1, 3, 1, day("2024-01-01"), day("2024-01-31"), "active", "1200.00", "2400.00", now, now, "101"))
	mock.ExpectQuery(`WHERE a.status = \? ORDER BY a.start_date DESC`).
		WithArgs("inactive", 50, 0).
		WillReturnRows(sqlmock.NewRows(allocationColumns))

	list, err := repo.List(context.Background(), policy.All, AllocationFilter{Status: "active", AsOf: today}, Page{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "2024-01-31", list[0].EndDate.Format(ledger.DateLayout))

	_, err = repo.List(context.Background(), policy.All, AllocationFilter{Status: "inactive", AsOf: today}, Page{})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
