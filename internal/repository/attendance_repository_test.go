package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hostel-residence/internal/policy"
)

var attendanceColumns = []string{"id", "user_id", "date", "present", "marked_at"}

func TestAttendanceRepo_MarkPresentIsGetOrCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	at := day.Add(8 * time.Hour)
	sel := regexp.QuoteMeta("SELECT " + attendanceCols + " FROM attendance WHERE user_id = ? AND date = ?")

	mock.ExpectExec("INSERT IGNORE INTO attendance").WithArgs(uint64(7), day).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(sel).WithArgs(uint64(7), day).
		WillReturnRows(sqlmock.NewRows(attendanceColumns).AddRow(1, 7, day, true, at))
	mock.ExpectExec("INSERT IGNORE INTO attendance").WithArgs(uint64(7), day).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(sel).WithArgs(uint64(7), day).
		WillReturnRows(sqlmock.NewRows(attendanceColumns).AddRow(1, 7, day, true, at))

	r := NewAttendanceRepo(db)
	a, created, err := r.MarkPresent(context.Background(), 7, day)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, a.Present)

	again, created, err := r.MarkPresent(context.Background(), 7, day)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, a.ID, again.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepo_Stats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	scope := policy.Predicate{Clause: "user_id = ?", Args: []any{uint64(7)}}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*), SUM(present) FROM attendance WHERE (user_id = ?) AND date >= ?")).
		WithArgs(uint64(7), from).
		WillReturnRows(sqlmock.NewRows([]string{"count", "sum"}).AddRow(4, 3))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*), SUM(present) FROM attendance")).
		WillReturnRows(sqlmock.NewRows([]string{"count", "sum"}).AddRow(0, nil))

	r := NewAttendanceRepo(db)
	st, err := r.Stats(context.Background(), scope, AttendanceFilter{From: &from})
	require.NoError(t, err)
	assert.Equal(t, 4, st.Total)
	assert.Equal(t, 3, st.Present)
	assert.Equal(t, 1, st.Absent)
	assert.InDelta(t, 75.0, st.Percentage, 0.001)

	empty, err := r.Stats(context.Background(), policy.All, AttendanceFilter{})
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
	assert.Zero(t, empty.Percentage)
	assert.NoError(t, mock.ExpectationsWereMet())
}
