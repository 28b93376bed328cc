package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardRepo_StatsUsesLedgerOccupancy(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	today := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	logged := time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE role = 'student' AND is_active = 1\),`).
		WillReturnRows(sqlmock.NewRows([]string{"students", "complaints", "maintenance", "visitors", "rating"}).
			AddRow(12, 2, 1, 3, 4.5))
	mock.ExpectQuery(`FROM rooms r LEFT JOIN \(\s*SELECT room_id, COUNT\(\*\) AS n FROM room_allocations\s*WHERE \(status = 'active' OR end_date IS NOT NULL\) AND start_date <= \? AND \(end_date IS NULL OR end_date >= \?\)\s*GROUP BY room_id\) o ON o.room_id = r.id`).
		WithArgs(today, today).
		WillReturnRows(sqlmock.NewRows([]string{"rooms", "capacity", "occupancy", "occupied", "available"}).
			AddRow(5, 9, 6, 4, 2))
	mock.ExpectQuery(`FROM payments`).
		WithArgs(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)).
		WillReturnRows(sqlmock.NewRows([]string{"a", "b", "c", "d", "e", "f", "g", "h"}).
			AddRow(6, 2, 4, 0, 0, "1200.00", "4800.00", "2400.00"))
	mock.ExpectQuery(`FROM audit_logs ORDER BY created_at DESC, id DESC LIMIT \? OFFSET \?`).
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "action", "model_name", "object_id", "description", "ip_address", "user_agent", "created_at"}).
			AddRow(7, 1, "create", "room_allocation", 3, "", "127.0.0.1", "curl", logged))

	st, err := NewDashboardRepo(db).Stats(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, 12, st.TotalStudents)
	assert.Equal(t, 5, st.TotalRooms)
	assert.Equal(t, 9, st.TotalCapacity)
	assert.Equal(t, 6, st.CurrentOccupancy)
	assert.Equal(t, 4, st.OccupiedRooms)
	assert.Equal(t, 2, st.AvailableRooms)
	assert.Equal(t, 2, st.PendingPayments)
	assert.Equal(t, "2400", st.MonthlyRevenue.String())
	assert.Equal(t, 4.5, st.AverageRating)
	require.Len(t, st.RecentActivities, 1)
	assert.Equal(t, "room_allocation", st.RecentActivities[0].ModelName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDashboardRepo_StatsEmptyHostel(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	today := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM users WHERE role = 'student'`).
		WillReturnRows(sqlmock.NewRows([]string{"students", "complaints", "maintenance", "visitors", "rating"}).
			AddRow(0, 0, 0, 0, nil))
	mock.ExpectQuery(`FROM rooms r LEFT JOIN`).
		WithArgs(today, today).
		WillReturnRows(sqlmock.NewRows([]string{"rooms", "capacity", "occupancy", "occupied", "available"}).
			AddRow(0, 0, 0, 0, 0))
	mock.ExpectQuery(`FROM payments`).
		WillReturnRows(sqlmock.NewRows([]string{"a", "b", "c", "d", "e", "f", "g", "h"}).
			AddRow(0, 0, 0, 0, 0, nil, nil, nil))
	mock.ExpectQuery(`FROM audit_logs`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "action", "model_name", "object_id", "description", "ip_address", "user_agent", "created_at"}))

	st, err := NewDashboardRepo(db).Stats(context.Background(), today)
	require.NoError(t, err)
	assert.Zero(t, st.AverageRating)
	assert.True(t, st.MonthlyRevenue.IsZero())
	assert.NotNil(t, st.RecentActivities)
	assert.Empty(t, st.RecentActivities)
}
