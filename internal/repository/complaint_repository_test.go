package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hostel-residence/internal/model"
	"github.com/iliyamo/hostel-residence/internal/policy"
)

var complaintColumns = []string{"id", "user_id", "room_id", "title", "description", "status", "created_at", "updated_at"}

func TestComplaintRepo_CreateOpensComplaint(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	now := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)
	room := uint64(2)

	mock.ExpectExec(`INSERT INTO complaints \(user_id, room_id, title, description, status\)`).
		WithArgs(3, 2, "Leaking tap", "Drips all night", model.ComplaintOpen).
		WillReturnResult(sqlmock.NewResult(8, 1))
	mock.ExpectQuery(`FROM complaints WHERE id = \?`).
		WithArgs(8).
		WillReturnRows(sqlmock.NewRows(complaintColumns).
			AddRow(8, 3, 2, "Leaking tap", "Drips all night", model.ComplaintOpen, now, now))

	c := model.Complaint{UserID: 3, RoomID: &room, Title: "Leaking tap", Description: "Drips all night"}
	require.NoError(t, NewComplaintRepo(db).Create(context.Background(), &c))
	assert.Equal(t, uint64(8), c.ID)
	assert.Equal(t, model.ComplaintOpen, c.Status)
	require.NotNil(t, c.RoomID)
	assert.Equal(t, uint64(2), *c.RoomID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplaintRepo_CreateUnknownRoom(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO complaints`).
		WillReturnError(&mysql.MySQLError{Number: 1452, Message: "foreign key"})

	room := uint64(99)
	err = NewComplaintRepo(db).Create(context.Background(), &model.Complaint{UserID: 3, RoomID: &room, Title: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestComplaintRepo_ListScopedWithStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	scope, err := policy.Scope(policy.Actor{ID: 3, Role: model.RoleStudent}, policy.Complaints)
	require.NoError(t, err)

	mock.ExpectQuery(`FROM complaints WHERE \(user_id = \?\) AND status = \? ORDER BY created_at DESC, id DESC LIMIT \? OFFSET \?`).
		WithArgs(3, model.ComplaintOpen, DefaultPageSize, 0).
		WillReturnRows(sqlmock.NewRows(complaintColumns).
			AddRow(8, 3, nil, "Noise", "", model.ComplaintOpen, time.Now(), time.Now()))

	got, err := NewComplaintRepo(db).List(context.Background(), scope, model.ComplaintOpen, Page{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].RoomID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
