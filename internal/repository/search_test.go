package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchRepo_MatchesUsersAndRooms(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM users\s+WHERE LOWER\(email\) LIKE \? OR LOWER\(full_name\) LIKE \? OR LOWER\(phone\) LIKE \?`).
		WithArgs("%10\\_1%", "%10\\_1%", "%10\\_1%", SearchLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "full_name", "phone", "role"}).
			AddRow(3, "amy@example.com", "Amy", "10_1", "student"))
	mock.ExpectQuery(`FROM rooms\s+WHERE LOWER\(number\) LIKE \?`).
		WithArgs("%10\\_1%", "%10\\_1%", "%10\\_1%", SearchLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "number", "room_type", "floor", "status"}))

	res, err := NewSearchRepo(db).Search(context.Background(), "  10_1 ")
	require.NoError(t, err)
	require.Len(t, res.Users, 1)
	assert.Equal(t, "Amy", res.Users[0].FullName)
	assert.NotNil(t, res.Rooms)
	assert.Empty(t, res.Rooms)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchRepo_BlankQuerySkipsDatabase(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	res, err := NewSearchRepo(db).Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, res.Users)
	assert.Empty(t, res.Rooms)
	assert.NoError(t, mock.ExpectationsWereMet())
}
