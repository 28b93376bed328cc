package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/hostel-residence/internal/model"
	"github.com/iliyamo/hostel-residence/internal/policy"
)

var userColumns = []string{"id", "email", "password_hash", "role", "full_name", "phone", "date_of_birth", "address", "emergency_contact", "is_active", "email_verified", "phone_verified", "created_at", "updated_at"}

func TestUserRepo_CreateNormalizesEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("amy@example.com", sqlmock.AnyArg(), model.RoleStudent, "Amy", "").
		WillReturnResult(sqlmock.NewResult(11, 1))

	id, err := NewUserRepo(db).Create(context.Background(),
		NewUser{Email: "  Amy@Example.com ", Password: "secret123", Role: model.RoleStudent, FullName: "Amy"}, bcrypt.MinCost)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_CreateDuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err = NewUserRepo(db).Create(context.Background(),
		NewUser{Email: "amy@example.com", Password: "secret123", Role: model.RoleStudent}, bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestUserRepo_GetOutsideScopeIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	scope, err := policy.Scope(policy.Actor{ID: 3, Role: model.RoleStudent}, policy.Users)
	require.NoError(t, err)

	mock.ExpectQuery(`FROM users WHERE id = \? AND \(id = \?\) LIMIT 1`).
		WithArgs(9, 3).
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err = NewUserRepo(db).Get(context.Background(), scope, 9)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	now := time.Now()

	mock.ExpectQuery(`FROM users WHERE email=\? LIMIT 1`).
		WithArgs("amy@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(3, "amy@example.com", "hash", "student", "Amy", "", nil, "", "", true, false, false, now, now))

	u, err := NewUserRepo(db).GetByEmail(context.Background(), "AMY@example.com")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), u.ID)
	assert.Nil(t, u.DateOfBirth)
	assert.True(t, u.IsActive)
}

func TestUserRepo_StatsVerificationRate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\),.*SUM\(email_verified\).*FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"total", "students", "admins", "wardens", "active", "emails", "phones"}).
			AddRow(3, 2, 1, 0, 3, 2, 1))

	s, err := NewUserRepo(db).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Students)
	assert.Equal(t, 1, s.VerifiedPhones)
	assert.Equal(t, 66.67, s.VerificationRate)
}

func TestUserRepo_StatsEmptyTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"total", "students", "admins", "wardens", "active", "emails", "phones"}).
			AddRow(0, 0, 0, 0, 0, 0, 0))

	s, err := NewUserRepo(db).Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, s.VerificationRate)
}

func TestUserRepo_VerifyEmailMissingUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE users SET email_verified=1 WHERE id=\?`).
		WithArgs(42).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT 1 FROM users WHERE id=\?`).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	err = NewUserRepo(db).VerifyEmail(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_VerifyPhone(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE users SET phone_verified=1 WHERE id=\?`).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewUserRepo(db).VerifyPhone(context.Background(), 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}
