package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hostel-residence/internal/model"
)

var visitorColumns = []string{"id", "user_id", "visitor_name", "phone", "purpose", "visit_date", "status", "approved_by", "approved_at", "created_at"}

func TestVisitorRepo_DecideTwiceConflicts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	now := time.Now()

	mock.ExpectExec(`UPDATE visitors SET status = \?, approved_by = \?, approved_at = \? WHERE id = \? AND status = 'pending'`).
		WithArgs(model.VisitorApproved, 2, now, 6).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM visitors WHERE id = \?`).WithArgs(6).
		WillReturnRows(sqlmock.NewRows(visitorColumns).
			AddRow(6, 3, "Bob", "", "", day("2024-01-20"), model.VisitorRejected, 2, now, now))

	_, err = NewVisitorRepo(db).Decide(context.Background(), 6, 2, model.VisitorApproved, now)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVisitorRepo_DecideMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	now := time.Now()

	mock.ExpectExec(`UPDATE visitors`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM visitors WHERE id = \?`).WithArgs(6).WillReturnRows(sqlmock.NewRows(visitorColumns))

	_, err = NewVisitorRepo(db).Decide(context.Background(), 6, 2, model.VisitorApproved, now)
	assert.ErrorIs(t, err, ErrNotFound)
}
