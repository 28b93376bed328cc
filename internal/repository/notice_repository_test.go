package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hostel-residence/internal/model"
	"github.com/iliyamo/hostel-residence/internal/policy"
)

var noticeColumns = []string{"id", "title", "content", "priority", "target_audience", "is_active", "created_by", "created_at", "updated_at"}

func TestNoticeRepo_ListStudentAudienceByPriority(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	now := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)

	scope, err := policy.Scope(policy.Actor{ID: 3, Role: model.RoleStudent}, policy.Notices)
	require.NoError(t, err)

	mock.ExpectQuery(`FROM notices WHERE \(is_active = 1 AND target_audience IN \(\?, \?\)\) ORDER BY FIELD\(priority, 'urgent', 'high', 'medium', 'low'\), created_at DESC`).
		WithArgs(model.RoleStudent, model.AudienceAll, DefaultPageSize, 0).
		WillReturnRows(sqlmock.NewRows(noticeColumns).
			AddRow(2, "Water off", "Tuesday 9-11", "urgent", "all", true, 1, now, now).
			AddRow(1, "Quiet hours", "From 22:00", "low", "student", true, 1, now, now))

	got, err := NewNoticeRepo(db).List(context.Background(), scope, Page{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "urgent", got[0].Priority)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoticeRepo_UpdateMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM notices WHERE id = \?`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(noticeColumns))

	err = NewNoticeRepo(db).Update(context.Background(), &model.Notice{ID: 5, Title: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoticeRepo_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewNoticeRepo(db)

	mock.ExpectExec(`DELETE FROM notices WHERE id = \?`).WithArgs(5).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM notices WHERE id = \?`).WithArgs(5).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), 5))
	assert.ErrorIs(t, repo.Delete(context.Background(), 5), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
