package repo

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	dom "todocalendar/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPGCalendarRepo_InsertDefault(t *testing.T) {
	ctx := context.Background()
	cal := dom.Calendar{UserID: 1, Name: dom.DefaultCalendarName, Color: dom.DefaultColor}

	t.Run("created", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(`INSERT INTO calendars .* ON CONFLICT DO NOTHING RETURNING id`).
			WithArgs(int64(1), dom.DefaultCalendarName, nil, dom.DefaultColor).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))

		id, created, err := NewPGCalendarRepo(db).InsertDefault(ctx, cal)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, int64(12), id)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lost the race", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(`ON CONFLICT DO NOTHING`).WillReturnError(sql.ErrNoRows)

		_, created, err := NewPGCalendarRepo(db).InsertDefault(ctx, cal)
		require.NoError(t, err)
		assert.False(t, created)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPGCalendarRepo_ClearDefault(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec(`UPDATE calendars SET is_default = \$1, updated_at = NOW\(\) WHERE is_default = \$2 AND user_id = \$3 AND id <> \$4`).
		WithArgs(false, true, int64(1), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, NewPGCalendarRepo(db).ClearDefault(context.Background(), 1, 5))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGCalendarRepo_InTx(t *testing.T) {
	ctx := context.Background()

	t.Run("default conflict rolls back", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE calendars SET is_default`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO calendars`).WillReturnError(uniqueViolation(ConstraintCalendarDefault))
		mock.ExpectRollback()

		err := NewPGCalendarRepo(db).InTx(ctx, func(r CalendarRepo) error {
			if err := r.ClearDefault(ctx, 1, 0); err != nil {
				return err
			}
			_, err := r.Create(ctx, dom.Calendar{UserID: 1, Name: "Work", Color: dom.DefaultColor, IsDefault: true})
			return err
		})
		assert.True(t, IsConstraint(err, ConstraintCalendarDefault))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("commit", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE calendars SET is_default`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`UPDATE calendars SET name`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := NewPGCalendarRepo(db).InTx(ctx, func(r CalendarRepo) error {
			if err := r.ClearDefault(ctx, 1, 3); err != nil {
				return err
			}
			return r.Update(ctx, dom.Calendar{ID: 3, UserID: 1, Name: "Work", Color: dom.DefaultColor, IsDefault: true})
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPGCalendarRepo_PromoteToDefaultMissing(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`UPDATE calendars SET is_default = TRUE`).
		WithArgs(int64(1), dom.DefaultCalendarName).
		WillReturnError(sql.ErrNoRows)

	_, err := NewPGCalendarRepo(db).PromoteToDefault(context.Background(), 1, dom.DefaultCalendarName)
	assert.True(t, errors.Is(err, ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}
