package reviewlogs

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/lexisync/internal/common"
	"github.com/dmitrijs2005/lexisync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var reviewed = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func sampleLog() *models.ReviewLog {
	ts := models.NewTimestamp(reviewed)
	return &models.ReviewLog{
		ID: "r1", CardID: "c7", UserID: "u1", ReviewDate: ts, Rating: 3,
		ScheduledDays: 4, State: 2, CreatedAt: ts, UpdatedAt: ts,
	}
}

const upsertRe = `(?s)INSERT INTO review_logs .* ON CONFLICT \(id\)\s+DO UPDATE SET .* WHERE review_logs\.user_id = EXCLUDED\.user_id;`

func TestUpsert(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(upsertRe).
		WithArgs("r1", "c7", "u1", reviewed, int64(3), int64(0), int64(4), int64(2), nil, reviewed, reviewed).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(upsertRe).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(upsertRe).WillReturnError(errors.New("db down"))

	require.NoError(t, repo.Upsert(context.Background(), sampleLog()))
	require.ErrorIs(t, repo.Upsert(context.Background(), sampleLog()), common.ErrOwnership)

	err := repo.Upsert(context.Background(), sampleLog())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM review_logs WHERE id = \$1 AND user_id = \$2`).
		WithArgs("r1", "u1").WillReturnResult(sqlmock.NewResult(0, 1))

	removed, err := repo.Delete(context.Background(), "u1", "r1")
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestSelectChanged(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"id", "card_id", "user_id", "review_date", "rating", "elapsed_days", "scheduled_days",
		"state", "due_date", "created_at", "updated_at",
	}).AddRow("r1", "c7", "u1", reviewed, 3, 0, 4, 2, nil, reviewed, reviewed)

	mock.ExpectQuery(`(?s)SELECT .* FROM review_logs\s+WHERE user_id = \$1`).
		WithArgs("u1", sqlmock.AnyArg()).
		WillReturnRows(rows)

	got, err := repo.SelectChanged(context.Background(), "u1", models.Epoch)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.ID("c7"), got[0].CardID)
	assert.Equal(t, 3, got[0].Rating)
	assert.True(t, got[0].DueDate.IsZero())
}
