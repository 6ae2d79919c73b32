package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/lexisync/internal/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var stamp = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func TestUpsert_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)INSERT\s+INTO\s+users\s*\(id,\s*username,\s*created_at,\s*updated_at,\s*synced_at\).*ON CONFLICT \(id\)`
	mock.ExpectExec(q).
		WithArgs("u1", "alice", stamp, stamp).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u := &models.User{ID: "u1", Username: "alice", CreatedAt: models.NewTimestamp(stamp), UpdatedAt: models.NewTimestamp(stamp)}
	if err := repo.Upsert(context.Background(), u); err != nil {
		t.Fatalf("Upsert error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsert_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT\s+INTO\s+users`).WillReturnError(errors.New("db down"))

	err := repo.Upsert(context.Background(), &models.User{ID: "u1", Username: "alice"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestDelete_OnlyOwnRecord(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	removed, err := repo.Delete(context.Background(), "u1", "u2")
	if err != nil || removed {
		t.Fatalf("foreign profile must not be deleted: removed=%v err=%v", removed, err)
	}

	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 1))
	removed, err = repo.Delete(context.Background(), "u1", "u1")
	if err != nil || !removed {
		t.Fatalf("own profile must be deleted: removed=%v err=%v", removed, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSelectChanged(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "username", "created_at", "updated_at"}).
		AddRow("u1", "alice", stamp, stamp)
	mock.ExpectQuery(`(?s)SELECT id, username, created_at, updated_at\s+FROM users\s+WHERE id = \$1`).
		WithArgs("u1", sqlmock.AnyArg()).
		WillReturnRows(rows)

	got, err := repo.SelectChanged(context.Background(), "u1", models.Epoch)
	if err != nil {
		t.Fatalf("SelectChanged error: %v", err)
	}
	if len(got) != 1 || got[0].Username != "alice" {
		t.Fatalf("unexpected users: %+v", got)
	}
}
