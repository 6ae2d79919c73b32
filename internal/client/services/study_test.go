package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/lexisync/internal/client/localdb"
	"github.com/dmitrijs2005/lexisync/internal/client/repositories/queue"
	"github.com/dmitrijs2005/lexisync/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/lexisync/internal/client/scheduler"
	"github.com/dmitrijs2005/lexisync/internal/common"
	"github.com/dmitrijs2005/lexisync/internal/dbx"
	"github.com/dmitrijs2005/lexisync/internal/models"
	"github.com/dmitrijs2005/lexisync/internal/syncproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func setup(t *testing.T, m repomanager.RepositoryManager) (*studyService, *sql.DB) {
	t.Helper()
	db, err := localdb.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	if m == nil {
		m = repomanager.NewSQLiteRepositoryManager()
	}
	s := NewStudyService(db, m, scheduler.NewFSRS()).(*studyService)
	s.now = func() time.Time { return fixedNow }
	return s, db
}

func snapshot(t *testing.T, db *sql.DB, account models.ID) []queue.Record {
	t.Helper()
	recs, err := queue.NewSQLiteRepository(db).Snapshot(context.Background(), account, 0)
	require.NoError(t, err)
	return recs
}

func TestAddCard_WritesAndEnqueues(t *testing.T) {
	s, db := setup(t, nil)
	ctx := context.Background()

	c, err := s.AddCard(ctx, "1", " hello ", "greeting", "hello there")
	require.NoError(t, err)
	assert.Equal(t, "hello", c.Word)
	assert.Equal(t, models.ID("1"), c.UserID)
	assert.True(t, c.DueDate.Equal(fixedNow))

	recs := snapshot(t, db, "1")
	require.Len(t, recs, 1)
	assert.Equal(t, syncproto.TableCards, recs[0].TableName)
	assert.Equal(t, syncproto.OpAdd, recs[0].Operation)
	assert.Equal(t, c.ID, recs[0].EntityID)

	decoded, err := models.DecodeCard(recs[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, c.ID, decoded.ID)
	assert.Equal(t, "greeting", decoded.Meaning)
}

func TestAddCard_Validation(t *testing.T) {
	s, db := setup(t, nil)
	_, err := s.AddCard(context.Background(), "1", "", "x", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, snapshot(t, db, "1"))
}

func TestReview_UpdatesCardLogsAndQueuesInOrder(t *testing.T) {
	s, db := setup(t, nil)
	ctx := context.Background()

	c, err := s.AddCard(ctx, "1", "hello", "greeting", "")
	require.NoError(t, err)

	card, log, err := s.Review(ctx, "1", c.ID, scheduler.Good)
	require.NoError(t, err)
	assert.Equal(t, int64(1), card.Reps)
	assert.NotEmpty(t, log.ID)
	assert.Equal(t, c.ID, log.CardID)

	logs, err := repomanager.NewSQLiteRepositoryManager().ReviewLogs(db).ListByCard(ctx, "1", c.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, scheduler.Good, logs[0].Rating)

	recs := snapshot(t, db, "1")
	require.Len(t, recs, 3)
	assert.Equal(t, syncproto.OpUpdate, recs[1].Operation)
	assert.Equal(t, syncproto.TableCards, recs[1].TableName)
	assert.Equal(t, syncproto.TableReviewLogs, recs[2].TableName)
	assert.Equal(t, syncproto.OpAdd, recs[2].Operation)

	decoded, err := models.DecodeReviewLog(recs[2].Payload)
	require.NoError(t, err)
	assert.Equal(t, log.ID, decoded.ID)
}

func TestReview_Errors(t *testing.T) {
	s, db := setup(t, nil)
	ctx := context.Background()

	_, _, err := s.Review(ctx, "1", "missing", scheduler.Good)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	c, err := s.AddCard(ctx, "1", "hello", "greeting", "")
	require.NoError(t, err)

	// Another account cannot review it.
	_, _, err = s.Review(ctx, "2", c.ID, scheduler.Good)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, _, err = s.Review(ctx, "1", c.ID, 9)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Len(t, snapshot(t, db, "1"), 1)
}

func TestDeleteCard(t *testing.T) {
	s, db := setup(t, nil)
	ctx := context.Background()

	c, err := s.AddCard(ctx, "1", "hello", "greeting", "")
	require.NoError(t, err)
	require.NoError(t, s.DeleteCard(ctx, "1", c.ID))

	recs := snapshot(t, db, "1")
	require.Len(t, recs, 2)
	assert.Equal(t, syncproto.OpDelete, recs[1].Operation)
	var ref models.Ref
	require.NoError(t, json.Unmarshal(recs[1].Payload, &ref))
	assert.Equal(t, models.Ref{ID: c.ID, UserID: "1"}, ref)

	assert.ErrorIs(t, s.DeleteCard(ctx, "1", c.ID), common.ErrorNotFound)
}

func TestSetProfile_AddThenUpdate(t *testing.T) {
	s, db := setup(t, nil)
	ctx := context.Background()

	u, err := s.SetProfile(ctx, "1", "demo")
	require.NoError(t, err)
	assert.Equal(t, models.ID("1"), u.ID)

	later := fixedNow.Add(time.Hour)
	s.now = func() time.Time { return later }
	u2, err := s.SetProfile(ctx, "1", "renamed")
	require.NoError(t, err)
	assert.True(t, u2.CreatedAt.Equal(fixedNow))
	assert.True(t, u2.UpdatedAt.Equal(later))

	recs := snapshot(t, db, "1")
	require.Len(t, recs, 2)
	assert.Equal(t, syncproto.OpAdd, recs[0].Operation)
	assert.Equal(t, syncproto.OpUpdate, recs[1].Operation)
	assert.Equal(t, syncproto.TableUsers, recs[1].TableName)
}

func TestDue(t *testing.T) {
	s, _ := setup(t, nil)
	ctx := context.Background()

	c, err := s.AddCard(ctx, "1", "hello", "greeting", "")
	require.NoError(t, err)
	_, err = s.AddCard(ctx, "2", "other", "account", "")
	require.NoError(t, err)

	due, err := s.Due(ctx, "1", 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, c.ID, due[0].ID)
}

type failingQueue struct {
	queue.Repository
}

func (failingQueue) Enqueue(context.Context, *queue.Record) (int64, error) {
	return 0, errors.New("disk full")
}

type failingQueueManager struct {
	repomanager.RepositoryManager
}

func (failingQueueManager) Queue(dbx.DBTX) queue.Repository { return failingQueue{} }

func TestAddCard_EnqueueFailureRollsBackWrite(t *testing.T) {
	s, db := setup(t, failingQueueManager{repomanager.NewSQLiteRepositoryManager()})
	ctx := context.Background()

	_, err := s.AddCard(ctx, "1", "hello", "greeting", "")
	require.ErrorContains(t, err, "disk full")

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM cards`).Scan(&n))
	assert.Zero(t, n)
}
