package cards

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/lexisync/internal/client/localdb"
	"github.com/dmitrijs2005/lexisync/internal/common"
	"github.com/dmitrijs2005/lexisync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := localdb.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLiteRepository(db)
}

func card(id, user models.ID, due time.Time) *models.Card {
	return &models.Card{
		ID:        id,
		UserID:    user,
		Word:      "word-" + string(id),
		Meaning:   "meaning",
		DueDate:   models.NewTimestamp(due),
		CreatedAt: models.NewTimestamp(base),
		UpdatedAt: models.NewTimestamp(base),
	}
}

func TestUpsert_InsertThenUpdate(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()

	c := card("c1", "1", base)
	require.NoError(t, r.Upsert(ctx, c))

	c.Meaning = "changed"
	c.Reps = 3
	c.Stability = 2.5
	c.LastReview = models.NewTimestamp(base.Add(time.Minute))
	require.NoError(t, r.Upsert(ctx, c))

	got, err := r.GetByID(ctx, "1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "changed", got.Meaning)
	assert.Equal(t, int64(3), got.Reps)
	assert.InDelta(t, 2.5, got.Stability, 1e-9)
	assert.True(t, c.LastReview.Equal(got.LastReview.Time))
	assert.True(t, c.DueDate.Equal(got.DueDate.Time))
}

func TestUpsert_ForeignRowIsOwnershipError(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, card("c1", "1", base)))

	intruder := card("c1", "2", base)
	intruder.Word = "hijacked"
	assert.ErrorIs(t, r.Upsert(ctx, intruder), common.ErrOwnership)

	got, err := r.GetByID(ctx, "1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "word-c1", got.Word)
}

func TestGetByID_NotFound(t *testing.T) {
	r := setupRepo(t)
	_, err := r.GetByID(context.Background(), "1", "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDeleteByID_Idempotent(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()
	require.NoError(t, r.Upsert(ctx, card("c1", "1", base)))

	removed, err := r.DeleteByID(ctx, "2", "c1")
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = r.DeleteByID(ctx, "1", "c1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = r.DeleteByID(ctx, "1", "c1")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestListDue(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, card("late", "1", base.Add(-time.Hour))))
	require.NoError(t, r.Upsert(ctx, card("early", "1", base.Add(-48*time.Hour))))
	require.NoError(t, r.Upsert(ctx, card("frac", "1", base.Add(-1500*time.Millisecond))))
	require.NoError(t, r.Upsert(ctx, card("future", "1", base.Add(time.Hour))))
	require.NoError(t, r.Upsert(ctx, card("other", "2", base.Add(-time.Hour))))

	now := models.NewTimestamp(base)
	due, err := r.ListDue(ctx, "1", now, 0)
	require.NoError(t, err)
	require.Len(t, due, 3)
	assert.Equal(t, models.ID("early"), due[0].ID)
	assert.Equal(t, models.ID("late"), due[1].ID)
	assert.Equal(t, models.ID("frac"), due[2].ID)

	limited, err := r.ListDue(ctx, "1", now, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, models.ID("early"), limited[0].ID)
}
