package users

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

func TestUsers_UpsertGetDelete(t *testing.T) {
	db, err := localdb.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	ts := models.NewTimestamp(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, r.Upsert(ctx, &models.User{ID: "1", Username: "demo", CreatedAt: ts, UpdatedAt: ts}))
	require.NoError(t, r.Upsert(ctx, &models.User{ID: "1", Username: "renamed", CreatedAt: ts, UpdatedAt: ts}))

	u, err := r.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", u.Username)
	assert.True(t, ts.Equal(u.CreatedAt.Time))

	removed, err := r.DeleteByID(ctx, "1")
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = r.GetByID(ctx, "1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
