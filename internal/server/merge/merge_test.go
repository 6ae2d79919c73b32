package merge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dmitrijs2005/lexisync/internal/common"
	"github.com/dmitrijs2005/lexisync/internal/models"
	"github.com/dmitrijs2005/lexisync/internal/server/repositories/cards"
	"github.com/dmitrijs2005/lexisync/internal/server/repositories/reviewlogs"
	"github.com/dmitrijs2005/lexisync/internal/server/repositories/tombstones"
	"github.com/dmitrijs2005/lexisync/internal/server/repositories/users"
	"github.com/dmitrijs2005/lexisync/internal/syncproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------- test fakes --------

type fakeCards struct {
	cards.Repository
	rows map[models.ID]models.Card
	err  error
}

func (f *fakeCards) Upsert(ctx context.Context, c *models.Card) error {
	if f.err != nil {
		return f.err
	}
	if cur, ok := f.rows[c.ID]; ok && cur.UserID != c.UserID {
		return common.ErrOwnership
	}
	f.rows[c.ID] = *c
	return nil
}

func (f *fakeCards) Delete(ctx context.Context, userID, id models.ID) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	cur, ok := f.rows[id]
	if !ok || cur.UserID != userID {
		return false, nil
	}
	delete(f.rows, id)
	return true, nil
}

type fakeReviewLogs struct {
	reviewlogs.Repository
	rows map[models.ID]models.ReviewLog
}

func (f *fakeReviewLogs) Upsert(ctx context.Context, l *models.ReviewLog) error {
	f.rows[l.ID] = *l
	return nil
}

type fakeUsers struct {
	users.Repository
	rows map[models.ID]models.User
}

func (f *fakeUsers) Upsert(ctx context.Context, u *models.User) error {
	f.rows[u.ID] = *u
	return nil
}

type fakeTombstones struct {
	tombstones.Repository
	rows map[string]models.Tombstone
}

func (f *fakeTombstones) Upsert(ctx context.Context, t *models.Tombstone) error {
	f.rows[t.TableName+"/"+string(t.ID)] = *t
	return nil
}

func (f *fakeTombstones) Clear(ctx context.Context, table string, id models.ID) error {
	delete(f.rows, table+"/"+string(id))
	return nil
}

func newRepos() (*Repos, *fakeCards, *fakeReviewLogs, *fakeUsers, *fakeTombstones) {
	c := &fakeCards{rows: map[models.ID]models.Card{}}
	r := &fakeReviewLogs{rows: map[models.ID]models.ReviewLog{}}
	u := &fakeUsers{rows: map[models.ID]models.User{}}
	ts := &fakeTombstones{rows: map[string]models.Tombstone{}}
	return &Repos{Cards: c, ReviewLogs: r, Users: u, Tombstones: ts}, c, r, u, ts
}

const cardJSON = `{"id":"c7","word":"hund","meaning":"dog","due_date":"2024-03-05","created_at":"2024-03-01","updated_at":"2024-03-02"}`

func apply(t *testing.T, repos *Repos, table syncproto.Table, op syncproto.Operation, account models.ID, payload string) error {
	t.Helper()
	h, ok := NewRegistry().Lookup(table)
	require.True(t, ok)
	return h.Apply(context.Background(), repos, account, op, json.RawMessage(payload))
}

// -------- tests --------

func TestCard_AddFillsOwnerFromSession(t *testing.T) {
	repos, c, _, _, _ := newRepos()

	require.NoError(t, apply(t, repos, syncproto.TableCards, syncproto.OpAdd, "u1", cardJSON))
	assert.Equal(t, models.ID("u1"), c.rows["c7"].UserID)
	assert.Equal(t, "hund", c.rows["c7"].Word)
}

func TestCard_AddAndUpdateAreIdempotentUpserts(t *testing.T) {
	repos, c, _, _, _ := newRepos()

	for i := 0; i < 3; i++ {
		require.NoError(t, apply(t, repos, syncproto.TableCards, syncproto.OpAdd, "u1", cardJSON))
		require.NoError(t, apply(t, repos, syncproto.TableCards, syncproto.OpUpdate, "u1", cardJSON))
	}
	assert.Len(t, c.rows, 1)
}

func TestCard_ForeignOwnerInPayloadIsRejected(t *testing.T) {
	repos, c, _, _, _ := newRepos()

	err := apply(t, repos, syncproto.TableCards, syncproto.OpAdd, "u1",
		`{"id":"c7","user_id":"u2","word":"x","meaning":"y","due_date":"2024-03-05","created_at":"2024-03-01","updated_at":"2024-03-02"}`)
	require.ErrorIs(t, err, common.ErrOwnership)
	assert.True(t, IsItemError(err))
	assert.Empty(t, c.rows)
}

func TestCard_UpsertOverForeignRowIsRejected(t *testing.T) {
	repos, c, _, _, _ := newRepos()
	c.rows["c7"] = models.Card{ID: "c7", UserID: "u2", Word: "theirs"}

	err := apply(t, repos, syncproto.TableCards, syncproto.OpUpdate, "u1", cardJSON)
	require.ErrorIs(t, err, common.ErrOwnership)
	assert.True(t, IsItemError(err))
	assert.Equal(t, "theirs", c.rows["c7"].Word)
}

func TestCard_MalformedPayloadIsItemError(t *testing.T) {
	repos, _, _, _, _ := newRepos()

	err := apply(t, repos, syncproto.TableCards, syncproto.OpAdd, "u1", `{"id":"c7"}`)
	require.ErrorIs(t, err, common.ErrMalformedPayload)
	assert.True(t, IsItemError(err))
}

func TestCard_StorageErrorIsNotItemError(t *testing.T) {
	repos, c, _, _, _ := newRepos()
	c.err = errors.New("connection reset")

	err := apply(t, repos, syncproto.TableCards, syncproto.OpAdd, "u1", cardJSON)
	require.Error(t, err)
	assert.False(t, IsItemError(err))
}

func TestCard_DeleteRecordsTombstoneAndReAddClearsIt(t *testing.T) {
	repos, c, _, _, ts := newRepos()
	require.NoError(t, apply(t, repos, syncproto.TableCards, syncproto.OpAdd, "u1", cardJSON))

	require.NoError(t, apply(t, repos, syncproto.TableCards, syncproto.OpDelete, "u1", `{"id":"c7"}`))
	assert.Empty(t, c.rows)
	require.Contains(t, ts.rows, "cards/c7")
	assert.Equal(t, models.ID("u1"), ts.rows["cards/c7"].UserID)

	require.NoError(t, apply(t, repos, syncproto.TableCards, syncproto.OpAdd, "u1", cardJSON))
	assert.NotContains(t, ts.rows, "cards/c7")
}

func TestCard_DeleteMissingOrForeignIsNoop(t *testing.T) {
	repos, c, _, _, ts := newRepos()
	c.rows["c8"] = models.Card{ID: "c8", UserID: "u2"}

	require.NoError(t, apply(t, repos, syncproto.TableCards, syncproto.OpDelete, "u1", `{"id":"c7"}`))
	require.NoError(t, apply(t, repos, syncproto.TableCards, syncproto.OpDelete, "u1", `{"id":"c8"}`))
	assert.Contains(t, c.rows, models.ID("c8"))
	assert.Empty(t, ts.rows)

	err := apply(t, repos, syncproto.TableCards, syncproto.OpDelete, "u1", `{"id":"c8","user_id":"u2"}`)
	require.ErrorIs(t, err, common.ErrOwnership)
}

func TestReviewLog_Add(t *testing.T) {
	repos, _, r, _, _ := newRepos()

	require.NoError(t, apply(t, repos, syncproto.TableReviewLogs, syncproto.OpAdd, "u1",
		`{"id":"r1","card_id":"c7","review_date":"2024-03-01T10:00:00Z","rating":3}`))
	got := r.rows["r1"]
	assert.Equal(t, models.ID("u1"), got.UserID)
	assert.Equal(t, got.ReviewDate, got.CreatedAt)
}

func TestUser_OnlyOwnRecord(t *testing.T) {
	repos, _, _, u, _ := newRepos()

	require.NoError(t, apply(t, repos, syncproto.TableUsers, syncproto.OpUpdate, "u1",
		`{"id":"u1","username":"ann","created_at":"2024-01-01","updated_at":"2024-01-02"}`))
	assert.Equal(t, "ann", u.rows["u1"].Username)

	err := apply(t, repos, syncproto.TableUsers, syncproto.OpUpdate, "u1",
		`{"id":"u2","username":"eve","created_at":"2024-01-01","updated_at":"2024-01-02"}`)
	require.ErrorIs(t, err, common.ErrOwnership)
	assert.NotContains(t, u.rows, models.ID("u2"))
}

func TestUnknownOperation(t *testing.T) {
	repos, _, _, _, _ := newRepos()

	err := apply(t, repos, syncproto.TableCards, syncproto.Operation("merge"), "u1", cardJSON)
	require.ErrorIs(t, err, common.ErrUnknownOperation)
	assert.True(t, IsItemError(err))
}

func TestRegistry_Lookup(t *testing.T) {
	reg := NewRegistry()
	for _, tbl := range syncproto.Tables {
		_, ok := reg.Lookup(tbl)
		assert.True(t, ok, tbl)
	}
	_, ok := reg.Lookup("decks")
	assert.False(t, ok)
}
