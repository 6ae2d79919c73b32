// Package merge applies queued client mutations to server storage, one
// handler per synchronized table.
//
// Add and update are the same upsert. Delete removes the row when it belongs
// to the caller and records a tombstone; deleting a missing row is a no-op.
// A payload naming another account is refused, and one without user_id is
// attributed to the caller.
package merge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/lexisync/internal/common"
	"github.com/dmitrijs2005/lexisync/internal/models"
	"github.com/dmitrijs2005/lexisync/internal/server/repositories/cards"
	"github.com/dmitrijs2005/lexisync/internal/server/repositories/reviewlogs"
	"github.com/dmitrijs2005/lexisync/internal/server/repositories/tombstones"
	"github.com/dmitrijs2005/lexisync/internal/server/repositories/users"
	"github.com/dmitrijs2005/lexisync/internal/syncproto"
)

// Repos are the repositories a handler may write to, all bound to the
// transaction of the current sync.
type Repos struct {
	Cards      cards.Repository
	ReviewLogs reviewlogs.Repository
	Users      users.Repository
	Tombstones tombstones.Repository
}

// Handler merges one mutation of its table.
type Handler interface {
	Apply(ctx context.Context, repos *Repos, accountID models.ID, op syncproto.Operation, payload json.RawMessage) error
}

// ItemError marks a failure caused by the item itself (bad payload, foreign
// owner). Such items are rejected individually; any other error from a
// handler is an infrastructure failure.
type ItemError struct {
	Err error
}

func (e *ItemError) Error() string { return e.Err.Error() }
func (e *ItemError) Unwrap() error { return e.Err }

func itemErr(err error) error { return &ItemError{Err: err} }

// IsItemError reports whether err was caused by the item itself.
func IsItemError(err error) bool {
	var ie *ItemError
	return errors.As(err, &ie)
}

// Registry maps tables to their handlers.
type Registry map[syncproto.Table]Handler

// NewRegistry returns the handlers of cards, review_logs and users.
func NewRegistry() Registry {
	return Registry{
		syncproto.TableCards:      cardHandler,
		syncproto.TableReviewLogs: reviewLogHandler,
		syncproto.TableUsers:      userHandler,
	}
}

// Lookup returns the handler of t.
func (r Registry) Lookup(t syncproto.Table) (Handler, bool) {
	h, ok := r[t]
	return h, ok
}

// entityHandler implements Handler for any entity type.
type entityHandler[T any] struct {
	table  syncproto.Table
	decode func(json.RawMessage) (T, error)
	// owner points at the field holding the owning account.
	owner  func(*T) *models.ID
	key    func(*T) models.ID
	upsert func(context.Context, *Repos, *T) error
	delete func(context.Context, *Repos, models.ID, models.ID) (bool, error)
}

func (h *entityHandler[T]) Apply(ctx context.Context, repos *Repos, accountID models.ID, op syncproto.Operation, payload json.RawMessage) error {
	switch op {
	case syncproto.OpAdd, syncproto.OpUpdate:
		return h.put(ctx, repos, accountID, payload)
	case syncproto.OpDelete:
		return h.remove(ctx, repos, accountID, payload)
	default:
		return itemErr(fmt.Errorf("%w: %q", common.ErrUnknownOperation, op))
	}
}

func (h *entityHandler[T]) put(ctx context.Context, repos *Repos, accountID models.ID, payload json.RawMessage) error {
	v, err := h.decode(payload)
	if err != nil {
		return itemErr(err)
	}

	owner := h.owner(&v)
	switch *owner {
	case "":
		*owner = accountID
	case accountID:
	default:
		return itemErr(common.ErrOwnership)
	}

	if err := h.upsert(ctx, repos, &v); err != nil {
		if errors.Is(err, common.ErrOwnership) {
			return itemErr(err)
		}
		return err
	}

	return repos.Tombstones.Clear(ctx, string(h.table), h.key(&v))
}

func (h *entityHandler[T]) remove(ctx context.Context, repos *Repos, accountID models.ID, payload json.RawMessage) error {
	ref, err := models.DecodeRef(payload)
	if err != nil {
		return itemErr(err)
	}
	if ref.UserID != "" && ref.UserID != accountID {
		return itemErr(common.ErrOwnership)
	}

	removed, err := h.delete(ctx, repos, accountID, ref.ID)
	if err != nil {
		return err
	}
	if !removed {
		return nil
	}

	return repos.Tombstones.Upsert(ctx, &models.Tombstone{
		TableName: string(h.table),
		ID:        ref.ID,
		UserID:    accountID,
	})
}
