package syncer

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dmitrijs2005/lexisync/internal/client/repositories/queue"
	"github.com/dmitrijs2005/lexisync/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/lexisync/internal/common"
	"github.com/dmitrijs2005/lexisync/internal/dbx"
	"github.com/dmitrijs2005/lexisync/internal/logging"
	"github.com/dmitrijs2005/lexisync/internal/models"
	"github.com/dmitrijs2005/lexisync/internal/syncproto"
)

// merger applies diff rows of one round to the local tables.
//
// Rows of other accounts are dropped. Undecodable rows are parked in the
// local parked-rows table for inspection. Rows whose entity
// has a queued record that was not part of this round are deferred: the
// local write is newer and will reach the server on the next round.
type merger struct {
	repos     repomanager.RepositoryManager
	tx        dbx.DBTX
	accountID models.ID
	pending   map[queue.Key]struct{}
	res       *Result
	logger    logging.Logger
}

func (m *merger) apply(ctx context.Context, table syncproto.Table, row json.RawMessage) error {
	if models.IsDeletedRow(row) {
		return m.remove(ctx, table, row)
	}

	switch table {
	case syncproto.TableCards:
		c, err := models.DecodeCard(row)
		if err != nil {
			return m.park(ctx, table, row, err)
		}
		return m.put(ctx, table, c.ID, c.Owner(), func() error { return m.repos.Cards(m.tx).Upsert(ctx, &c) })
	case syncproto.TableReviewLogs:
		l, err := models.DecodeReviewLog(row)
		if err != nil {
			return m.park(ctx, table, row, err)
		}
		return m.put(ctx, table, l.ID, l.Owner(), func() error { return m.repos.ReviewLogs(m.tx).Upsert(ctx, &l) })
	case syncproto.TableUsers:
		u, err := models.DecodeUser(row)
		if err != nil {
			return m.park(ctx, table, row, err)
		}
		return m.put(ctx, table, u.ID, u.Owner(), func() error { return m.repos.Users(m.tx).Upsert(ctx, &u) })
	default:
		return m.park(ctx, table, row, common.ErrUnknownTable)
	}
}

func (m *merger) put(ctx context.Context, table syncproto.Table, id, owner models.ID, upsert func() error) error {
	if owner != m.accountID {
		m.res.Dropped++
		m.logger.Warn(ctx, "dropped row of another account", "table", table, "id", id, "owner", owner)
		return nil
	}
	if m.deferred(table, id) {
		return nil
	}

	err := upsert()
	if errors.Is(err, common.ErrOwnership) {
		m.res.Dropped++
		m.logger.Warn(ctx, "dropped row colliding with a local row of another account", "table", table, "id", id)
		return nil
	}
	if err != nil {
		return err
	}
	m.res.Pulled++
	return nil
}

func (m *merger) remove(ctx context.Context, table syncproto.Table, row json.RawMessage) error {
	ref, err := models.DecodeRef(row)
	if err != nil {
		return m.park(ctx, table, row, err)
	}

	owner := ref.UserID
	if table == syncproto.TableUsers {
		owner = ref.ID
	}
	if owner != "" && owner != m.accountID {
		m.res.Dropped++
		m.logger.Warn(ctx, "dropped delete of another account", "table", table, "id", ref.ID, "owner", owner)
		return nil
	}
	if m.deferred(table, ref.ID) {
		return nil
	}

	var removed bool
	switch table {
	case syncproto.TableCards:
		removed, err = m.repos.Cards(m.tx).DeleteByID(ctx, m.accountID, ref.ID)
	case syncproto.TableReviewLogs:
		removed, err = m.repos.ReviewLogs(m.tx).DeleteByID(ctx, m.accountID, ref.ID)
	case syncproto.TableUsers:
		removed, err = m.repos.Users(m.tx).DeleteByID(ctx, ref.ID)
	default:
		return m.park(ctx, table, row, common.ErrUnknownTable)
	}
	if err != nil {
		return err
	}
	if removed {
		m.res.Deleted++
	}
	return nil
}

func (m *merger) deferred(table syncproto.Table, id models.ID) bool {
	if _, ok := m.pending[queue.Key{Table: table, ID: id}]; ok {
		m.res.Deferred++
		return true
	}
	return false
}

func (m *merger) park(ctx context.Context, table syncproto.Table, row json.RawMessage, err error) error {
	m.logger.Warn(ctx, "parked undecodable row", "table", table, "error", err.Error())
	if perr := m.repos.Queue(m.tx).ParkRow(ctx, m.accountID, table, row, err.Error()); perr != nil {
		return perr
	}
	m.res.Parked++
	return nil
}
