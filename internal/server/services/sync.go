// Package services contains server-side business logic. SyncService merges a
// client's queued mutations and returns everything the client has not seen
// yet, both inside one database transaction.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/lexisync/internal/common"
	"github.com/dmitrijs2005/lexisync/internal/dbx"
	"github.com/dmitrijs2005/lexisync/internal/logging"
	"github.com/dmitrijs2005/lexisync/internal/models"
	"github.com/dmitrijs2005/lexisync/internal/server/archive"
	sc "github.com/dmitrijs2005/lexisync/internal/server/config"
	"github.com/dmitrijs2005/lexisync/internal/server/merge"
	"github.com/dmitrijs2005/lexisync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/lexisync/internal/syncproto"
)

// itemSavepoint isolates one queued item inside the sync transaction.
const itemSavepoint = "sync_item"

type SyncService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	registry    merge.Registry
	archiver    archive.Archiver
	atomic      bool
	logger      logging.Logger
}

func NewSyncService(db *sql.DB, m repomanager.RepositoryManager, registry merge.Registry,
	archiver archive.Archiver, cfg *sc.Config, logger logging.Logger) *SyncService {
	if archiver == nil {
		archiver = archive.Nop{}
	}
	return &SyncService{
		db:          db,
		repomanager: m,
		registry:    registry,
		archiver:    archiver,
		atomic:      cfg.AtomicBatches,
		logger:      logger.With("module", "sync"),
	}
}

// Sync applies req.SyncQueue in order on behalf of accountID and returns the
// account's rows changed after req.LastSyncTime.
//
// Items with an unknown table or operation are skipped. Items whose payload
// is invalid or owned by another account are rejected and rolled back to
// their savepoint; the rest of the batch still commits, unless atomic batches
// are enabled, in which case common.ErrBatchRejected is returned and nothing
// is committed. Storage failures abort the whole transaction.
//
// new_sync_time is the transaction start time, so it is the same instant that
// stamps every row written by this call.
func (s *SyncService) Sync(ctx context.Context, accountID models.ID, req *syncproto.Request) (*syncproto.Response, error) {
	since := req.LastSyncTime
	if since.IsZero() {
		since = models.Epoch
	}

	var resp *syncproto.Response
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		now, err := transactionTime(ctx, tx)
		if err != nil {
			return err
		}

		repos := s.bind(tx)

		results, err := s.applyQueue(ctx, tx, repos, accountID, req.SyncQueue)
		if err != nil {
			return err
		}

		diff, err := s.collectDiff(ctx, repos, accountID, since)
		if err != nil {
			return err
		}

		resp = &syncproto.Response{
			Status:      syncproto.StatusSuccess,
			Diff:        diff,
			NewSyncTime: now,
			Results:     results,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(req.SyncQueue) > 0 {
		s.archive(ctx, accountID, req)
	}

	return resp, nil
}

func (s *SyncService) bind(tx dbx.DBTX) *merge.Repos {
	return &merge.Repos{
		Cards:      s.repomanager.Cards(tx),
		ReviewLogs: s.repomanager.ReviewLogs(tx),
		Users:      s.repomanager.Users(tx),
		Tombstones: s.repomanager.Tombstones(tx),
	}
}

func transactionTime(ctx context.Context, tx dbx.DBTX) (models.Timestamp, error) {
	var now models.Timestamp
	if err := tx.QueryRowContext(ctx, `SELECT now()`).Scan(&now); err != nil {
		return models.Timestamp{}, fmt.Errorf("db error: %w", err)
	}
	return now, nil
}

func (s *SyncService) applyQueue(ctx context.Context, tx dbx.DBTX, repos *merge.Repos,
	accountID models.ID, queue []syncproto.QueueItem) ([]syncproto.ItemResult, error) {

	results := make([]syncproto.ItemResult, 0, len(queue))

	for i, item := range queue {
		res := syncproto.ItemResult{Index: i, TableName: item.TableName, Operation: item.Operation}

		h, ok := s.registry.Lookup(item.TableName)
		switch {
		case !ok:
			res.Status = syncproto.StatusSkipped
			res.Error = fmt.Sprintf("%v: %q", common.ErrUnknownTable, item.TableName)
		case !item.Operation.Valid():
			res.Status = syncproto.StatusSkipped
			res.Error = fmt.Sprintf("%v: %q", common.ErrUnknownOperation, item.Operation)
		}
		if res.Status == syncproto.StatusSkipped {
			s.logger.Warn(ctx, "skipping queued item", "account", accountID, "index", i, "reason", res.Error)
			results = append(results, res)
			continue
		}

		err := dbx.WithSavepoint(ctx, tx, itemSavepoint, func(ctx context.Context) error {
			return h.Apply(ctx, repos, accountID, item.Operation, item.Payload)
		})

		switch {
		case err == nil:
			res.Status = syncproto.StatusApplied
		case merge.IsItemError(err):
			if s.atomic {
				return nil, fmt.Errorf("%w: item %d (%s/%s): %v", common.ErrBatchRejected, i, item.TableName, item.Operation, err)
			}
			res.Status = syncproto.StatusRejected
			res.Error = err.Error()
			s.logger.Warn(ctx, "rejected queued item", "account", accountID, "index", i,
				"table", item.TableName, "operation", item.Operation, "error", err.Error())
		default:
			return nil, fmt.Errorf("item %d (%s/%s): %w", i, item.TableName, item.Operation, err)
		}

		results = append(results, res)
	}

	return results, nil
}

func (s *SyncService) collectDiff(ctx context.Context, repos *merge.Repos, accountID models.ID, since models.Timestamp) (syncproto.Diff, error) {
	diff := syncproto.NewDiff()

	cards, err := repos.Cards.SelectChanged(ctx, accountID, since)
	if err != nil {
		return diff, err
	}
	if err := appendRows(&diff, syncproto.TableCards, cards); err != nil {
		return diff, err
	}

	logs, err := repos.ReviewLogs.SelectChanged(ctx, accountID, since)
	if err != nil {
		return diff, err
	}
	if err := appendRows(&diff, syncproto.TableReviewLogs, logs); err != nil {
		return diff, err
	}

	users, err := repos.Users.SelectChanged(ctx, accountID, since)
	if err != nil {
		return diff, err
	}
	if err := appendRows(&diff, syncproto.TableUsers, users); err != nil {
		return diff, err
	}

	deleted, err := repos.Tombstones.SelectSince(ctx, accountID, since)
	if err != nil {
		return diff, err
	}
	for _, t := range deleted {
		diff.Append(syncproto.Table(t.TableName), syncproto.DeletedRow(t.ID, t.UserID))
	}

	return diff, nil
}

func appendRows[T any](diff *syncproto.Diff, table syncproto.Table, rows []*T) error {
	for _, r := range rows {
		b, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode %s row: %w", table, err)
		}
		diff.Append(table, b)
	}
	return nil
}

func (s *SyncService) archive(ctx context.Context, accountID models.ID, req *syncproto.Request) {
	body, err := json.Marshal(req)
	if err == nil {
		err = s.archiver.Archive(ctx, accountID, body)
	}
	if err != nil {
		s.logger.Error(ctx, "archiving batch failed", "account", accountID, "error", err.Error())
	}
}
