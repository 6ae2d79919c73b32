// Package syncer runs sync rounds between the local database and the
// server.
//
// A round sends a batch of the account's oldest queued mutations together
// with its watermark and, only after the server answered successfully,
// applies the returned diff, drops the sent records from the queue and
// advances the watermark in one local transaction. A failed round leaves the
// local state exactly as it was, so every record of it is retried later.
// Sync keeps running rounds until the queue is drained.
package syncer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/lexisync/internal/client/repositories/queue"
	"github.com/dmitrijs2005/lexisync/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/lexisync/internal/dbx"
	"github.com/dmitrijs2005/lexisync/internal/logging"
	"github.com/dmitrijs2005/lexisync/internal/models"
	"github.com/dmitrijs2005/lexisync/internal/syncproto"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultRequestTimeout = 30 * time.Second
	DefaultBatchSize      = 200
)

var (
	ErrSyncInProgress = errors.New("sync already running in another process")
	ErrNoToken        = errors.New("no token stored for account")
	ErrNoAccount      = errors.New("account id is required")
)

// Transport sends a sync round to the server.
type Transport interface {
	Sync(ctx context.Context, token string, req *syncproto.Request) (*syncproto.Response, error)
}

type Options struct {
	// RequestTimeout bounds the network round trip. Zero means DefaultRequestTimeout.
	RequestTimeout time.Duration
	// BatchSize caps the records sent per round. Zero means DefaultBatchSize.
	BatchSize int
	// LockDir enables a cross-process lock file per account when set.
	LockDir string
}

// Result summarizes the committed rounds of one Sync call.
type Result struct {
	Rounds      int
	Sent        int
	Applied     int
	Rejected    int
	Skipped     int
	Pulled      int
	Deleted     int
	Deferred    int
	Dropped     int
	Parked      int
	NewSyncTime models.Timestamp
}

func (r *Result) add(o *Result) {
	r.Rounds++
	r.Sent += o.Sent
	r.Applied += o.Applied
	r.Rejected += o.Rejected
	r.Skipped += o.Skipped
	r.Pulled += o.Pulled
	r.Deleted += o.Deleted
	r.Deferred += o.Deferred
	r.Dropped += o.Dropped
	r.Parked += o.Parked
	r.NewSyncTime = o.NewSyncTime
}

type Syncer struct {
	db        *sql.DB
	repos     repomanager.RepositoryManager
	transport Transport
	opts      Options
	logger    logging.Logger
	group     singleflight.Group
}

func New(db *sql.DB, repos repomanager.RepositoryManager, t Transport, opts Options, l logging.Logger) *Syncer {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	return &Syncer{db: db, repos: repos, transport: t, opts: opts, logger: l.With("module", "syncer")}
}

// Sync runs rounds for accountID until its queue is empty. Concurrent calls
// for the same account share one run and all receive its outcome. An error
// in a later round leaves the earlier rounds committed.
func (s *Syncer) Sync(ctx context.Context, accountID models.ID) (*Result, error) {
	if accountID == "" {
		return nil, ErrNoAccount
	}
	v, err, shared := s.group.Do(accountID.String(), func() (any, error) {
		return s.run(ctx, accountID)
	})
	if shared {
		s.logger.Debug(ctx, "joined running sync", "account", accountID)
	}
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

// Rejects lists the account's records the server refused or skipped.
func (s *Syncer) Rejects(ctx context.Context, accountID models.ID) ([]queue.Reject, error) {
	return s.repos.Queue(s.db).ListRejects(ctx, accountID)
}

func (s *Syncer) run(ctx context.Context, accountID models.ID) (*Result, error) {
	unlock, err := s.lock(accountID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	token, err := s.repos.Watermarks(s.db).Token(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	if token == "" {
		return nil, fmt.Errorf("%w %s", ErrNoToken, accountID)
	}

	total := &Result{}
	for {
		res, more, err := s.round(ctx, accountID, token)
		if err != nil {
			if total.Rounds > 0 {
				return nil, fmt.Errorf("round %d, after %d committed: %w", total.Rounds+1, total.Rounds, err)
			}
			return nil, err
		}
		total.add(res)
		if !more {
			break
		}
	}

	s.logger.Info(ctx, "sync finished",
		"account", accountID,
		"rounds", total.Rounds,
		"sent", total.Sent,
		"applied", total.Applied,
		"rejected", total.Rejected,
		"skipped", total.Skipped,
		"pulled", total.Pulled,
		"deleted", total.Deleted,
		"deferred", total.Deferred,
		"dropped", total.Dropped,
		"parked", total.Parked,
		"new_sync_time", total.NewSyncTime.String(),
	)
	return total, nil
}

// round sends one batch and commits its outcome. more reports whether the
// batch was full, so further records may be waiting.
func (s *Syncer) round(ctx context.Context, accountID models.ID, token string) (*Result, bool, error) {
	since, err := s.repos.Watermarks(s.db).Get(ctx, accountID)
	if err != nil {
		return nil, false, fmt.Errorf("read watermark: %w", err)
	}

	snapshot, err := s.repos.Queue(s.db).Snapshot(ctx, accountID, s.opts.BatchSize)
	if err != nil {
		return nil, false, fmt.Errorf("read queue: %w", err)
	}

	req := &syncproto.Request{LastSyncTime: since, SyncQueue: make([]syncproto.QueueItem, 0, len(snapshot))}
	for _, rec := range snapshot {
		req.SyncQueue = append(req.SyncQueue, rec.QueueItem())
	}

	rctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	resp, err := s.transport.Sync(rctx, token, req)
	cancel()
	if err != nil {
		s.logger.Warn(ctx, "sync round failed", "account", accountID, "queued", len(snapshot), "error", err.Error())
		return nil, false, fmt.Errorf("sync request: %w", err)
	}

	res := &Result{Sent: len(snapshot), NewSyncTime: resp.NewSyncTime}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.commit(ctx, tx, accountID, since, snapshot, resp, res)
	})
	if err != nil {
		s.logger.Error(ctx, "sync apply failed", "account", accountID, "error", err.Error())
		return nil, false, fmt.Errorf("apply sync response: %w", err)
	}

	s.logger.Debug(ctx, "sync round committed", "account", accountID, "sent", res.Sent, "pulled", res.Pulled)
	return res, len(snapshot) == s.opts.BatchSize, nil
}

// commit is the local half of a round. Any error rolls back all of it.
func (s *Syncer) commit(ctx context.Context, tx dbx.DBTX, accountID models.ID, since models.Timestamp,
	snapshot []queue.Record, resp *syncproto.Response, res *Result) error {
	q := s.repos.Queue(tx)

	ids := make([]int64, len(snapshot))
	for i, rec := range snapshot {
		ids[i] = rec.ID
	}

	pending, err := q.PendingKeys(ctx, accountID, ids)
	if err != nil {
		return err
	}

	m := &merger{repos: s.repos, tx: tx, accountID: accountID, pending: pending, res: res, logger: s.logger}
	for _, table := range syncproto.Tables {
		for _, row := range resp.Diff.Rows(table) {
			if err := m.apply(ctx, table, row); err != nil {
				return fmt.Errorf("%s row: %w", table, err)
			}
		}
	}

	for _, r := range resp.Results {
		switch r.Status {
		case syncproto.StatusApplied:
			res.Applied++
			continue
		case syncproto.StatusRejected:
			res.Rejected++
		case syncproto.StatusSkipped:
			res.Skipped++
		default:
			s.logger.Warn(ctx, "unknown item status", "account", accountID, "index", r.Index, "status", r.Status)
			continue
		}
		if r.Index < 0 || r.Index >= len(snapshot) {
			s.logger.Warn(ctx, "item result out of range", "account", accountID, "index", r.Index)
			continue
		}
		if err := q.MoveToRejects(ctx, snapshot[r.Index], r.Status, r.Error); err != nil {
			return err
		}
	}

	if err := q.Remove(ctx, ids); err != nil {
		return err
	}

	if resp.NewSyncTime.Before(since.Time) {
		s.logger.Warn(ctx, "server sync time is behind local watermark",
			"account", accountID, "watermark", since.String(), "new_sync_time", resp.NewSyncTime.String())
	}
	return s.repos.Watermarks(tx).Set(ctx, accountID, resp.NewSyncTime)
}
