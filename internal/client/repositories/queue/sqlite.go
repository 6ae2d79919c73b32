package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/lexisync/internal/dbx"
	"github.com/dmitrijs2005/lexisync/internal/models"
	"github.com/dmitrijs2005/lexisync/internal/syncproto"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Enqueue appends rec and sets rec.ID. A zero EnqueuedAt is set to now.
func (r *SQLiteRepository) Enqueue(ctx context.Context, rec *Record) (int64, error) {
	if rec.EnqueuedAt.IsZero() {
		rec.EnqueuedAt = models.Now()
	}

	query := `INSERT INTO sync_queue (account_id, table_name, operation, entity_id, payload, enqueued_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		rec.AccountID, rec.TableName, rec.Operation, rec.EntityID, string(rec.Payload), rec.EnqueuedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue id: %w", err)
	}
	rec.ID = id
	return id, nil
}

// Snapshot returns up to limit of the account's oldest queued records in
// enqueue order; limit <= 0 returns all of them. The records stay queued.
func (r *SQLiteRepository) Snapshot(ctx context.Context, accountID models.ID, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT id, account_id, table_name, operation, entity_id, payload, enqueued_at
		FROM sync_queue WHERE account_id = ? ORDER BY id LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select queue: %w", err)
	}
	defer rows.Close()

	result := []Record{}
	for rows.Next() {
		var rec Record
		var payload string
		if err := rows.Scan(&rec.ID, &rec.AccountID, &rec.TableName, &rec.Operation, &rec.EntityID, &payload, &rec.EnqueuedAt); err != nil {
			return nil, fmt.Errorf("failed to scan queue row: %w", err)
		}
		rec.Payload = []byte(payload)
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate queue: %w", err)
	}
	return result, nil
}

// Remove deletes exactly the given ids. Unknown ids are ignored.
func (r *SQLiteRepository) Remove(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	in, args := inList(ids)
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id IN (`+in+`)`, args...); err != nil {
		return fmt.Errorf("failed to remove queue records: %w", err)
	}
	return nil
}

// PendingKeys returns the entities touched by the account's queued records
// other than excludeIDs.
func (r *SQLiteRepository) PendingKeys(ctx context.Context, accountID models.ID, excludeIDs []int64) (map[Key]struct{}, error) {
	query := `SELECT DISTINCT table_name, entity_id FROM sync_queue WHERE account_id = ?`
	args := []any{accountID}
	if len(excludeIDs) > 0 {
		in, ex := inList(excludeIDs)
		query += ` AND id NOT IN (` + in + `)`
		args = append(args, ex...)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[Key]struct{})
	for rows.Next() {
		var k Key
		if err := rows.Scan(&k.Table, &k.ID); err != nil {
			return nil, fmt.Errorf("failed to scan pending key: %w", err)
		}
		keys[k] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending keys: %w", err)
	}
	return keys, nil
}

// MoveToRejects copies rec into the dead-letter table. The caller removes
// it from the queue with the rest of the snapshot.
func (r *SQLiteRepository) MoveToRejects(ctx context.Context, rec Record, status syncproto.ItemStatus, reason string) error {
	query := `INSERT INTO sync_rejects (queue_id, account_id, table_name, operation, entity_id, payload, enqueued_at, status, reason, rejected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(queue_id) DO UPDATE SET status = excluded.status, reason = excluded.reason, rejected_at = excluded.rejected_at`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.AccountID, rec.TableName, rec.Operation, rec.EntityID, string(rec.Payload), rec.EnqueuedAt,
		status, reason, models.Now())
	if err != nil {
		return fmt.Errorf("failed to store reject: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListRejects(ctx context.Context, accountID models.ID) ([]Reject, error) {
	query := `SELECT queue_id, account_id, table_name, operation, entity_id, payload, enqueued_at, status, reason, rejected_at
		FROM sync_rejects WHERE account_id = ? ORDER BY queue_id`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to select rejects: %w", err)
	}
	defer rows.Close()

	var result []Reject
	for rows.Next() {
		var rj Reject
		var payload string
		if err := rows.Scan(&rj.ID, &rj.AccountID, &rj.TableName, &rj.Operation, &rj.EntityID, &payload,
			&rj.EnqueuedAt, &rj.Status, &rj.Reason, &rj.RejectedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reject: %w", err)
		}
		rj.Payload = []byte(payload)
		result = append(result, rj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rejects: %w", err)
	}
	return result, nil
}

// ParkRow keeps a diff row that could not be applied locally, so that it is
// not lost once the watermark moves past it.
func (r *SQLiteRepository) ParkRow(ctx context.Context, accountID models.ID, table syncproto.Table, row json.RawMessage, reason string) error {
	query := `INSERT INTO sync_parked_rows (account_id, table_name, payload, reason, received_at)
		VALUES (?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, accountID, table, string(row), reason, models.Now()); err != nil {
		return fmt.Errorf("failed to park diff row: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListParked(ctx context.Context, accountID models.ID) ([]ParkedRow, error) {
	query := `SELECT id, account_id, table_name, payload, reason, received_at
		FROM sync_parked_rows WHERE account_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to select parked rows: %w", err)
	}
	defer rows.Close()

	var result []ParkedRow
	for rows.Next() {
		var p ParkedRow
		var payload string
		if err := rows.Scan(&p.ID, &p.AccountID, &p.TableName, &payload, &p.Reason, &p.ReceivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan parked row: %w", err)
		}
		p.Payload = []byte(payload)
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate parked rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Count(ctx context.Context, accountID models.ID) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_queue WHERE account_id = ?`, accountID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count queue: %w", err)
	}
	return n, nil
}

func inList(ids []int64) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}
