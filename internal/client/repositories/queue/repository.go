// Package queue is the durable local mutation queue. Every local write
// appends one record; records leave the queue only when a sync round that
// carried them has committed locally.
package queue

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/lexisync/internal/models"
	"github.com/dmitrijs2005/lexisync/internal/syncproto"
)

// Record is one queued mutation.
type Record struct {
	ID         int64
	AccountID  models.ID
	TableName  syncproto.Table
	Operation  syncproto.Operation
	EntityID   models.ID
	Payload    json.RawMessage
	EnqueuedAt models.Timestamp
}

// QueueItem converts the record to its wire form.
func (r Record) QueueItem() syncproto.QueueItem {
	return syncproto.QueueItem{TableName: r.TableName, Operation: r.Operation, Payload: r.Payload}
}

// Key identifies an entity across tables.
type Key struct {
	Table syncproto.Table
	ID    models.ID
}

// Reject is a record the server refused or skipped, kept for inspection.
type Reject struct {
	Record
	Status     syncproto.ItemStatus
	Reason     string
	RejectedAt models.Timestamp
}

// ParkedRow is a diff row from the server that could not be decoded.
type ParkedRow struct {
	ID         int64
	AccountID  models.ID
	TableName  syncproto.Table
	Payload    json.RawMessage
	Reason     string
	ReceivedAt models.Timestamp
}

type Repository interface {
	Enqueue(ctx context.Context, rec *Record) (int64, error)
	Snapshot(ctx context.Context, accountID models.ID, limit int) ([]Record, error)
	Remove(ctx context.Context, ids []int64) error
	PendingKeys(ctx context.Context, accountID models.ID, excludeIDs []int64) (map[Key]struct{}, error)
	MoveToRejects(ctx context.Context, rec Record, status syncproto.ItemStatus, reason string) error
	ListRejects(ctx context.Context, accountID models.ID) ([]Reject, error)
	ParkRow(ctx context.Context, accountID models.ID, table syncproto.Table, row json.RawMessage, reason string) error
	ListParked(ctx context.Context, accountID models.ID) ([]ParkedRow, error)
	Count(ctx context.Context, accountID models.ID) (int, error)
}
