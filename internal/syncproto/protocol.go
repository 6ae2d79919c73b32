// Package syncproto defines the JSON exchanged by the sync endpoint.
//
// A request carries the client's watermark and its queued mutations in
// enqueue order. The response carries every row of the account changed after
// the watermark, the server time to use as the next watermark and one result
// per queued item.
package syncproto

import (
	"encoding/json"

	"github.com/dmitrijs2005/lexisync/internal/models"
)

// Table names a synchronized table.
type Table string

const (
	TableCards      Table = "cards"
	TableReviewLogs Table = "review_logs"
	TableUsers      Table = "users"
)

// Tables lists the synchronized tables in diff order.
var Tables = []Table{TableCards, TableReviewLogs, TableUsers}

func (t Table) Valid() bool {
	switch t {
	case TableCards, TableReviewLogs, TableUsers:
		return true
	}
	return false
}

// Operation is the kind of a queued mutation.
type Operation string

const (
	OpAdd    Operation = "add"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

func (o Operation) Valid() bool {
	switch o {
	case OpAdd, OpUpdate, OpDelete:
		return true
	}
	return false
}

// QueueItem is one locally recorded mutation as sent to the server.
type QueueItem struct {
	TableName Table           `json:"table_name"`
	Operation Operation       `json:"operation"`
	Payload   json.RawMessage `json:"payload"`
}

// Request is the body of POST /api/v1/sync.
type Request struct {
	LastSyncTime models.Timestamp `json:"last_sync_time"`
	SyncQueue    []QueueItem      `json:"sync_queue"`
}

// Diff holds raw row objects per table. Deleted rows are reported as
// {"id": ..., "user_id": ..., "is_deleted": true}.
type Diff struct {
	Cards      []json.RawMessage `json:"cards"`
	ReviewLogs []json.RawMessage `json:"review_logs"`
	Users      []json.RawMessage `json:"users"`
}

// Rows returns the rows for table t.
func (d *Diff) Rows(t Table) []json.RawMessage {
	switch t {
	case TableCards:
		return d.Cards
	case TableReviewLogs:
		return d.ReviewLogs
	case TableUsers:
		return d.Users
	}
	return nil
}

// Append adds rows to table t. Unknown tables are ignored.
func (d *Diff) Append(t Table, rows ...json.RawMessage) {
	switch t {
	case TableCards:
		d.Cards = append(d.Cards, rows...)
	case TableReviewLogs:
		d.ReviewLogs = append(d.ReviewLogs, rows...)
	case TableUsers:
		d.Users = append(d.Users, rows...)
	}
}

// NewDiff returns a Diff whose tables encode as [] rather than null.
func NewDiff() Diff {
	return Diff{
		Cards:      []json.RawMessage{},
		ReviewLogs: []json.RawMessage{},
		Users:      []json.RawMessage{},
	}
}

// ItemStatus is the outcome of one queued item.
type ItemStatus string

const (
	StatusApplied  ItemStatus = "applied"
	StatusRejected ItemStatus = "rejected"
	StatusSkipped  ItemStatus = "skipped"
)

// ItemResult reports what the server did with sync_queue[Index].
type ItemResult struct {
	Index     int        `json:"index"`
	TableName Table      `json:"table_name"`
	Operation Operation  `json:"operation"`
	Status    ItemStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
}

// StatusSuccess is the only status value of a successful response.
const StatusSuccess = "success"

// Response is the body of a successful sync.
type Response struct {
	Status      string           `json:"status"`
	Diff        Diff             `json:"diff"`
	NewSyncTime models.Timestamp `json:"new_sync_time"`
	Results     []ItemResult     `json:"results"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// DeletedRow builds the diff row announcing a delete.
func DeletedRow(id, userID models.ID) json.RawMessage {
	b, _ := json.Marshal(struct {
		ID        models.ID `json:"id"`
		UserID    models.ID `json:"user_id"`
		IsDeleted bool      `json:"is_deleted"`
	}{ID: id, UserID: userID, IsDeleted: true})
	return b
}
