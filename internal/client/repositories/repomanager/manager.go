// Package repomanager hands out the client repositories bound to one
// database handle or transaction.
package repomanager

import (
	"github.com/dmitrijs2005/lexisync/internal/client/repositories/cards"
	"github.com/dmitrijs2005/lexisync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/lexisync/internal/client/repositories/queue"
	"github.com/dmitrijs2005/lexisync/internal/client/repositories/reviewlogs"
	"github.com/dmitrijs2005/lexisync/internal/client/repositories/users"
	"github.com/dmitrijs2005/lexisync/internal/client/repositories/watermarks"
	"github.com/dmitrijs2005/lexisync/internal/dbx"
)

type RepositoryManager interface {
	Cards(db dbx.DBTX) cards.Repository
	ReviewLogs(db dbx.DBTX) reviewlogs.Repository
	Users(db dbx.DBTX) users.Repository
	Queue(db dbx.DBTX) queue.Repository
	Metadata(db dbx.DBTX) metadata.Repository
	Watermarks(db dbx.DBTX) *watermarks.Store
}

type SQLiteRepositoryManager struct{}

func NewSQLiteRepositoryManager() RepositoryManager {
	return &SQLiteRepositoryManager{}
}

func (m *SQLiteRepositoryManager) Cards(db dbx.DBTX) cards.Repository {
	return cards.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) ReviewLogs(db dbx.DBTX) reviewlogs.Repository {
	return reviewlogs.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Queue(db dbx.DBTX) queue.Repository {
	return queue.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Metadata(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Watermarks(db dbx.DBTX) *watermarks.Store {
	return watermarks.NewStore(m.Metadata(db))
}
