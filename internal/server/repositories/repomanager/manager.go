package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/lexisync/internal/dbx"
	"github.com/dmitrijs2005/lexisync/internal/server/repositories/cards"
	"github.com/dmitrijs2005/lexisync/internal/server/repositories/reviewlogs"
	"github.com/dmitrijs2005/lexisync/internal/server/repositories/tombstones"
	"github.com/dmitrijs2005/lexisync/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Cards(db dbx.DBTX) cards.Repository
	ReviewLogs(db dbx.DBTX) reviewlogs.Repository
	Users(db dbx.DBTX) users.Repository
	Tombstones(db dbx.DBTX) tombstones.Repository
}
