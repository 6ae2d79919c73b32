package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/dmitrijs2005/lexisync/internal/client/config"
	"github.com/dmitrijs2005/lexisync/internal/client/localdb"
	"github.com/dmitrijs2005/lexisync/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/lexisync/internal/client/scheduler"
	"github.com/dmitrijs2005/lexisync/internal/client/services"
	"github.com/dmitrijs2005/lexisync/internal/client/syncer"
	"github.com/dmitrijs2005/lexisync/internal/client/transport"
	"github.com/dmitrijs2005/lexisync/internal/filex"
	"github.com/dmitrijs2005/lexisync/internal/logging"
	"github.com/dmitrijs2005/lexisync/internal/models"
	"gopkg.in/natefinch/lumberjack.v2"
)

var errNoAccount = errors.New("account id is not configured, set account_id or pass --account")

// App holds the wired client for one CLI invocation. Close it when done.
type App struct {
	config    *config.Config
	logger    logging.Logger
	logSink   io.Closer
	db        *sql.DB
	repos     repomanager.RepositoryManager
	study     services.StudyService
	client    *transport.Client
	syncer    *syncer.Syncer
	accountID models.ID
}

// NewApp opens the local database and wires services for c.AccountID.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if c.AccountID == "" {
		return nil, errNoAccount
	}

	logger, sink, err := newLogger(c)
	if err != nil {
		return nil, err
	}

	if err := filex.EnsureParentDir(c.DatabasePath); err != nil {
		_ = sink.Close()
		return nil, fmt.Errorf("preparing database dir: %w", err)
	}

	db, err := localdb.Open(ctx, c.DatabasePath)
	if err != nil {
		_ = sink.Close()
		return nil, fmt.Errorf("opening local database: %w", err)
	}

	if c.LockDir != "" {
		if _, err := filex.EnsureDir(c.LockDir); err != nil {
			_ = db.Close()
			_ = sink.Close()
			return nil, fmt.Errorf("preparing lock dir: %w", err)
		}
	}

	rm := repomanager.NewSQLiteRepositoryManager()
	tc := transport.NewClient(&http.Client{}, c.ServerURL)
	s := syncer.New(db, rm, tc, syncer.Options{RequestTimeout: c.RequestTimeout, BatchSize: c.BatchSize, LockDir: c.LockDir}, logger)

	return &App{
		config:    c,
		logger:    logger,
		logSink:   sink,
		db:        db,
		repos:     rm,
		study:     services.NewStudyService(db, rm, scheduler.NewFSRS()),
		client:    tc,
		syncer:    s,
		accountID: models.ID(c.AccountID),
	}, nil
}

func (a *App) Close() error {
	return errors.Join(a.db.Close(), a.logSink.Close())
}

func (a *App) watcher() *syncer.Watcher {
	return syncer.NewWatcher(a.syncer, a.client, a.accountID, a.config.SyncInterval, a.config.OnlineCheckInterval, a.logger)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newLogger writes text logs to a rotating file when LogFile is set and to
// stderr otherwise.
func newLogger(c *config.Config) (logging.Logger, io.Closer, error) {
	if c.LogFile == "" {
		return logging.New(os.Stderr, "text", c.LogLevel), nopCloser{}, nil
	}

	if err := filex.EnsureParentDir(c.LogFile); err != nil {
		return nil, nil, fmt.Errorf("preparing log dir: %w", err)
	}

	lj := &lumberjack.Logger{
		Filename:   c.LogFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	return logging.New(lj, "text", c.LogLevel), lj, nil
}
