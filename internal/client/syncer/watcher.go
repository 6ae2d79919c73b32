package syncer

import (
	"context"
	"time"

	"github.com/dmitrijs2005/lexisync/internal/logging"
	"github.com/dmitrijs2005/lexisync/internal/models"
)

const pingTimeout = 3 * time.Second

// Runner is what the watcher triggers; *Syncer implements it.
type Runner interface {
	Sync(ctx context.Context, accountID models.ID) (*Result, error)
}

// Pinger reports whether the server is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Watcher triggers rounds for one account: once at start, every
// SyncInterval, and whenever the server becomes reachable again after being
// offline. Failed rounds are logged and retried on the next trigger.
type Watcher struct {
	runner              Runner
	pinger              Pinger
	accountID           models.ID
	syncInterval        time.Duration
	onlineCheckInterval time.Duration
	logger              logging.Logger
	online              bool
}

func NewWatcher(r Runner, p Pinger, accountID models.ID, syncInterval, onlineCheckInterval time.Duration, l logging.Logger) *Watcher {
	return &Watcher{
		runner:              r,
		pinger:              p,
		accountID:           accountID,
		syncInterval:        syncInterval,
		onlineCheckInterval: onlineCheckInterval,
		logger:              l.With("module", "watcher"),
	}
}

// Run blocks until ctx is cancelled. A non-positive interval disables that
// trigger.
func (w *Watcher) Run(ctx context.Context) {
	w.online = w.ping(ctx)
	w.trigger(ctx, "startup")

	syncC, stopSync := tick(w.syncInterval)
	defer stopSync()
	pingC, stopPing := tick(w.onlineCheckInterval)
	defer stopPing()

	for {
		select {
		case <-syncC:
			w.trigger(ctx, "interval")

		case <-pingC:
			online := w.ping(ctx)
			switch {
			case online && !w.online:
				w.online = true
				w.logger.Info(ctx, "server reachable again")
				w.trigger(ctx, "online")
			case !online && w.online:
				w.online = false
				w.logger.Info(ctx, "server unreachable, working offline")
			}

		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) trigger(ctx context.Context, reason string) {
	if ctx.Err() != nil {
		return
	}
	if _, err := w.runner.Sync(ctx, w.accountID); err != nil {
		w.logger.Warn(ctx, "sync failed", "trigger", reason, "account", w.accountID, "error", err.Error())
		return
	}
	w.logger.Debug(ctx, "sync done", "trigger", reason, "account", w.accountID)
}

func (w *Watcher) ping(ctx context.Context) bool {
	if w.pinger == nil {
		return true
	}
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return w.pinger.Ping(pctx) == nil
}

func tick(d time.Duration) (<-chan time.Time, func()) {
	if d <= 0 {
		return nil, func() {}
	}
	t := time.NewTicker(d)
	return t.C, t.Stop
}
