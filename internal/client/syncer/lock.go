package syncer

import (
	"fmt"
	"path/filepath"

	"github.com/dmitrijs2005/lexisync/internal/filex"
	"github.com/dmitrijs2005/lexisync/internal/models"
	"github.com/gofrs/flock"
)

// lock takes the per-account lock file when a lock dir is configured. It
// never waits: a lock held by another process is ErrSyncInProgress.
func (s *Syncer) lock(accountID models.ID) (func(), error) {
	if s.opts.LockDir == "" {
		return func() {}, nil
	}

	dir, err := filex.EnsureDir(s.opts.LockDir)
	if err != nil {
		return nil, fmt.Errorf("lock dir: %w", err)
	}

	fl := flock.New(filepath.Join(dir, "sync-"+filex.SafeName(accountID.String())+".lock"))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock: %w", err)
	}
	if !ok {
		return nil, ErrSyncInProgress
	}
	return func() { _ = fl.Unlock() }, nil
}
