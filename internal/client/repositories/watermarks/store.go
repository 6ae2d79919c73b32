// Package watermarks keeps per-account sync bookkeeping in the metadata
// store: the last server sync time and the bearer token.
package watermarks

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/lexisync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/lexisync/internal/models"
)

const (
	lastSyncPrefix = "last_sync_time/"
	tokenPrefix    = "token/"
)

type Store struct {
	meta metadata.Repository
}

func NewStore(meta metadata.Repository) *Store {
	return &Store{meta: meta}
}

// Get returns the account's watermark, or models.Epoch if it never synced.
func (s *Store) Get(ctx context.Context, accountID models.ID) (models.Timestamp, error) {
	v, err := s.meta.Get(ctx, lastSyncPrefix+accountID.String())
	if err != nil {
		return models.Timestamp{}, err
	}
	if len(v) == 0 {
		return models.Epoch, nil
	}
	t, err := models.ParseTimestamp(string(v))
	if err != nil {
		return models.Timestamp{}, fmt.Errorf("stored watermark for %s: %w", accountID, err)
	}
	return t, nil
}

func (s *Store) Set(ctx context.Context, accountID models.ID, t models.Timestamp) error {
	if t.IsZero() {
		return fmt.Errorf("refusing to store an empty watermark")
	}
	return s.meta.Set(ctx, lastSyncPrefix+accountID.String(), []byte(t.String()))
}

// Token returns the stored bearer token, or "" when none is set.
func (s *Store) Token(ctx context.Context, accountID models.ID) (string, error) {
	v, err := s.meta.Get(ctx, tokenPrefix+accountID.String())
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (s *Store) SetToken(ctx context.Context, accountID models.ID, token string) error {
	if token == "" {
		return s.meta.Delete(ctx, tokenPrefix+accountID.String())
	}
	return s.meta.Set(ctx, tokenPrefix+accountID.String(), []byte(token))
}

// Accounts returns the watermark of every account that has synced on this
// device.
func (s *Store) Accounts(ctx context.Context) (map[models.ID]models.Timestamp, error) {
	entries, err := s.meta.ListPrefix(ctx, lastSyncPrefix)
	if err != nil {
		return nil, err
	}
	out := make(map[models.ID]models.Timestamp, len(entries))
	for key, v := range entries {
		t, err := models.ParseTimestamp(string(v))
		if err != nil {
			return nil, fmt.Errorf("stored watermark %s: %w", key, err)
		}
		out[models.ID(strings.TrimPrefix(key, lastSyncPrefix))] = t
	}
	return out, nil
}
