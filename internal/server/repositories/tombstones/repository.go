package tombstones

import (
	"context"

	"github.com/dmitrijs2005/lexisync/internal/models"
)

type Repository interface {
	Upsert(ctx context.Context, t *models.Tombstone) error
	Clear(ctx context.Context, table string, id models.ID) error
	SelectSince(ctx context.Context, userID models.ID, since models.Timestamp) ([]*models.Tombstone, error)
}
