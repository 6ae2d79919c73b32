package reviewlogs

import (
	"context"

	"github.com/dmitrijs2005/lexisync/internal/models"
)

type Repository interface {
	Upsert(ctx context.Context, log *models.ReviewLog) error
	Delete(ctx context.Context, userID, id models.ID) (bool, error)
	SelectChanged(ctx context.Context, userID models.ID, since models.Timestamp) ([]*models.ReviewLog, error)
}
