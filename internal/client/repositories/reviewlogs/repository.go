// Package reviewlogs stores the local review history.
package reviewlogs

import (
	"context"

	"github.com/dmitrijs2005/lexisync/internal/models"
)

type Repository interface {
	Upsert(ctx context.Context, log *models.ReviewLog) error
	DeleteByID(ctx context.Context, userID, id models.ID) (bool, error)
	ListByCard(ctx context.Context, userID, cardID models.ID) ([]*models.ReviewLog, error)
}
