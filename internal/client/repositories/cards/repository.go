// Package cards stores the local copy of the account's vocabulary cards.
package cards

import (
	"context"

	"github.com/dmitrijs2005/lexisync/internal/models"
)

type Repository interface {
	Upsert(ctx context.Context, card *models.Card) error
	DeleteByID(ctx context.Context, userID, id models.ID) (bool, error)
	GetByID(ctx context.Context, userID, id models.ID) (*models.Card, error)
	ListDue(ctx context.Context, userID models.ID, now models.Timestamp, limit int) ([]*models.Card, error)
}
