package users

import (
	"context"

	"github.com/dmitrijs2005/lexisync/internal/models"
)

type Repository interface {
	Upsert(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, userID, id models.ID) (bool, error)
	SelectChanged(ctx context.Context, userID models.ID, since models.Timestamp) ([]*models.User, error)
}
