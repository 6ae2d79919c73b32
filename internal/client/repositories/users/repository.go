// Package users stores the local profile records.
package users

import (
	"context"

	"github.com/dmitrijs2005/lexisync/internal/models"
)

type Repository interface {
	Upsert(ctx context.Context, user *models.User) error
	DeleteByID(ctx context.Context, id models.ID) (bool, error)
	GetByID(ctx context.Context, id models.ID) (*models.User, error)
}
