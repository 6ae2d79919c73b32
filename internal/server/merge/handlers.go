package merge

import (
	"context"

	"github.com/dmitrijs2005/lexisync/internal/models"
	"github.com/dmitrijs2005/lexisync/internal/syncproto"
)

var cardHandler = &entityHandler[models.Card]{
	table:  syncproto.TableCards,
	decode: models.DecodeCard,
	owner:  func(c *models.Card) *models.ID { return &c.UserID },
	key:    func(c *models.Card) models.ID { return c.ID },
	upsert: func(ctx context.Context, r *Repos, c *models.Card) error { return r.Cards.Upsert(ctx, c) },
	delete: func(ctx context.Context, r *Repos, userID, id models.ID) (bool, error) {
		return r.Cards.Delete(ctx, userID, id)
	},
}

var reviewLogHandler = &entityHandler[models.ReviewLog]{
	table:  syncproto.TableReviewLogs,
	decode: models.DecodeReviewLog,
	owner:  func(l *models.ReviewLog) *models.ID { return &l.UserID },
	key:    func(l *models.ReviewLog) models.ID { return l.ID },
	upsert: func(ctx context.Context, r *Repos, l *models.ReviewLog) error { return r.ReviewLogs.Upsert(ctx, l) },
	delete: func(ctx context.Context, r *Repos, userID, id models.ID) (bool, error) {
		return r.ReviewLogs.Delete(ctx, userID, id)
	},
}

// The user record is keyed by the account itself, so its id doubles as the
// owner field.
var userHandler = &entityHandler[models.User]{
	table:  syncproto.TableUsers,
	decode: models.DecodeUser,
	owner:  func(u *models.User) *models.ID { return &u.ID },
	key:    func(u *models.User) models.ID { return u.ID },
	upsert: func(ctx context.Context, r *Repos, u *models.User) error { return r.Users.Upsert(ctx, u) },
	delete: func(ctx context.Context, r *Repos, userID, id models.ID) (bool, error) {
		return r.Users.Delete(ctx, userID, id)
	},
}
