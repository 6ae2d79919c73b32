// Package services contains the client's local write operations. Each
// operation changes the local tables and appends the matching mutation
// records to the sync queue in the same SQLite transaction, so a change is
// never visible locally without also being queued for the server.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/lexisync/internal/client/repositories/queue"
	"github.com/dmitrijs2005/lexisync/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/lexisync/internal/client/scheduler"
	"github.com/dmitrijs2005/lexisync/internal/common"
	"github.com/dmitrijs2005/lexisync/internal/dbx"
	"github.com/dmitrijs2005/lexisync/internal/models"
	"github.com/dmitrijs2005/lexisync/internal/syncproto"
)

var ErrInvalidInput = errors.New("invalid input")

// StudyService is the set of local study operations. Every method takes the
// account explicitly.
type StudyService interface {
	AddCard(ctx context.Context, accountID models.ID, word, meaning, example string) (*models.Card, error)
	Review(ctx context.Context, accountID, cardID models.ID, rating int) (*models.Card, *models.ReviewLog, error)
	DeleteCard(ctx context.Context, accountID, cardID models.ID) error
	SetProfile(ctx context.Context, accountID models.ID, username string) (*models.User, error)
	Due(ctx context.Context, accountID models.ID, limit int) ([]*models.Card, error)
}

type studyService struct {
	db        *sql.DB
	repos     repomanager.RepositoryManager
	scheduler scheduler.Scheduler
	now       func() time.Time
}

func NewStudyService(db *sql.DB, repos repomanager.RepositoryManager, s scheduler.Scheduler) StudyService {
	return &studyService{db: db, repos: repos, scheduler: s, now: time.Now}
}

func (s *studyService) AddCard(ctx context.Context, accountID models.ID, word, meaning, example string) (*models.Card, error) {
	word, meaning = strings.TrimSpace(word), strings.TrimSpace(meaning)
	if word == "" || meaning == "" {
		return nil, fmt.Errorf("%w: word and meaning are required", ErrInvalidInput)
	}

	now := s.now()
	ts := models.NewTimestamp(now)
	c := scheduler.NewCardState(models.Card{
		ID:              models.NewID(),
		UserID:          accountID,
		Word:            word,
		Meaning:         meaning,
		ExampleSentence: strings.TrimSpace(example),
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}, now)

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Cards(tx).Upsert(ctx, &c); err != nil {
			return err
		}
		return enqueue(ctx, s.repos.Queue(tx), accountID, syncproto.TableCards, syncproto.OpAdd, c.ID, c)
	})
	if err != nil {
		return nil, fmt.Errorf("add card: %w", err)
	}
	return &c, nil
}

// Review grades a card, stores the rescheduled card and a new review log,
// and queues cards/update followed by review_logs/add.
func (s *studyService) Review(ctx context.Context, accountID, cardID models.ID, rating int) (*models.Card, *models.ReviewLog, error) {
	var (
		card models.Card
		log  models.ReviewLog
	)

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		current, err := s.repos.Cards(tx).GetByID(ctx, accountID, cardID)
		if err != nil {
			return err
		}

		card, log, err = s.scheduler.Next(*current, rating, s.now())
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		log.ID = models.NewID()

		if err := s.repos.Cards(tx).Upsert(ctx, &card); err != nil {
			return err
		}
		if err := s.repos.ReviewLogs(tx).Upsert(ctx, &log); err != nil {
			return err
		}

		q := s.repos.Queue(tx)
		if err := enqueue(ctx, q, accountID, syncproto.TableCards, syncproto.OpUpdate, card.ID, card); err != nil {
			return err
		}
		return enqueue(ctx, q, accountID, syncproto.TableReviewLogs, syncproto.OpAdd, log.ID, log)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("review: %w", err)
	}
	return &card, &log, nil
}

// DeleteCard removes the card locally and queues cards/delete. Its review
// logs are kept.
func (s *studyService) DeleteCard(ctx context.Context, accountID, cardID models.ID) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		removed, err := s.repos.Cards(tx).DeleteByID(ctx, accountID, cardID)
		if err != nil {
			return err
		}
		if !removed {
			return common.ErrorNotFound
		}
		ref := models.Ref{ID: cardID, UserID: accountID}
		return enqueue(ctx, s.repos.Queue(tx), accountID, syncproto.TableCards, syncproto.OpDelete, cardID, ref)
	})
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	return nil
}

// SetProfile creates or renames the account's user record.
func (s *studyService) SetProfile(ctx context.Context, accountID models.ID, username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}

	ts := models.NewTimestamp(s.now())
	u := models.User{ID: accountID, Username: username, CreatedAt: ts, UpdatedAt: ts}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		op := syncproto.OpAdd
		existing, err := s.repos.Users(tx).GetByID(ctx, accountID)
		switch {
		case err == nil:
			op = syncproto.OpUpdate
			u.CreatedAt = existing.CreatedAt
		case !errors.Is(err, common.ErrorNotFound):
			return err
		}

		if err := s.repos.Users(tx).Upsert(ctx, &u); err != nil {
			return err
		}
		return enqueue(ctx, s.repos.Queue(tx), accountID, syncproto.TableUsers, op, u.ID, u)
	})
	if err != nil {
		return nil, fmt.Errorf("set profile: %w", err)
	}
	return &u, nil
}

func (s *studyService) Due(ctx context.Context, accountID models.ID, limit int) ([]*models.Card, error) {
	return s.repos.Cards(s.db).ListDue(ctx, accountID, models.NewTimestamp(s.now()), limit)
}

func enqueue(ctx context.Context, q queue.Repository, accountID models.ID, table syncproto.Table,
	op syncproto.Operation, entityID models.ID, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", table, err)
	}
	_, err = q.Enqueue(ctx, &queue.Record{
		AccountID: accountID,
		TableName: table,
		Operation: op,
		EntityID:  entityID,
		Payload:   raw,
	})
	return err
}
