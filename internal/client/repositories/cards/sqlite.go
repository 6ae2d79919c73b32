package cards

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/lexisync/internal/common"
	"github.com/dmitrijs2005/lexisync/internal/dbx"
	"github.com/dmitrijs2005/lexisync/internal/models"
)

const cardColumns = `id, user_id, word, meaning, example_sentence, due_date, stability, difficulty,
	elapsed_days, scheduled_days, reps, lapses, state, last_review, created_at, updated_at`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Upsert inserts the card or overwrites the stored one. A stored card of
// another user is left alone and common.ErrOwnership is returned.
func (r *SQLiteRepository) Upsert(ctx context.Context, c *models.Card) error {
	query := `INSERT INTO cards (` + cardColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			word = excluded.word,
			meaning = excluded.meaning,
			example_sentence = excluded.example_sentence,
			due_date = excluded.due_date,
			stability = excluded.stability,
			difficulty = excluded.difficulty,
			elapsed_days = excluded.elapsed_days,
			scheduled_days = excluded.scheduled_days,
			reps = excluded.reps,
			lapses = excluded.lapses,
			state = excluded.state,
			last_review = excluded.last_review,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
		WHERE cards.user_id = excluded.user_id`
	res, err := r.db.ExecContext(ctx, query,
		c.ID, c.UserID, c.Word, c.Meaning, c.ExampleSentence, c.DueDate, c.Stability, c.Difficulty,
		c.ElapsedDays, c.ScheduledDays, c.Reps, c.Lapses, c.State, c.LastReview, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert card: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrOwnership
	}
	return nil
}

// DeleteByID removes the card and reports whether it existed.
func (r *SQLiteRepository) DeleteByID(ctx context.Context, userID, id models.ID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cards WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete card: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, userID, id models.ID) (*models.Card, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ? AND user_id = ?`, id, userID)
	c, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return c, nil
}

// ListDue returns up to limit cards due at or before now, earliest first.
// A non-positive limit means no limit.
func (r *SQLiteRepository) ListDue(ctx context.Context, userID models.ID, now models.Timestamp, limit int) ([]*models.Card, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT ` + cardColumns + ` FROM cards
		WHERE user_id = ? AND due_date <= ?
		ORDER BY due_date, id
		LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, userID, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select due cards: %w", err)
	}
	defer rows.Close()

	var result []*models.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCard(s scanner) (*models.Card, error) {
	var c models.Card
	err := s.Scan(&c.ID, &c.UserID, &c.Word, &c.Meaning, &c.ExampleSentence, &c.DueDate, &c.Stability, &c.Difficulty,
		&c.ElapsedDays, &c.ScheduledDays, &c.Reps, &c.Lapses, &c.State, &c.LastReview, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
