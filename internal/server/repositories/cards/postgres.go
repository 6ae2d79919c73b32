// Package cards provides the PostgreSQL repository for vocabulary cards.
package cards

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/lexisync/internal/common"
	"github.com/dmitrijs2005/lexisync/internal/dbx"
	"github.com/dmitrijs2005/lexisync/internal/models"
)

// PostgresRepository implements card storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert inserts the card or replaces every client-owned column of an
// existing one. A card with the same id owned by another user is left as is
// and common.ErrOwnership is returned. synced_at is set to the transaction
// time on every write.
func (r *PostgresRepository) Upsert(ctx context.Context, c *models.Card) error {
	query := `
		INSERT INTO cards (id, user_id, word, meaning, example_sentence, due_date, stability, difficulty,
			elapsed_days, scheduled_days, reps, lapses, state, last_review, created_at, updated_at, synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, now())
		ON CONFLICT (id)
		DO UPDATE SET
			word = EXCLUDED.word,
			meaning = EXCLUDED.meaning,
			example_sentence = EXCLUDED.example_sentence,
			due_date = EXCLUDED.due_date,
			stability = EXCLUDED.stability,
			difficulty = EXCLUDED.difficulty,
			elapsed_days = EXCLUDED.elapsed_days,
			scheduled_days = EXCLUDED.scheduled_days,
			reps = EXCLUDED.reps,
			lapses = EXCLUDED.lapses,
			state = EXCLUDED.state,
			last_review = EXCLUDED.last_review,
			updated_at = EXCLUDED.updated_at,
			synced_at = now()
			WHERE cards.user_id = EXCLUDED.user_id;
	`
	res, err := r.db.ExecContext(ctx, query,
		c.ID, c.UserID, c.Word, c.Meaning, c.ExampleSentence, c.DueDate, c.Stability, c.Difficulty,
		c.ElapsedDays, c.ScheduledDays, c.Reps, c.Lapses, c.State, c.LastReview, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrOwnership
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// Delete removes the card if it exists and belongs to userID. It reports
// whether a row was removed.
func (r *PostgresRepository) Delete(ctx context.Context, userID, id models.ID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cards WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n > 0, nil
}

// SelectChanged returns the cards of userID created, updated or written to
// the server after since.
func (r *PostgresRepository) SelectChanged(ctx context.Context, userID models.ID, since models.Timestamp) ([]*models.Card, error) {
	query := `
		SELECT id, user_id, word, meaning, example_sentence, due_date, stability, difficulty,
			elapsed_days, scheduled_days, reps, lapses, state, last_review, created_at, updated_at
		FROM cards
		WHERE user_id = $1 AND (updated_at > $2 OR created_at > $2 OR synced_at > $2)
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to select cards: %w", err)
	}
	defer rows.Close()

	var result []*models.Card
	for rows.Next() {
		var c models.Card
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.Word, &c.Meaning, &c.ExampleSentence, &c.DueDate, &c.Stability, &c.Difficulty,
			&c.ElapsedDays, &c.ScheduledDays, &c.Reps, &c.Lapses, &c.State, &c.LastReview, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
