// Package reviewlogs provides the PostgreSQL repository for review logs.
package reviewlogs

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/lexisync/internal/common"
	"github.com/dmitrijs2005/lexisync/internal/dbx"
	"github.com/dmitrijs2005/lexisync/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert writes the log by id. A log owned by another user yields
// common.ErrOwnership.
func (r *PostgresRepository) Upsert(ctx context.Context, l *models.ReviewLog) error {
	query := `
		INSERT INTO review_logs (id, card_id, user_id, review_date, rating, elapsed_days, scheduled_days,
			state, due_date, created_at, updated_at, synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		ON CONFLICT (id)
		DO UPDATE SET
			card_id = EXCLUDED.card_id,
			review_date = EXCLUDED.review_date,
			rating = EXCLUDED.rating,
			elapsed_days = EXCLUDED.elapsed_days,
			scheduled_days = EXCLUDED.scheduled_days,
			state = EXCLUDED.state,
			due_date = EXCLUDED.due_date,
			updated_at = EXCLUDED.updated_at,
			synced_at = now()
			WHERE review_logs.user_id = EXCLUDED.user_id;
	`
	res, err := r.db.ExecContext(ctx, query,
		l.ID, l.CardID, l.UserID, l.ReviewDate, l.Rating, l.ElapsedDays, l.ScheduledDays,
		l.State, l.DueDate, l.CreatedAt, l.UpdatedAt)
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

func (r *PostgresRepository) Delete(ctx context.Context, userID, id models.ID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM review_logs WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) SelectChanged(ctx context.Context, userID models.ID, since models.Timestamp) ([]*models.ReviewLog, error) {
	query := `
		SELECT id, card_id, user_id, review_date, rating, elapsed_days, scheduled_days,
			state, due_date, created_at, updated_at
		FROM review_logs
		WHERE user_id = $1 AND (updated_at > $2 OR created_at > $2 OR synced_at > $2)
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to select review logs: %w", err)
	}
	defer rows.Close()

	var result []*models.ReviewLog
	for rows.Next() {
		var l models.ReviewLog
		if err := rows.Scan(
			&l.ID, &l.CardID, &l.UserID, &l.ReviewDate, &l.Rating, &l.ElapsedDays, &l.ScheduledDays,
			&l.State, &l.DueDate, &l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
