package reviewlogs

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/lexisync/internal/common"
	"github.com/dmitrijs2005/lexisync/internal/dbx"
	"github.com/dmitrijs2005/lexisync/internal/models"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, l *models.ReviewLog) error {
	query := `INSERT INTO review_logs (id, card_id, user_id, review_date, rating, elapsed_days, scheduled_days,
			state, due_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			card_id = excluded.card_id,
			review_date = excluded.review_date,
			rating = excluded.rating,
			elapsed_days = excluded.elapsed_days,
			scheduled_days = excluded.scheduled_days,
			state = excluded.state,
			due_date = excluded.due_date,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
		WHERE review_logs.user_id = excluded.user_id`
	res, err := r.db.ExecContext(ctx, query,
		l.ID, l.CardID, l.UserID, l.ReviewDate, l.Rating, l.ElapsedDays, l.ScheduledDays,
		l.State, l.DueDate, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert review log: %w", err)
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

func (r *SQLiteRepository) DeleteByID(ctx context.Context, userID, id models.ID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM review_logs WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete review log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// ListByCard returns the card's reviews, oldest first.
func (r *SQLiteRepository) ListByCard(ctx context.Context, userID, cardID models.ID) ([]*models.ReviewLog, error) {
	query := `SELECT id, card_id, user_id, review_date, rating, elapsed_days, scheduled_days,
			state, due_date, created_at, updated_at
		FROM review_logs WHERE user_id = ? AND card_id = ?
		ORDER BY review_date, id`
	rows, err := r.db.QueryContext(ctx, query, userID, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to select review logs: %w", err)
	}
	defer rows.Close()

	var result []*models.ReviewLog
	for rows.Next() {
		var l models.ReviewLog
		if err := rows.Scan(&l.ID, &l.CardID, &l.UserID, &l.ReviewDate, &l.Rating, &l.ElapsedDays, &l.ScheduledDays,
			&l.State, &l.DueDate, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review log: %w", err)
		}
		result = append(result, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
