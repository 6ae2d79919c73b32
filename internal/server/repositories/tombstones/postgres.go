// Package tombstones records server-side deletes so they can be propagated
// to the other devices of an account.
package tombstones

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/lexisync/internal/dbx"
	"github.com/dmitrijs2005/lexisync/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert records the delete at the transaction time. DeletedAt of t is
// ignored.
func (r *PostgresRepository) Upsert(ctx context.Context, t *models.Tombstone) error {
	query := `
		INSERT INTO tombstones (table_name, id, user_id, deleted_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (table_name, id)
		DO UPDATE SET user_id = EXCLUDED.user_id, deleted_at = now();
	`
	if _, err := r.db.ExecContext(ctx, query, t.TableName, t.ID, t.UserID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Clear forgets a delete, used when the row is written again.
func (r *PostgresRepository) Clear(ctx context.Context, table string, id models.ID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tombstones WHERE table_name = $1 AND id = $2`, table, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SelectSince(ctx context.Context, userID models.ID, since models.Timestamp) ([]*models.Tombstone, error) {
	query := `
		SELECT table_name, id, user_id, deleted_at
		FROM tombstones
		WHERE user_id = $1 AND deleted_at > $2
		ORDER BY table_name, id
	`
	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to select tombstones: %w", err)
	}
	defer rows.Close()

	var result []*models.Tombstone
	for rows.Next() {
		var t models.Tombstone
		if err := rows.Scan(&t.TableName, &t.ID, &t.UserID, &t.DeletedAt); err != nil {
			return nil, err
		}
		result = append(result, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
