package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/movieboxd/movieboxd/src/internal/domain"
)

type PostgresLikeRepo struct {
	db *sql.DB
}

func NewLikeRepo(db *sql.DB) *PostgresLikeRepo {
	return &PostgresLikeRepo{db: db}
}

func (r *PostgresLikeRepo) Exists(ctx context.Context, userID, filmID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM likes WHERE user_id = $1 AND film_id = $2)`,
		userID, filmID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("like exists: %w", err)
	}
	return exists, nil
}

// Toggle serializes concurrent toggles of the same pair with an advisory lock.
func (r *PostgresLikeRepo) Toggle(ctx context.Context, userID, filmID string, now time.Time) (bool, error) {
	var liked bool
	err := WithTx(ctx, r.db, func(ctx context.Context, tx DBTX) error {
		if err := advisoryLock(ctx, tx, "like:"+userID+":"+filmID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`DELETE FROM likes WHERE user_id = $1 AND film_id = $2`, userID, filmID)
		if err != nil {
			return fmt.Errorf("delete like: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete like: %w", err)
		}
		if n > 0 {
			liked = false
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO likes (user_id, film_id, created_at) VALUES ($1, $2, $3)`,
			userID, filmID, now); err != nil {
			return fmt.Errorf("insert like: %w", err)
		}
		liked = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return liked, nil
}

func (r *PostgresLikeRepo) Ensure(ctx context.Context, userID, filmID string, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO likes (user_id, film_id, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, film_id) DO NOTHING
	`, userID, filmID, now)
	if err != nil {
		return fmt.Errorf("ensure like: %w", err)
	}
	return nil
}

func (r *PostgresLikeRepo) ListByUser(ctx context.Context, userID string) ([]domain.Like, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, film_id, created_at FROM likes
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list likes: %w", err)
	}
	defer rows.Close()

	var likes []domain.Like
	for rows.Next() {
		var l domain.Like
		if err := rows.Scan(&l.UserID, &l.FilmID, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("list likes: %w", err)
		}
		likes = append(likes, l)
	}
	return likes, rows.Err()
}
