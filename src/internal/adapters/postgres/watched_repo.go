package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/movieboxd/movieboxd/src/internal/domain"
)

type PostgresWatchedRepo struct {
	db *sql.DB
}

func NewWatchedRepo(db *sql.DB) *PostgresWatchedRepo {
	return &PostgresWatchedRepo{db: db}
}

const watchedColumns = `user_id, film_id, rating, is_favorite, status, logged_at`

// statusSQL recomputes the status column from the row being written, mirroring domain.StatusFor.
const statusSQL = `CASE
	WHEN %[1]s THEN 'favorited'
	WHEN %[2]s IS NOT NULL THEN 'rated'
	ELSE 'watched' END`

func scanWatched(row interface{ Scan(...any) error }) (*domain.Watched, error) {
	var (
		w      domain.Watched
		rating sql.NullFloat64
		status string
	)
	if err := row.Scan(&w.UserID, &w.FilmID, &rating, &w.IsFavorite, &status, &w.LoggedAt); err != nil {
		return nil, err
	}
	if rating.Valid {
		v := rating.Float64
		w.Rating = &v
	}
	w.Status = domain.WatchStatus(status)
	return &w, nil
}

func (r *PostgresWatchedRepo) Get(ctx context.Context, userID, filmID string) (*domain.Watched, error) {
	query := `SELECT ` + watchedColumns + ` FROM watched WHERE user_id = $1 AND film_id = $2`
	w, err := scanWatched(r.db.QueryRowContext(ctx, query, userID, filmID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get watched: %w", err)
	}
	return w, nil
}

func (r *PostgresWatchedRepo) upsert(ctx context.Context, op, query string, args ...any) (*domain.Watched, error) {
	w, err := scanWatched(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return w, nil
}

func (r *PostgresWatchedRepo) UpsertRating(ctx context.Context, userID, filmID string, rating *float64, now time.Time) (*domain.Watched, error) {
	query := `
		INSERT INTO watched (user_id, film_id, rating, is_favorite, status, logged_at)
		VALUES ($1, $2, $3, FALSE, $4, $5)
		ON CONFLICT (user_id, film_id) DO UPDATE SET
			rating = EXCLUDED.rating,
			status = ` + fmt.Sprintf(statusSQL, "watched.is_favorite", "EXCLUDED.rating") + `
		RETURNING ` + watchedColumns
	return r.upsert(ctx, "upsert rating", query,
		userID, filmID, rating, string(domain.StatusFor(rating, false)), now)
}

func (r *PostgresWatchedRepo) UpsertFavorite(ctx context.Context, userID, filmID string, now time.Time) (*domain.Watched, error) {
	query := `
		INSERT INTO watched (user_id, film_id, rating, is_favorite, status, logged_at)
		VALUES ($1, $2, NULL, TRUE, $3, $4)
		ON CONFLICT (user_id, film_id) DO UPDATE SET
			is_favorite = TRUE,
			status = EXCLUDED.status
		RETURNING ` + watchedColumns
	return r.upsert(ctx, "upsert favorite", query,
		userID, filmID, string(domain.WatchStatusFavorited), now)
}

func (r *PostgresWatchedRepo) UpsertLogged(ctx context.Context, userID, filmID string, favorite bool, now time.Time) (*domain.Watched, error) {
	query := `
		INSERT INTO watched (user_id, film_id, rating, is_favorite, status, logged_at)
		VALUES ($1, $2, NULL, $3, $4, $5)
		ON CONFLICT (user_id, film_id) DO UPDATE SET
			is_favorite = EXCLUDED.is_favorite,
			logged_at = EXCLUDED.logged_at,
			status = ` + fmt.Sprintf(statusSQL, "EXCLUDED.is_favorite", "watched.rating") + `
		RETURNING ` + watchedColumns
	return r.upsert(ctx, "upsert logged", query,
		userID, filmID, favorite, string(domain.StatusFor(nil, favorite)), now)
}

func (r *PostgresWatchedRepo) ListByUser(ctx context.Context, userID string, favoritesOnly bool) ([]domain.Watched, error) {
	query := `
		SELECT ` + watchedColumns + `
		FROM watched
		WHERE user_id = $1 AND ($2 = FALSE OR is_favorite)
		ORDER BY logged_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID, favoritesOnly)
	if err != nil {
		return nil, fmt.Errorf("list watched: %w", err)
	}
	defer rows.Close()

	var out []domain.Watched
	for rows.Next() {
		w, err := scanWatched(rows)
		if err != nil {
			return nil, fmt.Errorf("list watched: %w", err)
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

func (r *PostgresWatchedRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM watched WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count watched: %w", err)
	}
	return n, nil
}

func (r *PostgresWatchedRepo) CountByUserBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM watched
		WHERE user_id = $1 AND logged_at >= $2 AND logged_at < $3
	`, userID, from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count watched: %w", err)
	}
	return n, nil
}
