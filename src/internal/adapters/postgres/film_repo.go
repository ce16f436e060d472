package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/movieboxd/movieboxd/src/internal/domain"
)

type PostgresFilmRepo struct {
	db *sql.DB
}

func NewFilmRepo(db *sql.DB) *PostgresFilmRepo {
	return &PostgresFilmRepo{db: db}
}

const filmColumns = `id, tmdb_id, title, release_year, poster_url, directors, cast_members,
	synopsis, runtime_minutes, genres, average_rating, total_ratings`

func scanFilm(row interface{ Scan(...any) error }, extra ...any) (*domain.Film, error) {
	var (
		f                       domain.Film
		tmdbID, year, runtime   sql.NullInt64
		directors, cast, genres []byte
	)
	dest := []any{
		&f.ID, &tmdbID, &f.Title, &year, &f.PosterURL, &directors, &cast,
		&f.Synopsis, &runtime, &genres, &f.AverageRating, &f.TotalRatings,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	f.TMDBID = nullInt(tmdbID)
	f.ReleaseYear = nullInt(year)
	f.RuntimeMinutes = nullInt(runtime)
	if err := unmarshalJSONColumn(directors, &f.Directors); err != nil {
		return nil, err
	}
	if err := unmarshalJSONColumn(cast, &f.Cast); err != nil {
		return nil, err
	}
	if err := unmarshalJSONColumn(genres, &f.Genres); err != nil {
		return nil, err
	}
	return &f, nil
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func unmarshalJSONColumn(b []byte, v any) error {
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode json column: %w", err)
	}
	return nil
}

func jsonColumn(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return []byte("[]"), nil
	}
	return b, nil
}

func getFilmWhere(ctx context.Context, q DBTX, where string, arg any) (*domain.Film, error) {
	query := `SELECT ` + filmColumns + ` FROM films WHERE ` + where
	f, err := scanFilm(q.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get film: %w", err)
	}
	return f, nil
}

func getFilmByTitle(ctx context.Context, q DBTX, title string) (*domain.Film, error) {
	return getFilmWhere(ctx, q, `title = $1 ORDER BY created_at, id LIMIT 1`, title)
}

func getFilmByTMDBID(ctx context.Context, q DBTX, tmdbID int) (*domain.Film, error) {
	return getFilmWhere(ctx, q, `tmdb_id = $1`, tmdbID)
}

// insertFilm writes film, or returns the existing row when its TMDB id is
// already stored. Films without a TMDB id are always inserted.
func insertFilm(ctx context.Context, q DBTX, film *domain.Film) (*domain.Film, bool, error) {
	if film.ID == "" {
		film.ID = uuid.NewString()
	}
	directors, err := jsonColumn(film.Directors)
	if err != nil {
		return nil, false, fmt.Errorf("encode directors: %w", err)
	}
	cast, err := jsonColumn(film.Cast)
	if err != nil {
		return nil, false, fmt.Errorf("encode cast: %w", err)
	}
	genres, err := jsonColumn(film.Genres)
	if err != nil {
		return nil, false, fmt.Errorf("encode genres: %w", err)
	}

	// The no-op update makes RETURNING yield the existing row on conflict;
	// xmax is zero only for freshly inserted tuples.
	query := `
		INSERT INTO films (id, tmdb_id, title, release_year, poster_url, directors, cast_members,
			synopsis, runtime_minutes, genres, average_rating, total_ratings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (tmdb_id) DO UPDATE SET tmdb_id = films.tmdb_id
		RETURNING ` + filmColumns + `, (xmax = 0) AS inserted
	`
	var inserted bool
	stored, err := scanFilm(q.QueryRowContext(ctx, query,
		film.ID, film.TMDBID, film.Title, film.ReleaseYear, film.PosterURL, directors, cast,
		film.Synopsis, film.RuntimeMinutes, genres, film.AverageRating, film.TotalRatings,
	), &inserted)
	if err != nil {
		return nil, false, fmt.Errorf("insert film: %w", err)
	}
	return stored, inserted, nil
}

func (r *PostgresFilmRepo) GetByID(ctx context.Context, id string) (*domain.Film, error) {
	return getFilmWhere(ctx, r.db, `id = $1`, id)
}

func (r *PostgresFilmRepo) GetByTMDBID(ctx context.Context, tmdbID int) (*domain.Film, error) {
	return getFilmByTMDBID(ctx, r.db, tmdbID)
}

func (r *PostgresFilmRepo) GetByTitle(ctx context.Context, title string) (*domain.Film, error) {
	return getFilmByTitle(ctx, r.db, title)
}

func (r *PostgresFilmRepo) InsertIfAbsent(ctx context.Context, film *domain.Film) (*domain.Film, bool, error) {
	return insertFilm(ctx, r.db, film)
}

func (r *PostgresFilmRepo) ListByIDs(ctx context.Context, ids []string) ([]domain.Film, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+filmColumns+` FROM films WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("list films: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]domain.Film, len(ids))
	for rows.Next() {
		f, err := scanFilm(rows)
		if err != nil {
			return nil, fmt.Errorf("list films: %w", err)
		}
		byID[f.ID] = *f
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list films: %w", err)
	}

	films := make([]domain.Film, 0, len(ids))
	for _, id := range ids {
		if f, ok := byID[id]; ok {
			films = append(films, f)
		}
	}
	return films, nil
}
