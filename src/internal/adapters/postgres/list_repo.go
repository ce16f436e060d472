package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/movieboxd/movieboxd/src/internal/domain"
)

type PostgresListRepo struct {
	db *sql.DB
}

func NewListRepo(db *sql.DB) *PostgresListRepo {
	return &PostgresListRepo{db: db}
}

// filmLockKey identifies the film an input would resolve to, so concurrent
// list creations cannot insert the same film twice.
func filmLockKey(in domain.ListFilmInput) string {
	if in.TMDBID != nil {
		return "film:tmdb:" + strconv.Itoa(*in.TMDBID)
	}
	return "film:title:" + in.Title
}

// lockListFilms takes every film lock a list needs, deduplicated and in
// sorted order, so two creations naming the same films in different orders
// cannot wait on each other.
func lockListFilms(ctx context.Context, tx DBTX, films []domain.ListFilmInput) error {
	keys := make([]string, 0, len(films))
	for _, in := range films {
		keys = append(keys, filmLockKey(in))
	}
	slices.Sort(keys)
	for _, key := range slices.Compact(keys) {
		if err := advisoryLock(ctx, tx, key); err != nil {
			return err
		}
	}
	return nil
}

// resolveListFilm expects the film's lock to be held already.
func resolveListFilm(ctx context.Context, tx DBTX, in domain.ListFilmInput) (string, error) {
	var (
		existing *domain.Film
		err      error
	)
	if in.TMDBID != nil {
		existing, err = getFilmByTMDBID(ctx, tx, *in.TMDBID)
	} else {
		existing, err = getFilmByTitle(ctx, tx, in.Title)
	}
	if err != nil {
		return "", err
	}
	if existing != nil {
		return existing.ID, nil
	}

	stored, _, err := insertFilm(ctx, tx, &domain.Film{
		TMDBID:      in.TMDBID,
		Title:       in.Title,
		ReleaseYear: in.ReleaseYear,
		PosterURL:   in.PosterURL,
	})
	if err != nil {
		return "", err
	}
	return stored.ID, nil
}

func (r *PostgresListRepo) Create(ctx context.Context, list *domain.List, films []domain.ListFilmInput) (*domain.List, error) {
	if list.ID == "" {
		list.ID = uuid.NewString()
	}
	err := WithTx(ctx, r.db, func(ctx context.Context, tx DBTX) error {
		if err := lockListFilms(ctx, tx, films); err != nil {
			return err
		}

		ids := make([]string, 0, len(films))
		for _, in := range films {
			id, err := resolveListFilm(ctx, tx, in)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO lists (id, user_id, title, description, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, list.ID, list.UserID, list.Title, list.Description, list.CreatedAt, list.UpdatedAt); err != nil {
			return fmt.Errorf("insert list: %w", err)
		}
		for pos, id := range ids {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO list_films (list_id, position, film_id) VALUES ($1, $2, $3)`,
				list.ID, pos, id); err != nil {
				return fmt.Errorf("insert list film: %w", err)
			}
		}
		list.FilmIDs = ids
		return nil
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *PostgresListRepo) GetByID(ctx context.Context, id string) (*domain.List, error) {
	var l domain.List
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, description, created_at, updated_at
		FROM lists WHERE id = $1
	`, id).Scan(&l.ID, &l.UserID, &l.Title, &l.Description, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get list: %w", err)
	}

	lists := []domain.List{l}
	if err := r.attachFilms(ctx, lists); err != nil {
		return nil, err
	}
	return &lists[0], nil
}

func (r *PostgresListRepo) ListByUser(ctx context.Context, userID string) ([]domain.List, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, title, description, created_at, updated_at
		FROM lists
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list lists: %w", err)
	}
	defer rows.Close()

	var lists []domain.List
	for rows.Next() {
		var l domain.List
		if err := rows.Scan(&l.ID, &l.UserID, &l.Title, &l.Description, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list lists: %w", err)
		}
		lists = append(lists, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list lists: %w", err)
	}
	if err := r.attachFilms(ctx, lists); err != nil {
		return nil, err
	}
	return lists, nil
}

func (r *PostgresListRepo) attachFilms(ctx context.Context, lists []domain.List) error {
	if len(lists) == 0 {
		return nil
	}
	index := make(map[string]int, len(lists))
	ids := make([]string, len(lists))
	for i, l := range lists {
		index[l.ID] = i
		ids[i] = l.ID
		lists[i].FilmIDs = []string{}
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT list_id, film_id FROM list_films
		WHERE list_id = ANY($1)
		ORDER BY list_id, position
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("list films of lists: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var listID, filmID string
		if err := rows.Scan(&listID, &filmID); err != nil {
			return fmt.Errorf("list films of lists: %w", err)
		}
		i := index[listID]
		lists[i].FilmIDs = append(lists[i].FilmIDs, filmID)
	}
	return rows.Err()
}
