package ports

import (
	"context"
	"errors"
	"time"

	"github.com/movieboxd/movieboxd/src/internal/domain"
)

var (
	ErrCatalogNotFound    = errors.New("catalog: movie not found")
	ErrCatalogUnavailable = errors.New("catalog: service unavailable")
)

// Lookups that can legitimately miss return (nil, nil).

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	// CreateIfAbsent inserts the user unless its email or username is
	// already taken, reporting whether the row was written.
	CreateIfAbsent(ctx context.Context, user *domain.User) (bool, error)
	// UpdateProfile overwrites username, name, bio and avatar of user.ID.
	// Returns domain.ErrUsernameTaken when the username belongs to someone else.
	UpdateProfile(ctx context.Context, user *domain.User) error
	Search(ctx context.Context, query string, limit int) ([]domain.User, error)
}

type FilmRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Film, error)
	GetByTMDBID(ctx context.Context, tmdbID int) (*domain.Film, error)
	GetByTitle(ctx context.Context, title string) (*domain.Film, error)
	// InsertIfAbsent stores film unless a film with the same TMDB id exists.
	// It returns the stored row either way and whether it was created.
	InsertIfAbsent(ctx context.Context, film *domain.Film) (*domain.Film, bool, error)
	// ListByIDs returns films in the order of ids, skipping unknown ids.
	ListByIDs(ctx context.Context, ids []string) ([]domain.Film, error)
}

type WatchedRepository interface {
	Get(ctx context.Context, userID, filmID string) (*domain.Watched, error)
	// UpsertRating overwrites only the rating of an existing record, or
	// inserts a new one logged at now.
	UpsertRating(ctx context.Context, userID, filmID string, rating *float64, now time.Time) (*domain.Watched, error)
	// UpsertFavorite sets the favorite flag, inserting an unrated record if needed.
	UpsertFavorite(ctx context.Context, userID, filmID string, now time.Time) (*domain.Watched, error)
	// UpsertLogged stamps LoggedAt = now and IsFavorite = favorite, keeping any rating.
	UpsertLogged(ctx context.Context, userID, filmID string, favorite bool, now time.Time) (*domain.Watched, error)
	// ListByUser returns records newest LoggedAt first.
	ListByUser(ctx context.Context, userID string, favoritesOnly bool) ([]domain.Watched, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	CountByUserBetween(ctx context.Context, userID string, from, to time.Time) (int, error)
}

type LikeRepository interface {
	Exists(ctx context.Context, userID, filmID string) (bool, error)
	// Toggle flips the like and returns the new state.
	Toggle(ctx context.Context, userID, filmID string, now time.Time) (bool, error)
	Ensure(ctx context.Context, userID, filmID string, now time.Time) error
	ListByUser(ctx context.Context, userID string) ([]domain.Like, error)
}

type ListRepository interface {
	// Create resolves every input film (TMDB id first, then exact title),
	// inserts the missing ones and stores the list. Nothing is written on error.
	Create(ctx context.Context, list *domain.List, films []domain.ListFilmInput) (*domain.List, error)
	GetByID(ctx context.Context, id string) (*domain.List, error)
	// ListByUser returns lists newest first.
	ListByUser(ctx context.Context, userID string) ([]domain.List, error)
}

type LockManager interface {
	TryAcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

type Catalog interface {
	SearchMovies(ctx context.Context, query string, page int) (*domain.CatalogPage, error)
	PopularMovies(ctx context.Context, page int) (*domain.CatalogPage, error)
	GetMovieDetails(ctx context.Context, tmdbID int) (*domain.CatalogMovieDetails, error)
}
