package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/movieboxd/movieboxd/src/internal/domain"
	"github.com/movieboxd/movieboxd/src/internal/logging"
	"github.com/movieboxd/movieboxd/src/internal/ports"
)

type EngagementService struct {
	users   ports.UserRepository
	films   ports.FilmRepository
	watched ports.WatchedRepository
	likes   ports.LikeRepository
	now     func() time.Time
}

func NewEngagementService(
	users ports.UserRepository,
	films ports.FilmRepository,
	watched ports.WatchedRepository,
	likes ports.LikeRepository,
) *EngagementService {
	return &EngagementService{
		users:   users,
		films:   films,
		watched: watched,
		likes:   likes,
		now:     time.Now,
	}
}

// LogWatchedRequest records a film watch by username, creating the film when
// it is not yet known.
type LogWatchedRequest struct {
	Username    string `json:"username" validate:"required"`
	TMDBID      *int   `json:"tmdbId,omitempty"`
	Title       string `json:"title" validate:"required"`
	ReleaseYear *int   `json:"releaseYear,omitempty"`
	PosterURL   string `json:"posterUrl,omitempty"`
	Liked       bool   `json:"liked"`
}

// GetLoggedFilm returns nil when the user never logged the film.
func (s *EngagementService) GetLoggedFilm(ctx context.Context, userID, filmID string) (*domain.Watched, error) {
	w, err := s.watched.Get(ctx, userID, filmID)
	if err != nil {
		return nil, fmt.Errorf("failed to get watched record: %w", err)
	}
	return w, nil
}

// LogFilm marks the film watched. An existing record only has its rating
// replaced; a new one is stamped with the current time.
func (s *EngagementService) LogFilm(ctx context.Context, filmID, userID string, rating *float64) (*domain.Watched, error) {
	if err := domain.ValidateRating(rating); err != nil {
		return nil, err
	}
	if err := s.requireFilm(ctx, filmID); err != nil {
		return nil, err
	}
	w, err := s.watched.UpsertRating(ctx, userID, filmID, rating, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to log film: %w", err)
	}
	logging.Ctx(ctx).Debug().Str("user_id", userID).Str("film_id", filmID).Str("status", string(w.Status)).Msg("Film logged")
	return w, nil
}

func (s *EngagementService) FavoriteFilm(ctx context.Context, filmID, userID string) (*domain.Watched, error) {
	if err := s.requireFilm(ctx, filmID); err != nil {
		return nil, err
	}
	w, err := s.watched.UpsertFavorite(ctx, userID, filmID, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to favorite film: %w", err)
	}
	return w, nil
}

// ToggleLike flips the like and reports whether the film is now liked.
func (s *EngagementService) ToggleLike(ctx context.Context, filmID, userID string) (bool, error) {
	if err := s.requireFilm(ctx, filmID); err != nil {
		return false, err
	}
	liked, err := s.likes.Toggle(ctx, userID, filmID, s.now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to toggle like: %w", err)
	}
	return liked, nil
}

func (s *EngagementService) IsFilmLiked(ctx context.Context, filmID, userID string) (bool, error) {
	liked, err := s.likes.Exists(ctx, userID, filmID)
	if err != nil {
		return false, fmt.Errorf("failed to check like: %w", err)
	}
	return liked, nil
}

// LogWatched resolves the user and film, then records the watch. It returns
// the id of the film that was logged.
func (s *EngagementService) LogWatched(ctx context.Context, req LogWatchedRequest) (string, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Title = strings.TrimSpace(req.Title)
	if req.Username == "" || req.Title == "" {
		return "", fmt.Errorf("%w: username and title", domain.ErrMissingFields)
	}

	user, err := lookupUser(ctx, s.users, req.Username)
	if err != nil {
		return "", err
	}

	film, err := findOrCreateFilm(ctx, s.films, domain.ListFilmInput{
		TMDBID:      req.TMDBID,
		Title:       req.Title,
		ReleaseYear: req.ReleaseYear,
		PosterURL:   req.PosterURL,
	})
	if err != nil {
		return "", fmt.Errorf("failed to resolve film: %w", err)
	}

	now := s.now().UTC()
	if _, err := s.watched.UpsertLogged(ctx, user.ID, film.ID, req.Liked, now); err != nil {
		return "", fmt.Errorf("failed to log watched film: %w", err)
	}
	if req.Liked {
		if err := s.likes.Ensure(ctx, user.ID, film.ID, now); err != nil {
			return "", fmt.Errorf("failed to like film: %w", err)
		}
	}

	logging.Ctx(ctx).Info().
		Str("username", user.Username).
		Str("film_id", film.ID).
		Bool("liked", req.Liked).
		Msg("Watched film logged")
	return film.ID, nil
}

// WatchedFilms lists the films a user logged, most recent first.
func (s *EngagementService) WatchedFilms(ctx context.Context, username string, favoritesOnly bool) ([]domain.Film, error) {
	user, err := lookupUser(ctx, s.users, username)
	if err != nil {
		return nil, err
	}
	records, err := s.watched.ListByUser(ctx, user.ID, favoritesOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list watched films: %w", err)
	}
	ids := make([]string, len(records))
	for i, w := range records {
		ids[i] = w.FilmID
	}
	return filmsFor(ctx, s.films, ids)
}

// LikedFilms lists the films a user liked, newest like first.
func (s *EngagementService) LikedFilms(ctx context.Context, username string) ([]domain.Film, error) {
	user, err := lookupUser(ctx, s.users, username)
	if err != nil {
		return nil, err
	}
	likes, err := s.likes.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list likes: %w", err)
	}
	ids := make([]string, len(likes))
	for i, l := range likes {
		ids[i] = l.FilmID
	}
	return filmsFor(ctx, s.films, ids)
}

// FilmEngagement reports the caller's state for one film. A film the user
// never logged reports the unwatched status.
func (s *EngagementService) FilmEngagement(ctx context.Context, filmID, userID string) (*domain.FilmEngagement, error) {
	var (
		w     *domain.Watched
		liked bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		w, err = s.GetLoggedFilm(gctx, userID, filmID)
		return err
	})
	g.Go(func() error {
		var err error
		liked, err = s.IsFilmLiked(gctx, filmID, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &domain.FilmEngagement{IsLiked: liked, Status: domain.WatchStatusUnwatched}
	if w != nil {
		out.IsWatched = true
		out.Status = w.Status
		out.Rating = w.Rating
	}
	return out, nil
}

func (s *EngagementService) requireFilm(ctx context.Context, filmID string) error {
	film, err := s.films.GetByID(ctx, filmID)
	if err != nil {
		return fmt.Errorf("failed to get film %s: %w", filmID, err)
	}
	if film == nil {
		return domain.ErrFilmNotFound
	}
	return nil
}

// lookupUser resolves a username to its user or domain.ErrUserNotFound.
func lookupUser(ctx context.Context, users ports.UserRepository, username string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username", domain.ErrMissingFields)
	}
	user, err := users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", username, err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}
