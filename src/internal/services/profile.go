package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/movieboxd/movieboxd/src/internal/domain"
	"github.com/movieboxd/movieboxd/src/internal/ports"
)

type ProfileService struct {
	users   ports.UserRepository
	films   ports.FilmRepository
	watched ports.WatchedRepository
	lists   ports.ListRepository
	now     func() time.Time
}

func NewProfileService(
	users ports.UserRepository,
	films ports.FilmRepository,
	watched ports.WatchedRepository,
	lists ports.ListRepository,
) *ProfileService {
	return &ProfileService{
		users:   users,
		films:   films,
		watched: watched,
		lists:   lists,
		now:     time.Now,
	}
}

// ProfileSummary gathers everything shown on a user's profile page.
func (s *ProfileService) ProfileSummary(ctx context.Context, username string) (*domain.ProfileSummary, error) {
	user, err := lookupUser(ctx, s.users, username)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	summary := &domain.ProfileSummary{User: user.Public()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.watched.CountByUser(gctx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to count watched films: %w", err)
		}
		summary.TotalFilms = n
		return nil
	})
	g.Go(func() error {
		n, err := s.watched.CountByUserBetween(gctx, user.ID, yearStart, yearStart.AddDate(1, 0, 0))
		if err != nil {
			return fmt.Errorf("failed to count films this year: %w", err)
		}
		summary.FilmsThisYear = n
		return nil
	})
	g.Go(func() error {
		favs, err := s.watched.ListByUser(gctx, user.ID, true)
		if err != nil {
			return fmt.Errorf("failed to list favorites: %w", err)
		}
		ids := make([]string, len(favs))
		for i, w := range favs {
			ids[i] = w.FilmID
		}
		films, err := filmsFor(gctx, s.films, ids)
		if err != nil {
			return err
		}
		summary.Favorites = films
		return nil
	})
	g.Go(func() error {
		lists, err := s.lists.ListByUser(gctx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to list lists: %w", err)
		}
		if len(lists) > 0 {
			summary.NewestList = &lists[0]
		}
		return nil
	})
	g.Go(func() error {
		all, err := s.watched.ListByUser(gctx, user.ID, false)
		if err != nil {
			return fmt.Errorf("failed to list watched films: %w", err)
		}
		if len(all) == 0 {
			return nil
		}
		film, err := s.films.GetByID(gctx, all[0].FilmID)
		if err != nil {
			return fmt.Errorf("failed to get last watched film: %w", err)
		}
		summary.LastWatched = film
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summary, nil
}
