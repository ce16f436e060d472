package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/movieboxd/movieboxd/src/internal/domain"
	"github.com/movieboxd/movieboxd/src/internal/logging"
	"github.com/movieboxd/movieboxd/src/internal/metrics"
	"github.com/movieboxd/movieboxd/src/internal/ports"
)

// topCastSize bounds how many billed cast members are copied onto a film.
const topCastSize = 10

type FilmService struct {
	films     ports.FilmRepository
	catalog   ports.Catalog
	posterURL func(path string) string
}

// NewFilmService wires the film store to the catalog. posterURL turns a
// catalog image path into an absolute URL.
func NewFilmService(films ports.FilmRepository, catalog ports.Catalog, posterURL func(string) string) *FilmService {
	return &FilmService{
		films:     films,
		catalog:   catalog,
		posterURL: posterURL,
	}
}

// AddFilm stores film unless one with the same TMDB id exists. Existing rows
// are returned untouched.
func (s *FilmService) AddFilm(ctx context.Context, film *domain.Film) (*domain.Film, error) {
	if film == nil || film.Title == "" {
		return nil, fmt.Errorf("%w: title", domain.ErrMissingFields)
	}
	stored, created, err := s.films.InsertIfAbsent(ctx, film)
	if err != nil {
		return nil, fmt.Errorf("failed to add film: %w", err)
	}
	if created {
		metrics.FilmsCreated.WithLabelValues("direct").Inc()
	}
	return stored, nil
}

func (s *FilmService) GetFilmByExternalID(ctx context.Context, tmdbID int) (*domain.Film, error) {
	film, err := s.films.GetByTMDBID(ctx, tmdbID)
	if err != nil {
		return nil, fmt.Errorf("failed to get film by tmdb id %d: %w", tmdbID, err)
	}
	return film, nil
}

func (s *FilmService) GetFilm(ctx context.Context, id string) (*domain.Film, error) {
	film, err := s.films.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get film %s: %w", id, err)
	}
	if film == nil {
		return nil, domain.ErrFilmNotFound
	}
	return film, nil
}

// GetOrCreateFilmFromExternal returns the local film for a catalog id,
// fetching the catalog details and persisting them on first sight.
func (s *FilmService) GetOrCreateFilmFromExternal(ctx context.Context, tmdbID int) (*domain.Film, error) {
	film, err := s.GetFilmByExternalID(ctx, tmdbID)
	if err != nil {
		return nil, err
	}
	if film != nil {
		return film, nil
	}

	details, err := s.catalog.GetMovieDetails(ctx, tmdbID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog movie %d: %w", tmdbID, err)
	}

	stored, created, err := s.films.InsertIfAbsent(ctx, s.filmFromDetails(details))
	if err != nil {
		return nil, fmt.Errorf("failed to store catalog movie %d: %w", tmdbID, err)
	}
	if created {
		metrics.FilmsCreated.WithLabelValues("catalog").Inc()
		logging.Ctx(ctx).Info().
			Int("tmdb_id", tmdbID).
			Str("film_id", stored.ID).
			Str("title", stored.Title).
			Msg("Film imported from catalog")
	}
	return stored, nil
}

func (s *FilmService) filmFromDetails(d *domain.CatalogMovieDetails) *domain.Film {
	tmdbID := d.ID
	film := &domain.Film{
		TMDBID:        &tmdbID,
		Title:         d.Title,
		ReleaseYear:   domain.ReleaseYearFromDate(d.ReleaseDate),
		Directors:     domain.Directors(d.Crew),
		Cast:          topCast(d.Cast),
		Synopsis:      d.Overview,
		Genres:        d.Genres,
		AverageRating: d.VoteAverage,
		TotalRatings:  d.VoteCount,
	}
	if s.posterURL != nil {
		film.PosterURL = s.posterURL(d.PosterPath)
	}
	if d.Runtime > 0 {
		runtime := d.Runtime
		film.RuntimeMinutes = &runtime
	}
	return film
}

func topCast(cast []domain.CastMember) []domain.CastMember {
	sorted := make([]domain.CastMember, len(cast))
	copy(sorted, cast)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })
	if len(sorted) > topCastSize {
		sorted = sorted[:topCastSize]
	}
	return sorted
}

// findOrCreateFilm resolves a loosely described film the way list and
// watch-log imports do: by TMDB id when given, otherwise by exact title.
func findOrCreateFilm(ctx context.Context, films ports.FilmRepository, in domain.ListFilmInput) (*domain.Film, error) {
	var (
		film *domain.Film
		err  error
	)
	if in.TMDBID != nil {
		film, err = films.GetByTMDBID(ctx, *in.TMDBID)
	} else {
		film, err = films.GetByTitle(ctx, in.Title)
	}
	if err != nil {
		return nil, err
	}
	if film != nil {
		return film, nil
	}

	stored, created, err := films.InsertIfAbsent(ctx, &domain.Film{
		TMDBID:      in.TMDBID,
		Title:       in.Title,
		ReleaseYear: in.ReleaseYear,
		PosterURL:   in.PosterURL,
	})
	if err != nil {
		return nil, err
	}
	if created {
		metrics.FilmsCreated.WithLabelValues("import").Inc()
	}
	return stored, nil
}

// filmsFor loads films for ids, keeping the order of ids.
func filmsFor(ctx context.Context, films ports.FilmRepository, ids []string) ([]domain.Film, error) {
	if len(ids) == 0 {
		return []domain.Film{}, nil
	}
	out, err := films.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load films: %w", err)
	}
	if out == nil {
		out = []domain.Film{}
	}
	return out, nil
}
