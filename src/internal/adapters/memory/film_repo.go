package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/movieboxd/movieboxd/src/internal/domain"
)

type InMemoryFilmRepo struct {
	s *Store
}

// The helpers below expect the caller to hold s.mu.

func (s *Store) filmByTMDBID(tmdbID int) *domain.Film {
	for _, id := range s.filmOrder {
		if f := s.films[id]; f.TMDBID != nil && *f.TMDBID == tmdbID {
			return &f
		}
	}
	return nil
}

func (s *Store) filmByTitle(title string) *domain.Film {
	for _, id := range s.filmOrder {
		if f := s.films[id]; f.Title == title {
			return &f
		}
	}
	return nil
}

func (s *Store) insertFilm(film *domain.Film) (*domain.Film, bool) {
	if film.TMDBID != nil {
		if existing := s.filmByTMDBID(*film.TMDBID); existing != nil {
			return existing, false
		}
	}
	stored := *film
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	s.films[stored.ID] = stored
	s.filmOrder = append(s.filmOrder, stored.ID)
	return &stored, true
}

func (r *InMemoryFilmRepo) GetByID(ctx context.Context, id string) (*domain.Film, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	f, ok := r.s.films[id]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (r *InMemoryFilmRepo) GetByTMDBID(ctx context.Context, tmdbID int) (*domain.Film, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.filmByTMDBID(tmdbID), nil
}

func (r *InMemoryFilmRepo) GetByTitle(ctx context.Context, title string) (*domain.Film, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.filmByTitle(title), nil
}

func (r *InMemoryFilmRepo) InsertIfAbsent(ctx context.Context, film *domain.Film) (*domain.Film, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, created := r.s.insertFilm(film)
	return stored, created, nil
}

func (r *InMemoryFilmRepo) ListByIDs(ctx context.Context, ids []string) ([]domain.Film, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	films := make([]domain.Film, 0, len(ids))
	for _, id := range ids {
		if f, ok := r.s.films[id]; ok {
			films = append(films, f)
		}
	}
	return films, nil
}
