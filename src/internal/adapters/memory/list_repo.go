package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/movieboxd/movieboxd/src/internal/domain"
)

type InMemoryListRepo struct {
	s *Store
}

func copyList(l domain.List) domain.List {
	l.FilmIDs = append([]string(nil), l.FilmIDs...)
	return l
}

func (r *InMemoryListRepo) Create(ctx context.Context, list *domain.List, films []domain.ListFilmInput) (*domain.List, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ids := make([]string, 0, len(films))
	for _, in := range films {
		var existing *domain.Film
		if in.TMDBID != nil {
			existing = r.s.filmByTMDBID(*in.TMDBID)
		} else {
			existing = r.s.filmByTitle(in.Title)
		}
		if existing == nil {
			existing, _ = r.s.insertFilm(&domain.Film{
				TMDBID:      in.TMDBID,
				Title:       in.Title,
				ReleaseYear: in.ReleaseYear,
				PosterURL:   in.PosterURL,
			})
		}
		ids = append(ids, existing.ID)
	}

	if list.ID == "" {
		list.ID = uuid.NewString()
	}
	list.FilmIDs = ids
	r.s.lists = append(r.s.lists, copyList(*list))
	return list, nil
}

func (r *InMemoryListRepo) GetByID(ctx context.Context, id string) (*domain.List, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, l := range r.s.lists {
		if l.ID == id {
			out := copyList(l)
			return &out, nil
		}
	}
	return nil, nil
}

func (r *InMemoryListRepo) ListByUser(ctx context.Context, userID string) ([]domain.List, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.List
	for i := len(r.s.lists) - 1; i >= 0; i-- {
		if l := r.s.lists[i]; l.UserID == userID {
			out = append(out, copyList(l))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
