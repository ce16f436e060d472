package memory

import (
	"context"
	"sort"
	"time"

	"github.com/movieboxd/movieboxd/src/internal/domain"
)

type InMemoryWatchedRepo struct {
	s *Store
}

func (r *InMemoryWatchedRepo) Get(ctx context.Context, userID, filmID string) (*domain.Watched, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	w, ok := r.s.watched[pairKey{userID, filmID}]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

// upsert applies mutate to the existing record, or to a fresh one logged at now.
func (r *InMemoryWatchedRepo) upsert(userID, filmID string, now time.Time, mutate func(w *domain.Watched)) *domain.Watched {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := pairKey{userID, filmID}
	w, ok := r.s.watched[key]
	if !ok {
		w = domain.Watched{UserID: userID, FilmID: filmID, LoggedAt: now}
	}
	mutate(&w)
	w.Status = domain.StatusFor(w.Rating, w.IsFavorite)
	r.s.watched[key] = w
	return &w
}

func (r *InMemoryWatchedRepo) UpsertRating(ctx context.Context, userID, filmID string, rating *float64, now time.Time) (*domain.Watched, error) {
	return r.upsert(userID, filmID, now, func(w *domain.Watched) {
		if rating == nil {
			w.Rating = nil
			return
		}
		v := *rating
		w.Rating = &v
	}), nil
}

func (r *InMemoryWatchedRepo) UpsertFavorite(ctx context.Context, userID, filmID string, now time.Time) (*domain.Watched, error) {
	return r.upsert(userID, filmID, now, func(w *domain.Watched) {
		w.IsFavorite = true
	}), nil
}

func (r *InMemoryWatchedRepo) UpsertLogged(ctx context.Context, userID, filmID string, favorite bool, now time.Time) (*domain.Watched, error) {
	return r.upsert(userID, filmID, now, func(w *domain.Watched) {
		w.IsFavorite = favorite
		w.LoggedAt = now
	}), nil
}

func (r *InMemoryWatchedRepo) ListByUser(ctx context.Context, userID string, favoritesOnly bool) ([]domain.Watched, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.Watched
	for key, w := range r.s.watched {
		if key.userID != userID || (favoritesOnly && !w.IsFavorite) {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LoggedAt.Equal(out[j].LoggedAt) {
			return out[i].LoggedAt.After(out[j].LoggedAt)
		}
		return out[i].FilmID < out[j].FilmID
	})
	return out, nil
}

func (r *InMemoryWatchedRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n := 0
	for key := range r.s.watched {
		if key.userID == userID {
			n++
		}
	}
	return n, nil
}

func (r *InMemoryWatchedRepo) CountByUserBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n := 0
	for key, w := range r.s.watched {
		if key.userID == userID && !w.LoggedAt.Before(from) && w.LoggedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

type InMemoryLikeRepo struct {
	s *Store
}

func (r *InMemoryLikeRepo) Exists(ctx context.Context, userID, filmID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, ok := r.s.likes[pairKey{userID, filmID}]
	return ok, nil
}

func (r *InMemoryLikeRepo) Toggle(ctx context.Context, userID, filmID string, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := pairKey{userID, filmID}
	if _, ok := r.s.likes[key]; ok {
		delete(r.s.likes, key)
		return false, nil
	}
	r.s.likes[key] = likeEntry{
		like: domain.Like{UserID: userID, FilmID: filmID, CreatedAt: now},
		seq:  r.s.nextSeq(),
	}
	return true, nil
}

func (r *InMemoryLikeRepo) Ensure(ctx context.Context, userID, filmID string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := pairKey{userID, filmID}
	if _, ok := r.s.likes[key]; !ok {
		r.s.likes[key] = likeEntry{
			like: domain.Like{UserID: userID, FilmID: filmID, CreatedAt: now},
			seq:  r.s.nextSeq(),
		}
	}
	return nil
}

func (r *InMemoryLikeRepo) ListByUser(ctx context.Context, userID string) ([]domain.Like, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var entries []likeEntry
	for key, e := range r.s.likes {
		if key.userID == userID {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].like.CreatedAt.Equal(entries[j].like.CreatedAt) {
			return entries[i].like.CreatedAt.After(entries[j].like.CreatedAt)
		}
		return entries[i].seq > entries[j].seq
	})
	likes := make([]domain.Like, len(entries))
	for i, e := range entries {
		likes[i] = e.like
	}
	return likes, nil
}
