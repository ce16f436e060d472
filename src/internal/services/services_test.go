package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/movieboxd/movieboxd/src/internal/adapters/memory"
	"github.com/movieboxd/movieboxd/src/internal/domain"
	"github.com/movieboxd/movieboxd/src/internal/ports"
)

var testNow = time.Date(2024, 6, 15, 18, 30, 0, 0, time.UTC)

type fakeCatalog struct {
	mu      sync.Mutex
	details map[int]*domain.CatalogMovieDetails
	calls   int
	err     error
}

func (c *fakeCatalog) SearchMovies(ctx context.Context, query string, page int) (*domain.CatalogPage, error) {
	return &domain.CatalogPage{Page: page}, nil
}

func (c *fakeCatalog) PopularMovies(ctx context.Context, page int) (*domain.CatalogPage, error) {
	return &domain.CatalogPage{Page: page}, nil
}

func (c *fakeCatalog) GetMovieDetails(ctx context.Context, tmdbID int) (*domain.CatalogMovieDetails, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	d, ok := c.details[tmdbID]
	if !ok {
		return nil, ports.ErrCatalogNotFound
	}
	return d, nil
}

type fixture struct {
	store      *memory.Store
	catalog    *fakeCatalog
	films      *FilmService
	engagement *EngagementService
	lists      *ListService
	identity   *IdentityService
	profiles   *ProfileService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	catalog := &fakeCatalog{details: map[int]*domain.CatalogMovieDetails{}}
	clock := func() time.Time { return testNow }

	f := &fixture{
		store:      store,
		catalog:    catalog,
		films:      NewFilmService(store.Films(), catalog, func(p string) string { return "img" + p }),
		engagement: NewEngagementService(store.Users(), store.Films(), store.Watched(), store.Likes()),
		lists:      NewListService(store.Users(), store.Films(), store.Lists()),
		identity:   NewIdentityService(store.Users(), memory.NewLockManager()),
		profiles:   NewProfileService(store.Users(), store.Films(), store.Watched(), store.Lists()),
	}
	f.engagement.now = clock
	f.lists.now = clock
	f.identity.now = clock
	f.profiles.now = clock
	return f
}

func (f *fixture) signIn(t *testing.T, email string) *domain.User {
	t.Helper()
	u, err := f.identity.SignIn(context.Background(), domain.ExternalIdentity{Email: email})
	require.NoError(t, err)
	return u
}

func (f *fixture) addFilm(t *testing.T, title string, tmdbID int) *domain.Film {
	t.Helper()
	film := &domain.Film{Title: title}
	if tmdbID != 0 {
		film.TMDBID = &tmdbID
	}
	stored, err := f.films.AddFilm(context.Background(), film)
	require.NoError(t, err)
	return stored
}

func ptrFloat(v float64) *float64 { return &v }
func ptrInt(v int) *int           { return &v }
