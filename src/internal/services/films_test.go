package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movieboxd/movieboxd/src/internal/domain"
	"github.com/movieboxd/movieboxd/src/internal/ports"
)

func TestAddFilm_SameTMDBIDTwiceKeepsOneRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.addFilm(t, "Inception", 27205)
	second, err := f.films.AddFilm(ctx, &domain.Film{TMDBID: ptrInt(27205), Title: "Inception (duplicate)"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Inception", second.Title)

	got, err := f.films.GetFilmByExternalID(ctx, 27205)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestAddFilm_RequiresTitle(t *testing.T) {
	f := newFixture(t)
	_, err := f.films.AddFilm(context.Background(), &domain.Film{})
	assert.ErrorIs(t, err, domain.ErrMissingFields)
}

func TestGetFilmByExternalID_Absent(t *testing.T) {
	f := newFixture(t)
	got, err := f.films.GetFilmByExternalID(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetFilm_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.films.GetFilm(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrFilmNotFound)
}

func TestGetOrCreateFilmFromExternal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.catalog.details[155] = &domain.CatalogMovieDetails{
		ID:          155,
		Title:       "The Dark Knight",
		ReleaseDate: "2008-07-16",
		Overview:    "Batman raises the stakes.",
		Runtime:     152,
		PosterPath:  "/dk.jpg",
		VoteAverage: 8.5,
		VoteCount:   32000,
		Genres:      []domain.Genre{{ID: 18, Name: "Drama"}},
		Cast: []domain.CastMember{
			{Name: "Heath Ledger", Order: 1},
			{Name: "Christian Bale", Order: 0},
		},
		Crew: []domain.CrewMember{
			{Name: "Christopher Nolan", Job: "Director"},
			{Name: "Hans Zimmer", Job: "Original Music Composer"},
		},
	}

	film, err := f.films.GetOrCreateFilmFromExternal(ctx, 155)
	require.NoError(t, err)
	assert.NotEmpty(t, film.ID)
	require.NotNil(t, film.ReleaseYear)
	assert.Equal(t, 2008, *film.ReleaseYear)
	assert.Equal(t, "img/dk.jpg", film.PosterURL)
	require.Len(t, film.Directors, 1)
	assert.Equal(t, "Christopher Nolan", film.Directors[0].Name)
	assert.Equal(t, "Christian Bale", film.Cast[0].Name)
	require.NotNil(t, film.RuntimeMinutes)
	assert.Equal(t, 152, *film.RuntimeMinutes)
	assert.Equal(t, 8.5, film.AverageRating)
	assert.Equal(t, 32000, film.TotalRatings)

	again, err := f.films.GetOrCreateFilmFromExternal(ctx, 155)
	require.NoError(t, err)
	assert.Equal(t, film.ID, again.ID)
	assert.Equal(t, 1, f.catalog.calls, "second lookup is served locally")
}

func TestGetOrCreateFilmFromExternal_MissingReleaseDate(t *testing.T) {
	f := newFixture(t)
	f.catalog.details[7] = &domain.CatalogMovieDetails{ID: 7, Title: "Untitled"}

	film, err := f.films.GetOrCreateFilmFromExternal(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, film.ReleaseYear)
	assert.Nil(t, film.RuntimeMinutes)
}

func TestGetOrCreateFilmFromExternal_CatalogErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.films.GetOrCreateFilmFromExternal(ctx, 404)
	assert.ErrorIs(t, err, ports.ErrCatalogNotFound)

	f.catalog.err = ports.ErrCatalogUnavailable
	_, err = f.films.GetOrCreateFilmFromExternal(ctx, 1)
	assert.ErrorIs(t, err, ports.ErrCatalogUnavailable)

	got, _ := f.films.GetFilmByExternalID(ctx, 1)
	assert.Nil(t, got, "nothing is stored when the catalog fails")
}

func TestTopCast_LimitsAndOrders(t *testing.T) {
	var cast []domain.CastMember
	for i := 15; i > 0; i-- {
		cast = append(cast, domain.CastMember{Order: i})
	}
	got := topCast(cast)
	require.Len(t, got, topCastSize)
	assert.Equal(t, 1, got[0].Order)
	assert.Equal(t, 15, cast[0].Order, "input is not reordered")
}
