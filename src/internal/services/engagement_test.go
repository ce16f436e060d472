package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movieboxd/movieboxd/src/internal/domain"
)

func TestLogFilm_ThenGetLoggedFilm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signIn(t, "alice@example.com")
	film := f.addFilm(t, "Heat", 949)

	none, err := f.engagement.GetLoggedFilm(ctx, alice.ID, film.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = f.engagement.LogFilm(ctx, film.ID, alice.ID, ptrFloat(3.5))
	require.NoError(t, err)
	got, err := f.engagement.GetLoggedFilm(ctx, alice.ID, film.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 3.5, *got.Rating)
	assert.Equal(t, testNow, got.LoggedAt)

	f.engagement.now = func() time.Time { return testNow.Add(time.Hour) }
	w, err := f.engagement.LogFilm(ctx, film.ID, alice.ID, ptrFloat(2))
	require.NoError(t, err)
	assert.Equal(t, 2.0, *w.Rating)
	assert.Equal(t, testNow, w.LoggedAt, "re-rating keeps the original log time")

	n, _ := f.store.Watched().CountByUser(ctx, alice.ID)
	assert.Equal(t, 1, n)
}

func TestLogFilm_RejectsInvalidRating(t *testing.T) {
	f := newFixture(t)
	alice := f.signIn(t, "alice@example.com")
	film := f.addFilm(t, "Heat", 949)

	_, err := f.engagement.LogFilm(context.Background(), film.ID, alice.ID, ptrFloat(7))
	assert.ErrorIs(t, err, domain.ErrInvalidRating)
}

func TestLogFilm_UnknownFilm(t *testing.T) {
	f := newFixture(t)
	_, err := f.engagement.LogFilm(context.Background(), "nope", "u", nil)
	assert.ErrorIs(t, err, domain.ErrFilmNotFound)
}

func TestFavoriteFilm_TwiceKeepsOneFavoriteRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signIn(t, "alice@example.com")
	film := f.addFilm(t, "Heat", 949)

	for i := 0; i < 2; i++ {
		w, err := f.engagement.FavoriteFilm(ctx, film.ID, alice.ID)
		require.NoError(t, err)
		assert.True(t, w.IsFavorite)
		assert.Nil(t, w.Rating)
	}
	n, _ := f.store.Watched().CountByUser(ctx, alice.ID)
	assert.Equal(t, 1, n)
}

func TestRateThenFavorite_SameRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signIn(t, "alice@example.com")
	film := f.addFilm(t, "Inception", 27205)

	_, err := f.engagement.LogFilm(ctx, film.ID, alice.ID, ptrFloat(4))
	require.NoError(t, err)
	_, err = f.engagement.FavoriteFilm(ctx, film.ID, alice.ID)
	require.NoError(t, err)

	w, err := f.engagement.GetLoggedFilm(ctx, alice.ID, film.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, *w.Rating)
	assert.True(t, w.IsFavorite)
	assert.Equal(t, domain.WatchStatusFavorited, w.Status)

	n, _ := f.store.Watched().CountByUser(ctx, alice.ID)
	assert.Equal(t, 1, n)
}

func TestToggleLike_TwiceRestoresState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signIn(t, "alice@example.com")
	film := f.addFilm(t, "Heat", 949)

	liked, err := f.engagement.ToggleLike(ctx, film.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	ok, _ := f.engagement.IsFilmLiked(ctx, film.ID, alice.ID)
	assert.True(t, ok)

	liked, err = f.engagement.ToggleLike(ctx, film.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	ok, _ = f.engagement.IsFilmLiked(ctx, film.ID, alice.ID)
	assert.False(t, ok)
}

func TestFilmEngagement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signIn(t, "alice@example.com")
	film := f.addFilm(t, "Heat", 949)

	e, err := f.engagement.FilmEngagement(ctx, film.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FilmEngagement{Status: domain.WatchStatusUnwatched}, *e)

	_, _ = f.engagement.LogFilm(ctx, film.ID, alice.ID, ptrFloat(4.5))
	_, _ = f.engagement.ToggleLike(ctx, film.ID, alice.ID)

	e, err = f.engagement.FilmEngagement(ctx, film.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, e.IsWatched)
	assert.True(t, e.IsLiked)
	require.NotNil(t, e.Rating)
	assert.Equal(t, 4.5, *e.Rating)
	assert.Equal(t, domain.WatchStatusRated, e.Status)
}

func TestFilmEngagement_ZeroRatingDiffersFromUnrated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signIn(t, "alice@example.com")
	zero := f.addFilm(t, "Cats", 536869)
	fav := f.addFilm(t, "Heat", 949)

	_, err := f.engagement.LogFilm(ctx, zero.ID, alice.ID, ptrFloat(0))
	require.NoError(t, err)
	_, err = f.engagement.FavoriteFilm(ctx, fav.ID, alice.ID)
	require.NoError(t, err)

	e, err := f.engagement.FilmEngagement(ctx, zero.ID, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, e.Rating)
	assert.Zero(t, *e.Rating)

	e, err = f.engagement.FilmEngagement(ctx, fav.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, e.IsWatched)
	assert.Nil(t, e.Rating)
}

func TestLogWatched_CreatesFilmAndLike(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signIn(t, "alice@example.com")

	filmID, err := f.engagement.LogWatched(ctx, LogWatchedRequest{
		Username: "alice", Title: "Paris, Texas", ReleaseYear: ptrInt(1984), Liked: true,
	})
	require.NoError(t, err)

	film, err := f.films.GetFilm(ctx, filmID)
	require.NoError(t, err)
	assert.Equal(t, 1984, *film.ReleaseYear)

	w, _ := f.engagement.GetLoggedFilm(ctx, alice.ID, filmID)
	require.NotNil(t, w)
	assert.True(t, w.IsFavorite)
	liked, _ := f.engagement.IsFilmLiked(ctx, filmID, alice.ID)
	assert.True(t, liked)

	again, err := f.engagement.LogWatched(ctx, LogWatchedRequest{Username: "alice", Title: "Paris, Texas"})
	require.NoError(t, err)
	assert.Equal(t, filmID, again, "an existing title is reused")
	liked, _ = f.engagement.IsFilmLiked(ctx, filmID, alice.ID)
	assert.True(t, liked, "logging without liked leaves likes alone")
}

func TestLogWatched_PrefersTMDBID(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "alice@example.com")
	existing := f.addFilm(t, "Heat", 949)

	id, err := f.engagement.LogWatched(context.Background(), LogWatchedRequest{Username: "alice", TMDBID: ptrInt(949), Title: "Heat (1995)"})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, id)
}

func TestLogWatched_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engagement.LogWatched(ctx, LogWatchedRequest{Title: "x"})
	assert.ErrorIs(t, err, domain.ErrMissingFields)

	_, err = f.engagement.LogWatched(ctx, LogWatchedRequest{Username: "ghost", Title: "x"})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestWatchedAndLikedFilms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signIn(t, "alice@example.com")
	heat := f.addFilm(t, "Heat", 949)
	alien := f.addFilm(t, "Alien", 348)

	_, _ = f.engagement.LogFilm(ctx, heat.ID, alice.ID, nil)
	f.engagement.now = func() time.Time { return testNow.Add(time.Hour) }
	_, _ = f.engagement.FavoriteFilm(ctx, alien.ID, alice.ID)
	_, _ = f.engagement.ToggleLike(ctx, heat.ID, alice.ID)

	all, err := f.engagement.WatchedFilms(ctx, "alice", false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Alien", all[0].Title)

	favs, err := f.engagement.WatchedFilms(ctx, "alice", true)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, alien.ID, favs[0].ID)

	liked, err := f.engagement.LikedFilms(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, liked, 1)
	assert.Equal(t, heat.ID, liked[0].ID)

	_, err = f.engagement.LikedFilms(ctx, "bob")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
