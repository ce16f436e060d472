package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movieboxd/movieboxd/src/internal/domain"
)

func TestProfileSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signIn(t, "alice@example.com")
	heat := f.addFilm(t, "Heat", 949)
	alien := f.addFilm(t, "Alien", 348)
	thief := f.addFilm(t, "Thief", 11524)

	f.engagement.now = func() time.Time { return testNow.AddDate(-1, 0, 0) }
	_, _ = f.engagement.LogFilm(ctx, thief.ID, alice.ID, nil)
	f.engagement.now = func() time.Time { return testNow }
	_, _ = f.engagement.LogFilm(ctx, heat.ID, alice.ID, ptrFloat(5))
	f.engagement.now = func() time.Time { return testNow.Add(time.Hour) }
	_, _ = f.engagement.FavoriteFilm(ctx, alien.ID, alice.ID)

	_, err := f.lists.CreateList(ctx, CreateListRequest{Username: "alice", Name: "Mann", Films: []domain.ListFilmInput{{TMDBID: ptrInt(949), Title: "Heat"}}})
	require.NoError(t, err)

	s, err := f.profiles.ProfileSummary(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", s.User.Username)
	assert.Equal(t, 3, s.TotalFilms)
	assert.Equal(t, 2, s.FilmsThisYear)
	require.Len(t, s.Favorites, 1)
	assert.Equal(t, alien.ID, s.Favorites[0].ID)
	require.NotNil(t, s.NewestList)
	assert.Equal(t, "Mann", s.NewestList.Title)
	require.NotNil(t, s.LastWatched)
	assert.Equal(t, alien.ID, s.LastWatched.ID)
}

func TestProfileSummary_EmptyUser(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "quiet@example.com")

	s, err := f.profiles.ProfileSummary(context.Background(), "quiet")
	require.NoError(t, err)
	assert.Zero(t, s.TotalFilms)
	assert.Empty(t, s.Favorites)
	assert.Nil(t, s.NewestList)
	assert.Nil(t, s.LastWatched)

	_, err = f.profiles.ProfileSummary(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
