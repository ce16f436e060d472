package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movieboxd/movieboxd/src/internal/domain"
)

func TestSignIn_CreatesUserFromEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.identity.SignIn(ctx, domain.ExternalIdentity{Email: "alice@example.com", Name: "Alice", Avatar: "https://img/a.png"})
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "Alice", u.Name)
	assert.Equal(t, "https://img/a.png", u.Avatar)
	assert.Empty(t, u.Bio)
	assert.Equal(t, testNow, u.CreatedAt)

	again, err := f.identity.SignIn(ctx, domain.ExternalIdentity{Email: "alice@example.com", Name: "Changed"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, "Alice", again.Name, "existing users are returned unchanged")
}

func TestSignIn_SuffixesTakenUsernames(t *testing.T) {
	f := newFixture(t)
	first := f.signIn(t, "a@x.com")
	second := f.signIn(t, "a@y.com")
	third := f.signIn(t, "a@z.com")

	assert.Equal(t, "a", first.Username)
	assert.Equal(t, "a_1", second.Username)
	assert.Equal(t, "a_2", third.Username)
}

func TestSignIn_MissingEmail(t *testing.T) {
	f := newFixture(t)
	_, err := f.identity.SignIn(context.Background(), domain.ExternalIdentity{Name: "Nobody"})
	assert.ErrorIs(t, err, domain.ErrMissingEmail)
}

func TestSignIn_LockBusy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ok, err := f.identity.locks.TryAcquireLock(ctx, "signin:busy@x.com", signInLockTTL)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.identity.SignIn(ctx, domain.ExternalIdentity{Email: "busy@x.com"})
	assert.ErrorIs(t, err, domain.ErrLockBusy)
}

func TestSignIn_ConcurrentDistinctEmailsGetDistinctUsernames(t *testing.T) {
	f := newFixture(t)
	emails := []string{"sam@a.com", "sam@b.com", "sam@c.com", "sam@d.com"}

	var wg sync.WaitGroup
	for _, e := range emails {
		wg.Add(1)
		go func(email string) {
			defer wg.Done()
			_, _ = f.identity.SignIn(context.Background(), domain.ExternalIdentity{Email: email})
		}(e)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, e := range emails {
		u, err := f.identity.GetUserByEmail(context.Background(), e)
		require.NoError(t, err)
		assert.False(t, seen[u.Username], "username %s assigned twice", u.Username)
		seen[u.Username] = true
	}
}

func TestSetupProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signIn(t, "alice@example.com")
	f.signIn(t, "bob@example.com")

	_, err := f.identity.SetupProfile(ctx, SetupRequest{Email: "bob@example.com", Username: "alice"})
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)

	u, err := f.identity.SetupProfile(ctx, SetupRequest{Email: "bob@example.com", Username: "bobby", Name: "Bob", Bio: "films"})
	require.NoError(t, err)
	assert.Equal(t, "bobby", u.Username)

	got, err := f.identity.GetUserByUsername(ctx, "bobby")
	require.NoError(t, err)
	assert.Equal(t, "films", got.Bio)

	_, err = f.identity.GetUserByUsername(ctx, "bob")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestSetupProfile_KeepsOwnUsernameAndCreatesMissingUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signIn(t, "alice@example.com")

	u, err := f.identity.SetupProfile(ctx, SetupRequest{Email: "alice@example.com", Username: "alice", Bio: "updated"})
	require.NoError(t, err)
	assert.Equal(t, "updated", u.Bio)

	created, err := f.identity.SetupProfile(ctx, SetupRequest{Email: "new@example.com", Username: "newbie"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	_, err = f.identity.SetupProfile(ctx, SetupRequest{Username: "x"})
	assert.ErrorIs(t, err, domain.ErrMissingFields)
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.identity.GetUserByEmail(context.Background(), "ghost@x.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestSearchUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signIn(t, "alice@example.com")
	f.signIn(t, "alan@example.com")
	f.signIn(t, "bob@example.com")

	got, err := f.identity.SearchUsers(ctx, " a ")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = f.identity.SearchUsers(ctx, "AL")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	for i := 0; i < 15; i++ {
		f.signIn(t, "many"+string(rune('a'+i))+"@crowd.com")
	}
	got, err = f.identity.SearchUsers(ctx, "crowd")
	require.NoError(t, err)
	assert.Len(t, got, userSearchLimit)
}
