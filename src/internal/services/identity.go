package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/movieboxd/movieboxd/src/internal/domain"
	"github.com/movieboxd/movieboxd/src/internal/logging"
	"github.com/movieboxd/movieboxd/src/internal/ports"
)

const (
	signInLockTTL       = 30 * time.Second
	maxUsernameAttempts = 1000
	userSearchLimit     = 10
	minUserSearchLength = 2
)

var ErrUsernameExhausted = errors.New("no free username candidate")

type IdentityService struct {
	users ports.UserRepository
	locks ports.LockManager
	now   func() time.Time
}

func NewIdentityService(users ports.UserRepository, locks ports.LockManager) *IdentityService {
	return &IdentityService{
		users: users,
		locks: locks,
		now:   time.Now,
	}
}

type SetupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Bio      string `json:"bio"`
	Avatar   string `json:"avatar,omitempty"`
}

// SignIn returns the user for a verified identity, creating one with a
// generated username on first sign-in.
func (s *IdentityService) SignIn(ctx context.Context, id domain.ExternalIdentity) (*domain.User, error) {
	email := strings.TrimSpace(id.Email)
	if email == "" {
		return nil, domain.ErrMissingEmail
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	if user != nil {
		return user, nil
	}

	lockKey := "signin:" + email
	acquired, err := s.locks.TryAcquireLock(ctx, lockKey, signInLockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire sign-in lock: %w", err)
	}
	if !acquired {
		return nil, domain.ErrLockBusy
	}
	defer func() {
		if err := s.locks.ReleaseLock(context.WithoutCancel(ctx), lockKey); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("lock", lockKey).Msg("Failed to release sign-in lock")
		}
	}()

	base := domain.UsernameBase(email)
	if base == "" {
		base = "user"
	}
	candidate := &domain.User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      id.Name,
		Avatar:    id.Avatar,
		CreatedAt: s.now().UTC(),
	}

	for i := 0; i < maxUsernameAttempts; i++ {
		candidate.Username = base
		if i > 0 {
			candidate.Username = base + "_" + strconv.Itoa(i)
		}

		created, err := s.users.CreateIfAbsent(ctx, candidate)
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		if created {
			logging.Ctx(ctx).Info().
				Str("user_id", candidate.ID).
				Str("username", candidate.Username).
				Msg("Provisioned new user")
			return candidate, nil
		}

		// The insert also fails when the email itself was registered
		// concurrently; that user wins.
		existing, err := s.users.GetByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("failed to get user by email: %w", err)
		}
		if existing != nil {
			return existing, nil
		}
	}
	return nil, fmt.Errorf("%w for %s", ErrUsernameExhausted, base)
}

// SetupProfile claims a username and fills in the profile of the user with
// req.Email, creating the user when needed.
func (s *IdentityService) SetupProfile(ctx context.Context, req SetupRequest) (*domain.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if req.Email == "" || req.Username == "" {
		return nil, fmt.Errorf("%w: email and username", domain.ErrMissingFields)
	}

	owner, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	if owner != nil && owner.Email != req.Email {
		return nil, domain.ErrUsernameTaken
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	if user == nil {
		user = &domain.User{
			ID:        uuid.NewString(),
			Email:     req.Email,
			Username:  req.Username,
			Name:      req.Name,
			Bio:       req.Bio,
			Avatar:    req.Avatar,
			CreatedAt: s.now().UTC(),
		}
		created, err := s.users.CreateIfAbsent(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		if !created {
			return nil, domain.ErrUsernameTaken
		}
		return user, nil
	}

	user.Username = req.Username
	user.Name = req.Name
	user.Bio = req.Bio
	if req.Avatar != "" {
		user.Avatar = req.Avatar
	}
	if err := s.users.UpdateProfile(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) || errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	logging.Ctx(ctx).Info().Str("user_id", user.ID).Str("username", user.Username).Msg("Profile updated")
	return user, nil
}

func (s *IdentityService) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *IdentityService) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return lookupUser(ctx, s.users, username)
}

// SearchUsers matches username or email case-insensitively. Queries shorter
// than two characters return nothing.
func (s *IdentityService) SearchUsers(ctx context.Context, query string) ([]domain.PublicUser, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minUserSearchLength {
		return []domain.PublicUser{}, nil
	}
	users, err := s.users.Search(ctx, query, userSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	out := make([]domain.PublicUser, len(users))
	for i, u := range users {
		out[i] = u.Public()
	}
	return out, nil
}
