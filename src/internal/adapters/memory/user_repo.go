package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/movieboxd/movieboxd/src/internal/domain"
)

type InMemoryUserRepo struct {
	s *Store
}

func (r *InMemoryUserRepo) find(match func(domain.User) bool) *domain.User {
	for _, id := range r.s.userOrder {
		if u := r.s.users[id]; match(u) {
			return &u
		}
	}
	return nil
}

func (r *InMemoryUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *InMemoryUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.find(func(u domain.User) bool { return u.Email == email }), nil
}

func (r *InMemoryUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if username == "" {
		return nil, nil
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.find(func(u domain.User) bool { return u.Username == username }), nil
}

func (r *InMemoryUserRepo) CreateIfAbsent(ctx context.Context, user *domain.User) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[user.ID]; ok {
		return false, nil
	}
	clash := r.find(func(u domain.User) bool {
		return u.Email == user.Email || (user.Username != "" && u.Username == user.Username)
	})
	if clash != nil {
		return false, nil
	}
	r.s.users[user.ID] = *user
	r.s.userOrder = append(r.s.userOrder, user.ID)
	return true, nil
}

func (r *InMemoryUserRepo) UpdateProfile(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.users[user.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if user.Username != "" {
		owner := r.find(func(u domain.User) bool { return u.Username == user.Username })
		if owner != nil && owner.ID != user.ID {
			return domain.ErrUsernameTaken
		}
	}
	current.Username = user.Username
	current.Name = user.Name
	current.Bio = user.Bio
	current.Avatar = user.Avatar
	r.s.users[user.ID] = current
	return nil
}

func (r *InMemoryUserRepo) Search(ctx context.Context, query string, limit int) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	q := strings.ToLower(query)
	var out []domain.User
	for _, id := range r.s.userOrder {
		u := r.s.users[id]
		if strings.Contains(strings.ToLower(u.Username), q) || strings.Contains(strings.ToLower(u.Email), q) {
			out = append(out, u)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Username != out[j].Username {
			// Users without a username sort last.
			if out[i].Username == "" || out[j].Username == "" {
				return out[j].Username == ""
			}
			return out[i].Username < out[j].Username
		}
		return out[i].Email < out[j].Email
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
