package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/movieboxd/movieboxd/src/internal/domain"
	"github.com/movieboxd/movieboxd/src/internal/logging"
	"github.com/movieboxd/movieboxd/src/internal/ports"
)

type ListService struct {
	users ports.UserRepository
	films ports.FilmRepository
	lists ports.ListRepository
	now   func() time.Time
}

func NewListService(users ports.UserRepository, films ports.FilmRepository, lists ports.ListRepository) *ListService {
	return &ListService{
		users: users,
		films: films,
		lists: lists,
		now:   time.Now,
	}
}

type CreateListRequest struct {
	Username    string                 `json:"username" validate:"required"`
	Name        string                 `json:"name" validate:"required"`
	Description string                 `json:"description"`
	Films       []domain.ListFilmInput `json:"films" validate:"required,min=1,dive"`
}

// CreateList stores a list for the user, creating any film it does not know
// yet. Nothing is stored when the user is unknown.
func (s *ListService) CreateList(ctx context.Context, req CreateListRequest) (*domain.List, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Name = strings.TrimSpace(req.Name)
	if req.Username == "" || req.Name == "" || len(req.Films) == 0 {
		return nil, fmt.Errorf("%w: username, name and films", domain.ErrMissingFields)
	}
	for i := range req.Films {
		req.Films[i].Title = strings.TrimSpace(req.Films[i].Title)
		if req.Films[i].Title == "" {
			return nil, fmt.Errorf("%w: films[%d].title", domain.ErrMissingFields, i)
		}
	}

	user, err := lookupUser(ctx, s.users, req.Username)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	list, err := s.lists.Create(ctx, &domain.List{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		Title:       req.Name,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, req.Films)
	if err != nil {
		return nil, fmt.Errorf("failed to create list: %w", err)
	}

	logging.Ctx(ctx).Info().
		Str("list_id", list.ID).
		Str("username", user.Username).
		Int("films", len(list.FilmIDs)).
		Msg("List created")
	return list, nil
}

// GetUserLists returns the user's lists, newest first.
func (s *ListService) GetUserLists(ctx context.Context, username string) ([]domain.List, error) {
	user, err := lookupUser(ctx, s.users, username)
	if err != nil {
		return nil, err
	}
	lists, err := s.lists.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lists: %w", err)
	}
	if lists == nil {
		lists = []domain.List{}
	}
	return lists, nil
}

// GetListFilms returns the films of a list in list order.
func (s *ListService) GetListFilms(ctx context.Context, listID string) ([]domain.Film, error) {
	list, err := s.lists.GetByID(ctx, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to get list %s: %w", listID, err)
	}
	if list == nil {
		return nil, domain.ErrListNotFound
	}
	return filmsFor(ctx, s.films, list.FilmIDs)
}
