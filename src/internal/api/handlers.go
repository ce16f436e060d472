package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/movieboxd/movieboxd/src/internal/domain"
	"github.com/movieboxd/movieboxd/src/internal/ports"
	"github.com/movieboxd/movieboxd/src/internal/services"
)

type Handler struct {
	catalog    ports.Catalog
	films      *services.FilmService
	engagement *services.EngagementService
	lists      *services.ListService
	identity   *services.IdentityService
	profiles   *services.ProfileService
}

func NewHandler(
	catalog ports.Catalog,
	films *services.FilmService,
	engagement *services.EngagementService,
	lists *services.ListService,
	identity *services.IdentityService,
	profiles *services.ProfileService,
) *Handler {
	return &Handler{
		catalog:    catalog,
		films:      films,
		engagement: engagement,
		lists:      lists,
		identity:   identity,
		profiles:   profiles,
	}
}

// movies

func (h *Handler) SearchMovies(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeError(w, r, fmt.Errorf("%w: query parameter is required", errBadRequest))
		return
	}
	page, err := pageParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.catalog.SearchMovies(r.Context(), query, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) PopularMovies(w http.ResponseWriter, r *http.Request) {
	page, err := pageParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.catalog.PopularMovies(r.Context(), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type moviePageResponse struct {
	Film       *domain.Film           `json:"film"`
	Engagement *domain.FilmEngagement `json:"engagement,omitempty"`
}

func (h *Handler) GetMovie(w http.ResponseWriter, r *http.Request) {
	tmdbID, err := strconv.Atoi(chi.URLParam(r, "tmdbId"))
	if err != nil || tmdbID <= 0 {
		writeError(w, r, fmt.Errorf("%w: invalid movie id", errBadRequest))
		return
	}
	ctx := r.Context()
	film, err := h.films.GetOrCreateFilmFromExternal(ctx, tmdbID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := moviePageResponse{Film: film}
	if user := UserFromContext(ctx); user != nil {
		resp.Engagement, err = h.engagement.FilmEngagement(ctx, film.ID, user.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// films

type logFilmRequest struct {
	Rating *float64 `json:"rating" validate:"omitempty,rating"`
}

func (h *Handler) LogFilm(w http.ResponseWriter, r *http.Request) {
	var req logFilmRequest
	if r.ContentLength != 0 {
		if err := decodeBody(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	user := UserFromContext(r.Context())
	watched, err := h.engagement.LogFilm(r.Context(), chi.URLParam(r, "filmId"), user.ID, req.Rating)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, watched)
}

func (h *Handler) FavoriteFilm(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	watched, err := h.engagement.FavoriteFilm(r.Context(), chi.URLParam(r, "filmId"), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, watched)
}

func (h *Handler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	liked, err := h.engagement.ToggleLike(r.Context(), chi.URLParam(r, "filmId"), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"liked": liked})
}

// watched and likes

func (h *Handler) LogWatched(w http.ResponseWriter, r *http.Request) {
	var req services.LogWatchedRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	filmID, err := h.engagement.LogWatched(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"filmId": filmID})
}

func (h *Handler) WatchedFilms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	liked, _ := strconv.ParseBool(q.Get("liked"))
	films, err := h.engagement.WatchedFilms(r.Context(), q.Get("username"), liked)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, films)
}

func (h *Handler) LikedFilms(w http.ResponseWriter, r *http.Request) {
	films, err := h.engagement.LikedFilms(r.Context(), r.URL.Query().Get("username"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, films)
}

// lists

func (h *Handler) CreateList(w http.ResponseWriter, r *http.Request) {
	var req services.CreateListRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.lists.CreateList(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, list)
}

func (h *Handler) UserLists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.lists.GetUserLists(r.Context(), r.URL.Query().Get("username"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, lists)
}

func (h *Handler) ListFilms(w http.ResponseWriter, r *http.Request) {
	films, err := h.lists.GetListFilms(r.Context(), chi.URLParam(r, "listId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, films)
}

// users

func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.identity.SearchUsers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// UserByEmail answers {} rather than 404 for unknown addresses.
func (h *Handler) UserByEmail(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		writeError(w, r, fmt.Errorf("%w: email is required", errBadRequest))
		return
	}
	user, err := h.identity.GetUserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			respondJSON(w, http.StatusOK, struct{}{})
			return
		}
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	summary, err := h.profiles.ProfileSummary(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

type setupRequest struct {
	Name     string `json:"name"`
	Username string `json:"username" validate:"required,max=40,excludesall=@/ "`
	Bio      string `json:"bio" validate:"max=500"`
	Avatar   string `json:"avatar,omitempty"`
}

// SetupProfile updates the caller's profile; the email always comes from
// the verified token.
func (h *Handler) SetupProfile(w http.ResponseWriter, r *http.Request) {
	var req setupRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	caller := UserFromContext(r.Context())
	user, err := h.identity.SetupProfile(r.Context(), services.SetupRequest{
		Email:    caller.Email,
		Name:     req.Name,
		Username: req.Username,
		Bio:      req.Bio,
		Avatar:   req.Avatar,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}
