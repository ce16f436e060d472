package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/movieboxd/movieboxd/src/internal/config"
)

// NewRouter mounts the auth flow, the JSON API, health and metrics.
func NewRouter(h *Handler, auth *Auth, cfg config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(corsHandler(cfg.CORSOrigins))
	r.Use(instrument)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Use(rateLimit(cfg.RateLimit, "auth"))
		r.Get("/login", auth.HandleLogin)
		r.Get("/callback", auth.HandleCallback)
		r.Post("/logout", auth.HandleLogout)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rateLimit(cfg.RateLimit, "api"))
		r.Use(auth.Authenticate)

		r.Route("/movies", func(r chi.Router) {
			r.Get("/search", h.SearchMovies)
			r.Get("/popular", h.PopularMovies)
			r.Get("/{tmdbId}", h.GetMovie)
		})

		r.Route("/films/{filmId}", func(r chi.Router) {
			r.Use(auth.RequireUser)
			r.Post("/log", h.LogFilm)
			r.Post("/favorite", h.FavoriteFilm)
			r.Post("/like", h.ToggleLike)
		})

		r.Post("/watched", h.LogWatched)
		r.Get("/watched", h.WatchedFilms)
		r.Get("/likes", h.LikedFilms)

		r.Post("/lists", h.CreateList)
		r.Get("/lists", h.UserLists)
		r.Get("/lists/{listId}/films", h.ListFilms)

		r.Get("/users/search", h.SearchUsers)
		r.Get("/users", h.UserByEmail)
		r.Get("/users/{username}/profile", h.Profile)

		r.With(auth.RequireUser).Post("/setup", h.SetupProfile)
	})

	return r
}
