package domain

import "time"

type List struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	FilmIDs     []string  `json:"films"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ListFilmInput describes one film supplied when creating a list.
type ListFilmInput struct {
	TMDBID      *int   `json:"tmdbId,omitempty"`
	Title       string `json:"title" validate:"required"`
	ReleaseYear *int   `json:"releaseYear,omitempty"`
	PosterURL   string `json:"posterUrl,omitempty"`
}

type ProfileSummary struct {
	User          PublicUser `json:"user"`
	TotalFilms    int        `json:"totalFilms"`
	FilmsThisYear int        `json:"filmsThisYear"`
	Favorites     []Film     `json:"favorites"`
	NewestList    *List      `json:"newestList,omitempty"`
	LastWatched   *Film      `json:"lastWatched,omitempty"`
}
