package domain

import (
	"fmt"
	"math"
	"time"
)

// WatchStatus is the explicit state of a user's relationship with a film.
type WatchStatus string

const (
	WatchStatusUnwatched WatchStatus = "unwatched"
	WatchStatusWatched   WatchStatus = "watched"
	WatchStatusRated     WatchStatus = "rated"
	WatchStatusFavorited WatchStatus = "favorited"
)

const MaxRating = 5.0

// StatusFor derives the status a stored record should carry. Favorite wins
// over rated, rated wins over plain watched.
func StatusFor(rating *float64, favorite bool) WatchStatus {
	switch {
	case favorite:
		return WatchStatusFavorited
	case rating != nil:
		return WatchStatusRated
	default:
		return WatchStatusWatched
	}
}

// ValidateRating accepts nil or a value in [0, 5] in half-star steps.
func ValidateRating(rating *float64) error {
	if rating == nil {
		return nil
	}
	r := *rating
	if math.IsNaN(r) || r < 0 || r > MaxRating || math.Mod(r*2, 1) != 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRating, r)
	}
	return nil
}

// Watched is the engagement record for one (user, film) pair.
type Watched struct {
	UserID     string      `json:"userId"`
	FilmID     string      `json:"filmId"`
	Rating     *float64    `json:"rating,omitempty"`
	IsFavorite bool        `json:"isFavorite"`
	Status     WatchStatus `json:"status"`
	LoggedAt   time.Time   `json:"loggedAt"`
}

type Like struct {
	UserID    string    `json:"userId"`
	FilmID    string    `json:"filmId"`
	CreatedAt time.Time `json:"createdAt"`
}

// FilmEngagement is the caller's state for a film page.
type FilmEngagement struct {
	IsWatched bool        `json:"isWatched"`
	IsLiked   bool        `json:"isLiked"`
	Rating    *float64    `json:"rating,omitempty"`
	Status    WatchStatus `json:"status"`
}
