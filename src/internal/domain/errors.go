package domain

import "errors"

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrFilmNotFound  = errors.New("film not found")
	ErrListNotFound  = errors.New("list not found")
	ErrMissingFields = errors.New("missing required fields")
	ErrInvalidRating = errors.New("rating must be between 0 and 5 in half steps")
	ErrUsernameTaken = errors.New("username already exists")
	ErrMissingEmail  = errors.New("identity has no email")
	ErrLockBusy      = errors.New("operation already in progress")
)
