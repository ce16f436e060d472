package api

import (
	"errors"
	"net/http"

	"github.com/movieboxd/movieboxd/src/internal/adapters/metadata/tmdb"
	"github.com/movieboxd/movieboxd/src/internal/domain"
	"github.com/movieboxd/movieboxd/src/internal/logging"
	"github.com/movieboxd/movieboxd/src/internal/ports"
	"github.com/movieboxd/movieboxd/src/internal/validation"
)

var (
	errBadRequest   = errors.New("bad request")
	errUnauthorized = errors.New("unauthorized")
	errRateLimited  = errors.New("too many requests")
)

type errorResponse struct {
	Error  string                  `json:"error"`
	Fields []validation.FieldError `json:"fields,omitempty"`
}

// statusFor maps an error to the HTTP status and the message safe to show.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, domain.ErrMissingFields),
		errors.Is(err, domain.ErrInvalidRating),
		errors.Is(err, tmdb.ErrEmptyQuery):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrMissingEmail):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrFilmNotFound),
		errors.Is(err, domain.ErrListNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, ports.ErrCatalogNotFound):
		return http.StatusNotFound, "movie not found"
	case errors.Is(err, domain.ErrUsernameTaken),
		errors.Is(err, domain.ErrLockBusy):
		return http.StatusConflict, err.Error()
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests, err.Error()
	case errors.Is(err, ports.ErrCatalogUnavailable),
		errors.Is(err, tmdb.ErrMalformedResponse):
		return http.StatusBadGateway, "movie catalog unavailable"
	case errors.Is(err, errAuthDisabled):
		return http.StatusServiceUnavailable, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: verr.Fields})
		return
	}

	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Msg("Request failed")
	}
	respondJSON(w, status, errorResponse{Error: msg})
}
