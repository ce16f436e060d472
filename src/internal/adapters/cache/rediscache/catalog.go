package rediscache

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/movieboxd/movieboxd/src/internal/domain"
	"github.com/movieboxd/movieboxd/src/internal/logging"
	"github.com/movieboxd/movieboxd/src/internal/metrics"
	"github.com/movieboxd/movieboxd/src/internal/ports"
)

// CachedCatalog decorates a ports.Catalog. Redis failures are logged and
// fall through to the wrapped catalog; catalog errors are never cached.
type CachedCatalog struct {
	next  ports.Catalog
	redis *redis.Client
	ttl   time.Duration
}

func NewCachedCatalog(next ports.Catalog, client *redis.Client, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{next: next, redis: client, ttl: ttl}
}

func searchKey(query string, page int) string {
	return "catalog:search:" + strconv.Itoa(page) + ":" + strings.ToLower(strings.TrimSpace(query))
}

func popularKey(page int) string {
	return "catalog:popular:" + strconv.Itoa(page)
}

func detailsKey(tmdbID int) string {
	return "catalog:details:" + strconv.Itoa(tmdbID)
}

func (c *CachedCatalog) SearchMovies(ctx context.Context, query string, page int) (*domain.CatalogPage, error) {
	if strings.TrimSpace(query) == "" {
		return c.next.SearchMovies(ctx, query, page)
	}
	return readThrough(ctx, c, searchKey(query, page), func() (*domain.CatalogPage, error) {
		return c.next.SearchMovies(ctx, query, page)
	})
}

func (c *CachedCatalog) PopularMovies(ctx context.Context, page int) (*domain.CatalogPage, error) {
	return readThrough(ctx, c, popularKey(page), func() (*domain.CatalogPage, error) {
		return c.next.PopularMovies(ctx, page)
	})
}

func (c *CachedCatalog) GetMovieDetails(ctx context.Context, tmdbID int) (*domain.CatalogMovieDetails, error) {
	return readThrough(ctx, c, detailsKey(tmdbID), func() (*domain.CatalogMovieDetails, error) {
		return c.next.GetMovieDetails(ctx, tmdbID)
	})
}

func readThrough[T any](ctx context.Context, c *CachedCatalog, key string, load func() (*T, error)) (*T, error) {
	raw, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var v T
		if jsonErr := json.Unmarshal(raw, &v); jsonErr == nil {
			metrics.CatalogCache.WithLabelValues("hit").Inc()
			return &v, nil
		}
		logging.Ctx(ctx).Warn().Str("key", key).Msg("discarding undecodable cache entry")
		metrics.CatalogCache.WithLabelValues("miss").Inc()
	case errors.Is(err, redis.Nil):
		metrics.CatalogCache.WithLabelValues("miss").Inc()
	default:
		metrics.CatalogCache.WithLabelValues("error").Inc()
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("catalog cache read failed")
	}

	v, err := load()
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(v); err == nil {
		if err := c.redis.Set(ctx, key, b, c.ttl).Err(); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
		}
	}
	return v, nil
}
