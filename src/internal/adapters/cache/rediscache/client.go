// Package rediscache is a read-through Redis cache in front of the movie catalog.
package rediscache

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type ClientOptions struct {
	Addr     string
	Password string
	DB       int
	TLS      bool
}

// NewClient connects to Redis and pings it once.
func NewClient(ctx context.Context, opts ClientOptions) (*redis.Client, error) {
	options := &redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
	if opts.TLS {
		options.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
