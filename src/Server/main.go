package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/movieboxd/movieboxd/src/internal/adapters/cache/rediscache"
	"github.com/movieboxd/movieboxd/src/internal/adapters/memory"
	"github.com/movieboxd/movieboxd/src/internal/adapters/metadata/tmdb"
	"github.com/movieboxd/movieboxd/src/internal/adapters/postgres"
	"github.com/movieboxd/movieboxd/src/internal/api"
	"github.com/movieboxd/movieboxd/src/internal/config"
	"github.com/movieboxd/movieboxd/src/internal/logging"
	"github.com/movieboxd/movieboxd/src/internal/ports"
	"github.com/movieboxd/movieboxd/src/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Fatal().Err(err).Msg("Server stopped with error")
	}
	logging.Info().Msg("Server stopped")
}

type repositories struct {
	users   ports.UserRepository
	films   ports.FilmRepository
	watched ports.WatchedRepository
	likes   ports.LikeRepository
	lists   ports.ListRepository
	locks   ports.LockManager
}

func openRepositories(ctx context.Context, cfg config.DatabaseConfig) (*repositories, *sql.DB, error) {
	if cfg.URL == "" {
		logging.Warn().Msg("No database URL configured, using in-memory store")
		store := memory.NewStore()
		return &repositories{
			users:   store.Users(),
			films:   store.Films(),
			watched: store.Watched(),
			likes:   store.Likes(),
			lists:   store.Lists(),
			locks:   memory.NewLockManager(),
		}, nil, nil
	}

	db, err := postgres.Open(ctx, postgres.Options{
		URL:             cfg.URL,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, err
	}
	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}
	logging.Info().Msg("Connected to Postgres")

	return &repositories{
		users:   postgres.NewUserRepo(db),
		films:   postgres.NewFilmRepo(db),
		watched: postgres.NewWatchedRepo(db),
		likes:   postgres.NewLikeRepo(db),
		lists:   postgres.NewListRepo(db),
		locks:   postgres.NewLockManager(db),
	}, db, nil
}

func openCatalog(ctx context.Context, cfg *config.Config) (ports.Catalog, *redis.Client, error) {
	var catalog ports.Catalog = tmdb.NewTMDBClient(tmdb.Options{
		BaseURL:         cfg.TMDB.BaseURL,
		ReadAccessToken: cfg.TMDB.ReadAccessToken,
		APIKey:          cfg.TMDB.APIKey,
		Timeout:         cfg.TMDB.Timeout,
	})
	if cfg.Redis.Addr == "" {
		return catalog, nil, nil
	}

	client, err := rediscache.NewClient(ctx, rediscache.ClientOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TLS:      cfg.Redis.TLS,
	})
	if err != nil {
		return nil, nil, err
	}
	logging.Info().Str("addr", cfg.Redis.Addr).Dur("ttl", cfg.Redis.TTL).Msg("Catalog cache enabled")
	return rediscache.NewCachedCatalog(catalog, client, cfg.Redis.TTL), client, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	repos, db, err := openRepositories(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if db != nil {
		defer func() {
			if err := db.Close(); err != nil {
				logging.Error().Err(err).Msg("Failed to close database")
			}
		}()
	}

	catalog, redisClient, err := openCatalog(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open catalog cache: %w", err)
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logging.Error().Err(err).Msg("Failed to close redis")
			}
		}()
	}

	films := services.NewFilmService(repos.films, catalog, tmdb.PosterURL)
	engagement := services.NewEngagementService(repos.users, repos.films, repos.watched, repos.likes)
	lists := services.NewListService(repos.users, repos.films, repos.lists)
	identity := services.NewIdentityService(repos.users, repos.locks)
	profiles := services.NewProfileService(repos.users, repos.films, repos.watched, repos.lists)

	auth, err := api.NewOIDCAuth(ctx, cfg.OIDC, identity.SignIn)
	if err != nil {
		return err
	}
	handler := api.NewHandler(catalog, films, engagement, lists, identity, profiles)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.NewRouter(handler, auth, cfg.Server),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logging.Info().Msg("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
