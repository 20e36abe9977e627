package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"chefshare/internal/api"
	"chefshare/internal/auth"
	"chefshare/internal/config"
	"chefshare/internal/logging"
	"chefshare/internal/media"
	"chefshare/internal/platform/cache"
	"chefshare/internal/platform/gemini"
	"chefshare/internal/platform/localllm"
	"chefshare/internal/platform/mongodb"
	"chefshare/internal/platform/postgres"
	"chefshare/internal/recipe"
	"chefshare/internal/suggest"
	"chefshare/internal/user"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.close()

	redis := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer redis.Close()
	if redis == nil {
		logging.Info().Msg("redis not configured, logout will not revoke tokens")
	} else if err := redis.Ping(ctx); err != nil {
		logging.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable, token revocation degraded")
	}

	candidates, closeAI, err := newCandidates(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeAI()

	router := buildRouter(cfg, s.recipes, s.users, auth.NewRevocations(redis), candidates)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).Str("storage", cfg.Storage.Driver).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildRouter wires the services on top of the given stores.
func buildRouter(cfg *config.Config, recipeStore recipe.Store, userStore user.Store, revocations *auth.Revocations, candidates []suggest.Candidate) *gin.Engine {
	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	users := user.NewService(userStore, recipeStore, tokens)
	recipes := recipe.NewService(recipeStore, users)
	suggester := suggest.NewService(candidates...)
	images := media.NewStore(cfg.Uploads.Dir, cfg.Uploads.PublicURL)

	logging.Info().Strs("models", suggester.Candidates()).Msg("AI candidates configured")

	h := api.NewHandler(recipes, users, suggester, images, revocations)
	if cfg.Server.Timeout > 0 {
		h.Timeout = cfg.Server.Timeout
	}
	if cfg.Server.AITimeout > 0 {
		h.AITimeout = cfg.Server.AITimeout
	}

	return api.NewRouter(h, tokens, revocations, api.RouterConfig{
		CORSOrigins: cfg.Server.CORSOrigins,
		ImagesDir:   images.Dir(),
	})
}

type stores struct {
	recipes recipe.Store
	users   user.Store
	close   func()
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		users, err := user.NewPostgresStore(ctx, db)
		if err != nil {
			db.Close()
			return nil, err
		}
		recipes, err := recipe.NewPostgresStore(ctx, db)
		if err != nil {
			db.Close()
			return nil, err
		}
		return &stores{recipes: recipes, users: users, close: func() { db.Close() }}, nil

	default:
		client, db, err := mongodb.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, err
		}
		disconnect := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logging.Warn().Err(err).Msg("failed to disconnect from mongodb")
			}
		}
		users, err := user.NewMongoStore(ctx, db)
		if err != nil {
			disconnect()
			return nil, err
		}
		recipes, err := recipe.NewMongoStore(ctx, db)
		if err != nil {
			disconnect()
			return nil, err
		}
		return &stores{recipes: recipes, users: users, close: disconnect}, nil
	}
}

// newCandidates returns the Gemini models in configured order, followed by
// the local model when one is configured.
func newCandidates(ctx context.Context, cfg *config.Config) ([]suggest.Candidate, func(), error) {
	var candidates []suggest.Candidate
	closeAI := func() {}

	if cfg.Gemini.APIKey != "" {
		client, err := gemini.NewClient(ctx, cfg.Gemini.APIKey)
		if err != nil {
			return nil, nil, err
		}
		closeAI = func() { _ = client.Close() }
		for _, m := range client.Models(cfg.Gemini.Models...) {
			candidates = append(candidates, m)
		}
	} else {
		logging.Warn().Msg("GEMINI_API_KEY not set, skipping Gemini models")
	}

	if cfg.LocalLLM.URL != "" {
		candidates = append(candidates, localllm.NewClient(cfg.LocalLLM.URL, cfg.LocalLLM.Model))
	}
	return candidates, closeAI, nil
}
