// Command api serves the todo REST API.
//
// @title                       Todo API
// @version                     1.0
// @description                 Multi-user todo list backend with bearer token authentication.
// @BasePath                    /api
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
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

	"github.com/rs/zerolog"

	"github.com/taskhub/todo-system/internal/api"
	"github.com/taskhub/todo-system/internal/api/handler"
	"github.com/taskhub/todo-system/internal/core/ports"
	"github.com/taskhub/todo-system/internal/core/service"
	"github.com/taskhub/todo-system/internal/infrastructure/db/mongo"
	"github.com/taskhub/todo-system/internal/infrastructure/db/redis"
	"github.com/taskhub/todo-system/internal/infrastructure/db/sqldb"
	"github.com/taskhub/todo-system/internal/pkg/config"
	"github.com/taskhub/todo-system/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		// Init is a no-op once run has configured the logger.
		log := logger.Init(logger.Options{Output: os.Stderr})
		log.Error().Err(err).Msg("todo api stopped")
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, nil)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "todo-api",
	})

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	tokens := service.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	authOpts := []service.AuthOption{service.WithBcryptCost(cfg.BcryptCost)}

	if cfg.Redis.Addr != "" {
		rdb, err := redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()

		limiter := redis.NewLoginLimiter(rdb, cfg.Redis.LoginMaxAttempts, cfg.Redis.LoginWindow)
		authOpts = append(authOpts, service.WithLoginLimiter(limiter))
		st.checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		log.Info().Str("addr", cfg.Redis.Addr).Msg("login throttling enabled")
	}

	auth, err := service.NewAuthService(st.users, tokens, log, authOpts...)
	if err != nil {
		return err
	}

	e := api.NewRouter(api.Deps{
		Logger:      log,
		Auth:        auth,
		Todos:       service.NewTodoService(st.todos, log),
		Tokens:      tokens,
		Checks:      st.checks,
		CORSOrigins: cfg.CORSOrigins,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.Store.Driver).Msg("todo api listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// store bundles the repositories for the configured backend with its
// readiness check and cleanup.
type store struct {
	users  ports.UserRepository
	todos  ports.TodoRepository
	checks map[string]handler.Check
	close  func()
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*store, error) {
	switch cfg.Store.Driver {
	case config.StoreMongo:
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		users := mongo.NewUserRepository(db)
		todos := mongo.NewTodoRepository(db)
		if err := mongo.EnsureIndexes(ctx, users, todos); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongodb")

		return &store{
			users:  users,
			todos:  todos,
			checks: map[string]handler.Check{"mongodb": func(ctx context.Context) error { return client.Ping(ctx, nil) }},
			close: func() {
				ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				_ = client.Disconnect(ctx)
			},
		}, nil

	default:
		db, err := sqldb.Open(ctx, sqldb.Config{Driver: cfg.Store.Driver, DSN: cfg.Store.DSN})
		if err != nil {
			return nil, err
		}
		log.Info().Str("driver", cfg.Store.Driver).Msg("database ready")

		return &store{
			users:  sqldb.NewUserRepository(db),
			todos:  sqldb.NewTodoRepository(db),
			checks: map[string]handler.Check{"database": db.PingContext},
			close:  func() { _ = db.Close() },
		}, nil
	}
}
