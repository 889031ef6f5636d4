package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/api/option"

	"github.com/focusnest/auth-service/internal/apperror"
	"github.com/focusnest/auth-service/internal/auth"
	"github.com/focusnest/auth-service/internal/config"
	"github.com/focusnest/auth-service/internal/database"
	"github.com/focusnest/auth-service/internal/httpapi"
	"github.com/focusnest/auth-service/internal/logging"
	"github.com/focusnest/auth-service/internal/server"
	"github.com/focusnest/auth-service/internal/user"
)

const serviceName = "auth-service"

var version = "v0.0.1"

func main() {
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("config error: %w", err))
	}

	logger := logging.NewLogger(serviceName, logging.ParseLevel(cfg.LogLevel))
	slog.SetDefault(logger)

	repo, cleanup, err := newRepository(ctx, logger, cfg)
	if err != nil {
		panic(fmt.Errorf("repository init error: %w", err))
	}
	defer cleanup()

	userService, err := user.NewService(repo, user.NewSystemClock(), user.NewUUIDGenerator(), user.NewBcryptHasher(bcrypt.DefaultCost))
	if err != nil {
		panic(fmt.Errorf("user service init error: %w", err))
	}

	verifier, issuer, err := auth.New(auth.Config{
		Mode:     auth.Mode(cfg.Auth.Mode),
		Secret:   cfg.Auth.Secret,
		Issuer:   cfg.Auth.Issuer,
		TokenTTL: cfg.Auth.TokenTTL,
		JWKSURL:  cfg.Auth.JWKSURL,
		Audience: cfg.Auth.Audience,
		Logger:   logger,
	})
	if err != nil {
		panic(fmt.Errorf("auth init error: %w", err))
	}

	responder := apperror.NewResponder(logger, cfg.IsDevelopment())
	router := server.NewRouter(server.Options{
		Service:     serviceName,
		Version:     version,
		Environment: cfg.Environment,
		Respond:     responder.Respond,
	}, func(r chi.Router) {
		httpapi.RegisterRoutes(r, httpapi.Dependencies{
			Users:    userService,
			Verifier: verifier,
			Issuer:   issuer,
			Respond:  responder.Respond,
		})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("starting server",
		slog.String("port", cfg.Port),
		slog.String("environment", cfg.Environment),
		slog.String("datastore", cfg.DataStore),
		slog.String("authMode", cfg.Auth.Mode),
	)
	if err := server.Run(ctx, srv, logger); err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(err)
	}
}

func newRepository(ctx context.Context, logger *slog.Logger, cfg config.Config) (user.Repository, func(), error) {
	switch cfg.DataStore {
	case config.DataStoreFirestore:
		if cfg.Firestore.EmulatorHost != "" {
			if err := os.Setenv("FIRESTORE_EMULATOR_HOST", cfg.Firestore.EmulatorHost); err != nil {
				return nil, nil, fmt.Errorf("set FIRESTORE_EMULATOR_HOST: %w", err)
			}
		}

		var opts []option.ClientOption
		if cfg.Firestore.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.Firestore.CredentialsFile))
		}

		client, err := firestore.NewClient(ctx, cfg.GCPProjectID, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("firestore client: %w", err)
		}
		return user.NewFirestoreRepository(client), func() { _ = client.Close() }, nil
	case config.DataStorePostgres:
		if err := database.Migrate(logger, cfg.Postgres.DSN); err != nil {
			return nil, nil, err
		}

		pool, err := database.Connect(ctx, logger, database.Config{
			DSN:      cfg.Postgres.DSN,
			MaxConns: cfg.Postgres.MaxConns,
			MinConns: cfg.Postgres.MinConns,
		})
		if err != nil {
			return nil, nil, err
		}
		return user.NewPostgresRepository(pool), pool.Close, nil
	default:
		return user.NewMemoryRepository(), func() {}, nil
	}
}
