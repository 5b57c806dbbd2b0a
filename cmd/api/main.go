package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/kallkeyy/storefront-api/internal/api/http"
	"github.com/kallkeyy/storefront-api/internal/api/http/handlers"
	"github.com/kallkeyy/storefront-api/internal/auth"
	"github.com/kallkeyy/storefront-api/internal/config"
	"github.com/kallkeyy/storefront-api/internal/observability"
	"github.com/kallkeyy/storefront-api/internal/persistence"
	"github.com/kallkeyy/storefront-api/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openIdentityStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open identity store", zap.String("backend", cfg.Store.Backend), zap.Error(err))
	}
	defer store.close()

	dependencies := map[string]handlers.Pinger{cfg.Store.Backend: store.pinger}

	var revocations auth.RevocationStore
	if redis := persistence.NewRedis(cfg.Redis, logger); redis != nil {
		defer redis.Close()
		revocations = auth.NewRedisRevocationStore(redis.Client)
		dependencies["redis"] = redis
	}

	cors, err := newCORSResolver(cfg.CORS)
	if err != nil {
		logger.Fatal("invalid cors policy", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	cookie := func(name string) auth.CookieConfig {
		c := auth.CookieConfig{Name: name, Domain: cfg.Auth.CookieDomain, SameSite: fiber.CookieSameSiteLaxMode}
		if cfg.App.IsProduction() {
			c.Secure = true
			c.SameSite = fiber.CookieSameSiteNoneMode
		}
		return c
	}

	var verifierOpts []auth.VerifierOption
	if revocations != nil {
		verifierOpts = append(verifierOpts, auth.WithRevocations(revocations))
	}

	userAuth := auth.NewUserAuth(auth.Dependencies{
		Verifier:    auth.NewVerifier(cfg.Auth.UserJWTSecret, verifierOpts...),
		CORS:        cors,
		Cookie:      cookie(cfg.Auth.UserCookieName),
		Revocations: revocations,
		Logger:      logger,
		Metrics:     metrics,
	}, auth.NewUserResolver(store.users))

	adminAuth := auth.NewAdminAuth(auth.Dependencies{
		Verifier:    auth.NewAdminVerifier(cfg.Auth.AdminJWTSecret, verifierOpts...),
		CORS:        cors,
		Cookie:      cookie(cfg.Auth.AdminCookieName),
		Revocations: revocations,
		Logger:      logger,
		Metrics:     metrics,
	}, auth.NewAdminResolver(store.admins))

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cors, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:    handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies),
		Account:   handlers.NewAccountHandler(),
		Admin:     handlers.NewAdminHandler(),
		UserAuth:  userAuth,
		AdminAuth: adminAuth,
		Metrics:   metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

type identityStore struct {
	users  repository.UserRepository
	admins repository.AdminRepository
	pinger handlers.Pinger
	close  func()
}

func openIdentityStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*identityStore, error) {
	switch cfg.Store.Backend {
	case config.StorePostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
				pg.Close()
				return nil, err
			}
		}
		return &identityStore{
			users:  repository.NewUserRepository(pg.PoolHandle()),
			admins: repository.NewAdminRepository(pg.PoolHandle()),
			pinger: pg,
			close:  pg.Close,
		}, nil
	default:
		mongo, err := persistence.NewMongo(ctx, cfg.Mongo, logger)
		if err != nil {
			return nil, err
		}
		return &identityStore{
			users:  repository.NewMongoUserRepository(mongo.DB),
			admins: repository.NewMongoAdminRepository(mongo.DB),
			pinger: mongo,
			close:  mongo.Close,
		}, nil
	}
}

func newCORSResolver(cfg config.CORSConfig) (*auth.CORSResolver, error) {
	policy := auth.DefaultOriginPolicy()
	if cfg.PolicyFile != "" {
		loaded, err := auth.LoadOriginPolicy(cfg.PolicyFile)
		if err != nil {
			return nil, err
		}
		policy = loaded
	}
	policy.Origins = append(policy.Origins, cfg.ExtraOrigins...)
	return auth.NewCORSResolver(policy)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
