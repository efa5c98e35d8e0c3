package app

import (
	"context"
	"log/slog"
	"time"

	httpapp "habitarc/internal/app/http"
	"habitarc/internal/config"
	jwtlib "habitarc/internal/lib/jwt"
	"habitarc/internal/lib/logger/sl"
	"habitarc/internal/ratelimit"
	"habitarc/internal/repository"
	"habitarc/internal/services/auth"
	demosvc "habitarc/internal/services/demo_service"
	tokensvc "habitarc/internal/services/token_service"
	"habitarc/internal/storage/postgresql"
	redisapp "habitarc/internal/storage/redis"
	httprouters "habitarc/internal/transport/http"
)

type App struct {
	HTTPServer *httpapp.Server

	log     *slog.Logger
	storage *postgresql.Storage
	cancel  context.CancelFunc
}

func New(log *slog.Logger, cfg *config.Config) *App {
	storage, err := postgresql.New(context.Background(), cfg.DSN)
	if err != nil {
		panic(err)
	}

	repo := repository.NewRepository(storage.DB)
	manager := jwtlib.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	tokenService := tokensvc.NewTokenService(log, manager, repo.Token)
	authService := auth.New(log, repo.User, tokenService)
	demoService := demosvc.NewDemoService(log, repo.User, manager, tokenService, cfg.Demo.Enabled, cfg.Demo.TTL)

	routers := httprouters.NewRouter(log, authService, tokenService, demoService)

	ctx, cancel := context.WithCancel(context.Background())

	limits := httpapp.RateLimits{
		Auth: cfg.RateLimit.Auth,
		Demo: cfg.RateLimit.Demo,
	}

	// A Redis addr switches the limiter to the shared backend; without
	// one each instance counts on its own.
	if cfg.Redis.RedisAddr != "" {
		client := redisapp.NewClient(cfg.Redis.RedisAddr, cfg.Redis.RedisPassword, cfg.Redis.RedisDB)
		if err := client.HealthCheck(ctx); err != nil {
			panic(err)
		}
		limits.Store = ratelimit.NewRedisStore(client.Client)
	} else {
		limiter := ratelimit.New()
		limits.Store = limiter
		go limiter.Run(ctx, cfg.Cleanup.Interval, 2*maxWindow(cfg.RateLimit))
	}

	go demoService.Run(ctx, cfg.Cleanup.Interval)
	go sweepExpiredTokens(ctx, log, repo.Token, cfg.Cleanup.Interval)

	server := httpapp.New(log, cfg.HTTP.Host, cfg.HTTP.Port, routers, limits)

	return &App{
		HTTPServer: server,
		log:        log,
		storage:    storage,
		cancel:     cancel,
	}
}

func (a *App) Stop() {
	a.cancel()

	if err := a.HTTPServer.Stop(); err != nil {
		a.log.Error("http server stop failed", sl.Err(err))
	}

	a.storage.Stop()
}

func maxWindow(cfg config.RateLimitConfig) time.Duration {
	if cfg.Demo.Window > cfg.Auth.Window {
		return cfg.Demo.Window
	}
	return cfg.Auth.Window
}

// sweepExpiredTokens drops refresh rows past expiry so the ledger only
// grows with live sessions.
func sweepExpiredTokens(ctx context.Context, log *slog.Logger, repo repository.TokenRepository, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := repo.DeleteExpiredTokens(ctx)
			if err != nil {
				log.Error("token cleanup failed", sl.Err(err))
				continue
			}
			if deleted > 0 {
				log.Info("deleted expired refresh tokens", slog.Int64("count", deleted))
			}
		}
	}
}
