package main

import (
	"context"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	authhttp "github.com/imelapp/auth-server/internal/auth/http"
	"github.com/imelapp/auth-server/internal/auth/repository"
	"github.com/imelapp/auth-server/internal/auth/service"
	"github.com/imelapp/auth-server/internal/common/clock"
	"github.com/imelapp/auth-server/internal/common/config"
	"github.com/imelapp/auth-server/internal/common/crypto"
	"github.com/imelapp/auth-server/internal/common/db"
	commonhttp "github.com/imelapp/auth-server/internal/common/http"
	"github.com/imelapp/auth-server/internal/common/logger"
	"github.com/imelapp/auth-server/internal/common/server"
)

func main() {
	log, err := logger.New(os.Getenv("LOG_DIR"), "auth", os.Getenv("LOG_LEVEL"))
	if err != nil {
		panic(err)
	}

	cfg, err := config.LoadAuthConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	pool := db.NewPool(log, cfg.DatabaseURL)
	defer pool.Close()

	db.StartPoolMetrics(pool, 0)

	if cfg.RunMigrations {
		if err := db.RunMigrations(context.Background(), pool); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		log.Info("database migrations applied")
	}

	userRepo := repository.NewPgUserRepository(pool)
	hasher := &crypto.BcryptHasher{}
	clk := clock.NewRealClock()

	issuer := service.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL, clk)
	authService := service.NewAuthService(userRepo, hasher, issuer, clk, cfg.LockoutThreshold, cfg.LockoutDuration, log)
	userService := service.NewUserService(userRepo, hasher, log)

	apiHandler := authhttp.NewHandler(authService, userService, cfg, log)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", apiHandler)

	rateLimiter := commonhttp.NewStrictRateLimiter()
	handler := commonhttp.BuildBaseHandler(cfg.AllowedOrigin, log, rateLimiter.Middleware(mux))

	srv := server.NewServer(server.DefaultServerConfig(cfg.HTTPPort), handler)
	server.StartWithGracefulShutdown(srv, log, "auth")
}
