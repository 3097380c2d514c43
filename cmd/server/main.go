package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"

	storeauth "github.com/shopforge/storeauth"
	oauthapi "github.com/shopforge/storeauth/api/echo"
	"github.com/shopforge/storeauth/cache"
	redistore "github.com/shopforge/storeauth/cache/redis"
	"github.com/shopforge/storeauth/config"
	"github.com/shopforge/storeauth/internal/flow"
	"github.com/shopforge/storeauth/internal/metrics"
	"github.com/shopforge/storeauth/internal/server"
	"github.com/shopforge/storeauth/log"
	"github.com/shopforge/storeauth/mongodb"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log.Setup(cfg.LogLevel, cfg.LogPretty)
	zlog.Info().
		Str("http_port", cfg.HTTPPort).
		Str("issuer", cfg.Issuer).
		Str("mongo_db", cfg.MongoDBName).
		Bool("rotate_refresh_tokens", cfg.RotateRefreshTokens).
		Bool("allow_plain_pkce", cfg.AllowPlainPKCE).
		Msg("starting storeauth server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mongoClient, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer mongoClient.Close(context.Background())

	repo, err := mongodb.NewRepository(ctx, mongoClient.Database())
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to build repositories")
	}

	var tokenCache cache.TokenStore
	if cfg.RedisAddr != "" {
		redisClient := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			zlog.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		tokenCache = redistore.NewTokenStore(redisClient, cfg.RedisPrefix)
		zlog.Info().Str("addr", cfg.RedisAddr).Msg("using Redis token cache")
	} else {
		tokenCache = cache.NewMemoryTokenStore(cfg.AccessTokenTTL())
		zlog.Info().Msg("using in-memory token cache")
	}

	pendingStore := flow.NewPendingStore(cfg.PendingAuthTTL())

	authorizeService := storeauth.NewAuthorizeService(
		repo, pendingStore,
		cfg.AuthCodeTTL(), cfg.PendingAuthTTL(),
		cfg.AllowPlainPKCE,
	)
	tokenService := storeauth.NewTokenService(
		repo, tokenCache, cfg.Issuer,
		cfg.AccessTokenTTL(), cfg.RefreshTokenTTL(),
		cfg.RotateRefreshTokens,
	)

	metrics.Register(prometheus.DefaultRegisterer)

	go storeauth.StartExpirySweeper(ctx, repo, cfg.SweepInterval())

	oauthAPI := oauthapi.NewOAuth2API(authorizeService, tokenService, cfg.Issuer, cfg.AllowPlainPKCE)
	httpServer := server.NewHTTPServer(cfg, oauthAPI, mongoClient.Ping)

	go func() {
		zlog.Info().Str("addr", httpServer.Addr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("http server shutdown failed")
	}
}
