package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"seedhttpd/api/internal/alias"
	"seedhttpd/api/internal/app"
	"seedhttpd/api/internal/cobcache"
	"seedhttpd/api/internal/config"
	"seedhttpd/api/internal/gitrepo"
	"seedhttpd/api/internal/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "seed-httpd",
		NodeID:  cfg.NodeID,
	})
	log := logger.Get()
	ctx := context.Background()

	db, err := cobcache.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	if err := cobcache.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}

	if _, err := os.Stat(cfg.StorageDir); err != nil {
		log.Fatal().Err(err).Str("path", cfg.StorageDir).Msg("storage directory unavailable")
	}
	storage := gitrepo.New(cfg.StorageDir)

	static, err := alias.ParseStatic(cfg.Aliases)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid SEED_ALIASES")
	}
	var directory alias.Directory
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisDir, err := alias.NewRedisDirectory(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisDir.Close()
		directory = redisDir
		log.Info().Msg("using redis alias directory")
	}

	service := app.New(cfg, storage, cobcache.NewPostgresStore(db), alias.NewResolver(static, directory))
	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, cfg.LogSlow)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Str("storage", cfg.StorageDir).Msg("seed-httpd listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}
