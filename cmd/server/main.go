package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kainan-pos/terminal/internal/config"
	"github.com/kainan-pos/terminal/internal/logger"
	"github.com/kainan-pos/terminal/internal/server"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store server.DocStore
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("connect database")
		}
		defer pool.Close()

		pg := server.NewPGStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("prepare database")
		}
		store = pg
		log.Info().Msg("using postgres order store")
	} else {
		store = server.NewMemStore()
		log.Warn().Msg("no DATABASE_URL set, using in-memory order store")
	}

	hub := server.NewHub(log)
	go hub.Run()

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.NewRouter(store, hub, cfg.AllowedOrigins, log),
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown incomplete")
	}
}
