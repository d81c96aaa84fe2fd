package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"crosspost/internal"
	"crosspost/internal/logging"
	"crosspost/internal/publish"
	"crosspost/internal/secrets"
	"crosspost/internal/server"
	"crosspost/internal/uploaders"
)

func main() {
	// Load .env file if it exists (try multiple paths)
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, path := range envPaths {
		_ = godotenv.Load(path)
	}

	cfg, err := internal.LoadConfig()
	if err != nil {
		panic(err)
	}

	log := logging.New(cfg.LogLevel)

	store, err := secrets.Shared(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("secret store init failed")
	}
	resolver := secrets.NewResolver(store)

	fetcher, err := publish.NewFetcher(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("media fetcher init failed")
	}

	orch := publish.New(log, resolver, uploaders.NewFactory(cfg, log), fetcher)
	router := server.NewRouter(log, orch, resolver)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Msgf("listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
	log.Info().Msg("server stopped")
}
