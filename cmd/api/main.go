package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"dispatch/internal/generation"
	"dispatch/internal/http/handlers"
	"dispatch/internal/http/httpapi"
	"dispatch/internal/infra"
	"dispatch/internal/providers/pod"
	"dispatch/internal/providers/runpod"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	httpClient := &http.Client{}

	serverless, err := runpod.NewClient(runpod.Options{
		APIKey:          cfg.RunpodAPIKey,
		BaseURL:         cfg.RunpodBaseURL,
		Endpoints:       cfg,
		SyncTimeout:     cfg.SyncTimeout,
		PollInterval:    cfg.PollInterval,
		MaxPollDuration: cfg.MaxPollDuration,
		MaxPollAttempts: cfg.MaxPollAttempts,
		HTTPClient:      httpClient,
		Logger:          &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure serverless client")
	}

	var podBackend generation.PodBackend
	if cfg.PodURL != "" {
		podClient, err := pod.NewClient(pod.Options{
			BaseURL:    cfg.PodURL,
			APIKey:     cfg.PodAPIKey,
			Timeout:    cfg.PodTimeout,
			HTTPClient: httpClient,
			Logger:     &logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure pod client")
		}
		podBackend = podClient
	} else {
		logger.Info().Msg("no pod configured, serverless only")
	}

	router, err := generation.NewRouter(generation.Options{
		Pod:             podBackend,
		Serverless:      serverless,
		ForceServerless: cfg.ForceServerless,
		Logger:          &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure router")
	}

	app := handlers.NewApp(router, podBackend, logger)
	server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app, cfg, logger))

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
