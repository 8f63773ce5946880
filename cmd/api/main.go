package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"clipforge/internal/adapter/repo"
	"clipforge/internal/http/handlers"
	"clipforge/internal/http/httpapi"
	"clipforge/internal/infra"
	"clipforge/internal/infra/geoip"
	"clipforge/internal/middleware"
	"clipforge/internal/pipeline"
	"clipforge/internal/providers/ai"
	"clipforge/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	fileStore, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}

	var enhancer ai.Enhancer
	if cfg.EnhancerEndpoint != "" {
		enhancer, err = ai.NewClient(ai.Options{
			Endpoint: cfg.EnhancerEndpoint,
			APIKey:   cfg.EnhancerAPIKey,
			HTTPClient: &http.Client{
				Timeout: 120 * time.Second,
			},
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure enhancer client")
		}
		logger.Info().Str("endpoint", cfg.EnhancerEndpoint).Msg("using remote enhancer")
	} else {
		enhancer = ai.NewSynthetic(fileStore)
		logger.Info().Msg("no enhancer endpoint configured, using synthetic enhancer")
	}

	videos := repo.NewVideoRepository(pool)
	processing := pipeline.New(videos, enhancer, logger, pipeline.Config{
		Milestones: cfg.Milestones,
		StepDelay:  cfg.StepDelay,
	})

	var countryLookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip database unavailable, country detection degraded")
	} else if resolver != nil {
		countryLookup = resolver.CountryCode
		if closer, ok := resolver.(io.Closer); ok {
			defer closer.Close()
		}
	}

	app := &handlers.App{
		Logger:     logger,
		Users:      repo.NewUserRepository(pool),
		Projects:   repo.NewProjectRepository(pool),
		Videos:     videos,
		Processing: processing,
		Blobs:      fileStore,
		JWTSecret:  cfg.JWTSecret,
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		DefaultLocale:   cfg.DefaultLocale,
		CountryLookup:   countryLookup,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	// In-flight runners get the remainder of the window to land a terminal
	// state before the process exits.
	if err := processing.Close(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("processing pipeline did not drain")
	}
	logger.Info().Msg("server stopped")
}
