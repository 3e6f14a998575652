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

	"inkwell/internal/adapter/repo"
	"inkwell/internal/cache"
	"inkwell/internal/http/handlers"
	"inkwell/internal/http/httpapi"
	"inkwell/internal/identity"
	"inkwell/internal/infra"
	"inkwell/internal/infra/geoip"
	"inkwell/internal/metrics"
	"inkwell/internal/providers/imagegen"
	"inkwell/internal/providers/media"
	"inkwell/internal/providers/pdftext"
	"inkwell/internal/providers/prompt"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	if err := infra.Migrate(ctx, dbpool); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	verifier, err := identity.NewVerifier(identity.VerifierOptions{
		Issuer:  cfg.IdentityIssuer,
		JWKSURL: cfg.IdentityJWKSURL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build session verifier")
	}
	ledger, err := identity.NewMetadataLedger(identity.MetadataLedgerOptions{
		BaseURL:   cfg.IdentityAPIBase,
		SecretKey: cfg.IdentitySecretKey,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build usage ledger")
	}

	completer := prompt.NewClient(prompt.Options{
		APIKey:   cfg.LLMAPIKey,
		Model:    cfg.LLMModel,
		BaseURL:  cfg.LLMBaseURL,
		Fallback: prompt.NewStaticCompleter(),
	})
	images, err := imagegen.NewClipDrop(imagegen.ClipDropOptions{
		APIKey:  cfg.ClipDropAPIKey,
		BaseURL: cfg.ClipDropBaseURL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build image generator")
	}
	mediaStore, err := media.NewCloudinary(media.CloudinaryOptions{
		CloudName: cfg.MediaCloudName,
		APIKey:    cfg.MediaAPIKey,
		APISecret: cfg.MediaAPISecret,
		BaseURL:   cfg.MediaBaseURL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build media store")
	}

	feed, err := cache.NewFeedCache(cfg.RedisURL, 0)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer func() {
		_ = feed.Close()
	}()

	countries, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip database unavailable, country logging disabled")
	}
	if countries != nil {
		defer func() {
			_ = countries.Close()
		}()
	}

	app := handlers.NewApp(handlers.AppOptions{
		Logger:         logger,
		Creations:      repo.NewCreationRepository(dbpool),
		Ledger:         ledger,
		Completer:      completer,
		Images:         images,
		Media:          mediaStore,
		Resumes:        pdftext.NewPDFExtractor(),
		Feed:           feed,
		Metrics:        metrics.New(),
		FreeQuota:      cfg.FreeTierQuota,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	router := httpapi.NewRouter(app, httpapi.RouterOptions{
		Logger:          logger,
		Verifier:        verifier,
		Ledger:          ledger,
		Countries:       countries,
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on %s", server.Addr())
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
