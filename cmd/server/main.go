package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/castlemilk/pledger/backend/internal/analytics"
	"github.com/castlemilk/pledger/backend/internal/blob"
	"github.com/castlemilk/pledger/backend/internal/cache"
	"github.com/castlemilk/pledger/backend/internal/config"
	"github.com/castlemilk/pledger/backend/internal/extraction"
	"github.com/castlemilk/pledger/backend/internal/logging"
	"github.com/castlemilk/pledger/backend/internal/service"
	"github.com/castlemilk/pledger/backend/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	zerolog.DefaultContextLogger = &log

	// Amounts go out as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storeImpl, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("failed to open store")
	}
	defer closeStore()

	engineOpts := []analytics.Option{
		analytics.WithLocation(cfg.Location()),
		analytics.WithLogger(log),
	}
	if cfg.MonthCacheSize > 0 {
		months := cache.NewLRUCache[decimal.Decimal](cfg.MonthCacheSize, cfg.MonthCacheTTL)
		engineOpts = append(engineOpts, analytics.WithMonthCache(months))

		sweeper, err := cache.NewSweeper(cfg.CacheSweepSchedule, log, months)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to schedule cache sweeper")
		}
		sweeper.Start()
		defer sweeper.Stop()
	}
	engine := analytics.NewEngine(store.NewLedgerReader(storeImpl), engineOpts...)

	extractor, closeExtractor := newExtractor(ctx, cfg, log)
	defer closeExtractor()

	stager, closeStager := newStager(ctx, cfg, log)
	defer closeStager()

	financeService := service.NewFinanceService(storeImpl, engine,
		service.WithExtraction(extraction.NewNormalizer(cfg.ImageMaxDimension, cfg.ImageJPEGQuality), extractor),
		service.WithStager(stager),
		service.WithMaxUploadBytes(cfg.MaxUploadBytes),
		service.WithLocation(cfg.Location()),
		service.WithLogger(logging.Component(log, "http")),
	)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(logging.Recovery(log), logging.Middleware(log))
	financeService.Register(router)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"User-Agent",
			logging.RequestIDHeader,
		},
		ExposedHeaders:   []string{logging.RequestIDHeader},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           h2c.NewHandler(c.Handler(router), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("store", cfg.StoreBackend).
			Bool("extraction", extractor.IsEnabled()).
			Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, func(), error) {
	switch cfg.StoreBackend {
	case store.BackendMemory:
		log.Info().Msg("using in-memory store for local development")
		return store.NewMemoryStore(), func() {}, nil

	case store.BackendSQLite:
		s, err := store.NewSQLiteStore(cfg.SQLiteDBPath)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("path", cfg.SQLiteDBPath).Msg("using sqlite store")
		return s, func() {
			if err := s.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close sqlite store")
			}
		}, nil

	default:
		client, err := store.NewFirestoreClient(ctx, cfg.GoogleCloudProject, cfg.GoogleCredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("project", cfg.GoogleCloudProject).Msg("using firestore store")
		return store.NewFirestoreStore(client), func() { client.Close() }, nil
	}
}

func newExtractor(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*extraction.ExtractionService, func()) {
	extCfg := extraction.Config{Timeout: cfg.ExtractionTimeout, Retries: cfg.ExtractionMaxRetries}

	if !cfg.ExtractionEnabled() {
		log.Warn().Msg("GEMINI_API_KEY not set, receipt extraction disabled")
		return extraction.NewExtractionService(nil, extCfg, log), func() {}
	}

	gemini, err := extraction.NewGeminiCapability(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Error().Err(err).Msg("failed to create gemini client, receipt extraction disabled")
		return extraction.NewExtractionService(nil, extCfg, log), func() {}
	}
	log.Info().Str("model", gemini.Model()).Msg("receipt extraction enabled")
	return extraction.NewExtractionService(gemini, extCfg, log), func() { gemini.Close() }
}

func newStager(ctx context.Context, cfg *config.Config, log zerolog.Logger) (blob.Stager, func()) {
	if cfg.ReceiptBucket == "" {
		if cfg.StoreBackend == store.BackendMemory {
			return blob.NewMemoryStager(), func() {}
		}
		log.Info().Msg("RECEIPT_BUCKET not set, receipts are not staged")
		return nil, func() {}
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to create storage client, receipts are not staged")
		return nil, func() {}
	}
	log.Info().Str("bucket", cfg.ReceiptBucket).Msg("staging receipts in cloud storage")
	return blob.NewGCSStager(client.Bucket(cfg.ReceiptBucket)), func() { client.Close() }
}
