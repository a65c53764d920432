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

	_ "nexus-ats/docs" // Swagger docs
	"nexus-ats/internal/api"
	"nexus-ats/internal/blob"
	"nexus-ats/internal/config"
	"nexus-ats/internal/cv"
	"nexus-ats/internal/logging"
	"nexus-ats/internal/service"
	"nexus-ats/internal/storage"
)

// @title Nexus ATS Candidate API
// @version 1.0
// @description Candidate pipeline, document storage, job application links and search for the Nexus applicant tracking system.

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @BasePath /
// @schemes http https

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("server stopped with error")
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()
	log := logging.Component("main")

	log.Info().Str("database", cfg.Mongo.Database).Msg("connecting to MongoDB")
	db, err := storage.NewDB(ctx, storage.Options{
		URI:            cfg.Mongo.URI,
		Database:       cfg.Mongo.Database,
		Collection:     cfg.Mongo.Collection,
		ConnectTimeout: cfg.Mongo.ConnectTimeout,
	}, logging.Logger())
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		db.Close(closeCtx)
	}()

	indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = db.EnsureIndexes(indexCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	log.Info().Msg("database connected, indexes ensured")

	store, closeStore, err := openBlobStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeStore()

	var extractor service.TextExtractor
	if cfg.Documents.ExtractText {
		extractor = cv.NewTextExtractor()
	}

	base := logging.Logger()
	candidates := service.NewCandidateService(db, base)
	services := api.Services{
		Candidates: candidates,
		Pipeline:   service.NewPipelineService(db, base),
		Documents: service.NewDocumentService(db, store, extractor, service.DocumentConfig{
			MaxFileSize:      cfg.Documents.MaxFileSize,
			AllowedMimeTypes: cfg.Documents.AllowedMimeTypes,
			ExtractText:      cfg.Documents.ExtractText,
		}, base),
		Search:       service.NewSearchService(db, base),
		Applications: service.NewApplicationService(db, candidates, cfg.Applications.MaxPerCandidate, base),
	}

	apiSrv := api.NewAPI(services, db, api.Options{
		DefaultPageSize: cfg.API.DefaultPageSize,
		MaxPageSize:     cfg.API.MaxPageSize,
		MaxUploadSize:   cfg.Documents.MaxFileSize,
	})
	router := api.NewRouter(apiSrv, api.MiddlewareConfig{
		CORSAllowedOrigins: cfg.API.CORSOrigins,
		RateLimitRequests:  cfg.API.RateLimitReqs,
		RateLimitWindow:    cfg.API.RateLimitWindow,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("API server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

// openBlobStore builds the document byte store selected by config.
func openBlobStore(ctx context.Context, cfg config.StorageConfig) (blob.Store, func(), error) {
	switch cfg.Driver {
	case "postgres":
		s, err := blob.NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres blob store: %w", err)
		}
		return s, func() { _ = s.Close() }, nil
	default:
		s, err := blob.NewFileStore(cfg.Root)
		if err != nil {
			return nil, nil, fmt.Errorf("open file blob store: %w", err)
		}
		return s, func() {}, nil
	}
}
