// Package main initializes and starts the CardKeeper HTTP server,
// setting up configuration, logging, the database, asset storage,
// services, handlers, and optional TLS and NATS events.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/cardkeeper/internal/config"
	"github.com/atinyakov/cardkeeper/internal/db"
	"github.com/atinyakov/cardkeeper/internal/events"
	"github.com/atinyakov/cardkeeper/internal/export"
	"github.com/atinyakov/cardkeeper/internal/logger"
	"github.com/atinyakov/cardkeeper/internal/render"
	"github.com/atinyakov/cardkeeper/internal/repository"
	"github.com/atinyakov/cardkeeper/internal/server/handler/http"
	"github.com/atinyakov/cardkeeper/internal/service"
	"github.com/atinyakov/cardkeeper/internal/upload"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line, file and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	zapLogger := log.Log.With(zap.String("instance_id", uuid.NewString()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open the database and apply migrations.
	cardDB, err := db.Open(options.DatabaseDriver, options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer cardDB.Close()
	if version, dirty, err := db.SchemaVersion(cardDB, options.DatabaseDriver); err != nil {
		zapLogger.Warn("cannot read schema version", zap.Error(err))
	} else {
		zapLogger.Info("database ready",
			zap.String("driver", options.DatabaseDriver),
			zap.Uint("schema_version", version),
			zap.Bool("dirty", dirty),
		)
	}

	// Prepare the asset directory and page templates.
	assets, err := upload.NewHandler(options.UploadDir)
	if err != nil {
		zapLogger.Fatal("cannot init upload directory", zap.Error(err))
	}
	// Remove temp files left by uploads interrupted by a crash.
	upload.StartTempCleaner(ctx, options.UploadDir,
		time.Hour,    // interval
		24*time.Hour, // retention
		zapLogger,
	)
	pages, err := render.NewTemplateEngine()
	if err != nil {
		zapLogger.Fatal("cannot parse templates", zap.Error(err))
	}

	// Card-created events go to NATS when configured.
	var publisher events.Publisher = events.NopPublisher{}
	if options.NATSURL != "" {
		nc, err := events.Connect(options.NATSURL, os.Getenv("NATS_TOKEN"))
		if err != nil {
			zapLogger.Fatal("cannot connect to NATS", zap.Error(err))
		}
		defer func() { _ = nc.Drain() }()
		publisher = events.NewNATSPublisher(nc, options.NATSSubject, options.BaseURL)
		zapLogger.Info("publishing card events", zap.String("subject", options.NATSSubject))
	}

	// Initialize the card service.
	cardService := service.NewCardService(
		repository.NewSQLCardRepository(cardDB),
		assets,
		export.NewPackager(options.UploadDir, pages),
		service.WithPublisher(publisher),
		service.WithLogger(zapLogger),
		service.WithPartitionedAssets(options.PartitionAssets),
	)

	// Build the router with middleware and routes.
	cardHandler := &http.CardHandler{
		CardService: cardService,
		Pages:       pages,
		BaseURL:     options.BaseURL,
		Logger:      zapLogger,
	}
	router := http.NewRouter(cardHandler, http.RouterConfig{
		UploadDir:   options.UploadDir,
		CORSOrigins: options.CORSOrigins,
		RateLimit:   options.RateLimit,
	}, zapLogger)

	server := &nethttp.Server{
		Addr:         options.Port,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if options.TLSCert != "" && options.TLSKey != "" {
			zapLogger.Info("starting HTTPS server", zap.String("addr", options.Port))
			serveErr <- server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
			return
		}
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Port))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			zapLogger.Error("server failed", zap.Error(err))
		}
		return
	case <-ctx.Done():
	}

	// Wait for in-flight requests before closing the database.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("graceful shutdown failed", zap.Error(err))
		return
	}
	zapLogger.Info("server stopped")
}
