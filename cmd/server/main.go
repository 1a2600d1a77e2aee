package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"agrofin/internal/auth"
	"agrofin/internal/config"
	"agrofin/internal/email/noop"
	"agrofin/internal/email/ses"
	"agrofin/internal/handler"
	"agrofin/internal/llm"
	_ "agrofin/internal/llm/providers"
	"agrofin/internal/logging"
	"agrofin/internal/pipeline"
	"agrofin/internal/port"
	"agrofin/internal/repository/postgres"
	"agrofin/internal/router"
	"agrofin/internal/service"
	s3storage "agrofin/internal/storage/s3"
	"agrofin/internal/textextract"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	supplierRepo := postgres.NewSupplierRepo(db)
	accountRepo := postgres.NewPayableAccountRepo(db)
	logRepo := postgres.NewExtractionLogRepo(db)

	// Initialize storage
	var storage port.ObjectStorage
	if cfg.S3.Enabled() {
		storage, err = s3storage.NewS3Client(ctx, &cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 client: %w", err)
		}
	} else {
		logger.Warn("server: S3 bucket not configured, uploads will not be archived")
	}

	emailSender, err := newEmailSender(ctx, &cfg.Email, logger)
	if err != nil {
		return err
	}

	// Initialize the extraction pipeline
	generator, err := llm.Build(&cfg.LLM, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize llm providers: %w", err)
	}
	extractor := textextract.NewPdftotextExtractor(&cfg.Extractor, textextract.ExecRunner{Log: logger.Named("pdftotext")})
	processor := pipeline.New(pipeline.Config{
		PayloadLogLimit:        cfg.Pipeline.PayloadLogLimit,
		StrictInstallmentCount: cfg.Pipeline.StrictInstallmentCount,
	}, extractor, generator, logger.Named("pipeline"),
		pipeline.WithMetrics(pipeline.NewMetrics(prometheus.DefaultRegisterer)),
	)

	// Initialize services
	tokens := auth.NewTokenService(cfg.JWT)
	invoiceSvc := service.NewInvoiceService(processor, accountRepo, logRepo, storage, emailSender,
		service.NewInvoiceServiceConfig(cfg), logger.Named("invoice"))
	supplierSvc := service.NewSupplierService(supplierRepo, logger.Named("supplier"))

	// Initialize handlers
	var providerNames []string
	for _, p := range cfg.LLM.Providers() {
		providerNames = append(providerNames, p.Provider)
	}
	handlers := router.Handlers{
		PDF:      handler.NewPDFHandler(invoiceSvc, providerNames, cfg.Upload.MaxBytes(), logger),
		Account:  handler.NewAccountHandler(invoiceSvc, logger),
		Supplier: handler.NewSupplierHandler(supplierSvc, logger),
		Health:   handler.NewHealthHandler(db),
		Metrics:  promhttp.Handler(),
	}

	// Setup router
	r := router.Setup(tokens, handlers, cfg.CORS.AllowedOrigins, logger)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server: starting",
			zap.String("addr", cfg.Server.Port),
			zap.String("environment", cfg.Server.Environment),
			zap.Strings("llm_providers", providerNames),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("server: shutting down, draining in-flight requests")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("server: shutdown complete")
	return nil
}

func newEmailSender(ctx context.Context, cfg *config.EmailConfig, logger *zap.Logger) (port.EmailSender, error) {
	switch cfg.Provider {
	case "ses":
		sender, err := ses.NewSESSender(ctx, cfg.Region, cfg.FromAddress, cfg.FromName)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SES sender: %w", err)
		}
		return sender, nil
	case "", "noop":
		return noop.NewNoopSender(logger.Named("email")), nil
	default:
		return nil, fmt.Errorf("unknown email provider: %s", cfg.Provider)
	}
}
