package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-integrity/pkg/config"
	"github.com/ekaya-inc/ekaya-integrity/pkg/crypto"
	"github.com/ekaya-inc/ekaya-integrity/pkg/database"
	"github.com/ekaya-inc/ekaya-integrity/pkg/handlers"
	"github.com/ekaya-inc/ekaya-integrity/pkg/intelligence"
	"github.com/ekaya-inc/ekaya-integrity/pkg/logging"
	"github.com/ekaya-inc/ekaya-integrity/pkg/metrics"
	"github.com/ekaya-inc/ekaya-integrity/pkg/middleware"
	"github.com/ekaya-inc/ekaya-integrity/pkg/repositories"
	"github.com/ekaya-inc/ekaya-integrity/pkg/retry"
	"github.com/ekaya-inc/ekaya-integrity/pkg/services"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run migrations and start the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath, Version)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("version", cfg.Version),
		zap.String("bind_addr", cfg.BindAddr),
		zap.String("port", cfg.Port),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.URL())))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrateUp(cfg, logger); err != nil {
		return err
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.URL(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	encryptor, err := crypto.NewSecretEncryptor(cfg.CredentialsKey)
	if err != nil {
		return fmt.Errorf("credentials key: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	mux := buildRouter(cfg, db, encryptor, m, logger)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting ekaya-integrity", zap.String("addr", srv.Addr), zap.String("version", cfg.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// buildRouter wires repositories, services and handlers onto a new mux.
func buildRouter(cfg *config.Config, db *database.DB, encryptor *crypto.SecretEncryptor, m *metrics.Metrics, logger *zap.Logger) *http.ServeMux {
	writerRepo := repositories.NewWriterRepository(db)
	assignmentRepo := repositories.NewAssignmentRepository(db)
	submissionRepo := repositories.NewSubmissionRepository(db)
	resultRepo := repositories.NewAnalysisResultRepository(db)
	auditRepo := repositories.NewAuditRepository(db)
	configRepo := repositories.NewSystemConfigRepository(db)

	factory := intelligence.NewFactory(intelligence.FactoryConfig{
		Endpoints: cfg.Providers,
		MockDelay: cfg.Analysis.MockDelay,
		Timeout:   cfg.Analysis.ProviderTimeout,
	}, logger)
	tester := intelligence.NewConnectionTester(factory, cfg.Analysis.ProviderTimeout)

	auditService := services.NewAuditService(auditRepo, logger)
	settingsService := services.NewSettingsService(configRepo, auditService, db, encryptor, tester, cfg.SettingsCacheTTL, m, logger)

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = cfg.Analysis.MaxRetries
	retryCfg.InitialDelay = cfg.Analysis.RetryInitialDelay
	adapter := intelligence.NewAdapter(settingsService, factory, intelligence.AdapterConfig{
		Retry: retryCfg,
		Circuit: intelligence.CircuitBreakerConfig{
			Threshold:  cfg.Analysis.CircuitThreshold,
			ResetAfter: cfg.Analysis.CircuitResetAfter,
		},
	}, m, logger)

	writerService := services.NewWriterService(writerRepo, auditService, db, logger)
	assignmentService := services.NewAssignmentService(assignmentRepo, writerRepo, auditService, db, logger)
	submissionService := services.NewSubmissionService(submissionRepo, assignmentRepo, writerRepo, settingsService, auditService, db, m, logger)
	analysisService := services.NewAnalysisService(submissionRepo, resultRepo, writerRepo, adapter, settingsService, auditService, db, cfg.Analysis.SimilarityCorpusSize, m, logger)
	reportService := services.NewReportService(submissionRepo, settingsService, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, db, logger).RegisterRoutes(mux)
	handlers.NewWriterHandler(writerService, logger).RegisterRoutes(mux)
	handlers.NewAssignmentHandler(assignmentService, logger).RegisterRoutes(mux)
	handlers.NewSubmissionHandler(submissionService, analysisService, auditService, logger).RegisterRoutes(mux)
	handlers.NewReportHandler(reportService, auditService, logger).RegisterRoutes(mux)
	handlers.NewSettingsHandler(settingsService, logger).RegisterRoutes(mux)
	mux.Handle("GET /metrics", m.Handler())
	return mux
}
