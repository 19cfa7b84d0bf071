package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	v1 "github.com/dmehra2102/prod-golang-projects/consultrec/internal/handler/v1"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/service"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/storage"
	"github.com/dmehra2102/prod-golang-projects/consultrec/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/consultrec/pkg/logger"
	"github.com/dmehra2102/prod-golang-projects/consultrec/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/consultrec/pkg/tracer"
)

func serveCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "Run schema migrations before serving")
	return cmd
}

func runServer(parent context.Context, migrate bool) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracer.Init(cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	repos, err := openRepositories(ctx, cfg, log, migrate)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repos.close(closeCtx); err != nil {
			log.Warn("closing metadata store", zap.Error(err))
		}
	}()

	store := storage.NewFileStore(cfg.Storage)
	if err := store.CheckAvailable(); err != nil {
		// Serve anyway; /readyz reports it and each request re-checks.
		log.Error("video storage root is not reachable at startup",
			logger.ErrorClass(logger.ClassStorageUnavailable),
			zap.Error(err),
		)
	}

	m := metrics.NewCollector(cfg.App.Name, prometheus.DefaultRegisterer)
	jwtm := auth.NewJWTManager(cfg.JWT)
	auditSvc := service.NewAuditService(repos.audit, m, log)

	h := v1.NewHandler(v1.Deps{
		Auth:          service.NewAuthService(repos.users, jwtm, auditSvc, log),
		Consultations: service.NewConsultationService(repos.consultations, auditSvc, m, log),
		Uploads:       service.NewUploadService(store, repos.consultations, auditSvc, m, log),
		Videos:        service.NewVideoService(store, repos.consultations, auditSvc, m, log, cfg.Video.ScopeEnforced),
		Reconcile:     service.NewReconcileService(store, repos.consultations, m, log),
		Readiness: []v1.ReadinessCheck{
			{Name: "storage", Check: func(context.Context) error { return store.CheckAvailable() }},
			{Name: "metadata", Check: repos.consultations.Ping},
		},
		Log:            log,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		ExposeErrors:   !cfg.App.IsProduction(),
	})

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := v1.NewRouter(h, v1.RouterConfig{
		JWT:            jwtm,
		Metrics:        m,
		Log:            log,
		CORS:           cfg.CORS,
		RateLimit:      cfg.RateLimit,
		MetricsHandler: metrics.MetricsHandler(),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.App.Environment),
			zap.String("version", cfg.App.Version),
			zap.String("db_driver", cfg.Database.Driver),
			zap.String("storage_base", cfg.Storage.BasePath()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	auditSvc.Shutdown(cfg.Server.ShutdownTimeout)

	log.Info("server stopped")
	return nil
}
