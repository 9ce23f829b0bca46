package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"medaudit/internal/auth/jwtauth"
	"medaudit/internal/config"
	"medaudit/internal/export"
	"medaudit/internal/extract/pdftext"
	"medaudit/internal/handler"
	"medaudit/internal/metrics"
	"medaudit/internal/normalize"
	"medaudit/internal/router"
	"medaudit/internal/service"
	"medaudit/internal/submission"
)

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
	if cfg.Endpoint.URL == "" {
		log.Printf("WARNING: MEDAUDIT_ENDPOINT_URL is not set; submissions will fail until it is configured")
	}
	if cfg.Normalizer.DemoFallback {
		log.Printf("WARNING: demo fallback is enabled; unstructured replies will show demonstration findings")
	}
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize pipeline
	extractor := pdftext.NewExtractor(cfg.Extractor.Pdftotext)
	if cfg.Endpoint.SubmitAsText {
		if err := extractor.CheckAvailable(); err != nil {
			return fmt.Errorf("text submission requires pdftotext: %w", err)
		}
	}
	pipeline := service.Pipeline{
		Extractor:  extractor,
		Submitter:  submission.NewClient(&cfg.Endpoint),
		Normalizer: normalize.New(normalize.Options{DemoFallback: cfg.Normalizer.DemoFallback, RawPassthrough: cfg.Normalizer.RawPassthrough}),
		Metrics:    metrics.New(nil),
	}

	// Initialize services
	sessions := service.NewSessionRegistry(pipeline, service.SessionConfig{
		MaxFileBytes: cfg.Endpoint.MaxFileSizeBytes(),
		SubmitAsText: cfg.Endpoint.SubmitAsText,
		Source:       cfg.Endpoint.Source,
	})
	go service.RunSweeper(ctx, sessions, cfg.Session.SweepInterval, cfg.Session.TTL)

	authorizer, err := jwtauth.New(&cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize authorizer: %w", err)
	}

	// Initialize handlers
	auditH := handler.NewAuditHandler(sessions, export.DefaultRegistry(), cfg.Endpoint.MaxFileSizeBytes())
	healthH := handler.NewHealthHandler(map[string]handler.ReadinessCheck{
		"endpoint": func() error {
			if cfg.Endpoint.URL == "" {
				return errors.New("endpoint URL not configured")
			}
			return nil
		},
		"pdftotext": func() error {
			if !cfg.Endpoint.SubmitAsText {
				return nil
			}
			return extractor.CheckAvailable()
		},
	})

	// Setup router
	r := router.Setup(authorizer, auditH, healthH, promhttp.Handler(), cfg.CORS.AllowedOrigins)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", cfg.Server.Port)
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

	log.Printf("Shutting down server")
	// In-flight audits may take as long as the endpoint timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Endpoint.Timeout+10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
