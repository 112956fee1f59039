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

	"livestock-registry/internal/adapters/auth/odin"
	s3images "livestock-registry/internal/adapters/images/s3"
	"livestock-registry/internal/adapters/notify/webhook"
	"livestock-registry/internal/adapters/permissions/sentinel"
	"livestock-registry/internal/platform/logger"
	"livestock-registry/internal/ports/auth"
	"livestock-registry/internal/ports/images"
	"livestock-registry/internal/ports/notify"
	"livestock-registry/internal/ports/permissions"
	"livestock-registry/internal/router"
)

func main() {
	// .env solo para dev local; en deploy las vars vienen del entorno.
	_ = godotenv.Load()

	log := logger.NewFromEnv()

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}

	opts := router.Options{
		AuthVerifier: buildVerifier(log),
		Authorizer:   buildAuthorizer(log),
		Notifier:     buildNotifier(log),
		Images:       buildImages(log),
		Logger:       log,
	}

	srv := &http.Server{
		Addr:         addr,
		Handler:      router.NewRouter(opts),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("starting server", map[string]any{"addr": addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info("shutting down", nil)
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", map[string]any{"error": err.Error()})
	}
}

// buildVerifier arma el verifier de Odin si hay config; nil habilita el
// modo dev con headers X-Debug-User-ID / X-Debug-Tenant-ID.
func buildVerifier(log logger.Logger) auth.AuthVerifier {
	baseURL := os.Getenv("ODIN_BASE_URL")
	if baseURL == "" {
		log.Warn("ODIN_BASE_URL vacío: auth en modo dev", nil)
		return nil
	}

	client, err := odin.NewClient(odin.Config{
		BaseURL: baseURL,
		APIKey:  os.Getenv("ODIN_API_KEY"),
	})
	if err != nil {
		log.Error("odin client", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	return odin.NewVerifier(client)
}

func buildAuthorizer(log logger.Logger) permissions.Authorizer {
	baseURL := os.Getenv("SENTINEL_BASE_URL")
	if baseURL == "" {
		log.Warn("SENTINEL_BASE_URL vacío: solo el owner accede a sus recursos", nil)
		return nil
	}

	authz, err := sentinel.New(sentinel.Config{
		BaseURL: baseURL,
		APIKey:  os.Getenv("SENTINEL_API_KEY"),
	})
	if err != nil {
		log.Error("sentinel client", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	return authz
}

func buildNotifier(log logger.Logger) notify.Notifier {
	url := os.Getenv("NOTIFY_WEBHOOK_URL")
	if url == "" {
		return nil
	}
	return webhook.New(webhook.Config{URL: url}, log)
}

func buildImages(log logger.Logger) images.Store {
	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		log.Warn("S3_BUCKET vacío: upload de imágenes deshabilitado", nil)
		return nil
	}

	store, err := s3images.New(context.Background(), s3images.Config{
		Bucket:        bucket,
		Region:        os.Getenv("S3_REGION"),
		Endpoint:      os.Getenv("S3_ENDPOINT"),
		PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),
	})
	if err != nil {
		log.Error("s3 store", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	return store
}
