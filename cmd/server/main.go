package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/gigmarket/internal/config"
	"github.com/Skotchmaster/gigmarket/internal/db"
	"github.com/Skotchmaster/gigmarket/internal/es"
	"github.com/Skotchmaster/gigmarket/internal/handlers"
	"github.com/Skotchmaster/gigmarket/internal/logging"
	"github.com/Skotchmaster/gigmarket/internal/maintenance"
	authmw "github.com/Skotchmaster/gigmarket/internal/middleware/auth"
	"github.com/Skotchmaster/gigmarket/internal/mykafka"
	"github.com/Skotchmaster/gigmarket/internal/payment"
	"github.com/Skotchmaster/gigmarket/internal/realtime"
	"github.com/Skotchmaster/gigmarket/internal/repo"
	"github.com/Skotchmaster/gigmarket/internal/service/search"
	"github.com/Skotchmaster/gigmarket/internal/storage"
	"github.com/Skotchmaster/gigmarket/internal/tokens"
	httpserver "github.com/Skotchmaster/gigmarket/internal/transport/http"
	"github.com/Skotchmaster/gigmarket/internal/upload"
)

func main() {
	cfg := config.Load()
	config.MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")

	l := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(l)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Open(ctx, cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		l.Error("db_open_failed", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(gdb); err != nil {
		l.Error("db_migrate_failed", "error", err)
		os.Exit(1)
	}
	r := repo.New(gdb)

	codec, err := tokens.NewCodec(cfg.JWTSecret)
	if err != nil {
		l.Error("token_codec_failed", "error", err)
		os.Exit(1)
	}

	store, uploadDir, err := newStorage(ctx, cfg)
	if err != nil {
		l.Error("storage_init_failed", "error", err)
		os.Exit(1)
	}
	uploader := &upload.Uploader{Store: store}

	prod := mykafka.New(cfg.KafkaBrokers)

	var index *search.JobIndex
	if cfg.ESURL != "" {
		var client *elasticsearch.Client
		client, err = es.NewClient(ctx, l, cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			l.Warn("search_disabled", "error", err)
		} else {
			index = &search.JobIndex{ES: client, Index: cfg.JobsIndex}
		}
	}

	verifier := payment.NewVerifier(cfg.StripeWebhookSecret)
	if verifier.Trusted() {
		l.Warn("payment_webhook_unverified", "reason", "STRIPE_WEBHOOK_SECRET is empty, accepting unsigned notifications")
	}
	var checkout handlers.CheckoutCreator
	if cfg.StripeSecret != "" {
		checkout = payment.NewCheckout(cfg.StripeSecret, cfg.SuccessURL, cfg.CancelURL)
	}

	e := httpserver.New(&httpserver.Deps{
		DB:             gdb,
		Logger:         l,
		Gate:           &authmw.Gate{Tokens: codec, Store: r},
		AuthHandler:    &handlers.AuthHandler{Repo: r, Tokens: codec, Producer: prod},
		ProfileHandler: &handlers.ProfileHandler{Repo: r, Uploader: uploader},
		JobHandler:     &handlers.JobHandler{Repo: r, Uploader: uploader, Producer: prod, Index: index},
		MessageHandler: &handlers.MessageHandler{Repo: r, Hub: realtime.NewHub()},
		PaymentHandler: &handlers.PaymentHandler{Checkout: checkout, Verifier: verifier, Producer: prod},
		SearchHandler:  &handlers.SearchHandler{Index: index},
		UploadDir:      uploadDir,
		AllowOrigins:   cfg.AllowOrigins,
	})

	purger, err := maintenance.NewPurger(r, cfg.PurgeSchedule)
	if err != nil {
		l.Error("purge_schedule_invalid", "error", err)
		os.Exit(1)
	}
	go purger.Run(ctx, l.With("job", "revoked_purge"))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		l.Info("http_server_started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("http_server_error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	l.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error("server_shutdown_error", "error", err)
	}
	if err := db.Close(gdb); err != nil {
		l.Error("db_close_error", "error", err)
	}
	if err := prod.Close(); err != nil {
		l.Error("kafka_close_error", "error", err)
	}

	l.Info("shutdown complete")
}

// newStorage returns the configured backend and, for local storage, the
// directory to serve under /uploads.
func newStorage(ctx context.Context, cfg config.Config) (storage.Storage, string, error) {
	switch cfg.StorageType {
	case config.StorageS3:
		s, err := storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		return s, "", err
	case config.StorageLocal, "":
		s, err := storage.NewLocalStorage(cfg.UploadDir, "/uploads")
		return s, cfg.UploadDir, err
	default:
		return nil, "", fmt.Errorf("unknown STORAGE_TYPE %q", cfg.StorageType)
	}
}
