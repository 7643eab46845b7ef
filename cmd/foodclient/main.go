package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/food_client/internal/apiclient"
	"github.com/Skotchmaster/food_client/internal/app"
	"github.com/Skotchmaster/food_client/internal/catalog"
	"github.com/Skotchmaster/food_client/internal/config"
	"github.com/Skotchmaster/food_client/internal/events"
	"github.com/Skotchmaster/food_client/internal/httpserver"
	"github.com/Skotchmaster/food_client/internal/logging"
	"github.com/Skotchmaster/food_client/internal/session"
	"github.com/Skotchmaster/food_client/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	l := logging.New(cfg.LogLevel).With("service", "foodclient")
	slog.SetDefault(l)

	if err := run(cfg, l); err != nil {
		l.Error("foodclient_failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, l *slog.Logger) error {
	ctx := logging.IntoContext(context.Background(), l)

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	durable, err := storage.Open(initCtx, cfg.StorageDriver, cfg.StorageDSN, cfg.RedisURL)
	cancel()
	if err != nil {
		return err
	}
	defer func() {
		if err := durable.Close(); err != nil {
			l.Warn("storage_close_error", "error", err)
		}
	}()

	sessions := session.NewManager(durable, storage.NewMemory())
	api, err := apiclient.New(cfg.APIBaseURL, cfg.HTTPTimeout, sessions)
	if err != nil {
		return err
	}

	pub := newPublisher(ctx, cfg, l)
	defer func() {
		if err := pub.Close(); err != nil {
			l.Warn("kafka_close_error", "error", err)
		}
	}()

	deps := app.Deps{
		Durable:    durable,
		Sessions:   sessions,
		API:        api,
		Publisher:  pub,
		SessionTTL: cfg.SessionTTL,
	}
	if cfg.ESURL != "" {
		s, err := catalog.NewSearcher(ctx, catalog.SearchConfig{
			URL:      cfg.ESURL,
			User:     cfg.ESUser,
			Password: cfg.ESPassword,
			Index:    cfg.ESIndex,
		})
		if err != nil {
			l.Warn("search_disabled", "error", err)
		} else {
			deps.Searcher = s
		}
	}
	a := app.New(deps)

	start, err := a.Start(ctx)
	if err != nil {
		return err
	}
	switch {
	case start.Expired:
		l.Info("session expired, please login again")
	case start.Session != nil:
		l.Info("session restored", "username", start.Session.Username, "role", start.Session.Role, "restored", start.Restored)
	default:
		l.Info("browsing as guest", "cart_lines", a.Cart.Len())
	}

	if _, err := a.LoadMenu(ctx); err != nil {
		l.Warn("menu_load_error", "error", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	if err := httpserver.Register(e, &httpserver.Deps{
		App:     a,
		Logger:  l,
		Backend: api.BaseURL(),
	}); err != nil {
		return err
	}

	errc := make(chan error, 1)
	go func() {
		l.Info("listening", "addr", cfg.ListenAddr, "api", cfg.APIBaseURL)
		if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-errc:
		return err
	}

	l.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		l.Error("echo_shutdown_error", "error", err)
	}
	l.Info("shutdown complete")
	return nil
}

// newPublisher falls back to dropping events when Kafka is not configured or
// its topics cannot be created.
func newPublisher(ctx context.Context, cfg *config.Config, l *slog.Logger) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return events.Noop{}
	}

	topicCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := events.EnsureTopics(topicCtx, cfg.KafkaBrokers[0], events.Topics...); err != nil {
		l.Warn("kafka_topics_error", "brokers", cfg.KafkaBrokers, "error", err)
	}

	p, err := events.NewKafkaPublisher(cfg.KafkaBrokers)
	if err != nil {
		l.Warn("kafka_disabled", "error", err)
		return events.Noop{}
	}
	return p
}
