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

	"github.com/okian/commitquest/internal/adapters/auth"
	"github.com/okian/commitquest/internal/adapters/http/api"
	"github.com/okian/commitquest/internal/adapters/http/swagger"
	"github.com/okian/commitquest/internal/adapters/repository"
	service "github.com/okian/commitquest/internal/app"
	"github.com/okian/commitquest/internal/config"
	"github.com/okian/commitquest/internal/domain/calendar"
	"github.com/okian/commitquest/internal/domain/dedupe"
	"github.com/okian/commitquest/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 15 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 30 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// logger format comes from config, so it is not available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	app, err := build(ctx, cfg, log)
	if err != nil {
		log.Fatal(ctx, "startup failed", logger.Error(err))
	}
	defer app.close()

	go startServiceMetricsUpdater(ctx, app.svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
}

// application is the assembled process: the service, its HTTP handler and
// the resources to release on exit.
type application struct {
	svc     *service.Service
	handler http.Handler
	closers []func() error
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

// build wires the store, deduper, calendar, service, tokens and router from cfg.
func build(ctx context.Context, cfg *config.Config, log logger.Logger) (*application, error) {
	app := &application{}

	store, err := repository.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	app.closers = append(app.closers, store.Close)

	deduper, err := buildDeduper(ctx, cfg, app)
	if err != nil {
		app.close()
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		app.close()
		return nil, err
	}

	app.svc = service.New(store,
		service.WithDeduper(deduper),
		service.WithAggregator(calendar.New(calendar.WithLocation(loc))),
		service.WithAllowedRepos(cfg.AllowedRepos),
		service.WithWindowDays(cfg.CalendarWindowDays),
		service.WithLeaderboardLimit(cfg.LeaderboardLimit),
		service.WithContributionsPageSize(cfg.ContributionsPageSize),
		service.WithMessagesPageSize(cfg.MessagesPageSize),
		service.WithMaxMessageLength(cfg.MaxMessageLength),
		service.WithLogger(log.Named("service")),
	)

	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("session tokens: %w", err)
	}

	if cfg.WebhookSecret == "" {
		log.Warn(ctx, "webhook_secret is empty; deliveries are accepted unsigned")
	}
	srv := api.NewServer(app.svc, tokens,
		api.WithWebhookSecret(cfg.WebhookSecret),
		api.WithChatRate(cfg.ChatRatePerSecond, cfg.ChatBurst),
		api.WithDocs(swagger.Handler()),
		api.WithLogger(log.Named("api")),
	)
	app.handler = srv.Router()
	return app, nil
}

func buildDeduper(ctx context.Context, cfg *config.Config, app *application) (dedupe.Deduper, error) {
	if cfg.DedupeBackend != config.DedupeRedis {
		return dedupe.NewMemory(
			dedupe.WithMaxSize(cfg.DedupeSize),
			dedupe.WithTTL(cfg.DedupeTTL()),
		), nil
	}
	client, err := dedupe.Dial(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	app.closers = append(app.closers, client.Close)
	return dedupe.NewRedis(client, dedupe.WithRedisTTL(cfg.DedupeTTL()))
}

// startServiceMetricsUpdater refreshes gauges derived from the store.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = svc.GetStats(ctx)
		}
	}
}
