package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"PaperTracker/internal/config"
	"PaperTracker/internal/infrastructure/discord"
	"PaperTracker/internal/infrastructure/firecrawl"
	"PaperTracker/internal/infrastructure/httpapi"
	"PaperTracker/internal/infrastructure/llm"
	"PaperTracker/internal/infrastructure/parser"
	"PaperTracker/internal/infrastructure/scheduler"
	"PaperTracker/internal/infrastructure/storage"
	"PaperTracker/internal/infrastructure/telegram"
	"PaperTracker/internal/infrastructure/xpost"
	"PaperTracker/internal/logging"
	"PaperTracker/internal/ports"
	"PaperTracker/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	repo     *storage.Repository
	pipeline *usecase.Pipeline
}

// NewTracker validates tracking settings, opens the store and assembles
// the pipeline with every configured sink.
func NewTracker(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if err := cfg.ValidateForTracking(); err != nil {
		return nil, err
	}
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	repo, err := storage.Open(ctx, cfg.Database.DSN, logging.Component(baseLogger, "storage"))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		repo:     repo,
		pipeline: buildPipeline(cfg, repo, baseLogger),
	}, nil
}

// NewReader opens the store for the read-only API.
func NewReader(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if err := cfg.ValidateForServing(); err != nil {
		return nil, err
	}
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	repo, err := storage.Open(ctx, cfg.Database.DSN, logging.Component(baseLogger, "storage"))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &Application{cfg: cfg, logger: baseLogger, repo: repo}, nil
}

func buildPipeline(cfg config.Config, store ports.PaperStore, logger *slog.Logger) *usecase.Pipeline {
	return usecase.NewPipeline(usecase.PipelineDeps{
		Source:    parser.NewHuggingFaceListing(nil, cfg.Tracker.ListingLimit, logging.Component(logger, "listing")),
		Extractor: firecrawl.NewClient(cfg.Firecrawl),
		Store:     store,
		Tracker:   usecase.NewNoveltyTracker(store, logging.Component(logger, "novelty")),
		Matcher:   usecase.NewCategoryMatcher(llm.NewChatClient(cfg.Classifier), logging.Component(logger, "matcher")),
		Gate:      usecase.Gate{Threshold: cfg.Classifier.Threshold},
		Notifiers: buildNotifiers(cfg.Notifications),
		Category:  cfg.Classifier.Rubric,
		BatchSize: cfg.Tracker.BatchSize,
		Logger:    logging.Component(logger, "pipeline"),
	})
}

func buildNotifiers(cfg config.NotificationConfig) []ports.Notifier {
	var notifiers []ports.Notifier
	if cfg.Discord.WebhookURL != "" {
		notifiers = append(notifiers, discord.NewNotifier(cfg.Discord.WebhookURL))
	}
	if cfg.X.Enabled {
		notifiers = append(notifiers, xpost.NewNotifier(cfg.X.Endpoint, cfg.X.AccessToken))
	}
	if cfg.Telegram.Enabled() {
		notifiers = append(notifiers, telegram.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID))
	}
	return notifiers
}

// ListingURLFor returns the configured listing page for a calendar day.
func (a *Application) ListingURLFor(day time.Time) string {
	return parser.ListingURL(a.cfg.Tracker.ListingBaseURL, day)
}

// TodayListingURL returns today's listing in the reference timezone.
func (a *Application) TodayListingURL(now time.Time) string {
	return parser.TodayListingURL(a.cfg.Tracker.ListingBaseURL, now, a.cfg.Tracker.Location())
}

// Track performs a single pipeline run over one listing page.
func (a *Application) Track(ctx context.Context, listingURL string) (usecase.Summary, error) {
	if a.pipeline == nil {
		return usecase.Summary{}, errors.New("application was not built for tracking")
	}
	return a.pipeline.Run(ctx, listingURL)
}

// Schedule runs the pipeline now and on every interval until ctx is done.
func (a *Application) Schedule(ctx context.Context) error {
	if a.pipeline == nil {
		return errors.New("application was not built for tracking")
	}

	driver := scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval)
	sched := usecase.NewScheduler(driver, a.pipeline, a.TodayListingURL, logging.Component(a.logger, "scheduler"))
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started", "interval", a.cfg.Scheduler.Interval)

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := sched.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	a.logger.Info("scheduler stopped")
	return nil
}

// Serve exposes the read-only API on addr until ctx is done.
func (a *Application) Serve(ctx context.Context, addr string) error {
	if addr == "" {
		addr = a.cfg.Server.Addr
	}

	handler := httpapi.NewHandler(a.repo, logging.Component(a.logger, "api"))
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.NewServer(handler, logging.Component(a.logger, "http")),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve api: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown api: %w", err)
	}
	return nil
}

// Close releases the store.
func (a *Application) Close() error {
	if a.repo == nil {
		return nil
	}
	return a.repo.Close()
}
