package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"metalbot/internal/alerting"
	"metalbot/internal/bot"
	"metalbot/internal/config"
	"metalbot/internal/fetcher"
	"metalbot/internal/health"
	"metalbot/internal/pricecache"
	"metalbot/internal/scheduler"
	"metalbot/internal/service"
	"metalbot/internal/storage"
	"metalbot/internal/version"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// core is the price pipeline shared by every command.
type core struct {
	cache     *pricecache.Cache
	prices    *service.PriceService
	evaluator *service.Evaluator
}

func (a *App) newCore() (*core, error) {
	loc, err := config.LoadLocation(a.Config.Display.Timezone)
	if err != nil {
		return nil, fmt.Errorf("display timezone: %w", err)
	}

	pages := fetcher.NewPage(fetcher.PageOptions{
		Timeout:   a.Config.Source.Timeout,
		UserAgent: a.Config.Source.UserAgent,
	}, a.Logger)
	cache := pricecache.New(a.Config.Cache.TTL)
	prices := service.NewPriceService(pages, cache, service.PriceOptions{
		BaseURL:    a.Config.Source.BaseURL,
		SourceName: a.Config.Source.Name,
		Location:   loc,
	}, a.Logger)

	return &core{
		cache:     cache,
		prices:    prices,
		evaluator: service.NewEvaluator(prices, cache, a.Logger),
	}, nil
}

func (a *App) newTelegram() *alerting.TelegramClient {
	cfg := a.Config.Telegram
	return alerting.NewTelegramClient(alerting.TelegramOptions{
		BotToken:       cfg.BotToken,
		BaseURL:        cfg.APIBase,
		RequestTimeout: cfg.RequestTimeout,
	}, a.Logger)
}

func (a *App) openStore(ctx context.Context) (storage.Store, error) {
	store, err := storage.Open(ctx, a.Config)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", a.Config.Storage.Driver, err)
	}
	return store, nil
}

func (a *App) newJobs(c *core, store storage.Store, notifier alerting.Notifier) *service.Jobs {
	return service.NewJobs(c.prices, c.evaluator, store, notifier, service.JobsOptions{
		AdvisoryLockKey: a.Config.Scheduler.AdvisoryLockKey,
	}, a.Logger)
}

// Run executes the bot, both periodic jobs and the health endpoint until a signal arrives.
func (a *App) Run(ctx context.Context) error {
	if err := a.Config.RequireTelegram(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	started := time.Now()
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	c, err := a.newCore()
	if err != nil {
		return err
	}

	tg := a.newTelegram()
	jobs := a.newJobs(c, store, tg)
	status := service.NewStatusReporter(started, c.cache, store)

	hour, minute, err := config.ParseClock(a.Config.Scheduler.DailyAt)
	if err != nil {
		return fmt.Errorf("scheduler.daily_at: %w", err)
	}
	dailyLoc, err := config.LoadLocation(a.Config.Scheduler.DailyTimezone)
	if err != nil {
		return fmt.Errorf("scheduler.daily_timezone: %w", err)
	}
	daily := scheduler.NewDaily("daily_prices", hour, minute, dailyLoc, a.Logger)
	alertSched := scheduler.New(scheduler.Options{
		Name:         "alert_check",
		Interval:     a.Config.Scheduler.AlertInterval,
		StartupDelay: a.Config.Scheduler.AlertStartupDelay,
	}, a.Logger)

	b := bot.New(tg, c.prices, store, status, bot.Options{
		DefaultMetal: a.Config.Bot.DefaultMetal,
		DefaultCity:  a.Config.Bot.DefaultCity,
		PollTimeout:  a.Config.Telegram.PollTimeout,
	}, a.Logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.Run(gctx) })
	g.Go(func() error { return daily.Run(gctx, jobs.PushSubscriptions) })
	g.Go(func() error { return alertSched.Run(gctx, jobs.CheckAlerts) })
	if a.Config.Health.Enabled {
		srv := health.New(a.Config.Health.Addr, status, a.Logger)
		g.Go(func() error { return srv.Run(gctx) })
	}

	a.Logger.Info().
		Str("version", version.Version).
		Str("storage", a.Config.Storage.Driver).
		Str("daily_at", a.Config.Scheduler.DailyAt).
		Dur("alert_interval", a.Config.Scheduler.AlertInterval).
		Msg("starting metal price bot")

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("bot terminated with error")
		return err
	}

	a.Logger.Info().Msg("bot stopped")
	return nil
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Metal   string
	City    string
	Message bool
}

// JobOptions configure a one-off job run.
type JobOptions struct {
	DryRun bool
}
