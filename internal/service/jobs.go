package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"metalbot/internal/alerting"
	"metalbot/internal/catalog"
	"metalbot/internal/storage"
)

// lock key offsets so the two jobs never contend for the same advisory lock
const (
	dailyLockOffset = 1
	alertLockOffset = 2
)

// JobsOptions configure the periodic job bodies.
type JobsOptions struct {
	AdvisoryLockKey int64
}

// Jobs holds the bodies of the daily push and the alert check.
type Jobs struct {
	prices    *PriceService
	evaluator *Evaluator
	store     storage.Store
	notifier  alerting.Notifier
	locker    storage.AdvisoryLocker
	lockKey   int64
	logger    zerolog.Logger
}

// JobReport summarises one job run.
type JobReport struct {
	Considered int
	Sent       int
	Failed     int
	Skipped    bool
}

// NewJobs constructs the job bodies. Advisory locking is enabled when the
// store supports it and a non-zero key is configured.
func NewJobs(prices *PriceService, evaluator *Evaluator, store storage.Store, notifier alerting.Notifier, opts JobsOptions, logger zerolog.Logger) *Jobs {
	var locker storage.AdvisoryLocker
	if l, ok := store.(storage.AdvisoryLocker); ok {
		locker = l
	}
	return &Jobs{
		prices:    prices,
		evaluator: evaluator,
		store:     store,
		notifier:  notifier,
		locker:    locker,
		lockKey:   opts.AdvisoryLockKey,
		logger:    logger.With().Str("component", "jobs").Logger(),
	}
}

// PushSubscriptions sends every subscriber the current prices for their pair.
func (j *Jobs) PushSubscriptions(ctx context.Context, tick time.Time) error {
	_, err := j.RunDaily(ctx, tick)
	return err
}

// CheckAlerts notifies every chat whose alert threshold is above the current price.
func (j *Jobs) CheckAlerts(ctx context.Context, tick time.Time) error {
	_, err := j.RunAlerts(ctx, tick)
	return err
}

// RunDaily is PushSubscriptions with a report.
func (j *Jobs) RunDaily(ctx context.Context, tick time.Time) (JobReport, error) {
	var report JobReport
	unlock, proceed, err := j.acquireLock(ctx, dailyLockOffset)
	if err != nil {
		return report, err
	}
	if !proceed {
		j.logger.Debug().Time("tick", tick).Msg("skip daily push because advisory lock held elsewhere")
		report.Skipped = true
		return report, nil
	}
	if unlock != nil {
		defer unlock()
	}

	subs, err := j.store.ListSubscriptions(ctx)
	if err != nil {
		return report, fmt.Errorf("list subscriptions: %w", err)
	}
	report.Considered = len(subs)
	j.logger.Info().Time("tick", tick).Int("subscribers", len(subs)).Msg("daily push started")

	for _, sub := range subs {
		log := j.logger.With().Int64("chat_id", sub.ChatID).Str("metal", sub.Metal).Str("city", sub.City).Logger()
		metal, _, err := catalog.Resolve(sub.Metal, sub.City)
		if err != nil {
			log.Warn().Err(err).Msg("subscription references unsupported pair")
			report.Failed++
			continue
		}
		msg, err := j.prices.GetPrices(ctx, sub.Metal, sub.City, false)
		if err != nil {
			log.Warn().Err(err).Msg("failed to build daily update")
			report.Failed++
			continue
		}
		if err := j.notifier.Send(ctx, sub.ChatID, DailyHeader(metal)+msg); err != nil {
			log.Warn().Err(err).Msg("failed to send daily update")
			report.Failed++
			continue
		}
		report.Sent++
	}

	j.logger.Info().Int("sent", report.Sent).Int("failed", report.Failed).Msg("daily push finished")
	return report, nil
}

// RunAlerts is CheckAlerts with a report.
func (j *Jobs) RunAlerts(ctx context.Context, tick time.Time) (JobReport, error) {
	var report JobReport
	unlock, proceed, err := j.acquireLock(ctx, alertLockOffset)
	if err != nil {
		return report, err
	}
	if !proceed {
		j.logger.Debug().Time("tick", tick).Msg("skip alert check because advisory lock held elsewhere")
		report.Skipped = true
		return report, nil
	}
	if unlock != nil {
		defer unlock()
	}

	alerts, err := j.store.ListAlerts(ctx)
	if err != nil {
		return report, fmt.Errorf("list alerts: %w", err)
	}
	report.Considered = len(alerts)
	if len(alerts) == 0 {
		return report, nil
	}
	j.logger.Info().Time("tick", tick).Int("alerts", len(alerts)).Msg("alert check started")

	for _, f := range j.evaluator.Evaluate(ctx, alerts) {
		log := j.logger.With().Int64("chat_id", f.Alert.ChatID).Str("metal", f.Alert.Metal).Str("city", f.Alert.City).Logger()
		metal, city, err := catalog.Resolve(f.Alert.Metal, f.Alert.City)
		if err != nil {
			log.Warn().Err(err).Msg("alert references unsupported pair")
			report.Failed++
			continue
		}
		text := AlertMessage(metal, city, f.Price, f.Alert.Threshold)
		if err := j.notifier.Send(ctx, f.Alert.ChatID, text); err != nil {
			log.Warn().Err(err).Msg("failed to send alert")
			report.Failed++
			continue
		}
		report.Sent++
		log.Info().Str("price", f.Price.String()).Str("threshold", f.Alert.Threshold.String()).Msg("alert fired")
	}
	return report, nil
}

func (j *Jobs) acquireLock(ctx context.Context, offset int64) (func(), bool, error) {
	if j.lockKey == 0 || j.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := j.locker.TryAdvisoryLock(ctx, j.lockKey+offset)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
