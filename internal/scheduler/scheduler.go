package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc is invoked on every scheduled run.
type TickFunc func(ctx context.Context, tick time.Time) error

// Options tune interval scheduling.
type Options struct {
	Name         string
	Interval     time.Duration
	AlignToStart bool
	StartupDelay time.Duration
}

// Scheduler runs a job at a fixed interval, the first run after StartupDelay.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Str("job", opts.Name).Logger()}
}

// Run blocks until ctx is cancelled. Tick errors are logged and never stop the loop.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	var next time.Time
	if s.opts.StartupDelay > 0 {
		next = time.Now().UTC().Add(s.opts.StartupDelay)
	} else {
		next = s.nextTick(time.Now().UTC())
	}

	for {
		delay := time.Until(next)
		if delay < 0 {
			// a tick overran one or more intervals; skip them instead of bursting
			next = s.nextTick(time.Now().UTC())
			delay = time.Until(next)
		}
		s.logger.Debug().Time("next_run", next).Msg("waiting for next run")

		if err := sleep(ctx, delay); err != nil {
			return err
		}

		at := s.bucketStart(next)
		s.logger.Info().Time("tick", at).Msg("executing scheduled tick")
		if err := tick(ctx, at); err != nil {
			s.logger.Error().Err(err).Time("tick", at).Msg("tick execution failed")
		}

		next = next.Add(s.opts.Interval)
	}
}

func (s *Scheduler) nextTick(now time.Time) time.Time {
	if !s.opts.AlignToStart {
		return now.Add(s.opts.Interval)
	}
	bucket := now.Truncate(s.opts.Interval)
	if !bucket.After(now) {
		bucket = bucket.Add(s.opts.Interval)
	}
	return bucket
}

func (s *Scheduler) bucketStart(t time.Time) time.Time {
	if !s.opts.AlignToStart {
		return t
	}
	return t.Truncate(s.opts.Interval)
}

// Daily runs a job once a day at a wall-clock time in a given location.
type Daily struct {
	name   string
	hour   int
	minute int
	loc    *time.Location
	logger zerolog.Logger
}

// NewDaily constructs a daily runner; loc nil means UTC.
func NewDaily(name string, hour, minute int, loc *time.Location, logger zerolog.Logger) *Daily {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		panic("daily schedule time out of range")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Daily{
		name:   name,
		hour:   hour,
		minute: minute,
		loc:    loc,
		logger: logger.With().Str("component", "scheduler").Str("job", name).Logger(),
	}
}

// Run blocks until ctx is cancelled, invoking tick once per day.
func (d *Daily) Run(ctx context.Context, tick TickFunc) error {
	for {
		next := d.next(time.Now())
		d.logger.Info().Time("next_run", next).Msg("daily job scheduled")

		if err := sleep(ctx, time.Until(next)); err != nil {
			return err
		}

		if err := tick(ctx, next); err != nil {
			d.logger.Error().Err(err).Time("tick", next).Msg("daily job failed")
		}
	}
}

// next returns the first scheduled instant strictly after now.
func (d *Daily) next(now time.Time) time.Time {
	local := now.In(d.loc)
	candidate := time.Date(local.Year(), local.Month(), local.Day(), d.hour, d.minute, 0, 0, d.loc)
	if !candidate.After(local) {
		candidate = time.Date(local.Year(), local.Month(), local.Day()+1, d.hour, d.minute, 0, 0, d.loc)
	}
	return candidate
}

func sleep(ctx context.Context, d time.Duration) error {
	if d < 0 {
		d = 0
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
