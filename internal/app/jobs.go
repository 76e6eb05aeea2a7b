package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"metalbot/internal/alerting"
	"metalbot/internal/service"
)

// CheckAlerts runs the alert check once, printing messages instead of sending on dry runs.
func (a *App) CheckAlerts(ctx context.Context, out io.Writer, opts JobOptions) error {
	return a.runJobOnce(ctx, out, opts, "alert check", (*service.Jobs).RunAlerts)
}

// PushDaily runs the daily subscription push once.
func (a *App) PushDaily(ctx context.Context, out io.Writer, opts JobOptions) error {
	return a.runJobOnce(ctx, out, opts, "daily push", (*service.Jobs).RunDaily)
}

type jobRun func(*service.Jobs, context.Context, time.Time) (service.JobReport, error)

func (a *App) runJobOnce(ctx context.Context, out io.Writer, opts JobOptions, name string, run jobRun) error {
	var notifier alerting.Notifier
	if opts.DryRun {
		notifier = alerting.NewLogNotifier(out, a.Logger)
	} else {
		if err := a.Config.RequireTelegram(); err != nil {
			return fmt.Errorf("%s needs telegram (use --dry-run to print instead): %w", name, err)
		}
		notifier = a.newTelegram()
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	c, err := a.newCore()
	if err != nil {
		return err
	}

	report, err := run(a.newJobs(c, store, notifier), ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if report.Skipped {
		fmt.Fprintf(out, "%s skipped: another instance holds the lock\n", name)
		return nil
	}
	fmt.Fprintf(out, "%s: considered=%d sent=%d failed=%d\n", name, report.Considered, report.Sent, report.Failed)
	return nil
}
