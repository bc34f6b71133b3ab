package service

import (
	"context"
	"time"

	"github.com/dimasromerop/portal-giav/db/models"
	"github.com/getsentry/sentry-go"
	"github.com/robfig/cron/v3"
)

const (
	staleAfter = 24 * time.Hour
	sweepLimit = 200
)

// ReconcileWorker polls the reconcile_jobs table on a cron schedule. Several
// workers may run side by side, claimed jobs are leased to one of them.
type ReconcileWorker struct {
	Service *PaymentService
}

func NewReconcileWorker(svc *PaymentService) *ReconcileWorker {
	return &ReconcileWorker{Service: svc}
}

// Start blocks until ctx is done and waits for running jobs to finish.
func (w *ReconcileWorker) Start(ctx context.Context) error {
	svc := w.Service
	c := cron.New(cron.WithChain(
		cron.Recover(cron.PrintfLogger(svc.Logger)),
		cron.SkipIfStillRunning(cron.PrintfLogger(svc.Logger)),
	))

	if _, err := c.AddFunc(svc.Config.Reconcile.PollSchedule, func() {
		if _, err := w.RunDue(ctx); err != nil && ctx.Err() == nil {
			svc.Logger.Errorf("reconcile worker: %v", err)
			sentry.CaptureException(err)
		}
	}); err != nil {
		return err
	}
	if _, err := c.AddFunc(svc.Config.Reconcile.SweepSchedule, func() {
		if _, err := w.Sweep(ctx); err != nil && ctx.Err() == nil {
			svc.Logger.Errorf("stale intent sweep: %v", err)
		}
	}); err != nil {
		return err
	}

	svc.Logger.Infof("Starting reconcile worker with schedule %q", svc.Config.Reconcile.PollSchedule)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	svc.Logger.Info("Reconcile worker stopped")
	return context.Canceled
}

// RunDue claims the due jobs and runs one reconciliation per job. It returns
// how many jobs it claimed.
func (w *ReconcileWorker) RunDue(ctx context.Context) (int, error) {
	svc := w.Service
	cfg := svc.Config.Reconcile
	jobs, err := svc.Store.ClaimDueReconcileJobs(ctx, svc.now(), cfg.BatchSize, seconds(cfg.JobLease))
	if err != nil {
		return 0, err
	}
	for _, job := range jobs {
		if ctx.Err() != nil {
			return len(jobs), ctx.Err()
		}
		result, err := svc.ReconcileIntent(ctx, job.IntentID)
		if err != nil {
			// the lease runs out and another run picks the job up
			svc.Logger.Errorf("reconcile: intent %d: %v", job.IntentID, err)
			sentry.CaptureException(err)
			continue
		}
		svc.Logger.Debugf("reconcile: intent %d attempt %d outcome %s", job.IntentID, result.Attempts, result.Outcome)
		if err := svc.Store.CompleteReconcileJob(ctx, job); err != nil {
			svc.Logger.Errorf("reconcile: completing job %d: %v", job.ID, err)
		}
	}
	return len(jobs), nil
}

// Drain runs due jobs until none is left.
func (w *ReconcileWorker) Drain(ctx context.Context) (int, error) {
	total := 0
	for {
		n, err := w.RunDue(ctx)
		total += n
		if err != nil || n == 0 {
			return total, err
		}
	}
}

// Sweep reports open intents that nobody is reconciling anymore and re-arms
// reconciled intents whose payment event never went out.
func (w *ReconcileWorker) Sweep(ctx context.Context) ([]models.PaymentIntent, error) {
	svc := w.Service
	stale, err := svc.Store.ListIntents(ctx, IntentFilter{
		NonTerminal:   true,
		WithoutJob:    true,
		UpdatedBefore: svc.now().Add(-staleAfter),
		Limit:         sweepLimit,
	})
	if err != nil {
		return nil, err
	}
	for _, intent := range stale {
		svc.Logger.Warnf("stale intent %d booking %d status %s order %s without reconcile job", intent.ID, intent.BookingID, intent.Status, intent.GatewayOrderID)
	}

	unsent, err := svc.Store.ListIntents(ctx, IntentFilter{
		Status:            models.IntentStatusReconciled,
		MailPaymentUnsent: true,
		WithoutJob:        true,
		Limit:             sweepLimit,
	})
	if err != nil {
		return stale, err
	}
	for _, intent := range unsent {
		svc.Logger.Warnf("reconciled intent %d never published its payment event, re-arming", intent.ID)
		if _, err := svc.Store.ScheduleReconcile(ctx, intent.ID, svc.now(), true); err != nil {
			return stale, err
		}
	}
	return stale, nil
}
