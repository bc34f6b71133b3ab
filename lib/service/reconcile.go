package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dimasromerop/portal-giav/db/models"
	"github.com/getsentry/sentry-go"
)

var ErrIntentTerminal = errors.New("payment intent is already final")

type ReconcileOutcome string

const (
	ReconcileSkipped     ReconcileOutcome = "skipped"
	ReconcileExhausted   ReconcileOutcome = "exhausted"
	ReconcileErpError    ReconcileOutcome = "erp_error"
	ReconcileReconciled  ReconcileOutcome = "reconciled"
	ReconcilePending     ReconcileOutcome = "pending"
	ReconcileRedelivered ReconcileOutcome = "redelivered"
)

type ReconcileResult struct {
	Outcome   ReconcileOutcome
	Attempts  int
	Pending   int64
	NextRunAt time.Time
}

// NextDelay is the wait before the next reconciliation run. Once the payment
// is in the ERP the first runs poll fast, after that the delay grows with
// every attempt up to MaxDelay.
func (c ReconcileConfig) NextDelay(attempts int, bridged bool) time.Duration {
	if bridged && attempts >= 1 && attempts <= len(c.FastDelays) {
		return c.FastDelays[attempts-1]
	}
	delay := seconds(c.BaseDelay + attempts*c.DelayStep)
	if limit := seconds(c.MaxDelay); delay > limit {
		return limit
	}
	return delay
}

// ReconcileIntent runs one reconciliation attempt. It re-arms the intent's
// job itself whenever another run is needed; the caller only drops the job
// it claimed.
func (svc *PaymentService) ReconcileIntent(ctx context.Context, intentID int64) (*ReconcileResult, error) {
	intent, err := svc.Store.GetIntentByID(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if intent.Status.IsTerminal() {
		return svc.redeliver(ctx, intent)
	}

	now := svc.now()
	res, err := svc.Store.UpdateIntent(ctx, intentID, IntentUpdate{IncrementAttempts: true, CheckedAt: now})
	if err != nil {
		return nil, err
	}
	intent = res.Intent
	result := &ReconcileResult{Attempts: intent.Attempts}
	if intent.Status.IsTerminal() {
		result.Outcome = ReconcileSkipped
		reconcileRuns.WithLabelValues(string(result.Outcome)).Inc()
		return result, nil
	}

	if intent.Attempts > svc.Config.Reconcile.MaxAttempts {
		return svc.exhaust(ctx, intent, result)
	}

	pending, err := svc.Erp.GetPendingBalance(ctx, intent.BookingID, intent.CustomerID)
	if err != nil {
		svc.Logger.Warnf("reconcile: GIAV balance of booking %d (intent %d, attempt %d) unavailable: %v", intent.BookingID, intent.ID, intent.Attempts, err)
		result.Outcome = ReconcileErpError
		return svc.rearm(ctx, intent, result, models.NewIntentEvent(models.IntentEventReconcileErpError, map[string]interface{}{
			"attempts": intent.Attempts,
			"error":    err.Error(),
		}))
	}
	result.Pending = pending

	fullyPaid := pending <= Epsilon
	// a deposit is confirmed once the pending balance dropped by its amount
	partialLanded := !fullyPaid && intent.PendingBefore > 0 && confirmedByGateway(intent) &&
		pending <= intent.PendingBefore-intent.Amount+Epsilon
	if !fullyPaid && !partialLanded {
		result.Outcome = ReconcilePending
		return svc.rearm(ctx, intent, result, models.NewIntentEvent(models.IntentEventReconcileChecked, map[string]interface{}{
			"attempts": intent.Attempts,
			"pending":  pending,
		}))
	}

	res, err = svc.Store.UpdateIntent(ctx, intent.ID, IntentUpdate{
		Status: models.IntentStatusReconciled,
		Events: []models.IntentEvent{models.NewIntentEvent(models.IntentEventReconciled, map[string]interface{}{
			"attempts":   intent.Attempts,
			"pending":    pending,
			"fully_paid": fullyPaid,
		})},
	})
	if err != nil {
		return nil, err
	}
	if !res.StatusApplied && res.Intent.Status != models.IntentStatusReconciled {
		result.Outcome = ReconcileSkipped
		reconcileRuns.WithLabelValues(string(result.Outcome)).Inc()
		return result, nil
	}
	result.Outcome = ReconcileReconciled
	reconcileRuns.WithLabelValues(string(result.Outcome)).Inc()
	svc.Logger.Infof("reconcile: intent %d reconciled after %d attempts, booking %d pending %d", intent.ID, intent.Attempts, intent.BookingID, pending)

	if err := svc.deliverEvents(ctx, intent, fullyPaid, result); err != nil {
		return nil, err
	}
	return result, nil
}

// deliverEvents fires the events a reconciled intent owes the mailer. While
// publishing fails the job stays armed, the next run sends what is missing.
func (svc *PaymentService) deliverEvents(ctx context.Context, intent *models.PaymentIntent, fullyPaid bool, result *ReconcileResult) error {
	failed := false
	if _, err := svc.fireEvent(ctx, intent.ID, EventPaymentConfirmed); err != nil {
		svc.Logger.Errorf("reconcile: payment confirmed event of intent %d failed: %v", intent.ID, err)
		failed = true
	}
	if fullyPaid {
		if _, err := svc.fireEvent(ctx, intent.ID, EventBookingFullyPaid); err != nil {
			svc.Logger.Errorf("reconcile: booking fully paid event of intent %d failed: %v", intent.ID, err)
			failed = true
		}
	}
	if !failed {
		return nil
	}
	result.NextRunAt = svc.now().Add(svc.Config.Reconcile.NextDelay(intent.Attempts, false))
	_, err := svc.Store.ScheduleReconcile(ctx, intent.ID, result.NextRunAt, false)
	return err
}

// redeliver handles a run on a final intent: a reconciled intent gets the
// events it still owes, a failed one is left alone.
func (svc *PaymentService) redeliver(ctx context.Context, intent *models.PaymentIntent) (*ReconcileResult, error) {
	result := &ReconcileResult{Outcome: ReconcileSkipped, Attempts: intent.Attempts}
	if intent.Status == models.IntentStatusReconciled {
		fullyPaid, err := svc.reconciledFullyPaid(ctx, intent.ID)
		if err != nil {
			return nil, err
		}
		if intent.MailPaymentSentAt.IsZero() || (fullyPaid && intent.MailFullyPaidSentAt.IsZero()) {
			result.Outcome = ReconcileRedelivered
			if err := svc.deliverEvents(ctx, intent, fullyPaid, result); err != nil {
				return nil, err
			}
		}
	}
	reconcileRuns.WithLabelValues(string(result.Outcome)).Inc()
	return result, nil
}

// reconciledFullyPaid reads from the event log whether the booking was fully
// paid when the intent got reconciled.
func (svc *PaymentService) reconciledFullyPaid(ctx context.Context, intentID int64) (bool, error) {
	events, err := svc.Store.ListIntentEvents(ctx, intentID)
	if err != nil {
		return false, err
	}
	fullyPaid := false
	for _, ev := range events {
		if ev.Kind == models.IntentEventReconciled {
			fullyPaid, _ = ev.Data["fully_paid"].(bool)
		}
	}
	return fullyPaid, nil
}

func (svc *PaymentService) exhaust(ctx context.Context, intent *models.PaymentIntent, result *ReconcileResult) (*ReconcileResult, error) {
	_, err := svc.Store.UpdateIntent(ctx, intent.ID, IntentUpdate{
		Status: models.IntentStatusFailed,
		Events: []models.IntentEvent{models.NewIntentEvent(models.IntentEventReconcileExhausted, map[string]interface{}{
			"reason":   "max_attempts",
			"attempts": intent.Attempts,
		})},
	})
	if err != nil {
		return nil, err
	}
	result.Outcome = ReconcileExhausted
	reconcileRuns.WithLabelValues(string(result.Outcome)).Inc()
	svc.Logger.Errorf("reconcile: intent %d (booking %d, order %s) failed after %d attempts", intent.ID, intent.BookingID, intent.GatewayOrderID, intent.Attempts)
	sentry.CaptureMessage(fmt.Sprintf("payment intent %d could not be reconciled after %d attempts", intent.ID, intent.Attempts))
	return result, nil
}

func (svc *PaymentService) rearm(ctx context.Context, intent *models.PaymentIntent, result *ReconcileResult, event models.IntentEvent) (*ReconcileResult, error) {
	if _, err := svc.Store.UpdateIntent(ctx, intent.ID, IntentUpdate{Events: []models.IntentEvent{event}}); err != nil {
		return nil, err
	}
	result.NextRunAt = svc.now().Add(svc.Config.Reconcile.NextDelay(intent.Attempts, intent.Bridged()))
	if _, err := svc.Store.ScheduleReconcile(ctx, intent.ID, result.NextRunAt, false); err != nil {
		return nil, err
	}
	reconcileRuns.WithLabelValues(string(result.Outcome)).Inc()
	return result, nil
}

// RearmReconcile restarts reconciliation of a stuck intent from attempt
// zero. Final intents are left alone.
func (svc *PaymentService) RearmReconcile(ctx context.Context, intentID int64) (*models.PaymentIntent, time.Time, error) {
	intent, err := svc.Store.GetIntentByID(ctx, intentID)
	if err != nil {
		return nil, time.Time{}, err
	}
	if intent.Status.IsTerminal() {
		return intent, time.Time{}, fmt.Errorf("%w: intent %d is %s", ErrIntentTerminal, intent.ID, intent.Status)
	}
	res, err := svc.Store.UpdateIntent(ctx, intentID, IntentUpdate{
		ResetAttempts: true,
		Events: []models.IntentEvent{models.NewIntentEvent(models.IntentEventReconcileChecked, map[string]interface{}{
			"rearmed":           true,
			"previous_attempts": intent.Attempts,
		})},
	})
	if err != nil {
		return nil, time.Time{}, err
	}
	runAt := svc.now().Add(seconds(svc.Config.Reconcile.InitialDelay))
	if _, err := svc.Store.ScheduleReconcile(ctx, intentID, runAt, false); err != nil {
		return nil, time.Time{}, err
	}
	return res.Intent, runAt, nil
}

func confirmedByGateway(intent *models.PaymentIntent) bool {
	return intent.Bridged() ||
		intent.Status == models.IntentStatusNotifiedOK ||
		intent.Status == models.IntentStatusReturnedOK
}
