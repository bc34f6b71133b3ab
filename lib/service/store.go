package service

import (
	"context"
	"errors"
	"time"

	"github.com/dimasromerop/portal-giav/db/models"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var (
	ErrIntentNotFound        = errors.New("payment intent not found")
	ErrDuplicateToken        = errors.New("payment intent token already exists")
	ErrUserNotFound          = errors.New("portal user not found")
	ErrAlreadyCompleted      = errors.New("operation already completed")
	ErrIdempotencyInProgress = errors.New("operation in progress")
)

// IntentStore persists payment intents and everything hanging off them.
// Reads are never served from a replica or cache.
type IntentStore interface {
	CreateIntent(ctx context.Context, intent *models.PaymentIntent, events ...models.IntentEvent) error
	GetIntentByID(ctx context.Context, id int64) (*models.PaymentIntent, error)
	GetIntentByToken(ctx context.Context, token string) (*models.PaymentIntent, error)
	GetIntentByGatewayOrderID(ctx context.Context, orderID string) (*models.PaymentIntent, error)
	UpdateIntent(ctx context.Context, id int64, upd IntentUpdate) (*UpdateResult, error)
	ListIntents(ctx context.Context, filter IntentFilter) ([]models.PaymentIntent, error)
	ListIntentEvents(ctx context.Context, intentID int64) ([]models.IntentEvent, error)

	AcquireIdempotencyKey(ctx context.Context, intentID int64, operation string, lease time.Duration) (*models.IdempotencyKey, error)
	CompleteIdempotencyKey(ctx context.Context, key *models.IdempotencyKey, result string) error
	FailIdempotencyKey(ctx context.Context, key *models.IdempotencyKey, cause string) error

	ScheduleReconcile(ctx context.Context, intentID int64, runAt time.Time, once bool) (bool, error)
	ClaimDueReconcileJobs(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]models.ReconcileJob, error)
	CompleteReconcileJob(ctx context.Context, job models.ReconcileJob) error
	GetReconcileJob(ctx context.Context, intentID int64) (*models.ReconcileJob, error)

	GetPortalUser(ctx context.Context, id int64) (*models.PortalUser, error)
	UpsertPortalUser(ctx context.Context, user *models.PortalUser) error
}

// IntentUpdate is a partial update applied atomically to one intent. Zero
// values leave the matching column untouched.
type IntentUpdate struct {
	Status            models.IntentStatus
	GatewayOrderID    string
	ErpLedgerID       int64
	IncrementAttempts bool
	ResetAttempts     bool
	CheckedAt         time.Time

	// Claim* set the mail timestamp only when it is still null, Release*
	// clear it again after a failed publish.
	ClaimMailPayment     bool
	ClaimMailFullyPaid   bool
	ReleaseMailPayment   bool
	ReleaseMailFullyPaid bool

	Events []models.IntentEvent
}

type UpdateResult struct {
	Intent               *models.PaymentIntent
	PreviousStatus       models.IntentStatus
	StatusApplied        bool
	StatusRejected       bool
	MailPaymentClaimed   bool
	MailFullyPaidClaimed bool
	Events               []models.IntentEvent
}

type IntentFilter struct {
	Status            models.IntentStatus
	BookingID         int64
	NonTerminal       bool
	UpdatedBefore     time.Time
	WithoutJob        bool
	MailPaymentUnsent bool
	Limit             int
}

// ApplyIntentUpdate mutates intent according to upd. The status only moves
// when CanTransition allows it; a refused move is recorded as an event
// instead of failing the whole update.
func ApplyIntentUpdate(intent *models.PaymentIntent, upd IntentUpdate, now time.Time) UpdateResult {
	res := UpdateResult{Intent: intent, PreviousStatus: intent.Status}

	if upd.Status != "" && upd.Status != intent.Status {
		if CanTransition(intent.Status, upd.Status) {
			intent.Status = upd.Status
			res.StatusApplied = true
		} else {
			res.StatusRejected = true
		}
	}
	if upd.GatewayOrderID != "" && intent.GatewayOrderID == "" {
		intent.GatewayOrderID = upd.GatewayOrderID
	}
	if upd.ErpLedgerID > 0 && intent.ErpLedgerID == 0 {
		intent.ErpLedgerID = upd.ErpLedgerID
	}
	if upd.ResetAttempts {
		intent.Attempts = 0
	}
	if upd.IncrementAttempts {
		intent.Attempts++
	}
	if !upd.CheckedAt.IsZero() {
		intent.LastCheckedAt = bun.NullTime{Time: upd.CheckedAt}
	}

	if upd.ClaimMailPayment && intent.MailPaymentSentAt.IsZero() {
		intent.MailPaymentSentAt = bun.NullTime{Time: now}
		res.MailPaymentClaimed = true
	}
	if upd.ClaimMailFullyPaid && intent.MailFullyPaidSentAt.IsZero() {
		intent.MailFullyPaidSentAt = bun.NullTime{Time: now}
		res.MailFullyPaidClaimed = true
	}
	if upd.ReleaseMailPayment {
		intent.MailPaymentSentAt = bun.NullTime{}
	}
	if upd.ReleaseMailFullyPaid {
		intent.MailFullyPaidSentAt = bun.NullTime{}
	}
	intent.UpdatedAt = bun.NullTime{Time: now}

	events := make([]models.IntentEvent, 0, len(upd.Events)+1)
	for _, ev := range upd.Events {
		if res.StatusApplied && ev.StatusTo == "" {
			ev.StatusFrom = res.PreviousStatus
			ev.StatusTo = intent.Status
		}
		events = append(events, ev)
	}
	if res.StatusRejected {
		events = append(events, models.IntentEvent{
			Kind:       models.IntentEventStatusTransitionRejected,
			StatusFrom: intent.Status,
			StatusTo:   upd.Status,
			Data: map[string]interface{}{
				"from": string(intent.Status),
				"to":   string(upd.Status),
			},
		})
	}
	for i := range events {
		events[i].IntentID = intent.ID
		if events[i].UUID == uuid.Nil {
			events[i].UUID = uuid.New()
		}
		if events[i].CreatedAt.IsZero() {
			events[i].CreatedAt = now
		}
	}
	res.Events = events
	return res
}
