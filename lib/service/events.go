package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dimasromerop/portal-giav/db/models"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/ziflex/lecho/v3"
)

type PaymentEventType string

const (
	EventPaymentConfirmed PaymentEventType = "payment_confirmed"
	EventBookingFullyPaid PaymentEventType = "booking_fully_paid"
)

// PaymentEvent is what the mailer receives.
type PaymentEvent struct {
	ID         uuid.UUID        `json:"id"`
	Type       PaymentEventType `json:"type"`
	IntentID   int64            `json:"intent_id"`
	Token      string           `json:"token"`
	BookingID  int64            `json:"booking_id"`
	CustomerID int64            `json:"customer_id"`
	UserID     int64            `json:"user_id"`
	Amount     int64            `json:"amount"`
	Currency   string           `json:"currency"`
	OrderID    string           `json:"order_id,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

func NewPaymentEvent(eventType PaymentEventType, intent *models.PaymentIntent, at time.Time) PaymentEvent {
	return PaymentEvent{
		ID:         uuid.New(),
		Type:       eventType,
		IntentID:   intent.ID,
		Token:      intent.Token,
		BookingID:  intent.BookingID,
		CustomerID: intent.CustomerID,
		UserID:     intent.UserID,
		Amount:     intent.Amount,
		Currency:   intent.Currency,
		OrderID:    intent.GatewayOrderID,
		OccurredAt: at,
	}
}

type EventPublisher interface {
	PublishPaymentEvent(ctx context.Context, event PaymentEvent) error
}

// LogPublisher only logs, it is used when no broker or webhook is configured.
type LogPublisher struct {
	Logger *lecho.Logger
}

func (p *LogPublisher) PublishPaymentEvent(ctx context.Context, event PaymentEvent) error {
	p.Logger.Infof("payment event %s for intent %d booking %d amount %d", event.Type, event.IntentID, event.BookingID, event.Amount)
	return nil
}

// MultiPublisher delivers to every publisher and fails if any of them
// failed.
type MultiPublisher []EventPublisher

func (m MultiPublisher) PublishPaymentEvent(ctx context.Context, event PaymentEvent) error {
	var firstErr error
	for _, p := range m {
		if err := p.PublishPaymentEvent(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// WebhookPublisher posts events as JSON to the mailer.
type WebhookPublisher struct {
	URL    string
	Client *http.Client
	Logger *lecho.Logger
}

func NewWebhookPublisher(url string, logger *lecho.Logger) *WebhookPublisher {
	return &WebhookPublisher{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
		Logger: logger,
	}
}

func (p *WebhookPublisher) PublishPaymentEvent(ctx context.Context, event PaymentEvent) error {
	payload := new(bytes.Buffer)
	if err := json.NewEncoder(payload).Encode(event); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", string(event.Type))
	req.Header.Set("X-Event-Id", event.ID.String())

	resp, err := p.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err != nil {
			p.Logger.Error(err)
		}
		return fmt.Errorf("webhook status code was %d, body: %s", resp.StatusCode, msg)
	}
	p.Logger.Debugf("event %s for intent %d delivered to webhook", event.Type, event.IntentID)
	return nil
}

// fireEvent claims the once-only mail timestamp matching eventType and
// publishes. A failed publish releases the claim so a later run retries.
func (svc *PaymentService) fireEvent(ctx context.Context, intentID int64, eventType PaymentEventType) (bool, error) {
	claim := IntentUpdate{}
	release := IntentUpdate{}
	switch eventType {
	case EventPaymentConfirmed:
		claim.ClaimMailPayment = true
		release.ReleaseMailPayment = true
	case EventBookingFullyPaid:
		claim.ClaimMailFullyPaid = true
		release.ReleaseMailFullyPaid = true
	default:
		return false, fmt.Errorf("unknown payment event type %q", eventType)
	}

	res, err := svc.Store.UpdateIntent(ctx, intentID, claim)
	if err != nil {
		return false, err
	}
	if !res.MailPaymentClaimed && !res.MailFullyPaidClaimed {
		return false, nil
	}

	event := NewPaymentEvent(eventType, res.Intent, svc.now())
	if err := svc.Events.PublishPaymentEvent(ctx, event); err != nil {
		svc.Logger.Errorf("publishing %s for intent %d failed: %v", eventType, intentID, err)
		sentry.CaptureException(err)
		eventsPublished.WithLabelValues(string(eventType), "error").Inc()
		if _, relErr := svc.Store.UpdateIntent(ctx, intentID, release); relErr != nil {
			svc.Logger.Errorf("releasing %s claim for intent %d failed: %v", eventType, intentID, relErr)
		}
		return false, err
	}

	eventsPublished.WithLabelValues(string(eventType), "ok").Inc()
	_, err = svc.Store.UpdateIntent(ctx, intentID, IntentUpdate{
		Events: []models.IntentEvent{models.NewIntentEvent(models.IntentEventPublished, map[string]interface{}{
			"type":     string(eventType),
			"event_id": event.ID.String(),
		})},
	})
	if err != nil {
		svc.Logger.Errorf("recording %s for intent %d failed: %v", eventType, intentID, err)
	}
	return true, nil
}
