package models

import (
	"time"

	"github.com/google/uuid"
)

type IntentEventKind string

const (
	IntentEventCreated                  IntentEventKind = "created"
	IntentEventRedirectPrepared         IntentEventKind = "redirect_prepared"
	IntentEventReturnReceived           IntentEventKind = "return_received"
	IntentEventReturnDegraded           IntentEventKind = "return_degraded"
	IntentEventNotifyReceived           IntentEventKind = "notify_received"
	IntentEventSignatureFallbackUsed    IntentEventKind = "signature_fallback_used"
	IntentEventErpBridgeSucceeded       IntentEventKind = "erp_bridge_succeeded"
	IntentEventErpBridgeFailed          IntentEventKind = "erp_bridge_failed"
	IntentEventReconcileChecked         IntentEventKind = "reconcile_checked"
	IntentEventReconcileErpError        IntentEventKind = "reconcile_erp_error"
	IntentEventReconciled               IntentEventKind = "reconciled"
	IntentEventReconcileExhausted       IntentEventKind = "reconcile_exhausted"
	IntentEventPublished                IntentEventKind = "event_published"
	IntentEventStatusTransitionRejected IntentEventKind = "status_transition_rejected"
)

// IntentEvent : append-only audit entry for a payment intent. Rows are
// inserted and never updated.
type IntentEvent struct {
	ID         int64                  `json:"id" bun:",pk,autoincrement"`
	UUID       uuid.UUID              `json:"uuid" bun:"type:uuid,notnull,unique"`
	IntentID   int64                  `json:"intent_id" bun:",notnull"`
	Intent     *PaymentIntent         `json:"-" bun:"rel:belongs-to,join:intent_id=id"`
	Kind       IntentEventKind        `json:"kind" bun:",notnull"`
	StatusFrom IntentStatus           `json:"status_from,omitempty" bun:",nullzero"`
	StatusTo   IntentStatus           `json:"status_to,omitempty" bun:",nullzero"`
	Data       map[string]interface{} `json:"data,omitempty" bun:"type:jsonb"`
	CreatedAt  time.Time              `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
}

func NewIntentEvent(kind IntentEventKind, data map[string]interface{}) IntentEvent {
	return IntentEvent{
		UUID:      uuid.New(),
		Kind:      kind,
		Data:      data,
		CreatedAt: time.Now(),
	}
}

// FoldAudit flattens the event log into one document, later events
// overriding earlier keys under the same kind.
func FoldAudit(events []IntentEvent) map[string]interface{} {
	audit := map[string]interface{}{}
	for _, ev := range events {
		section, ok := audit[string(ev.Kind)].(map[string]interface{})
		if !ok {
			section = map[string]interface{}{}
		}
		for k, v := range ev.Data {
			section[k] = v
		}
		section["at"] = ev.CreatedAt.UTC().Format(time.RFC3339)
		if ev.StatusTo != "" {
			section["status"] = string(ev.StatusTo)
		}
		audit[string(ev.Kind)] = section
	}
	return audit
}
