package models

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

type IntentStatus string

const (
	IntentStatusCreated        IntentStatus = "created"
	IntentStatusRedirecting    IntentStatus = "redirecting"
	IntentStatusReturnedOK     IntentStatus = "returned_ok"
	IntentStatusReturnedKO     IntentStatus = "returned_ko"
	IntentStatusNotifiedOK     IntentStatus = "notified_ok"
	IntentStatusNotifiedKO     IntentStatus = "notified_ko"
	IntentStatusNotifiedBadSig IntentStatus = "notified_bad_sig"
	IntentStatusReconciled     IntentStatus = "reconciled"
	IntentStatusFailed         IntentStatus = "failed"
)

var IntentStatuses = []IntentStatus{
	IntentStatusCreated,
	IntentStatusRedirecting,
	IntentStatusReturnedOK,
	IntentStatusReturnedKO,
	IntentStatusNotifiedOK,
	IntentStatusNotifiedKO,
	IntentStatusNotifiedBadSig,
	IntentStatusReconciled,
	IntentStatusFailed,
}

func (s IntentStatus) Valid() bool {
	for _, known := range IntentStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s IntentStatus) IsTerminal() bool {
	return s == IntentStatusReconciled || s == IntentStatusFailed
}

type PaymentMode string

const (
	PaymentModeFull    PaymentMode = "full"
	PaymentModeDeposit PaymentMode = "deposit"
)

// PaymentIntent : one payment attempt against a booking. Amount is in cents
// and never changes after insert.
type PaymentIntent struct {
	ID                  int64        `json:"id" bun:",pk,autoincrement"`
	Token               string       `json:"token" bun:",unique,notnull"`
	UserID              int64        `json:"user_id" bun:",notnull"`
	CustomerID          int64        `json:"customer_id" bun:",notnull"`
	BookingID           int64        `json:"booking_id" bun:",notnull"`
	Amount              int64        `json:"amount" bun:",notnull" validate:"gt=0"`
	PendingBefore       int64        `json:"pending_before" bun:",notnull,default:0"`
	Currency            string       `json:"currency" bun:",notnull,default:'EUR'"`
	Mode                PaymentMode  `json:"mode" bun:",notnull,default:'full'"`
	Status              IntentStatus `json:"status" bun:",notnull,default:'created'"`
	GatewayOrderID      string       `json:"gateway_order_id,omitempty" bun:",unique,nullzero"`
	ErpLedgerID         int64        `json:"erp_ledger_id,omitempty" bun:",nullzero"`
	Attempts            int          `json:"attempts" bun:",notnull,default:0"`
	LastCheckedAt       bun.NullTime `json:"last_checked_at"`
	MailPaymentSentAt   bun.NullTime `json:"mail_payment_sent_at"`
	MailFullyPaidSentAt bun.NullTime `json:"mail_fully_paid_sent_at"`
	CreatedAt           time.Time    `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt           bun.NullTime `json:"updated_at"`
}

func (i *PaymentIntent) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		i.UpdatedAt = bun.NullTime{Time: time.Now()}
	}
	return nil
}

// Bridged reports whether the payment already landed in the ERP ledger.
func (i *PaymentIntent) Bridged() bool {
	return i.ErpLedgerID > 0
}

var _ bun.BeforeAppendModelHook = (*PaymentIntent)(nil)
