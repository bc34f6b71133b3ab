package service

import (
	"context"

	"github.com/dimasromerop/portal-giav/db/models"
)

type IntentDetail struct {
	Intent *models.PaymentIntent  `json:"intent"`
	Events []models.IntentEvent   `json:"events"`
	Audit  map[string]interface{} `json:"audit"`
	Job    *models.ReconcileJob   `json:"reconcile_job,omitempty"`
}

func (svc *PaymentService) ListIntents(ctx context.Context, filter IntentFilter) ([]models.PaymentIntent, error) {
	return svc.Store.ListIntents(ctx, filter)
}

// IntentDetail returns an intent with its event log, the folded audit view
// and the pending reconcile job if there is one.
func (svc *PaymentService) IntentDetail(ctx context.Context, id int64) (*IntentDetail, error) {
	intent, err := svc.Store.GetIntentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	events, err := svc.Store.ListIntentEvents(ctx, id)
	if err != nil {
		return nil, err
	}
	job, err := svc.Store.GetReconcileJob(ctx, id)
	if err != nil {
		return nil, err
	}
	return &IntentDetail{
		Intent: intent,
		Events: events,
		Audit:  models.FoldAudit(events),
		Job:    job,
	}, nil
}

func (svc *PaymentService) LinkPortalUser(ctx context.Context, user *models.PortalUser) error {
	return svc.Store.UpsertPortalUser(ctx, user)
}
