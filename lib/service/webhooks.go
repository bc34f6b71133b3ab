package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/dimasromerop/portal-giav/db/models"
	"github.com/dimasromerop/portal-giav/giav"
	"github.com/dimasromerop/portal-giav/lib/redsys"
	"github.com/getsentry/sentry-go"
)

var ErrMalformedNotification = errors.New("malformed gateway notification")

const (
	ReturnStatusChecking = "checking"
	ReturnStatusKO       = "ko"

	bridgeLease = 2 * time.Minute
)

// CallbackParams are the three fields every gateway callback carries.
type CallbackParams struct {
	SignatureVersion   string `json:"Ds_SignatureVersion" form:"Ds_SignatureVersion" query:"Ds_SignatureVersion"`
	MerchantParameters string `json:"Ds_MerchantParameters" form:"Ds_MerchantParameters" query:"Ds_MerchantParameters"`
	Signature          string `json:"Ds_Signature" form:"Ds_Signature" query:"Ds_Signature"`
}

func (p CallbackParams) complete() bool {
	return p.MerchantParameters != "" && p.Signature != ""
}

type ReturnInput struct {
	CallbackParams
	// Token and Result come from the URLOK/URLKO query string and are only
	// used when the gateway drops the signed parameters.
	Token  string
	Result string
}

type ReturnOutcome struct {
	IntentID  int64
	BookingID int64
	Status    string
}

type NotifyOutcome struct {
	IntentID int64
	Status   models.IntentStatus
	// Processed is false when the intent was already terminal.
	Processed bool
	Bridged   bool
}

// ReturnRedirectURL is the portal page the browser lands on after the
// gateway.
func (svc *PaymentService) ReturnRedirectURL(outcome ReturnOutcome) string {
	return svc.portalURL(outcome.BookingID, outcome.Status)
}

// BookingViewURL is the portal page of one booking.
func (svc *PaymentService) BookingViewURL(bookingID int64) string {
	return svc.portalURL(bookingID, "")
}

func (svc *PaymentService) portalURL(bookingID int64, payStatus string) string {
	query := url.Values{}
	query.Set("view", "expedientes")
	if bookingID > 0 {
		query.Set("expediente", strconv.FormatInt(bookingID, 10))
	}
	if payStatus != "" {
		query.Set("pay_status", payStatus)
	}
	return svc.Config.PortalBaseUrl + "?" + query.Encode()
}

// HandleReturn processes the browser coming back from the gateway. It never
// fails: every problem ends in a "ko" outcome and a log line.
func (svc *PaymentService) HandleReturn(ctx context.Context, in ReturnInput) ReturnOutcome {
	if !in.complete() {
		return svc.degradedReturn(ctx, in)
	}

	resp := redsys.Response(redsys.DecodeParams(in.MerchantParameters))
	intent, err := svc.locateIntent(ctx, resp, in.Token)
	if err != nil {
		svc.Logger.Warnf("return: no intent for order %q token %q: %v", resp.Order(), resp.MerchantData(), err)
		callbacksReceived.WithLabelValues("return", "unknown_intent").Inc()
		return ReturnOutcome{Status: ReturnStatusKO}
	}

	outcome := ReturnOutcome{IntentID: intent.ID, BookingID: intent.BookingID, Status: ReturnStatusChecking}
	if intent.Status.IsTerminal() {
		callbacksReceived.WithLabelValues("return", "terminal").Inc()
		if intent.Status == models.IntentStatusFailed {
			outcome.Status = ReturnStatusKO
		}
		return outcome
	}

	valid, fallback := svc.verifyWithFallback(in.CallbackParams, resp, intent)
	authorised := valid && resp.IsAuthorised()

	status := models.IntentStatusReturnedKO
	if authorised {
		status = models.IntentStatusReturnedOK
	}
	events := []models.IntentEvent{models.NewIntentEvent(models.IntentEventReturnReceived, callbackData(resp, valid, authorised))}
	if fallback {
		events = append(events, fallbackEvent(resp, intent))
	}
	res, err := svc.Store.UpdateIntent(ctx, intent.ID, IntentUpdate{Status: status, Events: events})
	if err != nil {
		svc.Logger.Errorf("return: updating intent %d failed: %v", intent.ID, err)
		sentry.CaptureException(err)
	} else {
		intent = res.Intent
	}

	if authorised {
		svc.scheduleOnce(ctx, intent.ID)
	}
	switch {
	case authorised:
	case intent.Status == models.IntentStatusNotifiedOK || intent.Status == models.IntentStatusReconciled:
		// the notify already confirmed the payment
	default:
		outcome.Status = ReturnStatusKO
	}
	callbacksReceived.WithLabelValues("return", outcome.Status).Inc()
	return outcome
}

// degradedReturn handles a return without signed parameters. The intent is
// found by the token in the query string and nothing about it is trusted
// except that the user came back.
func (svc *PaymentService) degradedReturn(ctx context.Context, in ReturnInput) ReturnOutcome {
	callbacksReceived.WithLabelValues("return", "degraded").Inc()
	intent, err := svc.Store.GetIntentByToken(ctx, in.Token)
	if err != nil {
		svc.Logger.Warnf("return: degraded return without usable token %q: %v", in.Token, err)
		return ReturnOutcome{Status: ReturnStatusKO}
	}
	svc.Logger.Warnf("return: intent %d came back without gateway parameters (result=%q)", intent.ID, in.Result)

	outcome := ReturnOutcome{IntentID: intent.ID, BookingID: intent.BookingID, Status: ReturnStatusChecking}
	if in.Result == ReturnStatusKO {
		outcome.Status = ReturnStatusKO
	}
	if intent.Status.IsTerminal() {
		return outcome
	}

	_, err = svc.Store.UpdateIntent(ctx, intent.ID, IntentUpdate{
		Events: []models.IntentEvent{models.NewIntentEvent(models.IntentEventReturnDegraded, map[string]interface{}{
			"result": in.Result,
			"reason": "missing_params",
		})},
	})
	if err != nil {
		svc.Logger.Errorf("return: recording degraded return of intent %d failed: %v", intent.ID, err)
	}
	if outcome.Status != ReturnStatusKO {
		svc.scheduleOnce(ctx, intent.ID)
	}
	return outcome
}

// HandleNotify processes the server to server notification. Only a
// structurally unusable request or an unknown intent is an error; every
// business outcome is acknowledged.
func (svc *PaymentService) HandleNotify(ctx context.Context, params CallbackParams) (*NotifyOutcome, error) {
	if !params.complete() {
		callbacksReceived.WithLabelValues("notify", "malformed").Inc()
		return nil, ErrMalformedNotification
	}
	resp := redsys.Response(redsys.DecodeParams(params.MerchantParameters))
	if len(resp) == 0 {
		callbacksReceived.WithLabelValues("notify", "malformed").Inc()
		return nil, fmt.Errorf("%w: undecodable parameters", ErrMalformedNotification)
	}

	intent, err := svc.locateIntent(ctx, resp, "")
	if err != nil {
		callbacksReceived.WithLabelValues("notify", "unknown_intent").Inc()
		svc.Logger.Warnf("notify: no intent for order %q token %q: %v", resp.Order(), resp.MerchantData(), err)
		return nil, err
	}
	outcome := &NotifyOutcome{IntentID: intent.ID, Status: intent.Status}
	if intent.Status.IsTerminal() {
		callbacksReceived.WithLabelValues("notify", "terminal").Inc()
		return outcome, nil
	}
	outcome.Processed = true

	valid, fallback := svc.verifyWithFallback(params, resp, intent)
	authorised := valid && resp.IsAuthorised()

	events := []models.IntentEvent{models.NewIntentEvent(models.IntentEventNotifyReceived, callbackData(resp, valid, authorised))}
	if fallback {
		events = append(events, fallbackEvent(resp, intent))
	}

	bridged := intent.Bridged()
	if authorised && !bridged {
		bridged, err = svc.bridge(ctx, intent, resp)
		if err != nil {
			return nil, err
		}
	}

	status := models.IntentStatusNotifiedBadSig
	switch {
	case authorised:
		status = models.IntentStatusNotifiedOK
	case valid:
		status = models.IntentStatusNotifiedKO
	default:
		svc.Logger.Warnf("notify: bad signature for intent %d order %q", intent.ID, resp.Order())
	}

	res, err := svc.Store.UpdateIntent(ctx, intent.ID, IntentUpdate{Status: status, Events: events})
	if err != nil {
		return nil, err
	}
	outcome.Status = res.Intent.Status
	outcome.Bridged = bridged
	callbacksReceived.WithLabelValues("notify", string(status)).Inc()

	if authorised && bridged {
		if _, err := svc.fireEvent(ctx, intent.ID, EventPaymentConfirmed); err != nil {
			svc.Logger.Warnf("notify: payment confirmed event for intent %d deferred to reconciliation: %v", intent.ID, err)
		}
	}
	if authorised {
		svc.scheduleOnce(ctx, intent.ID)
	}
	return outcome, nil
}

// bridge records the payment in the ERP at most once per intent. A failure
// leaves the idempotency key failed so the next notify delivery retries.
func (svc *PaymentService) bridge(ctx context.Context, intent *models.PaymentIntent, resp redsys.Response) (bool, error) {
	key, err := svc.Store.AcquireIdempotencyKey(ctx, intent.ID, models.OperationErpBridge, bridgeLease)
	switch {
	case errors.Is(err, ErrAlreadyCompleted):
		svc.restoreLedgerID(ctx, intent, key)
		return true, nil
	case errors.Is(err, ErrIdempotencyInProgress):
		svc.Logger.Infof("notify: ERP bridge of intent %d already running", intent.ID)
		return false, nil
	case err != nil:
		return false, err
	}

	ledgerID, err := svc.Erp.RecordPayment(ctx, intent.BookingID, intent.CustomerID, intent.Amount, giav.PaymentMetadata{
		Token:              intent.Token,
		OrderID:            resp.Order(),
		AuthorisationCode:  resp.AuthorisationCode(),
		MerchantIdentifier: resp.MerchantIdentifier(),
		CardCountry:        resp.CardCountry(),
		ResponseCode:       resp.Code(),
		UserID:             intent.UserID,
		PaidAt:             svc.now(),
	})
	if err != nil {
		erpBridges.WithLabelValues("error").Inc()
		svc.Logger.Errorf("notify: recording payment of intent %d in GIAV failed: %v", intent.ID, err)
		sentry.CaptureException(err)
		if ferr := svc.Store.FailIdempotencyKey(ctx, key, err.Error()); ferr != nil {
			svc.Logger.Errorf("notify: releasing ERP bridge key of intent %d failed: %v", intent.ID, ferr)
		}
		_, uerr := svc.Store.UpdateIntent(ctx, intent.ID, IntentUpdate{
			Events: []models.IntentEvent{models.NewIntentEvent(models.IntentEventErpBridgeFailed, map[string]interface{}{
				"error":     err.Error(),
				"transient": giav.IsTransient(err),
			})},
		})
		if uerr != nil {
			svc.Logger.Errorf("notify: recording ERP bridge failure of intent %d failed: %v", intent.ID, uerr)
		}
		return false, nil
	}

	erpBridges.WithLabelValues("ok").Inc()
	if err := svc.Store.CompleteIdempotencyKey(ctx, key, strconv.FormatInt(ledgerID, 10)); err != nil {
		svc.Logger.Errorf("notify: completing ERP bridge key of intent %d (cobro %d) failed: %v", intent.ID, ledgerID, err)
		sentry.CaptureException(err)
	}
	_, err = svc.Store.UpdateIntent(ctx, intent.ID, IntentUpdate{
		ErpLedgerID: ledgerID,
		Events: []models.IntentEvent{models.NewIntentEvent(models.IntentEventErpBridgeSucceeded, map[string]interface{}{
			"ledger_id": ledgerID,
		})},
	})
	if err != nil {
		return true, fmt.Errorf("storing GIAV cobro %d on intent %d: %w", ledgerID, intent.ID, err)
	}
	svc.Logger.Infof("notify: intent %d recorded in GIAV as cobro %d", intent.ID, ledgerID)
	return true, nil
}

func (svc *PaymentService) restoreLedgerID(ctx context.Context, intent *models.PaymentIntent, key *models.IdempotencyKey) {
	if intent.Bridged() || key == nil {
		return
	}
	ledgerID, err := strconv.ParseInt(key.Result, 10, 64)
	if err != nil || ledgerID <= 0 {
		return
	}
	if _, err := svc.Store.UpdateIntent(ctx, intent.ID, IntentUpdate{ErpLedgerID: ledgerID}); err != nil {
		svc.Logger.Errorf("notify: restoring cobro %d on intent %d failed: %v", ledgerID, intent.ID, err)
	}
}

// locateIntent finds the intent of a callback by the token echoed in
// Ds_MerchantData, then by order id, then by the query token.
func (svc *PaymentService) locateIntent(ctx context.Context, resp redsys.Response, queryToken string) (*models.PaymentIntent, error) {
	lookups := []func() (*models.PaymentIntent, error){
		func() (*models.PaymentIntent, error) { return svc.Store.GetIntentByToken(ctx, resp.MerchantData()) },
		func() (*models.PaymentIntent, error) { return svc.Store.GetIntentByGatewayOrderID(ctx, resp.Order()) },
		func() (*models.PaymentIntent, error) { return svc.Store.GetIntentByToken(ctx, queryToken) },
	}
	for _, lookup := range lookups {
		intent, err := lookup()
		if err == nil {
			return intent, nil
		}
		if !errors.Is(err, ErrIntentNotFound) {
			return nil, err
		}
	}
	return nil, ErrIntentNotFound
}

// verifyWithFallback checks the signature against the order id the gateway
// sent and, failing that, against the order id stored on the intent. The
// second path exists for gateways that re-encode the order and is always
// logged.
func (svc *PaymentService) verifyWithFallback(params CallbackParams, resp redsys.Response, intent *models.PaymentIntent) (valid bool, fallback bool) {
	secret := svc.Config.Redsys.SecretKey
	order := resp.Order()
	if order != "" && redsys.Verify(params.MerchantParameters, order, secret, params.Signature) {
		return true, false
	}
	if intent.GatewayOrderID != "" && intent.GatewayOrderID != order &&
		redsys.Verify(params.MerchantParameters, intent.GatewayOrderID, secret, params.Signature) {
		signatureFallbacks.Inc()
		svc.Logger.Warnf("signature of intent %d only verified with stored order %s (gateway sent %q)", intent.ID, intent.GatewayOrderID, order)
		return true, true
	}
	return false, false
}

func (svc *PaymentService) scheduleOnce(ctx context.Context, intentID int64) {
	runAt := svc.now().Add(seconds(svc.Config.Reconcile.InitialDelay))
	if _, err := svc.Store.ScheduleReconcile(ctx, intentID, runAt, true); err != nil {
		svc.Logger.Errorf("scheduling reconciliation of intent %d failed: %v", intentID, err)
		sentry.CaptureException(err)
	}
}

func callbackData(resp redsys.Response, valid, authorised bool) map[string]interface{} {
	return map[string]interface{}{
		"order":               resp.Order(),
		"response":            resp.Code(),
		"amount":              resp.Amount(),
		"authorisation_code":  resp.AuthorisationCode(),
		"merchant_identifier": resp.MerchantIdentifier(),
		"card_country":        resp.CardCountry(),
		"signature_valid":     valid,
		"authorised":          authorised,
	}
}

func fallbackEvent(resp redsys.Response, intent *models.PaymentIntent) models.IntentEvent {
	return models.NewIntentEvent(models.IntentEventSignatureFallbackUsed, map[string]interface{}{
		"gateway_order": resp.Order(),
		"stored_order":  intent.GatewayOrderID,
	})
}
