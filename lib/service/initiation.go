package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dimasromerop/portal-giav/db/models"
	"github.com/dimasromerop/portal-giav/lib/redsys"
	"github.com/dimasromerop/portal-giav/lib/tokens"
)

var (
	ErrInvalidAuthToken = errors.New("invalid or expired payment authorization token")
	ErrNothingToPay     = errors.New("nothing pending on this booking")
	ErrInvalidMode      = errors.New("unknown payment mode")
)

const tokenRetries = 3

type PaymentOptions struct {
	BookingID          int64        `json:"booking_id"`
	CustomerID         int64        `json:"customer_id"`
	Currency           string       `json:"currency"`
	Total              int64        `json:"total"`
	Paid               int64        `json:"paid"`
	Pending            int64        `json:"pending"`
	Payable            bool         `json:"payable"`
	Deposit            DepositQuote `json:"deposit"`
	AuthToken          string       `json:"auth_token,omitempty"`
	AuthTokenExpiresAt time.Time    `json:"auth_token_expires_at,omitempty"`
}

type InitiateRequest struct {
	UserID    int64
	BookingID int64
	Mode      models.PaymentMode
	AuthToken string
}

type InitiateResult struct {
	Intent     *models.PaymentIntent
	GatewayURL string
	Form       *redsys.RedirectForm
}

// PaymentOptions returns what the user may pay on the booking, together with
// the authorization token the initiation request has to carry.
func (svc *PaymentService) PaymentOptions(ctx context.Context, userID, bookingID int64) (*PaymentOptions, error) {
	customerID, err := svc.Ownership.CustomerForBooking(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}
	balance, err := svc.Erp.BookingBalance(ctx, bookingID, customerID)
	if err != nil {
		return nil, erpError(err, fmt.Sprintf("reading balance of booking %d", bookingID))
	}

	now := svc.now()
	opts := &PaymentOptions{
		BookingID:  bookingID,
		CustomerID: customerID,
		Currency:   "EUR",
		Total:      balance.Total,
		Paid:       balance.Paid,
		Pending:    balance.Pending,
		Payable:    balance.Pending > Epsilon,
		Deposit:    QuoteDeposit(svc.Config.Deposit, bookingID, *balance, now),
	}
	if !opts.Payable {
		return opts, nil
	}

	opts.AuthToken, opts.AuthTokenExpiresAt, err = tokens.GeneratePaymentToken(svc.Config.JWTSecret, svc.Config.PaymentTokenExpiry, userID, bookingID, now)
	if err != nil {
		return nil, err
	}
	return opts, nil
}

// InitiatePayment creates an intent for the requested mode and returns the
// signed form that sends the browser to the gateway.
func (svc *PaymentService) InitiatePayment(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	if req.UserID <= 0 {
		return nil, ErrUnauthorized
	}
	if req.Mode != models.PaymentModeFull && req.Mode != models.PaymentModeDeposit {
		return nil, ErrInvalidMode
	}
	if err := tokens.VerifyPaymentToken(svc.Config.JWTSecret, req.AuthToken, req.UserID, req.BookingID); err != nil {
		return nil, ErrInvalidAuthToken
	}

	customerID, err := svc.Ownership.CustomerForBooking(ctx, req.UserID, req.BookingID)
	if err != nil {
		return nil, err
	}
	balance, err := svc.Erp.BookingBalance(ctx, req.BookingID, customerID)
	if err != nil {
		return nil, erpError(err, fmt.Sprintf("reading balance of booking %d", req.BookingID))
	}
	if balance.Pending <= Epsilon {
		return nil, ErrNothingToPay
	}

	now := svc.now()
	mode := req.Mode
	amount := balance.Pending
	if mode == models.PaymentModeDeposit {
		// a deposit that is not offered degenerates to paying everything
		quote := QuoteDeposit(svc.Config.Deposit, req.BookingID, *balance, now)
		if quote.Effective {
			amount = quote.Amount
		} else {
			svc.Logger.Infof("deposit on booking %d not available (%s), charging the full pending %d", req.BookingID, quote.Reason, balance.Pending)
			mode = models.PaymentModeFull
		}
	}
	if err := ValidateAmount(amount, balance.Pending, svc.Config.Deposit.Minimum); err != nil {
		return nil, err
	}

	intent, err := svc.createIntent(ctx, &models.PaymentIntent{
		UserID:        req.UserID,
		CustomerID:    customerID,
		BookingID:     req.BookingID,
		Amount:        amount,
		PendingBefore: balance.Pending,
		Currency:      "EUR",
		Mode:          mode,
		Status:        models.IntentStatusCreated,
		CreatedAt:     now,
	})
	if err != nil {
		return nil, err
	}
	intentsCreated.WithLabelValues(string(mode)).Inc()

	orderID, err := redsys.OrderID(now, intent.ID)
	if err != nil {
		svc.Logger.Errorf("intent %d has no gateway order: %v", intent.ID, err)
		if _, updErr := svc.Store.UpdateIntent(ctx, intent.ID, IntentUpdate{
			Status: models.IntentStatusFailed,
			Events: []models.IntentEvent{models.NewIntentEvent(models.IntentEventRedirectPrepared, map[string]interface{}{
				"error": err.Error(),
			})},
		}); updErr != nil {
			svc.Logger.Errorf("marking intent %d failed: %v", intent.ID, updErr)
		}
		return nil, err
	}
	res, err := svc.Store.UpdateIntent(ctx, intent.ID, IntentUpdate{
		Status:         models.IntentStatusRedirecting,
		GatewayOrderID: orderID,
		Events: []models.IntentEvent{models.NewIntentEvent(models.IntentEventRedirectPrepared, map[string]interface{}{
			"order": orderID,
		})},
	})
	if err != nil {
		return nil, fmt.Errorf("assigning order id to intent %d: %w", intent.ID, err)
	}
	intent = res.Intent

	form, err := redsys.NewRedirectForm(svc.merchant(), redsys.Payment{
		OrderID:   intent.GatewayOrderID,
		Amount:    intent.Amount,
		Token:     intent.Token,
		NotifyURL: svc.Config.Redsys.NotifyUrl,
		ReturnURL: svc.Config.Redsys.ReturnUrl,
	})
	if err != nil {
		return nil, err
	}
	svc.Logger.Infof("intent %d created for booking %d amount %d mode %s order %s", intent.ID, intent.BookingID, intent.Amount, intent.Mode, intent.GatewayOrderID)

	return &InitiateResult{
		Intent:     intent,
		GatewayURL: svc.Config.Redsys.GatewayUrl,
		Form:       form,
	}, nil
}

func (svc *PaymentService) createIntent(ctx context.Context, intent *models.PaymentIntent) (*models.PaymentIntent, error) {
	var err error
	for i := 0; i < tokenRetries; i++ {
		intent.Token, err = randomToken()
		if err != nil {
			return nil, err
		}
		created := models.NewIntentEvent(models.IntentEventCreated, map[string]interface{}{
			"amount":         intent.Amount,
			"mode":           string(intent.Mode),
			"pending_before": intent.PendingBefore,
		})
		created.StatusTo = models.IntentStatusCreated
		err = svc.Store.CreateIntent(ctx, intent, created)
		if !errors.Is(err, ErrDuplicateToken) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return intent, nil
}

func (svc *PaymentService) merchant() redsys.Merchant {
	return redsys.Merchant{
		Code:     svc.Config.Redsys.MerchantCode,
		Terminal: svc.Config.Redsys.Terminal,
		Currency: svc.Config.Redsys.Currency,
		Secret:   svc.Config.Redsys.SecretKey,
	}
}
