package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dimasromerop/portal-giav/giav"
	"github.com/ziflex/lecho/v3"
)

// ErrErpUnavailable marks ERP failures worth retrying later.
var ErrErpUnavailable = errors.New("GIAV is unavailable")

func erpError(err error, what string) error {
	if giav.IsTransient(err) {
		return fmt.Errorf("%w: %s: %w", ErrErpUnavailable, what, err)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// ERP is the part of GIAV the payment flow depends on.
type ERP interface {
	BookingBalance(ctx context.Context, bookingID, customerID int64) (*giav.Balance, error)
	GetPendingBalance(ctx context.Context, bookingID, customerID int64) (int64, error)
	RecordPayment(ctx context.Context, bookingID, customerID, amount int64, meta giav.PaymentMetadata) (int64, error)
}

// Ownership resolves which GIAV customer a portal user pays as.
type Ownership interface {
	CanAccessBooking(ctx context.Context, userID, bookingID int64) (bool, error)
	// CustomerForBooking returns the customer owning the booking, or
	// ErrBookingNotOwned when it is not the user's customer.
	CustomerForBooking(ctx context.Context, userID, bookingID int64) (int64, error)
}

type PaymentService struct {
	Config    *Config
	Store     IntentStore
	Erp       ERP
	Ownership Ownership
	Events    EventPublisher
	Logger    *lecho.Logger
	Clock     func() time.Time
}

func (svc *PaymentService) now() time.Time {
	if svc.Clock != nil {
		return svc.Clock()
	}
	return time.Now()
}
