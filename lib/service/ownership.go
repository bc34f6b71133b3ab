package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dimasromerop/portal-giav/giav"
)

var (
	ErrUnauthorized    = errors.New("authentication required")
	ErrBookingNotOwned = errors.New("booking does not belong to the user")
)

// BookingDirectory looks up the customer of a booking in the ERP.
type BookingDirectory interface {
	BookingCustomer(ctx context.Context, bookingID int64) (int64, error)
}

// BookingOwnership grants access when the portal user's linked GIAV
// customer is the customer of the booking.
type BookingOwnership struct {
	Store     IntentStore
	Directory BookingDirectory
}

func (o *BookingOwnership) CustomerForBooking(ctx context.Context, userID, bookingID int64) (int64, error) {
	if userID <= 0 {
		return 0, ErrUnauthorized
	}
	user, err := o.Store.GetPortalUser(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return 0, fmt.Errorf("%w: user %d is not linked to a customer", ErrBookingNotOwned, userID)
	}
	if err != nil {
		return 0, err
	}
	if user.GiavCustomerID <= 0 {
		return 0, fmt.Errorf("%w: user %d is not linked to a customer", ErrBookingNotOwned, userID)
	}

	owner, err := o.Directory.BookingCustomer(ctx, bookingID)
	if errors.Is(err, giav.ErrBookingNotFound) {
		return 0, fmt.Errorf("%w: booking %d", ErrBookingNotOwned, bookingID)
	}
	if err != nil {
		return 0, erpError(err, fmt.Sprintf("looking up customer of booking %d", bookingID))
	}
	if owner != user.GiavCustomerID {
		return 0, fmt.Errorf("%w: booking %d", ErrBookingNotOwned, bookingID)
	}
	return owner, nil
}

func (o *BookingOwnership) CanAccessBooking(ctx context.Context, userID, bookingID int64) (bool, error) {
	_, err := o.CustomerForBooking(ctx, userID, bookingID)
	if errors.Is(err, ErrBookingNotOwned) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
