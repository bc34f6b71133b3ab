package controllers

import (
	"errors"
	"net/http"

	"github.com/dimasromerop/portal-giav/giav"
	"github.com/dimasromerop/portal-giav/lib/responses"
	"github.com/dimasromerop/portal-giav/lib/service"
	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
)

// serviceError answers with the ErrorResponse matching a service error.
// Anything unexpected is reported and answered as a general server error.
func serviceError(c echo.Context, err error) error {
	var resp responses.ErrorResponse
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		resp = responses.BadAuthError
	case errors.Is(err, service.ErrBookingNotOwned):
		resp = responses.BookingNotOwnedError
	case errors.Is(err, service.ErrInvalidAuthToken):
		resp = responses.InvalidPaymentTokenError
	case errors.Is(err, service.ErrNothingToPay), errors.Is(err, giav.ErrNoReservations):
		resp = responses.NothingToPayError
	case errors.Is(err, service.ErrInvalidMode):
		resp = responses.BadArgumentsError
	case errors.Is(err, service.ErrAmountTooLow), errors.Is(err, service.ErrAmountTooHigh), errors.Is(err, service.ErrBelowMinimumPartial):
		resp = responses.InvalidAmountError
	case errors.Is(err, service.ErrIntentNotFound):
		resp = responses.IntentNotFoundError
	case errors.Is(err, service.ErrIntentTerminal):
		resp = responses.IntentTerminalError
	case errors.Is(err, service.ErrErpUnavailable):
		c.Logger().Warnf("GIAV unavailable: %v", err)
		resp = responses.ErpUnavailableError
	default:
		c.Logger().Error(err)
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, responses.GeneralServerError)
	}
	return c.JSON(resp.HttpStatusCode, resp)
}
