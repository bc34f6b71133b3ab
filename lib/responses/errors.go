package responses

import (
	"net/http"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error          bool   `json:"error"`
	Code           int    `json:"code"`
	Message        string `json:"message"`
	HttpStatusCode int    `json:"-"`
}

var GeneralServerError = ErrorResponse{
	Error:          true,
	Code:           6,
	Message:        "Something went wrong. Please try again later",
	HttpStatusCode: 500,
}

var BadArgumentsError = ErrorResponse{
	Error:          true,
	Code:           8,
	Message:        "Bad arguments",
	HttpStatusCode: 400,
}

var BadAuthError = ErrorResponse{
	Error:          true,
	Code:           1,
	Message:        "bad auth",
	HttpStatusCode: 401,
}

var BookingNotOwnedError = ErrorResponse{
	Error:          true,
	Code:           1,
	Message:        "booking not found for this account",
	HttpStatusCode: 403,
}

var InvalidPaymentTokenError = ErrorResponse{
	Error:          true,
	Code:           3,
	Message:        "payment authorization expired, please reload the booking",
	HttpStatusCode: 403,
}

var NothingToPayError = ErrorResponse{
	Error:          true,
	Code:           2,
	Message:        "nothing pending on this booking",
	HttpStatusCode: 409,
}

var InvalidAmountError = ErrorResponse{
	Error:          true,
	Code:           2,
	Message:        "invalid payment amount",
	HttpStatusCode: 400,
}

var ErpUnavailableError = ErrorResponse{
	Error:          true,
	Code:           4,
	Message:        "booking data is temporarily unavailable, please try again later",
	HttpStatusCode: 503,
}

var IntentNotFoundError = ErrorResponse{
	Error:          true,
	Code:           5,
	Message:        "payment intent not found",
	HttpStatusCode: 404,
}

var IntentTerminalError = ErrorResponse{
	Error:          true,
	Code:           5,
	Message:        "payment intent is already final",
	HttpStatusCode: 409,
}

func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	c.Logger().Error(err)
	if hub := sentryecho.GetHubFromContext(c); hub != nil && isErrAllowedForSentry(err) {
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetExtra("UserID", c.Get("UserID"))
			hub.CaptureException(err)
		})
	}
	if he, ok := err.(*echo.HTTPError); ok {
		c.JSON(he.Code, he.Message)
	} else {
		c.JSON(http.StatusInternalServerError, GeneralServerError)
	}
}

// bad auth errors are expected noise and are not sent to Sentry
func isErrAllowedForSentry(err error) bool {
	he, ok := err.(*echo.HTTPError)
	if !ok {
		return true
	}
	switch msg := he.Message.(type) {
	case echo.Map:
		if code, ok := msg["code"].(int); ok && code == BadAuthError.Code {
			return false
		}
	case ErrorResponse:
		return msg.Code != BadAuthError.Code
	case *ErrorResponse:
		return msg.Code != BadAuthError.Code
	}
	return true
}
