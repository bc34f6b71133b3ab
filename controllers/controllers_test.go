package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/dimasromerop/portal-giav/giav"
	"github.com/dimasromerop/portal-giav/lib"
	"github.com/dimasromerop/portal-giav/lib/responses"
	"github.com/dimasromerop/portal-giav/lib/service"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/ziflex/lecho/v3"
)

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Logger = lecho.New(io.Discard)
	e.Validator = &lib.CustomValidator{Validator: validator.New()}
	e.HTTPErrorHandler = responses.HTTPErrorHandler
	return e
}

func TestServiceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want responses.ErrorResponse
	}{
		{"unauthorized", service.ErrUnauthorized, responses.BadAuthError},
		{"not owned", fmt.Errorf("%w: booking 1", service.ErrBookingNotOwned), responses.BookingNotOwnedError},
		{"auth token", service.ErrInvalidAuthToken, responses.InvalidPaymentTokenError},
		{"nothing to pay", service.ErrNothingToPay, responses.NothingToPayError},
		{"no reservations", fmt.Errorf("%w: 42", giav.ErrNoReservations), responses.NothingToPayError},
		{"mode", service.ErrInvalidMode, responses.BadArgumentsError},
		{"amount", service.ErrAmountTooLow, responses.InvalidAmountError},
		{"intent", service.ErrIntentNotFound, responses.IntentNotFoundError},
		{"terminal", service.ErrIntentTerminal, responses.IntentTerminalError},
		{"erp", fmt.Errorf("%w: timeout", service.ErrErpUnavailable), responses.ErpUnavailableError},
		{"unexpected", errors.New("pq: relation does not exist"), responses.GeneralServerError},
	}
	e := newTestEcho()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			assert.NoError(t, serviceError(c, tt.err))
			assert.Equal(t, tt.want.HttpStatusCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want.Message)
		})
	}
}

func TestNotifyMalformed(t *testing.T) {
	e := newTestEcho()
	svc := &service.PaymentService{Config: &service.Config{}, Logger: lecho.New(io.Discard)}
	ctrl := NewRedsysController(svc)
	e.POST("/redsys/notify", ctrl.Notify)
	e.POST("/v1/redsys/notify", ctrl.NotifyJSON)

	form := url.Values{"Ds_SignatureVersion": {"HMAC_SHA256_V1"}}
	req := httptest.NewRequest(http.MethodPost, "/redsys/notify", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD REQUEST", rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/v1/redsys/notify", strings.NewReader(`{"Ds_Signature":"abc"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), responses.BadArgumentsError.Message)
}

func TestInitiatePaymentBadRequest(t *testing.T) {
	e := newTestEcho()
	ctrl := NewPaymentController(&service.PaymentService{Config: &service.Config{}, Logger: lecho.New(io.Discard)})
	e.POST("/v1/bookings/:booking_id/payment", ctrl.InitiatePayment)

	for _, tc := range []struct {
		path string
		body string
	}{
		{"/v1/bookings/abc/payment", `{"mode":"full","auth_token":"x"}`},
		{"/v1/bookings/-1/payment", `{"mode":"full","auth_token":"x"}`},
		{"/v1/bookings/42/payment", `{"mode":"everything","auth_token":"x"}`},
		{"/v1/bookings/42/payment", `{"mode":"full"}`},
	} {
		req := httptest.NewRequest(http.MethodPost, tc.path, strings.NewReader(tc.body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tc.path+" "+tc.body)
	}
}

func TestHealth(t *testing.T) {
	e := newTestEcho()
	e.GET("/health", NewHealthController().Check)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"result":"OK"}`, rec.Body.String())
}
