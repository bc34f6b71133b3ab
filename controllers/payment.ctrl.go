package controllers

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/dimasromerop/portal-giav/db/models"
	"github.com/dimasromerop/portal-giav/lib/redsys"
	"github.com/dimasromerop/portal-giav/lib/responses"
	"github.com/dimasromerop/portal-giav/lib/service"
	"github.com/labstack/echo/v4"
)

// PaymentController : booking payment controller struct
type PaymentController struct {
	svc *service.PaymentService
}

func NewPaymentController(svc *service.PaymentService) *PaymentController {
	return &PaymentController{svc: svc}
}

type InitiatePaymentRequestBody struct {
	Mode      string `json:"mode" form:"mode" validate:"required,oneof=full deposit"`
	AuthToken string `json:"auth_token" form:"auth_token" validate:"required"`
}

type InitiatePaymentResponseBody struct {
	IntentID   int64                `json:"intent_id"`
	Token      string               `json:"token"`
	OrderID    string               `json:"order_id"`
	Amount     int64                `json:"amount"`
	Currency   string               `json:"currency"`
	Mode       string               `json:"mode"`
	GatewayURL string               `json:"gateway_url"`
	Form       *redsys.RedirectForm `json:"form"`
	CreatedAt  time.Time            `json:"created_at"`
}

var redirectTemplate = template.Must(template.New("redirect").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Redirecting to payment</title></head>
<body onload="document.forms[0].submit()">
<form method="POST" action="{{.GatewayURL}}">
<input type="hidden" name="Ds_SignatureVersion" value="{{.Form.SignatureVersion}}">
<input type="hidden" name="Ds_MerchantParameters" value="{{.Form.MerchantParameters}}">
<input type="hidden" name="Ds_Signature" value="{{.Form.Signature}}">
<noscript><button type="submit">Continue to payment</button></noscript>
</form>
</body>
</html>
`))

// GetPaymentOptions godoc
// @Summary      Payment options of a booking
// @Description  Returns the pending balance, the deposit offer and the authorization token needed to start a payment
// @Accept       json
// @Produce      json
// @Tags         Payment
// @Param        booking_id  path      int  true  "GIAV booking id"
// @Success      200         {object}  service.PaymentOptions
// @Failure      400         {object}  responses.ErrorResponse
// @Failure      401         {object}  responses.ErrorResponse
// @Failure      403         {object}  responses.ErrorResponse
// @Failure      503         {object}  responses.ErrorResponse
// @Router       /v1/bookings/{booking_id}/payment [get]
// @Security     OAuth2Password
func (controller *PaymentController) GetPaymentOptions(c echo.Context) error {
	userID, _ := c.Get("UserID").(int64)
	bookingID, err := strconv.ParseInt(c.Param("booking_id"), 10, 64)
	if err != nil || bookingID <= 0 {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	opts, err := controller.svc.PaymentOptions(c.Request().Context(), userID, bookingID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, opts)
}

// InitiatePayment godoc
// @Summary      Start a card payment
// @Description  Creates a payment intent and returns the signed form that sends the browser to the gateway. With format=html the form is returned as a self-submitting page.
// @Accept       json
// @Produce      json
// @Produce      html
// @Tags         Payment
// @Param        booking_id  path      int                         true   "GIAV booking id"
// @Param        format      query     string                      false  "html for an auto-submitting form"
// @Param        payment     body      InitiatePaymentRequestBody  true   "Payment mode and authorization token"
// @Success      200         {object}  InitiatePaymentResponseBody
// @Success      303
// @Failure      400         {object}  responses.ErrorResponse
// @Failure      401         {object}  responses.ErrorResponse
// @Failure      403         {object}  responses.ErrorResponse
// @Failure      409         {object}  responses.ErrorResponse
// @Failure      503         {object}  responses.ErrorResponse
// @Router       /v1/bookings/{booking_id}/payment [post]
// @Security     OAuth2Password
func (controller *PaymentController) InitiatePayment(c echo.Context) error {
	userID, _ := c.Get("UserID").(int64)
	bookingID, err := strconv.ParseInt(c.Param("booking_id"), 10, 64)
	if err != nil || bookingID <= 0 {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	var body InitiatePaymentRequestBody
	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load payment request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		c.Logger().Errorf("Invalid payment request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	res, err := controller.svc.InitiatePayment(c.Request().Context(), service.InitiateRequest{
		UserID:    userID,
		BookingID: bookingID,
		Mode:      models.PaymentMode(body.Mode),
		AuthToken: body.AuthToken,
	})
	if errors.Is(err, service.ErrNothingToPay) {
		return c.Redirect(http.StatusSeeOther, controller.svc.BookingViewURL(bookingID))
	}
	if err != nil {
		c.Logger().Errorf("Payment of booking %d by user %d not started: %v", bookingID, userID, err)
		return serviceError(c, err)
	}

	if c.QueryParam("format") == "html" {
		page := new(bytes.Buffer)
		if err := redirectTemplate.Execute(page, res); err != nil {
			return err
		}
		return c.HTMLBlob(http.StatusOK, page.Bytes())
	}

	intent := res.Intent
	return c.JSON(http.StatusOK, &InitiatePaymentResponseBody{
		IntentID:   intent.ID,
		Token:      intent.Token,
		OrderID:    intent.GatewayOrderID,
		Amount:     intent.Amount,
		Currency:   intent.Currency,
		Mode:       string(intent.Mode),
		GatewayURL: res.GatewayURL,
		Form:       res.Form,
		CreatedAt:  intent.CreatedAt,
	})
}
