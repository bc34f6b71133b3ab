package controllers

import (
	"errors"
	"net/http"

	"github.com/dimasromerop/portal-giav/lib/responses"
	"github.com/dimasromerop/portal-giav/lib/service"
	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
)

// RedsysController : gateway callback controller struct
type RedsysController struct {
	svc *service.PaymentService
}

func NewRedsysController(svc *service.PaymentService) *RedsysController {
	return &RedsysController{svc: svc}
}

type NotifyResponseBody struct {
	IntentID  int64  `json:"intent_id"`
	Status    string `json:"status"`
	Processed bool   `json:"processed"`
	Bridged   bool   `json:"bridged"`
}

// Return godoc
// @Summary      Browser return from the gateway
// @Description  Records the outcome shown to the customer and redirects to the booking page. Always answers with a redirect.
// @Tags         Redsys
// @Param        Ds_SignatureVersion    query  string  false  "signature version"
// @Param        Ds_MerchantParameters  query  string  false  "base64 merchant parameters"
// @Param        Ds_Signature           query  string  false  "signature"
// @Param        token                  query  string  false  "intent token"
// @Param        result                 query  string  false  "ok or ko"
// @Success      303
// @Router       /redsys/return [get]
// @Router       /redsys/return [post]
func (controller *RedsysController) Return(c echo.Context) error {
	var params service.CallbackParams
	if err := c.Bind(&params); err != nil {
		c.Logger().Warnf("Unreadable gateway return: %v", err)
	}
	outcome := controller.svc.HandleReturn(c.Request().Context(), service.ReturnInput{
		CallbackParams: params,
		Token:          c.QueryParam("token"),
		Result:         c.QueryParam("result"),
	})
	return c.Redirect(http.StatusSeeOther, controller.svc.ReturnRedirectURL(outcome))
}

// Notify godoc
// @Summary      Gateway server notification
// @Description  Server to server notification sent by the gateway as a form post
// @Accept       x-www-form-urlencoded
// @Produce      plain
// @Tags         Redsys
// @Param        Ds_SignatureVersion    formData  string  true  "signature version"
// @Param        Ds_MerchantParameters  formData  string  true  "base64 merchant parameters"
// @Param        Ds_Signature           formData  string  true  "signature"
// @Success      200  {string}  string  "OK"
// @Failure      400  {string}  string
// @Failure      404  {string}  string
// @Router       /redsys/notify [post]
func (controller *RedsysController) Notify(c echo.Context) error {
	var params service.CallbackParams
	if err := c.Bind(&params); err != nil {
		c.Logger().Warnf("Unreadable gateway notification: %v", err)
		return c.String(http.StatusBadRequest, "BAD REQUEST")
	}
	outcome, err := controller.svc.HandleNotify(c.Request().Context(), params)
	if err != nil {
		return controller.notifyError(c, err)
	}
	c.Logger().Infof("Notification for intent %d handled: status %s processed %t bridged %t", outcome.IntentID, outcome.Status, outcome.Processed, outcome.Bridged)
	return c.String(http.StatusOK, "OK")
}

// NotifyJSON godoc
// @Summary      Gateway server notification (JSON)
// @Description  Same as /redsys/notify for relays that forward the notification as JSON
// @Accept       json
// @Produce      json
// @Tags         Redsys
// @Param        notification  body      service.CallbackParams  true  "gateway parameters"
// @Success      200           {object}  NotifyResponseBody
// @Failure      400           {object}  responses.ErrorResponse
// @Failure      404           {object}  responses.ErrorResponse
// @Router       /v1/redsys/notify [post]
func (controller *RedsysController) NotifyJSON(c echo.Context) error {
	var params service.CallbackParams
	if err := c.Bind(&params); err != nil {
		c.Logger().Warnf("Unreadable gateway notification: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	outcome, err := controller.svc.HandleNotify(c.Request().Context(), params)
	switch {
	case errors.Is(err, service.ErrMalformedNotification):
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	case err != nil:
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, &NotifyResponseBody{
		IntentID:  outcome.IntentID,
		Status:    string(outcome.Status),
		Processed: outcome.Processed,
		Bridged:   outcome.Bridged,
	})
}

func (controller *RedsysController) notifyError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrMalformedNotification):
		c.Logger().Warnf("Malformed gateway notification: %v", err)
		return c.String(http.StatusBadRequest, "BAD REQUEST")
	case errors.Is(err, service.ErrIntentNotFound):
		return c.String(http.StatusNotFound, "NOT FOUND")
	}
	// the gateway retries on anything but 200
	c.Logger().Errorf("Gateway notification failed: %v", err)
	sentry.CaptureException(err)
	return c.String(http.StatusInternalServerError, "ERROR")
}
