package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dimasromerop/portal-giav/db/models"
	"github.com/dimasromerop/portal-giav/lib/responses"
	"github.com/dimasromerop/portal-giav/lib/service"
	"github.com/labstack/echo/v4"
)

const defaultListLimit = 100

// AdminController : operator endpoints
type AdminController struct {
	svc *service.PaymentService
}

func NewAdminController(svc *service.PaymentService) *AdminController {
	return &AdminController{svc: svc}
}

type ListIntentsQuery struct {
	Status    string `query:"status" validate:"omitempty,oneof=created redirecting returned_ok returned_ko notified_ok notified_ko notified_bad_sig reconciled failed"`
	BookingID int64  `query:"booking_id" validate:"gte=0"`
	Limit     int    `query:"limit" validate:"gte=0,lte=1000"`
}

type ListIntentsResponseBody struct {
	Intents []models.PaymentIntent `json:"intents"`
}

type ReconcileResponseBody struct {
	Intent *models.PaymentIntent `json:"intent"`
	RunAt  time.Time             `json:"run_at"`
}

type LinkUserRequestBody struct {
	ID             int64  `json:"id" validate:"required,gt=0"`
	Email          string `json:"email" validate:"omitempty,email"`
	GiavCustomerID int64  `json:"giav_customer_id" validate:"required,gt=0"`
}

// ListIntents godoc
// @Summary      List payment intents
// @Description  Lists payment intents, newest first, optionally by status or booking. status=failed is the operator view of intents that could not be reconciled.
// @Produce      json
// @Tags         Admin
// @Param        status      query     string  false  "intent status"
// @Param        booking_id  query     int     false  "GIAV booking id"
// @Param        limit       query     int     false  "max results"
// @Success      200         {object}  ListIntentsResponseBody
// @Failure      400         {object}  responses.ErrorResponse
// @Failure      401         {object}  responses.ErrorResponse
// @Router       /v1/admin/intents [get]
// @Security     ApiKeyAuth
func (controller *AdminController) ListIntents(c echo.Context) error {
	var query ListIntentsQuery
	if err := c.Bind(&query); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&query); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if query.Limit == 0 {
		query.Limit = defaultListLimit
	}

	intents, err := controller.svc.ListIntents(c.Request().Context(), service.IntentFilter{
		Status:    models.IntentStatus(query.Status),
		BookingID: query.BookingID,
		Limit:     query.Limit,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, &ListIntentsResponseBody{Intents: intents})
}

// GetIntent godoc
// @Summary      Payment intent detail
// @Description  Returns the intent with its event log, the folded audit and its pending reconcile job
// @Produce      json
// @Tags         Admin
// @Param        id   path      int  true  "intent id"
// @Success      200  {object}  service.IntentDetail
// @Failure      400  {object}  responses.ErrorResponse
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /v1/admin/intents/{id} [get]
// @Security     ApiKeyAuth
func (controller *AdminController) GetIntent(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	detail, err := controller.svc.IntentDetail(c.Request().Context(), id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

// Reconcile godoc
// @Summary      Re-arm reconciliation
// @Description  Restarts reconciliation of an open intent from attempt zero. Final intents are refused.
// @Produce      json
// @Tags         Admin
// @Param        id   path      int  true  "intent id"
// @Success      200  {object}  ReconcileResponseBody
// @Failure      404  {object}  responses.ErrorResponse
// @Failure      409  {object}  responses.ErrorResponse
// @Router       /v1/admin/intents/{id}/reconcile [post]
// @Security     ApiKeyAuth
func (controller *AdminController) Reconcile(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	intent, runAt, err := controller.svc.RearmReconcile(c.Request().Context(), id)
	if err != nil {
		return serviceError(c, err)
	}
	c.Logger().Infof("Reconciliation of intent %d re-armed for %s", id, runAt.Format(time.RFC3339))
	return c.JSON(http.StatusOK, &ReconcileResponseBody{Intent: intent, RunAt: runAt})
}

// LinkUser godoc
// @Summary      Link a portal user to a GIAV customer
// @Accept       json
// @Produce      json
// @Tags         Admin
// @Param        user  body      LinkUserRequestBody  true  "portal user"
// @Success      200   {object}  models.PortalUser
// @Failure      400   {object}  responses.ErrorResponse
// @Router       /v1/admin/users [put]
// @Security     ApiKeyAuth
func (controller *AdminController) LinkUser(c echo.Context) error {
	var body LinkUserRequestBody
	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load link user request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		c.Logger().Errorf("Invalid link user request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	user := &models.PortalUser{
		ID:             body.ID,
		Email:          body.Email,
		GiavCustomerID: body.GiavCustomerID,
	}
	if err := controller.svc.LinkPortalUser(c.Request().Context(), user); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}
