package transport

import (
	"github.com/dimasromerop/portal-giav/controllers"
	"github.com/dimasromerop/portal-giav/lib/service"
	"github.com/labstack/echo/v4"
)

// RegisterEndpoints wires the portal, gateway and operator routes. The
// gateway callbacks carry no credentials of their own; they are trusted by
// signature only.
func RegisterEndpoints(svc *service.PaymentService, e *echo.Echo, secured *echo.Group, securedWithStrictRateLimit *echo.Group, adminMw echo.MiddlewareFunc, logMw echo.MiddlewareFunc) {
	e.GET("/health", controllers.NewHealthController().Check)

	paymentCtrl := controllers.NewPaymentController(svc)
	secured.GET("/v1/bookings/:booking_id/payment", paymentCtrl.GetPaymentOptions)
	securedWithStrictRateLimit.POST("/v1/bookings/:booking_id/payment", paymentCtrl.InitiatePayment)

	redsysCtrl := controllers.NewRedsysController(svc)
	e.GET("/redsys/return", redsysCtrl.Return, logMw)
	e.POST("/redsys/return", redsysCtrl.Return, logMw)
	e.POST("/redsys/notify", redsysCtrl.Notify, logMw)
	e.POST("/v1/redsys/notify", redsysCtrl.NotifyJSON, logMw)

	adminCtrl := controllers.NewAdminController(svc)
	admin := e.Group("/v1/admin", adminMw, logMw)
	admin.GET("/intents", adminCtrl.ListIntents)
	admin.GET("/intents/:id", adminCtrl.GetIntent)
	admin.POST("/intents/:id/reconcile", adminCtrl.Reconcile)
	admin.PUT("/users", adminCtrl.LinkUser)
}
