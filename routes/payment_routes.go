package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/FebaRodrigues/track-fit-sub001/controllers"
	"github.com/FebaRodrigues/track-fit-sub001/middleware"
)

// RegisterPaymentRoutes sets up the checkout flow routes. The webhook and the
// redirect return are public; the webhook authenticates by signature and the
// redirect carries nothing but the opaque session id.
func RegisterPaymentRoutes(e *echo.Echo, paymentController *controllers.PaymentController) {
	e.POST("/api/payments/webhook", paymentController.HandleWebhook)
	e.GET("/api/payments/verify-session", paymentController.VerifySession)

	r := e.Group("/api/payments")
	r.Use(middleware.JWTMiddleware())
	r.POST("/send-otp", paymentController.SendOTP)
	r.POST("/verify-otp", paymentController.VerifyOTP)
	r.POST("", paymentController.CreatePayment)
	r.POST("/retry", paymentController.RetryPayment)
	r.GET("/history", paymentController.GetPaymentHistory)
}
