package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/FebaRodrigues/track-fit-sub001/controllers"
	"github.com/FebaRodrigues/track-fit-sub001/middleware"
)

// RegisterAdminRoutes sets up back-office routes
func RegisterAdminRoutes(e *echo.Echo, db *mongo.Client, paymentController *controllers.PaymentController) {
	adminController := controllers.NewAdminController(db)
	membershipController := controllers.NewMembershipController(db)
	bookingController := controllers.NewBookingController(db)

	r := e.Group("/api/admin")
	r.Use(middleware.JWTMiddleware())
	r.Use(middleware.RequireUserType("admin"))

	r.GET("/payments", adminController.GetAllPayments)
	r.POST("/transactions/expire-stale", adminController.ExpireStaleTransactions)
	r.GET("/memberships/stats", adminController.GetMembershipStats)

	r.POST("/plans", membershipController.CreatePlan)
	r.PUT("/plans/:id", membershipController.UpdatePlan)
	r.DELETE("/plans/:id", membershipController.DeletePlan)

	r.POST("/spa/services", bookingController.CreateSpaService)
	r.PUT("/spa/services/:id", bookingController.UpdateSpaService)
}
