package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/FebaRodrigues/track-fit-sub001/controllers"
	"github.com/FebaRodrigues/track-fit-sub001/websocket"
)

// SetupRoutes configures all API routes by calling individual route registration functions
func SetupRoutes(e *echo.Echo, db *mongo.Client, hub *websocket.Hub, paymentController *controllers.PaymentController) {
	RegisterAuthRoutes(e, db)
	RegisterMemberRoutes(e, db, hub)
	RegisterPaymentRoutes(e, paymentController)
	RegisterAdminRoutes(e, db, paymentController)
	RegisterFileRoutes(e)
}
