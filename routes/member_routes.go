package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/FebaRodrigues/track-fit-sub001/controllers"
	"github.com/FebaRodrigues/track-fit-sub001/middleware"
	"github.com/FebaRodrigues/track-fit-sub001/websocket"
)

// RegisterMemberRoutes sets up all member-facing protected routes
func RegisterMemberRoutes(e *echo.Echo, db *mongo.Client, hub *websocket.Hub) {
	userController := controllers.NewUserController(db)
	membershipController := controllers.NewMembershipController(db)
	bookingController := controllers.NewBookingController(db)
	workoutController := controllers.NewWorkoutController(db)
	goalController := controllers.NewGoalController(db)
	notificationController := controllers.NewNotificationController(db, hub)

	// Plan and spa catalogs are browsable without an account
	e.GET("/api/memberships/plans", membershipController.GetPlans)
	e.GET("/api/spa/services", bookingController.GetSpaServices)

	r := e.Group("/api")
	r.Use(middleware.JWTMiddleware())

	// Profile
	r.GET("/users/profile", userController.GetProfile)
	r.PUT("/users/profile", userController.UpdateProfile)
	r.POST("/users/profile-picture", userController.UploadProfilePicture)

	// Memberships
	r.POST("/memberships/select", membershipController.SelectPlan)
	r.GET("/memberships/current", membershipController.GetCurrentMembership)
	r.GET("/memberships/history", membershipController.GetMembershipHistory)
	r.GET("/memberships/card", membershipController.GetMembershipCard)

	// Spa bookings
	r.POST("/spa/bookings", bookingController.CreateBooking)
	r.GET("/spa/bookings", bookingController.GetBookings)

	// Workouts
	r.POST("/workouts", workoutController.LogWorkout)
	r.GET("/workouts", workoutController.GetWorkouts)
	r.PUT("/workouts/:id", workoutController.UpdateWorkout)
	r.DELETE("/workouts/:id", workoutController.DeleteWorkout)

	// Goals
	r.POST("/goals", goalController.CreateGoal)
	r.GET("/goals", goalController.GetGoals)
	r.PUT("/goals/:id/progress", goalController.UpdateGoalProgress)
	r.PUT("/goals/:id/abandon", goalController.AbandonGoal)

	// Notifications
	r.GET("/notifications", notificationController.GetNotifications)
	r.PUT("/notifications/:id/read", notificationController.MarkAsRead)
	r.PUT("/notifications/read-all", notificationController.MarkAllAsRead)

	// Realtime feed; unauthenticated clients can connect and AUTH in-band
	e.GET("/ws/notifications", notificationController.HandleWebSocket)
}
